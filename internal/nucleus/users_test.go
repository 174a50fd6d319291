package nucleus_test

import (
	"fmt"
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
)

func TestOpenMachineAllowsAnyone(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	if !c.HasUser("anyone") {
		t.Fatalf("HasUser on an open machine: want true, got false")
	}
}

func TestAddUserClosesMachine(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	if err := c.AddUser("steve"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	if !c.HasUser("steve") {
		t.Fatalf("HasUser(steve): want true, got false")
	}

	if c.HasUser("alex") {
		t.Fatalf("HasUser(alex) on a closed machine: want false, got true")
	}

	users := c.Users()
	if len(users) != 1 || users[0] != "steve" {
		t.Fatalf("Users: want [steve], got %v", users)
	}
}

func TestAddUserIsIdempotent(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	if err := c.AddUser("steve"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	if err := c.AddUser("steve"); err != nil {
		t.Fatalf("AddUser duplicate: %v", err)
	}

	if got := len(c.Users()); got != 1 {
		t.Fatalf("Users after duplicate add: want 1, got %d", got)
	}
}

func TestAddUserRejectsOverlongUsername(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	long := make([]byte, nucleus.MaxUsername+1)
	for i := range long {
		long[i] = 'a'
	}

	if err := c.AddUser(string(long)); err == nil {
		t.Fatalf("AddUser with overlong username: want error, got nil")
	}
}

func TestAddUserRejectsPastLimit(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	for i := 0; i < nucleus.MaxUsers; i++ {
		if err := c.AddUser(fmt.Sprintf("user%d", i)); err != nil {
			t.Fatalf("AddUser #%d: %v", i, err)
		}
	}

	if err := c.AddUser("one-too-many"); err == nil {
		t.Fatalf("AddUser past MaxUsers: want error, got nil")
	}
}

func TestRemoveUser(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	if err := c.AddUser("steve"); err != nil {
		t.Fatalf("AddUser: %v", err)
	}

	if err := c.RemoveUser("steve"); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}

	if len(c.Users()) != 0 {
		t.Fatalf("Users after RemoveUser: want empty, got %v", c.Users())
	}

	if err := c.RemoveUser("steve"); err == nil {
		t.Fatalf("RemoveUser not registered: want error, got nil")
	}
}
