package diskdrive_test

import (
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/diskdrive"
)

func TestEjectEmpty(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := diskdrive.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "disk1", 0, diskdrive.New(diskdrive.Options{}))
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	rets := nucleustest.Call(t, c, comp.Address, "isEmpty")
	if !rets[0].ToBoolean() {
		t.Fatalf("isEmpty: want true, got false")
	}

	rets = nucleustest.Call(t, c, comp.Address, "eject")
	if rets[0].ToBoolean() {
		t.Fatalf("eject on empty drive: want false, got true")
	}
}

func TestInsertAndEject(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := diskdrive.NewMethodTable(h.Universe)
	dev := diskdrive.New(diskdrive.Options{})
	comp, err := c.AddComponent(table, "disk1", 0, dev)
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	dev.Insert("floppy-addr")

	rets := nucleustest.Call(t, c, comp.Address, "isEmpty")
	if rets[0].ToBoolean() {
		t.Fatalf("isEmpty after insert: want false, got true")
	}

	rets = nucleustest.Call(t, c, comp.Address, "media")
	if got := string(rets[0].ToString()); got != "floppy-addr" {
		t.Fatalf("media: want %q, got %q", "floppy-addr", got)
	}

	rets = nucleustest.Call(t, c, comp.Address, "eject")
	if !rets[0].ToBoolean() {
		t.Fatalf("eject: want true, got false")
	}

	if !dev.IsEmpty() {
		t.Fatalf("drive should be empty after eject")
	}
}

func TestMediaOnEmptyDriveFails(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := diskdrive.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "disk1", 0, diskdrive.New(diskdrive.Options{}))
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	if exit := c.Invoke(comp.Address, "media"); exit != nucleus.ExitBadCall {
		t.Fatalf("media on empty drive: want ExitBadCall, got %v", exit)
	}
}
