package hostrun_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NeoFlock/neonucleus-sub000/internal/hostrun"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
)

func TestGroupTicksUntilCancelled(t *testing.T) {
	h := nucleustest.New(t)
	c1 := h.NewComputer()
	c2 := h.NewComputer()

	group := hostrun.NewGroup(5*time.Millisecond,
		hostrun.Entry{Name: "a", Computer: c1},
		hostrun.Entry{Name: "b", Computer: c2},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := group.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if c1.State() != nucleus.StateRunning {
		t.Fatalf("computer a: want StateRunning after ticking, got %v", c1.State())
	}
	if c2.State() != nucleus.StateRunning {
		t.Fatalf("computer b: want StateRunning after ticking, got %v", c2.State())
	}
}

func TestGroupPropagatesTickError(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	// A blacked-out Computer refuses to tick, so the first scheduled Tick fails.
	c.RemoveEnergy(c.Energy())

	group := hostrun.NewGroup(5*time.Millisecond, hostrun.Entry{Name: "a", Computer: c})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := group.Run(ctx); !errors.Is(err, nucleus.ErrBadState) {
		t.Fatalf("Run: want ErrBadState from the failing tick, got %v", err)
	}
}
