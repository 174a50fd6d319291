// Package tty_test tries to test ttys.
//
// The test is skipped when stdin is not a terminal (ErrNoTTY). Notably, this includes when run with
// "go test" because it redirects tests' standard input/output streams. You can test it by building
// a test binary and running it directly:
//
//	$ go test -c && ./tty.test
package tty_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/keyboard"
	"github.com/NeoFlock/neonucleus-sub000/internal/tty"
)

type testHarness struct {
	*testing.T
}

const timeout = 100 * time.Millisecond

func (testHarness) Context() (context.Context, context.CancelCauseFunc) {
	ctx := context.Background()
	ctx, cancel := context.WithTimeoutCause(ctx, timeout, context.DeadlineExceeded)

	return ctx, func(err error) {
		cancel()
	}
}

func TestTerminal(tt *testing.T) {
	t := testHarness{tt}

	h := nucleustest.New(tt)
	c := h.NewComputer()

	kbdTable := keyboard.NewMethodTable(h.Universe)
	if _, err := c.AddComponent(kbdTable, "kbd1", 0, nil); err != nil {
		tt.Fatalf("AddComponent keyboard: %v", err)
	}

	ctx, cancelCause := t.Context()
	defer cancelCause(nil)

	ctx, console, cancel := tty.WithConsole(ctx, c, "kbd1")
	defer cancel()

	if err := context.Cause(ctx); errors.Is(err, tty.ErrNoTTY) {
		t.Skipf("error: %s", context.Cause(ctx))
		t.SkipNow()
	}

	pressed := make(chan struct{})

	go func() {
		defer close(pressed)

		for {
			if err := c.PopSignal(); err == nil {
				name, _ := c.Frame().GetReturn(0)
				if string(name.ToString()) == "key_down" {
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Millisecond):
			}
		}
	}()

	go func() {
		console.Press('!')
	}()

	select {
	case <-ctx.Done(): // Just wait.
	case <-pressed:
	}

	cancel()

	if err := context.Cause(ctx); err != nil {
		t.Errorf("cause: %s", err)
	}
}
