// Package hostrun runs a set of independently-ticking Computers
// concurrently, one goroutine per Computer, grounded on
// phenix/src/go/api/vm/vm.go's errgroup.WithContext fan-out for
// long-running, independently-cancellable work.
package hostrun

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

// Entry pairs a Computer with the name it's ticked under, for logging and
// error attribution when a Group fails.
type Entry struct {
	Name     string
	Computer *nucleus.Computer
}

// Group ticks every Entry's Computer on its own goroutine at interval,
// until ctx is cancelled or any Computer's Tick returns an error.
type Group struct {
	entries  []Entry
	interval time.Duration
}

// NewGroup builds a Group over entries, ticking each at interval.
func NewGroup(interval time.Duration, entries ...Entry) *Group {
	return &Group{entries: entries, interval: interval}
}

// Run blocks until ctx is done or one Computer's Tick fails, at which point
// every other goroutine is cancelled via the shared errgroup context and
// Run returns that first error.
func (g *Group) Run(ctx context.Context) error {
	wait, ctx := errgroup.WithContext(ctx)

	for _, entry := range g.entries {
		entry := entry

		wait.Go(func() error {
			return runOne(ctx, entry, g.interval)
		})
	}

	return wait.Wait()
}

func runOne(ctx context.Context, entry Entry, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := entry.Computer.Tick(); err != nil {
				return err
			}
		}
	}
}
