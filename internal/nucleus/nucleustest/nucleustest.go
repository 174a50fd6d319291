// Package nucleustest provides the small set of test doubles peripheral and
// core packages share: a Universe/Computer builder and a call helper, the
// way the teacher's internal/vm package hands every test a ready-made
// testHarness instead of repeating VM setup per test.
package nucleustest

import (
	"sync"
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

// StubArchitecture is a minimal nucleus.Architecture that does nothing on
// Init or Tick, so a Computer built against it reaches StateRunning without
// any guest interpreter of its own -- just enough for a peripheral test to
// drive Invoke and PushSignal.
type StubArchitecture struct{}

func (StubArchitecture) Name() string { return "nucleustest-stub" }

func (StubArchitecture) Init(c *nucleus.Computer) (any, error) { return nil, nil }

func (StubArchitecture) Tick(c *nucleus.Computer, state any) (any, error) { return state, nil }

func (StubArchitecture) FreeMem(c *nucleus.Computer, state any) int {
	return c.MemoryTotal() - c.MemoryUsed()
}

func (StubArchitecture) Serialize(c *nucleus.Computer, state any) ([]byte, error) { return nil, nil }

func (StubArchitecture) Deserialize(c *nucleus.Computer, blob []byte) (any, error) { return nil, nil }

// sequentialRNG hands out increasing values instead of real entropy, so
// addresses and jitter generated during a test run are reproducible.
type sequentialRNG struct {
	mu sync.Mutex
	n  uint64
}

// NewSequentialRNG returns an RNG whose output is a deterministic counter,
// for tests that exercise address generation or timing jitter.
func NewSequentialRNG() nucleus.RNG { return &sequentialRNG{} }

func (r *sequentialRNG) Next() (value, max uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.n++

	return r.n, ^uint64(0)
}

// Harness bundles a Universe with the *testing.T driving it, per-test, the
// way the teacher's testHarness bundles a *testing.T with the VM it builds.
type Harness struct {
	*testing.T
	Universe *nucleus.Universe
}

// New creates a Harness with a deterministic RNG and clock, ready to build
// Computers and components against.
func New(t *testing.T) *Harness {
	t.Helper()

	ctx := nucleus.NewContext(
		nucleus.WithRNG(NewSequentialRNG()),
		nucleus.WithClock(func() float64 { return 0 }),
	)

	return &Harness{T: t, Universe: nucleus.NewUniverse(ctx)}
}

// NewComputer builds a Computer bound to the harness's Universe and
// advances it past StateBootup into StateRunning using StubArchitecture,
// unless opts already supplies an architecture of its own.
func (h *Harness) NewComputer(opts ...nucleus.ComputerOption) *nucleus.Computer {
	h.T.Helper()

	allOpts := append([]nucleus.ComputerOption{nucleus.WithArchitecture(StubArchitecture{})}, opts...)
	c := nucleus.NewComputer(h.Universe, allOpts...)

	if err := c.Tick(); err != nil {
		h.T.Fatalf("nucleustest: boot tick: %v", err)
	}

	return c
}

// Call invokes method on the component at address, failing the test if the
// call does not exit ExitOK. It returns the values left on the Computer's
// CallFrame, which the caller owns and should Drop when done with them.
func Call(t *testing.T, c *nucleus.Computer, address, method string, args ...nucleus.Value) []nucleus.Value {
	t.Helper()

	frame := c.Frame()

	for _, a := range args {
		if err := frame.AddArgument(a); err != nil {
			t.Fatalf("nucleustest: add argument: %v", err)
		}
	}

	if exit := c.Invoke(address, method); exit != nucleus.ExitOK {
		msg, _ := c.Error()
		t.Fatalf("nucleustest: invoke %s.%s: exit %v: %s", address, method, exit, msg)
	}

	return frame.Returns()
}
