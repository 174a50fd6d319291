package nucleus

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Context bundles the host-provided primitives every universe and computer
// is built from: an allocator used only to account for memory pressure (Go's
// own runtime owns real allocation), a monotonic clock, a source of
// randomness, and a mutex factory. A Context is copied by value into every
// child that needs it and has no lifecycle of its own, mirroring the
// teacher's functional-option construction style where configuration flows
// downward at creation time rather than through a shared owner.
type Context struct {
	Alloc    Allocator
	Clock    func() float64
	RNG      RNG
	NewMutex func() sync.Locker
}

// Allocator accounts for a change in allocated size and reports whether the
// change is admissible. Unlike the classic three-argument C allocator this
// models, it never actually allocates memory -- Go's GC does that -- it only
// lets tests and memory-budget bookkeeping observe and reject growth.
type Allocator interface {
	// Reserve is called with the old and new sizes of a buffer. It returns
	// false to signal the change should be treated as out-of-memory.
	Reserve(oldSize, newSize int) bool
}

type unboundedAllocator struct{}

func (unboundedAllocator) Reserve(oldSize, newSize int) bool { return true }

// RNG is a source of randomness that, along with every value, declares the
// maximum it could have produced so callers can scale into [0,1) without the
// max+1 overflowing.
type RNG interface {
	// Next returns a value in [0, max] and the max itself.
	Next() (value uint64, max uint64)
}

type mathRNG struct {
	mu sync.Mutex
	r  *rand.Rand
}

// DefaultRNG returns an RNG backed by math/rand. It is good enough to drive
// an emulator's cosmetic randomness (filesystem latency jitter, address
// generation) and is explicitly not a cryptographic source.
func DefaultRNG() RNG {
	return &mathRNG{r: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (m *mathRNG) Next() (uint64, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.r.Uint64(), ^uint64(0)
}

// Float64 scales the Context's RNG into [0,1).
func (c Context) Float64() float64 {
	v, max := c.RNG.Next()
	return float64(v) / (float64(max) + 1)
}

// NewAddress generates a UUID address for a Computer or Component, drawing
// its entropy from the Context's RNG rather than directly from the OS, per
// the GLOSSARY's "Address... generated by the Context RNG."
func (c Context) NewAddress() (string, error) {
	id, err := uuid.NewRandomFromReader(rngReader{c.RNG})
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// rngReader adapts an RNG to an io.Reader so it can feed uuid.NewRandomFromReader.
type rngReader struct{ rng RNG }

var _ io.Reader = rngReader{}

func (r rngReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); {
		v, _ := r.rng.Next()
		for shift := 0; shift < 64 && i < len(p); shift += 8 {
			p[i] = byte(v >> shift)
			i++
		}
	}

	return len(p), nil
}

// noopLocker is a sync.Locker that does nothing. Hosts that forbid threads
// (e.g. single-threaded embedders) can supply it via WithMutexFactory so
// peripheral code can always call Lock/Unlock unconditionally.
type noopLocker struct{}

func (noopLocker) Lock()   {}
func (noopLocker) Unlock() {}

// NoopMutexFactory returns a mutex factory that produces no-op locks.
func NoopMutexFactory() sync.Locker { return noopLocker{} }

// DefaultMutexFactory returns a mutex factory backed by sync.Mutex.
func DefaultMutexFactory() sync.Locker { return &sync.Mutex{} }

// ContextOption configures a Context at construction.
type ContextOption func(*Context)

// WithAllocator overrides the Context's memory-pressure accountant.
func WithAllocator(a Allocator) ContextOption {
	return func(c *Context) { c.Alloc = a }
}

// WithClock overrides the Context's wall-clock source. The function must
// return seconds since an arbitrary but fixed epoch.
func WithClock(fn func() float64) ContextOption {
	return func(c *Context) { c.Clock = fn }
}

// WithRNG overrides the Context's source of randomness.
func WithRNG(rng RNG) ContextOption {
	return func(c *Context) { c.RNG = rng }
}

// WithMutexFactory overrides how the Context mints mutexes.
func WithMutexFactory(fn func() sync.Locker) ContextOption {
	return func(c *Context) { c.NewMutex = fn }
}

// NewContext builds a Context with sensible defaults, overridden by opts.
func NewContext(opts ...ContextOption) Context {
	ctx := Context{
		Alloc:    unboundedAllocator{},
		Clock:    func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
		RNG:      DefaultRNG(),
		NewMutex: DefaultMutexFactory,
	}

	for _, opt := range opts {
		opt(&ctx)
	}

	return ctx
}
