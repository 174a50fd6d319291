package nucleus

// Architecture is the adapter through which a guest interpreter plugs into
// a Computer. The core never interprets guest bytecode; it only calls these
// five methods at well-defined points in a Computer's lifecycle, per spec
// section 1 ("Concrete guest interpreters... the core exposes a VTable they
// plug into; semantics of their bytecode is their own").
type Architecture interface {
	// Name identifies the architecture, e.g. "lua5.3" or "script.js".
	Name() string

	// Init is dispatched once, when a Computer first ticks from StateBootup.
	// It returns the architecture's opaque local state, or an error that
	// crashes the Computer.
	Init(c *Computer) (state any, err error)

	// Tick is dispatched on every tick while the Computer is RUNNING (or
	// resuming from BUSY). It returns the architecture's possibly-updated
	// state, or an error that crashes the Computer.
	Tick(c *Computer, state any) (newState any, err error)

	// FreeMem answers the out-of-band ARCH_FREEMEM query used by guest
	// memory-introspection calls: bytes of the Computer's memory budget not
	// currently used by the architecture.
	FreeMem(c *Computer, state any) int

	// Serialize produces an opaque per-architecture blob the core does not
	// interpret, for persistence across host restarts.
	Serialize(c *Computer, state any) ([]byte, error)

	// Deserialize restores architecture state from a blob produced by
	// Serialize.
	Deserialize(c *Computer, blob []byte) (state any, err error)
}
