package nucleus

import (
	"fmt"
	"sync"
	"time"

	"github.com/NeoFlock/neonucleus-sub000/internal/log"
)

// State is a Computer's lifecycle state, per spec section 4.8. Some rows of
// the spec's table name two aliases for one state (SETUP/BOOTUP,
// BUSY/OVERWORKED, REPEAT/RESTART, CHARCH/SWITCH); this type has one
// constant per distinct state and documents the alias.
type State int

const (
	// StateBootup (alias SETUP) is the state a Computer is created in,
	// before its architecture has been initialized.
	StateBootup State = iota
	StateRunning
	// StateBusy (alias OVERWORKED) is entered when a tick's call cost
	// exceeds the budget; it resets to StateRunning on the next tick.
	StateBusy
	StateBlackout
	StateClosing
	// StateRepeat (alias RESTART) signals the host should re-create the
	// Computer.
	StateRepeat
	StateCrashed
	StatePoweroff
	// StateCharch (alias SWITCH) signals the host should rebind the
	// Computer to NextArchitecture and re-tick.
	StateCharch
)

func (s State) String() string {
	switch s {
	case StateBootup:
		return "BOOTUP"
	case StateRunning:
		return "RUNNING"
	case StateBusy:
		return "OVERWORKED"
	case StateBlackout:
		return "BLACKOUT"
	case StateClosing:
		return "CLOSING"
	case StateRepeat:
		return "REPEAT"
	case StateCrashed:
		return "CRASHED"
	case StatePoweroff:
		return "POWEROFF"
	case StateCharch:
		return "CHARCH"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// Computer is the virtual machine: lifecycle state machine, component
// registry, signal queue, resource counters and architecture binding, per
// spec section 3. It generalizes the teacher's LC3 struct (a fixed-ISA
// machine with a memory controller and device map) to a pluggable
// Architecture VTable and an OpenComputers-style component registry.
type Computer struct {
	mu sync.Mutex

	universe *Universe
	log      *log.Logger

	state State
	arch  Architecture

	address      string
	tmpFSAddress string

	archState     any
	nextArch      string
	architectures map[string]Architecture

	components    []*Component
	maxComponents int

	deviceInfo *DeviceInfoList
	frame      *CallFrame
	signals    *SignalQueue

	users []string

	energy, energyCap                              float64
	temperature, thermalCoefficient, roomTemperature float64
	memoryTotal, memoryUsed                         int

	callBudget, callUsed float64

	errBuf       string
	errAllocated bool

	created float64
}

// ComputerOption configures a Computer at construction.
type ComputerOption func(*Computer)

// WithAddress sets the Computer's address instead of generating one from
// the Universe's Context.
func WithAddress(addr string) ComputerOption {
	return func(c *Computer) { c.address = addr }
}

// WithArchitecture registers arch as both the initially-bound architecture
// and a supported one.
func WithArchitecture(arch Architecture) ComputerOption {
	return func(c *Computer) {
		c.arch = arch
		c.architectures[arch.Name()] = arch
	}
}

// WithEnergy sets the initial and capacity energy levels.
func WithEnergy(current, capacity float64) ComputerOption {
	return func(c *Computer) { c.energy, c.energyCap = current, capacity }
}

// WithThermals sets the thermal coefficient and room temperature; current
// temperature starts at room temperature.
func WithThermals(coefficient, room float64) ComputerOption {
	return func(c *Computer) {
		c.thermalCoefficient = coefficient
		c.roomTemperature = room
		c.temperature = room
	}
}

// WithMemory sets the Computer's total memory budget in bytes.
func WithMemory(total int) ComputerOption {
	return func(c *Computer) { c.memoryTotal = total }
}

// WithCallBudget sets the per-tick call-cost budget.
func WithCallBudget(budget float64) ComputerOption {
	return func(c *Computer) { c.callBudget = budget }
}

// WithMaxComponents overrides the fixed capacity of the components vector.
func WithMaxComponents(n int) ComputerOption {
	return func(c *Computer) { c.maxComponents = n }
}

// NewComputer creates a Computer bound to u, in StateBootup, ready for its
// first Tick.
func NewComputer(u *Universe, opts ...ComputerOption) *Computer {
	c := &Computer{
		universe:           u,
		log:                log.DefaultLogger(),
		state:              StateBootup,
		architectures:       make(map[string]Architecture),
		maxComponents:       MaxComponents,
		deviceInfo:          NewDeviceInfoList(),
		frame:               NewCallFrame(),
		signals:             NewSignalQueue(MaxSignals),
		energyCap:           1000,
		energy:              1000,
		thermalCoefficient:  1,
		roomTemperature:     25,
		temperature:         25,
		memoryTotal:         256 * KiB,
		callBudget:          100 * CallCostUnit,
		created:             u.Clock(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.address == "" {
		addr, err := u.Context.NewAddress()
		if err != nil {
			addr = fmt.Sprintf("computer-%p", c)
		}

		c.address = addr
	}

	c.temperature = c.roomTemperature

	return c
}

// Address returns the Computer's UUID address.
func (c *Computer) Address() string { return c.address }

// State returns the Computer's current lifecycle state.
func (c *Computer) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Frame returns the Computer's CallFrame.
func (c *Computer) Frame() *CallFrame { return c.frame }

// DeviceInfo returns the Computer's device-info listing.
func (c *Computer) DeviceInfo() *DeviceInfoList { return c.deviceInfo }

// Universe returns the owning Universe.
func (c *Computer) Universe() *Universe { return c.universe }

// Uptime returns seconds since the Computer was created, per the Universe's
// clock.
func (c *Computer) Uptime() float64 {
	return c.universe.Clock() - c.created
}

// AddArchitecture registers a supported architecture the guest can switch
// to via RequestArchitectureChange. It fails with ErrLimit past
// MaxArchitectures.
func (c *Computer) AddArchitecture(arch Architecture) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.architectures[arch.Name()]; !ok && len(c.architectures) >= MaxArchitectures {
		return ErrLimit
	}

	c.architectures[arch.Name()] = arch

	return nil
}

// RequestArchitectureChange asks the host to rebind the Computer to the
// named architecture; the Computer transitions to StateCharch and Tick
// refuses further ARCH_TICK dispatch until the host performs the switch
// (see SwitchArchitecture).
func (c *Computer) RequestArchitectureChange(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextArch = name
	c.state = StateCharch
}

// NextArchitecture returns the architecture name requested by
// RequestArchitectureChange.
func (c *Computer) NextArchitecture() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nextArch
}

// SwitchArchitecture is called by the host in response to StateCharch: it
// discards the old architecture state, rebinds to the requested
// architecture, and returns the Computer to StateBootup so the next Tick
// re-initializes it.
func (c *Computer) SwitchArchitecture() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	arch, ok := c.architectures[c.nextArch]
	if !ok {
		return fmt.Errorf("%w: switch: unknown architecture %q", ErrBadState, c.nextArch)
	}

	c.arch = arch
	c.archState = nil
	c.nextArch = ""
	c.state = StateBootup

	return nil
}

// RequestPowerOff transitions the Computer to StatePoweroff, a terminal
// state. Called by an architecture or a "computer" control peripheral in
// response to a guest shutdown request.
func (c *Computer) RequestPowerOff() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StatePoweroff
}

// RequestRepeat transitions the Computer to StateRepeat, signaling the host
// should re-create it. Called in response to a guest restart request.
func (c *Computer) RequestRepeat() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state = StateRepeat
}

// crash moves the Computer to StateCrashed and preserves err's message in
// the error buffer, per spec section 7 tier 3.
func (c *Computer) crash(err error) {
	c.state = StateCrashed
	c.setError(err.Error())
	c.log.Error("CRASHED", "err", err, "address", c.address)
}

// Tick resets per-tick budgets, clears the error buffer and the legacy
// stack, and dispatches to the architecture according to spec section 4.8.
//
// The architecture callback runs with c.mu released: Init/Tick routinely
// call back into the Computer (invoking components, reading DeviceInfo),
// and sync.Mutex is not reentrant, so holding the lock across the callback
// would self-deadlock the one goroutine ticking this Computer. Callers must
// not call Tick concurrently on the same Computer; internal/hostrun only
// ever runs one ticking goroutine per Computer.
func (c *Computer) Tick() error {
	c.mu.Lock()

	c.callUsed = 0

	for _, comp := range c.components {
		comp.budgetUsed = 0
	}

	c.frame.ClearStack()
	c.errBuf = ""
	c.errAllocated = false

	state := c.state
	if state == StateBusy {
		state = StateRunning
		c.state = StateRunning
	}

	arch := c.arch
	archState := c.archState

	c.mu.Unlock()

	switch state {
	case StateBootup:
		newState, err := arch.Init(c)

		c.mu.Lock()
		defer c.mu.Unlock()

		if err != nil {
			c.crash(fmt.Errorf("arch init: %w", err))
			return err
		}

		c.archState = newState
		c.state = StateRunning

		return nil

	case StateRunning:
		newState, err := arch.Tick(c, archState)

		c.mu.Lock()
		defer c.mu.Unlock()

		if err != nil {
			c.crash(fmt.Errorf("arch tick: %w", err))
			return err
		}

		c.archState = newState

		if c.callUsed >= c.callBudget {
			c.state = StateBusy
		}

		return nil

	default:
		return fmt.Errorf("%w: tick: computer is %s", ErrBadState, state)
	}
}

// FreeMem answers the architecture's memory-introspection query.
func (c *Computer) FreeMem() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.arch == nil {
		return c.memoryTotal
	}

	return c.arch.FreeMem(c, c.archState)
}

// MemoryUsed reports the bytes of the memory budget currently reported in
// use. It follows testLuaArch's memoryUsed convention rather than the older
// luaArch_alloc's freeMem convention; see DESIGN.md.
func (c *Computer) MemoryUsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.memoryUsed
}

// SetMemoryUsed records the bytes of the memory budget the architecture
// reports as in use.
func (c *Computer) SetMemoryUsed(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memoryUsed = n
}

// MemoryTotal returns the Computer's total memory budget in bytes.
func (c *Computer) MemoryTotal() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.memoryTotal
}

// Energy returns the Computer's current energy level.
func (c *Computer) Energy() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.energy
}

// EnergyCapacity returns the Computer's maximum energy level.
func (c *Computer) EnergyCapacity() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.energyCap
}

// AddEnergy increases the Computer's energy level, clamped at capacity.
func (c *Computer) AddEnergy(e float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.energy += e
	if c.energy > c.energyCap {
		c.energy = c.energyCap
	}
}

// RemoveEnergy decreases the Computer's energy level, clamping at zero and
// transitioning to StateBlackout on reaching it, per spec section 4.6. The
// Computer then stays in StateBlackout: AddEnergy raises the energy level
// but does not change the state, and Tick refuses to run while blacked out.
func (c *Computer) RemoveEnergy(e float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.energy -= e
	if c.energy <= 0 {
		c.energy = 0
		c.state = StateBlackout
		c.log.Warn("BLACKOUT", "address", c.address)
	}
}

// Temperature returns the Computer's current simulated temperature.
func (c *Computer) Temperature() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.temperature
}

// Overheating reports whether the Computer's temperature has crossed
// OverheatMin. This is a standing condition a peripheral handler or
// architecture may check, not a distinct lifecycle State -- spec section
// 4.8's state table does not list an OVERHEATING exit from RUNNING.
func (c *Computer) Overheating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.temperature >= OverheatMin
}

// AddHeat scales delta by the thermal coefficient and adds it to the
// Computer's temperature, clamping at the room temperature, per spec
// section 4.6.
func (c *Computer) AddHeat(delta float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.temperature += delta * c.thermalCoefficient
	if c.temperature < c.roomTemperature {
		c.temperature = c.roomTemperature
	}
}

// CallCost adds n units to this tick's call-cost total. If the running
// total exceeds the configured budget, the next Tick will observe
// Overworked; architectures are expected to check Overworked and yield
// before the host ends the tick, per spec section 5.
func (c *Computer) CallCost(n float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.callUsed += n
}

// Overworked reports whether this tick's call cost has exceeded the budget.
func (c *Computer) Overworked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.callUsed >= c.callBudget
}

// BusySleep is a deliberate, short spin used to emulate component latency.
// The core never blocks on its own account; only peripheral handlers call
// this, and only briefly, per spec section 5.
func BusySleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Overused returns the addresses of every component whose per-tick budget
// crossed its ceiling this tick, per spec section 4.6's componentsOverused,
// reported per-component rather than as a single boolean; see DESIGN.md.
func (c *Computer) Overused() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var addrs []string

	for _, comp := range c.components {
		if comp.budgetUsed >= 1.0 {
			addrs = append(addrs, comp.Address)
		}
	}

	return addrs
}

// chargeComponentBudget normalizes amount against perTick and accumulates
// it into the component's per-tick ceiling tracker.
func chargeComponentBudget(comp *Component, amount, perTick float64) {
	if perTick <= 0 {
		return
	}

	comp.budgetUsed += amount / perTick
}

// PushSignal enqueues a tuple of values for the guest to receive via
// PopSignal, per spec section 4.5. Outside StateRunning the signal is
// silently dropped: a component or the host may fire a signal (e.g. a
// lifecycle event) at a Computer that isn't ready to receive it, and that is
// not an error condition. It fails with ErrLimit under the same conditions
// as SignalQueue.Push.
func (c *Computer) PushSignal(values ...Value) error {
	c.mu.Lock()
	running := c.state == StateRunning
	c.mu.Unlock()

	if !running {
		return nil
	}

	return c.signals.Push(values)
}

// PopSignal dequeues the head signal onto the CallFrame's return slots, the
// convention architectures use to surface a pulled signal to the guest. It
// fails with ErrBadState if the queue is empty.
func (c *Computer) PopSignal() error {
	values, err := c.signals.Pop()
	if err != nil {
		return err
	}

	c.frame.clearRets()

	for _, v := range values {
		if err := c.frame.Return(v); err != nil {
			Drop(v)
		}
	}

	return nil
}

// SetError installs msg in the error buffer, truncating to MaxErrorSize.
func (c *Computer) SetError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setError(msg)
}

func (c *Computer) setError(msg string) {
	if len(msg) > MaxErrorSize {
		msg = msg[:MaxErrorSize]
	}

	c.errBuf = msg
	c.errAllocated = true
}

// ClearError empties the error buffer.
func (c *Computer) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errBuf = ""
	c.errAllocated = false
}

// Error returns the current error buffer and whether it holds a message.
func (c *Computer) Error() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.errBuf, c.errAllocated
}

// setErrorFromExit installs the canonical message for exit, unless exit is
// ExitBadCall, in which case detail (supplied by the failing handler) is
// used instead, per spec section 7 tier 1.
func (c *Computer) setErrorFromExit(exit Exit, detail string) {
	if exit == ExitOK {
		return
	}

	if exit == ExitBadCall && detail != "" {
		c.setError(detail)
		return
	}

	c.setError(exit.canonicalMessage())
}

// LogValue renders the Computer's state as a structured log group, the way
// the teacher's RegisterFile implements slog.LogValuer instead of a
// hand-rolled String dump.
func (c *Computer) LogValue() log.Value {
	return log.GroupValue(
		log.String("address", c.address),
		log.String("state", c.state.String()),
		log.Any("energy", c.energy),
		log.Any("temperature", c.temperature),
		log.Any("memoryUsed", c.memoryUsed),
		log.Any("components", len(c.components)),
	)
}
