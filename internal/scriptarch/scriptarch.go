// Package scriptarch implements a nucleus.Architecture that interprets
// JavaScript with github.com/dop251/goja, as the one concrete guest
// interpreter this module ships: the core only ever sees Architecture's
// five VTable methods, and scriptarch exists so tests and cmd/nucleus have
// a real (non-stub) one to drive instead of a guest bytecode format of its
// own, which spec section 1 explicitly leaves out of scope.
package scriptarch

import (
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

// Architecture runs the guest program found on the Computer's EEPROM
// component as JavaScript. The program may define a global "tick"
// function; if it does, that function is called once per Computer.Tick
// after the initial run.
type Architecture struct{}

// Name identifies this architecture to RequestArchitectureChange.
func (Architecture) Name() string { return "script.js" }

type state struct {
	rt   *goja.Runtime
	tick goja.Callable
}

var errNoEEPROM = errors.New("scriptarch: no eeprom component bound")

// Init locates the Computer's bound EEPROM, reads its code, and runs it.
func (a Architecture) Init(c *nucleus.Computer) (any, error) {
	addr, ok := findTable(c, "eeprom")
	if !ok {
		return nil, errNoEEPROM
	}

	src, err := invokeString(c, addr, "get")
	if err != nil {
		return nil, fmt.Errorf("scriptarch: reading eeprom: %w", err)
	}

	return a.run(c, src)
}

// Tick calls the guest's "tick" function, if it defined one.
func (a Architecture) Tick(c *nucleus.Computer, s any) (any, error) {
	st, ok := s.(*state)
	if !ok || st.tick == nil {
		return s, nil
	}

	if _, err := st.tick(goja.Undefined()); err != nil {
		return s, translateException(err)
	}

	return s, nil
}

// FreeMem reports the Computer's unused memory budget. goja's own heap use
// isn't tracked against the guest memory budget, matching spec section 1's
// framing of guest interpreter internals as out of scope.
func (Architecture) FreeMem(c *nucleus.Computer, s any) int {
	return c.MemoryTotal() - c.MemoryUsed()
}

// Serialize captures the guest source so Deserialize can restart the
// program verbatim; goja.Runtime's live heap is not itself portable.
func (a Architecture) Serialize(c *nucleus.Computer, s any) ([]byte, error) {
	st, ok := s.(*state)
	if !ok {
		return nil, errors.New("scriptarch: not initialized")
	}

	src, ok := st.rt.Get("__source").Export().(string)
	if !ok {
		return nil, errors.New("scriptarch: source not retained")
	}

	return []byte(src), nil
}

// Deserialize re-runs a blob produced by Serialize as a fresh program.
func (a Architecture) Deserialize(c *nucleus.Computer, blob []byte) (any, error) {
	return a.run(c, string(blob))
}

func (a Architecture) run(c *nucleus.Computer, src string) (*state, error) {
	rt := goja.New()
	bindComputer(rt, c)
	rt.Set("__source", src)

	if _, err := rt.RunString(src); err != nil {
		return nil, translateException(err)
	}

	st := &state{rt: rt}

	if fn, ok := goja.AssertFunction(rt.Get("tick")); ok {
		st.tick = fn
	}

	return st, nil
}

func translateException(err error) error {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		return fmt.Errorf("scriptarch: %s", exc.Value().String())
	}

	return err
}

// findTable returns the address of the first component bound to a
// MethodTable named name, e.g. "eeprom" or "filesystem".
func findTable(c *nucleus.Computer, name string) (string, bool) {
	for _, comp := range c.Components() {
		if comp.Table != nil && comp.Table.Name == name {
			return comp.Address, true
		}
	}

	return "", false
}

func invokeString(c *nucleus.Computer, address, method string) (string, error) {
	if exit := c.Invoke(address, method); exit != nucleus.ExitOK {
		msg, _ := c.Error()
		return "", fmt.Errorf("%s.%s: exit %v: %s", address, method, exit, msg)
	}

	rets := c.Frame().Returns()
	if len(rets) == 0 {
		return "", nil
	}

	return string(rets[0].ToString()), nil
}
