package nucleus

import "fmt"

// signalComponentAdded and signalComponentRemoved name the lifecycle
// signals pushed when the Computer is RUNNING, per spec section 6.
const (
	signalComponentAdded   = "component_added"
	signalComponentRemoved = "component_removed"
)

// HasComponent reports whether a component is registered at address.
func (c *Computer) HasComponent(address string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.findComponent(address)

	return ok
}

// GetComponent looks up the component registered at address, for use by
// peripheral handlers that collaborate with another component on the same
// Computer (e.g. a GPU binding to a screen).
func (c *Computer) GetComponent(address string) (*Component, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.findComponent(address)
}

// Components returns a snapshot of every component currently registered,
// for host-facing introspection (e.g. an HTTP API listing a Computer's
// attached peripherals).
func (c *Computer) Components() []*Component {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*Component, len(c.components))
	copy(out, c.components)

	return out
}

func (c *Computer) findComponent(address string) (*Component, bool) {
	for _, comp := range c.components {
		if comp.Address == address {
			return comp, true
		}
	}

	return nil, false
}

// AddComponent adds a new component instance bound to table at address and
// slot, per spec section 4.3. It invokes the handler with ReqInit to obtain
// the instance state; if the handler returns an error, AddComponent aborts
// with that error wrapped in ErrBadCall. It fails with ErrLimit if the
// components vector is full.
func (c *Computer) AddComponent(table *MethodTable, address string, slot int, userdata any) (*Component, error) {
	c.mu.Lock()

	if len(c.components) >= c.maxComponents {
		c.mu.Unlock()
		return nil, ErrLimit
	}

	req := &Request{
		Kind:     ReqInit,
		Universe: c.universe,
		Table:    table,
		Computer: c,
		State:    userdata,
	}

	if table.Handler != nil {
		if err := table.Handler(req); err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: init %s: %w", ErrBadCall, table.Name, err)
		}
	}

	comp := &Component{
		Address:  address,
		Slot:     slot,
		Table:    table,
		State:    req.State,
		computer: c,
	}

	c.components = append(c.components, comp)

	running := c.state == StateRunning
	c.mu.Unlock()

	if running {
		_ = c.PushSignal(String([]byte(signalComponentAdded)), String([]byte(address)), String([]byte(table.Name)))
	}

	return comp, nil
}

// RemoveComponent tears down the component at address: it invokes the
// handler with ReqDeinit exactly once, then removes the component from the
// registry. It returns ErrBadState if address is not found.
func (c *Computer) RemoveComponent(address string) error {
	c.mu.Lock()

	idx := -1

	for i, comp := range c.components {
		if comp.Address == address {
			idx = i
			break
		}
	}

	if idx < 0 {
		c.mu.Unlock()
		return ErrBadState
	}

	comp := c.components[idx]
	typeName := comp.Table.Name

	if comp.Table.Handler != nil {
		_ = comp.Table.Handler(&Request{
			Kind:      ReqDeinit,
			Universe:  c.universe,
			Table:     comp.Table,
			Computer:  c,
			Component: comp,
		})
	}

	c.components = append(c.components[:idx], c.components[idx+1:]...)

	running := c.state == StateRunning
	c.mu.Unlock()

	if running {
		_ = c.PushSignal(String([]byte(signalComponentRemoved)), String([]byte(address)), String([]byte(typeName)))
	}

	return nil
}

// Invoke dispatches a method call on the component at address, per spec
// section 4.3. It looks up the component and method, asks the handler via
// ReqEnabled whether the method is currently exposed (default true),
// charges one call-budget unit, zeroes the remaining budget if the method
// is indirect (forcing the architecture to yield at the end of the tick),
// and dispatches ReqCall. The frame is reset to hold exactly the declared
// return count on success; on a non-OK Exit the frame is emptied and, for
// ExitBadCall, the handler's message is installed in the error buffer.
func (c *Computer) Invoke(address, method string) Exit {
	c.mu.Lock()
	comp, ok := c.findComponent(address)
	c.mu.Unlock()

	if !ok {
		c.frame.reset()
		c.setErrorFromExit(ExitBadCall, "no such component")

		return ExitBadCall
	}

	md, ok := comp.Table.Method(method)
	if !ok {
		c.frame.reset()
		c.setErrorFromExit(ExitBadCall, "no such method")

		return ExitBadCall
	}

	enabledReq := &Request{
		Kind:      ReqEnabled,
		Universe:  c.universe,
		Table:     comp.Table,
		Computer:  c,
		Component: comp,
		Method:    method,
		Enabled:   true,
	}

	if comp.Table.Handler != nil {
		_ = comp.Table.Handler(enabledReq)
	}

	if !enabledReq.Enabled {
		c.frame.reset()
		c.setErrorFromExit(ExitBadCall, "method not enabled")

		return ExitBadCall
	}

	c.CallCost(CallCostUnit)

	if md.Indirect() {
		c.mu.Lock()
		c.callUsed = c.callBudget
		c.mu.Unlock()
	}

	c.frame.clearRets()

	callReq := &Request{
		Kind:      ReqCall,
		Universe:  c.universe,
		Table:     comp.Table,
		Computer:  c,
		Component: comp,
		Method:    method,
		Frame:     c.frame,
		Exit:      ExitOK,
	}

	var handlerErr error

	if comp.Table.Handler != nil {
		handlerErr = comp.Table.Handler(callReq)
	}

	exit := callReq.Exit
	if handlerErr != nil && exit == ExitOK {
		exit = exitFor(handlerErr)
	}

	if exit != ExitOK {
		c.frame.reset()

		detail := callReq.Err
		msg := ""

		if detail != nil {
			msg = detail.Error()
		} else if handlerErr != nil {
			msg = handlerErr.Error()
		}

		c.setErrorFromExit(exit, msg)

		return exit
	}

	for i, v := range c.frame.rets {
		c.frame.rets[i] = Retain(v)
	}

	c.frame.rewriteReturns()

	return ExitOK
}
