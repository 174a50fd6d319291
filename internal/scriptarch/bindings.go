package scriptarch

import (
	"fmt"

	"github.com/dop251/goja"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

// bindComputer exposes a "computer" and a "component" global to rt, the
// minimal surface a guest program needs to call into components and react
// to signals, mirroring OpenComputers' own computer/component API shape.
func bindComputer(rt *goja.Runtime, c *nucleus.Computer) {
	computerObj := rt.NewObject()
	_ = computerObj.Set("address", func() string { return c.Address() })
	_ = computerObj.Set("uptime", func() float64 { return c.Uptime() })
	_ = computerObj.Set("energy", func() float64 { return c.Energy() })
	_ = computerObj.Set("maxEnergy", func() float64 { return c.EnergyCapacity() })
	_ = computerObj.Set("freeMemory", func() int { return c.MemoryTotal() - c.MemoryUsed() })
	_ = computerObj.Set("totalMemory", func() int { return c.MemoryTotal() })
	_ = computerObj.Set("pushSignal", func(call goja.FunctionCall) goja.Value {
		values := make([]nucleus.Value, len(call.Arguments))
		for i, a := range call.Arguments {
			values[i] = toNucleus(a)
		}

		if err := c.PushSignal(values...); err != nil {
			panic(rt.NewGoError(err))
		}

		return goja.Undefined()
	})
	_ = computerObj.Set("pullSignal", func() goja.Value {
		if err := c.PopSignal(); err != nil {
			return goja.Undefined()
		}

		rets := c.Frame().Returns()
		out := make([]interface{}, len(rets))
		for i, v := range rets {
			out[i] = toJS(rt, v)
		}

		return rt.ToValue(out)
	})

	_ = rt.Set("computer", computerObj)

	componentObj := rt.NewObject()
	_ = componentObj.Set("list", func() map[string]string {
		out := make(map[string]string)
		for _, comp := range c.Components() {
			out[comp.Address] = comp.Table.Name
		}

		return out
	})
	_ = componentObj.Set("invoke", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(rt.NewTypeError("component.invoke requires (address, method, ...)"))
		}

		address := call.Arguments[0].String()
		method := call.Arguments[1].String()

		frame := c.Frame()
		for _, a := range call.Arguments[2:] {
			if err := frame.AddArgument(toNucleus(a)); err != nil {
				panic(rt.NewGoError(err))
			}
		}

		exit := c.Invoke(address, method)
		if exit != nucleus.ExitOK {
			msg, _ := c.Error()
			panic(rt.NewGoError(fmt.Errorf("%s.%s: exit %v: %s", address, method, exit, msg)))
		}

		rets := frame.Returns()
		out := make([]interface{}, len(rets))
		for i, v := range rets {
			out[i] = toJS(rt, v)
		}

		return rt.ToValue(out)
	})

	_ = rt.Set("component", componentObj)
}

// toJS converts a nucleus.Value returned from a component call into a
// goja-friendly Go value (string/int64/float64/bool/nil/slice/map), letting
// goja's own reflection-based marshaling handle the rest.
func toJS(rt *goja.Runtime, v nucleus.Value) interface{} {
	switch v.Tag() {
	case nucleus.TagNil:
		return nil
	case nucleus.TagInt:
		return v.ToInt()
	case nucleus.TagNumber:
		return v.ToNumber()
	case nucleus.TagBool:
		return v.ToBoolean()
	case nucleus.TagString, nucleus.TagCString:
		return string(v.ToString())
	case nucleus.TagArray:
		out := make([]interface{}, v.Len())
		for i := range out {
			out[i] = toJS(rt, nucleus.Get(v, i))
		}
		return out
	case nucleus.TagTable:
		out := make(map[string]interface{}, v.Len())
		for i := 0; i < v.Len(); i++ {
			k, val := nucleus.GetPair(v, i)
			out[string(k.ToString())] = toJS(rt, val)
		}
		return out
	default:
		return nil
	}
}

// toNucleus converts a guest-supplied goja.Value into the nucleus.Value
// tag best matching its JS type, for arguments passed to component.invoke
// or computer.pushSignal.
func toNucleus(v goja.Value) nucleus.Value {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nucleus.Nil()
	}

	switch exported := v.Export().(type) {
	case int64:
		return nucleus.Int(exported)
	case float64:
		return nucleus.Number(exported)
	case bool:
		return nucleus.Bool(exported)
	case string:
		return nucleus.String([]byte(exported))
	default:
		return nucleus.String([]byte(v.String()))
	}
}
