package keyboard_test

import (
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/keyboard"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/screen"
)

func TestNoGuestMethods(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := keyboard.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "kbd1", 0, nil)
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	if exit := c.Invoke(comp.Address, "anything"); exit != nucleus.ExitBadCall {
		t.Fatalf("invoke on keyboard: want ExitBadCall, got %v", exit)
	}
}

func TestPushKeyEventsReachScreenOwner(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	scrTable := screen.NewMethodTable(h.Universe)
	dev := screen.New(screen.Options{MaxWidth: 10, MaxHeight: 5, MaxDepth: 8, EditableColors: 2, PaletteColors: 16})
	scr, err := c.AddComponent(scrTable, "screen1", 0, dev)
	if err != nil {
		t.Fatalf("AddComponent screen: %v", err)
	}

	kbdTable := keyboard.NewMethodTable(h.Universe)
	kbd, err := c.AddComponent(kbdTable, "kbd1", 0, nil)
	if err != nil {
		t.Fatalf("AddComponent keyboard: %v", err)
	}

	if !dev.AddKeyboard(kbd.Address) {
		t.Fatalf("AddKeyboard: want true, got false")
	}

	rets := nucleustest.Call(t, c, scr.Address, "getKeyboards")
	arr := rets[0]

	if n := arr.Len(); n != 1 || string(nucleus.Get(arr, 0).ToString()) != kbd.Address {
		t.Fatalf("getKeyboards: want [%q], got len=%d", kbd.Address, n)
	}

	if err := keyboard.PushKeyDown(c, kbd.Address, 'a', 30, "steve"); err != nil {
		t.Fatalf("PushKeyDown: %v", err)
	}

	// Adding the screen and the keyboard to the running Computer queued a
	// component_added signal for each; drain them first.
	for i := 0; i < 2; i++ {
		if err := c.PopSignal(); err != nil {
			t.Fatalf("PopSignal component_added: %v", err)
		}
	}

	if err := c.PopSignal(); err != nil {
		t.Fatalf("PopSignal: %v", err)
	}

	frame := c.Frame()

	name, _ := frame.GetReturn(0)
	if string(name.ToString()) != "key_down" {
		t.Fatalf("signal name: want key_down, got %q", name.ToString())
	}

	addr, _ := frame.GetReturn(1)
	if string(addr.ToString()) != kbd.Address {
		t.Fatalf("signal address: want %q, got %q", kbd.Address, addr.ToString())
	}
}
