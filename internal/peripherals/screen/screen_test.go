package screen_test

import (
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/screen"
)

func TestResolutionClamped(t *testing.T) {
	dev := screen.New(screen.Options{MaxWidth: 80, MaxHeight: 25, MaxDepth: 8, EditableColors: 2, PaletteColors: 16})

	dev.SetResolution(1000, 1000)

	w, h := dev.Resolution()
	if w != 80 || h != 25 {
		t.Fatalf("SetResolution clamp: want (80,25), got (%d,%d)", w, h)
	}

	dev.SetResolution(0, 0)

	w, h = dev.Resolution()
	if w != 1 || h != 1 {
		t.Fatalf("SetResolution floor: want (1,1), got (%d,%d)", w, h)
	}
}

func TestSetGetPixel(t *testing.T) {
	dev := screen.New(screen.Options{MaxWidth: 10, MaxHeight: 10, MaxDepth: 8, EditableColors: 2, PaletteColors: 16})

	dev.SetPixel(3, 4, screen.Cell{Codepoint: 'x', Foreground: 0xFF0000})

	cell := dev.GetPixel(3, 4)
	if cell.Codepoint != 'x' || cell.Foreground != 0xFF0000 {
		t.Fatalf("GetPixel: want x/0xFF0000, got %q/%#x", cell.Codepoint, cell.Foreground)
	}

	if out := dev.GetPixel(-1, 0); out.Codepoint != ' ' {
		t.Fatalf("out-of-bounds GetPixel: want blank, got %q", out.Codepoint)
	}
}

func TestTurnOnOff(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := screen.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "screen1", 0, screen.New(screen.Options{MaxWidth: 10, MaxHeight: 10, MaxDepth: 8, EditableColors: 2, PaletteColors: 16}))
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	rets := nucleustest.Call(t, c, comp.Address, "isOn")
	if !rets[0].ToBoolean() {
		t.Fatalf("isOn initial: want true, got false")
	}

	rets = nucleustest.Call(t, c, comp.Address, "turnOff")
	if !rets[0].ToBoolean() {
		t.Fatalf("turnOff: want true (was on), got false")
	}

	rets = nucleustest.Call(t, c, comp.Address, "isOn")
	if rets[0].ToBoolean() {
		t.Fatalf("isOn after turnOff: want false, got true")
	}
}
