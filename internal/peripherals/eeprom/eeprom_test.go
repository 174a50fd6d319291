package eeprom_test

import (
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/eeprom"
)

func TestGetSetCode(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := eeprom.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "eeprom1", 0, eeprom.NewVolatile(eeprom.Options{Size: 64, DataSize: 16}))
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	nucleustest.Call(t, c, comp.Address, "set", nucleus.String([]byte("boot code")))

	rets := nucleustest.Call(t, c, comp.Address, "get")
	if got := string(rets[0].ToString()); got != "boot code" {
		t.Fatalf("get: want %q, got %q", "boot code", got)
	}
}

func TestCodeTruncatedToSize(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := eeprom.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "eeprom1", 0, eeprom.NewVolatile(eeprom.Options{Size: 4, DataSize: 4}))
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	nucleustest.Call(t, c, comp.Address, "set", nucleus.String([]byte("abcdefgh")))

	rets := nucleustest.Call(t, c, comp.Address, "get")
	if got := string(rets[0].ToString()); got != "abcd" {
		t.Fatalf("get: want %q, got %q", "abcd", got)
	}
}

func TestMakeReadOnlyRequiresChecksum(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := eeprom.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "eeprom1", 0, eeprom.NewVolatile(eeprom.Options{Size: 64, DataSize: 16, Code: []byte("boot")}))
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	if exit := c.Invoke(comp.Address, "makeReadOnly"); exit == nucleus.ExitOK {
		t.Fatalf("makeReadOnly with no checksum: want non-OK exit")
	}

	if err := c.Frame().AddArgument(nucleus.String([]byte("wrong"))); err != nil {
		t.Fatalf("AddArgument: %v", err)
	}

	if exit := c.Invoke(comp.Address, "makeReadOnly"); exit != nucleus.ExitBadCall {
		t.Fatalf("makeReadOnly with wrong checksum: want ExitBadCall, got %v", exit)
	}

	rets := nucleustest.Call(t, c, comp.Address, "getChecksum")
	checksum := rets[0]

	nucleustest.Call(t, c, comp.Address, "makeReadOnly", checksum)

	rets = nucleustest.Call(t, c, comp.Address, "isReadOnly")
	if !rets[0].ToBoolean() {
		t.Fatalf("isReadOnly after makeReadOnly: want true, got false")
	}

	if exit := c.Invoke(comp.Address, "set"); exit != nucleus.ExitBadCall {
		t.Fatalf("set after makeReadOnly: want ExitBadCall, got %v", exit)
	}
}

func TestLabelRoundTrip(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := eeprom.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "eeprom1", 0, eeprom.NewVolatile(eeprom.Options{Size: 64, DataSize: 16}))
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	rets := nucleustest.Call(t, c, comp.Address, "setLabel", nucleus.String([]byte("lua bios")))
	if got := string(rets[0].ToString()); got != "lua bios" {
		t.Fatalf("setLabel: want %q, got %q", "lua bios", got)
	}

	rets = nucleustest.Call(t, c, comp.Address, "getLabel")
	if got := string(rets[0].ToString()); got != "lua bios" {
		t.Fatalf("getLabel: want %q, got %q", "lua bios", got)
	}
}
