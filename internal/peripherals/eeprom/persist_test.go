package eeprom_test

import (
	"os"
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/eeprom"
)

func TestNewVolatileNeverTouchesDisk(t *testing.T) {
	s := eeprom.NewVolatile(eeprom.Options{Size: 64, DataSize: 16, Code: []byte("boot")})
	if s == nil {
		t.Fatalf("NewVolatile returned nil state")
	}
}

func TestNewPersistedWritesThroughToBackingFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "eeprom-*.bin")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()

	if err := f.Truncate(64); err != nil {
		t.Fatalf("Truncate: %v", err)
	}

	state, err := eeprom.New(eeprom.Options{Size: 64, DataSize: 16, BackingFile: f})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	h := nucleustest.New(t)
	c := h.NewComputer()

	table := eeprom.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "eeprom1", 0, state)
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	nucleustest.Call(t, c, comp.Address, "set", nucleus.String([]byte("persisted")))

	contents, err := os.ReadFile(f.Name())
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if got := string(contents[:len("persisted")]); got != "persisted" {
		t.Fatalf("backing file after set: want prefix %q, got %q", "persisted", got)
	}
}

func TestNewPersistedRejectsUnopenableFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "eeprom-*.bin")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}

	f.Close() // closed fd: mmap.Map must fail

	if _, err := eeprom.New(eeprom.Options{Size: 64, BackingFile: f}); err == nil {
		t.Fatalf("New with closed backing file: want error, got nil")
	}
}
