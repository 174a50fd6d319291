package drive_test

import (
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/drive"
)

func newDriveComponent(t *testing.T, h *nucleustest.Harness, c *nucleus.Computer, capacity int) *nucleus.Component {
	t.Helper()

	table := drive.NewMethodTable(h.Universe)

	st, err := drive.New(drive.Options{SectorSize: 512, PlatterCount: 1, Capacity: capacity})
	if err != nil {
		t.Fatalf("drive.New: %v", err)
	}

	comp, err := c.AddComponent(table, "drive1", 0, st)
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	return comp
}

func TestReadWriteSector(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()
	comp := newDriveComponent(t, h, c, 512*4)

	payload := make([]byte, 512)
	copy(payload, "sector one contents")

	nucleustest.Call(t, c, comp.Address, "writeSector", nucleus.Int(1), nucleus.String(payload))

	rets := nucleustest.Call(t, c, comp.Address, "readSector", nucleus.Int(1))
	if got := rets[0].ToString(); string(got[:len("sector one contents")]) != "sector one contents" {
		t.Fatalf("readSector: want prefix %q, got %q", "sector one contents", got)
	}
}

func TestReadWriteByte(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()
	comp := newDriveComponent(t, h, c, 512*2)

	nucleustest.Call(t, c, comp.Address, "writeByte", nucleus.Int(5), nucleus.Int(42))

	rets := nucleustest.Call(t, c, comp.Address, "readByte", nucleus.Int(5))
	if rets[0].ToInt() != 42 {
		t.Fatalf("readByte: want 42, got %d", rets[0].ToInt())
	}
}

func TestSectorOutOfRange(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()
	comp := newDriveComponent(t, h, c, 512)

	if err := c.Frame().AddArgument(nucleus.Int(2)); err != nil {
		t.Fatalf("AddArgument: %v", err)
	}

	if exit := c.Invoke(comp.Address, "readSector"); exit != nucleus.ExitBadCall {
		t.Fatalf("readSector past capacity: want ExitBadCall, got %v", exit)
	}
}

func TestLabelRoundTrip(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()
	comp := newDriveComponent(t, h, c, 512)

	rets := nucleustest.Call(t, c, comp.Address, "setLabel", nucleus.String([]byte("floppy")))
	if got := string(rets[0].ToString()); got != "floppy" {
		t.Fatalf("setLabel: want %q, got %q", "floppy", got)
	}

	rets = nucleustest.Call(t, c, comp.Address, "getLabel")
	if got := string(rets[0].ToString()); got != "floppy" {
		t.Fatalf("getLabel: want %q, got %q", "floppy", got)
	}
}
