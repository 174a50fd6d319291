package scriptarch_test

import (
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/eeprom"
	"github.com/NeoFlock/neonucleus-sub000/internal/scriptarch"
)

func bootWithCode(t *testing.T, code string) *nucleus.Computer {
	t.Helper()

	h := nucleustest.New(t)

	c := nucleus.NewComputer(h.Universe, nucleus.WithArchitecture(scriptarch.Architecture{}))

	eepromTable := eeprom.NewMethodTable(h.Universe)
	if _, err := c.AddComponent(eepromTable, "eeprom1", 0, eeprom.NewVolatile(eeprom.Options{
		Size: 4096,
		Code: []byte(code),
	})); err != nil {
		t.Fatalf("AddComponent eeprom: %v", err)
	}

	if err := c.Tick(); err != nil {
		t.Fatalf("boot tick: %v", err)
	}

	return c
}

func TestInitRunsEEPROMCode(t *testing.T) {
	c := bootWithCode(t, `computer.pushSignal("booted", 42)`)

	if c.State() != nucleus.StateRunning {
		t.Fatalf("state: want StateRunning, got %v", c.State())
	}

	if err := c.PopSignal(); err != nil {
		t.Fatalf("PopSignal: %v", err)
	}

	rets := c.Frame().Returns()
	if len(rets) != 2 || string(rets[0].ToString()) != "booted" || rets[1].ToInt() != 42 {
		t.Fatalf("unexpected signal: %v", rets)
	}
}

func TestTickCallsGuestTickFunction(t *testing.T) {
	c := bootWithCode(t, `
		var n = 0;
		function tick() {
			n = n + 1;
			computer.pushSignal("tick", n);
		}
	`)

	if err := c.Tick(); err != nil {
		t.Fatalf("tick: %v", err)
	}

	if err := c.PopSignal(); err != nil {
		t.Fatalf("PopSignal: %v", err)
	}

	rets := c.Frame().Returns()
	if len(rets) != 2 || rets[1].ToInt() != 1 {
		t.Fatalf("unexpected tick signal: %v", rets)
	}
}

func TestComponentInvokeReachesEEPROM(t *testing.T) {
	c := bootWithCode(t, `
		var addrs = Object.keys(component.list());
		var size = component.invoke(addrs[0], "getSize")[0];
		computer.pushSignal("size", size);
	`)

	if err := c.PopSignal(); err != nil {
		t.Fatalf("PopSignal: %v", err)
	}

	rets := c.Frame().Returns()
	if len(rets) != 2 || rets[1].ToInt() != 4096 {
		t.Fatalf("unexpected size signal: %v", rets)
	}
}

func TestInitFailsWithoutEEPROM(t *testing.T) {
	h := nucleustest.New(t)
	c := nucleus.NewComputer(h.Universe, nucleus.WithArchitecture(scriptarch.Architecture{}))

	if err := c.Tick(); err == nil {
		t.Fatalf("boot tick without eeprom: want error, got nil")
	}
}
