package modem_test

import (
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/modem"
)

func TestOpenCloseAndCapacity(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := modem.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "modem1", 0, modem.New(modem.Options{MaxOpenPorts: 1}))
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	rets := nucleustest.Call(t, c, comp.Address, "open", nucleus.Int(80))
	if !rets[0].ToBoolean() {
		t.Fatalf("open port 80: want true, got false")
	}

	rets = nucleustest.Call(t, c, comp.Address, "open", nucleus.Int(81))
	if rets[0].ToBoolean() {
		t.Fatalf("open past capacity: want false, got true")
	}

	rets = nucleustest.Call(t, c, comp.Address, "isOpen", nucleus.Int(80))
	if !rets[0].ToBoolean() {
		t.Fatalf("isOpen(80): want true, got false")
	}

	rets = nucleustest.Call(t, c, comp.Address, "close", nucleus.Int(80))
	if !rets[0].ToBoolean() {
		t.Fatalf("close(80): want true, got false")
	}
}

func TestSendDeliversAcrossComputers(t *testing.T) {
	h := nucleustest.New(t)
	sender := h.NewComputer()
	receiver := h.NewComputer()

	table := modem.NewMethodTable(h.Universe)

	senderModem, err := sender.AddComponent(table, "sender-modem", 0, modem.New(modem.Options{}))
	if err != nil {
		t.Fatalf("AddComponent sender: %v", err)
	}

	receiverModem, err := receiver.AddComponent(table, "receiver-modem", 0, modem.New(modem.Options{}))
	if err != nil {
		t.Fatalf("AddComponent receiver: %v", err)
	}

	// Registration is lazy: a no-op call establishes each modem's network address.
	nucleustest.Call(t, receiver, receiverModem.Address, "isWireless")

	nucleustest.Call(t, sender, senderModem.Address, "send",
		nucleus.String([]byte(receiverModem.Address)), nucleus.Int(123), nucleus.String([]byte("hi")))

	// Adding the modem to the running receiver queued a component_added
	// signal; drain it first.
	if err := receiver.PopSignal(); err != nil {
		t.Fatalf("PopSignal component_added: %v", err)
	}

	if err := receiver.PopSignal(); err != nil {
		t.Fatalf("PopSignal: %v", err)
	}

	frame := receiver.Frame()

	name, _ := frame.GetReturn(0)
	if string(name.ToString()) != "modem_message" {
		t.Fatalf("signal name: want modem_message, got %q", name.ToString())
	}

	dest, _ := frame.GetReturn(1)
	if string(dest.ToString()) != receiverModem.Address {
		t.Fatalf("signal dest: want %q, got %q", receiverModem.Address, dest.ToString())
	}

	src, _ := frame.GetReturn(2)
	if string(src.ToString()) != senderModem.Address {
		t.Fatalf("signal src: want %q, got %q", senderModem.Address, src.ToString())
	}

	port, _ := frame.GetReturn(3)
	if port.ToInt() != 123 {
		t.Fatalf("signal port: want 123, got %d", port.ToInt())
	}

	payload, _ := frame.GetReturn(5)
	if string(payload.ToString()) != "hi" {
		t.Fatalf("signal payload: want %q, got %q", "hi", payload.ToString())
	}
}

func TestBroadcastLoopsBackToSender(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := modem.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "modem1", 0, modem.New(modem.Options{}))
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	nucleustest.Call(t, c, comp.Address, "broadcast", nucleus.Int(1))

	// Adding the modem to the running Computer queued a component_added
	// signal; drain it so the next pop is the broadcast.
	if err := c.PopSignal(); err != nil {
		t.Fatalf("PopSignal component_added: %v", err)
	}

	if err := c.PopSignal(); err != nil {
		t.Fatalf("PopSignal: %v", err)
	}

	frame := c.Frame()

	dest, _ := frame.GetReturn(1)
	if string(dest.ToString()) != comp.Address {
		t.Fatalf("broadcast dest: want own address %q, got %q", comp.Address, dest.ToString())
	}
}
