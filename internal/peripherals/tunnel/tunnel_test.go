package tunnel_test

import (
	"testing"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus/nucleustest"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/tunnel"
)

func TestSendReachesEveryOtherPeerOnChannel(t *testing.T) {
	h := nucleustest.New(t)
	alice := h.NewComputer()
	bob := h.NewComputer()
	carol := h.NewComputer()

	table := tunnel.NewMethodTable(h.Universe)

	aliceTunnel, err := alice.AddComponent(table, "alice-tunnel", 0, tunnel.New(tunnel.Options{Channel: "link"}))
	if err != nil {
		t.Fatalf("AddComponent alice: %v", err)
	}

	bobTunnel, err := bob.AddComponent(table, "bob-tunnel", 0, tunnel.New(tunnel.Options{Channel: "link"}))
	if err != nil {
		t.Fatalf("AddComponent bob: %v", err)
	}

	carolTunnel, err := carol.AddComponent(table, "carol-tunnel", 0, tunnel.New(tunnel.Options{Channel: "link"}))
	if err != nil {
		t.Fatalf("AddComponent carol: %v", err)
	}

	// Adding each tunnel to its running Computer queued a component_added
	// signal; drain them so only tunnel traffic remains.
	for _, c := range []*nucleus.Computer{alice, bob, carol} {
		if err := c.PopSignal(); err != nil {
			t.Fatalf("PopSignal component_added: %v", err)
		}
	}

	// Join every tunnel onto the channel before anyone sends.
	nucleustest.Call(t, bob, bobTunnel.Address, "getChannel")
	nucleustest.Call(t, carol, carolTunnel.Address, "getChannel")

	nucleustest.Call(t, alice, aliceTunnel.Address, "send", nucleus.String([]byte("hello")))

	if err := bob.PopSignal(); err != nil {
		t.Fatalf("bob PopSignal: %v", err)
	}

	bobFrame := bob.Frame()
	dest, _ := bobFrame.GetReturn(1)
	if string(dest.ToString()) != bobTunnel.Address {
		t.Fatalf("bob signal dest: want %q, got %q", bobTunnel.Address, dest.ToString())
	}

	if err := carol.PopSignal(); err != nil {
		t.Fatalf("carol PopSignal: %v", err)
	}

	carolFrame := carol.Frame()
	dest, _ = carolFrame.GetReturn(1)
	if string(dest.ToString()) != carolTunnel.Address {
		t.Fatalf("carol signal dest: want %q, got %q", carolTunnel.Address, dest.ToString())
	}

	if err := alice.PopSignal(); err == nil {
		t.Fatalf("alice should not receive its own tunnel send")
	}
}

func TestWakeMessageRoundTrip(t *testing.T) {
	h := nucleustest.New(t)
	c := h.NewComputer()

	table := tunnel.NewMethodTable(h.Universe)
	comp, err := c.AddComponent(table, "tunnel1", 0, tunnel.New(tunnel.Options{Channel: "link"}))
	if err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	rets := nucleustest.Call(t, c, comp.Address, "setWakeMessage", nucleus.String([]byte("wake")))
	if string(rets[0].ToString()) != "wake" {
		t.Fatalf("setWakeMessage: want %q, got %q", "wake", rets[0].ToString())
	}

	rets = nucleustest.Call(t, c, comp.Address, "getWakeMessage")
	if string(rets[0].ToString()) != "wake" {
		t.Fatalf("getWakeMessage: want %q, got %q", "wake", rets[0].ToString())
	}
}
