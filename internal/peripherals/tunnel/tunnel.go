// Package tunnel implements the linked-card component: a fixed channel
// shared by every tunnel joined to it, delivering a "modem_message"
// signal to every other joined peer on send.
package tunnel

import (
	"sync"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

const (
	signalModemMessage = "modem_message"
	tunnelDistance     = 0
)

type state struct {
	mu sync.Mutex

	channel       string
	maxPacketSize int
	wakeMessage   string
	joined        bool
	deviceInfoSet bool
}

// Options configures a new tunnel instance at construction. Channel
// identifies the linked group this tunnel delivers to; tunnels sharing a
// Channel within the same universe form one link.
type Options struct {
	Channel       string
	MaxPacketSize int
}

// New creates tunnel instance state, ready to pass as userdata to
// Computer.AddComponent.
func New(opts Options) *state {
	if opts.MaxPacketSize <= 0 {
		opts.MaxPacketSize = nucleus.MaxSignalSize
	}

	return &state{
		channel:       opts.Channel,
		maxPacketSize: opts.MaxPacketSize,
	}
}

// NewMethodTable builds the "tunnel" MethodTable.
func NewMethodTable(u *nucleus.Universe) *nucleus.MethodTable {
	return u.GetOrCreateMethodTable("NN:TUNNEL", func() *nucleus.MethodTable {
		return nucleus.NewMethodTable(u, "tunnel", nil, methods, handle)
	})
}

var methods = []nucleus.Method{
	{Name: "getChannel", Flags: nucleus.Direct, Doc: "getChannel(): string"},
	{Name: "maxPacketSize", Flags: nucleus.Direct, Doc: "maxPacketSize(): integer"},
	{Name: "send", Doc: "send(...) - Sends a modem_message to every linked tunnel."},
	{Name: "getWakeMessage", Flags: nucleus.Direct, Doc: "getWakeMessage(): string"},
	{Name: "setWakeMessage", Flags: nucleus.Direct, Doc: "setWakeMessage(message: string): string"},
}

func handle(req *nucleus.Request) error {
	switch req.Kind {
	case nucleus.ReqInit:
		if req.State == nil {
			req.State = New(Options{Channel: "loopback"})
		}

		return nil

	case nucleus.ReqDeinit:
		s := req.Component.State.(*state)

		s.mu.Lock()
		joined := s.joined
		channel := s.channel
		s.mu.Unlock()

		if joined {
			req.Universe.UnregisterTunnelPeer(channel, req.Component.Address)
		}

		req.Computer.DeviceInfo().Remove(req.Component.Address)

		return nil

	case nucleus.ReqFreeType:
		return nil

	case nucleus.ReqEnabled:
		req.Enabled = true
		return nil

	case nucleus.ReqCall:
		s := req.Component.State.(*state)
		ensureJoined(s, req)

		return dispatch(s, req)
	}

	return nil
}

func ensureJoined(s *state, req *nucleus.Request) {
	s.mu.Lock()
	already := s.joined
	s.joined = true
	channel := s.channel
	deviceInfoSet := s.deviceInfoSet
	s.deviceInfoSet = true
	s.mu.Unlock()

	if !already {
		req.Universe.RegisterTunnelPeer(channel, nucleus.TunnelPeer{
			Address:  req.Component.Address,
			Computer: req.Computer,
		})
	}

	if !deviceInfoSet {
		info := req.Computer.DeviceInfo()
		info.Set(req.Component.Address, "device", "network")
		info.Set(req.Component.Address, "description", "Linked card")
		info.Set(req.Component.Address, "vendor", "NeoFlock")
		info.Set(req.Component.Address, "product", "neonucleus Tunnel")
	}
}

func dispatch(s *state, req *nucleus.Request) error {
	switch req.Method {
	case "getChannel":
		s.mu.Lock()
		defer s.mu.Unlock()

		return req.Frame.Return(nucleus.String([]byte(s.channel)))

	case "maxPacketSize":
		return req.Frame.Return(nucleus.Int(int64(s.maxPacketSize)))

	case "send":
		return doSend(s, req)

	case "getWakeMessage":
		s.mu.Lock()
		defer s.mu.Unlock()

		return req.Frame.Return(nucleus.String([]byte(s.wakeMessage)))

	case "setWakeMessage":
		return doSetWakeMessage(s, req)

	default:
		req.Exit = nucleus.ExitBadCall
		req.Err = errNoMethod

		return nil
	}
}

func doSend(s *state, req *nucleus.Request) error {
	frame := req.Frame

	s.mu.Lock()
	channel := s.channel
	s.mu.Unlock()

	payload := make([]nucleus.Value, frame.ArgCount())
	for i := range payload {
		v, _ := frame.GetArgument(i)
		payload[i] = v
	}

	senderAddr := req.Component.Address

	for _, peer := range req.Universe.TunnelPeers(channel) {
		if peer.Address == senderAddr {
			continue
		}

		values := make([]nucleus.Value, 0, len(payload)+5)
		values = append(values,
			nucleus.String([]byte(signalModemMessage)),
			nucleus.String([]byte(peer.Address)),
			nucleus.String([]byte(senderAddr)),
			nucleus.Int(nucleus.TunnelPort),
			nucleus.Number(tunnelDistance),
		)
		values = append(values, payload...)

		_ = peer.Computer.PushSignal(values...)
	}

	return frame.Return(nucleus.Bool(true))
}

func doSetWakeMessage(s *state, req *nucleus.Request) error {
	msg, ok := stringArg(req.Frame, 0)
	if !ok {
		return badCall(req, errBadMessage)
	}

	s.mu.Lock()
	s.wakeMessage = msg
	s.mu.Unlock()

	return req.Frame.Return(nucleus.String([]byte(msg)))
}
