// Package modem implements the wireless network card component: a small
// fixed-capacity set of open ports, a wake message, and send/broadcast
// that deliver a "modem_message" signal to whichever Computer in the
// universe is registered under the destination address.
package modem

import (
	"sync"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

const signalModemMessage = "modem_message"

type state struct {
	mu sync.Mutex

	registered    bool
	deviceInfoSet bool

	maxOpenPorts int
	openPorts    []int

	maxStrength float64
	strength    float64

	wakeMessage string
}

// Options configures a new modem instance at construction.
type Options struct {
	MaxOpenPorts int
	MaxStrength  float64
}

// New creates modem instance state, ready to pass as userdata to
// Computer.AddComponent.
func New(opts Options) *state {
	if opts.MaxOpenPorts <= 0 {
		opts.MaxOpenPorts = nucleus.MaxOpenPorts
	}

	return &state{
		maxOpenPorts: opts.MaxOpenPorts,
		maxStrength:  opts.MaxStrength,
		strength:     opts.MaxStrength,
	}
}

// NewMethodTable builds the "modem" MethodTable.
func NewMethodTable(u *nucleus.Universe) *nucleus.MethodTable {
	return u.GetOrCreateMethodTable("NN:MODEM", func() *nucleus.MethodTable {
		return nucleus.NewMethodTable(u, "modem", nil, methods, handle)
	})
}

var methods = []nucleus.Method{
	{Name: "isWireless", Flags: nucleus.Direct, Doc: "isWireless(): boolean"},
	{Name: "maxOpenPorts", Flags: nucleus.Direct, Doc: "maxOpenPorts(): integer"},
	{Name: "isOpen", Flags: nucleus.Direct, Doc: "isOpen(port: integer): boolean"},
	{Name: "open", Flags: nucleus.Direct, Doc: "open(port: integer): boolean"},
	{Name: "close", Flags: nucleus.Direct, Doc: "close([port: integer]): boolean - Closes the given port, or every port if omitted."},
	{Name: "getOpenPorts", Doc: "getOpenPorts(): integer[]"},
	{Name: "send", Doc: "send(address: string, port: integer, ...): boolean - Sends a modem_message to address."},
	{Name: "broadcast", Doc: "broadcast(port: integer, ...): boolean - Sends a modem_message back to this modem's own Computer, addressed to this modem."},
	{Name: "getStrength", Flags: nucleus.Direct, Doc: "getStrength(): number"},
	{Name: "setStrength", Flags: nucleus.Direct, Doc: "setStrength(strength: number): number"},
	{Name: "getWakeMessage", Flags: nucleus.Direct, Doc: "getWakeMessage(): string"},
	{Name: "setWakeMessage", Flags: nucleus.Direct, Doc: "setWakeMessage(message: string): string"},
}

func handle(req *nucleus.Request) error {
	switch req.Kind {
	case nucleus.ReqInit:
		if req.State == nil {
			req.State = New(Options{MaxOpenPorts: nucleus.MaxOpenPorts, MaxStrength: 400})
		}

		return nil

	case nucleus.ReqDeinit:
		s := req.Component.State.(*state)

		s.mu.Lock()
		registered := s.registered
		s.mu.Unlock()

		if registered {
			req.Universe.UnregisterNetworkAddress(req.Component.Address)
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
		ensureRegistered(s, req)

		return dispatch(s, req)
	}

	return nil
}

func ensureRegistered(s *state, req *nucleus.Request) {
	s.mu.Lock()
	already := s.registered
	s.registered = true
	deviceInfoSet := s.deviceInfoSet
	s.deviceInfoSet = true
	s.mu.Unlock()

	if !already {
		req.Universe.RegisterNetworkAddress(req.Component.Address, req.Computer)
	}

	if !deviceInfoSet {
		info := req.Computer.DeviceInfo()
		info.Set(req.Component.Address, "device", "network")
		info.Set(req.Component.Address, "description", "Wireless network card")
		info.Set(req.Component.Address, "vendor", "NeoFlock")
		info.Set(req.Component.Address, "product", "neonucleus Modem")
	}
}

func dispatch(s *state, req *nucleus.Request) error {
	switch req.Method {
	case "isWireless":
		return req.Frame.Return(nucleus.Bool(true))

	case "maxOpenPorts":
		return req.Frame.Return(nucleus.Int(int64(s.maxOpenPorts)))

	case "isOpen":
		return doIsOpen(s, req)

	case "open":
		return doOpen(s, req)

	case "close":
		return doClose(s, req)

	case "getOpenPorts":
		return doGetOpenPorts(s, req)

	case "send":
		return doSend(s, req, false)

	case "broadcast":
		return doSend(s, req, true)

	case "getStrength":
		s.mu.Lock()
		defer s.mu.Unlock()

		return req.Frame.Return(nucleus.Number(s.strength))

	case "setStrength":
		return doSetStrength(s, req)

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

func doIsOpen(s *state, req *nucleus.Request) error {
	port, ok := intArg(req.Frame, 0)
	if !ok {
		return badCall(req, errBadPort)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.openPorts {
		if p == port {
			return req.Frame.Return(nucleus.Bool(true))
		}
	}

	return req.Frame.Return(nucleus.Bool(false))
}

func doOpen(s *state, req *nucleus.Request) error {
	port, ok := intArg(req.Frame, 0)
	if !ok {
		return badCall(req, errBadPort)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.openPorts {
		if p == port {
			return req.Frame.Return(nucleus.Bool(false))
		}
	}

	if len(s.openPorts) >= s.maxOpenPorts {
		return req.Frame.Return(nucleus.Bool(false))
	}

	s.openPorts = append(s.openPorts, port)

	return req.Frame.Return(nucleus.Bool(true))
}

func doClose(s *state, req *nucleus.Request) error {
	port, hasPort := intArg(req.Frame, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !hasPort || port == nucleus.PortCloseAll {
		closed := len(s.openPorts) > 0
		s.openPorts = s.openPorts[:0]

		return req.Frame.Return(nucleus.Bool(closed))
	}

	for i, p := range s.openPorts {
		if p == port {
			s.openPorts = append(s.openPorts[:i], s.openPorts[i+1:]...)
			return req.Frame.Return(nucleus.Bool(true))
		}
	}

	return req.Frame.Return(nucleus.Bool(false))
}

func doGetOpenPorts(s *state, req *nucleus.Request) error {
	s.mu.Lock()
	ports := make([]int, len(s.openPorts))
	copy(ports, s.openPorts)
	s.mu.Unlock()

	arr := nucleus.Array(len(ports))
	for i, p := range ports {
		nucleus.Set(arr, i, nucleus.Int(int64(p)))
	}

	return req.Frame.Return(arr)
}

func doSend(s *state, req *nucleus.Request, broadcast bool) error {
	frame := req.Frame

	var destAddr string

	portIdx := 0

	if !broadcast {
		addr, ok := stringArg(frame, 0)
		if !ok {
			return badCall(req, errBadAddress)
		}

		destAddr = addr
		portIdx = 1
	}

	port, ok := intArg(frame, portIdx)
	if !ok {
		return badCall(req, errBadPort)
	}

	s.mu.Lock()
	strength := s.strength
	s.mu.Unlock()

	payload := make([]nucleus.Value, 0, frame.ArgCount())
	for i := portIdx + 1; i < frame.ArgCount(); i++ {
		v, _ := frame.GetArgument(i)
		payload = append(payload, v)
	}

	senderAddr := req.Component.Address

	if broadcast {
		deliverBroadcast(req, senderAddr, port, strength, payload)
	} else {
		if destAddr == "" {
			destAddr = senderAddr
		}

		deliverTo(req, destAddr, senderAddr, port, strength, payload)
	}

	return frame.Return(nucleus.Bool(true))
}

func deliverTo(req *nucleus.Request, destAddr, senderAddr string, port int, distance float64, payload []nucleus.Value) {
	target, ok := req.Universe.FindNetworkComputer(destAddr)
	if !ok {
		return
	}

	values := make([]nucleus.Value, 0, len(payload)+5)
	values = append(values,
		nucleus.String([]byte(signalModemMessage)),
		nucleus.String([]byte(destAddr)),
		nucleus.String([]byte(senderAddr)),
		nucleus.Int(int64(port)),
		nucleus.Number(distance),
	)
	values = append(values, payload...)

	_ = target.PushSignal(values...)
}

func deliverBroadcast(req *nucleus.Request, senderAddr string, port int, distance float64, payload []nucleus.Value) {
	deliverTo(req, senderAddr, senderAddr, port, distance, payload)
}

func doSetStrength(s *state, req *nucleus.Request) error {
	n, ok := floatArg(req.Frame, 0)
	if !ok {
		return badCall(req, errBadStrength)
	}

	if n > s.maxStrength {
		n = s.maxStrength
	}

	s.mu.Lock()
	s.strength = n
	s.mu.Unlock()

	return req.Frame.Return(nucleus.Number(n))
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
