// Package diskdrive implements the floppy-disk drive component: it holds
// at most one inner floppy (identified by the address of a filesystem
// component elsewhere on the same Computer) and can eject it.
package diskdrive

import (
	"sync"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

type state struct {
	mu            sync.Mutex
	mediaAddress  string
	deviceInfoSet bool
}

// Options configures a new disk drive instance at construction. Media, if
// non-empty, is the address of the floppy inserted at startup.
type Options struct {
	Media string
}

// New creates disk drive instance state, ready to pass as userdata to
// Computer.AddComponent.
func New(opts Options) *state {
	return &state{mediaAddress: opts.Media}
}

// Insert places a floppy's address into the drive, replacing any prior
// media without ejecting it -- callers that want OpenComputers' "can't
// swap a running floppy" discipline should check IsEmpty first.
func (s *state) Insert(address string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mediaAddress = address
}

// IsEmpty reports whether the drive currently holds no floppy.
func (s *state) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mediaAddress == ""
}

// NewMethodTable builds the "disk_drive" MethodTable.
func NewMethodTable(u *nucleus.Universe) *nucleus.MethodTable {
	return u.GetOrCreateMethodTable("NN:DISK_DRIVE", func() *nucleus.MethodTable {
		return nucleus.NewMethodTable(u, "disk_drive", nil, methods, handle)
	})
}

var methods = []nucleus.Method{
	{Name: "eject", Doc: "eject([velocity: number]): boolean - Ejects the floppy, if present. Returns whether it was present."},
	{Name: "isEmpty", Flags: nucleus.Direct, Doc: "isEmpty(): boolean - Returns whether the drive is empty."},
	{Name: "media", Flags: nucleus.Direct, Doc: "media(): string - Returns the address of the inner floppy disk."},
}

func handle(req *nucleus.Request) error {
	switch req.Kind {
	case nucleus.ReqInit:
		if req.State == nil {
			req.State = New(Options{})
		}

		return nil

	case nucleus.ReqDeinit:
		req.Computer.DeviceInfo().Remove(req.Component.Address)
		return nil

	case nucleus.ReqFreeType:
		return nil

	case nucleus.ReqEnabled:
		req.Enabled = true
		return nil

	case nucleus.ReqCall:
		s := req.Component.State.(*state)
		ensureDeviceInfo(s, req)
		return dispatch(s, req)
	}

	return nil
}

// ensureDeviceInfo populates the component's DeviceInfo entry on first call,
// since the address needed as its key is not assigned until after ReqInit.
func ensureDeviceInfo(s *state, req *nucleus.Request) {
	s.mu.Lock()
	already := s.deviceInfoSet
	s.deviceInfoSet = true
	s.mu.Unlock()

	if already {
		return
	}

	info := req.Computer.DeviceInfo()
	info.Set(req.Component.Address, "device", "disk drive")
	info.Set(req.Component.Address, "description", "Floppy disk drive")
	info.Set(req.Component.Address, "vendor", "NeoFlock")
	info.Set(req.Component.Address, "product", "neonucleus Disk Drive")
}

func dispatch(s *state, req *nucleus.Request) error {
	switch req.Method {
	case "eject":
		return doEject(s, req)
	case "isEmpty":
		return req.Frame.Return(nucleus.Bool(s.IsEmpty()))
	case "media":
		return doMedia(s, req)
	default:
		req.Exit = nucleus.ExitBadCall
		req.Err = errNoMethod

		return nil
	}
}

func doEject(s *state, req *nucleus.Request) error {
	s.mu.Lock()

	if s.mediaAddress == "" {
		s.mu.Unlock()
		return req.Frame.Return(nucleus.Bool(false))
	}

	s.mediaAddress = ""
	s.mu.Unlock()

	return req.Frame.Return(nucleus.Bool(true))
}

func doMedia(s *state, req *nucleus.Request) error {
	s.mu.Lock()
	addr := s.mediaAddress
	s.mu.Unlock()

	if addr == "" {
		return badCall(req, errDriveEmpty)
	}

	return req.Frame.Return(nucleus.String([]byte(addr)))
}
