// Package drive implements the raw block-device component: sectors
// addressed 1-indexed, read and written as whole units, with readByte and
// writeByte implemented in terms of sector reads so byte and sector access
// share one code path. No drive method charges call cost, energy or heat to
// the Computer.
package drive

import (
	"os"
	"strconv"
	"sync"

	"github.com/edsrzf/mmap-go"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

// Options configures a new drive at construction.
type Options struct {
	SectorSize   int
	PlatterCount int
	Label        string

	// BackingFile, if set, is memory-mapped as the drive's storage instead
	// of an in-process byte slice, so a drive's contents can outlive the
	// process the way a real disk image does.
	BackingFile *os.File
	Capacity    int // only consulted when BackingFile is nil; a mapped drive's capacity is the file's size
}

type state struct {
	mu sync.Mutex

	sectorSize   int
	platterCount int
	label        string

	storage mmap.MMap // non-nil when file-backed
	memory  []byte    // used when storage is nil

	deviceInfoSet bool
}

// New creates the instance state for one drive, ready to pass as userdata to
// Computer.AddComponent. If opts.BackingFile is set, the drive's storage is
// memory-mapped from that file; otherwise it is a plain in-process buffer.
func New(opts Options) (any, error) {
	s := &state{
		sectorSize:   opts.SectorSize,
		platterCount: opts.PlatterCount,
		label:        truncateLabel(opts.Label),
	}

	if opts.BackingFile != nil {
		m, err := mmap.Map(opts.BackingFile, mmap.RDWR, 0)
		if err != nil {
			return nil, err
		}

		s.storage = m
	} else {
		s.memory = make([]byte, opts.Capacity)
	}

	return s, nil
}

func truncateLabel(label string) string {
	if len(label) > nucleus.LabelSize {
		return label[:nucleus.LabelSize]
	}

	return label
}

func (s *state) capacity() int {
	if s.storage != nil {
		return len(s.storage)
	}

	return len(s.memory)
}

func (s *state) backing() []byte {
	if s.storage != nil {
		return s.storage
	}

	return s.memory
}

// NewMethodTable builds the "drive" MethodTable.
func NewMethodTable(u *nucleus.Universe) *nucleus.MethodTable {
	return u.GetOrCreateMethodTable("NN:DRIVE", func() *nucleus.MethodTable {
		return nucleus.NewMethodTable(u, "drive", nil, methods, handle)
	})
}

var methods = []nucleus.Method{
	{Name: "getLabel", Doc: "getLabel(): string - Get the current label of the drive."},
	{Name: "setLabel", Doc: "setLabel(value: string): string - Sets the label of the drive. Returns the new value, which may be truncated."},
	{Name: "getSectorSize", Flags: nucleus.Direct, Doc: "getSectorSize(): number - Returns the size of a single sector on the drive, in bytes."},
	{Name: "getPlatterCount", Flags: nucleus.Direct, Doc: "getPlatterCount(): number - Returns the number of platters in the drive."},
	{Name: "getCapacity", Flags: nucleus.Direct, Doc: "getCapacity(): number - Returns the total capacity of the drive, in bytes."},
	{Name: "readSector", Doc: "readSector(sector: number): string - Read the current contents of the specified sector."},
	{Name: "writeSector", Doc: "writeSector(sector: number, value: string) - Write the specified contents to the specified sector."},
	{Name: "readByte", Doc: "readByte(offset: number): number - Read a single byte at the specified offset."},
	{Name: "writeByte", Doc: "writeByte(offset: number, value: number) - Write a single byte to the specified offset."},
}

func handle(req *nucleus.Request) error {
	switch req.Kind {
	case nucleus.ReqInit:
		if req.State == nil {
			st, err := New(Options{SectorSize: 512, PlatterCount: 1, Capacity: 512 * 1024})
			if err != nil {
				return err
			}

			req.State = st
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
	info.Set(req.Component.Address, "description", "Hard disk drive")
	info.Set(req.Component.Address, "vendor", "NeoFlock")
	info.Set(req.Component.Address, "product", "neonucleus Drive")
	info.Set(req.Component.Address, "capacity", strconv.Itoa(s.capacity()))
}

func dispatch(s *state, req *nucleus.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := req.Frame

	switch req.Method {
	case "getLabel":
		if s.label == "" {
			return frame.Return(nucleus.Nil())
		}

		return frame.Return(nucleus.String([]byte(s.label)))

	case "setLabel":
		label, ok := stringArg(frame, 0)
		if !ok {
			return badCall(req, errBadLabel)
		}

		s.label = truncateLabel(label)

		return frame.Return(nucleus.String([]byte(s.label)))

	case "getSectorSize":
		return frame.Return(nucleus.Int(int64(s.sectorSize)))

	case "getPlatterCount":
		return frame.Return(nucleus.Int(int64(s.platterCount)))

	case "getCapacity":
		return frame.Return(nucleus.Int(int64(s.capacity())))

	case "readSector":
		sector, ok := intArg(frame, 0)
		if !ok {
			return badCall(req, errBadSector)
		}

		buf, err := s.readSector(sector)
		if err != nil {
			return badCall(req, err)
		}

		return frame.Return(nucleus.String(buf))

	case "writeSector":
		sector, ok := intArg(frame, 0)
		if !ok {
			return badCall(req, errBadSector)
		}

		data, ok := stringArg(frame, 1)
		if !ok {
			return badCall(req, errBadData)
		}

		if err := s.writeSector(sector, data); err != nil {
			return badCall(req, err)
		}

		return nil

	case "readByte":
		offset, ok := intArg(frame, 0)
		if !ok {
			return badCall(req, errBadOffset)
		}

		b, err := s.readByte(offset)
		if err != nil {
			return badCall(req, err)
		}

		return frame.Return(nucleus.Int(int64(b)))

	case "writeByte":
		offset, ok := intArg(frame, 0)
		if !ok {
			return badCall(req, errBadOffset)
		}

		value, ok := intArg(frame, 1)
		if !ok {
			return badCall(req, errBadData)
		}

		if err := s.writeByte(offset, byte(value)); err != nil {
			return badCall(req, err)
		}

		return nil

	default:
		return badCall(req, errNoMethod)
	}
}

func (s *state) readSector(sector int) ([]byte, error) {
	start, err := s.sectorOffset(sector)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, s.sectorSize)
	copy(buf, s.backing()[start:start+s.sectorSize])

	return buf, nil
}

func (s *state) writeSector(sector int, data []byte) error {
	start, err := s.sectorOffset(sector)
	if err != nil {
		return err
	}

	n := copy(s.backing()[start:start+s.sectorSize], data)
	for i := n; i < s.sectorSize; i++ {
		s.backing()[start+i] = 0
	}

	return nil
}

func (s *state) readByte(offset int) (byte, error) {
	sector := offset/s.sectorSize + 1
	within := offset % s.sectorSize

	buf, err := s.readSector(sector)
	if err != nil {
		return 0, err
	}

	return buf[within], nil
}

func (s *state) writeByte(offset int, value byte) error {
	sector := offset/s.sectorSize + 1
	within := offset % s.sectorSize

	buf, err := s.readSector(sector)
	if err != nil {
		return err
	}

	buf[within] = value

	return s.writeSector(sector, buf)
}

// sectorOffset converts a 1-indexed sector number into a byte offset,
// rejecting sectors outside the drive's capacity.
func (s *state) sectorOffset(sector int) (int, error) {
	if sector < 1 {
		return 0, errBadSector
	}

	start := (sector - 1) * s.sectorSize
	if start+s.sectorSize > s.capacity() {
		return 0, errOutOfRange
	}

	return start, nil
}

func badCall(req *nucleus.Request, err error) error {
	req.Exit = nucleus.ExitBadCall
	req.Err = err

	return nil
}

func stringArg(f *nucleus.CallFrame, i int) ([]byte, bool) {
	v, ok := f.GetArgument(i)
	if !ok || (v.Tag() != nucleus.TagString && v.Tag() != nucleus.TagCString) {
		return nil, false
	}

	return v.ToCString(), true
}

func intArg(f *nucleus.CallFrame, i int) (int, bool) {
	v, ok := f.GetArgument(i)
	if !ok || (v.Tag() != nucleus.TagInt && v.Tag() != nucleus.TagNumber) {
		return 0, false
	}

	return int(v.ToInt()), true
}
