// Package eeprom implements the EEPROM component: a fixed-capacity code
// blob paired with a smaller data blob, a label, and a one-way read-only
// latch. Storage is an in-process buffer by default (the volatile backend
// of the original implementation) or, when BackingFile is set, a
// memory-mapped file so the code blob outlives the process.
package eeprom

import (
	"encoding/hex"
	"hash/crc32"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

// Options configures a new EEPROM at construction.
type Options struct {
	Size     int
	DataSize int
	Code     []byte
	Data     []byte
	Label    string
	ReadOnly bool

	// BackingFile, if set, is memory-mapped as the code blob's storage
	// instead of an in-process byte slice, mirroring the drive
	// component's disk-backed storage option.
	BackingFile *os.File
}

type state struct {
	mu sync.Mutex

	size          int
	dataSize      int
	code          []byte
	data          []byte
	label         string
	readOnly      bool
	deviceInfoSet bool

	storage mmap.MMap // non-nil when file-backed; code aliases into it
}

// NewMethodTable builds the "eeprom" MethodTable. Every Computer that wants
// its own EEPROM instance calls AddComponent with a fresh *state produced by
// New; the table itself is stateless and safe to share across Computers via
// Universe.GetOrCreateMethodTable.
func NewMethodTable(u *nucleus.Universe) *nucleus.MethodTable {
	return u.GetOrCreateMethodTable("NN:EEPROM", func() *nucleus.MethodTable {
		return nucleus.NewMethodTable(u, "eeprom", nil, methods, handle)
	})
}

// New creates the instance state for one EEPROM, ready to pass as userdata
// to Computer.AddComponent. If opts.BackingFile is set, the code blob is
// memory-mapped from that file; otherwise it is a plain in-process buffer.
func New(opts Options) (any, error) {
	s := &state{
		size:     opts.Size,
		dataSize: opts.DataSize,
		readOnly: opts.ReadOnly,
		label:    truncateLabel(opts.Label),
	}

	if opts.BackingFile != nil {
		m, err := mmap.Map(opts.BackingFile, mmap.RDWR, 0)
		if err != nil {
			return nil, err
		}

		s.storage = m
		if opts.Code != nil {
			s.setCode(opts.Code)
		} else {
			// Keep the file's existing code; setCode zero-pads past the
			// code's end, so trailing zeros are padding, not code.
			n := len(m)
			if n > s.size {
				n = s.size
			}
			for n > 0 && m[n-1] == 0 {
				n--
			}
			s.code = m[:n]
		}
	} else {
		s.code = make([]byte, len(opts.Code))
		copy(s.code, opts.Code)
		if len(s.code) > s.size {
			s.code = s.code[:s.size]
		}
	}

	s.data = make([]byte, len(opts.Data))
	copy(s.data, opts.Data)
	if len(s.data) > s.dataSize {
		s.data = s.data[:s.dataSize]
	}

	return s, nil
}

// NewVolatile creates RAM-backed EEPROM state that never touches a
// filesystem, ignoring any BackingFile in opts. Tests use this so their
// EEPROMs never depend on disk state.
func NewVolatile(opts Options) any {
	opts.BackingFile = nil
	s, _ := New(opts) // New never errors when BackingFile is nil

	return s
}

// setCode installs code as the current code blob, writing through to the
// backing file when one is mapped rather than replacing it with a detached
// slice.
func (s *state) setCode(code []byte) {
	if len(code) > s.size {
		code = code[:s.size]
	}

	if s.storage != nil {
		n := copy(s.storage, code)
		for i := n; i < len(s.storage); i++ {
			s.storage[i] = 0
		}

		s.code = s.storage[:len(code)]

		return
	}

	s.code = append([]byte(nil), code...)
}

func truncateLabel(label string) string {
	if len(label) > nucleus.LabelSize {
		return label[:nucleus.LabelSize]
	}

	return label
}

var methods = []nucleus.Method{
	{Name: "getSize", Flags: nucleus.Direct, Doc: "getSize(): integer - Returns the maximum code capacity of the EEPROM."},
	{Name: "getDataSize", Flags: nucleus.Direct, Doc: "getDataSize(): integer - Returns the maximum data capacity of the EEPROM."},
	{Name: "getLabel", Doc: "getLabel(): string - Returns the current label."},
	{Name: "setLabel", Doc: "setLabel(label: string): string - Sets the new label, truncated to fit."},
	{Name: "get", Doc: "get(): string - Reads the current code contents."},
	{Name: "set", Doc: "set(data: string) - Sets the current code contents."},
	{Name: "getData", Doc: "getData(): string - Reads the current data contents."},
	{Name: "setData", Doc: "setData(data: string) - Sets the current data contents."},
	{Name: "isReadOnly", Doc: "isReadOnly(): boolean - Returns whether this EEPROM is read-only."},
	{Name: "makeReadOnly", Doc: "makeReadOnly(checksum: string) - Makes the EEPROM read-only if checksum matches getChecksum(). Irreversible."},
	{Name: "getChecksum", Doc: "getChecksum(): string - Returns the lowercase-hex CRC32 checksum of the code."},
}

func handle(req *nucleus.Request) error {
	switch req.Kind {
	case nucleus.ReqInit:
		if req.State == nil {
			req.State = NewVolatile(Options{Size: 4 * nucleus.KiB, DataSize: 256})
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
	info.Set(req.Component.Address, "device", "memory")
	info.Set(req.Component.Address, "description", "EEPROM")
	info.Set(req.Component.Address, "vendor", "NeoFlock")
	info.Set(req.Component.Address, "product", "neonucleus EEPROM")
}

func dispatch(s *state, req *nucleus.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := req.Frame

	switch req.Method {
	case "getSize":
		return frame.Return(nucleus.Int(int64(s.size)))

	case "getDataSize":
		return frame.Return(nucleus.Int(int64(s.dataSize)))

	case "getLabel":
		if s.label == "" {
			return frame.Return(nucleus.Nil())
		}

		return frame.Return(nucleus.String([]byte(s.label)))

	case "setLabel":
		label, ok := stringArg(frame, 0)
		if !ok {
			req.Exit = nucleus.ExitBadCall
			req.Err = errBadLabel

			return nil
		}

		s.label = truncateLabel(label)

		return frame.Return(nucleus.String([]byte(s.label)))

	case "get":
		return frame.Return(nucleus.String(s.code))

	case "set":
		if s.readOnly {
			req.Exit = nucleus.ExitBadCall
			req.Err = errReadOnly

			return nil
		}

		code, ok := stringArg(frame, 0)
		if !ok {
			req.Exit = nucleus.ExitBadCall
			req.Err = errBadCode

			return nil
		}

		s.setCode(code)

		return nil

	case "getData":
		return frame.Return(nucleus.String(s.data))

	case "setData":
		if s.readOnly {
			req.Exit = nucleus.ExitBadCall
			req.Err = errReadOnly

			return nil
		}

		data, ok := stringArg(frame, 0)
		if !ok {
			req.Exit = nucleus.ExitBadCall
			req.Err = errBadData

			return nil
		}

		if len(data) > s.dataSize {
			data = data[:s.dataSize]
		}

		s.data = append([]byte(nil), data...)

		return nil

	case "isReadOnly":
		return frame.Return(nucleus.Bool(s.readOnly))

	case "makeReadOnly":
		checksum, ok := stringArg(frame, 0)
		if !ok || string(checksum) != s.checksum() {
			req.Exit = nucleus.ExitBadCall
			req.Err = errChecksumMismatch

			return nil
		}

		s.readOnly = true

		return nil

	case "getChecksum":
		return frame.Return(nucleus.String([]byte(s.checksum())))

	default:
		req.Exit = nucleus.ExitBadCall
		req.Err = errNoMethod

		return nil
	}
}

// checksum computes the lowercase-hex CRC32 (IEEE) of the code blob, the
// convention getChecksum and makeReadOnly's confirmation argument share.
// crc32.ChecksumIEEE is used directly rather than a third-party hash: the
// corpus pulls in no checksum library, and CRC32 is a five-line stdlib call.
func (s *state) checksum() string {
	sum := crc32.ChecksumIEEE(s.code)
	return hex.EncodeToString([]byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)})
}

func stringArg(f *nucleus.CallFrame, i int) ([]byte, bool) {
	v, ok := f.GetArgument(i)
	if !ok || (v.Tag() != nucleus.TagString && v.Tag() != nucleus.TagCString) {
		return nil, false
	}

	return v.ToCString(), true
}
