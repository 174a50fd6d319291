// Package filesystem implements an in-memory, hierarchical filesystem
// component: paths are simplified and validated per the core's path rules,
// every operation is accounted for against a chunked cost model (read/write
// latency, energy and a random jitter scaled by the number of chunks
// touched), and open file handles are tracked per instance.
package filesystem

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

// Control tunes the chunked cost model every operation is charged against,
// mirroring the source filesystemControl knobs (pretendChunkSize,
// pretendRPM, per-chunk cost/energy/heat, random latency jitter).
type Control struct {
	PretendChunkSize    int
	PretendRPM          int
	ReadCostPerChunk    float64
	ReadEnergyCost      float64
	ReadLatencyPerChunk time.Duration
	WriteCostPerChunk   float64
	WriteEnergyCost     float64
	WriteHeatPerChunk   float64
	WriteLatencyPerChunk time.Duration
	RandomLatencyMin    time.Duration
	RandomLatencyMax    time.Duration
}

// DefaultControl matches the source's tuning for a modest hard drive.
func DefaultControl() Control {
	return Control{
		PretendChunkSize:     512,
		PretendRPM:           7200,
		ReadCostPerChunk:     0.01,
		ReadEnergyCost:       0.01,
		ReadLatencyPerChunk:  time.Microsecond,
		WriteCostPerChunk:    0.015,
		WriteEnergyCost:      0.015,
		WriteHeatPerChunk:    0.02,
		WriteLatencyPerChunk: 2 * time.Microsecond,
		RandomLatencyMin:     0,
		RandomLatencyMax:     200 * time.Microsecond,
	}
}

type node struct {
	name     string
	isDir    bool
	data     []byte
	modified int64
	children map[string]*node
}

func newDir(name string) *node {
	return &node{name: name, isDir: true, children: map[string]*node{}}
}

type handle struct {
	node *node
	mode string
	pos  int
}

type state struct {
	mu sync.Mutex

	control  Control
	rng      nucleus.RNG
	label    string
	readOnly bool
	capacity int

	root    *node
	handles map[int]*handle
	nextFD  int

	deviceInfoSet bool
}

// Options configures a new in-memory filesystem at construction.
type Options struct {
	Capacity int
	Label    string
	ReadOnly bool
	Control  Control
	RNG      nucleus.RNG
}

// New creates the instance state for one filesystem, ready to pass as
// userdata to Computer.AddComponent.
func New(opts Options) any {
	ctl := opts.Control
	if ctl.PretendChunkSize == 0 {
		ctl = DefaultControl()
	}

	rng := opts.RNG
	if rng == nil {
		rng = nucleus.DefaultRNG()
	}

	return &state{
		control:  ctl,
		rng:      rng,
		label:    truncateLabel(opts.Label),
		readOnly: opts.ReadOnly,
		capacity: opts.Capacity,
		root:     newDir("/"),
		handles:  map[int]*handle{},
		nextFD:   1,
	}
}

func truncateLabel(label string) string {
	if len(label) > nucleus.LabelSize {
		return label[:nucleus.LabelSize]
	}

	return label
}

// NewMethodTable builds the "filesystem" MethodTable.
func NewMethodTable(u *nucleus.Universe) *nucleus.MethodTable {
	return u.GetOrCreateMethodTable("NN:FILESYSTEM", func() *nucleus.MethodTable {
		return nucleus.NewMethodTable(u, "filesystem", nil, methods, handleReq)
	})
}

var methods = []nucleus.Method{
	{Name: "spaceTotal", Doc: "spaceTotal(): integer - Returns the capacity of the filesystem."},
	{Name: "spaceUsed", Doc: "spaceUsed(): integer - Returns the amount of bytes used."},
	{Name: "isReadOnly", Flags: nucleus.Direct, Doc: "isReadOnly(): boolean - Returns whether the filesystem is in read-only mode."},
	{Name: "getLabel", Doc: "getLabel(): string - Returns the label of the filesystem."},
	{Name: "setLabel", Doc: "setLabel(label: string): string - Sets a new label, which may be truncated."},
	{Name: "open", Doc: "open(path: string[, mode: string = \"r\"]): integer - Opens a file, may create it."},
	{Name: "close", Doc: "close(fd: integer): boolean - Closes a file."},
	{Name: "read", Doc: "read(fd: integer, len: number): string - Reads bytes from a file."},
	{Name: "write", Doc: "write(fd: integer, data: string): boolean - Writes data to a file."},
	{Name: "seek", Doc: "seek(fd: integer, whence: string, offset: integer): integer - Seeks a file."},
	{Name: "list", Doc: "list(path: string): string[] - Returns a list of file paths."},
	{Name: "exists", Doc: "exists(path: string): boolean - Checks whether a file exists."},
	{Name: "size", Doc: "size(path: string): integer - Gets the size, in bytes, of a file."},
	{Name: "lastModified", Doc: "lastModified(path: string): integer - Returns the UNIX timestamp, in milliseconds, of the last modification."},
	{Name: "rename", Doc: "rename(from: string, to: string): boolean - Moves a file or directory."},
	{Name: "remove", Doc: "remove(path: string): boolean - Removes a file or directory."},
	{Name: "isDirectory", Doc: "isDirectory(path: string): boolean - Returns whether a path is a directory."},
	{Name: "makeDirectory", Doc: "makeDirectory(path: string): boolean - Creates a new directory."},
}

func handleReq(req *nucleus.Request) error {
	switch req.Kind {
	case nucleus.ReqInit:
		if req.State == nil {
			req.State = New(Options{Capacity: 2 * nucleus.MiB})
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
		s.ensureDeviceInfo(req)
		return s.dispatch(req)
	}

	return nil
}

// ensureDeviceInfo populates the component's DeviceInfo entry on first call,
// since the address needed as its key is not assigned until after ReqInit.
func (s *state) ensureDeviceInfo(req *nucleus.Request) {
	s.mu.Lock()
	already := s.deviceInfoSet
	s.deviceInfoSet = true
	s.mu.Unlock()

	if already {
		return
	}

	info := req.Computer.DeviceInfo()
	info.Set(req.Component.Address, "device", "filesystem")
	info.Set(req.Component.Address, "description", "Filesystem")
	info.Set(req.Component.Address, "vendor", "NeoFlock")
	info.Set(req.Component.Address, "product", "neonucleus Filesystem")
}

func (s *state) dispatch(req *nucleus.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame := req.Frame

	switch req.Method {
	case "spaceTotal":
		s.chargeRead(req.Computer, 1)
		return frame.Return(nucleus.Int(int64(s.capacity)))

	case "spaceUsed":
		s.chargeRead(req.Computer, 1)
		return frame.Return(nucleus.Int(int64(s.used())))

	case "isReadOnly":
		return frame.Return(nucleus.Bool(s.readOnly))

	case "getLabel":
		s.chargeRead(req.Computer, 1)

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
		s.chargeRead(req.Computer, 1)

		return frame.Return(nucleus.String([]byte(s.label)))

	case "open":
		return s.open(req)
	case "close":
		return s.close(req)
	case "read":
		return s.read(req)
	case "write":
		return s.write(req)
	case "seek":
		return s.seek(req)
	case "list":
		return s.list(req)
	case "exists":
		return s.exists(req)
	case "size":
		return s.size(req)
	case "lastModified":
		return s.lastModified(req)
	case "rename":
		return s.rename(req)
	case "remove":
		return s.remove(req)
	case "isDirectory":
		return s.isDirectory(req)
	case "makeDirectory":
		return s.makeDirectory(req)
	default:
		return badCall(req, errNoMethod)
	}
}

func (s *state) used() int {
	var total int

	var walk func(n *node)
	walk = func(n *node) {
		if !n.isDir {
			total += len(n.data)
			return
		}

		for _, c := range n.children {
			walk(c)
		}
	}
	walk(s.root)

	return total
}

func pathArg(req *nucleus.Request, i int) (string, bool) {
	b, ok := stringArg(req.Frame, i)
	if !ok {
		return "", false
	}

	simplified, ok := nucleus.Simplify(string(b))
	if !ok {
		return "", false
	}

	return simplified, true
}

func (s *state) resolve(path string) (parent *node, name string, n *node, found bool) {
	if path == "" {
		return s.root, "", s.root, true
	}

	segments := strings.Split(path, "/")
	cur := s.root

	for i, seg := range segments {
		last := i == len(segments)-1

		child, ok := cur.children[seg]
		if !ok {
			if last {
				return cur, seg, nil, false
			}

			return nil, "", nil, false
		}

		if last {
			return cur, seg, child, true
		}

		if !child.isDir {
			return nil, "", nil, false
		}

		cur = child
	}

	return s.root, "", s.root, true
}

func (s *state) open(req *nucleus.Request) error {
	path, ok := pathArg(req, 0)
	if !ok {
		return badCall(req, errBadPath)
	}

	mode := "r"
	if m, ok := stringArg(req.Frame, 1); ok {
		mode = string(m)
	}

	parent, name, n, found := s.resolve(path)

	switch mode {
	case "r":
		if !found || n.isDir {
			return badCall(req, errNoSuchFile)
		}
	case "w", "a":
		if s.readOnly {
			return badCall(req, errReadOnly)
		}

		if !found {
			n = &node{name: name, modified: nowMillis()}
			if parent != nil {
				parent.children[name] = n
			}
		} else if n.isDir {
			return badCall(req, errIsDirectory)
		} else if mode == "w" {
			n.data = nil
		}
	default:
		return badCall(req, errBadMode)
	}

	fd := s.nextFD
	s.nextFD++

	pos := 0
	if mode == "a" {
		pos = len(n.data)
	}

	s.handles[fd] = &handle{node: n, mode: mode, pos: pos}

	s.chargeRead(req.Computer, 1)

	return req.Frame.Return(nucleus.Int(int64(fd)))
}

func parentOf(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return ""
	}

	return path[:i]
}

func (s *state) close(req *nucleus.Request) error {
	fd, ok := intArg(req.Frame, 0)
	if !ok {
		return badCall(req, errBadFD)
	}

	_, existed := s.handles[fd]
	delete(s.handles, fd)

	s.chargeRead(req.Computer, 1)

	return req.Frame.Return(nucleus.Bool(existed))
}

func (s *state) read(req *nucleus.Request) error {
	fd, ok := intArg(req.Frame, 0)
	if !ok {
		return badCall(req, errBadFD)
	}

	h, ok := s.handles[fd]
	if !ok {
		return badCall(req, errBadFD)
	}

	n, ok := floatArg(req.Frame, 1)
	if !ok {
		return badCall(req, errBadLength)
	}

	if n > float64(s.capacity) {
		n = float64(s.capacity)
	}

	want := int(n)
	remaining := len(h.node.data) - h.pos

	if want > remaining {
		want = remaining
	}

	if want < 0 {
		want = 0
	}

	buf := h.node.data[h.pos : h.pos+want]
	h.pos += want

	s.chargeRead(req.Computer, chunks(s.control, want))
	s.chargeSeek(req.Computer, chunks(s.control, want))

	if want == 0 {
		return nil // EOF: frame holds no returns, per spec
	}

	return req.Frame.Return(nucleus.String(buf))
}

func (s *state) write(req *nucleus.Request) error {
	if s.readOnly {
		return badCall(req, errReadOnly)
	}

	fd, ok := intArg(req.Frame, 0)
	if !ok {
		return badCall(req, errBadFD)
	}

	h, ok := s.handles[fd]
	if !ok || h.mode == "r" {
		return badCall(req, errBadFD)
	}

	data, ok := stringArg(req.Frame, 1)
	if !ok {
		return badCall(req, errBadData)
	}

	end := h.pos + len(data)
	if end > len(h.node.data) {
		grown := make([]byte, end)
		copy(grown, h.node.data)
		h.node.data = grown
	}

	copy(h.node.data[h.pos:end], data)
	h.pos = end
	h.node.modified = nowMillis()

	s.chargeWrite(req.Computer, chunks(s.control, len(data)))
	s.chargeSeek(req.Computer, chunks(s.control, len(data)))

	return req.Frame.Return(nucleus.Bool(true))
}

func (s *state) seek(req *nucleus.Request) error {
	fd, ok := intArg(req.Frame, 0)
	if !ok {
		return badCall(req, errBadFD)
	}

	h, ok := s.handles[fd]
	if !ok {
		return badCall(req, errBadFD)
	}

	whence, ok := stringArg(req.Frame, 1)
	if !ok {
		return badCall(req, errBadWhence)
	}

	off, ok := intArg(req.Frame, 2)
	if !ok {
		return badCall(req, errBadOffset)
	}

	var base int

	switch string(whence) {
	case "set":
		base = 0
	case "cur":
		base = h.pos
	case "end":
		base = len(h.node.data)
	default:
		return badCall(req, errBadWhence)
	}

	pos := base + off
	if pos < 0 {
		pos = 0
	}

	moved := pos - h.pos
	if moved < 0 {
		moved = -moved
	}

	h.pos = pos

	s.chargeRead(req.Computer, 1)
	s.chargeSeek(req.Computer, chunks(s.control, moved))

	return req.Frame.Return(nucleus.Int(int64(h.pos)))
}

func (s *state) list(req *nucleus.Request) error {
	path, ok := pathArg(req, 0)
	if !ok {
		return badCall(req, errBadPath)
	}

	_, _, n, found := s.resolve(path)
	if !found || !n.isDir {
		return badCall(req, errNoSuchFile)
	}

	names := make([]string, 0, len(n.children))
	for name, child := range n.children {
		if child.isDir {
			name += "/"
		}

		names = append(names, name)
	}

	sort.Strings(names)

	arr := nucleus.Array(len(names))
	for i, name := range names {
		nucleus.Set(arr, i, nucleus.String([]byte(name)))
	}

	s.chargeRead(req.Computer, 1+len(names))

	return req.Frame.Return(arr)
}

func (s *state) exists(req *nucleus.Request) error {
	path, ok := pathArg(req, 0)
	if !ok {
		return badCall(req, errBadPath)
	}

	_, _, _, found := s.resolve(path)

	s.chargeRead(req.Computer, 1)

	return req.Frame.Return(nucleus.Bool(found))
}

func (s *state) size(req *nucleus.Request) error {
	path, ok := pathArg(req, 0)
	if !ok {
		return badCall(req, errBadPath)
	}

	_, _, n, found := s.resolve(path)

	s.chargeRead(req.Computer, 1)

	if !found || n.isDir {
		return req.Frame.Return(nucleus.Int(0))
	}

	return req.Frame.Return(nucleus.Int(int64(len(n.data))))
}

func (s *state) lastModified(req *nucleus.Request) error {
	path, ok := pathArg(req, 0)
	if !ok {
		return badCall(req, errBadPath)
	}

	_, _, n, found := s.resolve(path)

	s.chargeRead(req.Computer, 1)

	if !found {
		return req.Frame.Return(nucleus.Int(0))
	}

	return req.Frame.Return(nucleus.Int(n.modified))
}

func (s *state) rename(req *nucleus.Request) error {
	if s.readOnly {
		return badCall(req, errReadOnly)
	}

	from, ok := pathArg(req, 0)
	if !ok {
		return badCall(req, errBadPath)
	}

	to, ok := pathArg(req, 1)
	if !ok {
		return badCall(req, errBadPath)
	}

	fromParent, fromName, n, found := s.resolve(from)
	if !found {
		s.chargeRead(req.Computer, 2)
		return req.Frame.Return(nucleus.Bool(false))
	}

	toParentDir, toLeaf, _, toFound := s.resolve(to)
	if toFound {
		delete(toParentDir.children, toLeaf)
	}

	delete(fromParent.children, fromName)
	n.name = lastSegment(to)

	destParent := toParentDir
	if destParent == nil {
		destParent = s.root
	}

	destParent.children[n.name] = n

	s.chargeRead(req.Computer, 2)
	s.chargeWrite(req.Computer, 1)

	return req.Frame.Return(nucleus.Bool(true))
}

func lastSegment(path string) string {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return path
	}

	return path[i+1:]
}

func (s *state) remove(req *nucleus.Request) error {
	if s.readOnly {
		return badCall(req, errReadOnly)
	}

	path, ok := pathArg(req, 0)
	if !ok {
		return badCall(req, errBadPath)
	}

	parent, name, _, found := s.resolve(path)

	s.chargeRead(req.Computer, 1)
	s.chargeWrite(req.Computer, 1)

	if !found {
		return req.Frame.Return(nucleus.Bool(false))
	}

	delete(parent.children, name)

	return req.Frame.Return(nucleus.Bool(true))
}

func (s *state) isDirectory(req *nucleus.Request) error {
	path, ok := pathArg(req, 0)
	if !ok {
		return badCall(req, errBadPath)
	}

	_, _, n, found := s.resolve(path)

	s.chargeRead(req.Computer, 1)

	return req.Frame.Return(nucleus.Bool(found && n.isDir))
}

func (s *state) makeDirectory(req *nucleus.Request) error {
	if s.readOnly {
		return badCall(req, errReadOnly)
	}

	path, ok := pathArg(req, 0)
	if !ok {
		return badCall(req, errBadPath)
	}

	parent, name, _, found := s.resolve(path)

	s.chargeRead(req.Computer, 1)
	s.chargeWrite(req.Computer, 1)

	if found {
		return req.Frame.Return(nucleus.Bool(false))
	}

	if parent == nil {
		return req.Frame.Return(nucleus.Bool(false))
	}

	parent.children[name] = newDir(name)

	return req.Frame.Return(nucleus.Bool(true))
}

// chunks returns the chunk count for n bytes against ctl's pretendChunkSize,
// rounding up, matching nn_fs_countChunks.
func chunks(ctl Control, n int) int {
	if n <= 0 {
		return 0
	}

	c := n / ctl.PretendChunkSize
	if n%ctl.PretendChunkSize != 0 {
		c++
	}

	return c
}

func (s *state) randomLatency(computer *nucleus.Computer) {
	span := s.control.RandomLatencyMax - s.control.RandomLatencyMin
	if span <= 0 {
		return
	}

	v, max := s.rng.Next()
	scaled := time.Duration(float64(span) * (float64(v) / (float64(max) + 1)))

	nucleus.BusySleep(s.control.RandomLatencyMin + scaled)
}

func (s *state) chargeRead(computer *nucleus.Computer, count int) {
	if count <= 0 || computer == nil {
		return
	}

	s.randomLatency(computer)
	nucleus.BusySleep(s.control.ReadLatencyPerChunk * time.Duration(count))
	computer.RemoveEnergy(s.control.ReadEnergyCost * float64(count))
	computer.CallCost(s.control.ReadCostPerChunk * float64(count))
}

func (s *state) chargeWrite(computer *nucleus.Computer, count int) {
	if count <= 0 || computer == nil {
		return
	}

	s.randomLatency(computer)
	nucleus.BusySleep(s.control.WriteLatencyPerChunk * time.Duration(count))
	computer.RemoveEnergy(s.control.WriteEnergyCost * float64(count))
	computer.AddHeat(s.control.WriteHeatPerChunk * float64(count))
	computer.CallCost(s.control.WriteCostPerChunk * float64(count))
}

func (s *state) chargeSeek(computer *nucleus.Computer, count int) {
	if count <= 0 || computer == nil || s.capacity == 0 {
		return
	}

	seekLatency := time.Duration(float64(s.control.PretendRPM) / 60 * float64(s.control.PretendChunkSize) / float64(s.capacity) * float64(time.Second))

	s.randomLatency(computer)
	nucleus.BusySleep(seekLatency * time.Duration(count))
	computer.RemoveEnergy(s.control.WriteEnergyCost * float64(count))
	computer.AddHeat(s.control.WriteHeatPerChunk * float64(count))
	computer.CallCost(s.control.WriteCostPerChunk * float64(count))
}

func nowMillis() int64 {
	return (time.Now().UnixMilli() / 1000) * 1000
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

func floatArg(f *nucleus.CallFrame, i int) (float64, bool) {
	v, ok := f.GetArgument(i)
	if !ok || (v.Tag() != nucleus.TagInt && v.Tag() != nucleus.TagNumber) {
		return 0, false
	}

	return v.ToNumber(), true
}
