// Package screen implements the rectangular character-buffer component a
// GPU binds to: per-cell codepoint/foreground/background with palette
// flags, a palette, resolution and viewport, and the small set of flags
// (power, precise/inverted touch, dirty) OpenComputers screens carry.
package screen

import (
	"sync"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

// Cell is one character position of the screen buffer.
type Cell struct {
	Codepoint   rune
	Foreground  int
	Background  int
	IsFgPalette bool
	IsBgPalette bool
}

var blankCell = Cell{Codepoint: ' '}

// Device is the screen's shared, mutex-protected buffer. A GPU component
// binds to a Device by address and drives it directly; the screen's own
// MethodTable exposes only getKeyboards and the isOn/turnOn/turnOff power
// methods.
type Device struct {
	mu sync.Mutex

	width, height             int
	maxWidth, maxHeight       int
	viewportWidth, viewportHt int
	maxDepth, depth           int
	editableColors            int
	palette                   []int

	buffer []Cell

	keyboards []string

	on, precise, touchInverted bool
	dirty                      bool

	deviceInfoSet bool
}

// Options configures a new screen Device at construction.
type Options struct {
	MaxWidth, MaxHeight int
	MaxDepth            int
	EditableColors      int
	PaletteColors       int
}

// New creates a screen Device, ready to pass as userdata to
// Computer.AddComponent.
func New(opts Options) *Device {
	d := &Device{
		width:          opts.MaxWidth,
		height:         opts.MaxHeight,
		maxWidth:       opts.MaxWidth,
		maxHeight:      opts.MaxHeight,
		viewportWidth:  opts.MaxWidth,
		viewportHt:     opts.MaxHeight,
		maxDepth:       opts.MaxDepth,
		depth:          opts.MaxDepth,
		editableColors: opts.EditableColors,
		palette:        make([]int, opts.PaletteColors),
		buffer:         make([]Cell, opts.MaxWidth*opts.MaxHeight),
		on:             true,
		precise:        true,
		touchInverted:  true,
		dirty:          true,
	}

	for i := range d.buffer {
		d.buffer[i] = blankCell
	}

	return d
}

func (d *Device) index(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= d.maxWidth || y >= d.maxHeight {
		return 0, false
	}

	return x + y*d.maxWidth, true
}

// GetPixel returns the cell at (x, y), 0-indexed. Out-of-bounds returns a
// blank cell.
func (d *Device) GetPixel(x, y int) Cell {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.index(x, y)
	if !ok {
		return blankCell
	}

	return d.buffer[i]
}

// SetPixel writes the cell at (x, y), 0-indexed. Out-of-bounds is a no-op.
func (d *Device) SetPixel(x, y int, c Cell) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.index(x, y)
	if !ok {
		return
	}

	d.buffer[i] = c
	d.dirty = true
}

// Resolution returns the screen's current width and height.
func (d *Device) Resolution() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.width, d.height
}

// MaxResolution returns the screen's maximum supported width and height.
func (d *Device) MaxResolution() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.maxWidth, d.maxHeight
}

// SetResolution sets the screen's current width and height, clamped to
// [1, max].
func (d *Device) SetResolution(w, h int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if w < 1 {
		w = 1
	}

	if h < 1 {
		h = 1
	}

	if w > d.maxWidth {
		w = d.maxWidth
	}

	if h > d.maxHeight {
		h = d.maxHeight
	}

	d.width, d.height = w, h
}

// Viewport returns the screen's current viewport dimensions.
func (d *Device) Viewport() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.viewportWidth, d.viewportHt
}

// Depth returns the screen's current and maximum color depth.
func (d *Device) Depth() (current, max int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.depth, d.maxDepth
}

// SetDepth sets the current color depth, clamped to maxDepth.
func (d *Device) SetDepth(depth int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if depth > d.maxDepth {
		depth = d.maxDepth
	}

	d.depth = depth
}

// PaletteColor returns the color at palette index idx, or 0 if out of range.
func (d *Device) PaletteColor(idx int) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if idx < 0 || idx >= len(d.palette) {
		return 0
	}

	return d.palette[idx]
}

// SetPaletteColor sets the color at palette index idx. Out-of-range is a
// no-op.
func (d *Device) SetPaletteColor(idx, color int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if idx < 0 || idx >= len(d.palette) {
		return
	}

	d.palette[idx] = color
}

// PaletteCount returns the total number of palette slots, editable or not.
func (d *Device) PaletteCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.palette)
}

// AddKeyboard registers a keyboard address, per NN_MAX_SCREEN_KEYBOARDS.
func (d *Device) AddKeyboard(address string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.keyboards) >= nucleus.MaxScreenKeyboards {
		return false
	}

	d.keyboards = append(d.keyboards, address)

	return true
}

// RemoveKeyboard deregisters a keyboard address.
func (d *Device) RemoveKeyboard(address string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, k := range d.keyboards {
		if k == address {
			d.keyboards = append(d.keyboards[:i], d.keyboards[i+1:]...)
			return
		}
	}
}

// Keyboards returns a copy of the registered keyboard addresses.
func (d *Device) Keyboards() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]string, len(d.keyboards))
	copy(out, d.keyboards)

	return out
}

// NewMethodTable builds the "screen" MethodTable.
func NewMethodTable(u *nucleus.Universe) *nucleus.MethodTable {
	return u.GetOrCreateMethodTable("NN:SCREEN", func() *nucleus.MethodTable {
		return nucleus.NewMethodTable(u, "screen", nil, methods, handle)
	})
}

var methods = []nucleus.Method{
	{Name: "getKeyboards", Doc: "getKeyboards(): string[] - Returns the keyboards registered to this screen."},
	{Name: "isOn", Flags: nucleus.Direct, Doc: "isOn(): boolean - Returns whether the screen is currently on."},
	{Name: "turnOn", Doc: "turnOn(): boolean - Turns the screen on. Returns whether it was off."},
	{Name: "turnOff", Doc: "turnOff(): boolean - Turns the screen off. Returns whether it was on."},
}

func handle(req *nucleus.Request) error {
	switch req.Kind {
	case nucleus.ReqInit:
		if req.State == nil {
			req.State = New(Options{MaxWidth: 80, MaxHeight: 25, MaxDepth: 8, EditableColors: 2, PaletteColors: 16})
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
		d := req.Component.State.(*Device)
		ensureDeviceInfo(d, req)
		return dispatch(d, req)
	}

	return nil
}

// ensureDeviceInfo populates the component's DeviceInfo entry on first call,
// since the address needed as its key is not assigned until after ReqInit.
func ensureDeviceInfo(d *Device, req *nucleus.Request) {
	d.mu.Lock()
	already := d.deviceInfoSet
	d.deviceInfoSet = true
	d.mu.Unlock()

	if already {
		return
	}

	info := req.Computer.DeviceInfo()
	info.Set(req.Component.Address, "device", "display")
	info.Set(req.Component.Address, "description", "Screen")
	info.Set(req.Component.Address, "vendor", "NeoFlock")
	info.Set(req.Component.Address, "product", "neonucleus Screen")
}

func dispatch(d *Device, req *nucleus.Request) error {
	frame := req.Frame

	switch req.Method {
	case "getKeyboards":
		keyboards := d.Keyboards()

		arr := nucleus.Array(len(keyboards))
		for i, k := range keyboards {
			nucleus.Set(arr, i, nucleus.String([]byte(k)))
		}

		return frame.Return(arr)

	case "isOn":
		d.mu.Lock()
		on := d.on
		d.mu.Unlock()

		return frame.Return(nucleus.Bool(on))

	case "turnOn":
		d.mu.Lock()
		was := d.on
		d.on = true
		d.mu.Unlock()

		return frame.Return(nucleus.Bool(!was))

	case "turnOff":
		d.mu.Lock()
		was := d.on
		d.on = false
		d.mu.Unlock()

		return frame.Return(nucleus.Bool(was))

	default:
		req.Exit = nucleus.ExitBadCall
		req.Err = errNoMethod

		return nil
	}
}
