// Package gpu implements the screen-driving component: a GPU binds to a
// screen component by address and writes into its pixel buffer, tracking
// its own foreground/background color (which may be a direct RGB value or
// an index into the bound screen's palette). Binding neither checks nor
// releases other GPUs' bindings: several GPUs bound to the same screen all
// write to it.
package gpu

import (
	"image"
	"image/color"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	pnm "github.com/jbuchbinder/gopnm"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/screen"
	"github.com/NeoFlock/neonucleus-sub000/internal/unicodewidth"
)

// Control carries the cost model charged for GPU operations, per screen
// area or color change.
type Control struct {
	BindCost, BindEnergy, BindHeat float64
	BindLatency                    time.Duration

	ColorChangeCost, ColorChangeEnergy, ColorChangeHeat float64
	ColorChangeLatency                                  time.Duration

	PixelChangeCost, PixelChangeEnergy, PixelChangeHeat float64
	PixelChangeLatency                                  time.Duration

	PixelResetCost, PixelResetEnergy, PixelResetHeat float64
	PixelResetLatency                                time.Duration
}

// DefaultControl returns a reasonable cost model, grounded in the
// reference implementation's defaults.
func DefaultControl() Control {
	return Control{
		BindCost: 1, BindEnergy: 0.5, BindHeat: 0.5, BindLatency: 500 * time.Millisecond,
		ColorChangeCost: 0.01, ColorChangeEnergy: 0.005, ColorChangeHeat: 0.005, ColorChangeLatency: 0,
		PixelChangeCost: 0.001, PixelChangeEnergy: 0.0005, PixelChangeHeat: 0.0005, PixelChangeLatency: 0,
		PixelResetCost: 0.0005, PixelResetEnergy: 0.0002, PixelResetHeat: 0.0002, PixelResetLatency: 0,
	}
}

type state struct {
	mu sync.Mutex

	control Control

	screenAddress string
	screenDevice  *screen.Device

	fg, bg                   int
	isFgPalette, isBgPalette bool

	deviceInfoSet bool
}

// Options configures a new GPU instance at construction.
type Options struct {
	Control Control
}

// New creates GPU instance state, ready to pass as userdata to
// Computer.AddComponent.
func New(opts Options) *state {
	return &state{
		control: opts.Control,
		fg:      0xFFFFFF,
		bg:      0x000000,
	}
}

// NewMethodTable builds the "gpu" MethodTable.
func NewMethodTable(u *nucleus.Universe) *nucleus.MethodTable {
	return u.GetOrCreateMethodTable("NN:GPU", func() *nucleus.MethodTable {
		return nucleus.NewMethodTable(u, "gpu", nil, methods, handle)
	})
}

var methods = []nucleus.Method{
	{Name: "bind", Doc: "bind(addr: string[, reset: boolean]): boolean - Binds the GPU to a screen. Very expensive."},
	{Name: "getScreen", Flags: nucleus.Direct, Doc: "getScreen(): string - Returns the address of the bound screen."},
	{Name: "set", Doc: "set(x: integer, y: integer, text: string[, vertical: boolean]) - Writes text starting at (x, y)."},
	{Name: "get", Doc: "get(x: integer, y: integer): string, integer, integer - Returns the character, fg and bg of a pixel."},
	{Name: "maxResolution", Flags: nucleus.Direct, Doc: "maxResolution(): integer, integer"},
	{Name: "getResolution", Flags: nucleus.Direct, Doc: "getResolution(): integer, integer"},
	{Name: "setResolution", Flags: nucleus.Direct, Doc: "setResolution(w: integer, h: integer): boolean"},
	{Name: "getViewport", Flags: nucleus.Direct, Doc: "getViewport(): integer, integer"},
	{Name: "setBackground", Flags: nucleus.Direct, Doc: "setBackground(color: integer, isPalette: boolean): integer, integer?"},
	{Name: "getBackground", Flags: nucleus.Direct, Doc: "getBackground(): integer, boolean"},
	{Name: "setForeground", Flags: nucleus.Direct, Doc: "setForeground(color: integer, isPalette: boolean): integer, integer?"},
	{Name: "getForeground", Flags: nucleus.Direct, Doc: "getForeground(): integer, boolean"},
	{Name: "fill", Doc: "fill(x: integer, y: integer, w: integer, h: integer, char: string): boolean"},
	{Name: "copy", Doc: "copy(x: integer, y: integer, w: integer, h: integer, tx: integer, ty: integer): boolean"},
	{Name: "getDepth", Flags: nucleus.Direct, Doc: "getDepth(): integer"},
	{Name: "setDepth", Flags: nucleus.Direct, Doc: "setDepth(depth: integer): integer"},
	{Name: "maxDepth", Flags: nucleus.Direct, Doc: "maxDepth(): integer"},
	{Name: "dumpPNM", Doc: "dumpPNM(path: string): boolean - Writes a PPM snapshot of the bound screen's buffer to path, for debugging."},
}

func handle(req *nucleus.Request) error {
	switch req.Kind {
	case nucleus.ReqInit:
		if req.State == nil {
			req.State = New(Options{Control: DefaultControl()})
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
	info.Set(req.Component.Address, "device", "display")
	info.Set(req.Component.Address, "description", "GPU")
	info.Set(req.Component.Address, "vendor", "NeoFlock")
	info.Set(req.Component.Address, "product", "neonucleus GPU")
}

func dispatch(s *state, req *nucleus.Request) error {
	switch req.Method {
	case "bind":
		return doBind(s, req)
	case "getScreen":
		return doGetScreen(s, req)
	case "set":
		return doSet(s, req)
	case "get":
		return doGet(s, req)
	case "maxResolution":
		return doMaxResolution(s, req)
	case "getResolution":
		return doGetResolution(s, req)
	case "setResolution":
		return doSetResolution(s, req)
	case "getViewport":
		return doGetViewport(s, req)
	case "setBackground":
		return doSetColor(s, req, false)
	case "getBackground":
		return doGetColor(s, req, false)
	case "setForeground":
		return doSetColor(s, req, true)
	case "getForeground":
		return doGetColor(s, req, true)
	case "fill":
		return doFill(s, req)
	case "copy":
		return doCopy(s, req)
	case "getDepth":
		return doGetDepth(s, req)
	case "setDepth":
		return doSetDepth(s, req)
	case "maxDepth":
		return doMaxDepth(s, req)
	case "dumpPNM":
		return doDumpPNM(s, req)
	default:
		req.Exit = nucleus.ExitBadCall
		req.Err = errNoMethod

		return nil
	}
}

func doBind(s *state, req *nucleus.Request) error {
	frame := req.Frame

	addr, ok := stringArg(frame, 0)
	if !ok {
		return badCall(req, errBadAddress)
	}

	reset := false
	if v, ok := frame.GetArgument(1); ok && v.Tag() == nucleus.TagBool {
		reset = v.ToBoolean()
	}

	comp, ok := req.Computer.GetComponent(addr)
	if !ok {
		return badCall(req, errNoSuchScreen)
	}

	if comp.Table != screen.NewMethodTable(req.Universe) {
		return badCall(req, errIncompatibleScreen)
	}

	dev, ok := comp.State.(*screen.Device)
	if !ok {
		return badCall(req, errIncompatibleScreen)
	}

	s.mu.Lock()
	s.screenDevice = dev
	s.screenAddress = addr
	ctl := s.control
	s.mu.Unlock()

	if reset {
		w, h := dev.Resolution()
		area := w * h

		for x := 0; x < w; x++ {
			for y := 0; y < h; y++ {
				dev.SetPixel(x, y, s.makePixel(' '))
			}
		}

		req.Computer.AddHeat(ctl.PixelResetHeat * float64(area))
		req.Computer.CallCost(ctl.PixelResetCost * float64(area))
		req.Computer.RemoveEnergy(ctl.PixelResetEnergy * float64(area))
		nucleus.BusySleep(ctl.PixelResetLatency * time.Duration(area))
	}

	req.Computer.AddHeat(ctl.BindHeat)
	req.Computer.CallCost(ctl.BindCost)
	req.Computer.RemoveEnergy(ctl.BindEnergy)
	nucleus.BusySleep(ctl.BindLatency)

	return frame.Return(nucleus.Bool(true))
}

func doGetScreen(s *state, req *nucleus.Request) error {
	s.mu.Lock()
	addr := s.screenAddress
	s.mu.Unlock()

	if addr == "" {
		return nil
	}

	return req.Frame.Return(nucleus.String([]byte(addr)))
}

func (s *state) makePixel(r rune) screen.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()

	return screen.Cell{
		Codepoint:   r,
		Foreground:  s.fg,
		Background:  s.bg,
		IsFgPalette: s.isFgPalette,
		IsBgPalette: s.isBgPalette,
	}
}

func doSet(s *state, req *nucleus.Request) error {
	frame := req.Frame

	s.mu.Lock()
	dev := s.screenDevice
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	xv, ok := intArg(frame, 0)
	if !ok {
		return badCall(req, errBadCoordinate)
	}

	yv, ok := intArg(frame, 1)
	if !ok {
		return badCall(req, errBadCoordinate)
	}

	text, ok := stringArg(frame, 2)
	if !ok {
		return badCall(req, errBadText)
	}

	vertical := false
	if v, ok := frame.GetArgument(3); ok && v.Tag() == nucleus.TagBool {
		vertical = v.ToBoolean()
	}

	if !utf8.ValidString(text) {
		return badCall(req, errBadUTF8)
	}

	x, y := xv-1, yv-1

	for _, r := range text {
		dev.SetPixel(x, y, s.makePixel(r))

		if vertical {
			y++
		} else {
			x += unicodewidth.Width(r)
		}
	}

	return nil
}

func doGet(s *state, req *nucleus.Request) error {
	frame := req.Frame

	s.mu.Lock()
	dev := s.screenDevice
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	xv, ok := intArg(frame, 0)
	if !ok {
		return badCall(req, errBadCoordinate)
	}

	yv, ok := intArg(frame, 1)
	if !ok {
		return badCall(req, errBadCoordinate)
	}

	cell := dev.GetPixel(int(xv-1), int(yv-1))

	if err := frame.Return(nucleus.CString([]byte(string(cell.Codepoint)))); err != nil {
		return err
	}

	if err := frame.Return(nucleus.Int(int64(cell.Foreground))); err != nil {
		return err
	}

	return frame.Return(nucleus.Int(int64(cell.Background)))
}

func doMaxResolution(s *state, req *nucleus.Request) error {
	s.mu.Lock()
	dev := s.screenDevice
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	w, h := dev.MaxResolution()

	if err := req.Frame.Return(nucleus.Int(int64(w))); err != nil {
		return err
	}

	return req.Frame.Return(nucleus.Int(int64(h)))
}

func doGetResolution(s *state, req *nucleus.Request) error {
	s.mu.Lock()
	dev := s.screenDevice
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	w, h := dev.Resolution()

	if err := req.Frame.Return(nucleus.Int(int64(w))); err != nil {
		return err
	}

	return req.Frame.Return(nucleus.Int(int64(h)))
}

func doSetResolution(s *state, req *nucleus.Request) error {
	frame := req.Frame

	s.mu.Lock()
	dev := s.screenDevice
	addr := s.screenAddress
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	w, ok := intArg(frame, 0)
	if !ok {
		return badCall(req, errBadResolution)
	}

	h, ok := intArg(frame, 1)
	if !ok {
		return badCall(req, errBadResolution)
	}

	lw, lh := dev.Resolution()
	changed := int(w) != lw || int(h) != lh

	dev.SetResolution(int(w), int(h))
	nw, nh := dev.Resolution()

	if err := frame.Return(nucleus.Bool(changed)); err != nil {
		return err
	}

	if changed {
		_ = req.Computer.PushSignal(
			nucleus.String([]byte("screen_resized")),
			nucleus.String([]byte(addr)),
			nucleus.Int(int64(nw)),
			nucleus.Int(int64(nh)),
		)
	}

	return nil
}

func doGetViewport(s *state, req *nucleus.Request) error {
	s.mu.Lock()
	dev := s.screenDevice
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	w, h := dev.Viewport()

	if err := req.Frame.Return(nucleus.Int(int64(w))); err != nil {
		return err
	}

	return req.Frame.Return(nucleus.Int(int64(h)))
}

func doSetColor(s *state, req *nucleus.Request, foreground bool) error {
	frame := req.Frame

	s.mu.Lock()
	dev := s.screenDevice
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	color, ok := intArg(frame, 0)
	if !ok {
		return badCall(req, errBadColor)
	}

	isPalette := false
	if v, ok := frame.GetArgument(1); ok && v.Tag() == nucleus.TagBool {
		isPalette = v.ToBoolean()
	}

	if isPalette && (color < 0 || int(color) >= dev.PaletteCount()) {
		return badCall(req, errBadPaletteIndex)
	}

	s.mu.Lock()
	var old int
	var oldIdx int = -1

	if foreground {
		old = s.fg
		if s.isFgPalette {
			oldIdx = old
			old = dev.PaletteColor(old)
		}

		s.fg = int(color)
		s.isFgPalette = isPalette
	} else {
		old = s.bg
		if s.isBgPalette {
			oldIdx = old
			old = dev.PaletteColor(old)
		}

		s.bg = int(color)
		s.isBgPalette = isPalette
	}

	ctl := s.control
	s.mu.Unlock()

	req.Computer.AddHeat(ctl.ColorChangeHeat)
	req.Computer.CallCost(ctl.ColorChangeCost)
	req.Computer.RemoveEnergy(ctl.ColorChangeEnergy)
	nucleus.BusySleep(ctl.ColorChangeLatency)

	if err := frame.Return(nucleus.Int(int64(old))); err != nil {
		return err
	}

	if oldIdx != -1 {
		return frame.Return(nucleus.Int(int64(oldIdx)))
	}

	return nil
}

func doGetColor(s *state, req *nucleus.Request, foreground bool) error {
	s.mu.Lock()
	var color int
	var isPalette bool

	if foreground {
		color, isPalette = s.fg, s.isFgPalette
	} else {
		color, isPalette = s.bg, s.isBgPalette
	}

	s.mu.Unlock()

	if err := req.Frame.Return(nucleus.Int(int64(color))); err != nil {
		return err
	}

	return req.Frame.Return(nucleus.Bool(isPalette))
}

func sameCell(a, b screen.Cell) bool {
	return a.Codepoint == b.Codepoint &&
		a.Foreground == b.Foreground &&
		a.Background == b.Background &&
		a.IsFgPalette == b.IsFgPalette &&
		a.IsBgPalette == b.IsBgPalette
}

func doFill(s *state, req *nucleus.Request) error {
	frame := req.Frame

	s.mu.Lock()
	dev := s.screenDevice
	ctl := s.control
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	xv, ok := intArg(frame, 0)
	if !ok {
		return badCall(req, errBadCoordinate)
	}

	yv, ok := intArg(frame, 1)
	if !ok {
		return badCall(req, errBadCoordinate)
	}

	wv, ok := intArg(frame, 2)
	if !ok {
		return badCall(req, errBadDimension)
	}

	hv, ok := intArg(frame, 3)
	if !ok {
		return badCall(req, errBadDimension)
	}

	text, ok := stringArg(frame, 4)
	if !ok {
		return badCall(req, errBadText)
	}

	if !utf8.ValidString(text) || len(text) == 0 {
		return badCall(req, errBadUTF8)
	}

	r, _ := utf8.DecodeRuneInString(text)

	x, y := int(xv-1), int(yv-1)
	w, h := int(wv), int(hv)

	maxW, maxH := dev.Resolution()

	if x < 0 {
		x = 0
	}

	if y < 0 {
		y = 0
	}

	if w > maxW-x {
		w = maxW - x
	}

	if h > maxH-y {
		h = maxH - y
	}

	changes, clears := fillRect(dev, x, y, w, h, s.makePixel(r))

	chargePixels(req, ctl, changes, clears)

	return frame.Return(nucleus.Bool(true))
}

func fillRect(dev *screen.Device, x, y, w, h int, c screen.Cell) (changes, clears int) {
	for cx := x; cx < x+w; cx++ {
		for cy := y; cy < y+h; cy++ {
			old := dev.GetPixel(cx, cy)
			if sameCell(old, c) {
				continue
			}

			dev.SetPixel(cx, cy, c)

			if c.Codepoint == ' ' {
				clears++
			} else {
				changes++
			}
		}
	}

	return changes, clears
}

func chargePixels(req *nucleus.Request, ctl Control, changes, clears int) {
	req.Computer.AddHeat(ctl.PixelChangeHeat * float64(changes))
	req.Computer.CallCost(ctl.PixelChangeCost * float64(changes))
	req.Computer.RemoveEnergy(ctl.PixelChangeEnergy * float64(changes))
	nucleus.BusySleep(ctl.PixelChangeLatency * time.Duration(changes))

	req.Computer.AddHeat(ctl.PixelChangeHeat * float64(clears))
	req.Computer.CallCost(ctl.PixelChangeCost * float64(clears))
	req.Computer.RemoveEnergy(ctl.PixelChangeEnergy * float64(clears))
	nucleus.BusySleep(ctl.PixelChangeLatency * time.Duration(clears))
}

func doCopy(s *state, req *nucleus.Request) error {
	frame := req.Frame

	s.mu.Lock()
	dev := s.screenDevice
	ctl := s.control
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	xv, ok := intArg(frame, 0)
	if !ok {
		return badCall(req, errBadCoordinate)
	}

	yv, ok := intArg(frame, 1)
	if !ok {
		return badCall(req, errBadCoordinate)
	}

	wv, ok := intArg(frame, 2)
	if !ok {
		return badCall(req, errBadDimension)
	}

	hv, ok := intArg(frame, 3)
	if !ok {
		return badCall(req, errBadDimension)
	}

	tx, ok := intArg(frame, 4)
	if !ok {
		return badCall(req, errBadCoordinate)
	}

	ty, ok := intArg(frame, 5)
	if !ok {
		return badCall(req, errBadCoordinate)
	}

	x, y := int(xv-1), int(yv-1)
	w, h := int(wv), int(hv)

	maxW, maxH := dev.Resolution()

	if x < 0 {
		x = 0
	}

	if y < 0 {
		y = 0
	}

	if w > maxW-x {
		w = maxW - x
	}

	if h > maxH-y {
		h = maxH - y
	}

	changes, clears := 0, 0

	for cx := x; cx < x+w; cx++ {
		for cy := y; cy < y+h; cy++ {
			src := dev.GetPixel(cx, cy)
			old := dev.GetPixel(cx+int(tx), cy+int(ty))

			if sameCell(old, src) {
				continue
			}

			dev.SetPixel(cx+int(tx), cy+int(ty), src)

			if src.Codepoint == ' ' {
				clears++
			} else {
				changes++
			}
		}
	}

	chargePixels(req, ctl, changes, clears)

	return frame.Return(nucleus.Bool(true))
}

func doGetDepth(s *state, req *nucleus.Request) error {
	s.mu.Lock()
	dev := s.screenDevice
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	depth, _ := dev.Depth()

	return req.Frame.Return(nucleus.Int(int64(depth)))
}

func doSetDepth(s *state, req *nucleus.Request) error {
	frame := req.Frame

	s.mu.Lock()
	dev := s.screenDevice
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	depth, ok := intArg(frame, 0)
	if !ok {
		return badCall(req, errBadDepth)
	}

	prev, _ := dev.Depth()
	dev.SetDepth(int(depth))

	return frame.Return(nucleus.Int(int64(prev)))
}

func doMaxDepth(s *state, req *nucleus.Request) error {
	s.mu.Lock()
	dev := s.screenDevice
	s.mu.Unlock()

	if dev == nil {
		return nil
	}

	_, max := dev.Depth()

	return req.Frame.Return(nucleus.Int(int64(max)))
}

// doDumpPNM renders the bound screen's buffer as a one-pixel-per-character
// PPM image and writes it to the path named by the guest, the same
// framebuffer-capture technique minimega uses for a VM's VNC console.
func doDumpPNM(s *state, req *nucleus.Request) error {
	s.mu.Lock()
	dev := s.screenDevice
	s.mu.Unlock()

	if dev == nil {
		return badCall(req, errNoScreenBound)
	}

	path, ok := stringArg(req.Frame, 0)
	if !ok {
		return badCall(req, errBadPath)
	}

	w, h := dev.Resolution()
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cell := dev.GetPixel(x, y)

			bg := cell.Background
			if cell.IsBgPalette {
				bg = dev.PaletteColor(bg)
			}

			img.Set(x, y, color.RGBA{
				R: uint8(bg >> 16),
				G: uint8(bg >> 8),
				B: uint8(bg),
				A: 0xFF,
			})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return badCall(req, errDumpFailed)
	}
	defer f.Close()

	if err := pnm.Encode(f, img, pnm.PPM); err != nil {
		return badCall(req, errDumpFailed)
	}

	return req.Frame.Return(nucleus.Bool(true))
}
