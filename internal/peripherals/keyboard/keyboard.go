// Package keyboard implements the keyboard component: guest code never
// calls it directly, it exists only so its address can be listed by a
// bound screen's getKeyboards and named as the source of key_down,
// key_up and clipboard signals. The host (a tty adapter or similar)
// drives those signals with the Push* helpers below.
package keyboard

import (
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

const (
	signalKeyDown   = "key_down"
	signalKeyUp     = "key_up"
	signalClipboard = "clipboard"
)

// NewMethodTable builds the "keyboard" MethodTable. It has no guest-facing
// methods, matching a real keyboard's role as a pure signal source.
func NewMethodTable(u *nucleus.Universe) *nucleus.MethodTable {
	return u.GetOrCreateMethodTable("NN:KEYBOARD", func() *nucleus.MethodTable {
		return nucleus.NewMethodTable(u, "keyboard", nil, nil, handle)
	})
}

func handle(req *nucleus.Request) error {
	switch req.Kind {
	case nucleus.ReqInit, nucleus.ReqFreeType:
		return nil

	case nucleus.ReqDeinit:
		req.Computer.DeviceInfo().Remove(req.Component.Address)
		return nil

	case nucleus.ReqEnabled:
		req.Enabled = true
		return nil

	case nucleus.ReqCall:
		// No per-instance state to gate this behind, so Set unconditionally;
		// DeviceInfoList.Set is an idempotent map write.
		info := req.Computer.DeviceInfo()
		info.Set(req.Component.Address, "device", "input")
		info.Set(req.Component.Address, "description", "Keyboard")
		info.Set(req.Component.Address, "vendor", "NeoFlock")
		info.Set(req.Component.Address, "product", "neonucleus Keyboard")

		req.Exit = nucleus.ExitBadCall
		req.Err = errNoMethod

		return nil
	}

	return nil
}

// PushKeyDown delivers a key_down signal as if the keyboard at address had
// been pressed by player, per spec section 6's signal table.
func PushKeyDown(computer *nucleus.Computer, address string, charcode, keycode int, player string) error {
	return pushKeyEvent(computer, signalKeyDown, address, charcode, keycode, player)
}

// PushKeyUp delivers a key_up signal as if the keyboard at address had
// been released by player.
func PushKeyUp(computer *nucleus.Computer, address string, charcode, keycode int, player string) error {
	return pushKeyEvent(computer, signalKeyUp, address, charcode, keycode, player)
}

func pushKeyEvent(computer *nucleus.Computer, name, address string, charcode, keycode int, player string) error {
	return computer.PushSignal(
		nucleus.String([]byte(name)),
		nucleus.String([]byte(address)),
		nucleus.Int(int64(charcode)),
		nucleus.Int(int64(keycode)),
		nucleus.String([]byte(player)),
	)
}

// PushClipboard delivers a clipboard paste signal as if pasted at the
// keyboard at address by player.
func PushClipboard(computer *nucleus.Computer, address, payload, player string) error {
	return computer.PushSignal(
		nucleus.String([]byte(signalClipboard)),
		nucleus.String([]byte(address)),
		nucleus.String([]byte(payload)),
		nucleus.String([]byte(player)),
	)
}
