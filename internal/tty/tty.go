// Package tty provides a terminal-based console for a Computer's bound
// Keyboard and Screen/GPU components, adapted from elsie's own teletype
// emulation: same raw-mode-and-background-reader shape, rewired from the
// LC-3 keyboard/display memory-mapped registers to the keyboard peripheral's
// Push* signal sources and the screen peripheral's cell buffer.
package tty

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/keyboard"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/screen"
)

// Console is a simulated serial console using Unix terminal I/O. It adapts a
// Computer's keyboard component for input and renders a bound screen's
// buffer for output, for systems that otherwise only expose a GPU/screen
// pair to guest code.
type Console struct {
	in    *os.File
	out   *term.Terminal
	fd    int
	state *term.State
	keyCh chan uint16
}

var (
	// ErrNoTTY is returned if standard input is not a terminal.
	ErrNoTTY error = errors.New("console: not a TTY")
)

// WithConsole creates a Console wired to computer's keyboard component
// (identified by keyboardAddr) and begins forwarding terminal keystrokes
// to it as key_down signals. Calling cancel restores the terminal state
// and releases resources.
func WithConsole(parent Context, computer *nucleus.Computer, keyboardAddr string) (Context, *Console, ConsoleDoneFunc) {
	ctx, cause := context.WithCancelCause(parent)
	console, err := NewConsole(os.Stdin, os.Stdout, os.Stderr)

	if err != nil {
		cause(err)
		return ctx, console, func() { cause(context.Canceled) }
	}

	go console.readTerminal(ctx, console.Restore)
	go console.forwardKeys(ctx, computer, keyboardAddr, console.Restore)

	return ctx, console, console.Restore
}

// NewConsole creates a Console using the provided streams. If the input stream is not a terminal,
// ErrNoTTY is returned. Callers are responsible for calling Restore to return the terminal to its
// initial state.
func NewConsole(sin, sout, serr *os.File) (*Console, error) {
	fd := int(sin.Fd())

	if !term.IsTerminal(fd) {
		return nil, ErrNoTTY
	}

	saved, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoTTY, err)
	}

	cons := Console{
		fd:    fd,
		in:    sin,
		out:   term.NewTerminal(sin, ""),
		state: saved,
		keyCh: make(chan uint16, 1),
	}

	if err := cons.setTerminalParams(1, 0); err != nil {
		return nil, err
	}

	return &cons, nil
}

// Press injects a key press into the input stream, for tests.
func (c Console) Press(key byte) {
	c.keyCh <- uint16(key)
}

// Writer returns an io.Writer that writes to the terminal.
func (c Console) Writer() io.Writer {
	return c.out
}

// Render redraws dev's buffer to the console as plain text, one line per
// row. This module's screens have no pixel-addressable backing store, so
// rendering is character-cell text rather than a bitmap.
func (c Console) Render(dev *screen.Device) {
	w, h := dev.Resolution()
	line := make([]rune, w)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			line[x] = dev.GetPixel(x, y).Codepoint
		}

		fmt.Fprintln(c.out, string(line))
	}
}

// Restore returns the terminal to its initial state and cancels in-progress reads.
func (c *Console) Restore() {
	_ = os.Stdin.SetReadDeadline(time.Now())
	_ = term.Restore(c.fd, c.state)
}

func (c *Console) setTerminalParams(vmin, vtime byte) error {
	_ = syscall.SetNonblock(c.fd, true)

	termIO, err := unix.IoctlGetTermios(c.fd, getTermiosIoctl)
	if err != nil {
		return err
	}

	termIO.Cc[unix.VMIN] = vmin
	termIO.Cc[unix.VTIME] = vtime

	if err := unix.IoctlSetTermios(c.fd, setTermiosIoctl, termIO); err != nil {
		return err
	}

	_ = os.Stdin.SetReadDeadline(time.Time{})

	return nil
}

func (c Console) readTerminal(ctx Context, cancel ConsoleDoneFunc) {
	buf := bufio.NewReader(c.in)

	_ = syscall.SetNonblock(c.fd, false)

	for { // ever and ever
		select {
		case <-ctx.Done():
			return
		default:
			b, err := buf.ReadByte()

			if err != nil {
				cancel()
				return
			}

			c.keyCh <- uint16(b)
		}
	}
}

// forwardKeys turns raw keystrokes into key_down signals on the Computer's
// keyboard component, the host side of the Push* contract keyboard.go
// documents: the guest never drives these signals itself.
func (c Console) forwardKeys(ctx Context, computer *nucleus.Computer, keyboardAddr string, cancel ConsoleDoneFunc) {
	for { // you, a gift.
		select {
		case key := <-c.keyCh:
			charcode := int(key)

			if err := keyboard.PushKeyDown(computer, keyboardAddr, charcode, charcode, "local"); err != nil {
				cancel()
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// Type aliases to reduce symbol stutter.
type (
	Context         = context.Context
	ConsoleDoneFunc = context.CancelFunc
)
