package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/NeoFlock/neonucleus-sub000/internal/cli"
	"github.com/NeoFlock/neonucleus-sub000/internal/hostrun"
	"github.com/NeoFlock/neonucleus-sub000/internal/log"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/eeprom"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/gpu"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/keyboard"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/screen"
	"github.com/NeoFlock/neonucleus-sub000/internal/scriptarch"
	"github.com/NeoFlock/neonucleus-sub000/internal/tty"
)

// tickInterval paces a run'd Computer at roughly OpenComputers' own 20
// ticks/second.
const tickInterval = 50 * time.Millisecond

// renderInterval paces how often an attached console redraws the screen.
const renderInterval = 200 * time.Millisecond

func Run() cli.Command {
	return &run{}
}

type run struct {
	interactive bool
}

func (run) Description() string { return "boot a computer from a JavaScript program" }

func (run) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run program.js

Boots a single Computer whose EEPROM contains program.js, with a screen,
GPU and keyboard attached, and ticks it until the program halts or the
process is interrupted.`)

	return err
}

func (r *run) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.BoolVar(&r.interactive, "tty", false, "attach the calling terminal as console input/output")

	return fs
}

func (r *run) Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	if len(args) == 0 {
		logger.Error("run: missing program.js argument")
		return 1
	}

	code, err := os.ReadFile(args[0])
	if err != nil {
		logger.Error("run: reading program", "err", err)
		return 1
	}

	universe := nucleus.NewUniverse(nucleus.NewContext())
	computer := nucleus.NewComputer(universe, nucleus.WithArchitecture(scriptarch.Architecture{}))

	eepromTable := eeprom.NewMethodTable(universe)
	if _, err := computer.AddComponent(eepromTable, "eeprom0", 0, eeprom.NewVolatile(eeprom.Options{
		Size: len(code) + 1,
		Code: code,
	})); err != nil {
		logger.Error("run: attaching eeprom", "err", err)
		return 1
	}

	screenTable := screen.NewMethodTable(universe)
	dev := screen.New(screen.Options{MaxWidth: 80, MaxHeight: 25, MaxDepth: 8, EditableColors: 2, PaletteColors: 16})

	if _, err := computer.AddComponent(screenTable, "screen0", 1, dev); err != nil {
		logger.Error("run: attaching screen", "err", err)
		return 1
	}

	gpuTable := gpu.NewMethodTable(universe)
	if _, err := computer.AddComponent(gpuTable, "gpu0", 2, gpu.New(gpu.Options{Control: gpu.DefaultControl()})); err != nil {
		logger.Error("run: attaching gpu", "err", err)
		return 1
	}

	kbdTable := keyboard.NewMethodTable(universe)
	if _, err := computer.AddComponent(kbdTable, "keyboard0", 3, nil); err != nil {
		logger.Error("run: attaching keyboard", "err", err)
		return 1
	}

	var console *tty.Console

	if r.interactive {
		ctx, console, _ = tty.WithConsole(ctx, computer, "keyboard0")
		if console != nil {
			defer console.Restore()

			go renderLoop(ctx, console, dev)
		}
	}

	logger.Info("run: booting computer", "address", computer.Address())

	group := hostrun.NewGroup(tickInterval, hostrun.Entry{Name: computer.Address(), Computer: computer})
	if err := group.Run(ctx); err != nil {
		logger.Error("run: tick failed", "err", err)
		return 1
	}

	return 0
}

func renderLoop(ctx context.Context, console *tty.Console, dev *screen.Device) {
	ticker := time.NewTicker(renderInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			console.Render(dev)
		}
	}
}
