package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/NeoFlock/neonucleus-sub000/internal/cli"
	"github.com/NeoFlock/neonucleus-sub000/internal/config"
	"github.com/NeoFlock/neonucleus-sub000/internal/hostapi"
	"github.com/NeoFlock/neonucleus-sub000/internal/log"
	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/eeprom"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/gpu"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/screen"
	"github.com/NeoFlock/neonucleus-sub000/internal/scriptarch"
)

func Serve() cli.Command {
	return &serve{}
}

type serve struct {
	addr       string
	configPath string
	allowCORS  bool
}

func (serve) Description() string { return "serve the HTTP introspection API over a demo computer" }

func (serve) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `serve [program.js]

Boots a single Computer (optionally from program.js) and serves the
introspection API over it at the configured address.`)

	return err
}

func (s *serve) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.StringVar(&s.addr, "addr", ":8080", "HTTP listen address")
	fs.StringVar(&s.configPath, "config", "", "path to a TOML tunables file")
	fs.BoolVar(&s.allowCORS, "cors", false, "allow cross-origin requests")

	return fs
}

func (s *serve) Run(ctx context.Context, args []string, out io.Writer, logger *log.Logger) int {
	cfg := config.Default()

	if s.configPath != "" {
		loaded, err := config.Load(s.configPath)
		if err != nil {
			logger.Error("serve: loading config", "err", err)
			return 1
		}

		cfg = loaded
	}

	universe := nucleus.NewUniverse(nucleus.NewContext())
	computer := nucleus.NewComputer(universe, append(
		cfg.Limits.ComputerOptions(),
		nucleus.WithArchitecture(scriptarch.Architecture{}),
	)...)

	eepromTable := eeprom.NewMethodTable(universe)
	boot, err := bootEEPROM(args)
	if err != nil {
		logger.Error("serve: opening eeprom backing file", "err", err)
		return 1
	}

	if _, err := computer.AddComponent(eepromTable, "eeprom0", 0, boot); err != nil {
		logger.Error("serve: attaching eeprom", "err", err)
		return 1
	}

	screenTable := screen.NewMethodTable(universe)
	dev := screen.New(screen.Options{MaxWidth: 80, MaxHeight: 25, MaxDepth: 8, EditableColors: 2, PaletteColors: 16})
	if _, err := computer.AddComponent(screenTable, "screen0", 1, dev); err != nil {
		logger.Error("serve: attaching screen", "err", err)
		return 1
	}

	gpuTable := gpu.NewMethodTable(universe)
	if _, err := computer.AddComponent(gpuTable, "gpu0", 2, gpu.New(gpu.Options{Control: cfg.GPU})); err != nil {
		logger.Error("serve: attaching gpu", "err", err)
		return 1
	}

	if err := computer.Tick(); err != nil {
		logger.Error("serve: boot tick", "err", err)
		return 1
	}

	registry := hostapi.NewRegistry()
	registry.Add(computer.Address(), computer)

	server := hostapi.NewServer(registry, s.allowCORS)

	httpServer := &http.Server{Addr: s.addr, Handler: server}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("serve: listening", "addr", s.addr, "computer", computer.Address())

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("serve: listen", "err", err)
		return 1
	}

	return 0
}

// bootEEPROM builds the demo computer's boot EEPROM. If args names a file,
// its contents back the EEPROM directly (memory-mapped, so edits to the
// file persist across restarts); otherwise a blank, RAM-backed EEPROM is
// used.
func bootEEPROM(args []string) (any, error) {
	if len(args) == 0 {
		return eeprom.NewVolatile(eeprom.Options{Size: 4096, DataSize: 256}), nil
	}

	f, err := os.OpenFile(args[0], os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", args[0], err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	return eeprom.New(eeprom.Options{Size: int(info.Size()), DataSize: 256, BackingFile: f})
}
