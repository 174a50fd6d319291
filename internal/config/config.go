// Package config loads the host-overridable tunables of a neonucleus
// deployment: the per-Computer resource ceilings and the chunked-I/O cost
// models the filesystem and GPU peripherals charge against, from an
// optional TOML file. Any field left unset in the file keeps its documented
// default, the same posture as the teacher's functional-option constructors
// applied to a struct of data instead of a call-site chain.
package config

import (
	"bufio"
	"fmt"
	"os"

	"github.com/naoina/toml"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/filesystem"
	"github.com/NeoFlock/neonucleus-sub000/internal/peripherals/gpu"
)

// tomlSettings keeps TOML keys identical to Go struct field names, matching
// the teacher corpus's naoina/toml usage in cmd/gprobe.
var tomlSettings = toml.Config{
	NormFieldName: func(_ interface{ Name() string }, key string) string { return key },
	FieldToKey:    func(_ interface{ Name() string }, field string) string { return field },
}

// Limits holds the host-tunable ceilings from spec section 6 (NN_MAX_*):
// everything a deployment might reasonably want to raise or lower without
// recompiling, as opposed to the protocol-level constants in
// nucleus.limits.go that define wire-level shapes (frame slot counts, the
// signal tuple arity) and stay fixed.
type Limits struct {
	MaxComponents int
	MaxUsers      int
	MaxUsername   int
	MaxSignals    int
	MaxOpenFiles  int
	MaxOpenPorts  int
	CallBudget    float64
	MemoryTotal   int
	EnergyTotal   float64
}

// DefaultLimits mirrors the constants nucleus.limits.go documents.
func DefaultLimits() Limits {
	return Limits{
		MaxComponents: nucleus.MaxComponents,
		MaxUsers:      nucleus.MaxUsers,
		MaxUsername:   nucleus.MaxUsername,
		MaxSignals:    nucleus.MaxSignals,
		MaxOpenFiles:  nucleus.MaxOpenFiles,
		MaxOpenPorts:  nucleus.MaxOpenPorts,
		CallBudget:    256,
		MemoryTotal:   256 * nucleus.KiB,
		EnergyTotal:   1000,
	}
}

// Config is the full set of overridable tunables, loaded from one TOML file.
type Config struct {
	Limits     Limits
	Filesystem filesystem.Control
	GPU        gpu.Control
}

// Default returns a Config matching the documented spec defaults, used
// whenever no file is given or a file omits a section entirely.
func Default() Config {
	return Config{
		Limits:     DefaultLimits(),
		Filesystem: filesystem.DefaultControl(),
		GPU:        gpu.DefaultControl(),
	}
}

// Load reads path as TOML into a copy of Default(), so any field the file
// doesn't mention keeps its default rather than zeroing out.
func Load(path string) (Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	return cfg, nil
}

// ComputerOptions translates Limits into the nucleus.ComputerOption values
// a host passes to nucleus.NewComputer. Only MaxComponents, CallBudget,
// MemoryTotal and EnergyTotal are translated; MaxUsers, MaxUsername,
// MaxSignals, MaxOpenFiles and MaxOpenPorts have no ComputerOption and are
// not applied to the Computer.
func (l Limits) ComputerOptions() []nucleus.ComputerOption {
	return []nucleus.ComputerOption{
		nucleus.WithMaxComponents(l.MaxComponents),
		nucleus.WithCallBudget(l.CallBudget),
		nucleus.WithMemory(l.MemoryTotal),
		nucleus.WithEnergy(l.EnergyTotal, l.EnergyTotal),
	}
}
