// Package nucleus implements the emulator substrate: the universe, computer
// and component lifecycle, the polymorphic Value system and signal queue,
// the component method-table dispatch machinery, and the resource-accounting
// model that together let a host drive a bag of virtual peripherals from a
// pluggable guest Architecture.
package nucleus

// Size units, as defined by spec section 6.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// Build-time tunable limits. Defaults match spec section 6; see
// [internal/config] for a host-overridable loader.
//
// The source repo carried two parallel, inconsistent values for
// MaxSignals (128 in src/, 32 in the later, incomplete rewrite/). This
// module takes the src/ value; see DESIGN.md.
const (
	MaxStack           = 256      // NN_MAX_STACK
	MaxPath            = 256      // NN_MAX_PATH
	MaxRead            = 64 * KiB // NN_MAX_READ
	MaxOpenFiles       = 128      // NN_MAX_OPENFILES
	MaxSignalSize      = 8 * KiB  // NN_MAX_SIGNALSIZE
	MaxSignals         = 128      // NN_MAX_SIGNALS
	MaxSignalValues    = 32       // NN_MAX_SIGNAL_VALS
	MaxPort            = 65535    // NN_MAX_PORT
	PortCloseAll       = 0        // NN_PORT_CLOSEALL
	MaxArchitectures   = 16       // NN_MAX_ARCHITECTURES
	TunnelPort         = 0        // NN_TUNNEL_PORT
	MaxUnicodeBuffer   = 4        // NN_MAX_UNICODE_BUFFER
	MaxErrorSize       = 1024     // NN_MAX_ERROR_SIZE
	LabelSize          = 128      // NN_LABEL_SIZE
	OverheatMin        = 100.0    // NN_OVERHEAT_MIN
	CallCostUnit       = 1.0      // NN_CALL_COST
	IndirectLatency    = 0.05     // NN_INDIRECT_CALL_LATENCY (seconds)
	MaxUsers           = 128      // NN_MAX_USERS
	MaxUsername        = 128      // NN_MAX_USERNAME
	MaxUserData        = 64       // NN_MAX_USERDATA (Universe registry slots)
	MaxFrameArgs       = 32       // CallFrame argument slots
	MaxFrameRets       = 32       // CallFrame return slots
	MaxComponents      = 64       // Default cap on a Computer's components vector
	MaxScreenKeyboards = 8        // NN_MAX_SCREEN_KEYBOARDS
	MaxOpenPorts       = 128      // NN_MAX_OPEN_PORTS
)
