package nucleus

import (
	"errors"
	"fmt"
)

// Exit is the structural outcome of a call into the core, per spec section
// 6/7: a failure that unwinds a call cleanly and leaves a message in the
// Computer's error buffer. Domain errors (no such component or method, bad
// argument, read-only, checksum mismatch) are reported the same way: Invoke
// and the peripherals return ExitBadCall with the message in the error
// buffer, not a (nil, message) pair of values through the CallFrame.
type Exit int

const (
	ExitOK Exit = iota
	ExitNoMem
	ExitLimit
	ExitBelowStack
	ExitNoStack
	ExitBadCall
	ExitBadState
)

func (e Exit) String() string {
	switch e {
	case ExitOK:
		return "ok"
	case ExitNoMem:
		return "out of memory"
	case ExitLimit:
		return "limit exceeded"
	case ExitBelowStack:
		return "stack underflow"
	case ExitNoStack:
		return "stack overflow"
	case ExitBadCall:
		return "bad call"
	case ExitBadState:
		return "bad state"
	default:
		return fmt.Sprintf("exit(%d)", int(e))
	}
}

// canonicalMessage returns the fixed human-readable string installed in a
// Computer's error buffer for every Exit except ExitBadCall, whose message
// is instead supplied by the failing handler.
func (e Exit) canonicalMessage() string {
	switch e {
	case ExitOK:
		return ""
	case ExitNoMem:
		return "out of memory"
	case ExitLimit:
		return "resource limit exceeded"
	case ExitBelowStack:
		return "stack is empty"
	case ExitNoStack:
		return "stack is full"
	case ExitBadState:
		return "computer is in the wrong state"
	default:
		return e.String()
	}
}

// Sentinel errors returned by core operations. Each is wrapped with
// additional context as it propagates, following the pattern the teacher
// repo uses for ErrMemory/ErrAccessControl.
var (
	ErrNoMem      = errors.New("nucleus: out of memory")
	ErrLimit      = errors.New("nucleus: limit exceeded")
	ErrBelowStack = errors.New("nucleus: stack underflow")
	ErrNoStack    = errors.New("nucleus: stack overflow")
	ErrBadCall    = errors.New("nucleus: bad call")
	ErrBadState   = errors.New("nucleus: bad state")

	ErrNoComponent = errors.New("nucleus: no such component")
	ErrNoMethod    = errors.New("nucleus: no such method")
	ErrDisabled    = errors.New("nucleus: method not enabled")
)

// exitFor maps a sentinel error to its wire-level Exit code. Any non-nil
// error that matches none of the structural sentinels maps to ExitBadCall.
func exitFor(err error) Exit {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrNoMem):
		return ExitNoMem
	case errors.Is(err, ErrLimit):
		return ExitLimit
	case errors.Is(err, ErrBelowStack):
		return ExitBelowStack
	case errors.Is(err, ErrNoStack):
		return ExitNoStack
	case errors.Is(err, ErrBadState):
		return ExitBadState
	default:
		return ExitBadCall
	}
}
