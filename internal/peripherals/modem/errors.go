package modem

import (
	"errors"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

var (
	errBadAddress   = errors.New("modem: bad address (string expected)")
	errBadPort      = errors.New("modem: bad port (integer expected)")
	errTooManyPorts = errors.New("modem: too many open ports")
	errBadStrength  = errors.New("modem: bad strength (number expected)")
	errBadMessage   = errors.New("modem: bad message (string expected)")
	errNoMethod     = errors.New("modem: no such method")
)

func badCall(req *nucleus.Request, err error) error {
	req.Exit = nucleus.ExitBadCall
	req.Err = err

	return nil
}

func stringArg(f *nucleus.CallFrame, i int) (string, bool) {
	v, ok := f.GetArgument(i)
	if !ok || (v.Tag() != nucleus.TagString && v.Tag() != nucleus.TagCString) {
		return "", false
	}

	return string(v.ToCString()), true
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
