package gpu

import (
	"errors"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

var (
	errBadAddress         = errors.New("gpu: bad address (string expected)")
	errNoSuchScreen       = errors.New("gpu: no such screen")
	errIncompatibleScreen = errors.New("gpu: incompatible screen")
	errBadCoordinate      = errors.New("gpu: bad coordinate (integer expected)")
	errBadText            = errors.New("gpu: bad text (string expected)")
	errBadUTF8            = errors.New("gpu: invalid utf-8")
	errBadResolution      = errors.New("gpu: bad resolution (integer expected)")
	errBadColor           = errors.New("gpu: bad color (integer expected)")
	errBadPaletteIndex    = errors.New("gpu: invalid palette index")
	errBadDimension       = errors.New("gpu: bad dimension (integer expected)")
	errBadDepth           = errors.New("gpu: bad depth (integer expected)")
	errNoScreenBound      = errors.New("gpu: not bound to a screen")
	errBadPath            = errors.New("gpu: bad path (string expected)")
	errDumpFailed         = errors.New("gpu: failed to write PNM dump")
	errNoMethod           = errors.New("gpu: no such method")
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
