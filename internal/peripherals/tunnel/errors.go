package tunnel

import (
	"errors"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

var (
	errBadMessage = errors.New("tunnel: bad message (string expected)")
	errNoMethod   = errors.New("tunnel: no such method")
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
