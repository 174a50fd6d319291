package drive

import "errors"

var (
	errBadLabel   = errors.New("drive: bad label (string expected)")
	errBadSector  = errors.New("drive: bad sector (positive integer expected)")
	errBadData    = errors.New("drive: bad data (string expected)")
	errBadOffset  = errors.New("drive: bad offset (integer expected)")
	errOutOfRange = errors.New("drive: sector out of range")
	errNoMethod   = errors.New("drive: no such method")
)
