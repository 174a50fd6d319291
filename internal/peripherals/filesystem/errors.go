package filesystem

import "errors"

var (
	errBadLabel   = errors.New("filesystem: bad label (string expected)")
	errBadPath    = errors.New("filesystem: bad path (illegal or too long)")
	errBadMode    = errors.New("filesystem: bad mode (expected r, w or a)")
	errBadFD      = errors.New("filesystem: bad file descriptor")
	errBadLength  = errors.New("filesystem: bad length (number expected)")
	errBadData    = errors.New("filesystem: bad data (string expected)")
	errBadWhence  = errors.New("filesystem: bad whence (expected set, cur or end)")
	errBadOffset  = errors.New("filesystem: bad offset (integer expected)")
	errNoSuchFile = errors.New("filesystem: no such file")
	errIsDirectory = errors.New("filesystem: path is a directory")
	errReadOnly   = errors.New("filesystem: filesystem is read-only")
	errNoMethod   = errors.New("filesystem: no such method")
)
