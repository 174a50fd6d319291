package diskdrive

import (
	"errors"

	"github.com/NeoFlock/neonucleus-sub000/internal/nucleus"
)

var (
	errDriveEmpty = errors.New("disk_drive: drive is empty")
	errNoMethod   = errors.New("disk_drive: no such method")
)

func badCall(req *nucleus.Request, err error) error {
	req.Exit = nucleus.ExitBadCall
	req.Err = err

	return nil
}
