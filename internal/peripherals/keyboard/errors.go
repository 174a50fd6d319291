package keyboard

import "errors"

var errNoMethod = errors.New("keyboard: no such method")
