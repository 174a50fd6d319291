package screen

import "errors"

var errNoMethod = errors.New("screen: no such method")
