package eeprom

import "errors"

var (
	errBadLabel         = errors.New("eeprom: bad label (string expected)")
	errBadCode          = errors.New("eeprom: bad code (string expected)")
	errBadData          = errors.New("eeprom: bad data (string expected)")
	errReadOnly         = errors.New("eeprom: storage is read-only")
	errChecksumMismatch = errors.New("eeprom: checksum does not match current content")
	errNoMethod         = errors.New("eeprom: no such method")
)
