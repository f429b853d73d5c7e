package inode

import "errors"

// Domain errors for the inode package.
var (
	// ErrInvalidMAC is returned when a MAC address cannot be parsed into
	// the canonical AA:BB:CC:DD:EE:FF form.
	ErrInvalidMAC = errors.New("inode: invalid mac address")

	// ErrInvalidUnit is returned when a MODBUS unit is outside 0-255.
	ErrInvalidUnit = errors.New("inode: invalid unit")

	// ErrAddressOutOfRange is returned by Read when the requested register
	// window exceeds the device's current register image, or when no image
	// exists yet. The router surfaces it as an IllegalDataAddress
	// exception.
	ErrAddressOutOfRange = errors.New("inode: register window out of range")
)
