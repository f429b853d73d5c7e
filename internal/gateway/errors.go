package gateway

import "errors"

var (
	// ErrDuplicateUnit indicates the MODBUS unit is already registered
	// to a different device.
	ErrDuplicateUnit = errors.New("gateway: unit already registered")

	// ErrDuplicateMAC indicates the MAC address is already registered
	// to a different device.
	ErrDuplicateMAC = errors.New("gateway: mac already registered")

	// ErrClosed indicates the gateway has been closed and no longer
	// accepts registrations.
	ErrClosed = errors.New("gateway: closed")
)
