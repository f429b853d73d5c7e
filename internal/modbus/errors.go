package modbus

import "errors"

// Domain errors for the modbus package.
var (
	// ErrServerClosed is returned by Serve after Close.
	ErrServerClosed = errors.New("modbus: server closed")

	// ErrFrameTooLarge is returned when an MBAP header announces a PDU
	// beyond the protocol maximum; the connection is dropped.
	ErrFrameTooLarge = errors.New("modbus: frame too large")
)
