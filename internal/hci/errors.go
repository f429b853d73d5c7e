package hci

import "errors"

// Domain errors for the hci package.
var (
	// ErrTruncatedPacket is returned when a packet header promises more
	// bytes than the buffer holds. Callers should keep the remainder and
	// retry once more data arrives.
	ErrTruncatedPacket = errors.New("hci: truncated packet")

	// ErrUnknownPacketType is returned for packet indicator bytes other
	// than the HCI event type. The stream is considered unrecoverable.
	ErrUnknownPacketType = errors.New("hci: unknown packet type")

	// ErrMalformedReport is returned when an advertising report's internal
	// structure does not match its declared lengths.
	ErrMalformedReport = errors.New("hci: malformed advertising report")
)
