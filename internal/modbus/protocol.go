package modbus

import "fmt"

// Function codes (MODBUS Application Protocol Specification v1.1b3).
const (
	FuncReadHoldingRegisters byte = 0x03

	// exceptionFlag marks a response PDU as an exception.
	exceptionFlag byte = 0x80
)

// ExceptionCode is a MODBUS exception response code.
type ExceptionCode byte

const (
	ExceptionIllegalFunction    ExceptionCode = 0x01
	ExceptionIllegalDataAddress ExceptionCode = 0x02
	ExceptionIllegalDataValue   ExceptionCode = 0x03
	ExceptionServerDeviceFail   ExceptionCode = 0x04

	// ExceptionGatewayTargetFailed signals that the addressed device is
	// known but currently unreachable - for this gateway, a BLE device
	// that has not advertised within the availability timeout.
	ExceptionGatewayTargetFailed ExceptionCode = 0x0B
)

func (e ExceptionCode) String() string {
	switch e {
	case ExceptionIllegalFunction:
		return "illegal function"
	case ExceptionIllegalDataAddress:
		return "illegal data address"
	case ExceptionIllegalDataValue:
		return "illegal data value"
	case ExceptionServerDeviceFail:
		return "server device failure"
	case ExceptionGatewayTargetFailed:
		return "gateway target device failed to respond"
	default:
		return fmt.Sprintf("exception 0x%02x", byte(e))
	}
}

// Quantity limits for read holding registers (spec section 6.3).
const (
	minReadQuantity = 1
	maxReadQuantity = 125
)
