package gateway

import (
	"errors"

	"github.com/inode-tools/inode-modbus-gateway/internal/inode"
	"github.com/inode-tools/inode-modbus-gateway/internal/modbus"
)

// Handle routes a MODBUS request to the device registered under the
// addressed unit. It implements modbus.Handler.
//
// The checks run in a fixed order: unknown units answer IllegalDataAddress
// before the function code is inspected, unsupported function codes
// answer IllegalFunction, stale or never-seen devices answer
// GatewayTargetFailed, and out-of-range windows answer
// IllegalDataAddress. Exception replies never mutate device state.
func (g *Gateway) Handle(unit uint8, req modbus.Request, respond func(modbus.Response)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	d, ok := g.byUnit[unit]
	if !ok {
		g.logger.Debug("request for unknown unit", "unit", unit)
		respond(modbus.Except(modbus.ExceptionIllegalDataAddress))
		return
	}
	if req.FunctionCode != modbus.FuncReadHoldingRegisters {
		respond(modbus.Except(modbus.ExceptionIllegalFunction))
		return
	}
	if !d.IsAvailable(g.availabilityTimeout) {
		g.logger.Debug("request for unavailable device", "unit", unit, "mac", d.MAC())
		respond(modbus.Except(modbus.ExceptionGatewayTargetFailed))
		return
	}
	data, err := d.Read(req.StartingIndex, req.EndingIndex)
	if err != nil {
		if errors.Is(err, inode.ErrAddressOutOfRange) {
			respond(modbus.Except(modbus.ExceptionIllegalDataAddress))
			return
		}
		g.logger.Error("device read failed", "unit", unit, "error", err)
		respond(modbus.Except(modbus.ExceptionServerDeviceFail))
		return
	}
	respond(modbus.Reply(data))
}
