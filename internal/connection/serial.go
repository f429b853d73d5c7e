package connection

import (
	"fmt"
	"io"

	"github.com/goburrow/serial"
)

// SerialConfig describes a directly attached HCI dongle on a serial
// port.
type SerialConfig struct {
	// Name identifies the connection; defaults to the port path.
	Name string

	// Port is the device path, e.g. /dev/ttyUSB0.
	Port string

	// BaudRate defaults to 115200.
	BaudRate int

	// HexText enables ASCII-hex decoding of the stream.
	HexText bool
}

const defaultBaudRate = 115200

// NewSerial creates a serial source. The port is opened on Start and
// reopened with backoff after failures.
func NewSerial(cfg SerialConfig) Source {
	name := cfg.Name
	if name == "" {
		name = cfg.Port
	}
	baud := cfg.BaudRate
	if baud <= 0 {
		baud = defaultBaudRate
	}
	return newPump(name, cfg.HexText, func() (io.ReadCloser, error) {
		port, err := serial.Open(&serial.Config{
			Address:  cfg.Port,
			BaudRate: baud,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
		})
		if err != nil {
			return nil, fmt.Errorf("connection: open %s: %w", cfg.Port, err)
		}
		return port, nil
	})
}
