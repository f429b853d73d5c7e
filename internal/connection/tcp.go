package connection

import (
	"fmt"
	"io"
	"net"
	"time"
)

// dialTimeout bounds a single TCP connection attempt.
const dialTimeout = 10 * time.Second

// TCPConfig describes a TCP-attached HCI sniffer.
type TCPConfig struct {
	// Name identifies the connection in logs and the registry; defaults
	// to the address.
	Name string

	// Address is the host:port to dial.
	Address string

	// HexText enables ASCII-hex decoding of the stream.
	HexText bool
}

// NewTCP creates a TCP source. It does not dial until Start.
func NewTCP(cfg TCPConfig) Source {
	name := cfg.Name
	if name == "" {
		name = cfg.Address
	}
	return newPump(name, cfg.HexText, func() (io.ReadCloser, error) {
		conn, err := net.DialTimeout("tcp", cfg.Address, dialTimeout)
		if err != nil {
			return nil, fmt.Errorf("connection: dial %s: %w", cfg.Address, err)
		}
		return conn, nil
	})
}
