// Package connection provides the byte-stream sources the gateway ingests
// HCI sniffer traffic from.
//
// A Source delivers raw chunks to a single attached handler:
//
//	src := connection.NewTCP(cfg)
//	detach := src.Attach(func(chunk []byte) { ... })
//	defer detach()
//	src.Start(ctx)
//
// Detaching is safe at any time; a chunk already dispatched completes
// before the detach takes effect, in program order. Sources own their
// transport lifecycle - dial, read loop, reconnect backoff - and stop on
// context cancellation or Close. Reassembly of the chunk stream into HCI
// packets is the gateway's job, not the source's.
//
// Two transports are provided: TCP (for network-attached sniffers) and
// serial via goburrow/serial (for directly attached dongles). Both
// support an ASCII-hex text mode for sniffers that emit hex dumps
// instead of raw bytes.
package connection
