package gateway

import (
	"github.com/inode-tools/inode-modbus-gateway/internal/connection"
	"github.com/inode-tools/inode-modbus-gateway/internal/hci"
)

// AddConnection attaches the gateway to a connection source. Chunks
// delivered by the source are reassembled into HCI packets in a buffer
// private to that connection. Adding a source twice is a no-op.
func (g *Gateway) AddConnection(src connection.Source) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	if _, ok := g.conns[src]; ok {
		return nil
	}
	c := &conn{}
	c.detach = src.Attach(func(chunk []byte) {
		g.ingest(src, c, chunk)
	})
	g.conns[src] = c
	g.logger.Info("connection attached", "connection", src.Name())
	return nil
}

// RemoveConnection detaches a source and drops its reassembly buffer.
// Removing a source that was never added is a no-op.
func (g *Gateway) RemoveConnection(src connection.Source) {
	g.mu.Lock()
	defer g.mu.Unlock()

	c, ok := g.conns[src]
	if !ok {
		return
	}
	c.detach()
	delete(g.conns, src)
	g.logger.Info("connection detached", "connection", src.Name())
}

// ingest appends a chunk to the connection's buffer and applies every
// complete packet. A malformed stream resets the buffer so the decoder
// can resync on the next packet boundary.
func (g *Gateway) ingest(src connection.Source, c *conn, chunk []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conns[src] != c {
		// Detached while the chunk was in flight.
		return
	}
	c.buf = append(c.buf, chunk...)
	packets, rest, err := hci.Decode(c.buf)
	if err != nil {
		g.logger.Warn("dropping undecodable stream data",
			"connection", src.Name(), "bytes", len(c.buf), "error", err)
		c.buf = c.buf[:0]
		return
	}
	c.buf = append(c.buf[:0], rest...)
	for _, pkt := range packets {
		reports, err := pkt.AdvertisingReports()
		if err != nil {
			g.logger.Debug("skipping malformed event", "connection", src.Name(), "error", err)
			continue
		}
		for _, rep := range reports {
			g.applyReport(rep)
		}
	}
}

// OnAdvertisingReport applies a single already-decoded report, exactly
// as if it had arrived on a connection.
func (g *Gateway) OnAdvertisingReport(rep hci.AdvertisingReport) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.applyReport(rep)
}

// applyReport routes a report to the device registered under its
// address. Callers must hold g.mu.
func (g *Gateway) applyReport(rep hci.AdvertisingReport) {
	d, ok := g.byMAC[rep.Address]
	if !ok {
		if g.onUnknown != nil {
			g.onUnknown(rep)
		}
		return
	}
	diff := d.Apply(rep)
	if diff.Empty() {
		return
	}
	g.logger.Debug("device updated", "mac", d.MAC(), "unit", d.Unit())
	if g.onUpdate != nil {
		g.onUpdate(d, diff)
	}
}
