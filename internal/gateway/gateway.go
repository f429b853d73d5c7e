package gateway

import (
	"sort"
	"sync"
	"time"

	"github.com/inode-tools/inode-modbus-gateway/internal/connection"
	"github.com/inode-tools/inode-modbus-gateway/internal/hci"
	"github.com/inode-tools/inode-modbus-gateway/internal/inode"
)

// Logger is the minimal logging surface the gateway needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// UpdateFunc is called after a report changed a registered device.
type UpdateFunc func(d *inode.Device, diff inode.Diff)

// UnknownFunc is called for reports whose address matches no device.
type UnknownFunc func(rep hci.AdvertisingReport)

// Gateway is the device registry and bidirectional router.
type Gateway struct {
	availabilityTimeout time.Duration

	mu        sync.Mutex
	byUnit    map[uint8]*inode.Device
	byMAC     map[string]*inode.Device
	conns     map[connection.Source]*conn
	onUpdate  UpdateFunc
	onUnknown UnknownFunc
	closed    bool

	logger Logger
}

// conn is the per-connection ingest state.
type conn struct {
	detach func()
	buf    []byte
}

// New creates an empty gateway. Devices older than availabilityTimeout
// are reported as unavailable to MODBUS masters.
func New(availabilityTimeout time.Duration) *Gateway {
	return &Gateway{
		availabilityTimeout: availabilityTimeout,
		byUnit:              make(map[uint8]*inode.Device),
		byMAC:               make(map[string]*inode.Device),
		conns:               make(map[connection.Source]*conn),
		logger:              noopLogger{},
	}
}

// SetLogger replaces the gateway's logger. Passing nil restores the
// no-op logger.
func (g *Gateway) SetLogger(l Logger) {
	if l == nil {
		l = noopLogger{}
	}
	g.mu.Lock()
	g.logger = l
	g.mu.Unlock()
}

// OnDeviceUpdate registers the callback invoked after a report changed
// a device. The callback runs on the ingest path, so it must not call
// back into the gateway.
func (g *Gateway) OnDeviceUpdate(fn UpdateFunc) {
	g.mu.Lock()
	g.onUpdate = fn
	g.mu.Unlock()
}

// OnUnknownDevice registers the callback invoked for reports from
// unregistered addresses. Without a callback such reports are dropped.
func (g *Gateway) OnUnknownDevice(fn UnknownFunc) {
	g.mu.Lock()
	g.onUnknown = fn
	g.mu.Unlock()
}

// AddDevice registers a device under both its unit and MAC. If either
// key is already taken by a different device the registry is left
// untouched. Re-adding the same device is a no-op.
func (g *Gateway) AddDevice(d *inode.Device) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	byUnit, unitTaken := g.byUnit[d.Unit()]
	byMAC, macTaken := g.byMAC[d.MAC()]
	if unitTaken && byUnit == d && macTaken && byMAC == d {
		return nil
	}
	if unitTaken {
		return ErrDuplicateUnit
	}
	if macTaken {
		return ErrDuplicateMAC
	}
	g.byUnit[d.Unit()] = d
	g.byMAC[d.MAC()] = d
	g.logger.Info("device registered", "mac", d.MAC(), "unit", d.Unit())
	return nil
}

// RemoveDevice drops a device from both indexes. Removing a device that
// is not registered is a no-op.
func (g *Gateway) RemoveDevice(d *inode.Device) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.byUnit[d.Unit()] == d {
		delete(g.byUnit, d.Unit())
	}
	if g.byMAC[d.MAC()] == d {
		delete(g.byMAC, d.MAC())
	}
}

// DeviceByUnit returns the device registered under a MODBUS unit.
func (g *Gateway) DeviceByUnit(unit uint8) (*inode.Device, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.byUnit[unit]
	return d, ok
}

// DeviceByMAC returns the device registered under a MAC address. The
// address is canonicalized before lookup.
func (g *Gateway) DeviceByMAC(mac string) (*inode.Device, bool) {
	canon, err := inode.CanonicalMAC(mac)
	if err != nil {
		return nil, false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	d, ok := g.byMAC[canon]
	return d, ok
}

// Devices returns all registered devices ordered by unit.
func (g *Gateway) Devices() []*inode.Device {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]*inode.Device, 0, len(g.byUnit))
	for _, d := range g.byUnit {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit() < out[j].Unit() })
	return out
}

// AvailabilityTimeout reports the staleness threshold the router uses.
func (g *Gateway) AvailabilityTimeout() time.Duration {
	return g.availabilityTimeout
}

// Close detaches every connection and clears the registry. Further
// registrations fail with ErrClosed. Close is idempotent.
func (g *Gateway) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true
	for src, c := range g.conns {
		c.detach()
		delete(g.conns, src)
	}
	g.byUnit = make(map[uint8]*inode.Device)
	g.byMAC = make(map[string]*inode.Device)
}
