package gateway

import (
	"sort"
	"time"

	"github.com/inode-tools/inode-modbus-gateway/internal/inode"
)

// DeviceView is a point-in-time copy of one device, safe to use off the
// ingest path. Image is the raw register image, nil while the device has
// no model.
type DeviceView struct {
	MAC       string
	Unit      uint8
	Model     inode.Model
	Available bool
	LastSeen  time.Time
	State     inode.State
	Registers int
	Image     []byte
}

// Snapshot returns views of every registered device, ordered by unit.
func (g *Gateway) Snapshot() []DeviceView {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]DeviceView, 0, len(g.byUnit))
	for _, d := range g.byUnit {
		out = append(out, g.view(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Unit < out[j].Unit })
	return out
}

// SnapshotByUnit returns a view of the device registered under a MODBUS
// unit.
func (g *Gateway) SnapshotByUnit(unit uint8) (DeviceView, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	d, ok := g.byUnit[unit]
	if !ok {
		return DeviceView{}, false
	}
	return g.view(d), true
}

// view copies a device while the gateway mutex is held.
func (g *Gateway) view(d *inode.Device) DeviceView {
	v := DeviceView{
		MAC:       d.MAC(),
		Unit:      d.Unit(),
		Model:     d.Model(),
		Available: d.IsAvailable(g.availabilityTimeout),
		LastSeen:  d.LastSeen(),
		State:     d.State(),
		Registers: d.Registers(),
	}
	if n := d.Registers(); n > 0 {
		if image, err := d.Read(0, n); err == nil {
			v.Image = image
		}
	}
	return v
}
