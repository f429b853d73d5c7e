package inode

import (
	"encoding/binary"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/inode-tools/inode-modbus-gateway/internal/hci"
)

// MaxUnit is the highest MODBUS unit a device may be registered under.
const MaxUnit = 255

// Device tracks one iNode device and owns its register image.
//
// MAC and unit are fixed at construction. The register buffer exists only
// once a model has been observed; it is reallocated on a model change and
// mutated in place otherwise. The MAC and model registers are written once
// per allocation and never touched again.
//
// Device is not safe for concurrent use; the gateway serializes access.
type Device struct {
	mac  string
	unit uint8

	model    Model
	layout   *Layout
	state    State
	buffer   []byte
	lastSeen time.Time

	// now is the clock, swappable in tests.
	now func() time.Time
}

// NewDevice creates a device for the given MAC address and MODBUS unit.
// The MAC is canonicalized to "AA:BB:CC:DD:EE:FF"; the unit must be
// 0-255. Both are immutable afterwards.
func NewDevice(mac string, unit int) (*Device, error) {
	canonical, err := CanonicalMAC(mac)
	if err != nil {
		return nil, err
	}
	if unit < 0 || unit > MaxUnit {
		return nil, fmt.Errorf("%w: %d", ErrInvalidUnit, unit)
	}
	return &Device{
		mac:  canonical,
		unit: uint8(unit),
		now:  time.Now,
	}, nil
}

// CanonicalMAC parses a MAC address and returns it in the canonical
// uppercase colon-separated form used as the registry key.
func CanonicalMAC(mac string) (string, error) {
	hw, err := net.ParseMAC(mac)
	if err != nil || len(hw) != 6 {
		return "", fmt.Errorf("%w: %q", ErrInvalidMAC, mac)
	}
	return strings.ToUpper(strings.ReplaceAll(hw.String(), "-", ":")), nil
}

// MAC returns the canonical MAC address.
func (d *Device) MAC() string { return d.mac }

// Unit returns the MODBUS unit.
func (d *Device) Unit() uint8 { return d.unit }

// Model returns the last observed model, or ModelUnknown.
func (d *Device) Model() Model { return d.model }

// LastSeen returns the time of the last applied report; zero until the
// first report arrives.
func (d *Device) LastSeen() time.Time { return d.lastSeen }

// State returns a copy of the decoded state.
func (d *Device) State() State { return d.state }

// Registers returns the current register image size, zero while no model
// has been observed.
func (d *Device) Registers() int {
	if d.layout == nil {
		return 0
	}
	return d.layout.Registers()
}

// IsAvailable reports whether the device may answer MODBUS reads: a model
// must have been observed and the last report must be no older than
// timeout. The check is a point-in-time computation; nothing is evicted.
func (d *Device) IsAvailable(timeout time.Duration) bool {
	if d.model == ModelUnknown {
		return false
	}
	return d.now().Sub(d.lastSeen) <= timeout
}

// Apply merges an advertising report into the device and rewrites the
// changed registers. It returns the diff that was rendered; FieldModel is
// set when the report changed the device model and the whole image was
// reallocated.
//
// RSSI, local name and TX power update from the report envelope; all
// other fields come from a recognizable iNode manufacturer payload. A
// report without one leaves model, alarms and RTTO untouched.
func (d *Device) Apply(rep hci.AdvertisingReport) Diff {
	next := d.state

	if rep.RSSIValid {
		v := int16(rep.RSSI)
		next.RSSI = &v
	}
	if name, ok := hci.LocalName(rep.Data); ok {
		next.LocalName = &name
	}
	if power, ok := hci.TxPowerLevel(rep.Data); ok {
		v := int16(power)
		next.TxPower = &v
	}

	var tel *Telemetry
	if msd, ok := hci.ManufacturerData(rep.Data); ok {
		tel, _ = DecodeTelemetry(msd)
	}

	modelChanged := tel != nil && tel.Model != d.model
	if modelChanged {
		// Only the layout-stable header fields survive a transition;
		// everything else restarts from the new model's telemetry.
		next = State{
			RSSI:      next.RSSI,
			LocalName: next.LocalName,
			TxPower:   next.TxPower,
		}
	}
	if tel != nil {
		next.merge(tel)
	}

	diff := Compare(&d.state, &next)

	if modelChanged {
		diff &= layoutStable
		diff.Set(FieldModel)
		d.adoptModel(tel.Model)
		d.layout.render(&next, diff, true, d.buffer)
	} else if d.layout != nil && !diff.Empty() {
		d.layout.render(&next, diff, false, d.buffer)
	}

	d.state = next
	d.lastSeen = d.now()
	return diff
}

// adoptModel swaps in a freshly allocated register image for the model
// and writes the two allocation-time fields: MAC and model code.
func (d *Device) adoptModel(m Model) {
	d.model = m
	d.layout = layoutFor(m)
	d.buffer = make([]byte, d.layout.Size())

	hw, _ := net.ParseMAC(d.mac)
	copy(d.buffer[RegMAC*bytesPerRegister:], hw)
	binary.BigEndian.PutUint16(d.buffer[RegModel*bytesPerRegister:], uint16(m))
}

// merge overlays telemetry onto the state. Fields the payload did not
// carry keep their previous value.
func (s *State) merge(tel *Telemetry) {
	rtto := tel.RTTO
	alarms := tel.Alarms
	s.RTTO = &rtto
	s.Alarms = &alarms

	switch {
	case tel.Relay != nil:
		flags := tel.Relay.Flags
		s.Relay = &flags

	case tel.Meter != nil:
		m := tel.Meter
		constant, unit := m.Constant, m.Unit
		total, average, weekTotal := m.Total, m.Average, m.WeekDayTotal
		s.Constant = &constant
		s.Unit = &unit
		s.Total = &total
		s.Average = &average
		s.WeekDayTotal = &weekTotal
		if m.LightLevel != nil {
			v := *m.LightLevel
			s.LightLevel = &v
		}
		if m.WeekDay != nil {
			v := *m.WeekDay
			s.WeekDay = &v
		}
		s.mergeBattery(m.BatteryLevel, m.BatteryVoltage)

	case tel.Sensor != nil:
		t := tel.Sensor
		flags := t.Flags
		groups := t.Groups
		clock := t.Time
		s.Sensor = &flags
		s.Groups = &groups
		s.Time = &clock
		if t.Temperature != nil {
			v := *t.Temperature
			s.Temperature = &v
		}
		if t.Humidity != nil {
			v := *t.Humidity
			s.Humidity = &v
		}
		if t.MagneticField != nil {
			v := *t.MagneticField
			s.MagneticField = &v
		}
		if t.Pressure != nil {
			v := *t.Pressure
			s.Pressure = &v
		}
		if t.Position != nil {
			v := *t.Position
			s.Position = &v
		}
		s.mergeBattery(t.BatteryLevel, t.BatteryVoltage)
	}
}

func (s *State) mergeBattery(level *uint8, voltage *float64) {
	if level != nil {
		v := *level
		s.BatteryLevel = &v
	}
	if voltage != nil {
		v := *voltage
		s.BatteryVoltage = &v
	}
}

// Read returns the bytes of registers [start, end). The window must lie
// inside the current register image; anything else, including a device
// without an image, is ErrAddressOutOfRange. The returned slice is a
// copy; the image stays exclusively owned by the device.
func (d *Device) Read(start, end int) ([]byte, error) {
	if d.buffer == nil {
		return nil, ErrAddressOutOfRange
	}
	if start < 0 || end <= start || end > d.layout.Registers() {
		return nil, fmt.Errorf("%w: [%d, %d) of %d registers",
			ErrAddressOutOfRange, start, end, d.layout.Registers())
	}
	out := make([]byte, (end-start)*bytesPerRegister)
	copy(out, d.buffer[start*bytesPerRegister:end*bytesPerRegister])
	return out, nil
}
