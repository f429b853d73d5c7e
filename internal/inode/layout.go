package inode

import "encoding/binary"

// Register map constants. One register is two bytes, big-endian. The map
// is the wire contract a MODBUS master depends on and must not change.
const (
	RegMAC       = 0 // 3 registers, raw MAC bytes
	RegLocalName = 3 // 8 registers, ASCII zero-padded
	RegModel     = 11
	RegRSSI      = 12
	RegTxPower   = 13
	RegRTTO      = 14
	RegAlarms    = 15

	// headerRegisters is the size of the common header shared by all
	// models; extensions start at register 16.
	headerRegisters = 16
)

// Care Relay extension.
const (
	RegRelayFlags = 16

	relayRegisters = 17
)

// Energy Meter extension.
const (
	RegMeterConstant       = 16
	RegMeterUnit           = 17
	RegMeterTotal          = 18 // 2 registers, uint32
	RegMeterAverage        = 20 // 2 registers, uint32
	RegMeterLightLevel     = 22
	RegMeterWeekDay        = 23
	RegMeterWeekDayTotal   = 24 // 2 registers, uint32
	RegMeterBatteryLevel   = 26
	RegMeterBatteryVoltage = 27

	meterRegisters = 28
)

// Care Sensor extension. Register 18 carries humidity, or the raw
// magnetic field on Care Sensor #5; the overlap is part of the contract.
const (
	RegSensorFlags          = 16
	RegSensorTemperature    = 17
	RegSensorHumidity       = 18
	RegSensorPressure       = 19
	RegSensorPosition       = 20 // 3 registers, x/y/z
	RegSensorBatteryLevel   = 23
	RegSensorBatteryVoltage = 24
	RegSensorGroups         = 25
	RegSensorTime           = 26 // 2 registers, uint32 unix seconds

	sensorRegisters = 28
)

// sentinel is rendered into any numeric register whose field has not been
// received yet. Flag and group registers default to zero instead.
const sentinel = 0x00FF

const bytesPerRegister = 2

// slot binds a field to its place in a register image.
type slot struct {
	field  Field
	reg    int // first register
	width  int // registers
	encode func(*State, []byte)
}

// Layout describes the register image of one model family: its total
// size and the slots the renderer walks. Selected once per model change.
type Layout struct {
	registers int
	slots     []slot
}

// Registers returns the image size in registers.
func (l *Layout) Registers() int { return l.registers }

// Size returns the image size in bytes.
func (l *Layout) Size() int { return l.registers * bytesPerRegister }

// render writes every slot selected by diff (or all slots when full is
// set) into buf at its register offset.
func (l *Layout) render(s *State, diff Diff, full bool, buf []byte) {
	for _, sl := range l.slots {
		if !full && !diff.Has(sl.field) {
			continue
		}
		off := sl.reg * bytesPerRegister
		sl.encode(s, buf[off:off+sl.width*bytesPerRegister])
	}
}

// layoutFor returns the layout of the model's family, or nil for
// ModelUnknown.
func layoutFor(m Model) *Layout {
	switch m.Family() {
	case FamilyRelay:
		return relayLayout
	case FamilyMeter:
		return meterLayout
	case FamilySensor:
		return sensorLayout
	default:
		return nil
	}
}

// headerSlots are shared by every layout. MAC and model code are written
// once at buffer allocation and are deliberately absent here.
var headerSlots = []slot{
	{FieldLocalName, RegLocalName, 8, encLocalName},
	{FieldRSSI, RegRSSI, 1, encInt16(func(s *State) *int16 { return s.RSSI })},
	{FieldTxPower, RegTxPower, 1, encInt16(func(s *State) *int16 { return s.TxPower })},
	{FieldRTTO, RegRTTO, 1, encRTTO},
	{FieldAlarms, RegAlarms, 1, encAlarms},
}

var (
	relayLayout = &Layout{
		registers: relayRegisters,
		slots: append(headerSlots[:len(headerSlots):len(headerSlots)],
			slot{FieldRelayFlags, RegRelayFlags, 1, encRelayFlags},
		),
	}

	meterLayout = &Layout{
		registers: meterRegisters,
		slots: append(headerSlots[:len(headerSlots):len(headerSlots)],
			slot{FieldMeterConstant, RegMeterConstant, 1, encUint16(func(s *State) *uint16 { return s.Constant })},
			slot{FieldMeterUnit, RegMeterUnit, 1, encMeterUnit},
			slot{FieldTotal, RegMeterTotal, 2, encScaled32(func(s *State) *float64 { return s.Total })},
			slot{FieldAverage, RegMeterAverage, 2, encScaled32(func(s *State) *float64 { return s.Average })},
			slot{FieldLightLevel, RegMeterLightLevel, 1, encCenti16(func(s *State) *float64 { return s.LightLevel })},
			slot{FieldWeekDay, RegMeterWeekDay, 1, encUint16(func(s *State) *uint16 { return s.WeekDay })},
			slot{FieldWeekDayTotal, RegMeterWeekDayTotal, 2, encScaled32(func(s *State) *float64 { return s.WeekDayTotal })},
			slot{FieldBatteryLevel, RegMeterBatteryLevel, 1, encBatteryLevel},
			slot{FieldBatteryVoltage, RegMeterBatteryVoltage, 1, encCenti16(func(s *State) *float64 { return s.BatteryVoltage })},
		),
	}

	sensorLayout = &Layout{
		registers: sensorRegisters,
		slots: append(headerSlots[:len(headerSlots):len(headerSlots)],
			slot{FieldSensorFlags, RegSensorFlags, 1, encSensorFlags},
			slot{FieldTemperature, RegSensorTemperature, 1, encCentiInt16},
			slot{FieldHumidity, RegSensorHumidity, 1, encHumidity},
			slot{FieldMagneticField, RegSensorHumidity, 1, encHumidity},
			slot{FieldPressure, RegSensorPressure, 1, encPressure},
			slot{FieldPosition, RegSensorPosition, 3, encPosition},
			slot{FieldBatteryLevel, RegSensorBatteryLevel, 1, encBatteryLevel},
			slot{FieldBatteryVoltage, RegSensorBatteryVoltage, 1, encCenti16(func(s *State) *float64 { return s.BatteryVoltage })},
			slot{FieldGroups, RegSensorGroups, 1, encGroups},
			slot{FieldTime, RegSensorTime, 2, encTime},
		),
	}
)

func putSentinel16(b []byte) {
	binary.BigEndian.PutUint16(b, sentinel)
}

func putSentinel32(b []byte) {
	binary.BigEndian.PutUint32(b, sentinel)
}

func encLocalName(s *State, b []byte) {
	for i := range b {
		b[i] = 0
	}
	if s.LocalName == nil {
		return
	}
	copy(b, *s.LocalName)
}

func encInt16(get func(*State) *int16) func(*State, []byte) {
	return func(s *State, b []byte) {
		v := get(s)
		if v == nil {
			putSentinel16(b)
			return
		}
		binary.BigEndian.PutUint16(b, uint16(*v))
	}
}

func encUint16(get func(*State) *uint16) func(*State, []byte) {
	return func(s *State, b []byte) {
		v := get(s)
		if v == nil {
			putSentinel16(b)
			return
		}
		binary.BigEndian.PutUint16(b, *v)
	}
}

// encCenti16 renders a float scaled by 100 into one register.
func encCenti16(get func(*State) *float64) func(*State, []byte) {
	return func(s *State, b []byte) {
		v := get(s)
		if v == nil {
			putSentinel16(b)
			return
		}
		binary.BigEndian.PutUint16(b, uint16(*v*100+0.5))
	}
}

// encScaled32 renders an energy counter into two registers. Counters are
// scaled by 100 except in pulse-count mode, which is exact already.
func encScaled32(get func(*State) *float64) func(*State, []byte) {
	return func(s *State, b []byte) {
		v := get(s)
		if v == nil {
			putSentinel32(b)
			return
		}
		value := *v
		if s.Unit == nil || *s.Unit != UnitCount {
			value *= 100
		}
		binary.BigEndian.PutUint32(b, uint32(value+0.5))
	}
}

func encRTTO(s *State, b []byte) {
	var v uint16
	if s.RTTO != nil && *s.RTTO {
		v = 1
	}
	binary.BigEndian.PutUint16(b, v)
}

func encAlarms(s *State, b []byte) {
	var v uint16
	if s.Alarms != nil {
		v = uint16(*s.Alarms)
	}
	binary.BigEndian.PutUint16(b, v)
}

func encRelayFlags(s *State, b []byte) {
	var v uint16
	if s.Relay != nil && s.Relay.Output {
		v |= 1 << 1
	}
	binary.BigEndian.PutUint16(b, v)
}

func encSensorFlags(s *State, b []byte) {
	var v uint16
	if s.Sensor != nil {
		if s.Sensor.Input {
			v |= 1 << 0
		}
		if s.Sensor.Output {
			v |= 1 << 1
		}
		if s.Sensor.Motion {
			v |= 1 << 2
		}
	}
	binary.BigEndian.PutUint16(b, v)
}

func encMeterUnit(s *State, b []byte) {
	if s.Unit == nil {
		putSentinel16(b)
		return
	}
	binary.BigEndian.PutUint16(b, uint16(*s.Unit))
}

func encBatteryLevel(s *State, b []byte) {
	if s.BatteryLevel == nil {
		putSentinel16(b)
		return
	}
	binary.BigEndian.PutUint16(b, uint16(*s.BatteryLevel))
}

// encCentiInt16 renders temperature as a signed centidegree register.
func encCentiInt16(s *State, b []byte) {
	if s.Temperature == nil {
		putSentinel16(b)
		return
	}
	v := *s.Temperature * 100
	if v < 0 {
		v -= 0.5
	} else {
		v += 0.5
	}
	binary.BigEndian.PutUint16(b, uint16(int16(v)))
}

// encHumidity renders the shared humidity/magnetic-field register.
// Magnetic models write the raw field value; the 0x00FF sentinel is
// shared with a legitimately low humidity reading, as the protocol has
// always done.
func encHumidity(s *State, b []byte) {
	if s.MagneticField != nil {
		binary.BigEndian.PutUint16(b, *s.MagneticField)
		return
	}
	if s.Humidity == nil {
		putSentinel16(b)
		return
	}
	binary.BigEndian.PutUint16(b, uint16(*s.Humidity*100+0.5))
}

func encPressure(s *State, b []byte) {
	if s.Pressure == nil {
		putSentinel16(b)
		return
	}
	binary.BigEndian.PutUint16(b, uint16(*s.Pressure*16+0.5))
}

func encPosition(s *State, b []byte) {
	if s.Position == nil {
		putSentinel16(b[0:2])
		putSentinel16(b[2:4])
		putSentinel16(b[4:6])
		return
	}
	binary.BigEndian.PutUint16(b[0:2], uint16(s.Position.X))
	binary.BigEndian.PutUint16(b[2:4], uint16(s.Position.Y))
	binary.BigEndian.PutUint16(b[4:6], uint16(s.Position.Z))
}

func encGroups(s *State, b []byte) {
	var v uint16
	if s.Groups != nil {
		v = *s.Groups
	}
	binary.BigEndian.PutUint16(b, v)
}

func encTime(s *State, b []byte) {
	if s.Time == nil {
		putSentinel32(b)
		return
	}
	binary.BigEndian.PutUint32(b, uint32(s.Time.Unix()))
}
