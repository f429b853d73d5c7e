package inode

import "time"

// Field identifies one diffable field of a device state. Fields map to
// register slots through the model's layout; FieldModel is a pseudo-field
// marking a model transition.
type Field uint8

const (
	FieldRSSI Field = iota
	FieldLocalName
	FieldTxPower
	FieldRTTO
	FieldAlarms

	FieldRelayFlags

	FieldMeterConstant
	FieldMeterUnit
	FieldTotal
	FieldAverage
	FieldLightLevel
	FieldWeekDay
	FieldWeekDayTotal

	FieldSensorFlags
	FieldTemperature
	FieldHumidity
	FieldMagneticField
	FieldPressure
	FieldPosition
	FieldGroups
	FieldTime

	FieldBatteryLevel
	FieldBatteryVoltage

	// FieldModel marks a model transition. It is never part of a layout;
	// a set bit means the whole image was reallocated and rewritten.
	FieldModel

	numFields
)

// Diff is a bitset of changed fields produced by Compare.
type Diff uint32

// Has reports whether the field's bit is set.
func (d Diff) Has(f Field) bool { return d&(1<<f) != 0 }

// Set marks the field as changed.
func (d *Diff) Set(f Field) { *d |= 1 << f }

// Empty reports whether no field changed.
func (d Diff) Empty() bool { return d == 0 }

// layoutStable are the fields whose register position is identical across
// all models. On a model transition every other pending change is
// discarded; the forced full rewrite repaints them from absorbed state.
const layoutStable = Diff(1<<FieldRSSI | 1<<FieldLocalName | 1<<FieldTxPower)

// Alarms is the device alarm bitset, bits 0-10.
type Alarms uint16

const (
	AlarmLowBattery Alarms = 1 << iota
	AlarmMoveAccelerometer
	AlarmLevelAccelerometer
	AlarmLevelTemperature
	AlarmLevelHumidity
	AlarmContactChange
	AlarmMoveStopped
	AlarmMoveGTimer
	AlarmLevelAccelerometerChange
	AlarmLevelMagnetChange
	AlarmLevelMagnetTimer

	alarmMask Alarms = 1<<11 - 1
)

// Has reports whether the alarm bit is raised.
func (a Alarms) Has(alarm Alarms) bool { return a&alarm != 0 }

// MeterUnit is the quantity an energy meter counts.
type MeterUnit uint8

const (
	UnitKilowattHours MeterUnit = 0
	UnitCubicMeters   MeterUnit = 1
	UnitCount         MeterUnit = 2
)

// RelayFlags is the Care Relay output state.
type RelayFlags struct {
	Output bool
}

// SensorFlags is the Care Sensor digital IO state. Input doubles as the
// magnet direction on magnetic models.
type SensorFlags struct {
	Input  bool
	Output bool
	Motion bool
}

// Position is an accelerometer reading.
type Position struct {
	X, Y, Z int16
}

// State is the decoded state of a device. Nil means the field has never
// been received; composite fields are replaced whole, never merged.
type State struct {
	RSSI      *int16
	LocalName *string
	TxPower   *int16
	RTTO      *bool
	Alarms    *Alarms

	Relay *RelayFlags

	Constant     *uint16
	Unit         *MeterUnit
	Total        *float64
	Average      *float64
	LightLevel   *float64
	WeekDay      *uint16
	WeekDayTotal *float64

	Sensor        *SensorFlags
	Temperature   *float64
	Humidity      *float64
	MagneticField *uint16
	Pressure      *float64
	Position      *Position
	Groups        *uint16
	Time          *time.Time

	BatteryLevel   *uint8
	BatteryVoltage *float64
}

// changed reports whether a field differs between two states. Absent on
// both sides is unchanged; any other asymmetry, or differing values, is a
// change. Struct-valued fields compare shallowly, which makes a composite
// change a whole-object replacement.
func changed[T comparable](old, next *T) bool {
	switch {
	case old == nil && next == nil:
		return false
	case old == nil || next == nil:
		return true
	default:
		return *old != *next
	}
}

// Compare returns the set of fields that differ between old and next.
// It is a pure function of its inputs.
func Compare(old, next *State) Diff {
	var d Diff

	if changed(old.RSSI, next.RSSI) {
		d.Set(FieldRSSI)
	}
	if changed(old.LocalName, next.LocalName) {
		d.Set(FieldLocalName)
	}
	if changed(old.TxPower, next.TxPower) {
		d.Set(FieldTxPower)
	}
	if changed(old.RTTO, next.RTTO) {
		d.Set(FieldRTTO)
	}
	if changed(old.Alarms, next.Alarms) {
		d.Set(FieldAlarms)
	}
	if changed(old.Relay, next.Relay) {
		d.Set(FieldRelayFlags)
	}
	if changed(old.Constant, next.Constant) {
		d.Set(FieldMeterConstant)
	}
	if changed(old.Unit, next.Unit) {
		d.Set(FieldMeterUnit)
	}
	if changed(old.Total, next.Total) {
		d.Set(FieldTotal)
	}
	if changed(old.Average, next.Average) {
		d.Set(FieldAverage)
	}
	if changed(old.LightLevel, next.LightLevel) {
		d.Set(FieldLightLevel)
	}
	if changed(old.WeekDay, next.WeekDay) {
		d.Set(FieldWeekDay)
	}
	if changed(old.WeekDayTotal, next.WeekDayTotal) {
		d.Set(FieldWeekDayTotal)
	}
	if changed(old.Sensor, next.Sensor) {
		d.Set(FieldSensorFlags)
	}
	if changed(old.Temperature, next.Temperature) {
		d.Set(FieldTemperature)
	}
	if changed(old.Humidity, next.Humidity) {
		d.Set(FieldHumidity)
	}
	if changed(old.MagneticField, next.MagneticField) {
		d.Set(FieldMagneticField)
	}
	if changed(old.Pressure, next.Pressure) {
		d.Set(FieldPressure)
	}
	if changed(old.Position, next.Position) {
		d.Set(FieldPosition)
	}
	if changed(old.Groups, next.Groups) {
		d.Set(FieldGroups)
	}
	if timeChanged(old.Time, next.Time) {
		d.Set(FieldTime)
	}
	if changed(old.BatteryLevel, next.BatteryLevel) {
		d.Set(FieldBatteryLevel)
	}
	if changed(old.BatteryVoltage, next.BatteryVoltage) {
		d.Set(FieldBatteryVoltage)
	}

	return d
}

// timeChanged compares timestamps with time.Time.Equal, not ==.
func timeChanged(old, next *time.Time) bool {
	switch {
	case old == nil && next == nil:
		return false
	case old == nil || next == nil:
		return true
	default:
		return !old.Equal(*next)
	}
}
