package inode

import (
	"encoding/binary"
	"time"
)

// Manufacturer-specific payload geometry. All multi-byte wire fields are
// little-endian, as transmitted by the devices.
//
//	Byte 0:    control flags (bit 0: RTTO)
//	Byte 1:    model code
//	Bytes 2-3: alarm bitset
//	Bytes 4+:  family payload
const (
	msdHeaderSize = 4

	msdFlagRTTO = 0x01

	// unavailable marks battery, light level and week day bytes the
	// device could not measure.
	unavailable = 0xFF

	// Wire sentinels for sensor readings the device skipped this frame.
	rawTemperatureUnset = 0x7FFF
	rawReadingUnset     = 0xFFFF

	relayPayloadSize  = 1
	meterPayloadSize  = 15
	sensorPayloadSize = 17
)

// Telemetry is the decoded manufacturer-specific payload of one iNode
// advertisement. Exactly one of Relay, Meter and Sensor is set, matching
// the model family.
type Telemetry struct {
	Model  Model
	RTTO   bool
	Alarms Alarms

	Relay  *RelayTelemetry
	Meter  *MeterTelemetry
	Sensor *SensorTelemetry
}

// RelayTelemetry is the Care Relay family payload.
type RelayTelemetry struct {
	Flags RelayFlags
}

// MeterTelemetry is the Energy Meter family payload. Counters are already
// divided by the meter constant, except in pulse-count mode where they
// stay exact.
type MeterTelemetry struct {
	Constant     uint16
	Unit         MeterUnit
	Total        float64
	Average      float64
	LightLevel   *float64
	WeekDay      *uint16
	WeekDayTotal float64

	BatteryLevel   *uint8
	BatteryVoltage *float64
}

// SensorTelemetry is the Care Sensor family payload. Readings outside the
// model's capabilities are nil.
type SensorTelemetry struct {
	Flags         SensorFlags
	Temperature   *float64
	Humidity      *float64
	MagneticField *uint16
	Pressure      *float64
	Position      *Position
	Groups        uint16
	Time          time.Time

	BatteryLevel   *uint8
	BatteryVoltage *float64
}

// DecodeTelemetry parses an iNode manufacturer-specific payload. The
// second return is false when the payload is not a recognizable iNode
// frame; callers must then leave the device untouched.
func DecodeTelemetry(msd []byte) (*Telemetry, bool) {
	if len(msd) < msdHeaderSize {
		return nil, false
	}

	model := Model(msd[1])
	if !model.Valid() {
		return nil, false
	}

	tel := &Telemetry{
		Model:  model,
		RTTO:   msd[0]&msdFlagRTTO != 0,
		Alarms: Alarms(binary.LittleEndian.Uint16(msd[2:4])) & alarmMask,
	}
	body := msd[msdHeaderSize:]

	switch model.Family() {
	case FamilyRelay:
		if len(body) < relayPayloadSize {
			return nil, false
		}
		tel.Relay = decodeRelay(body)
	case FamilyMeter:
		if len(body) < meterPayloadSize {
			return nil, false
		}
		tel.Meter = decodeMeter(body)
	case FamilySensor:
		if len(body) < sensorPayloadSize {
			return nil, false
		}
		tel.Sensor = decodeSensor(model, body)
	default:
		return nil, false
	}

	return tel, true
}

func decodeRelay(body []byte) *RelayTelemetry {
	return &RelayTelemetry{
		Flags: RelayFlags{Output: body[0]&0x01 != 0},
	}
}

// decodeMeter parses the Energy Meter payload:
//
//	Bytes 0-1:  options: bits 0-1 unit, bits 2-15 meter constant
//	Bytes 2-5:  raw total (impulse count)
//	Bytes 6-7:  raw average
//	Byte  8:    battery level %, 0xFF unavailable
//	Byte  9:    light level %, 0xFF unavailable
//	Byte  10:   week day 0-6, 0xFF unavailable
//	Bytes 11-14: raw week-day total
func decodeMeter(body []byte) *MeterTelemetry {
	options := binary.LittleEndian.Uint16(body[0:2])
	unit := MeterUnit(options & 0x03)
	constant := options >> 2
	if constant == 0 {
		constant = 1
	}

	rawTotal := binary.LittleEndian.Uint32(body[2:6])
	rawAverage := binary.LittleEndian.Uint16(body[6:8])
	rawWeekDayTotal := binary.LittleEndian.Uint32(body[11:15])

	m := &MeterTelemetry{
		Constant: constant,
		Unit:     unit,
	}
	if unit == UnitCount {
		// Pulse counting: impulses are the measurement itself.
		m.Total = float64(rawTotal)
		m.Average = float64(rawAverage)
		m.WeekDayTotal = float64(rawWeekDayTotal)
	} else {
		m.Total = float64(rawTotal) / float64(constant)
		m.Average = float64(rawAverage) / float64(constant)
		m.WeekDayTotal = float64(rawWeekDayTotal) / float64(constant)
	}

	m.BatteryLevel, m.BatteryVoltage = decodeBattery(body[8])

	if body[9] != unavailable {
		light := float64(body[9])
		if light > 100 {
			light = 100
		}
		m.LightLevel = &light
	}
	if body[10] != unavailable {
		day := uint16(body[10])
		m.WeekDay = &day
	}

	return m
}

// decodeSensor parses the Care Sensor payload:
//
//	Byte  0:     IO flags: bit 0 input/magnet direction, bit 1 output,
//	             bit 2 motion
//	Bytes 1-2:   temperature, signed centidegrees
//	Bytes 3-4:   humidity centi-%RH, or raw magnetic field on #5
//	Bytes 5-6:   pressure, 1/16 hPa
//	Bytes 7-9:   position x/y/z, signed bytes
//	Byte  10:    battery level %, 0xFF unavailable
//	Bytes 11-12: group bitset
//	Bytes 13-16: device clock, unix seconds
//
// Readings outside the model's capabilities are dropped here so they
// render as the sentinel downstream.
func decodeSensor(model Model, body []byte) *SensorTelemetry {
	caps := model.caps()

	s := &SensorTelemetry{
		Flags: SensorFlags{
			Input:  body[0]&0x01 != 0,
			Output: body[0]&0x02 != 0,
			Motion: body[0]&0x04 != 0,
		},
		Groups: binary.LittleEndian.Uint16(body[11:13]),
		Time:   time.Unix(int64(binary.LittleEndian.Uint32(body[13:17])), 0),
	}

	if raw := binary.LittleEndian.Uint16(body[1:3]); caps.temperature && raw != rawTemperatureUnset {
		t := float64(int16(raw)) / 100
		s.Temperature = &t
	}
	if raw := binary.LittleEndian.Uint16(body[3:5]); caps.humidity && raw != rawReadingUnset {
		h := float64(raw) / 100
		s.Humidity = &h
	}
	if raw := binary.LittleEndian.Uint16(body[3:5]); caps.magnetic && raw != rawReadingUnset {
		f := raw
		s.MagneticField = &f
	}
	if raw := binary.LittleEndian.Uint16(body[5:7]); caps.pressure && raw != rawReadingUnset {
		p := float64(raw) / 16
		s.Pressure = &p
	}
	if caps.position {
		s.Position = &Position{
			X: int16(int8(body[7])),
			Y: int16(int8(body[8])),
			Z: int16(int8(body[9])),
		}
	}

	s.BatteryLevel, s.BatteryVoltage = decodeBattery(body[10])

	return s
}

// decodeBattery converts the battery byte into a level and an estimated
// cell voltage (1.8 V empty, 3.0 V full).
func decodeBattery(raw byte) (*uint8, *float64) {
	if raw == unavailable {
		return nil, nil
	}
	level := raw
	if level > 100 {
		level = 100
	}
	voltage := 1.8 + 1.2*float64(level)/100
	return &level, &voltage
}
