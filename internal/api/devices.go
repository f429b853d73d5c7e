package api

import (
	"encoding/binary"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/inode-tools/inode-modbus-gateway/internal/gateway"
	"github.com/inode-tools/inode-modbus-gateway/internal/inode"
)

// healthResponse is the payload for GET /api/v1/health.
type healthResponse struct {
	Status           string `json:"status"`
	Version          string `json:"version"`
	Devices          int    `json:"devices"`
	AvailableDevices int    `json:"available_devices"`
}

// deviceSummary is one entry of the device list.
type deviceSummary struct {
	MAC       string `json:"mac"`
	Unit      uint8  `json:"unit"`
	Model     string `json:"model"`
	ModelCode uint16 `json:"model_code"`
	Available bool   `json:"available"`
	LastSeen  string `json:"last_seen,omitempty"`
	Registers int    `json:"registers"`
}

// deviceDetail extends the summary with the decoded state.
type deviceDetail struct {
	deviceSummary
	State stateJSON `json:"state"`
}

// stateJSON is the JSON rendering of a device state. Readings the device
// has never sent are omitted.
type stateJSON struct {
	RSSI      *int16  `json:"rssi,omitempty"`
	LocalName *string `json:"local_name,omitempty"`
	TxPower   *int16  `json:"tx_power,omitempty"`
	RTTO      *bool   `json:"rtto,omitempty"`
	Alarms    *uint16 `json:"alarms,omitempty"`

	RelayOutput *bool `json:"relay_output,omitempty"`

	MeterConstant *uint16  `json:"meter_constant,omitempty"`
	MeterUnit     *string  `json:"meter_unit,omitempty"`
	Total         *float64 `json:"total,omitempty"`
	Average       *float64 `json:"average,omitempty"`
	LightLevel    *float64 `json:"light_level,omitempty"`
	WeekDay       *uint16  `json:"week_day,omitempty"`
	WeekDayTotal  *float64 `json:"week_day_total,omitempty"`

	Input         *bool      `json:"input,omitempty"`
	Output        *bool      `json:"output,omitempty"`
	Motion        *bool      `json:"motion,omitempty"`
	Temperature   *float64   `json:"temperature,omitempty"`
	Humidity      *float64   `json:"humidity,omitempty"`
	MagneticField *uint16    `json:"magnetic_field,omitempty"`
	Pressure      *float64   `json:"pressure,omitempty"`
	Position      []int16    `json:"position,omitempty"`
	Groups        *uint16    `json:"groups,omitempty"`
	DeviceTime    *time.Time `json:"device_time,omitempty"`

	BatteryLevel   *uint8   `json:"battery_level,omitempty"`
	BatteryVoltage *float64 `json:"battery_voltage,omitempty"`
}

// registersResponse is the payload for GET /api/v1/devices/{unit}/registers.
type registersResponse struct {
	Unit      uint8    `json:"unit"`
	Registers []uint16 `json:"registers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	devices := s.gateway.Snapshot()
	available := 0
	for _, d := range devices {
		if d.Available {
			available++
		}
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		Version:          s.version,
		Devices:          len(devices),
		AvailableDevices: available,
	})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices := s.gateway.Snapshot()
	out := make([]deviceSummary, 0, len(devices))
	for _, d := range devices {
		out = append(out, summarize(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	d, ok := s.deviceFromURL(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, deviceDetail{
		deviceSummary: summarize(d),
		State:         renderState(d.State),
	})
}

func (s *Server) handleGetRegisters(w http.ResponseWriter, r *http.Request) {
	d, ok := s.deviceFromURL(w, r)
	if !ok {
		return
	}

	resp := registersResponse{Unit: d.Unit, Registers: []uint16{}}
	if len(d.Image) >= 2 {
		resp.Registers = make([]uint16, len(d.Image)/2)
		for i := range resp.Registers {
			resp.Registers[i] = binary.BigEndian.Uint16(d.Image[i*2:])
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// deviceFromURL resolves the {unit} path parameter to a device view,
// writing the error response when it cannot.
func (s *Server) deviceFromURL(w http.ResponseWriter, r *http.Request) (gateway.DeviceView, bool) {
	unit, err := strconv.Atoi(chi.URLParam(r, "unit"))
	if err != nil || unit < 0 || unit > inode.MaxUnit {
		writeBadRequest(w, "unit must be an integer between 0 and 255")
		return gateway.DeviceView{}, false
	}

	d, ok := s.gateway.SnapshotByUnit(uint8(unit))
	if !ok {
		writeNotFound(w, "no device registered under this unit")
		return gateway.DeviceView{}, false
	}
	return d, true
}

func summarize(d gateway.DeviceView) deviceSummary {
	sum := deviceSummary{
		MAC:       d.MAC,
		Unit:      d.Unit,
		Model:     d.Model.String(),
		ModelCode: uint16(d.Model),
		Available: d.Available,
		Registers: d.Registers,
	}
	if !d.LastSeen.IsZero() {
		sum.LastSeen = d.LastSeen.UTC().Format(time.RFC3339)
	}
	return sum
}

func renderState(st inode.State) stateJSON {
	out := stateJSON{
		RSSI:          st.RSSI,
		LocalName:     st.LocalName,
		TxPower:       st.TxPower,
		RTTO:          st.RTTO,
		MeterConstant: st.Constant,
		Total:         st.Total,
		Average:       st.Average,
		LightLevel:    st.LightLevel,
		WeekDay:       st.WeekDay,
		WeekDayTotal:  st.WeekDayTotal,
		Temperature:   st.Temperature,
		Humidity:      st.Humidity,
		MagneticField: st.MagneticField,
		Pressure:      st.Pressure,
		Groups:        st.Groups,
		DeviceTime:    st.Time,

		BatteryLevel:   st.BatteryLevel,
		BatteryVoltage: st.BatteryVoltage,
	}

	if st.Alarms != nil {
		alarms := uint16(*st.Alarms)
		out.Alarms = &alarms
	}
	if st.Relay != nil {
		output := st.Relay.Output
		out.RelayOutput = &output
	}
	if st.Unit != nil {
		unit := meterUnitName(*st.Unit)
		out.MeterUnit = &unit
	}
	if st.Sensor != nil {
		input, output, motion := st.Sensor.Input, st.Sensor.Output, st.Sensor.Motion
		out.Input, out.Output, out.Motion = &input, &output, &motion
	}
	if st.Position != nil {
		out.Position = []int16{st.Position.X, st.Position.Y, st.Position.Z}
	}

	return out
}

func meterUnitName(u inode.MeterUnit) string {
	switch u {
	case inode.UnitCubicMeters:
		return "m3"
	case inode.UnitCount:
		return "count"
	default:
		return "kwh"
	}
}
