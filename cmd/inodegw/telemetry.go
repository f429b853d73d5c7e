package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/inode-tools/inode-modbus-gateway/internal/gateway"
	"github.com/inode-tools/inode-modbus-gateway/internal/infrastructure/influxdb"
	"github.com/inode-tools/inode-modbus-gateway/internal/infrastructure/logging"
	"github.com/inode-tools/inode-modbus-gateway/internal/infrastructure/mqtt"
	"github.com/inode-tools/inode-modbus-gateway/internal/inode"
)

// publishQueueSize bounds the fanout backlog. Updates beyond it are
// dropped; the register image always stays current regardless.
const publishQueueSize = 256

// availabilityPollInterval is how often device staleness is re-checked
// for the MQTT availability topics.
const availabilityPollInterval = 5 * time.Second

// update is one device change captured on the ingest path.
type update struct {
	mac   string
	model inode.Model
	state inode.State
	diff  inode.Diff
}

// publisher fans device updates out to MQTT and InfluxDB. The ingest
// callback only enqueues; all broker and database traffic happens on
// the run goroutine so a slow sink never stalls HCI decoding.
type publisher struct {
	gw     *gateway.Gateway
	log    *logging.Logger
	mqtt   *mqtt.Client
	influx *influxdb.Client
	qos    byte

	ch        chan update
	available map[string]bool
}

func newPublisher(gw *gateway.Gateway, log *logging.Logger, mqttClient *mqtt.Client, influxClient *influxdb.Client, qos byte) *publisher {
	return &publisher{
		gw:        gw,
		log:       log,
		mqtt:      mqttClient,
		influx:    influxClient,
		qos:       qos,
		ch:        make(chan update, publishQueueSize),
		available: make(map[string]bool),
	}
}

// enqueue is the gateway update callback. It runs on the ingest path
// and must not block or call back into the gateway.
func (p *publisher) enqueue(d *inode.Device, diff inode.Diff) {
	u := update{
		mac:   d.MAC(),
		model: d.Model(),
		state: d.State(),
		diff:  diff,
	}
	select {
	case p.ch <- u:
	default:
		p.log.Warn("telemetry backlog full, dropping update", "mac", u.mac)
	}
}

// run drains the queue until the context is cancelled. With neither
// sink configured it still consumes updates so the queue never fills.
func (p *publisher) run(ctx context.Context) error {
	ticker := time.NewTicker(availabilityPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u := <-p.ch:
			p.publish(u)
		case <-ticker.C:
			p.publishAvailability()
		}
	}
}

func (p *publisher) publish(u update) {
	if p.mqtt != nil {
		payload, err := json.Marshal(statePayload(u))
		if err != nil {
			p.log.Error("encoding state payload", "mac", u.mac, "error", err)
		} else {
			topic := mqtt.Topics{}.DeviceState(u.mac)
			if pubErr := p.mqtt.Publish(topic, payload, p.qos, true); pubErr != nil {
				p.log.Warn("publishing device state", "mac", u.mac, "error", pubErr)
			}
		}
	}
	if p.influx != nil {
		p.writeMetrics(u)
	}
}

// publishAvailability emits online/offline transitions for every
// registered device. The first poll publishes the initial value.
func (p *publisher) publishAvailability() {
	if p.mqtt == nil {
		return
	}
	for _, v := range p.gw.Snapshot() {
		prev, seen := p.available[v.MAC]
		if seen && prev == v.Available {
			continue
		}
		p.available[v.MAC] = v.Available

		payload := "offline"
		if v.Available {
			payload = "online"
		}
		topic := mqtt.Topics{}.DeviceAvailability(v.MAC)
		if err := p.mqtt.PublishString(topic, payload, p.qos, true); err != nil {
			p.log.Warn("publishing availability", "mac", v.MAC, "error", err)
			delete(p.available, v.MAC) // retry on the next poll
		}
	}
}

// writeMetrics maps the changed fields of one update onto InfluxDB
// measurements. Unchanged fields are skipped so repeated advertisements
// do not inflate the series.
func (p *publisher) writeMetrics(u update) {
	model := u.model.String()
	for _, m := range sensorMetrics(u.diff, u.state) {
		p.influx.WriteSensorMetric(u.mac, model, m.name, m.value)
	}
	if (u.diff.Has(inode.FieldTotal) || u.diff.Has(inode.FieldAverage)) && u.state.Total != nil {
		average := 0.0
		if u.state.Average != nil {
			average = *u.state.Average
		}
		p.influx.WriteMeterReading(u.mac, meterUnitName(u.state.Unit), *u.state.Total, average)
	}
	if u.diff.Has(inode.FieldRSSI) && u.state.RSSI != nil {
		p.influx.WriteSignal(u.mac, int(*u.state.RSSI))
	}
}

// metric is one named scalar destined for the sensor measurement.
type metric struct {
	name  string
	value float64
}

// sensorMetrics selects the changed scalar readings of an update.
func sensorMetrics(diff inode.Diff, st inode.State) []metric {
	var out []metric
	add := func(f inode.Field, name string, v *float64) {
		if diff.Has(f) && v != nil {
			out = append(out, metric{name, *v})
		}
	}

	add(inode.FieldTemperature, "temperature_c", st.Temperature)
	add(inode.FieldHumidity, "humidity_pct", st.Humidity)
	add(inode.FieldPressure, "pressure_hpa", st.Pressure)
	add(inode.FieldLightLevel, "light_pct", st.LightLevel)
	add(inode.FieldBatteryVoltage, "battery_v", st.BatteryVoltage)

	if diff.Has(inode.FieldMagneticField) && st.MagneticField != nil {
		out = append(out, metric{"magnetic_field", float64(*st.MagneticField)})
	}
	if diff.Has(inode.FieldBatteryLevel) && st.BatteryLevel != nil {
		out = append(out, metric{"battery_pct", float64(*st.BatteryLevel)})
	}
	return out
}

// statePayload renders an update as the MQTT state document. Readings
// the device has never sent are left out.
func statePayload(u update) map[string]any {
	out := map[string]any{
		"mac":   u.mac,
		"model": u.model.String(),
	}

	put := func(key string, v any) { out[key] = v }
	st := u.state

	if st.RSSI != nil {
		put("rssi", *st.RSSI)
	}
	if st.LocalName != nil {
		put("name", *st.LocalName)
	}
	if st.Alarms != nil {
		put("alarms", uint16(*st.Alarms))
	}
	if st.Relay != nil {
		put("relay_output", st.Relay.Output)
	}
	if st.Total != nil {
		put("total", *st.Total)
		put("unit", meterUnitName(st.Unit))
	}
	if st.Average != nil {
		put("average", *st.Average)
	}
	if st.LightLevel != nil {
		put("light_pct", *st.LightLevel)
	}
	if st.Sensor != nil {
		put("input", st.Sensor.Input)
		put("output", st.Sensor.Output)
		put("motion", st.Sensor.Motion)
	}
	if st.Temperature != nil {
		put("temperature_c", *st.Temperature)
	}
	if st.Humidity != nil {
		put("humidity_pct", *st.Humidity)
	}
	if st.MagneticField != nil {
		put("magnetic_field", *st.MagneticField)
	}
	if st.Pressure != nil {
		put("pressure_hpa", *st.Pressure)
	}
	if st.Position != nil {
		put("position", []int16{st.Position.X, st.Position.Y, st.Position.Z})
	}
	if st.BatteryLevel != nil {
		put("battery_pct", *st.BatteryLevel)
	}
	if st.BatteryVoltage != nil {
		put("battery_v", *st.BatteryVoltage)
	}
	return out
}

// meterUnitName names the meter unit for payloads and measurement tags.
func meterUnitName(u *inode.MeterUnit) string {
	if u == nil {
		return "kwh"
	}
	switch *u {
	case inode.UnitCubicMeters:
		return "m3"
	case inode.UnitCount:
		return "count"
	default:
		return "kwh"
	}
}
