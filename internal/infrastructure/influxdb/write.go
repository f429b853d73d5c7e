package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorMetric writes a single sensor reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - mac: Device MAC address, used as the series tag
//   - model: Human-readable model name (e.g., "iNode Care Sensor HT")
//   - metric: The reading name (e.g., "temperature_c", "humidity_pct")
//   - value: The numeric value to record
//
// Example:
//
//	client.WriteSensorMetric("D0:F0:18:00:00:01", "iNode Care Sensor HT", "temperature_c", 21.34)
func (c *Client) WriteSensorMetric(mac, model, metric string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor",
		map[string]string{
			"mac":    mac,
			"model":  model,
			"metric": metric,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteMeterReading writes an energy meter measurement.
//
// Parameters:
//   - mac: Device MAC address
//   - unit: The counting unit ("kwh", "m3" or "count")
//   - total: Cumulative consumption in the meter's unit
//   - average: Averaged consumption rate (optional, use 0 if unknown)
func (c *Client) WriteMeterReading(mac, unit string, total, average float64) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{
		"total": total,
	}
	if average > 0 {
		fields["average"] = average
	}

	point := write.NewPoint(
		"meter",
		map[string]string{
			"mac":  mac,
			"unit": unit,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSignal writes the radio signal strength observed for a device.
//
// Useful for tracking link quality and antenna placement over time.
func (c *Client) WriteSignal(mac string, rssi int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"signal",
		map[string]string{
			"mac": mac,
		},
		map[string]interface{}{
			"rssi": rssi,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for custom measurements that don't fit the helper methods.
//
// Parameters:
//   - measurement: The measurement name (table)
//   - tags: Key-value pairs for indexing (low cardinality)
//   - fields: Key-value pairs for the actual data
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now". Sensor frames carry the
// device clock, which can lag wall time when a device buffers reports.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
