// Package influxdb provides InfluxDB connectivity for the gateway.
//
// It wraps the official influxdb-client-go v2 library with gateway-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Sensor readings (temperature, humidity, pressure, magnetic field)
//   - Energy meter counters and averages
//   - Radio signal strength per device
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "inode",
//	    Bucket: "telemetry",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteSensorMetric("D0:F0:18:00:00:01", "iNode Care Sensor HT", "temperature_c", 21.34)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
