package influxdb_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/inode-tools/inode-modbus-gateway/internal/infrastructure/config"
	"github.com/inode-tools/inode-modbus-gateway/internal/infrastructure/influxdb"
)

// testConfig returns a configuration for the local dev InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "inodegw-dev-token",
		Org:           "inode",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1, // 1 second for faster test feedback
	}
}

// skipIfNoInfluxDB skips the test if InfluxDB is not running.
func skipIfNoInfluxDB(t *testing.T) {
	t.Helper()
	if os.Getenv("RUN_INTEGRATION") == "" {
		cfg := testConfig()
		client, err := influxdb.Connect(cfg)
		if err != nil {
			t.Skip("InfluxDB not available, skipping integration test")
		}
		client.Close()
	}
}

// trackErrors registers an error callback and returns a getter.
func trackErrors(client *influxdb.Client) func() error {
	var (
		mu       sync.Mutex
		writeErr error
	)
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})
	return func() error {
		mu.Lock()
		defer mu.Unlock()
		return writeErr
	}
}

func TestConnect(t *testing.T) {
	skipIfNoInfluxDB(t)
	cfg := testConfig()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_InvalidURL(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999" // Non-existent port

	_, err := influxdb.Connect(cfg)
	if err == nil {
		t.Fatal("Connect() should return error for invalid URL")
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	skipIfNoInfluxDB(t)
	cfg := testConfig()
	cfg.BatchSize = 0     // Should use default
	cfg.FlushInterval = 0 // Should use default

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect() with default batch settings")
	}
}

func TestHealthCheck(t *testing.T) {
	skipIfNoInfluxDB(t)
	cfg := testConfig()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestWriteSensorMetric(t *testing.T) {
	skipIfNoInfluxDB(t)
	cfg := testConfig()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	lastErr := trackErrors(client)

	client.WriteSensorMetric("D0:F0:18:00:00:01", "iNode Care Sensor HT", "temperature_c", 21.34)
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := lastErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWriteMeterReading(t *testing.T) {
	skipIfNoInfluxDB(t)
	cfg := testConfig()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	lastErr := trackErrors(client)

	client.WriteMeterReading("D0:F0:18:00:00:02", "kwh", 1234.56, 1.5)
	// Zero average must be accepted and simply skip the field.
	client.WriteMeterReading("D0:F0:18:00:00:02", "kwh", 1234.56, 0)
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := lastErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWriteSignal(t *testing.T) {
	skipIfNoInfluxDB(t)
	cfg := testConfig()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	lastErr := trackErrors(client)

	client.WriteSignal("D0:F0:18:00:00:01", -67)
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := lastErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWritePoint(t *testing.T) {
	skipIfNoInfluxDB(t)
	cfg := testConfig()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	lastErr := trackErrors(client)

	client.WritePoint(
		"custom_measurement",
		map[string]string{"source": "test"},
		map[string]interface{}{"value": 99.9, "count": 5},
	)
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := lastErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestWritePointWithTime(t *testing.T) {
	skipIfNoInfluxDB(t)
	cfg := testConfig()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	lastErr := trackErrors(client)

	timestamp := time.Now().Add(-1 * time.Hour)
	client.WritePointWithTime(
		"custom_measurement",
		map[string]string{"source": "test-with-time"},
		map[string]interface{}{"value": 88.8},
		timestamp,
	)
	client.Flush()

	time.Sleep(100 * time.Millisecond)
	if err := lastErr(); err != nil {
		t.Errorf("Write error = %v", err)
	}
}

func TestClose(t *testing.T) {
	skipIfNoInfluxDB(t)
	cfg := testConfig()

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	client.WriteSensorMetric("D0:F0:18:00:00:01", "iNode Care Sensor T", "temperature_c", 1.0)

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}
