package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validBase returns a config that passes validation, for tests to break
// one field at a time.
func validBase() *Config {
	return &Config{
		Gateway: GatewayConfig{AvailabilityTimeout: 90},
		Devices: []DeviceConfig{
			{MAC: "D0:F0:18:00:00:01", Unit: 1},
		},
		Connections: []ConnectionConfig{
			{Type: "tcp", Address: "localhost:5000"},
		},
		Modbus: ModbusConfig{Listen: ":502"},
		MQTT:   MQTTConfig{QoS: 1},
		API:    APIConfig{Enabled: true, Port: 8080},
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
gateway:
  availability_timeout: 120
devices:
  - mac: "D0:F0:18:00:00:01"
    unit: 1
  - mac: "D0:F0:18:00:00:02"
    unit: 2
connections:
  - name: "roof-antenna"
    type: tcp
    address: "10.0.0.5:5000"
  - type: serial
    port: "/dev/ttyUSB0"
    baud_rate: 921600
    hex_text: true
modbus:
  listen: ":1502"
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GetAvailabilityTimeout() != 2*time.Minute {
		t.Errorf("GetAvailabilityTimeout() = %v, want 2m", cfg.GetAvailabilityTimeout())
	}

	if len(cfg.Devices) != 2 || cfg.Devices[1].Unit != 2 {
		t.Errorf("Devices = %+v, want two entries", cfg.Devices)
	}

	if len(cfg.Connections) != 2 {
		t.Fatalf("len(Connections) = %d, want 2", len(cfg.Connections))
	}
	if cfg.Connections[0].Name != "roof-antenna" {
		t.Errorf("Connections[0].Name = %q, want %q", cfg.Connections[0].Name, "roof-antenna")
	}
	if !cfg.Connections[1].HexText {
		t.Error("Connections[1].HexText = false, want true")
	}

	if cfg.Modbus.Listen != ":1502" {
		t.Errorf("Modbus.Listen = %q, want %q", cfg.Modbus.Listen, ":1502")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
modbus:
  listen: ":502"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty device list, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "no devices",
			mutate:  func(c *Config) { c.Devices = nil },
			wantErr: true,
		},
		{
			name:    "invalid mac",
			mutate:  func(c *Config) { c.Devices[0].MAC = "not-a-mac" },
			wantErr: true,
		},
		{
			name: "duplicate unit",
			mutate: func(c *Config) {
				c.Devices = append(c.Devices, DeviceConfig{MAC: "D0:F0:18:00:00:02", Unit: 1})
			},
			wantErr: true,
		},
		{
			name: "duplicate mac in different notation",
			mutate: func(c *Config) {
				c.Devices = append(c.Devices, DeviceConfig{MAC: "d0-f0-18-00-00-01", Unit: 2})
			},
			wantErr: true,
		},
		{
			name:    "unit above range",
			mutate:  func(c *Config) { c.Devices[0].Unit = 256 },
			wantErr: true,
		},
		{
			name:    "no connections",
			mutate:  func(c *Config) { c.Connections = nil },
			wantErr: true,
		},
		{
			name:    "unknown connection type",
			mutate:  func(c *Config) { c.Connections[0].Type = "carrier-pigeon" },
			wantErr: true,
		},
		{
			name:    "tcp connection without address",
			mutate:  func(c *Config) { c.Connections[0].Address = "" },
			wantErr: true,
		},
		{
			name: "serial connection without port",
			mutate: func(c *Config) {
				c.Connections[0] = ConnectionConfig{Type: "serial"}
			},
			wantErr: true,
		},
		{
			name:    "missing modbus listen",
			mutate:  func(c *Config) { c.Modbus.Listen = "" },
			wantErr: true,
		},
		{
			name:    "zero availability timeout",
			mutate:  func(c *Config) { c.Gateway.AvailabilityTimeout = 0 },
			wantErr: true,
		},
		{
			name: "invalid QoS",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.QoS = 3
			},
			wantErr: true,
		},
		{
			name: "influxdb enabled without token",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
			},
			wantErr: true,
		},
		{
			name:    "invalid api port",
			mutate:  func(c *Config) { c.API.Port = 70000 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_GetTimeouts(t *testing.T) {
	cfg := &Config{
		API: APIConfig{
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 45,
				Idle:  60,
			},
		},
	}

	if got := cfg.GetReadTimeout().Seconds(); got != 30 {
		t.Errorf("GetReadTimeout() = %v, want 30", got)
	}

	if got := cfg.GetWriteTimeout().Seconds(); got != 45 {
		t.Errorf("GetWriteTimeout() = %v, want 45", got)
	}

	if got := cfg.GetIdleTimeout().Seconds(); got != 60 {
		t.Errorf("GetIdleTimeout() = %v, want 60", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("INODEGW_MODBUS_LISTEN", ":10502")
	t.Setenv("INODEGW_MQTT_HOST", "mqtt.example.com")
	t.Setenv("INODEGW_MQTT_USERNAME", "testuser")
	t.Setenv("INODEGW_MQTT_PASSWORD", "testpass")
	t.Setenv("INODEGW_API_HOST", "192.168.1.1")
	t.Setenv("INODEGW_API_PORT", "9090")
	t.Setenv("INODEGW_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Modbus.Listen != ":10502" {
		t.Errorf("Modbus.Listen = %q, want %q", cfg.Modbus.Listen, ":10502")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.API.Host != "192.168.1.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "192.168.1.1")
	}

	if cfg.API.Port != 9090 {
		t.Errorf("API.Port = %d, want 9090", cfg.API.Port)
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Gateway.AvailabilityTimeout <= 0 {
		t.Error("defaultConfig should have a positive availability timeout")
	}

	if cfg.Modbus.Listen == "" {
		t.Error("defaultConfig should have a non-empty Modbus.Listen")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("defaultConfig API.Port = %d, want 8080", cfg.API.Port)
	}
}
