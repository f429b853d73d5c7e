package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/inode-tools/inode-modbus-gateway/internal/inode"
)

// Config is the root configuration structure for the iNode MODBUS
// gateway. All configuration is loaded from YAML and can be overridden
// by environment variables.
type Config struct {
	Gateway     GatewayConfig      `yaml:"gateway"`
	Devices     []DeviceConfig     `yaml:"devices"`
	Connections []ConnectionConfig `yaml:"connections"`
	Modbus      ModbusConfig       `yaml:"modbus"`
	MQTT        MQTTConfig         `yaml:"mqtt"`
	InfluxDB    InfluxDBConfig     `yaml:"influxdb"`
	API         APIConfig          `yaml:"api"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// GatewayConfig contains registry-wide settings.
type GatewayConfig struct {
	// AvailabilityTimeout is how long, in seconds, a device may stay
	// silent before MODBUS reads answer with a gateway target failure.
	AvailabilityTimeout int `yaml:"availability_timeout"`

	// LogUnknownDevices enables a log line for advertisements from
	// addresses that are not in the device list.
	LogUnknownDevices bool `yaml:"log_unknown_devices"`
}

// DeviceConfig maps one iNode device onto a MODBUS unit.
type DeviceConfig struct {
	MAC  string `yaml:"mac"`
	Unit int    `yaml:"unit"`
}

// ConnectionConfig describes one HCI byte-stream source.
type ConnectionConfig struct {
	// Name identifies the connection in logs. Defaults to the address
	// or port when empty.
	Name string `yaml:"name"`

	// Type selects the transport: "tcp" or "serial".
	Type string `yaml:"type"`

	// Address is the host:port of a TCP stream source.
	Address string `yaml:"address"`

	// Port is the serial device path, e.g. /dev/ttyUSB0.
	Port string `yaml:"port"`

	// BaudRate for serial connections. Defaults to 115200.
	BaudRate int `yaml:"baud_rate"`

	// HexText switches the connection into hex-text mode, where the
	// peer sends the stream as ASCII hex digits.
	HexText bool `yaml:"hex_text"`
}

// ModbusConfig contains the MODBUS/TCP slave settings. IdleTimeout is
// in seconds.
type ModbusConfig struct {
	Listen      string `yaml:"listen"`
	IdleTimeout int    `yaml:"idle_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains the HTTP status API settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: INODEGW_SECTION_KEY
// For example: INODEGW_MODBUS_LISTEN, INODEGW_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			AvailabilityTimeout: 90,
			LogUnknownDevices:   false,
		},
		Modbus: ModbusConfig{
			Listen:      ":502",
			IdleTimeout: 60,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "inode-modbus-gateway",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables follow the pattern: INODEGW_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("INODEGW_MODBUS_LISTEN"); v != "" {
		cfg.Modbus.Listen = v
	}

	if v := os.Getenv("INODEGW_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("INODEGW_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("INODEGW_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("INODEGW_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("INODEGW_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	if v := os.Getenv("INODEGW_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.AvailabilityTimeout <= 0 {
		errs = append(errs, "gateway.availability_timeout must be positive")
	}

	if len(c.Devices) == 0 {
		errs = append(errs, "at least one device is required")
	}
	seenUnits := make(map[int]bool)
	seenMACs := make(map[string]bool)
	for i, d := range c.Devices {
		mac, err := inode.CanonicalMAC(d.MAC)
		if err != nil {
			errs = append(errs, fmt.Sprintf("devices[%d].mac %q is not a valid MAC address", i, d.MAC))
		} else if seenMACs[mac] {
			errs = append(errs, fmt.Sprintf("devices[%d].mac %q is listed twice", i, d.MAC))
		} else {
			seenMACs[mac] = true
		}
		if d.Unit < 0 || d.Unit > inode.MaxUnit {
			errs = append(errs, fmt.Sprintf("devices[%d].unit %d must be between 0 and %d", i, d.Unit, inode.MaxUnit))
		} else if seenUnits[d.Unit] {
			errs = append(errs, fmt.Sprintf("devices[%d].unit %d is listed twice", i, d.Unit))
		} else {
			seenUnits[d.Unit] = true
		}
	}

	if len(c.Connections) == 0 {
		errs = append(errs, "at least one connection is required")
	}
	for i, conn := range c.Connections {
		switch conn.Type {
		case "tcp":
			if conn.Address == "" {
				errs = append(errs, fmt.Sprintf("connections[%d].address is required for tcp connections", i))
			}
		case "serial":
			if conn.Port == "" {
				errs = append(errs, fmt.Sprintf("connections[%d].port is required for serial connections", i))
			}
		default:
			errs = append(errs, fmt.Sprintf("connections[%d].type %q must be tcp or serial", i, conn.Type))
		}
	}

	if c.Modbus.Listen == "" {
		errs = append(errs, "modbus.listen is required")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Token == "" {
			errs = append(errs, "influxdb.token is required when influxdb is enabled (set INODEGW_INFLUXDB_TOKEN)")
		}
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetAvailabilityTimeout returns the device staleness threshold as a
// Duration.
func (c *Config) GetAvailabilityTimeout() time.Duration {
	return time.Duration(c.Gateway.AvailabilityTimeout) * time.Second
}

// GetModbusIdleTimeout returns the MODBUS connection idle timeout as a
// Duration.
func (c *Config) GetModbusIdleTimeout() time.Duration {
	return time.Duration(c.Modbus.IdleTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
