package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the emberwatt gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Listeners ListenersConfig `yaml:"listeners"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GatewayConfig contains driver loop settings.
type GatewayConfig struct {
	// TickIntervalMS is the polling loop period in milliseconds.
	// Every active listener is polled once per tick.
	TickIntervalMS int `yaml:"tick_interval_ms"`
}

// ListenersConfig declares the telemetry sources the gateway watches.
// Each list may be empty; at least one listener must be configured overall.
type ListenersConfig struct {
	Serial    []SerialListenerConfig    `yaml:"serial"`
	Radio     []RadioListenerConfig     `yaml:"radio"`
	Socket    []SocketListenerConfig    `yaml:"socket"`
	SensorBus []SensorBusListenerConfig `yaml:"sensorbus"`
	Repeater  []RepeaterListenerConfig  `yaml:"repeater"`
}

// SerialListenerConfig declares a plain serial listener.
type SerialListenerConfig struct {
	Name   string `yaml:"name"`
	Device string `yaml:"device"`
	Baud   int    `yaml:"baud"`
}

// RadioListenerConfig declares a radio bridge listener.
// Settings holds the initial bridge settings (baseid, frequency, sgroup,
// sendtimeinterval), applied through Set() at startup.
type RadioListenerConfig struct {
	Name     string            `yaml:"name"`
	Device   string            `yaml:"device"`
	Baud     int               `yaml:"baud"`
	Settings map[string]string `yaml:"settings"`
}

// SocketListenerConfig declares a TCP socket listener.
type SocketListenerConfig struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

// SensorBusListenerConfig declares a 1-Wire sensor bus listener.
// Settings holds the initial sensor slot mapping (sensor0, sensor1, ...).
type SensorBusListenerConfig struct {
	Name       string            `yaml:"name"`
	Path       string            `yaml:"path"`
	Node       int               `yaml:"node"`
	Interval   int               `yaml:"interval"`
	Resolution int               `yaml:"resolution"`
	Settings   map[string]string `yaml:"settings"`
}

// RepeaterListenerConfig declares a radio bridge repeater: a radio bridge
// plus a TCP port whose frames are relayed onto the radio link.
type RepeaterListenerConfig struct {
	Name     string            `yaml:"name"`
	Device   string            `yaml:"device"`
	Baud     int               `yaml:"baud"`
	Port     int               `yaml:"port"`
	Settings map[string]string `yaml:"settings"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
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

// MQTTReconnectConfig contains MQTT reconnection settings.
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

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: EMBERWATT_SECTION_KEY
// For example: EMBERWATT_DATABASE_PATH, EMBERWATT_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			TickIntervalMS: 200,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "embergw",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/embergw.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: EMBERWATT_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("EMBERWATT_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("EMBERWATT_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("EMBERWATT_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("EMBERWATT_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("EMBERWATT_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Listener-level parameter validation (device paths, node ranges,
// resolutions) happens in the listener constructors; this catches the
// structural problems a config file can carry.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.TickIntervalMS < 1 {
		errs = append(errs, "gateway.tick_interval_ms must be at least 1")
	}

	if c.ListenerCount() == 0 {
		errs = append(errs, "at least one listener must be configured")
	}

	// Listener names route settings and upstream attribution; they must
	// be present and unique across all listener kinds.
	seen := make(map[string]bool)
	for _, name := range c.listenerNames() {
		if name == "" {
			errs = append(errs, "every listener needs a name")
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Sprintf("duplicate listener name %q", name))
		}
		seen[name] = true
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ListenerCount returns the total number of configured listeners.
func (c *Config) ListenerCount() int {
	return len(c.Listeners.Serial) +
		len(c.Listeners.Radio) +
		len(c.Listeners.Socket) +
		len(c.Listeners.SensorBus) +
		len(c.Listeners.Repeater)
}

// listenerNames collects the names of every configured listener.
func (c *Config) listenerNames() []string {
	names := make([]string, 0, c.ListenerCount())
	for _, l := range c.Listeners.Serial {
		names = append(names, l.Name)
	}
	for _, l := range c.Listeners.Radio {
		names = append(names, l.Name)
	}
	for _, l := range c.Listeners.Socket {
		names = append(names, l.Name)
	}
	for _, l := range c.Listeners.SensorBus {
		names = append(names, l.Name)
	}
	for _, l := range c.Listeners.Repeater {
		names = append(names, l.Name)
	}
	return names
}

// TickInterval returns the driver loop period as a Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Gateway.TickIntervalMS) * time.Millisecond
}
