package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for a switchnode.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Node      NodeConfig      `yaml:"node"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Hardware  HardwareConfig  `yaml:"hardware"`
	Devices   []DeviceConfig  `yaml:"devices"`
}

// NodeConfig identifies the node to the control plane.
type NodeConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// HistoryRetentionDays bounds the parameter history table. 0 keeps everything.
	HistoryRetentionDays int `yaml:"history_retention_days"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
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
}

// APIConfig contains the local control HTTP server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Hardware driver names.
const (
	HardwareDriverLog  = "log"
	HardwareDriverGPIO = "gpio"
)

// HardwareConfig selects the actuator driver behind the primary switch.
type HardwareConfig struct {
	// Driver is "log" (no hardware, state changes are logged) or "gpio".
	Driver string `yaml:"driver"`

	// Chip is the GPIO character device, e.g. "gpiochip0".
	Chip string `yaml:"chip"`

	// Line is the output line offset on Chip.
	Line int `yaml:"line"`

	// ActiveLow inverts the electrical level.
	ActiveLow bool `yaml:"active_low"`

	// DefaultState is applied before anything else at startup.
	DefaultState bool `yaml:"default_state"`
}

// Device kinds accepted in DeviceConfig.Kind.
const (
	DeviceKindSwitch   = "switch"
	DeviceKindDispense = "dispense"
)

// DeviceConfig describes one device of the node topology.
type DeviceConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// Switch settings.
	DefaultPower bool `yaml:"default_power"`
	Hardware     bool `yaml:"hardware"`

	// Dispense settings. A nil bound takes its default (100 and 999), so an
	// explicit 0 is kept.
	ValueParam string `yaml:"value_param"`
	Min        *int64 `yaml:"min"`
	Max        *int64 `yaml:"max"`
}

// Default dispense range.
const (
	DefaultDispenseMin int64 = 100
	DefaultDispenseMax int64 = 999
)

// Range returns the dispense range with defaults for unset bounds.
func (d DeviceConfig) Range() (minValue, maxValue int64) {
	minValue, maxValue = DefaultDispenseMin, DefaultDispenseMax
	if d.Min != nil {
		minValue = *d.Min
	}
	if d.Max != nil {
		maxValue = *d.Max
	}
	return minValue, maxValue
}

// Int64 returns a pointer to v, for the DeviceConfig range bounds.
func Int64(v int64) *int64 {
	return &v
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: SWITCHNODE_SECTION_KEY
// For example: SWITCHNODE_DATABASE_PATH, SWITCHNODE_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
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
	cfg.applyDeviceDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration: four switches and a dispenser.
func Default() *Config {
	cfg := defaultConfig()
	cfg.applyDeviceDefaults()
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ID:   "switchnode-001",
			Name: "Switch Node",
			Type: "Switch",
		},
		Database: DatabaseConfig{
			Path:                 "./data/switchnode.db",
			WALMode:              true,
			BusyTimeout:          5,
			HistoryRetentionDays: 30,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "switchnode",
			},
			QoS:         1,
			TopicPrefix: "node",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
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
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Hardware: HardwareConfig{
			Driver: HardwareDriverLog,
			Chip:   "gpiochip0",
		},
		Devices: []DeviceConfig{
			{Name: "Switch", Kind: DeviceKindSwitch, Hardware: true},
			{Name: "Switch1", Kind: DeviceKindSwitch},
			{Name: "Switch2", Kind: DeviceKindSwitch},
			{Name: "Switch3", Kind: DeviceKindSwitch},
			{Name: "Dispense", Kind: DeviceKindDispense, ValueParam: "Value"},
		},
	}
}

// applyDeviceDefaults fills unset dispense settings.
func (c *Config) applyDeviceDefaults() {
	for i := range c.Devices {
		d := &c.Devices[i]
		if d.Kind != DeviceKindDispense {
			continue
		}
		if d.ValueParam == "" {
			d.ValueParam = "Value"
		}
		minValue, maxValue := d.Range()
		d.Min, d.Max = Int64(minValue), Int64(maxValue)
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: SWITCHNODE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Node
	if v := os.Getenv("SWITCHNODE_NODE_ID"); v != "" {
		cfg.Node.ID = v
	}

	// Database
	if v := os.Getenv("SWITCHNODE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("SWITCHNODE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SWITCHNODE_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("SWITCHNODE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SWITCHNODE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("SWITCHNODE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SWITCHNODE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("SWITCHNODE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("SWITCHNODE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Hardware
	if v := os.Getenv("SWITCHNODE_HARDWARE_DRIVER"); v != "" {
		cfg.Hardware.Driver = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Node validation
	if c.Node.ID == "" {
		errs = append(errs, "node.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.HistoryRetentionDays < 0 {
		errs = append(errs, "database.history_retention_days cannot be negative")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Hardware validation
	switch c.Hardware.Driver {
	case HardwareDriverLog:
	case HardwareDriverGPIO:
		if c.Hardware.Chip == "" {
			errs = append(errs, "hardware.chip is required for the gpio driver")
		}
		if c.Hardware.Line < 0 {
			errs = append(errs, "hardware.line cannot be negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("hardware.driver %q must be log or gpio", c.Hardware.Driver))
	}

	errs = append(errs, c.validateDevices()...)

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// validateDevices checks the device topology.
func (c *Config) validateDevices() []string {
	var errs []string

	if len(c.Devices) == 0 {
		return []string{"devices: at least one device is required"}
	}

	seen := make(map[string]bool, len(c.Devices))
	for i, d := range c.Devices {
		if d.Name == "" {
			errs = append(errs, fmt.Sprintf("devices[%d].name is required", i))
			continue
		}
		if seen[d.Name] {
			errs = append(errs, fmt.Sprintf("devices[%d].name %q is duplicated", i, d.Name))
		}
		seen[d.Name] = true

		switch d.Kind {
		case DeviceKindSwitch:
		case DeviceKindDispense:
			if minValue, maxValue := d.Range(); minValue > maxValue {
				errs = append(errs, fmt.Sprintf("devices[%d] %q: min %d > max %d", i, d.Name, minValue, maxValue))
			}
		default:
			errs = append(errs, fmt.Sprintf("devices[%d] %q: kind %q must be switch or dispense", i, d.Name, d.Kind))
		}
	}

	return errs
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

// HistoryRetention returns the history retention window, or 0 for unlimited.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.Database.HistoryRetentionDays) * 24 * time.Hour
}
