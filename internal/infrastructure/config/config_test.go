package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfig writes content to a temporary config file and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
node:
  id: "kitchen-node"
  name: "Kitchen"
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
api:
  host: "0.0.0.0"
  port: 8080
hardware:
  driver: gpio
  chip: gpiochip1
  line: 17
devices:
  - name: Relay
    kind: switch
    hardware: true
  - name: Dispense
    kind: dispense
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Node.ID != "kitchen-node" {
		t.Errorf("Node.ID = %q, want %q", cfg.Node.ID, "kitchen-node")
	}
	if cfg.Node.Type != "Switch" {
		t.Errorf("Node.Type = %q, want default %q", cfg.Node.Type, "Switch")
	}
	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}
	if cfg.Hardware.Driver != HardwareDriverGPIO || cfg.Hardware.Line != 17 {
		t.Errorf("Hardware = %+v", cfg.Hardware)
	}
	if len(cfg.Devices) != 2 {
		t.Fatalf("Devices len = %d, want 2 (file replaces defaults)", len(cfg.Devices))
	}
	dispense := cfg.Devices[1]
	if dispense.ValueParam != "Value" || *dispense.Min != 100 || *dispense.Max != 999 {
		t.Errorf("dispense defaults not applied: %+v", dispense)
	}
}

func TestLoad_DispenseRange(t *testing.T) {
	tests := []struct {
		name             string
		bounds           string
		wantMin, wantMax int64
	}{
		{"unset", "", 100, 999},
		{"zero range", "\n    min: 0\n    max: 0", 0, 0},
		{"only max", "\n    max: 150", 100, 150},
		{"only min", "\n    min: 0", 0, 999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "database:\n  path: /tmp/test.db\ndevices:\n  - name: Dispense\n    kind: dispense" + tt.bounds + "\n"
			cfg, err := Load(writeConfig(t, content))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			d := cfg.Devices[0]
			if d.Min == nil || d.Max == nil {
				t.Fatalf("bounds not filled: %+v", d)
			}
			if *d.Min != tt.wantMin || *d.Max != tt.wantMax {
				t.Errorf("range = [%d, %d], want [%d, %d]", *d.Min, *d.Max, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
node:
  id: ""
database:
  path: "/tmp/test.db"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Error("Load() expected validation error for empty node.id, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid default", func(*Config) {}, ""},
		{"missing node ID", func(c *Config) { c.Node.ID = "" }, "node.id"},
		{"missing database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"negative retention", func(c *Config) { c.Database.HistoryRetentionDays = -1 }, "history_retention_days"},
		{"invalid QoS", func(c *Config) { c.MQTT.QoS = 3 }, "mqtt.qos"},
		{"missing topic prefix", func(c *Config) { c.MQTT.TopicPrefix = "" }, "topic_prefix"},
		{"invalid port low", func(c *Config) { c.API.Port = 0 }, "api.port"},
		{"invalid port high", func(c *Config) { c.API.Port = 70000 }, "api.port"},
		{"port ignored when api disabled", func(c *Config) { c.API.Enabled = false; c.API.Port = 0 }, ""},
		{"unknown hardware driver", func(c *Config) { c.Hardware.Driver = "relay" }, "hardware.driver"},
		{"gpio without chip", func(c *Config) { c.Hardware.Driver = HardwareDriverGPIO; c.Hardware.Chip = "" }, "hardware.chip"},
		{"no devices", func(c *Config) { c.Devices = nil }, "at least one device"},
		{"duplicate device", func(c *Config) { c.Devices[1].Name = "Switch" }, "duplicated"},
		{"unnamed device", func(c *Config) { c.Devices[0].Name = "" }, "name is required"},
		{"unknown kind", func(c *Config) { c.Devices[0].Kind = "fan" }, "kind"},
		{"zero range", func(c *Config) { c.Devices[4].Min = Int64(0); c.Devices[4].Max = Int64(0) }, ""},
		{"min above default max", func(c *Config) { c.Devices[4].Min = Int64(1000); c.Devices[4].Max = nil }, "min 1000 > max 999"},
		{"inverted range", func(c *Config) { c.Devices[4].Min = Int64(10); c.Devices[4].Max = Int64(1) }, "min 10 > max 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
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
		Database: DatabaseConfig{HistoryRetentionDays: 2},
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
	if got := cfg.HistoryRetention(); got != 48*time.Hour {
		t.Errorf("HistoryRetention() = %v, want 48h", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("SWITCHNODE_NODE_ID", "env-node")
	t.Setenv("SWITCHNODE_DATABASE_PATH", "/custom/path.db")
	t.Setenv("SWITCHNODE_MQTT_HOST", "mqtt.example.com")
	t.Setenv("SWITCHNODE_MQTT_PORT", "8883")
	t.Setenv("SWITCHNODE_MQTT_USERNAME", "testuser")
	t.Setenv("SWITCHNODE_MQTT_PASSWORD", "testpass")
	t.Setenv("SWITCHNODE_API_HOST", "192.168.1.1")
	t.Setenv("SWITCHNODE_API_PORT", "not-a-number")
	t.Setenv("SWITCHNODE_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("SWITCHNODE_LOG_LEVEL", "debug")
	t.Setenv("SWITCHNODE_HARDWARE_DRIVER", "gpio")

	applyEnvOverrides(cfg)

	checks := []struct {
		name      string
		got, want any
	}{
		{"Node.ID", cfg.Node.ID, "env-node"},
		{"Database.Path", cfg.Database.Path, "/custom/path.db"},
		{"MQTT.Broker.Host", cfg.MQTT.Broker.Host, "mqtt.example.com"},
		{"MQTT.Broker.Port", cfg.MQTT.Broker.Port, 8883},
		{"MQTT.Auth.Username", cfg.MQTT.Auth.Username, "testuser"},
		{"MQTT.Auth.Password", cfg.MQTT.Auth.Password, "testpass"},
		{"API.Host", cfg.API.Host, "192.168.1.1"},
		{"API.Port", cfg.API.Port, 8080},
		{"InfluxDB.Token", cfg.InfluxDB.Token, "secret-token"},
		{"Logging.Level", cfg.Logging.Level, "debug"},
		{"Hardware.Driver", cfg.Hardware.Driver, "gpio"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Node.ID == "" {
		t.Error("Default should have non-empty Node.ID")
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("Default MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Default API.Port = %d, want 8080", cfg.API.Port)
	}

	var names []string
	for _, d := range cfg.Devices {
		names = append(names, d.Name)
	}
	if got := strings.Join(names, ","); got != "Switch,Switch1,Switch2,Switch3,Dispense" {
		t.Errorf("Default devices = %s", got)
	}
	if !cfg.Devices[0].Hardware || cfg.Devices[1].Hardware {
		t.Error("only the primary Switch should drive hardware by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}
