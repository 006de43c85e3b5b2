package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_TOKEN", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Hardware.Servo.MinPin != 23 || cfg.Hardware.Servo.MedPin != 18 {
		t.Errorf("servo pins = %d/%d, want 23/18", cfg.Hardware.Servo.MinPin, cfg.Hardware.Servo.MedPin)
	}
	if cfg.Hardware.Servo.PulseMin != 1000 || cfg.Hardware.Servo.PulseMax != 2000 {
		t.Errorf("pulse range = [%d, %d], want [1000, 2000]", cfg.Hardware.Servo.PulseMin, cfg.Hardware.Servo.PulseMax)
	}
	if cfg.Hardware.Sensor.Pin != 14 {
		t.Errorf("Sensor.Pin = %d, want 14", cfg.Hardware.Sensor.Pin)
	}
	if cfg.Hardware.Sensor.Retries != 5 {
		t.Errorf("Sensor.Retries = %d, want 5", cfg.Hardware.Sensor.Retries)
	}
	if cfg.Auth.Token != "" {
		t.Errorf("Auth.Token = %q, want empty", cfg.Auth.Token)
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	t.Setenv("AUTH_TOKEN", "")

	path := writeConfig(t, `
api:
  host: "127.0.0.1"
  port: 8080
hardware:
  pigpio:
    host: "raspberrypi.local"
    port: 8888
  servo:
    min_pin: 24
    med_pin: 25
    pulse_min: 900
    pulse_max: 2100
  sensor:
    pin: 4
mqtt:
  enabled: true
  broker:
    host: "broker.local"
    port: 1883
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want 8080", cfg.API.Port)
	}
	if cfg.Hardware.Pigpio.Host != "raspberrypi.local" {
		t.Errorf("Pigpio.Host = %q, want raspberrypi.local", cfg.Hardware.Pigpio.Host)
	}
	if cfg.Hardware.Servo.PulseMin != 900 || cfg.Hardware.Servo.PulseMax != 2100 {
		t.Errorf("pulse range = [%d, %d], want [900, 2100]", cfg.Hardware.Servo.PulseMin, cfg.Hardware.Servo.PulseMax)
	}
	// Unset keys keep their defaults.
	if cfg.Hardware.Sensor.Retries != 5 {
		t.Errorf("Sensor.Retries = %d, want default 5", cfg.Hardware.Sensor.Retries)
	}
	if !cfg.MQTT.Enabled || cfg.MQTT.Broker.Host != "broker.local" {
		t.Errorf("MQTT = %+v, want enabled broker.local", cfg.MQTT)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(path)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AUTH_TOKEN", "s3cr3t")
	t.Setenv("SERVOSWITCH_API_PORT", "9000")
	t.Setenv("SERVOSWITCH_PIGPIO_HOST", "10.0.0.5")
	t.Setenv("SERVOSWITCH_LOG_LEVEL", "debug")

	path := writeConfig(t, `
auth:
  token: "from-file"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Auth.Token != "s3cr3t" {
		t.Errorf("Auth.Token = %q, want env value", cfg.Auth.Token)
	}
	if cfg.API.Port != 9000 {
		t.Errorf("API.Port = %d, want 9000", cfg.API.Port)
	}
	if cfg.Hardware.Pigpio.Host != "10.0.0.5" {
		t.Errorf("Pigpio.Host = %q, want 10.0.0.5", cfg.Hardware.Pigpio.Host)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_InvalidPortEnv(t *testing.T) {
	t.Setenv("SERVOSWITCH_API_PORT", "not-a-port")

	if _, err := Load(""); err == nil {
		t.Error("Load() expected error for non-numeric port, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name:    "port out of range",
			modify:  func(c *Config) { c.API.Port = 70000 },
			wantErr: "api.port",
		},
		{
			name:    "pulse range inverted",
			modify:  func(c *Config) { c.Hardware.Servo.PulseMin, c.Hardware.Servo.PulseMax = 2000, 1000 },
			wantErr: "pulse_min must be less than pulse_max",
		},
		{
			name:    "pulse beyond servo range",
			modify:  func(c *Config) { c.Hardware.Servo.PulseMax = 3000 },
			wantErr: "pulse widths must be within",
		},
		{
			name:    "duplicate pins",
			modify:  func(c *Config) { c.Hardware.Sensor.Pin = c.Hardware.Servo.MinPin },
			wantErr: "conflicts with",
		},
		{
			name:    "pin out of range",
			modify:  func(c *Config) { c.Hardware.Servo.MedPin = 60 },
			wantErr: "med_pin must be between",
		},
		{
			name:    "sensor pin beyond user gpios",
			modify:  func(c *Config) { c.Hardware.Sensor.Pin = 40 },
			wantErr: "sensor.pin must be between 0 and 31",
		},
		{
			name:    "servo pin beyond user gpios",
			modify:  func(c *Config) { c.Hardware.Servo.MinPin = 32 },
			wantErr: "min_pin must be between 0 and 31",
		},
		{
			name:   "highest user gpio accepted",
			modify: func(c *Config) { c.Hardware.Sensor.Pin = 31 },
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.Hardware.Sensor.Retries = -1 },
			wantErr: "retries",
		},
		{
			name:    "pigpio host required",
			modify:  func(c *Config) { c.Hardware.Pigpio.Host = "" },
			wantErr: "pigpio.host",
		},
		{
			name: "pigpio host not required when simulating",
			modify: func(c *Config) {
				c.Hardware.Simulate = true
				c.Hardware.Pigpio.Host = ""
			},
		},
		{
			name: "database path required when enabled",
			modify: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
		{
			name:    "invalid qos",
			modify:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name: "influxdb bucket required when enabled",
			modify: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.Bucket = ""
			},
			wantErr: "influxdb",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Warnings(t *testing.T) {
	cfg := Default()

	warns := cfg.Warnings()
	if len(warns) != 1 || !errors.Is(warns[0], ErrNoAuthToken) {
		t.Errorf("Warnings() = %v, want [ErrNoAuthToken]", warns)
	}

	cfg.Auth.Token = "s3cr3t"
	if warns := cfg.Warnings(); len(warns) != 0 {
		t.Errorf("Warnings() = %v, want none", warns)
	}
}
