package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// pigpio accepts servo pulse widths in this range (microseconds).
const (
	minServoPulse = 500
	maxServoPulse = 2500

	// maxGPIO is the highest user GPIO. pigpio's servo and notification
	// commands reject anything above it.
	maxGPIO = 31
)

// Config is the root configuration structure for servo-switch.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	API      APIConfig      `yaml:"api"`
	Auth     AuthConfig     `yaml:"auth"`
	Hardware HardwareConfig `yaml:"hardware"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
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

// AuthConfig holds the shared secret checked on every API request.
//
// The token is normally supplied through the AUTH_TOKEN environment variable.
// An empty token locks the API: every request is rejected.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// HardwareConfig describes the servos and the DHT11 sensor wired to the board.
type HardwareConfig struct {
	// Simulate replaces pigpiod and the DHT11 with in-memory stand-ins.
	Simulate bool `yaml:"simulate"`

	Pigpio PigpioConfig `yaml:"pigpio"`
	Servo  ServoConfig  `yaml:"servo"`
	Sensor SensorConfig `yaml:"sensor"`
}

// PigpioConfig contains the pigpiod daemon socket address.
type PigpioConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Timeout bounds a single command round trip (milliseconds).
	Timeout int `yaml:"timeout"`
}

// ServoConfig contains GPIO pins and pulse widths for the two switch servos.
type ServoConfig struct {
	// MinPin drives the "MIN" servo (power bit 0).
	MinPin int `yaml:"min_pin"`
	// MedPin drives the "MED" servo (power bit 1). It is mounted the other
	// way round, so its polarity is inverted.
	MedPin int `yaml:"med_pin"`

	PulseMin int `yaml:"pulse_min"`
	PulseMax int `yaml:"pulse_max"`
}

// SensorConfig contains DHT11 settings.
type SensorConfig struct {
	Pin           int `yaml:"pin"`
	Retries       int `yaml:"retries"`
	RetryInterval int `yaml:"retry_interval_ms"`
}

// DatabaseConfig contains SQLite settings for the switch audit log.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
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

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
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
	// DeviceID tags every point written by this instance.
	DeviceID string `yaml:"device_id"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variable overrides, then validates it.
//
// An empty path skips the file and uses defaults plus environment only.
//
// Environment variables follow the pattern SERVOSWITCH_SECTION_KEY, except
// the shared secret which is read from AUTH_TOKEN.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config populated with the defaults for a Raspberry Pi
// running pigpiod locally.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 5042,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Hardware: HardwareConfig{
			Pigpio: PigpioConfig{
				Host:    "localhost",
				Port:    8888,
				Timeout: 2000,
			},
			Servo: ServoConfig{
				MinPin:   23,
				MedPin:   18,
				PulseMin: 1000,
				PulseMax: 2000,
			},
			Sensor: SensorConfig{
				Pin:           14,
				Retries:       5,
				RetryInterval: 1000,
			},
		},
		Database: DatabaseConfig{
			Path:        "./data/servoswitch.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "servoswitch",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Org:           "home",
			Bucket:        "servoswitch",
			BatchSize:     100,
			FlushInterval: 10,
			DeviceID:      "servoswitch",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) error {
	// Shared secret. Unset leaves the API locked.
	if v, ok := os.LookupEnv("AUTH_TOKEN"); ok {
		cfg.Auth.Token = v
	}

	if v := os.Getenv("SERVOSWITCH_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("SERVOSWITCH_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SERVOSWITCH_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	if v := os.Getenv("SERVOSWITCH_PIGPIO_HOST"); v != "" {
		cfg.Hardware.Pigpio.Host = v
	}

	if v := os.Getenv("SERVOSWITCH_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("SERVOSWITCH_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SERVOSWITCH_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SERVOSWITCH_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("SERVOSWITCH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("SERVOSWITCH_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	errs = append(errs, c.Hardware.validate()...)

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (h HardwareConfig) validate() []string {
	var errs []string

	if !h.Simulate {
		if h.Pigpio.Host == "" {
			errs = append(errs, "hardware.pigpio.host is required")
		}
		if h.Pigpio.Port < 1 || h.Pigpio.Port > 65535 {
			errs = append(errs, "hardware.pigpio.port must be between 1 and 65535")
		}
	}

	s := h.Servo
	if s.PulseMin < minServoPulse || s.PulseMax > maxServoPulse {
		errs = append(errs, fmt.Sprintf("hardware.servo pulse widths must be within [%d, %d]", minServoPulse, maxServoPulse))
	}
	if s.PulseMin >= s.PulseMax {
		errs = append(errs, "hardware.servo.pulse_min must be less than pulse_max")
	}

	pins := []struct {
		name string
		pin  int
	}{
		{"hardware.servo.min_pin", s.MinPin},
		{"hardware.servo.med_pin", s.MedPin},
		{"hardware.sensor.pin", h.Sensor.Pin},
	}
	seen := make(map[int]string, len(pins))
	for _, p := range pins {
		if p.pin < 0 || p.pin > maxGPIO {
			errs = append(errs, fmt.Sprintf("%s must be between 0 and %d", p.name, maxGPIO))
			continue
		}
		if other, dup := seen[p.pin]; dup {
			errs = append(errs, fmt.Sprintf("%s conflicts with %s (GPIO %d)", p.name, other, p.pin))
			continue
		}
		seen[p.pin] = p.name
	}

	if h.Sensor.Retries < 0 {
		errs = append(errs, "hardware.sensor.retries must not be negative")
	}

	return errs
}

// ErrNoAuthToken is reported by Warnings when the API will reject every request.
var ErrNoAuthToken = errors.New("auth token is empty: every API request will be rejected (set AUTH_TOKEN)")

// Warnings returns non-fatal configuration problems worth logging at startup.
func (c *Config) Warnings() []error {
	var warns []error
	if c.Auth.Token == "" {
		warns = append(warns, ErrNoAuthToken)
	}
	return warns
}
