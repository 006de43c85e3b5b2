package device

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/servo-switch/internal/dht"
)

// Logger defines the logging interface used by the Controller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ServoDriver sets and reads back servo pulse widths in microseconds.
// *pigpio.Client satisfies it.
type ServoDriver interface {
	SetServoPulsewidth(ctx context.Context, pin uint, width uint) error
	GetServoPulsewidth(ctx context.Context, pin uint) (uint, error)
}

// EnvSensor is a temperature/humidity sensor. *dht.Sensor satisfies it.
type EnvSensor interface {
	Bind(ctx context.Context) error
	Read(ctx context.Context, retries int) (dht.Reading, error)
}

// Config holds the servo wiring and sensor retry policy.
type Config struct {
	MinPin uint
	MedPin uint
	Pulse  PulseRange

	// SensorRetries is the number of extra attempts after a failed read.
	SensorRetries int
}

// EnvSample is the outcome of an environment read. Temperature and
// humidity are only meaningful when Valid is true.
type EnvSample struct {
	Valid           bool
	TemperatureC    float64
	HumidityPercent float64
}

// Controller drives the two switch servos and reads the environment sensor.
//
// It keeps no state of its own: the power state lives in the servo pulse
// widths. Concurrent calls are safe as far as the drivers are, but the two
// writes of one SetPower may interleave with another caller's.
type Controller struct {
	servos ServoDriver
	sensor EnvSensor
	cfg    Config
	logger Logger
}

// NewController binds the sensor pin and drives both servos to power 0 so
// the hardware starts in a known state.
func NewController(ctx context.Context, cfg Config, servos ServoDriver, sensor EnvSensor) (*Controller, error) {
	if cfg.Pulse.Min >= cfg.Pulse.Max {
		return nil, fmt.Errorf("%w: pulse min %d must be below max %d", ErrInvalidConfig, cfg.Pulse.Min, cfg.Pulse.Max)
	}
	if cfg.MinPin == cfg.MedPin {
		return nil, fmt.Errorf("%w: servo pins must differ (both %d)", ErrInvalidConfig, cfg.MinPin)
	}
	if cfg.SensorRetries < 0 {
		return nil, fmt.Errorf("%w: negative sensor retries", ErrInvalidConfig)
	}

	c := &Controller{
		servos: servos,
		sensor: sensor,
		cfg:    cfg,
		logger: noopLogger{},
	}

	if err := sensor.Bind(ctx); err != nil {
		return nil, fmt.Errorf("binding sensor: %w", err)
	}
	if err := c.SetPower(ctx, PowerOff); err != nil {
		return nil, fmt.Errorf("resetting power: %w", err)
	}

	return c, nil
}

// SetLogger sets the logger for the controller.
func (c *Controller) SetLogger(logger Logger) {
	c.logger = logger
}

// SetPower drives the servos to represent p. The MIN servo is written
// first, then the MED servo.
func (c *Controller) SetPower(ctx context.Context, p PowerState) error {
	if !p.Valid() {
		return fmt.Errorf("%w: got %d", ErrInvalidPower, p)
	}

	minWidth, medWidth := c.cfg.Pulse.encode(p)

	if err := c.servos.SetServoPulsewidth(ctx, c.cfg.MinPin, minWidth); err != nil {
		return fmt.Errorf("setting min servo: %w", err)
	}
	if err := c.servos.SetServoPulsewidth(ctx, c.cfg.MedPin, medWidth); err != nil {
		return fmt.Errorf("setting med servo: %w", err)
	}

	c.logger.Debug("power set", "value", int(p), "min_pw", minWidth, "med_pw", medWidth)
	return nil
}

// GetPower reads both servo positions back and decodes the power state.
func (c *Controller) GetPower(ctx context.Context) (PowerState, error) {
	minWidth, err := c.servos.GetServoPulsewidth(ctx, c.cfg.MinPin)
	if err != nil {
		return 0, fmt.Errorf("reading min servo: %w", err)
	}
	medWidth, err := c.servos.GetServoPulsewidth(ctx, c.cfg.MedPin)
	if err != nil {
		return 0, fmt.Errorf("reading med servo: %w", err)
	}

	return c.cfg.Pulse.decode(minWidth, medWidth), nil
}

// GetEnv samples the environment sensor. A sensor that never answers
// yields an invalid sample rather than an error; any other failure is
// returned.
func (c *Controller) GetEnv(ctx context.Context) (EnvSample, error) {
	r, err := c.sensor.Read(ctx, c.cfg.SensorRetries)
	if errors.Is(err, dht.ErrTimeout) {
		c.logger.Warn("environment sensor timed out", "retries", c.cfg.SensorRetries)
		return EnvSample{}, nil
	}
	if err != nil {
		return EnvSample{}, fmt.Errorf("reading sensor: %w", err)
	}
	if !r.Valid {
		c.logger.Warn("environment sensor returned no valid frame")
		return EnvSample{}, nil
	}

	return EnvSample{
		Valid:           true,
		TemperatureC:    r.TemperatureC,
		HumidityPercent: r.HumidityPercent,
	}, nil
}
