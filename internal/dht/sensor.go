package dht

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nerrad567/servo-switch/internal/pigpio"
)

// Transfer timing.
const (
	// startSignal is how long the host holds the line low to wake the sensor.
	startSignal = 18 * time.Millisecond

	// captureWindow covers the ~4ms transfer with a wide margin.
	captureWindow = 50 * time.Millisecond
)

// GPIO is the subset of the pigpio client a Sensor needs.
type GPIO interface {
	SetMode(ctx context.Context, pin uint, mode pigpio.Mode) error
	SetPullUpDown(ctx context.Context, pin uint, pull pigpio.Pull) error
	Write(ctx context.Context, pin uint, high bool) error
	Capture(ctx context.Context, pin uint, window time.Duration, trigger func(ctx context.Context) error) ([]pigpio.Edge, error)
}

// Config contains sensor wiring and retry pacing.
type Config struct {
	Pin uint
	// RetryInterval is the pause between attempts. The DHT11 needs about a
	// second between conversions.
	RetryInterval time.Duration
}

// Sensor is a DHT11 on one GPIO pin.
//
// Reads are serialised: two transfers on one data line would corrupt each other.
type Sensor struct {
	gpio     GPIO
	pin      uint
	interval time.Duration

	mu sync.Mutex
}

// New creates a Sensor. Call Bind before the first Read.
func New(gpio GPIO, cfg Config) *Sensor {
	return &Sensor{
		gpio:     gpio,
		pin:      cfg.Pin,
		interval: cfg.RetryInterval,
	}
}

// Pin returns the sensor's data pin.
func (s *Sensor) Pin() uint {
	return s.pin
}

// Bind puts the data pin into input mode with its pull-up enabled, the
// idle state the DHT11 expects.
func (s *Sensor) Bind(ctx context.Context) error {
	if err := s.gpio.SetMode(ctx, s.pin, pigpio.ModeInput); err != nil {
		return fmt.Errorf("setting dht pin %d to input: %w", s.pin, err)
	}
	if err := s.gpio.SetPullUpDown(ctx, s.pin, pigpio.PullUp); err != nil {
		return fmt.Errorf("enabling pull-up on dht pin %d: %w", s.pin, err)
	}
	return nil
}

// Read samples the sensor, retrying up to retries more times when the
// sensor does not answer or sends a corrupt frame.
//
// It returns ErrTimeout when no attempt produced a frame. When the last
// attempt produced a frame with a bad checksum, Read returns a Reading with
// Valid false and no error. Other errors (pigpio failures, context
// cancellation) are returned immediately.
func (s *Sensor) Read(ctx context.Context, retries int) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if retries < 0 {
		retries = 0
	}

	var reading Reading
	attempt := func() error {
		r, err := s.readOnce(ctx)
		switch {
		case err == nil:
			reading = r
			return nil
		case errors.Is(err, ErrTimeout), errors.Is(err, ErrChecksum):
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.interval), uint64(retries)),
		ctx,
	)

	err := backoff.Retry(attempt, policy)
	switch {
	case err == nil:
		return reading, nil
	case errors.Is(err, ErrChecksum):
		return Reading{Valid: false}, nil
	case errors.Is(err, ErrTimeout):
		return Reading{}, fmt.Errorf("%w after %d attempts", ErrTimeout, retries+1)
	default:
		return Reading{}, err
	}
}

// readOnce performs a single start signal and frame capture.
func (s *Sensor) readOnce(ctx context.Context) (Reading, error) {
	edges, err := s.gpio.Capture(ctx, s.pin, captureWindow, s.startSignal)
	if err != nil {
		return Reading{}, fmt.Errorf("capturing dht transfer: %w", err)
	}

	frame, err := decodeFrame(edges)
	if err != nil {
		return Reading{}, err
	}
	return parseFrame(frame), nil
}

// startSignal holds the line low, then releases it to the pull-up.
func (s *Sensor) startSignal(ctx context.Context) error {
	if err := s.gpio.Write(ctx, s.pin, false); err != nil {
		return fmt.Errorf("pulling dht pin low: %w", err)
	}

	timer := time.NewTimer(startSignal)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if err := s.gpio.SetMode(ctx, s.pin, pigpio.ModeInput); err != nil {
		return fmt.Errorf("releasing dht pin: %w", err)
	}
	return nil
}
