package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/servo-switch/internal/dht"
)

// SimulatedServos is an in-memory ServoDriver used when no board is
// attached. Pins that were never written read back as 0 (servo off),
// matching pigpiod.
type SimulatedServos struct {
	mu     sync.Mutex
	widths map[uint]uint
}

// NewSimulatedServos creates an empty servo simulation.
func NewSimulatedServos() *SimulatedServos {
	return &SimulatedServos{widths: make(map[uint]uint)}
}

// SetServoPulsewidth records width for pin. Width 0 switches the servo off;
// anything else must be within [500, 2500] like on real hardware.
func (s *SimulatedServos) SetServoPulsewidth(_ context.Context, pin uint, width uint) error {
	if width != 0 && (width < 500 || width > 2500) {
		return fmt.Errorf("simulated servo %d: pulse width %d out of range", pin, width)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.widths[pin] = width
	return nil
}

// GetServoPulsewidth returns the last width written to pin.
func (s *SimulatedServos) GetServoPulsewidth(_ context.Context, pin uint) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.widths[pin], nil
}

// SimulatedSensor is an in-memory EnvSensor returning a fixed reading.
type SimulatedSensor struct {
	mu      sync.Mutex
	reading dht.Reading
	err     error
	bound   bool
}

// NewSimulatedSensor creates a sensor that reports the given climate.
func NewSimulatedSensor(temperatureC, humidityPercent float64) *SimulatedSensor {
	return &SimulatedSensor{
		reading: dht.Reading{
			Valid:           true,
			TemperatureC:    temperatureC,
			HumidityPercent: humidityPercent,
		},
	}
}

// Bind marks the sensor as bound.
func (s *SimulatedSensor) Bind(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bound = true
	return nil
}

// Bound reports whether Bind has been called.
func (s *SimulatedSensor) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bound
}

// Set replaces the reading and error returned by subsequent reads.
func (s *SimulatedSensor) Set(r dht.Reading, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reading = r
	s.err = err
}

// Read returns the configured reading.
func (s *SimulatedSensor) Read(ctx context.Context, _ int) (dht.Reading, error) {
	if err := ctx.Err(); err != nil {
		return dht.Reading{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reading, s.err
}
