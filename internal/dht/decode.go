package dht

import (
	"fmt"

	"github.com/nerrad567/servo-switch/internal/pigpio"
)

const (
	frameBits  = 40
	frameBytes = frameBits / 8

	// oneThreshold separates a 0 bit (~27µs high) from a 1 bit (~70µs high).
	oneThreshold = 50
)

// Reading is one DHT11 sample. Valid is false when the frame was received
// but failed its checksum.
type Reading struct {
	Valid           bool
	TemperatureC    float64
	HumidityPercent float64
}

// highPulses returns the widths in microseconds of every complete high pulse.
func highPulses(edges []pigpio.Edge) []uint32 {
	var (
		widths []uint32
		rise   uint32
		inHigh bool
	)
	for _, e := range edges {
		switch {
		case e.High:
			rise, inHigh = e.Tick, true
		case inHigh:
			widths = append(widths, e.Tick-rise) // wraps correctly on tick overflow
			inHigh = false
		}
	}
	return widths
}

// decodeFrame turns captured edges into the five raw frame bytes.
// The data bits are the last 40 complete high pulses; anything before them
// is the host release and the sensor's response preamble.
func decodeFrame(edges []pigpio.Edge) ([frameBytes]byte, error) {
	var frame [frameBytes]byte

	widths := highPulses(edges)
	if len(widths) < frameBits {
		return frame, fmt.Errorf("%w: %d of %d bits received", ErrTimeout, len(widths), frameBits)
	}
	widths = widths[len(widths)-frameBits:]

	for i, w := range widths {
		if w > oneThreshold {
			frame[i/8] |= 1 << (7 - uint(i%8))
		}
	}

	sum := frame[0] + frame[1] + frame[2] + frame[3]
	if sum != frame[4] {
		return frame, fmt.Errorf("%w: got %#02x, want %#02x", ErrChecksum, frame[4], sum)
	}
	return frame, nil
}

// parseFrame converts a DHT11 frame to a Reading. Byte 3 carries the
// temperature's tenths in its low nibble and the sign in bit 7.
func parseFrame(frame [frameBytes]byte) Reading {
	humidity := float64(frame[0]) + float64(frame[1])/10
	temp := float64(frame[2]) + float64(frame[3]&0x0f)/10
	if frame[3]&0x80 != 0 {
		temp = -temp
	}
	return Reading{
		Valid:           true,
		TemperatureC:    temp,
		HumidityPercent: humidity,
	}
}
