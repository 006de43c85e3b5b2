package dht

import "errors"

var (
	// ErrTimeout is returned when the sensor did not answer with a full frame
	// on any attempt.
	ErrTimeout = errors.New("dht: sensor read timed out")

	// ErrChecksum is returned by decode when the frame checksum does not match.
	ErrChecksum = errors.New("dht: checksum mismatch")
)
