package device

import "errors"

// Domain errors for the device package.
var (
	// ErrInvalidPower is returned when a power value is outside [0, 3].
	ErrInvalidPower = errors.New("device: power value must be between 0 and 3")

	// ErrInvalidConfig is returned by NewController for unusable wiring.
	ErrInvalidConfig = errors.New("device: invalid config")
)
