package pigpio

import (
	"errors"
	"fmt"
)

// Sentinel errors for pigpio operations.
var (
	// ErrConnectionFailed is returned when the daemon cannot be reached.
	ErrConnectionFailed = errors.New("pigpio: connection failed")

	// ErrNotConnected is returned after Close.
	ErrNotConnected = errors.New("pigpio: client not connected")

	// ErrCommandFailed wraps every negative daemon result.
	ErrCommandFailed = errors.New("pigpio: command failed")

	// ErrProtocol is returned when a response frame does not match its request.
	ErrProtocol = errors.New("pigpio: protocol error")
)

// Error codes returned by pigpiod that servo-switch reports by name.
const (
	CodeBadUserGPIO   = -2
	CodeBadGPIO       = -3
	CodeBadMode       = -4
	CodeBadLevel      = -5
	CodeBadPUD        = -6
	CodeBadPulsewidth = -7
	CodeBadHandle     = -25
	CodeNotPermitted  = -41
	CodeNotServoGPIO  = -93
)

var codeNames = map[int32]string{
	CodeBadUserGPIO:   "gpio not 0-31",
	CodeBadGPIO:       "gpio not 0-53",
	CodeBadMode:       "mode not 0-7",
	CodeBadLevel:      "level not 0-1",
	CodeBadPUD:        "pud not 0-2",
	CodeBadPulsewidth: "pulsewidth not 0 or 500-2500",
	CodeBadHandle:     "unknown handle",
	CodeNotPermitted:  "gpio operation not permitted",
	CodeNotServoGPIO:  "gpio is not in use for servo pulses",
}

// Error is a negative result returned by pigpiod for a command.
type Error struct {
	Command uint32
	Code    int32
}

// Error implements error.
func (e *Error) Error() string {
	if name, ok := codeNames[e.Code]; ok {
		return fmt.Sprintf("pigpio: command %d failed: %s (%d)", e.Command, name, e.Code)
	}
	return fmt.Sprintf("pigpio: command %d failed with code %d", e.Command, e.Code)
}

// Is lets errors.Is match any daemon error against ErrCommandFailed.
func (e *Error) Is(target error) bool {
	return target == ErrCommandFailed
}
