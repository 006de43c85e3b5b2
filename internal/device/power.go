package device

import "fmt"

// PowerState is the 2-bit switch value exposed by the API.
type PowerState int

// Power bits and range.
const (
	bitMin PowerState = 1 << 0
	bitMed PowerState = 1 << 1

	PowerOff PowerState = 0
	PowerMax PowerState = bitMin | bitMed
)

// Valid reports whether p fits in two bits.
func (p PowerState) Valid() bool {
	return p >= PowerOff && p <= PowerMax
}

// ParsePowerState converts an integer to a PowerState, rejecting values
// outside [0, 3].
func ParsePowerState(v int) (PowerState, error) {
	p := PowerState(v)
	if !p.Valid() {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidPower, v)
	}
	return p, nil
}

// PulseRange is the servo pulse width range in microseconds.
type PulseRange struct {
	Min uint
	Max uint
}

// center is the threshold used to read a servo position back as a bit.
func (r PulseRange) center() float64 {
	return float64(r.Min+r.Max) / 2
}

// encode returns the MIN and MED servo pulse widths for p.
// The MED servo is mounted reversed, so its polarity is inverted.
func (r PulseRange) encode(p PowerState) (minWidth, medWidth uint) {
	minWidth = r.Min
	if p&bitMin != 0 {
		minWidth = r.Max
	}

	medWidth = r.Max
	if p&bitMed != 0 {
		medWidth = r.Min
	}

	return minWidth, medWidth
}

// decode reconstructs the power state from the two pulse widths.
func (r PulseRange) decode(minWidth, medWidth uint) PowerState {
	c := r.center()

	var p PowerState
	if float64(minWidth) > c {
		p |= bitMin
	}
	if float64(medWidth) < c {
		p |= bitMed
	}
	return p
}
