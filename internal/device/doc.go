// Package device is the only part of servo-switch that talks to hardware.
//
// It owns the translation between the API's 2-bit power state and the
// pulse widths of the two switch servos, and turns DHT11 reads into
// environment samples.
//
// # Power state
//
// Bit 0 drives the "MIN" servo and bit 1 the "MED" servo. The MED servo is
// mounted in the opposite orientation, so its polarity is inverted:
//
//	value  MIN pulse  MED pulse
//	  0    min        max
//	  1    max        max
//	  2    min        min
//	  3    max        min
//
// The state is never stored. GetPower reads both pulse widths back from
// pigpiod and compares each with the midpoint of the configured range.
//
// # Usage
//
//	ctrl, err := device.NewController(ctx, cfg, servos, sensor)
//	if err != nil {
//	    return err
//	}
//	err = ctrl.SetPower(ctx, 2)
//	sample, err := ctrl.GetEnv(ctx)
package device
