// Package pigpio is a client for the pigpiod daemon socket interface.
//
// pigpiod owns the Raspberry Pi's GPIO hardware and accepts commands over
// TCP (port 8888 by default). Each command is a 16-byte little-endian frame
// of four uint32 values (cmd, p1, p2, p3); the daemon answers with the same
// layout where the last word is the signed result. Negative results are
// pigpio error codes and are returned as *Error.
//
// The package covers the subset servo-switch needs: servo pulse widths,
// pin modes and levels, pull-ups, and in-band notifications used to time
// the DHT11 sensor's single-wire transfer.
//
// # Usage
//
//	client, err := pigpio.Dial(ctx, pigpio.Config{Host: "localhost", Port: 8888})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.SetServoPulsewidth(ctx, 23, 1500)
//
// Thread Safety: Client methods are safe for concurrent use. Command round
// trips are serialised on the single command connection.
package pigpio
