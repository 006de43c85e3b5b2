// Package dht reads a DHT11 temperature/humidity sensor through pigpiod.
//
// The DHT11 talks over a single data line: the host pulls the line low for
// at least 18ms, releases it, and the sensor answers with an 80µs low/high
// preamble followed by 40 bits. Each bit is a ~50µs low followed by a high
// pulse of ~27µs (0) or ~70µs (1). The last byte is a checksum of the
// first four.
//
// Sensor.Read captures the line's edges with pigpio notifications and
// decodes the high-pulse widths. A read that produces no complete frame is
// a timeout; a frame with a bad checksum is invalid. Both are retried a
// fixed number of times.
package dht
