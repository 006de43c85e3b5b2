package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementPower       = "power_state"
	MeasurementEnvironment = "environment"
)

// WritePowerState records a power state change. source names what caused
// it, such as "api" or "startup".
func (c *Client) WritePowerState(value int, source string) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newPowerPoint(c.cfg.DeviceID, value, source, time.Now()))
}

// WriteEnvSample records a valid environment reading.
func (c *Client) WriteEnvSample(temperatureC, humidityPercent float64) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(newEnvPoint(c.cfg.DeviceID, temperatureC, humidityPercent, time.Now()))
}

func newPowerPoint(deviceID string, value int, source string, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementPower,
		map[string]string{
			"device_id": deviceID,
			"source":    source,
		},
		map[string]any{
			"value": value,
		},
		at,
	)
}

func newEnvPoint(deviceID string, temperatureC, humidityPercent float64, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementEnvironment,
		map[string]string{
			"device_id": deviceID,
		},
		map[string]any{
			"temperature_c":    temperatureC,
			"humidity_percent": humidityPercent,
		},
		at,
	)
}
