// Package influxdb records servo-switch telemetry in InfluxDB v2.
//
// Two measurements are written, both tagged with device_id:
//
//	power_state   field value (0-3), tag source
//	environment   fields temperature_c, humidity_percent
//
// Writes go through the client's non-blocking batched write API, so they
// never slow down an HTTP request. Failures surface through SetOnError.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WritePowerState(2, "api")
//	client.WriteEnvSample(21.5, 40)
package influxdb
