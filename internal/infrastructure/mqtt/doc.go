// Package mqtt publishes servo-switch state to an MQTT broker.
//
// The bus is outbound only. Every successful power change and every valid
// environment read is published as a retained message, so a dashboard or
// home automation controller that subscribes later still sees the current
// state. The broker is optional: when it is down, publishes fail and are
// logged, and the HTTP API keeps working.
//
// # Topics
//
//	servoswitch/state/power    {"value":2,"source":"api","timestamp":"..."}
//	servoswitch/state/env      {"valid":true,"temperature_c":21,"humidity_percent":40,"timestamp":"..."}
//	servoswitch/system/status  {"status":"online","client_id":"servoswitch","timestamp":"..."}
//
// The status topic carries a Last Will so subscribers notice a crash.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishPower(2, "api")
package mqtt
