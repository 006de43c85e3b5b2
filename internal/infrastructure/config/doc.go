// Package config handles loading and validating servo-switch configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with environment variables (AUTH_TOKEN, SERVOSWITCH_*)
//   - Validation of pins, pulse widths and optional integrations
//   - Default value handling
//
// Security Considerations:
//   - The API secret should come from the AUTH_TOKEN environment variable,
//     not the config file
//   - An empty secret is accepted but locks the API (every request gets 401)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Hardware.Servo.MinPin)
package config
