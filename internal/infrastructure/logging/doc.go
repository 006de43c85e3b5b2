// Package logging provides structured logging for servo-switch.
//
// It wraps the standard log/slog package so every component logs with the
// same handler, level and default fields.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("servo moved", "pin", 23, "pulse_width", 2000)
//
// Never log the API token.
package logging
