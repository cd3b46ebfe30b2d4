// Package utils provides shared logging setup.
package utils

import "go.uber.org/zap"

// ServiceName is attached to every production log entry.
const ServiceName = "storefront"

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level)
// tagged with the service name.
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.InitialFields = map[string]interface{}{"service": ServiceName}
	return cfg.Build()
}

// NewCLILogger returns the logger for one-shot commands: debug output when asked for,
// otherwise warnings and errors only so command output stays readable.
func NewCLILogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	return cfg.Build()
}
