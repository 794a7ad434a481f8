package cli

import (
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/sentinelctl/internal/output"
)

// ErrRuntimeNotConfigured indicates that a command was built without a runtime provider.
var ErrRuntimeNotConfigured = errors.New("command runtime not configured")

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider returns the loaded application configuration.
type ConfigurationProvider func() ApplicationConfiguration

// RuntimeProvider returns the shared services, building them on first use.
type RuntimeProvider func() (*Runtime, error)

// OutputFormatProvider returns the selected output format.
type OutputFormatProvider func() (output.Format, error)

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func resolveOutputFormat(provider OutputFormatProvider, fallback output.Format) (output.Format, error) {
	if provider == nil {
		return fallback, nil
	}
	return provider()
}

func resolveRuntime(provider RuntimeProvider) (*Runtime, error) {
	if provider == nil {
		return nil, ErrRuntimeNotConfigured
	}
	return provider()
}
