package utils

import (
	"context"
	"time"
)

const (
	configurationFilePathContextKeyConstant = commandContextKey("configurationFilePath")
	commandStartedAtContextKeyConstant      = commandContextKey("commandStartedAt")
)

type commandContextKey string

// CommandContextAccessor manages values stored in command execution contexts.
type CommandContextAccessor struct{}

// NewCommandContextAccessor constructs a CommandContextAccessor instance.
func NewCommandContextAccessor() CommandContextAccessor {
	return CommandContextAccessor{}
}

// WithConfigurationFilePath attaches the configuration file path to the provided context.
func (accessor CommandContextAccessor) WithConfigurationFilePath(parentContext context.Context, configurationFilePath string) context.Context {
	return withValue(parentContext, configurationFilePathContextKeyConstant, configurationFilePath)
}

// ConfigurationFilePath extracts the configuration file path from the provided context.
func (accessor CommandContextAccessor) ConfigurationFilePath(executionContext context.Context) (string, bool) {
	return valueOf[string](executionContext, configurationFilePathContextKeyConstant)
}

// WithCommandStartedAt records when the command began so later stages can report total elapsed time.
func (accessor CommandContextAccessor) WithCommandStartedAt(parentContext context.Context, startedAt time.Time) context.Context {
	return withValue(parentContext, commandStartedAtContextKeyConstant, startedAt)
}

// CommandStartedAt extracts the command start time from the provided context.
func (accessor CommandContextAccessor) CommandStartedAt(executionContext context.Context) (time.Time, bool) {
	return valueOf[time.Time](executionContext, commandStartedAtContextKeyConstant)
}

func withValue(parentContext context.Context, key commandContextKey, value any) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, key, value)
}

func valueOf[ValueType any](executionContext context.Context, key commandContextKey) (ValueType, bool) {
	var zeroValue ValueType
	if executionContext == nil {
		return zeroValue, false
	}
	value, valueAvailable := executionContext.Value(key).(ValueType)
	if !valueAvailable {
		return zeroValue, false
	}
	return value, true
}
