package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/temirov/sentinelctl/internal/bridge"
)

const (
	invocationStartedMessageTemplateConstant   = "Running %s"
	invocationSucceededMessageTemplateConstant = "Completed %s"
	attemptFailedMessageTemplateConstant       = "%s attempt %d failed: %s"
	invocationFailedMessageTemplateConstant    = "%s failed: %s"
	invocationLabelTemplateConstant            = "%s%s"
	remoteHostSuffixTemplateConstant           = " (on %s)"
	unknownFailureMessageConstant              = "unknown error"
	emptyStringConstant                        = ""

	invocationIdentifierFieldConstant = "invocation_id"
	functionFieldConstant             = "function"
	targetFieldConstant               = "target"
	hostFieldConstant                 = "host"
	parameterNamesFieldConstant       = "parameter_names"
	attemptFieldConstant              = "attempt"
	attemptsFieldConstant             = "attempts"
	failureKindFieldConstant          = "failure_kind"
	exitCodeFieldConstant             = "exit_code"
	retryableFieldConstant            = "retryable"
	elapsedFieldConstant              = "elapsed"
)

// InvocationEventFormatter builds human-readable messages for invocation lifecycle events.
type InvocationEventFormatter struct{}

// BuildStartedMessage formats the message describing an invocation about to run.
func (formatter InvocationEventFormatter) BuildStartedMessage(event bridge.InvocationEvent) string {
	return fmt.Sprintf(invocationStartedMessageTemplateConstant, formatter.formatInvocationLabel(event))
}

// BuildSuccessMessage formats the message describing a completed invocation.
func (formatter InvocationEventFormatter) BuildSuccessMessage(event bridge.InvocationEvent) string {
	return fmt.Sprintf(invocationSucceededMessageTemplateConstant, formatter.formatInvocationLabel(event))
}

// BuildAttemptFailureMessage formats the message describing a single failed attempt.
func (formatter InvocationEventFormatter) BuildAttemptFailureMessage(event bridge.InvocationEvent, attempt int, failure error) string {
	return fmt.Sprintf(attemptFailedMessageTemplateConstant, formatter.formatInvocationLabel(event), attempt, formatter.formatFailure(failure))
}

// BuildFailureMessage formats the message describing an invocation that exhausted its attempts or failed permanently.
func (formatter InvocationEventFormatter) BuildFailureMessage(event bridge.InvocationEvent, failure error) string {
	return fmt.Sprintf(invocationFailedMessageTemplateConstant, formatter.formatInvocationLabel(event), formatter.formatFailure(failure))
}

func (formatter InvocationEventFormatter) formatInvocationLabel(event bridge.InvocationEvent) string {
	return fmt.Sprintf(invocationLabelTemplateConstant, event.FunctionName, formatter.formatRemoteHostSuffix(event))
}

func (formatter InvocationEventFormatter) formatRemoteHostSuffix(event bridge.InvocationEvent) string {
	trimmedHost := strings.TrimSpace(event.Host)
	if event.Target != bridge.TargetKindRemote || len(trimmedHost) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(remoteHostSuffixTemplateConstant, trimmedHost)
}

func (formatter InvocationEventFormatter) formatFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

// InvocationEventLogger renders bridge lifecycle events through zap. Parameter values are never logged, only their names.
type InvocationEventLogger struct {
	logger    *zap.Logger
	formatter InvocationEventFormatter
}

// NewInvocationEventLogger constructs an event logger backed by the provided zap logger.
func NewInvocationEventLogger(logger *zap.Logger) *InvocationEventLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvocationEventLogger{logger: logger, formatter: InvocationEventFormatter{}}
}

// InvocationStarted implements bridge.EventSink.
func (eventLogger *InvocationEventLogger) InvocationStarted(event bridge.InvocationEvent) {
	if eventLogger == nil {
		return
	}
	eventLogger.logger.Info(eventLogger.formatter.BuildStartedMessage(event), eventFields(event)...)
}

// AttemptFailed implements bridge.EventSink.
func (eventLogger *InvocationEventLogger) AttemptFailed(event bridge.InvocationEvent, attempt int, failure error) {
	if eventLogger == nil {
		return
	}
	fields := append(eventFields(event), zap.Int(attemptFieldConstant, attempt))
	fields = append(fields, failureFields(failure)...)
	eventLogger.logger.Warn(eventLogger.formatter.BuildAttemptFailureMessage(event, attempt, failure), fields...)
}

// InvocationSucceeded implements bridge.EventSink.
func (eventLogger *InvocationEventLogger) InvocationSucceeded(event bridge.InvocationEvent, outcome bridge.InvocationOutcome) {
	if eventLogger == nil {
		return
	}
	fields := append(eventFields(event),
		zap.Int(attemptsFieldConstant, outcome.Attempts),
		zap.Duration(elapsedFieldConstant, outcome.Duration),
	)
	eventLogger.logger.Info(eventLogger.formatter.BuildSuccessMessage(event), fields...)
}

// InvocationFailed implements bridge.EventSink.
func (eventLogger *InvocationEventLogger) InvocationFailed(event bridge.InvocationEvent, failure error, elapsed time.Duration) {
	if eventLogger == nil {
		return
	}
	fields := append(eventFields(event), zap.Duration(elapsedFieldConstant, elapsed))
	fields = append(fields, failureFields(failure)...)
	eventLogger.logger.Error(eventLogger.formatter.BuildFailureMessage(event, failure), fields...)
}

func eventFields(event bridge.InvocationEvent) []zap.Field {
	fields := []zap.Field{
		zap.String(invocationIdentifierFieldConstant, event.InvocationID),
		zap.String(functionFieldConstant, event.FunctionName),
		zap.String(targetFieldConstant, string(event.Target)),
		zap.Strings(parameterNamesFieldConstant, event.ParameterNames),
	}
	if len(event.Host) > 0 {
		fields = append(fields, zap.String(hostFieldConstant, event.Host))
	}
	return fields
}

func failureFields(failure error) []zap.Field {
	fields := []zap.Field{zap.String(failureKindFieldConstant, string(bridge.KindOf(failure)))}
	var bridgeFailure *bridge.Failure
	if errors.As(failure, &bridgeFailure) {
		fields = append(fields,
			zap.Int(exitCodeFieldConstant, bridgeFailure.ExitCode),
			zap.Bool(retryableFieldConstant, bridgeFailure.Retryable),
		)
		if bridgeFailure.Attempts > 0 {
			fields = append(fields, zap.Int(attemptsFieldConstant, bridgeFailure.Attempts))
		}
	}
	return fields
}
