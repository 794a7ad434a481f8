package bridge

import (
	"errors"
	"fmt"
)

const (
	failureMessageTemplateConstant          = "%s: %s"
	failureMessageWithCauseTemplateConstant = "%s: %s: %v"
)

// FailureKind tags the class of a bridge failure.
type FailureKind string

// Failure kind enumerations.
const (
	FailureKindValidation         FailureKind = FailureKind("validation")
	FailureKindTransientExecution FailureKind = FailureKind("transient_execution")
	FailureKindTimeout            FailureKind = FailureKind("timeout")
	FailureKindNonZeroExit        FailureKind = FailureKind("non_zero_exit")
	FailureKindDecode             FailureKind = FailureKind("decode")
	FailureKindCanceled           FailureKind = FailureKind("canceled")
)

// Failure is the single error type returned by the Bridge.
type Failure struct {
	Kind          FailureKind
	Message       string
	OutputSample  string
	StandardError string
	ExitCode      int
	Attempts      int
	Cause         error
	Retryable     bool
}

// FailureDescriptor is the serializable tagged failure object handed to callers.
type FailureDescriptor struct {
	Kind            FailureKind `json:"kind"`
	Message         string      `json:"message"`
	RawOutputSample string      `json:"raw_output_sample,omitempty"`
	StandardError   string      `json:"standard_error,omitempty"`
	ExitCode        int         `json:"exit_code,omitempty"`
	Attempts        int         `json:"attempts,omitempty"`
	Retryable       bool        `json:"retryable"`
}

// Error describes the failure.
func (failure *Failure) Error() string {
	if failure.Cause != nil {
		return fmt.Sprintf(failureMessageWithCauseTemplateConstant, failure.Kind, failure.Message, failure.Cause)
	}
	return fmt.Sprintf(failureMessageTemplateConstant, failure.Kind, failure.Message)
}

// Unwrap exposes the underlying cause.
func (failure *Failure) Unwrap() error {
	return failure.Cause
}

// Transient reports whether the retry controller may try the operation again.
func (failure *Failure) Transient() bool {
	return failure.Retryable
}

// Descriptor converts the failure into its serializable form.
func (failure *Failure) Descriptor() FailureDescriptor {
	return FailureDescriptor{
		Kind:            failure.Kind,
		Message:         failure.Message,
		RawOutputSample: failure.OutputSample,
		StandardError:   failure.StandardError,
		ExitCode:        failure.ExitCode,
		Attempts:        failure.Attempts,
		Retryable:       failure.Retryable,
	}
}

// KindOf extracts the FailureKind of err, or an empty kind when err is not a *Failure.
func KindOf(err error) FailureKind {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Kind
	}
	return ""
}

// IsTransient reports whether err is a *Failure classified as retryable.
func IsTransient(err error) bool {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Transient()
	}
	return false
}

// NewValidationFailure reports a malformed request. Validation failures are never retried.
func NewValidationFailure(message string, cause error) *Failure {
	return &Failure{Kind: FailureKindValidation, Message: message, Cause: cause}
}

func newTransientFailure(message string, attempt int, cause error) *Failure {
	return &Failure{Kind: FailureKindTransientExecution, Message: message, Attempts: attempt, Cause: cause, Retryable: true}
}

func newTimeoutFailure(message string, attempt int, cause error) *Failure {
	return &Failure{Kind: FailureKindTimeout, Message: message, Attempts: attempt, Cause: cause, Retryable: true}
}

func newCanceledFailure(message string, attempt int, cause error) *Failure {
	return &Failure{Kind: FailureKindCanceled, Message: message, Attempts: attempt, Cause: cause}
}

func newNonZeroExitFailure(message string, attempt int, exitCode int, standardError string, transient bool) *Failure {
	return &Failure{
		Kind:          FailureKindNonZeroExit,
		Message:       message,
		Attempts:      attempt,
		ExitCode:      exitCode,
		StandardError: standardError,
		Retryable:     transient,
	}
}

func newDecodeFailure(message string, sample string, cause error) *Failure {
	return &Failure{Kind: FailureKindDecode, Message: message, OutputSample: sample, Cause: cause}
}
