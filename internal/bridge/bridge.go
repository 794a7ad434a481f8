package bridge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/temirov/sentinelctl/internal/execshell"
	"github.com/temirov/sentinelctl/internal/remoteshell"
)

const (
	defaultTimeoutConstant               = 300 * time.Second
	missingLocalRunnerMessageConstant    = "bridge requires a local command runner"
	missingScriptPathMessageConstant     = "script path must not be empty"
	missingRemoteRunnerMessageConstant   = "remote execution target requested but no remote runner is configured"
	scriptReadFailureTemplateConstant    = "unable to read script %s for remote execution"
	spawnFailureTemplateConstant         = "unable to start %s"
	remoteConnectFailureTemplateConstant = "unable to reach remote host %s"
	remoteSessionFailureTemplateConstant = "remote session on %s failed"
	remoteRejectedTemplateConstant       = "remote host %s rejected: %v"
	executionFailureTemplateConstant     = "execution of %s failed"
	timeoutTemplateConstant              = "%s did not finish within %s"
	canceledTemplateConstant             = "%s was canceled"
	nonZeroExitTemplateConstant          = "%s exited with status %d"
	invalidTimeoutTemplateConstant       = "timeout must be positive, got %s"
)

// ErrRunnerNotConfigured indicates that a Bridge was constructed without a local command runner.
var ErrRunnerNotConfigured = errors.New(missingLocalRunnerMessageConstant)

// RemoteRunner executes a composed command on a remote endpoint.
type RemoteRunner interface {
	Run(ctx context.Context, endpoint remoteshell.Endpoint, command remoteshell.Command) (execshell.ExecutionResult, error)
}

// ScriptReader loads a script body for remote inlining.
type ScriptReader func(scriptPath string) ([]byte, error)

// IdentifierGenerator produces invocation identifiers.
type IdentifierGenerator func() string

// Configuration holds the immutable settings of a Bridge.
type Configuration struct {
	ScriptPath         string
	Interpreter        execshell.CommandName
	DefaultTimeout     time.Duration
	SerializationDepth int
	RetryPolicy        RetryPolicy
	TransientExitCodes []int
	SampleLength       int
}

// Collaborators are the substitutable dependencies of a Bridge.
type Collaborators struct {
	LocalRunner         execshell.CommandRunner
	RemoteRunner        RemoteRunner
	ScriptReader        ScriptReader
	Sink                EventSink
	Sleeper             Sleeper
	IdentifierGenerator IdentifierGenerator
}

// Invocation describes one function call. Empty ScriptPath and zero Timeout fall back to the Bridge configuration.
type Invocation struct {
	ScriptPath   string
	FunctionName string
	Parameters   ParameterSet
	Target       ExecutionTarget
	Timeout      time.Duration
}

// InvocationOutcome is the successful result of an invocation.
type InvocationOutcome struct {
	InvocationID string
	ExitCode     int
	RawOutput    string
	Result       any
	Attempts     int
	Duration     time.Duration
}

// Bridge executes script functions against local or remote targets. A Bridge is safe for concurrent use.
type Bridge struct {
	configuration      Configuration
	transientExitCodes []int
	localRunner        execshell.CommandRunner
	remoteRunner       RemoteRunner
	scriptReader       ScriptReader
	sink               EventSink
	marshaler          ParameterMarshaler
	composer           CommandComposer
	decoder            ResultDecoder
	retryController    RetryController
	generateIdentifier IdentifierGenerator
}

// New constructs a Bridge from configuration and collaborators.
func New(configuration Configuration, collaborators Collaborators) (*Bridge, error) {
	if collaborators.LocalRunner == nil {
		return nil, ErrRunnerNotConfigured
	}
	if configuration.DefaultTimeout == 0 {
		configuration.DefaultTimeout = defaultTimeoutConstant
	}
	if configuration.DefaultTimeout < 0 {
		return nil, NewValidationFailure(fmt.Sprintf(invalidTimeoutTemplateConstant, configuration.DefaultTimeout), nil)
	}
	if configuration.RetryPolicy == (RetryPolicy{}) {
		configuration.RetryPolicy = DefaultRetryPolicy()
	}
	if policyError := configuration.RetryPolicy.Validate(); policyError != nil {
		return nil, policyError
	}

	scriptReader := collaborators.ScriptReader
	if scriptReader == nil {
		scriptReader = os.ReadFile
	}
	sink := collaborators.Sink
	if sink == nil {
		sink = NopSink{}
	}
	generateIdentifier := collaborators.IdentifierGenerator
	if generateIdentifier == nil {
		generateIdentifier = uuid.NewString
	}

	return &Bridge{
		configuration:      configuration,
		transientExitCodes: slices.Clone(configuration.TransientExitCodes),
		localRunner:        collaborators.LocalRunner,
		remoteRunner:       collaborators.RemoteRunner,
		scriptReader:       scriptReader,
		sink:               sink,
		composer:           NewCommandComposer(configuration.Interpreter, configuration.SerializationDepth),
		decoder:            NewResultDecoder(configuration.SampleLength),
		retryController:    NewRetryController(configuration.RetryPolicy, collaborators.Sleeper),
		generateIdentifier: generateIdentifier,
	}, nil
}

// RetryPolicy reports the policy applied to every invocation.
func (bridge *Bridge) RetryPolicy() RetryPolicy {
	return bridge.configuration.RetryPolicy
}

// Execute validates, marshals, runs with retry and decodes one invocation.
func (bridge *Bridge) Execute(ctx context.Context, invocation Invocation) (InvocationOutcome, error) {
	startTime := time.Now()
	event := InvocationEvent{
		InvocationID:   bridge.generateIdentifier(),
		FunctionName:   invocation.FunctionName,
		Target:         invocation.Target.kindOrLocal(),
		Host:           invocation.Target.Host,
		ParameterNames: invocation.Parameters.Names(),
	}
	bridge.sink.InvocationStarted(event)

	outcome, executionError := bridge.execute(ctx, invocation, event)
	if executionError != nil {
		bridge.sink.InvocationFailed(event, executionError, time.Since(startTime))
		return InvocationOutcome{}, executionError
	}
	outcome.InvocationID = event.InvocationID
	outcome.Duration = time.Since(startTime)
	bridge.sink.InvocationSucceeded(event, outcome)
	return outcome, nil
}

func (bridge *Bridge) execute(ctx context.Context, invocation Invocation, event InvocationEvent) (InvocationOutcome, error) {
	if targetError := invocation.Target.Validate(); targetError != nil {
		return InvocationOutcome{}, targetError
	}
	if functionError := ValidateFunctionName(invocation.FunctionName); functionError != nil {
		return InvocationOutcome{}, functionError
	}
	scriptPath := invocation.ScriptPath
	if len(strings.TrimSpace(scriptPath)) == 0 {
		scriptPath = bridge.configuration.ScriptPath
	}
	if len(strings.TrimSpace(scriptPath)) == 0 {
		return InvocationOutcome{}, NewValidationFailure(missingScriptPathMessageConstant, nil)
	}
	timeout := invocation.Timeout
	if timeout == 0 {
		timeout = bridge.configuration.DefaultTimeout
	}
	if timeout < 0 {
		return InvocationOutcome{}, NewValidationFailure(fmt.Sprintf(invalidTimeoutTemplateConstant, timeout), nil)
	}

	fragments, marshalError := bridge.marshaler.Marshal(invocation.Parameters)
	if marshalError != nil {
		return InvocationOutcome{}, marshalError
	}

	runAttempt, preparationError := bridge.prepareAttempt(invocation, scriptPath, fragments)
	if preparationError != nil {
		return InvocationOutcome{}, preparationError
	}

	var outcome InvocationOutcome
	attemptOperation := func(attemptContext context.Context, attempt int) error {
		attemptOutcome, attemptError := bridge.runAttempt(attemptContext, invocation.FunctionName, attempt, timeout, runAttempt)
		if attemptError != nil {
			return attemptError
		}
		outcome = attemptOutcome
		return nil
	}
	attemptObserver := func(attempt int, failure error) {
		bridge.sink.AttemptFailed(event, attempt, failure)
	}

	attempts, retryError := bridge.retryController.Run(ctx, attemptOperation, attemptObserver)
	if retryError != nil {
		return InvocationOutcome{}, retryError
	}
	outcome.Attempts = attempts
	return outcome, nil
}

type attemptRunner func(ctx context.Context) (execshell.ExecutionResult, error)

// prepareAttempt resolves everything that stays fixed across attempts; each call of the returned runner
// builds its own command value.
func (bridge *Bridge) prepareAttempt(invocation Invocation, scriptPath string, fragments []string) (attemptRunner, error) {
	if !invocation.Target.IsRemote() {
		return func(ctx context.Context) (execshell.ExecutionResult, error) {
			return bridge.localRunner.Run(ctx, bridge.composer.LocalCommand(scriptPath, invocation.FunctionName, fragments))
		}, nil
	}

	if bridge.remoteRunner == nil {
		return nil, NewValidationFailure(missingRemoteRunnerMessageConstant, nil)
	}
	scriptBody, readError := bridge.scriptReader(scriptPath)
	if readError != nil {
		return nil, NewValidationFailure(fmt.Sprintf(scriptReadFailureTemplateConstant, scriptPath), readError)
	}
	endpoint := endpointFor(invocation.Target)
	return func(ctx context.Context) (execshell.ExecutionResult, error) {
		remoteCommand, composeError := bridge.composer.RemoteCommand(scriptBody, invocation.FunctionName, fragments)
		if composeError != nil {
			return execshell.ExecutionResult{}, composeError
		}
		return bridge.remoteRunner.Run(ctx, endpoint, remoteshell.Command{
			CommandLine:   remoteCommand.CommandLine,
			StandardInput: remoteCommand.StandardInput,
		})
	}, nil
}

func (bridge *Bridge) runAttempt(ctx context.Context, functionName string, attempt int, timeout time.Duration, run attemptRunner) (InvocationOutcome, error) {
	attemptContext, cancelAttempt := context.WithTimeout(ctx, timeout)
	defer cancelAttempt()

	executionResult, runError := run(attemptContext)
	if runError != nil {
		return InvocationOutcome{}, bridge.classifyRunError(ctx, attemptContext, functionName, attempt, timeout, runError)
	}
	if executionResult.ExitCode != 0 {
		return InvocationOutcome{}, newNonZeroExitFailure(
			fmt.Sprintf(nonZeroExitTemplateConstant, functionName, executionResult.ExitCode),
			attempt,
			executionResult.ExitCode,
			executionResult.StandardError,
			slices.Contains(bridge.transientExitCodes, executionResult.ExitCode),
		)
	}

	decodedResult, decodeError := bridge.decoder.Decode(executionResult.StandardOutput)
	if decodeError != nil {
		var failure *Failure
		if errors.As(decodeError, &failure) {
			failure.Attempts = attempt
			failure.StandardError = executionResult.StandardError
		}
		return InvocationOutcome{}, decodeError
	}
	return InvocationOutcome{
		ExitCode:  executionResult.ExitCode,
		RawOutput: executionResult.StandardOutput,
		Result:    decodedResult,
	}, nil
}

func (bridge *Bridge) classifyRunError(parentContext context.Context, attemptContext context.Context, functionName string, attempt int, timeout time.Duration, runError error) error {
	var failure *Failure
	if errors.As(runError, &failure) {
		return runError
	}
	if parentContext.Err() != nil {
		return newCanceledFailure(fmt.Sprintf(canceledTemplateConstant, functionName), attempt, runError)
	}
	if errors.Is(attemptContext.Err(), context.DeadlineExceeded) {
		return newTimeoutFailure(fmt.Sprintf(timeoutTemplateConstant, functionName, timeout), attempt, runError)
	}

	var startError execshell.ProcessStartError
	if errors.As(runError, &startError) {
		return newTransientFailure(fmt.Sprintf(spawnFailureTemplateConstant, startError.Command), attempt, runError)
	}
	var connectError remoteshell.ConnectError
	if errors.As(runError, &connectError) {
		return newTransientFailure(fmt.Sprintf(remoteConnectFailureTemplateConstant, connectError.Address), attempt, runError)
	}
	var sessionError remoteshell.SessionError
	if errors.As(runError, &sessionError) {
		return newTransientFailure(fmt.Sprintf(remoteSessionFailureTemplateConstant, sessionError.Address), attempt, runError)
	}
	var hostKeyError remoteshell.HostKeyError
	if errors.As(runError, &hostKeyError) {
		rejection := NewValidationFailure(fmt.Sprintf(remoteRejectedTemplateConstant, hostKeyError.Host, hostKeyError.Cause), runError)
		rejection.Attempts = attempt
		return rejection
	}
	var authenticationError remoteshell.AuthenticationError
	if errors.As(runError, &authenticationError) {
		rejection := NewValidationFailure(fmt.Sprintf(remoteRejectedTemplateConstant, authenticationError.Address, authenticationError.Cause), runError)
		rejection.Attempts = attempt
		return rejection
	}
	var configurationError remoteshell.ConfigurationError
	if errors.As(runError, &configurationError) {
		rejection := NewValidationFailure(configurationError.Error(), runError)
		rejection.Attempts = attempt
		return rejection
	}
	return newTransientFailure(fmt.Sprintf(executionFailureTemplateConstant, functionName), attempt, runError)
}

func endpointFor(target ExecutionTarget) remoteshell.Endpoint {
	endpoint := remoteshell.Endpoint{
		Host:                            target.Host,
		Port:                            target.Settings.Port,
		Username:                        target.Username,
		KnownHostsPath:                  target.Settings.KnownHostsPath,
		InsecureSkipHostKeyVerification: target.Settings.InsecureSkipHostKeyVerification,
		ConnectTimeout:                  target.Settings.ConnectTimeout,
	}
	if target.Credential != nil {
		endpoint.Password = target.Credential.Password
		endpoint.PrivateKeyPath = target.Credential.PrivateKeyPath
	}
	return endpoint
}
