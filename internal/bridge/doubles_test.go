package bridge_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/temirov/sentinelctl/internal/bridge"
	"github.com/temirov/sentinelctl/internal/execshell"
	"github.com/temirov/sentinelctl/internal/remoteshell"
)

type runnerResponse func(executionContext context.Context, attempt int, command execshell.ShellCommand) (execshell.ExecutionResult, error)

type recordingRunner struct {
	mutex    sync.Mutex
	commands []execshell.ShellCommand
	respond  runnerResponse
}

func (runner *recordingRunner) Run(executionContext context.Context, command execshell.ShellCommand) (execshell.ExecutionResult, error) {
	runner.mutex.Lock()
	runner.commands = append(runner.commands, command)
	attempt := len(runner.commands)
	runner.mutex.Unlock()
	return runner.respond(executionContext, attempt, command)
}

func (runner *recordingRunner) recordedCommands() []execshell.ShellCommand {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	return append([]execshell.ShellCommand{}, runner.commands...)
}

type remoteCall struct {
	endpoint remoteshell.Endpoint
	command  remoteshell.Command
}

type recordingRemoteRunner struct {
	mutex   sync.Mutex
	calls   []remoteCall
	respond func(attempt int) (execshell.ExecutionResult, error)
}

func (runner *recordingRemoteRunner) Run(_ context.Context, endpoint remoteshell.Endpoint, command remoteshell.Command) (execshell.ExecutionResult, error) {
	runner.mutex.Lock()
	runner.calls = append(runner.calls, remoteCall{endpoint: endpoint, command: command})
	attempt := len(runner.calls)
	runner.mutex.Unlock()
	return runner.respond(attempt)
}

func (runner *recordingRemoteRunner) recordedCalls() []remoteCall {
	runner.mutex.Lock()
	defer runner.mutex.Unlock()
	return append([]remoteCall{}, runner.calls...)
}

type attemptFailure struct {
	event   bridge.InvocationEvent
	attempt int
	failure error
}

type recordingSink struct {
	mutex     sync.Mutex
	started   []bridge.InvocationEvent
	attempts  []attemptFailure
	succeeded []bridge.InvocationOutcome
	failed    []error
}

func (sink *recordingSink) InvocationStarted(event bridge.InvocationEvent) {
	sink.mutex.Lock()
	defer sink.mutex.Unlock()
	sink.started = append(sink.started, event)
}

func (sink *recordingSink) AttemptFailed(event bridge.InvocationEvent, attempt int, failure error) {
	sink.mutex.Lock()
	defer sink.mutex.Unlock()
	sink.attempts = append(sink.attempts, attemptFailure{event: event, attempt: attempt, failure: failure})
}

func (sink *recordingSink) InvocationSucceeded(_ bridge.InvocationEvent, outcome bridge.InvocationOutcome) {
	sink.mutex.Lock()
	defer sink.mutex.Unlock()
	sink.succeeded = append(sink.succeeded, outcome)
}

func (sink *recordingSink) InvocationFailed(_ bridge.InvocationEvent, failure error, _ time.Duration) {
	sink.mutex.Lock()
	defer sink.mutex.Unlock()
	sink.failed = append(sink.failed, failure)
}

type recordingSleeper struct {
	mutex     sync.Mutex
	durations []time.Duration
}

func (sleeper *recordingSleeper) Sleep(executionContext context.Context, duration time.Duration) error {
	sleeper.mutex.Lock()
	sleeper.durations = append(sleeper.durations, duration)
	sleeper.mutex.Unlock()
	return executionContext.Err()
}

func (sleeper *recordingSleeper) recordedDurations() []time.Duration {
	sleeper.mutex.Lock()
	defer sleeper.mutex.Unlock()
	return append([]time.Duration{}, sleeper.durations...)
}

func sequentialIdentifiers() bridge.IdentifierGenerator {
	var mutex sync.Mutex
	counter := 0
	return func() string {
		mutex.Lock()
		defer mutex.Unlock()
		counter++
		return fmt.Sprintf("invocation-%d", counter)
	}
}

func succeedWith(standardOutput string) runnerResponse {
	return func(context.Context, int, execshell.ShellCommand) (execshell.ExecutionResult, error) {
		return execshell.ExecutionResult{StandardOutput: standardOutput}, nil
	}
}
