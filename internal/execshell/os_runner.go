package execshell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

const (
	environmentAssignmentSeparatorConstant = "="
	environmentAssignmentTemplateConstant  = "%s%s%s"
	defaultPipeDrainDelayConstant          = 2 * time.Second
)

// OSCommandRunner executes commands using the operating system facilities.
type OSCommandRunner struct {
	standardErrorLimit int
	pipeDrainDelay     time.Duration
}

// NewOSCommandRunner constructs a runner backed by os/exec that retains up to standardErrorLimit bytes of stderr.
func NewOSCommandRunner(standardErrorLimit int) *OSCommandRunner {
	if standardErrorLimit <= 0 {
		standardErrorLimit = defaultStandardErrorLimitConstant
	}
	return &OSCommandRunner{
		standardErrorLimit: standardErrorLimit,
		pipeDrainDelay:     defaultPipeDrainDelayConstant,
	}
}

// Run executes the supplied command. Context expiry or cancellation kills the child's entire process group
// and is reported as the context error so callers can tell a timeout from a cancellation.
func (runner *OSCommandRunner) Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error) {
	if contextError := executionContext.Err(); contextError != nil {
		return ExecutionResult{}, contextError
	}

	commandArguments := append([]string{}, command.Details.Arguments...)
	executable := exec.CommandContext(executionContext, string(command.Name), commandArguments...)
	configureCommandForCancellation(executable)
	executable.Cancel = func() error {
		terminateProcessTree(executable)
		return nil
	}
	executable.WaitDelay = runner.pipeDrainDelay

	if len(command.Details.WorkingDirectory) > 0 {
		executable.Dir = command.Details.WorkingDirectory
	}

	if len(command.Details.EnvironmentVariables) > 0 {
		mergedEnvironment := append([]string{}, os.Environ()...)
		for environmentKey, environmentValue := range command.Details.EnvironmentVariables {
			mergedEnvironment = append(mergedEnvironment, fmt.Sprintf(environmentAssignmentTemplateConstant, environmentKey, environmentAssignmentSeparatorConstant, environmentValue))
		}
		executable.Env = mergedEnvironment
	}

	var standardOutputBuffer bytes.Buffer
	standardErrorBuffer := NewBoundedBuffer(runner.standardErrorLimit)
	executable.Stdout = &standardOutputBuffer
	executable.Stderr = standardErrorBuffer

	if len(command.Details.StandardInput) > 0 {
		executable.Stdin = bytes.NewReader(command.Details.StandardInput)
	}

	if startError := executable.Start(); startError != nil {
		if contextError := executionContext.Err(); contextError != nil {
			return ExecutionResult{}, contextError
		}
		return ExecutionResult{}, ProcessStartError{Command: command.Name, Cause: startError}
	}

	waitError := executable.Wait()
	partialResult := ExecutionResult{
		StandardOutput:         standardOutputBuffer.String(),
		StandardError:          standardErrorBuffer.String(),
		StandardErrorTruncated: standardErrorBuffer.Truncated(),
	}

	if waitError == nil {
		return partialResult, nil
	}

	if contextError := executionContext.Err(); contextError != nil {
		partialResult.ExitCode = -1
		return partialResult, contextError
	}

	exitError := &exec.ExitError{}
	if errors.As(waitError, &exitError) {
		partialResult.ExitCode = exitError.ExitCode()
		return partialResult, nil
	}

	return ExecutionResult{}, waitError
}
