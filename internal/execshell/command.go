package execshell

import (
	"context"
	"fmt"
)

const (
	processStartErrorTemplateConstant = "unable to start %s: %v"
	defaultStandardErrorLimitConstant = 4096
)

// CommandName identifies the executable to launch.
type CommandName string

// Interpreter enumerations supported by the bridge.
const (
	CommandPowerShellCore    CommandName = CommandName("pwsh")
	CommandWindowsPowerShell CommandName = CommandName("powershell")
)

// CommandDetails describes the arguments and environment of a command invocation.
type CommandDetails struct {
	Arguments            []string
	WorkingDirectory     string
	EnvironmentVariables map[string]string
	StandardInput        []byte
}

// ShellCommand couples an executable with its invocation details.
type ShellCommand struct {
	Name    CommandName
	Details CommandDetails
}

// ExecutionResult captures the observable results of a finished process.
type ExecutionResult struct {
	StandardOutput         string
	StandardError          string
	StandardErrorTruncated bool
	ExitCode               int
}

// CommandRunner executes shell commands.
type CommandRunner interface {
	Run(executionContext context.Context, command ShellCommand) (ExecutionResult, error)
}

// ProcessStartError reports that the operating system refused to spawn the process.
type ProcessStartError struct {
	Command CommandName
	Cause   error
}

// Error describes the spawn failure.
func (startError ProcessStartError) Error() string {
	return fmt.Sprintf(processStartErrorTemplateConstant, startError.Command, startError.Cause)
}

// Unwrap exposes the underlying spawn failure.
func (startError ProcessStartError) Unwrap() error {
	return startError.Cause
}
