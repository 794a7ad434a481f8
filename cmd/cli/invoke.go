package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/sentinelctl/internal/bridge"
	"github.com/temirov/sentinelctl/internal/credentials"
	"github.com/temirov/sentinelctl/internal/output"
	"github.com/temirov/sentinelctl/internal/registry"
	"github.com/temirov/sentinelctl/internal/utils"
	"github.com/temirov/sentinelctl/internal/utils/flags"
	"github.com/temirov/sentinelctl/internal/workspaces"
)

const (
	invokeCommandUseConstant              = "invoke <Function>"
	invokeCommandShortDescriptionConstant = "Invoke a SentinelManager function"
	invokeCommandLongDescriptionConstant  = "invoke runs one SentinelManager function through PowerShell, locally or on a remote host, and prints its result. Parameter values are typed according to the function catalogue."
	invokeCommandExampleConstant          = "  sentinelctl invoke Get-SentinelTables --workspace soc-prod\n  sentinelctl invoke Set-AnalyticsRuleState --workspace soc-prod --param RuleId=7f2a --param Enabled=false\n  sentinelctl invoke Get-SentinelTables -p WorkspaceName=soc-prod -p ResourceGroup=rg --remote-host jump.example.com --ask-password"
	parameterFlagNameConstant             = "param"
	parameterFlagShorthandConstant        = "p"
	parameterFlagDescriptionConstant      = "Function parameter as Name=Value (repeatable)"
	parametersJSONFlagNameConstant        = "params-json"
	parametersJSONFlagDescriptionConstant = "Function parameters as a JSON object"
	workspaceFlagNameConstant             = "workspace"
	workspaceFlagDescriptionConstant      = "Fill WorkspaceName, ResourceGroup and SubscriptionId from the configured workspace whose name matches"
	timeoutFlagNameConstant               = "timeout"
	timeoutFlagDescriptionConstant        = "Per-attempt timeout (defaults to bridge.timeout)"
	parameterAssignmentSeparatorConstant  = "="
	passwordPromptTemplateConstant        = "Password for %s@%s: "
	passwordPromptHostOnlyTemplate        = "Password for %s: "
	malformedAssignmentTemplateConstant   = "parameter %q must be written as Name=Value"
	duplicateParameterTemplateConstant    = "parameter %s is given more than once"
	parametersJSONErrorTemplateConstant   = "--params-json must be a JSON object: %w"
	parametersJSONTrailingDataMessage     = "unexpected data after the JSON object"
	workspaceResolutionTemplateConstant   = "unable to select workspace: %w"
	workspaceSelectionTemplateConstant    = "unable to select workspace: %v"
	passwordResolutionTemplateConstant    = "unable to obtain remote password: %w"
	invocationFailedTemplateConstant      = "%s failed: %w"
	outputWriteErrorTemplateConstant      = "unable to write result: %w"
	invokeFinishedMessageConstant         = "invoke finished"
	invokeWorkspaceFieldConstant          = "workspace"
	invokeElapsedFieldConstant            = "elapsed"
	invokeSucceededFieldConstant          = "succeeded"
	invokeConfigurationFileFieldConstant  = "config_file"
)

// InvokeCommandBuilder assembles the invoke command.
type InvokeCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	RuntimeProvider       RuntimeProvider
	OutputFormatProvider  OutputFormatProvider
	ContextAccessor       utils.CommandContextAccessor
}

// invokeOptions is the parsed command line of one invoke run.
type invokeOptions struct {
	functionName    string
	parameters      map[string]any
	workspaceFilter string
	timeout         time.Duration
	remote          flags.RemoteTargetValues
}

// Build constructs the invoke command.
func (builder *InvokeCommandBuilder) Build() *cobra.Command {
	var remoteTargetFlags *flags.RemoteTargetFlags

	invokeCommand := &cobra.Command{
		Use:     invokeCommandUseConstant,
		Short:   invokeCommandShortDescriptionConstant,
		Long:    invokeCommandLongDescriptionConstant,
		Example: invokeCommandExampleConstant,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.run(command, arguments, remoteTargetFlags)
		},
	}

	invokeCommand.Flags().StringArrayP(parameterFlagNameConstant, parameterFlagShorthandConstant, nil, parameterFlagDescriptionConstant)
	invokeCommand.Flags().String(parametersJSONFlagNameConstant, "", parametersJSONFlagDescriptionConstant)
	invokeCommand.Flags().String(workspaceFlagNameConstant, "", workspaceFlagDescriptionConstant)
	invokeCommand.Flags().Duration(timeoutFlagNameConstant, 0, timeoutFlagDescriptionConstant)
	remoteTargetFlags = flags.BindRemoteTargetFlags(invokeCommand.Flags())

	return invokeCommand
}

func (builder *InvokeCommandBuilder) run(command *cobra.Command, arguments []string, remoteTargetFlags *flags.RemoteTargetFlags) error {
	logger := resolveLogger(builder.LoggerProvider)
	outputFormat, formatError := resolveOutputFormat(builder.OutputFormatProvider, output.FormatJSON)
	if formatError != nil {
		return formatError
	}
	printer := output.NewPrinter(outputFormat, command.OutOrStdout())

	options, optionsError := builder.parseOptions(command, arguments, remoteTargetFlags)
	if optionsError != nil {
		return reportFailure(printer, strings.TrimSpace(arguments[0]), optionsError)
	}

	runtime, runtimeError := resolveRuntime(builder.RuntimeProvider)
	if runtimeError != nil {
		return runtimeError
	}

	executionContext := command.Context()
	request := registry.Request{
		FunctionName: options.functionName,
		Parameters:   options.parameters,
		Timeout:      options.timeout,
	}

	if len(strings.TrimSpace(options.workspaceFilter)) > 0 {
		workspace, resolveError := workspaces.Resolve(executionContext, runtime.Enumerator, options.workspaceFilter)
		if resolveError != nil {
			if errors.Is(resolveError, workspaces.ErrNoWorkspaceMatch) || errors.Is(resolveError, workspaces.ErrAmbiguousWorkspace) {
				selectionFailure := bridge.NewValidationFailure(fmt.Sprintf(workspaceSelectionTemplateConstant, resolveError), resolveError)
				return reportFailure(printer, options.functionName, selectionFailure)
			}
			return fmt.Errorf(workspaceResolutionTemplateConstant, resolveError)
		}
		request.ContextParameters = workspace.ContextParameters()
		logger = logger.With(zap.String(invokeWorkspaceFieldConstant, workspace.Name))
	}

	target, targetError := builder.resolveTarget(executionContext, runtime.Passwords, options.remote)
	if targetError != nil {
		return targetError
	}
	request.Target = target

	outcome, dispatchError := runtime.Dispatcher.Dispatch(executionContext, request)
	builder.logFinished(command, logger, dispatchError)
	if dispatchError != nil {
		return reportFailure(printer, options.functionName, dispatchError)
	}

	if printError := printer.Print(outcome.Result); printError != nil {
		return fmt.Errorf(outputWriteErrorTemplateConstant, printError)
	}
	return nil
}

func (builder *InvokeCommandBuilder) parseOptions(command *cobra.Command, arguments []string, remoteTargetFlags *flags.RemoteTargetFlags) (invokeOptions, error) {
	assignments, assignmentsError := command.Flags().GetStringArray(parameterFlagNameConstant)
	if assignmentsError != nil {
		return invokeOptions{}, assignmentsError
	}
	parametersDocument, documentFlagError := command.Flags().GetString(parametersJSONFlagNameConstant)
	if documentFlagError != nil {
		return invokeOptions{}, documentFlagError
	}
	parameters, parametersError := parseParameters(parametersDocument, assignments)
	if parametersError != nil {
		return invokeOptions{}, bridge.NewValidationFailure(parametersError.Error(), parametersError)
	}

	workspaceFilter, workspaceFlagError := command.Flags().GetString(workspaceFlagNameConstant)
	if workspaceFlagError != nil {
		return invokeOptions{}, workspaceFlagError
	}

	timeout, timeoutFlagError := command.Flags().GetDuration(timeoutFlagNameConstant)
	if timeoutFlagError != nil {
		return invokeOptions{}, timeoutFlagError
	}

	configuration := ApplicationConfiguration{}
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	remoteValues := remoteTargetFlags.Overlay(configuration.Bridge.Remote.TargetValues())

	return invokeOptions{
		functionName:    strings.TrimSpace(arguments[0]),
		parameters:      parameters,
		workspaceFilter: workspaceFilter,
		timeout:         timeout,
		remote:          remoteValues,
	}, nil
}

func (builder *InvokeCommandBuilder) resolveTarget(executionContext context.Context, passwords credentials.PasswordResolver, remote flags.RemoteTargetValues) (bridge.ExecutionTarget, error) {
	if len(strings.TrimSpace(remote.Host)) == 0 {
		return bridge.LocalTarget(), nil
	}

	password, passwordError := passwords.ResolvePassword(executionContext, credentials.PasswordRequest{
		Source:      remote.PasswordSource,
		Interactive: remote.AskPassword,
		Prompt:      passwordPrompt(remote),
	})
	if passwordError != nil {
		return bridge.ExecutionTarget{}, fmt.Errorf(passwordResolutionTemplateConstant, passwordError)
	}

	configuration := ApplicationConfiguration{}
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	var credential *bridge.RemoteCredential
	if len(password) > 0 || len(remote.PrivateKeyPath) > 0 {
		credential = &bridge.RemoteCredential{Password: password, PrivateKeyPath: remote.PrivateKeyPath}
	}
	return bridge.RemoteTarget(remote.Host, remote.Username, credential, bridge.RemoteSettings{
		Port:                            remote.Port,
		KnownHostsPath:                  remote.KnownHostsPath,
		InsecureSkipHostKeyVerification: remote.InsecureSkipHostKeyVerification,
		ConnectTimeout:                  configuration.Bridge.Remote.ConnectTimeout,
	}), nil
}

func (builder *InvokeCommandBuilder) logFinished(command *cobra.Command, logger *zap.Logger, dispatchError error) {
	fields := []zap.Field{zap.Bool(invokeSucceededFieldConstant, dispatchError == nil)}
	if startedAt, available := builder.ContextAccessor.CommandStartedAt(command.Context()); available {
		fields = append(fields, zap.Duration(invokeElapsedFieldConstant, time.Since(startedAt)))
	}
	if configurationFilePath, available := builder.ContextAccessor.ConfigurationFilePath(command.Context()); available && len(configurationFilePath) > 0 {
		fields = append(fields, zap.String(invokeConfigurationFileFieldConstant, configurationFilePath))
	}
	logger.Debug(invokeFinishedMessageConstant, fields...)
}

// reportFailure prints the descriptor of a bridge failure before returning the wrapped error.
func reportFailure(printer *output.Printer, functionName string, invocationError error) error {
	wrappedError := fmt.Errorf(invocationFailedTemplateConstant, functionName, invocationError)
	var failure *bridge.Failure
	if !errors.As(invocationError, &failure) {
		return wrappedError
	}
	if printError := printer.Print(failure.Descriptor()); printError != nil {
		return errors.Join(wrappedError, fmt.Errorf(outputWriteErrorTemplateConstant, printError))
	}
	return wrappedError
}

func passwordPrompt(remote flags.RemoteTargetValues) string {
	if len(strings.TrimSpace(remote.Username)) == 0 {
		return fmt.Sprintf(passwordPromptHostOnlyTemplate, remote.Host)
	}
	return fmt.Sprintf(passwordPromptTemplateConstant, remote.Username, remote.Host)
}

// parseParameters merges a JSON parameter document with Name=Value assignments. A name may appear only once
// across both sources. Assignment values stay text so the catalogue can type them.
func parseParameters(parametersDocument string, assignments []string) (map[string]any, error) {
	parameters := map[string]any{}
	if len(strings.TrimSpace(parametersDocument)) > 0 {
		decoder := json.NewDecoder(strings.NewReader(parametersDocument))
		decoder.UseNumber()
		if decodeError := decoder.Decode(&parameters); decodeError != nil {
			return nil, fmt.Errorf(parametersJSONErrorTemplateConstant, decodeError)
		}
		if _, trailingError := decoder.Token(); !errors.Is(trailingError, io.EOF) {
			return nil, fmt.Errorf(parametersJSONErrorTemplateConstant, errors.New(parametersJSONTrailingDataMessage))
		}
		if parameters == nil {
			parameters = map[string]any{}
		}
	}

	seenNames := make(map[string]struct{}, len(parameters)+len(assignments))
	for parameterName := range parameters {
		seenNames[strings.ToLower(parameterName)] = struct{}{}
	}
	for _, assignment := range assignments {
		parameterName, parameterValue, hasSeparator := strings.Cut(assignment, parameterAssignmentSeparatorConstant)
		parameterName = strings.TrimSpace(parameterName)
		if !hasSeparator || len(parameterName) == 0 {
			return nil, fmt.Errorf(malformedAssignmentTemplateConstant, assignment)
		}
		normalizedName := strings.ToLower(parameterName)
		if _, seen := seenNames[normalizedName]; seen {
			return nil, fmt.Errorf(duplicateParameterTemplateConstant, parameterName)
		}
		seenNames[normalizedName] = struct{}{}
		parameters[parameterName] = parameterValue
	}
	return parameters, nil
}
