package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/sentinelctl/internal/output"
	"github.com/temirov/sentinelctl/internal/utils"
	"github.com/temirov/sentinelctl/internal/utils/flags"
	pathutils "github.com/temirov/sentinelctl/internal/utils/path"
)

const (
	applicationNameConstant                 = "sentinelctl"
	applicationShortDescriptionConstant     = "Run Microsoft Sentinel management functions through PowerShell"
	applicationLongDescriptionConstant      = "sentinelctl invokes SentinelManager PowerShell functions locally or on a remote host over SSH and returns their results as structured data."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagDescriptionConstant         = "Override the configured log level."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagDescriptionConstant        = "Override the configured log format."
	outputFlagNameConstant                  = "output"
	outputFlagDescriptionConstant           = "Result encoding."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	bridgeScriptPathConfigKeyConstant       = "bridge.script_path"
	scriptPathEnvironmentAliasConstant      = "SENTINEL_MANAGER_SCRIPT"
	environmentPrefixConstant               = "SENTINELCTL"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	metricsWriteErrorTemplateConstant       = "unable to write metrics textfile: %w"
	metricsWrittenMessageConstant           = "metrics textfile written"
	metricsFileFieldConstant                = "metrics_file"
	loggerNotInitializedMessageConstant     = "logger not initialized"
	defaultConfigurationSearchPathConstant  = "."
	userConfigurationSearchPathConstant     = "~/.sentinelctl"
)

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand            *cobra.Command
	configurationLoader    *utils.ConfigurationLoader
	loggerFactory          *utils.LoggerFactory
	logger                 *zap.Logger
	configuration          ApplicationConfiguration
	configurationMetadata  utils.LoadedConfiguration
	configurationFilePath  string
	logLevelFlagValue      string
	logFormatFlagValue     string
	outputFlagValue        string
	commandContextAccessor utils.CommandContextAccessor
	homeExpander           *pathutils.HomeExpander
	collaborators          RuntimeCollaborators
	runtime                *Runtime
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	return newApplication(RuntimeCollaborators{})
}

func newApplication(collaborators RuntimeCollaborators) *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		[]string{defaultConfigurationSearchPathConstant, userConfigurationSearchPathConstant},
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())
	configurationLoader.AddEnvironmentAlias(bridgeScriptPathConfigKeyConstant, scriptPathEnvironmentAliasConstant)

	application := &Application{
		configurationLoader:    configurationLoader,
		loggerFactory:          utils.NewLoggerFactory(),
		logger:                 zap.NewNop(),
		commandContextAccessor: utils.NewCommandContextAccessor(),
		homeExpander:           pathutils.NewHomeExpander(),
		collaborators:          collaborators,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			if application.logger == nil {
				return errors.New(loggerNotInitializedMessageConstant)
			}
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", flags.FormatChoiceUsage(string(utils.LogLevelInfo), utils.SupportedLogLevels(), logLevelFlagDescriptionConstant))
	persistentFlags.StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", flags.FormatChoiceUsage(string(utils.LogFormatStructured), utils.SupportedLogFormats(), logFormatFlagDescriptionConstant))
	persistentFlags.StringVar(&application.outputFlagValue, outputFlagNameConstant, "", flags.FormatChoiceUsage("", output.SupportedFormats(), outputFlagDescriptionConstant))

	invokeBuilder := InvokeCommandBuilder{
		LoggerProvider:        application.loggerProvider,
		ConfigurationProvider: application.configurationProvider,
		RuntimeProvider:       application.resolveRuntime,
		OutputFormatProvider:  application.outputFormatProvider(output.FormatJSON),
		ContextAccessor:       application.commandContextAccessor,
	}
	cobraCommand.AddCommand(invokeBuilder.Build())

	functionsBuilder := FunctionsCommandBuilder{
		RuntimeProvider:      application.resolveRuntime,
		OutputFormatProvider: application.outputFormatProvider(output.FormatTable),
	}
	cobraCommand.AddCommand(functionsBuilder.Build())

	workspacesBuilder := WorkspacesCommandBuilder{
		RuntimeProvider:      application.resolveRuntime,
		OutputFormatProvider: application.outputFormatProvider(output.FormatTable),
	}
	cobraCommand.AddCommand(workspacesBuilder.Build())

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the configured Cobra command hierarchy, writes the metrics textfile and flushes the logger.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if metricsError := application.writeMetrics(); metricsError != nil {
		executionError = errors.Join(executionError, metricsError)
	}
	if syncError := application.flushLogger(); syncError != nil {
		return errors.Join(executionError, fmt.Errorf(loggerSyncErrorTemplateConstant, syncError))
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelInfo),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatStructured),
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}
	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}
	if application.persistentFlagChanged(command, outputFlagNameConstant) {
		application.configuration.Common.Output = application.outputFlagValue
	}

	application.expandConfiguredPaths()

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	if command != nil {
		updatedContext := application.commandContextAccessor.WithConfigurationFilePath(
			command.Context(),
			application.configurationMetadata.ConfigFileUsed,
		)
		updatedContext = application.commandContextAccessor.WithCommandStartedAt(updatedContext, time.Now())
		command.SetContext(updatedContext)
	}

	return nil
}

func (application *Application) expandConfiguredPaths() {
	bridgeConfiguration := &application.configuration.Bridge
	application.homeExpander.ExpandAll(
		&bridgeConfiguration.ScriptPath,
		&bridgeConfiguration.FunctionsFile,
		&bridgeConfiguration.MetricsFile,
		&bridgeConfiguration.Remote.PrivateKeyPath,
		&bridgeConfiguration.Remote.KnownHostsPath,
	)
}

func (application *Application) loggerProvider() *zap.Logger {
	return application.logger
}

func (application *Application) configurationProvider() ApplicationConfiguration {
	return application.configuration
}

func (application *Application) outputFormatProvider(fallback output.Format) OutputFormatProvider {
	return func() (output.Format, error) {
		return output.ParseFormat(application.configuration.Common.Output, fallback)
	}
}

func (application *Application) resolveRuntime() (*Runtime, error) {
	if application.runtime != nil {
		return application.runtime, nil
	}
	runtime, buildError := buildRuntime(application.configuration, application.logger, application.collaborators)
	if buildError != nil {
		return nil, buildError
	}
	application.runtime = runtime
	return runtime, nil
}

func (application *Application) writeMetrics() error {
	metricsFilePath := strings.TrimSpace(application.configuration.Bridge.MetricsFile)
	if application.runtime == nil || len(metricsFilePath) == 0 {
		return nil
	}
	if writeError := application.runtime.Metrics.WriteTextfile(metricsFilePath); writeError != nil {
		return fmt.Errorf(metricsWriteErrorTemplateConstant, writeError)
	}
	application.logger.Debug(metricsWrittenMessageConstant, zap.String(metricsFileFieldConstant, metricsFilePath))
	return nil
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, os.ErrClosed):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
