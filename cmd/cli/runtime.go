package cli

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/sentinelctl/internal/bridge"
	"github.com/temirov/sentinelctl/internal/credentials"
	"github.com/temirov/sentinelctl/internal/execshell"
	"github.com/temirov/sentinelctl/internal/metrics"
	"github.com/temirov/sentinelctl/internal/registry"
	"github.com/temirov/sentinelctl/internal/remoteshell"
	"github.com/temirov/sentinelctl/internal/ui"
	"github.com/temirov/sentinelctl/internal/workspaces"
)

const (
	catalogueLoadErrorTemplateConstant = "unable to load function catalogue: %w"
	bridgeBuildErrorTemplateConstant   = "unable to configure PowerShell bridge: %w"
	dispatcherErrorTemplateConstant    = "unable to configure function dispatcher: %w"
)

// RuntimeCollaborators replace the process, network and terminal dependencies of the runtime. Nil fields use the
// operating system implementations.
type RuntimeCollaborators struct {
	LocalRunner    execshell.CommandRunner
	RemoteRunner   bridge.RemoteRunner
	ScriptReader   bridge.ScriptReader
	Sleeper        bridge.Sleeper
	SecretResolver credentials.SecretResolver
	Prompter       credentials.PasswordPrompter
}

// Runtime holds the long-lived services shared by the subcommands of one process.
type Runtime struct {
	Dispatcher *registry.Dispatcher
	Enumerator workspaces.Enumerator
	Passwords  credentials.PasswordResolver
	Metrics    *metrics.PrometheusSink
}

func buildRuntime(configuration ApplicationConfiguration, logger *zap.Logger, collaborators RuntimeCollaborators) (*Runtime, error) {
	catalogue, catalogueError := loadCatalogue(configuration.Bridge.FunctionsFile)
	if catalogueError != nil {
		return nil, fmt.Errorf(catalogueLoadErrorTemplateConstant, catalogueError)
	}

	localRunner := collaborators.LocalRunner
	if localRunner == nil {
		localRunner = execshell.NewOSCommandRunner(configuration.Bridge.StandardErrorLimit)
	}
	remoteRunner := collaborators.RemoteRunner
	if remoteRunner == nil {
		remoteRunner = remoteshell.NewClient(remoteshell.Options{StandardErrorLimit: configuration.Bridge.StandardErrorLimit})
	}
	prompter := collaborators.Prompter
	if prompter == nil {
		prompter = credentials.NewTerminalPrompter(os.Stdin, os.Stderr)
	}

	metricsSink := metrics.NewPrometheusSink("", nil)
	powerShellBridge, bridgeError := bridge.New(configuration.Bridge.BridgeSettings(), bridge.Collaborators{
		LocalRunner:  localRunner,
		RemoteRunner: remoteRunner,
		ScriptReader: collaborators.ScriptReader,
		Sink:         bridge.MultiSink{ui.NewInvocationEventLogger(logger), metricsSink},
		Sleeper:      collaborators.Sleeper,
	})
	if bridgeError != nil {
		return nil, fmt.Errorf(bridgeBuildErrorTemplateConstant, bridgeError)
	}

	dispatcher, dispatcherError := registry.NewDispatcher(catalogue, powerShellBridge)
	if dispatcherError != nil {
		return nil, fmt.Errorf(dispatcherErrorTemplateConstant, dispatcherError)
	}

	return &Runtime{
		Dispatcher: dispatcher,
		Enumerator: workspaceEnumerator(configuration),
		Passwords:  credentials.NewPasswordResolver(collaborators.SecretResolver, prompter),
		Metrics:    metricsSink,
	}, nil
}

func workspaceEnumerator(configuration ApplicationConfiguration) workspaces.Enumerator {
	configuredWorkspaces := workspaces.NewStaticEnumerator(configuration.Workspaces)
	if configuration.WorkspaceCacheTTL <= 0 {
		return configuredWorkspaces
	}
	return workspaces.NewCachingEnumerator(configuredWorkspaces, configuration.WorkspaceCacheTTL, nil)
}

func loadCatalogue(functionsFilePath string) (*registry.Catalogue, error) {
	if len(strings.TrimSpace(functionsFilePath)) == 0 {
		return registry.Default()
	}
	return registry.LoadFile(functionsFilePath)
}
