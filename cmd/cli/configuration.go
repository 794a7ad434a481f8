package cli

import (
	"time"

	"github.com/temirov/sentinelctl/internal/bridge"
	"github.com/temirov/sentinelctl/internal/execshell"
	"github.com/temirov/sentinelctl/internal/utils/flags"
	"github.com/temirov/sentinelctl/internal/workspaces"
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common            ApplicationCommonConfiguration `mapstructure:"common"`
	Bridge            BridgeConfiguration            `mapstructure:"bridge"`
	Workspaces        []workspaces.Workspace         `mapstructure:"workspaces"`
	WorkspaceCacheTTL time.Duration                  `mapstructure:"workspace_cache_ttl"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	Output    string `mapstructure:"output"`
}

// BridgeConfiguration holds the PowerShell bridge settings.
type BridgeConfiguration struct {
	ScriptPath         string              `mapstructure:"script_path"`
	Interpreter        string              `mapstructure:"interpreter"`
	Timeout            time.Duration       `mapstructure:"timeout"`
	SerializationDepth int                 `mapstructure:"serialization_depth"`
	StandardErrorLimit int                 `mapstructure:"standard_error_limit"`
	DecodeSampleLength int                 `mapstructure:"decode_sample_length"`
	Retry              RetryConfiguration  `mapstructure:"retry"`
	Remote             RemoteConfiguration `mapstructure:"remote"`
	FunctionsFile      string              `mapstructure:"functions_file"`
	MetricsFile        string              `mapstructure:"metrics_file"`
}

// RetryConfiguration tunes the retry controller.
type RetryConfiguration struct {
	MaxAttempts        int           `mapstructure:"max_attempts"`
	InitialDelay       time.Duration `mapstructure:"initial_delay"`
	BackoffMultiplier  float64       `mapstructure:"backoff_multiplier"`
	TransientExitCodes []int         `mapstructure:"transient_exit_codes"`
}

// RemoteConfiguration describes the default remote host. An empty host means local execution.
type RemoteConfiguration struct {
	Host                            string        `mapstructure:"host"`
	Port                            int           `mapstructure:"port"`
	Username                        string        `mapstructure:"username"`
	PasswordSource                  string        `mapstructure:"password_source"`
	PrivateKeyPath                  string        `mapstructure:"private_key_path"`
	KnownHostsPath                  string        `mapstructure:"known_hosts_path"`
	InsecureSkipHostKeyVerification bool          `mapstructure:"insecure_skip_host_key_verification"`
	ConnectTimeout                  time.Duration `mapstructure:"connect_timeout"`
}

// BridgeSettings converts the configuration into bridge construction arguments.
func (configuration BridgeConfiguration) BridgeSettings() bridge.Configuration {
	return bridge.Configuration{
		ScriptPath:         configuration.ScriptPath,
		Interpreter:        execshell.CommandName(configuration.Interpreter),
		DefaultTimeout:     configuration.Timeout,
		SerializationDepth: configuration.SerializationDepth,
		RetryPolicy: bridge.RetryPolicy{
			MaxAttempts:       configuration.Retry.MaxAttempts,
			InitialDelay:      configuration.Retry.InitialDelay,
			BackoffMultiplier: configuration.Retry.BackoffMultiplier,
		},
		TransientExitCodes: configuration.Retry.TransientExitCodes,
		SampleLength:       configuration.DecodeSampleLength,
	}
}

// TargetValues exposes the remote defaults in the shape the command-line flags override.
func (configuration RemoteConfiguration) TargetValues() flags.RemoteTargetValues {
	return flags.RemoteTargetValues{
		Host:                            configuration.Host,
		Port:                            configuration.Port,
		Username:                        configuration.Username,
		PasswordSource:                  configuration.PasswordSource,
		PrivateKeyPath:                  configuration.PrivateKeyPath,
		KnownHostsPath:                  configuration.KnownHostsPath,
		InsecureSkipHostKeyVerification: configuration.InsecureSkipHostKeyVerification,
	}
}
