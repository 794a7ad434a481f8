package flags

import (
	"github.com/spf13/pflag"
)

// Remote target flag names shared by commands that reach a remote PowerShell host.
const (
	RemoteHostFlagName                 = "remote-host"
	RemotePortFlagName                 = "remote-port"
	RemoteUsernameFlagName             = "remote-user"
	RemotePasswordSourceFlagName       = "remote-password-source"
	RemotePrivateKeyFlagName           = "remote-key"
	RemoteKnownHostsFlagName           = "known-hosts"
	RemoteInsecureSkipHostKeyFlagName  = "insecure-skip-host-key-verification"
	RemoteAskPasswordFlagName          = "ask-password"
	remoteHostFlagUsageConstant        = "Run the function on this SSH host instead of locally"
	remotePortFlagUsageConstant        = "SSH port of the remote host"
	remoteUsernameFlagUsageConstant    = "SSH username (defaults to the current user)"
	remotePasswordSourceFlagUsage      = "Password source for the remote host (env:NAME or file:/path)"
	remotePrivateKeyFlagUsageConstant  = "Private key file for the remote host"
	remoteKnownHostsFlagUsageConstant  = "known_hosts file used to verify the remote host key"
	remoteInsecureSkipHostKeyFlagUsage = "Skip host key verification (unsafe; for lab hosts only)"
	remoteAskPasswordFlagUsageConstant = "Prompt for the remote password on the terminal"
)

// RemoteTargetValues carries the remote connection settings a command line may override.
type RemoteTargetValues struct {
	Host                            string
	Port                            int
	Username                        string
	PasswordSource                  string
	PrivateKeyPath                  string
	KnownHostsPath                  string
	InsecureSkipHostKeyVerification bool
	AskPassword                     bool
}

// RemoteTargetFlags binds the remote target flags and reports which ones were set.
type RemoteTargetFlags struct {
	flagSet *pflag.FlagSet
	values  RemoteTargetValues
}

// BindRemoteTargetFlags registers the remote target flags on flagSet.
func BindRemoteTargetFlags(flagSet *pflag.FlagSet) *RemoteTargetFlags {
	remoteTargetFlags := &RemoteTargetFlags{flagSet: flagSet}
	if flagSet == nil {
		return remoteTargetFlags
	}

	flagSet.StringVar(&remoteTargetFlags.values.Host, RemoteHostFlagName, "", remoteHostFlagUsageConstant)
	flagSet.IntVar(&remoteTargetFlags.values.Port, RemotePortFlagName, 0, remotePortFlagUsageConstant)
	flagSet.StringVar(&remoteTargetFlags.values.Username, RemoteUsernameFlagName, "", remoteUsernameFlagUsageConstant)
	flagSet.StringVar(&remoteTargetFlags.values.PasswordSource, RemotePasswordSourceFlagName, "", remotePasswordSourceFlagUsage)
	flagSet.StringVar(&remoteTargetFlags.values.PrivateKeyPath, RemotePrivateKeyFlagName, "", remotePrivateKeyFlagUsageConstant)
	flagSet.StringVar(&remoteTargetFlags.values.KnownHostsPath, RemoteKnownHostsFlagName, "", remoteKnownHostsFlagUsageConstant)
	flagSet.BoolVar(&remoteTargetFlags.values.InsecureSkipHostKeyVerification, RemoteInsecureSkipHostKeyFlagName, false, remoteInsecureSkipHostKeyFlagUsage)
	flagSet.BoolVar(&remoteTargetFlags.values.AskPassword, RemoteAskPasswordFlagName, false, remoteAskPasswordFlagUsageConstant)
	return remoteTargetFlags
}

// Overlay returns base with every explicitly set flag applied on top.
func (remoteTargetFlags *RemoteTargetFlags) Overlay(base RemoteTargetValues) RemoteTargetValues {
	if remoteTargetFlags == nil || remoteTargetFlags.flagSet == nil {
		return base
	}

	overlaid := base
	flagValues := remoteTargetFlags.values
	if remoteTargetFlags.changed(RemoteHostFlagName) {
		overlaid.Host = flagValues.Host
	}
	if remoteTargetFlags.changed(RemotePortFlagName) {
		overlaid.Port = flagValues.Port
	}
	if remoteTargetFlags.changed(RemoteUsernameFlagName) {
		overlaid.Username = flagValues.Username
	}
	if remoteTargetFlags.changed(RemotePasswordSourceFlagName) {
		overlaid.PasswordSource = flagValues.PasswordSource
	}
	if remoteTargetFlags.changed(RemotePrivateKeyFlagName) {
		overlaid.PrivateKeyPath = flagValues.PrivateKeyPath
	}
	if remoteTargetFlags.changed(RemoteKnownHostsFlagName) {
		overlaid.KnownHostsPath = flagValues.KnownHostsPath
	}
	if remoteTargetFlags.changed(RemoteInsecureSkipHostKeyFlagName) {
		overlaid.InsecureSkipHostKeyVerification = flagValues.InsecureSkipHostKeyVerification
	}
	if remoteTargetFlags.changed(RemoteAskPasswordFlagName) {
		overlaid.AskPassword = flagValues.AskPassword
	}
	return overlaid
}

func (remoteTargetFlags *RemoteTargetFlags) changed(flagName string) bool {
	return remoteTargetFlags.flagSet.Changed(flagName)
}
