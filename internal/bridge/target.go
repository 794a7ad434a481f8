package bridge

import (
	"strings"
	"time"
)

const (
	remoteHostMissingMessageConstant = "remote execution target requires a host"
	redactedCredentialConstant       = "[redacted]"
)

// TargetKind distinguishes local from remote execution.
type TargetKind string

// Target kind enumerations.
const (
	TargetKindLocal  TargetKind = TargetKind("local")
	TargetKindRemote TargetKind = TargetKind("remote")
)

// RemoteCredential authenticates a remote session. Its formatted form never reveals the secret.
type RemoteCredential struct {
	Password       string
	PrivateKeyPath string
}

// String hides the credential contents.
func (credential RemoteCredential) String() string {
	return redactedCredentialConstant
}

// GoString hides the credential contents from %#v.
func (credential RemoteCredential) GoString() string {
	return redactedCredentialConstant
}

// RemoteSettings controls the encrypted transport used for remote targets.
type RemoteSettings struct {
	Port                            int
	KnownHostsPath                  string
	InsecureSkipHostKeyVerification bool
	ConnectTimeout                  time.Duration
}

// ExecutionTarget identifies where the external runtime runs.
type ExecutionTarget struct {
	Kind       TargetKind
	Host       string
	Username   string
	Credential *RemoteCredential
	Settings   RemoteSettings
}

// LocalTarget returns the local execution target.
func LocalTarget() ExecutionTarget {
	return ExecutionTarget{Kind: TargetKindLocal}
}

// RemoteTarget returns a remote execution target for host.
func RemoteTarget(host string, username string, credential *RemoteCredential, settings RemoteSettings) ExecutionTarget {
	return ExecutionTarget{
		Kind:       TargetKindRemote,
		Host:       strings.TrimSpace(host),
		Username:   strings.TrimSpace(username),
		Credential: credential,
		Settings:   settings,
	}
}

// IsRemote reports whether the target is remote.
func (target ExecutionTarget) IsRemote() bool {
	return target.Kind == TargetKindRemote
}

// Validate rejects remote targets without a host.
func (target ExecutionTarget) Validate() error {
	if target.Kind != TargetKindRemote {
		return nil
	}
	if len(strings.TrimSpace(target.Host)) == 0 {
		return NewValidationFailure(remoteHostMissingMessageConstant, nil)
	}
	return nil
}

func (target ExecutionTarget) kindOrLocal() TargetKind {
	if target.Kind == TargetKindRemote {
		return TargetKindRemote
	}
	return TargetKindLocal
}
