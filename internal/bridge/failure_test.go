package bridge_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sentinelctl/internal/bridge"
)

func TestFailureDescriptorSerialization(testInstance *testing.T) {
	failure := &bridge.Failure{
		Kind:         bridge.FailureKindDecode,
		Message:      "function output is not valid JSON",
		OutputSample: "WARNING",
		Attempts:     1,
	}

	encoded, marshalError := json.Marshal(failure.Descriptor())
	require.NoError(testInstance, marshalError)
	require.JSONEq(testInstance, `{"kind":"decode","message":"function output is not valid JSON","raw_output_sample":"WARNING","attempts":1,"retryable":false}`, string(encoded))
}

func TestFailureHelpers(testInstance *testing.T) {
	cause := errors.New("exec: \"pwsh\": executable file not found in $PATH")
	failure := &bridge.Failure{Kind: bridge.FailureKindTransientExecution, Message: "unable to start pwsh", Cause: cause, Retryable: true}
	wrapped := fmt.Errorf("tool call: %w", failure)

	require.Equal(testInstance, bridge.FailureKindTransientExecution, bridge.KindOf(wrapped))
	require.True(testInstance, bridge.IsTransient(wrapped))
	require.ErrorIs(testInstance, wrapped, cause)
	require.Contains(testInstance, failure.Error(), "transient_execution: unable to start pwsh")

	require.Equal(testInstance, bridge.FailureKind(""), bridge.KindOf(cause))
	require.False(testInstance, bridge.IsTransient(cause))
	require.Equal(testInstance, "validation: bad", (&bridge.Failure{Kind: bridge.FailureKindValidation, Message: "bad"}).Error())
}

func TestRemoteCredentialIsRedacted(testInstance *testing.T) {
	credential := bridge.RemoteCredential{Password: "hunter2", PrivateKeyPath: "/home/ops/.ssh/id_ed25519"}
	require.NotContains(testInstance, fmt.Sprintf("%v %+v %#v %s", credential, credential, credential, credential), "hunter2")
}

func TestExecutionTargetValidate(testInstance *testing.T) {
	require.NoError(testInstance, bridge.LocalTarget().Validate())
	require.NoError(testInstance, bridge.ExecutionTarget{}.Validate())
	require.NoError(testInstance, bridge.RemoteTarget("sentinel-jump", "", nil, bridge.RemoteSettings{}).Validate())
	require.Equal(testInstance, bridge.FailureKindValidation, bridge.KindOf(bridge.RemoteTarget("  ", "ops", nil, bridge.RemoteSettings{}).Validate()))
}
