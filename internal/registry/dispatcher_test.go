package registry_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sentinelctl/internal/bridge"
	"github.com/temirov/sentinelctl/internal/registry"
)

const testCatalogueConstant = `functions:
  - name: Get-SentinelTables
    category: tables
    parameters:
      - name: WorkspaceName
        type: string
        required: true
      - name: ShowHeader
        type: bool
  - name: Update-TableRetention
    category: tables
    parameters:
      - name: WorkspaceName
        type: string
        required: true
      - name: TableName
        type: string
        required: true
      - name: RetentionInDays
        type: number
  - name: New-AnalyticsRule
    category: analytics_rules
    parameters:
      - name: Tactics
        type: array
      - name: Settings
        type: object
`

type recordingExecutor struct {
	invocations []bridge.Invocation
}

func (executor *recordingExecutor) Execute(_ context.Context, invocation bridge.Invocation) (bridge.InvocationOutcome, error) {
	executor.invocations = append(executor.invocations, invocation)
	return bridge.InvocationOutcome{Result: []any{}}, nil
}

func newTestDispatcher(testInstance *testing.T) (*registry.Dispatcher, *recordingExecutor) {
	testInstance.Helper()
	catalogue, loadError := registry.Load(strings.NewReader(testCatalogueConstant))
	require.NoError(testInstance, loadError)
	executor := &recordingExecutor{}
	dispatcher, creationError := registry.NewDispatcher(catalogue, executor)
	require.NoError(testInstance, creationError)
	return dispatcher, executor
}

func TestDispatchBindsTypedParameters(testInstance *testing.T) {
	testCases := []struct {
		name               string
		request            registry.Request
		expectedFunction   string
		expectedParameters map[string]bridge.Value
	}{
		{
			name: "text_from_command_line",
			request: registry.Request{
				FunctionName: "get-sentineltables",
				Parameters:   map[string]any{"workspacename": "soc-prod", "ShowHeader": "false"},
			},
			expectedFunction: "Get-SentinelTables",
			expectedParameters: map[string]bridge.Value{
				"WorkspaceName": bridge.StringValue("soc-prod"),
				"ShowHeader":    bridge.BooleanValue(false),
			},
		},
		{
			name: "powershell_boolean_literal",
			request: registry.Request{
				FunctionName: "Get-SentinelTables",
				Parameters:   map[string]any{"WorkspaceName": "soc-prod", "ShowHeader": "$true"},
			},
			expectedFunction: "Get-SentinelTables",
			expectedParameters: map[string]bridge.Value{
				"WorkspaceName": bridge.StringValue("soc-prod"),
				"ShowHeader":    bridge.BooleanValue(true),
			},
		},
		{
			name: "json_native_values",
			request: registry.Request{
				FunctionName: "Update-TableRetention",
				Parameters:   map[string]any{"WorkspaceName": "soc-prod", "TableName": "Custom_CL", "RetentionInDays": json.Number("90")},
			},
			expectedFunction: "Update-TableRetention",
			expectedParameters: map[string]bridge.Value{
				"WorkspaceName":   bridge.StringValue("soc-prod"),
				"TableName":       bridge.StringValue("Custom_CL"),
				"RetentionInDays": bridge.IntegerValue(90),
			},
		},
		{
			name: "context_parameters_fill_gaps_only",
			request: registry.Request{
				FunctionName:      "Update-TableRetention",
				Parameters:        map[string]any{"TableName": "Custom_CL", "workspacename": "explicit"},
				ContextParameters: map[string]any{"WorkspaceName": "from-context", "ResourceGroup": "rg-soc", "RetentionInDays": "30"},
			},
			expectedFunction: "Update-TableRetention",
			expectedParameters: map[string]bridge.Value{
				"WorkspaceName":   bridge.StringValue("explicit"),
				"TableName":       bridge.StringValue("Custom_CL"),
				"RetentionInDays": bridge.IntegerValue(30),
			},
		},
		{
			name: "structured_text",
			request: registry.Request{
				FunctionName: "New-AnalyticsRule",
				Parameters:   map[string]any{"Tactics": `["InitialAccess"]`, "Settings": map[string]any{"enabled": true}},
			},
			expectedFunction: "New-AnalyticsRule",
			expectedParameters: map[string]bridge.Value{
				"Tactics":  bridge.StructuredValue([]any{"InitialAccess"}),
				"Settings": bridge.StructuredValue(map[string]any{"enabled": true}),
			},
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			dispatcher, executor := newTestDispatcher(testInstance)
			_, dispatchError := dispatcher.Dispatch(context.Background(), testCase.request)
			require.NoError(testInstance, dispatchError)
			require.Len(testInstance, executor.invocations, 1)

			invocation := executor.invocations[0]
			require.Equal(testInstance, testCase.expectedFunction, invocation.FunctionName)
			require.Equal(testInstance, bridge.NewParameterSet(testCase.expectedParameters), invocation.Parameters)
		})
	}
}

func TestDispatchRejectsInvalidRequests(testInstance *testing.T) {
	testCases := []struct {
		name    string
		request registry.Request
	}{
		{name: "unknown_function", request: registry.Request{FunctionName: "Invoke-Expression"}},
		{name: "unknown_parameter", request: registry.Request{FunctionName: "Get-SentinelTables", Parameters: map[string]any{"WorkspaceName": "w", "Command": "x"}}},
		{name: "missing_required", request: registry.Request{FunctionName: "Update-TableRetention", Parameters: map[string]any{"WorkspaceName": "w"}}},
		{name: "bad_boolean", request: registry.Request{FunctionName: "Get-SentinelTables", Parameters: map[string]any{"WorkspaceName": "w", "ShowHeader": "maybe"}}},
		{name: "bad_number", request: registry.Request{FunctionName: "Update-TableRetention", Parameters: map[string]any{"WorkspaceName": "w", "TableName": "t", "RetentionInDays": "ninety"}}},
		{name: "string_given_number", request: registry.Request{FunctionName: "Update-TableRetention", Parameters: map[string]any{"WorkspaceName": 7, "TableName": "t"}}},
		{name: "array_given_object", request: registry.Request{FunctionName: "New-AnalyticsRule", Parameters: map[string]any{"Tactics": `{"a":1}`}}},
		{name: "malformed_json", request: registry.Request{FunctionName: "New-AnalyticsRule", Parameters: map[string]any{"Settings": `{"a":`}}},
		{name: "null_structure", request: registry.Request{FunctionName: "New-AnalyticsRule", Parameters: map[string]any{"Settings": nil}}},
		{name: "case_variant_repeated", request: registry.Request{FunctionName: "Get-SentinelTables", Parameters: map[string]any{"WorkspaceName": "a", "workspacename": "b"}}},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			dispatcher, executor := newTestDispatcher(testInstance)
			_, dispatchError := dispatcher.Dispatch(context.Background(), testCase.request)
			require.Equal(testInstance, bridge.FailureKindValidation, bridge.KindOf(dispatchError))
			require.Empty(testInstance, executor.invocations)
		})
	}
}

func TestDispatchUnknownFunctionIsIdentifiable(testInstance *testing.T) {
	dispatcher, _ := newTestDispatcher(testInstance)
	_, dispatchError := dispatcher.Dispatch(context.Background(), registry.Request{FunctionName: "Get-Nothing"})
	require.ErrorIs(testInstance, dispatchError, registry.ErrUnknownFunction)
}

func TestNewDispatcherRequiresCollaborators(testInstance *testing.T) {
	catalogue, loadError := registry.Default()
	require.NoError(testInstance, loadError)

	_, missingCatalogueError := registry.NewDispatcher(nil, &recordingExecutor{})
	require.ErrorIs(testInstance, missingCatalogueError, registry.ErrCatalogueNotConfigured)
	_, missingExecutorError := registry.NewDispatcher(catalogue, nil)
	require.ErrorIs(testInstance, missingExecutorError, registry.ErrExecutorNotConfigured)
}
