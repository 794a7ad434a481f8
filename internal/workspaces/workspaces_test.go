package workspaces_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sentinelctl/internal/workspaces"
)

var fleetWorkspaces = []workspaces.Workspace{
	{ID: "1", Name: "soc-prod-weu", ResourceGroup: "rg-soc", SubscriptionID: "sub-a", TenantName: "Contoso"},
	{ID: "2", Name: "soc-prod-neu", ResourceGroup: "rg-soc", SubscriptionID: "sub-a", TenantName: "Contoso"},
	{ID: "3", Name: "Fabrikam-SOC", ResourceGroup: "rg-fab", SubscriptionID: "sub-b", TenantName: "Fabrikam"},
	{ID: "4", Name: "soc", ResourceGroup: "rg-lab", TenantName: "Lab"},
}

func workspaceNames(selected []workspaces.Workspace) []string {
	names := make([]string, 0, len(selected))
	for _, workspace := range selected {
		names = append(names, workspace.Name)
	}
	return names
}

func TestFilter(testInstance *testing.T) {
	testCases := []struct {
		name          string
		filters       []string
		expectedNames []string
	}{
		{name: "no_filters", filters: nil, expectedNames: []string{"soc-prod-weu", "soc-prod-neu", "Fabrikam-SOC", "soc"}},
		{name: "blank_filters", filters: []string{" ", ""}, expectedNames: []string{"soc-prod-weu", "soc-prod-neu", "Fabrikam-SOC", "soc"}},
		{name: "case_insensitive", filters: []string{"FABRIKAM"}, expectedNames: []string{"Fabrikam-SOC"}},
		{name: "any_filter_matches", filters: []string{"weu", "fab"}, expectedNames: []string{"soc-prod-weu", "Fabrikam-SOC"}},
		{name: "no_match", filters: []string{"contoso"}, expectedNames: []string{}},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expectedNames, workspaceNames(workspaces.Filter(fleetWorkspaces, testCase.filters)))
		})
	}
}

func TestResolve(testInstance *testing.T) {
	enumerator := workspaces.NewStaticEnumerator(fleetWorkspaces)

	testCases := []struct {
		name          string
		filter        string
		expectedName  string
		expectedError error
	}{
		{name: "unique_substring", filter: "weu", expectedName: "soc-prod-weu"},
		{name: "exact_match_wins", filter: "SOC", expectedName: "soc"},
		{name: "ambiguous", filter: "prod", expectedError: workspaces.ErrAmbiguousWorkspace},
		{name: "missing", filter: "northwind", expectedError: workspaces.ErrNoWorkspaceMatch},
		{name: "blank", filter: " ", expectedError: workspaces.ErrNoWorkspaceMatch},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			workspace, resolveError := workspaces.Resolve(context.Background(), enumerator, testCase.filter)
			if testCase.expectedError != nil {
				require.ErrorIs(testInstance, resolveError, testCase.expectedError)
				return
			}
			require.NoError(testInstance, resolveError)
			require.Equal(testInstance, testCase.expectedName, workspace.Name)
		})
	}
}

func TestContextParameters(testInstance *testing.T) {
	require.Equal(testInstance, map[string]any{
		"WorkspaceName":  "soc-prod-weu",
		"ResourceGroup":  "rg-soc",
		"SubscriptionId": "sub-a",
	}, fleetWorkspaces[0].ContextParameters())
	require.Equal(testInstance, map[string]any{"WorkspaceName": "soc", "ResourceGroup": "rg-lab"}, fleetWorkspaces[3].ContextParameters())
}

type countingEnumerator struct {
	calls   int
	failure error
}

func (enumerator *countingEnumerator) Workspaces(context.Context) ([]workspaces.Workspace, error) {
	enumerator.calls++
	if enumerator.failure != nil {
		return nil, enumerator.failure
	}
	return fleetWorkspaces[:1], nil
}

func TestCachingEnumerator(testInstance *testing.T) {
	source := &countingEnumerator{}
	currentTime := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	enumerator := workspaces.NewCachingEnumerator(source, 5*time.Minute, func() time.Time { return currentTime })

	first, firstError := enumerator.Workspaces(context.Background())
	require.NoError(testInstance, firstError)
	first[0].Name = "mutated"

	second, secondError := enumerator.Workspaces(context.Background())
	require.NoError(testInstance, secondError)
	require.Equal(testInstance, "soc-prod-weu", second[0].Name)
	require.Equal(testInstance, 1, source.calls)

	currentTime = currentTime.Add(6 * time.Minute)
	source.failure = errors.New("token expired")
	_, refreshError := enumerator.Workspaces(context.Background())
	require.ErrorContains(testInstance, refreshError, "token expired")
	require.Equal(testInstance, 2, source.calls)

	source.failure = nil
	_, recoveredError := enumerator.Workspaces(context.Background())
	require.NoError(testInstance, recoveredError)
	require.Equal(testInstance, 3, source.calls)
}

func TestStaticEnumeratorHonorsContext(testInstance *testing.T) {
	canceledContext, cancel := context.WithCancel(context.Background())
	cancel()
	_, enumerationError := workspaces.NewStaticEnumerator(fleetWorkspaces).Workspaces(canceledContext)
	require.ErrorIs(testInstance, enumerationError, context.Canceled)
}
