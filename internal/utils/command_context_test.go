package utils_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sentinelctl/internal/utils"
)

func TestCommandContextAccessorRoundTrips(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()
	startedAt := time.Date(2026, time.March, 3, 9, 30, 0, 0, time.UTC)

	executionContext := accessor.WithConfigurationFilePath(context.Background(), "/etc/sentinelctl/config.yaml")
	executionContext = accessor.WithCommandStartedAt(executionContext, startedAt)

	configurationFilePath, configurationFilePathAvailable := accessor.ConfigurationFilePath(executionContext)
	require.True(testInstance, configurationFilePathAvailable)
	require.Equal(testInstance, "/etc/sentinelctl/config.yaml", configurationFilePath)

	recordedStartedAt, startedAtAvailable := accessor.CommandStartedAt(executionContext)
	require.True(testInstance, startedAtAvailable)
	require.True(testInstance, startedAt.Equal(recordedStartedAt))
}

func TestCommandContextAccessorReportsMissingValues(testInstance *testing.T) {
	accessor := utils.NewCommandContextAccessor()

	_, configurationFilePathAvailable := accessor.ConfigurationFilePath(context.Background())
	require.False(testInstance, configurationFilePathAvailable)

	_, startedAtAvailable := accessor.CommandStartedAt(nil)
	require.False(testInstance, startedAtAvailable)
}
