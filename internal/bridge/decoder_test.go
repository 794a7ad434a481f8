package bridge_test

import (
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sentinelctl/internal/bridge"
)

func TestResultDecoderDecodesDocuments(testInstance *testing.T) {
	testCases := []struct {
		name           string
		rawOutput      string
		expectedResult any
	}{
		{name: "array_of_objects", rawOutput: `[{"name":"TableA"}]`, expectedResult: []any{map[string]any{"name": "TableA"}}},
		{name: "scalar", rawOutput: "true\r\n", expectedResult: true},
		{name: "byte_order_mark", rawOutput: "\ufeff{\"count\":3}", expectedResult: map[string]any{"count": json.Number("3")}},
		{name: "large_integer_precision", rawOutput: `{"id":9007199254740993}`, expectedResult: map[string]any{"id": json.Number("9007199254740993")}},
		{name: "null_document", rawOutput: "null", expectedResult: nil},
	}

	decoder := bridge.NewResultDecoder(0)
	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			decodedResult, decodeError := decoder.Decode(testCase.rawOutput)
			require.NoError(testInstance, decodeError)
			require.Equal(testInstance, testCase.expectedResult, decodedResult)
		})
	}
}

func TestResultDecoderRejectsUnusableOutput(testInstance *testing.T) {
	testCases := []struct {
		name           string
		rawOutput      string
		expectedSample string
	}{
		{name: "empty", rawOutput: "", expectedSample: ""},
		{name: "whitespace", rawOutput: " \r\n\t", expectedSample: " \r\n\t"},
		{name: "not_json", rawOutput: "WARNING: module not loaded", expectedSample: "WARNING: module not loaded"},
		{name: "trailing_document", rawOutput: "{} {}", expectedSample: "{} {}"},
	}

	decoder := bridge.NewResultDecoder(0)
	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			decodedResult, decodeError := decoder.Decode(testCase.rawOutput)
			require.Nil(testInstance, decodedResult)

			var failure *bridge.Failure
			require.ErrorAs(testInstance, decodeError, &failure)
			require.Equal(testInstance, bridge.FailureKindDecode, failure.Kind)
			require.Equal(testInstance, testCase.expectedSample, failure.OutputSample)
			require.False(testInstance, failure.Transient())
		})
	}
}

func TestResultDecoderBoundsSample(testInstance *testing.T) {
	rawOutput := strings.Repeat("é", 2000)
	_, decodeError := bridge.NewResultDecoder(0).Decode(rawOutput)

	var failure *bridge.Failure
	require.ErrorAs(testInstance, decodeError, &failure)
	require.Equal(testInstance, 500, utf8.RuneCountInString(failure.OutputSample))
	require.Equal(testInstance, strings.Repeat("é", 500), failure.OutputSample)
	require.NotNil(testInstance, failure.Cause)

	shortSample := bridge.NewResultDecoder(10).Sample(rawOutput)
	require.Equal(testInstance, strings.Repeat("é", 10), shortSample)
	require.Equal(testInstance, "éé", bridge.NewResultDecoder(10).Sample("éé"))
}

func TestResultDecoderSkipsByteOrderMark(testInstance *testing.T) {
	decoded, decodeError := bridge.NewResultDecoder(0).Decode("\uFEFF[{\"name\":\"SecurityEvent\"}]")
	require.NoError(testInstance, decodeError)
	require.Equal(testInstance, []any{map[string]any{"name": "SecurityEvent"}}, decoded)
}
