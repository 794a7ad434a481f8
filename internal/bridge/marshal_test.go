package bridge_test

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/sentinelctl/internal/bridge"
)

// parseArgumentFragment mirrors how the PowerShell parser reads one `-Name value` fragment.
func parseArgumentFragment(testInstance *testing.T, fragment string) (string, any) {
	testInstance.Helper()
	require.True(testInstance, strings.HasPrefix(fragment, "-"))
	parameterName, literal, found := strings.Cut(strings.TrimPrefix(fragment, "-"), " ")
	require.True(testInstance, found)

	switch {
	case literal == "$true":
		return parameterName, true
	case literal == "$false":
		return parameterName, false
	case strings.HasPrefix(literal, "'"):
		require.True(testInstance, strings.HasSuffix(literal, "'"))
		return parameterName, unquoteSingle(literal[1 : len(literal)-1])
	case strings.HasPrefix(literal, "\""):
		require.True(testInstance, strings.HasSuffix(literal, "\""))
		decoder := json.NewDecoder(strings.NewReader(unescapeBackticks(literal[1 : len(literal)-1])))
		decoder.UseNumber()
		var structured any
		require.NoError(testInstance, decoder.Decode(&structured))
		return parameterName, structured
	default:
		parsedNumber, parseError := strconv.ParseFloat(literal, 64)
		require.NoError(testInstance, parseError)
		return parameterName, parsedNumber
	}
}

func unquoteSingle(quoted string) string {
	for _, quoteCharacter := range []string{"'", "‘", "’", "‚", "‛"} {
		quoted = strings.ReplaceAll(quoted, quoteCharacter+quoteCharacter, quoteCharacter)
	}
	return quoted
}

func unescapeBackticks(escaped string) string {
	var unescaped strings.Builder
	escapeNext := false
	for _, character := range escaped {
		if !escapeNext && character == '`' {
			escapeNext = true
			continue
		}
		escapeNext = false
		unescaped.WriteRune(character)
	}
	return unescaped.String()
}

func TestMarshalPrimitiveValuesRoundTrip(testInstance *testing.T) {
	testCases := []struct {
		name          string
		value         bridge.Value
		expectedValue any
	}{
		{name: "boolean_true", value: bridge.BooleanValue(true), expectedValue: true},
		{name: "boolean_false", value: bridge.BooleanValue(false), expectedValue: false},
		{name: "integer", value: bridge.IntegerValue(42), expectedValue: float64(42)},
		{name: "negative_fraction", value: bridge.NumberValue(-3.5), expectedValue: -3.5},
		{name: "large_exponent", value: bridge.NumberValue(1e21), expectedValue: 1e21},
		{name: "plain_string", value: bridge.StringValue("SecurityEvent"), expectedValue: "SecurityEvent"},
		{name: "empty_string", value: bridge.StringValue(""), expectedValue: ""},
		{name: "apostrophe", value: bridge.StringValue("it's"), expectedValue: "it's"},
		{name: "typographic_quotes", value: bridge.StringValue("‘left’ and ‚low‛"), expectedValue: "‘left’ and ‚low‛"},
		{name: "statement_separator", value: bridge.StringValue("x'; Remove-Item C:\\ -Recurse; '"), expectedValue: "x'; Remove-Item C:\\ -Recurse; '"},
		{name: "variable_expansion", value: bridge.StringValue("$env:PATH $(whoami)"), expectedValue: "$env:PATH $(whoami)"},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			parameters := bridge.NewParameterSet(map[string]bridge.Value{"Value": testCase.value})
			fragments, marshalError := bridge.ParameterMarshaler{}.Marshal(parameters)
			require.NoError(testInstance, marshalError)
			require.Len(testInstance, fragments, 1)

			parameterName, parsedValue := parseArgumentFragment(testInstance, fragments[0])
			require.Equal(testInstance, "Value", parameterName)
			require.Equal(testInstance, testCase.expectedValue, parsedValue)
		})
	}
}

func TestMarshalStructuredValuesRoundTrip(testInstance *testing.T) {
	testCases := []struct {
		name       string
		structured any
	}{
		{
			name:       "object_with_quotes_and_variables",
			structured: map[string]any{"query": `SecurityEvent | where Account == "admin$"`, "enabled": true, "limit": json.Number("10")},
		},
		{
			name:       "nested_array",
			structured: []any{"`tick`", nil, []any{json.Number("1.5"), "“smart”"}, map[string]any{}},
		},
		{
			name:       "html_sensitive_characters",
			structured: map[string]any{"markup": "<b>&</b>"},
		},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			parameters := bridge.NewParameterSet(map[string]bridge.Value{"Payload": bridge.StructuredValue(testCase.structured)})
			fragments, marshalError := bridge.ParameterMarshaler{}.Marshal(parameters)
			require.NoError(testInstance, marshalError)

			_, parsedValue := parseArgumentFragment(testInstance, fragments[0])
			require.Equal(testInstance, testCase.structured, parsedValue)
		})
	}
}

func TestMarshalOrdersFragmentsByName(testInstance *testing.T) {
	parameters, conversionError := bridge.ParameterSetFromNative(map[string]any{
		"WorkspaceName": "wks",
		"Days":          7,
		"IncludeRules":  true,
	})
	require.NoError(testInstance, conversionError)

	fragments, marshalError := bridge.ParameterMarshaler{}.Marshal(parameters)
	require.NoError(testInstance, marshalError)
	require.Equal(testInstance, []string{"-Days 7", "-IncludeRules $true", "-WorkspaceName 'wks'"}, fragments)
}

func TestMarshalRejectsInvalidParameters(testInstance *testing.T) {
	testCases := []struct {
		name       string
		parameters bridge.ParameterSet
	}{
		{name: "empty_name", parameters: bridge.NewParameterSet(map[string]bridge.Value{"": bridge.StringValue("x")})},
		{name: "name_with_space", parameters: bridge.NewParameterSet(map[string]bridge.Value{"Bad Name": bridge.StringValue("x")})},
		{name: "name_with_separator", parameters: bridge.NewParameterSet(map[string]bridge.Value{"A;B": bridge.BooleanValue(true)})},
		{name: "not_a_number", parameters: bridge.NewParameterSet(map[string]bridge.Value{"Count": bridge.NumberValue(math.NaN())})},
		{name: "infinite_number", parameters: bridge.NewParameterSet(map[string]bridge.Value{"Count": bridge.NumberValue(math.Inf(1))})},
		{name: "zero_value", parameters: bridge.NewParameterSet(map[string]bridge.Value{"Unset": {}})},
		{name: "unencodable_structure", parameters: bridge.NewParameterSet(map[string]bridge.Value{"Payload": bridge.StructuredValue(map[string]any{"channel": make(chan int)})})},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			fragments, marshalError := bridge.ParameterMarshaler{}.Marshal(testCase.parameters)
			require.Error(testInstance, marshalError)
			require.Nil(testInstance, fragments)
			require.Equal(testInstance, bridge.FailureKindValidation, bridge.KindOf(marshalError))
		})
	}
}

func TestParameterSetFromNativeClassifiesValues(testInstance *testing.T) {
	parameters, conversionError := bridge.ParameterSetFromNative(map[string]any{
		"Flag":    false,
		"Count":   uint64(18446744073709551615),
		"Ratio":   float32(0.5),
		"Exact":   json.Number("12345678901234567890"),
		"Name":    "rule",
		"Filters": []string{"a", "b"},
		"Options": map[string]int{"depth": 2},
	})
	require.NoError(testInstance, conversionError)

	expectedKinds := map[string]bridge.ValueKind{
		"Flag":    bridge.ValueKindBoolean,
		"Count":   bridge.ValueKindNumber,
		"Ratio":   bridge.ValueKindNumber,
		"Exact":   bridge.ValueKindNumber,
		"Name":    bridge.ValueKindString,
		"Filters": bridge.ValueKindStructured,
		"Options": bridge.ValueKindStructured,
	}
	for parameterName, expectedKind := range expectedKinds {
		parameterValue, exists := parameters.Lookup(parameterName)
		require.True(testInstance, exists, parameterName)
		require.Equal(testInstance, expectedKind, parameterValue.Kind(), parameterName)
	}

	countValue, _ := parameters.Lookup("Count")
	require.Equal(testInstance, "18446744073709551615", countValue.NumberLiteral())
	exactValue, _ := parameters.Lookup("Exact")
	require.Equal(testInstance, "12345678901234567890", exactValue.NumberLiteral())
}

func TestParameterSetFromNativeRejectsUnsupportedValues(testInstance *testing.T) {
	testCases := map[string]any{
		"nil":        nil,
		"function":   func() {},
		"bad_number": json.Number("twelve"),
		"complex":    complex(1, 2),
	}
	for testCaseName, nativeValue := range testCases {
		testInstance.Run(testCaseName, func(testInstance *testing.T) {
			_, conversionError := bridge.ParameterSetFromNative(map[string]any{"Value": nativeValue})
			require.Equal(testInstance, bridge.FailureKindValidation, bridge.KindOf(conversionError))
		})
	}
}

func TestParameterSetIsImmutable(testInstance *testing.T) {
	sourceValues := map[string]bridge.Value{"Name": bridge.StringValue("original")}
	parameters := bridge.NewParameterSet(sourceValues)
	sourceValues["Name"] = bridge.StringValue("mutated")

	extended := parameters.With("Extra", bridge.BooleanValue(true))

	nameValue, _ := parameters.Lookup("Name")
	require.Equal(testInstance, "original", nameValue.Text())
	require.Equal(testInstance, 1, parameters.Len())
	require.Equal(testInstance, []string{"Extra", "Name"}, extended.Names())
}

type severityLevel int

func TestValueOfNumericWidths(testInstance *testing.T) {
	testCases := []struct {
		name            string
		native          any
		expectedLiteral string
	}{
		{name: "int8", native: int8(-8), expectedLiteral: "-8"},
		{name: "int32", native: int32(2147483647), expectedLiteral: "2147483647"},
		{name: "int64", native: int64(-9223372036854775808), expectedLiteral: "-9223372036854775808"},
		{name: "uint16", native: uint16(65535), expectedLiteral: "65535"},
		{name: "named_int", native: severityLevel(3), expectedLiteral: "3"},
		{name: "float64", native: 2.5, expectedLiteral: "2.5"},
	}

	for testCaseIndex := range testCases {
		testCase := testCases[testCaseIndex]
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			convertedValue, conversionError := bridge.ValueOf("Top", testCase.native)
			require.NoError(testInstance, conversionError)
			require.Equal(testInstance, bridge.ValueKindNumber, convertedValue.Kind())
			require.Equal(testInstance, testCase.expectedLiteral, convertedValue.NumberLiteral())
		})
	}

	_, channelError := bridge.ValueOf("Top", make(chan int))
	require.Equal(testInstance, bridge.FailureKindValidation, bridge.KindOf(channelError))
}
