package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	parameterFragmentTemplateConstant         = "-%s %s"
	powerShellTrueLiteralConstant             = "$true"
	powerShellFalseLiteralConstant            = "$false"
	singleQuoteConstant                       = "'"
	doubleQuoteConstant                       = "\""
	emptyParameterNameMessageConstant         = "parameter name must not be empty"
	invalidParameterNameTemplateConstant      = "parameter name %q is not a valid PowerShell identifier"
	nonFiniteNumberTemplateConstant           = "parameter %q must be a finite number, got %s"
	structuredEncodingFailureTemplateConstant = "parameter %q could not be serialized: %v"
	unknownValueKindTemplateConstant          = "parameter %q has no value"
)

var parameterNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Single-quoted PowerShell strings end on the ASCII apostrophe and on the
// typographic single quotes; each is escaped by doubling it.
var singleQuotedEscaper = strings.NewReplacer(
	"'", "''",
	"‘", "‘‘",
	"’", "’’",
	"‚", "‚‚",
	"‛", "‛‛",
)

// Double-quoted PowerShell strings expand `$` and end on straight or typographic
// double quotes; the backtick escapes each of them.
var doubleQuotedEscaper = strings.NewReplacer(
	"`", "``",
	"\"", "`\"",
	"$", "`$",
	"“", "`“",
	"”", "`”",
	"„", "`„",
)

// ParameterMarshaler renders a ParameterSet as PowerShell command-line argument fragments.
type ParameterMarshaler struct{}

// Marshal returns one `-Name value` fragment per parameter in ascending name order.
func (marshaler ParameterMarshaler) Marshal(parameters ParameterSet) ([]string, error) {
	parameterNames := parameters.Names()
	fragments := make([]string, 0, len(parameterNames))
	for _, parameterName := range parameterNames {
		if validationError := ValidateParameterName(parameterName); validationError != nil {
			return nil, validationError
		}
		parameterValue, _ := parameters.Lookup(parameterName)
		renderedValue, renderError := marshaler.renderValue(parameterName, parameterValue)
		if renderError != nil {
			return nil, renderError
		}
		fragments = append(fragments, fmt.Sprintf(parameterFragmentTemplateConstant, parameterName, renderedValue))
	}
	return fragments, nil
}

// ValidateParameterName rejects empty names and names the PowerShell parser would not read as one token.
func ValidateParameterName(parameterName string) error {
	if len(parameterName) == 0 {
		return NewValidationFailure(emptyParameterNameMessageConstant, nil)
	}
	if !parameterNamePattern.MatchString(parameterName) {
		return NewValidationFailure(fmt.Sprintf(invalidParameterNameTemplateConstant, parameterName), nil)
	}
	return nil
}

func (marshaler ParameterMarshaler) renderValue(parameterName string, parameterValue Value) (string, error) {
	switch parameterValue.Kind() {
	case ValueKindBoolean:
		if parameterValue.Boolean() {
			return powerShellTrueLiteralConstant, nil
		}
		return powerShellFalseLiteralConstant, nil
	case ValueKindNumber:
		return marshaler.renderNumber(parameterName, parameterValue.NumberLiteral())
	case ValueKindString:
		return QuoteSingle(parameterValue.Text()), nil
	case ValueKindStructured:
		return marshaler.renderStructured(parameterName, parameterValue.Structured())
	default:
		return "", NewValidationFailure(fmt.Sprintf(unknownValueKindTemplateConstant, parameterName), nil)
	}
}

func (marshaler ParameterMarshaler) renderNumber(parameterName string, literal string) (string, error) {
	parsedNumber, parseError := strconv.ParseFloat(literal, 64)
	if parseError != nil {
		return "", NewValidationFailure(fmt.Sprintf(invalidNumberTemplateConstant, parameterName, parseError), parseError)
	}
	if math.IsNaN(parsedNumber) || math.IsInf(parsedNumber, 0) {
		return "", NewValidationFailure(fmt.Sprintf(nonFiniteNumberTemplateConstant, parameterName, literal), nil)
	}
	return literal, nil
}

func (marshaler ParameterMarshaler) renderStructured(parameterName string, structured any) (string, error) {
	var encodedBuffer bytes.Buffer
	encoder := json.NewEncoder(&encodedBuffer)
	encoder.SetEscapeHTML(false)
	if encodeError := encoder.Encode(structured); encodeError != nil {
		return "", NewValidationFailure(fmt.Sprintf(structuredEncodingFailureTemplateConstant, parameterName, encodeError), encodeError)
	}
	compactJSON := strings.TrimRight(encodedBuffer.String(), "\n")
	return doubleQuoteConstant + doubleQuotedEscaper.Replace(compactJSON) + doubleQuoteConstant, nil
}

// QuoteSingle wraps text in a PowerShell single-quoted literal.
func QuoteSingle(text string) string {
	return singleQuoteConstant + singleQuotedEscaper.Replace(text) + singleQuoteConstant
}
