package registry

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/temirov/sentinelctl/internal/bridge"
)

const (
	unknownParameterTemplateConstant  = "function %s does not accept parameter %s"
	missingParametersTemplateConstant = "function %s requires parameters: %s"
	typeMismatchTemplateConstant      = "parameter %s of %s expects %s, got %T"
	unparsableValueTemplateConstant   = "parameter %s of %s expects %s: %v"
	repeatedParameterTemplateConstant = "parameter %s of %s is given more than once"
	missingParameterSeparatorConstant = ", "
)

// Bind validates raw parameters against the schema and converts them to a typed ParameterSet. Raw values are
// either text, as typed on a command line, or JSON-native values. Parameter names are matched case-insensitively
// and passed on in their declared spelling.
func (schema FunctionSchema) Bind(rawParameters map[string]any) (bridge.ParameterSet, error) {
	boundValues := make(map[string]bridge.Value, len(rawParameters))
	for rawName, rawValue := range rawParameters {
		parameter, declared := schema.Parameter(rawName)
		if !declared {
			return bridge.ParameterSet{}, bridge.NewValidationFailure(fmt.Sprintf(unknownParameterTemplateConstant, schema.Name, rawName), nil)
		}
		if _, repeated := boundValues[parameter.Name]; repeated {
			return bridge.ParameterSet{}, bridge.NewValidationFailure(fmt.Sprintf(repeatedParameterTemplateConstant, parameter.Name, schema.Name), nil)
		}
		boundValue, coercionError := schema.coerce(parameter, rawValue)
		if coercionError != nil {
			return bridge.ParameterSet{}, coercionError
		}
		boundValues[parameter.Name] = boundValue
	}

	var missingParameters []string
	for _, parameter := range schema.Parameters {
		if _, bound := boundValues[parameter.Name]; parameter.Required && !bound {
			missingParameters = append(missingParameters, parameter.Name)
		}
	}
	if len(missingParameters) > 0 {
		sort.Strings(missingParameters)
		return bridge.ParameterSet{}, bridge.NewValidationFailure(fmt.Sprintf(missingParametersTemplateConstant, schema.Name, strings.Join(missingParameters, missingParameterSeparatorConstant)), nil)
	}
	return bridge.NewParameterSet(boundValues), nil
}

func (schema FunctionSchema) coerce(parameter ParameterSchema, rawValue any) (bridge.Value, error) {
	text, isText := rawValue.(string)
	switch parameter.Type {
	case ParameterTypeString:
		if isText {
			return bridge.StringValue(text), nil
		}
	case ParameterTypeBoolean:
		if isText {
			parsedBoolean, parseError := strconv.ParseBool(strings.TrimPrefix(strings.TrimSpace(text), "$"))
			if parseError != nil {
				return bridge.Value{}, schema.unparsable(parameter, parseError)
			}
			return bridge.BooleanValue(parsedBoolean), nil
		}
		if nativeBoolean, isBoolean := rawValue.(bool); isBoolean {
			return bridge.BooleanValue(nativeBoolean), nil
		}
	case ParameterTypeNumber:
		if isText {
			return bridge.ValueOf(parameter.Name, json.Number(strings.TrimSpace(text)))
		}
		if isNumeric(rawValue) {
			return bridge.ValueOf(parameter.Name, rawValue)
		}
	case ParameterTypeObject, ParameterTypeArray:
		expectedKind := reflect.Map
		if parameter.Type == ParameterTypeArray {
			expectedKind = reflect.Slice
		}
		if isText {
			decoder := json.NewDecoder(strings.NewReader(text))
			decoder.UseNumber()
			var decodedValue any
			if decodeError := decoder.Decode(&decodedValue); decodeError != nil {
				return bridge.Value{}, schema.unparsable(parameter, decodeError)
			}
			rawValue = decodedValue
		}
		if rawValue != nil && reflect.TypeOf(rawValue).Kind() == expectedKind {
			return bridge.StructuredValue(rawValue), nil
		}
	}
	return bridge.Value{}, bridge.NewValidationFailure(fmt.Sprintf(typeMismatchTemplateConstant, parameter.Name, schema.Name, parameter.Type, rawValue), nil)
}

func (schema FunctionSchema) unparsable(parameter ParameterSchema, cause error) error {
	return bridge.NewValidationFailure(fmt.Sprintf(unparsableValueTemplateConstant, parameter.Name, schema.Name, parameter.Type, cause), cause)
}

func isNumeric(rawValue any) bool {
	if rawValue == nil {
		return false
	}
	if _, isJSONNumber := rawValue.(json.Number); isJSONNumber {
		return true
	}
	switch reflect.TypeOf(rawValue).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
