package bridge

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

const (
	unsupportedValueTemplateConstant = "parameter %q has unsupported value type %T"
	invalidNumberTemplateConstant    = "parameter %q is not a valid number: %v"
)

// ValueKind describes how a parameter value is rendered for the external runtime.
type ValueKind string

// Value kind enumerations.
const (
	ValueKindBoolean    ValueKind = ValueKind("boolean")
	ValueKindNumber     ValueKind = ValueKind("number")
	ValueKindString     ValueKind = ValueKind("string")
	ValueKindStructured ValueKind = ValueKind("structured")
)

// Value is an immutable parameter value.
type Value struct {
	kind       ValueKind
	boolean    bool
	number     string
	text       string
	structured any
}

// BooleanValue wraps a boolean.
func BooleanValue(value bool) Value {
	return Value{kind: ValueKindBoolean, boolean: value}
}

// IntegerValue wraps an integer.
func IntegerValue(value int64) Value {
	return Value{kind: ValueKindNumber, number: strconv.FormatInt(value, 10)}
}

// NumberValue wraps a floating point number.
func NumberValue(value float64) Value {
	return Value{kind: ValueKindNumber, number: strconv.FormatFloat(value, 'g', -1, 64)}
}

// StringValue wraps a string.
func StringValue(value string) Value {
	return Value{kind: ValueKindString, text: value}
}

// StructuredValue wraps a JSON-like tree of maps, slices and scalars.
func StructuredValue(value any) Value {
	return Value{kind: ValueKindStructured, structured: value}
}

// Kind reports the value kind.
func (value Value) Kind() ValueKind {
	return value.kind
}

// Boolean returns the boolean payload.
func (value Value) Boolean() bool {
	return value.boolean
}

// NumberLiteral returns the numeric payload in its literal form.
func (value Value) NumberLiteral() string {
	return value.number
}

// Text returns the string payload.
func (value Value) Text() string {
	return value.text
}

// Structured returns the structured payload.
func (value Value) Structured() any {
	return value.structured
}

// ValueOf converts a native Go value into a parameter Value.
func ValueOf(name string, native any) (Value, error) {
	switch typed := native.(type) {
	case Value:
		return typed, nil
	case bool:
		return BooleanValue(typed), nil
	case string:
		return StringValue(typed), nil
	case json.Number:
		if _, parseError := strconv.ParseFloat(typed.String(), 64); parseError != nil {
			return Value{}, NewValidationFailure(fmt.Sprintf(invalidNumberTemplateConstant, name, parseError), parseError)
		}
		return Value{kind: ValueKindNumber, number: typed.String()}, nil
	case nil:
		return Value{}, NewValidationFailure(fmt.Sprintf(unsupportedValueTemplateConstant, name, native), nil)
	}

	reflected := reflect.ValueOf(native)
	switch reflected.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntegerValue(reflected.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Value{kind: ValueKindNumber, number: strconv.FormatUint(reflected.Uint(), 10)}, nil
	case reflect.Float32, reflect.Float64:
		return NumberValue(reflected.Float()), nil
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		return StructuredValue(native), nil
	default:
		return Value{}, NewValidationFailure(fmt.Sprintf(unsupportedValueTemplateConstant, name, native), nil)
	}
}

// ParameterSet is an immutable mapping from parameter name to value.
type ParameterSet struct {
	values map[string]Value
}

// NewParameterSet copies values into a new ParameterSet.
func NewParameterSet(values map[string]Value) ParameterSet {
	duplicatedValues := make(map[string]Value, len(values))
	for parameterName, parameterValue := range values {
		duplicatedValues[parameterName] = parameterValue
	}
	return ParameterSet{values: duplicatedValues}
}

// ParameterSetFromNative converts a map of native Go values into a ParameterSet.
func ParameterSetFromNative(values map[string]any) (ParameterSet, error) {
	convertedValues := make(map[string]Value, len(values))
	for parameterName, nativeValue := range values {
		convertedValue, conversionError := ValueOf(parameterName, nativeValue)
		if conversionError != nil {
			return ParameterSet{}, conversionError
		}
		convertedValues[parameterName] = convertedValue
	}
	return ParameterSet{values: convertedValues}, nil
}

// With returns a copy of the set with name bound to value.
func (parameterSet ParameterSet) With(name string, value Value) ParameterSet {
	duplicatedValues := make(map[string]Value, len(parameterSet.values)+1)
	for parameterName, parameterValue := range parameterSet.values {
		duplicatedValues[parameterName] = parameterValue
	}
	duplicatedValues[name] = value
	return ParameterSet{values: duplicatedValues}
}

// Lookup returns the value bound to name.
func (parameterSet ParameterSet) Lookup(name string) (Value, bool) {
	parameterValue, exists := parameterSet.values[name]
	return parameterValue, exists
}

// Len reports the number of parameters.
func (parameterSet ParameterSet) Len() int {
	return len(parameterSet.values)
}

// Names returns the parameter names in ascending order.
func (parameterSet ParameterSet) Names() []string {
	parameterNames := make([]string, 0, len(parameterSet.values))
	for parameterName := range parameterSet.values {
		parameterNames = append(parameterNames, parameterName)
	}
	sort.Strings(parameterNames)
	return parameterNames
}
