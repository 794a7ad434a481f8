package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/temirov/sentinelctl/internal/bridge"
)

const (
	catalogueDecodeErrorTemplateConstant  = "unable to decode function catalogue: %w"
	catalogueReadErrorTemplateConstant    = "unable to read function catalogue %s: %w"
	duplicateFunctionTemplateConstant     = "function %s is declared more than once"
	duplicateParameterTemplateConstant    = "function %s declares parameter %s more than once"
	unsupportedTypeTemplateConstant       = "function %s parameter %s has unsupported type %q"
	invalidFunctionEntryTemplateConstant  = "function catalogue entry %d: %w"
	invalidParameterEntryTemplateConstant = "function %s: %w"
	emptyCatalogueMessageConstant         = "function catalogue declares no functions"
)

//go:embed functions.yaml
var embeddedCatalogue []byte

// ErrUnknownFunction indicates a function name absent from the catalogue.
var ErrUnknownFunction = errors.New("unknown function")

// ParameterType is the declared type of a function parameter.
type ParameterType string

// Parameter type enumerations.
const (
	ParameterTypeString  ParameterType = ParameterType("string")
	ParameterTypeBoolean ParameterType = ParameterType("bool")
	ParameterTypeNumber  ParameterType = ParameterType("number")
	ParameterTypeObject  ParameterType = ParameterType("object")
	ParameterTypeArray   ParameterType = ParameterType("array")
)

// ParameterSchema declares one parameter of a function.
type ParameterSchema struct {
	Name        string        `yaml:"name" json:"name"`
	Type        ParameterType `yaml:"type" json:"type"`
	Required    bool          `yaml:"required" json:"required"`
	Description string        `yaml:"description" json:"description,omitempty"`
}

// FunctionSchema declares a function and its parameters.
type FunctionSchema struct {
	Name        string            `yaml:"name" json:"name"`
	Category    string            `yaml:"category" json:"category"`
	Description string            `yaml:"description" json:"description,omitempty"`
	Parameters  []ParameterSchema `yaml:"parameters" json:"parameters"`
}

// Parameter finds a declared parameter by case-insensitive name.
func (schema FunctionSchema) Parameter(parameterName string) (ParameterSchema, bool) {
	for _, parameter := range schema.Parameters {
		if strings.EqualFold(parameter.Name, parameterName) {
			return parameter, true
		}
	}
	return ParameterSchema{}, false
}

type catalogueDocument struct {
	Functions []FunctionSchema `yaml:"functions"`
}

// Catalogue is an immutable table of function schemas.
type Catalogue struct {
	functions []FunctionSchema
	index     map[string]int
}

// Default loads the catalogue compiled into the binary.
func Default() (*Catalogue, error) {
	return Load(bytes.NewReader(embeddedCatalogue))
}

// LoadFile loads a catalogue from a YAML file.
func LoadFile(cataloguePath string) (*Catalogue, error) {
	catalogueFile, openError := os.Open(cataloguePath)
	if openError != nil {
		return nil, fmt.Errorf(catalogueReadErrorTemplateConstant, cataloguePath, openError)
	}
	defer catalogueFile.Close()
	return Load(catalogueFile)
}

// Load decodes and validates a YAML catalogue. Unknown keys are rejected.
func Load(reader io.Reader) (*Catalogue, error) {
	decoder := yaml.NewDecoder(reader)
	decoder.KnownFields(true)

	var document catalogueDocument
	if decodeError := decoder.Decode(&document); decodeError != nil {
		return nil, fmt.Errorf(catalogueDecodeErrorTemplateConstant, decodeError)
	}
	if len(document.Functions) == 0 {
		return nil, errors.New(emptyCatalogueMessageConstant)
	}

	catalogue := &Catalogue{
		functions: make([]FunctionSchema, 0, len(document.Functions)),
		index:     make(map[string]int, len(document.Functions)),
	}
	for functionIndex, function := range document.Functions {
		if validationError := bridge.ValidateFunctionName(function.Name); validationError != nil {
			return nil, fmt.Errorf(invalidFunctionEntryTemplateConstant, functionIndex, validationError)
		}
		functionKey := strings.ToLower(function.Name)
		if _, exists := catalogue.index[functionKey]; exists {
			return nil, fmt.Errorf(duplicateFunctionTemplateConstant, function.Name)
		}
		if validationError := validateParameters(function); validationError != nil {
			return nil, validationError
		}
		catalogue.index[functionKey] = len(catalogue.functions)
		catalogue.functions = append(catalogue.functions, function)
	}
	return catalogue, nil
}

func validateParameters(function FunctionSchema) error {
	seenParameters := make(map[string]struct{}, len(function.Parameters))
	for _, parameter := range function.Parameters {
		if validationError := bridge.ValidateParameterName(parameter.Name); validationError != nil {
			return fmt.Errorf(invalidParameterEntryTemplateConstant, function.Name, validationError)
		}
		parameterKey := strings.ToLower(parameter.Name)
		if _, exists := seenParameters[parameterKey]; exists {
			return fmt.Errorf(duplicateParameterTemplateConstant, function.Name, parameter.Name)
		}
		seenParameters[parameterKey] = struct{}{}
		switch parameter.Type {
		case ParameterTypeString, ParameterTypeBoolean, ParameterTypeNumber, ParameterTypeObject, ParameterTypeArray:
		default:
			return fmt.Errorf(unsupportedTypeTemplateConstant, function.Name, parameter.Name, parameter.Type)
		}
	}
	return nil
}

// Lookup finds a function by case-insensitive name.
func (catalogue *Catalogue) Lookup(functionName string) (FunctionSchema, bool) {
	functionIndex, exists := catalogue.index[strings.ToLower(strings.TrimSpace(functionName))]
	if !exists {
		return FunctionSchema{}, false
	}
	return catalogue.functions[functionIndex], true
}

// Functions returns the schemas in declaration order, optionally restricted to one category.
func (catalogue *Catalogue) Functions(category string) []FunctionSchema {
	selectedFunctions := make([]FunctionSchema, 0, len(catalogue.functions))
	for _, function := range catalogue.functions {
		if len(category) > 0 && !strings.EqualFold(function.Category, category) {
			continue
		}
		selectedFunctions = append(selectedFunctions, function)
	}
	return selectedFunctions
}

// Len reports the number of functions.
func (catalogue *Catalogue) Len() int {
	return len(catalogue.functions)
}
