package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/temirov/sentinelctl/internal/bridge"
)

const unknownFunctionTemplateConstant = "function %s is not in the catalogue"

// ErrExecutorNotConfigured indicates that a Dispatcher was constructed without an executor.
var ErrExecutorNotConfigured = errors.New("dispatcher requires an executor")

// ErrCatalogueNotConfigured indicates that a Dispatcher was constructed without a catalogue.
var ErrCatalogueNotConfigured = errors.New("dispatcher requires a function catalogue")

// Executor runs a bound invocation.
type Executor interface {
	Execute(ctx context.Context, invocation bridge.Invocation) (bridge.InvocationOutcome, error)
}

// Request is one generic function call. ContextParameters are applied only to parameters the function
// declares and Parameters leaves unset.
type Request struct {
	FunctionName      string
	Parameters        map[string]any
	ContextParameters map[string]any
	Target            bridge.ExecutionTarget
	Timeout           time.Duration
}

// Dispatcher is the single entry point that turns catalogue function calls into bridge invocations.
type Dispatcher struct {
	catalogue *Catalogue
	executor  Executor
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(catalogue *Catalogue, executor Executor) (*Dispatcher, error) {
	if catalogue == nil {
		return nil, ErrCatalogueNotConfigured
	}
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Dispatcher{catalogue: catalogue, executor: executor}, nil
}

// Catalogue exposes the function table the dispatcher serves.
func (dispatcher *Dispatcher) Catalogue() *Catalogue {
	return dispatcher.catalogue
}

// Dispatch resolves the function, binds its parameters and executes it. Unknown functions and invalid
// parameters fail with a validation failure before any process is started.
func (dispatcher *Dispatcher) Dispatch(ctx context.Context, request Request) (bridge.InvocationOutcome, error) {
	function, known := dispatcher.catalogue.Lookup(request.FunctionName)
	if !known {
		return bridge.InvocationOutcome{}, bridge.NewValidationFailure(fmt.Sprintf(unknownFunctionTemplateConstant, request.FunctionName), ErrUnknownFunction)
	}

	parameters, bindError := function.Bind(mergeContextParameters(function, request.Parameters, request.ContextParameters))
	if bindError != nil {
		return bridge.InvocationOutcome{}, bindError
	}

	return dispatcher.executor.Execute(ctx, bridge.Invocation{
		FunctionName: function.Name,
		Parameters:   parameters,
		Target:       request.Target,
		Timeout:      request.Timeout,
	})
}

func mergeContextParameters(function FunctionSchema, explicitParameters map[string]any, contextParameters map[string]any) map[string]any {
	mergedParameters := make(map[string]any, len(explicitParameters)+len(contextParameters))
	explicitNames := make(map[string]struct{}, len(explicitParameters))
	for parameterName, parameterValue := range explicitParameters {
		mergedParameters[parameterName] = parameterValue
		if parameter, declared := function.Parameter(parameterName); declared {
			explicitNames[parameter.Name] = struct{}{}
		}
	}
	for parameterName, parameterValue := range contextParameters {
		parameter, declared := function.Parameter(parameterName)
		if !declared {
			continue
		}
		if _, explicit := explicitNames[parameter.Name]; explicit {
			continue
		}
		mergedParameters[parameter.Name] = parameterValue
	}
	return mergedParameters
}
