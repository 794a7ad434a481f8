package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/temirov/sentinelctl/internal/output"
	"github.com/temirov/sentinelctl/internal/registry"
)

const (
	functionsCommandUseConstant              = "functions"
	functionsCommandShortDescriptionConstant = "List the SentinelManager functions"
	functionsCommandLongDescriptionConstant  = "functions lists the catalogue of SentinelManager functions with their parameters. Required parameters are marked with an asterisk."
	categoryFlagNameConstant                 = "category"
	categoryFlagDescriptionConstant          = "Only list functions in this category"
	functionsUnexpectedArgumentsMessage      = "functions does not accept positional arguments"
	requiredParameterMarkerConstant          = "*"
	parameterListSeparatorConstant           = " "
	functionNameHeaderConstant               = "FUNCTION"
	functionCategoryHeaderConstant           = "CATEGORY"
	functionParametersHeaderConstant         = "PARAMETERS"
)

// FunctionsCommandBuilder assembles the functions command.
type FunctionsCommandBuilder struct {
	RuntimeProvider      RuntimeProvider
	OutputFormatProvider OutputFormatProvider
}

// functionListing renders catalogue entries as a table or as their declared schema.
type functionListing []registry.FunctionSchema

// Table implements output.Tabular.
func (listing functionListing) Table() output.Table {
	table := output.Table{Headers: []string{functionNameHeaderConstant, functionCategoryHeaderConstant, functionParametersHeaderConstant}}
	for _, function := range listing {
		parameterNames := make([]string, 0, len(function.Parameters))
		for _, parameter := range function.Parameters {
			parameterName := parameter.Name
			if parameter.Required {
				parameterName += requiredParameterMarkerConstant
			}
			parameterNames = append(parameterNames, parameterName)
		}
		table.Rows = append(table.Rows, []string{function.Name, function.Category, strings.Join(parameterNames, parameterListSeparatorConstant)})
	}
	return table
}

// Build constructs the functions command.
func (builder *FunctionsCommandBuilder) Build() *cobra.Command {
	functionsCommand := &cobra.Command{
		Use:   functionsCommandUseConstant,
		Short: functionsCommandShortDescriptionConstant,
		Long:  functionsCommandLongDescriptionConstant,
		RunE:  builder.run,
	}
	functionsCommand.Flags().String(categoryFlagNameConstant, "", categoryFlagDescriptionConstant)
	return functionsCommand
}

func (builder *FunctionsCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(functionsUnexpectedArgumentsMessage)
	}

	category, categoryFlagError := command.Flags().GetString(categoryFlagNameConstant)
	if categoryFlagError != nil {
		return categoryFlagError
	}

	outputFormat, formatError := resolveOutputFormat(builder.OutputFormatProvider, output.FormatTable)
	if formatError != nil {
		return formatError
	}

	runtime, runtimeError := resolveRuntime(builder.RuntimeProvider)
	if runtimeError != nil {
		return runtimeError
	}

	listing := functionListing(runtime.Dispatcher.Catalogue().Functions(strings.TrimSpace(category)))
	return output.NewPrinter(outputFormat, command.OutOrStdout()).Print(listing)
}
