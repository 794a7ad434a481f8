package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/temirov/sentinelctl/internal/output"
	"github.com/temirov/sentinelctl/internal/workspaces"
)

const (
	workspacesCommandUseConstant              = "workspaces"
	workspacesCommandShortDescriptionConstant = "List the configured Sentinel workspaces"
	workspacesCommandLongDescriptionConstant  = "workspaces lists the configured Sentinel workspaces, optionally keeping only those whose name contains one of the filters."
	filterFlagNameConstant                    = "filter"
	filterFlagDescriptionConstant             = "Keep workspaces whose name contains this text, ignoring case (repeatable or comma-separated)"
	workspacesUnexpectedArgumentsMessage      = "workspaces does not accept positional arguments"
	workspaceNameHeaderConstant               = "NAME"
	workspaceResourceGroupHeaderConstant      = "RESOURCE GROUP"
	workspaceSubscriptionHeaderConstant       = "SUBSCRIPTION"
	workspaceTenantHeaderConstant             = "TENANT"
)

// WorkspacesCommandBuilder assembles the workspaces command.
type WorkspacesCommandBuilder struct {
	RuntimeProvider      RuntimeProvider
	OutputFormatProvider OutputFormatProvider
}

type workspaceListing []workspaces.Workspace

// Table implements output.Tabular.
func (listing workspaceListing) Table() output.Table {
	table := output.Table{Headers: []string{workspaceNameHeaderConstant, workspaceResourceGroupHeaderConstant, workspaceSubscriptionHeaderConstant, workspaceTenantHeaderConstant}}
	for _, workspace := range listing {
		tenant := workspace.TenantName
		if len(tenant) == 0 {
			tenant = workspace.TenantID
		}
		table.Rows = append(table.Rows, []string{workspace.Name, workspace.ResourceGroup, workspace.SubscriptionID, tenant})
	}
	return table
}

// Build constructs the workspaces command.
func (builder *WorkspacesCommandBuilder) Build() *cobra.Command {
	workspacesCommand := &cobra.Command{
		Use:   workspacesCommandUseConstant,
		Short: workspacesCommandShortDescriptionConstant,
		Long:  workspacesCommandLongDescriptionConstant,
		RunE:  builder.run,
	}
	workspacesCommand.Flags().StringSlice(filterFlagNameConstant, nil, filterFlagDescriptionConstant)
	return workspacesCommand
}

func (builder *WorkspacesCommandBuilder) run(command *cobra.Command, arguments []string) error {
	if len(arguments) > 0 {
		return errors.New(workspacesUnexpectedArgumentsMessage)
	}

	nameFilters, filterFlagError := command.Flags().GetStringSlice(filterFlagNameConstant)
	if filterFlagError != nil {
		return filterFlagError
	}

	outputFormat, formatError := resolveOutputFormat(builder.OutputFormatProvider, output.FormatTable)
	if formatError != nil {
		return formatError
	}

	runtime, runtimeError := resolveRuntime(builder.RuntimeProvider)
	if runtimeError != nil {
		return runtimeError
	}

	available, enumerationError := runtime.Enumerator.Workspaces(command.Context())
	if enumerationError != nil {
		return enumerationError
	}
	listing := workspaceListing(workspaces.Filter(available, nameFilters))
	if listing == nil {
		listing = workspaceListing{}
	}
	return output.NewPrinter(outputFormat, command.OutOrStdout()).Print(listing)
}
