package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds shipcat's root command and every subcommand tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "shipcat",
		Short:         "Declarative deployment orchestrator for a multi-region Kubernetes fleet.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(newApplyCmd())
	root.AddCommand(newDiffCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newValuesCmd())
	root.AddCommand(newTemplateCmd())
	root.AddCommand(newCRDCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newGraphCmd())
	root.AddCommand(newClusterCmd())
	return root
}
