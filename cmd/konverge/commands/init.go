package commands

import (
	"github.com/spf13/cobra"

	"github.com/konverge-io/konverge/cmd/konverge/handlers"
)

// Init returns the command for interactively creating a cluster spec.
//
// This command guides users through creating a spec YAML file using an
// interactive wizard with text inputs, single-select, and multi-select
// prompts.
//
// Flags:
//
//	--output, -o: Path to output file (default "konverge.yaml")
func Init() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a cluster spec",
		Long: `Interactively create a cluster spec file.

This command walks you through configuring your cluster step by step.
It will ask about:

  - Cluster identity (name, account, region)
  - Network placement (existing VPC or a dedicated network)
  - The default node group (instance type and size)
  - Add-ons to install

The generated YAML can be edited by hand afterwards; node groups, teams,
and add-on dependencies all live in the same file.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "konverge.yaml", "Output file path")

	return cmd
}
