package commands

import (
	"github.com/spf13/cobra"

	"github.com/konverge-io/konverge/cmd/konverge/handlers"
)

// Plan returns the command for previewing changes without applying them.
//
// The plan command diffs the desired spec against recorded state and the
// live backend and prints every create, update, and delete in execution
// order. Nothing is provisioned.
func Plan() *cobra.Command {
	var opts handlers.Options

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Preview the changes apply would make",
		Long: `Preview the changes apply would make.

This command loads the spec, compares it against recorded state and the
live backend, and prints the ordered change plan. No resources are created,
updated, or deleted.

If a recorded resource was deleted outside of konverge, planning stops with
a drift report. Use --force to replan the missing resources as creates.

Examples:
  # Preview changes using konverge.yaml in the current directory
  konverge plan

  # Preview against a specific spec and remote state
  konverge plan -f production.yaml --state-s3 my-bucket/konverge`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Plan(cmd.Context(), opts)
		},
	}

	bindCommonFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Replan externally deleted resources instead of aborting")

	return cmd
}
