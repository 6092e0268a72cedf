package commands

import (
	"github.com/spf13/cobra"

	"github.com/konverge-io/konverge/cmd/konverge/handlers"
)

// Destroy returns the destroy command.
//
// The destroy command removes every resource recorded for the cluster.
// Deletes run in reverse dependency order: team access, add-ons, and node
// groups before the cluster itself.
func Destroy() *cobra.Command {
	var opts handlers.Options

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Destroy the cluster and all recorded resources",
		Long: `Destroy removes every resource recorded for the cluster.

This command plans a delete for each recorded resource and executes the
deletes child-first:
  - Team access bindings
  - Add-ons (dependents before their prerequisites)
  - Node groups
  - The cluster itself

Each removal is forgotten from state as it completes, so an interrupted
destroy can be rerun to finish the teardown.

Example:
  konverge destroy -f konverge.yaml

WARNING: This operation is irreversible. All cluster data will be lost.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Destroy(cmd.Context(), opts)
		},
	}

	bindCommonFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Proceed past drifted records")
	cmd.Flags().IntVar(&opts.Parallelism, "parallelism", 4, "Maximum steps in flight at once")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "Write a JSON run report to this path")
	cmd.Flags().StringVar(&opts.MetricsListen, "metrics-listen", "", "Serve prometheus metrics on this address during the run")

	return cmd
}
