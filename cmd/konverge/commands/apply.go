package commands

import (
	"github.com/spf13/cobra"

	"github.com/konverge-io/konverge/cmd/konverge/handlers"
)

// Apply returns the command for converging the cluster to the spec.
//
// This command computes the ordered change plan and executes it: creates,
// updates, and deletes run concurrently where their dependencies allow,
// and every completed step is durably recorded before its dependents start.
//
// Optional flags:
//
//	--spec, -f: Path to the cluster spec YAML file (default: konverge.yaml)
//	--parallelism: Maximum steps in flight at once
//	--report: Write a JSON run report to this path
//	--metrics-listen: Serve prometheus metrics on this address during the run
//
// Environment variables:
//
//	KONVERGE_CLUSTER_ROLE_ARN: IAM role for the EKS control plane
//	KONVERGE_NODE_ROLE_ARN:    IAM role for node group instances
//	KONVERGE_PRIVATE_SUBNETS:  Comma-separated private subnet ids
//	KONVERGE_PUBLIC_SUBNETS:   Comma-separated public subnet ids
func Apply() *cobra.Command {
	var opts handlers.Options

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Create or update the cluster to match the spec",
		Long: `Create or update your cluster to match the spec.

This command diffs the spec against recorded and observed state, orders the
resulting changes by their dependencies, and executes them. A failed step
skips its dependents but lets independent work finish; rerunning apply
resumes from what was recorded.

If no spec file is specified, it looks for konverge.yaml in the current
directory. Use 'konverge init' to create one.

Examples:
  # Converge using konverge.yaml in the current directory
  konverge apply

  # Converge a specific spec with more concurrency
  konverge apply -f production.yaml --parallelism 8

  # Re-apply after resources were deleted outside of konverge
  konverge apply --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), opts)
		},
	}

	bindCommonFlags(cmd, &opts)
	cmd.Flags().BoolVar(&opts.Force, "force", false, "Replan externally deleted resources instead of aborting")
	cmd.Flags().IntVar(&opts.Parallelism, "parallelism", 4, "Maximum steps in flight at once")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "Write a JSON run report to this path")
	cmd.Flags().StringVar(&opts.MetricsListen, "metrics-listen", "", "Serve prometheus metrics on this address during the run")

	return cmd
}
