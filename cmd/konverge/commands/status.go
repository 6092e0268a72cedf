package commands

import (
	"github.com/spf13/cobra"

	"github.com/konverge-io/konverge/cmd/konverge/handlers"
)

// Status returns the command for inspecting recorded state.
func Status() *cobra.Command {
	var opts handlers.Options

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the recorded state of the cluster",
		Long: `Show the recorded state of the cluster.

This command prints every resource record the state store holds for the
cluster, along with whether the last applied spec matches the current one.
It reads state only and never contacts the provider; use 'konverge plan'
to check for drift against live resources.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), opts)
		},
	}

	bindCommonFlags(cmd, &opts)

	return cmd
}
