// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument
// parsing, flag binding, and validation. Command execution is delegated to
// handler functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/konverge-io/konverge/cmd/konverge/handlers"
)

// Root returns the root command for the konverge CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "konverge",
		Short: "Declaratively provision EKS clusters, node groups, add-ons, and team access",
	}

	cmd.AddCommand(Init())
	cmd.AddCommand(Plan())
	cmd.AddCommand(Apply())
	cmd.AddCommand(Destroy())
	cmd.AddCommand(Status())
	cmd.AddCommand(Version())

	return cmd
}

// bindCommonFlags wires the flags shared by plan, apply, destroy, and
// status into a handlers.Options.
func bindCommonFlags(cmd *cobra.Command, opts *handlers.Options) {
	cmd.Flags().StringVarP(&opts.SpecPath, "spec", "f", "konverge.yaml", "Path to the cluster spec file")
	cmd.Flags().StringVar(&opts.Backend, "backend", "eks", "Provider backend (eks or fake)")
	cmd.Flags().StringVar(&opts.StateDir, "state-dir", ".konverge", "Local state directory")
	cmd.Flags().StringVar(&opts.StateS3, "state-s3", "", "Remote state location as bucket or bucket/prefix")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}
