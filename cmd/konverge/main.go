// Package main is the entry point for the konverge CLI.
//
// konverge is a command-line tool for declaratively provisioning EKS
// clusters, node groups, add-ons, and team access. It computes an ordered
// change plan by diffing a desired spec against recorded and observed
// state, then executes it with bounded concurrency and durable checkpoints
// so interrupted runs resume where they left off.
//
// Commands: init, plan, apply, destroy, status, version.
//
// For detailed usage information, run:
//
//	konverge --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/konverge-io/konverge/cmd/konverge/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// Interrupts cancel the run: in-flight steps finish and are recorded,
	// the rest is skipped.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
