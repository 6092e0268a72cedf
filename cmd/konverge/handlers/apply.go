// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/konverge-io/konverge/internal/engine"
	"github.com/konverge-io/konverge/internal/logging"
	"github.com/konverge-io/konverge/internal/plan"
	"github.com/konverge-io/konverge/internal/provider"
	"github.com/konverge-io/konverge/internal/provider/eks"
	"github.com/konverge-io/konverge/internal/provider/fake"
	"github.com/konverge-io/konverge/internal/spec"
	"github.com/konverge-io/konverge/internal/state"
)

// Options carries the flag values shared by plan, apply, and destroy.
type Options struct {
	// SpecPath is the desired-state YAML file.
	SpecPath string
	// Backend selects the provider adapter: "eks" or "fake".
	Backend string
	// StateDir is the local state directory. Ignored when StateS3 is set.
	StateDir string
	// StateS3 is "bucket" or "bucket/prefix" for remote state.
	StateS3 string
	// Force replans externally deleted resources instead of aborting.
	Force bool
	// Parallelism bounds concurrently executing steps.
	Parallelism int
	// ReportPath receives the JSON run report when non-empty.
	ReportPath string
	// MetricsListen serves prometheus metrics on this address while a run
	// executes, e.g. "127.0.0.1:9464". Empty disables the endpoint.
	MetricsListen string
	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadSpecFile loads and validates the desired spec.
	loadSpecFile = spec.Load

	// newFakeAdapter creates the in-memory backend.
	newFakeAdapter = func() provider.Adapter {
		return fake.New()
	}

	// newEKSAdapter creates the AWS backend from the ambient credential chain.
	newEKSAdapter = func(ctx context.Context, region string, cfg eks.Config) (provider.Adapter, error) {
		return eks.NewFromDefaultConfig(ctx, region, cfg)
	}

	// newFileStore creates a local state store.
	newFileStore = func(dir, cluster string) (state.Store, error) {
		return state.NewFileStore(dir, cluster)
	}

	// newS3Store creates a remote state store.
	newS3Store = func(ctx context.Context, cluster string, opts state.S3Options) (state.Store, error) {
		return state.NewS3Store(ctx, cluster, opts)
	}

	// writeFile writes data to a file (for testing injection).
	writeFile = os.WriteFile
)

// Apply computes the change plan for the spec and executes it.
//
// The workflow:
//  1. Loads and validates the desired spec
//  2. Initializes the provider adapter and state store from flags
//  3. Computes the ordered change plan, checking recorded state for drift
//  4. Executes the plan with bounded concurrency and durable checkpoints
//  5. Writes the JSON run report if requested
//
// Each completed step is recorded before its dependents run, so rerunning
// apply after a partial failure resumes instead of repeating work.
func Apply(ctx context.Context, opts Options) error {
	desired, err := loadSpecFile(opts.SpecPath)
	if err != nil {
		return err
	}

	log := newLogger(opts)
	adapter, err := buildAdapter(ctx, opts, desired.Region)
	if err != nil {
		return err
	}
	store, err := buildStore(ctx, opts, desired.Name, desired.Region)
	if err != nil {
		return err
	}

	p, err := plan.NewEngine(store, adapter).Plan(ctx, desired, plan.Options{Force: opts.Force})
	if err != nil {
		return planError(err)
	}

	fmt.Print(plan.Render(p))
	if p.Changes() == 0 {
		fmt.Println("No changes. Cluster matches the spec.")
		return nil
	}

	if opts.MetricsListen != "" {
		addr, stop, err := serveMetrics(opts.MetricsListen)
		if err != nil {
			return err
		}
		defer stop()
		log.Info("serving metrics", "addr", addr)
	}

	exec := engine.New(adapter, store, engine.Options{
		Parallelism: opts.Parallelism,
		Logger:      log,
	})
	report, execErr := exec.Apply(ctx, p)

	if err := writeReport(report, opts.ReportPath); err != nil {
		return err
	}
	printReportSummary(report)
	return execErr
}

// newLogger builds the structured logger all handlers share.
func newLogger(opts Options) *slog.Logger {
	return logging.NewLogger(os.Stderr, logging.ParseLevel(opts.LogLevel))
}

// buildAdapter constructs the provider backend selected by --backend.
// EKS IAM wiring comes from the environment, matching how the AWS
// credential chain itself is supplied.
func buildAdapter(ctx context.Context, opts Options, region string) (provider.Adapter, error) {
	switch opts.Backend {
	case "fake":
		return newFakeAdapter(), nil
	case "eks", "":
		cfg := eks.Config{
			ClusterRoleARN:   os.Getenv("KONVERGE_CLUSTER_ROLE_ARN"),
			NodeRoleARN:      os.Getenv("KONVERGE_NODE_ROLE_ARN"),
			PrivateSubnetIDs: splitList(os.Getenv("KONVERGE_PRIVATE_SUBNETS")),
			PublicSubnetIDs:  splitList(os.Getenv("KONVERGE_PUBLIC_SUBNETS")),
		}
		return newEKSAdapter(ctx, region, cfg)
	default:
		return nil, fmt.Errorf("unknown backend %q (want eks or fake)", opts.Backend)
	}
}

// buildStore constructs the state store. S3 state wins when both are set.
func buildStore(ctx context.Context, opts Options, cluster, region string) (state.Store, error) {
	if opts.StateS3 != "" {
		bucket, prefix, _ := strings.Cut(opts.StateS3, "/")
		return newS3Store(ctx, cluster, state.S3Options{
			Bucket:   bucket,
			Prefix:   prefix,
			Region:   region,
			Endpoint: os.Getenv("KONVERGE_S3_ENDPOINT"),
		})
	}
	return newFileStore(opts.StateDir, cluster)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// planError unwraps plan-stage failures into actionable messages.
func planError(err error) error {
	var drift *plan.DriftDetectedError
	if errors.As(err, &drift) {
		return fmt.Errorf("%w\nRe-run with --force to reconcile drifted resources", err)
	}
	return err
}

// writeReport persists the run report as indented JSON.
func writeReport(report *engine.Report, path string) error {
	if report == nil || path == "" {
		return nil
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := writeFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// printReportSummary outputs the run outcome for the user.
func printReportSummary(report *engine.Report) {
	if report == nil {
		return
	}
	counts := report.Counts()
	fmt.Printf("\nOutcome: %s (%d succeeded, %d failed, %d skipped) in %s\n",
		report.Outcome,
		counts[engine.StatusSucceeded],
		counts[engine.StatusFailed],
		counts[engine.StatusSkipped],
		report.Elapsed.Round(time.Millisecond))

	for _, id := range report.Failed() {
		if r := stepResult(report, id); r != nil {
			fmt.Printf("  failed: %s: %s\n", r.ResourceID, r.Error)
		}
	}
}

func stepResult(report *engine.Report, resourceID string) *engine.StepResult {
	for i := range report.Steps {
		if report.Steps[i].ResourceID == resourceID {
			return &report.Steps[i]
		}
	}
	return nil
}
