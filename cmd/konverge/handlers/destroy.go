package handlers

import (
	"context"
	"fmt"

	"github.com/konverge-io/konverge/internal/engine"
	"github.com/konverge-io/konverge/internal/plan"
)

// Destroy tears down every recorded resource of the cluster named by the
// spec. Deletes run child-first so the cluster itself goes last, and each
// removal is forgotten from state as it completes. Rerunning destroy after
// an interruption picks up the remaining resources.
func Destroy(ctx context.Context, opts Options) error {
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

	p, err := plan.NewEngine(store, adapter).PlanDestroy(ctx, desired.Name, plan.Options{Force: opts.Force})
	if err != nil {
		return planError(err)
	}

	if p.Changes() == 0 {
		fmt.Printf("Nothing to destroy. No resources recorded for cluster %s.\n", desired.Name)
		return nil
	}
	fmt.Print(plan.Render(p))

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
	if execErr != nil {
		return execErr
	}

	fmt.Printf("Cluster %s destroyed.\n", desired.Name)
	return nil
}
