// Package engine applies change plans against a provider adapter.
//
// Steps whose dependency predecessors have all succeeded run concurrently
// on a bounded worker pool. Transient provider failures are retried with
// capped exponential backoff; a failed step marks every transitive
// dependent skipped. A dependent step is never issued before its
// predecessor's resource record is durably persisted, which is what makes
// a rerun after partial failure resume idempotently.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/konverge-io/konverge/internal/plan"
	"github.com/konverge-io/konverge/internal/provider"
	"github.com/konverge-io/konverge/internal/spec"
	"github.com/konverge-io/konverge/internal/state"
	"github.com/konverge-io/konverge/internal/util/retry"
)

// ErrPartialFailure is returned when at least one step failed or was
// skipped; the accompanying report lists every step's terminal status.
var ErrPartialFailure = errors.New("apply finished with failures")

// ErrCancelled is returned when the run was cancelled; steps already in
// progress ran to completion and are accounted for in the report.
var ErrCancelled = errors.New("apply cancelled")

// Options configure an executor.
type Options struct {
	// Parallelism bounds concurrently running steps. Defaults to 4.
	Parallelism int
	// Retry adjusts the backoff applied to transient provider failures.
	Retry []retry.Option
	// Logger receives per-step progress. Defaults to slog.Default().
	Logger *slog.Logger
}

// Engine executes change plans.
type Engine struct {
	adapter provider.Adapter
	store   state.Store
	opts    Options
	log     *slog.Logger
}

// New returns an executor over the given backend and state store.
func New(adapter provider.Adapter, store state.Store, opts Options) *Engine {
	if opts.Parallelism < 1 {
		opts.Parallelism = 4
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{adapter: adapter, store: store, opts: opts, log: log}
}

type stepOutcome struct {
	resourceID string
	result     StepResult
}

// Apply runs every step of the plan to a terminal status and returns the
// run report. The error is nil only when every step succeeded.
func (e *Engine) Apply(ctx context.Context, p *plan.Plan) (*Report, error) {
	started := time.Now()
	e.log.Info("applying plan", "cluster", p.ClusterName, "steps", len(p.Steps), "changes", p.Changes())

	status := make(map[string]Status, len(p.Steps))
	results := make(map[string]*StepResult, len(p.Steps))
	remaining := make(map[string]int, len(p.Steps))
	dependents := make(map[string][]string)
	stepByID := make(map[string]plan.Step, len(p.Steps))

	for _, s := range p.Steps {
		status[s.ResourceID] = StatusPending
		results[s.ResourceID] = &StepResult{
			StepID:     s.ID,
			ResourceID: s.ResourceID,
			Action:     s.Action,
			Status:     StatusPending,
		}
		remaining[s.ResourceID] = len(s.DependsOn)
		stepByID[s.ResourceID] = s
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], s.ResourceID)
		}
	}

	done := make(chan stepOutcome)
	inFlight := 0
	cancelled := false

	launchReady := func() {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			e.log.Warn("cancellation requested, waiting for in-flight steps")
		}
		if cancelled {
			return
		}
		var ready []string
		for id, st := range status {
			if st == StatusPending && remaining[id] == 0 {
				ready = append(ready, id)
			}
		}
		sort.Strings(ready)

		for _, id := range ready {
			if inFlight >= e.opts.Parallelism {
				return
			}
			status[id] = StatusInProgress
			inFlight++
			step := stepByID[id]
			go func() {
				done <- stepOutcome{resourceID: step.ResourceID, result: e.execute(ctx, p, step)}
			}()
		}
	}

	var skip func(id string)
	skip = func(id string) {
		for _, dep := range dependents[id] {
			if status[dep] == StatusPending {
				status[dep] = StatusSkipped
				r := results[dep]
				r.Status = StatusSkipped
				r.Error = fmt.Sprintf("dependency %s did not succeed", id)
				stepsTotal.WithLabelValues(string(r.Action), string(StatusSkipped)).Inc()
				skip(dep)
			}
		}
	}

	launchReady()
	ctxDone := ctx.Done()
	for inFlight > 0 {
		select {
		case <-ctxDone:
			ctxDone = nil
			if !cancelled {
				cancelled = true
				e.log.Warn("cancellation requested, waiting for in-flight steps")
			}
		case out := <-done:
			inFlight--
			r := out.result
			*results[out.resourceID] = r
			status[out.resourceID] = r.Status

			switch r.Status {
			case StatusSucceeded:
				for _, dep := range dependents[out.resourceID] {
					remaining[dep]--
				}
			case StatusFailed:
				skip(out.resourceID)
			}
			launchReady()
		}
	}

	// Anything still pending was stranded by cancellation.
	for id, st := range status {
		if st == StatusPending {
			status[id] = StatusSkipped
			r := results[id]
			r.Status = StatusSkipped
			r.Error = "run cancelled"
			stepsTotal.WithLabelValues(string(r.Action), string(StatusSkipped)).Inc()
		}
	}

	report := e.buildReport(p, results, started, cancelled)

	if report.Outcome == OutcomeSucceeded && p.Desired != nil && p.Changes() > 0 {
		if err := e.store.SnapshotSpec(ctx, p.Desired); err != nil {
			return report, fmt.Errorf("failed to snapshot spec: %w", err)
		}
	}

	switch report.Outcome {
	case OutcomeCancelled:
		return report, ErrCancelled
	case OutcomePartialFailure:
		return report, ErrPartialFailure
	default:
		return report, nil
	}
}

func (e *Engine) buildReport(p *plan.Plan, results map[string]*StepResult, started time.Time, cancelled bool) *Report {
	report := &Report{
		ClusterName: p.ClusterName,
		SpecHash:    p.SpecHash,
		StartedAt:   started.UTC(),
		FinishedAt:  time.Now().UTC(),
	}
	// Report order follows plan order.
	for _, s := range p.Steps {
		report.Steps = append(report.Steps, *results[s.ResourceID])
	}
	report.Elapsed = report.FinishedAt.Sub(report.StartedAt)

	counts := report.Counts()
	switch {
	case cancelled && counts[StatusFailed]+counts[StatusSkipped] > 0:
		report.Outcome = OutcomeCancelled
	case counts[StatusFailed]+counts[StatusSkipped] > 0:
		report.Outcome = OutcomePartialFailure
	default:
		report.Outcome = OutcomeSucceeded
	}

	e.log.Info("apply finished",
		"outcome", report.Outcome,
		"succeeded", counts[StatusSucceeded],
		"failed", counts[StatusFailed],
		"skipped", counts[StatusSkipped],
		"elapsed", report.Elapsed.Round(time.Millisecond))
	return report
}

// execute drives one step to a terminal status, persisting its resource
// record before returning so dependents only ever see durable state.
func (e *Engine) execute(ctx context.Context, p *plan.Plan, step plan.Step) StepResult {
	start := time.Now()
	result := StepResult{
		StepID:     step.ID,
		ResourceID: step.ResourceID,
		Action:     step.Action,
	}

	if step.Action == plan.ActionNoop {
		result.Status = StatusSucceeded
		result.Elapsed = time.Since(start)
		stepsTotal.WithLabelValues(string(step.Action), string(StatusSucceeded)).Inc()
		return result
	}

	e.log.Info("step starting", "resource", step.ResourceID, "action", step.Action)

	var rec *provider.ResourceRecord
	op := func() error {
		result.Attempts++

		r, err := e.issue(ctx, p, step)
		if err != nil {
			if provider.IsTransient(err) {
				return err
			}
			return retry.Fatal(err)
		}
		rec = r
		return nil
	}

	err := retry.Do(ctx, op, e.opts.Retry...)
	if result.Attempts > 1 {
		stepRetriesTotal.WithLabelValues(string(step.Action)).Add(float64(result.Attempts - 1))
	}

	if err == nil {
		err = e.persist(ctx, step, rec)
	}

	result.Elapsed = time.Since(start)
	stepDuration.WithLabelValues(string(step.Action)).Observe(result.Elapsed.Seconds())

	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		stepsTotal.WithLabelValues(string(step.Action), string(StatusFailed)).Inc()
		e.log.Error("step failed", "resource", step.ResourceID, "action", step.Action,
			"attempts", result.Attempts, "error", err)
		return result
	}

	result.Status = StatusSucceeded
	if rec != nil {
		result.ProviderID = rec.ProviderID
	}
	stepsTotal.WithLabelValues(string(step.Action), string(StatusSucceeded)).Inc()
	e.log.Info("step succeeded", "resource", step.ResourceID, "action", step.Action,
		"attempts", result.Attempts, "elapsed", result.Elapsed.Round(time.Millisecond))
	return result
}

// persist writes the step's effect to the state store. This happens before
// the step is reported done, so a crash cannot release dependents against
// unrecorded state.
func (e *Engine) persist(ctx context.Context, step plan.Step, rec *provider.ResourceRecord) error {
	if step.Action == plan.ActionDelete {
		if err := e.store.Remove(ctx, step.ResourceID); err != nil {
			return fmt.Errorf("failed to remove record %s: %w", step.ResourceID, err)
		}
		return nil
	}
	if rec == nil {
		return fmt.Errorf("provider returned no record for %s", step.ResourceID)
	}
	if err := e.store.Save(ctx, *rec); err != nil {
		return fmt.Errorf("failed to save record %s: %w", step.ResourceID, err)
	}
	return nil
}

// issue makes the provider call matching the step's action and resource
// kind. The step id is passed as the idempotency token.
func (e *Engine) issue(ctx context.Context, p *plan.Plan, step plan.Step) (*provider.ResourceRecord, error) {
	kind, name, ok := strings.Cut(step.ResourceID, "/")
	if !ok {
		return nil, fmt.Errorf("malformed resource id %q", step.ResourceID)
	}
	token := step.ID
	cluster := p.ClusterName

	if step.Action == plan.ActionDelete {
		switch kind {
		case "cluster":
			return nil, e.adapter.DeleteCluster(ctx, token, name)
		case "nodegroup":
			return nil, e.adapter.DeleteNodeGroup(ctx, token, cluster, name)
		case "addon":
			return nil, e.adapter.RemoveAddOn(ctx, token, cluster, name)
		case "team":
			return nil, e.adapter.UnbindTeamAccess(ctx, token, cluster, name)
		default:
			return nil, fmt.Errorf("unknown resource kind %q", kind)
		}
	}

	switch kind {
	case "cluster":
		if step.Action == plan.ActionUpdate {
			return nil, fmt.Errorf("cluster %s: in-place update is not supported", name)
		}
		return e.adapter.CreateCluster(ctx, token, p.Desired)
	case "nodegroup":
		ng, found := nodeGroupByID(p.Desired, name)
		if !found {
			return nil, fmt.Errorf("node group %s not present in desired spec", name)
		}
		if step.Action == plan.ActionUpdate {
			return e.adapter.UpdateNodeGroup(ctx, token, cluster, ng)
		}
		return e.adapter.CreateNodeGroup(ctx, token, cluster, ng)
	case "addon":
		a, found := addOnByName(p.Desired, name)
		if !found {
			return nil, fmt.Errorf("add-on %s not present in desired spec", name)
		}
		// Install and upgrade are the same logical operation.
		return e.adapter.InstallAddOn(ctx, token, cluster, a)
	case "team":
		t, found := teamByName(p.Desired, name)
		if !found {
			return nil, fmt.Errorf("team %s not present in desired spec", name)
		}
		return e.adapter.BindTeamAccess(ctx, token, cluster, t)
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
}

func nodeGroupByID(s *spec.ClusterSpec, id string) (spec.NodeGroupSpec, bool) {
	for _, ng := range s.NodeGroups {
		if ng.ID == id {
			return ng, true
		}
	}
	return spec.NodeGroupSpec{}, false
}

func addOnByName(s *spec.ClusterSpec, name string) (spec.AddOnSpec, bool) {
	for _, a := range s.AddOns {
		if a.Name == name {
			return a, true
		}
	}
	return spec.AddOnSpec{}, false
}

func teamByName(s *spec.ClusterSpec, name string) (spec.TeamSpec, bool) {
	for _, t := range s.Teams {
		if t.Name == name {
			return t, true
		}
	}
	return spec.TeamSpec{}, false
}
