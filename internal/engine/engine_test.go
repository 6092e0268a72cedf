package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/konverge-io/konverge/internal/plan"
	"github.com/konverge-io/konverge/internal/provider"
	"github.com/konverge-io/konverge/internal/provider/fake"
	"github.com/konverge-io/konverge/internal/spec"
	"github.com/konverge-io/konverge/internal/state"
	"github.com/konverge-io/konverge/internal/util/retry"
)

func testSpec() *spec.ClusterSpec {
	s := &spec.ClusterSpec{
		Name:    "prod",
		Account: "123456789012",
		Region:  "eu-central-1",
		NodeGroups: []spec.NodeGroupSpec{
			{ID: "workers", InstanceType: "m5.xlarge", MinSize: 1, MaxSize: 5, DesiredSize: 2},
		},
		AddOns: []spec.AddOnSpec{
			{Name: "vpc-cni"},
			{Name: "coredns", DependsOn: []string{"vpc-cni"}},
		},
	}
	s.ApplyDefaults()
	return s
}

func newFixture(t *testing.T) (state.Store, *fake.Adapter, *plan.Engine) {
	t.Helper()
	store, err := state.NewFileStore(t.TempDir(), "prod")
	require.NoError(t, err)
	adapter := fake.New()
	return store, adapter, plan.NewEngine(store, adapter)
}

func fastRetry() []retry.Option {
	return []retry.Option{retry.WithInitialDelay(time.Millisecond), retry.WithMaxDelay(5 * time.Millisecond)}
}

func newEngine(adapter provider.Adapter, store state.Store) *Engine {
	return New(adapter, store, Options{Parallelism: 4, Retry: fastRetry()})
}

func mustPlan(t *testing.T, planner *plan.Engine, s *spec.ClusterSpec) *plan.Plan {
	t.Helper()
	p, err := planner.Plan(context.Background(), s, plan.Options{})
	require.NoError(t, err)
	return p
}

func TestApply_FreshSpecConverges(t *testing.T) {
	store, adapter, planner := newFixture(t)
	s := testSpec()

	report, err := newEngine(adapter, store).Apply(context.Background(), mustPlan(t, planner, s))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)

	counts := report.Counts()
	assert.Equal(t, 4, counts[StatusSucceeded])
	assert.Zero(t, counts[StatusFailed])

	// Everything was recorded and the spec snapshotted.
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, st.Records, 4)
	require.NotNil(t, st.Spec)
	assert.Equal(t, s.Hash(), st.SpecHash)

	// A second plan over the converged state has no changes.
	p2 := mustPlan(t, planner, s)
	assert.Equal(t, 0, p2.Changes())
}

func TestApply_RespectsDependencyOrder(t *testing.T) {
	store, adapter, planner := newFixture(t)

	_, err := newEngine(adapter, store).Apply(context.Background(), mustPlan(t, planner, testSpec()))
	require.NoError(t, err)

	pos := make(map[string]int)
	for i, c := range adapter.Calls() {
		if c.Op != "describe" {
			pos[c.ID] = i
		}
	}
	assert.Less(t, pos["cluster/prod"], pos["nodegroup/workers"])
	assert.Less(t, pos["cluster/prod"], pos["addon/vpc-cni"])
	assert.Less(t, pos["addon/vpc-cni"], pos["addon/coredns"])
}

func TestApply_RetriesTransientFailure(t *testing.T) {
	store, adapter, planner := newFixture(t)

	var mu sync.Mutex
	failures := 0
	adapter.Hook = func(op, id string) error {
		mu.Lock()
		defer mu.Unlock()
		if op == "create_nodegroup" && failures < 2 {
			failures++
			return provider.Transient(errors.New("throttled"))
		}
		return nil
	}

	report, err := newEngine(adapter, store).Apply(context.Background(), mustPlan(t, planner, testSpec()))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)

	var workers *StepResult
	for i := range report.Steps {
		if report.Steps[i].ResourceID == "nodegroup/workers" {
			workers = &report.Steps[i]
		}
	}
	require.NotNil(t, workers)
	assert.Equal(t, 3, workers.Attempts)
	assert.Equal(t, StatusSucceeded, workers.Status)
}

func TestApply_PermanentFailureIsNotRetried(t *testing.T) {
	store, adapter, planner := newFixture(t)

	adapter.Hook = func(op, id string) error {
		if op == "create_nodegroup" {
			return provider.Permanent(errors.New("invalid instance type"))
		}
		return nil
	}

	report, err := newEngine(adapter, store).Apply(context.Background(), mustPlan(t, planner, testSpec()))
	require.ErrorIs(t, err, ErrPartialFailure)
	assert.Equal(t, OutcomePartialFailure, report.Outcome)

	assert.Equal(t, 1, adapter.CallCount("create_nodegroup"))
}

func TestApply_FailureSkipsTransitiveDependents(t *testing.T) {
	store, adapter, planner := newFixture(t)

	adapter.Hook = func(op, id string) error {
		if id == "addon/vpc-cni" {
			return provider.Permanent(errors.New("rejected"))
		}
		return nil
	}

	report, err := newEngine(adapter, store).Apply(context.Background(), mustPlan(t, planner, testSpec()))
	require.ErrorIs(t, err, ErrPartialFailure)

	byResource := make(map[string]StepResult)
	for _, r := range report.Steps {
		byResource[r.ResourceID] = r
	}

	// Independent branches still finish.
	assert.Equal(t, StatusSucceeded, byResource["cluster/prod"].Status)
	assert.Equal(t, StatusSucceeded, byResource["nodegroup/workers"].Status)
	assert.Equal(t, StatusFailed, byResource["addon/vpc-cni"].Status)
	assert.Equal(t, StatusSkipped, byResource["addon/coredns"].Status)
	assert.Contains(t, byResource["addon/coredns"].Error, "addon/vpc-cni")

	// The skipped dependent was never issued to the backend.
	assert.Zero(t, countAddonCalls(adapter, "addon/coredns"))

	// The failed run never snapshots the spec.
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st.Spec)
}

func countAddonCalls(adapter *fake.Adapter, id string) int {
	n := 0
	for _, c := range adapter.Calls() {
		if c.Op == "install_addon" && c.ID == id {
			n++
		}
	}
	return n
}

func TestApply_ResumeAfterPartialFailure(t *testing.T) {
	store, adapter, planner := newFixture(t)
	s := testSpec()

	adapter.Hook = func(op, id string) error {
		if id == "addon/vpc-cni" {
			return provider.Permanent(errors.New("rejected"))
		}
		return nil
	}

	_, err := newEngine(adapter, store).Apply(context.Background(), mustPlan(t, planner, s))
	require.ErrorIs(t, err, ErrPartialFailure)

	clusterCreates := adapter.CallCount("create_cluster")
	nodegroupCreates := adapter.CallCount("create_nodegroup")

	// Second run with the failure cleared resumes the remaining work.
	adapter.Hook = nil
	p2 := mustPlan(t, planner, s)
	assert.Equal(t, 2, p2.Changes(), "only the failed add-on and its dependent remain")

	report, err := newEngine(adapter, store).Apply(context.Background(), p2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)

	// Previously succeeded steps were planned as noops and not re-issued.
	assert.Equal(t, clusterCreates, adapter.CallCount("create_cluster"))
	assert.Equal(t, nodegroupCreates, adapter.CallCount("create_nodegroup"))
}

func TestApply_NoopStepsDoNotTouchProvider(t *testing.T) {
	store, adapter, planner := newFixture(t)
	s := testSpec()

	_, err := newEngine(adapter, store).Apply(context.Background(), mustPlan(t, planner, s))
	require.NoError(t, err)

	p2 := mustPlan(t, planner, s)
	require.Equal(t, 0, p2.Changes())
	before := len(adapter.Calls())

	report, err := newEngine(adapter, store).Apply(context.Background(), p2)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)

	for _, c := range adapter.Calls()[before:] {
		assert.Equal(t, "describe", c.Op, "noop steps must not mutate the backend")
	}
}

func TestApply_CancellationSkipsPendingSteps(t *testing.T) {
	store, adapter, planner := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	adapter.Hook = func(op, id string) error {
		if op == "create_cluster" {
			cancel()
		}
		return nil
	}

	report, err := New(adapter, store, Options{Parallelism: 1, Retry: fastRetry()}).
		Apply(ctx, mustPlan(t, planner, testSpec()))
	require.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, OutcomeCancelled, report.Outcome)

	counts := report.Counts()
	assert.Equal(t, 1, counts[StatusSucceeded], "the in-flight step ran to completion")
	assert.Equal(t, 3, counts[StatusSkipped])

	// The completed step is still durably recorded.
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, st.Records, "cluster/prod")
}

func TestApply_Destroy(t *testing.T) {
	store, adapter, planner := newFixture(t)
	s := testSpec()

	_, err := newEngine(adapter, store).Apply(context.Background(), mustPlan(t, planner, s))
	require.NoError(t, err)

	p, err := planner.PlanDestroy(context.Background(), "prod", plan.Options{})
	require.NoError(t, err)
	require.Len(t, p.Steps, 4)

	report, err := newEngine(adapter, store).Apply(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)

	// Every record is gone and the backend is empty.
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.Records)

	_, err = adapter.DescribeCluster(context.Background(), "prod")
	assert.ErrorIs(t, err, provider.ErrNotFound)

	// Cluster deletion was issued last.
	var deletes []string
	for _, c := range adapter.Calls() {
		switch c.Op {
		case "delete_cluster", "delete_nodegroup", "remove_addon":
			deletes = append(deletes, c.ID)
		}
	}
	require.NotEmpty(t, deletes)
	assert.Equal(t, "cluster/prod", deletes[len(deletes)-1])
}

func TestApply_DestroyAfterExternalDeletion(t *testing.T) {
	store, adapter, planner := newFixture(t)
	s := testSpec()

	_, err := newEngine(adapter, store).Apply(context.Background(), mustPlan(t, planner, s))
	require.NoError(t, err)

	// One add-on disappears behind konverge's back. Forced destroy still
	// ends with an empty state store, not a stale record for it.
	adapter.Forget("prod", "addon/coredns")

	p, err := planner.PlanDestroy(context.Background(), "prod", plan.Options{Force: true})
	require.NoError(t, err)

	report, err := newEngine(adapter, store).Apply(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)

	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, st.Records)
}

func TestApply_StepTokensStableAcrossRuns(t *testing.T) {
	store, adapter, planner := newFixture(t)
	s := testSpec()

	p1 := mustPlan(t, planner, s)
	_, err := newEngine(adapter, store).Apply(context.Background(), p1)
	require.NoError(t, err)

	// Simulate a lost state write for the node group: same logical change,
	// same token, so the backend deduplicates the re-issued create.
	require.NoError(t, store.Remove(context.Background(), "nodegroup/workers"))

	p2, err := planner.Plan(context.Background(), s, plan.Options{})
	require.NoError(t, err)
	require.Equal(t, p1.Step("nodegroup/workers").ID, p2.Step("nodegroup/workers").ID)

	_, err = newEngine(adapter, store).Apply(context.Background(), p2)
	require.NoError(t, err)

	// Two create calls reached the adapter but only one took effect.
	assert.Equal(t, 2, adapter.CallCount("create_nodegroup"))
	st, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Contains(t, st.Records, "nodegroup/workers")
}
