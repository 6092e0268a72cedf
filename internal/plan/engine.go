package plan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/konverge-io/konverge/internal/provider"
	"github.com/konverge-io/konverge/internal/spec"
	"github.com/konverge-io/konverge/internal/state"
)

// Options adjust how a plan is computed.
type Options struct {
	// Force overrides drift: resources deleted outside of konverge are
	// replanned as creates instead of aborting.
	Force bool
}

// Engine computes change plans from the state store and live observations.
type Engine struct {
	store   state.Store
	adapter provider.Adapter
}

// NewEngine returns a plan engine over the given store and backend.
func NewEngine(store state.Store, adapter provider.Adapter) *Engine {
	return &Engine{store: store, adapter: adapter}
}

// Plan diffs the desired spec against recorded state and emits an ordered
// change plan. User-declared add-on cycles are rejected before any
// provider call; drift aborts with DriftDetectedError unless forced.
func (e *Engine) Plan(ctx context.Context, desired *spec.ClusterSpec, opts Options) (*Plan, error) {
	if err := checkAddOnCycles(desired.AddOns); err != nil {
		return nil, err
	}

	st, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	missing, err := e.checkDrift(ctx, desired.Name, st, opts)
	if err != nil {
		return nil, err
	}

	steps := make(map[string]Step)
	clusterID := spec.ClusterID(desired.Name)

	// Cluster entity. Its identity fields are immutable: a changed hash on
	// an existing cluster cannot be converged and conflicts outright.
	entityHash := desired.ClusterEntityHash()
	if rec, ok := st.Records[clusterID]; ok && !missing[clusterID] {
		if rec.SpecHash != "" && rec.SpecHash != entityHash {
			return nil, &ConflictError{
				Reason: fmt.Sprintf("%s: account, region, and network placement are immutable; destroy and recreate", clusterID),
			}
		}
		steps[clusterID] = Step{
			ID:         stepID(ActionNoop, clusterID, entityHash),
			Action:     ActionNoop,
			ResourceID: clusterID,
		}
	} else {
		steps[clusterID] = Step{
			ID:         stepID(ActionCreate, clusterID, entityHash),
			Action:     ActionCreate,
			ResourceID: clusterID,
			Reason:     "cluster does not exist",
		}
	}

	desiredIDs := map[string]bool{clusterID: true}
	for _, ng := range desired.NodeGroups {
		id := spec.NodeGroupID(ng.ID)
		desiredIDs[id] = true
		steps[id] = classifyEntity(st, missing, id, spec.HashOf(ng))
	}
	for _, a := range desired.AddOns {
		id := spec.AddOnID(a.Name)
		desiredIDs[id] = true
		steps[id] = classifyEntity(st, missing, id, spec.HashOf(a))
	}
	for _, t := range desired.Teams {
		id := spec.TeamID(t.Name)
		desiredIDs[id] = true
		steps[id] = classifyEntity(st, missing, id, spec.HashOf(t))
	}

	// Recorded resources absent from the desired spec are torn down.
	for id, rec := range st.Records {
		if !desiredIDs[id] {
			steps[id] = Step{
				ID:         stepID(ActionDelete, id, rec.SpecHash),
				Action:     ActionDelete,
				ResourceID: id,
				Reason:     "not in desired spec",
			}
		}
	}

	ordered, err := orderSteps(steps, clusterID, desired, st.Spec)
	if err != nil {
		return nil, err
	}

	return &Plan{
		ClusterName: desired.Name,
		SpecHash:    desired.Hash(),
		Steps:       ordered,
		Desired:     desired,
	}, nil
}

// PlanDestroy emits a plan deleting every recorded resource, the cluster
// last. With force, resources already deleted externally get their stale
// records dropped instead of delete steps.
func (e *Engine) PlanDestroy(ctx context.Context, cluster string, opts Options) (*Plan, error) {
	st, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	missing, err := e.checkDrift(ctx, cluster, st, opts)
	if err != nil {
		return nil, err
	}

	steps := make(map[string]Step)
	for id, rec := range st.Records {
		if missing[id] {
			// Already gone. Nothing to tear down, but the record must
			// not outlive the resource.
			if err := e.store.Remove(ctx, id); err != nil {
				return nil, fmt.Errorf("failed to remove record %s: %w", id, err)
			}
			continue
		}
		steps[id] = Step{
			ID:         stepID(ActionDelete, id, rec.SpecHash),
			Action:     ActionDelete,
			ResourceID: id,
			Reason:     "destroy requested",
		}
	}

	ordered, err := orderSteps(steps, spec.ClusterID(cluster), nil, st.Spec)
	if err != nil {
		return nil, err
	}

	return &Plan{ClusterName: cluster, Steps: ordered}, nil
}

// classifyEntity decides create/update/noop for one desired entity.
func classifyEntity(st *state.State, missing map[string]bool, id, entityHash string) Step {
	rec, ok := st.Records[id]
	if !ok || missing[id] {
		return Step{
			ID:         stepID(ActionCreate, id, entityHash),
			Action:     ActionCreate,
			ResourceID: id,
			Reason:     "not recorded in state",
		}
	}
	if rec.SpecHash != entityHash {
		return Step{
			ID:         stepID(ActionUpdate, id, entityHash),
			Action:     ActionUpdate,
			ResourceID: id,
			Reason:     "attributes differ from recorded state",
		}
	}
	return Step{
		ID:         stepID(ActionNoop, id, entityHash),
		Action:     ActionNoop,
		ResourceID: id,
	}
}

// checkDrift compares every recorded resource against the backend's live
// view. An externally deleted resource is drift: without force it aborts
// planning, with force it is reported back for replanning as a create.
// Status-only divergence is normal lifecycle progression (CREATING turning
// ACTIVE), not drift; the fresh observation is saved in place.
func (e *Engine) checkDrift(ctx context.Context, cluster string, st *state.State, opts Options) (map[string]bool, error) {
	ids := make([]string, 0, len(st.Records))
	for id := range st.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	missing := make(map[string]bool)
	var drifted []string

	for _, id := range ids {
		rec := st.Records[id]
		live, err := e.adapter.DescribeResource(ctx, cluster, id)
		if provider.IsNotFound(err) {
			missing[id] = true
			drifted = append(drifted, id+" (deleted externally)")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to observe %s: %w", id, err)
		}

		if live.Status != rec.Status {
			rec.Status = live.Status
			rec.ObservedAt = live.ObservedAt
			if err := e.store.Save(ctx, rec); err != nil {
				return nil, fmt.Errorf("failed to refresh record %s: %w", id, err)
			}
		}
	}

	if len(drifted) > 0 && !opts.Force {
		return nil, &DriftDetectedError{Resources: drifted}
	}
	return missing, nil
}

// checkAddOnCycles rejects user-declared prerequisite cycles before the
// plan touches state or backend.
func checkAddOnCycles(addons []spec.AddOnSpec) error {
	g := newGraph()
	for _, a := range addons {
		g.addNode(spec.AddOnID(a.Name))
	}
	for _, a := range addons {
		for _, dep := range a.DependsOn {
			g.addEdge(spec.AddOnID(dep), spec.AddOnID(a.Name))
		}
	}
	if _, cycle := g.topoSort(); cycle != nil {
		return &ConflictError{Cycle: cycle}
	}
	return nil
}

// orderSteps arranges steps on the dependency graph and returns them in
// topological order with predecessors attached. lastSpec supplies add-on
// prerequisite edges for delete ordering.
func orderSteps(steps map[string]Step, clusterID string, desired, lastSpec *spec.ClusterSpec) ([]Step, error) {
	g := newGraph()
	for id := range steps {
		g.addNode(id)
	}

	for id, s := range steps {
		if id == clusterID {
			continue
		}
		switch s.Action {
		case ActionDelete:
			// Child teardown precedes cluster teardown; creation edges do
			// not apply.
			if cs, ok := steps[clusterID]; ok && cs.Action == ActionDelete {
				g.addEdge(id, clusterID)
			}
		default:
			g.addEdge(clusterID, id)
		}
	}

	if desired != nil {
		for _, a := range desired.AddOns {
			for _, dep := range a.DependsOn {
				g.addEdge(spec.AddOnID(dep), spec.AddOnID(a.Name))
			}
		}
	}

	// Deleting add-ons runs dependents before their prerequisites.
	if lastSpec != nil {
		for _, a := range lastSpec.AddOns {
			id := spec.AddOnID(a.Name)
			if s, ok := steps[id]; !ok || s.Action != ActionDelete {
				continue
			}
			for _, dep := range a.DependsOn {
				if ds, ok := steps[spec.AddOnID(dep)]; ok && ds.Action == ActionDelete {
					g.addEdge(id, spec.AddOnID(dep))
				}
			}
		}
	}

	order, cycle := g.topoSort()
	if cycle != nil {
		return nil, &ConflictError{Cycle: cycle}
	}

	out := make([]Step, 0, len(order))
	for _, id := range order {
		s := steps[id]
		s.DependsOn = g.predecessors(id)
		out = append(out, s)
	}
	return out, nil
}

// Summary returns create/update/delete/noop counts as a short string.
func (p *Plan) Summary() string {
	counts := map[Action]int{}
	for _, s := range p.Steps {
		counts[s.Action]++
	}
	parts := []string{}
	for _, a := range []Action{ActionCreate, ActionUpdate, ActionDelete, ActionNoop} {
		if counts[a] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[a], a))
		}
	}
	if len(parts) == 0 {
		return "no steps"
	}
	return strings.Join(parts, ", ")
}
