// Package fake provides an in-memory Adapter for tests and dry-run use.
//
// The fake keeps resources in process memory, honors idempotency tokens the
// same way a real backend must, and supports failure injection through the
// Hook field so executor retry and partial-failure paths can be exercised.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/konverge-io/konverge/internal/provider"
	"github.com/konverge-io/konverge/internal/spec"
)

// Call records one adapter invocation for test assertions.
type Call struct {
	Op    string
	ID    string
	Token string
}

// Adapter is an in-memory provider.Adapter.
type Adapter struct {
	mu        sync.Mutex
	resources map[string]provider.ResourceRecord // key: cluster + "\x00" + logical id
	tokens    map[string]tokenResult
	calls     []Call

	// Hook, when set, runs before every mutation takes effect. A non-nil
	// return aborts the call with that error, leaving no effect and no
	// token consumption. Tests use it to inject transient or permanent
	// failures on specific operations.
	Hook func(op, id string) error
}

type tokenResult struct {
	record *provider.ResourceRecord
}

// New returns an empty fake backend.
func New() *Adapter {
	return &Adapter{
		resources: make(map[string]provider.ResourceRecord),
		tokens:    make(map[string]tokenResult),
	}
}

var _ provider.Adapter = (*Adapter)(nil)

func key(cluster, id string) string { return cluster + "\x00" + id }

// Calls returns a copy of all invocations seen so far.
func (a *Adapter) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Call, len(a.calls))
	copy(out, a.calls)
	return out
}

// CallCount returns how many times op was invoked.
func (a *Adapter) CallCount(op string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, c := range a.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// SetStatus overwrites the observed status of a stored resource, simulating
// out-of-band mutation for drift tests.
func (a *Adapter) SetStatus(cluster, id, status string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.resources[key(cluster, id)]; ok {
		r.Status = status
		a.resources[key(cluster, id)] = r
	}
}

// Forget drops a stored resource without going through the adapter contract,
// simulating external deletion.
func (a *Adapter) Forget(cluster, id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.resources, key(cluster, id))
}

func (a *Adapter) DescribeCluster(ctx context.Context, name string) (*provider.ResourceRecord, error) {
	return a.DescribeResource(ctx, name, spec.ClusterID(name))
}

func (a *Adapter) DescribeResource(_ context.Context, cluster, id string) (*provider.ResourceRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{Op: "describe", ID: id})

	r, ok := a.resources[key(cluster, id)]
	if !ok {
		return nil, provider.ErrNotFound
	}
	out := r
	return &out, nil
}

func (a *Adapter) CreateCluster(_ context.Context, token string, s *spec.ClusterSpec) (*provider.ResourceRecord, error) {
	return a.put("create_cluster", token, s.Name, spec.ClusterID(s.Name), s.ClusterEntityHash())
}

func (a *Adapter) DeleteCluster(_ context.Context, token, name string) error {
	return a.remove("delete_cluster", token, name, spec.ClusterID(name))
}

func (a *Adapter) CreateNodeGroup(_ context.Context, token, cluster string, ng spec.NodeGroupSpec) (*provider.ResourceRecord, error) {
	return a.put("create_nodegroup", token, cluster, spec.NodeGroupID(ng.ID), spec.HashOf(ng))
}

func (a *Adapter) UpdateNodeGroup(_ context.Context, token, cluster string, ng spec.NodeGroupSpec) (*provider.ResourceRecord, error) {
	return a.put("update_nodegroup", token, cluster, spec.NodeGroupID(ng.ID), spec.HashOf(ng))
}

func (a *Adapter) DeleteNodeGroup(_ context.Context, token, cluster, id string) error {
	return a.remove("delete_nodegroup", token, cluster, spec.NodeGroupID(id))
}

func (a *Adapter) InstallAddOn(_ context.Context, token, cluster string, ad spec.AddOnSpec) (*provider.ResourceRecord, error) {
	return a.put("install_addon", token, cluster, spec.AddOnID(ad.Name), spec.HashOf(ad))
}

func (a *Adapter) RemoveAddOn(_ context.Context, token, cluster, name string) error {
	return a.remove("remove_addon", token, cluster, spec.AddOnID(name))
}

func (a *Adapter) BindTeamAccess(_ context.Context, token, cluster string, t spec.TeamSpec) (*provider.ResourceRecord, error) {
	return a.put("bind_team", token, cluster, spec.TeamID(t.Name), spec.HashOf(t))
}

func (a *Adapter) UnbindTeamAccess(_ context.Context, token, cluster, name string) error {
	return a.remove("unbind_team", token, cluster, spec.TeamID(name))
}

// put performs an idempotent upsert keyed by token.
func (a *Adapter) put(op, token, cluster, id, specHash string) (*provider.ResourceRecord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{Op: op, ID: id, Token: token})

	if prev, ok := a.tokens[token]; ok {
		// Duplicate delivery of the same logical request: return the
		// original result without a second effect.
		out := *prev.record
		return &out, nil
	}

	if a.Hook != nil {
		if err := a.Hook(op, id); err != nil {
			return nil, err
		}
	}

	r := provider.ResourceRecord{
		ID:         id,
		ProviderID: fmt.Sprintf("fake:%s:%s", cluster, id),
		Status:     "ACTIVE",
		SpecHash:   specHash,
		ObservedAt: time.Now().UTC(),
	}
	a.resources[key(cluster, id)] = r
	a.tokens[token] = tokenResult{record: &r}
	out := r
	return &out, nil
}

func (a *Adapter) remove(op, token, cluster, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, Call{Op: op, ID: id, Token: token})

	if _, ok := a.tokens[token]; ok {
		return nil
	}

	if a.Hook != nil {
		if err := a.Hook(op, id); err != nil {
			return err
		}
	}

	delete(a.resources, key(cluster, id))
	a.tokens[token] = tokenResult{}
	return nil
}
