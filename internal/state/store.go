// Package state persists the last-applied spec and live-resource records
// for drift detection across runs.
//
// Two backends are provided: a local file store (one atomically rewritten
// YAML document per cluster) and an S3 store (one object per record) for
// shared operation. Both guarantee that a crash mid-execution leaves every
// previously completed step durably recorded.
package state

import (
	"context"

	"github.com/konverge-io/konverge/internal/provider"
	"github.com/konverge-io/konverge/internal/spec"
)

// State is everything recorded about one managed cluster.
type State struct {
	// SpecHash identifies the last fully applied spec.
	SpecHash string `yaml:"spec_hash,omitempty"`
	// Spec is the last snapshotted spec, nil before the first apply.
	Spec *spec.ClusterSpec `yaml:"spec,omitempty"`
	// Records maps logical resource ids to their provider records.
	Records map[string]provider.ResourceRecord `yaml:"records,omitempty"`
}

// Empty reports whether nothing has ever been applied.
func (s *State) Empty() bool {
	return s.Spec == nil && len(s.Records) == 0
}

// NewState returns an initialized empty state.
func NewState() *State {
	return &State{Records: make(map[string]provider.ResourceRecord)}
}

// Store is the persistence contract used by the plan engine and executor.
// Save and Remove must each be atomic per record.
type Store interface {
	// Load returns the recorded state, or an empty state if none exists.
	Load(ctx context.Context) (*State, error)
	// Save durably records one resource. It must complete before any step
	// depending on the resource is released.
	Save(ctx context.Context, rec provider.ResourceRecord) error
	// Remove durably forgets one resource after successful teardown.
	Remove(ctx context.Context, id string) error
	// SnapshotSpec records the spec once a run has fully converged.
	SnapshotSpec(ctx context.Context, s *spec.ClusterSpec) error
}
