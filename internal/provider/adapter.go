// Package provider defines the capability-abstracted interface to the
// underlying cloud control plane. A test backend (package fake) and the real
// cloud backend (package eks) share the same contract.
package provider

import (
	"context"
	"time"

	"github.com/konverge-io/konverge/internal/spec"
)

// ResourceRecord maps a logical resource to its provider-assigned identity
// and last observed status. Records are persisted by the state store on
// every completed change step.
type ResourceRecord struct {
	// ID is the logical resource id, e.g. "nodegroup/workers".
	ID string `yaml:"id" json:"id"`
	// ProviderID is the identifier assigned by the backend (an ARN for AWS).
	ProviderID string `yaml:"provider_id" json:"provider_id"`
	// Status is the backend's lifecycle status at observation time.
	Status string `yaml:"status" json:"status"`
	// SpecHash is the content hash of the spec entity the record was
	// applied from; a differing hash classifies the resource as update.
	SpecHash string `yaml:"spec_hash" json:"spec_hash"`
	// ObservedAt is when Status was last confirmed against the backend.
	ObservedAt time.Time `yaml:"observed_at" json:"observed_at"`
}

// Adapter is the capability set the orchestrator needs from a backend.
//
// Every mutating call takes an idempotency token derived from the change
// step id; implementations guarantee at most one logical effect per token
// even if the transport delivers duplicate requests. All mutations either
// return a ResourceRecord or a typed failure (see errors.go).
type Adapter interface {
	// DescribeCluster returns the cluster's current record, or ErrNotFound.
	DescribeCluster(ctx context.Context, name string) (*ResourceRecord, error)
	// DescribeResource returns the current record for any logical resource
	// id within the named cluster, or ErrNotFound.
	DescribeResource(ctx context.Context, cluster, id string) (*ResourceRecord, error)

	CreateCluster(ctx context.Context, token string, s *spec.ClusterSpec) (*ResourceRecord, error)
	DeleteCluster(ctx context.Context, token, name string) error

	CreateNodeGroup(ctx context.Context, token, cluster string, ng spec.NodeGroupSpec) (*ResourceRecord, error)
	UpdateNodeGroup(ctx context.Context, token, cluster string, ng spec.NodeGroupSpec) (*ResourceRecord, error)
	DeleteNodeGroup(ctx context.Context, token, cluster, id string) error

	InstallAddOn(ctx context.Context, token, cluster string, a spec.AddOnSpec) (*ResourceRecord, error)
	RemoveAddOn(ctx context.Context, token, cluster, name string) error

	BindTeamAccess(ctx context.Context, token, cluster string, t spec.TeamSpec) (*ResourceRecord, error)
	UnbindTeamAccess(ctx context.Context, token, cluster, name string) error
}
