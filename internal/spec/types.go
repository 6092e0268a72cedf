package spec

import "fmt"

// NetworkMode selects how the cluster's network is placed.
type NetworkMode string

const (
	// NetworkModeExistingVPC places the cluster into a pre-existing VPC.
	NetworkModeExistingVPC NetworkMode = "existing-vpc-id"
	// NetworkModeCreateNew provisions a dedicated network for the cluster.
	NetworkModeCreateNew NetworkMode = "create-new"
)

// Placement selects the subnet tier a node group's instances land in.
type Placement string

const (
	// PlacementPrivate runs nodes in private subnets (default).
	PlacementPrivate Placement = "private"
	// PlacementPublic runs nodes in public subnets.
	PlacementPublic Placement = "public"
)

// AccessLevel is the permission tier granted to a team principal.
type AccessLevel string

const (
	AccessAdmin AccessLevel = "admin"
	AccessEdit  AccessLevel = "edit"
	AccessView  AccessLevel = "view"
)

// ClusterSpec is the desired state of one managed cluster.
// It is immutable once a plan has been computed from it.
type ClusterSpec struct {
	Name    string      `yaml:"name"`
	Account string      `yaml:"account"`
	Region  string      `yaml:"region"`
	Network NetworkSpec `yaml:"network"`

	NodeGroups []NodeGroupSpec `yaml:"node_groups,omitempty"`
	AddOns     []AddOnSpec     `yaml:"addons,omitempty"`
	Teams      []TeamSpec      `yaml:"teams,omitempty"`
}

// NetworkSpec describes the cluster's network placement.
type NetworkSpec struct {
	Mode NetworkMode `yaml:"mode"`
	// VPCID is required when Mode is existing-vpc-id and must be empty otherwise.
	VPCID string `yaml:"vpc_id,omitempty"`
}

// NodeGroupSpec describes one managed group of worker instances.
// Size bounds obey min <= desired <= max.
type NodeGroupSpec struct {
	ID           string    `yaml:"id"`
	InstanceType string    `yaml:"instance_type"`
	MinSize      int       `yaml:"min_size"`
	MaxSize      int       `yaml:"max_size"`
	DesiredSize  int       `yaml:"desired_size"`
	Placement    Placement `yaml:"placement,omitempty"`
}

// AddOnSpec describes one managed add-on and its install prerequisites.
type AddOnSpec struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version,omitempty"`
	// DependsOn lists add-on names that must be installed first.
	DependsOn []string `yaml:"depends_on,omitempty"`
}

// TeamSpec binds a set of principals to an access level on the cluster.
type TeamSpec struct {
	Name     string        `yaml:"name"`
	Bindings []TeamBinding `yaml:"bindings"`
}

// TeamBinding grants one principal one access level.
type TeamBinding struct {
	Principal   string      `yaml:"principal"`
	AccessLevel AccessLevel `yaml:"access_level"`
}

// Logical resource id prefixes. Every entity the orchestrator manages is
// addressed by a stable "kind/name" id used in plans, records, and reports.
const (
	kindCluster   = "cluster"
	kindNodeGroup = "nodegroup"
	kindAddOn     = "addon"
	kindTeam      = "team"
)

// ClusterID returns the logical resource id for the cluster itself.
func ClusterID(name string) string { return kindCluster + "/" + name }

// NodeGroupID returns the logical resource id for a node group.
func NodeGroupID(id string) string { return kindNodeGroup + "/" + id }

// AddOnID returns the logical resource id for an add-on instance.
func AddOnID(name string) string { return kindAddOn + "/" + name }

// TeamID returns the logical resource id for a team binding.
func TeamID(name string) string { return kindTeam + "/" + name }

// ApplyDefaults fills optional fields with their documented defaults.
func (s *ClusterSpec) ApplyDefaults() {
	if s.Network.Mode == "" {
		s.Network.Mode = NetworkModeCreateNew
	}
	for i := range s.NodeGroups {
		if s.NodeGroups[i].Placement == "" {
			s.NodeGroups[i].Placement = PlacementPrivate
		}
	}
}

// InvalidSpecError reports a spec that failed validation. It always names
// the offending entity so callers can point at the exact input.
type InvalidSpecError struct {
	Entity string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid spec: %s: %s", e.Entity, e.Reason)
}

func invalidf(entity, format string, args ...any) error {
	return &InvalidSpecError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}
