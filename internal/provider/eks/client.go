package eks

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/eks"

	"github.com/konverge-io/konverge/internal/provider"
	"github.com/konverge-io/konverge/internal/spec"
)

// api is the subset of the EKS SDK client the adapter uses. Narrowing the
// dependency keeps the adapter testable without a live endpoint.
type api interface {
	DescribeCluster(ctx context.Context, in *eks.DescribeClusterInput, opts ...func(*eks.Options)) (*eks.DescribeClusterOutput, error)
	CreateCluster(ctx context.Context, in *eks.CreateClusterInput, opts ...func(*eks.Options)) (*eks.CreateClusterOutput, error)
	DeleteCluster(ctx context.Context, in *eks.DeleteClusterInput, opts ...func(*eks.Options)) (*eks.DeleteClusterOutput, error)

	DescribeNodegroup(ctx context.Context, in *eks.DescribeNodegroupInput, opts ...func(*eks.Options)) (*eks.DescribeNodegroupOutput, error)
	CreateNodegroup(ctx context.Context, in *eks.CreateNodegroupInput, opts ...func(*eks.Options)) (*eks.CreateNodegroupOutput, error)
	UpdateNodegroupConfig(ctx context.Context, in *eks.UpdateNodegroupConfigInput, opts ...func(*eks.Options)) (*eks.UpdateNodegroupConfigOutput, error)
	DeleteNodegroup(ctx context.Context, in *eks.DeleteNodegroupInput, opts ...func(*eks.Options)) (*eks.DeleteNodegroupOutput, error)

	DescribeAddon(ctx context.Context, in *eks.DescribeAddonInput, opts ...func(*eks.Options)) (*eks.DescribeAddonOutput, error)
	CreateAddon(ctx context.Context, in *eks.CreateAddonInput, opts ...func(*eks.Options)) (*eks.CreateAddonOutput, error)
	UpdateAddon(ctx context.Context, in *eks.UpdateAddonInput, opts ...func(*eks.Options)) (*eks.UpdateAddonOutput, error)
	DeleteAddon(ctx context.Context, in *eks.DeleteAddonInput, opts ...func(*eks.Options)) (*eks.DeleteAddonOutput, error)

	ListAccessEntries(ctx context.Context, in *eks.ListAccessEntriesInput, opts ...func(*eks.Options)) (*eks.ListAccessEntriesOutput, error)
	DescribeAccessEntry(ctx context.Context, in *eks.DescribeAccessEntryInput, opts ...func(*eks.Options)) (*eks.DescribeAccessEntryOutput, error)
	CreateAccessEntry(ctx context.Context, in *eks.CreateAccessEntryInput, opts ...func(*eks.Options)) (*eks.CreateAccessEntryOutput, error)
	DeleteAccessEntry(ctx context.Context, in *eks.DeleteAccessEntryInput, opts ...func(*eks.Options)) (*eks.DeleteAccessEntryOutput, error)
	AssociateAccessPolicy(ctx context.Context, in *eks.AssociateAccessPolicyInput, opts ...func(*eks.Options)) (*eks.AssociateAccessPolicyOutput, error)
}

// Config holds the placement and IAM wiring the adapter cannot derive from
// a ClusterSpec. Role ARNs and subnet ids are account-level concerns
// supplied by the operator.
type Config struct {
	// ClusterRoleARN is the IAM role the control plane assumes.
	ClusterRoleARN string
	// NodeRoleARN is the IAM role node group instances assume.
	NodeRoleARN string
	// PrivateSubnetIDs receive node groups with private placement.
	PrivateSubnetIDs []string
	// PublicSubnetIDs receive node groups with public placement.
	PublicSubnetIDs []string
}

func (c Config) validate() error {
	if c.ClusterRoleARN == "" {
		return fmt.Errorf("cluster role ARN is required")
	}
	if c.NodeRoleARN == "" {
		return fmt.Errorf("node role ARN is required")
	}
	if len(c.PrivateSubnetIDs)+len(c.PublicSubnetIDs) == 0 {
		return fmt.Errorf("at least one subnet id is required")
	}
	return nil
}

// Adapter drives AWS EKS through the provider contract.
type Adapter struct {
	api api
	cfg Config
}

var _ provider.Adapter = (*Adapter)(nil)

// New creates an adapter over an existing EKS API client.
func New(client api, cfg Config) (*Adapter, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("eks adapter config: %w", err)
	}
	return &Adapter{api: client, cfg: cfg}, nil
}

// NewFromDefaultConfig builds the adapter from the ambient AWS credential
// chain. Region is passed explicitly so the engine never reads
// process-wide environment at call sites.
func NewFromDefaultConfig(ctx context.Context, region string, cfg Config) (*Adapter, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return New(eks.NewFromConfig(awsCfg), cfg)
}

// DescribeResource dispatches on the logical id's kind prefix.
func (a *Adapter) DescribeResource(ctx context.Context, cluster, id string) (*provider.ResourceRecord, error) {
	kind, name, ok := strings.Cut(id, "/")
	if !ok {
		return nil, provider.Permanent(fmt.Errorf("malformed resource id %q", id))
	}
	switch kind {
	case "cluster":
		return a.DescribeCluster(ctx, name)
	case "nodegroup":
		return a.describeNodeGroup(ctx, cluster, name)
	case "addon":
		return a.describeAddOn(ctx, cluster, name)
	case "team":
		return a.describeTeam(ctx, cluster, name)
	default:
		return nil, provider.Permanent(fmt.Errorf("unknown resource kind %q in id %q", kind, id))
	}
}

// subnetsFor returns the subnet set for a node group placement tier,
// falling back to the other tier when the preferred one is empty.
func (a *Adapter) subnetsFor(p spec.Placement) []string {
	if p == spec.PlacementPublic && len(a.cfg.PublicSubnetIDs) > 0 {
		return a.cfg.PublicSubnetIDs
	}
	if len(a.cfg.PrivateSubnetIDs) > 0 {
		return a.cfg.PrivateSubnetIDs
	}
	return a.cfg.PublicSubnetIDs
}

// allSubnets is the union used for the control plane's VPC config.
func (a *Adapter) allSubnets() []string {
	out := make([]string, 0, len(a.cfg.PrivateSubnetIDs)+len(a.cfg.PublicSubnetIDs))
	out = append(out, a.cfg.PrivateSubnetIDs...)
	out = append(out, a.cfg.PublicSubnetIDs...)
	return out
}
