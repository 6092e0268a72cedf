package spec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() *ClusterSpec {
	s := &ClusterSpec{
		Name:    "prod",
		Account: "123456789012",
		Region:  "eu-central-1",
		NodeGroups: []NodeGroupSpec{
			{ID: "workers", InstanceType: "m5.xlarge", MinSize: 1, MaxSize: 5, DesiredSize: 2},
		},
		AddOns: []AddOnSpec{
			{Name: "vpc-cni"},
			{Name: "coredns", DependsOn: []string{"vpc-cni"}},
		},
		Teams: []TeamSpec{
			{Name: "platform", Bindings: []TeamBinding{{Principal: "arn:aws:iam::123456789012:role/platform", AccessLevel: AccessAdmin}}},
		},
	}
	s.ApplyDefaults()
	return s
}

func TestValidate_ValidSpec(t *testing.T) {
	require.NoError(t, validSpec().Validate())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ClusterSpec)
		entity  string
		message string
	}{
		{
			name:    "missing name",
			mutate:  func(s *ClusterSpec) { s.Name = "" },
			entity:  "cluster",
			message: "name is required",
		},
		{
			name:    "missing account",
			mutate:  func(s *ClusterSpec) { s.Account = "" },
			entity:  "cluster/prod",
			message: "account is required",
		},
		{
			name:    "malformed account",
			mutate:  func(s *ClusterSpec) { s.Account = "12345" },
			entity:  "cluster/prod",
			message: "12-digit",
		},
		{
			name:    "missing region",
			mutate:  func(s *ClusterSpec) { s.Region = "" },
			entity:  "cluster/prod",
			message: "region is required",
		},
		{
			name: "existing vpc without id",
			mutate: func(s *ClusterSpec) {
				s.Network = NetworkSpec{Mode: NetworkModeExistingVPC}
			},
			entity:  "cluster/prod",
			message: "requires vpc_id",
		},
		{
			name: "vpc id in create-new mode",
			mutate: func(s *ClusterSpec) {
				s.Network = NetworkSpec{Mode: NetworkModeCreateNew, VPCID: "vpc-123"}
			},
			entity:  "cluster/prod",
			message: "must not set vpc_id",
		},
		{
			name: "unknown network mode",
			mutate: func(s *ClusterSpec) {
				s.Network.Mode = "peered"
			},
			entity:  "cluster/prod",
			message: "unknown network mode",
		},
		{
			name: "size bounds inverted",
			mutate: func(s *ClusterSpec) {
				s.NodeGroups[0].MinSize = 3
				s.NodeGroups[0].DesiredSize = 2
			},
			entity: "nodegroup/workers",
		},
		{
			name: "desired above max",
			mutate: func(s *ClusterSpec) {
				s.NodeGroups[0].DesiredSize = 9
			},
			entity: "nodegroup/workers",
		},
		{
			name: "duplicate node group id",
			mutate: func(s *ClusterSpec) {
				s.NodeGroups = append(s.NodeGroups, s.NodeGroups[0])
			},
			entity:  "nodegroup/workers",
			message: "duplicate",
		},
		{
			name: "bad placement",
			mutate: func(s *ClusterSpec) {
				s.NodeGroups[0].Placement = "edge"
			},
			entity: "nodegroup/workers",
		},
		{
			name: "duplicate addon",
			mutate: func(s *ClusterSpec) {
				s.AddOns = append(s.AddOns, AddOnSpec{Name: "vpc-cni"})
			},
			entity:  "addon/vpc-cni",
			message: "duplicate",
		},
		{
			name: "addon depends on itself",
			mutate: func(s *ClusterSpec) {
				s.AddOns[0].DependsOn = []string{"vpc-cni"}
			},
			entity: "addon/vpc-cni",
		},
		{
			name: "addon depends on undeclared addon",
			mutate: func(s *ClusterSpec) {
				s.AddOns[1].DependsOn = []string{"kube-proxy"}
			},
			entity: "addon/coredns",
		},
		{
			name: "team without bindings",
			mutate: func(s *ClusterSpec) {
				s.Teams[0].Bindings = nil
			},
			entity: "team/platform",
		},
		{
			name: "unknown access level",
			mutate: func(s *ClusterSpec) {
				s.Teams[0].Bindings[0].AccessLevel = "owner"
			},
			entity: "team/platform",
		},
		{
			name: "duplicate team",
			mutate: func(s *ClusterSpec) {
				s.Teams = append(s.Teams, s.Teams[0])
			},
			entity:  "team/platform",
			message: "duplicate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSpec()
			tt.mutate(s)

			err := s.Validate()
			require.Error(t, err)

			var ise *InvalidSpecError
			require.ErrorAs(t, err, &ise)
			assert.Equal(t, tt.entity, ise.Entity)
			if tt.message != "" {
				assert.Contains(t, ise.Reason, tt.message)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	s := &ClusterSpec{
		Name:       "prod",
		Account:    "123456789012",
		Region:     "eu-central-1",
		NodeGroups: []NodeGroupSpec{{ID: "workers", InstanceType: "m5.large", MinSize: 1, MaxSize: 2, DesiredSize: 1}},
	}
	s.ApplyDefaults()

	assert.Equal(t, NetworkModeCreateNew, s.Network.Mode)
	assert.Equal(t, PlacementPrivate, s.NodeGroups[0].Placement)
}
