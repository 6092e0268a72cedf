package eks

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/eks/types"

	"github.com/konverge-io/konverge/internal/provider"
	"github.com/konverge-io/konverge/internal/spec"
)

func (a *Adapter) describeNodeGroup(ctx context.Context, cluster, name string) (*provider.ResourceRecord, error) {
	out, err := a.api.DescribeNodegroup(ctx, &eks.DescribeNodegroupInput{
		ClusterName:   aws.String(cluster),
		NodegroupName: aws.String(name),
	})
	if err != nil {
		return nil, classify(err)
	}

	return &provider.ResourceRecord{
		ID:         spec.NodeGroupID(name),
		ProviderID: aws.ToString(out.Nodegroup.NodegroupArn),
		Status:     string(out.Nodegroup.Status),
		ObservedAt: time.Now().UTC(),
	}, nil
}

// CreateNodeGroup provisions a managed node group sized per the spec.
func (a *Adapter) CreateNodeGroup(ctx context.Context, token, cluster string, ng spec.NodeGroupSpec) (*provider.ResourceRecord, error) {
	out, err := a.api.CreateNodegroup(ctx, &eks.CreateNodegroupInput{
		ClusterName:        aws.String(cluster),
		NodegroupName:      aws.String(ng.ID),
		NodeRole:           aws.String(a.cfg.NodeRoleARN),
		Subnets:            a.subnetsFor(ng.Placement),
		InstanceTypes:      []string{ng.InstanceType},
		ScalingConfig:      scalingConfig(ng),
		ClientRequestToken: aws.String(token),
	})
	if err != nil {
		return nil, classify(fmt.Errorf("create node group %s: %w", ng.ID, err))
	}

	return &provider.ResourceRecord{
		ID:         spec.NodeGroupID(ng.ID),
		ProviderID: aws.ToString(out.Nodegroup.NodegroupArn),
		Status:     string(out.Nodegroup.Status),
		SpecHash:   spec.HashOf(ng),
		ObservedAt: time.Now().UTC(),
	}, nil
}

// UpdateNodeGroup reconciles the scaling configuration of an existing group.
// Instance type changes require replacement and surface as permanent errors
// from the API.
func (a *Adapter) UpdateNodeGroup(ctx context.Context, token, cluster string, ng spec.NodeGroupSpec) (*provider.ResourceRecord, error) {
	_, err := a.api.UpdateNodegroupConfig(ctx, &eks.UpdateNodegroupConfigInput{
		ClusterName:        aws.String(cluster),
		NodegroupName:      aws.String(ng.ID),
		ScalingConfig:      scalingConfig(ng),
		ClientRequestToken: aws.String(token),
	})
	if err != nil {
		return nil, classify(fmt.Errorf("update node group %s: %w", ng.ID, err))
	}

	rec, err := a.describeNodeGroup(ctx, cluster, ng.ID)
	if err != nil {
		return nil, err
	}
	rec.SpecHash = spec.HashOf(ng)
	return rec, nil
}

func (a *Adapter) DeleteNodeGroup(ctx context.Context, _, cluster, id string) error {
	_, err := a.api.DeleteNodegroup(ctx, &eks.DeleteNodegroupInput{
		ClusterName:   aws.String(cluster),
		NodegroupName: aws.String(id),
	})
	if err != nil {
		err = classify(fmt.Errorf("delete node group %s: %w", id, err))
		if provider.IsNotFound(err) {
			return nil
		}
		return err
	}
	return nil
}

func scalingConfig(ng spec.NodeGroupSpec) *types.NodegroupScalingConfig {
	return &types.NodegroupScalingConfig{
		MinSize:     aws.Int32(int32(ng.MinSize)),
		MaxSize:     aws.Int32(int32(ng.MaxSize)),
		DesiredSize: aws.Int32(int32(ng.DesiredSize)),
	}
}
