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

// DescribeCluster returns the live record of an EKS cluster.
func (a *Adapter) DescribeCluster(ctx context.Context, name string) (*provider.ResourceRecord, error) {
	out, err := a.api.DescribeCluster(ctx, &eks.DescribeClusterInput{
		Name: aws.String(name),
	})
	if err != nil {
		return nil, classify(err)
	}

	return &provider.ResourceRecord{
		ID:         spec.ClusterID(name),
		ProviderID: aws.ToString(out.Cluster.Arn),
		Status:     string(out.Cluster.Status),
		ObservedAt: time.Now().UTC(),
	}, nil
}

// CreateCluster provisions the EKS control plane. The idempotency token is
// forwarded as the API's client request token.
func (a *Adapter) CreateCluster(ctx context.Context, token string, s *spec.ClusterSpec) (*provider.ResourceRecord, error) {
	out, err := a.api.CreateCluster(ctx, &eks.CreateClusterInput{
		Name:    aws.String(s.Name),
		RoleArn: aws.String(a.cfg.ClusterRoleARN),
		ResourcesVpcConfig: &types.VpcConfigRequest{
			SubnetIds: a.allSubnets(),
		},
		ClientRequestToken: aws.String(token),
	})
	if err != nil {
		return nil, classify(fmt.Errorf("create cluster %s: %w", s.Name, err))
	}

	return &provider.ResourceRecord{
		ID:         spec.ClusterID(s.Name),
		ProviderID: aws.ToString(out.Cluster.Arn),
		Status:     string(out.Cluster.Status),
		SpecHash:   s.ClusterEntityHash(),
		ObservedAt: time.Now().UTC(),
	}, nil
}

// DeleteCluster tears down the control plane. Deleting an already absent
// cluster is not an error; the step's outcome is the same.
func (a *Adapter) DeleteCluster(ctx context.Context, _, name string) error {
	_, err := a.api.DeleteCluster(ctx, &eks.DeleteClusterInput{
		Name: aws.String(name),
	})
	if err != nil {
		err = classify(fmt.Errorf("delete cluster %s: %w", name, err))
		if provider.IsNotFound(err) {
			return nil
		}
		return err
	}
	return nil
}
