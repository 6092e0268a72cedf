package eks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/eks/types"

	"github.com/konverge-io/konverge/internal/provider"
	"github.com/konverge-io/konverge/internal/spec"
)

// teamTag marks access entries as owned by a named team binding so they can
// be found again without the original spec.
const teamTag = "konverge.io/team"

// accessPolicyARNs maps the spec's access levels onto EKS cluster access
// policies.
var accessPolicyARNs = map[spec.AccessLevel]string{
	spec.AccessAdmin: "arn:aws:eks::aws:cluster-access-policy/AmazonEKSClusterAdminPolicy",
	spec.AccessEdit:  "arn:aws:eks::aws:cluster-access-policy/AmazonEKSEditPolicy",
	spec.AccessView:  "arn:aws:eks::aws:cluster-access-policy/AmazonEKSViewPolicy",
}

// BindTeamAccess creates one access entry per principal and associates the
// access policy matching the binding's level. Re-binding an existing
// principal is treated as converged.
func (a *Adapter) BindTeamAccess(ctx context.Context, _, cluster string, t spec.TeamSpec) (*provider.ResourceRecord, error) {
	for _, b := range t.Bindings {
		_, err := a.api.CreateAccessEntry(ctx, &eks.CreateAccessEntryInput{
			ClusterName:  aws.String(cluster),
			PrincipalArn: aws.String(b.Principal),
			Tags:         map[string]string{teamTag: t.Name},
		})
		if err != nil && !entryExists(err) {
			return nil, classify(fmt.Errorf("bind team %s principal %s: %w", t.Name, b.Principal, err))
		}

		_, err = a.api.AssociateAccessPolicy(ctx, &eks.AssociateAccessPolicyInput{
			ClusterName:  aws.String(cluster),
			PrincipalArn: aws.String(b.Principal),
			PolicyArn:    aws.String(accessPolicyARNs[b.AccessLevel]),
			AccessScope:  &types.AccessScope{Type: types.AccessScopeTypeCluster},
		})
		if err != nil {
			return nil, classify(fmt.Errorf("associate policy for team %s principal %s: %w", t.Name, b.Principal, err))
		}
	}

	return &provider.ResourceRecord{
		ID:         spec.TeamID(t.Name),
		ProviderID: fmt.Sprintf("eks:%s:team/%s", cluster, t.Name),
		Status:     "ACTIVE",
		SpecHash:   spec.HashOf(t),
		ObservedAt: time.Now().UTC(),
	}, nil
}

// UnbindTeamAccess deletes every access entry tagged with the team's name.
func (a *Adapter) UnbindTeamAccess(ctx context.Context, _, cluster, name string) error {
	principals, err := a.teamPrincipals(ctx, cluster, name)
	if err != nil {
		return err
	}
	for _, p := range principals {
		_, err := a.api.DeleteAccessEntry(ctx, &eks.DeleteAccessEntryInput{
			ClusterName:  aws.String(cluster),
			PrincipalArn: aws.String(p),
		})
		if err != nil {
			err = classify(fmt.Errorf("unbind team %s principal %s: %w", name, p, err))
			if !provider.IsNotFound(err) {
				return err
			}
		}
	}
	return nil
}

func (a *Adapter) describeTeam(ctx context.Context, cluster, name string) (*provider.ResourceRecord, error) {
	principals, err := a.teamPrincipals(ctx, cluster, name)
	if err != nil {
		return nil, err
	}
	if len(principals) == 0 {
		return nil, provider.ErrNotFound
	}
	return &provider.ResourceRecord{
		ID:         spec.TeamID(name),
		ProviderID: fmt.Sprintf("eks:%s:team/%s", cluster, name),
		Status:     "ACTIVE",
		ObservedAt: time.Now().UTC(),
	}, nil
}

// teamPrincipals lists access entries and keeps those tagged for the team.
func (a *Adapter) teamPrincipals(ctx context.Context, cluster, team string) ([]string, error) {
	var principals []string
	var next *string
	for {
		out, err := a.api.ListAccessEntries(ctx, &eks.ListAccessEntriesInput{
			ClusterName: aws.String(cluster),
			NextToken:   next,
		})
		if err != nil {
			return nil, classify(fmt.Errorf("list access entries: %w", err))
		}

		for _, arn := range out.AccessEntries {
			desc, err := a.api.DescribeAccessEntry(ctx, &eks.DescribeAccessEntryInput{
				ClusterName:  aws.String(cluster),
				PrincipalArn: aws.String(arn),
			})
			if err != nil {
				cerr := classify(err)
				if provider.IsNotFound(cerr) {
					continue
				}
				return nil, cerr
			}
			if desc.AccessEntry.Tags[teamTag] == team {
				principals = append(principals, arn)
			}
		}

		if out.NextToken == nil {
			return principals, nil
		}
		next = out.NextToken
	}
}

// entryExists reports whether err means the access entry is already
// present, which bind treats as convergence rather than failure.
func entryExists(err error) bool {
	var inUse *types.ResourceInUseException
	return errors.As(err, &inUse)
}
