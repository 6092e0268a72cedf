package spec

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/charmbracelet/huh"
)

var clusterNameRe = regexp.MustCompile(`^[a-z][a-z0-9-]{0,62}$`)

func validateClusterName(s string) error {
	if !clusterNameRe.MatchString(s) {
		return fmt.Errorf("must be lowercase alphanumeric with dashes, starting with a letter")
	}
	return nil
}

func validateAccountID(s string) error {
	if len(s) != 12 {
		return fmt.Errorf("must be a 12-digit account id")
	}
	if _, err := strconv.Atoi(s); err != nil {
		return fmt.Errorf("must be a 12-digit account id")
	}
	return nil
}

func regionOptions() []huh.Option[string] {
	return []huh.Option[string]{
		huh.NewOption("US East (N. Virginia) - us-east-1", "us-east-1"),
		huh.NewOption("US West (Oregon) - us-west-2", "us-west-2"),
		huh.NewOption("Europe (Ireland) - eu-west-1", "eu-west-1"),
		huh.NewOption("Europe (Frankfurt) - eu-central-1", "eu-central-1"),
		huh.NewOption("Asia Pacific (Singapore) - ap-southeast-1", "ap-southeast-1"),
		huh.NewOption("Asia Pacific (Tokyo) - ap-northeast-1", "ap-northeast-1"),
	}
}

func instanceTypeOptions() []huh.Option[string] {
	return []huh.Option[string]{
		huh.NewOption("m5.large - 2 vCPU, 8GB RAM", "m5.large"),
		huh.NewOption("m5.xlarge - 4 vCPU, 16GB RAM", "m5.xlarge"),
		huh.NewOption("m5.2xlarge - 8 vCPU, 32GB RAM", "m5.2xlarge"),
		huh.NewOption("c5.xlarge - 4 vCPU, 8GB RAM", "c5.xlarge"),
		huh.NewOption("r5.xlarge - 4 vCPU, 32GB RAM", "r5.xlarge"),
		huh.NewOption("t3.medium - 2 vCPU, 4GB RAM", "t3.medium"),
	}
}

func addOnOptions() []huh.Option[string] {
	return []huh.Option[string]{
		huh.NewOption("vpc-cni (pod networking)", "vpc-cni").Selected(true),
		huh.NewOption("coredns (cluster DNS)", "coredns").Selected(true),
		huh.NewOption("kube-proxy (service routing)", "kube-proxy").Selected(true),
		huh.NewOption("aws-ebs-csi-driver (persistent volumes)", "aws-ebs-csi-driver"),
		huh.NewOption("metrics-server (HPA support)", "metrics-server"),
	}
}

// RunWizard interactively assembles a starter ClusterSpec. The result is
// defaulted and validated before it is returned.
func RunWizard(ctx context.Context) (*ClusterSpec, error) {
	var (
		name         string
		account      string
		region       = "eu-central-1"
		existingVPC  bool
		vpcID        string
		instanceType = "m5.xlarge"
		workerCount  = "2"
		addOns       []string
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster name").
				Description("A unique name for the cluster (DNS-safe, lowercase)").
				Placeholder("my-cluster").
				Value(&name).
				Validate(validateClusterName),
			huh.NewInput().
				Title("AWS account id").
				Placeholder("123456789012").
				Value(&account).
				Validate(validateAccountID),
		),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Region").
				Options(regionOptions()...).
				Value(&region),
			huh.NewConfirm().
				Title("Use an existing VPC?").
				Description("Answer no to have a dedicated network provisioned").
				Value(&existingVPC),
		),

		huh.NewGroup(
			huh.NewInput().
				Title("VPC id").
				Placeholder("vpc-0abc123def456").
				Value(&vpcID).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("a VPC id is required in existing-VPC mode")
					}
					return nil
				}),
		).WithHideFunc(func() bool { return !existingVPC }),

		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Worker instance type").
				Options(instanceTypeOptions()...).
				Value(&instanceType),
			huh.NewInput().
				Title("Worker count").
				Description("Desired size of the default node group").
				Value(&workerCount).
				Validate(func(s string) error {
					n, err := strconv.Atoi(s)
					if err != nil || n < 1 {
						return fmt.Errorf("must be a positive number")
					}
					return nil
				}),
		),

		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Add-ons").
				Options(addOnOptions()...).
				Value(&addOns),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, err
	}

	desired, _ := strconv.Atoi(workerCount)
	maxSize := desired * 2
	if maxSize < desired+1 {
		maxSize = desired + 1
	}

	s := &ClusterSpec{
		Name:    name,
		Account: account,
		Region:  region,
		NodeGroups: []NodeGroupSpec{{
			ID:           "default",
			InstanceType: instanceType,
			MinSize:      1,
			MaxSize:      maxSize,
			DesiredSize:  desired,
		}},
	}
	if existingVPC {
		s.Network = NetworkSpec{Mode: NetworkModeExistingVPC, VPCID: vpcID}
	}
	hasCNI := false
	for _, name := range addOns {
		if name == "vpc-cni" {
			hasCNI = true
		}
	}
	for _, name := range addOns {
		a := AddOnSpec{Name: name}
		// DNS and metrics need pod networking in place first.
		if hasCNI && (name == "coredns" || name == "metrics-server") {
			a.DependsOn = []string{"vpc-cni"}
		}
		s.AddOns = append(s.AddOns, a)
	}

	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
