package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/konverge-io/konverge/internal/spec"
)

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// runWizard runs the interactive spec wizard.
	runWizard = spec.RunWizard

	// writeSpecFile writes the spec to a file.
	writeSpecFile = spec.Write
)

// Init runs the spec wizard and writes the result to a file.
func Init(ctx context.Context, outputPath string) error {
	if fileExists(outputPath) {
		fmt.Printf("Warning: %s already exists and will be overwritten.\n\n", outputPath)
	}

	printWelcome()

	s, err := runWizard(ctx)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	if err := writeSpecFile(s, outputPath); err != nil {
		return fmt.Errorf("failed to write spec: %w", err)
	}

	printInitSuccess(outputPath, s)
	return nil
}

func printWelcome() {
	fmt.Println()
	fmt.Println("konverge - declarative EKS provisioning")
	fmt.Println("=======================================")
	fmt.Println()
	fmt.Println("This wizard creates a cluster spec with sensible defaults.")
	fmt.Println("Everything can be edited in the generated YAML afterwards.")
	fmt.Println()
}

func printInitSuccess(outputPath string, s *spec.ClusterSpec) {
	fmt.Println()
	fmt.Println("Spec saved!")
	fmt.Println()
	fmt.Printf("  File: %s\n", outputPath)
	fmt.Println()

	fmt.Println("Cluster Summary")
	fmt.Println("---------------")
	fmt.Printf("  Name:    %s\n", s.Name)
	fmt.Printf("  Account: %s\n", s.Account)
	fmt.Printf("  Region:  %s\n", s.Region)
	fmt.Printf("  Network: %s\n", s.Network.Mode)
	for _, ng := range s.NodeGroups {
		fmt.Printf("  Nodes:   %d x %s (%s)\n", ng.DesiredSize, ng.InstanceType, ng.ID)
	}
	if len(s.AddOns) > 0 {
		fmt.Printf("  Add-ons:")
		for _, a := range s.AddOns {
			fmt.Printf(" %s", a.Name)
		}
		fmt.Println()
	}
	fmt.Println()

	fmt.Println("Next Steps")
	fmt.Println("----------")
	fmt.Println("  1. Configure AWS credentials and IAM wiring:")
	fmt.Println("     export KONVERGE_CLUSTER_ROLE_ARN=<role-arn>")
	fmt.Println("     export KONVERGE_NODE_ROLE_ARN=<role-arn>")
	fmt.Println("     export KONVERGE_PRIVATE_SUBNETS=<subnet-ids>")
	fmt.Println()
	fmt.Printf("  2. Preview the changes:\n")
	fmt.Printf("     konverge plan -f %s\n", outputPath)
	fmt.Println()
	fmt.Printf("  3. Provision the cluster:\n")
	fmt.Printf("     konverge apply -f %s\n", outputPath)
	fmt.Println()
}
