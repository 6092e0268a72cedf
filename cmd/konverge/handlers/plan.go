package handlers

import (
	"context"
	"fmt"

	"github.com/konverge-io/konverge/internal/plan"
)

// Plan computes and prints the change plan without executing anything.
//
// No resources are mutated. State is only touched to refresh recorded
// status observations against the live backend.
func Plan(ctx context.Context, opts Options) error {
	desired, err := loadSpecFile(opts.SpecPath)
	if err != nil {
		return err
	}

	adapter, err := buildAdapter(ctx, opts, desired.Region)
	if err != nil {
		return err
	}
	store, err := buildStore(ctx, opts, desired.Name, desired.Region)
	if err != nil {
		return err
	}

	p, err := plan.NewEngine(store, adapter).Plan(ctx, desired, plan.Options{Force: opts.Force})
	if err != nil {
		return planError(err)
	}

	fmt.Print(plan.Render(p))
	if p.Changes() == 0 {
		fmt.Println("No changes. Cluster matches the spec.")
	} else {
		fmt.Printf("Run 'konverge apply' to execute these %d changes.\n", p.Changes())
	}
	return nil
}
