package handlers

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Status prints the recorded state of the cluster named by the spec. It
// never contacts the provider; drift against live resources only surfaces
// through plan and apply.
func Status(ctx context.Context, opts Options) error {
	desired, err := loadSpecFile(opts.SpecPath)
	if err != nil {
		return err
	}

	store, err := buildStore(ctx, opts, desired.Name, desired.Region)
	if err != nil {
		return err
	}

	st, err := store.Load(ctx)
	if err != nil {
		return err
	}

	if st.Empty() {
		fmt.Printf("No state recorded for cluster %s. Run 'konverge apply' first.\n", desired.Name)
		return nil
	}

	fmt.Printf("Cluster: %s\n", desired.Name)
	if st.SpecHash != "" {
		converged := "no"
		if st.SpecHash == desired.Hash() {
			converged = "yes"
		}
		fmt.Printf("Last applied spec: %.12s (matches current spec: %s)\n", st.SpecHash, converged)
	}
	fmt.Printf("Resources: %d\n\n", len(st.Records))

	ids := make([]string, 0, len(st.Records))
	for id := range st.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		rec := st.Records[id]
		fmt.Printf("  %-40s %-12s %s\n", id, rec.Status, rec.ObservedAt.Format(time.RFC3339))
	}
	return nil
}
