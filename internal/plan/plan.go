package plan

import (
	"fmt"
	"strings"

	"github.com/konverge-io/konverge/internal/spec"
)

// Action classifies what a change step does to its resource.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionNoop   Action = "noop"
)

// Step is one ordered entry of a change plan. Its ID doubles as the
// idempotency token passed to the provider, so a re-attempt of the same
// logical change carries the same token.
type Step struct {
	ID         string   `json:"id"`
	Action     Action   `json:"action"`
	ResourceID string   `json:"resource_id"`
	DependsOn  []string `json:"depends_on,omitempty"`
	// Reason is a short human-readable summary of why the step exists.
	Reason string `json:"reason,omitempty"`
}

// Plan is the ordered set of changes one apply operation executes.
// Steps are topologically sorted; the plan graph is acyclic by
// construction.
type Plan struct {
	ClusterName string `json:"cluster"`
	SpecHash    string `json:"spec_hash,omitempty"`
	Steps       []Step `json:"steps"`

	// Desired carries the spec entities the executor needs to issue
	// creates and updates. Nil for destroy plans.
	Desired *spec.ClusterSpec `json:"-"`
}

// Changes returns the number of non-noop steps.
func (p *Plan) Changes() int {
	n := 0
	for _, s := range p.Steps {
		if s.Action != ActionNoop {
			n++
		}
	}
	return n
}

// Step returns the step targeting the given resource, or nil.
func (p *Plan) Step(resourceID string) *Step {
	for i := range p.Steps {
		if p.Steps[i].ResourceID == resourceID {
			return &p.Steps[i]
		}
	}
	return nil
}

// stepID derives the step id (and idempotency token) from the action, the
// resource, and the entity content it applies. A retried or resumed attempt
// of the same logical change produces the same token, so the provider can
// deduplicate across runs.
func stepID(action Action, resourceID, entityHash string) string {
	h := entityHash
	if len(h) > 12 {
		h = h[:12]
	}
	if h == "" {
		h = "absent"
	}
	return fmt.Sprintf("%s:%s:%s", action, resourceID, h)
}

// ConflictError reports a plan that cannot be executed: a dependency cycle
// or a change to immutable cluster fields.
type ConflictError struct {
	Reason string
	// Cycle lists the resource ids involved when the conflict is a cycle.
	Cycle []string
}

func (e *ConflictError) Error() string {
	if len(e.Cycle) > 0 {
		return fmt.Sprintf("plan conflict: dependency cycle: %s", strings.Join(e.Cycle, " -> "))
	}
	return "plan conflict: " + e.Reason
}

// DriftDetectedError reports resources whose observed state diverged from
// the recorded state since the last apply. Callers resolve it by passing
// the force option or reconciling out of band.
type DriftDetectedError struct {
	Resources []string
}

func (e *DriftDetectedError) Error() string {
	return fmt.Sprintf("drift detected on %s (re-run with force to override)",
		strings.Join(e.Resources, ", "))
}
