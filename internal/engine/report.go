package engine

import (
	"time"

	"github.com/konverge-io/konverge/internal/plan"
)

// Status is the lifecycle state of one change step during execution.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// Outcome is the run-level result of an apply.
type Outcome string

const (
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomePartialFailure Outcome = "partial-failure"
	OutcomeCancelled      Outcome = "cancelled"
)

// StepResult is the terminal accounting for one change step. Every step of
// the plan appears in the report exactly once; none are silently dropped.
type StepResult struct {
	StepID     string      `json:"step_id"`
	ResourceID string      `json:"resource_id"`
	Action     plan.Action `json:"action"`
	Status     Status      `json:"status"`
	// Attempts counts provider calls issued for the step, including retries.
	Attempts   int           `json:"attempts"`
	ProviderID string        `json:"provider_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// Report is the machine-readable outcome of one apply run.
type Report struct {
	ClusterName string        `json:"cluster"`
	SpecHash    string        `json:"spec_hash,omitempty"`
	Outcome     Outcome       `json:"outcome"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
	Steps       []StepResult  `json:"steps"`
	Elapsed     time.Duration `json:"elapsed_ns"`
}

// Counts returns how many steps finished in each status.
func (r *Report) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, s := range r.Steps {
		counts[s.Status]++
	}
	return counts
}

// Failed returns the resource ids of failed steps.
func (r *Report) Failed() []string {
	var out []string
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			out = append(out, s.ResourceID)
		}
	}
	return out
}
