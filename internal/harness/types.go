package harness

import (
	"github.com/roach88/randotrack/internal/logic"
	"github.com/roach88/randotrack/internal/tracker"
)

// TraceEvent is one executed step.
type TraceEvent struct {
	// Seq is the journal seq of the action, or 0 if it was rejected.
	Seq    int64  `json:"seq"`
	Action string `json:"action"`
	// Error is the rejection message of a rejected action.
	Error string `json:"error,omitempty"`
	// Events are the entity events the step produced, in delivery order.
	Events []logic.Event `json:"events,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every assertion
	// held.
	Pass bool `json:"pass"`

	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the tracker snapshot after the last step.
	State tracker.State `json:"state"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
