package harness

import (
	"github.com/roach88/storefront/internal/notify"
	"github.com/roach88/storefront/internal/shop"
)

// State is the user-visible state of the app after a step.
type State struct {
	// User is the signed-in user id; empty when anonymous.
	User string `json:"user,omitempty"`

	Cart shop.Totals `json:"cart"`

	// Lines are the cart line items. Not part of golden traces.
	Lines []shop.LineItem `json:"-"`

	// Favorites are the visible favorite product ids in display order.
	Favorites []string `json:"favorites"`

	// Source is the favorites backing mode: loading, local or remote.
	Source string `json:"source"`
}

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Action string `json:"action"`

	// Error is set when the action itself reported an error.
	Error string `json:"error,omitempty"`

	// Notices emitted while the step ran, ordered by severity then message.
	Notices []notify.Notice `json:"notices,omitempty"`

	State State `json:"state"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every assertion held.
	Pass bool `json:"pass"`

	// Trace has one event for app start and one per step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final is the state after the last step.
	Final State `json:"final"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends a step to the trace.
func (r *Result) AddEvent(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}

// Notices returns every notice in the trace in step order.
func (r *Result) Notices() []notify.Notice {
	var out []notify.Notice
	for _, e := range r.Trace {
		out = append(out, e.Notices...)
	}
	return out
}
