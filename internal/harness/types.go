package harness

import (
	"github.com/roach88/viewq/internal/analytics"
	"github.com/roach88/viewq/internal/ir"
)

// Trace event types.
const (
	StepLocal    = "local"
	StepRemote   = "remote"
	StepMutation = "mutation"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Type   string `json:"type"` // local, remote or mutation
	PassID string `json:"pass_id,omitempty"`
	Seq    int64  `json:"seq"`

	Name   string `json:"name,omitempty"`   // mutation name
	Params any    `json:"params,omitempty"` // mutation params
	Query  any    `json:"query,omitempty"`  // query of a pass

	Value  any `json:"value,omitempty"`  // local result
	Remote any `json:"remote,omitempty"` // forwarded query
	Roots  any `json:"roots,omitempty"`  // forwarded query with roots lifted

	Error string `json:"error,omitempty"` // error code or message
}

// Label names the event in trace_count and trace_order assertions: the
// mutation name for mutations, the pass type otherwise.
func (e TraceEvent) Label() string {
	if e.Type == StepMutation {
		return e.Name
	}
	return e.Type
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed expectation.
	Errors []string `json:"errors,omitempty"`

	// Store is the final store.
	Store ir.Object `json:"store"`

	// Events holds the analytics events emitted, in order.
	Events []analytics.Event `json:"events"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Store:  ir.Object{},
		Events: []analytics.Event{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
