package harness

import "github.com/roach88/storefront/internal/testutil"

// TraceEvent is one dispatch or completion, as recorded during a run.
type TraceEvent = testutil.TraceEvent

// Slices whose final state a scenario can assert on.
const (
	SliceSession = "session"
	SliceStores  = "stores"
)

// StepResult is the outcome of one step.
type StepResult struct {
	Op    string `json:"op"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Request is one request the canned backend received.
type Request struct {
	Method string `json:"method"`
	Path   string `json:"path"`
	Query  string `json:"query,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every step outcome and assertion matched.
	Pass bool `json:"pass"`

	// Trace contains all dispatches and completions in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Steps []StepResult `json:"steps"`

	Requests []Request `json:"requests"`

	// State is the final JSON form of each slice, keyed by slice name.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Steps:    []StepResult{},
		Requests: []Request{},
		State:    make(map[string]any),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
