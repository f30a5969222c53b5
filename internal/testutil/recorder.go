package testutil

import (
	"context"
	"sync"

	"github.com/roach88/storefront/internal/engine"
)

// TraceEvent is one dispatch or completion as seen by a Recorder.
type TraceEvent struct {
	Type    string         `json:"type"` // "dispatch" or "completion"
	Op      string         `json:"op"`
	Flow    string         `json:"flow,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome,omitempty"`
	Message string         `json:"message,omitempty"`
	Seq     int64          `json:"seq"`
}

// Recorder is an in-memory engine.Recorder.
type Recorder struct {
	mu     sync.Mutex
	events []TraceEvent
	flows  map[string]string // invocation id -> flow
}

func NewRecorder() *Recorder {
	return &Recorder{flows: make(map[string]string)}
}

func (r *Recorder) Dispatched(_ context.Context, inv engine.Invocation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flows[inv.ID] = inv.FlowToken
	r.events = append(r.events, TraceEvent{
		Type: "dispatch",
		Op:   inv.Op,
		Flow: inv.FlowToken,
		Args: inv.Args,
		Seq:  inv.Seq,
	})
	return nil
}

func (r *Recorder) Completed(_ context.Context, comp engine.Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, TraceEvent{
		Type:    "completion",
		Op:      comp.Op,
		Flow:    r.flows[comp.InvocationID],
		Outcome: string(comp.Outcome),
		Message: comp.Message,
		Seq:     comp.Seq,
	})
	return nil
}

// Events returns a copy of the recorded trace.
func (r *Recorder) Events() []TraceEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Ops returns the operation names in record order, dispatches prefixed with
// ">" and completions with "<".
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		prefix := ">"
		if e.Type == "completion" {
			prefix = "<"
		}
		out = append(out, prefix+e.Op)
	}
	return out
}
