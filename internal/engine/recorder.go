package engine

import (
	"context"
	"time"
)

// Outcome is how an operation completed.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeError      Outcome = "error"
	OutcomeSuperseded Outcome = "superseded"
)

// Invocation records the dispatch of an operation.
type Invocation struct {
	ID        string
	FlowToken string
	Op        string
	Args      map[string]any
	Seq       int64
	At        time.Time
}

// Completion records how an invocation ended. Seq is taken from the same
// clock as dispatches so the journal orders both kinds of record.
type Completion struct {
	InvocationID string
	Op           string
	Outcome      Outcome
	Message      string
	Seq          int64
}

// Recorder receives every dispatch and completion. Implementations must be
// safe for concurrent use; a failing recorder never fails the operation.
type Recorder interface {
	Dispatched(ctx context.Context, inv Invocation) error
	Completed(ctx context.Context, comp Completion) error
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) Dispatched(context.Context, Invocation) error { return nil }
func (NopRecorder) Completed(context.Context, Completion) error  { return nil }
