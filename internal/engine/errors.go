package engine

import (
	"errors"
	"fmt"
)

// ErrSuperseded marks an operation whose result was discarded because a
// newer dispatch of the same kind ran meanwhile.
var ErrSuperseded = errors.New("superseded by a newer request")

// OpError is the failure of an orchestrator operation. Message is the single
// human-readable string the slice stores in its error field; Err keeps the
// underlying cause (for example a *gateway.APIError) for errors.As.
type OpError struct {
	Op      string
	Message string
	Err     error
}

func (e *OpError) Error() string {
	return e.Message
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Fail builds an OpError for op, flattening err to a message. fallback is
// used when err carries no text.
func Fail(op string, err error, fallback string) *OpError {
	return &OpError{Op: op, Message: Message(err, fallback), Err: err}
}

// Failf builds an OpError with no underlying cause.
func Failf(op, format string, args ...any) *OpError {
	return &OpError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// Message flattens err to the string stored in slice state.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// IsOpError reports whether err is (or wraps) an OpError for op. An empty op
// matches any operation.
func IsOpError(err error, op string) bool {
	var oe *OpError
	if !errors.As(err, &oe) {
		return false
	}
	return op == "" || oe.Op == op
}
