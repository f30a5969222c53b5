package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/storefront/internal/engine"
)

var _ engine.Recorder = (*Store)(nil)

// Dispatched records an operation dispatch. Writing the same id twice is a
// no-op.
func (s *Store) Dispatched(ctx context.Context, inv engine.Invocation) error {
	args, err := marshalArgs(inv.Args)
	if err != nil {
		return fmt.Errorf("write operation: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO operations (id, flow_token, op, args, seq, dispatched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		inv.ID,
		inv.FlowToken,
		inv.Op,
		args,
		inv.Seq,
		inv.At.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write operation: %w", err)
	}
	return nil
}

// Completed records how an operation ended. An operation has at most one
// completion; later writes are ignored.
func (s *Store) Completed(ctx context.Context, comp engine.Completion) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO completions (operation_id, outcome, message, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(operation_id) DO NOTHING
	`,
		comp.InvocationID,
		string(comp.Outcome),
		comp.Message,
		comp.Seq,
	)
	if err != nil {
		return fmt.Errorf("write completion: %w", err)
	}
	return nil
}

func marshalArgs(args map[string]any) (string, error) {
	if len(args) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(b), nil
}
