package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one journaled operation with its completion, if any.
type Entry struct {
	ID      string         `json:"id"`
	Flow    string         `json:"flow"`
	Op      string         `json:"op"`
	Args    map[string]any `json:"args,omitempty"`
	Seq     int64          `json:"seq"`
	At      time.Time      `json:"at"`
	Outcome string         `json:"outcome"` // "" while in flight
	Message string         `json:"message,omitempty"`
	DoneSeq int64          `json:"doneSeq,omitempty"`
}

type entryRow struct {
	ID           string         `db:"id"`
	FlowToken    string         `db:"flow_token"`
	Op           string         `db:"op"`
	Args         string         `db:"args"`
	Seq          int64          `db:"seq"`
	DispatchedAt string         `db:"dispatched_at"`
	Outcome      sql.NullString `db:"outcome"`
	Message      sql.NullString `db:"message"`
	DoneSeq      sql.NullInt64  `db:"done_seq"`
}

const selectEntries = `
	SELECT o.id, o.flow_token, o.op, o.args, o.seq, o.dispatched_at,
	       c.outcome, c.message, c.seq AS done_seq
	FROM operations o
	LEFT JOIN completions c ON c.operation_id = o.id
`

// ReadFlow returns the operations of one flow in dispatch order. Returns an
// empty slice when the flow is unknown.
func (s *Store) ReadFlow(ctx context.Context, flow string) ([]Entry, error) {
	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows, selectEntries+`
		WHERE o.flow_token = ?
		ORDER BY o.seq ASC, o.id COLLATE BINARY ASC
	`, flow)
	if err != nil {
		return nil, fmt.Errorf("read flow: %w", err)
	}
	return toEntries(rows)
}

// Recent returns up to limit operations, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []entryRow
	err := s.db.SelectContext(ctx, &rows, selectEntries+`
		ORDER BY o.seq DESC, o.id COLLATE BINARY DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("read recent: %w", err)
	}
	return toEntries(rows)
}

// LastSeq returns the highest sequence number written so far, or 0. A new
// process seeds its clock from it so sequence numbers keep growing across
// runs.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.GetContext(ctx, &seq, `
		SELECT MAX(seq) FROM (
			SELECT seq FROM operations
			UNION ALL
			SELECT seq FROM completions
		)
	`)
	if err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return seq.Int64, nil
}

func toEntries(rows []entryRow) ([]Entry, error) {
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		e := Entry{
			ID:      r.ID,
			Flow:    r.FlowToken,
			Op:      r.Op,
			Seq:     r.Seq,
			Outcome: r.Outcome.String,
			Message: r.Message.String,
			DoneSeq: r.DoneSeq.Int64,
		}
		at, err := time.Parse(time.RFC3339Nano, r.DispatchedAt)
		if err != nil {
			return nil, fmt.Errorf("parse dispatched_at of %s: %w", r.ID, err)
		}
		e.At = at
		if r.Args != "" && r.Args != "{}" {
			if err := json.Unmarshal([]byte(r.Args), &e.Args); err != nil {
				return nil, fmt.Errorf("unmarshal args of %s: %w", r.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, nil
}
