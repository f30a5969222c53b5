package engine

import "sync/atomic"

// Clock is a monotonic logical clock. Every dispatch takes the next value as
// its generation; generations are never reused within a process.
//
// Safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming after start, e.g. from the last
// sequence number in the journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
