package testutil

import (
	"sync"
	"time"
)

// FrozenTime is a wall clock that only moves when told to. Pass Now to
// engine.WithNow for stable dispatch timestamps.
type FrozenTime struct {
	mu  sync.Mutex
	now time.Time
}

// NewFrozenTime starts the clock at t.
func NewFrozenTime(t time.Time) *FrozenTime {
	return &FrozenTime{now: t}
}

func (f *FrozenTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *FrozenTime) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
