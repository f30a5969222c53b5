package engine

import (
	"sort"
	"sync"
)

// Hub delivers state snapshots to subscribers. The zero value is ready to
// use.
//
// Snapshots carry the version their slice stamped them with while holding
// its lock. Delivery is serialised and never goes backwards: a snapshot
// older than one already delivered or queued is dropped, so the last
// snapshot a subscriber sees is always the latest state.
type Hub[S any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(S)

	delivering bool
	latest     uint64 // highest version accepted
	pending    *S
}

// Subscribe registers fn and returns a function removing it. Subscribers
// are called in registration order.
func (h *Hub[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subs == nil {
		h.subs = make(map[int]func(S))
	}
	id := h.next
	h.next++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish offers snapshot s stamped with version and reports whether it was
// accepted. If another goroutine is delivering, or a subscriber publishes
// from inside its callback, s is queued and the active deliverer hands it
// out after the current round; a newer queued snapshot replaces an older
// one. Must not be called while holding the slice lock.
func (h *Hub[S]) Publish(version uint64, s S) bool {
	h.mu.Lock()
	if version <= h.latest {
		h.mu.Unlock()
		return false
	}
	h.latest = version
	h.pending = &s
	if h.delivering {
		h.mu.Unlock()
		return true
	}
	h.delivering = true

	for h.pending != nil {
		snap := *h.pending
		h.pending = nil
		fns := h.subscribers()
		h.mu.Unlock()

		for _, fn := range fns {
			fn(snap)
		}

		h.mu.Lock()
	}
	h.delivering = false
	h.mu.Unlock()
	return true
}

// subscribers returns the callbacks in registration order. Callers hold mu.
func (h *Hub[S]) subscribers() []func(S) {
	ids := make([]int, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(S), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, h.subs[id])
	}
	return fns
}

// Len returns the number of subscribers.
func (h *Hub[S]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
