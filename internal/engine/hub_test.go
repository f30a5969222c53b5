package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_PublishInRegistrationOrder(t *testing.T) {
	var h Hub[int]
	var got []string

	h.Subscribe(func(v int) { got = append(got, "a") })
	h.Subscribe(func(v int) { got = append(got, "b") })
	h.Publish(1, 1)

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestHub_Unsubscribe(t *testing.T) {
	var h Hub[string]
	calls := 0

	unsub := h.Subscribe(func(string) { calls++ })
	h.Publish(1, "x")
	unsub()
	unsub() // idempotent
	h.Publish(2, "y")

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, h.Len())
}

func TestHub_SubscriberMaySubscribeDuringPublish(t *testing.T) {
	var h Hub[int]
	h.Subscribe(func(int) {
		h.Subscribe(func(int) {})
	})

	assert.NotPanics(t, func() { h.Publish(1, 1) })
	assert.Equal(t, 2, h.Len())
}

func TestHub_DropsOlderVersions(t *testing.T) {
	var h Hub[string]
	var got []string
	h.Subscribe(func(v string) { got = append(got, v) })

	assert.True(t, h.Publish(2, "second"))
	assert.False(t, h.Publish(1, "first"))
	assert.False(t, h.Publish(2, "again"))
	assert.True(t, h.Publish(3, "third"))

	assert.Equal(t, []string{"second", "third"}, got)
}

func TestHub_PublishFromSubscriberIsQueued(t *testing.T) {
	var h Hub[int]
	var got []int
	h.Subscribe(func(v int) {
		got = append(got, v)
		if v == 1 {
			h.Publish(2, 2)
			got = append(got, -1)
		}
	})

	assert.NotPanics(t, func() { h.Publish(1, 1) })
	assert.Equal(t, []int{1, -1, 2}, got)
}

func TestHub_ConcurrentPublishEndsOnLatest(t *testing.T) {
	var h Hub[uint64]
	var (
		mu   sync.Mutex
		last uint64
		seen []uint64
	)
	h.Subscribe(func(v uint64) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, v)
		last = v
	})

	var wg sync.WaitGroup
	for i := uint64(1); i <= 200; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			h.Publish(v, v)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, uint64(200), last)
	for i := 1; i < len(seen); i++ {
		assert.Less(t, seen[i-1], seen[i])
	}
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "", Message(nil, "fallback"))
	assert.Equal(t, "boom", Message(Failf("op", "boom"), "fallback"))
	assert.Equal(t, "fallback", Message(&OpError{Op: "op"}, "fallback"))
}

func TestIsOpError(t *testing.T) {
	err := Fail("auth/login", Failf("auth/getCurrentUser", "network error"), "Login failed")

	assert.True(t, IsOpError(err, "auth/login"))
	assert.True(t, IsOpError(err, ""))
	assert.False(t, IsOpError(err, "stores/createStore"))
	assert.Equal(t, "network error", err.Error())
}
