// Package broadcast provides the subscribe/publish hub behind every
// push-style stream in the client.
package broadcast

import (
	"sync"
)

// Handle identifies a subscription so it can be removed later
type Handle uint64

type subscriber[T any] struct {
	handle Handle
	fn     func(T)
}

// Hub fans values out to its subscribers. Handlers run synchronously on
// the publishing goroutine in subscription order.
type Hub[T any] struct {
	mu   sync.Mutex
	next Handle
	subs []subscriber[T]
}

// Subscribe registers fn and returns its handle
func (h *Hub[T]) Subscribe(fn func(T)) Handle {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	h.subs = append(h.subs, subscriber[T]{handle: h.next, fn: fn})
	return h.next
}

// Unsubscribe removes a subscription. It reports false for unknown handles.
func (h *Hub[T]) Unsubscribe(handle Handle) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, s := range h.subs {
		if s.handle == handle {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Publish delivers v to every current subscriber. The subscriber list is
// snapshotted first, so handlers may subscribe or unsubscribe freely.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	subs := make([]subscriber[T], len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of active subscriptions
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
