// Package identity holds the client-side credential store adapters used by
// the session resolver: a REST client for the identity API, an in-process
// adapter over the identity service, and an offline stub.
package identity

import (
	"sync"

	"github.com/pyramid-aftercare/portal/internal/core/domain"
)

// eventHub fans session events out to subscribers. Delivery is synchronous
// and happens after the adapter has updated its own state.
type eventHub struct {
	mu   sync.Mutex
	subs map[int]func(domain.SessionEvent)
	next int
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[int]func(domain.SessionEvent))}
}

func (h *eventHub) subscribe(fn func(domain.SessionEvent)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *eventHub) publish(ev domain.SessionEvent) {
	h.mu.Lock()
	fns := make([]func(domain.SessionEvent), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
