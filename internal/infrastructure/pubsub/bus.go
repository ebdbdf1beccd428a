// Package pubsub provides the in-process event bus that fans push
// notifications out to the stores. Delivery is synchronous so events are
// applied in receipt order, and every subscription returns an unsubscribe
// function for deterministic teardown.
package pubsub

import (
	"fmt"
	"sync"

	"github.com/lancache-tools/lancachectl/internal/shared/logger"
)

// Handler receives the payload published for an event.
type Handler func(payload any)

// Bus is an in-memory typed event bus keyed by event name.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]Handler
	nextID uint64
	log    logger.Interface
}

// NewBus creates a new event bus.
func NewBus(log logger.Interface) *Bus {
	return &Bus{
		subs: make(map[string]map[uint64]Handler),
		log:  log,
	}
}

// Subscribe registers a handler for an event name and returns an
// unsubscribe function. Unsubscribe is idempotent.
func (b *Bus) Subscribe(event string, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	if b.subs[event] == nil {
		b.subs[event] = make(map[uint64]Handler)
	}
	b.subs[event][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[event], id)
	}
}

// Publish delivers the payload to every handler subscribed to the event,
// synchronously on the caller's goroutine. A panicking handler is logged and
// does not stop delivery to the others.
func (b *Bus) Publish(event string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[event]))
	for _, h := range b.subs[event] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(event, h, payload)
	}
}

func (b *Bus) deliver(event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("event handler panicked",
				"event", event,
				"panic", fmt.Sprintf("%v", r),
			)
		}
	}()
	h(payload)
}

// SubscriberCount reports how many handlers are registered for an event.
func (b *Bus) SubscriberCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[event])
}
