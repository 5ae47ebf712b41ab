package wsession

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Broadcaster holds a value of type T and fans every update out to all live
// subscribers. Subscribers only observe updates made after they subscribed.
type Broadcaster[T any] struct {
	mu          sync.RWMutex
	value       T
	subscribers map[uuid.UUID]*stream[T]
	closed      bool
}

func NewBroadcaster[T any](initial T) *Broadcaster[T] {
	return &Broadcaster[T]{
		value:       initial,
		subscribers: make(map[uuid.UUID]*stream[T]),
	}
}

// Value returns the current value.
func (b *Broadcaster[T]) Value() T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.value
}

// Update replaces the held value and pushes it to every registered
// subscriber. It never blocks on slow consumers.
func (b *Broadcaster[T]) Update(value T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.value = value
	for _, sub := range b.subscribers {
		sub.push(value)
	}
}

// Subscribe registers a new subscriber. The returned channel is closed, and
// the subscriber removed, once ctx is done or the broadcaster is closed.
func (b *Broadcaster[T]) Subscribe(ctx context.Context) <-chan T {
	id := uuid.New()
	sub := newStream[T]()

	b.mu.Lock()
	if b.closed {
		sub.finish()
	} else {
		b.subscribers[id] = sub
	}
	b.mu.Unlock()

	return sub.start(ctx, func() {
		b.remove(id)
	})
}

// Len returns the number of registered subscribers.
func (b *Broadcaster[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers)
}

// Close finishes every registered subscriber. Later subscriptions are
// finished immediately.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for id, sub := range b.subscribers {
		sub.finish()
		delete(b.subscribers, id)
	}
}

func (b *Broadcaster[T]) remove(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, id)
}
