package wsession

import (
	"sync"
)

type callback[T any] func(T)

// EventEmitterCallback maps keys (of type K) to callbacks receiving values of
// type V. Callbacks run synchronously on the emitting goroutine, in
// registration order.
type EventEmitterCallback[K comparable, V any] struct {
	listeners map[K][]callback[V]
	lock      sync.RWMutex
}

// NewEventEmitter creates a new EventEmitterCallback and returns a pointer to it.
func NewEventEmitter[K comparable, V any]() *EventEmitterCallback[K, V] {
	return &EventEmitterCallback[K, V]{
		listeners: make(map[K][]callback[V]),
	}
}

// On registers a new listener for the given key.
func (e *EventEmitterCallback[K, V]) On(key K, listener func(V)) {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners[key] = append(e.listeners[key], listener)
}

// OnEach registers listener for every key in keys.
func (e *EventEmitterCallback[K, V]) OnEach(keys []K, listener func(V)) {
	e.lock.Lock()
	defer e.lock.Unlock()

	for _, key := range keys {
		e.listeners[key] = append(e.listeners[key], listener)
	}
}

// Emit invokes every listener registered for key. The listener slice is
// copied first so listeners may register new listeners without deadlocking.
func (e *EventEmitterCallback[K, V]) Emit(key K, data V) {
	e.lock.RLock()
	listeners := append([]callback[V](nil), e.listeners[key]...)
	e.lock.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Len returns the number of listeners registered for key.
func (e *EventEmitterCallback[K, V]) Len(key K) int {
	e.lock.RLock()
	defer e.lock.RUnlock()

	return len(e.listeners[key])
}

// Close removes all listeners.
func (e *EventEmitterCallback[K, V]) Close() {
	e.lock.Lock()
	defer e.lock.Unlock()

	e.listeners = make(map[K][]callback[V])
}
