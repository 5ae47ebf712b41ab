package wsession

import (
	"context"
	"sync"
)

// stream is an unbounded single-consumer queue exposed as a receive-only
// channel. Producers never block on push. The output channel is closed when
// the stream is finished or its context is cancelled; items still queued at
// that point are dropped.
type stream[T any] struct {
	mu       sync.Mutex
	buf      []T
	finished bool

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	out      chan T
}

func newStream[T any]() *stream[T] {
	return &stream[T]{
		wake: make(chan struct{}, 1),
		stop: make(chan struct{}),
		out:  make(chan T),
	}
}

// start spawns the delivery routine. onTerminate runs exactly once after the
// output channel has been closed.
func (s *stream[T]) start(ctx context.Context, onTerminate func()) <-chan T {
	go s.pump(ctx, onTerminate)
	return s.out
}

// push enqueues v and reports whether the stream still accepts items.
func (s *stream[T]) push(v T) bool {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return false
	}
	s.buf = append(s.buf, v)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *stream[T]) finish() {
	s.mu.Lock()
	s.finished = true
	s.buf = nil
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *stream[T]) pump(ctx context.Context, onTerminate func()) {
	defer func() {
		s.finish()
		close(s.out)
		if onTerminate != nil {
			onTerminate()
		}
	}()

	for {
		s.mu.Lock()
		if len(s.buf) == 0 {
			s.mu.Unlock()

			select {
			case <-s.wake:
				continue
			case <-s.stop:
				return
			case <-ctx.Done():
				return
			}
		}

		v := s.buf[0]
		var zero T
		s.buf[0] = zero
		s.buf = s.buf[1:]
		s.mu.Unlock()

		select {
		case s.out <- v:
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}
