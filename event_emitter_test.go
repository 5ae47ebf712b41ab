package wsession

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitterSingleListener(t *testing.T) {
	emitter := NewEventEmitter[State, Transition]()
	var results []Transition

	emitter.On(StateOpen, func(tr Transition) {
		results = append(results, tr)
	})

	emitter.Emit(StateOpen, Transition{From: StateConnecting, To: StateOpen})
	emitter.Emit(StateClosed, Transition{From: StateOpen, To: StateClosed})

	require.Len(t, results, 1)
	assert.Equal(t, StateConnecting, results[0].From)
}

func TestEmitterListenersRunInRegistrationOrder(t *testing.T) {
	emitter := NewEventEmitter[string, int]()
	var results []int

	emitter.On("event", func(data int) { results = append(results, data) })
	emitter.On("event", func(data int) { results = append(results, data*2) })

	emitter.Emit("event", 10)

	assert.Equal(t, []int{10, 20}, results)
}

func TestEmitterNoListeners(t *testing.T) {
	emitter := NewEventEmitter[string, int]()

	assert.NotPanics(t, func() { emitter.Emit("nonexistentEvent", 100) })
	assert.Zero(t, emitter.Len("nonexistentEvent"))
}

func TestEmitterOnEach(t *testing.T) {
	emitter := NewEventEmitter[State, Transition]()
	var seen []State

	emitter.OnEach(allStates, func(tr Transition) { seen = append(seen, tr.To) })

	for _, s := range allStates {
		assert.Equal(t, 1, emitter.Len(s))
		emitter.Emit(s, Transition{To: s})
	}

	assert.Equal(t, allStates, seen)
}

func TestEmitterListenerMayRegisterListeners(t *testing.T) {
	emitter := NewEventEmitter[string, int]()
	calls := 0

	emitter.On("event", func(int) {
		calls++
		emitter.On("event", func(int) { calls++ })
	})

	emitter.Emit("event", 1)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, emitter.Len("event"))
}

func TestEmitterClose(t *testing.T) {
	emitter := NewEventEmitter[string, int]()
	called := false
	emitter.On("event", func(int) { called = true })

	emitter.Close()
	emitter.Emit("event", 1)

	assert.False(t, called)
	assert.Zero(t, emitter.Len("event"))
}

func TestEmitterConcurrent(t *testing.T) {
	emitter := NewEventEmitter[string, int]()
	var mu sync.Mutex
	var results []int
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			emitter.On("event", func(data int) {
				mu.Lock()
				results = append(results, data+i)
				mu.Unlock()
			})
		}(i)
	}
	wg.Wait()

	for j := 0; j < 10; j++ {
		wg.Add(1)
		go func(j int) {
			defer wg.Done()
			emitter.Emit("event", j)
		}(j)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	// 10 listeners times 10 emissions
	assert.Len(t, results, 100)
}
