package wsession

import (
	"sync"
)

type cancelCall struct {
	code   CloseCode
	reason []byte
}

type receiveResult struct {
	payload Payload
	err     error
}

// mockTransport records every call and lets tests drive the observer. Queued
// receive results are delivered on their own goroutine; otherwise the receive
// stays outstanding until deliver is called.
type mockTransport struct {
	mu sync.Mutex

	observer TransportObserver
	onOpen   func(o TransportObserver)

	openCalls    int
	cancels      []cancelCall
	sent         []Payload
	sendErr      error
	receiveCalls int
	receives     []receiveResult
	outstanding  func(Payload, error)
	overlaps     int
	pings        int
	onPing       func(done func(error))
}

func newMockTransport() *mockTransport {
	return &mockTransport{}
}

func (m *mockTransport) SetObserver(o TransportObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.observer = o
}

func (m *mockTransport) Open() {
	m.mu.Lock()
	m.openCalls++
	onOpen := m.onOpen
	o := m.observer
	m.mu.Unlock()

	if onOpen != nil {
		go onOpen(o)
	}
}

func (m *mockTransport) Cancel(code CloseCode, reason []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cancels = append(m.cancels, cancelCall{code: code, reason: reason})
}

func (m *mockTransport) Send(p Payload, done func(error)) {
	m.mu.Lock()
	m.sent = append(m.sent, p)
	err := m.sendErr
	m.mu.Unlock()

	done(err)
}

func (m *mockTransport) ReceiveOne(done func(Payload, error)) {
	m.mu.Lock()
	m.receiveCalls++
	if m.outstanding != nil {
		m.overlaps++
	}
	if len(m.receives) == 0 {
		m.outstanding = done
		m.mu.Unlock()
		return
	}
	r := m.receives[0]
	m.receives = m.receives[1:]
	m.mu.Unlock()

	go done(r.payload, r.err)
}

func (m *mockTransport) SendPing(done func(error)) {
	m.mu.Lock()
	m.pings++
	onPing := m.onPing
	m.mu.Unlock()

	if onPing != nil {
		go onPing(done)
		return
	}
	go done(nil)
}

// deliver completes the outstanding receive. It reports false when none is
// outstanding.
func (m *mockTransport) deliver(p Payload, err error) bool {
	m.mu.Lock()
	done := m.outstanding
	m.outstanding = nil
	m.mu.Unlock()

	if done == nil {
		return false
	}
	done(p, err)
	return true
}

func (m *mockTransport) hasOutstanding() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.outstanding != nil
}

func (m *mockTransport) queueReceive(p Payload, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.receives = append(m.receives, receiveResult{payload: p, err: err})
}

func (m *mockTransport) openCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.openCalls
}

func (m *mockTransport) cancelCalls() []cancelCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]cancelCall(nil), m.cancels...)
}

func (m *mockTransport) sentPayloads() []Payload {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Payload(nil), m.sent...)
}

func (m *mockTransport) receiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.receiveCalls
}

func (m *mockTransport) overlapCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.overlaps
}

func (m *mockTransport) pingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pings
}

func (m *mockTransport) notify() TransportObserver {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.observer
}

// openOnResume makes every Open succeed asynchronously.
func openOnResume(m *mockTransport) *mockTransport {
	m.onOpen = func(o TransportObserver) { o.OnOpen() }
	return m
}
