package wsession

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Coordinator is a Client for a single websocket session. It turns the
// callback based Transport into blocking Connect/Send calls and a single
// subscriber event stream, and pings the peer after every quiet period.
//
// All mutable state is guarded by mu. Transport methods are never invoked
// with mu held, so transports may complete their callbacks synchronously.
type Coordinator struct {
	mu sync.Mutex

	logger  logger
	metrics *Metrics
	hooks   *EventEmitterCallback[State, Transition]
	// transitions recorded under mu, emitted to hooks once mu is released
	pending []Transition

	keepAliveInterval    time.Duration
	terminateOnSendError bool

	// task is the transport handle. It is nil once the session reached a
	// terminal state.
	task      Transport
	state     State
	connectC  chan error
	events    *stream[Event]
	activity  *Broadcaster[int]
	keepAlive *idleKeepAlive
}

var _ Client = (*Coordinator)(nil)

// New creates a Coordinator backed by a websocket transport dialing rawURL.
func New(rawURL string, opts ...Option) (*Coordinator, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid socket url")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, errors.Errorf("unsupported socket url scheme %q", u.Scheme)
	}

	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	repo := NewOpenConnectionParamsRepo(s.logger, StaticOpenConnectionParams(*u, s.header))
	transport := NewWebsocketTransport(s.logger, s.dialer, repo, s.pongTimeout, s.errAdapters)

	return newCoordinator(transport, s), nil
}

// NewWithTransport creates a Coordinator driving the given transport.
func NewWithTransport(t Transport, opts ...Option) *Coordinator {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return newCoordinator(t, s)
}

func newCoordinator(t Transport, s settings) *Coordinator {
	c := &Coordinator{
		logger:               s.logger.WithField("type", "coordinator"),
		metrics:              s.metrics,
		hooks:                NewEventEmitter[State, Transition](),
		keepAliveInterval:    s.keepAliveInterval,
		terminateOnSendError: s.terminateOnSendError,
		task:                 t,
		state:                StateIdle,
		activity:             NewBroadcaster(0),
	}

	c.hooks.OnEach(allStates, c.metrics.observeTransition)
	for _, h := range s.stateHandlers {
		c.hooks.OnEach(allStates, h)
	}

	t.SetObserver(coordinatorObserver{c: c})

	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Connect opens the transport and blocks until it reports success or
// failure. Only one Connect may be pending at a time. Cancelling ctx while
// waiting cancels the transport and leaves the coordinator closed.
func (c *Coordinator) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.task == nil {
		c.unlock()
		return ErrInvalidSocket
	}
	switch c.state {
	case StateConnecting:
		c.unlock()
		return ErrConnectInProgress
	case StateOpen:
		c.unlock()
		return ErrAlreadyConnected
	}

	resultC := make(chan error, 1)
	c.connectC = resultC
	c.setState(StateConnecting, nil)
	task := c.task
	c.unlock()

	c.logger.Debugln("opening socket")
	task.Open()

	var err error
	select {
	case err = <-resultC:
	case <-ctx.Done():
		err = c.abandonConnect(resultC, ctx.Err())
	}

	c.metrics.observeConnect(err)
	if err != nil {
		c.logger.Errorf("cannot connect: %s", err)
	}
	return err
}

// Disconnect cancels the transport with a going away code. The event stream
// stays open, so the subscriber can still observe the closed event.
func (c *Coordinator) Disconnect() error {
	c.mu.Lock()
	task := c.task
	if task == nil || c.state == StateIdle {
		c.unlock()
		return ErrInvalidSocket
	}

	c.task = nil
	if c.state == StateConnecting {
		c.resolveConnect(ErrFailedToConnect)
		c.setState(StateClosed, nil)
	} else {
		c.stopKeepAlive()
		c.setState(StateClosing, nil)
	}
	c.unlock()

	c.logger.Infoln("disconnecting")
	task.Cancel(CloseGoingAway, nil)
	return nil
}

// Close disconnects and finishes the event stream. The stream is finished
// even when disconnecting fails, in which case that error is returned.
func (c *Coordinator) Close() error {
	err := c.Disconnect()

	c.mu.Lock()
	c.finishStream()
	terminal := c.state.Terminal()
	c.unlock()

	if terminal {
		c.activity.Close()
	}
	return err
}

// Send writes p and waits for the transport to acknowledge it, or for ctx to
// be done.
func (c *Coordinator) Send(ctx context.Context, p Payload) error {
	c.mu.Lock()
	task := c.liveTask()
	c.unlock()

	if task == nil {
		return ErrInvalidSocket
	}

	doneC := make(chan error, 1)
	task.Send(p, func(err error) {
		select {
		case doneC <- err:
		default:
		}
	})

	var err error
	select {
	case err = <-doneC:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.metrics.observeSend(err)
	if err != nil {
		c.logger.Warnf("cannot send %s: %s", p, err)
		if c.terminateOnSendError {
			c.terminate(err)
		}
	}
	return err
}

// ListenStream returns a new event stream and finishes the previous one, if
// any. The stream is also finished when ctx is done.
func (c *Coordinator) ListenStream(ctx context.Context) <-chan Event {
	c.mu.Lock()
	defer c.unlock()

	c.finishStream()

	s := newStream[Event]()
	c.events = s

	return s.start(ctx, func() {
		c.mu.Lock()
		if c.events == s {
			c.events = nil
		}
		c.mu.Unlock()
	})
}

func (c *Coordinator) socketOpened() {
	c.mu.Lock()
	if c.state != StateConnecting {
		c.logger.Warnf("ignoring open notification while %s", c.state)
		c.unlock()
		return
	}

	c.resolveConnect(nil)
	c.setState(StateOpen, nil)
	c.keepAlive = startIdleKeepAlive(c.logger, c.activity, c.keepAliveInterval, c.ping)
	c.emit(openedEvent())
	task := c.task
	c.unlock()

	c.logger.Infoln("socket opened")
	c.listen(task)
}

func (c *Coordinator) socketFailedToOpen(cause error) {
	c.mu.Lock()
	defer c.unlock()

	if c.state != StateConnecting {
		c.logger.Debugf("ignoring open failure while %s", c.state)
		return
	}

	failure := ErrFailedToConnect
	if cause != nil {
		failure = errors.Wrap(ErrFailedToConnect, cause.Error())
	}
	c.resolveConnect(failure)
	c.task = nil
	c.setState(StateClosed, cause)
}

func (c *Coordinator) socketClosed(code CloseCode, reason []byte) {
	c.mu.Lock()

	c.logger.Infof("socket closed by peer with code %d: %s", code, reason)
	// an open transport is released once detached, outside the lock
	release := c.liveTask()
	if c.detach(nil) {
		c.emit(closedEvent(nil))
	}
	c.unlock()

	if release != nil {
		release.Cancel(CloseGoingAway, nil)
	}
}

func (c *Coordinator) listen(task Transport) {
	task.ReceiveOne(c.processReceived)
}

func (c *Coordinator) processReceived(p Payload, err error) {
	c.mu.Lock()

	if err != nil {
		// a receive failing after Disconnect is the expected outcome of it
		if c.state == StateClosing {
			err = nil
		}
		release := c.liveTask()
		if c.detach(err) {
			c.emit(closedEvent(err))
		} else {
			c.logger.Debugf("dropping receive error while %s: %s", c.state, err)
		}
		c.unlock()

		if release != nil {
			release.Cancel(CloseGoingAway, nil)
		}
		return
	}

	if c.state != StateOpen {
		c.logger.Debugf("dropping %s while %s", p, c.state)
		// no receive is armed anymore, so this completes the Disconnect
		if c.state == StateClosing && c.detach(nil) {
			c.emit(closedEvent(nil))
		}
		c.unlock()
		return
	}

	if !p.Valid() {
		c.unlock()
		c.terminate(WrapUnknownError(errors.Errorf("unsupported payload kind %s", p.Kind)))
		return
	}

	c.keepAlive.reset()
	c.emit(dataEvent(p))
	task := c.task
	c.unlock()

	c.listen(task)
}

func (c *Coordinator) ping() {
	c.mu.Lock()
	task := c.liveTask()
	c.unlock()

	if task == nil {
		return
	}

	c.metrics.observePing()
	task.SendPing(func(err error) {
		if err == nil {
			return
		}
		c.metrics.observePongFailure()
		c.terminate(err)
	})
}

// terminate cancels the transport and reports cause as the closing error.
// It is a no-op unless the session is open.
func (c *Coordinator) terminate(cause error) {
	c.mu.Lock()
	if c.state != StateOpen {
		c.unlock()
		return
	}
	task := c.task
	c.detach(cause)
	c.unlock()

	c.logger.Errorf("terminating connection: %s", cause)
	task.Cancel(CloseGoingAway, nil)

	c.mu.Lock()
	c.emit(closedEvent(cause))
	c.unlock()
}

// abandonConnect gives up on a pending Connect. If the slot was resolved in
// the meantime that outcome wins.
func (c *Coordinator) abandonConnect(resultC chan error, cause error) error {
	c.mu.Lock()
	if c.connectC != resultC {
		c.unlock()
		return <-resultC
	}

	c.connectC = nil
	task := c.task
	c.task = nil
	c.setState(StateClosed, cause)
	c.unlock()

	if task != nil {
		task.Cancel(CloseGoingAway, nil)
	}
	return cause
}

// The methods below require mu to be held.

// detach moves an open or closing session to closed. It reports whether a
// transition happened, which is the only case a closed event may follow.
func (c *Coordinator) detach(cause error) bool {
	if c.state != StateOpen && c.state != StateClosing {
		return false
	}
	c.stopKeepAlive()
	c.task = nil
	c.setState(StateClosed, cause)
	return true
}

func (c *Coordinator) liveTask() Transport {
	if c.state != StateOpen {
		return nil
	}
	return c.task
}

func (c *Coordinator) resolveConnect(err error) {
	if c.connectC == nil {
		return
	}
	c.connectC <- err
	c.connectC = nil
}

func (c *Coordinator) stopKeepAlive() {
	if c.keepAlive != nil {
		c.keepAlive.stop()
		c.keepAlive = nil
	}
}

func (c *Coordinator) emit(e Event) {
	if c.events == nil || !c.events.push(e) {
		c.logger.Debugf("no subscriber, dropping %s", e)
		return
	}
	c.metrics.observeEvent(e.Type)
}

func (c *Coordinator) finishStream() {
	if c.events != nil {
		c.events.finish()
		c.events = nil
	}
}

func (c *Coordinator) setState(to State, cause error) {
	if c.state == to {
		return
	}
	t := Transition{From: c.state, To: to, Err: cause, At: time.Now()}
	c.state = to
	c.pending = append(c.pending, t)
}

// unlock releases mu and then notifies state handlers of the transitions
// recorded while it was held.
func (c *Coordinator) unlock() {
	transitions := c.pending
	c.pending = nil
	c.mu.Unlock()

	for _, t := range transitions {
		c.logger.Debugf("state %s", t)
		c.hooks.Emit(t.To, t)
	}
}

// coordinatorObserver keeps the transport callbacks off the public API.
type coordinatorObserver struct {
	c *Coordinator
}

func (o coordinatorObserver) OnOpen() { o.c.socketOpened() }

func (o coordinatorObserver) OnOpenFailed(err error) { o.c.socketFailedToOpen(err) }

func (o coordinatorObserver) OnClose(code CloseCode, reason []byte) { o.c.socketClosed(code, reason) }
