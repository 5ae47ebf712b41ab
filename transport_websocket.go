package wsession

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

const writeTimeout = time.Second

type (
	openConnectionParamsRepo interface {
		Get(ctx context.Context) (OpenConnectionParams, error)
	}

	ErrAdapter func(*websocket.Conn, *http.Response, error) error

	ErrorAdapters struct {
		OnDial ErrAdapter
	}

	// WsTransport implements Transport on top of a fasthttp/websocket connection.
	// Reads happen one message at a time on demand; writes are serialized.
	WsTransport struct {
		errAdapters              ErrorAdapters
		openConnectionParamsRepo openConnectionParamsRepo
		logger                   logger
		dialer                   *websocket.Dialer
		pongTimeout              time.Duration

		mu         sync.Mutex
		observer   TransportObserver
		conn       *websocket.Conn
		dialCancel context.CancelFunc
		canceled   bool
		// pongs waiting for the peer, oldest first
		pongs []*pongWaiter

		writeMu   sync.Mutex
		receiving atomic.Bool
	}

	pongWaiter struct {
		once sync.Once
		done func(error)
	}
)

var _ Transport = (*WsTransport)(nil)

func NewWebsocketTransport(
	logger logger,
	dialer *websocket.Dialer,
	openParamsRepo openConnectionParamsRepo,
	pongTimeout time.Duration,
	errorHandlers ErrorAdapters,
) *WsTransport {
	return &WsTransport{
		errAdapters:              errorHandlers,
		dialer:                   dialer,
		openConnectionParamsRepo: openParamsRepo,
		pongTimeout:              pongTimeout,
		observer:                 noopObserver{},
		logger:                   logger.WithField("net", "ws_transport"),
	}
}

func (w *WsTransport) SetObserver(o TransportObserver) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if o == nil {
		o = noopObserver{}
	}
	w.observer = o
}

// Open dials in the background. Only the first call has an effect.
func (w *WsTransport) Open() {
	w.mu.Lock()
	if w.dialCancel != nil || w.canceled {
		w.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	w.dialCancel = cancel
	w.mu.Unlock()

	go w.dial(ctx)
}

// Cancel sends a close frame with code and reason and drops the connection.
// A dial in progress is aborted.
func (w *WsTransport) Cancel(code CloseCode, reason []byte) {
	w.mu.Lock()
	if w.canceled {
		w.mu.Unlock()
		return
	}
	w.canceled = true
	conn := w.conn
	cancel := w.dialCancel
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn == nil {
		return
	}

	w.logger.Debugf("=> [CLOSE] %d", code)
	deadline := time.Now().Add(writeTimeout)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(int(code), string(reason)), deadline)
	_ = conn.Close()

	w.failPongs(ErrConnectionClosed)
}

func (w *WsTransport) Send(p Payload, done func(error)) {
	conn := w.current()
	if conn == nil {
		go done(ErrConnectionClosed)
		return
	}

	go func() {
		done(w.write(conn, p))
	}()
}

func (w *WsTransport) ReceiveOne(done func(Payload, error)) {
	conn := w.current()
	if conn == nil {
		go done(Payload{}, ErrConnectionClosed)
		return
	}
	if !w.receiving.CompareAndSwap(false, true) {
		go done(Payload{}, errors.New("a receive is already outstanding"))
		return
	}

	go func() {
		p, err := w.read(conn)
		w.receiving.Store(false)
		done(p, err)
	}()
}

// SendPing writes a ping frame. done receives nil when the matching pong
// arrives, ErrPongTimeout when none arrives within the pong timeout.
func (w *WsTransport) SendPing(done func(error)) {
	conn := w.current()
	if conn == nil {
		go done(ErrConnectionClosed)
		return
	}

	waiter := &pongWaiter{done: done}
	w.mu.Lock()
	w.pongs = append(w.pongs, waiter)
	w.mu.Unlock()

	time.AfterFunc(w.pongTimeout, func() {
		if w.dropPong(waiter) {
			w.logger.Warnf("no pong after %s", w.pongTimeout)
			waiter.resolve(ErrPongTimeout)
		}
	})

	go func() {
		w.logger.Debugln("=> [PING]")
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
		if err == nil {
			return
		}
		if e, ok := err.(net.Error); ok && e.Timeout() {
			// The pong timeout decides on slow peers.
			return
		}
		if w.dropPong(waiter) {
			waiter.resolve(errors.Wrap(ErrConnectionClosed, err.Error()))
		}
	}()
}

func (w *WsTransport) dial(ctx context.Context) {
	p, err := w.openConnectionParamsRepo.Get(ctx)
	if err != nil {
		w.notify().OnOpenFailed(err)
		return
	}

	conn, resp, err := w.dialer.DialContext(ctx, p.URL.String(), p.Header)
	if err = w.handleDialError(conn, resp, err); err != nil {
		w.logger.Errorf("connection err to %s: %s", p.URL.String(), err)
		w.notify().OnOpenFailed(err)
		return
	}

	w.mu.Lock()
	if w.canceled {
		w.mu.Unlock()
		_ = conn.Close()
		w.notify().OnOpenFailed(ErrConnectionClosed)
		return
	}
	w.conn = conn
	w.mu.Unlock()

	w.logger.Debugf("success opening connection to %s", p.URL.String())

	conn.SetPongHandler(func(string) error {
		w.logger.Debugln("<= [PONG]")
		w.resolvePong()
		return nil
	})

	newPassiveKeepAlive(w.logger, conn).install()

	conn.SetCloseHandler(func(code int, text string) error {
		w.logger.Debugf("<= [CLOSE] %d %s", code, text)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, ""),
			time.Now().Add(writeTimeout),
		)
		w.notify().OnClose(CloseCode(code), []byte(text))
		return nil
	})

	w.notify().OnOpen()
}

func (w *WsTransport) read(conn *websocket.Conn) (Payload, error) {
	messageType, bts, err := conn.ReadMessage()
	if err != nil {
		w.logger.Debugf("error occurred on websocket read: %s", err)
		w.failPongs(ErrConnectionClosed)
		return Payload{}, errors.Wrap(ErrConnectionClosed, "error occurred on websocket read: "+err.Error())
	}

	switch messageType {
	case websocket.TextMessage:
		w.logger.Debugf("<= [DATA] %s", bts)
		return Payload{Kind: TextPayload, Data: bts}, nil
	case websocket.BinaryMessage:
		w.logger.Debugln("<= [BIN]")
		return NewBinaryPayload(bts), nil
	default:
		return Payload{}, WrapUnknownError(errors.Errorf("unexpected message type %d", messageType))
	}
}

func (w *WsTransport) write(conn *websocket.Conn, p Payload) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	var err error
	switch p.Kind {
	case TextPayload:
		w.logger.Debugf("=> [DATA] %s", p.Data)
		err = conn.WriteMessage(websocket.TextMessage, p.Data)
	case BinaryPayload:
		w.logger.Debugln("=> [BIN]")
		err = conn.WriteMessage(websocket.BinaryMessage, p.Data)
	default:
		return errors.Errorf("cannot send payload of kind %s", p.Kind)
	}

	if err == nil {
		return nil
	}
	if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		return ErrConnectionClosed
	}
	return errors.Wrap(ErrConnectionClosed, err.Error())
}

func (w *WsTransport) current() *websocket.Conn {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.canceled {
		return nil
	}
	return w.conn
}

func (w *WsTransport) notify() TransportObserver {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.observer
}

func (w *WsTransport) resolvePong() {
	w.mu.Lock()
	if len(w.pongs) == 0 {
		w.mu.Unlock()
		return
	}
	waiter := w.pongs[0]
	w.pongs = w.pongs[1:]
	w.mu.Unlock()

	waiter.resolve(nil)
}

// dropPong removes waiter and reports whether it was still pending.
func (w *WsTransport) dropPong(waiter *pongWaiter) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, p := range w.pongs {
		if p == waiter {
			w.pongs = append(w.pongs[:i], w.pongs[i+1:]...)
			return true
		}
	}
	return false
}

func (w *WsTransport) failPongs(err error) {
	w.mu.Lock()
	pongs := w.pongs
	w.pongs = nil
	w.mu.Unlock()

	for _, p := range pongs {
		p.resolve(err)
	}
}

func (w *WsTransport) handleDialError(conn *websocket.Conn, resp *http.Response, err error) error {
	if w.errAdapters.OnDial != nil {
		return w.errAdapters.OnDial(conn, resp, err)
	}

	// 1. Check HTTP errors first
	var msg string

	if resp != nil {
		if resp.Body != nil {
			bts, err := io.ReadAll(resp.Body)
			if err == nil {
				msg = string(bts)
			}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return errors.Wrap(ErrRateLimit, msg)
		}
	}

	// 2. Network errors
	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}

	return nil
}

func (p *pongWaiter) resolve(err error) {
	p.once.Do(func() {
		p.done(err)
	})
}
