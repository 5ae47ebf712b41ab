package wsession

import (
	"net/http"
	"time"

	"github.com/fasthttp/websocket"
)

const DefaultPongTimeout = 10 * time.Second

type settings struct {
	logger               logger
	metrics              *Metrics
	keepAliveInterval    time.Duration
	terminateOnSendError bool
	stateHandlers        []StateHandler

	// Only used when the coordinator builds its own websocket transport.
	dialer      *websocket.Dialer
	header      http.Header
	pongTimeout time.Duration
	errAdapters ErrorAdapters
}

type Option func(*settings)

func defaultSettings() settings {
	return settings{
		logger:            noopLogger{},
		keepAliveInterval: DefaultKeepAliveInterval,
		dialer:            websocket.DefaultDialer,
		header:            http.Header{},
		pongTimeout:       DefaultPongTimeout,
	}
}

func WithLogger(l logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *settings) {
		s.metrics = m
	}
}

// WithKeepAliveInterval sets the quiet period after which a ping is sent.
// Non-positive values are ignored.
func WithKeepAliveInterval(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.keepAliveInterval = d
		}
	}
}

// WithTerminateOnSendError makes a failed Send tear the connection down, the
// same way a failed receive or pong does. Disabled by default.
func WithTerminateOnSendError(enabled bool) Option {
	return func(s *settings) {
		s.terminateOnSendError = enabled
	}
}

// WithStateHandler registers h for every state transition. Handlers run
// outside the coordinator lock and may call back into it.
func WithStateHandler(h StateHandler) Option {
	return func(s *settings) {
		if h != nil {
			s.stateHandlers = append(s.stateHandlers, h)
		}
	}
}

func WithDialer(d *websocket.Dialer) Option {
	return func(s *settings) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithHeader adds a handshake header. It may be repeated.
func WithHeader(key, value string) Option {
	return func(s *settings) {
		s.header.Add(key, value)
	}
}

func WithPongTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.pongTimeout = d
		}
	}
}

func WithErrorAdapters(adapters ErrorAdapters) Option {
	return func(s *settings) {
		s.errAdapters = adapters
	}
}
