package wsession

type (
	// CloseCode is a websocket close status code (RFC 6455, section 7.4.1).
	CloseCode int

	// TransportObserver receives the asynchronous lifecycle notifications of a Transport.
	TransportObserver interface {
		// OnOpen is called once the handshake completed and the socket is usable.
		OnOpen()

		// OnOpenFailed is called when the socket could not be opened, or when the
		// underlying task completed with an error before opening.
		OnOpenFailed(err error)

		// OnClose is called when the peer closed the socket.
		OnClose(code CloseCode, reason []byte)
	}

	// Transport is the callback based socket primitive driven by a Coordinator.
	// Completion callbacks may run on any goroutine, including the caller's.
	Transport interface {
		// SetObserver installs the receiver of lifecycle notifications. It is
		// called once, before Open.
		SetObserver(o TransportObserver)

		// Open starts the handshake. The outcome is reported exactly once
		// through the observer.
		Open()

		// Cancel closes the socket with the given code. Best effort.
		Cancel(code CloseCode, reason []byte)

		// Send writes a single message and reports its outcome exactly once.
		Send(p Payload, done func(error))

		// ReceiveOne reads a single message and reports it exactly once. Only one
		// receive may be outstanding at a time.
		ReceiveOne(done func(Payload, error))

		// SendPing writes a ping and reports nil once the pong arrives, or the
		// failure otherwise.
		SendPing(done func(error))
	}
)

const (
	CloseNormalClosure   CloseCode = 1000
	CloseGoingAway       CloseCode = 1001
	CloseProtocolError   CloseCode = 1002
	CloseAbnormalClosure CloseCode = 1006
)

type noopObserver struct{}

func (noopObserver) OnOpen() {}

func (noopObserver) OnOpenFailed(error) {}

func (noopObserver) OnClose(CloseCode, []byte) {}
