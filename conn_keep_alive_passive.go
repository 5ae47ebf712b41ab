package wsession

import (
	"net"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

// passiveKeepAlive answers server initiated pings with a pong carrying the
// same application data, keeping the connection open on servers that probe
// their clients. Pings are processed while a receive is outstanding.
type passiveKeepAlive struct {
	logger logger
	conn   *websocket.Conn
}

func newPassiveKeepAlive(logger logger, conn *websocket.Conn) *passiveKeepAlive {
	return &passiveKeepAlive{
		logger: logger.WithField("subtype", "passiveKeepAlive"),
		conn:   conn,
	}
}

// install replaces the connection ping handler.
func (k *passiveKeepAlive) install() {
	k.conn.SetPingHandler(k.replyPingWithPong)
}

func (k *passiveKeepAlive) replyPingWithPong(data string) error {
	k.logger.Debugln("<= [PING]")

	err := k.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeTimeout))
	if err == nil || errors.Is(err, websocket.ErrCloseSent) {
		return nil
	}
	if e, ok := err.(net.Error); ok && e.Timeout() {
		return nil
	}
	return err
}
