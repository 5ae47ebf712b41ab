package wsession

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

type (
	// Client is the interface that defines the behavior of a single websocket session: opening and closing the
	// connection, sending messages and observing what happens on it.
	Client interface {
		// Connect opens the connection and blocks until it is usable or failed.
		Connect(ctx context.Context) error
		// Disconnect closes the connection but keeps the event stream open
		Disconnect() error
		// Close closes the connection and finishes the event stream
		Close() error
		// Send sends a message to the server
		Send(ctx context.Context, p Payload) error
		// ListenStream returns the event stream. Only the most recent stream receives events.
		ListenStream(ctx context.Context) <-chan Event
	}
)

// SendJSON encodes v as JSON and sends it as a binary payload.
func SendJSON(ctx context.Context, c Client, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "cannot encode json payload")
	}
	return c.Send(ctx, NewBinaryPayload(data))
}
