package wsession

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidSocket     = errors.New("socket is not available")
	ErrFailedToConnect   = errors.New("socket failed to connect")
	ErrConnectInProgress = errors.New("connect already in progress")
	ErrAlreadyConnected  = errors.New("socket is already connected")
	ErrConnectionClosed  = errors.New("connection has been closed")
	ErrCannotConnect     = errors.New("connection cannot be established")
	ErrPongTimeout       = errors.New("pong not received in time")
	ErrRateLimit         = errors.New("rate limit exceeded")
)

// UnknownError wraps transport failures that fit no other category. The
// underlying error may be nil.
type UnknownError struct {
	err error
}

func (e UnknownError) Error() string {
	if e.err == nil {
		return "unknown socket error"
	}
	return fmt.Sprintf("unknown socket error: %s", e.err)
}

func (e UnknownError) Unwrap() error { return e.err }

func WrapUnknownError(err error) *UnknownError {
	return &UnknownError{err: err}
}
