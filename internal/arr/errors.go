package arr

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrNotConfigured = errors.New("service is not configured")

	// Transport and protocol errors
	ErrConnection = errors.New("service unreachable")
	ErrAuth       = errors.New("API key rejected")
	ErrProtocol   = errors.New("unexpected response from service")
	ErrNotFound   = errors.New("resource not found")
)

// Error wraps a failure from a remote service call with its context.
type Error struct {
	Service Service // which remote failed
	Op      string  // operation that failed (e.g. "inventory", "unmonitor")
	Err     error   // underlying sentinel or transport error
	Message string  // additional context
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Service, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(service Service, op string, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Service: service,
		Op:      op,
		Err:     err,
		Message: message,
	}
}

// IsConnectionError returns true if the error indicates the remote was
// unreachable or timed out.
func IsConnectionError(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsAuthError returns true if the remote rejected the API key.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsNotFound returns true if the target resource vanished between a read
// and a write.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
