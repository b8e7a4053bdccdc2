package session

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	// ErrInvalidPassword indicates the node rejected the password.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrRequestTimeout indicates a request received no reply in time.
	ErrRequestTimeout = errors.New("request timed out")

	// ErrSessionClosed indicates the session is closed.
	ErrSessionClosed = errors.New("session is closed")

	// ErrUnexpectedReply indicates a reply of the wrong type.
	ErrUnexpectedReply = errors.New("unexpected reply")

	// ErrNotEnumerated indicates a command was issued before the
	// capability list was retrieved.
	ErrNotEnumerated = errors.New("entities not enumerated")
)

// ConnectionError is returned when establishing the session fails:
// the node is unreachable, the protocol versions are incompatible, or
// authentication is rejected. Callers treat it as terminal for the
// run; there is no retry policy.
type ConnectionError struct {
	// Host is the host the client tried to reach.
	Host string

	// Op is the connect phase that failed: "dial", "hello" or "auth".
	Op string

	// Err is the underlying failure.
	Err error
}

// Error implements error.
func (e *ConnectionError) Error() string {
	return fmt.Sprintf("can't access %s (%s): %v", e.Host, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// CommandError is returned when a command is rejected before reaching
// the wire, e.g. for a key that is not among the listed capabilities.
type CommandError struct {
	Key    uint32
	Reason string
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("command for key %d rejected: %s", e.Key, e.Reason)
}
