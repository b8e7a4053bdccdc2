// Package log provides structured protocol event logging for the
// NodeLink client. Events are captured at the transport and session
// layers and handed to a Logger implementation; the CLI bridges them
// to log/slog when verbose output is requested.
package log

// Logger receives protocol events. Pass nil or NoopLogger to disable
// logging. Implementations must be safe for concurrent use and should
// return quickly; Log is called inline from the receive path.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events. Usable as a zero value.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}
