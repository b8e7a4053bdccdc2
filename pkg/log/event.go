package log

import (
	"time"
)

// Event is one protocol log event. CBOR tags use integer keys so a
// capture stream stays compact when events are persisted.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID correlates events from one connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction of the message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the node address (host:port), when known.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Exactly one of the payloads below is set.
	Frame   *FrameEvent   `cbor:"7,keyasint,omitempty"`
	Message *MessageEvent `cbor:"8,keyasint,omitempty"`
	Error   *ErrorEvent   `cbor:"9,keyasint,omitempty"`
}

// FrameEvent describes one transport frame.
type FrameEvent struct {
	// Size is the full frame size including the length prefix.
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload, possibly truncated.
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated reports whether Data was cut for logging.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent describes one decoded wire message.
type MessageEvent struct {
	// ID is the message id (0 for unsolicited messages).
	ID uint32 `cbor:"1,keyasint"`

	// Type is the message type name.
	Type string `cbor:"2,keyasint"`

	// EntityKey is set for state and command messages.
	EntityKey uint32 `cbor:"3,keyasint,omitempty"`
}

// ErrorEvent describes a failure observed at some layer.
type ErrorEvent struct {
	Message string `cbor:"1,keyasint"`
	Context string `cbor:"2,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerSession is the session layer (decoded messages).
	LayerSession Layer = 1
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message.
	CategoryMessage Category = 0
	// CategoryState indicates a pushed state record.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
