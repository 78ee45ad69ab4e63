package log

import (
	"time"

	"github.com/rpiwc/wifiprov-go/pkg/wire"
)

// Event represents a protocol log event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID uniquely identifies the provisioning session (UUID).
	// Empty for listener-level events that precede a session.
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the peer address (Bluetooth MAC or IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message     *MessageEvent     `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a message from the client.
	DirectionIn Direction = 0
	// DirectionOut indicates a message to the client.
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

// Layer indicates which part of the daemon captured the event.
type Layer uint8

const (
	// LayerTransport is the listener/binding layer (bind, advertise, accept).
	LayerTransport Layer = 0
	// LayerSession is the provisioning state machine.
	LayerSession Layer = 1
	// LayerWireless is the wireless stack (scan, apply, reload).
	LayerWireless Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerSession:
		return "SESSION"
	case LayerWireless:
		return "WIRELESS"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message.
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
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

// MessageEvent captures one protocol message.
type MessageEvent struct {
	// Kind identifies which of the five protocol messages this is.
	Kind wire.Kind `cbor:"1,keyasint"`

	// Size is the encoded size in bytes.
	Size int `cbor:"2,keyasint"`

	// Text is the message content. Empty when Redacted is set.
	Text string `cbor:"3,keyasint,omitempty"`

	// Redacted indicates Text was withheld (passphrases).
	Redacted bool `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures listener and session lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a client connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntitySession indicates a provisioning session state change.
	StateEntitySession StateEntity = 1
	// StateEntityBinding indicates a listener binding state change.
	StateEntityBinding StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySession:
		return "SESSION"
	case StateEntityBinding:
		return "BINDING"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
