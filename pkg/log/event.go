package log

import (
	"time"
)

// MaxFrameDataSize is the maximum frame payload size to include in log
// events (4 KB). Larger payloads are truncated to avoid excessive memory
// usage in long-running sessions.
const MaxFrameDataSize = 4096

// Event represents a protocol log event captured at any layer of the client.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies the connection the event belongs to. Before
	// negotiation completes this is the client's local instance ID.
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// Transport names the transport that produced the event.
	Transport string `cbor:"5,keyasint,omitempty"`

	// RemoteURL is the endpoint the client is talking to.
	RemoteURL string `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"7,keyasint,omitempty"`  // Text frames on the socket
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"`  // Connection state transitions
	KeepAlive   *KeepAliveEvent   `cbor:"9,keyasint,omitempty"`  // Keep-alive monitoring
	Error       *ErrorData        `cbor:"10,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
	// DirectionNone applies to events with no flow direction (state changes).
	DirectionNone Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	case DirectionNone:
		return "-"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryFrame indicates a text frame sent or received.
	CategoryFrame Category = 0
	// CategoryState indicates a connection state change.
	CategoryState Category = 1
	// CategoryKeepAlive indicates keep-alive monitoring activity.
	CategoryKeepAlive Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFrame:
		return "FRAME"
	case CategoryState:
		return "STATE"
	case CategoryKeepAlive:
		return "KEEPALIVE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent describes one text frame on the socket.
type FrameEvent struct {
	// Size is the full payload size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the payload, truncated to MaxFrameDataSize.
	Data string `cbor:"2,keyasint,omitempty"`

	// Truncated indicates Data does not contain the full payload.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent describes a connection state transition.
type StateChangeEvent struct {
	// OldState is the state before the transition.
	OldState string `cbor:"1,keyasint"`

	// NewState is the state after the transition.
	NewState string `cbor:"2,keyasint"`

	// Reason optionally describes what caused the transition.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// KeepAliveEvent describes keep-alive monitoring activity.
type KeepAliveEvent struct {
	// SinceLastMessage is the time elapsed since the last inbound frame.
	SinceLastMessage time.Duration `cbor:"1,keyasint"`

	// Warning is true for a slow-connection warning, false for a timeout.
	Warning bool `cbor:"2,keyasint,omitempty"`
}

// ErrorData describes an error event.
type ErrorData struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Context describes what the client was doing when the error occurred.
	Context string `cbor:"2,keyasint,omitempty"`

	// Recoverable indicates the error is eligible for reconnection.
	Recoverable bool `cbor:"3,keyasint,omitempty"`
}

// NewFrameEvent creates a frame event, truncating the payload if needed.
func NewFrameEvent(connID string, dir Direction, payload string) Event {
	frame := &FrameEvent{Size: len(payload)}
	if len(payload) > MaxFrameDataSize {
		frame.Data = payload[:MaxFrameDataSize]
		frame.Truncated = true
	} else {
		frame.Data = payload
	}
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Category:     CategoryFrame,
		Frame:        frame,
	}
}

// NewStateChangeEvent creates a state change event.
func NewStateChangeEvent(connID, oldState, newState, reason string) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionNone,
		Category:     CategoryState,
		StateChange: &StateChangeEvent{
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	}
}

// NewKeepAliveEvent creates a keep-alive event.
func NewKeepAliveEvent(connID string, sinceLast time.Duration, warning bool) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionNone,
		Category:     CategoryKeepAlive,
		KeepAlive: &KeepAliveEvent{
			SinceLastMessage: sinceLast,
			Warning:          warning,
		},
	}
}

// NewErrorEvent creates an error event.
func NewErrorEvent(connID string, err error, context string, recoverable bool) Event {
	return Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    DirectionNone,
		Category:     CategoryError,
		Error: &ErrorData{
			Message:     err.Error(),
			Context:     context,
			Recoverable: recoverable,
		},
	}
}
