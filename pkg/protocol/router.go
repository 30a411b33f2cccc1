package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/pulse-protocol/pulse-go/pkg/log"
)

// Connection is the view of the owning connection the router needs.
// Implemented by client.Connection.
type Connection interface {
	// SetMessageID stores the message cursor from the latest frame.
	SetMessageID(id string)

	// SetGroupsToken stores an updated groups token.
	SetGroupsToken(token string)

	// OnReceived delivers one application payload.
	OnReceived(data []byte)

	// OnError reports a processing error. The connection decides whether
	// it is fatal.
	OnError(err error)
}

// Result describes what the hub asked the client to do after a frame.
type Result struct {
	// ShouldReconnect is set when the hub asked the client to drop the
	// socket and reconnect.
	ShouldReconnect bool

	// Disconnected is set when the hub ordered a terminal disconnect.
	Disconnected bool
}

// Processor interprets one raw inbound frame.
// Implemented by Router.
type Processor interface {
	// Process decodes payload, updates conn and dispatches application
	// messages. onInitialized is invoked when the frame carries the
	// handshake-complete marker; it may be nil.
	Process(conn Connection, payload []byte, onInitialized func()) Result
}

// Router is the standard frame processor.
type Router struct {
	logger log.Logger
}

// NewRouter creates a Router. logger may be nil.
func NewRouter(logger log.Logger) *Router {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Router{logger: logger}
}

// Process implements Processor.
//
// Cursor and groups token are persisted before payloads are dispatched, so
// a reconnect triggered from inside OnReceived resumes after this frame.
func (r *Router) Process(conn Connection, payload []byte, onInitialized func()) Result {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		conn.OnError(fmt.Errorf("decode hub frame: %w", err))
		return Result{}
	}

	if msg.IsKeepAlive() {
		return Result{}
	}

	result := Result{
		ShouldReconnect: msg.ShouldReconnect == 1,
		Disconnected:    msg.Disconnected == 1,
	}
	if result.Disconnected {
		return result
	}

	if msg.GroupsToken != "" {
		conn.SetGroupsToken(msg.GroupsToken)
	}
	if msg.Cursor != "" {
		conn.SetMessageID(msg.Cursor)
	}

	for _, p := range msg.Payloads {
		conn.OnReceived(p)
	}

	if msg.Initialized == 1 && onInitialized != nil {
		onInitialized()
	}

	return result
}

// Compile-time interface satisfaction check.
var _ Processor = (*Router)(nil)
