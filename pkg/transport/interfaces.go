package transport

import (
	"github.com/pulse-protocol/pulse-go/pkg/protocol"
	"github.com/pulse-protocol/pulse-go/pkg/urls"
)

// Connection is the view of the owning connection the transport needs.
// Implemented by client.Connection.
type Connection interface {
	// ConnectionID identifies the connection for logging.
	ConnectionID() string

	// BaseURL returns the hub endpoint URL (http or https).
	BaseURL() string

	// Protocol returns the client protocol version.
	Protocol() string

	// ConnectionToken returns the token issued during negotiation.
	ConnectionToken() string

	// QueryString returns extra query parameters in raw form.
	QueryString() string

	// MessageID returns the last processed message cursor.
	MessageID() string

	// SetMessageID stores the message cursor from the latest frame.
	SetMessageID(id string)

	// GroupsToken returns the current groups token.
	GroupsToken() string

	// SetGroupsToken stores an updated groups token.
	SetGroupsToken(token string)

	// MarkLastMessage records inbound activity for keep-alive monitoring.
	MarkLastMessage()

	// OnReceived delivers one application payload.
	OnReceived(data []byte)

	// OnError reports a transport error. Errors wrapping ErrConnectionLost
	// are recoverable and eligible for reconnection.
	OnError(err error)

	// OnReconnecting is called when the hub asked the client to reconnect.
	OnReconnecting()

	// OnDisconnected is called when the transport has released its socket.
	OnDisconnected()
}

// Compile-time checks that Connection covers what the collaborators need.
var (
	_ urls.Connection     = (Connection)(nil)
	_ protocol.Connection = (Connection)(nil)
)
