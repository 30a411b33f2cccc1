package client

import (
	"sync"

	"github.com/google/uuid"

	"github.com/pulse-protocol/pulse-go/pkg/transport"
)

// Connection holds the negotiated identity and per-connection state the
// transport, URL builder and frame router read. All mutable fields are
// guarded: the transport's reader goroutine updates the cursor while the
// connect sequence reads it.
type Connection struct {
	baseURL         string
	protocolVersion string
	queryString     string

	mu           sync.RWMutex
	connectionID string
	token        string
	messageID    string
	groupsToken  string

	// Callbacks installed by the owning Client.
	markLastMessage func()
	onReceived      func(data []byte)
	onError         func(err error)
	onReconnecting  func()
	onDisconnected  func()
}

// newConnection creates connection state for cfg. Until negotiation
// assigns the hub's connection ID, a local UUID identifies the
// connection in log events.
func newConnection(cfg Config) *Connection {
	return &Connection{
		baseURL:         cfg.HubURL,
		protocolVersion: cfg.ProtocolVersion,
		queryString:     cfg.QueryString,
		connectionID:    uuid.NewString(),
	}
}

// setNegotiated stores the identity issued by the hub.
func (c *Connection) setNegotiated(connectionID, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectionID = connectionID
	c.token = token
}

// ConnectionID returns the connection identifier.
func (c *Connection) ConnectionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connectionID
}

// BaseURL returns the hub endpoint URL.
func (c *Connection) BaseURL() string {
	return c.baseURL
}

// Protocol returns the client protocol version.
func (c *Connection) Protocol() string {
	return c.protocolVersion
}

// ConnectionToken returns the token issued during negotiation.
func (c *Connection) ConnectionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// QueryString returns the extra query parameters.
func (c *Connection) QueryString() string {
	return c.queryString
}

// MessageID returns the last processed message cursor.
func (c *Connection) MessageID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.messageID
}

// SetMessageID stores the message cursor from the latest frame.
func (c *Connection) SetMessageID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageID = id
}

// GroupsToken returns the current groups token.
func (c *Connection) GroupsToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.groupsToken
}

// SetGroupsToken stores an updated groups token.
func (c *Connection) SetGroupsToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupsToken = token
}

// MarkLastMessage records inbound activity for keep-alive monitoring.
func (c *Connection) MarkLastMessage() {
	if c.markLastMessage != nil {
		c.markLastMessage()
	}
}

// OnReceived delivers one application payload.
func (c *Connection) OnReceived(data []byte) {
	if c.onReceived != nil {
		c.onReceived(data)
	}
}

// OnError reports a transport error.
func (c *Connection) OnError(err error) {
	if c.onError != nil {
		c.onError(err)
	}
}

// OnReconnecting is called when the hub asked the client to reconnect.
func (c *Connection) OnReconnecting() {
	if c.onReconnecting != nil {
		c.onReconnecting()
	}
}

// OnDisconnected is called when the transport has released its socket.
func (c *Connection) OnDisconnected() {
	if c.onDisconnected != nil {
		c.onDisconnected()
	}
}

// Compile-time interface satisfaction check.
var _ transport.Connection = (*Connection)(nil)
