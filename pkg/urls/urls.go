// Package urls builds the endpoint URLs used by the Pulse client.
//
// Every request carries the protocol version and, once negotiation has
// completed, the connection token. The connect, reconnect, start and abort
// endpoints additionally identify the transport in use. Custom query
// parameters supplied by the application are appended verbatim.
package urls

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Endpoint path segments.
const (
	negotiatePath = "negotiate"
	connectPath   = "connect"
	reconnectPath = "reconnect"
	startPath     = "start"
	abortPath     = "abort"
)

// ErrUnsupportedScheme indicates a URL whose scheme is not http or https.
var ErrUnsupportedScheme = errors.New("unsupported URL scheme")

// Connection provides the per-connection values that go into endpoint URLs.
// Implemented by client.Connection.
type Connection interface {
	// BaseURL returns the hub endpoint URL (http or https).
	BaseURL() string

	// Protocol returns the client protocol version (e.g. "1.5").
	Protocol() string

	// ConnectionToken returns the token issued during negotiation.
	// Empty before negotiation has completed.
	ConnectionToken() string

	// QueryString returns extra query parameters in raw "a=b&c=d" form.
	// May be empty.
	QueryString() string

	// MessageID returns the last processed message cursor.
	// Empty until the first message carrying a cursor arrives.
	MessageID() string

	// GroupsToken returns the current groups token, if any.
	GroupsToken() string
}

// Negotiate builds the URL for the negotiate request.
func Negotiate(conn Connection, connectionData string) (string, error) {
	v := url.Values{}
	v.Set("clientProtocol", conn.Protocol())
	if connectionData != "" {
		v.Set("connectionData", connectionData)
	}
	return build(conn, negotiatePath, v)
}

// Connect builds the URL for the initial transport connect request.
func Connect(conn Connection, transport, connectionData string) (string, error) {
	return transportURL(conn, connectPath, transport, connectionData, false)
}

// Reconnect builds the URL for a transport reconnect request. The message
// cursor and groups token are included so the server can resume delivery
// from the last processed message.
func Reconnect(conn Connection, transport, connectionData string) (string, error) {
	return transportURL(conn, reconnectPath, transport, connectionData, true)
}

// Start builds the URL for the start request that completes the handshake.
func Start(conn Connection, transport, connectionData string) (string, error) {
	return transportURL(conn, startPath, transport, connectionData, false)
}

// Abort builds the URL for the abort request sent on clean shutdown.
func Abort(conn Connection, transport, connectionData string) (string, error) {
	return transportURL(conn, abortPath, transport, connectionData, false)
}

// WebSocketScheme converts an http(s) URL to its ws(s) equivalent.
func WebSocketScheme(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	return u.String(), nil
}

// transportURL builds a transport-qualified endpoint URL.
func transportURL(conn Connection, path, transport, connectionData string, resume bool) (string, error) {
	v := url.Values{}
	v.Set("clientProtocol", conn.Protocol())
	v.Set("transport", transport)
	if token := conn.ConnectionToken(); token != "" {
		v.Set("connectionToken", token)
	}
	if connectionData != "" {
		v.Set("connectionData", connectionData)
	}
	if resume {
		if id := conn.MessageID(); id != "" {
			v.Set("messageId", id)
		}
		if groups := conn.GroupsToken(); groups != "" {
			v.Set("groupsToken", groups)
		}
	}
	return build(conn, path, v)
}

// build joins the base URL, path segment, computed values and the
// connection's custom query string.
func build(conn Connection, path string, v url.Values) (string, error) {
	base, err := url.Parse(conn.BaseURL())
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, base.Scheme)
	}

	base = base.JoinPath(path)

	query := v.Encode()
	if custom := strings.TrimPrefix(conn.QueryString(), "&"); custom != "" {
		query += "&" + custom
	}
	base.RawQuery = query

	return base.String(), nil
}
