package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pulse-protocol/pulse-go/pkg/urls"
)

// Negotiation errors.
var (
	// ErrWebSocketsUnsupported indicates the hub rejected WebSocket
	// transports during negotiation.
	ErrWebSocketsUnsupported = errors.New("hub does not support websockets")

	// ErrProtocolMismatch indicates the hub negotiated a different
	// protocol version than the client requested.
	ErrProtocolMismatch = errors.New("protocol version mismatch")
)

// NegotiationResponse is the hub's reply to the negotiate request.
// Timeout fields are in seconds on the wire.
type NegotiationResponse struct {
	ConnectionToken         string  `json:"ConnectionToken"`
	ConnectionID            string  `json:"ConnectionId"`
	ProtocolVersion         string  `json:"ProtocolVersion"`
	TryWebSockets           bool    `json:"TryWebSockets"`
	KeepAliveTimeout        float64 `json:"KeepAliveTimeout"`
	DisconnectTimeout       float64 `json:"DisconnectTimeout"`
	ConnectionTimeout       float64 `json:"ConnectionTimeout"`
	TransportConnectTimeout float64 `json:"TransportConnectTimeout"`
}

// KeepAlive returns the negotiated keep-alive timeout, or zero when the
// hub has keep-alive disabled.
func (n *NegotiationResponse) KeepAlive() time.Duration {
	return time.Duration(n.KeepAliveTimeout * float64(time.Second))
}

// Disconnect returns the negotiated disconnect timeout.
func (n *NegotiationResponse) Disconnect() time.Duration {
	return time.Duration(n.DisconnectTimeout * float64(time.Second))
}

// negotiate performs the negotiate request and validates the response.
func (c *Client) negotiate(ctx context.Context) (NegotiationResponse, error) {
	endpoint, err := urls.Negotiate(c.conn, c.config.ConnectionData)
	if err != nil {
		return NegotiationResponse{}, err
	}

	body, err := c.httpGet(ctx, endpoint)
	if err != nil {
		return NegotiationResponse{}, fmt.Errorf("negotiate: %w", err)
	}

	var resp NegotiationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return NegotiationResponse{}, fmt.Errorf("negotiate: decode response: %w", err)
	}

	if !resp.TryWebSockets {
		return NegotiationResponse{}, ErrWebSocketsUnsupported
	}
	if resp.ProtocolVersion != c.config.ProtocolVersion {
		return NegotiationResponse{}, fmt.Errorf("%w: asked for %s, hub negotiated %s",
			ErrProtocolMismatch, c.config.ProtocolVersion, resp.ProtocolVersion)
	}

	return resp, nil
}

// startResponse is the hub's reply to the start request.
type startResponse struct {
	Response string `json:"Response"`
}

// verifyStart performs the start request that completes the handshake on
// the hub side.
func (c *Client) verifyStart(ctx context.Context, transportName string) error {
	endpoint, err := urls.Start(c.conn, transportName, c.config.ConnectionData)
	if err != nil {
		return err
	}

	body, err := c.httpGet(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}

	var resp startResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("start: decode response: %w", err)
	}
	if resp.Response != "started" {
		return fmt.Errorf("start: unexpected response %q", resp.Response)
	}
	return nil
}

// abort tells the hub the client is going away. Best effort: the client
// is shutting down either way.
func (c *Client) abort(transportName string) {
	endpoint, err := urls.Abort(c.conn, transportName, c.config.ConnectionData)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.config.NegotiateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// httpGet issues a GET with the client's headers and returns the body of
// a 200 response.
func (c *Client) httpGet(ctx context.Context, endpoint string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.NegotiateTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, endpoint)
	}

	return io.ReadAll(resp.Body)
}

// setHeaders applies configured headers and a correlation ID for
// request tracing on the hub side.
func (c *Client) setHeaders(req *http.Request) {
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
}
