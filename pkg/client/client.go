package client

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/pulse-protocol/pulse-go/pkg/connection"
	"github.com/pulse-protocol/pulse-go/pkg/log"
	"github.com/pulse-protocol/pulse-go/pkg/transport"
)

// Client is a Pulse hub client. Create one with New, register callbacks,
// then call Start. A Client is not restartable after Stop.
type Client struct {
	config Config
	logger log.Logger

	conn       *Connection
	transport  *transport.WebSocketTransport
	manager    *connection.Manager
	httpClient *http.Client

	mu      sync.Mutex
	monitor *transport.KeepAliveMonitor

	loopOnce sync.Once

	// Application callbacks. Set before Start; not guarded.
	onReceived    func(data []byte)
	onError       func(err error)
	onStateChange func(oldState, newState connection.State)
}

// New creates a Client from cfg. logger may be nil.
func New(cfg Config, logger log.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NoopLogger{}
	}

	c := &Client{
		config: cfg,
		logger: logger,
		conn:   newConnection(cfg),
	}

	var tlsConfig *tls.Config
	if cfg.InsecureSkipVerify {
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	header := http.Header{}
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}

	c.transport = transport.NewWebSocketTransport(transport.WebSocketConfig{
		Dialer: &transport.WebSocketDialer{
			HandshakeTimeout: cfg.HandshakeTimeout,
			TLSClientConfig:  tlsConfig,
			Header:           header,
		},
		Logger: logger,
	})

	c.httpClient = &http.Client{
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: tlsConfig,
		},
	}

	c.manager = connection.NewManager(c.establish)
	c.manager.SetAutoReconnect(cfg.AutoReconnect)
	if cfg.ReconnectWindow > 0 {
		c.manager.SetReconnectWindow(cfg.ReconnectWindow)
	}
	c.manager.OnStateChange(c.handleStateChange)

	c.conn.markLastMessage = c.markLastMessage
	c.conn.onReceived = c.handleReceived
	c.conn.onError = c.handleTransportError
	c.conn.onReconnecting = c.handleHubReconnect
	c.conn.onDisconnected = c.handleDisconnected

	return c, nil
}

// OnReceived registers the callback for application payloads. It runs on
// the transport's reader goroutine and must not block. Call before Start.
func (c *Client) OnReceived(fn func(data []byte)) {
	c.onReceived = fn
}

// OnError registers the callback for connection errors. Errors wrapping
// transport.ErrConnectionLost are recoverable; the client reconnects on
// its own when auto-reconnect is enabled. Call before Start.
func (c *Client) OnError(fn func(err error)) {
	c.onError = fn
}

// OnStateChange registers the callback for connection state transitions.
// Call before Start.
func (c *Client) OnStateChange(fn func(oldState, newState connection.State)) {
	c.onStateChange = fn
}

// Start negotiates with the hub and connects the transport. It returns
// once the connection is established (the hub's first frame arrived and
// the start handshake completed) or with the failure that prevented it.
func (c *Client) Start(ctx context.Context) error {
	c.loopOnce.Do(c.manager.StartReconnectLoop)
	return c.manager.Connect(ctx)
}

// Send writes data to the hub as one text frame. It fails with
// transport.ErrNotConnected while no connection is established.
func (c *Client) Send(data string) error {
	return c.transport.Send(c.conn, data)
}

// Stop disconnects from the hub and shuts the client down.
func (c *Client) Stop() {
	c.manager.SetAutoReconnect(false)
	c.stopMonitor()

	if c.conn.ConnectionToken() != "" {
		c.abort(c.transport.Name())
	}

	c.transport.Stop()
	c.manager.Close()
}

// State returns the current connection state.
func (c *Client) State() connection.State {
	return c.manager.State()
}

// ConnectionID returns the connection identifier (the hub's, once
// negotiation has completed).
func (c *Client) ConnectionID() string {
	return c.conn.ConnectionID()
}

// establish is the manager's connect function, used for the initial
// connection and every reconnection attempt. Reconnects skip negotiation:
// the existing token and message cursor identify the interrupted
// connection to the hub.
func (c *Client) establish(ctx context.Context) error {
	fresh := c.conn.ConnectionToken() == ""
	if fresh {
		resp, err := c.negotiate(ctx)
		if err != nil {
			return err
		}
		c.conn.setNegotiated(resp.ConnectionID, resp.ConnectionToken)
		c.configureKeepAlive(resp)
		if c.config.ReconnectWindow == 0 {
			if window := resp.Disconnect(); window > 0 {
				c.manager.SetReconnectWindow(window)
			}
		}
	}

	if err := c.transport.Start(ctx, c.conn, c.config.ConnectionData); err != nil {
		return err
	}

	if fresh {
		if err := c.verifyStart(ctx, c.transport.Name()); err != nil {
			c.transport.Stop()
			return err
		}
	}

	c.startMonitor()
	return nil
}

// configureKeepAlive builds the monitor from the negotiated timeout. A
// hub with keep-alive disabled gets no monitor.
func (c *Client) configureKeepAlive(resp NegotiationResponse) {
	timeout := c.config.KeepAliveTimeout
	if timeout == 0 {
		timeout = resp.KeepAlive()
	}
	if timeout == 0 {
		return
	}

	monitor := transport.NewKeepAliveMonitor(
		transport.KeepAliveConfig{Timeout: timeout},
		c.handleKeepAliveWarning,
		func() { c.transport.LostConnection(c.conn) },
	)

	c.mu.Lock()
	c.monitor = monitor
	c.mu.Unlock()
}

func (c *Client) startMonitor() {
	c.mu.Lock()
	monitor := c.monitor
	c.mu.Unlock()
	if monitor != nil {
		monitor.Start(context.Background())
	}
}

func (c *Client) stopMonitor() {
	c.mu.Lock()
	monitor := c.monitor
	c.mu.Unlock()
	if monitor != nil {
		monitor.Stop()
	}
}

func (c *Client) markLastMessage() {
	c.mu.Lock()
	monitor := c.monitor
	c.mu.Unlock()
	if monitor != nil {
		monitor.MessageReceived()
	}
}

func (c *Client) handleReceived(data []byte) {
	if c.onReceived != nil {
		c.onReceived(data)
	}
}

// handleTransportError runs on the transport's reader goroutine (socket
// failures) or the monitor goroutine (keep-alive timeouts).
func (c *Client) handleTransportError(err error) {
	recoverable := errors.Is(err, transport.ErrConnectionLost)
	c.logger.Log(log.NewErrorEvent(c.conn.ConnectionID(), err, "connection", recoverable))

	if c.onError != nil {
		c.onError(err)
	}
	if recoverable {
		c.manager.ConnectionLost()
	}
}

// handleHubReconnect runs when the hub asked for a fresh socket. Drop
// ours and reconnect with the message cursor.
func (c *Client) handleHubReconnect() {
	c.transport.Stop()
	c.manager.ConnectionLost()
}

// handleDisconnected runs after the transport released its socket. For a
// connection loss the error callback has already moved the manager into
// reconnection, making this a no-op; it only takes effect for deliberate
// disconnects (a hub disconnect order or a clean close from the peer).
func (c *Client) handleDisconnected() {
	c.manager.Disconnect()
}

func (c *Client) handleKeepAliveWarning(sinceLast time.Duration) {
	c.logger.Log(log.NewKeepAliveEvent(c.conn.ConnectionID(), sinceLast, true))
}

func (c *Client) handleStateChange(oldState, newState connection.State) {
	c.logger.Log(log.NewStateChangeEvent(c.conn.ConnectionID(), oldState.String(), newState.String(), ""))

	// The monitor only makes sense while connected; timeouts during
	// reconnection would just re-report a loss already being handled.
	if newState != connection.StateConnected {
		c.stopMonitor()
	}

	if c.onStateChange != nil {
		c.onStateChange(oldState, newState)
	}
}
