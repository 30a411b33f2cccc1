package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Socket timing constants.
const (
	// DefaultHandshakeTimeout is the default WebSocket handshake timeout.
	DefaultHandshakeTimeout = 15 * time.Second

	// closeWriteTimeout bounds the close-frame write during Close.
	closeWriteTimeout = 5 * time.Second
)

// ErrSocketClosed indicates a write on a socket that has been closed.
// Writing to a closed socket is a caller error, not a silent no-op.
var ErrSocketClosed = errors.New("socket is closed")

// Socket is a live bidirectional message channel. Inbound frames are
// delivered through the callbacks supplied at dial time, on a goroutine
// owned by the socket.
// Implemented by webSocket.
type Socket interface {
	// WriteText writes one complete text frame.
	WriteText(data string) error

	// Close closes the channel. Safe to call multiple times; only the
	// first call closes the underlying connection.
	Close() error
}

// Dialer opens sockets. Implemented by WebSocketDialer.
type Dialer interface {
	// Dial connects to rawURL (ws or wss scheme) and starts delivering
	// inbound text frames to onMessage. onClosed is invoked exactly once
	// when the socket stops reading; its error is nil for a clean close.
	Dial(ctx context.Context, rawURL string, onMessage func(payload string), onClosed func(err error)) (Socket, error)
}

// WebSocketDialer opens WebSocket connections using gorilla/websocket.
// The zero value is ready to use.
type WebSocketDialer struct {
	// HandshakeTimeout bounds the WebSocket handshake
	// (default: DefaultHandshakeTimeout).
	HandshakeTimeout time.Duration

	// TLSClientConfig is used for wss connections. Nil means defaults.
	TLSClientConfig *tls.Config

	// Header is sent with the handshake request (cookies, authorization).
	Header http.Header
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context, rawURL string, onMessage func(string), onClosed func(error)) (Socket, error) {
	timeout := d.HandshakeTimeout
	if timeout == 0 {
		timeout = DefaultHandshakeTimeout
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: timeout,
		TLSClientConfig:  d.TLSClientConfig,
	}

	conn, resp, err := dialer.DialContext(ctx, rawURL, d.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial: %w (HTTP %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	s := &webSocket{
		conn:    conn,
		closeCh: make(chan struct{}),
	}
	go s.readLoop(onMessage, onClosed)

	return s, nil
}

// webSocket wraps a gorilla connection as a Socket.
type webSocket struct {
	conn    *websocket.Conn
	closeCh chan struct{}

	closeOnce sync.Once
	closeErr  error
	writeMu   sync.Mutex
}

// WriteText writes one complete text frame.
func (s *webSocket) WriteText(data string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.closeCh:
		return ErrSocketClosed
	default:
	}

	return s.conn.WriteMessage(websocket.TextMessage, []byte(data))
}

// Close sends a close frame and closes the underlying connection.
func (s *webSocket) Close() error {
	s.closeOnce.Do(func() {
		close(s.closeCh)
		deadline := time.Now().Add(closeWriteTimeout)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}

// readLoop delivers inbound frames until the connection stops reading.
func (s *webSocket) readLoop(onMessage func(string), onClosed func(error)) {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closeCh:
				// Local Close raced with the read; not a failure.
				onClosed(nil)
			default:
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					onClosed(nil)
				} else {
					onClosed(err)
				}
			}
			return
		}

		// The protocol is text-only; other frame types are dropped.
		if msgType != websocket.TextMessage {
			continue
		}
		onMessage(string(data))
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Socket = (*webSocket)(nil)
	_ Dialer = (*WebSocketDialer)(nil)
)
