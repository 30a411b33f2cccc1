package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pulse-protocol/pulse-go/pkg/log"
	"github.com/pulse-protocol/pulse-go/pkg/protocol"
	"github.com/pulse-protocol/pulse-go/pkg/urls"
)

// TransportName identifies this transport in endpoint URLs and during
// connection negotiation.
const TransportName = "webSockets"

// Transport errors.
var (
	// ErrNilConnection indicates a nil connection argument.
	ErrNilConnection = errors.New("connection must not be nil")

	// ErrNotConnected indicates a Send with no owned socket. Sends issued
	// before the handshake completes or after teardown fail with this
	// error rather than queueing.
	ErrNotConnected = errors.New("transport not started")

	// ErrConnectionLost wraps recoverable connection failures. The owning
	// connection may attempt reconnection when it sees this error.
	ErrConnectionLost = errors.New("connection lost")
)

// WebSocketConfig configures a WebSocketTransport. The zero value is
// usable: it dials with a default WebSocketDialer, routes frames through
// a protocol.Router and discards log events.
type WebSocketConfig struct {
	// Dialer opens sockets (default: &WebSocketDialer{}).
	Dialer Dialer

	// Processor interprets inbound frames (default: protocol.Router).
	Processor protocol.Processor

	// Logger receives protocol events (default: log.NoopLogger).
	Logger log.Logger
}

// WebSocketTransport is the WebSocket transport. It owns at most one live
// socket at a time; see the package documentation for the ownership
// discipline.
type WebSocketTransport struct {
	dialer    Dialer
	processor protocol.Processor
	logger    log.Logger

	mu     sync.Mutex
	socket Socket
}

// NewWebSocketTransport creates a transport from config.
func NewWebSocketTransport(config WebSocketConfig) *WebSocketTransport {
	if config.Dialer == nil {
		config.Dialer = &WebSocketDialer{}
	}
	if config.Logger == nil {
		config.Logger = log.NoopLogger{}
	}
	if config.Processor == nil {
		config.Processor = protocol.NewRouter(config.Logger)
	}
	return &WebSocketTransport{
		dialer:    config.Dialer,
		processor: config.Processor,
		logger:    config.Logger,
	}
}

// Name returns the transport name used during negotiation.
func (t *WebSocketTransport) Name() string {
	return TransportName
}

// Start opens the socket and blocks until the handshake completes: the
// call returns nil once the first inbound frame arrives, or the failure
// that resolved the tracker (a dial error, or ctx's error if ctx is
// cancelled during the connect sequence). The connect sequence runs on
// its own goroutine; a failed handshake never leaks an open socket.
func (t *WebSocketTransport) Start(ctx context.Context, conn Connection, connectionData string) error {
	if conn == nil {
		return ErrNilConnection
	}

	tracker := NewStartTracker()

	go t.connect(ctx, conn, connectionData, tracker)

	select {
	case <-tracker.Done():
	case <-ctx.Done():
		// Deliberate cancellation carries ctx's error, not a dial error.
		tracker.Fail(ctx.Err())
	}
	return tracker.Err()
}

// Send writes data as one complete text frame to the currently owned
// socket. It fails fast with ErrNotConnected when no socket is owned;
// there is no queueing behind an in-flight connect sequence.
func (t *WebSocketTransport) Send(conn Connection, data string) error {
	if conn == nil {
		return ErrNilConnection
	}

	sock := t.current()
	if sock == nil {
		return ErrNotConnected
	}

	if err := sock.WriteText(data); err != nil {
		return fmt.Errorf("send frame: %w", err)
	}

	event := log.NewFrameEvent(conn.ConnectionID(), log.DirectionOut, data)
	event.Transport = TransportName
	t.logger.Log(event)

	return nil
}

// Stop detaches and closes the current socket. Safe to call multiple
// times and from multiple goroutines; the socket is closed at most once.
func (t *WebSocketTransport) Stop() {
	if sock := t.take(); sock != nil {
		sock.Close()
	}
}

// LostConnection is called by the owning connection when keep-alive
// monitoring times out. It force-closes the current socket and reports a
// recoverable failure so the connection can reconnect.
func (t *WebSocketTransport) LostConnection(conn Connection) {
	if sock := t.take(); sock != nil {
		sock.Close()
	}
	if conn != nil {
		err := fmt.Errorf("%w: keep-alive timeout", ErrConnectionLost)
		event := log.NewErrorEvent(conn.ConnectionID(), err, "keep-alive", true)
		event.Transport = TransportName
		t.logger.Log(event)
		conn.OnError(err)
	}
}

// connect runs the connect sequence. Every outcome is reported through
// the tracker; no failure escapes this goroutine.
func (t *WebSocketTransport) connect(ctx context.Context, conn Connection, connectionData string, tracker *StartTracker) {
	// Duplicate Start invocations race to here; a sequence that finds a
	// socket already owned must not open a second one. The duplicate
	// resolves as success against the existing socket.
	if t.current() != nil {
		tracker.MessageReceived()
		return
	}

	endpoint, err := t.connectURL(conn, connectionData)
	if err != nil {
		tracker.Fail(err)
		return
	}

	onMessage := func(payload string) { t.handleMessage(conn, payload, tracker) }

	// The closed callback must know which socket it speaks for, so a
	// stale socket's close cannot detach a newer one. owned stays nil
	// until this sequence's socket is installed; a close delivered
	// before then fails the tracker without touching the stored socket.
	var owned Socket
	onClosed := func(err error) {
		t.mu.Lock()
		sock := owned
		t.mu.Unlock()
		t.handleClosed(conn, sock, err, tracker)
	}

	socket, err := t.dialer.Dial(ctx, endpoint, onMessage, onClosed)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			tracker.Fail(ctxErr)
		} else {
			tracker.Fail(fmt.Errorf("connect %s: %w", endpoint, err))
		}
		return
	}

	t.mu.Lock()
	if t.socket != nil {
		// Lost the race against another connect sequence. The duplicate
		// resolves as success against the kept socket and only its own
		// socket is discarded.
		t.mu.Unlock()
		tracker.MessageReceived()
		socket.Close()
		return
	}
	t.socket = socket
	owned = socket
	t.mu.Unlock()

	// The handshake may have already failed (cancellation racing the
	// dial); late registration fires immediately and disposes this
	// socket, and only this socket.
	tracker.OnFailure(func(error) {
		if t.takeIf(socket) {
			socket.Close()
		}
	})
}

// connectURL builds the ws(s) endpoint for this attempt. A connection
// with a message cursor is resuming, so it reconnects rather than
// connecting fresh.
func (t *WebSocketTransport) connectURL(conn Connection, connectionData string) (string, error) {
	var raw string
	var err error
	if conn.MessageID() != "" {
		raw, err = urls.Reconnect(conn, TransportName, connectionData)
	} else {
		raw, err = urls.Connect(conn, TransportName, connectionData)
	}
	if err != nil {
		return "", err
	}
	return urls.WebSocketScheme(raw)
}

// handleMessage runs on the socket's reader goroutine. The same mutex
// discipline as Send and Stop applies to any socket access from here.
func (t *WebSocketTransport) handleMessage(conn Connection, payload string, tracker *StartTracker) {
	event := log.NewFrameEvent(conn.ConnectionID(), log.DirectionIn, payload)
	event.Transport = TransportName
	t.logger.Log(event)

	conn.MarkLastMessage()

	// The first inbound frame satisfies the handshake; the router also
	// signals on the init marker. Both are no-ops once resolved.
	tracker.MessageReceived()

	result := t.processor.Process(conn, []byte(payload), tracker.MessageReceived)
	switch {
	case result.Disconnected:
		t.Stop()
		conn.OnDisconnected()
	case result.ShouldReconnect:
		conn.OnReconnecting()
	}
}

// handleClosed runs once when a socket's read loop ends. sock is the
// socket that closed; only the currently owned socket's closure tears
// the transport down. A nil err means the closure was clean (local Stop
// or a normal close from the peer); anything else is surfaced as a
// recoverable connection loss. A closure before the handshake completed
// fails the Start call.
func (t *WebSocketTransport) handleClosed(conn Connection, sock Socket, err error, tracker *StartTracker) {
	owned := t.takeIf(sock)
	if owned {
		sock.Close()
	}

	tracker.Fail(fmt.Errorf("%w: socket closed during start", ErrConnectionLost))

	if !owned {
		// A socket this transport no longer owns. Whatever socket is
		// stored now is unaffected.
		return
	}

	if err != nil {
		lost := fmt.Errorf("%w: %v", ErrConnectionLost, err)
		event := log.NewErrorEvent(conn.ConnectionID(), lost, "socket closed", true)
		event.Transport = TransportName
		t.logger.Log(event)
		conn.OnError(lost)
	}
	conn.OnDisconnected()
}

// take atomically exchanges the stored socket for nil and returns the
// old value. All close paths go through take so that a socket is closed
// exactly once.
func (t *WebSocketTransport) take() Socket {
	t.mu.Lock()
	defer t.mu.Unlock()
	sock := t.socket
	t.socket = nil
	return sock
}

// takeIf detaches the stored socket only if it is sock. Close paths
// that know which socket closed use this instead of take, so a stale
// socket's callback cannot detach a newer one.
func (t *WebSocketTransport) takeIf(sock Socket) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if sock == nil || t.socket != sock {
		return false
	}
	t.socket = nil
	return true
}

// current returns the owned socket without releasing it.
func (t *WebSocketTransport) current() Socket {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.socket
}
