package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Connection errors.
var (
	ErrManagerClosed     = errors.New("connection manager closed")
	ErrAlreadyConnected  = errors.New("already connected")
	ErrConnectInProgress = errors.New("connection attempt in progress")
	ErrNotConnected      = errors.New("not connected")
)

// DefaultReconnectWindow is how long the manager keeps attempting to
// reconnect before giving up. The hub discards an interrupted
// connection's state after roughly this long, so later attempts could
// not resume anyway.
const DefaultReconnectWindow = 110 * time.Second

// attemptTimeout bounds a single reconnection attempt.
const attemptTimeout = 30 * time.Second

// State represents the connection state.
type State uint8

const (
	// StateDisconnected indicates no active connection.
	StateDisconnected State = iota

	// StateConnecting indicates a connection attempt is in progress.
	StateConnecting

	// StateConnected indicates an active connection.
	StateConnected

	// StateReconnecting indicates automatic reconnection is in progress.
	StateReconnecting

	// StateClosed indicates the connection manager has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ConnectFunc is called to establish a connection.
// It should return nil on success or an error on failure.
type ConnectFunc func(ctx context.Context) error

// Manager manages connection lifecycle with automatic reconnection.
type Manager struct {
	mu sync.RWMutex

	state State

	backoff   *Backoff
	connectFn ConnectFunc

	autoReconnect    bool
	reconnectWindow  time.Duration
	reconnectStarted time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Buffered by one; a pending signal covers any number of loss reports.
	reconnectCh chan struct{}

	// Callbacks
	onStateChange  func(oldState, newState State)
	onConnected    func()
	onDisconnected func()
	onReconnecting func(attempt int, delay time.Duration)
	onGaveUp       func()
}

// NewManager creates a new connection manager.
func NewManager(connectFn ConnectFunc) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		state:           StateDisconnected,
		backoff:         NewBackoff(),
		connectFn:       connectFn,
		autoReconnect:   true,
		reconnectWindow: DefaultReconnectWindow,
		ctx:             ctx,
		cancel:          cancel,
		reconnectCh:     make(chan struct{}, 1),
	}
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true if currently connected.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected
}

// SetAutoReconnect enables or disables automatic reconnection.
func (m *Manager) SetAutoReconnect(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoReconnect = enabled
}

// SetReconnectWindow overrides the reconnect window. Zero or negative
// means attempts never give up.
func (m *Manager) SetReconnectWindow(window time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnectWindow = window
}

// SetBackoff replaces the backoff calculator. Call before Connect.
func (m *Manager) SetBackoff(b *Backoff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backoff = b
}

// Connect initiates a connection.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	// Only one attempt may run connectFn at a time; a Connect during an
	// in-flight attempt or the reconnect loop would race it.
	if m.state == StateConnecting || m.state == StateReconnecting {
		m.mu.Unlock()
		return ErrConnectInProgress
	}

	oldState := m.state
	m.state = StateConnecting
	m.mu.Unlock()

	m.notifyStateChange(oldState, StateConnecting)

	err := m.connectFn(ctx)

	m.mu.Lock()
	if err != nil {
		m.state = StateDisconnected
		m.mu.Unlock()
		m.notifyStateChange(StateConnecting, StateDisconnected)
		return err
	}

	m.state = StateConnected
	m.backoff.Reset()
	m.mu.Unlock()

	m.notifyStateChange(StateConnecting, StateConnected)
	m.notifyConnected()

	return nil
}

// Disconnect transitions from Connected to Disconnected without
// reconnection. Used for deliberate disconnects (the hub ordered one, or
// the peer closed cleanly). No-op in any other state.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	m.mu.Unlock()

	m.notifyStateChange(StateConnected, StateDisconnected)
	m.notifyDisconnected()
}

// ConnectionLost should be called when a connection loss is detected
// (socket error or keep-alive timeout). This triggers automatic
// reconnection if enabled.
func (m *Manager) ConnectionLost() {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	autoReconnect := m.autoReconnect

	if autoReconnect {
		m.state = StateReconnecting
		m.reconnectStarted = time.Now()
	} else {
		m.state = StateDisconnected
	}
	newState := m.state
	m.mu.Unlock()

	m.notifyStateChange(oldState, newState)
	m.notifyDisconnected()

	if autoReconnect {
		m.triggerReconnect()
	}
}

// StartReconnectLoop starts the background reconnection loop.
// Must be called once before automatic reconnection will work.
func (m *Manager) StartReconnectLoop() {
	m.wg.Add(1)
	go m.reconnectLoop()
}

// Close shuts down the connection manager.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}

	oldState := m.state
	m.state = StateClosed
	m.mu.Unlock()

	m.notifyStateChange(oldState, StateClosed)

	m.cancel()
	m.wg.Wait()
}

// triggerReconnect signals that reconnection should be attempted.
func (m *Manager) triggerReconnect() {
	select {
	case m.reconnectCh <- struct{}{}:
	default:
		// Already pending
	}
}

// reconnectLoop runs in a goroutine and handles reconnection attempts.
func (m *Manager) reconnectLoop() {
	defer m.wg.Done()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.reconnectCh:
			m.attemptReconnect()
		}
	}
}

// attemptReconnect retries the connect function with backoff until it
// succeeds, the manager is closed, or the reconnect window closes.
func (m *Manager) attemptReconnect() {
	for {
		m.mu.RLock()
		state := m.state
		window := m.reconnectWindow
		started := m.reconnectStarted
		m.mu.RUnlock()

		if state != StateReconnecting {
			return
		}
		if window > 0 && time.Since(started) >= window {
			m.giveUp()
			return
		}

		delay := m.backoff.Next()
		attempts := m.backoff.Attempts()
		m.notifyReconnecting(attempts, delay)

		select {
		case <-m.ctx.Done():
			return
		case <-time.After(delay):
		}

		m.mu.RLock()
		state = m.state
		m.mu.RUnlock()
		if state != StateReconnecting {
			return
		}

		ctx, cancel := context.WithTimeout(m.ctx, attemptTimeout)
		err := m.connectFn(ctx)
		cancel()

		if err == nil {
			m.mu.Lock()
			oldState := m.state
			m.state = StateConnected
			m.backoff.Reset()
			m.mu.Unlock()

			m.notifyStateChange(oldState, StateConnected)
			m.notifyConnected()
			return
		}

		// Failed - loop with the next backoff delay
	}
}

// giveUp abandons reconnection after the window closed.
func (m *Manager) giveUp() {
	m.mu.Lock()
	if m.state != StateReconnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	m.mu.Unlock()

	m.notifyStateChange(StateReconnecting, StateDisconnected)

	m.mu.RLock()
	fn := m.onGaveUp
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

// OnStateChange sets a callback for state changes.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// OnConnected sets a callback for successful connection.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = fn
}

// OnDisconnected sets a callback for disconnection.
func (m *Manager) OnDisconnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDisconnected = fn
}

// OnReconnecting sets a callback for reconnection attempts.
func (m *Manager) OnReconnecting(fn func(attempt int, delay time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReconnecting = fn
}

// OnGaveUp sets a callback for when the reconnect window closes without
// a successful reconnection.
func (m *Manager) OnGaveUp(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onGaveUp = fn
}

// BackoffAttempts returns the current number of reconnection attempts.
func (m *Manager) BackoffAttempts() int {
	return m.backoff.Attempts()
}

func (m *Manager) notifyStateChange(oldState, newState State) {
	m.mu.RLock()
	fn := m.onStateChange
	m.mu.RUnlock()
	if fn != nil {
		fn(oldState, newState)
	}
}

func (m *Manager) notifyConnected() {
	m.mu.RLock()
	fn := m.onConnected
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (m *Manager) notifyDisconnected() {
	m.mu.RLock()
	fn := m.onDisconnected
	m.mu.RUnlock()
	if fn != nil {
		fn()
	}
}

func (m *Manager) notifyReconnecting(attempt int, delay time.Duration) {
	m.mu.RLock()
	fn := m.onReconnecting
	m.mu.RUnlock()
	if fn != nil {
		fn(attempt, delay)
	}
}
