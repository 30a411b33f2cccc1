package transport

import (
	"context"
	"sync"
	"time"
)

// Keep-alive constants.
const (
	// DefaultKeepAliveTimeout is the default silence duration treated as a
	// lost connection. Negotiation usually overrides it with the hub's
	// configured value.
	DefaultKeepAliveTimeout = 30 * time.Second
)

// KeepAliveConfig configures keep-alive monitoring.
type KeepAliveConfig struct {
	// Timeout is the silence duration after which the connection is
	// considered lost.
	Timeout time.Duration

	// WarnAfter is the silence duration after which a slow-connection
	// warning fires (default: 2/3 of Timeout).
	WarnAfter time.Duration

	// CheckInterval is how often the monitor evaluates the silence
	// duration (default: 1/3 of Timeout).
	CheckInterval time.Duration
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{Timeout: DefaultKeepAliveTimeout}.withDefaults()
}

// withDefaults fills derived values for unset fields.
func (c KeepAliveConfig) withDefaults() KeepAliveConfig {
	if c.Timeout == 0 {
		c.Timeout = DefaultKeepAliveTimeout
	}
	if c.WarnAfter == 0 {
		c.WarnAfter = c.Timeout * 2 / 3
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = c.Timeout / 3
	}
	return c
}

// KeepAliveMonitor watches the time since the last inbound frame. The hub
// sends keep-alive frames while the connection is idle, so prolonged
// silence means the connection is dead even though the socket has not
// errored. The monitor fires onWarning once when the connection looks
// slow and onTimeout once when it is considered lost; both arm again
// after the next inbound frame.
type KeepAliveMonitor struct {
	config KeepAliveConfig

	// Callbacks
	onWarning func(sinceLast time.Duration)
	onTimeout func()

	mu          sync.Mutex
	running     bool
	stopCh      chan struct{}
	lastMessage time.Time
	warned      bool
	timedOut    bool
}

// NewKeepAliveMonitor creates a monitor. Either callback may be nil.
func NewKeepAliveMonitor(config KeepAliveConfig, onWarning func(time.Duration), onTimeout func()) *KeepAliveMonitor {
	return &KeepAliveMonitor{
		config:    config.withDefaults(),
		onWarning: onWarning,
		onTimeout: onTimeout,
		stopCh:    make(chan struct{}),
	}
}

// Start begins monitoring. The silence clock starts now.
func (m *KeepAliveMonitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.lastMessage = time.Now()
	m.warned = false
	m.timedOut = false
	stopCh := m.stopCh
	m.mu.Unlock()

	go m.loop(ctx, stopCh)
}

// Stop stops monitoring.
func (m *KeepAliveMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
}

// MessageReceived records inbound activity and re-arms the warning and
// timeout triggers. Called for every inbound frame, including keep-alives.
func (m *KeepAliveMonitor) MessageReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastMessage = time.Now()
	m.warned = false
	m.timedOut = false
}

// IsRunning returns true if monitoring is active.
func (m *KeepAliveMonitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stats returns a snapshot of the monitor state.
func (m *KeepAliveMonitor) Stats() KeepAliveStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return KeepAliveStats{
		LastMessage: m.lastMessage,
		Warned:      m.warned,
		TimedOut:    m.timedOut,
	}
}

// KeepAliveStats contains keep-alive monitoring statistics.
type KeepAliveStats struct {
	LastMessage time.Time
	Warned      bool
	TimedOut    bool
}

// loop evaluates the silence duration on every tick.
func (m *KeepAliveMonitor) loop(ctx context.Context, stopCh chan struct{}) {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			m.check()
		}
	}
}

// check fires the warning or timeout callback when thresholds are crossed.
func (m *KeepAliveMonitor) check() {
	m.mu.Lock()
	elapsed := time.Since(m.lastMessage)

	var fire func()
	switch {
	case !m.timedOut && elapsed >= m.config.Timeout:
		m.timedOut = true
		fire = m.onTimeout
	case !m.warned && elapsed >= m.config.WarnAfter:
		m.warned = true
		if m.onWarning != nil {
			onWarning := m.onWarning
			fire = func() { onWarning(elapsed) }
		}
	}
	m.mu.Unlock()

	// Callbacks run outside the lock; onTimeout typically calls
	// LostConnection which takes the transport mutex.
	if fire != nil {
		fire()
	}
}
