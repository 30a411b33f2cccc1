package connection

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("DefaultSequence", func(t *testing.T) {
		b := NewBackoff()

		// Expected sequence (without jitter): 1s, 2s, 4s, 8s, 16s, 32s, 60s, 60s...
		expected := []time.Duration{
			1 * time.Second,
			2 * time.Second,
			4 * time.Second,
			8 * time.Second,
			16 * time.Second,
			32 * time.Second,
			60 * time.Second,
			60 * time.Second, // Should stay at max
		}

		for i, exp := range expected {
			// Get the base (current) value before adding jitter
			base := b.Current()
			_ = b.Next() // Advance

			// Allow for some floating point imprecision
			if base < exp-time.Millisecond || base > exp+time.Millisecond {
				t.Errorf("Attempt %d: base = %v, want %v", i, base, exp)
			}
		}
	})

	t.Run("Jitter", func(t *testing.T) {
		b := NewBackoff()

		// Collect multiple samples to verify jitter is being applied
		samples := make([]time.Duration, 10)
		for i := range samples {
			samples[i] = b.Peek()
		}

		// All samples should be between 1s and 1.25s (with jitter)
		for i, s := range samples {
			if s < 1*time.Second || s > time.Duration(float64(1*time.Second)*1.25)+time.Millisecond {
				t.Errorf("Sample %d: %v out of expected range [1s, 1.25s]", i, s)
			}
		}

		// At least some samples should be different (jitter should vary)
		allSame := true
		for i := 1; i < len(samples); i++ {
			if samples[i] != samples[0] {
				allSame = false
				break
			}
		}
		if allSame {
			t.Error("All jittered samples are identical - jitter may not be working")
		}
	})

	t.Run("Reset", func(t *testing.T) {
		b := NewBackoff()

		// Advance a few times
		for i := 0; i < 5; i++ {
			b.Next()
		}

		if b.Current() <= InitialBackoff {
			t.Error("Backoff should have increased")
		}

		// Reset
		b.Reset()

		if b.Current() != InitialBackoff {
			t.Errorf("Current() = %v after reset, want %v", b.Current(), InitialBackoff)
		}
		if b.Attempts() != 0 {
			t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
		}
	})

	t.Run("Attempts", func(t *testing.T) {
		b := NewBackoff()

		if b.Attempts() != 0 {
			t.Errorf("Initial Attempts() = %d, want 0", b.Attempts())
		}

		for i := 1; i <= 5; i++ {
			b.Next()
			if b.Attempts() != i {
				t.Errorf("After %d calls, Attempts() = %d", i, b.Attempts())
			}
		}
	})

	t.Run("CustomConfig", func(t *testing.T) {
		b := NewBackoffWithConfig(BackoffConfig{
			Initial:    100 * time.Millisecond,
			Max:        500 * time.Millisecond,
			Multiplier: 2.0,
			Jitter:     0, // No jitter for deterministic test
		})

		expected := []time.Duration{
			100 * time.Millisecond,
			200 * time.Millisecond,
			400 * time.Millisecond,
			500 * time.Millisecond, // Max
			500 * time.Millisecond,
		}

		for i, exp := range expected {
			got := b.Next()
			if got != exp {
				t.Errorf("Attempt %d: got %v, want %v", i, got, exp)
			}
		}
	})
}

func TestManager(t *testing.T) {
	t.Run("InitialState", func(t *testing.T) {
		m := NewManager(func(ctx context.Context) error { return nil })
		defer m.Close()

		if m.State() != StateDisconnected {
			t.Errorf("Initial state = %v, want StateDisconnected", m.State())
		}
		if m.IsConnected() {
			t.Error("IsConnected() = true, want false")
		}
	})

	t.Run("SuccessfulConnect", func(t *testing.T) {
		connectCalled := false
		m := NewManager(func(ctx context.Context) error {
			connectCalled = true
			return nil
		})
		defer m.Close()

		var connectedCalled bool
		m.OnConnected(func() {
			connectedCalled = true
		})

		err := m.Connect(context.Background())
		if err != nil {
			t.Fatalf("Connect() error = %v", err)
		}

		if !connectCalled {
			t.Error("Connect function was not called")
		}
		if !connectedCalled {
			t.Error("OnConnected callback was not called")
		}
		if m.State() != StateConnected {
			t.Errorf("State() = %v, want StateConnected", m.State())
		}
	})

	t.Run("FailedConnect", func(t *testing.T) {
		expectedErr := errors.New("connection failed")
		m := NewManager(func(ctx context.Context) error {
			return expectedErr
		})
		defer m.Close()

		err := m.Connect(context.Background())
		if err != expectedErr {
			t.Errorf("Connect() error = %v, want %v", err, expectedErr)
		}
		if m.State() != StateDisconnected {
			t.Errorf("State() = %v, want StateDisconnected", m.State())
		}
	})

	t.Run("AlreadyConnected", func(t *testing.T) {
		m := NewManager(func(ctx context.Context) error { return nil })
		defer m.Close()

		m.Connect(context.Background())

		err := m.Connect(context.Background())
		if err != ErrAlreadyConnected {
			t.Errorf("Second Connect() error = %v, want ErrAlreadyConnected", err)
		}
	})

	t.Run("ConnectWhileConnecting", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		m := NewManager(func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
		defer m.Close()

		done := make(chan error, 1)
		go func() { done <- m.Connect(context.Background()) }()
		<-started

		// Only one goroutine may run the connect function at a time
		err := m.Connect(context.Background())
		if err != ErrConnectInProgress {
			t.Errorf("Connect() during attempt error = %v, want ErrConnectInProgress", err)
		}

		close(release)
		if err := <-done; err != nil {
			t.Errorf("First Connect() error = %v", err)
		}
	})

	t.Run("ConnectWhileReconnecting", func(t *testing.T) {
		var connectCount atomic.Int32
		m := NewManager(func(ctx context.Context) error {
			connectCount.Add(1)
			return nil
		})
		defer m.Close()

		m.mu.Lock()
		m.state = StateReconnecting
		m.reconnectStarted = time.Now()
		m.mu.Unlock()

		err := m.Connect(context.Background())
		if err != ErrConnectInProgress {
			t.Errorf("Connect() while reconnecting error = %v, want ErrConnectInProgress", err)
		}
		if connectCount.Load() != 0 {
			t.Errorf("Connect function ran %d times alongside the reconnect loop, want 0", connectCount.Load())
		}
	})

	t.Run("ConnectAfterClose", func(t *testing.T) {
		m := NewManager(func(ctx context.Context) error { return nil })
		m.Close()

		err := m.Connect(context.Background())
		if err != ErrManagerClosed {
			t.Errorf("Connect() after Close error = %v, want ErrManagerClosed", err)
		}
	})

	t.Run("Disconnect", func(t *testing.T) {
		m := NewManager(func(ctx context.Context) error { return nil })
		defer m.Close()

		m.Connect(context.Background())

		var disconnectedCalled bool
		m.OnDisconnected(func() {
			disconnectedCalled = true
		})

		m.Disconnect()

		if !disconnectedCalled {
			t.Error("OnDisconnected callback was not called")
		}
		if m.State() != StateDisconnected {
			t.Errorf("State() = %v, want StateDisconnected", m.State())
		}

		// Disconnect must not trigger reconnection even with auto-reconnect on
		m.Disconnect()
		if m.State() != StateDisconnected {
			t.Errorf("State() = %v after second Disconnect, want StateDisconnected", m.State())
		}
	})

	t.Run("ConnectionLostWithoutReconnect", func(t *testing.T) {
		m := NewManager(func(ctx context.Context) error { return nil })
		m.SetAutoReconnect(false) // Disable auto-reconnect for this test
		defer m.Close()

		m.Connect(context.Background())

		var disconnectedCalled bool
		m.OnDisconnected(func() {
			disconnectedCalled = true
		})

		m.ConnectionLost()

		if !disconnectedCalled {
			t.Error("OnDisconnected callback was not called")
		}
		if m.State() != StateDisconnected {
			t.Errorf("State() = %v, want StateDisconnected", m.State())
		}
	})

	t.Run("ConnectionLostWhileDisconnected", func(t *testing.T) {
		m := NewManager(func(ctx context.Context) error { return nil })
		defer m.Close()

		var disconnectedCalled bool
		m.OnDisconnected(func() {
			disconnectedCalled = true
		})

		// Loss report with no active connection must be ignored
		m.ConnectionLost()

		if disconnectedCalled {
			t.Error("OnDisconnected fired without a connection")
		}
		if m.State() != StateDisconnected {
			t.Errorf("State() = %v, want StateDisconnected", m.State())
		}
	})

	t.Run("StateChangeCallback", func(t *testing.T) {
		m := NewManager(func(ctx context.Context) error { return nil })
		m.SetAutoReconnect(false)
		defer m.Close()

		var transitions []struct{ old, new State }
		m.OnStateChange(func(old, new State) {
			transitions = append(transitions, struct{ old, new State }{old, new})
		})

		m.Connect(context.Background())
		m.ConnectionLost()

		expected := []struct{ old, new State }{
			{StateDisconnected, StateConnecting},
			{StateConnecting, StateConnected},
			{StateConnected, StateDisconnected},
		}

		if len(transitions) != len(expected) {
			t.Fatalf("Got %d transitions, want %d", len(transitions), len(expected))
		}

		for i, exp := range expected {
			if transitions[i].old != exp.old || transitions[i].new != exp.new {
				t.Errorf("Transition %d: got %v->%v, want %v->%v",
					i, transitions[i].old, transitions[i].new, exp.old, exp.new)
			}
		}
	})
}

func TestManagerReconnect(t *testing.T) {
	t.Run("AutoReconnectOnLoss", func(t *testing.T) {
		var connectCount atomic.Int32
		m := NewManager(func(ctx context.Context) error {
			connectCount.Add(1)
			return nil
		})
		m.SetBackoff(NewBackoffWithConfig(BackoffConfig{
			Initial:    20 * time.Millisecond,
			Max:        100 * time.Millisecond,
			Multiplier: 2.0,
			Jitter:     0,
		}))
		m.StartReconnectLoop()
		defer m.Close()

		// Initial connect
		err := m.Connect(context.Background())
		if err != nil {
			t.Fatalf("Initial Connect() error = %v", err)
		}

		// Trigger loss - should start reconnecting
		m.ConnectionLost()

		// Wait for reconnection
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) && m.State() != StateConnected {
			time.Sleep(5 * time.Millisecond)
		}

		if m.State() != StateConnected {
			t.Errorf("State() = %v, want StateConnected after reconnect", m.State())
		}
		if connectCount.Load() < 2 {
			t.Errorf("Connect was only called %d times, want at least 2", connectCount.Load())
		}
	})

	t.Run("BackoffOnFailure", func(t *testing.T) {
		var connectCount atomic.Int32
		var mu sync.Mutex
		var attempts []time.Time

		m := NewManager(func(ctx context.Context) error {
			mu.Lock()
			attempts = append(attempts, time.Now())
			mu.Unlock()

			count := connectCount.Add(1)
			if count < 3 {
				return errors.New("not yet")
			}
			return nil // Third attempt succeeds
		})

		// Use shorter backoff for testing
		m.SetBackoff(NewBackoffWithConfig(BackoffConfig{
			Initial:    50 * time.Millisecond,
			Max:        200 * time.Millisecond,
			Multiplier: 2.0,
			Jitter:     0,
		}))

		m.StartReconnectLoop()
		defer m.Close()

		// Start in reconnecting state
		m.mu.Lock()
		m.state = StateReconnecting
		m.reconnectStarted = time.Now()
		m.mu.Unlock()
		m.triggerReconnect()

		// Wait for reconnection
		time.Sleep(500 * time.Millisecond)

		mu.Lock()
		attemptsCopy := make([]time.Time, len(attempts))
		copy(attemptsCopy, attempts)
		mu.Unlock()

		if len(attemptsCopy) < 3 {
			t.Fatalf("Expected at least 3 attempts, got %d", len(attemptsCopy))
		}

		// Verify backoff is being applied
		// Delays include backoff time plus execution time
		delay1 := attemptsCopy[1].Sub(attemptsCopy[0])
		if delay1 < 30*time.Millisecond {
			t.Errorf("First delay = %v, expected at least 30ms", delay1)
		}

		if m.State() != StateConnected {
			t.Errorf("Final state = %v, want StateConnected", m.State())
		}
	})

	t.Run("DisabledAutoReconnect", func(t *testing.T) {
		var connectCount atomic.Int32
		m := NewManager(func(ctx context.Context) error {
			connectCount.Add(1)
			return nil
		})
		m.SetAutoReconnect(false)
		m.StartReconnectLoop()
		defer m.Close()

		m.Connect(context.Background())
		m.ConnectionLost()

		// Wait a bit
		time.Sleep(100 * time.Millisecond)

		if m.State() != StateDisconnected {
			t.Errorf("State() = %v, want StateDisconnected (no auto-reconnect)", m.State())
		}

		if connectCount.Load() != 1 {
			t.Errorf("Connect called %d times, want 1 (no reconnection)", connectCount.Load())
		}
	})

	t.Run("GiveUpAfterWindow", func(t *testing.T) {
		m := NewManager(func(ctx context.Context) error {
			return errors.New("still down")
		})
		m.SetBackoff(NewBackoffWithConfig(BackoffConfig{
			Initial:    10 * time.Millisecond,
			Max:        20 * time.Millisecond,
			Multiplier: 2.0,
			Jitter:     0,
		}))
		m.SetReconnectWindow(80 * time.Millisecond)
		m.StartReconnectLoop()
		defer m.Close()

		gaveUp := make(chan struct{}, 1)
		m.OnGaveUp(func() { gaveUp <- struct{}{} })

		m.mu.Lock()
		m.state = StateReconnecting
		m.reconnectStarted = time.Now()
		m.mu.Unlock()
		m.triggerReconnect()

		select {
		case <-gaveUp:
		case <-time.After(2 * time.Second):
			t.Fatal("manager never gave up after the reconnect window closed")
		}

		if m.State() != StateDisconnected {
			t.Errorf("State() = %v, want StateDisconnected after giving up", m.State())
		}
	})

	t.Run("ReconnectingCallback", func(t *testing.T) {
		m := NewManager(func(ctx context.Context) error { return nil })
		m.SetBackoff(NewBackoffWithConfig(BackoffConfig{
			Initial:    10 * time.Millisecond,
			Max:        20 * time.Millisecond,
			Multiplier: 2.0,
			Jitter:     0,
		}))
		m.StartReconnectLoop()
		defer m.Close()

		type notice struct {
			attempt int
			delay   time.Duration
		}
		notices := make(chan notice, 10)
		m.OnReconnecting(func(attempt int, delay time.Duration) {
			notices <- notice{attempt, delay}
		})

		m.Connect(context.Background())
		m.ConnectionLost()

		select {
		case n := <-notices:
			if n.attempt != 1 {
				t.Errorf("first attempt number = %d, want 1", n.attempt)
			}
			if n.delay != 10*time.Millisecond {
				t.Errorf("first delay = %v, want 10ms", n.delay)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("OnReconnecting never fired")
		}
	})
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateDisconnected, "DISCONNECTED"},
		{StateConnecting, "CONNECTING"},
		{StateConnected, "CONNECTED"},
		{StateReconnecting, "RECONNECTING"},
		{StateClosed, "CLOSED"},
		{State(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}
