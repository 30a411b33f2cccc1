package transport

import (
	"sync"
)

// StartTracker tracks one Start invocation's handshake. It becomes
// terminal exactly once: MessageReceived resolves it successfully, Fail
// resolves it with an error. Whichever happens first wins; later calls
// are no-ops.
type StartTracker struct {
	mu        sync.Mutex
	done      chan struct{}
	err       error
	resolved  bool
	onFailure []func(error)
}

// NewStartTracker creates an unresolved tracker.
func NewStartTracker() *StartTracker {
	return &StartTracker{done: make(chan struct{})}
}

// OnFailure registers a callback invoked if the tracker fails. If the
// tracker has already failed, fn runs immediately on the calling
// goroutine.
func (t *StartTracker) OnFailure(fn func(error)) {
	t.mu.Lock()
	if t.resolved && t.err != nil {
		err := t.err
		t.mu.Unlock()
		fn(err)
		return
	}
	t.onFailure = append(t.onFailure, fn)
	t.mu.Unlock()
}

// MessageReceived marks the handshake complete. No-op once resolved.
func (t *StartTracker) MessageReceived() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.resolved {
		return
	}
	t.resolved = true
	close(t.done)
}

// Fail resolves the tracker with err and runs the failure callbacks.
// No-op once resolved.
func (t *StartTracker) Fail(err error) {
	t.mu.Lock()
	if t.resolved {
		t.mu.Unlock()
		return
	}
	t.resolved = true
	t.err = err
	callbacks := t.onFailure
	t.onFailure = nil
	close(t.done)
	t.mu.Unlock()

	// Callbacks run outside the lock; they may call back into the
	// transport (socket disposal).
	for _, fn := range callbacks {
		fn(err)
	}
}

// Done returns a channel closed when the tracker resolves.
func (t *StartTracker) Done() <-chan struct{} {
	return t.done
}

// Err returns the failure, or nil for success or an unresolved tracker.
func (t *StartTracker) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
