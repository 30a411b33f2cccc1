package log

import (
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeTestLog(t *testing.T, events []Event) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.plog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func readAll(t *testing.T, path string, filter Filter) []Event {
	t.Helper()

	reader, err := NewFilteredReader(path, filter)
	if err != nil {
		t.Fatalf("NewFilteredReader failed: %v", err)
	}
	defer reader.Close()

	var events []Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return events
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		events = append(events, event)
	}
}

func TestFileLoggerWriteAndReadBack(t *testing.T) {
	events := []Event{
		NewFrameEvent("conn-1", DirectionIn, `{"S":1}`),
		NewFrameEvent("conn-1", DirectionOut, `{"M":["hi"]}`),
		NewStateChangeEvent("conn-1", "CONNECTING", "CONNECTED", ""),
	}
	path := writeTestLog(t, events)

	got := readAll(t, path, Filter{})
	if len(got) != len(events) {
		t.Fatalf("read %d events, want %d", len(got), len(events))
	}

	if got[0].Frame == nil || got[0].Frame.Data != `{"S":1}` {
		t.Errorf("first event frame = %+v", got[0].Frame)
	}
	if got[1].Direction != DirectionOut {
		t.Errorf("second event direction = %v, want DirectionOut", got[1].Direction)
	}
	if got[2].StateChange == nil || got[2].StateChange.NewState != "CONNECTED" {
		t.Errorf("third event state change = %+v", got[2].StateChange)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "append.plog")

	for i := 0; i < 2; i++ {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(NewFrameEvent("conn-1", DirectionIn, "{}"))
		logger.Close()
	}

	if got := readAll(t, path, Filter{}); len(got) != 2 {
		t.Errorf("read %d events after two sessions, want 2", len(got))
	}
}

func TestFileLoggerCloseIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "close.plog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	// Logging after close must be a silent no-op.
	logger.Log(NewFrameEvent("conn-1", DirectionIn, "{}"))

	if got := readAll(t, path, Filter{}); len(got) != 0 {
		t.Errorf("read %d events from closed logger, want 0", len(got))
	}
}

func TestFileLoggerConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concurrent.plog")
	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				logger.Log(NewFrameEvent("conn-1", DirectionIn, "{}"))
			}
		}()
	}
	wg.Wait()
	logger.Close()

	if got := readAll(t, path, Filter{}); len(got) != 200 {
		t.Errorf("read %d events, want 200", len(got))
	}
}

func TestReaderFilters(t *testing.T) {
	base := time.Now()
	events := []Event{
		NewFrameEvent("conn-1", DirectionIn, "{}"),
		NewFrameEvent("conn-1", DirectionOut, `{"M":["x"]}`),
		NewFrameEvent("conn-2", DirectionIn, "{}"),
		NewStateChangeEvent("conn-1", "CONNECTED", "RECONNECTING", ""),
		NewKeepAliveEvent("conn-1", 25*time.Second, true),
	}
	for i := range events {
		events[i].Timestamp = base.Add(time.Duration(i) * time.Second)
	}
	events[0].Transport = "webSockets"
	path := writeTestLog(t, events)

	t.Run("ByConnection", func(t *testing.T) {
		got := readAll(t, path, Filter{ConnectionID: "conn-2"})
		if len(got) != 1 {
			t.Errorf("got %d events, want 1", len(got))
		}
	})

	t.Run("ByDirection", func(t *testing.T) {
		dir := DirectionOut
		got := readAll(t, path, Filter{Direction: &dir})
		if len(got) != 1 {
			t.Fatalf("got %d events, want 1", len(got))
		}
		if got[0].Frame.Data != `{"M":["x"]}` {
			t.Errorf("wrong event matched: %+v", got[0])
		}
	})

	t.Run("ByCategory", func(t *testing.T) {
		cat := CategoryState
		got := readAll(t, path, Filter{Category: &cat})
		if len(got) != 1 {
			t.Errorf("got %d events, want 1", len(got))
		}
	})

	t.Run("ByTransport", func(t *testing.T) {
		got := readAll(t, path, Filter{Transport: "webSockets"})
		if len(got) != 1 {
			t.Errorf("got %d events, want 1", len(got))
		}
	})

	t.Run("ByTimeRange", func(t *testing.T) {
		start := base.Add(500 * time.Millisecond)
		end := base.Add(3500 * time.Millisecond)
		got := readAll(t, path, Filter{TimeStart: &start, TimeEnd: &end})
		if len(got) != 3 {
			t.Errorf("got %d events, want 3", len(got))
		}
	})

	t.Run("Combined", func(t *testing.T) {
		dir := DirectionIn
		got := readAll(t, path, Filter{ConnectionID: "conn-1", Direction: &dir})
		if len(got) != 1 {
			t.Errorf("got %d events, want 1", len(got))
		}
	})
}

func TestMultiLogger(t *testing.T) {
	var first, second capture

	multi := NewMultiLogger(&first, &second)
	multi.Log(NewFrameEvent("conn-1", DirectionIn, "{}"))

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Errorf("event counts = %d, %d; want 1, 1", len(first.events), len(second.events))
	}
}

// capture is a Logger that records events in memory.
type capture struct {
	mu     sync.Mutex
	events []Event
}

func (c *capture) Log(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}
