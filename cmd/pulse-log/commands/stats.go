package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pulse-protocol/pulse-go/pkg/log"
)

// Stats holds aggregate statistics for a log file.
type Stats struct {
	TotalEvents int
	ByDirection map[string]int
	ByCategory  map[string]int
	Connections map[string]int
	Errors      int
	FrameBytes  int
	FirstEvent  time.Time
	LastEvent   time.Time
}

// RunStats reads the log file and prints aggregate statistics to w.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := Stats{
		ByDirection: make(map[string]int),
		ByCategory:  make(map[string]int),
		Connections: make(map[string]int),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	stats.print(w)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.ByDirection[event.Direction.String()]++
	s.ByCategory[event.Category.String()]++
	s.Connections[event.ConnectionID]++

	if event.Category == log.CategoryError {
		s.Errors++
	}
	if event.Frame != nil {
		s.FrameBytes += event.Frame.Size
	}

	if s.FirstEvent.IsZero() || event.Timestamp.Before(s.FirstEvent) {
		s.FirstEvent = event.Timestamp
	}
	if event.Timestamp.After(s.LastEvent) {
		s.LastEvent = event.Timestamp
	}
}

func (s *Stats) print(w io.Writer) {
	fmt.Fprintf(w, "Total events: %d\n", s.TotalEvents)
	if s.TotalEvents == 0 {
		return
	}

	fmt.Fprintf(w, "Time range:   %s to %s (%v)\n",
		s.FirstEvent.UTC().Format(time.RFC3339),
		s.LastEvent.UTC().Format(time.RFC3339),
		s.LastEvent.Sub(s.FirstEvent).Round(time.Millisecond))
	fmt.Fprintf(w, "Frame bytes:  %d\n", s.FrameBytes)
	fmt.Fprintf(w, "Errors:       %d\n", s.Errors)

	fmt.Fprintln(w, "\nBy direction:")
	printCounts(w, s.ByDirection)

	fmt.Fprintln(w, "\nBy category:")
	printCounts(w, s.ByCategory)

	fmt.Fprintln(w, "\nBy connection:")
	for _, id := range sortedKeys(s.Connections) {
		fmt.Fprintf(w, "  %s: %d\n", shortenConnID(id), s.Connections[id])
	}
}

func printCounts(w io.Writer, counts map[string]int) {
	for _, key := range sortedKeys(counts) {
		fmt.Fprintf(w, "  %-10s %d\n", key, counts[key])
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
