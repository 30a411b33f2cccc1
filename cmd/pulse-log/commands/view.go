// Package commands implements the pulse-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/pulse-protocol/pulse-go/pkg/log"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Direction *log.Direction
	Category  *log.Category
	ConnID    string
}

// RunView reads the log file and prints matching events to w.
func RunView(path string, filter ViewFilter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, log.Filter{
		ConnectionID: filter.ConnID,
		Direction:    filter.Direction,
		Category:     filter.Category,
	})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s\n", ts, connID, event.Direction, event.Category)

	switch {
	case event.Frame != nil:
		data := event.Frame.Data
		suffix := ""
		if event.Frame.Truncated {
			suffix = " (truncated)"
		}
		fmt.Fprintf(w, "  %d bytes%s: %s\n", event.Frame.Size, suffix, data)
	case event.StateChange != nil:
		fmt.Fprintf(w, "  %s -> %s", event.StateChange.OldState, event.StateChange.NewState)
		if event.StateChange.Reason != "" {
			fmt.Fprintf(w, " (%s)", event.StateChange.Reason)
		}
		fmt.Fprintln(w)
	case event.KeepAlive != nil:
		kind := "timeout"
		if event.KeepAlive.Warning {
			kind = "warning"
		}
		fmt.Fprintf(w, "  %s, %v since last message\n", kind, event.KeepAlive.SinceLastMessage)
	case event.Error != nil:
		fmt.Fprintf(w, "  %s", event.Error.Message)
		if event.Error.Context != "" {
			fmt.Fprintf(w, " [%s]", event.Error.Context)
		}
		if event.Error.Recoverable {
			fmt.Fprint(w, " (recoverable)")
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// ParseDirectionFlag converts a -direction flag value.
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	case "none", "-":
		return log.DirectionNone, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (in, out, none)", s)
	}
}

// ParseCategoryFlag converts a -category flag value.
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "frame":
		return log.CategoryFrame, nil
	case "state":
		return log.CategoryState, nil
	case "keepalive":
		return log.CategoryKeepAlive, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("unknown category %q (frame, state, keepalive, error)", s)
	}
}
