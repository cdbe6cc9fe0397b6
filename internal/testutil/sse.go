package testutil

import (
	"bufio"
	"strings"
	"testing"
)

// SSEEvent is one parsed Server-Sent Event.
type SSEEvent struct {
	Type string
	Data string
}

// ParseSSEEvents parses an SSE response body into structured events.
// Multiple data: lines within one event are joined with newlines, a blank
// line terminates an event, data without an explicit event type defaults
// to "message", and comment lines starting with ":" are skipped.
func ParseSSEEvents(t *testing.T, body string) []SSEEvent {
	t.Helper()

	var events []SSEEvent
	var current SSEEvent
	var dataLines []string

	flush := func() {
		if current.Type == "" && len(dataLines) == 0 {
			return
		}
		current.Data = strings.Join(dataLines, "\n")
		events = append(events, current)
		current = SSEEvent{}
		dataLines = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event: "):
			current.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if current.Type == "" {
				current.Type = "message"
			}
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case strings.HasPrefix(line, "data:"):
			if current.Type == "" {
				current.Type = "message"
			}
			dataLines = append(dataLines, strings.TrimPrefix(line, "data:"))
		default:
			t.Fatalf("unrecognized SSE line: %q", line)
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scanning SSE body: %v", err)
	}
	flush()

	return events
}
