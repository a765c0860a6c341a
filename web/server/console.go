package server

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// ConsoleMessage represents a console message with timestamp
type ConsoleMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"` // "debug", "info", "notice", "warning", "error"
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// ConsoleWriter turns formatted log output into "console" stream events.
// It is meant to be installed as (part of) the log sink.
type ConsoleWriter struct {
	events *Broadcaster
}

// NewConsoleWriter creates a writer publishing to events
func NewConsoleWriter(events *Broadcaster) *ConsoleWriter {
	return &ConsoleWriter{events: events}
}

// Write publishes one message per non-empty line of p. It never fails.
func (cw *ConsoleWriter) Write(p []byte) (int, error) {
	text := ansiEscape.ReplaceAllString(string(p), "")

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		data, err := json.Marshal(ConsoleMessage{
			Message:   line,
			Timestamp: time.Now(),
			Level:     parseLevel(line),
		})
		if err != nil {
			continue
		}
		cw.events.Publish(SSEEvent{Type: "console", Data: string(data)})
	}

	return len(p), nil
}

// parseLevel extracts the level tag written by the log format
func parseLevel(line string) string {
	for _, level := range []string{"DEBUG", "INFO", "NOTICE", "WARNING", "ERROR", "CRITICAL"} {
		if strings.Contains(line, "["+level+"]") {
			return strings.ToLower(level)
		}
	}
	return "info"
}
