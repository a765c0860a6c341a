package server

import (
	"encoding/json"
	"testing"
	"time"
)

func receiveEvent(t *testing.T, events <-chan SSEEvent) SSEEvent {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for event")
	}
	return SSEEvent{}
}

func TestConsoleWriter_PublishesLines(t *testing.T) {
	events := NewBroadcaster()
	sub, unsubscribe := events.Subscribe()
	defer unsubscribe()

	cw := NewConsoleWriter(events)
	input := "\x1b[32m[12:00:00.000] [renderer] [NOTICE]\x1b[0m Reached 5 samples per pixel\n[12:00:01.000] [server] [WARNING] slow\n\n"

	n, err := cw.Write([]byte(input))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != len(input) {
		t.Errorf("Expected %d bytes written, got %d", len(input), n)
	}

	tests := []struct {
		message string
		level   string
	}{
		{"[12:00:00.000] [renderer] [NOTICE] Reached 5 samples per pixel", "notice"},
		{"[12:00:01.000] [server] [WARNING] slow", "warning"},
	}

	for _, tt := range tests {
		event := receiveEvent(t, sub)
		if event.Type != "console" {
			t.Errorf("Expected console event, got %q", event.Type)
		}

		var msg ConsoleMessage
		if err := json.Unmarshal([]byte(event.Data), &msg); err != nil {
			t.Fatalf("Invalid console payload: %v", err)
		}
		if msg.Message != tt.message {
			t.Errorf("Expected message %q, got %q", tt.message, msg.Message)
		}
		if msg.Level != tt.level {
			t.Errorf("Expected level %q, got %q", tt.level, msg.Level)
		}
		if time.Since(msg.Timestamp) > time.Minute {
			t.Errorf("Timestamp seems too old: %v", msg.Timestamp)
		}
	}

	select {
	case event := <-sub:
		t.Errorf("Expected blank lines to be skipped, got %v", event)
	default:
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		line     string
		expected string
	}{
		{"[t] [m] [DEBUG] x", "debug"},
		{"[t] [m] [ERROR] x", "error"},
		{"no level at all", "info"},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.line); got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}
}

func TestBroadcaster_DropsForSlowSubscribers(t *testing.T) {
	b := NewBroadcaster()
	sub, unsubscribe := b.Subscribe()

	for i := 0; i < 100; i++ {
		b.Publish(SSEEvent{Type: "console", Data: "{}"})
	}

	if got := len(sub); got != cap(sub) {
		t.Errorf("Expected subscriber buffer to be full (%d), got %d", cap(sub), got)
	}

	unsubscribe()
	if b.Subscribers() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", b.Subscribers())
	}
}
