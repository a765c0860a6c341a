package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"sync"

	"github.com/df07/go-interactive-pathtracer/pkg/renderer"
	"github.com/labstack/echo/v4"
)

// SSEEvent is a single server-sent event
type SSEEvent struct {
	Type string // "frame", "console"
	Data string // JSON-encoded payload
}

// FrameUpdate is the payload of a "frame" event
type FrameUpdate struct {
	Width         int     `json:"width"`
	Height        int     `json:"height"`
	Samples       int     `json:"samples"`
	Iterations    int     `json:"iterations"`
	Restarts      int     `json:"restarts"`
	DurationMs    int64   `json:"durationMs"`
	ElapsedMs     int64   `json:"elapsedMs"`
	RaysPerSecond float64 `json:"raysPerSecond"`
	IsComplete    bool    `json:"isComplete"`
	ImageData     string  `json:"imageData"` // Base64 encoded PNG
}

// Broadcaster fans events out to every connected stream. Slow subscribers
// miss events instead of blocking the publisher.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[chan SSEEvent]struct{}
}

// NewBroadcaster creates an empty broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[chan SSEEvent]struct{})}
}

// Subscribe registers a new subscriber. The returned function unsubscribes.
func (b *Broadcaster) Subscribe() (<-chan SSEEvent, func()) {
	ch := make(chan SSEEvent, 16)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		delete(b.subscribers, ch)
		b.mu.Unlock()
	}
}

// Publish sends an event to every subscriber
func (b *Broadcaster) Publish(event SSEEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is behind, drop the event
		}
	}
}

// Subscribers returns the number of connected streams
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// publishFrames encodes every presented frame and broadcasts it
func (s *Server) publishFrames(frames <-chan renderer.FrameResult) {
	for frame := range frames {
		if s.events.Subscribers() == 0 {
			continue
		}

		event, err := newFrameEvent(frame)
		if err != nil {
			s.logger.Errorf("Failed to encode frame: %v", err)
			continue
		}
		s.events.Publish(event)
	}
}

func newFrameEvent(frame renderer.FrameResult) (SSEEvent, error) {
	imageData, err := imageToBase64PNG(frame.Image)
	if err != nil {
		return SSEEvent{}, err
	}

	stats := frame.Stats
	data, err := json.Marshal(FrameUpdate{
		Width:         stats.Width,
		Height:        stats.Height,
		Samples:       stats.Samples,
		Iterations:    stats.Iterations,
		Restarts:      stats.Restarts,
		DurationMs:    stats.Duration.Milliseconds(),
		ElapsedMs:     stats.Elapsed.Milliseconds(),
		RaysPerSecond: stats.RaysPerSecond(),
		IsComplete:    frame.IsLast,
		ImageData:     imageData,
	})
	if err != nil {
		return SSEEvent{}, err
	}

	return SSEEvent{Type: "frame", Data: string(data)}, nil
}

// handleStream streams frame and console events until the client disconnects
func (s *Server) handleStream(c echo.Context) error {
	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	events, unsubscribe := s.events.Subscribe()
	defer unsubscribe()

	// Send what is on screen now so the client doesn't wait for the next iteration
	if frame := s.renderer.Frame(); frame != nil {
		event, err := newFrameEvent(renderer.FrameResult{Image: frame, Stats: s.renderer.Stats()})
		if err == nil {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data)
			w.Flush()
		}
	}

	s.logger.Info("Stream client connected")
	defer s.logger.Info("Stream client disconnected")

	ctx := c.Request().Context()
	for {
		select {
		case event := <-events:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data); err != nil {
				// Client disconnected during write
				return nil
			}
			w.Flush()

		case <-ctx.Done():
			return nil
		}
	}
}

// handleFrame returns the latest presented frame as a PNG
func (s *Server) handleFrame(c echo.Context) error {
	frame := s.renderer.Frame()
	if frame == nil {
		return errorJSON(c, http.StatusNotFound, "no frame rendered yet")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "failed to encode frame: %v", err)
	}
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

// handleStats returns statistics for the latest frame
func (s *Server) handleStats(c echo.Context) error {
	stats := s.renderer.Stats()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"width":         stats.Width,
		"height":        stats.Height,
		"samples":       stats.Samples,
		"iterations":    stats.Iterations,
		"restarts":      stats.Restarts,
		"tiles":         stats.Tiles,
		"workers":       stats.Workers,
		"durationMs":    stats.Duration.Milliseconds(),
		"elapsedMs":     stats.Elapsed.Milliseconds(),
		"raysPerSecond": stats.RaysPerSecond(),
	})
}

// imageToBase64PNG converts an image to base64-encoded PNG
func imageToBase64PNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
