package events

import (
	"sync"
	"time"
)

// Event is one pipeline occurrence pushed to live subscribers.
type Event struct {
	Type      string    `json:"type"` // run_started, track_queued, track_failed, run_completed
	TrackID   int64     `json:"trackId,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Processed int       `json:"processed,omitempty"`
	At        time.Time `json:"at"`
}

const (
	TypeRunStarted   = "run_started"
	TypeTrackQueued  = "track_queued"
	TypeTrackFailed  = "track_failed"
	TypeRunCompleted = "run_completed"
)

// Hub fans pipeline events out to live subscribers (the websocket stream).
// Slow subscribers are dropped rather than allowed to stall the pipeline.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[chan Event]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[chan Event]struct{}),
	}
}

// Subscribe registers a new subscriber channel.
func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish delivers an event to every subscriber that can take it now.
func (h *Hub) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			// subscriber is not keeping up, skip it
		}
	}
}
