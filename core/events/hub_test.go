package events

import (
	"testing"
	"time"
)

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub()
	a := hub.Subscribe()
	b := hub.Subscribe()

	hub.Publish(Event{Type: TypeTrackQueued, TrackID: 7})

	for _, ch := range []chan Event{a, b} {
		select {
		case event := <-ch:
			if event.Type != TypeTrackQueued || event.TrackID != 7 {
				t.Errorf("event = %+v", event)
			}
			if event.At.IsZero() {
				t.Error("event timestamp was not set")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the event")
		}
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	hub.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("channel still open after Unsubscribe")
	}
	// A second Unsubscribe must not panic.
	hub.Unsubscribe(ch)
	// Publishing after unsubscribe must not panic either.
	hub.Publish(Event{Type: TypeRunCompleted})
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()

	// Fill the buffer, then publish beyond it: Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			hub.Publish(Event{Type: TypeRunStarted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
	hub.Unsubscribe(ch)
}
