package pinauth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHubPublishSubscribe(t *testing.T) {
	hub := NewHub()
	ch, unsub := hub.Subscribe("s1")
	defer unsub()

	hub.Publish("s1", Event{Type: "verified"})
	hub.Publish("other", Event{Type: "ignored"})

	select {
	case evt := <-ch:
		assert.Equal(t, "verified", evt.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	select {
	case evt := <-ch:
		t.Fatalf("unexpected event %q", evt.Type)
	default:
	}
}

func TestHubPublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Publish("nobody", Event{Type: "verified"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
}

func TestHubSkipsSlowSubscriber(t *testing.T) {
	hub := NewHub()
	ch, unsub := hub.Subscribe("s1")
	defer unsub()

	// Overfill the buffer; the extras are dropped, not blocked on.
	for i := 0; i < 64; i++ {
		hub.Publish("s1", Event{Type: "tick"})
	}
	assert.Equal(t, 16, len(ch))
}

func TestHubUnsubscribeRemovesTopic(t *testing.T) {
	hub := NewHub()
	_, unsub := hub.Subscribe("s1")
	unsub()

	hub.mu.Lock()
	defer hub.mu.Unlock()
	assert.Empty(t, hub.subs)
}
