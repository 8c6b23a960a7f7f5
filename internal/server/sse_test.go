package server

import (
	"fmt"
	"testing"
)

func TestMatchTopicPattern(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"tangle.task.created", "tangle.task.created", true},
		{"tangle.task.created", "tangle.task.deleted", false},
		{"tangle.task.*", "tangle.task.created", true},
		{"tangle.task.*", "tangle.tag.created", false},
		{"tangle.*.created", "tangle.tag.created", true},
		{"tangle.>", "tangle.task.created", true},
		{"tangle.>", "tangle.tag.merged", true},
		{"tangle.>", "tangle", false},
		{"tangle.task.*", "tangle.task", false},
		{"tangle.task", "tangle.task.created", false},
	}
	for _, tt := range tests {
		if got := matchTopicPattern(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("matchTopicPattern(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func drainEvents(c *sseClient) []*sseEvent {
	var out []*sseEvent
	for {
		select {
		case evt := <-c.ch:
			out = append(out, evt)
		default:
			return out
		}
	}
}

func TestSSEHubOwnerScoping(t *testing.T) {
	hub := newSSEHub()
	alice := hub.subscribe("user-alice", nil)
	bob := hub.subscribe("user-bob", nil)
	defer hub.unsubscribe(alice)
	defer hub.unsubscribe(bob)

	hub.broadcast("user-alice", "tangle.task.created", []byte(`{"n":1}`))
	hub.broadcast("user-bob", "tangle.task.created", []byte(`{"n":2}`))

	got := drainEvents(alice)
	if len(got) != 1 || string(got[0].Data) != `{"n":1}` {
		t.Errorf("alice received %v", got)
	}
	got = drainEvents(bob)
	if len(got) != 1 || string(got[0].Data) != `{"n":2}` {
		t.Errorf("bob received %v", got)
	}
}

func TestSSEHubTopicFilter(t *testing.T) {
	hub := newSSEHub()
	c := hub.subscribe("u1", []string{"tangle.tag.*"})
	defer hub.unsubscribe(c)

	hub.broadcast("u1", "tangle.task.created", []byte(`{}`))
	hub.broadcast("u1", "tangle.tag.created", []byte(`{}`))
	hub.broadcast("u1", "tangle.tag.merged", []byte(`{}`))

	got := drainEvents(c)
	if len(got) != 2 {
		t.Fatalf("received %d events, want 2", len(got))
	}
	if got[0].Topic != "tangle.tag.created" || got[1].Topic != "tangle.tag.merged" {
		t.Errorf("topics = %q, %q", got[0].Topic, got[1].Topic)
	}
}

func TestSSEHubUnsubscribe(t *testing.T) {
	hub := newSSEHub()
	c := hub.subscribe("u1", nil)
	hub.unsubscribe(c)

	hub.broadcast("u1", "tangle.task.created", []byte(`{}`))
	if got := drainEvents(c); len(got) != 0 {
		t.Errorf("received %d events after unsubscribe", len(got))
	}
}

func TestSSEHubEventsSince(t *testing.T) {
	hub := newSSEHub()

	for i := range 5 {
		hub.broadcast("u1", "tangle.task.created", fmt.Appendf(nil, `{"n":%d}`, i))
	}

	all := hub.eventsSince(0)
	if len(all) != 5 {
		t.Fatalf("eventsSince(0) = %d events, want 5", len(all))
	}

	tail := hub.eventsSince(all[2].ID)
	if len(tail) != 2 {
		t.Fatalf("eventsSince(%d) = %d events, want 2", all[2].ID, len(tail))
	}
	if tail[0].ID != all[3].ID {
		t.Errorf("first replayed id = %d, want %d", tail[0].ID, all[3].ID)
	}
}

func TestSSEHubRingBufferWraps(t *testing.T) {
	hub := newSSEHub()

	total := sseRingBufferSize + 10
	for i := 0; i < total; i++ {
		hub.broadcast("u1", "tangle.task.created", []byte(`{}`))
	}

	events := hub.eventsSince(0)
	if len(events) != sseRingBufferSize {
		t.Fatalf("buffer holds %d events, want %d", len(events), sseRingBufferSize)
	}
	// The oldest surviving event is the one just past the overwritten window.
	if events[0].ID != uint64(total-sseRingBufferSize+1) {
		t.Errorf("oldest id = %d, want %d", events[0].ID, total-sseRingBufferSize+1)
	}
}

func TestSSEHubSlowClientDoesNotBlock(t *testing.T) {
	hub := newSSEHub()
	c := hub.subscribe("u1", nil)
	defer hub.unsubscribe(c)

	// Overflow the client's buffer; broadcast must not block.
	for i := 0; i < 200; i++ {
		hub.broadcast("u1", "tangle.task.created", []byte(`{}`))
	}

	if got := drainEvents(c); len(got) != cap(c.ch) {
		t.Errorf("buffered %d events, want %d (rest dropped)", len(got), cap(c.ch))
	}
}
