package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prepwise/prepwise/internal/call"
	"github.com/prepwise/prepwise/internal/interview"
)

func TestHubBroadcastEventShape(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	hub.TranscriptAppended("sess-1", interview.Utterance{
		Speaker: interview.SpeakerUser,
		Text:    "test line",
	})

	select {
	case msg := <-ch:
		var payload map[string]any
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if payload["type"] != "transcript" {
			t.Fatalf("expected event type transcript, got %#v", payload["type"])
		}
		if payload["session_id"] != "sess-1" {
			t.Fatalf("expected session id in payload: %s", string(msg))
		}
		if payload["version"] == nil || payload["timestamp"] == nil {
			t.Fatalf("missing envelope fields in payload: %s", string(msg))
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for broadcast")
	}
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	hub := NewHub()
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	// Fill the subscriber buffer; further broadcasts must not block.
	for i := 0; i < cap(ch)+10; i++ {
		hub.StatusChanged("sess-1", call.StatusActive)
	}
}

func TestEventSerialization(t *testing.T) {
	events := []any{
		SessionStatusEvent{Event: newEvent("session_status", time.Unix(1, 0)), SessionID: "abc", Status: "active"},
		TranscriptEvent{Event: newEvent("transcript", time.Unix(1, 0)), SessionID: "abc", Speaker: "user", Text: "hello"},
		SpeakingEvent{Event: newEvent("speaking", time.Unix(1, 0)), SessionID: "abc", Speaking: true},
		CallCompletedEvent{Event: newEvent("call_completed", time.Unix(1, 0)), SessionID: "abc", Success: true, RecordID: "iv-1"},
		ConnectionEvent{Event: newEvent("connection", time.Unix(1, 0)), Connected: true, Sessions: 2},
	}

	for _, event := range events {
		b, err := json.Marshal(event)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}

		var payload map[string]any
		if err := json.Unmarshal(b, &payload); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}

		if payload["type"] == nil {
			t.Fatalf("missing type in payload: %s", string(b))
		}
		if payload["version"] == nil {
			t.Fatalf("missing version in payload: %s", string(b))
		}
		if payload["timestamp"] == nil {
			t.Fatalf("missing timestamp in payload: %s", string(b))
		}
	}
}
