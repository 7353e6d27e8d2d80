package voice

import (
	"testing"

	api "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
)

func TestDeepgramCallbackAfterStopIsDropped(t *testing.T) {
	s := NewDeepgramService("key", nil)

	// The vendor delivers its close callback asynchronously, so events can
	// arrive after teardown. Mirror the terminal state Stop leaves behind
	// and make sure late callbacks never touch the closed channel.
	s.mu.Lock()
	s.stopped = true
	close(s.events)
	s.mu.Unlock()

	cb := &deepgramCallback{service: s}
	if err := cb.Close(&api.CloseResponse{}); err != nil {
		t.Fatalf("close callback: %v", err)
	}
	if err := cb.SpeechStarted(&api.SpeechStartedResponse{}); err != nil {
		t.Fatalf("speech-started callback: %v", err)
	}

	if _, ok := <-s.events; ok {
		t.Fatal("expected no events after stop")
	}
}

func TestDeepgramEmitDropsOnOverflow(t *testing.T) {
	s := NewDeepgramService("key", nil)

	for i := 0; i < cap(s.events)+10; i++ {
		s.emit(Event{Type: EventSpeechStarted})
	}
	if len(s.events) != cap(s.events) {
		t.Fatalf("expected a full buffer, got %d queued events", len(s.events))
	}
}
