// Package voice defines the contract with the voice streaming vendor:
// the session config handed to it and the events it emits back. The
// actual speech recognition and turn-taking live in the vendor service.
package voice

import (
	"context"

	"github.com/prepwise/prepwise/internal/interview"
)

type EventType string

const (
	EventCallStarted       EventType = "call-start"
	EventCallEnded         EventType = "call-end"
	EventTranscriptFinal   EventType = "transcript-final"
	EventTranscriptPartial EventType = "transcript-partial"
	EventSpeechStarted     EventType = "speech-start"
	EventSpeechEnded       EventType = "speech-end"
	EventError             EventType = "error"
)

// Event is one lifecycle or transcript notification. Speaker and Text are
// set for transcript events; Err for error events.
type Event struct {
	Type    EventType
	Speaker interview.Speaker
	Text    string
	Err     error
}

// SessionConfig carries the assistant behavior script for one call.
type SessionConfig struct {
	Name         string
	FirstMessage string
	SystemPrompt string
	// Questions is the literal list read aloud during a conducted
	// interview. Empty for generation calls.
	Questions []string
}

// Service is a live voice session. Events are delivered on a single
// channel consumed by one session loop; the channel closes when the call
// is over and no more events will arrive.
type Service interface {
	Start(ctx context.Context, cfg SessionConfig) error
	Stop() error
	Events() <-chan Event
}
