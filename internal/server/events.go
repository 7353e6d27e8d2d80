package server

import "time"

const EventVersion = 1

type Event struct {
	Type      string `json:"type"`
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
}

type SessionStatusEvent struct {
	Event
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

type TranscriptEvent struct {
	Event
	SessionID string `json:"session_id"`
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
}

type SpeakingEvent struct {
	Event
	SessionID string `json:"session_id"`
	Speaking  bool   `json:"speaking"`
}

type CallCompletedEvent struct {
	Event
	SessionID string `json:"session_id"`
	Success   bool   `json:"success"`
	RecordID  string `json:"record_id,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

type ConnectionEvent struct {
	Event
	Connected bool `json:"connected"`
	Sessions  int  `json:"sessions"`
}

func newEvent(eventType string, now time.Time) Event {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return Event{
		Type:      eventType,
		Version:   EventVersion,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
	}
}
