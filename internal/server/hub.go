package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/prepwise/prepwise/internal/call"
	"github.com/prepwise/prepwise/internal/interview"
)

// Hub fans out session events to websocket subscribers. It implements
// call.EventSink; a slow subscriber drops messages rather than blocking
// the session.
type Hub struct {
	mu      sync.RWMutex
	clients map[chan []byte]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan []byte]struct{})}
}

func (h *Hub) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan []byte) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *Hub) Broadcast(msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (h *Hub) StatusChanged(sessionID string, status call.Status) {
	h.broadcastEvent(SessionStatusEvent{
		Event:     newEvent("session_status", time.Now().UTC()),
		SessionID: sessionID,
		Status:    status.String(),
	})
}

func (h *Hub) TranscriptAppended(sessionID string, u interview.Utterance) {
	h.broadcastEvent(TranscriptEvent{
		Event:     newEvent("transcript", time.Now().UTC()),
		SessionID: sessionID,
		Speaker:   string(u.Speaker),
		Text:      u.Text,
	})
}

func (h *Hub) SpeakingChanged(sessionID string, speaking bool) {
	h.broadcastEvent(SpeakingEvent{
		Event:     newEvent("speaking", time.Now().UTC()),
		SessionID: sessionID,
		Speaking:  speaking,
	})
}

func (h *Hub) Completed(sessionID string, result call.Result) {
	h.broadcastEvent(CallCompletedEvent{
		Event:     newEvent("call_completed", time.Now().UTC()),
		SessionID: sessionID,
		Success:   result.Success,
		RecordID:  result.RecordID,
		ErrorKind: result.ErrorKind,
	})
}

func (h *Hub) broadcastEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("event marshal error: %v", err)
		return
	}
	h.Broadcast(payload)
}
