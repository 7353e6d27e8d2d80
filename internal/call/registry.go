package call

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for lookups of unknown or already
// removed sessions.
var ErrSessionNotFound = errors.New("session not found")

// Registry tracks live sessions for the HTTP surface. Finished sessions
// stay until removed so the caller can still read the result.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Create builds a session under a fresh id and registers it.
func (r *Registry) Create(p Params, svc VoiceService, interviews InterviewSynthesizer, feedback FeedbackScorer, sink EventSink) *Session {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s := NewSession(p, svc, interviews, feedback, sink)

	r.mu.Lock()
	r.sessions[p.ID] = s
	r.mu.Unlock()
	return s
}

func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (r *Registry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
