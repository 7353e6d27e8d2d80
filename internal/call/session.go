// Package call owns the voice-call lifecycle: the session state machine,
// the accumulated transcript, and the exactly-once dispatch to a
// completion pipeline when the call ends.
package call

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/prepwise/prepwise/internal/interview"
	"github.com/prepwise/prepwise/internal/synthesis"
	"github.com/prepwise/prepwise/internal/voice"
)

// Session drives one voice call from start to its completion pipeline.
// Events are processed one at a time; the transcript keeps only final
// utterances, in arrival order.
type Session struct {
	id          string
	userID      string
	userName    string
	intent      Intent
	interviewID string
	feedbackID  string

	voice      VoiceService
	interviews InterviewSynthesizer
	feedback   FeedbackScorer
	sink       EventSink

	mu         sync.Mutex
	status     Status
	transcript []interview.Utterance
	speaking   bool
	dispatched bool
	result     *Result
}

// Params carries everything fixed at session start.
type Params struct {
	ID          string
	UserID      string
	UserName    string
	Intent      Intent
	InterviewID string // required for conduct intent
	FeedbackID  string // optional: re-score an existing record
}

func NewSession(p Params, svc VoiceService, interviews InterviewSynthesizer, feedback FeedbackScorer, sink EventSink) *Session {
	return &Session{
		id:          p.ID,
		userID:      p.UserID,
		userName:    p.UserName,
		intent:      p.Intent,
		interviewID: p.InterviewID,
		feedbackID:  p.FeedbackID,
		voice:       svc,
		interviews:  interviews,
		feedback:    feedback,
		sink:        sink,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Transcript returns a copy of the accumulated final utterances.
func (s *Session) Transcript() []interview.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]interview.Utterance(nil), s.transcript...)
}

// Result returns the completion result once the session has finished, or
// nil before that.
func (s *Session) Result() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.result == nil {
		return nil
	}
	r := *s.result
	return &r
}

// Start moves the session to Connecting and, when a voice service is
// attached, opens the vendor call with the behavior script for the
// session intent.
func (s *Session) Start(ctx context.Context) error {
	if err := s.transition(StatusConnecting); err != nil {
		return err
	}

	if s.voice == nil {
		return nil
	}

	cfg := voice.GeneratorConfig(s.userName)
	if s.intent.Kind() == IntentConductInterview {
		cfg = voice.InterviewerConfig(s.intent.Questions())
	}

	if err := s.voice.Start(ctx, cfg); err != nil {
		s.mu.Lock()
		s.status = StatusInactive
		s.mu.Unlock()
		return fmt.Errorf("start voice session: %w", err)
	}
	return nil
}

// Consume processes vendor events until the channel closes or the session
// finishes. It is the single consumer loop for server-driven voice mode.
func (s *Session) Consume(ctx context.Context, events <-chan voice.Event) {
	for ev := range events {
		s.HandleEvent(ctx, ev)
		if s.Status() == StatusFinished {
			return
		}
	}
}

// HandleEvent applies one vendor event to the session.
func (s *Session) HandleEvent(ctx context.Context, ev voice.Event) {
	switch ev.Type {
	case voice.EventCallStarted:
		s.ReportCallStarted()
	case voice.EventCallEnded:
		s.ReportCallEnded(ctx)
	case voice.EventTranscriptFinal:
		s.ReportTranscript(true, ev.Speaker, ev.Text)
	case voice.EventTranscriptPartial:
		s.ReportTranscript(false, ev.Speaker, ev.Text)
	case voice.EventSpeechStarted:
		s.setSpeaking(true)
	case voice.EventSpeechEnded:
		s.setSpeaking(false)
	case voice.EventError:
		// Transient transport errors do not end the call.
		slog.Warn("voice transport error", "session", s.id, "error", ev.Err)
	}
}

// ReportCallStarted moves Connecting to Active.
func (s *Session) ReportCallStarted() {
	if err := s.transition(StatusActive); err != nil {
		slog.Warn("ignoring call-started", "session", s.id, "error", err)
	}
}

// ReportCallEnded moves the session to Finished and runs the completion
// pipeline. Safe to call alongside RequestDisconnect; whichever lands
// first wins and the pipeline runs exactly once.
func (s *Session) ReportCallEnded(ctx context.Context) {
	s.finish(ctx)
}

// ReportTranscript records one transcript event. Only final fragments are
// kept, and only while the call is active.
func (s *Session) ReportTranscript(final bool, speaker interview.Speaker, text string) {
	if !final {
		return
	}

	s.mu.Lock()
	if s.status != StatusActive {
		s.mu.Unlock()
		return
	}
	u := interview.Utterance{Speaker: speaker, Text: text}
	s.transcript = append(s.transcript, u)
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.TranscriptAppended(s.id, u)
	}
}

// RequestDisconnect is the user-initiated hangup. Treated identically to
// the vendor's call-ended signal.
func (s *Session) RequestDisconnect(ctx context.Context) {
	if s.voice != nil {
		if err := s.voice.Stop(); err != nil {
			slog.Warn("stop voice session", "session", s.id, "error", err)
		}
	}
	s.finish(ctx)
}

func (s *Session) setSpeaking(speaking bool) {
	s.mu.Lock()
	changed := s.speaking != speaking
	s.speaking = speaking
	s.mu.Unlock()

	if changed && s.sink != nil {
		s.sink.SpeakingChanged(s.id, speaking)
	}
}

func (s *Session) transition(next Status) error {
	s.mu.Lock()
	current := s.status
	if !current.canEnter(next) {
		s.mu.Unlock()
		return fmt.Errorf("invalid transition %s -> %s", current, next)
	}
	s.status = next
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.StatusChanged(s.id, next)
	}
	return nil
}

// finish enters Finished and dispatches the completion pipeline exactly
// once. Later end signals are no-ops.
func (s *Session) finish(ctx context.Context) {
	s.mu.Lock()
	if s.status == StatusFinished || !s.status.canEnter(StatusFinished) {
		s.mu.Unlock()
		return
	}
	if s.dispatched {
		s.mu.Unlock()
		return
	}
	s.status = StatusFinished
	s.dispatched = true
	transcript := append([]interview.Utterance(nil), s.transcript...)
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.StatusChanged(s.id, StatusFinished)
	}

	result := s.complete(ctx, transcript)

	s.mu.Lock()
	s.result = &result
	s.mu.Unlock()

	if s.sink != nil {
		s.sink.Completed(s.id, result)
	}
}

func (s *Session) complete(ctx context.Context, transcript []interview.Utterance) Result {
	var (
		recordID string
		err      error
	)

	switch s.intent.Kind() {
	case IntentGenerateInterview:
		recordID, err = s.interviews.Synthesize(ctx, transcript, s.userID)
	case IntentConductInterview:
		recordID, err = s.feedback.Score(ctx, synthesis.FeedbackRequest{
			InterviewID: s.interviewID,
			UserID:      s.userID,
			FeedbackID:  s.feedbackID,
			Transcript:  transcript,
		})
	}

	if err != nil {
		slog.Warn("completion pipeline failed", "session", s.id, "intent", s.intent.Kind(), "error", err)
		return Result{Success: false, ErrorKind: string(synthesis.KindOf(err))}
	}
	return Result{Success: true, RecordID: recordID}
}
