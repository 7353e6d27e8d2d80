package call

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prepwise/prepwise/internal/interview"
	"github.com/prepwise/prepwise/internal/synthesis"
	"github.com/prepwise/prepwise/internal/voice"
)

type sinkRecorder struct {
	mu          sync.Mutex
	statuses    []Status
	transcripts []interview.Utterance
	speaking    []bool
	results     []Result
}

func (r *sinkRecorder) StatusChanged(sessionID string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *sinkRecorder) TranscriptAppended(sessionID string, u interview.Utterance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts = append(r.transcripts, u)
}

func (r *sinkRecorder) SpeakingChanged(sessionID string, speaking bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.speaking = append(r.speaking, speaking)
}

func (r *sinkRecorder) Completed(sessionID string, result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *sinkRecorder) lastStatus() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.statuses) == 0 {
		return StatusInactive
	}
	return r.statuses[len(r.statuses)-1]
}

type synthesizerStub struct {
	mu          sync.Mutex
	calls       int
	transcripts [][]interview.Utterance
	id          string
	err         error
}

func (s *synthesizerStub) Synthesize(ctx context.Context, transcript []interview.Utterance, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.transcripts = append(s.transcripts, transcript)
	return s.id, s.err
}

func (s *synthesizerStub) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type scorerStub struct {
	mu       sync.Mutex
	calls    int
	requests []synthesis.FeedbackRequest
	id       string
	err      error
}

func (s *scorerStub) Score(ctx context.Context, req synthesis.FeedbackRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.requests = append(s.requests, req)
	return s.id, s.err
}

func newGenerateSession(sink *sinkRecorder, synth *synthesizerStub) *Session {
	return NewSession(Params{
		ID:       "sess-1",
		UserID:   "user-1",
		UserName: "Alex",
		Intent:   GenerateInterview(),
	}, nil, synth, &scorerStub{}, sink)
}

func TestSessionLifecycle(t *testing.T) {
	sink := &sinkRecorder{}
	synth := &synthesizerStub{id: "iv-1"}
	sess := newGenerateSession(sink, synth)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sess.Status() != StatusConnecting {
		t.Fatalf("expected Connecting, got %s", sess.Status())
	}

	sess.ReportCallStarted()
	if sess.Status() != StatusActive {
		t.Fatalf("expected Active, got %s", sess.Status())
	}

	sess.ReportTranscript(true, interview.SpeakerUser, "first")
	sess.ReportTranscript(false, interview.SpeakerUser, "partial fragment")
	sess.ReportTranscript(true, interview.SpeakerAssistant, "second")

	transcript := sess.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected 2 utterances, got %d", len(transcript))
	}
	if transcript[0].Text != "first" || transcript[1].Text != "second" {
		t.Fatalf("transcript out of order: %v", transcript)
	}

	sess.ReportCallEnded(context.Background())
	if sess.Status() != StatusFinished {
		t.Fatalf("expected Finished, got %s", sess.Status())
	}
	if synth.callCount() != 1 {
		t.Fatalf("expected 1 pipeline run, got %d", synth.callCount())
	}

	result := sess.Result()
	if result == nil || !result.Success || result.RecordID != "iv-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if sink.lastStatus() != StatusFinished {
		t.Fatalf("sink missed final status, got %s", sink.lastStatus())
	}
	if len(sink.results) != 1 {
		t.Fatalf("expected 1 completion notification, got %d", len(sink.results))
	}
}

func TestSessionDispatchesExactlyOnce(t *testing.T) {
	sink := &sinkRecorder{}
	synth := &synthesizerStub{id: "iv-1"}
	sess := newGenerateSession(sink, synth)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sess.ReportCallStarted()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			sess.ReportCallEnded(context.Background())
		}()
		go func() {
			defer wg.Done()
			sess.RequestDisconnect(context.Background())
		}()
	}
	wg.Wait()

	if synth.callCount() != 1 {
		t.Fatalf("expected exactly 1 pipeline run, got %d", synth.callCount())
	}
	if len(sink.results) != 1 {
		t.Fatalf("expected exactly 1 completion notification, got %d", len(sink.results))
	}
}

func TestSessionIgnoresTranscriptOutsideActive(t *testing.T) {
	sink := &sinkRecorder{}
	synth := &synthesizerStub{id: "iv-1"}
	sess := newGenerateSession(sink, synth)

	sess.ReportTranscript(true, interview.SpeakerUser, "before start")

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sess.ReportTranscript(true, interview.SpeakerUser, "while connecting")
	sess.ReportCallStarted()
	sess.ReportCallEnded(context.Background())
	sess.ReportTranscript(true, interview.SpeakerUser, "after finish")

	if got := len(sess.Transcript()); got != 0 {
		t.Fatalf("expected empty transcript, got %d utterances", got)
	}
}

func TestSessionAbortWhileConnecting(t *testing.T) {
	sink := &sinkRecorder{}
	synth := &synthesizerStub{err: &synthesis.Error{Kind: synthesis.KindExtractionIncomplete, Err: errors.New("no user speech")}}
	sess := newGenerateSession(sink, synth)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sess.RequestDisconnect(context.Background())

	if sess.Status() != StatusFinished {
		t.Fatalf("expected Finished, got %s", sess.Status())
	}
	result := sess.Result()
	if result == nil || result.Success {
		t.Fatalf("expected failed result, got %+v", result)
	}
	if result.ErrorKind != string(synthesis.KindExtractionIncomplete) {
		t.Fatalf("unexpected error kind %q", result.ErrorKind)
	}
}

func TestSessionInvalidTransitions(t *testing.T) {
	sink := &sinkRecorder{}
	synth := &synthesizerStub{id: "iv-1"}
	sess := newGenerateSession(sink, synth)

	// call-started before start is ignored
	sess.ReportCallStarted()
	if sess.Status() != StatusInactive {
		t.Fatalf("expected Inactive, got %s", sess.Status())
	}

	// finishing from Inactive is a no-op
	sess.ReportCallEnded(context.Background())
	if sess.Status() != StatusInactive {
		t.Fatalf("expected Inactive, got %s", sess.Status())
	}
	if synth.callCount() != 0 {
		t.Fatalf("expected no pipeline runs, got %d", synth.callCount())
	}

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := sess.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
}

func TestSessionRoutesConductIntent(t *testing.T) {
	sink := &sinkRecorder{}
	synth := &synthesizerStub{}
	scorer := &scorerStub{id: "fb-1"}
	sess := NewSession(Params{
		ID:          "sess-2",
		UserID:      "taker",
		Intent:      ConductInterview([]string{"Q1", "Q2"}),
		InterviewID: "iv-1",
		FeedbackID:  "fb-1",
	}, nil, synth, scorer, sink)

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sess.ReportCallStarted()
	sess.ReportTranscript(true, interview.SpeakerUser, "my answer")
	sess.ReportCallEnded(context.Background())

	if synth.callCount() != 0 {
		t.Fatal("generate pipeline must not run for a conduct session")
	}
	if scorer.calls != 1 {
		t.Fatalf("expected 1 scoring run, got %d", scorer.calls)
	}

	req := scorer.requests[0]
	if req.InterviewID != "iv-1" || req.UserID != "taker" || req.FeedbackID != "fb-1" {
		t.Fatalf("unexpected scoring request: %+v", req)
	}
	if len(req.Transcript) != 1 || req.Transcript[0].Text != "my answer" {
		t.Fatalf("unexpected transcript: %v", req.Transcript)
	}

	result := sess.Result()
	if result == nil || !result.Success || result.RecordID != "fb-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestSessionSpeakingEvents(t *testing.T) {
	sink := &sinkRecorder{}
	sess := newGenerateSession(sink, &synthesizerStub{id: "iv-1"})

	if err := sess.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sess.ReportCallStarted()

	sess.HandleEvent(context.Background(), voice.Event{Type: voice.EventSpeechStarted})
	sess.HandleEvent(context.Background(), voice.Event{Type: voice.EventSpeechStarted})
	sess.HandleEvent(context.Background(), voice.Event{Type: voice.EventSpeechEnded})

	if len(sink.speaking) != 2 {
		t.Fatalf("expected 2 speaking notifications, got %v", sink.speaking)
	}
	if !sink.speaking[0] || sink.speaking[1] {
		t.Fatalf("unexpected speaking sequence: %v", sink.speaking)
	}
}
