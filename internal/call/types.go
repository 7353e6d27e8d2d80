package call

import (
	"context"
	"fmt"

	"github.com/prepwise/prepwise/internal/interview"
	"github.com/prepwise/prepwise/internal/synthesis"
	"github.com/prepwise/prepwise/internal/voice"
)

// Status is the call lifecycle state. Finished is terminal.
type Status int

const (
	StatusInactive Status = iota
	StatusConnecting
	StatusActive
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusInactive:
		return "inactive"
	case StatusConnecting:
		return "connecting"
	case StatusActive:
		return "active"
	case StatusFinished:
		return "finished"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// canEnter is the exhaustive transition table. Finished cannot be left;
// the only path in is through Connecting or Active (an abandoned connect
// counts as a hangup).
func (s Status) canEnter(next Status) bool {
	switch s {
	case StatusInactive:
		return next == StatusConnecting
	case StatusConnecting:
		return next == StatusActive || next == StatusFinished
	case StatusActive:
		return next == StatusFinished
	case StatusFinished:
		return false
	default:
		return false
	}
}

// IntentKind selects which completion pipeline runs when the call ends.
type IntentKind int

const (
	// IntentGenerateInterview: the call gathers parameters for a new
	// interview; interview synthesis runs at the end.
	IntentGenerateInterview IntentKind = iota
	// IntentConductInterview: the call runs a stored interview; feedback
	// synthesis runs at the end.
	IntentConductInterview
)

func (k IntentKind) String() string {
	if k == IntentConductInterview {
		return "conduct"
	}
	return "generate"
}

// Intent is fixed at session start. Only a conduct intent carries
// questions; construct through GenerateInterview or ConductInterview so
// the pairing cannot be wrong.
type Intent struct {
	kind      IntentKind
	questions []string
}

func GenerateInterview() Intent {
	return Intent{kind: IntentGenerateInterview}
}

func ConductInterview(questions []string) Intent {
	return Intent{kind: IntentConductInterview, questions: questions}
}

func (i Intent) Kind() IntentKind {
	return i.kind
}

func (i Intent) Questions() []string {
	return i.questions
}

// Result is the completion notification delivered to the caller once the
// matching pipeline has run.
type Result struct {
	Success   bool   `json:"success"`
	RecordID  string `json:"record_id,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

// InterviewSynthesizer runs the generate-intent completion pipeline.
type InterviewSynthesizer interface {
	Synthesize(ctx context.Context, transcript []interview.Utterance, userID string) (string, error)
}

// FeedbackScorer runs the conduct-intent completion pipeline.
type FeedbackScorer interface {
	Score(ctx context.Context, req synthesis.FeedbackRequest) (string, error)
}

// VoiceService is the outbound half of the voice vendor contract. Nil is
// allowed for relay-driven sessions, where the web client owns the vendor
// connection and reports events back over the API.
type VoiceService interface {
	Start(ctx context.Context, cfg voice.SessionConfig) error
	Stop() error
}

// EventSink receives UI-facing session notifications. All methods must be
// non-blocking.
type EventSink interface {
	StatusChanged(sessionID string, status Status)
	TranscriptAppended(sessionID string, u interview.Utterance)
	SpeakingChanged(sessionID string, speaking bool)
	Completed(sessionID string, result Result)
}
