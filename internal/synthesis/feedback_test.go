package synthesis

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prepwise/prepwise/internal/interview"
	"github.com/prepwise/prepwise/internal/llm"
)

const validScoresJSON = `{
	"totalScore": 72,
	"categoryScores": {
		"Communication Skills": 80,
		"Technical Knowledge": 65,
		"Problem-Solving": 70,
		"Cultural & Role Fit": 75,
		"Confidence & Clarity": 70
	},
	"strengths": ["Clear explanations"],
	"areasForImprovement": ["More depth on indexing"],
	"finalAssessment": "Solid mid-level performance."
}`

type feedbackStoreStub struct {
	mu        sync.Mutex
	interview interview.Interview
	getErr    error
	written   []interview.Feedback
}

func (s *feedbackStoreStub) GetInterview(ctx context.Context, id string) (interview.Interview, error) {
	if s.getErr != nil {
		return interview.Interview{}, s.getErr
	}
	return s.interview, nil
}

func (s *feedbackStoreStub) SetFeedback(ctx context.Context, fb *interview.Feedback) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fb.ID == "" {
		fb.ID = "fb-1"
	}
	s.written = append(s.written, *fb)
	return fb.ID, nil
}

func (s *feedbackStoreStub) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.written)
}

func scoredInterview() interview.Interview {
	return interview.Interview{
		ID:        "iv-1",
		UserID:    "owner",
		Role:      "Backend Developer",
		Level:     interview.LevelMid,
		Questions: []string{"Explain indexing.", "What is a goroutine?"},
	}
}

func interviewTranscript() []interview.Utterance {
	return []interview.Utterance{
		{Speaker: interview.SpeakerAssistant, Text: "Explain indexing."},
		{Speaker: interview.SpeakerUser, Text: "Indexes speed up lookups at the cost of writes."},
	}
}

func TestScoreWritesFeedback(t *testing.T) {
	client := &scriptedClient{respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "model answer") {
			return `["Answer one", "Answer two"]`, nil
		}
		return validScoresJSON, nil
	}}
	store := &feedbackStoreStub{interview: scoredInterview()}
	pipeline := NewFeedbackPipeline(client, store, time.Second)

	id, err := pipeline.Score(context.Background(), FeedbackRequest{
		InterviewID: "iv-1",
		UserID:      "taker",
		Transcript:  interviewTranscript(),
	})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if id != "fb-1" {
		t.Fatalf("expected id fb-1, got %q", id)
	}

	fb := store.written[0]
	if fb.TotalScore != 72 {
		t.Fatalf("expected total score 72, got %d", fb.TotalScore)
	}
	if len(fb.CategoryScores) != 5 {
		t.Fatalf("expected 5 category scores, got %d", len(fb.CategoryScores))
	}
	if fb.CategoryScores[interview.CategoryTechnical] != 65 {
		t.Fatalf("unexpected technical score: %d", fb.CategoryScores[interview.CategoryTechnical])
	}
	if len(fb.ModelAnswers) != 2 {
		t.Fatalf("expected 2 model answers, got %v", fb.ModelAnswers)
	}
	if fb.InterviewID != "iv-1" || fb.UserID != "taker" {
		t.Fatalf("unexpected ownership: %+v", fb)
	}
}

func TestScoreRejectsUnknownCategory(t *testing.T) {
	scores := strings.Replace(validScoresJSON, "Confidence & Clarity", "Extra Category", 1)
	client := &scriptedClient{respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "model answer") {
			return `["Answer one", "Answer two"]`, nil
		}
		return scores, nil
	}}
	store := &feedbackStoreStub{interview: scoredInterview()}
	pipeline := NewFeedbackPipeline(client, store, time.Second)

	_, err := pipeline.Score(context.Background(), FeedbackRequest{
		InterviewID: "iv-1",
		UserID:      "taker",
		Transcript:  interviewTranscript(),
	})
	if KindOf(err) != KindScoringFailed {
		t.Fatalf("expected ScoringFailed, got %v", err)
	}
	if store.writeCount() != 0 {
		t.Fatalf("expected no writes, got %d", store.writeCount())
	}
}

func TestScoreSurvivesModelAnswerFailure(t *testing.T) {
	client := &scriptedClient{respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "model answer") {
			return "I cannot answer that.", nil
		}
		return validScoresJSON, nil
	}}
	store := &feedbackStoreStub{interview: scoredInterview()}
	pipeline := NewFeedbackPipeline(client, store, time.Second)

	_, err := pipeline.Score(context.Background(), FeedbackRequest{
		InterviewID: "iv-1",
		UserID:      "taker",
		Transcript:  interviewTranscript(),
	})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	fb := store.written[0]
	if fb.ModelAnswers == nil || len(fb.ModelAnswers) != 0 {
		t.Fatalf("expected empty model answers, got %v", fb.ModelAnswers)
	}
	if fb.TotalScore != 72 {
		t.Fatalf("expected scoring to survive, got %+v", fb)
	}
}

func TestScoreReusesFeedbackID(t *testing.T) {
	client := &scriptedClient{respond: func(req llm.Request) (string, error) {
		if strings.Contains(req.Prompt, "model answer") {
			return `["Answer one", "Answer two"]`, nil
		}
		return validScoresJSON, nil
	}}
	store := &feedbackStoreStub{interview: scoredInterview()}
	pipeline := NewFeedbackPipeline(client, store, time.Second)

	id, err := pipeline.Score(context.Background(), FeedbackRequest{
		InterviewID: "iv-1",
		UserID:      "taker",
		FeedbackID:  "fb-42",
		Transcript:  interviewTranscript(),
	})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if id != "fb-42" {
		t.Fatalf("expected overwrite of fb-42, got %q", id)
	}
}

func TestScoreMissingInterview(t *testing.T) {
	client := &scriptedClient{respond: func(req llm.Request) (string, error) {
		t.Fatal("no generative call expected")
		return "", nil
	}}
	store := &feedbackStoreStub{getErr: errors.New("no such interview")}
	pipeline := NewFeedbackPipeline(client, store, time.Second)

	_, err := pipeline.Score(context.Background(), FeedbackRequest{InterviewID: "missing", UserID: "taker"})
	if KindOf(err) != KindPersistenceFailed {
		t.Fatalf("expected PersistenceFailed, got %v", err)
	}
}
