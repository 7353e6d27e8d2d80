package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prepwise/prepwise/internal/interview"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func sampleInterview(userID string, createdAt time.Time) *interview.Interview {
	return &interview.Interview{
		UserID:        userID,
		Role:          "Backend Developer",
		Level:         interview.LevelSenior,
		Techstack:     []string{"Go", "Postgres"},
		Type:          interview.TypeMixed,
		QuestionCount: 2,
		Questions:     []string{"Q1", "Q2"},
		Finalized:     true,
		CreatedAt:     createdAt,
	}
}

func sampleFeedback(interviewID, userID string) *interview.Feedback {
	return &interview.Feedback{
		InterviewID: interviewID,
		UserID:      userID,
		TotalScore:  72,
		CategoryScores: map[string]int{
			interview.CategoryCommunication:  80,
			interview.CategoryTechnical:      70,
			interview.CategoryProblemSolving: 75,
			interview.CategoryCultureFit:     70,
			interview.CategoryConfidence:     65,
		},
		Strengths:           []string{"clarity"},
		AreasForImprovement: []string{"depth"},
		FinalAssessment:     "Good effort.",
		ModelAnswers:        []string{"A1", "A2"},
	}
}

func TestInterviewRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.CreateInterview(ctx, sampleInterview("user-1", created))
	if err != nil {
		t.Fatalf("CreateInterview failed: %v", err)
	}

	got, err := s.GetInterview(ctx, id)
	if err != nil {
		t.Fatalf("GetInterview failed: %v", err)
	}
	if got.Role != "Backend Developer" || got.Level != interview.LevelSenior {
		t.Fatalf("unexpected interview: %+v", got)
	}
	if len(got.Techstack) != 2 || got.Techstack[1] != "Postgres" {
		t.Fatalf("unexpected techstack: %v", got.Techstack)
	}
	if len(got.Questions) != 2 || !got.Finalized {
		t.Fatalf("unexpected questions/finalized: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at mismatch: got %s want %s", got.CreatedAt, created)
	}
}

func TestGetInterviewNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetInterview(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListInterviewsByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	older, _ := s.CreateInterview(ctx, sampleInterview("user-1", base))
	newer, _ := s.CreateInterview(ctx, sampleInterview("user-1", base.Add(time.Hour)))
	if _, err := s.CreateInterview(ctx, sampleInterview("user-2", base)); err != nil {
		t.Fatalf("CreateInterview failed: %v", err)
	}

	got, err := s.ListInterviewsByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListInterviewsByUser failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 interviews, got %d", len(got))
	}
	if got[0].ID != newer || got[1].ID != older {
		t.Fatal("expected newest-first ordering")
	}
}

func TestListFinalizedInterviews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	draft := sampleInterview("user-1", base)
	draft.Finalized = false
	if _, err := s.CreateInterview(ctx, draft); err != nil {
		t.Fatalf("CreateInterview failed: %v", err)
	}
	final, _ := s.CreateInterview(ctx, sampleInterview("user-2", base))

	got, err := s.ListFinalizedInterviews(ctx)
	if err != nil {
		t.Fatalf("ListFinalizedInterviews failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != final {
		t.Fatalf("expected only the finalized interview, got %v", got)
	}
}

func TestDeleteInterview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, _ := s.CreateInterview(ctx, sampleInterview("user-1", time.Now().UTC()))
	if err := s.DeleteInterview(ctx, id); err != nil {
		t.Fatalf("DeleteInterview failed: %v", err)
	}
	if _, err := s.GetInterview(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteInterview(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for second delete, got %v", err)
	}
}

func TestSetFeedbackCreateAndOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ivID, _ := s.CreateInterview(ctx, sampleInterview("owner", time.Now().UTC()))

	fb := sampleFeedback(ivID, "taker")
	id, err := s.SetFeedback(ctx, fb)
	if err != nil {
		t.Fatalf("SetFeedback failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated feedback id")
	}

	updated := sampleFeedback(ivID, "taker")
	updated.ID = id
	updated.TotalScore = 90
	if _, err := s.SetFeedback(ctx, updated); err != nil {
		t.Fatalf("SetFeedback overwrite failed: %v", err)
	}

	got, err := s.GetFeedback(ctx, id)
	if err != nil {
		t.Fatalf("GetFeedback failed: %v", err)
	}
	if got.TotalScore != 90 {
		t.Fatalf("expected overwrite to 90, got %d", got.TotalScore)
	}
	if len(got.CategoryScores) != 5 || len(got.ModelAnswers) != 2 {
		t.Fatalf("unexpected feedback contents: %+v", got)
	}

	all, err := s.ListFeedbackByUser(ctx, "taker")
	if err != nil {
		t.Fatalf("ListFeedbackByUser failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected a single record after overwrite, got %d", len(all))
	}
}

func TestGetFeedbackByInterview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ivID, _ := s.CreateInterview(ctx, sampleInterview("owner", time.Now().UTC()))
	if _, err := s.SetFeedback(ctx, sampleFeedback(ivID, "taker")); err != nil {
		t.Fatalf("SetFeedback failed: %v", err)
	}

	got, err := s.GetFeedbackByInterview(ctx, ivID, "taker")
	if err != nil {
		t.Fatalf("GetFeedbackByInterview failed: %v", err)
	}
	if got.InterviewID != ivID {
		t.Fatalf("unexpected interview id %q", got.InterviewID)
	}

	if _, err := s.GetFeedbackByInterview(ctx, ivID, "other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
}

func TestDeleteFeedbackByInterview(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ivID, _ := s.CreateInterview(ctx, sampleInterview("owner", time.Now().UTC()))
	if _, err := s.SetFeedback(ctx, sampleFeedback(ivID, "taker")); err != nil {
		t.Fatalf("SetFeedback failed: %v", err)
	}

	if err := s.DeleteFeedbackByInterview(ctx, ivID); err != nil {
		t.Fatalf("DeleteFeedbackByInterview failed: %v", err)
	}
	if _, err := s.GetFeedbackByInterview(ctx, ivID, "taker"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
