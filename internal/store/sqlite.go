package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/prepwise/prepwise/internal/interview"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join("data", "prepwise.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) init() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS interviews (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			level TEXT NOT NULL,
			techstack TEXT NOT NULL,
			type TEXT NOT NULL,
			question_count INTEGER NOT NULL,
			questions TEXT NOT NULL,
			finalized INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create interviews table: %w", err)
	}

	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS feedback (
			id TEXT PRIMARY KEY,
			interview_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			total_score INTEGER NOT NULL,
			category_scores TEXT NOT NULL,
			strengths TEXT NOT NULL,
			areas_for_improvement TEXT NOT NULL,
			final_assessment TEXT NOT NULL,
			model_answers TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("create feedback table: %w", err)
	}

	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_interviews_user ON interviews(user_id, created_at)"); err != nil {
		return fmt.Errorf("create interviews index: %w", err)
	}
	if _, err := s.db.Exec("CREATE INDEX IF NOT EXISTS idx_feedback_interview ON feedback(interview_id, user_id)"); err != nil {
		return fmt.Errorf("create feedback index: %w", err)
	}

	return nil
}

func (s *SQLiteStore) Close(context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) CreateInterview(ctx context.Context, iv *interview.Interview) (string, error) {
	if iv.ID == "" {
		iv.ID = uuid.NewString()
	}
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = time.Now().UTC()
	}

	techstack, err := json.Marshal(iv.Techstack)
	if err != nil {
		return "", fmt.Errorf("encode techstack: %w", err)
	}
	questions, err := json.Marshal(iv.Questions)
	if err != nil {
		return "", fmt.Errorf("encode questions: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO interviews(id, user_id, role, level, techstack, type, question_count, questions, finalized, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		iv.ID, iv.UserID, iv.Role, iv.Level, string(techstack), iv.Type,
		iv.QuestionCount, string(questions), boolToInt(iv.Finalized),
		iv.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("create interview %s: %w", iv.ID, err)
	}
	return iv.ID, nil
}

func (s *SQLiteStore) GetInterview(ctx context.Context, id string) (interview.Interview, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, role, level, techstack, type, question_count, questions, finalized, created_at
		 FROM interviews WHERE id = ?`, id)

	iv, err := scanInterview(row)
	if errors.Is(err, sql.ErrNoRows) {
		return interview.Interview{}, ErrNotFound
	}
	if err != nil {
		return interview.Interview{}, fmt.Errorf("query interview %s: %w", id, err)
	}
	return iv, nil
}

func (s *SQLiteStore) ListInterviewsByUser(ctx context.Context, userID string) ([]interview.Interview, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, level, techstack, type, question_count, questions, finalized, created_at
		 FROM interviews WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query interviews for user %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	return scanInterviews(rows)
}

func (s *SQLiteStore) ListFinalizedInterviews(ctx context.Context) ([]interview.Interview, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, role, level, techstack, type, question_count, questions, finalized, created_at
		 FROM interviews WHERE finalized = 1 ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query finalized interviews: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanInterviews(rows)
}

func (s *SQLiteStore) DeleteInterview(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM interviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete interview %s: %w", id, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete interview rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SetFeedback(ctx context.Context, fb *interview.Feedback) (string, error) {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	scores, err := json.Marshal(fb.CategoryScores)
	if err != nil {
		return "", fmt.Errorf("encode category scores: %w", err)
	}
	strengths, err := json.Marshal(fb.Strengths)
	if err != nil {
		return "", fmt.Errorf("encode strengths: %w", err)
	}
	areas, err := json.Marshal(fb.AreasForImprovement)
	if err != nil {
		return "", fmt.Errorf("encode areas for improvement: %w", err)
	}
	answers, err := json.Marshal(fb.ModelAnswers)
	if err != nil {
		return "", fmt.Errorf("encode model answers: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO feedback(id, interview_id, user_id, total_score, category_scores, strengths, areas_for_improvement, final_assessment, model_answers, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			interview_id = excluded.interview_id,
			user_id = excluded.user_id,
			total_score = excluded.total_score,
			category_scores = excluded.category_scores,
			strengths = excluded.strengths,
			areas_for_improvement = excluded.areas_for_improvement,
			final_assessment = excluded.final_assessment,
			model_answers = excluded.model_answers,
			created_at = excluded.created_at`,
		fb.ID, fb.InterviewID, fb.UserID, fb.TotalScore, string(scores),
		string(strengths), string(areas), fb.FinalAssessment, string(answers),
		fb.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("set feedback %s: %w", fb.ID, err)
	}
	return fb.ID, nil
}

func (s *SQLiteStore) GetFeedback(ctx context.Context, id string) (interview.Feedback, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, interview_id, user_id, total_score, category_scores, strengths, areas_for_improvement, final_assessment, model_answers, created_at
		 FROM feedback WHERE id = ?`, id)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return interview.Feedback{}, ErrNotFound
	}
	if err != nil {
		return interview.Feedback{}, fmt.Errorf("query feedback %s: %w", id, err)
	}
	return fb, nil
}

func (s *SQLiteStore) GetFeedbackByInterview(ctx context.Context, interviewID, userID string) (interview.Feedback, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, interview_id, user_id, total_score, category_scores, strengths, areas_for_improvement, final_assessment, model_answers, created_at
		 FROM feedback WHERE interview_id = ? AND user_id = ? LIMIT 1`, interviewID, userID)

	fb, err := scanFeedback(row)
	if errors.Is(err, sql.ErrNoRows) {
		return interview.Feedback{}, ErrNotFound
	}
	if err != nil {
		return interview.Feedback{}, fmt.Errorf("query feedback for interview %s: %w", interviewID, err)
	}
	return fb, nil
}

func (s *SQLiteStore) ListFeedbackByUser(ctx context.Context, userID string) ([]interview.Feedback, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, interview_id, user_id, total_score, category_scores, strengths, areas_for_improvement, final_assessment, model_answers, created_at
		 FROM feedback WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query feedback for user %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	feedbacks := make([]interview.Feedback, 0, 8)
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		feedbacks = append(feedbacks, fb)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback rows: %w", err)
	}
	return feedbacks, nil
}

func (s *SQLiteStore) DeleteFeedbackByInterview(ctx context.Context, interviewID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM feedback WHERE interview_id = ?`, interviewID)
	if err != nil {
		return fmt.Errorf("delete feedback for interview %s: %w", interviewID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInterview(row rowScanner) (interview.Interview, error) {
	var iv interview.Interview
	var techstack, questions, createdAt string
	var finalized int

	if err := row.Scan(&iv.ID, &iv.UserID, &iv.Role, &iv.Level, &techstack, &iv.Type,
		&iv.QuestionCount, &questions, &finalized, &createdAt); err != nil {
		return interview.Interview{}, err
	}

	if err := json.Unmarshal([]byte(techstack), &iv.Techstack); err != nil {
		return interview.Interview{}, fmt.Errorf("decode techstack: %w", err)
	}
	if err := json.Unmarshal([]byte(questions), &iv.Questions); err != nil {
		return interview.Interview{}, fmt.Errorf("decode questions: %w", err)
	}
	iv.Finalized = finalized != 0

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return interview.Interview{}, fmt.Errorf("parse created_at: %w", err)
	}
	iv.CreatedAt = parsed

	return iv, nil
}

func scanInterviews(rows *sql.Rows) ([]interview.Interview, error) {
	interviews := make([]interview.Interview, 0, 16)
	for rows.Next() {
		iv, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		interviews = append(interviews, iv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interview rows: %w", err)
	}
	return interviews, nil
}

func scanFeedback(row rowScanner) (interview.Feedback, error) {
	var fb interview.Feedback
	var scores, strengths, areas, answers, createdAt string

	if err := row.Scan(&fb.ID, &fb.InterviewID, &fb.UserID, &fb.TotalScore, &scores,
		&strengths, &areas, &fb.FinalAssessment, &answers, &createdAt); err != nil {
		return interview.Feedback{}, err
	}

	if err := json.Unmarshal([]byte(scores), &fb.CategoryScores); err != nil {
		return interview.Feedback{}, fmt.Errorf("decode category scores: %w", err)
	}
	if err := json.Unmarshal([]byte(strengths), &fb.Strengths); err != nil {
		return interview.Feedback{}, fmt.Errorf("decode strengths: %w", err)
	}
	if err := json.Unmarshal([]byte(areas), &fb.AreasForImprovement); err != nil {
		return interview.Feedback{}, fmt.Errorf("decode areas for improvement: %w", err)
	}
	if err := json.Unmarshal([]byte(answers), &fb.ModelAnswers); err != nil {
		return interview.Feedback{}, fmt.Errorf("decode model answers: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return interview.Feedback{}, fmt.Errorf("parse created_at: %w", err)
	}
	fb.CreatedAt = parsed

	return fb, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
