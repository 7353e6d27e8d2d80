// Package store provides the document store for interview and feedback
// records. Two backends implement the same interface: an embedded SQLite
// database for single-binary deployments and MongoDB for hosted ones.
package store

import (
	"context"
	"errors"

	"github.com/prepwise/prepwise/internal/interview"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

type Store interface {
	CreateInterview(ctx context.Context, iv *interview.Interview) (string, error)
	GetInterview(ctx context.Context, id string) (interview.Interview, error)
	ListInterviewsByUser(ctx context.Context, userID string) ([]interview.Interview, error)
	ListFinalizedInterviews(ctx context.Context) ([]interview.Interview, error)
	DeleteInterview(ctx context.Context, id string) error

	// SetFeedback creates the record when fb.ID is empty, otherwise
	// overwrites the record with that id. Returns the record id.
	SetFeedback(ctx context.Context, fb *interview.Feedback) (string, error)
	GetFeedback(ctx context.Context, id string) (interview.Feedback, error)
	GetFeedbackByInterview(ctx context.Context, interviewID, userID string) (interview.Feedback, error)
	ListFeedbackByUser(ctx context.Context, userID string) ([]interview.Feedback, error)
	DeleteFeedbackByInterview(ctx context.Context, interviewID string) error

	Close(ctx context.Context) error
}
