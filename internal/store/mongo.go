package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prepwise/prepwise/internal/interview"
)

// MongoStore backs the document store with MongoDB, for deployments where
// an embedded database is not enough.
type MongoStore struct {
	client     *mongo.Client
	interviews *mongo.Collection
	feedback   *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second).
		SetMaxPoolSize(10)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:     client,
		interviews: db.Collection("interviews"),
		feedback:   db.Collection("feedback"),
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.interviews.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "finalized", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create interview indexes: %w", err)
	}

	_, err = s.feedback.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "interview_id", Value: 1}, {Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create feedback indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) CreateInterview(ctx context.Context, iv *interview.Interview) (string, error) {
	if iv.ID == "" {
		iv.ID = uuid.NewString()
	}
	if iv.CreatedAt.IsZero() {
		iv.CreatedAt = time.Now().UTC()
	}

	if _, err := s.interviews.InsertOne(ctx, iv); err != nil {
		return "", fmt.Errorf("create interview %s: %w", iv.ID, err)
	}
	return iv.ID, nil
}

func (s *MongoStore) GetInterview(ctx context.Context, id string) (interview.Interview, error) {
	var iv interview.Interview
	err := s.interviews.FindOne(ctx, bson.M{"_id": id}).Decode(&iv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return interview.Interview{}, ErrNotFound
	}
	if err != nil {
		return interview.Interview{}, fmt.Errorf("query interview %s: %w", id, err)
	}
	return iv, nil
}

func (s *MongoStore) ListInterviewsByUser(ctx context.Context, userID string) ([]interview.Interview, error) {
	return s.findInterviews(ctx, bson.M{"user_id": userID})
}

func (s *MongoStore) ListFinalizedInterviews(ctx context.Context) ([]interview.Interview, error) {
	return s.findInterviews(ctx, bson.M{"finalized": true})
}

func (s *MongoStore) findInterviews(ctx context.Context, filter bson.M) ([]interview.Interview, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.interviews.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query interviews: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	interviews := make([]interview.Interview, 0, 16)
	if err := cursor.All(ctx, &interviews); err != nil {
		return nil, fmt.Errorf("decode interviews: %w", err)
	}
	return interviews, nil
}

func (s *MongoStore) DeleteInterview(ctx context.Context, id string) error {
	res, err := s.interviews.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete interview %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) SetFeedback(ctx context.Context, fb *interview.Feedback) (string, error) {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}

	opts := options.Replace().SetUpsert(true)
	if _, err := s.feedback.ReplaceOne(ctx, bson.M{"_id": fb.ID}, fb, opts); err != nil {
		return "", fmt.Errorf("set feedback %s: %w", fb.ID, err)
	}
	return fb.ID, nil
}

func (s *MongoStore) GetFeedback(ctx context.Context, id string) (interview.Feedback, error) {
	var fb interview.Feedback
	err := s.feedback.FindOne(ctx, bson.M{"_id": id}).Decode(&fb)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return interview.Feedback{}, ErrNotFound
	}
	if err != nil {
		return interview.Feedback{}, fmt.Errorf("query feedback %s: %w", id, err)
	}
	return fb, nil
}

func (s *MongoStore) GetFeedbackByInterview(ctx context.Context, interviewID, userID string) (interview.Feedback, error) {
	var fb interview.Feedback
	err := s.feedback.FindOne(ctx, bson.M{"interview_id": interviewID, "user_id": userID}).Decode(&fb)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return interview.Feedback{}, ErrNotFound
	}
	if err != nil {
		return interview.Feedback{}, fmt.Errorf("query feedback for interview %s: %w", interviewID, err)
	}
	return fb, nil
}

func (s *MongoStore) ListFeedbackByUser(ctx context.Context, userID string) ([]interview.Feedback, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.feedback.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query feedback for user %s: %w", userID, err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	feedbacks := make([]interview.Feedback, 0, 8)
	if err := cursor.All(ctx, &feedbacks); err != nil {
		return nil, fmt.Errorf("decode feedback: %w", err)
	}
	return feedbacks, nil
}

func (s *MongoStore) DeleteFeedbackByInterview(ctx context.Context, interviewID string) error {
	if _, err := s.feedback.DeleteMany(ctx, bson.M{"interview_id": interviewID}); err != nil {
		return fmt.Errorf("delete feedback for interview %s: %w", interviewID, err)
	}
	return nil
}
