package repository

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/guttosm/sortline-service/internal/domain/model"
)

// SessionRepository implements SessionRepositoryInterface backed by
// MongoDB.
type SessionRepository struct {
	collection *mongo.Collection
}

// NewSessionRepository creates a new MongoDB-backed session repository.
func NewSessionRepository(db *MongoDB) *SessionRepository {
	return &SessionRepository{collection: db.Sessions}
}

// Create stores a new scan session, assigning its ID.
func (r *SessionRepository) Create(ctx context.Context, s *model.ScanSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := r.collection.InsertOne(ctx, s)
	return err
}

// GetByID returns the session, or nil when it does not exist.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.ScanSession, error) {
	var s model.ScanSession
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindOpen returns the worker's active or paused session for the job,
// or nil when none exists.
func (r *SessionRepository) FindOpen(ctx context.Context, workerID, jobID string) (*model.ScanSession, error) {
	filter := bson.M{
		"worker_id": workerID,
		"job_id":    jobID,
		"status":    bson.M{"$in": bson.A{model.SessionActive, model.SessionPaused}},
	}
	var s model.ScanSession
	err := r.collection.FindOne(ctx, filter, options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}})).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Update replaces the stored session state.
func (r *SessionRepository) Update(ctx context.Context, s *model.ScanSession) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": s.ID}, s)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return model.ErrNoActiveSession
	}
	return nil
}
