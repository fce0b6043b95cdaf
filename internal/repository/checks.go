package repository

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/guttosm/sortline-service/internal/domain/model"
)

// checkResultDocument stores one per-requirement outcome together with
// the session that produced it.
type checkResultDocument struct {
	ID             string `bson:"_id"`
	CheckSessionID string `bson:"check_session_id"`
	model.CheckResult `bson:",inline"`
}

// CheckRepository implements CheckRepositoryInterface backed by
// MongoDB.
type CheckRepository struct {
	sessions *mongo.Collection
	events   *mongo.Collection
	results  *mongo.Collection
}

// NewCheckRepository creates a new MongoDB-backed check repository.
func NewCheckRepository(db *MongoDB) *CheckRepository {
	return &CheckRepository{
		sessions: db.CheckSessions,
		events:   db.CheckEvents,
		results:  db.CheckResults,
	}
}

// CreateSession stores a new check session, assigning its ID.
func (r *CheckRepository) CreateSession(ctx context.Context, s *model.CheckSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	_, err := r.sessions.InsertOne(ctx, s)
	return err
}

// GetSession returns the check session, or nil when it does not exist.
func (r *CheckRepository) GetSession(ctx context.Context, id string) (*model.CheckSession, error) {
	var s model.CheckSession
	err := r.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateSession replaces the stored check session state.
func (r *CheckRepository) UpdateSession(ctx context.Context, s *model.CheckSession) error {
	res, err := r.sessions.ReplaceOne(ctx, bson.M{"_id": s.ID}, s)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return model.ErrCheckSessionNotFound
	}
	return nil
}

// AppendEvent stores one re-count scan record, assigning its ID.
func (r *CheckRepository) AppendEvent(ctx context.Context, ev *model.CheckEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	_, err := r.events.InsertOne(ctx, ev)
	return err
}

// FindEventsBySession returns the session's re-count log, oldest first.
func (r *CheckRepository) FindEventsBySession(ctx context.Context, sessionID string) ([]*model.CheckEvent, error) {
	cursor, err := r.events.Find(ctx, bson.M{"check_session_id": sessionID}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var events []*model.CheckEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// SaveResults stores the completed session's per-requirement outcomes.
func (r *CheckRepository) SaveResults(ctx context.Context, sessionID string, results []model.CheckResult) error {
	if len(results) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(results))
	for _, res := range results {
		docs = append(docs, checkResultDocument{
			ID:             uuid.New().String(),
			CheckSessionID: sessionID,
			CheckResult:    res,
		})
	}
	_, err := r.results.InsertMany(ctx, docs)
	return err
}
