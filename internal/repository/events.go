package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/guttosm/sortline-service/internal/domain/model"
)

// EventRepository implements EventRepositoryInterface backed by
// MongoDB. Scan events are append-only; the only mutation is the
// undone marker set when a scan is reversed.
type EventRepository struct {
	collection *mongo.Collection
}

// NewEventRepository creates a new MongoDB-backed scan event repository.
func NewEventRepository(db *MongoDB) *EventRepository {
	return &EventRepository{collection: db.ScanEvents}
}

// Append stores one scan event, assigning its ID.
func (r *EventRepository) Append(ctx context.Context, ev *model.ScanEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	_, err := r.collection.InsertOne(ctx, ev)
	return err
}

// LastUndoable returns up to count most-recent scan events of the
// session that have not been undone, newest first. Only mutating scan
// events qualify; error, extra-item, and undo records are skipped.
func (r *EventRepository) LastUndoable(ctx context.Context, sessionID string, count int) ([]*model.ScanEvent, error) {
	filter := bson.M{
		"session_id": sessionID,
		"event_type": model.EventScan,
		"undone":     bson.M{"$ne": true},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(count))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var events []*model.ScanEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// MarkUndone flags the given scan events as reversed.
func (r *EventRepository) MarkUndone(ctx context.Context, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := r.collection.UpdateMany(
		ctx,
		bson.M{"_id": bson.M{"$in": eventIDs}},
		bson.M{"$set": bson.M{"undone": true}},
	)
	return err
}

// LastTimestamp returns the timestamp of the session's most recent
// event, or the zero time when the session has none.
func (r *EventRepository) LastTimestamp(ctx context.Context, sessionID string) (time.Time, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetProjection(bson.M{"timestamp": 1})
	var ev model.ScanEvent
	err := r.collection.FindOne(ctx, bson.M{"session_id": sessionID}, opts).Decode(&ev)
	if err == mongo.ErrNoDocuments {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return ev.Timestamp, nil
}

// FindBySession returns the session's full event log, oldest first.
func (r *EventRepository) FindBySession(ctx context.Context, sessionID string) ([]*model.ScanEvent, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"session_id": sessionID}, options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var events []*model.ScanEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
