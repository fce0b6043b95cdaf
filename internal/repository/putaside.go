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

// PutAsideRepository implements PutAsideRepositoryInterface backed by
// MongoDB. An item is queued while allocated_at is unset and becomes
// immutable drained history once it is set.
type PutAsideRepository struct {
	collection *mongo.Collection
}

// NewPutAsideRepository creates a new MongoDB-backed put-aside repository.
func NewPutAsideRepository(db *MongoDB) *PutAsideRepository {
	return &PutAsideRepository{collection: db.PutAside}
}

// Enqueue stores one queued item, assigning its ID.
func (r *PutAsideRepository) Enqueue(ctx context.Context, item *model.PutAsideItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	_, err := r.collection.InsertOne(ctx, item)
	return err
}

// ListQueued returns the job's undrained items, newest first.
func (r *PutAsideRepository) ListQueued(ctx context.Context, jobID string) ([]*model.PutAsideItem, error) {
	filter := bson.M{
		"job_id":       jobID,
		"allocated_at": bson.M{"$exists": false},
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var items []*model.PutAsideItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// DrainForCustomer marks every queued item of the customer as
// allocated to boxNumber in one update and returns them oldest first.
// The single UpdateMany is the atomicity point: after it commits no
// item of the customer is observable as queued.
func (r *PutAsideRepository) DrainForCustomer(ctx context.Context, jobID, customerName string, boxNumber int, at time.Time) ([]*model.PutAsideItem, error) {
	filter := bson.M{
		"job_id":        jobID,
		"customer_name": customerName,
		"allocated_at":  bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{
		"allocated_box_number": boxNumber,
		"allocated_at":         at,
	}}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return nil, err
	}

	drainedFilter := bson.M{
		"job_id":        jobID,
		"customer_name": customerName,
		"allocated_at":  at,
	}
	cursor, err := r.collection.Find(ctx, drainedFilter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var items []*model.PutAsideItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}
