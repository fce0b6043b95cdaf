package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/guttosm/sortline-service/internal/domain/model"
)

// ErrAssignmentNotFound means the referenced worker assignment does
// not exist.
var ErrAssignmentNotFound = errors.New("worker assignment not found")

// AssignmentRepository implements AssignmentRepositoryInterface backed
// by MongoDB.
type AssignmentRepository struct {
	collection *mongo.Collection
}

// NewAssignmentRepository creates a new MongoDB-backed assignment repository.
func NewAssignmentRepository(db *MongoDB) *AssignmentRepository {
	return &AssignmentRepository{collection: db.Assignments}
}

// Create stores a new worker assignment, assigning its ID.
func (r *AssignmentRepository) Create(ctx context.Context, a *model.WorkerAssignment) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	_, err := r.collection.InsertOne(ctx, a)
	return err
}

// FindActive returns the worker's active assignment for the job, or
// nil when none exists.
func (r *AssignmentRepository) FindActive(ctx context.Context, workerID, jobID string) (*model.WorkerAssignment, error) {
	filter := bson.M{"worker_id": workerID, "job_id": jobID, "active": true}
	var a model.WorkerAssignment
	err := r.collection.FindOne(ctx, filter).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CountByJob returns how many assignments the job has ever received.
// Worker indexes are assigned from this count and never reused.
func (r *AssignmentRepository) CountByJob(ctx context.Context, jobID string) (int, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"job_id": jobID})
	return int(n), err
}

// ListByJob returns the job's assignments in join order.
func (r *AssignmentRepository) ListByJob(ctx context.Context, jobID string) ([]*model.WorkerAssignment, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"job_id": jobID}, options.Find().SetSort(bson.D{{Key: "worker_index", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var assignments []*model.WorkerAssignment
	if err := cursor.All(ctx, &assignments); err != nil {
		return nil, err
	}
	return assignments, nil
}

// UpdateCursor persists a frontier advance. The $max guard keeps the
// frontier monotonic even against a replayed advance.
func (r *AssignmentRepository) UpdateCursor(ctx context.Context, id string, currentBoxIndex int) error {
	update := bson.M{
		"$max": bson.M{"current_box_index": currentBoxIndex},
		"$set": bson.M{"updated_at": time.Now()},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}
