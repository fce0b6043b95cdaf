package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/guttosm/sortline-service/internal/domain/model"
)

// JobRepository implements JobRepositoryInterface backed by MongoDB.
type JobRepository struct {
	collection *mongo.Collection
}

// NewJobRepository creates a new MongoDB-backed job repository.
func NewJobRepository(db *MongoDB) *JobRepository {
	return &JobRepository{collection: db.Jobs}
}

// Create stores a new job, assigning its ID.
func (r *JobRepository) Create(ctx context.Context, job *model.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, job)
	return err
}

// GetByID returns the job or model.ErrJobNotFound.
func (r *JobRepository) GetByID(ctx context.Context, jobID string) (*model.Job, error) {
	var job model.Job
	err := r.collection.FindOne(ctx, bson.M{"_id": jobID}).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, model.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}
