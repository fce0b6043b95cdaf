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

// ErrRequirementNotFound means the referenced requirement line does
// not exist.
var ErrRequirementNotFound = errors.New("box requirement not found")

// RequirementRepository implements RequirementRepositoryInterface
// backed by MongoDB. Callers serialize mutations per box; within that
// serialization each write here is a single atomic document update.
type RequirementRepository struct {
	collection *mongo.Collection
	client     *mongo.Client
}

// NewRequirementRepository creates a new MongoDB-backed requirement repository.
func NewRequirementRepository(db *MongoDB) *RequirementRepository {
	return &RequirementRepository{collection: db.Requirements, client: db.Client}
}

// CreateMany stores a job's requirement table in one insert.
func (r *RequirementRepository) CreateMany(ctx context.Context, reqs []*model.BoxRequirement) error {
	if len(reqs) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, 0, len(reqs))
	for _, req := range reqs {
		if req.ID == "" {
			req.ID = uuid.New().String()
		}
		req.CreatedAt = now
		req.UpdatedAt = now
		docs = append(docs, req)
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

// GetByID returns one requirement line.
func (r *RequirementRepository) GetByID(ctx context.Context, id string) (*model.BoxRequirement, error) {
	var req model.BoxRequirement
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, ErrRequirementNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// FindByBarcode returns every requirement line of the job matching the
// barcode, ordered by box number with unassigned lines last.
func (r *RequirementRepository) FindByBarcode(ctx context.Context, jobID, barcode string) ([]*model.BoxRequirement, error) {
	return r.find(ctx, bson.M{"job_id": jobID, "barcode": barcode})
}

// FindByBox returns the requirement lines of one box.
func (r *RequirementRepository) FindByBox(ctx context.Context, jobID string, boxNumber int) ([]*model.BoxRequirement, error) {
	return r.find(ctx, bson.M{"job_id": jobID, "box_number": boxNumber})
}

// FindByJob returns the job's full requirement table.
func (r *RequirementRepository) FindByJob(ctx context.Context, jobID string) ([]*model.BoxRequirement, error) {
	return r.find(ctx, bson.M{"job_id": jobID})
}

func (r *RequirementRepository) find(ctx context.Context, filter bson.M) ([]*model.BoxRequirement, error) {
	// Unassigned lines (box 0) sort first; callers that care filter on
	// HasBox, so the order within a barcode's matches is stable either way.
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "box_number", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var reqs []*model.BoxRequirement
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// Increment adjusts the scanned tally by delta in one atomic document
// update: the tally is clamped at zero and the completion flag is
// recomputed in the same write. Last-scanner fields are only touched
// when a worker is named.
func (r *RequirementRepository) Increment(ctx context.Context, id string, delta int, workerID, workerColor string) (*model.BoxRequirement, error) {
	set := bson.M{
		"scanned_qty": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$scanned_qty", delta}}}},
		"updated_at":  time.Now(),
	}
	if workerID != "" {
		set["last_worker_id"] = workerID
		if workerColor != "" {
			set["last_worker_color"] = workerColor
		}
	}

	// Pipeline update: the completion flag derives from the clamped
	// tally computed in the first stage.
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: set}},
		{{Key: "$set", Value: bson.M{
			"is_complete": bson.M{"$gte": bson.A{"$scanned_qty", "$required_qty"}},
		}}},
	}

	var updated model.BoxRequirement
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, ErrRequirementNotFound
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// SetScannedBulk overwrites scanned tallies inside one transaction so
// a CheckCount correction pass is all-or-nothing.
func (r *RequirementRepository) SetScannedBulk(ctx context.Context, updates []ScannedUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		now := time.Now()
		for _, u := range updates {
			pipeline := mongo.Pipeline{
				{{Key: "$set", Value: bson.M{
					"scanned_qty": u.ScannedQty,
					"updated_at":  now,
				}}},
				{{Key: "$set", Value: bson.M{
					"is_complete": bson.M{"$gte": bson.A{"$scanned_qty", "$required_qty"}},
				}}},
			}
			res, err := r.collection.UpdateOne(sc, bson.M{"_id": u.RequirementID}, pipeline)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, ErrRequirementNotFound
			}
		}
		return nil, nil
	})
	return err
}

// AssignBox binds every unassigned line of the customer to boxNumber
// and returns the updated lines.
func (r *RequirementRepository) AssignBox(ctx context.Context, jobID, customerName string, boxNumber int) ([]*model.BoxRequirement, error) {
	filter := bson.M{
		"job_id":        jobID,
		"customer_name": customerName,
		"box_number":    model.UnassignedBox,
	}
	update := bson.M{"$set": bson.M{
		"box_number": boxNumber,
		"updated_at": time.Now(),
	}}
	if _, err := r.collection.UpdateMany(ctx, filter, update); err != nil {
		return nil, err
	}
	return r.find(ctx, bson.M{
		"job_id":        jobID,
		"customer_name": customerName,
		"box_number":    boxNumber,
	})
}
