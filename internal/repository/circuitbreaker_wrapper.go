// Package repository provides circuit breaker wrappers for MongoDB operations.
package repository

import (
	"context"

	"github.com/guttosm/sortline-service/internal/circuitbreaker"
	"github.com/guttosm/sortline-service/internal/domain/model"
)

// RequirementRepositoryWithCircuitBreaker wraps RequirementRepository
// with circuit breaker protection. Requirement reads and writes are the
// hot path of every scan; when MongoDB degrades the breaker fails calls
// fast instead of stacking up blocked workers.
type RequirementRepositoryWithCircuitBreaker struct {
	repo           *RequirementRepository
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewRequirementRepositoryWithCircuitBreaker creates a new repository wrapper with circuit breaker.
func NewRequirementRepositoryWithCircuitBreaker(repo *RequirementRepository, cb *circuitbreaker.CircuitBreaker) *RequirementRepositoryWithCircuitBreaker {
	return &RequirementRepositoryWithCircuitBreaker{
		repo:           repo,
		circuitBreaker: cb,
	}
}

// CreateMany stores a job's requirement table with circuit breaker protection.
func (r *RequirementRepositoryWithCircuitBreaker) CreateMany(ctx context.Context, reqs []*model.BoxRequirement) error {
	return r.circuitBreaker.Execute(ctx, func() error {
		return r.repo.CreateMany(ctx, reqs)
	})
}

// GetByID returns one requirement line with circuit breaker protection.
func (r *RequirementRepositoryWithCircuitBreaker) GetByID(ctx context.Context, id string) (*model.BoxRequirement, error) {
	var result *model.BoxRequirement
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = r.repo.GetByID(ctx, id)
		return cbErr
	})
	return result, err
}

// FindByBarcode resolves a barcode's matches with circuit breaker protection.
func (r *RequirementRepositoryWithCircuitBreaker) FindByBarcode(ctx context.Context, jobID, barcode string) ([]*model.BoxRequirement, error) {
	var result []*model.BoxRequirement
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = r.repo.FindByBarcode(ctx, jobID, barcode)
		return cbErr
	})
	return result, err
}

// FindByBox returns one box's lines with circuit breaker protection.
func (r *RequirementRepositoryWithCircuitBreaker) FindByBox(ctx context.Context, jobID string, boxNumber int) ([]*model.BoxRequirement, error) {
	var result []*model.BoxRequirement
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = r.repo.FindByBox(ctx, jobID, boxNumber)
		return cbErr
	})
	return result, err
}

// FindByJob returns the full requirement table with circuit breaker protection.
func (r *RequirementRepositoryWithCircuitBreaker) FindByJob(ctx context.Context, jobID string) ([]*model.BoxRequirement, error) {
	var result []*model.BoxRequirement
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = r.repo.FindByJob(ctx, jobID)
		return cbErr
	})
	return result, err
}

// Increment adjusts a scanned tally with circuit breaker protection.
func (r *RequirementRepositoryWithCircuitBreaker) Increment(ctx context.Context, id string, delta int, workerID, workerColor string) (*model.BoxRequirement, error) {
	var result *model.BoxRequirement
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = r.repo.Increment(ctx, id, delta, workerID, workerColor)
		return cbErr
	})
	return result, err
}

// SetScannedBulk overwrites scanned tallies with circuit breaker protection.
func (r *RequirementRepositoryWithCircuitBreaker) SetScannedBulk(ctx context.Context, updates []ScannedUpdate) error {
	return r.circuitBreaker.Execute(ctx, func() error {
		return r.repo.SetScannedBulk(ctx, updates)
	})
}

// AssignBox binds a customer's unassigned lines to a box with circuit breaker protection.
func (r *RequirementRepositoryWithCircuitBreaker) AssignBox(ctx context.Context, jobID, customerName string, boxNumber int) ([]*model.BoxRequirement, error) {
	var result []*model.BoxRequirement
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = r.repo.AssignBox(ctx, jobID, customerName, boxNumber)
		return cbErr
	})
	return result, err
}

// GetCircuitBreaker returns the underlying circuit breaker for monitoring.
func (r *RequirementRepositoryWithCircuitBreaker) GetCircuitBreaker() *circuitbreaker.CircuitBreaker {
	return r.circuitBreaker
}

// LogsRepositoryWithCircuitBreaker wraps LogsRepository with circuit breaker protection.
type LogsRepositoryWithCircuitBreaker struct {
	repo           *LogsRepository
	circuitBreaker *circuitbreaker.CircuitBreaker
}

// NewLogsRepositoryWithCircuitBreaker creates a new repository wrapper with circuit breaker.
func NewLogsRepositoryWithCircuitBreaker(repo *LogsRepository, cb *circuitbreaker.CircuitBreaker) *LogsRepositoryWithCircuitBreaker {
	return &LogsRepositoryWithCircuitBreaker{
		repo:           repo,
		circuitBreaker: cb,
	}
}

// Create stores a single log entry with circuit breaker protection.
// If circuit is open, silently fails (logging is non-critical).
func (r *LogsRepositoryWithCircuitBreaker) Create(ctx context.Context, entry *LogEntryDocument) error {
	err := r.circuitBreaker.Execute(ctx, func() error {
		return r.repo.Create(ctx, entry)
	})
	if err == circuitbreaker.ErrCircuitOpen {
		// Circuit is open - silently fail (logging is non-critical)
		return nil
	}
	return err
}

// CreateMany stores multiple log entries with circuit breaker protection.
// If circuit is open, silently fails (logging is non-critical).
func (r *LogsRepositoryWithCircuitBreaker) CreateMany(ctx context.Context, entries []*LogEntryDocument) error {
	err := r.circuitBreaker.Execute(ctx, func() error {
		return r.repo.CreateMany(ctx, entries)
	})
	if err == circuitbreaker.ErrCircuitOpen {
		// Circuit is open - silently fail (logging is non-critical)
		return nil
	}
	return err
}

// Query retrieves log entries with circuit breaker protection.
func (r *LogsRepositoryWithCircuitBreaker) Query(ctx context.Context, opts LogQueryOptions) ([]*LogEntryDocument, error) {
	var result []*LogEntryDocument
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = r.repo.Query(ctx, opts)
		return cbErr
	})
	return result, err
}

// Count returns the count of log entries with circuit breaker protection.
func (r *LogsRepositoryWithCircuitBreaker) Count(ctx context.Context, opts LogQueryOptions) (int64, error) {
	var result int64
	err := r.circuitBreaker.Execute(ctx, func() error {
		var cbErr error
		result, cbErr = r.repo.Count(ctx, opts)
		return cbErr
	})
	return result, err
}

// GetCircuitBreaker returns the underlying circuit breaker for monitoring.
func (r *LogsRepositoryWithCircuitBreaker) GetCircuitBreaker() *circuitbreaker.CircuitBreaker {
	return r.circuitBreaker
}
