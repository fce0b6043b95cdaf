// Package repository provides data access interfaces and
// implementations for the sortline service.
package repository

import (
	"context"
	"time"

	"github.com/guttosm/sortline-service/internal/domain/model"
)

// ScannedUpdate is one quantity overwrite applied by a CheckCount
// correction pass.
type ScannedUpdate struct {
	RequirementID string
	ScannedQty    int
}

// JobRepositoryInterface defines job metadata operations.
type JobRepositoryInterface interface {
	Create(ctx context.Context, job *model.Job) error
	GetByID(ctx context.Context, jobID string) (*model.Job, error)
}

// RequirementRepositoryInterface defines box requirement store
// operations. Increment and SetScannedBulk recompute the completion
// flag; callers serialize per box.
type RequirementRepositoryInterface interface {
	CreateMany(ctx context.Context, reqs []*model.BoxRequirement) error
	GetByID(ctx context.Context, id string) (*model.BoxRequirement, error)
	FindByBarcode(ctx context.Context, jobID, barcode string) ([]*model.BoxRequirement, error)
	FindByBox(ctx context.Context, jobID string, boxNumber int) ([]*model.BoxRequirement, error)
	FindByJob(ctx context.Context, jobID string) ([]*model.BoxRequirement, error)
	// Increment adjusts the scanned tally by delta, clamped at zero,
	// and records the last scanner for highlighting. Returns the
	// post-mutation state.
	Increment(ctx context.Context, id string, delta int, workerID, workerColor string) (*model.BoxRequirement, error)
	// SetScannedBulk overwrites scanned tallies as one operation.
	SetScannedBulk(ctx context.Context, updates []ScannedUpdate) error
	// AssignBox binds every unassigned requirement of the customer to
	// the given box and returns the updated lines.
	AssignBox(ctx context.Context, jobID, customerName string, boxNumber int) ([]*model.BoxRequirement, error)
}

// SessionRepositoryInterface defines scan session persistence.
type SessionRepositoryInterface interface {
	Create(ctx context.Context, s *model.ScanSession) error
	GetByID(ctx context.Context, id string) (*model.ScanSession, error)
	// FindOpen returns the worker's active or paused session for the
	// job, or nil when none exists.
	FindOpen(ctx context.Context, workerID, jobID string) (*model.ScanSession, error)
	Update(ctx context.Context, s *model.ScanSession) error
}

// AssignmentRepositoryInterface defines worker assignment persistence.
type AssignmentRepositoryInterface interface {
	Create(ctx context.Context, a *model.WorkerAssignment) error
	FindActive(ctx context.Context, workerID, jobID string) (*model.WorkerAssignment, error)
	CountByJob(ctx context.Context, jobID string) (int, error)
	ListByJob(ctx context.Context, jobID string) ([]*model.WorkerAssignment, error)
	// UpdateCursor persists a frontier advance.
	UpdateCursor(ctx context.Context, id string, currentBoxIndex int) error
}

// EventRepositoryInterface defines the append-only scan event log.
type EventRepositoryInterface interface {
	Append(ctx context.Context, ev *model.ScanEvent) error
	// LastUndoable returns up to count most-recent scan events of the
	// session that have not been undone, newest first.
	LastUndoable(ctx context.Context, sessionID string, count int) ([]*model.ScanEvent, error)
	MarkUndone(ctx context.Context, eventIDs []string) error
	// LastTimestamp returns the timestamp of the session's most recent
	// event, or the zero time when the session has none.
	LastTimestamp(ctx context.Context, sessionID string) (time.Time, error)
	FindBySession(ctx context.Context, sessionID string) ([]*model.ScanEvent, error)
}

// PutAsideRepositoryInterface defines the put-aside queue store.
type PutAsideRepositoryInterface interface {
	Enqueue(ctx context.Context, item *model.PutAsideItem) error
	// ListQueued returns undrained items for the job, newest first.
	ListQueued(ctx context.Context, jobID string) ([]*model.PutAsideItem, error)
	// DrainForCustomer marks every queued item of the customer as
	// allocated to boxNumber in one operation and returns them.
	DrainForCustomer(ctx context.Context, jobID, customerName string, boxNumber int, at time.Time) ([]*model.PutAsideItem, error)
}

// CheckRepositoryInterface defines CheckCount session persistence.
type CheckRepositoryInterface interface {
	CreateSession(ctx context.Context, s *model.CheckSession) error
	GetSession(ctx context.Context, id string) (*model.CheckSession, error)
	UpdateSession(ctx context.Context, s *model.CheckSession) error
	AppendEvent(ctx context.Context, ev *model.CheckEvent) error
	FindEventsBySession(ctx context.Context, sessionID string) ([]*model.CheckEvent, error)
	SaveResults(ctx context.Context, sessionID string, results []model.CheckResult) error
}

// Store bundles the repository set a running instance operates on,
// either the in-memory reference implementation or the MongoDB-backed
// one.
type Store struct {
	Jobs         JobRepositoryInterface
	Requirements RequirementRepositoryInterface
	Sessions     SessionRepositoryInterface
	Assignments  AssignmentRepositoryInterface
	Events       EventRepositoryInterface
	PutAside     PutAsideRepositoryInterface
	Checks       CheckRepositoryInterface
}
