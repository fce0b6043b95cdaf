package model

import "time"

// SessionStatus is the lifecycle state of a scan session.
type SessionStatus string

const (
	// SessionActive means the worker is currently scanning.
	SessionActive SessionStatus = "active"
	// SessionPaused means scanning is suspended and resumable.
	SessionPaused SessionStatus = "paused"
	// SessionCompleted is terminal; a new session must be created.
	SessionCompleted SessionStatus = "completed"
)

// ScanSession tracks one worker's scanning activity on a job. A worker
// has at most one non-completed session per job; recreating a session
// for a worker who already has one returns the existing session.
//
// @Description Worker scan session with activity counters
type ScanSession struct {
	ID              string        `bson:"_id,omitempty" json:"id"`
	JobID           string        `bson:"job_id" json:"job_id"`
	WorkerID        string        `bson:"worker_id" json:"worker_id"`
	Status          SessionStatus `bson:"status" json:"status" example:"active"`
	TotalScans      int           `bson:"total_scans" json:"total_scans"`
	SuccessfulScans int           `bson:"successful_scans" json:"successful_scans"`
	ErrorScans      int           `bson:"error_scans" json:"error_scans"`
	UndoOperations  int           `bson:"undo_operations" json:"undo_operations"`
	StartedAt       time.Time     `bson:"started_at" json:"started_at"`
	UpdatedAt       time.Time     `bson:"updated_at" json:"updated_at"`
	CompletedAt     *time.Time    `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

// Open reports whether the session still accepts scans or a resume.
// Paused sessions are resumable; completed sessions are not.
func (s *ScanSession) Open() bool {
	return s.Status == SessionActive || s.Status == SessionPaused
}
