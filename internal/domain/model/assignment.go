package model

import (
	"time"

	"github.com/guttosm/sortline-service/internal/allocation"
)

// WorkerAssignment binds a worker to a job with a fixed traversal
// pattern and a monotonic frontier over that traversal. The frontier
// belongs to the assignment, not the scan session, so pausing and
// resuming a session never rewinds a worker's progress.
//
// @Description Worker-to-job binding with allocation pattern and frontier
type WorkerAssignment struct {
	ID       string             `bson:"_id,omitempty" json:"id"`
	WorkerID string             `bson:"worker_id" json:"worker_id"`
	JobID    string             `bson:"job_id" json:"job_id"`
	Pattern  allocation.Pattern `bson:"allocation_pattern" json:"allocation_pattern" example:"middle_up"`
	// WorkerIndex is the 0-based join ordinal among the job's workers.
	// Distinct per concurrently assigned worker; never reused while the
	// assignment is active.
	WorkerIndex int `bson:"worker_index" json:"worker_index"`
	// CurrentBoxIndex is the frontier position in the worker's
	// traversal. Non-decreasing for the lifetime of the assignment.
	CurrentBoxIndex int       `bson:"current_box_index" json:"current_box_index"`
	Color           string    `bson:"color" json:"color" example:"#2f81f7"`
	Active          bool      `bson:"active" json:"active"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}
