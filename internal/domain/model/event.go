package model

import "time"

// ScanEventType classifies a scan event record.
type ScanEventType string

const (
	// EventScan is a successful scan that incremented a requirement.
	EventScan ScanEventType = "scan"
	// EventUndo is a compensating record for one reversed scan.
	EventUndo ScanEventType = "undo"
	// EventError records a barcode with no requirement in the job.
	EventError ScanEventType = "error"
	// EventExtraItem records a scan for a barcode whose requirements
	// are already fulfilled everywhere in the job.
	EventExtraItem ScanEventType = "extra_item"
)

// ScanEvent is one immutable entry of a session's append-only scan
// log. Scan events form the undo log and the audit trail that
// CheckCount reconciles against.
//
// @Description Append-only record of a single scan operation
type ScanEvent struct {
	ID        string        `bson:"_id,omitempty" json:"id"`
	SessionID string        `bson:"session_id" json:"session_id"`
	JobID     string        `bson:"job_id" json:"job_id"`
	WorkerID  string        `bson:"worker_id" json:"worker_id"`
	BarCode   string        `bson:"barcode" json:"barcode"`
	BoxNumber int           `bson:"box_number,omitempty" json:"box_number,omitempty"`
	// RequirementID links scan and undo events to the requirement they
	// mutated. Empty for error events.
	RequirementID string        `bson:"requirement_id,omitempty" json:"requirement_id,omitempty"`
	EventType     ScanEventType `bson:"event_type" json:"event_type" example:"scan"`
	IsExtraItem   bool          `bson:"is_extra_item" json:"is_extra_item"`
	// Undone marks scan events that were later reversed. Undo events
	// reference the reversed scan via RefEventID.
	Undone     bool      `bson:"undone,omitempty" json:"undone,omitempty"`
	RefEventID string    `bson:"ref_event_id,omitempty" json:"ref_event_id,omitempty"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
	// TimeSincePrevious is the gap to the session's previous event, in
	// milliseconds. Zero for a session's first event.
	TimeSincePrevious int64 `bson:"time_since_previous_ms" json:"time_since_previous_ms"`
}

// ScanOutcome classifies the result of processing one scan.
type ScanOutcome string

const (
	// OutcomeMatch means a requirement was incremented.
	OutcomeMatch ScanOutcome = "match"
	// OutcomeExtraItem means the barcode is already fulfilled job-wide.
	OutcomeExtraItem ScanOutcome = "extra_item"
	// OutcomeError means the barcode matches nothing in the job.
	OutcomeError ScanOutcome = "error"
	// OutcomeQueued means the item was parked in the put-aside queue
	// because its customer has no box yet.
	OutcomeQueued ScanOutcome = "queued"
)

// ScanResult is the engine's answer to one processScan call.
//
// @Description Outcome of one scan with the resulting state delta
type ScanResult struct {
	Outcome ScanOutcome `json:"outcome" example:"match"`
	Event   *ScanEvent  `json:"event,omitempty"`
	// Requirement is the post-mutation state for match outcomes, and
	// the matched-but-unassigned line for queued outcomes.
	Requirement *BoxRequirement `json:"requirement,omitempty"`
	// Progress is the formatted "scanned/required" tally for display.
	Progress string `json:"progress,omitempty" example:"2/3"`
	// Message carries the user-facing explanation for error and
	// extra_item outcomes.
	Message string `json:"message,omitempty"`
}
