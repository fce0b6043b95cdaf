// Package dto defines Data Transfer Objects for HTTP request and response handling.
//
// DTOs are used to decouple the HTTP layer from the domain model,
// providing validation and serialization for API communication.
package dto

import "github.com/guttosm/sortline-service/internal/service"

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns the error message for ValidationError.
func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// CreateSessionRequest opens or resumes a worker's scan session on a job.
//
// @Description Request to open or resume a scan session
// @Example {"worker_id": "w-17", "job_id": "6718f3a2"}
type CreateSessionRequest struct {
	WorkerID string `json:"worker_id" binding:"required" example:"w-17"`
	JobID    string `json:"job_id" binding:"required" example:"6718f3a2"`
} // @name CreateSessionRequest

// Validate performs custom validation on the request.
func (r *CreateSessionRequest) Validate() error {
	if r.WorkerID == "" {
		return &ValidationError{Field: "worker_id", Message: "must not be empty"}
	}
	if r.JobID == "" {
		return &ValidationError{Field: "job_id", Message: "must not be empty"}
	}
	return nil
}

// ScanRequest submits one barcode scan against a session.
//
// @Description Request to reconcile one scanned barcode
// @Example {"session_id": "a3f1", "barcode": "4006381333931"}
type ScanRequest struct {
	SessionID string `json:"session_id" binding:"required" example:"a3f1"`
	BarCode   string `json:"barcode" binding:"required" example:"4006381333931"`
} // @name ScanRequest

// Validate performs custom validation on the request.
func (r *ScanRequest) Validate() error {
	if r.SessionID == "" {
		return &ValidationError{Field: "session_id", Message: "must not be empty"}
	}
	if r.BarCode == "" {
		return &ValidationError{Field: "barcode", Message: "must not be empty"}
	}
	return nil
}

// UndoRequest reverses the session's most recent scans.
//
// @Description Request to undo up to count recent scans
type UndoRequest struct {
	SessionID string `json:"session_id" binding:"required" example:"a3f1"`
	// Count beyond the available history is clamped, not rejected.
	Count int `json:"count" binding:"required,gt=0" example:"2" minimum:"1"`
} // @name UndoRequest

// Validate performs custom validation on the request.
func (r *UndoRequest) Validate() error {
	if r.SessionID == "" {
		return &ValidationError{Field: "session_id", Message: "must not be empty"}
	}
	if r.Count <= 0 {
		return &ValidationError{Field: "count", Message: "must be a positive integer"}
	}
	return nil
}

// StartCheckRequest opens a CheckCount pass over one box.
//
// @Description Request to start a verification pass on a box
type StartCheckRequest struct {
	JobID     string `json:"job_id" binding:"required" example:"6718f3a2"`
	BoxNumber int    `json:"box_number" binding:"required,gt=0" example:"5" minimum:"1"`
	UserID    string `json:"user_id" binding:"required" example:"supervisor-2"`
} // @name StartCheckRequest

// Validate performs custom validation on the request.
func (r *StartCheckRequest) Validate() error {
	if r.JobID == "" {
		return &ValidationError{Field: "job_id", Message: "must not be empty"}
	}
	if r.BoxNumber < 1 {
		return &ValidationError{Field: "box_number", Message: "must be a positive integer"}
	}
	if r.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	return nil
}

// CheckScanRequest records one re-count scan within a check session.
//
// @Description Request to tally one barcode inside a check session
type CheckScanRequest struct {
	BarCode string `json:"barcode" binding:"required" example:"4006381333931"`
} // @name CheckScanRequest

// Validate performs custom validation on the request.
func (r *CheckScanRequest) Validate() error {
	if r.BarCode == "" {
		return &ValidationError{Field: "barcode", Message: "must not be empty"}
	}
	return nil
}

// CompleteCheckRequest closes a check session, optionally overwriting
// live quantities with the checked values.
//
// @Description Request to complete a check session
type CompleteCheckRequest struct {
	ApplyCorrections bool `json:"apply_corrections" example:"true"`
	// Corrections maps requirement IDs to manually entered quantities
	// that override the session's own tallies.
	Corrections map[string]int `json:"corrections,omitempty"`
	// ExtraItems lists barcodes of unexpected units found by hand,
	// one entry per unit.
	ExtraItems []string `json:"extra_items,omitempty"`
} // @name CompleteCheckRequest

// LoadJobRequest ingests a new sorting job with its requirement table.
//
// @Description Request to load a job and its requirement lines
type LoadJobRequest struct {
	Name     string            `json:"name" binding:"required" example:"wave 7"`
	MaxBoxes int               `json:"max_boxes" binding:"required,gt=0" example:"30" minimum:"1"`
	Lines    []service.JobLine `json:"lines" binding:"required,min=1"`
} // @name LoadJobRequest

// Validate performs custom validation on the request.
func (r *LoadJobRequest) Validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if r.MaxBoxes < 1 {
		return &ValidationError{Field: "max_boxes", Message: "must be a positive integer"}
	}
	if len(r.Lines) == 0 {
		return &ValidationError{Field: "lines", Message: "must contain at least one line"}
	}
	for _, line := range r.Lines {
		if line.BarCode == "" {
			return &ValidationError{Field: "lines", Message: "every line needs a barcode"}
		}
		if line.CustomerName == "" {
			return &ValidationError{Field: "lines", Message: "every line needs a customer name"}
		}
		if line.RequiredQty < 1 {
			return &ValidationError{Field: "lines", Message: "required_qty must be a positive integer"}
		}
	}
	return nil
}

// DrainRequest assigns a freed box to a customer and drains their
// queued put-aside items into it.
//
// @Description Request to drain the put-aside queue for one customer
type DrainRequest struct {
	CustomerName string `json:"customer_name" binding:"required" example:"Acme"`
	BoxNumber    int    `json:"box_number" binding:"required,gt=0" example:"7" minimum:"1"`
} // @name DrainRequest

// Validate performs custom validation on the request.
func (r *DrainRequest) Validate() error {
	if r.CustomerName == "" {
		return &ValidationError{Field: "customer_name", Message: "must not be empty"}
	}
	if r.BoxNumber < 1 {
		return &ValidationError{Field: "box_number", Message: "must be a positive integer"}
	}
	return nil
}
