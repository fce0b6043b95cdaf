package model

import "time"

// CheckSessionStatus is the lifecycle state of a CheckCount session.
type CheckSessionStatus string

const (
	// CheckActive means the re-count pass is in progress.
	CheckActive CheckSessionStatus = "active"
	// CheckCompleted is terminal; discrepancies have been computed.
	CheckCompleted CheckSessionStatus = "completed"
	// CheckCancelled is terminal; the in-progress tally was discarded
	// without touching live data.
	CheckCancelled CheckSessionStatus = "cancelled"
)

// DiscrepancyType classifies the difference between a CheckCount tally
// and the original scanned baseline for one requirement.
type DiscrepancyType string

const (
	// DiscrepancyMatch means checked quantity equals the baseline.
	DiscrepancyMatch DiscrepancyType = "match"
	// DiscrepancyOvercount means more was counted than recorded.
	DiscrepancyOvercount DiscrepancyType = "overcount"
	// DiscrepancyUndercount means less was counted than recorded.
	DiscrepancyUndercount DiscrepancyType = "undercount"
	// DiscrepancyMissing means nothing was counted although the
	// baseline was nonzero.
	DiscrepancyMissing DiscrepancyType = "missing"
	// DiscrepancyExtra marks units the box never required: scans of
	// unknown barcodes, extras reported by hand at completion, and any
	// checked quantity in excess of the required quantity.
	DiscrepancyExtra DiscrepancyType = "extra_item"
)

// ClassifyDiscrepancy compares a checked quantity against the original
// scanned baseline captured at session start. CheckCount verifies what
// was actually scanned, not the requirement's required quantity.
func ClassifyDiscrepancy(originalQty, checkedQty int) DiscrepancyType {
	switch {
	case checkedQty == originalQty:
		return DiscrepancyMatch
	case checkedQty == 0 && originalQty > 0:
		return DiscrepancyMissing
	case checkedQty > originalQty:
		return DiscrepancyOvercount
	default:
		return DiscrepancyUndercount
	}
}

// CheckSession is one independent re-count pass over a single box. At
// most one active session exists per box at any time.
//
// @Description Secondary verification pass over one box
type CheckSession struct {
	ID                 string             `bson:"_id,omitempty" json:"id"`
	JobID              string             `bson:"job_id" json:"job_id"`
	BoxNumber          int                `bson:"box_number" json:"box_number"`
	UserID             string             `bson:"user_id" json:"user_id"`
	Status             CheckSessionStatus `bson:"status" json:"status" example:"active"`
	TotalItemsExpected int                `bson:"total_items_expected" json:"total_items_expected"`
	TotalItemsScanned  int                `bson:"total_items_scanned" json:"total_items_scanned"`
	DiscrepanciesFound int                `bson:"discrepancies_found" json:"discrepancies_found"`
	ExtraItemsFound    int                `bson:"extra_items_found" json:"extra_items_found"`
	CorrectionsApplied bool               `bson:"corrections_applied" json:"corrections_applied"`
	StartedAt          time.Time          `bson:"started_at" json:"started_at"`
	FinishedAt         *time.Time         `bson:"finished_at,omitempty" json:"finished_at,omitempty"`
}

// CheckEvent records one barcode scan inside a CheckCount session,
// compared against the baseline captured at session start.
//
// @Description Single re-count scan within a check session
type CheckEvent struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	CheckSessionID string    `bson:"check_session_id" json:"check_session_id"`
	BarCode        string    `bson:"barcode" json:"barcode"`
	RequirementID  string    `bson:"requirement_id,omitempty" json:"requirement_id,omitempty"`
	// CheckedQty is the running tally for this barcode within the
	// session, after this scan.
	CheckedQty  int       `bson:"checked_qty" json:"checked_qty"`
	OriginalQty int       `bson:"original_qty" json:"original_qty"`
	IsExtra     bool      `bson:"is_extra" json:"is_extra"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
}

// CheckResult is the per-requirement outcome of a completed CheckCount
// pass.
//
// @Description Per-requirement discrepancy outcome of a check session
type CheckResult struct {
	RequirementID     string          `bson:"requirement_id" json:"requirement_id"`
	BarCode           string          `bson:"barcode" json:"barcode"`
	ProductName       string          `bson:"product_name" json:"product_name"`
	OriginalQty       int             `bson:"original_qty" json:"original_qty"`
	CheckedQty        int             `bson:"checked_qty" json:"checked_qty"`
	DiscrepancyType   DiscrepancyType `bson:"discrepancy_type" json:"discrepancy_type" example:"undercount"`
	CorrectionApplied bool            `bson:"correction_applied" json:"correction_applied"`
}

// HasDiscrepancy reports whether the checked tally deviates from the
// baseline.
func (r CheckResult) HasDiscrepancy() bool {
	return r.DiscrepancyType != DiscrepancyMatch
}
