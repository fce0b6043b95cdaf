package model

// ScanDelta is the observer-facing projection of one requirement
// mutation: everything a client needs to update its view of a box
// without re-reading the job. Highlight data (worker id and color) is
// carried here and derived from scan history, never from ambient
// state.
//
// @Description State delta for one box requirement
type ScanDelta struct {
	RequirementID string `json:"requirement_id"`
	JobID         string `json:"job_id"`
	BoxNumber     int    `json:"box_number"`
	BarCode       string `json:"barcode"`
	CustomerName  string `json:"customer_name"`
	ProductName   string `json:"product_name"`
	ScannedQty    int    `json:"scanned_qty"`
	RequiredQty   int    `json:"required_qty"`
	IsComplete    bool   `json:"is_complete"`
	Progress      string `json:"progress" example:"2/3"`
	WorkerID      string `json:"worker_id,omitempty"`
	WorkerColor   string `json:"worker_color,omitempty"`
}

// NewScanDelta projects a requirement's post-mutation state into a delta.
func NewScanDelta(r *BoxRequirement) ScanDelta {
	return ScanDelta{
		RequirementID: r.ID,
		JobID:         r.JobID,
		BoxNumber:     r.BoxNumber,
		BarCode:       r.BarCode,
		CustomerName:  r.CustomerName,
		ProductName:   r.ProductName,
		ScannedQty:    r.ScannedQty,
		RequiredQty:   r.RequiredQty,
		IsComplete:    r.IsComplete,
		Progress:      r.Progress(),
		WorkerID:      r.LastWorkerID,
		WorkerColor:   r.LastWorkerColor,
	}
}
