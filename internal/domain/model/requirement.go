// Package model defines the core domain entities for the sortline service.
package model

import (
	"fmt"
	"time"
)

// UnassignedBox is the box number carried by requirements whose
// customer has not been allocated a box yet (box-count-limited jobs).
const UnassignedBox = 0

// BoxRequirement is one expected (box, barcode) line of a sorting job:
// the quantity of a product destined for one customer's box, plus the
// running tally of what has actually been scanned into it.
//
// @Description Expected and scanned quantity of one product for one box
type BoxRequirement struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	JobID        string    `bson:"job_id" json:"job_id"`
	BoxNumber    int       `bson:"box_number" json:"box_number" example:"5"`
	CustomerName string    `bson:"customer_name" json:"customer_name" example:"Acme"`
	BarCode      string    `bson:"barcode" json:"barcode" example:"4006381333931"`
	ProductName  string    `bson:"product_name" json:"product_name" example:"Widget 40mm"`
	RequiredQty  int       `bson:"required_qty" json:"required_qty" example:"3"`
	ScannedQty   int       `bson:"scanned_qty" json:"scanned_qty" example:"1"`
	IsComplete   bool      `bson:"is_complete" json:"is_complete"`
	// LastWorkerID and LastWorkerColor identify the most recent scanner.
	// UI highlighting only; not a correctness invariant.
	LastWorkerID    string    `bson:"last_worker_id,omitempty" json:"last_worker_id,omitempty"`
	LastWorkerColor string    `bson:"last_worker_color,omitempty" json:"last_worker_color,omitempty"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updated_at"`
}

// HasBox reports whether the requirement's customer currently owns a box.
func (r *BoxRequirement) HasBox() bool {
	return r.BoxNumber != UnassignedBox
}

// Fulfilled reports whether the scanned tally has reached the required
// quantity. IsComplete is kept as the stored, derived form of this.
func (r *BoxRequirement) Fulfilled() bool {
	return r.ScannedQty >= r.RequiredQty
}

// Progress returns the display form of the tally, e.g. "2/3".
func (r *BoxRequirement) Progress() string {
	return fmt.Sprintf("%d/%d", r.ScannedQty, r.RequiredQty)
}
