package model

import "time"

// PutAsideItem is a scanned unit waiting for its customer to receive a
// box. An item is in exactly one of two states: queued, or drained
// into a box. Once drained it is immutable history kept for audit.
//
// @Description Scanned item parked until its customer gets a box
type PutAsideItem struct {
	ID           string `bson:"_id,omitempty" json:"id"`
	JobID        string `bson:"job_id" json:"job_id"`
	BarCode      string `bson:"barcode" json:"barcode"`
	ProductName  string `bson:"product_name" json:"product_name"`
	CustomerName string `bson:"customer_name" json:"customer_name"`
	Quantity     int    `bson:"quantity" json:"quantity" example:"1"`
	WorkerID     string `bson:"worker_id,omitempty" json:"worker_id,omitempty"`
	// AllocatedBoxNumber and AllocatedAt are set exactly once, when the
	// item is drained into a newly assigned box.
	AllocatedBoxNumber int        `bson:"allocated_box_number,omitempty" json:"allocated_box_number,omitempty"`
	AllocatedAt        *time.Time `bson:"allocated_at,omitempty" json:"allocated_at,omitempty"`
	CreatedAt          time.Time  `bson:"created_at" json:"created_at"`
}

// Drained reports whether the item has been converted into a box
// requirement increment.
func (p *PutAsideItem) Drained() bool {
	return p.AllocatedAt != nil
}
