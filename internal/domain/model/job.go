package model

import "time"

// Job is one sorting job: a batch of customer orders whose line items
// are scanned into numbered boxes 1..MaxBoxes. In box-count-limited
// jobs some customers start without a box and receive one as capacity
// frees up.
//
// @Description Sorting job metadata
type Job struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name" example:"Wave 2026-08-26 A"`
	MaxBoxes  int       `bson:"max_boxes" json:"max_boxes" example:"24"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
