package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/sortline-service/internal/broadcast"
	"github.com/guttosm/sortline-service/internal/domain/model"
	"github.com/guttosm/sortline-service/internal/metrics"
	"github.com/guttosm/sortline-service/internal/repository"
)

// PutAsideService manages the queue of scanned items whose customer
// has no box yet, and converts them into box requirement increments
// when capacity is released.
type PutAsideService struct {
	store     *repository.Store
	publisher broadcast.Publisher
	// Lock sets are shared with the scan engine so a drain is
	// serialized against enqueues for the same customer and against
	// scans into the target box.
	boxLocks      *keyedLocks[boxKey]
	customerLocks *keyedLocks[customerKey]
}

// NewPutAsideService creates the queue service sharing the scan
// engine's lock sets.
func NewPutAsideService(store *repository.Store, publisher broadcast.Publisher, engine *ScanService) *PutAsideService {
	if publisher == nil {
		publisher = broadcast.NopPublisher{}
	}
	return &PutAsideService{
		store:         store,
		publisher:     publisher,
		boxLocks:      engine.boxLocks,
		customerLocks: engine.customerLocks,
	}
}

// List returns the job's queued items, newest first.
func (s *PutAsideService) List(ctx context.Context, jobID string) ([]*model.PutAsideItem, error) {
	if _, err := s.store.Jobs.GetByID(ctx, jobID); err != nil {
		return nil, err
	}
	return s.store.PutAside.ListQueued(ctx, jobID)
}

// DrainResult reports one capacity-release drain: the requirement
// lines now bound to the new box and the queue items converted into
// increments on them.
type DrainResult struct {
	BoxNumber    int                     `json:"box_number"`
	CustomerName string                  `json:"customer_name"`
	Requirements []*model.BoxRequirement `json:"requirements"`
	DrainedItems []*model.PutAsideItem   `json:"drained_items"`
}

// Drain handles a capacity-release signal: the customer is assigned
// the freed box, every queued item for that customer is converted into
// requirement increments on it, and the items become immutable drained
// history. Atomic with respect to concurrent enqueues for the same
// customer; no observer sees an item both queued and allocated.
func (s *PutAsideService) Drain(ctx context.Context, jobID, customerName string, boxNumber int) (*DrainResult, error) {
	job, err := s.store.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if boxNumber < 1 || boxNumber > job.MaxBoxes {
		return nil, model.ErrBoxOutOfRange
	}

	unlockCustomer := s.customerLocks.acquire(customerKey{jobID: jobID, customer: customerName})
	defer unlockCustomer()
	unlockBox := s.boxLocks.acquire(boxKey{jobID: jobID, box: boxNumber})
	defer unlockBox()

	now := time.Now()
	requirements, err := s.store.Requirements.AssignBox(ctx, jobID, customerName, boxNumber)
	if err != nil {
		return nil, err
	}

	drained, err := s.store.PutAside.DrainForCustomer(ctx, jobID, customerName, boxNumber, now)
	if err != nil {
		return nil, err
	}

	// Convert each drained unit into an increment on the matching
	// line of the new box.
	byBarcode := make(map[string]*model.BoxRequirement, len(requirements))
	for _, r := range requirements {
		byBarcode[r.BarCode] = r
	}
	for _, item := range drained {
		line, ok := byBarcode[item.BarCode]
		if !ok {
			log.Warn().
				Str("job_id", jobID).
				Str("customer", customerName).
				Str("barcode", item.BarCode).
				Msg("Drained item has no requirement line in the assigned box")
			continue
		}
		updated, err := s.store.Requirements.Increment(ctx, line.ID, item.Quantity, item.WorkerID, "")
		if err != nil {
			return nil, err
		}
		byBarcode[item.BarCode] = updated
	}

	for i, r := range requirements {
		requirements[i] = byBarcode[r.BarCode]
	}

	s.publisher.Publish(broadcast.Event{
		Type:      broadcast.EventBoxAssigned,
		JobID:     jobID,
		BoxNumber: boxNumber,
		Payload: map[string]interface{}{
			"customer_name": customerName,
			"box_number":    boxNumber,
		},
	})
	for _, r := range requirements {
		s.publisher.Publish(broadcast.Event{
			Type:      broadcast.EventPutAsideDrained,
			JobID:     jobID,
			BoxNumber: boxNumber,
			Payload:   model.NewScanDelta(r),
		})
	}

	if queued, err := s.store.PutAside.ListQueued(ctx, jobID); err == nil {
		metrics.SetPutAsideDepth(jobID, len(queued))
	}

	log.Info().
		Str("job_id", jobID).
		Str("customer", customerName).
		Int("box_number", boxNumber).
		Int("items", len(drained)).
		Msg("Put-aside queue drained into box")

	return &DrainResult{
		BoxNumber:    boxNumber,
		CustomerName: customerName,
		Requirements: requirements,
		DrainedItems: drained,
	}, nil
}
