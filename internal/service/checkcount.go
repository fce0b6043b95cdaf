package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/sortline-service/internal/broadcast"
	"github.com/guttosm/sortline-service/internal/domain/model"
	"github.com/guttosm/sortline-service/internal/metrics"
	"github.com/guttosm/sortline-service/internal/repository"
)

// activeCheck is the in-flight state of one CheckCount pass: the
// baseline snapshot captured at start and the running tallies. Held in
// memory only; live data is untouched until completion applies
// corrections.
type activeCheck struct {
	session   *model.CheckSession
	jobID     string
	boxNumber int
	// lines is the box's requirement snapshot keyed by barcode;
	// baseline holds each line's original scanned quantity.
	lines    map[string]*model.BoxRequirement
	baseline map[string]int
	tallies  map[string]int
	// extras counts scans of barcodes the box never expected.
	extras map[string]int
	// closing is set while Complete applies corrections; the session
	// rejects further scans and a second Complete or Cancel.
	closing bool
}

// CheckCountService runs independent re-count passes over single
// boxes. Exactly one active session exists per box; a second start
// fails fast with a session conflict rather than queueing.
type CheckCountService struct {
	store     *repository.Store
	publisher broadcast.Publisher
	boxLocks  *keyedLocks[boxKey]

	mu sync.Mutex
	// byBox enforces per-box mutual exclusion; bySession resolves the
	// active pass for scan and completion calls.
	byBox     map[boxKey]*activeCheck
	bySession map[string]*activeCheck
}

// NewCheckCountService creates the verifier sharing the scan engine's
// box locks so corrections and live scans never interleave on a box.
func NewCheckCountService(store *repository.Store, publisher broadcast.Publisher, engine *ScanService) *CheckCountService {
	if publisher == nil {
		publisher = broadcast.NopPublisher{}
	}
	return &CheckCountService{
		store:     store,
		publisher: publisher,
		boxLocks:  engine.boxLocks,
		byBox:     make(map[boxKey]*activeCheck),
		bySession: make(map[string]*activeCheck),
	}
}

// Start opens a CheckCount pass over one box, snapshotting the box's
// current scanned quantities as the verification baseline. Fails with
// ErrSessionConflict when another pass already holds the box and with
// ErrBoxEmpty when the box has no expected items.
func (s *CheckCountService) Start(ctx context.Context, jobID string, boxNumber int, userID string) (*model.CheckSession, error) {
	if _, err := s.store.Jobs.GetByID(ctx, jobID); err != nil {
		return nil, err
	}

	key := boxKey{jobID: jobID, box: boxNumber}

	// Reserve the box slot before snapshotting so a concurrent Start
	// fails fast instead of racing for the same baseline.
	s.mu.Lock()
	if _, busy := s.byBox[key]; busy {
		s.mu.Unlock()
		metrics.RecordCheckSession("conflict")
		return nil, model.ErrSessionConflict
	}
	check := &activeCheck{jobID: jobID, boxNumber: boxNumber}
	s.byBox[key] = check
	s.mu.Unlock()

	release := func() {
		s.mu.Lock()
		delete(s.byBox, key)
		s.mu.Unlock()
	}

	// The baseline is read under the box lock: an in-flight scan or
	// correction pass can never leak a half-applied quantity into it.
	unlock := s.boxLocks.acquire(key)
	requirements, err := s.store.Requirements.FindByBox(ctx, jobID, boxNumber)
	unlock()
	if err != nil {
		release()
		return nil, err
	}
	if len(requirements) == 0 {
		release()
		return nil, model.ErrBoxEmpty
	}

	expected := 0
	lines := make(map[string]*model.BoxRequirement, len(requirements))
	baseline := make(map[string]int, len(requirements))
	for _, r := range requirements {
		expected += r.RequiredQty
		lines[r.BarCode] = r
		baseline[r.BarCode] = r.ScannedQty
	}

	session := &model.CheckSession{
		JobID:              jobID,
		BoxNumber:          boxNumber,
		UserID:             userID,
		Status:             model.CheckActive,
		TotalItemsExpected: expected,
		StartedAt:          time.Now(),
	}
	if err := s.store.Checks.CreateSession(ctx, session); err != nil {
		release()
		return nil, err
	}

	s.mu.Lock()
	check.session = session
	check.lines = lines
	check.baseline = baseline
	check.tallies = make(map[string]int)
	check.extras = make(map[string]int)
	s.bySession[session.ID] = check
	s.mu.Unlock()

	metrics.RecordCheckSession("started")
	s.publisher.Publish(broadcast.Event{
		Type:      broadcast.EventCheckStarted,
		JobID:     jobID,
		BoxNumber: boxNumber,
		Payload:   session,
	})

	log.Info().
		Str("check_session_id", session.ID).
		Str("job_id", jobID).
		Int("box_number", boxNumber).
		Str("user_id", userID).
		Msg("Check session started")

	return session, nil
}

// RecordScan tallies one re-count scan against the session's baseline.
// Barcodes the box never expected are tallied as extras rather than
// rejected; they surface as extra-item records at completion.
func (s *CheckCountService) RecordScan(ctx context.Context, checkSessionID, barCode string) (*model.CheckEvent, error) {
	s.mu.Lock()
	check, ok := s.bySession[checkSessionID]
	if !ok || check.closing {
		s.mu.Unlock()
		return nil, model.ErrCheckSessionNotFound
	}

	ev := &model.CheckEvent{
		CheckSessionID: checkSessionID,
		BarCode:        barCode,
		Timestamp:      time.Now(),
	}
	if line, expected := check.lines[barCode]; expected {
		check.tallies[barCode]++
		ev.RequirementID = line.ID
		ev.CheckedQty = check.tallies[barCode]
		ev.OriginalQty = check.baseline[barCode]
	} else {
		check.extras[barCode]++
		ev.CheckedQty = check.extras[barCode]
		ev.IsExtra = true
	}
	check.session.TotalItemsScanned++
	s.mu.Unlock()

	if err := s.store.Checks.AppendEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// CheckCompletion carries the caller's decision at the end of a pass.
// Corrections, when present, override the session's own tallies for
// the named requirements. ExtraItems lists barcodes of unexpected
// units found by hand rather than scanned during the pass.
type CheckCompletion struct {
	ApplyCorrections bool           `json:"apply_corrections"`
	Corrections      map[string]int `json:"corrections,omitempty"`
	ExtraItems       []string       `json:"extra_items,omitempty"`
}

// CheckSummary is the outcome of a completed pass.
type CheckSummary struct {
	Session            *model.CheckSession `json:"session"`
	Results            []model.CheckResult `json:"results"`
	CorrectionsApplied bool                `json:"corrections_applied"`
}

// Complete closes the pass: discrepancies are computed against the
// baseline and, when requested, live quantities are overwritten to the
// checked values in one all-or-nothing step. A pass in which nothing
// was scanned reports every nonzero-baseline line as missing. Units
// the box never required — unknown barcodes scanned during the pass,
// extras reported in the completion call, and counts in excess of a
// line's required quantity — surface as extra-item results.
func (s *CheckCountService) Complete(ctx context.Context, checkSessionID string, completion CheckCompletion) (*CheckSummary, error) {
	s.mu.Lock()
	check, ok := s.bySession[checkSessionID]
	if !ok || check.closing {
		s.mu.Unlock()
		return nil, model.ErrCheckSessionNotFound
	}
	check.closing = true
	s.mu.Unlock()

	key := boxKey{jobID: check.jobID, box: check.boxNumber}

	// Live scans into the box wait while corrections are applied, and
	// the box slot stays reserved until they commit so a new pass
	// cannot snapshot a half-corrected baseline.
	unlock := s.boxLocks.acquire(key)
	defer unlock()

	extras := make(map[string]int, len(check.extras)+len(completion.ExtraItems))
	for barCode, qty := range check.extras {
		extras[barCode] += qty
	}
	for _, barCode := range completion.ExtraItems {
		extras[barCode]++
	}

	results := make([]model.CheckResult, 0, len(check.lines))
	updates := make([]repository.ScannedUpdate, 0)
	discrepancies := 0
	for barCode, line := range check.lines {
		checkedQty := check.tallies[barCode]
		if override, ok := completion.Corrections[line.ID]; ok {
			checkedQty = override
		}
		if excess := checkedQty - line.RequiredQty; excess > 0 {
			extras[barCode] += excess
		}

		result := model.CheckResult{
			RequirementID:   line.ID,
			BarCode:         barCode,
			ProductName:     line.ProductName,
			OriginalQty:     check.baseline[barCode],
			CheckedQty:      checkedQty,
			DiscrepancyType: model.ClassifyDiscrepancy(check.baseline[barCode], checkedQty),
		}
		if result.HasDiscrepancy() {
			discrepancies++
			metrics.RecordCheckDiscrepancy(string(result.DiscrepancyType))
			if completion.ApplyCorrections {
				result.CorrectionApplied = true
				updates = append(updates, repository.ScannedUpdate{
					RequirementID: line.ID,
					ScannedQty:    checkedQty,
				})
			}
		}
		results = append(results, result)
	}

	extraItems := 0
	for barCode, qty := range extras {
		extraItems += qty
		result := model.CheckResult{
			BarCode:         barCode,
			CheckedQty:      qty,
			DiscrepancyType: model.DiscrepancyExtra,
		}
		if line, known := check.lines[barCode]; known {
			result.RequirementID = line.ID
			result.ProductName = line.ProductName
		}
		metrics.RecordCheckDiscrepancy(string(model.DiscrepancyExtra))
		results = append(results, result)
	}

	if len(updates) > 0 {
		// All-or-nothing: no observer ever sees a partially corrected
		// box.
		if err := s.store.Requirements.SetScannedBulk(ctx, updates); err != nil {
			s.mu.Lock()
			check.closing = false
			s.mu.Unlock()
			return nil, err
		}
	}

	// Corrections are committed; only now is the box free for a new
	// pass.
	s.mu.Lock()
	delete(s.bySession, checkSessionID)
	delete(s.byBox, key)
	s.mu.Unlock()

	now := time.Now()
	check.session.Status = model.CheckCompleted
	check.session.DiscrepanciesFound = discrepancies
	check.session.ExtraItemsFound = extraItems
	check.session.CorrectionsApplied = completion.ApplyCorrections && len(updates) > 0
	check.session.FinishedAt = &now
	if err := s.store.Checks.UpdateSession(ctx, check.session); err != nil {
		return nil, err
	}
	if err := s.store.Checks.SaveResults(ctx, checkSessionID, results); err != nil {
		return nil, err
	}

	metrics.RecordCheckSession("completed")
	s.publisher.Publish(broadcast.Event{
		Type:      broadcast.EventCheckCompleted,
		JobID:     check.jobID,
		BoxNumber: check.boxNumber,
		Payload: map[string]interface{}{
			"check_session_id":    checkSessionID,
			"discrepancies":       discrepancies,
			"extra_items":         extraItems,
			"corrections_applied": check.session.CorrectionsApplied,
		},
	})
	if check.session.CorrectionsApplied {
		for _, u := range updates {
			if updated, err := s.store.Requirements.GetByID(ctx, u.RequirementID); err == nil {
				s.publisher.Publish(broadcast.Event{
					Type:      broadcast.EventScan,
					JobID:     check.jobID,
					BoxNumber: check.boxNumber,
					Payload:   model.NewScanDelta(updated),
				})
			}
		}
	}

	log.Info().
		Str("check_session_id", checkSessionID).
		Int("discrepancies", discrepancies).
		Int("extra_items", extraItems).
		Bool("corrections_applied", check.session.CorrectionsApplied).
		Msg("Check session completed")

	return &CheckSummary{
		Session:            check.session,
		Results:            results,
		CorrectionsApplied: check.session.CorrectionsApplied,
	}, nil
}

// Cancel discards an active pass without touching live data.
func (s *CheckCountService) Cancel(ctx context.Context, checkSessionID string) (*model.CheckSession, error) {
	s.mu.Lock()
	check, ok := s.bySession[checkSessionID]
	if !ok || check.closing {
		s.mu.Unlock()
		return nil, model.ErrCheckSessionNotFound
	}
	delete(s.bySession, checkSessionID)
	delete(s.byBox, boxKey{jobID: check.jobID, box: check.boxNumber})
	s.mu.Unlock()

	now := time.Now()
	check.session.Status = model.CheckCancelled
	check.session.FinishedAt = &now
	if err := s.store.Checks.UpdateSession(ctx, check.session); err != nil {
		return nil, err
	}

	metrics.RecordCheckSession("cancelled")
	log.Info().
		Str("check_session_id", checkSessionID).
		Msg("Check session cancelled")

	return check.session, nil
}
