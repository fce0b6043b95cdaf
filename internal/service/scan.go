package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/sortline-service/internal/allocation"
	"github.com/guttosm/sortline-service/internal/broadcast"
	"github.com/guttosm/sortline-service/internal/domain/model"
	"github.com/guttosm/sortline-service/internal/metrics"
	"github.com/guttosm/sortline-service/internal/repository"
)

// DefaultWorkerColors is the highlight palette assigned to workers by
// join order.
var DefaultWorkerColors = []string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#bcf60c",
}

// DefaultMaxWorkersPerJob caps concurrent workers per job. Four
// workers fill all four allocation patterns with disjoint starting
// regions.
const DefaultMaxWorkersPerJob = 4

// ScanService is the scan reconciliation engine: it resolves a
// worker's target box along their allocation traversal, applies the
// quantity delta, classifies the scan, maintains the append-only event
// log, and emits a state delta per committed mutation.
type ScanService struct {
	store     *repository.Store
	publisher broadcast.Publisher
	boxLocks  *keyedLocks[boxKey]
	// customerLocks serialize put-aside enqueues with drains for the
	// same customer, so an item is never both queued and allocated.
	customerLocks *keyedLocks[customerKey]
	// jobLocks serialize session and assignment creation per job so
	// worker indexes stay distinct.
	jobLocks *keyedLocks[string]

	maxWorkers int
	colors     []string
}

// ScanOption configures a ScanService.
type ScanOption func(*ScanService)

// WithMaxWorkers sets the per-job concurrent worker cap. Zero disables
// the cap.
func WithMaxWorkers(n int) ScanOption {
	return func(s *ScanService) {
		s.maxWorkers = n
	}
}

// WithWorkerColors sets the highlight palette assigned by join order.
func WithWorkerColors(colors []string) ScanOption {
	return func(s *ScanService) {
		if len(colors) > 0 {
			s.colors = colors
		}
	}
}

// NewScanService creates the scan engine on top of the given store and
// delta publisher.
func NewScanService(store *repository.Store, publisher broadcast.Publisher, opts ...ScanOption) *ScanService {
	if publisher == nil {
		publisher = broadcast.NopPublisher{}
	}
	s := &ScanService{
		store:         store,
		publisher:     publisher,
		boxLocks:      newKeyedLocks[boxKey](),
		customerLocks: newKeyedLocks[customerKey](),
		jobLocks:      newKeyedLocks[string](),
		maxWorkers:    DefaultMaxWorkersPerJob,
		colors:        DefaultWorkerColors,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrResumeSession returns the worker's open session for the job,
// resuming it when paused, or creates a new session together with the
// worker's assignment. Idempotent: calling it for a worker who already
// has an open session returns that session.
func (s *ScanService) CreateOrResumeSession(ctx context.Context, workerID, jobID string) (*model.ScanSession, error) {
	if _, err := s.store.Jobs.GetByID(ctx, jobID); err != nil {
		return nil, err
	}

	unlock := s.jobLocks.acquire(jobID)
	defer unlock()

	existing, err := s.store.Sessions.FindOpen(ctx, workerID, jobID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == model.SessionPaused {
			existing.Status = model.SessionActive
			existing.UpdatedAt = time.Now()
			if err := s.store.Sessions.Update(ctx, existing); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	if _, err := s.ensureAssignment(ctx, workerID, jobID); err != nil {
		return nil, err
	}

	now := time.Now()
	session := &model.ScanSession{
		JobID:     jobID,
		WorkerID:  workerID,
		Status:    model.SessionActive,
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", session.ID).
		Str("worker_id", workerID).
		Str("job_id", jobID).
		Msg("Scan session created")

	return session, nil
}

// ensureAssignment returns the worker's active assignment, creating
// one with the next worker index, pattern, and color when absent.
// Callers hold the job lock.
func (s *ScanService) ensureAssignment(ctx context.Context, workerID, jobID string) (*model.WorkerAssignment, error) {
	existing, err := s.store.Assignments.FindActive(ctx, workerID, jobID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	index, err := s.store.Assignments.CountByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if s.maxWorkers > 0 && index >= s.maxWorkers {
		return nil, model.ErrWorkerLimit
	}

	now := time.Now()
	assignment := &model.WorkerAssignment{
		WorkerID:    workerID,
		JobID:       jobID,
		Pattern:     allocation.PatternForIndex(index),
		WorkerIndex: index,
		Color:       s.colors[index%len(s.colors)],
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Assignments.Create(ctx, assignment); err != nil {
		return nil, err
	}

	log.Info().
		Str("worker_id", workerID).
		Str("job_id", jobID).
		Int("worker_index", index).
		Str("pattern", string(assignment.Pattern)).
		Msg("Worker assigned to job")

	return assignment, nil
}

// PauseSession suspends a session; the worker's allocation frontier is
// untouched and survives the pause.
func (s *ScanService) PauseSession(ctx context.Context, sessionID string) (*model.ScanSession, error) {
	session, err := s.openSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Status = model.SessionPaused
	session.UpdatedAt = time.Now()
	return session, s.store.Sessions.Update(ctx, session)
}

// CompleteSession ends a session permanently.
func (s *ScanService) CompleteSession(ctx context.Context, sessionID string) (*model.ScanSession, error) {
	session, err := s.openSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	session.Status = model.SessionCompleted
	session.UpdatedAt = now
	session.CompletedAt = &now
	return session, s.store.Sessions.Update(ctx, session)
}

func (s *ScanService) openSession(ctx context.Context, sessionID string) (*model.ScanSession, error) {
	session, err := s.store.Sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || !session.Open() {
		return nil, model.ErrNoActiveSession
	}
	return session, nil
}

// ProcessScan reconciles one barcode scan against the job's
// requirements. Recoverable classifications (error, extra_item,
// queued) are returned as outcomes, not Go errors; only a missing or
// ended session fails the call.
func (s *ScanService) ProcessScan(ctx context.Context, sessionID, barCode string) (*model.ScanResult, error) {
	start := time.Now()

	session, err := s.openSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == model.SessionPaused {
		session.Status = model.SessionActive
	}

	assignment, err := s.store.Assignments.FindActive(ctx, session.WorkerID, session.JobID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, model.ErrNoActiveSession
	}

	job, err := s.store.Jobs.GetByID(ctx, session.JobID)
	if err != nil {
		return nil, err
	}
	traversal, err := allocation.NewTraversal(assignment.Pattern, job.MaxBoxes)
	if err != nil {
		return nil, err
	}

	result, err := s.reconcile(ctx, session, assignment, traversal, barCode)
	if err != nil {
		return nil, err
	}

	session.TotalScans++
	switch result.Outcome {
	case model.OutcomeMatch, model.OutcomeQueued:
		session.SuccessfulScans++
	default:
		session.ErrorScans++
	}
	session.UpdatedAt = time.Now()
	if err := s.store.Sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	metrics.RecordScan(time.Since(start), string(result.Outcome))
	return result, nil
}

// reconcile classifies the scan and applies its mutation.
func (s *ScanService) reconcile(ctx context.Context, session *model.ScanSession, assignment *model.WorkerAssignment, traversal *allocation.Traversal, barCode string) (*model.ScanResult, error) {
	// Candidate selection races with scans of the same barcode in
	// other boxes; re-resolving after losing a box race converges
	// quickly because every retry sees strictly more completed lines.
	for attempt := 0; attempt < 3; attempt++ {
		matches, err := s.store.Requirements.FindByBarcode(ctx, session.JobID, barCode)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return s.recordRejection(ctx, session, barCode, model.EventError)
		}

		open := matches[:0:0]
		for _, m := range matches {
			if !m.Fulfilled() {
				open = append(open, m)
			}
		}
		// Extra item is a job-wide condition: the barcode counts as
		// unexpected stock only when no requirement anywhere in the
		// job still needs it.
		if len(open) == 0 {
			return s.recordRejection(ctx, session, barCode, model.EventExtraItem)
		}

		target := selectTarget(open, traversal, assignment.CurrentBoxIndex)
		if target == nil {
			// Only unassigned lines remain: the customer has no box
			// yet, so the item is parked until capacity frees up.
			return s.enqueuePutAside(ctx, session, open[0])
		}

		result, retry, err := s.applyScan(ctx, session, assignment, traversal, target)
		if err != nil {
			return nil, err
		}
		if retry {
			continue
		}
		return result, nil
	}

	// Every candidate filled up while we were racing; the remaining
	// stock is extra.
	return s.recordRejection(ctx, session, barCode, model.EventExtraItem)
}

// selectTarget picks the requirement the scan should count against:
// the box the worker is currently in when it still needs the barcode,
// otherwise the first box at or past the worker's frontier, otherwise
// any remaining open line (frontier does not move backward for those).
// Returns nil when only unassigned lines remain.
func selectTarget(open []*model.BoxRequirement, traversal *allocation.Traversal, cursor int) *model.BoxRequirement {
	byBox := make(map[int]*model.BoxRequirement, len(open))
	hasAssigned := false
	for _, r := range open {
		if !r.HasBox() {
			continue
		}
		hasAssigned = true
		if _, taken := byBox[r.BoxNumber]; !taken {
			byBox[r.BoxNumber] = r
		}
	}
	if !hasAssigned {
		return nil
	}

	// Mid-box: the box behind the frontier the worker just scanned.
	if cursor > 0 {
		if r, ok := byBox[traversal.BoxAt(cursor-1)]; ok {
			return r
		}
	}

	for i := cursor; i < traversal.Len(); i++ {
		if r, ok := byBox[traversal.BoxAt(i)]; ok {
			return r
		}
	}

	// Nothing ahead of the frontier needs the barcode; fall back to
	// the earliest open box so the item is not stranded. The frontier
	// stays where it is.
	for i := 0; i < traversal.Len(); i++ {
		if r, ok := byBox[traversal.BoxAt(i)]; ok {
			return r
		}
	}
	return nil
}

// applyScan increments the target requirement under its box lock. The
// retry flag is set when the target filled up between selection and
// locking.
func (s *ScanService) applyScan(ctx context.Context, session *model.ScanSession, assignment *model.WorkerAssignment, traversal *allocation.Traversal, target *model.BoxRequirement) (*model.ScanResult, bool, error) {
	unlock := s.boxLocks.acquire(boxKey{jobID: session.JobID, box: target.BoxNumber})
	defer unlock()

	current, err := s.store.Requirements.GetByID(ctx, target.ID)
	if err != nil {
		return nil, false, err
	}
	if current.Fulfilled() {
		return nil, true, nil
	}

	updated, err := s.store.Requirements.Increment(ctx, target.ID, 1, assignment.WorkerID, assignment.Color)
	if err != nil {
		return nil, false, err
	}

	event, err := s.appendEvent(ctx, session, &model.ScanEvent{
		BarCode:       updated.BarCode,
		BoxNumber:     updated.BoxNumber,
		RequirementID: updated.ID,
		EventType:     model.EventScan,
	})
	if err != nil {
		return nil, false, err
	}

	newCursor := traversal.Advance(assignment.CurrentBoxIndex, updated.BoxNumber)
	if newCursor != assignment.CurrentBoxIndex {
		assignment.CurrentBoxIndex = newCursor
		if err := s.store.Assignments.UpdateCursor(ctx, assignment.ID, newCursor); err != nil {
			return nil, false, err
		}
	}

	// Published under the box lock: observers see this box's deltas in
	// commit order.
	s.publisher.Publish(broadcast.Event{
		Type:      broadcast.EventScan,
		JobID:     session.JobID,
		BoxNumber: updated.BoxNumber,
		Payload:   model.NewScanDelta(updated),
	})

	return &model.ScanResult{
		Outcome:     model.OutcomeMatch,
		Event:       event,
		Requirement: updated,
		Progress:    updated.Progress(),
	}, false, nil
}

// recordRejection appends a non-mutating event for an unknown or
// already fulfilled barcode and reports the recoverable outcome.
func (s *ScanService) recordRejection(ctx context.Context, session *model.ScanSession, barCode string, eventType model.ScanEventType) (*model.ScanResult, error) {
	event, err := s.appendEvent(ctx, session, &model.ScanEvent{
		BarCode:     barCode,
		EventType:   eventType,
		IsExtraItem: eventType == model.EventExtraItem,
	})
	if err != nil {
		return nil, err
	}

	outcome := model.OutcomeError
	message := model.ErrUnrecognizedBarcode.Error()
	if eventType == model.EventExtraItem {
		outcome = model.OutcomeExtraItem
		message = model.ErrAlreadyFulfilled.Error()
	}

	s.publisher.Publish(broadcast.Event{
		Type:  broadcast.EventScanError,
		JobID: session.JobID,
		Payload: map[string]string{
			"barcode":   barCode,
			"worker_id": session.WorkerID,
			"reason":    string(eventType),
		},
	})

	return &model.ScanResult{
		Outcome: outcome,
		Event:   event,
		Message: message,
	}, nil
}

// enqueuePutAside parks the scanned unit until its customer receives a
// box. Serialized against drains for the same customer.
func (s *ScanService) enqueuePutAside(ctx context.Context, session *model.ScanSession, line *model.BoxRequirement) (*model.ScanResult, error) {
	unlock := s.customerLocks.acquire(customerKey{jobID: session.JobID, customer: line.CustomerName})
	defer unlock()

	// The customer may have been allocated a box while this scan was
	// in flight; if so the scan must count against the box instead.
	current, err := s.store.Requirements.GetByID(ctx, line.ID)
	if err != nil {
		return nil, err
	}
	if current.HasBox() {
		assignment, err := s.store.Assignments.FindActive(ctx, session.WorkerID, session.JobID)
		if err != nil {
			return nil, err
		}
		job, err := s.store.Jobs.GetByID(ctx, session.JobID)
		if err != nil {
			return nil, err
		}
		traversal, err := allocation.NewTraversal(assignment.Pattern, job.MaxBoxes)
		if err != nil {
			return nil, err
		}
		result, _, err := s.applyScan(ctx, session, assignment, traversal, current)
		return result, err
	}

	item := &model.PutAsideItem{
		JobID:        session.JobID,
		BarCode:      line.BarCode,
		ProductName:  line.ProductName,
		CustomerName: line.CustomerName,
		Quantity:     1,
		WorkerID:     session.WorkerID,
		CreatedAt:    time.Now(),
	}
	if err := s.store.PutAside.Enqueue(ctx, item); err != nil {
		return nil, err
	}

	if queued, err := s.store.PutAside.ListQueued(ctx, session.JobID); err == nil {
		metrics.SetPutAsideDepth(session.JobID, len(queued))
	}

	s.publisher.Publish(broadcast.Event{
		Type:    broadcast.EventPutAside,
		JobID:   session.JobID,
		Payload: item,
	})

	return &model.ScanResult{
		Outcome:     model.OutcomeQueued,
		Requirement: current,
		Message:     "customer has no box yet, item put aside",
	}, nil
}

// appendEvent stamps and stores one scan event, computing the gap to
// the session's previous event.
func (s *ScanService) appendEvent(ctx context.Context, session *model.ScanSession, ev *model.ScanEvent) (*model.ScanEvent, error) {
	now := time.Now()
	ev.SessionID = session.ID
	ev.JobID = session.JobID
	ev.WorkerID = session.WorkerID
	ev.Timestamp = now

	if last, err := s.store.Events.LastTimestamp(ctx, session.ID); err == nil && !last.IsZero() {
		ev.TimeSincePrevious = now.Sub(last).Milliseconds()
	}

	if err := s.store.Events.Append(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// UndoScans reverses up to count of the session's most recent scans,
// newest first, appending one compensating undo event per reversed
// scan. Requests beyond the available history are clamped, never
// failed. Quantities are floored at zero by the store.
func (s *ScanService) UndoScans(ctx context.Context, sessionID string, count int) ([]*model.ScanEvent, error) {
	if count <= 0 {
		return nil, nil
	}

	session, err := s.openSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Clamped: asking for more than exists undoes what exists.
	targets, err := s.store.Events.LastUndoable(ctx, sessionID, count)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}

	undone := make([]*model.ScanEvent, 0, len(targets))
	for _, target := range targets {
		compensating, err := s.undoOne(ctx, session, target)
		if err != nil {
			return undone, err
		}
		undone = append(undone, compensating)
	}

	session.UndoOperations += len(undone)
	session.UpdatedAt = time.Now()
	if err := s.store.Sessions.Update(ctx, session); err != nil {
		return undone, err
	}

	metrics.RecordUndo()
	return undone, nil
}

// undoOne reverses a single scan event under its box lock.
func (s *ScanService) undoOne(ctx context.Context, session *model.ScanSession, target *model.ScanEvent) (*model.ScanEvent, error) {
	unlock := s.boxLocks.acquire(boxKey{jobID: session.JobID, box: target.BoxNumber})
	defer unlock()

	updated, err := s.store.Requirements.Increment(ctx, target.RequirementID, -1, "", "")
	if err != nil {
		return nil, err
	}
	if err := s.store.Events.MarkUndone(ctx, []string{target.ID}); err != nil {
		return nil, err
	}

	compensating, err := s.appendEvent(ctx, session, &model.ScanEvent{
		BarCode:       target.BarCode,
		BoxNumber:     target.BoxNumber,
		RequirementID: target.RequirementID,
		EventType:     model.EventUndo,
		RefEventID:    target.ID,
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(broadcast.Event{
		Type:      broadcast.EventUndo,
		JobID:     session.JobID,
		BoxNumber: updated.BoxNumber,
		Payload:   model.NewScanDelta(updated),
	})

	return compensating, nil
}
