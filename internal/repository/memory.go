package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guttosm/sortline-service/internal/domain/model"
)

// MemoryStore is the in-process reference implementation of the
// repository set. It keeps everything in maps guarded by a single
// RWMutex; per-box write serialization is the engine's concern, the
// store only guarantees map safety and atomicity of its compound
// operations (bulk overwrite, customer drain, box assignment).
type MemoryStore struct {
	mu           sync.RWMutex
	jobs         map[string]*model.Job
	requirements map[string]*model.BoxRequirement
	sessions     map[string]*model.ScanSession
	assignments  map[string]*model.WorkerAssignment
	events       map[string]*model.ScanEvent
	eventOrder   []string
	putAside     map[string]*model.PutAsideItem
	putOrder     []string
	checks       map[string]*model.CheckSession
	checkEvents  map[string][]*model.CheckEvent
	checkResults map[string][]model.CheckResult
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:         make(map[string]*model.Job),
		requirements: make(map[string]*model.BoxRequirement),
		sessions:     make(map[string]*model.ScanSession),
		assignments:  make(map[string]*model.WorkerAssignment),
		events:       make(map[string]*model.ScanEvent),
		putAside:     make(map[string]*model.PutAsideItem),
		checks:       make(map[string]*model.CheckSession),
		checkEvents:  make(map[string][]*model.CheckEvent),
		checkResults: make(map[string][]model.CheckResult),
	}
}

// NewMemoryStoreSet returns a Store where every repository is backed by
// the same MemoryStore instance.
func NewMemoryStoreSet() (*Store, *MemoryStore) {
	m := NewMemoryStore()
	return &Store{
		Jobs:         &memoryJobRepository{m},
		Requirements: &memoryRequirementRepository{m},
		Sessions:     &memorySessionRepository{m},
		Assignments:  &memoryAssignmentRepository{m},
		Events:       &memoryEventRepository{m},
		PutAside:     &memoryPutAsideRepository{m},
		Checks:       &memoryCheckRepository{m},
	}, m
}

func cloneRequirement(r *model.BoxRequirement) *model.BoxRequirement {
	c := *r
	return &c
}

// ---- jobs ----

type memoryJobRepository struct{ m *MemoryStore }

func (r *memoryJobRepository) Create(ctx context.Context, job *model.Job) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	c := *job
	r.m.jobs[job.ID] = &c
	return nil
}

func (r *memoryJobRepository) GetByID(ctx context.Context, jobID string) (*model.Job, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	job, ok := r.m.jobs[jobID]
	if !ok {
		return nil, model.ErrJobNotFound
	}
	c := *job
	return &c, nil
}

// ---- requirements ----

type memoryRequirementRepository struct{ m *MemoryStore }

func (r *memoryRequirementRepository) CreateMany(ctx context.Context, reqs []*model.BoxRequirement) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	now := time.Now()
	for _, req := range reqs {
		if req.ID == "" {
			req.ID = uuid.New().String()
		}
		if req.CreatedAt.IsZero() {
			req.CreatedAt = now
		}
		req.UpdatedAt = now
		req.IsComplete = req.Fulfilled()
		r.m.requirements[req.ID] = cloneRequirement(req)
	}
	return nil
}

func (r *memoryRequirementRepository) GetByID(ctx context.Context, id string) (*model.BoxRequirement, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	req, ok := r.m.requirements[id]
	if !ok {
		return nil, model.ErrUnrecognizedBarcode
	}
	return cloneRequirement(req), nil
}

func (r *memoryRequirementRepository) FindByBarcode(ctx context.Context, jobID, barcode string) ([]*model.BoxRequirement, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []*model.BoxRequirement
	for _, req := range r.m.requirements {
		if req.JobID == jobID && req.BarCode == barcode {
			out = append(out, cloneRequirement(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BoxNumber != out[j].BoxNumber {
			return out[i].BoxNumber < out[j].BoxNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memoryRequirementRepository) FindByBox(ctx context.Context, jobID string, boxNumber int) ([]*model.BoxRequirement, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []*model.BoxRequirement
	for _, req := range r.m.requirements {
		if req.JobID == jobID && req.BoxNumber == boxNumber {
			out = append(out, cloneRequirement(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BarCode < out[j].BarCode })
	return out, nil
}

func (r *memoryRequirementRepository) FindByJob(ctx context.Context, jobID string) ([]*model.BoxRequirement, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []*model.BoxRequirement
	for _, req := range r.m.requirements {
		if req.JobID == jobID {
			out = append(out, cloneRequirement(req))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BoxNumber != out[j].BoxNumber {
			return out[i].BoxNumber < out[j].BoxNumber
		}
		return out[i].BarCode < out[j].BarCode
	})
	return out, nil
}

func (r *memoryRequirementRepository) Increment(ctx context.Context, id string, delta int, workerID, workerColor string) (*model.BoxRequirement, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	req, ok := r.m.requirements[id]
	if !ok {
		return nil, model.ErrUnrecognizedBarcode
	}

	req.ScannedQty += delta
	if req.ScannedQty < 0 {
		req.ScannedQty = 0
	}
	req.IsComplete = req.Fulfilled()
	if workerID != "" {
		req.LastWorkerID = workerID
		req.LastWorkerColor = workerColor
	}
	req.UpdatedAt = time.Now()

	return cloneRequirement(req), nil
}

func (r *memoryRequirementRepository) SetScannedBulk(ctx context.Context, updates []ScannedUpdate) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	// Validate first so the batch applies all-or-nothing.
	for _, u := range updates {
		if _, ok := r.m.requirements[u.RequirementID]; !ok {
			return model.ErrUnrecognizedBarcode
		}
	}

	now := time.Now()
	for _, u := range updates {
		req := r.m.requirements[u.RequirementID]
		req.ScannedQty = u.ScannedQty
		if req.ScannedQty < 0 {
			req.ScannedQty = 0
		}
		req.IsComplete = req.Fulfilled()
		req.UpdatedAt = now
	}
	return nil
}

func (r *memoryRequirementRepository) AssignBox(ctx context.Context, jobID, customerName string, boxNumber int) ([]*model.BoxRequirement, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	now := time.Now()
	var out []*model.BoxRequirement
	for _, req := range r.m.requirements {
		if req.JobID == jobID && req.CustomerName == customerName && !req.HasBox() {
			req.BoxNumber = boxNumber
			req.UpdatedAt = now
			out = append(out, cloneRequirement(req))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BarCode < out[j].BarCode })
	return out, nil
}

// ---- scan sessions ----

type memorySessionRepository struct{ m *MemoryStore }

func (r *memorySessionRepository) Create(ctx context.Context, s *model.ScanSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	c := *s
	r.m.sessions[s.ID] = &c
	return nil
}

func (r *memorySessionRepository) GetByID(ctx context.Context, id string) (*model.ScanSession, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	if s, ok := r.m.sessions[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (r *memorySessionRepository) FindOpen(ctx context.Context, workerID, jobID string) (*model.ScanSession, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for _, s := range r.m.sessions {
		if s.WorkerID == workerID && s.JobID == jobID && s.Open() {
			c := *s
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memorySessionRepository) Update(ctx context.Context, s *model.ScanSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c := *s
	r.m.sessions[s.ID] = &c
	return nil
}

// ---- worker assignments ----

type memoryAssignmentRepository struct{ m *MemoryStore }

func (r *memoryAssignmentRepository) Create(ctx context.Context, a *model.WorkerAssignment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	c := *a
	r.m.assignments[a.ID] = &c
	return nil
}

func (r *memoryAssignmentRepository) FindActive(ctx context.Context, workerID, jobID string) (*model.WorkerAssignment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for _, a := range r.m.assignments {
		if a.WorkerID == workerID && a.JobID == jobID && a.Active {
			c := *a
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memoryAssignmentRepository) CountByJob(ctx context.Context, jobID string) (int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	n := 0
	for _, a := range r.m.assignments {
		if a.JobID == jobID {
			n++
		}
	}
	return n, nil
}

func (r *memoryAssignmentRepository) ListByJob(ctx context.Context, jobID string) ([]*model.WorkerAssignment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []*model.WorkerAssignment
	for _, a := range r.m.assignments {
		if a.JobID == jobID {
			c := *a
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WorkerIndex < out[j].WorkerIndex })
	return out, nil
}

func (r *memoryAssignmentRepository) UpdateCursor(ctx context.Context, id string, currentBoxIndex int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if a, ok := r.m.assignments[id]; ok {
		a.CurrentBoxIndex = currentBoxIndex
		a.UpdatedAt = time.Now()
	}
	return nil
}

// ---- scan events ----

type memoryEventRepository struct{ m *MemoryStore }

func (r *memoryEventRepository) Append(ctx context.Context, ev *model.ScanEvent) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	c := *ev
	r.m.events[ev.ID] = &c
	r.m.eventOrder = append(r.m.eventOrder, ev.ID)
	return nil
}

func (r *memoryEventRepository) LastUndoable(ctx context.Context, sessionID string, count int) ([]*model.ScanEvent, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []*model.ScanEvent
	for i := len(r.m.eventOrder) - 1; i >= 0 && len(out) < count; i-- {
		ev := r.m.events[r.m.eventOrder[i]]
		if ev.SessionID == sessionID && ev.EventType == model.EventScan && !ev.Undone {
			c := *ev
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memoryEventRepository) MarkUndone(ctx context.Context, eventIDs []string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, id := range eventIDs {
		if ev, ok := r.m.events[id]; ok {
			ev.Undone = true
		}
	}
	return nil
}

func (r *memoryEventRepository) LastTimestamp(ctx context.Context, sessionID string) (time.Time, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	for i := len(r.m.eventOrder) - 1; i >= 0; i-- {
		ev := r.m.events[r.m.eventOrder[i]]
		if ev.SessionID == sessionID {
			return ev.Timestamp, nil
		}
	}
	return time.Time{}, nil
}

func (r *memoryEventRepository) FindBySession(ctx context.Context, sessionID string) ([]*model.ScanEvent, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []*model.ScanEvent
	for _, id := range r.m.eventOrder {
		ev := r.m.events[id]
		if ev.SessionID == sessionID {
			c := *ev
			out = append(out, &c)
		}
	}
	return out, nil
}

// ---- put-aside queue ----

type memoryPutAsideRepository struct{ m *MemoryStore }

func (r *memoryPutAsideRepository) Enqueue(ctx context.Context, item *model.PutAsideItem) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}
	c := *item
	r.m.putAside[item.ID] = &c
	r.m.putOrder = append(r.m.putOrder, item.ID)
	return nil
}

func (r *memoryPutAsideRepository) ListQueued(ctx context.Context, jobID string) ([]*model.PutAsideItem, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []*model.PutAsideItem
	for i := len(r.m.putOrder) - 1; i >= 0; i-- {
		item := r.m.putAside[r.m.putOrder[i]]
		if item.JobID == jobID && !item.Drained() {
			c := *item
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memoryPutAsideRepository) DrainForCustomer(ctx context.Context, jobID, customerName string, boxNumber int, at time.Time) ([]*model.PutAsideItem, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var out []*model.PutAsideItem
	for _, id := range r.m.putOrder {
		item := r.m.putAside[id]
		if item.JobID == jobID && item.CustomerName == customerName && !item.Drained() {
			item.AllocatedBoxNumber = boxNumber
			t := at
			item.AllocatedAt = &t
			c := *item
			out = append(out, &c)
		}
	}
	return out, nil
}

// ---- check sessions ----

type memoryCheckRepository struct{ m *MemoryStore }

func (r *memoryCheckRepository) CreateSession(ctx context.Context, s *model.CheckSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	c := *s
	r.m.checks[s.ID] = &c
	return nil
}

func (r *memoryCheckRepository) GetSession(ctx context.Context, id string) (*model.CheckSession, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	if s, ok := r.m.checks[id]; ok {
		c := *s
		return &c, nil
	}
	return nil, nil
}

func (r *memoryCheckRepository) UpdateSession(ctx context.Context, s *model.CheckSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	c := *s
	r.m.checks[s.ID] = &c
	return nil
}

func (r *memoryCheckRepository) AppendEvent(ctx context.Context, ev *model.CheckEvent) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	c := *ev
	r.m.checkEvents[ev.CheckSessionID] = append(r.m.checkEvents[ev.CheckSessionID], &c)
	return nil
}

func (r *memoryCheckRepository) FindEventsBySession(ctx context.Context, sessionID string) ([]*model.CheckEvent, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	evs := r.m.checkEvents[sessionID]
	out := make([]*model.CheckEvent, 0, len(evs))
	for _, ev := range evs {
		c := *ev
		out = append(out, &c)
	}
	return out, nil
}

func (r *memoryCheckRepository) SaveResults(ctx context.Context, sessionID string, results []model.CheckResult) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	out := make([]model.CheckResult, len(results))
	copy(out, results)
	r.m.checkResults[sessionID] = out
	return nil
}

// ResultsBySession returns saved check results; used by reporting and
// in tests.
func (m *MemoryStore) ResultsBySession(sessionID string) []model.CheckResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.CheckResult, len(m.checkResults[sessionID]))
	copy(out, m.checkResults[sessionID])
	return out
}
