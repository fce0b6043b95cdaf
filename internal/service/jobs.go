package service

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/sortline-service/internal/allocation"
	"github.com/guttosm/sortline-service/internal/broadcast"
	"github.com/guttosm/sortline-service/internal/domain/model"
	"github.com/guttosm/sortline-service/internal/repository"
	"github.com/guttosm/sortline-service/internal/service/cache"
)

// JobLine is one requirement line of a job load: the expected quantity
// of one product for one customer, optionally pre-assigned to a box.
// Box number zero means the customer waits for capacity.
type JobLine struct {
	BoxNumber    int    `json:"box_number"`
	CustomerName string `json:"customer_name"`
	BarCode      string `json:"barcode"`
	ProductName  string `json:"product_name"`
	RequiredQty  int    `json:"required_qty"`
}

// BoxProgress is the scanned-versus-required tally of one box.
type BoxProgress struct {
	BoxNumber    int    `json:"box_number"`
	CustomerName string `json:"customer_name"`
	RequiredQty  int    `json:"required_qty"`
	ScannedQty   int    `json:"scanned_qty"`
	Complete     bool   `json:"complete"`
}

// WorkerProgress is one worker's position on the job.
type WorkerProgress struct {
	WorkerID    string             `json:"worker_id"`
	Pattern     allocation.Pattern `json:"pattern"`
	WorkerIndex int                `json:"worker_index"`
	Color       string             `json:"color"`
	// CurrentBox is the box at the worker's frontier, zero when the
	// traversal is exhausted.
	CurrentBox int `json:"current_box"`
}

// JobProgress is a point-in-time snapshot of a job's sorting state,
// derived entirely from stored requirements and assignments.
type JobProgress struct {
	JobID          string           `json:"job_id"`
	Name           string           `json:"name"`
	MaxBoxes       int              `json:"max_boxes"`
	TotalRequired  int              `json:"total_required"`
	TotalScanned   int              `json:"total_scanned"`
	CompletedBoxes int              `json:"completed_boxes"`
	PutAsideQueued int              `json:"put_aside_queued"`
	Boxes          []BoxProgress    `json:"boxes"`
	Workers        []WorkerProgress `json:"workers"`
}

// JobService loads sorting jobs and projects progress snapshots.
type JobService struct {
	store *repository.Store
	// snapshots caches progress projections for a short TTL; the
	// projection walks every requirement of a job, which supervisor
	// dashboards poll aggressively. Mutations drop the job's entry
	// through InvalidateProgress.
	snapshots cache.CacheWithMetrics[*JobProgress]
}

// JobOption configures a JobService.
type JobOption func(*JobService)

// WithProgressCache caches progress snapshots for the given TTL.
func WithProgressCache(capacity int, ttl time.Duration) JobOption {
	return func(s *JobService) {
		s.snapshots = NewShardedCache[*JobProgress](capacity, ttl, 16)
	}
}

// NewJobService creates the job loader.
func NewJobService(store *repository.Store, opts ...JobOption) *JobService {
	s := &JobService{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InvalidateProgress drops the cached snapshot for one job so the next
// Progress call re-projects from stored state.
func (s *JobService) InvalidateProgress(jobID string) {
	if s.snapshots != nil {
		s.snapshots.Invalidate(jobID)
	}
}

// ProgressCacheMetrics reports hit/miss/eviction counters of the
// snapshot cache, zero-valued when caching is off.
func (s *JobService) ProgressCacheMetrics() cache.Metrics {
	if s.snapshots == nil {
		return cache.Metrics{}
	}
	return s.snapshots.Metrics()
}

// WrapPublisher decorates a publisher so every delivered event first
// drops the affected job's cached snapshot. The scan, put-aside, and
// check services publish on every mutation, so routing them through
// the wrapper keeps Progress read-your-writes instead of TTL-stale.
func (s *JobService) WrapPublisher(next broadcast.Publisher) broadcast.Publisher {
	if next == nil {
		next = broadcast.NopPublisher{}
	}
	return invalidatingPublisher{jobs: s, next: next}
}

type invalidatingPublisher struct {
	jobs *JobService
	next broadcast.Publisher
}

func (p invalidatingPublisher) Publish(ev broadcast.Event) {
	p.jobs.InvalidateProgress(ev.JobID)
	p.next.Publish(ev)
}

// Load ingests a job: metadata plus its full requirement table.
// Lines with a box number outside 0..maxBoxes are rejected before
// anything is written.
func (s *JobService) Load(ctx context.Context, name string, maxBoxes int, lines []JobLine) (*model.Job, error) {
	if maxBoxes < 1 {
		return nil, model.ErrBoxOutOfRange
	}
	for _, line := range lines {
		if line.BoxNumber < 0 || line.BoxNumber > maxBoxes {
			return nil, model.ErrBoxOutOfRange
		}
	}

	job := &model.Job{Name: name, MaxBoxes: maxBoxes}
	if err := s.store.Jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	reqs := make([]*model.BoxRequirement, 0, len(lines))
	for _, line := range lines {
		reqs = append(reqs, &model.BoxRequirement{
			JobID:        job.ID,
			BoxNumber:    line.BoxNumber,
			CustomerName: line.CustomerName,
			BarCode:      line.BarCode,
			ProductName:  line.ProductName,
			RequiredQty:  line.RequiredQty,
		})
	}
	if err := s.store.Requirements.CreateMany(ctx, reqs); err != nil {
		return nil, err
	}

	log.Info().
		Str("job_id", job.ID).
		Str("name", name).
		Int("max_boxes", maxBoxes).
		Int("lines", len(reqs)).
		Msg("Job loaded")

	return job, nil
}

// Progress projects the job's current sorting state: per-box tallies,
// job totals, queue depth, and each worker's frontier position.
func (s *JobService) Progress(ctx context.Context, jobID string) (*JobProgress, error) {
	if s.snapshots != nil {
		if cached, ok := s.snapshots.Get(jobID); ok {
			return cached, nil
		}
	}

	job, err := s.store.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	reqs, err := s.store.Requirements.FindByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	progress := &JobProgress{
		JobID:    job.ID,
		Name:     job.Name,
		MaxBoxes: job.MaxBoxes,
	}

	type boxAgg struct {
		customer string
		required int
		scanned  int
		complete bool
	}
	boxes := make(map[int]*boxAgg)
	for _, r := range reqs {
		progress.TotalRequired += r.RequiredQty
		progress.TotalScanned += r.ScannedQty
		if !r.HasBox() {
			continue
		}
		agg, ok := boxes[r.BoxNumber]
		if !ok {
			agg = &boxAgg{customer: r.CustomerName, complete: true}
			boxes[r.BoxNumber] = agg
		}
		agg.required += r.RequiredQty
		agg.scanned += r.ScannedQty
		agg.complete = agg.complete && r.Fulfilled()
	}

	progress.Boxes = make([]BoxProgress, 0, len(boxes))
	for number, agg := range boxes {
		if agg.complete {
			progress.CompletedBoxes++
		}
		progress.Boxes = append(progress.Boxes, BoxProgress{
			BoxNumber:    number,
			CustomerName: agg.customer,
			RequiredQty:  agg.required,
			ScannedQty:   agg.scanned,
			Complete:     agg.complete,
		})
	}
	sort.Slice(progress.Boxes, func(i, j int) bool {
		return progress.Boxes[i].BoxNumber < progress.Boxes[j].BoxNumber
	})

	queued, err := s.store.PutAside.ListQueued(ctx, jobID)
	if err != nil {
		return nil, err
	}
	progress.PutAsideQueued = len(queued)

	assignments, err := s.store.Assignments.ListByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	progress.Workers = make([]WorkerProgress, 0, len(assignments))
	for _, a := range assignments {
		if !a.Active {
			continue
		}
		wp := WorkerProgress{
			WorkerID:    a.WorkerID,
			Pattern:     a.Pattern,
			WorkerIndex: a.WorkerIndex,
			Color:       a.Color,
		}
		if traversal, err := allocation.NewTraversal(a.Pattern, job.MaxBoxes); err == nil {
			wp.CurrentBox = traversal.BoxAt(a.CurrentBoxIndex)
		}
		progress.Workers = append(progress.Workers, wp)
	}

	if s.snapshots != nil {
		s.snapshots.Set(jobID, progress)
	}
	return progress, nil
}
