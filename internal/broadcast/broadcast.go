// Package broadcast fans state deltas out to the observers of a job.
// The engine publishes a delta for every committed mutation; delivery
// order per box matches commit order because the engine publishes
// while still holding the box lock and the hub enqueues under its own
// lock.
package broadcast

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guttosm/sortline-service/internal/metrics"
)

// EventType classifies a published delta.
type EventType string

const (
	// EventScan is a requirement increment from a worker scan.
	EventScan EventType = "scan"
	// EventUndo is a requirement decrement from an undo.
	EventUndo EventType = "undo"
	// EventScanError is a rejected scan (unknown barcode or extra item).
	EventScanError EventType = "scan_error"
	// EventPutAside is an item parked in the put-aside queue.
	EventPutAside EventType = "put_aside"
	// EventPutAsideDrained is a customer's queue converted into a box.
	EventPutAsideDrained EventType = "put_aside_drained"
	// EventCheckStarted is a CheckCount session opening on a box.
	EventCheckStarted EventType = "check_started"
	// EventCheckCompleted is a CheckCount session closing.
	EventCheckCompleted EventType = "check_completed"
	// EventBoxAssigned is a box allocation to a waiting customer.
	EventBoxAssigned EventType = "box_assigned"
)

// Event is one state delta observed by clients of a job.
type Event struct {
	Type      EventType   `json:"type"`
	JobID     string      `json:"job_id"`
	BoxNumber int         `json:"box_number,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// Publisher is the fan-out point the engine emits deltas to.
type Publisher interface {
	Publish(ev Event)
}

// NopPublisher discards all events. Used in tests and when no observer
// transport is wired.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(Event) {}

// Subscription is one observer's ordered event stream.
type Subscription struct {
	hub   *Hub
	jobID string
	ch    chan Event
	once  sync.Once
}

// Events returns the subscriber's ordered delta channel. The channel
// is closed when the subscription is cancelled.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close cancels the subscription and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.unsubscribe(s)
	})
}

// Hub is an in-process Publisher with per-job subscriber registries.
// Each subscriber owns a buffered channel; enqueueing happens under
// the hub lock so all subscribers of a job observe deltas in the same
// order they were published. A subscriber that cannot keep up has
// events dropped (counted in metrics) rather than stalling scanners;
// clients recover by re-reading the job progress snapshot.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
	closed bool
}

// NewHub creates a hub whose subscriber channels buffer up to buffer
// events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers an observer for one job's deltas.
func (h *Hub) Subscribe(jobID string) *Subscription {
	sub := &Subscription{
		hub:   h,
		jobID: jobID,
		ch:    make(chan Event, h.buffer),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.ch)
		return sub
	}
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[*Subscription]struct{})
	}
	h.subs[jobID][sub] = struct{}{}
	metrics.SetSubscriberCount(jobID, len(h.subs[jobID]))
	return sub
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.subs[sub.jobID]; ok {
		if _, member := set[sub]; member {
			delete(set, sub)
			close(sub.ch)
			if len(set) == 0 {
				delete(h.subs, sub.jobID)
			}
			metrics.SetSubscriberCount(sub.jobID, len(set))
		}
	}
}

// Publish delivers the event to every subscriber of its job.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	metrics.RecordBroadcast(string(ev.Type))
	for sub := range h.subs[ev.JobID] {
		select {
		case sub.ch <- ev:
		default:
			metrics.RecordBroadcastDrop()
			log.Warn().
				Str("job_id", ev.JobID).
				Str("type", string(ev.Type)).
				Msg("Dropping delta for slow subscriber")
		}
	}
}

// Close cancels every subscription and stops accepting events.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for jobID, set := range h.subs {
		for sub := range set {
			close(sub.ch)
		}
		delete(h.subs, jobID)
		metrics.SetSubscriberCount(jobID, 0)
	}
}
