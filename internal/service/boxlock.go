// Package service contains the business logic for the sortline service.
package service

import "sync"

// boxKey identifies one box of one job.
type boxKey struct {
	jobID string
	box   int
}

// customerKey identifies one customer of one job.
type customerKey struct {
	jobID    string
	customer string
}

// keyedLocks provides one mutex per key. Scans against the same box
// serialize on its lock; scans against different boxes proceed
// independently, so unrelated workers never contend. A job-wide lock
// is deliberately avoided.
type keyedLocks[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*sync.Mutex
}

func newKeyedLocks[K comparable]() *keyedLocks[K] {
	return &keyedLocks[K]{locks: make(map[K]*sync.Mutex)}
}

// acquire locks the key's mutex and returns its unlock function.
func (l *keyedLocks[K]) acquire(key K) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
