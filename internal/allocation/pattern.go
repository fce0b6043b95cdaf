// Package allocation implements deterministic box traversal orders for
// concurrent sorting workers. Each worker walks the job's boxes in a
// fixed sequence derived from its allocation pattern, so workers start
// in different regions of the box range and rarely contend.
package allocation

import "fmt"

// Pattern identifies a box traversal order.
type Pattern string

const (
	// PatternAscending walks boxes from 1 up to maxBoxes.
	PatternAscending Pattern = "ascending"
	// PatternDescending walks boxes from maxBoxes down to 1.
	PatternDescending Pattern = "descending"
	// PatternMiddleUp starts at the middle box, walks up to maxBoxes,
	// then covers the lower half descending.
	PatternMiddleUp Pattern = "middle_up"
	// PatternMiddleDown covers the lower half descending from the
	// middle, then the upper half ascending.
	PatternMiddleDown Pattern = "middle_down"
)

// patternOrder is the round-robin assignment order by worker index.
var patternOrder = [4]Pattern{
	PatternAscending,
	PatternDescending,
	PatternMiddleUp,
	PatternMiddleDown,
}

// PatternForIndex returns the pattern assigned to the worker with the
// given 0-based join ordinal. Assignment is round-robin over the four
// patterns, so up to four concurrent workers start in disjoint regions.
func PatternForIndex(workerIndex int) Pattern {
	if workerIndex < 0 {
		workerIndex = 0
	}
	return patternOrder[workerIndex%len(patternOrder)]
}

// Valid reports whether p is one of the four known patterns.
func (p Pattern) Valid() bool {
	switch p {
	case PatternAscending, PatternDescending, PatternMiddleUp, PatternMiddleDown:
		return true
	}
	return false
}

// Sequence returns the complete traversal order for the pattern over
// boxes 1..maxBoxes. The result is always a permutation: every box
// number appears exactly once.
func Sequence(p Pattern, maxBoxes int) []int {
	if maxBoxes <= 0 {
		return nil
	}

	seq := make([]int, 0, maxBoxes)
	mid := maxBoxes / 2
	if mid < 1 {
		mid = 1
	}

	switch p {
	case PatternDescending:
		for b := maxBoxes; b >= 1; b-- {
			seq = append(seq, b)
		}
	case PatternMiddleUp:
		for b := mid; b <= maxBoxes; b++ {
			seq = append(seq, b)
		}
		for b := mid - 1; b >= 1; b-- {
			seq = append(seq, b)
		}
	case PatternMiddleDown:
		for b := mid - 1; b >= 1; b-- {
			seq = append(seq, b)
		}
		for b := mid; b <= maxBoxes; b++ {
			seq = append(seq, b)
		}
	default: // PatternAscending
		for b := 1; b <= maxBoxes; b++ {
			seq = append(seq, b)
		}
	}

	return seq
}

// Traversal is a worker's materialized traversal order with O(1) box
// position lookup. It is immutable after construction; the worker's
// frontier position lives on the WorkerAssignment, not here.
type Traversal struct {
	pattern  Pattern
	maxBoxes int
	order    []int
	position map[int]int
}

// NewTraversal builds the traversal for the given pattern and box count.
func NewTraversal(p Pattern, maxBoxes int) (*Traversal, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("allocation: unknown pattern %q", p)
	}
	if maxBoxes <= 0 {
		return nil, fmt.Errorf("allocation: maxBoxes must be positive, got %d", maxBoxes)
	}

	order := Sequence(p, maxBoxes)
	position := make(map[int]int, len(order))
	for i, box := range order {
		position[box] = i
	}

	return &Traversal{
		pattern:  p,
		maxBoxes: maxBoxes,
		order:    order,
		position: position,
	}, nil
}

// Pattern returns the traversal's pattern.
func (t *Traversal) Pattern() Pattern { return t.pattern }

// Len returns the number of boxes in the traversal.
func (t *Traversal) Len() int { return len(t.order) }

// Order returns a copy of the full traversal order.
func (t *Traversal) Order() []int {
	out := make([]int, len(t.order))
	copy(out, t.order)
	return out
}

// IndexOf returns the position of box in the traversal, or -1 if the
// box number is outside 1..maxBoxes.
func (t *Traversal) IndexOf(box int) int {
	if i, ok := t.position[box]; ok {
		return i
	}
	return -1
}

// BoxAt returns the box number at the given traversal position, or 0
// if the position is out of range.
func (t *Traversal) BoxAt(index int) int {
	if index < 0 || index >= len(t.order) {
		return 0
	}
	return t.order[index]
}

// CanScan reports whether a worker whose frontier is at currentIndex
// may scan the given box. A worker's frontier never moves backward, so
// only boxes at or past the frontier are scannable.
func (t *Traversal) CanScan(currentIndex, box int) bool {
	i := t.IndexOf(box)
	return i >= 0 && i >= currentIndex
}

// Advance returns the new frontier index after a successful scan
// against box. Scans against boxes behind the frontier are replays and
// leave the frontier unchanged.
func (t *Traversal) Advance(currentIndex, box int) int {
	i := t.IndexOf(box)
	if i < currentIndex {
		return currentIndex
	}
	return i + 1
}
