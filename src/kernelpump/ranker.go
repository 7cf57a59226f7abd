package kernelpump

import (
	"math"

	"gopkg.in/dnaeon/go-priorityqueue.v1"
)

// RankerStrategy selects how the Ranker orders candidate columns.
type RankerStrategy byte

const (
	// StrategyFrac orders by largest distance to the nearest integer (most
	// fractional) first.
	StrategyFrac RankerStrategy = iota
	// StrategyReducedCost orders by largest reduced-cost magnitude first.
	StrategyReducedCost
	// StrategyBlend orders by a weighted blend of fractionality and
	// reduced-cost magnitude.
	StrategyBlend
)

// Ranker chooses, one at a time, the next unfixed integer variable the
// rounder should assign. Rebuilt via SetCurrentState before every Next call
// the rounder makes, it is a thin priority-queue wrapper in the style of the
// teacher's own greedy-repair queue (src/scpcs/greedy.go).
type Ranker struct {
	strategy            RankerStrategy
	ignoreGenIntegers   bool
	pq                  *priorityqueue.PriorityQueue[int, float64]
}

// NewRanker builds a Ranker with the given strategy.
func NewRanker(strategy RankerStrategy) *Ranker {
	return &Ranker{strategy: strategy}
}

// IgnoreGeneralIntegers scopes the ranker to binaries only when flag is true.
func (r *Ranker) IgnoreGeneralIntegers(flag bool) {
	r.ignoreGenIntegers = flag
}

// SetCurrentState rebuilds the candidate queue from a fractional point x̃,
// over the given integer columns and their current domains.
func (r *Ranker) SetCurrentState(x []float64, colTypes []ColumnType, fixed []bool, reducedCosts []float64) {
	r.pq = priorityqueue.New[int, float64](priorityqueue.MaxHeap)
	for j, t := range colTypes {
		if !t.IsIntegral() {
			continue
		}
		if r.ignoreGenIntegers && t != Binary {
			continue
		}
		if fixed[j] {
			continue
		}
		r.pq.Put(j, r.score(x[j], reducedCosts[j]))
	}
}

func (r *Ranker) score(xj, rc float64) float64 {
	frac := fractionalPart(xj)
	switch r.strategy {
	case StrategyReducedCost:
		return math.Abs(rc)
	case StrategyBlend:
		return 0.5*frac + 0.5*math.Abs(rc)
	default:
		return frac
	}
}

// Next returns the next candidate column, or -1 when the queue is empty.
func (r *Ranker) Next() int {
	if r.pq == nil || r.pq.Len() == 0 {
		return -1
	}
	return r.pq.Get().Value
}

func fractionalPart(x float64) float64 {
	f := x - math.Floor(x)
	if f > 0.5 {
		return 1 - f
	}
	return f
}
