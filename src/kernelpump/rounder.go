package kernelpump

import (
	"math"
	"math/rand"
)

// Rounder converts a fractional LP point into an integer point honoring
// variable types. init/apply/clear is the collapsed capability this
// component exposes in place of the source's deep rounder/propagator class
// hierarchy (see SPEC_FULL.md §9).
type Rounder interface {
	Init(m Model, ignoreGeneralInt bool)
	Apply(in []float64, out []float64)
	Clear()
}

// intColumns enumerates binary and general-integer columns with lb != ub,
// restricted to binaries when ignoreGeneralInt is set — the pre-init step
// shared by both rounder variants.
func intColumns(m Model, ignoreGeneralInt bool) []int {
	var cols []int
	for j := 0; j < m.NumCols(); j++ {
		t := m.ColType(j)
		if !t.IsIntegral() {
			continue
		}
		if ignoreGeneralInt && t != Binary {
			continue
		}
		if m.ColLB(j) == m.ColUB(j) {
			continue
		}
		cols = append(cols, j)
	}
	return cols
}

// SimpleRounder rounds each integer column independently against a
// threshold: floor when frac(x) < t, else ceil. When Randomized is true, t
// is redrawn uniformly in [0,1] per Apply call from the shared seeded
// generator; otherwise t is fixed at 0.5.
type SimpleRounder struct {
	Randomized bool
	Rng        *rand.Rand

	model            Model
	ignoreGeneralInt bool
	intCols          []int
}

func NewSimpleRounder(randomized bool, rng *rand.Rand) *SimpleRounder {
	return &SimpleRounder{Randomized: randomized, Rng: rng}
}

func (r *SimpleRounder) Init(m Model, ignoreGeneralInt bool) {
	r.model = m
	r.ignoreGeneralInt = ignoreGeneralInt
	r.intCols = intColumns(m, ignoreGeneralInt)
}

func (r *SimpleRounder) Apply(in []float64, out []float64) {
	copy(out, in)
	t := 0.5
	if r.Randomized && r.Rng != nil {
		t = r.Rng.Float64()
	}
	for _, j := range r.intCols {
		frac := in[j] - math.Floor(in[j])
		if frac < t {
			out[j] = math.Floor(in[j])
		} else {
			out[j] = math.Ceil(in[j])
		}
		out[j] = clamp(out[j], r.model.ColLB(j), r.model.ColUB(j))
	}
}

func (r *SimpleRounder) Clear() {
	r.model = nil
	r.intCols = nil
}

// PropagatorRounder restores the propagator's snapshot before every Apply,
// then repeatedly asks the Ranker for the next column to fix, propagates the
// choice, and copies every consequential fix into out.
type PropagatorRounder struct {
	propagator *Propagator
	ranker     *Ranker
	snapshot   *snapshot

	model            Model
	ignoreGeneralInt bool
	intCols          []int
}

func NewPropagatorRounder(propagator *Propagator, ranker *Ranker) *PropagatorRounder {
	return &PropagatorRounder{propagator: propagator, ranker: ranker}
}

func (r *PropagatorRounder) Init(m Model, ignoreGeneralInt bool) {
	r.model = m
	r.ignoreGeneralInt = ignoreGeneralInt
	r.intCols = intColumns(m, ignoreGeneralInt)
	r.ranker.IgnoreGeneralIntegers(ignoreGeneralInt)
	r.snapshot = r.propagator.GetStateMgr()
}

func (r *PropagatorRounder) Apply(in []float64, out []float64) {
	r.propagator.Restore(r.snapshot)
	copy(out, in)

	colTypes := make([]ColumnType, len(in))
	fixed := make([]bool, len(in))
	for j := range in {
		colTypes[j] = r.model.ColType(j)
	}
	reducedCosts := r.model.ReducedCosts()

	for {
		r.ranker.SetCurrentState(in, colTypes, fixed, reducedCosts)
		j := r.ranker.Next()
		if j == -1 {
			break
		}

		v := roundClamped(in[j], r.propagator.VarLB(j), r.propagator.VarUB(j))
		out[j] = v
		fixed[j] = true

		if !r.propagator.Propagate(j, v) {
			// Infeasible under propagation: simple-round the remaining
			// columns; KP/FP treat the resulting point as a failed
			// sub-iteration via the normal feasibility checks downstream.
			for _, k := range r.intCols {
				if !fixed[k] {
					out[k] = roundClamped(in[k], r.model.ColLB(k), r.model.ColUB(k))
				}
			}
			break
		}
		for _, k := range r.propagator.GetLastFixed() {
			out[k] = r.propagator.VarLB(k)
			fixed[k] = true
		}
	}
}

func (r *PropagatorRounder) Clear() {
	r.model = nil
	r.intCols = nil
	r.snapshot = nil
}

func roundClamped(x, lb, ub float64) float64 {
	return clamp(math.Round(x), lb, ub)
}

func clamp(x, lb, ub float64) float64 {
	if x < lb {
		return lb
	}
	if x > ub {
		return ub
	}
	return x
}
