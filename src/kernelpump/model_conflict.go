package kernelpump

import (
	"context"
	"time"

	"github.com/assuncao-lucas/kernel-pump/src/varset"
)

// findSetOfConflictingVariables is the backend-agnostic implementation of
// Model.FindSetOfConflictingVariables, shared by every Model implementation:
// it only needs LPOpt and bound mutation, both already on the interface, so
// there is exactly one version of this algorithm regardless of backend.
//
// optimize=true: relax the upper bound of every candidate to +inf, solve the
// LP, and report every candidate whose relaxed value lands strictly above 1+eps
// (it needed the relaxation to become LP-feasible). optimize=false: relax
// every candidate at once and, if the result is still infeasible, report the
// full candidate set as the (non-minimal) conflict — a conservative fallback
// in place of a true backend IIS call, which this facade's chosen backends do
// not expose incrementally.
func findSetOfConflictingVariables(ctx context.Context, m Model, candidates *varset.Set, optimize bool, timeLimit time.Duration) (*varset.Set, error) {
	const eps = 1e-6
	n := m.NumCols()
	result := varset.New(n)

	savedUB := make(map[int]float64)
	candidates.Each(func(j int) bool {
		savedUB[j] = m.ColUB(j)
		m.SetColUB(j, 1e20)
		return true
	})
	defer func() {
		for j, ub := range savedUB {
			m.SetColUB(j, ub)
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	deadline, cancel := context.WithTimeout(ctx, timeLimit)
	defer cancel()

	ok, err := m.LPOpt(deadline, Dual, false, false)
	if err != nil {
		return result, err
	}
	if !ok || !m.IsPrimalFeasible() {
		if !optimize {
			candidates.Each(func(j int) bool { result.Set(j); return true })
		}
		return result, nil
	}

	if optimize {
		x := m.Sol()
		candidates.Each(func(j int) bool {
			if x[j] > 1+eps {
				result.Set(j)
			}
			return true
		})
	}
	return result, nil
}
