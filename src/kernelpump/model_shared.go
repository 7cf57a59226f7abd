package kernelpump

import (
	"math"

	"github.com/assuncao-lucas/kernel-pump/src/varset"
)

// computeIntegralityGap is the shared implementation of Model.ComputeIntegralityGap,
// ported from the distance-to-nearest-feasible-integer rule used by every
// backend: for each integer-typed column, if x_j is outside [lb,ub] the
// per-variable gap is the distance to the nearer bound; otherwise it is the
// distance to the nearest integer.
func computeIntegralityGap(m Model, x []float64, eps float64) (float64, int) {
	numIntVars := 0
	numInfeas := 0
	gap := 0.0
	empty := len(x) == 0

	for j := 0; j < m.NumCols(); j++ {
		if !m.ColType(j).IsIntegral() {
			continue
		}
		numIntVars++

		var minGap float64
		if empty {
			minGap = 1.0
		} else {
			lb, ub := m.ColLB(j), m.ColUB(j)
			xj := x[j]
			if xj >= lb-eps && xj <= ub+eps {
				minGap = math.Abs(xj - math.Round(xj))
			} else {
				minGap = math.Min(math.Abs(xj-lb), math.Abs(xj-ub))
			}
		}
		if minGap > eps {
			numInfeas++
		}
		gap += minGap
	}

	if numIntVars == 0 {
		return 0.0, 0
	}
	return gap, numInfeas
}

// computeColsDependency is the shared implementation of Model.ColsDependency:
// for every row, every pair of distinct columns appearing in it are marked
// mutually dependent. A column is never dependent on itself.
func computeColsDependency(m Model) []*varset.Set {
	n := m.NumCols()
	dep := make([]*varset.Set, n)
	for j := range dep {
		dep[j] = varset.New(n)
	}
	for i := 0; i < m.NumRows(); i++ {
		row := m.Row(i)
		for a := 0; a < len(row.Cols); a++ {
			for b := a + 1; b < len(row.Cols); b++ {
				ca, cb := row.Cols[a], row.Cols[b]
				if ca == cb {
					continue
				}
				dep[ca].Set(cb)
				dep[cb].Set(ca)
			}
		}
	}
	return dep
}

// isSolutionFeasible is the shared implementation of Model.IsSolutionFeasible.
func isSolutionFeasible(m Model, x []float64, tol float64) bool {
	for i := 0; i < m.NumRows(); i++ {
		if !m.Row(i).Satisfies(x, tol) {
			return false
		}
	}
	return true
}
