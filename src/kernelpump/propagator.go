package kernelpump

import "math"

// RowShape classifies a row for propagation-dispatch purposes: which
// tightening rule applies depends on the shape of its coefficients, not
// just its sense.
type RowShape byte

const (
	ShapeLinear RowShape = iota
	ShapeKnapsack
	ShapeClique
	ShapeCardinality
)

func (s RowShape) String() string {
	switch s {
	case ShapeLinear:
		return "Linear"
	case ShapeKnapsack:
		return "Knapsack"
	case ShapeClique:
		return "Clique"
	case ShapeCardinality:
		return "Cardinality"
	default:
		return "UnknownRowShape"
	}
}

// classifyRowShape analyzes a row's coefficient/type pattern and picks the
// tightening rule to apply, the "analyze" factory step of the
// analyze/propagate capability pair.
func classifyRowShape(row Row, colTypes []ColumnType) RowShape {
	allBinary := true
	allUnitCoef := true
	allSameSign := true
	sign := 0.0
	for k, j := range row.Cols {
		if colTypes[j] != Binary {
			allBinary = false
		}
		v := row.Vals[k]
		if math.Abs(math.Abs(v)-1) > 1e-9 {
			allUnitCoef = false
		}
		if sign == 0 {
			sign = math.Copysign(1, v)
		} else if math.Copysign(1, v) != sign {
			allSameSign = false
		}
	}
	switch {
	case allBinary && allUnitCoef && row.Sense == LE && row.RHS == 1 && len(row.Cols) == 2:
		return ShapeClique
	case allBinary && allUnitCoef && allSameSign && (row.Sense == LE || row.Sense == GE || row.Sense == EQ):
		return ShapeCardinality
	case allSameSign && (row.Sense == LE || row.Sense == GE):
		return ShapeKnapsack
	default:
		return ShapeLinear
	}
}

// domain is a variable's current tightened bounds.
type domain struct {
	lb, ub float64
	fixed  bool
}

// snapshot is a restore point captured by getStateMgr.
type snapshot struct {
	domains []domain
}

// Propagator is a bound-consistency engine over the linear rows of a Model.
// It maintains a per-column domain independent of the Model's own bounds
// (the rounder queries it, then writes results into an output vector; it
// never mutates the Model itself), and supports snapshot/restore so the
// rounder can reset before every apply().
type Propagator struct {
	model    Model
	colTypes []ColumnType
	rowsByCol [][]int // rowsByCol[j] = indices of rows touching column j
	shapes   []RowShape
	domains  []domain

	lastFixed []int

	filterConstraints bool
	filteredRows      map[int]bool
}

// NewPropagator builds a propagator over m's rows, seeding every column's
// domain from the model's current bounds.
func NewPropagator(m Model, filterConstraints bool) *Propagator {
	n := m.NumCols()
	p := &Propagator{
		model:             m,
		colTypes:          make([]ColumnType, n),
		rowsByCol:         make([][]int, n),
		domains:           make([]domain, n),
		filterConstraints: filterConstraints,
		filteredRows:      map[int]bool{},
	}
	for j := 0; j < n; j++ {
		p.colTypes[j] = m.ColType(j)
		p.domains[j] = domain{lb: m.ColLB(j), ub: m.ColUB(j)}
	}
	rows := m.Rows()
	p.shapes = make([]RowShape, len(rows))
	for i, row := range rows {
		p.shapes[i] = classifyRowShape(row, p.colTypes)
		if filterConstraints && rowIsIllConditioned(row, p.colTypes) {
			p.filteredRows[i] = true
			continue
		}
		for _, j := range row.Cols {
			p.rowsByCol[j] = append(p.rowsByCol[j], i)
		}
	}
	return p
}

// rowIsIllConditioned rejects rows whose coefficient dynamism is too large
// for reliable bound tightening: max|a|/min|a| > 10 for all-continuous
// rows (no integral variable's rounding slack to absorb the propagated
// bound's error), > 1000 otherwise.
func rowIsIllConditioned(row Row, colTypes []ColumnType) bool {
	if len(row.Vals) == 0 {
		return false
	}
	maxAbs, minAbs := 0.0, math.Inf(1)
	for _, v := range row.Vals {
		a := math.Abs(v)
		if a == 0 {
			continue
		}
		if a > maxAbs {
			maxAbs = a
		}
		if a < minAbs {
			minAbs = a
		}
	}
	if minAbs == 0 || math.IsInf(minAbs, 1) {
		return false
	}

	threshold := 1000.0
	if rowIsAllContinuous(row, colTypes) {
		threshold = 10.0
	}
	return maxAbs/minAbs > threshold
}

func rowIsAllContinuous(row Row, colTypes []ColumnType) bool {
	for _, j := range row.Cols {
		if colTypes[j].IsIntegral() {
			return false
		}
	}
	return true
}

// VarLB returns column j's current tightened lower bound.
func (p *Propagator) VarLB(j int) float64 { return p.domains[j].lb }

// VarUB returns column j's current tightened upper bound.
func (p *Propagator) VarUB(j int) float64 { return p.domains[j].ub }

// GetStateMgr returns a token capturing every column's current domain.
func (p *Propagator) GetStateMgr() *snapshot {
	return &snapshot{domains: append([]domain(nil), p.domains...)}
}

// Restore reverts every column's domain to the snapshot's values.
func (p *Propagator) Restore(s *snapshot) {
	copy(p.domains, s.domains)
	p.lastFixed = nil
}

// GetLastFixed returns the columns fixed as a *consequence* of the most
// recent Propagate call, not including the column Propagate itself fixed.
func (p *Propagator) GetLastFixed() []int {
	return p.lastFixed
}

// Propagate fixes column j to v and iteratively tightens every row touching
// a changed column until quiescence or a domain becomes empty. It returns
// false on infeasibility (an emptied domain).
func (p *Propagator) Propagate(j int, v float64) bool {
	p.lastFixed = nil
	p.domains[j] = domain{lb: v, ub: v, fixed: true}

	worklist := newQueue[int]()
	worklist.push(j)
	queued := map[int]bool{j: true}

	for !worklist.empty() {
		col := worklist.pop()
		delete(queued, col)

		for _, rowIdx := range p.rowsByCol[col] {
			if p.filteredRows[rowIdx] {
				continue
			}
			row := p.model.Row(rowIdx)
			changed, ok := p.tightenRow(rowIdx, row)
			if !ok {
				return false
			}
			for _, cj := range changed {
				if cj != j && !contains(p.lastFixed, cj) {
					p.lastFixed = append(p.lastFixed, cj)
				}
				if !queued[cj] {
					worklist.push(cj)
					queued[cj] = true
				}
			}
		}
	}
	return true
}

func contains(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// tightenRow dispatches to the tightening rule that fits row's shape
// (p.shapes[rowIdx], computed once by classifyRowShape in NewPropagator):
// Clique and Cardinality rows admit a direct combinatorial rule over fixed
// counts instead of interval arithmetic; Knapsack and plain Linear rows fall
// back to the generic activity-bound rule.
func (p *Propagator) tightenRow(rowIdx int, row Row) (changed []int, ok bool) {
	if row.Sense == Nonbinding {
		return nil, true
	}
	switch p.shapes[rowIdx] {
	case ShapeClique:
		return p.tightenCliqueRow(row)
	case ShapeCardinality:
		return p.tightenCardinalityRow(row)
	default:
		return p.tightenLinearRow(row)
	}
}

// tightenCliqueRow handles the two-binary-variable "at most one" row: once
// either side is fixed to 1, the other is forced to 0 directly, without
// going through the generic interval machinery.
func (p *Propagator) tightenCliqueRow(row Row) (changed []int, ok bool) {
	if len(row.Cols) == 2 {
		a, b := row.Cols[0], row.Cols[1]
		if p.domains[a].fixed && p.domains[a].lb == 1 && !p.domains[b].fixed {
			return p.forceZero(b)
		}
		if p.domains[b].fixed && p.domains[b].lb == 1 && !p.domains[a].fixed {
			return p.forceZero(a)
		}
	}
	return p.tightenLinearRow(row)
}

// tightenCardinalityRow handles Σ x_j ≤/=/≥ k over binaries with uniform
// positive coefficients by counting, rather than per-column interval math:
// once the count of fixed-to-1 columns already saturates the LE/EQ side, the
// remaining free columns are forced to 0; once the free columns are all
// that's left to reach the GE/EQ side, they are forced to 1. Falls back to
// the generic rule for the (rare) negative-coefficient cardinality rows
// classifyRowShape also admits.
func (p *Propagator) tightenCardinalityRow(row Row) (changed []int, ok bool) {
	if len(row.Vals) == 0 || row.Vals[0] < 0 {
		return p.tightenLinearRow(row)
	}

	fixedOnes := 0
	var free []int
	for _, j := range row.Cols {
		d := p.domains[j]
		switch {
		case d.fixed && d.lb == 1:
			fixedOnes++
		case !d.fixed || d.lb != 0:
			free = append(free, j)
		}
	}
	k := row.RHS

	if row.Sense == LE || row.Sense == EQ {
		if float64(fixedOnes) > k+1e-9 {
			return nil, false
		}
		if float64(fixedOnes) >= k-1e-9 {
			for _, j := range free {
				c, ok := p.forceZero(j)
				if !ok {
					return changed, false
				}
				changed = append(changed, c...)
			}
			free = nil
		}
	}
	if row.Sense == GE || row.Sense == EQ {
		need := k - float64(fixedOnes)
		if need > float64(len(free))+1e-9 {
			return changed, false
		}
		if need > 0 && need >= float64(len(free))-1e-9 {
			for _, j := range free {
				c, ok := p.forceOne(j)
				if !ok {
					return changed, false
				}
				changed = append(changed, c...)
			}
		}
	}
	return changed, true
}

// forceZero fixes column j to 0, or reports infeasibility if its domain
// cannot reach 0.
func (p *Propagator) forceZero(j int) (changed []int, ok bool) {
	d := p.domains[j]
	if d.lb > 0+1e-9 {
		return nil, false
	}
	d.lb, d.ub, d.fixed = 0, 0, true
	p.domains[j] = d
	return []int{j}, true
}

// forceOne fixes column j to 1, or reports infeasibility if its domain
// cannot reach 1.
func (p *Propagator) forceOne(j int) (changed []int, ok bool) {
	d := p.domains[j]
	if d.ub < 1-1e-9 {
		return nil, false
	}
	d.lb, d.ub, d.fixed = 1, 1, true
	p.domains[j] = d
	return []int{j}, true
}

// tightenLinearRow applies bound-consistency to a single row: given every
// other column's current domain, derive the tightest feasible interval
// implied for each free column, and shrink its domain if that interval is
// tighter. Returns the columns whose domain shrank, or ok=false if a domain
// emptied. This is also the rule Knapsack rows use: for same-signed
// coefficients, the reduced-capacity bound it derives from activity bounds
// is exactly the standard knapsack propagation bound.
func (p *Propagator) tightenLinearRow(row Row) (changed []int, ok bool) {
	lo, hi := rowActivityBounds(row, p)

	for k, j := range row.Cols {
		if p.domains[j].fixed {
			continue
		}
		coef := row.Vals[k]
		if coef == 0 {
			continue
		}

		newLB, newUB, tightened := p.impliedBounds(row, j, coef, lo, hi)
		if !tightened {
			continue
		}
		if newLB > p.domains[j].ub+1e-9 || newUB < p.domains[j].lb-1e-9 {
			return changed, false
		}
		d := p.domains[j]
		improved := false
		if newLB > d.lb+1e-9 {
			d.lb = newLB
			improved = true
		}
		if newUB < d.ub-1e-9 {
			d.ub = newUB
			improved = true
		}
		if p.colTypes[j].IsIntegral() {
			d.lb = math.Ceil(d.lb - 1e-9)
			d.ub = math.Floor(d.ub + 1e-9)
		}
		if improved {
			if d.lb == d.ub {
				d.fixed = true
			}
			p.domains[j] = d
			changed = append(changed, j)
		}
	}
	return changed, true
}

// rowActivityBounds returns the [lo, hi] range the row's linear expression
// can take given every column's current domain.
func rowActivityBounds(row Row, p *Propagator) (lo, hi float64) {
	for k, j := range row.Cols {
		coef := row.Vals[k]
		d := p.domains[j]
		if coef >= 0 {
			lo += coef * d.lb
			hi += coef * d.ub
		} else {
			lo += coef * d.ub
			hi += coef * d.lb
		}
	}
	return
}

// impliedBounds computes the tightest [lb, ub] row.Sense implies for column
// j, given the row's activity bounds excluding j's own unbounded
// contribution.
func (p *Propagator) impliedBounds(row Row, j int, coef, lo, hi float64) (newLB, newUB float64, tightened bool) {
	d := p.domains[j]
	own := contribRange(coef, d)
	restLo, restHi := lo-own.lo, hi-own.hi

	var slackLo, slackHi float64
	switch row.Sense {
	case LE:
		slackLo, slackHi = math.Inf(-1), row.RHS
	case GE:
		slackLo, slackHi = row.RHS, math.Inf(1)
	case EQ:
		slackLo, slackHi = row.RHS, row.RHS
	case Range:
		slackLo, slackHi = row.RHS-row.Range, row.RHS
	default:
		return d.lb, d.ub, false
	}

	// coef*x_j + rest ∈ [slackLo, slackHi]  ⇒  coef*x_j ∈ [slackLo-restHi, slackHi-restLo]
	cLo, cHi := slackLo-restHi, slackHi-restLo
	if coef > 0 {
		newLB, newUB = cLo/coef, cHi/coef
	} else {
		newLB, newUB = cHi/coef, cLo/coef
	}
	if math.IsInf(newLB, -1) {
		newLB = d.lb
	}
	if math.IsInf(newUB, 1) {
		newUB = d.ub
	}
	return math.Max(newLB, d.lb), math.Min(newUB, d.ub), true
}

type contribInterval struct{ lo, hi float64 }

func contribRange(coef float64, d domain) contribInterval {
	if coef >= 0 {
		return contribInterval{coef * d.lb, coef * d.ub}
	}
	return contribInterval{coef * d.ub, coef * d.lb}
}
