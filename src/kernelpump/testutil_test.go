package kernelpump

import (
	"context"
	"time"

	"github.com/assuncao-lucas/kernel-pump/src/varset"
)

// fakeModel is a minimal in-memory Model used by tests that don't need a
// real LP/MIP backend: propagation, rounding, ranking and the kernel/bucket
// partition logic only ever read columns/rows/bounds and, for the LP calls,
// whatever canned solution a test wired up via lpOptFunc.
type fakeModel struct {
	colTypes []ColumnType
	colLB    []float64
	colUB    []float64
	obj      []float64
	objOff   float64
	sense    ObjSense
	rows     []Row

	sol          []float64
	reducedCosts []float64
	status       SolveStatus
	primalFeas   bool
	aborted      bool

	lpOptFunc func(m *fakeModel) (bool, error)

	dep []*varset.Set
}

func newFakeModel(colTypes []ColumnType, rows []Row) *fakeModel {
	n := len(colTypes)
	lb := make([]float64, n)
	ub := make([]float64, n)
	for j, t := range colTypes {
		if t == Binary {
			ub[j] = 1
		} else {
			ub[j] = 1e30
		}
	}
	return &fakeModel{
		colTypes:     colTypes,
		colLB:        lb,
		colUB:        ub,
		obj:          make([]float64, n),
		rows:         rows,
		sol:          make([]float64, n),
		reducedCosts: make([]float64, n),
		status:       StatusOptimal,
		primalFeas:   true,
	}
}

func (m *fakeModel) NumCols() int { return len(m.colTypes) }
func (m *fakeModel) NumRows() int { return len(m.rows) }

func (m *fakeModel) ColType(j int) ColumnType  { return m.colTypes[j] }
func (m *fakeModel) ColLB(j int) float64       { return m.colLB[j] }
func (m *fakeModel) ColUB(j int) float64       { return m.colUB[j] }
func (m *fakeModel) SetColLB(j int, v float64) { m.colLB[j] = v }
func (m *fakeModel) SetColUB(j int, v float64) { m.colUB[j] = v }
func (m *fakeModel) FixCol(j int, v float64)   { m.colLB[j] = v; m.colUB[j] = v }

func (m *fakeModel) ObjCoef(j int) float64   { return m.obj[j] }
func (m *fakeModel) ObjCoefs() []float64     { return m.obj }
func (m *fakeModel) ObjSense() ObjSense      { return m.sense }
func (m *fakeModel) ObjOffset() float64      { return m.objOff }
func (m *fakeModel) SetObjective(coeffs []float64, offset float64, sense ObjSense) {
	m.obj = append([]float64(nil), coeffs...)
	m.objOff = offset
	m.sense = sense
}

func (m *fakeModel) Row(i int) Row    { return m.rows[i] }
func (m *fakeModel) Rows() []Row      { return m.rows }

func (m *fakeModel) Clone() Model {
	c := &fakeModel{
		colTypes:     append([]ColumnType(nil), m.colTypes...),
		colLB:        append([]float64(nil), m.colLB...),
		colUB:        append([]float64(nil), m.colUB...),
		obj:          append([]float64(nil), m.obj...),
		objOff:       m.objOff,
		sense:        m.sense,
		rows:         m.rows,
		sol:          append([]float64(nil), m.sol...),
		reducedCosts: append([]float64(nil), m.reducedCosts...),
		status:       m.status,
		primalFeas:   m.primalFeas,
		lpOptFunc:    m.lpOptFunc,
	}
	return c
}

func (m *fakeModel) Presolve() (bool, error)                  { return true, nil }
func (m *fakeModel) PresolvedModel() (Model, bool)             { return m, false }
func (m *fakeModel) PostsolveSolution(x []float64) []float64   { return x }
func (m *fakeModel) PresolveSolution(x []float64) []float64    { return x }

func (m *fakeModel) LPOpt(ctx context.Context, method LPMethod, decreaseTol bool, initial bool) (bool, error) {
	if m.lpOptFunc != nil {
		return m.lpOptFunc(m)
	}
	return true, nil
}

func (m *fakeModel) MIPOpt(ctx context.Context) (bool, error) { return true, nil }

func (m *fakeModel) Status() SolveStatus               { return m.status }
func (m *fakeModel) IsPrimalFeasible() bool            { return m.primalFeas }
func (m *fakeModel) IsInfeasibleOrTimeReached() bool   { return m.status == StatusInfeasible || m.status == StatusTimeLimit }
func (m *fakeModel) Aborted() bool                     { return m.aborted }
func (m *fakeModel) SetAborted(v bool)                 { m.aborted = v }

func (m *fakeModel) ObjVal() float64 {
	v := m.objOff
	for j, c := range m.obj {
		v += c * m.sol[j]
	}
	return v
}
func (m *fakeModel) Sol() []float64           { return m.sol }
func (m *fakeModel) ReducedCosts() []float64  { return m.reducedCosts }

func (m *fakeModel) UpdateModelVarBounds(entering, leaving *varset.Set) {
	if entering != nil {
		entering.Each(func(j int) bool { m.colUB[j] = 1; return true })
	}
	if leaving != nil {
		leaving.Each(func(j int) bool { m.colUB[j] = 0; return true })
	}
}

func (m *fakeModel) FindSetOfConflictingVariables(ctx context.Context, candidates *varset.Set, optimize bool, timeLimit time.Duration) (*varset.Set, error) {
	return varset.New(m.NumCols()), nil
}

func (m *fakeModel) ComputeIntegralityGap(x []float64, eps float64) (float64, int) {
	return computeIntegralityGap(m, x, eps)
}

func (m *fakeModel) ColsDependency() []*varset.Set {
	if m.dep == nil {
		m.dep = computeColsDependency(m)
	}
	return m.dep
}

func (m *fakeModel) IsSolutionFeasible(x []float64, tol float64) bool {
	return isSolutionFeasible(m, x, tol)
}
