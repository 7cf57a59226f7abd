package kernelpump

import (
	"context"
	"time"

	"github.com/lukpank/go-glpk/glpk"

	"github.com/assuncao-lucas/kernel-pump/src/kperror"
	"github.com/assuncao-lucas/kernel-pump/src/varset"
)

// glpkModel is the Model implementation backed by github.com/lukpank/go-glpk,
// generalizing the SetColKind/SetRowBnds/SetMatRow construction the teacher
// used by hand in src/scpcs/solvers.go to an arbitrary sparse model. It backs
// the "glpk" solver identifier; the command driver reads the model with it
// for whichever method is selected when solver=glpk.
type glpkModel struct {
	prob     *glpk.Prob
	colTypes []ColumnType
	rows     []Row

	sense   ObjSense
	solved  bool
	status  SolveStatus
	aborted bool

	depCache []*varset.Set
}

// ReadModelGLPK reads path as a free-format MPS file and returns a
// GLPK-backed Model.
func ReadModelGLPK(path string) (Model, error) {
	parsed, err := readMPS(path)
	if err != nil {
		return nil, kperror.IOErr("model", err)
	}
	return newGLPKModel(parsed), nil
}

func newGLPKModel(parsed *mpsModel) *glpkModel {
	prob := glpk.New()
	prob.SetObjDir(glpk.MIN)

	n := len(parsed.colNames)
	prob.AddCols(n)
	for j := 0; j < n; j++ {
		prob.SetColKind(j+1, glpkColKind(parsed.colTypes[j]))
		prob.SetColBnds(j+1, glpkBndType(parsed.colLB[j], parsed.colUB[j]), parsed.colLB[j], parsed.colUB[j])
		prob.SetObjCoef(j+1, parsed.objCoef[j])
	}

	prob.AddRows(len(parsed.rows))
	for i, row := range parsed.rows {
		lo, hi := rowBoundsFor(row)
		prob.SetRowBnds(i+1, glpkBndType(lo, hi), lo, hi)

		ind := make([]int32, len(row.Cols)+1)
		val := make([]float64, len(row.Vals)+1)
		for k, j := range row.Cols {
			ind[k+1] = int32(j + 1)
			val[k+1] = row.Vals[k]
		}
		prob.SetMatRow(i+1, ind, val)
	}

	return &glpkModel{
		prob:     prob,
		colTypes: append([]ColumnType(nil), parsed.colTypes...),
		rows:     append([]Row(nil), parsed.rows...),
		sense:    Minimize,
	}
}

func glpkColKind(t ColumnType) glpk.Kind {
	switch t {
	case Binary:
		return glpk.BV
	case GeneralInteger:
		return glpk.IV
	default:
		return glpk.CV
	}
}

func glpkBndType(lb, ub float64) glpk.BndType {
	switch {
	case lb <= -infBound && ub >= infBound:
		return glpk.FR
	case lb <= -infBound:
		return glpk.UP
	case ub >= infBound:
		return glpk.LO
	case lb == ub:
		return glpk.FX
	default:
		return glpk.DB
	}
}

func (m *glpkModel) NumCols() int { return m.prob.NumCols() }
func (m *glpkModel) NumRows() int { return m.prob.NumRows() }

func (m *glpkModel) ColType(j int) ColumnType { return m.colTypes[j] }
func (m *glpkModel) ColLB(j int) float64      { return m.prob.ColLB(j + 1) }
func (m *glpkModel) ColUB(j int) float64      { return m.prob.ColUB(j + 1) }

func (m *glpkModel) SetColLB(j int, v float64) {
	m.prob.SetColBnds(j+1, glpkBndType(v, m.ColUB(j)), v, m.ColUB(j))
}
func (m *glpkModel) SetColUB(j int, v float64) {
	m.prob.SetColBnds(j+1, glpkBndType(m.ColLB(j), v), m.ColLB(j), v)
}
func (m *glpkModel) FixCol(j int, v float64) {
	m.prob.SetColBnds(j+1, glpk.FX, v, v)
}

func (m *glpkModel) ObjCoef(j int) float64 { return m.prob.ObjCoef(j + 1) }
func (m *glpkModel) ObjCoefs() []float64 {
	out := make([]float64, m.NumCols())
	for j := range out {
		out[j] = m.ObjCoef(j)
	}
	return out
}
func (m *glpkModel) ObjSense() ObjSense { return m.sense }
func (m *glpkModel) ObjOffset() float64 { return 0 }

func (m *glpkModel) SetObjective(coeffs []float64, offset float64, sense ObjSense) {
	if sense == Maximize {
		m.prob.SetObjDir(glpk.MAX)
	} else {
		m.prob.SetObjDir(glpk.MIN)
	}
	m.sense = sense
	for j, c := range coeffs {
		m.prob.SetObjCoef(j+1, c)
	}
}

func (m *glpkModel) Row(i int) Row { return m.rows[i] }
func (m *glpkModel) Rows() []Row   { return m.rows }

func (m *glpkModel) Clone() Model {
	// go-glpk exposes no incremental clone; rebuild from the retained
	// backend-agnostic row/column data, which is exactly what the original
	// construction path already does.
	parsed := &mpsModel{
		colTypes: append([]ColumnType(nil), m.colTypes...),
		colLB:    make([]float64, m.NumCols()),
		colUB:    make([]float64, m.NumCols()),
		objCoef:  m.ObjCoefs(),
		rows:     append([]Row(nil), m.rows...),
	}
	for j := 0; j < m.NumCols(); j++ {
		parsed.colLB[j] = m.ColLB(j)
		parsed.colUB[j] = m.ColUB(j)
	}
	clone := newGLPKModel(parsed)
	clone.sense = m.sense
	return clone
}

func (m *glpkModel) Presolve() (bool, error)              { return true, nil }
func (m *glpkModel) PresolvedModel() (Model, bool)         { return m, false }
func (m *glpkModel) PostsolveSolution(x []float64) []float64 { return x }
func (m *glpkModel) PresolveSolution(x []float64) []float64  { return x }

// LPOpt solves the LP relaxation by the simplex method. method, decreaseTol
// and initial are part of the Model interface's cross-backend contract
// (SPEC_FULL.md §4.1/§4.5's simplex-method selection and tolerance-relaxation
// rules), but
// github.com/lukpank/go-glpk/glpk's Smcp wrapper exposes only SetMsgLev
// beyond NewSmcp's GLPK defaults — no setter for the method (primal/dual)
// or for Tol_bnd/Tol_dj is exported through this binding. They are accepted
// for interface symmetry and left unused here, same as Presolve() above,
// rather than guess at an unexported field.
func (m *glpkModel) LPOpt(ctx context.Context, method LPMethod, decreaseTol bool, initial bool) (bool, error) {
	if m.aborted || ctxDone(ctx) {
		m.status = StatusAborted
		return false, nil
	}
	smcp := glpk.NewSmcp()
	smcp.SetMsgLev(glpk.MSG_OFF)
	if err := m.prob.Simplex(smcp); err != nil {
		m.status = StatusNumericalFailure
		return false, kperror.BackendErr("model", err)
	}
	m.solved = true
	m.status = statusFromGLPK(m.prob.Status())
	return m.status == StatusOptimal, nil
}

func (m *glpkModel) MIPOpt(ctx context.Context) (bool, error) {
	if m.aborted || ctxDone(ctx) {
		m.status = StatusAborted
		return false, nil
	}
	iocp := glpk.NewIocp()
	iocp.SetPresolve(true)
	iocp.SetMsgLev(glpk.MSG_OFF)
	if err := m.prob.Intopt(iocp); err != nil {
		m.status = StatusNumericalFailure
		return false, kperror.BackendErr("model", err)
	}
	m.solved = true
	m.status = statusFromGLPK(m.prob.MipStatus())
	return m.status == StatusOptimal, nil
}

func statusFromGLPK(s glpk.StatusCode) SolveStatus {
	if s == glpk.OPT {
		return StatusOptimal
	}
	return StatusInfeasible
}

func (m *glpkModel) Status() SolveStatus        { return m.status }
func (m *glpkModel) IsPrimalFeasible() bool     { return m.solved && m.status == StatusOptimal }
func (m *glpkModel) IsInfeasibleOrTimeReached() bool {
	return m.status == StatusInfeasible || m.status == StatusTimeLimit || m.aborted
}
func (m *glpkModel) Aborted() bool     { return m.aborted }
func (m *glpkModel) SetAborted(v bool) { m.aborted = v }

func (m *glpkModel) ObjVal() float64 { return m.prob.ObjVal() }

func (m *glpkModel) Sol() []float64 {
	out := make([]float64, m.NumCols())
	for j := range out {
		out[j] = m.prob.ColPrimal(j + 1)
	}
	return out
}

func (m *glpkModel) ReducedCosts() []float64 {
	out := make([]float64, m.NumCols())
	for j := range out {
		out[j] = m.prob.ColDual(j + 1)
	}
	return out
}

func (m *glpkModel) UpdateModelVarBounds(entering, leaving *varset.Set) {
	if entering != nil {
		entering.Each(func(j int) bool {
			m.SetColUB(j, 1)
			return true
		})
	}
	if leaving != nil {
		leaving.Each(func(j int) bool {
			m.SetColUB(j, 0)
			return true
		})
	}
}

func (m *glpkModel) FindSetOfConflictingVariables(ctx context.Context, candidates *varset.Set, optimize bool, timeLimit time.Duration) (*varset.Set, error) {
	return findSetOfConflictingVariables(ctx, m, candidates, optimize, timeLimit)
}

func (m *glpkModel) ComputeIntegralityGap(x []float64, eps float64) (float64, int) {
	return computeIntegralityGap(m, x, eps)
}

func (m *glpkModel) ColsDependency() []*varset.Set {
	if m.depCache == nil {
		m.depCache = computeColsDependency(m)
	}
	return m.depCache
}

func (m *glpkModel) IsSolutionFeasible(x []float64, tol float64) bool {
	return isSolutionFeasible(m, x, tol)
}
