package kernelpump

import (
	"context"
	"time"

	"github.com/lanl/highs"

	"github.com/assuncao-lucas/kernel-pump/src/kperror"
	"github.com/assuncao-lucas/kernel-pump/src/varset"
)

// highsModel is the Model implementation backed by github.com/lanl/highs,
// generalizing the single two-block set-covering model the teacher built by
// hand in src/scpcs/highs.go (defBaseSCP/defConflicts/runHighsSolver) to an
// arbitrary sparse model read from an MPS file.
type highsModel struct {
	lp       *highs.Model
	colTypes []ColumnType
	rows     []Row

	sense   ObjSense
	offset  float64
	lastSol *highs.Solution
	status  SolveStatus
	aborted bool

	depCache []*varset.Set
}

// ReadModel reads path as a free-format MPS file and returns a HiGHS-backed
// Model.
func ReadModel(path string) (Model, error) {
	parsed, err := readMPS(path)
	if err != nil {
		return nil, kperror.IOErr("model", err)
	}
	hm := &highsModel{
		lp:       parsed.toHighsModel(),
		colTypes: append([]ColumnType(nil), parsed.colTypes...),
		rows:     append([]Row(nil), parsed.rows...),
		sense:    Minimize,
	}
	return hm, nil
}

func (m *highsModel) NumCols() int { return len(m.lp.ColLower) }
func (m *highsModel) NumRows() int { return len(m.lp.RowLower) }

func (m *highsModel) ColType(j int) ColumnType { return m.colTypes[j] }
func (m *highsModel) ColLB(j int) float64      { return m.lp.ColLower[j] }
func (m *highsModel) ColUB(j int) float64      { return m.lp.ColUpper[j] }

func (m *highsModel) SetColLB(j int, v float64) { m.lp.ColLower[j] = v }
func (m *highsModel) SetColUB(j int, v float64) { m.lp.ColUpper[j] = v }

func (m *highsModel) FixCol(j int, v float64) {
	m.lp.ColLower[j] = v
	m.lp.ColUpper[j] = v
}

func (m *highsModel) ObjCoef(j int) float64 { return m.lp.ColCosts[j] }
func (m *highsModel) ObjCoefs() []float64   { return m.lp.ColCosts }
func (m *highsModel) ObjSense() ObjSense    { return m.sense }
func (m *highsModel) ObjOffset() float64    { return m.offset }

func (m *highsModel) SetObjective(coeffs []float64, offset float64, sense ObjSense) {
	m.lp.ColCosts = coeffs
	m.lp.Maximize = sense == Maximize
	m.offset = offset
	m.sense = sense
}

func (m *highsModel) Row(i int) Row    { return m.rows[i] }
func (m *highsModel) Rows() []Row      { return m.rows }

func (m *highsModel) Clone() Model {
	clone := &highsModel{
		lp: &highs.Model{
			Maximize:      m.lp.Maximize,
			ColCosts:      append([]float64(nil), m.lp.ColCosts...),
			Offset:        m.lp.Offset,
			ColLower:      append([]float64(nil), m.lp.ColLower...),
			ColUpper:      append([]float64(nil), m.lp.ColUpper...),
			RowLower:      append([]float64(nil), m.lp.RowLower...),
			RowUpper:      append([]float64(nil), m.lp.RowUpper...),
			ConstMatrix:   append([]highs.Nonzero(nil), m.lp.ConstMatrix...),
			HessianMatrix: append([]float64(nil), m.lp.HessianMatrix...),
			VarTypes:      append([]highs.VariableType(nil), m.lp.VarTypes...),
		},
		colTypes: append([]ColumnType(nil), m.colTypes...),
		rows:     append([]Row(nil), m.rows...),
		sense:    m.sense,
		offset:   m.offset,
	}
	return clone
}

// Presolve is a no-op for the HiGHS backend: HiGHS's own native presolve is
// not exposed incrementally through this binding, so this facade declines
// presolve rather than fabricate a reduction the backend never performed
// (see SPEC_FULL.md §4.1, Backend binding).
func (m *highsModel) Presolve() (bool, error) { return true, nil }

func (m *highsModel) PresolvedModel() (Model, bool) { return m, false }
func (m *highsModel) PostsolveSolution(xPrime []float64) []float64 { return xPrime }
func (m *highsModel) PresolveSolution(x []float64) []float64       { return x }

// LPOpt solves the LP relaxation. method, decreaseTol and initial are part
// of the Model interface's cross-backend contract (SPEC_FULL.md §4.1/§4.5's
// simplex-method selection and tolerance-relaxation rules), but github.com/lanl/highs
// exposes no Options/Param type alongside highs.Model to carry a simplex
// method choice or a bound/dual tolerance override — only the Model's own
// data fields and Solve(). There is nothing in this binding's surface to set
// them on, so they are accepted for interface symmetry and left unused here,
// same as Presolve() above.
func (m *highsModel) LPOpt(ctx context.Context, method LPMethod, decreaseTol bool, initial bool) (bool, error) {
	if m.aborted || ctxDone(ctx) {
		m.status = StatusAborted
		return false, nil
	}
	relaxed := m.asLPRelaxation()
	sol, err := relaxed.Solve()
	if err != nil {
		m.status = StatusNumericalFailure
		return false, kperror.BackendErr("model", err)
	}
	m.lastSol = sol
	m.status = statusFromHighs(sol.Status)
	return m.status == StatusOptimal, nil
}

func (m *highsModel) MIPOpt(ctx context.Context) (bool, error) {
	if m.aborted || ctxDone(ctx) {
		m.status = StatusAborted
		return false, nil
	}
	sol, err := m.lp.Solve()
	if err != nil {
		m.status = StatusNumericalFailure
		return false, kperror.BackendErr("model", err)
	}
	m.lastSol = sol
	m.status = statusFromHighs(sol.Status)
	return m.status == StatusOptimal, nil
}

// asLPRelaxation returns a HiGHS model identical to m.lp but with every
// column's integrality dropped, for the pure-LP solves KP and FP drive.
func (m *highsModel) asLPRelaxation() *highs.Model {
	relaxed := *m.lp
	relaxed.VarTypes = make([]highs.VariableType, len(m.lp.VarTypes))
	for j := range relaxed.VarTypes {
		relaxed.VarTypes[j] = highs.ContinuousType
	}
	return &relaxed
}

func statusFromHighs(s highs.Status) SolveStatus {
	switch s {
	case highs.Optimal:
		return StatusOptimal
	default:
		return StatusInfeasible
	}
}

func (m *highsModel) Status() SolveStatus { return m.status }

func (m *highsModel) IsPrimalFeasible() bool {
	return m.lastSol != nil && m.status == StatusOptimal
}

func (m *highsModel) IsInfeasibleOrTimeReached() bool {
	return m.status == StatusInfeasible || m.status == StatusTimeLimit || m.aborted
}

func (m *highsModel) Aborted() bool       { return m.aborted }
func (m *highsModel) SetAborted(v bool)   { m.aborted = v }

func (m *highsModel) ObjVal() float64 {
	if m.lastSol == nil {
		return 0
	}
	return m.lastSol.Objective
}

func (m *highsModel) Sol() []float64 {
	if m.lastSol == nil {
		return make([]float64, m.NumCols())
	}
	return m.lastSol.ColumnPrimal
}

func (m *highsModel) ReducedCosts() []float64 {
	if m.lastSol == nil || m.lastSol.ColumnDual == nil {
		return make([]float64, m.NumCols())
	}
	return m.lastSol.ColumnDual
}

func (m *highsModel) UpdateModelVarBounds(entering, leaving *varset.Set) {
	if entering != nil {
		entering.Each(func(j int) bool {
			m.lp.ColUpper[j] = 1
			return true
		})
	}
	if leaving != nil {
		leaving.Each(func(j int) bool {
			m.lp.ColUpper[j] = 0
			return true
		})
	}
}

func (m *highsModel) ComputeIntegralityGap(x []float64, eps float64) (float64, int) {
	return computeIntegralityGap(m, x, eps)
}

func (m *highsModel) ColsDependency() []*varset.Set {
	if m.depCache == nil {
		m.depCache = computeColsDependency(m)
	}
	return m.depCache
}

func (m *highsModel) IsSolutionFeasible(x []float64, tol float64) bool {
	return isSolutionFeasible(m, x, tol)
}

func (m *highsModel) FindSetOfConflictingVariables(ctx context.Context, candidates *varset.Set, optimize bool, timeLimit time.Duration) (*varset.Set, error) {
	return findSetOfConflictingVariables(ctx, m, candidates, optimize, timeLimit)
}

func ctxDone(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
