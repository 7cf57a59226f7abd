package kernelpump

import (
	"context"
	"time"

	"github.com/assuncao-lucas/kernel-pump/src/varset"
)

// Model is the uniform facade the kernel pump core drives a backend LP/MIP
// solver through. KP and FP never reach for a backend-specific type; every
// mutation and query goes through this interface, so the backend (HiGHS,
// GLPK) is swappable per the "solver" configuration option.
//
// Implementations never panic or return an error on LP/MIP infeasibility or
// time-out: callers inspect Status/IsInfeasibleOrTimeReached. Errors are
// reserved for I/O and hard backend failures (see package kperror).
type Model interface {
	NumCols() int
	NumRows() int

	ColType(j int) ColumnType
	ColLB(j int) float64
	ColUB(j int) float64
	SetColLB(j int, v float64)
	SetColUB(j int, v float64)
	FixCol(j int, v float64)

	ObjCoef(j int) float64
	ObjCoefs() []float64
	ObjSense() ObjSense
	ObjOffset() float64
	// SetObjective overwrites the active objective; used by KP's
	// root-LP-objective overrides and by FP's alpha-blended objective.
	SetObjective(coeffs []float64, offset float64, sense ObjSense)

	Row(i int) Row
	Rows() []Row

	// Clone returns an independent deep copy sharing no backing arrays.
	Clone() Model

	// Presolve attempts backend presolve; ok is false if presolve proved
	// the model infeasible. When the backend declines or has no presolve,
	// Presolve is a no-op returning (true, nil) and PresolvedModel returns
	// the receiver itself with reduced=false.
	Presolve() (ok bool, err error)
	PresolvedModel() (presolved Model, reduced bool)
	PostsolveSolution(xPrime []float64) []float64
	PresolveSolution(x []float64) []float64

	LPOpt(ctx context.Context, method LPMethod, decreaseTol bool, initial bool) (bool, error)
	MIPOpt(ctx context.Context) (bool, error)

	Status() SolveStatus
	IsPrimalFeasible() bool
	IsInfeasibleOrTimeReached() bool
	Aborted() bool
	SetAborted(bool)

	ObjVal() float64
	Sol() []float64
	ReducedCosts() []float64

	// UpdateModelVarBounds sets ub=1 on every bit of entering and ub=0 on
	// every bit of leaving; lower bounds are untouched. Idempotent and
	// order-independent within the pair.
	UpdateModelVarBounds(entering, leaving *varset.Set)

	// FindSetOfConflictingVariables is the conflict-refinement capability
	// used by KP's optional LP-feasibility enforcement. See model_conflict.go.
	FindSetOfConflictingVariables(ctx context.Context, candidates *varset.Set, optimize bool, timeLimit time.Duration) (*varset.Set, error)

	// ComputeIntegralityGap sums, over every integer-typed column, the
	// distance to the nearest feasible integer value (or to the nearer
	// bound, when x is outside [lb,ub]), and counts how many exceed eps.
	ComputeIntegralityGap(x []float64, eps float64) (gap float64, numFrac int)

	// ColsDependency returns, for each column j, the set of columns
	// sharing a row with j (symmetric, never containing j itself).
	// Computed lazily and cached.
	ColsDependency() []*varset.Set

	// IsSolutionFeasible replays x against every non-Nonbinding row.
	IsSolutionFeasible(x []float64, tol float64) bool
}

// NumIntegerAndBinaryCols counts columns whose type requires an integer
// value.
func NumIntegerAndBinaryCols(m Model) int {
	n := 0
	for j := 0; j < m.NumCols(); j++ {
		if m.ColType(j).IsIntegral() {
			n++
		}
	}
	return n
}

// NumBinaryCols counts Binary-typed columns.
func NumBinaryCols(m Model) int {
	n := 0
	for j := 0; j < m.NumCols(); j++ {
		if m.ColType(j) == Binary {
			n++
		}
	}
	return n
}

// ClassifyColumns partitions every column of m into binaries, general
// integers and continuous columns. Shared by KP's Phase A, the command
// driver's FEASPUMP entry point, and tests.
func ClassifyColumns(m Model) (binaries, gintegers, continuous *varset.Set) {
	n := m.NumCols()
	binaries = varset.New(n)
	gintegers = varset.New(n)
	continuous = varset.New(n)
	for j := 0; j < n; j++ {
		switch m.ColType(j) {
		case Binary:
			binaries.Set(j)
		case GeneralInteger:
			gintegers.Set(j)
		default:
			continuous.Set(j)
		}
	}
	return
}
