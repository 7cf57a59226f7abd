// Package kernelpump implements the Kernel Pump primal heuristic: a
// Kernel-Search-style partition of the discrete variables combined with a
// Feasibility Pump projection/rounding loop, driving a backend LP/MIP solver
// toward an integer-feasible point.
package kernelpump

// ColumnType classifies a model column.
type ColumnType byte

const (
	Continuous ColumnType = iota
	Binary
	GeneralInteger
)

func (t ColumnType) String() string {
	switch t {
	case Continuous:
		return "Continuous"
	case Binary:
		return "Binary"
	case GeneralInteger:
		return "GeneralInteger"
	default:
		return "UnknownColumnType"
	}
}

// IsIntegral reports whether t requires an integer value.
func (t ColumnType) IsIntegral() bool {
	return t == Binary || t == GeneralInteger
}

// RowSense classifies a model row's constraint direction.
type RowSense byte

const (
	LE RowSense = iota
	GE
	EQ
	Range
	Nonbinding
)

func (s RowSense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	case EQ:
		return "="
	case Range:
		return "Range"
	case Nonbinding:
		return "N"
	default:
		return "?"
	}
}

// ObjSense is the optimization direction.
type ObjSense byte

const (
	Minimize ObjSense = iota
	Maximize
)

func (s ObjSense) String() string {
	if s == Maximize {
		return "Maximize"
	}
	return "Minimize"
}

// LPMethod selects the simplex/interior-point variant for lpopt.
type LPMethod byte

const (
	Primal LPMethod = iota
	Dual
	Barrier
	Auto
	Analytic
)

// SolveStatus is the outcome reported by the backend after a solve attempt.
type SolveStatus byte

const (
	StatusUnknown SolveStatus = iota
	StatusOptimal
	StatusInfeasible
	StatusTimeLimit
	StatusAborted
	StatusNumericalFailure
)

func (s SolveStatus) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusInfeasible:
		return "Infeasible"
	case StatusTimeLimit:
		return "TimeLimit"
	case StatusAborted:
		return "Aborted"
	case StatusNumericalFailure:
		return "NumericalFailure"
	default:
		return "Unknown"
	}
}

// Row is a read-only view of one constraint row, used by the parts of the
// core (the propagator, dependency computation) that need to walk the
// constraint matrix independently of the backend's native representation.
type Row struct {
	Cols  []int
	Vals  []float64
	Sense RowSense
	RHS   float64
	Range float64 // meaningful only when Sense == Range; feasible set is [RHS-Range, RHS].
}

// Satisfies reports whether the row is satisfied by x within tol.
func (r Row) Satisfies(x []float64, tol float64) bool {
	if r.Sense == Nonbinding {
		return true
	}
	lhs := 0.0
	for k, j := range r.Cols {
		lhs += r.Vals[k] * x[j]
	}
	switch r.Sense {
	case LE:
		return lhs <= r.RHS+tol
	case GE:
		return lhs >= r.RHS-tol
	case EQ:
		return lhs >= r.RHS-tol && lhs <= r.RHS+tol
	case Range:
		return lhs >= r.RHS-r.Range-tol && lhs <= r.RHS+tol
	default:
		return true
	}
}
