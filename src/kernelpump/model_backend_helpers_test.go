package kernelpump

import (
	"testing"

	"github.com/lanl/highs"
	"github.com/lukpank/go-glpk/glpk"
)

func TestGlpkColKindMapsEveryColumnType(t *testing.T) {
	cases := map[ColumnType]glpk.Kind{
		Binary:         glpk.BV,
		GeneralInteger: glpk.IV,
		Continuous:     glpk.CV,
	}
	for ct, want := range cases {
		if got := glpkColKind(ct); got != want {
			t.Errorf("glpkColKind(%v) = %v, want %v", ct, got, want)
		}
	}
}

func TestGlpkBndTypeClassifiesBoundShapes(t *testing.T) {
	cases := []struct {
		lb, ub float64
		want   glpk.BndType
	}{
		{-infBound, infBound, glpk.FR},
		{-infBound, 5, glpk.UP},
		{5, infBound, glpk.LO},
		{3, 3, glpk.FX},
		{0, 1, glpk.DB},
	}
	for _, c := range cases {
		if got := glpkBndType(c.lb, c.ub); got != c.want {
			t.Errorf("glpkBndType(%v,%v) = %v, want %v", c.lb, c.ub, got, c.want)
		}
	}
}

func TestStatusFromHighsOnlyOptimalMapsToOptimal(t *testing.T) {
	if statusFromHighs(highs.Optimal) != StatusOptimal {
		t.Errorf("expected highs.Optimal to map to StatusOptimal")
	}
	// Any non-Optimal status code, whatever the backend calls it, falls
	// through statusFromHighs' default case to StatusInfeasible.
	if statusFromHighs(highs.Optimal+1) != StatusInfeasible {
		t.Errorf("expected every non-optimal HiGHS status to map to StatusInfeasible")
	}
}

func TestStatusFromGLPKOnlyOptMapsToOptimal(t *testing.T) {
	if statusFromGLPK(glpk.OPT) != StatusOptimal {
		t.Errorf("expected glpk.OPT to map to StatusOptimal")
	}
	if statusFromGLPK(glpk.OPT+1) != StatusInfeasible {
		t.Errorf("expected every non-optimal GLPK status to map to StatusInfeasible")
	}
}
