package kernelpump

import (
	"math"
	"testing"
)

func TestComputeIntegralityGapAllIntegerIsZero(t *testing.T) {
	m := newFakeModel([]ColumnType{Binary, Binary, Continuous}, nil)
	gap, numFrac := computeIntegralityGap(m, []float64{0, 1, 0.5}, 1e-6)
	if gap != 0 {
		t.Errorf("expected zero gap for an already-integer point, got %v", gap)
	}
	if numFrac != 0 {
		t.Errorf("expected zero fractional columns, got %v", numFrac)
	}
}

func TestComputeIntegralityGapCountsFractionalColumns(t *testing.T) {
	m := newFakeModel([]ColumnType{Binary, Binary}, nil)
	gap, numFrac := computeIntegralityGap(m, []float64{0.3, 0.9}, 1e-6)
	if numFrac != 2 {
		t.Errorf("expected both columns counted fractional, got %v", numFrac)
	}
	want := 0.3 + 0.1
	if math.Abs(gap-want) > 1e-9 {
		t.Errorf("expected gap %.6f, got %.6f", want, gap)
	}
}

func TestComputeIntegralityGapOutsideBoundsUsesNearerBound(t *testing.T) {
	m := newFakeModel([]ColumnType{GeneralInteger}, nil)
	m.colLB[0] = 2
	m.colUB[0] = 5
	gap, numFrac := computeIntegralityGap(m, []float64{7}, 1e-6)
	if numFrac != 1 {
		t.Errorf("expected column flagged fractional, got %v", numFrac)
	}
	if gap != 2 {
		t.Errorf("expected gap = distance to upper bound 5 (=2), got %v", gap)
	}
}

func TestComputeIntegralityGapIgnoresContinuousColumns(t *testing.T) {
	m := newFakeModel([]ColumnType{Continuous, Continuous}, nil)
	gap, numFrac := computeIntegralityGap(m, []float64{0.3, 0.7}, 1e-6)
	if gap != 0 || numFrac != 0 {
		t.Errorf("expected no contribution from continuous-only model, got gap=%v numFrac=%v", gap, numFrac)
	}
}

func TestComputeColsDependencyIsSymmetricAndIrreflexive(t *testing.T) {
	row := Row{Cols: []int{0, 1, 2}, Vals: []float64{1, 1, 1}, Sense: LE, RHS: 2}
	m := newFakeModel([]ColumnType{Binary, Binary, Binary}, []Row{row})
	dep := computeColsDependency(m)

	for j := 0; j < 3; j++ {
		if dep[j].Test(j) {
			t.Errorf("column %d must not depend on itself", j)
		}
	}
	if !dep[0].Test(1) || !dep[1].Test(0) {
		t.Errorf("expected columns 0 and 1 to be mutually dependent")
	}
	if !dep[0].Test(2) || !dep[2].Test(0) {
		t.Errorf("expected columns 0 and 2 to be mutually dependent")
	}
}

func TestComputeColsDependencyDisjointRowsStayIndependent(t *testing.T) {
	rows := []Row{
		{Cols: []int{0, 1}, Vals: []float64{1, 1}, Sense: LE, RHS: 1},
		{Cols: []int{2, 3}, Vals: []float64{1, 1}, Sense: LE, RHS: 1},
	}
	m := newFakeModel([]ColumnType{Binary, Binary, Binary, Binary}, rows)
	dep := computeColsDependency(m)

	if dep[0].Test(2) || dep[0].Test(3) {
		t.Errorf("expected column 0 independent of columns appearing only in a disjoint row")
	}
}

func TestIsSolutionFeasibleChecksEveryRow(t *testing.T) {
	rows := []Row{
		{Cols: []int{0, 1}, Vals: []float64{1, 1}, Sense: LE, RHS: 1},
	}
	m := newFakeModel([]ColumnType{Binary, Binary}, rows)

	if !isSolutionFeasible(m, []float64{1, 0}, 1e-6) {
		t.Errorf("expected [1,0] to satisfy x0+x1<=1")
	}
	if isSolutionFeasible(m, []float64{1, 1}, 1e-6) {
		t.Errorf("expected [1,1] to violate x0+x1<=1")
	}
}
