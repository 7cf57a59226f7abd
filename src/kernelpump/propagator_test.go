package kernelpump

import "testing"

func cardinalityRow() Row {
	return Row{Cols: []int{0, 1, 2}, Vals: []float64{1, 1, 1}, Sense: LE, RHS: 1}
}

func TestClassifyRowShapeCardinality(t *testing.T) {
	colTypes := []ColumnType{Binary, Binary, Binary}
	if shape := classifyRowShape(cardinalityRow(), colTypes); shape != ShapeCardinality {
		t.Fatalf("expected ShapeCardinality, got %v", shape)
	}
}

func TestClassifyRowShapeClique(t *testing.T) {
	row := Row{Cols: []int{0, 1}, Vals: []float64{1, 1}, Sense: LE, RHS: 1}
	colTypes := []ColumnType{Binary, Binary}
	if shape := classifyRowShape(row, colTypes); shape != ShapeClique {
		t.Fatalf("expected ShapeClique, got %v", shape)
	}
}

func TestPropagatePropagatesCardinalityRow(t *testing.T) {
	m := newFakeModel([]ColumnType{Binary, Binary, Binary}, []Row{cardinalityRow()})
	p := NewPropagator(m, false)

	if ok := p.Propagate(0, 1); !ok {
		t.Fatalf("expected feasible propagation")
	}
	if p.VarUB(1) != 0 || p.VarUB(2) != 0 {
		t.Fatalf("expected columns 1,2 forced to 0, got ub=%v,%v", p.VarUB(1), p.VarUB(2))
	}
	fixed := p.GetLastFixed()
	if len(fixed) != 2 {
		t.Fatalf("expected 2 consequential fixes, got %v", fixed)
	}
}

func TestPropagatePropagatesCliqueRow(t *testing.T) {
	row := Row{Cols: []int{0, 1}, Vals: []float64{1, 1}, Sense: LE, RHS: 1}
	m := newFakeModel([]ColumnType{Binary, Binary}, []Row{row})
	p := NewPropagator(m, false)
	if p.shapes[0] != ShapeClique {
		t.Fatalf("expected row classified as ShapeClique, got %v", p.shapes[0])
	}

	if ok := p.Propagate(0, 1); !ok {
		t.Fatalf("expected feasible propagation")
	}
	if p.VarUB(1) != 0 {
		t.Fatalf("expected column 1 forced to 0 by the clique rule, got ub=%v", p.VarUB(1))
	}
}

func TestPropagateDetectsInfeasibility(t *testing.T) {
	row := Row{Cols: []int{0, 1}, Vals: []float64{1, 1}, Sense: GE, RHS: 2}
	m := newFakeModel([]ColumnType{Binary, Binary}, []Row{row})
	p := NewPropagator(m, false)

	// Fixing column 0 to 0 leaves column 1 needing to reach 2 alone, which
	// its [0,1] domain cannot satisfy.
	if ok := p.Propagate(0, 0); ok {
		t.Fatalf("expected infeasibility, got feasible")
	}
}

func TestRestoreRevertsDomains(t *testing.T) {
	m := newFakeModel([]ColumnType{Binary, Binary, Binary}, []Row{cardinalityRow()})
	p := NewPropagator(m, false)
	snap := p.GetStateMgr()

	p.Propagate(0, 1)
	if p.VarUB(1) != 0 {
		t.Fatalf("expected column 1 tightened before restore")
	}

	p.Restore(snap)
	if p.VarUB(1) != 1 {
		t.Fatalf("expected column 1's domain restored to 1, got %v", p.VarUB(1))
	}
	if len(p.GetLastFixed()) != 0 {
		t.Fatalf("expected GetLastFixed cleared after restore")
	}
}

func TestRowIsIllConditionedFiltersHighDynamism(t *testing.T) {
	colTypes := []ColumnType{Binary, Binary}
	row := Row{Cols: []int{0, 1}, Vals: []float64{1, 5000}, Sense: LE, RHS: 10}
	if !rowIsIllConditioned(row, colTypes) {
		t.Fatalf("expected row with dynamism 5000 to be flagged ill-conditioned")
	}
	mild := Row{Cols: []int{0, 1}, Vals: []float64{1, 2}, Sense: LE, RHS: 10}
	if rowIsIllConditioned(mild, colTypes) {
		t.Fatalf("expected row with dynamism 2 not to be flagged")
	}
}

func TestRowIsIllConditionedUsesTighterThresholdForAllContinuousRows(t *testing.T) {
	allContinuous := []ColumnType{Continuous, Continuous}
	mixed := []ColumnType{Continuous, Binary}
	row := Row{Cols: []int{0, 1}, Vals: []float64{1, 20}, Sense: LE, RHS: 10}

	if !rowIsIllConditioned(row, allContinuous) {
		t.Errorf("expected dynamism 20 to exceed the all-continuous threshold of 10")
	}
	if rowIsIllConditioned(row, mixed) {
		t.Errorf("expected dynamism 20 to stay under the threshold of 1000 once an integral column is present")
	}
}

func TestNewPropagatorFiltersIllConditionedRowsWhenRequested(t *testing.T) {
	illRow := Row{Cols: []int{0, 1}, Vals: []float64{1, 5000}, Sense: LE, RHS: 10}
	m := newFakeModel([]ColumnType{Binary, Binary}, []Row{illRow})
	p := NewPropagator(m, true)

	// With the row filtered out, fixing column 0 should trigger no
	// tightening of column 1 at all.
	if ok := p.Propagate(0, 1); !ok {
		t.Fatalf("expected feasible propagation")
	}
	if p.VarUB(1) != 1 {
		t.Fatalf("expected column 1 untouched by a filtered row, got ub=%v", p.VarUB(1))
	}
}
