package kernelpump

import (
	"strings"
	"testing"
)

const simpleMPS = `NAME          TESTPROB
ROWS
 N  COST
 L  LIM1
 G  LIM2
COLUMNS
    X1        COST      1.0        LIM1      1.0
    X1        LIM2      1.0
    X2        COST      2.0        LIM1      1.0
RHS
    RHS       LIM1      4.0        LIM2      1.0
BOUNDS
 UP BND       X1        4.0
ENDATA
`

func TestParseMPSBasicStructure(t *testing.T) {
	m, err := parseMPS(strings.NewReader(simpleMPS))
	if err != nil {
		t.Fatalf("parseMPS failed: %v", err)
	}
	if m.name != "TESTPROB" {
		t.Errorf("expected name TESTPROB, got %q", m.name)
	}
	if len(m.colNames) != 2 || m.colNames[0] != "X1" || m.colNames[1] != "X2" {
		t.Fatalf("unexpected column names: %v", m.colNames)
	}
	if m.objCoef[0] != 1.0 || m.objCoef[1] != 2.0 {
		t.Errorf("unexpected objective coefficients: %v", m.objCoef)
	}
	if len(m.rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.rows))
	}

	lim1 := m.rows[0]
	if lim1.Sense != LE || lim1.RHS != 4 {
		t.Errorf("unexpected LIM1 row: %+v", lim1)
	}
	if len(lim1.Cols) != 2 || lim1.Cols[0] != 0 || lim1.Cols[1] != 1 {
		t.Errorf("unexpected LIM1 columns: %v", lim1.Cols)
	}

	lim2 := m.rows[1]
	if lim2.Sense != GE || lim2.RHS != 1 {
		t.Errorf("unexpected LIM2 row: %+v", lim2)
	}

	if m.colUB[0] != 4.0 {
		t.Errorf("expected X1's upper bound overridden to 4.0, got %v", m.colUB[0])
	}
	if m.colUB[1] != infBound {
		t.Errorf("expected X2's upper bound left at the default infinite bound, got %v", m.colUB[1])
	}
	for _, t2 := range m.colTypes {
		if t2 != Continuous {
			t.Errorf("expected both columns continuous, got %v", m.colTypes)
		}
	}
}

const integerMPS = `NAME
ROWS
 N  COST
 L  CAP
COLUMNS
    MARKER                 'MARKER'                 'INTORG'
    X1        COST      3.0        CAP       1.0
    MARKER                 'MARKER'                 'INTEND'
RHS
    RHS       CAP       1.0
BOUNDS
 BV BND       X1
ENDATA
`

func TestParseMPSIntegerMarkerAndBVBound(t *testing.T) {
	m, err := parseMPS(strings.NewReader(integerMPS))
	if err != nil {
		t.Fatalf("parseMPS failed: %v", err)
	}
	if len(m.colTypes) != 1 {
		t.Fatalf("expected 1 column, got %d", len(m.colTypes))
	}
	if m.colTypes[0] != Binary {
		t.Errorf("expected BV bound to promote column to Binary, got %v", m.colTypes[0])
	}
	if m.colLB[0] != 0 || m.colUB[0] != 1 {
		t.Errorf("expected BV bound to set [0,1], got [%v,%v]", m.colLB[0], m.colUB[0])
	}
}

const intorgDefaultMPS = `NAME
ROWS
 N  COST
 L  CAP
COLUMNS
    MARKER                 'MARKER'                 'INTORG'
    X1        COST      3.0        CAP       1.0
    MARKER                 'MARKER'                 'INTEND'
RHS
    RHS       CAP       1.0
ENDATA
`

func TestParseMPSIntorgDefaultBoundsPromotedToBinary(t *testing.T) {
	m, err := parseMPS(strings.NewReader(intorgDefaultMPS))
	if err != nil {
		t.Fatalf("parseMPS failed: %v", err)
	}
	// An INTORG column with no explicit BOUNDS entry keeps MPS's default
	// [0,1] integer bounds, which this parser promotes to Binary.
	if m.colTypes[0] != Binary {
		t.Errorf("expected default-bounded integer column promoted to Binary, got %v", m.colTypes[0])
	}
}

func TestRowBoundsForEveryRowSense(t *testing.T) {
	cases := []struct {
		row      Row
		lo, hi   float64
	}{
		{Row{Sense: LE, RHS: 5}, -infBound, 5},
		{Row{Sense: GE, RHS: 5}, 5, infBound},
		{Row{Sense: EQ, RHS: 5}, 5, 5},
		{Row{Sense: Range, RHS: 10, Range: 3}, 7, 10},
		{Row{Sense: Nonbinding}, -infBound, infBound},
	}
	for _, c := range cases {
		lo, hi := rowBoundsFor(c.row)
		if lo != c.lo || hi != c.hi {
			t.Errorf("rowBoundsFor(%+v) = (%v,%v), want (%v,%v)", c.row, lo, hi, c.lo, c.hi)
		}
	}
}
