package kernelpump

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/lanl/highs"
)

// mpsModel is the intermediate, backend-agnostic representation produced by
// parsing a free-format MPS file. Both the HiGHS- and GLPK-backed Model
// implementations are built from this, the way the teacher's own
// LoadInstance produces an Instance consumed by multiple solvers
// (src/scpcs/highs.go, src/scpcs/solvers.go, src/scpcs/lagrangian.go).
type mpsModel struct {
	name     string
	colNames []string
	rowNames []string

	colTypes []ColumnType
	colLB    []float64
	colUB    []float64
	objCoef  []float64
	objName  string

	rows []Row
}

const infBound = 1e20

// readMPS parses a minimal free-format MPS file: NAME, ROWS, COLUMNS (with
// INTORG/INTEND integer markers), RHS, RANGES, BOUNDS, ENDATA. Unsupported
// sections (e.g. SOS) are skipped rather than rejected.
func readMPS(path string) (*mpsModel, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer f.Close()
	return parseMPS(f)
}

func parseMPS(r io.Reader) (*mpsModel, error) {
	m := &mpsModel{}
	colIndex := map[string]int{}
	rowIndex := map[string]int{}
	rowSense := map[string]RowSense{}
	rowRHS := map[string]float64{}
	rowRange := map[string]float64{}
	rowHasRange := map[string]bool{}
	rowCols := map[string][]int{}
	rowVals := map[string][]float64{}

	section := ""
	inInteger := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "*") {
			continue
		}
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			fields := strings.Fields(line)
			section = fields[0]
			if section == "NAME" && len(fields) > 1 {
				m.name = fields[1]
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch section {
		case "ROWS":
			sense, name := fields[0], fields[1]
			switch strings.ToUpper(sense) {
			case "N":
				if m.objName == "" {
					m.objName = name
				}
				continue
			case "L":
				rowSense[name] = LE
			case "G":
				rowSense[name] = GE
			case "E":
				rowSense[name] = EQ
			default:
				return nil, fmt.Errorf("unknown row sense %q", sense)
			}
			rowIndex[name] = len(m.rowNames)
			m.rowNames = append(m.rowNames, name)

		case "COLUMNS":
			if len(fields) >= 3 && fields[1] == "'MARKER'" {
				if strings.Contains(fields[2], "INTORG") {
					inInteger = true
				} else if strings.Contains(fields[2], "INTEND") {
					inInteger = false
				}
				continue
			}
			colName := fields[0]
			j, ok := colIndex[colName]
			if !ok {
				j = len(m.colNames)
				colIndex[colName] = j
				m.colNames = append(m.colNames, colName)
				m.objCoef = append(m.objCoef, 0.0)
				if inInteger {
					m.colTypes = append(m.colTypes, GeneralInteger)
					m.colLB = append(m.colLB, 0)
					m.colUB = append(m.colUB, 1) // MPS convention: integer default bound is [0,1] until overridden.
				} else {
					m.colTypes = append(m.colTypes, Continuous)
					m.colLB = append(m.colLB, 0)
					m.colUB = append(m.colUB, infBound)
				}
			}
			for k := 1; k+1 < len(fields); k += 2 {
				rowName, valStr := fields[k], fields[k+1]
				val, err := strconv.ParseFloat(valStr, 64)
				if err != nil {
					return nil, fmt.Errorf("columns: bad value %q: %w", valStr, err)
				}
				if rowName == m.objName {
					m.objCoef[j] = val
					continue
				}
				rowCols[rowName] = append(rowCols[rowName], j)
				rowVals[rowName] = append(rowVals[rowName], val)
			}

		case "RHS":
			for k := 1; k+1 < len(fields); k += 2 {
				rowName, valStr := fields[k], fields[k+1]
				val, err := strconv.ParseFloat(valStr, 64)
				if err != nil {
					return nil, fmt.Errorf("rhs: bad value %q: %w", valStr, err)
				}
				rowRHS[rowName] = val
			}

		case "RANGES":
			for k := 1; k+1 < len(fields); k += 2 {
				rowName, valStr := fields[k], fields[k+1]
				val, err := strconv.ParseFloat(valStr, 64)
				if err != nil {
					return nil, fmt.Errorf("ranges: bad value %q: %w", valStr, err)
				}
				rowRange[rowName] = math.Abs(val)
				rowHasRange[rowName] = true
			}

		case "BOUNDS":
			if len(fields) < 3 {
				continue
			}
			kind, colName := strings.ToUpper(fields[0]), fields[2]
			j, ok := colIndex[colName]
			if !ok {
				return nil, fmt.Errorf("bounds: unknown column %q", colName)
			}
			var val float64
			if len(fields) >= 4 {
				var err error
				val, err = strconv.ParseFloat(fields[3], 64)
				if err != nil {
					return nil, fmt.Errorf("bounds: bad value %q: %w", fields[3], err)
				}
			}
			switch kind {
			case "UP":
				m.colUB[j] = val
				if val < 0 && m.colLB[j] == 0 {
					m.colLB[j] = -infBound
				}
			case "LO":
				m.colLB[j] = val
			case "FX":
				m.colLB[j] = val
				m.colUB[j] = val
			case "FR":
				m.colLB[j] = -infBound
				m.colUB[j] = infBound
			case "MI":
				m.colLB[j] = -infBound
			case "PL":
				m.colUB[j] = infBound
			case "BV":
				m.colLB[j] = 0
				m.colUB[j] = 1
				m.colTypes[j] = Binary
			default:
				return nil, fmt.Errorf("bounds: unknown bound type %q", kind)
			}

		case "ENDATA":
			// done
		default:
			// SOS/other unsupported sections: skip silently.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	for _, name := range m.rowNames {
		sense := rowSense[name]
		rhs := rowRHS[name]
		row := Row{Cols: rowCols[name], Vals: rowVals[name], Sense: sense, RHS: rhs}
		if rowHasRange[name] {
			row.Sense = Range
			row.Range = rowRange[name]
			// MPS range semantics vary by original row sense; this project
			// follows the kernel pump's own inverted convention documented
			// in SPEC_FULL.md: feasible set is [rhs-range, rhs].
			switch sense {
			case GE:
				row.RHS = rhs + rowRange[name]
			case EQ:
				if rowRange[name] >= 0 {
					row.RHS = rhs + rowRange[name]
				}
			}
		}
		m.rows = append(m.rows, row)
	}

	// Promote 0/1-bounded general integers to Binary, matching the kernel
	// pump's own classification of "binaries" as columns with type Binary
	// specifically (MPS emits these as INTORG columns with default [0,1]
	// bounds, which are conventionally binary).
	for j, t := range m.colTypes {
		if t == GeneralInteger && m.colLB[j] == 0 && m.colUB[j] == 1 {
			m.colTypes[j] = Binary
		}
	}

	return m, nil
}

// toHighsModel builds a *highs.Model whose column/row arrays mirror mpsModel,
// the way the teacher's defBaseSCP/defConflicts build one by hand from an
// Instance (src/scpcs/highs.go).
func (m *mpsModel) toHighsModel() *highs.Model {
	n := len(m.colNames)
	lp := &highs.Model{
		ColCosts: append([]float64(nil), m.objCoef...),
		ColLower: append([]float64(nil), m.colLB...),
		ColUpper: append([]float64(nil), m.colUB...),
		VarTypes: make([]highs.VariableType, n),
	}
	for j, t := range m.colTypes {
		if t.IsIntegral() {
			lp.VarTypes[j] = highs.IntegerType
		} else {
			lp.VarTypes[j] = highs.ContinuousType
		}
	}

	lp.RowLower = make([]float64, len(m.rows))
	lp.RowUpper = make([]float64, len(m.rows))
	for i, row := range m.rows {
		lo, hi := rowBoundsFor(row)
		lp.RowLower[i] = lo
		lp.RowUpper[i] = hi
		for k, j := range row.Cols {
			lp.ConstMatrix = append(lp.ConstMatrix, highs.Nonzero{Row: i, Col: j, Val: row.Vals[k]})
		}
	}
	return lp
}

// rowBoundsFor converts a Row's sense/rhs/range into the [lower, upper]
// representation HiGHS' ConstMatrix-based model wants for RowLower/RowUpper.
func rowBoundsFor(row Row) (lo, hi float64) {
	switch row.Sense {
	case LE:
		return -infBound, row.RHS
	case GE:
		return row.RHS, infBound
	case EQ:
		return row.RHS, row.RHS
	case Range:
		return row.RHS - row.Range, row.RHS
	default: // Nonbinding
		return -infBound, infBound
	}
}
