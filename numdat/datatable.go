package numdat

import (
	"math"

	"github.com/mgmiddelhoek/ParXCL/perr"
)

// Column pairs a header name with its StateFlag, as in a DataTable header.
type Column struct {
	Name string
	Flag StateFlag
}

// Row is one data row: group/curve/row identifiers, plus a value and
// error list aligned to the table's header.
type Row struct {
	GrpID, CrvID, RowID int
	Val                  []float64
	Err                  []float64
}

// DataTable is a header plus rows.
type DataTable struct {
	Header []Column
	Rows   []Row
}

// ColumnIndex returns the index of a named column, or -1.
func (t *DataTable) ColumnIndex(name string) int {
	for i, c := range t.Header {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// SelectKind identifies what a Selector tests a row against: a group id,
// a curve id, or a named external's value.
type SelectKind int

const (
	SelectGroup    SelectKind = iota // row's GrpID
	SelectCurve                      // row's CrvID, with optional decimation
	SelectExternal                   // a named external's stored value
)

// Selector is one subset-selection criterion. A row surviving Subset must
// satisfy every Selector in the list.
type Selector struct {
	Kind      SelectKind
	Name      string  // external column name; ignored for Group/Curve
	Low, High float64 // inclusive bounds (rounded to the nearest int for Group/Curve)
	Subsample int     // SelectCurve only: keep curve ids divisible by this; 0 or 1 keeps all
}

// Subset returns a new DataTable holding the rows that satisfy every given
// Selector, sharing the same header. Each external name is resolved to a
// column index up front; unknown or UNKN-typed names are rejected.
func (t *DataTable) Subset(selectors []Selector) (DataTable, error) {
	idx := make([]int, len(selectors))
	for i, sel := range selectors {
		if sel.Kind != SelectExternal {
			idx[i] = -1
			continue
		}
		c := t.ColumnIndex(sel.Name)
		if c < 0 {
			return DataTable{}, perr.New(perr.NoKey, sel.Name, "subset: no such column")
		}
		if t.Header[c].Flag == Unknown {
			return DataTable{}, perr.New(perr.UnknownVariable, sel.Name, "subset: column is unconnected")
		}
		idx[i] = c
	}

	out := DataTable{Header: t.Header}
	for _, r := range t.Rows {
		keep := true
		for i, sel := range selectors {
			if !sel.matches(r, idx[i]) {
				keep = false
				break
			}
		}
		if keep {
			out.Rows = append(out.Rows, r)
		}
	}
	return out, nil
}

// matches reports whether row r satisfies the selector; colIdx is the
// pre-resolved column index for SelectExternal, -1 otherwise.
func (s Selector) matches(r Row, colIdx int) bool {
	switch s.Kind {
	case SelectGroup:
		lo, hi := roundi(s.Low), roundi(s.High)
		return r.GrpID >= lo && r.GrpID <= hi
	case SelectCurve:
		lo, hi := roundi(s.Low), roundi(s.High)
		sub := s.Subsample
		if sub <= 0 {
			sub = 1
		}
		return r.CrvID >= lo && r.CrvID <= hi && r.CrvID%sub == 0
	default: // SelectExternal, slightly widen the bounds, as truncation may clip them
		lo := s.Low - 1e-6*math.Abs(s.Low)
		hi := s.High + 1e-6*math.Abs(s.High)
		v := r.Val[colIdx]
		return v >= lo && v <= hi
	}
}

func roundi(v float64) int {
	if v >= 0 {
		return int(v + 0.5)
	}
	return int(v - 0.5)
}
