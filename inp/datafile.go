package inp

import (
	"strconv"
	"strings"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/mgmiddelhoek/ParXCL/numdat"
)

// ReadDataTable reads a tagged CSV data file into a numdat.DataTable.
// The dialect is a plain comma-separated header plus rows, blank lines
// separating curves, and an optional ":tag" suffix on each header name
// selecting its StateFlag (":sw"/"x0" sweep, ":x"/":st"/":y" stimulus,
// ":m" measured, ":c" calculated, ":f" fact, ":e"
// error-of-the-preceding-same-named-column); a bare quote toggles
// "nested" mode, used only to let a quoted field's comma act as a
// decimal separator rather than a field terminator. This reader does not
// attempt flyback-based curve auto-detection: curves are exactly the
// blank-line-separated groups.
func ReadDataTable(path string) (numdat.DataTable, error) {
	b, err := io.ReadFile(path)
	if err != nil {
		return numdat.DataTable{}, chk.Err("ReadDataTable: cannot read %q: %v", path, err)
	}

	rawHeader, rawRows, err := scanCSV(string(b))
	if err != nil {
		return numdat.DataTable{}, chk.Err("ReadDataTable: %q: %v", path, err)
	}

	cols, err := parseHeader(rawHeader)
	if err != nil {
		return numdat.DataTable{}, chk.Err("ReadDataTable: %q: %v", path, err)
	}

	return buildTable(cols, rawRows)
}

// rawCol is one header cell before reordering: its base name, assigned
// StateFlag, and original column position.
type rawCol struct {
	name string
	flag numdat.StateFlag
	pos  int
}

// rawRow is one data row before column reordering: group/curve id and
// the raw cell values aligned to the header's original column order.
type rawRow struct {
	grpID, crvID int
	vals         []float64
}

// scanCSV tokenizes the dialect's character stream into a header line of
// raw cells and a list of data rows of raw cells, tracking curve breaks
// on blank lines and the nested-quote decimal-comma rule.
func scanCSV(src string) (header []string, rows []rawRow, err error) {
	var cur strings.Builder
	var row []string
	nested := false
	headerDone := false
	crvID := 1
	haveCellsOnLine := false

	flushCell := func() {
		row = append(row, cur.String())
		cur.Reset()
	}
	flushRow := func() error {
		flushCell()
		if !headerDone {
			header = row
			headerDone = true
		} else {
			vals := make([]float64, len(row))
			for i, s := range row {
				s = strings.TrimSpace(s)
				if s == "" {
					continue
				}
				v, perr := strconv.ParseFloat(s, 64)
				if perr != nil {
					return chk.Err("illegal number %q", s)
				}
				vals[i] = v
			}
			rows = append(rows, rawRow{grpID: 1, crvID: crvID, vals: vals})
		}
		row = nil
		return nil
	}

	for _, c := range src {
		switch {
		case c == '"':
			nested = !nested
			continue
		case c == ' ' || c == '\t' || c == '\r':
			continue
		case c == '\n':
			if !haveCellsOnLine && cur.Len() == 0 {
				if headerDone {
					crvID++
				}
				continue
			}
			if err := flushRow(); err != nil {
				return nil, nil, err
			}
			haveCellsOnLine = false
			continue
		case c == ',':
			if nested && headerDone {
				cur.WriteByte('.')
				continue
			}
			flushCell()
			haveCellsOnLine = true
			continue
		default:
			cur.WriteRune(c)
			haveCellsOnLine = true
		}
	}
	if cur.Len() > 0 || len(row) > 0 {
		if err := flushRow(); err != nil {
			return nil, nil, err
		}
	}
	return header, rows, nil
}

// parseHeader resolves each raw header cell's base name and StateFlag.
// Tag checks apply in sequential-override order, so a name matching more
// than one substring (e.g. ":x0") resolves to the last rule that
// matched, not the first.
func parseHeader(raw []string) ([]rawCol, error) {
	cols := make([]rawCol, len(raw))
	for i, name := range raw {
		if name == "" {
			cols[i] = rawCol{name: "", flag: numdat.Fact, pos: i}
			continue
		}
		state := numdat.Fact
		if strings.Contains(name, ":sw") {
			state = numdat.Sweep
		}
		if strings.Contains(name, ":x") {
			if strings.Contains(name, ":x0") {
				state = numdat.Sweep
			} else {
				state = numdat.Stimulus
			}
		}
		if strings.Contains(name, ":st") {
			state = numdat.Stimulus
		}
		if strings.Contains(name, ":y") {
			state = numdat.Stimulus
		}
		if strings.Contains(name, ":m") {
			state = numdat.Measured
		}
		if strings.Contains(name, ":c") {
			state = numdat.Calculated
		}
		if strings.Contains(name, ":f") {
			state = numdat.Fact
		}
		if strings.Contains(name, ":e") {
			state = numdat.ErrColumn
		}
		base := name
		if idx := strings.IndexByte(name, ':'); idx >= 0 {
			base = name[:idx]
		}
		cols[i] = rawCol{name: base, flag: state, pos: i}
	}
	return cols, nil
}

// buildTable reorders columns (sweep first, then stimuli, then
// measured/calculated, then facts), folds each ERR column into the Err
// slot of the data column sharing its name, and transposes raw rows into
// the final DataTable shape.
func buildTable(cols []rawCol, raw []rawRow) (numdat.DataTable, error) {
	var sweepCol *rawCol
	for i := range cols {
		if cols[i].flag == numdat.Sweep {
			if sweepCol != nil {
				return numdat.DataTable{}, chk.Err("multiple sweep variables")
			}
			sweepCol = &cols[i]
		}
	}

	var ordered []rawCol
	if sweepCol != nil {
		ordered = append(ordered, *sweepCol)
	}
	appendKind := func(flag numdat.StateFlag) {
		for _, c := range cols {
			if c.flag == flag {
				ordered = append(ordered, c)
			}
		}
	}
	appendKind(numdat.Stimulus)
	for _, c := range cols {
		if c.flag == numdat.Measured || c.flag == numdat.Calculated {
			ordered = append(ordered, c)
		}
	}
	appendKind(numdat.Fact)

	errPos := func(name string) int {
		for _, c := range cols {
			if c.flag == numdat.ErrColumn && c.name == name {
				return c.pos
			}
		}
		return -1
	}

	header := make([]numdat.Column, len(ordered))
	for i, c := range ordered {
		header[i] = numdat.Column{Name: c.name, Flag: c.flag}
	}

	dtRows := make([]numdat.Row, len(raw))
	for i, rr := range raw {
		dtRows[i] = numdat.Row{
			GrpID: rr.grpID, CrvID: rr.crvID, RowID: i,
			Val: make([]float64, len(ordered)),
			Err: make([]float64, len(ordered)),
		}
		for j, c := range ordered {
			if c.pos < len(rr.vals) {
				dtRows[i].Val[j] = rr.vals[c.pos]
			}
			if ep := errPos(c.name); ep >= 0 && ep < len(rr.vals) {
				dtRows[i].Err[j] = rr.vals[ep]
			}
		}
	}

	return numdat.DataTable{Header: header, Rows: dtRows}, nil
}
