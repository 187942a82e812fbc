package numdat

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestMakeNumBlockGroups(tst *testing.T) {
	chk.PrintTitle("MakeNumBlockGroups")
	mt := &ModelTemplate{
		Externals:  []string{"x", "y"},
		Parameters: []string{"p0", "p1"},
		Residuals:  []string{"r"},
	}
	st := &SystemTemplate{
		Model:      mt,
		Parameters: []ParameterValue{NewUnknown(0, -10, 10), NewUnknown(0, -10, 10)},
	}
	dt := &DataTable{
		Header: []Column{{Name: "x", Flag: Stimulus}, {Name: "y", Flag: Measured}},
		Rows: []Row{
			{GrpID: 1, RowID: 0, Val: []float64{0, 1}},
			{GrpID: 1, RowID: 1, Val: []float64{1, 3}},
			{GrpID: -1, RowID: 2, Val: []float64{2, 5}},
		},
	}
	nb := MakeNumBlock(mt, st, dt, nil)
	if nb.TotalCount() != 3 {
		tst.Errorf("expected 3 total points, got %d", nb.TotalCount())
	}
	if nb.Group(Active).Count() != 2 {
		tst.Errorf("expected 2 active points, got %d", nb.Group(Active).Count())
	}
	if nb.Group(Failed).Count() != 1 {
		tst.Errorf("expected 1 failed point, got %d", nb.Group(Failed).Count())
	}
}

func TestDataTableSubset(tst *testing.T) {
	chk.PrintTitle("DataTableSubset")
	dt := &DataTable{
		Header: []Column{{Name: "x", Flag: Stimulus}},
		Rows: []Row{
			{GrpID: 1, CrvID: 1, Val: []float64{0}},
			{GrpID: 2, CrvID: 1, Val: []float64{1}},
			{GrpID: -1, CrvID: 1, Val: []float64{2}},
		},
	}
	sub, err := dt.Subset([]Selector{{Kind: SelectGroup, Low: 1, High: 2}})
	if err != nil {
		tst.Fatalf("subset failed: %v", err)
	}
	if len(sub.Rows) != 2 {
		tst.Errorf("expected 2 rows in subset, got %d", len(sub.Rows))
	}

	sub, err = dt.Subset([]Selector{{Kind: SelectExternal, Name: "x", Low: 0, High: 1}})
	if err != nil {
		tst.Fatalf("subset failed: %v", err)
	}
	if len(sub.Rows) != 2 {
		tst.Errorf("expected 2 rows with x in [0,1], got %d", len(sub.Rows))
	}

	if _, err := dt.Subset([]Selector{{Kind: SelectExternal, Name: "missing"}}); err == nil {
		tst.Errorf("expected an error selecting an unknown column")
	}
}

func TestMakeStimulusSweep(tst *testing.T) {
	chk.PrintTitle("MakeStimulusSweep")
	mt := &ModelTemplate{Externals: []string{"v", "t", "unused"}}

	stimuli := []StimulusSpec{
		{Name: "v", Scale: ScaleLinear, Lower: 0, Upper: 1, Intervals: 1}, // 2 values: 0, 1
		{Name: "t", Scale: ScaleLinear, Lower: 10, Upper: 30, Intervals: 2}, // 3 values: 10,20,30 (sweep)
	}

	dt, err := MakeStimulusSweep(stimuli, mt)
	if err != nil {
		tst.Fatalf("sweep failed: %v", err)
	}
	if len(dt.Header) != 3 {
		tst.Fatalf("expected 3 columns (sweep t, stim v, unkn unused), got %d", len(dt.Header))
	}
	if dt.Header[0].Name != "t" || dt.Header[0].Flag != Sweep {
		tst.Errorf("expected t as the sweep column, got %+v", dt.Header[0])
	}
	if dt.Header[1].Name != "v" || dt.Header[1].Flag != Stimulus {
		tst.Errorf("expected v as a stimulus column, got %+v", dt.Header[1])
	}
	if dt.Header[2].Name != "unused" || dt.Header[2].Flag != Unknown {
		tst.Errorf("expected unused as an unknown column, got %+v", dt.Header[2])
	}
	if len(dt.Rows) != 6 { // 3 (sweep) * 2 (stim)
		tst.Fatalf("expected 6 rows, got %d", len(dt.Rows))
	}

	// t (sweep, column 0) must cycle fastest: 10,20,30,10,20,30.
	wantT := []float64{10, 20, 30, 10, 20, 30}
	wantV := []float64{0, 0, 0, 1, 1, 1}
	wantCrv := []int{1, 1, 1, 2, 2, 2}
	for i, r := range dt.Rows {
		if r.Val[0] != wantT[i] || r.Val[1] != wantV[i] || r.Val[2] != 0 {
			tst.Errorf("row %d: expected t=%v v=%v unused=0, got %v", i, wantT[i], wantV[i], r.Val)
		}
		if r.CrvID != wantCrv[i] {
			tst.Errorf("row %d: expected crvid=%d, got %d", i, wantCrv[i], r.CrvID)
		}
	}
}
