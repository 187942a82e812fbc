package inp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestReadDataTableReordersAndFoldsErrors(tst *testing.T) {
	chk.PrintTitle("ReadDataTableReordersAndFoldsErrors")

	csv := "y:m,x:sw,y:e,k:f\n1.0,0.0,0.01,7\n3.0,1.0,0.01,7\n\n5.0,2.0,0.02,7\n"
	dir := tst.TempDir()
	path := filepath.Join(dir, "sample.csv")
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		tst.Fatalf("cannot write fixture: %v", err)
	}

	dt, err := ReadDataTable(path)
	if err != nil {
		tst.Fatalf("ReadDataTable failed: %v", err)
	}

	if len(dt.Header) != 3 {
		tst.Fatalf("expected 3 columns (sweep x, meas y, fact k), got %d: %+v", len(dt.Header), dt.Header)
	}
	if dt.Header[0].Name != "x" {
		tst.Errorf("expected x first (the sweep column), got %q", dt.Header[0].Name)
	}
	if dt.Header[1].Name != "y" {
		tst.Errorf("expected y second (measured), got %q", dt.Header[1].Name)
	}
	if dt.Header[2].Name != "k" {
		tst.Errorf("expected k third (fact), got %q", dt.Header[2].Name)
	}

	if len(dt.Rows) != 3 {
		tst.Fatalf("expected 3 rows, got %d", len(dt.Rows))
	}
	if dt.Rows[0].Val[1] != 1.0 || dt.Rows[0].Err[1] != 0.01 {
		tst.Errorf("row 0: expected y=1.0 err=0.01, got val=%v err=%v", dt.Rows[0].Val, dt.Rows[0].Err)
	}
	if dt.Rows[0].CrvID != 1 || dt.Rows[1].CrvID != 1 {
		tst.Errorf("expected first two rows in curve 1, got %d, %d", dt.Rows[0].CrvID, dt.Rows[1].CrvID)
	}
	if dt.Rows[2].CrvID != 2 {
		tst.Errorf("expected the row after the blank line in curve 2, got %d", dt.Rows[2].CrvID)
	}
	if dt.Rows[2].Val[2] != 7 {
		tst.Errorf("expected fact column k=7 on every row, got %v", dt.Rows[2].Val)
	}
}
