package inp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cpmech/gosl/chk"
)

const lineSpecJSON = `{
  "desc": "line fit",
  "model": {
    "name": "line",
    "code": "line.px",
    "externals": ["x", "y"],
    "residuals": ["r"],
    "parameters": [
      {"name": "p0", "v": 1.0, "lower": -100, "upper": 100, "unknown": true}
    ]
  },
  "data": {
    "sweep": [
      {"name": "x", "scale": "lin", "lower": 1, "upper": 5, "intervals": 4}
    ]
  },
  "extract": {"criterion": "modes", "prec": 1e-6, "sens": 1e-6, "ng": 1}
}`

func TestReadSpecBuildsTemplatesAndSweep(tst *testing.T) {
	chk.PrintTitle("ReadSpecBuildsTemplatesAndSweep")

	dir := tst.TempDir()
	path := filepath.Join(dir, "line.pxs")
	if err := os.WriteFile(path, []byte(lineSpecJSON), 0644); err != nil {
		tst.Fatalf("cannot write fixture: %v", err)
	}

	sp := ReadSpec(path)
	if sp.Key != "line" {
		tst.Errorf("expected key %q, got %q", "line", sp.Key)
	}

	mt := sp.ModelTemplate()
	if len(mt.Externals) != 2 || len(mt.Parameters) != 1 {
		tst.Fatalf("unexpected model template: %+v", mt)
	}

	st, err := sp.SystemTemplate(mt)
	if err != nil {
		tst.Fatalf("SystemTemplate failed: %v", err)
	}
	if !st.Parameters[0].IsFree() {
		tst.Errorf("expected p0 to be an unknown parameter")
	}

	dt, err := sp.DataTable(mt)
	if err != nil {
		tst.Fatalf("DataTable failed: %v", err)
	}
	if len(dt.Rows) != 5 {
		tst.Errorf("expected 5 swept rows, got %d", len(dt.Rows))
	}

	cfg := sp.ModesConfig()
	if cfg.NG != 1 || cfg.Prec != 1e-6 {
		tst.Errorf("unexpected modes config: %+v", cfg)
	}
}
