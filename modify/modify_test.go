package modify

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

func TestProximityModesSpreadUnderOne(tst *testing.T) {
	chk.PrintTitle("ProximityModesSpreadUnderOne")
	res := vecmat.Vector{0.1, 0.1, 0.1, 0.1}
	sv := vecmat.Vector{1.0}
	pmc := new(float64)
	if !Proximity(res, sv, 1, 1, Modes, pmc, 0) {
		tst.Errorf("expected small spread to pass the MODES criterion")
	}
}

func TestProximityStrictRejectsLargePoint(tst *testing.T) {
	chk.PrintTitle("ProximityStrictRejectsLargePoint")
	res := vecmat.Vector{0.1, 5.0, 0.1}
	sv := vecmat.Vector{1.0}
	pmc := new(float64)
	if Proximity(res, sv, 1, 1, Strict, pmc, 0) {
		tst.Errorf("expected a point with |res|>1 to fail STRICT")
	}
}

func TestModifyPointSetIdentifiesWorst(tst *testing.T) {
	chk.PrintTitle("ModifyPointSetIdentifiesWorst")
	// 3 points, ng=1, rank=1: q is a 3x1 unit-norm-ish column, sv=[2].
	res := vecmat.Vector{0.01, 0.01, 1.0}
	q := vecmat.NewMatrix(3, 1)
	q.Set(0, 0, 0.3)
	q.Set(1, 0, 0.3)
	q.Set(2, 0, 0.9)
	sv := vecmat.Vector{2.0}
	pt := vecmat.NewMatrix(1, 1)
	pt.Set(0, 0, 1.0)
	dp := vecmat.Vector{0.0}

	out, err := ModifyPointSet(res, 1, sv, pt, q, 1, dp)
	if err != nil {
		tst.Fatalf("modify point set failed: %v", err)
	}
	if !out.Ok {
		tst.Fatalf("expected a worst point to be found")
	}
	if out.Index != 2 {
		tst.Errorf("expected point 2 (largest residual) to be identified as worst, got %d", out.Index)
	}
	if math.IsNaN(out.Dc) {
		tst.Errorf("dc should not be NaN")
	}
}
