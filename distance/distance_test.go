package distance

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/mgmiddelhoek/ParXCL/model"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

// planeModel implements f(x) = x0+x1+x2 (= A*x - b with A=[1,1,1], b=0),
// no auxiliaries, no parameters.
func planeModel() *model.Compiled {
	dims := model.Dims{NR: 1, NX: 3, NA: 0, NP: 0}
	return model.NewCompiled(dims, func(req *model.Request, res *model.Result) bool {
		if req.WantR {
			res.R[0] = req.X[0] + req.X[1] + req.X[2]
		}
		if req.WantJX {
			for j := 0; j < 3; j++ {
				res.Jx.Set(0, j, 1)
			}
		}
		return true
	})
}

func TestLinearManifold(tst *testing.T) {
	chk.PrintTitle("LinearManifold")
	ev := planeModel()
	cfg := DefaultConfig()
	xMeas := vecmat.Vector{1, 1, 1}
	res, err := Solve(cfg, ev, xMeas, vecmat.Vector{}, vecmat.Vector{}, vecmat.Vector{}, vecmat.Vector{})
	if err != nil {
		tst.Fatalf("solve failed: %v", err)
	}
	if !res.Ok {
		tst.Fatalf("solve did not converge")
	}
	// A.(x_meas+delta) == 0
	sum := xMeas[0] + res.Delta[0] + xMeas[1] + res.Delta[1] + xMeas[2] + res.Delta[2]
	if math.Abs(sum) > 1e-8 {
		tst.Errorf("constraint not satisfied: %v", sum)
	}
	// minimal norm solution is delta = -1 on each axis, norm = sqrt(3)
	want := math.Sqrt(3)
	got := vecmat.Norm2(res.Delta)
	if math.Abs(got-want) > 1e-6 {
		tst.Errorf("||delta|| = %v, want %v", got, want)
	}
}

func TestDistanceIdempotence(tst *testing.T) {
	chk.PrintTitle("DistanceIdempotence")
	ev := planeModel()
	cfg := DefaultConfig()
	xMeas := vecmat.Vector{1, 1, 1}
	res1, err := Solve(cfg, ev, xMeas, vecmat.Vector{}, vecmat.Vector{}, vecmat.Vector{}, vecmat.Vector{})
	if err != nil || !res1.Ok {
		tst.Fatalf("first solve failed: %v", err)
	}
	x2 := vecmat.Vector{xMeas[0] + res1.Delta[0], xMeas[1] + res1.Delta[1], xMeas[2] + res1.Delta[2]}
	res2, err := Solve(cfg, ev, x2, vecmat.Vector{}, vecmat.Vector{}, vecmat.Vector{}, vecmat.Vector{})
	if err != nil || !res2.Ok {
		tst.Fatalf("second solve failed: %v", err)
	}
	if vecmat.Norm2(res2.Delta) > 1e-8 {
		tst.Errorf("expected near-zero delta on idempotence check, got %v", vecmat.Norm2(res2.Delta))
	}
}

func TestDistanceOneShot(tst *testing.T) {
	chk.PrintTitle("DistanceOneShot")
	ev := planeModel()
	cfg := DefaultConfig()
	cfg.MaxIter = 0
	xMeas := vecmat.Vector{1, 1, 1}
	res, err := Solve(cfg, ev, xMeas, vecmat.Vector{}, vecmat.Vector{}, vecmat.Vector{}, vecmat.Vector{})
	if err != nil {
		tst.Fatalf("solve failed: %v", err)
	}
	if !res.Ok {
		tst.Fatalf("one-shot solve should always report success")
	}
}
