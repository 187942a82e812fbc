package residual

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/mgmiddelhoek/ParXCL/model"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

// lineModel implements r = p0*x - y (one residual, two externals x,y, one
// parameter, no auxiliaries) so the reduced output of Assemble can be
// checked against a hand-derived answer.
func lineModel() *model.Compiled {
	dims := model.Dims{NR: 1, NX: 2, NA: 0, NP: 1}
	return model.NewCompiled(dims, func(req *model.Request, res *model.Result) bool {
		x, y, p0 := req.X[0], req.X[1], req.P[0]
		if req.WantR {
			res.R[0] = p0*x - y
		}
		if req.WantJX {
			res.Jx.Set(0, 0, p0)
			res.Jx.Set(0, 1, -1)
		}
		if req.WantJP {
			res.Jp.Set(0, 0, x)
		}
		return true
	})
}

func TestAssembleOnManifold(tst *testing.T) {
	chk.PrintTitle("AssembleOnManifold")
	ev := lineModel()
	cfg := DefaultConfig()
	pt := Point{
		Val:    vecmat.Vector{1, 2},
		Err:    vecmat.Vector{0.01, 0.01},
		AbsErr: vecmat.Vector{0, 0},
		AInit:  vecmat.Vector{},
	}
	p := vecmat.Vector{2}
	res, err := Assemble(cfg, ev, pt, p, vecmat.Vector{}, vecmat.Vector{})
	if err != nil {
		tst.Fatalf("assemble failed: %v", err)
	}
	if math.Abs(res.ResNorm) > 1e-6 {
		tst.Errorf("expected near-zero reduced residual norm on the manifold, got %v", res.ResNorm)
	}
}

func TestParamScaleUpdate(tst *testing.T) {
	chk.PrintTitle("ParamScaleUpdate")
	pval := vecmat.Vector{5, 0}
	plow := vecmat.Vector{1, -1}
	pup := vecmat.Vector{10, 1}
	ps := NewParamScale(pval, plow, pup)

	// Construction already performed one Update pass: sigma[0] dynamic
	// (bounds share sign, both nonzero) = clamp(5,1,10) = 5; sigma[1]
	// static (bounds straddle zero) = |1-(-1)| = 2.
	if ps.Sigma[0] != 5 {
		tst.Errorf("expected sigma[0]=clamp(5,1,10)=5, got %v", ps.Sigma[0])
	}
	if ps.Sigma[1] != 2 {
		tst.Errorf("expected sigma[1]=|1-(-1)|=2, got %v", ps.Sigma[1])
	}
	if math.Abs(pval[0]-1.0) > 1e-12 || pval[1] != 0 {
		tst.Errorf("expected pval rescaled to (1,0), got %v", pval)
	}

	// A second update at the same physical point is a no-op on sigma.
	ratio := ps.Update(pval, plow, pup)
	if ratio[0] != 1 || ratio[1] != 1 {
		tst.Errorf("expected unit ratio on a repeat update at the same point, got %v", ratio)
	}
}
