package objective

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/mgmiddelhoek/ParXCL/model"
	"github.com/mgmiddelhoek/ParXCL/numdat"
	"github.com/mgmiddelhoek/ParXCL/residual"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

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

func makeBlock() *numdat.NumBlock {
	nb := &numdat.NumBlock{Dims: model.Dims{NR: 1, NX: 2, NA: 0, NP: 1}, C: vecmat.Vector{}, F: vecmat.Vector{}}
	active := nb.EnsureGroup(numdat.Active)
	for i, xy := range [][2]float64{{1, 2}, {2, 4}, {3, 6}} {
		active.XSets = append(active.XSets, &numdat.XSet{
			ID: i, Val: vecmat.Vector{xy[0], xy[1]}, Err: vecmat.Vector{0.01, 0.01}, AbsErr: vecmat.Vector{0, 0},
		})
	}
	return nb
}

func TestEvaluateStacksActivePoints(tst *testing.T) {
	chk.PrintTitle("EvaluateStacksActivePoints")
	ev := lineModel()
	nb := makeBlock()
	cfg := residual.DefaultConfig()
	counts := &Counts{}
	res, err := Evaluate(cfg, ev, nb, Request{P: vecmat.Vector{2}, WantR: true, WantJ: true, Modify: true}, counts)
	if err != nil {
		tst.Fatalf("evaluate failed: %v", err)
	}
	if res.NPoints != 3 {
		tst.Errorf("expected 3 active points, got %d", res.NPoints)
	}
	if len(res.R) != 3 {
		tst.Errorf("expected 3 stacked residuals, got %d", len(res.R))
	}
	if res.Jp.M != 3 || res.Jp.N != 1 {
		tst.Errorf("expected 3x1 stacked Jp, got %dx%d", res.Jp.M, res.Jp.N)
	}
	if counts.R != 3 {
		tst.Errorf("expected 3 residual evaluations counted, got %d", counts.R)
	}
}
