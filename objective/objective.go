// Package objective implements the MODES objective function: it stacks
// per-point reduced residuals and reduced ∂f/∂p over the ACTIVE
// group (and, when requested, UNSELECTED and FAILED too) into one system,
// demoting or dropping points whose residual evaluation fails.
package objective

import (
	"github.com/mgmiddelhoek/ParXCL/model"
	"github.com/mgmiddelhoek/ParXCL/numdat"
	"github.com/mgmiddelhoek/ParXCL/perr"
	"github.com/mgmiddelhoek/ParXCL/residual"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

// Counts accumulates model-evaluation counters across one call: how many
// times the residual, ∂f/∂x and ∂f/∂p were evaluated.
type Counts struct {
	R, Jx, Jp int
}

// Request configures one evaluation of the objective function.
type Request struct {
	P vecmat.Vector

	WantR bool
	WantJ bool

	Modify bool // allow demoting a failing point to FAILED
	All    bool // evaluate over ACTIVE+UNSELECTED+FAILED instead of just ACTIVE
}

// Result is the stacked system plus the remaining active point count.
type Result struct {
	R        vecmat.Vector
	Jp       *vecmat.Matrix
	NPoints  int // remaining points in ACTIVE after any demotions
	PerPoint []float64 // residual norm per evaluated xset, parallel to the stacked rows' point order
}

// Cfg bundles the residual assembler's configuration, since objective
// calls residual.Assemble once per point.
type Cfg = residual.Config

// Evaluate runs the objective function over nb's xgroups.
// A failing point is handled according to req.All/req.Modify: if All,
// the point is skipped and left in place; else if Modify is false, the
// call stops and returns an error; else the point is demoted into FAILED
// and evaluation continues.
func Evaluate(cfg Cfg, ev model.Evaluator, nb *numdat.NumBlock, req Request, counts *Counts) (*Result, error) {
	if !req.WantR && !req.WantJ {
		return &Result{NPoints: nb.Group(numdat.Active).Count()}, nil
	}

	groups := []numdat.GroupID{numdat.Active}
	if req.All {
		groups = append(groups, numdat.Unselected, numdat.Failed)
	}

	np := len(req.P)
	var rows []vecmat.Vector
	var jpRows []*vecmat.Matrix
	var norms []float64

	active := nb.Group(numdat.Active)

	for _, gid := range groups {
		grp := nb.Group(gid)
		if grp == nil {
			continue
		}
		i := 0
		for i < len(grp.XSets) {
			xs := grp.XSets[i]
			pt := residual.Point{Val: xs.Val, Err: xs.Err, AbsErr: xs.AbsErr, AInit: vecmat.NewVector(nb.Dims.NA)}
			res, err := residual.Assemble(cfg, ev, pt, req.P, nb.C, nb.F)

			if err != nil {
				xs.Res = -1

				if req.All {
					i++
					continue
				}

				if !req.Modify {
					return nil, perr.New(perr.ObjectiveFailed, "", "objective: point %d failed: %v", xs.ID, err)
				}

				demote(nb, active, i, numdat.Failed)
				continue
			}

			xs.Delta = res.Delta
			xs.Res = res.ResNorm

			if req.WantR {
				rows = append(rows, res.R)
			}
			if req.WantJ {
				jpRows = append(jpRows, res.Jp)
			}
			norms = append(norms, res.ResNorm)
			counts.R++
			counts.Jx++
			counts.Jp++

			i++
		}
	}

	result := &Result{NPoints: active.Count(), PerPoint: norms}
	if req.WantR {
		result.R = stackVectors(rows)
	}
	if req.WantJ {
		result.Jp = stackMatrices(jpRows, np)
	}
	return result, nil
}

// demote removes xset i from grp (which must be the ACTIVE group) and
// appends it to the group with id target, matching remove_data_point's
// splice-out/splice-in without shifting the remaining index.
func demote(nb *numdat.NumBlock, grp *numdat.XGroup, i int, target numdat.GroupID) {
	xs := grp.XSets[i]
	grp.XSets = append(grp.XSets[:i], grp.XSets[i+1:]...)
	dst := nb.EnsureGroup(target)
	dst.XSets = append(dst.XSets, xs)
}

func stackVectors(vs []vecmat.Vector) vecmat.Vector {
	n := 0
	for _, v := range vs {
		n += len(v)
	}
	out := vecmat.NewVector(n)
	i := 0
	for _, v := range vs {
		copy(out[i:], v)
		i += len(v)
	}
	return out
}

func stackMatrices(ms []*vecmat.Matrix, np int) *vecmat.Matrix {
	n := 0
	for _, m := range ms {
		n += m.M
	}
	out := vecmat.NewMatrix(n, np)
	row := 0
	for _, m := range ms {
		for i := 0; i < m.M; i++ {
			for j := 0; j < np; j++ {
				out.Set(row, j, m.At(i, j))
			}
			row++
		}
	}
	return out
}
