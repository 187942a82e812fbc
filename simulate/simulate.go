// Package simulate is the simulation orchestrator: for each
// data point in every xgroup of a NumBlock, it solves the model's
// constraint equations for the declared unknown externals and
// auxiliaries by Newton-Raphson, writing the solution back into the
// xset and demoting any point that doesn't converge exactly into an
// invalid group.
package simulate

import (
	"math"

	"github.com/mgmiddelhoek/ParXCL/model"
	"github.com/mgmiddelhoek/ParXCL/newton"
	"github.com/mgmiddelhoek/ParXCL/numdat"
	"github.com/mgmiddelhoek/ParXCL/perr"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

// Counters reports how many points in a run converged vs. failed.
type Counters struct {
	Valid, Invalid int
}

// Run simulates every xset across every group in nb.
// tol is the relative tolerance of every unknown and sets the floor
// tol*eps on the absolute tolerance of the unknown externals; maxIter of
// 0 uses newton's default iteration budget.
func Run(ev model.Evaluator, nb *numdat.NumBlock, tol float64, maxIter int) (*Counters, error) {
	nxv := len(nb.XTrans)
	nav := nb.Dims.NA
	if nxv+nav != nb.Dims.NR {
		return nil, perr.New(perr.IllegalSpec, "", "simulate: unknown count (%d) + auxiliary count (%d) != residual count (%d)", nxv, nav, nb.Dims.NR)
	}

	counters := &Counters{}
	invalid := nb.EnsureGroup(numdat.SimFailed)

	for _, grp := range nb.Groups {
		if grp.ID == numdat.SimFailed {
			continue
		}
		kept := grp.XSets[:0]
		for _, xs := range grp.XSets {
			status, err := solvePoint(ev, nb, xs, tol, maxIter)
			if err != nil {
				return nil, err
			}
			if status == newton.Converged {
				counters.Valid++
				kept = append(kept, xs)
			} else {
				counters.Invalid++
				invalid.XSets = append(invalid.XSets, xs)
			}
		}
		grp.XSets = kept
	}

	return counters, nil
}

// simSystem adapts a model.Evaluator to newton.System: its variable
// vector is [unknown externals...; auxiliaries...], with every other
// external held fixed at xs.Val.
type simSystem struct {
	ev             model.Evaluator
	xTrans         []int
	fixedX, p, c, f vecmat.Vector
	nxv, nav       int
}

func (s *simSystem) Constraints(xv vecmat.Vector, wantF, wantJ bool) (vecmat.Vector, *vecmat.Matrix, bool, bool, bool) {
	nx := len(s.fixedX)
	na := s.nav

	x := s.fixedX.Clone()
	for i, idx := range s.xTrans {
		x[idx] = xv[i]
	}
	a := xv[s.nxv : s.nxv+s.nav]

	dims := s.ev.Dims()
	req := &model.Request{
		X: x, A: a, P: s.p, C: s.c, F: s.f,
		WantR: wantF, WantJX: wantJ,
	}
	if wantJ {
		req.XMask = make([]bool, nx)
		for _, idx := range s.xTrans {
			req.XMask[idx] = true
		}
	}
	res := &model.Result{R: vecmat.NewVector(dims.NR)}
	if wantJ {
		res.Jx = vecmat.NewMatrix(dims.NR, nx)
		res.Ja = vecmat.NewMatrix(dims.NR, na)
	}

	ok, _ := model.Call(s.ev, req, res)
	if !ok {
		return nil, nil, false, false, false
	}

	var jac *vecmat.Matrix
	if wantJ {
		jac = vecmat.NewMatrix(dims.NR, s.nxv+s.nav)
		for c, idx := range s.xTrans {
			for r := 0; r < dims.NR; r++ {
				jac.Set(r, c, res.Jx.At(r, idx))
			}
		}
		for i := 0; i < na; i++ {
			for r := 0; r < dims.NR; r++ {
				jac.Set(r, s.nxv+i, res.Ja.At(r, i))
			}
		}
	}

	return res.R, jac, wantF, wantJ, true
}

// solvePoint runs Newton-Raphson for one xset and writes the solution
// back on exact convergence (or on a "maybe valid" partial result,
// matching init_x/finish_x's unconditional write-back for any nr>=0).
func solvePoint(ev model.Evaluator, nb *numdat.NumBlock, xs *numdat.XSet, tol float64, maxIter int) (newton.Status, error) {
	nxv := len(nb.XTrans)
	nav := nb.Dims.NA
	n := nxv + nav

	xv := vecmat.NewVector(n)
	relErr := vecmat.NewVector(n)
	absErr := vecmat.NewVector(n)

	for i, idx := range nb.XTrans {
		xv[i] = xs.Val[idx]
		relErr[i] = math.Abs(xs.Err[idx])
		absErr[i] = math.Abs(xs.AbsErr[idx])
	}
	for i := 0; i < nav; i++ {
		absErr[nxv+i] = math.Abs(nb.A[i])
		relErr[nxv+i] = tol
	}

	machineEps := 2.220446049250313e-16
	for i := 0; i < nxv; i++ {
		if math.Abs(absErr[i]) < tol*machineEps {
			absErr[i] = tol * machineEps
		}
		relErr[i] = math.Abs(tol)
	}

	sys := &simSystem{ev: ev, xTrans: nb.XTrans, fixedX: xs.Val, p: nb.P, c: nb.C, f: nb.F, nxv: nxv, nav: nav}

	res, err := newton.Solve(sys, xv, relErr, absErr, maxIter)
	if err != nil {
		return newton.EvalError, err
	}

	if res.Status >= newton.Converged {
		xs.Res = res.FNorm
		newVal := xs.Val.Clone()
		newDelta := xs.Delta.Clone()
		newErr := xs.Err.Clone()
		for i, idx := range nb.XTrans {
			newVal[idx] = res.X[i]
			newDelta[idx] = res.AbsStep[i]
			newErr[idx] = res.FNorm
		}
		xs.Val = newVal
		xs.Delta = newDelta
		xs.Err = newErr
	}

	return res.Status, nil
}
