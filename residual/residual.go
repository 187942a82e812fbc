// Package residual wraps the distance solver: it scales
// variables into a dimensionless metric, invokes distance.Solve, then
// eliminates auxiliary rows by Gauss pivoting on ∂f/∂a and whitens the
// remaining constraint block via SVD, returning a reduced residual vector
// and reduced ∂f/∂p ready to be stacked by the objective function.
package residual

import (
	"math"

	"github.com/mgmiddelhoek/ParXCL/distance"
	"github.com/mgmiddelhoek/ParXCL/model"
	"github.com/mgmiddelhoek/ParXCL/perr"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

// Config bundles the distance-solver configuration and the metric
// tolerance used in the per-variable scale formula.
type Config struct {
	Distance distance.Config
	ScaleTol float64 // tol in sigma_i = max(|err_i|, tol*|val_i|, |abserr_i|)
}

func DefaultConfig() Config {
	return Config{Distance: distance.Config{MaxIter: 20, RTol: 1e-6, ATol: 1e-9, ATolA: 1e-9, GoldenIters: 8, DiscontinuityEpsilon: 1e-10}, ScaleTol: 1e-6}
}

// Point is the per-point input: the measurement, its precisions, and an
// auxiliary starting point.
type Point struct {
	Val    vecmat.Vector
	Err    vecmat.Vector
	AbsErr vecmat.Vector
	AInit  vecmat.Vector
}

// Result is the reduced, whitened per-point output handed to the
// objective function.
type Result struct {
	R      vecmat.Vector // whitened reduced residual, length = rank
	Jp     *vecmat.Matrix // whitened reduced d f/dp, rank x n_p, sign-flipped
	Delta  vecmat.Vector // unscaled δ written back into the xset
	ResNorm float64
}

// scale computes sigma_i = max(|err_i|, tol*|val_i|, |abserr_i|).
func scale(tol float64, val, err, abserr vecmat.Vector) vecmat.Vector {
	n := len(val)
	s := vecmat.NewVector(n)
	for i := 0; i < n; i++ {
		s[i] = math.Abs(err[i])
		if v := tol * math.Abs(val[i]); v > s[i] {
			s[i] = v
		}
		if v := math.Abs(abserr[i]); v > s[i] {
			s[i] = v
		}
		if s[i] == 0 {
			s[i] = 1
		}
	}
	return s
}

// scaledEvaluator presents the distance solver with a dimensionless delta
// coordinate: its X input is the scaled offset from pt.Val, mapped back
// to the model's physical x = pt.Val + sigma⊙deltaScaled before calling
// the real evaluator, with ∂f/∂x columns rescaled by the chain rule.
type scaledEvaluator struct {
	inner         model.Evaluator
	xMeas, sigma  vecmat.Vector
}

func (s *scaledEvaluator) Dims() model.Dims { return s.inner.Dims() }

func (s *scaledEvaluator) Evaluate(req *model.Request, res *model.Result) bool {
	physX := vecmat.NewVector(len(req.X))
	for i := range physX {
		physX[i] = s.xMeas[i] + s.sigma[i]*req.X[i]
	}
	inner := *req
	inner.X = physX
	ok := s.inner.Evaluate(&inner, res)
	if ok && req.WantJX && res.Jx != nil {
		for j := 0; j < res.Jx.N; j++ {
			col := res.Jx.Col(j)
			for i := range col {
				col[i] *= s.sigma[j]
			}
		}
	}
	return ok
}

func (s *scaledEvaluator) TransposeX(x vecmat.Vector) vecmat.Vector        { return s.inner.TransposeX(x) }
func (s *scaledEvaluator) TransposeP(p vecmat.Vector) vecmat.Vector        { return s.inner.TransposeP(p) }
func (s *scaledEvaluator) InverseTransposeX(x vecmat.Vector) vecmat.Vector { return s.inner.InverseTransposeX(x) }
func (s *scaledEvaluator) InverseTransposeP(p vecmat.Vector) vecmat.Vector { return s.inner.InverseTransposeP(p) }

// Assemble runs the full per-point residual assembly pipeline.
func Assemble(cfg Config, ev model.Evaluator, pt Point, p, c, f vecmat.Vector) (*Result, error) {
	dims := ev.Dims()
	nx, na, np, nr := dims.NX, dims.NA, dims.NP, dims.NR

	sigma := scale(cfg.ScaleTol, pt.Val, pt.Err, pt.AbsErr)
	scaledEv := &scaledEvaluator{inner: ev, xMeas: pt.Val, sigma: sigma}

	distRes, err := distance.Solve(cfg.Distance, scaledEv, vecmat.NewVector(nx), pt.AInit, p, c, f)
	if err != nil {
		return nil, err
	}
	if !distRes.Ok {
		return nil, perr.New(perr.ObjectiveFailed, "", "residual: distance solve did not converge")
	}

	delta := vecmat.NewVector(nx)
	for i := 0; i < nx; i++ {
		delta[i] = sigma[i] * distRes.Delta[i]
	}

	finalX := vecmat.NewVector(nx)
	for i := 0; i < nx; i++ {
		finalX[i] = pt.Val[i] + delta[i]
	}
	req := &model.Request{
		X: finalX, A: distRes.A, P: p, C: c, F: f,
		WantR: true, WantJX: true, WantJP: true,
		XMask: trueMask(nx), PMask: trueMask(np),
	}
	res := &model.Result{
		R:  vecmat.NewVector(nr),
		Jx: vecmat.NewMatrix(nr, nx),
		Ja: vecmat.NewMatrix(nr, na),
		Jp: vecmat.NewMatrix(nr, np),
	}
	ok, _ := model.Call(ev, req, res)
	if !ok {
		return nil, perr.New(perr.ModelReturnedFalse, "", "residual: final model evaluation failed")
	}

	rRed, jxRed, jpRed, err := eliminateAux(res.R, res.Jx, res.Ja, res.Jp, na)
	if err != nil {
		return nil, err
	}

	rank, err := vecmat.Rank(jxRed, -1)
	if err != nil {
		return nil, err
	}
	if rank < len(rRed) {
		return nil, perr.New(perr.NoDirection, "", "residual: constraint Jacobian is rank deficient (%d < %d)", rank, len(rRed))
	}

	svdRes, err := vecmat.SVD(jxRed)(-1)
	if err != nil {
		return nil, err
	}
	rWhite := vecmat.MatTVec(svdRes.U, rRed)
	jpWhite := vecmat.MatMat(svdRes.U.Trans(), jpRed)
	for i := 0; i < jpWhite.M; i++ {
		inv := 1.0 / svdRes.S[i]
		for j := 0; j < jpWhite.N; j++ {
			jpWhite.Set(i, j, -inv*jpWhite.At(i, j))
		}
	}

	return &Result{R: rWhite, Jp: jpWhite, Delta: delta, ResNorm: vecmat.Norm2(rRed)}, nil
}

func trueMask(n int) []bool {
	m := make([]bool, n)
	for i := range m {
		m[i] = true
	}
	return m
}

// eliminateAux performs Gauss-pivot elimination of the na auxiliary
// columns from [r | Jx | Jp], using the largest-magnitude entry of each
// Ja column (among rows not yet used as a pivot) as the pivot row.
// Returns the remaining (nr-na) rows.
func eliminateAux(r vecmat.Vector, jx, ja, jp *vecmat.Matrix, na int) (vecmat.Vector, *vecmat.Matrix, *vecmat.Matrix, error) {
	nr := len(r)
	rr := r.Clone()
	jxr := jx.Clone()
	jpr := jp.Clone()
	used := make([]bool, nr)

	for j := 0; j < na; j++ {
		pivot := -1
		best := 0.0
		for i := 0; i < nr; i++ {
			if used[i] {
				continue
			}
			v := math.Abs(ja.At(i, j))
			if v > best {
				best = v
				pivot = i
			}
		}
		if pivot < 0 || best == 0 {
			return nil, nil, nil, perr.New(perr.ObjectiveFailed, "", "residual: zero pivot eliminating auxiliary %d", j)
		}
		used[pivot] = true
		pv := ja.At(pivot, j)
		for i := 0; i < nr; i++ {
			if used[i] {
				continue
			}
			factor := ja.At(i, j) / pv
			if factor == 0 {
				continue
			}
			rr[i] -= factor * rr[pivot]
			for k := 0; k < jxr.N; k++ {
				jxr.Set(i, k, jxr.At(i, k)-factor*jxr.At(pivot, k))
			}
			for k := 0; k < jpr.N; k++ {
				jpr.Set(i, k, jpr.At(i, k)-factor*jpr.At(pivot, k))
			}
			for k := 0; k < na; k++ {
				ja.Set(i, k, ja.At(i, k)-factor*ja.At(pivot, k))
			}
		}
	}

	remaining := nr - na
	outR := vecmat.NewVector(remaining)
	outJx := vecmat.NewMatrix(remaining, jxr.N)
	outJp := vecmat.NewMatrix(remaining, jpr.N)
	row := 0
	for i := 0; i < nr; i++ {
		if used[i] {
			continue
		}
		outR[row] = rr[i]
		for k := 0; k < jxr.N; k++ {
			outJx.Set(row, k, jxr.At(i, k))
		}
		for k := 0; k < jpr.N; k++ {
			outJp.Set(row, k, jpr.At(i, k))
		}
		row++
	}
	return outR, outJx, outJp, nil
}

// ParamScale maintains each parameter's dynamic/static scale, re-chosen on
// every extraction step: unlike the box bounds seen by the optimizer
// (which are themselves rescaled every call), the bounds this rule tests
// against are the permanent, un-scaled ones fixed when the parameter set
// was read in.
type ParamScale struct {
	Sigma        vecmat.Vector // current scale factor per parameter
	Lower, Upper vecmat.Vector // permanent UN-scaled bounds
}

// NewParamScale records the permanent unscaled bounds and performs the
// initial scale pass on pval/plow/pup in place, matching new_pvar's
// seed-then-set_p_scale sequence (pval/plow/pup enter as unscaled values
// and leave scaled).
func NewParamScale(pval, plow, pup vecmat.Vector) *ParamScale {
	n := len(pval)
	sigma := vecmat.NewVector(n)
	for i := range sigma {
		sigma[i] = 1
	}
	ps := &ParamScale{Sigma: sigma, Lower: plow.Clone(), Upper: pup.Clone()}
	ps.Update(pval, plow, pup)
	return ps
}

// Update rescales p/plow/pup in place to the newly chosen sigma and
// returns the ratio new/old per parameter so the caller can rescale a
// stacked Jp's columns the same way, matching set_p_scale's jacp pass. p
// is the currently-scaled parameter vector; plow/pup are overwritten with
// the new scaled bounds (derived from the permanent unscaled Lower/Upper,
// not from their own previous contents).
func (ps *ParamScale) Update(p, plow, pup vecmat.Vector) vecmat.Vector {
	ratio := vecmat.NewVector(len(p))
	for i := range p {
		old := ps.Sigma[i]
		phys := p[i] * old // un-scale back to the physical value

		l, u := ps.Lower[i], ps.Upper[i]
		var sn float64
		if l == 0 || u == 0 || !sameSign(l, u) {
			sn = math.Abs(u - l) // static scaling
		} else {
			sn = clamp(phys, l, u) // dynamic scaling
		}
		if sn == 0 {
			sn = 1
		}

		ps.Sigma[i] = sn
		p[i] = phys / sn
		plow[i] = l / sn
		pup[i] = u / sn
		ratio[i] = sn / old
	}
	return ratio
}

func sameSign(a, b float64) bool { return (a > 0) == (b > 0) }

func clamp(v, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
