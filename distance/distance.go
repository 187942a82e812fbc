// Package distance implements the per-point orthogonal distance solver:
// for a fixed measurement and fixed parameter vector p, it
// finds (δ, a) minimizing ½‖δ‖² subject to f(x_meas+δ, a; p) = 0 by a
// sequential-linearly-constrained Lagrange-multiplier iteration with an
// augmented Powell penalty line search.
package distance

import (
	"math"

	"github.com/mgmiddelhoek/ParXCL/linesearch"
	"github.com/mgmiddelhoek/ParXCL/model"
	"github.com/mgmiddelhoek/ParXCL/perr"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

// Config holds the tunables of the distance solve. DiscontinuityEpsilon
// sets the bracket-step threshold below which a step is treated as
// "discontinuity crossed" rather than silently accepted, exposed to the
// caller instead of buried as a constant.
type Config struct {
	MaxIter              int
	RTol, ATol           float64 // convergence tolerance on δ
	ATolA                float64 // convergence tolerance on a
	GoldenIters          int     // at most 8 golden-section iterations
	DiscontinuityEpsilon float64
}

// DefaultConfig returns the solver's standard tuning.
func DefaultConfig() Config {
	return Config{
		MaxIter:              20,
		RTol:                 1e-6,
		ATol:                 1e-9,
		ATolA:                1e-9,
		GoldenIters:          8,
		DiscontinuityEpsilon: 1e-10,
	}
}

// Result is the outcome of one distance solve. Normal/Tangential are the
// last iteration's decomposition of Δδ, kept for callers that want to
// trace convergence behaviour.
type Result struct {
	Delta      vecmat.Vector
	A          vecmat.Vector
	Normal     vecmat.Vector
	Tangential vecmat.Vector
	Ok         bool
}

// Solve projects xMeas orthogonally (in the scaled coordinates the
// caller already applied) onto the manifold f(x,a;p)=0, starting from
// δ=0, a=aInit, λ=0. nc is the number of constraint equations (n_r in
// the evaluator's own terms).
func Solve(cfg Config, ev model.Evaluator, xMeas, aInit, p, c, f vecmat.Vector) (*Result, error) {
	dims := ev.Dims()
	nx, na, nc := dims.NX, dims.NA, dims.NR

	delta := vecmat.NewVector(nx)
	a := aInit.Clone()
	lambda := vecmat.NewVector(nc)
	mu := vecmat.NewVector(nc)

	maxiter := cfg.MaxIter
	oneShot := maxiter == 0
	if oneShot {
		maxiter = 1
	}

	evalConstraint := func(delta, a vecmat.Vector, wantJ bool) (vecmat.Vector, *vecmat.Matrix, *vecmat.Matrix, bool) {
		x := vecmat.NewVector(nx)
		for i := range x {
			x[i] = xMeas[i] + delta[i]
		}
		req := &model.Request{X: x, A: a, P: p, C: c, F: f, WantR: true, WantJX: wantJ}
		if wantJ {
			req.XMask = allTrue(nx)
		}
		res := &model.Result{R: vecmat.NewVector(nc)}
		if wantJ {
			res.Jx = vecmat.NewMatrix(nc, nx)
			res.Ja = vecmat.NewMatrix(nc, na)
		}
		ok, _ := model.Call(ev, req, res)
		return res.R, res.Jx, res.Ja, ok
	}

	penalty := func(delta, a vecmat.Vector) (float64, bool) {
		cv, _, _, ok := evalConstraint(delta, a, false)
		if !ok {
			return math.Inf(1), false
		}
		p := 0.5 * vecmat.Dot(delta, delta)
		for i, ci := range cv {
			p += mu[i] * math.Abs(ci)
		}
		return p, true
	}

	var lastNormal, lastTangential vecmat.Vector
	for it := 0; it < maxiter; it++ {
		cv, jx, ja, ok := evalConstraint(delta, a, true)
		if !ok {
			return nil, perr.New(perr.ModelReturnedFalse, "", "distance: constraint evaluation failed")
		}

		h := buildH(jx, ja, nc, na)
		rhs := buildRHS(jx, cv, delta, nc, na)

		y, err := vecmat.SolveSymMulti(h, rhs)
		if err != nil {
			return nil, perr.New(perr.NoDirection, "", "distance: design matrix singular: %v", err)
		}

		y0 := y.Col(0)
		y1 := y.Col(1)

		deltaLambda := vecmat.NewVector(nc)
		for i := 0; i < nc; i++ {
			deltaLambda[i] = y0[i] - lambda[i]
		}

		jxT := jx.Trans()
		deltaDeltaFull := vecmat.MatVec(jxT, y0[:nc])
		for i := 0; i < nx; i++ {
			deltaDeltaFull[i] -= delta[i]
		}
		deltaNormal := vecmat.MatVec(jxT, y1[:nc])
		deltaTangential := vecmat.NewVector(nx)
		for i := 0; i < nx; i++ {
			deltaTangential[i] = deltaDeltaFull[i] - deltaNormal[i]
		}
		lastNormal, lastTangential = deltaNormal, deltaTangential
		deltaA := y0[nc:].Clone()

		if oneShot {
			for i := 0; i < nx; i++ {
				delta[i] += deltaDeltaFull[i]
			}
			for i := 0; i < na; i++ {
				a[i] += deltaA[i]
			}
			return &Result{Delta: delta, A: a, Normal: deltaNormal, Tangential: deltaTangential, Ok: true}, nil
		}

		converged := true
		for i := 0; i < nx; i++ {
			if math.Abs(deltaDeltaFull[i]) >= cfg.RTol*math.Abs(delta[i])+cfg.ATol {
				converged = false
				break
			}
		}
		if converged {
			for i := 0; i < na; i++ {
				if math.Abs(deltaA[i]) >= cfg.RTol*math.Abs(a[i])+cfg.ATolA {
					converged = false
					break
				}
			}
		}
		if converged {
			return &Result{Delta: delta, A: a, Normal: deltaNormal, Tangential: deltaTangential, Ok: true}, nil
		}

		for i := 0; i < nc; i++ {
			lambda[i] += deltaLambda[i]
		}

		for i := 0; i < nc; i++ {
			if it == 0 {
				mu[i] = math.Abs(lambda[i])
			} else {
				mu[i] = math.Max(math.Abs(lambda[i]), 0.5*(math.Abs(mu[i])+math.Abs(lambda[i])))
			}
		}

		alpha, ok := stepSize(cfg, penalty, delta, a, deltaDeltaFull, deltaA)
		if !ok {
			return nil, perr.New(perr.NoLowerPoint, "", "distance: no step size found")
		}

		for i := 0; i < nx; i++ {
			delta[i] += alpha * deltaDeltaFull[i]
		}
		for i := 0; i < na; i++ {
			a[i] += alpha * deltaA[i]
		}
	}

	return &Result{Delta: delta, A: a, Normal: lastNormal, Tangential: lastTangential, Ok: false}, nil
}

func allTrue(n int) []bool {
	m := make([]bool, n)
	for i := range m {
		m[i] = true
	}
	return m
}

// buildH assembles the (nc+na)x(nc+na) symmetric block: top-left Jx*Jxᵀ,
// off-diagonal Ja, bottom-right zero.
func buildH(jx, ja *vecmat.Matrix, nc, na int) *vecmat.Matrix {
	h := vecmat.NewMatrix(nc+na, nc+na)
	jjt := vecmat.MatMat(jx, jx.Trans())
	for i := 0; i < nc; i++ {
		for j := 0; j < nc; j++ {
			h.Set(i, j, jjt.At(i, j))
		}
	}
	for i := 0; i < nc; i++ {
		for j := 0; j < na; j++ {
			h.Set(i, nc+j, ja.At(i, j))
			h.Set(nc+j, i, ja.At(i, j))
		}
	}
	return h
}

// buildRHS assembles the three right-hand-side columns [Jx·δ-c; -c; Jx·δ]
// over the top nc rows, zero over the bottom na rows.
func buildRHS(jx *vecmat.Matrix, c, delta vecmat.Vector, nc, na int) *vecmat.Matrix {
	jxd := vecmat.MatVec(jx, delta)
	rhs := vecmat.NewMatrix(nc+na, 3)
	for i := 0; i < nc; i++ {
		rhs.Set(i, 0, jxd[i]-c[i])
		rhs.Set(i, 1, -c[i])
		rhs.Set(i, 2, jxd[i])
	}
	return rhs
}

// stepSize minimizes the Powell penalty along (deltaDelta, deltaA) on
// α∈(0,1].
func stepSize(cfg Config, penalty func(delta, a vecmat.Vector) (float64, bool), delta, a, deltaDelta, deltaA vecmat.Vector) (float64, bool) {
	trial := func(alpha float64) (float64, bool) {
		nd := addScaled(delta, deltaDelta, alpha)
		na := addScaled(a, deltaA, alpha)
		return penalty(nd, na)
	}

	p0, ok := trial(0)
	if !ok {
		return 0, false
	}
	p1, ok := trial(1)
	if ok && p1-p0 < cfg.RTol*p0+math.Sqrt(2.22e-16) {
		return 1, true
	}

	alphaR := 1.0
	alphaM := 0.1 * alphaR
	normRatio := math.Sqrt(2.22e-16) * vecmat.Norm2(delta) / math.Max(vecmat.Norm2(deltaDelta), 1e-300)
	for {
		pm, ok := trial(alphaM)
		if !ok || pm <= p0 {
			break
		}
		if alphaM < normRatio {
			return 0, false
		}
		alphaR = alphaM
		alphaM *= 0.1
	}

	fm, ok := trial(alphaM)
	if !ok {
		return 0, false
	}
	r := linesearch.Golden(0, alphaM, alphaR, func(x float64) float64 {
		v, ok := trial(x)
		if !ok {
			return math.Inf(1)
		}
		return v
	}, fm, 1e-4, cfg.GoldenIters)

	if r.XMin <= cfg.DiscontinuityEpsilon {
		return 0, false
	}
	return r.XMin, true
}

func addScaled(v, d vecmat.Vector, alpha float64) vecmat.Vector {
	out := vecmat.NewVector(len(v))
	for i := range v {
		out[i] = v[i] + alpha*d[i]
	}
	return out
}
