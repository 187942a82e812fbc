// Package newton implements the modified Newton-Raphson equation solver
// used by the simulation orchestrator: a Newton step from a
// full-rank Jacobian, a central-difference fallback when the model can't
// supply one, and a Brent local line search when a full step fails to
// reduce the residual norm.
package newton

import (
	"math"

	"github.com/mgmiddelhoek/ParXCL/linesearch"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

const machineEps = 2.220446049250313e-16
const itFac = 500 // default maxiter = itFac * dim

// System is the equation set newton.Solve drives to a root. Constraints
// asks for the residual and/or Jacobian at x; it returns which outputs
// it actually filled (a model may be unable to supply an analytic
// Jacobian) and whether the evaluation itself succeeded.
type System interface {
	Constraints(x vecmat.Vector, wantF, wantJ bool) (f vecmat.Vector, jac *vecmat.Matrix, gotF, gotJ, ok bool)
}

// Status is a tri-state return code: 0 exact, >0 maybe valid (x converged
// but |f| didn't, or the line search stalled), <0 failed.
type Status int

const (
	Converged        Status = 0
	Partial          Status = 1
	EvalError        Status = -1
	MaxIterExceeded  Status = -2
	SingularJacobian Status = -3
)

// Result reports the final point and bookkeeping counters for the run.
type Result struct {
	X                              vecmat.Vector
	Status                         Status
	Iterations, FullSteps, PartSteps int
	FuncEvals, JacEvals, LineSearchEvals int
	// FNorm/AbsStep are only meaningful when Status >= 0: the residual
	// norm and the per-component step size |dx| at the returned point.
	// The caller's relTol/absTol are not modified.
	FNorm   float64
	AbsStep vecmat.Vector
}

// Solve drives sys.Constraints(x,...)=0 from x0. maxIter
// of 0 uses the default budget itFac*dim.
func Solve(sys System, x0, relTol, absTol vecmat.Vector, maxIter int) (*Result, error) {
	dim := len(x0)
	x := x0.Clone()
	if maxIter == 0 {
		maxIter = itFac * dim
	}

	ftol := 100.0 * math.Sqrt(float64(dim)*machineEps)
	abseps := 100.0 * machineEps
	releps := math.Sqrt(machineEps)
	maxmin := 20

	var funcEval, jacEval, mineval, iter, fullstep, partstep int

	var f vecmat.Vector
	var jac *vecmat.Matrix
	var dx vecmat.Vector
	fnorm := 1.0

	evalAt := func(xv vecmat.Vector, a float64, dxv vecmat.Vector) (float64, vecmat.Vector, bool) {
		xn := vecmat.NewVector(dim)
		for i := range xn {
			xn[i] = xv[i] + a*dxv[i]
		}
		fn, _, gotF, _, ok := sys.Constraints(xn, true, false)
		funcEval++
		if !ok || !gotF {
			return math.Inf(1), nil, false
		}
		return vecmat.Norm2(fn), fn, true
	}

	calcJac := func() (*vecmat.Matrix, bool) {
		j := vecmat.NewMatrix(dim, dim)
		xn := x.Clone()
		for c := 0; c < dim; c++ {
			delta := 0.1 * (relTol[c]*math.Abs(x[c]) + absTol[c])

			xn[c] = x[c] + delta
			f1, _, gotF1, _, ok1 := sys.Constraints(xn, true, false)
			funcEval++
			if !ok1 || !gotF1 {
				return nil, false
			}

			xn[c] = x[c] - delta
			f2, _, gotF2, _, ok2 := sys.Constraints(xn, true, false)
			funcEval++
			if !ok2 || !gotF2 {
				return nil, false
			}

			for r := 0; r < dim; r++ {
				j.Set(r, c, (f1[r]-f2[r])/(2*delta))
			}
			xn[c] = x[c]
		}
		return j, true
	}

	// optstep finds the best step size in [0,1] along dx that reduces
	// |f|, bracketing then refining with Brent.
	optstep := func(fcurr, ffull float64) float64 {
		xl, xc, xr := 0.0, 1.0, 1.0
		fl, fr, fc := fcurr, ffull, ffull
		xmin := xl
		found := false

		for xr >= abseps && fc > fl {
			xr = xc
			fr = fc
			xc *= 1.0e-1
			var ok bool
			fc, _, ok = evalAt(x, xc, dx)
			if !ok {
				fc = math.Inf(1)
			}
		}

		if math.IsInf(fr, 1) && fc < fl {
			return xc
		}

		if xr >= abseps {
			fmin := fc
			xmin = xc
			itmax := maxmin
			result := linesearch.Brent(xl, xc, xr, func(a float64) float64 {
				v, _, ok := evalAt(x, a, dx)
				if !ok {
					return math.Inf(1)
				}
				return v
			}, fmin, releps, abseps, itmax)
			mineval += result.Iters
			fmin = result.FMin
			xmin = result.XMin
			found = true
			if fmin > fl {
				xmin = xc
			}
		}

		if !found {
			xmin = 0
		}
		return xmin
	}

	wantF, wantJ := true, true

	for {
		iter++
		if iter > maxIter {
			return &Result{X: x, Status: MaxIterExceeded, Iterations: iter, FullSteps: fullstep, PartSteps: partstep,
				FuncEvals: funcEval, JacEvals: jacEval, LineSearchEvals: mineval}, nil
		}

		fo, jaco, gotF, gotJ, ok := sys.Constraints(x, wantF, wantJ)
		if !ok || gotF != wantF {
			return &Result{X: x, Status: EvalError, Iterations: iter, FullSteps: fullstep, PartSteps: partstep,
				FuncEvals: funcEval, JacEvals: jacEval, LineSearchEvals: mineval}, nil
		}
		funcEval++

		if gotJ != wantJ {
			j, ok := calcJac()
			if !ok {
				return &Result{X: x, Status: EvalError, Iterations: iter, FullSteps: fullstep, PartSteps: partstep,
					FuncEvals: funcEval, JacEvals: jacEval, LineSearchEvals: mineval}, nil
			}
			jac = j
		} else {
			jacEval++
			jac = jaco
		}

		if wantF {
			f = fo
			fnorm = vecmat.Norm2(f)
		}

		b := vecmat.NewVector(dim)
		for i := range b {
			b[i] = -f[i]
		}
		dxv, err := vecmat.SolveGeneral(jac, b)
		if err != nil {
			return &Result{X: x, Status: SingularJacobian, Iterations: iter, FullSteps: fullstep, PartSteps: partstep,
				FuncEvals: funcEval, JacEvals: jacEval, LineSearchEvals: mineval}, nil
		}
		dx = dxv

		xconv := true
		for i := 0; i < dim; i++ {
			xtol := relTol[i]*math.Abs(x[i]) + math.Abs(absTol[i])
			if math.Abs(dx[i]) >= xtol {
				xconv = false
			}
		}
		fconv := fnorm < ftol

		if xconv && fconv {
			out := absTol.Clone()
			for i := range out {
				out[i] = math.Abs(dx[i])
			}
			return &Result{X: x, Status: Converged, Iterations: iter, FullSteps: fullstep, PartSteps: partstep,
				FuncEvals: funcEval, JacEvals: jacEval, LineSearchEvals: mineval, FNorm: fnorm, AbsStep: out}, nil
		}

		fnnorm, fn, okFull := evalAt(x, 1.0, dx)
		if !okFull {
			fnnorm = math.Inf(1)
		}

		xn := vecmat.NewVector(dim)

		if fnnorm >= fnorm {
			partstep++
			alpha := optstep(fnorm, fnnorm)
			if alpha == 0 {
				status := EvalError
				var absStep vecmat.Vector
				if xconv {
					status = Partial
					absStep = vecmat.NewVector(dim)
					for i := range absStep {
						absStep[i] = math.Abs(dx[i])
					}
				}
				return &Result{X: x, Status: status, Iterations: iter, FullSteps: fullstep, PartSteps: partstep,
					FuncEvals: funcEval, JacEvals: jacEval, LineSearchEvals: mineval, FNorm: fnorm, AbsStep: absStep}, nil
			}
			for i := range xn {
				xn[i] = x[i] + alpha*dx[i]
			}
			wantF = true
		} else {
			fullstep++
			wantF = false
			f = fn
			fnorm = fnnorm
			for i := range xn {
				xn[i] = x[i] + dx[i]
			}
		}

		x = xn
	}
}
