// Package linesearch provides the two scalar minimizers every outer loop
// in ParXCL line-searches with: a golden-section bracket shrink and
// Brent's parabolic-interpolation method with a golden-section fallback.
// Both assume the supplied objective returns +Inf on evaluation failure so
// bracketing stays monotone.
package linesearch

import (
	"math"
)

const (
	goldenR = 0.61803399
	goldenC = 1.0 - goldenR
	cgold   = 0.3819660
)

// Func is a scalar-to-scalar objective, expected to return math.Inf(1) on
// evaluation failure so bracketing remains monotone, signalling failure
// through the callback's return value rather than a second error channel.
type Func func(x float64) float64

// Result carries the outcome of a bounded 1-D minimization.
type Result struct {
	XMin  float64
	FMin  float64
	Iters int
	OK    bool // false iff the iteration budget was exhausted before tolerance
}

// Golden minimizes f on the bracket [ax, bx, cx] (f(bx) assumed <= f at the
// endpoints) using golden-section search. fbx is f(bx), already known to
// the caller in every use site in this module.
func Golden(ax, bx, cx float64, f Func, fbx float64, rtol float64, itmax int) Result {
	x0, x3 := ax, cx
	var x1, x2, f1, f2 float64

	if math.Abs(cx-bx) > math.Abs(bx-ax) {
		x1, f1 = bx, fbx
		x2 = bx + goldenC*(cx-bx)
		f2 = f(x2)
	} else {
		x2, f2 = bx, fbx
		x1 = bx - goldenC*(bx-ax)
		f1 = f(x1)
	}

	iter := 0
	for math.Abs(x3-x0) > rtol*(math.Abs(x1)+math.Abs(x2)) && iter < itmax {
		if f2 < f1 {
			x0 = x1
			x1 = x2
			x2 = goldenR*x1 + goldenC*x3
			f1 = f2
			f2 = f(x2)
		} else {
			x3 = x2
			x2 = x1
			x1 = goldenR*x2 + goldenC*x0
			f2 = f1
			f1 = f(x1)
		}
		iter++
	}

	var r Result
	r.Iters = iter
	if f1 < f2 {
		r.XMin, r.FMin = x1, f1
	} else {
		r.XMin, r.FMin = x2, f2
	}
	r.OK = math.Abs(x3-x0) <= rtol*(math.Abs(x1)+math.Abs(x2))
	return r
}

// Brent minimizes f on the bracket [ax, bx, cx] with parabolic
// interpolation safeguarded by golden-section steps. fbx is f(bx). rtol
// and atol define the stopping tolerance tol1 = rtol*|x| + atol,
// tol2 = 2*tol1; termination when |x - xm| <= tol2 - 0.5*(b-a).
func Brent(ax, bx, cx float64, f Func, fbx float64, rtol, atol float64, itmax int) Result {
	a, b := ax, cx
	if a > b {
		a, b = b, a
	}
	var d, e float64
	x, w, v := bx, bx, bx
	fx, fw, fv := fbx, fbx, fbx

	iter := 1
	for ; iter <= itmax; iter++ {
		xm := 0.5 * (a + b)
		tol1 := rtol*math.Abs(x) + atol
		tol2 := 2.0 * tol1
		if math.Abs(x-xm) <= tol2-0.5*(b-a) {
			return Result{XMin: x, FMin: fx, Iters: iter, OK: true}
		}

		var p, q, r float64
		useParabola := false
		if math.Abs(e) > tol1 {
			r = (x - w) * (fx - fv)
			q = (x - v) * (fx - fw)
			p = (x-v)*q - (x-w)*r
			q = 2.0 * (q - r)
			if q > 0.0 {
				p = -p
			}
			q = math.Abs(q)
			etemp := e
			e = d
			if math.Abs(p) < math.Abs(0.5*q*etemp) && p > q*(a-x) && p < q*(b-x) {
				useParabola = true
			}
		}

		var u float64
		if useParabola {
			d = p / q
			u = x + d
			if (u-a) < tol2 || (b-u) < tol2 {
				d = math.Copysign(tol1, xm-x)
			}
		} else {
			if x >= xm {
				e = a - x
			} else {
				e = b - x
			}
			d = cgold * e
		}

		if math.Abs(d) >= tol1 {
			u = x + d
		} else {
			u = x + math.Copysign(tol1, d)
		}
		fu := f(u)

		if fu <= fx {
			if u >= x {
				a = x
			} else {
				b = x
			}
			v, w, x = w, x, u
			fv, fw, fx = fw, fx, fu
		} else {
			if u < x {
				a = u
			} else {
				b = u
			}
			if fu <= fw || w == x {
				v, w = w, u
				fv, fw = fw, fu
			} else if fu <= fv || v == x || v == w {
				v = u
				fv = fu
			}
		}
	}

	return Result{XMin: x, FMin: fx, Iters: iter, OK: false}
}
