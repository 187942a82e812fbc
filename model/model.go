// Package model defines the uniform contract by which the ParXCL core
// requests residuals and partial Jacobians from a device model, and the
// two implementations that may be plugged behind it: a compiled Go
// closure, and an interpreter for the bytecode format produced by the
// (out of scope) model compiler.
package model

import (
	"math"

	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

// Request bundles everything the core writes before asking an Evaluator
// to fill some subset of {r, df/dx, df/da, df/dp}.
type Request struct {
	X, A, P, C, F vecmat.Vector // value vectors

	WantR  bool // fill R
	WantJX bool // fill Jx, honoring XMask, and Ja (full n_r x n_a)
	WantJP bool // fill Jp, honoring PMask

	XMask []bool // per-column "want this df/dx column" mask, length n_x
	PMask []bool // per-column "want this df/dp column" mask, length n_p
}

// Result holds the evaluator's filled outputs. Matrices are always
// allocated n_r x n_x / n_r x n_a / n_r x n_p by the caller; the
// evaluator only needs to write the requested columns/rows.
type Result struct {
	R  vecmat.Vector
	Jx *vecmat.Matrix // n_r x n_x, valid columns per XMask
	Ja *vecmat.Matrix // n_r x n_a, always full when WantJX
	Jp *vecmat.Matrix // n_r x n_p, valid columns per PMask
}

// Dims describes the fixed shape of a model's residual system.
type Dims struct {
	NR, NX, NA, NP, NC, NF int
}

// Evaluator is the polymorphic contract implemented by a compiled model
// and by the bytecode interpreter.
type Evaluator interface {
	Dims() Dims

	// Evaluate fills req's requested outputs into res. It returns false
	// on any numerical exception the model itself detected (division by
	// zero, overflow, invalid operation) distinct from the FP-flag check
	// the caller performs around the call (see Call, below).
	Evaluate(req *Request, res *Result) bool

	// TransposeX / TransposeP map a possibly coarser caller-facing
	// variable or parameter vector into the model's native coordinates;
	// InverseTransposeX / InverseTransposeP map results back. A nil
	// transpose is the identity.
	TransposeX(x vecmat.Vector) vecmat.Vector
	TransposeP(p vecmat.Vector) vecmat.Vector
	InverseTransposeX(x vecmat.Vector) vecmat.Vector
	InverseTransposeP(p vecmat.Vector) vecmat.Vector
}

// FPFlags mirrors the three IEEE exception flags traditionally checked
// around every evaluator call.
type FPFlags struct {
	DivByZero bool
	Overflow  bool
	Invalid   bool
}

func (f FPFlags) any() bool { return f.DivByZero || f.Overflow || f.Invalid }

// checkResult inspects res for non-finite values produced by the call and
// reports the flags that would have been raised by a save/restore of the
// FP environment around the evaluator call.
func checkResult(res *Result) FPFlags {
	var f FPFlags
	scan := func(v float64) {
		switch {
		case math.IsInf(v, 0):
			f.Overflow = true
		case math.IsNaN(v):
			f.Invalid = true
		}
	}
	for _, v := range res.R {
		scan(v)
	}
	scanMat := func(m *vecmat.Matrix) {
		if m == nil {
			return
		}
		for _, v := range m.Data {
			scan(v)
		}
	}
	scanMat(res.Jx)
	scanMat(res.Ja)
	scanMat(res.Jp)
	return f
}

// Call wraps Evaluator.Evaluate with a floating-point-flag guard: it
// snapshots the (conceptual) FP environment, invokes the evaluator,
// inspects the result for flags, and treats raised flags as failure even
// when the evaluator itself reported success. It also requires that
// every requested output has a buffer in res: a missing one is a failure. Go
// has no portable hardware FP-flag register inspection comparable to C's
// fenv.h, so the flags are reconstructed from the result's finiteness.
func Call(e Evaluator, req *Request, res *Result) (ok bool, flags FPFlags) {
	success := e.Evaluate(req, res)
	flags = checkResult(res)
	if !success {
		return false, flags
	}
	if flags.any() {
		return false, flags
	}
	if req.WantR && res.R == nil {
		return false, flags
	}
	if req.WantJX && res.Jx == nil {
		return false, flags
	}
	if req.WantJP && res.Jp == nil {
		return false, flags
	}
	return true, flags
}
