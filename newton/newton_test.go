package newton

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

// quadraticSystem implements f(x) = x^2 - 4 (root at x=2), with an
// analytic Jacobian always supplied.
type quadraticSystem struct{}

func (quadraticSystem) Constraints(x vecmat.Vector, wantF, wantJ bool) (vecmat.Vector, *vecmat.Matrix, bool, bool, bool) {
	var f vecmat.Vector
	var jac *vecmat.Matrix
	if wantF {
		f = vecmat.Vector{x[0]*x[0] - 4}
	}
	if wantJ {
		jac = vecmat.NewMatrix(1, 1)
		jac.Set(0, 0, 2*x[0])
	}
	return f, jac, wantF, wantJ, true
}

func TestNewtonConverges(tst *testing.T) {
	chk.PrintTitle("NewtonConverges")
	sys := quadraticSystem{}
	x0 := vecmat.Vector{3.0}
	relTol := vecmat.Vector{1e-8}
	absTol := vecmat.Vector{1e-10}
	res, err := Solve(sys, x0, relTol, absTol, 0)
	if err != nil {
		tst.Fatalf("solve failed: %v", err)
	}
	if res.Status != Converged {
		tst.Fatalf("expected convergence, got status %d", res.Status)
	}
	if math.Abs(res.X[0]-2.0) > 1e-6 {
		tst.Errorf("expected root near 2, got %v", res.X[0])
	}
}

// numericJacSystem never supplies a Jacobian, forcing the
// central-difference fallback.
type numericJacSystem struct{}

func (numericJacSystem) Constraints(x vecmat.Vector, wantF, wantJ bool) (vecmat.Vector, *vecmat.Matrix, bool, bool, bool) {
	var f vecmat.Vector
	if wantF {
		f = vecmat.Vector{x[0]*x[0] - 4}
	}
	return f, nil, wantF, false, true
}

func TestNewtonCentralDifferenceFallback(tst *testing.T) {
	chk.PrintTitle("NewtonCentralDifferenceFallback")
	sys := numericJacSystem{}
	x0 := vecmat.Vector{3.0}
	relTol := vecmat.Vector{1e-6}
	absTol := vecmat.Vector{1e-8}
	res, err := Solve(sys, x0, relTol, absTol, 0)
	if err != nil {
		tst.Fatalf("solve failed: %v", err)
	}
	if res.Status != Converged {
		tst.Fatalf("expected convergence, got status %d", res.Status)
	}
	if math.Abs(res.X[0]-2.0) > 1e-4 {
		tst.Errorf("expected root near 2, got %v", res.X[0])
	}
}
