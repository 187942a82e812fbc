package vecmat

import (
	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"
)

// SolveGeneral solves A*x = b for a square, possibly non-symmetric A via
// LU factorization. Returns a failure error if A is (numerically)
// singular; A and b are left untouched (the LU factors are kept on a
// private copy, since Go callers rarely want an in-place aliasing
// surprise).
func SolveGeneral(a *Matrix, b Vector) (Vector, error) {
	if a.M != a.N {
		chk.Panic("vecmat: SolveGeneral requires a square matrix, got %dx%d", a.M, a.N)
	}
	if a.M != len(b) {
		chk.Panic("vecmat: SolveGeneral shape mismatch: A is %dx%d, b has length %d", a.M, a.N, len(b))
	}
	var lu mat.LU
	lu.Factorize(toDense(a))
	if lu.Cond() > 1/machineEps {
		return nil, chk.Err("vecmat: SolveGeneral: singular or ill-conditioned matrix")
	}
	x := mat.NewVecDense(len(b), nil)
	bv := mat.NewVecDense(len(b), []float64(b))
	err := lu.SolveVecTo(x, false, bv)
	if err != nil {
		return nil, chk.Err("vecmat: SolveGeneral failed: %v", err)
	}
	return Vector(x.RawVector().Data), nil
}

// SolveSym solves A*x = b for a symmetric (possibly indefinite) A, using
// only the upper triangle. When A
// is positive definite (the common case in this module: the I - U*Uᵀ
// blocks, and the distance solver's block when the model has no
// auxiliaries, which is then the Gram matrix J*Jᵀ), a Cholesky
// factorization is used directly; otherwise a symmetric eigendecomposition
// provides a pseudo-inverse-based solve.
func SolveSym(a *Matrix, b Vector) (Vector, error) {
	if a.M != a.N {
		chk.Panic("vecmat: SolveSym requires a square matrix, got %dx%d", a.M, a.N)
	}
	n := a.M
	sym := mat.NewSymDense(n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			sym.SetSym(i, j, a.At(i, j))
		}
	}
	bv := mat.NewVecDense(len(b), []float64(b))

	var chol mat.Cholesky
	if chol.Factorize(sym) {
		x := mat.NewVecDense(n, nil)
		if err := chol.SolveVecTo(x, bv); err == nil {
			return Vector(x.RawVector().Data), nil
		}
	}

	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return nil, chk.Err("vecmat: SolveSym: factorization failed on %dx%d symmetric matrix", n, n)
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	x := make([]float64, n)
	tol := machineEps * float64(n)
	for k := 0; k < n; k++ {
		lam := values[k]
		if lam < 0 {
			lam = -lam
		}
		if lam < tol {
			continue // null-space direction: pseudo-inverse drops it
		}
		var vk mat.VecDense
		vk.ColViewOf(&vecs, k)
		coeff := mat.Dot(&vk, bv) / values[k]
		for i := 0; i < n; i++ {
			x[i] += coeff * vk.AtVec(i)
		}
	}
	return Vector(x), nil
}

// SolveSPD solves A*x = b for a symmetric positive-definite A via
// Cholesky factorization. Returns an error if A is not SPD to machine
// precision.
func SolveSPD(a *Matrix, b Vector) (Vector, error) {
	if a.M != a.N {
		chk.Panic("vecmat: SolveSPD requires a square matrix, got %dx%d", a.M, a.N)
	}
	n := a.M
	sym := mat.NewSymDense(n, nil)
	for j := 0; j < n; j++ {
		for i := 0; i <= j; i++ {
			sym.SetSym(i, j, a.At(i, j))
		}
	}
	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		return nil, chk.Err("vecmat: SolveSPD: matrix is not positive definite")
	}
	bv := mat.NewVecDense(len(b), []float64(b))
	x := mat.NewVecDense(n, nil)
	if err := chol.SolveVecTo(x, bv); err != nil {
		return nil, chk.Err("vecmat: SolveSPD failed: %v", err)
	}
	return Vector(x.RawVector().Data), nil
}

// SolveSymMulti solves A*X = B for several right-hand-side columns, used
// by the distance solver which needs y for three distinct right-hand
// sides of H. Each column is solved by its own SolveSym call, so A is
// factorized once per column.
func SolveSymMulti(a *Matrix, b *Matrix) (*Matrix, error) {
	x := NewMatrix(b.M, b.N)
	for j := 0; j < b.N; j++ {
		col, err := SolveSym(a, b.Col(j))
		if err != nil {
			return nil, err
		}
		copy(x.Col(j), col)
	}
	return x, nil
}
