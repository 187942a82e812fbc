package vecmat

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"gonum.org/v1/gonum/mat"
)

// machineEps is used whenever the caller passes tol < 0 ("machine"
// tolerance).
const machineEps = 2.220446049250313e-16

// toDense converts A (column-major) into a gonum row-major Dense. Kept as
// a small copy rather than a zero-copy reinterpretation: gonum's Dense
// does not expose a column-major constructor, and every caller in this
// module works on modest per-point/per-iteration matrix sizes.
func toDense(a *Matrix) *mat.Dense {
	d := mat.NewDense(a.M, a.N, nil)
	for j := 0; j < a.N; j++ {
		for i := 0; i < a.M; i++ {
			d.Set(i, j, a.At(i, j))
		}
	}
	return d
}

func fromDense(d mat.Matrix) *Matrix {
	r, c := d.Dims()
	m := NewMatrix(r, c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			m.Set(i, j, d.At(i, j))
		}
	}
	return m
}

// SVDResult holds the thin singular value decomposition A = U*diag(S)*Vt
// together with the rank determined by tol.
type SVDResult struct {
	U    *Matrix // m x min(m,n)
	S    Vector  // length min(m,n), descending
	Vt   *Matrix // min(m,n) x n
	Rank int
}

// SVD computes the thin SVD of A and the rank by the tolerance rule: rank
// is the count of singular values s_i with |s_i| >= tau*|s_0|, where
// tau = tol if tol >= 0, else machine epsilon.
func SVD(a *Matrix) func(tol float64) (*SVDResult, error) {
	return func(tol float64) (*SVDResult, error) {
		var svd mat.SVD
		ok := svd.Factorize(toDense(a), mat.SVDThin)
		if !ok {
			return nil, chk.Err("vecmat: SVD factorization failed on %dx%d matrix", a.M, a.N)
		}
		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		s := svd.Values(nil)

		tau := tol
		if tau < 0 {
			tau = machineEps
		}
		rank := 0
		if len(s) > 0 {
			thresh := tau * math.Abs(s[0])
			for _, sv := range s {
				if math.Abs(sv) >= thresh {
					rank++
				}
			}
		}

		return &SVDResult{
			U:    fromDense(&u),
			S:    Vector(s),
			Vt:   fromDense(v.T()),
			Rank: rank,
		}, nil
	}
}

// Rank is a convenience wrapper: Rank(a, tol) computes the SVD-based rank
// of a without retaining U/Vt.
func Rank(a *Matrix, tol float64) (int, error) {
	res, err := SVD(a)(tol)
	if err != nil {
		return 0, err
	}
	return res.Rank, nil
}
