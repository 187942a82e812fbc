package vecmat

import (
	"math"

	"github.com/cpmech/gosl/chk"
)

// Dot returns the inner product of a and b (BLAS ddot).
func Dot(a, b Vector) float64 {
	if len(a) != len(b) {
		chk.Panic("vecmat: Dot length mismatch: %d != %d", len(a), len(b))
	}
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Norm2 returns the Euclidean norm of v (BLAS dnrm2).
func Norm2(v Vector) float64 {
	return math.Sqrt(Dot(v, v))
}

// MatVec computes y = A*x (BLAS dgemv, no transpose). A is m x n, x has
// length n, the result has length m.
func MatVec(a *Matrix, x Vector) Vector {
	if a.N != len(x) {
		chk.Panic("vecmat: MatVec shape mismatch: A is %dx%d, x has length %d", a.M, a.N, len(x))
	}
	y := NewVector(a.M)
	for j := 0; j < a.N; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		col := a.Col(j)
		for i := 0; i < a.M; i++ {
			y[i] += col[i] * xj
		}
	}
	return y
}

// MatTVec computes y = Aᵀ*x (BLAS dgemv, transpose). A is m x n, x has
// length m, the result has length n.
func MatTVec(a *Matrix, x Vector) Vector {
	if a.M != len(x) {
		chk.Panic("vecmat: MatTVec shape mismatch: A is %dx%d, x has length %d", a.M, a.N, len(x))
	}
	y := NewVector(a.N)
	for j := 0; j < a.N; j++ {
		y[j] = Dot(a.Col(j), x)
	}
	return y
}

// MatMat computes C = A*B (BLAS dgemm).
func MatMat(a, b *Matrix) *Matrix {
	if a.N != b.M {
		chk.Panic("vecmat: MatMat shape mismatch: %dx%d * %dx%d", a.M, a.N, b.M, b.N)
	}
	c := NewMatrix(a.M, b.N)
	for j := 0; j < b.N; j++ {
		for k := 0; k < a.N; k++ {
			bkj := b.At(k, j)
			if bkj == 0 {
				continue
			}
			acol := a.Col(k)
			ccol := c.Col(j)
			for i := 0; i < a.M; i++ {
				ccol[i] += acol[i] * bkj
			}
		}
	}
	return c
}

// MatTMat computes C = Aᵀ*B.
func MatTMat(a, b *Matrix) *Matrix {
	if a.M != b.M {
		chk.Panic("vecmat: MatTMat shape mismatch: %dx%d' * %dx%d", a.M, a.N, b.M, b.N)
	}
	c := NewMatrix(a.N, b.N)
	for i := 0; i < a.N; i++ {
		acol := a.Col(i)
		for j := 0; j < b.N; j++ {
			c.Set(i, j, Dot(acol, b.Col(j)))
		}
	}
	return c
}
