package vecmat

import "github.com/cpmech/gosl/chk"

// Matrix is a dense 2-D array stored contiguously in column-major order,
// with dimensions (M, N) and a leading dimension Ld >= M, the layout
// every BLAS/LAPACK kernel expects. A view is a
// Matrix sharing the same Data slice at a different (M, N, Ld, offset);
// since Data is itself a Go slice, re-basing it aliases the owner's
// backing array without copying.
type Matrix struct {
	Data []float64 // column-major, length >= Ld*N
	M, N int
	Ld   int
}

// NewMatrix allocates an owning, zeroed m x n matrix with Ld = m.
func NewMatrix(m, n int) *Matrix {
	return &Matrix{Data: make([]float64, m*n), M: m, N: n, Ld: m}
}

// At returns A[i,j].
func (a *Matrix) At(i, j int) float64 {
	return a.Data[j*a.Ld+i]
}

// Set assigns A[i,j] = v.
func (a *Matrix) Set(i, j int, v float64) {
	a.Data[j*a.Ld+i] = v
}

// Col returns column j as a view Vector of length M (stride 1, since
// column-major storage makes a column contiguous).
func (a *Matrix) Col(j int) Vector {
	return Vector(a.Data[j*a.Ld : j*a.Ld+a.M])
}

// View returns a Matrix aliasing the (m x n) block of a starting at
// (i0, j0), sharing a's backing storage.
func (a *Matrix) View(i0, j0, m, n int) *Matrix {
	if i0 < 0 || j0 < 0 || i0+m > a.M || j0+n > a.N {
		chk.Panic("vecmat: View out of bounds: (%d,%d,%d,%d) on %dx%d", i0, j0, m, n, a.M, a.N)
	}
	return &Matrix{Data: a.Data[j0*a.Ld+i0:], M: m, N: n, Ld: a.Ld}
}

// Zero fills A in place with zeros.
func (a *Matrix) Zero() {
	for j := 0; j < a.N; j++ {
		col := a.Data[j*a.Ld : j*a.Ld+a.M]
		for i := range col {
			col[i] = 0
		}
	}
}

// CopyTo copies A into dst, which must have matching dimensions.
func (a *Matrix) CopyTo(dst *Matrix) {
	if a.M != dst.M || a.N != dst.N {
		chk.Panic("vecmat: CopyTo dimension mismatch: %dx%d != %dx%d", a.M, a.N, dst.M, dst.N)
	}
	for j := 0; j < a.N; j++ {
		for i := 0; i < a.M; i++ {
			dst.Set(i, j, a.At(i, j))
		}
	}
}

// Clone returns an owning copy of A with Ld = M.
func (a *Matrix) Clone() *Matrix {
	c := NewMatrix(a.M, a.N)
	a.CopyTo(c)
	return c
}

// Trans returns the transpose of A as a new owning matrix.
func (a *Matrix) Trans() *Matrix {
	t := NewMatrix(a.N, a.M)
	for j := 0; j < a.N; j++ {
		for i := 0; i < a.M; i++ {
			t.Set(j, i, a.At(i, j))
		}
	}
	return t
}
