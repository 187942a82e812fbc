// Package vecmat provides the dense vector/matrix primitives that every
// other ParXCL package builds on: arithmetic kernels, SVD with a
// tolerance-based rank rule, and three linear solves wrapped around
// LAPACK (general, symmetric indefinite, SPD).
//
// A C-style implementation might keep vectors and matrices as
// owning-or-viewing structs with manual offset/length/owner bookkeeping.
// Go slices already alias an underlying array when re-sliced, so a "view"
// here is simply a sub-slice (Vector) or a re-based Matrix sharing the
// same backing Data — there is no separate owner/view tag to maintain.
package vecmat

import "github.com/cpmech/gosl/chk"

// Vector is a dense sequence of float64. A view is any sub-slice of an
// owning Vector; slicing aliases the same backing array, never copies.
type Vector []float64

// NewVector allocates an owning, zeroed vector of length n.
func NewVector(n int) Vector {
	return make(Vector, n)
}

// Zero fills v with zeros in place.
func (v Vector) Zero() {
	for i := range v {
		v[i] = 0
	}
}

// CopyTo copies v into dst, which must have equal length.
func (v Vector) CopyTo(dst Vector) {
	if len(v) != len(dst) {
		chk.Panic("vecmat: CopyTo length mismatch: %d != %d", len(v), len(dst))
	}
	copy(dst, v)
}

// Clone returns an owning copy of v.
func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}
