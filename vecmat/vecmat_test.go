package vecmat

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func TestDotNorm(tst *testing.T) {
	chk.PrintTitle("DotNorm")
	v := Vector{3, 4}
	if math.Abs(Dot(v, v)-25) > 1e-15 {
		tst.Errorf("dot(v,v) wrong: %v", Dot(v, v))
	}
	if math.Abs(Norm2(v)-5) > 1e-15 {
		tst.Errorf("norm2(v) wrong: %v", Norm2(v))
	}
}

func TestMatVec(tst *testing.T) {
	chk.PrintTitle("MatVec")
	a := NewMatrix(2, 3)
	// A = [[1,2,3],[4,5,6]]
	a.Set(0, 0, 1)
	a.Set(0, 1, 2)
	a.Set(0, 2, 3)
	a.Set(1, 0, 4)
	a.Set(1, 1, 5)
	a.Set(1, 2, 6)
	x := Vector{1, 1, 1}
	y := MatVec(a, x)
	chk.Vector(tst, "A*[1,1,1]", 1e-15, y, []float64{6, 15})

	xt := Vector{1, 1}
	yt := MatTVec(a, xt)
	chk.Vector(tst, "A'*[1,1]", 1e-15, yt, []float64{5, 7, 9})
}

func TestMatMat(tst *testing.T) {
	chk.PrintTitle("MatMat")
	a := NewMatrix(2, 2)
	a.Set(0, 0, 1)
	a.Set(0, 1, 2)
	a.Set(1, 0, 3)
	a.Set(1, 1, 4)
	c := MatMat(a, a)
	// [[1,2],[3,4]]^2 = [[7,10],[15,22]]
	chk.Scalar(tst, "c[0,0]", 1e-15, c.At(0, 0), 7)
	chk.Scalar(tst, "c[0,1]", 1e-15, c.At(0, 1), 10)
	chk.Scalar(tst, "c[1,0]", 1e-15, c.At(1, 0), 15)
	chk.Scalar(tst, "c[1,1]", 1e-15, c.At(1, 1), 22)
}

func TestSVDRoundTrip(tst *testing.T) {
	chk.PrintTitle("SVDRoundTrip")
	a := NewMatrix(3, 2)
	a.Set(0, 0, 1)
	a.Set(1, 0, 0)
	a.Set(2, 0, 0)
	a.Set(0, 1, 0)
	a.Set(1, 1, 2)
	a.Set(2, 1, 0)
	res, err := SVD(a)(-1)
	if err != nil {
		tst.Fatalf("svd failed: %v", err)
	}
	if res.Rank != 2 {
		tst.Errorf("expected rank 2, got %d", res.Rank)
	}
	// reconstruct U*diag(S)*Vt and compare to A
	recon := NewMatrix(a.M, a.N)
	for i := 0; i < a.M; i++ {
		for j := 0; j < a.N; j++ {
			var s float64
			for k := 0; k < len(res.S); k++ {
				s += res.U.At(i, k) * res.S[k] * res.Vt.At(k, j)
			}
			recon.Set(i, j, s)
		}
	}
	var diff float64
	for i := 0; i < a.M; i++ {
		for j := 0; j < a.N; j++ {
			d := recon.At(i, j) - a.At(i, j)
			diff += d * d
		}
	}
	if math.Sqrt(diff) > 1e-10 {
		tst.Errorf("SVD reconstruction error too large: %v", diff)
	}
}

func TestSolveGeneralIdempotence(tst *testing.T) {
	chk.PrintTitle("SolveGeneralIdempotence")
	a := NewMatrix(2, 2)
	a.Set(0, 0, 4)
	a.Set(0, 1, 1)
	a.Set(1, 0, 2)
	a.Set(1, 1, 3)
	y := Vector{1, 2}
	b := MatVec(a, y)
	x, err := SolveGeneral(a, b)
	if err != nil {
		tst.Fatalf("solve failed: %v", err)
	}
	chk.Vector(tst, "x", 1e-10, x, y)
}

func TestSolveSymSPD(tst *testing.T) {
	chk.PrintTitle("SolveSymSPD")
	a := NewMatrix(2, 2)
	a.Set(0, 0, 2)
	a.Set(0, 1, 0)
	a.Set(1, 0, 0)
	a.Set(1, 1, 3)
	b := Vector{4, 9}
	x, err := SolveSPD(a, b)
	if err != nil {
		tst.Fatalf("solve failed: %v", err)
	}
	chk.Vector(tst, "x", 1e-14, x, []float64{2, 3})
}
