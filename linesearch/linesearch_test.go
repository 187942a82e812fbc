package linesearch

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func quad(x float64) float64 {
	d := x - 0.3
	return d*d + 0.1
}

func TestBrentQuadratic(tst *testing.T) {
	chk.PrintTitle("BrentQuadratic")
	r := Brent(0, 0.5, 1, quad, quad(0.5), 1e-12, 1e-12, 25)
	if !r.OK {
		tst.Fatalf("brent did not converge within budget")
	}
	if math.Abs(r.XMin-0.3) > 1e-6 {
		tst.Errorf("brent xmin wrong: %v", r.XMin)
	}
}

func TestGoldenQuadratic(tst *testing.T) {
	chk.PrintTitle("GoldenQuadratic")
	r := Golden(0, 0.5, 1, quad, quad(0.5), 1e-4, 40)
	if !r.OK {
		tst.Fatalf("golden did not converge within budget")
	}
	if math.Abs(r.XMin-0.3) > 1e-3 {
		tst.Errorf("golden xmin wrong: %v", r.XMin)
	}
}
