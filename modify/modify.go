// Package modify implements the two MODES point-set heuristics:
// Proximity, which decides whether the current fit is close enough
// to stop, and ModifyPointSet, which identifies the worst-fitting data
// point by a leave-one-out test and predicts the parameter step after
// its removal.
package modify

import (
	"math"

	"github.com/mgmiddelhoek/ParXCL/prob"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

// Criterion selects one of five proximity tests.
type Criterion int

const (
	Modes Criterion = iota
	Strict
	Chisq
	Consist
	BestFit
)

const chiCrit = 0.5

// Proximity reports whether the fit described by res/singularValues is
// close enough to stop MODES iteration under crit. pmc carries the
// previous call's maximum-consistency value for the Consist criterion
// and is set in place to the current value on every call, except a
// Consist call that passes, which leaves it unchanged.
func Proximity(res, singularValues vecmat.Vector, ng, rank int, crit Criterion, pmc *float64, trace int) bool {
	no := len(res) / ng
	fr := no - rank
	if fr <= 0 {
		return true
	}

	rssq := vecmat.Norm2(res)
	ssq := rssq * rssq
	var variance float64
	if no != 0 {
		variance = ssq / float64(no)
	}
	spread := math.Sqrt(variance)
	probability := prob.ChiSquareProbability(ssq, fr)

	maxCons := 0.0
	if rank >= 1 {
		maxCons = math.Abs(rssq / singularValues[0])
	}
	if crit != Consist {
		*pmc = maxCons
	}

	switch crit {
	case Modes:
		return spread <= 1.0
	case Strict:
		for i := 0; i < len(res); i += ng {
			eps := 0.0
			for j := 0; j < ng; j++ {
				eps += res[i+j] * res[i+j]
			}
			if math.Sqrt(eps) > 1.0 {
				return false
			}
		}
		return true
	case Chisq:
		return probability >= chiCrit
	case Consist:
		if *pmc >= maxCons || spread > 1.0 {
			*pmc = maxCons
			return false
		}
		return true
	default: // BestFit
		return true
	}
}

// PointSetResult is the outcome of one leave-one-out worst-point search.
type PointSetResult struct {
	Dp      vecmat.Vector // corrected step direction (same length as the dp passed in)
	Dc      float64       // correction on the objective function (delta sum-of-squares)
	ResNorm float64       // residual norm before removal
	Index   int           // index (within the active ordering) of the removed point
	Ok      bool
}

// ModifyPointSet finds the data point whose removal increases the
// residual sum of squares the least (equivalently: identifies the point
// that, left out, best explains the others), then predicts the
// parameter step that would result. q is the neq x rank matrix of left
// singular vectors (stacked ng-row blocks per point), pt is the rank x
// n_p matrix of right singular vectors (Vᵀ), sv the rank singular
// values, and dp the current full-length parameter step: only its first
// rank entries receive the correction, per the rank-truncated update
// rule.
func ModifyPointSet(res vecmat.Vector, ng int, sv vecmat.Vector, pt, q *vecmat.Matrix, rank int, dp vecmat.Vector) (*PointSetResult, error) {
	neq := len(res)
	fr := neq - rank
	if fr <= 0 {
		return &PointSetResult{Ok: false}, nil
	}
	npoints := neq / ng

	leaveOneOutBlock := func(g int) *vecmat.Matrix {
		block := vecmat.NewMatrix(ng, ng)
		for i := 0; i < ng; i++ {
			for j := i; j < ng; j++ {
				inp := 0.0
				for v := 0; v < rank; v++ {
					inp += q.At(g+i, v) * q.At(g+j, v)
				}
				block.Set(i, j, -inp)
				if j != i {
					block.Set(j, i, -inp)
				} else {
					block.Set(j, i, block.At(j, i)+1.0)
				}
			}
		}
		return block
	}

	dsigMax := 0.0
	indexMax := -1
	for index := 0; index < npoints; index++ {
		g := index * ng
		block := leaveOneOutBlock(g)
		subRes := vecmat.Vector(res[g : g+ng]).Clone()
		w, err := vecmat.SolveSym(block, subRes)
		if err != nil {
			break // a singular leave-one-out block halts the scan
		}
		dsig := vecmat.Dot(subRes, w)
		if dsig > dsigMax {
			dsigMax = dsig
			indexMax = index
		}
	}

	if indexMax == -1 {
		return &PointSetResult{Ok: false}, nil
	}

	g := indexMax * ng
	block := leaveOneOutBlock(g)

	// rhs = res[g:g+ng] + Q_block * (sv ⊙ (Pt * dp))
	ptDp := vecmat.NewVector(rank)
	for i := 0; i < rank; i++ {
		inp := 0.0
		for j := 0; j < len(dp); j++ {
			inp += pt.At(i, j) * dp[j]
		}
		ptDp[i] = inp * sv[i]
	}
	rhs := vecmat.Vector(res[g : g+ng]).Clone()
	for i := 0; i < ng; i++ {
		for j := 0; j < rank; j++ {
			rhs[i] += q.At(g+i, j) * ptDp[j]
		}
	}

	w, err := vecmat.SolveSym(block, rhs)
	if err != nil {
		return &PointSetResult{Ok: false}, nil
	}

	// back-project: wRank = Qᵀ_block*w / sv, then correction = Ptᵀ*wRank
	wRank := vecmat.NewVector(rank)
	for i := 0; i < rank; i++ {
		inp := 0.0
		for j := 0; j < ng; j++ {
			inp += q.At(g+j, i) * w[j]
		}
		wRank[i] = inp / sv[i]
	}
	correction := vecmat.NewVector(pt.N)
	for i := 0; i < pt.N; i++ {
		inp := 0.0
		for j := 0; j < rank; j++ {
			inp += pt.At(j, i) * wRank[j]
		}
		correction[i] = inp
	}

	newDp := dp.Clone()
	for i := 0; i < len(newDp); i++ {
		if i < rank {
			newDp[i] += correction[i]
		}
	}

	return &PointSetResult{
		Dp:      newDp,
		Dc:      dsigMax,
		ResNorm: vecmat.Norm2(res),
		Index:   indexMax,
		Ok:      true,
	}, nil
}
