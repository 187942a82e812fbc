// Package prob provides the chi-square survival probability behind the
// MODES CHISQ proximity criterion. Stimulus-sweep expansion and subset
// selection live in numdat.
package prob

import "gonum.org/v1/gonum/stat/distuv"

// ChiSquareProbability returns P(X >= chi2) for X ~ ChiSquared(fr degrees
// of freedom), the upper-tail survival probability. gonum's
// distuv.ChiSquared only exposes CDF (the lower tail), so the survival
// probability is its complement.
func ChiSquareProbability(chi2 float64, fr int) float64 {
	if fr <= 0 {
		return 0
	}
	dist := distuv.ChiSquared{K: float64(fr)}
	return 1.0 - dist.CDF(chi2)
}
