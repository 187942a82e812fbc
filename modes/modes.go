// Package modes implements the MODES parameter estimator: the
// outer Gauss-Newton loop that drives a NumBlock's active data points onto
// a model's implicit equations by repeatedly taking an SVD-truncated
// least-squares step in parameter space, backed by a local line search
// when the full step doesn't reduce the residual, and by proximity-driven
// point-set modification when it does but the fit still isn't close
// enough to the data's stated precision.
package modes

import (
	"math"

	"github.com/mgmiddelhoek/ParXCL/linesearch"
	"github.com/mgmiddelhoek/ParXCL/model"
	"github.com/mgmiddelhoek/ParXCL/modify"
	"github.com/mgmiddelhoek/ParXCL/numdat"
	"github.com/mgmiddelhoek/ParXCL/objective"
	"github.com/mgmiddelhoek/ParXCL/perr"
	"github.com/mgmiddelhoek/ParXCL/residual"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

const (
	maxItFactor = 20   // factor for the default total iteration budget
	eqSlack     = 1.50 // demand more equations than parameters
	lineIt      = 5    // number of local line search iterations
	relFac      = 0.20 // initial underrelaxation factor
	cutBound    = 0.10 // limit for cutting a step to a parameter bound
	machineEps  = 2.220446049250313e-16
)

// Config bundles the objective function configuration and the outer-loop
// tuning knobs for one extraction run.
type Config struct {
	Objective objective.Cfg
	Criterion modify.Criterion // opttype: optimization goal driving Proximity
	Tol       float64          // MODES tolerance factor; Extract does not read it
	Prec      float64          // relative precision of the residuals
	Sens      float64          // sensitivity threshold for the SVD rank rule
	MaxIter   int              // 0 uses the default budget maxItFactor*sqrt(np)
	NG        int              // number of reduced residual equations per data point
}

// Result is the outcome of one parameter extraction run.
type Result struct {
	P vecmat.Vector // final scaled parameter values

	Precision  vecmat.Vector // conf_lim's p_p: approximate confidence half-width per parameter
	Redundancy vecmat.Vector // conf_lim's p_r: 0 if well-determined, else the dominant singular loading

	Rank            int
	ConditionNumber float64

	Converged bool // dc fell under the convergence bound
	Proximate bool // the fit met the chosen Criterion

	NPoints int // remaining ACTIVE points at the end of the run

	Iterations, FullSteps, PartSteps int
	FuncEvals, LineSearchEvals       int
	ModelEvals                      objective.Counts
}

// Extract runs the MODES outer loop on nb's ACTIVE points.
// p, plow, pup must already be in MODES' scaled coordinates (see
// residual.ParamScale); on return nb.P holds the final scaled values and
// nb's groups reflect any point-set modification that occurred.
func Extract(cfg Config, ev model.Evaluator, nb *numdat.NumBlock, paramScale *residual.ParamScale) (*Result, error) {
	ng := cfg.NG
	if ng <= 0 {
		// The residual assembler whitens every point down to exactly
		// NR-NA rows: the auxiliary-elimination step removes NA rows, and
		// the remaining block's rank is required to equal its row count,
		// so this is the one value a constant NG can take.
		ng = ev.Dims().NR - ev.Dims().NA
	}
	if ng <= 0 {
		return nil, perr.New(perr.IllegalSpec, "", "modes: NG (equations per data point) must be positive")
	}

	n := nb.Dims.NP
	p := nb.P.Clone()
	plow, pup := nb.PLower, nb.PUpper
	dp := vecmat.NewVector(n)

	rtol := math.Sqrt(machineEps)
	prec := math.Max(cfg.Prec, rtol)
	stol := math.Max(float64(n)*machineEps, prec*cfg.Sens)

	maxIter := cfg.MaxIter
	if maxIter == 0 {
		maxIter = maxItFactor * int(math.Round(math.Sqrt(float64(n))))
	}

	eqSlackUsed := eqSlack
	if cfg.Criterion == modify.BestFit {
		eqSlackUsed = 1.0
	}

	var counts objective.Counts
	funcEval, mineval, fullstep, partstep := 0, 0, 0, 0

	rank := n
	var sVal vecmat.Vector
	var sVec, q *vecmat.Matrix
	conv, prox := false, false
	maxcon := math.Inf(1)

	rf, jf := true, true
	var res vecmat.Vector
	var jacp *vecmat.Matrix
	npoints := nb.Group(numdat.Active).Count()

	// evalObjLine evaluates the objective at p + alpha*dp, caching the
	// result so the outer loop can skip re-evaluating at an unchanged
	// point (matching eval_obj_line's update of the shared res/jacp).
	evalObjLine := func(alpha float64, wantSlope bool) (norm, slope float64, ok bool) {
		trial := vecmat.NewVector(n)
		for i := range trial {
			trial[i] = p[i] + alpha*dp[i]
		}
		funcEval++
		mineval++
		req := objective.Request{P: trial, WantR: true, WantJ: wantSlope, Modify: false, All: false}
		result, err := objective.Evaluate(cfg.Objective, ev, nb, req, &counts)
		if err != nil {
			return math.Inf(1), math.Inf(1), false
		}
		res = result.R
		norm = vecmat.Norm2(res)
		if wantSlope {
			jacp = result.Jp
			grad := vecmat.MatTVec(jacp, res)
			slope = vecmat.Dot(grad, dp)
		}
		return norm, slope, true
	}

	checkBounds := func() vecmat.Vector {
		step := vecmat.NewVector(n)
		for i := 0; i < n; i++ {
			pdif := dp[i]
			pnew := p[i] + pdif
			pl, pu := plow[i], pup[i]
			switch {
			case pnew > pu && pdif != 0:
				if s := math.Abs((pu - p[i]) / pdif); s < 1.0 {
					step[i] = s
				} else {
					step[i] = 1.0
				}
			case pnew < pl && pdif != 0:
				if s := math.Abs((p[i] - pl) / pdif); s < 1.0 {
					step[i] = s
				} else {
					step[i] = 1.0
				}
			default:
				step[i] = 1.0
			}
		}
		return step
	}

	// stepDirection computes the modified Gauss-Newton step: the SVD of
	// jacp gives the rank-truncated pseudo-inverse step dp and its
	// predicted objective reduction dc.
	stepDirection := func() (dc float64, ok bool) {
		svdRes, err := vecmat.SVD(jacp)(stol)
		if err != nil || svdRes.Rank <= 0 {
			return 0, false
		}
		rank = svdRes.Rank
		sVal, sVec, q = svdRes.S, svdRes.Vt, svdRes.U

		qtr := vecmat.MatTVec(q, res)
		for pi := 0; pi < n; pi++ {
			v := 0.0
			for i := 0; i < rank; i++ {
				v -= (sVec.At(i, pi) / sVal[i]) * qtr[i]
			}
			dp[pi] = v
		}
		for i := 0; i < rank; i++ {
			dc += qtr[i] * qtr[i]
		}
		return dc, true
	}

	// stepSize finds the best step length along dp: a quick bound-limited
	// accept if the full (or bound-cut) step already descends, else a
	// bracket-then-Brent local line search, matching step_size.
	stepSize := func(resNorm, releps, abseps float64, boundAlpha vecmat.Vector) (alpha float64, nextRf, nextJf bool) {
		cutb := math.Max(abseps, cutBound)
		ba := boundAlpha.Clone()

		var xr, fr, slope float64
		for {
			mins, mini := 1.0, -1
			for i, v := range ba {
				if v < mins {
					mins, mini = v, i
				}
			}
			if mini != -1 {
				ba[mini] = 1.0
			}

			var ok bool
			fr, slope, ok = evalObjLine(mins, true)
			if !ok {
				fr, slope = math.Inf(1), math.Inf(1)
			}
			mineval--

			if mins >= 1.0 || slope >= 0.0 || mins > cutb {
				xr = mins
				break
			}
		}

		if fr < resNorm || slope <= 0.0 {
			return xr, false, false
		}

		var xm, fm float64
		for {
			xm = relFac * xr
			if xm < abseps {
				return 0.0, false, false
			}
			var ok bool
			fm, slope, ok = evalObjLine(xm, true)
			if !ok {
				fm, slope = math.Inf(1), math.Inf(1)
			}
			if fm > resNorm {
				if slope <= 0.0 {
					return xm, false, false
				}
				xr, fr = xm, fm
				continue
			}
			break
		}

		result := linesearch.Brent(0.0, xm, xr, func(a float64) float64 {
			v, _, ok := evalObjLine(a, false)
			if !ok {
				return math.Inf(1)
			}
			return v
		}, fm, releps, abseps, lineIt)
		mineval += result.Iters

		xmin := result.XMin
		if !result.OK && result.FMin > fm {
			xmin = xm
		}

		return xmin, true, true
	}

	iter, locIter := 1, 1
	for !conv || !prox {
		modifyFlag := iter == 1

		req := objective.Request{P: p, WantR: rf, WantJ: jf, Modify: modifyFlag, All: false}
		funcEval++
		result, err := objective.Evaluate(cfg.Objective, ev, nb, req, &counts)
		if err != nil {
			return nil, perr.New(perr.ObjectiveFailed, "", "modes: objective evaluation failed: %v", err)
		}
		if rf {
			res = result.R
		}
		if jf {
			jacp = result.Jp
		}
		npoints = result.NPoints

		resNorm := vecmat.Norm2(res)
		sumsq := resNorm * resNorm

		if float64(jacp.M) < eqSlackUsed*float64(jacp.N) {
			return nil, perr.New(perr.NumEq, "", "modes: insufficient data points remaining, pnt=%d eq=%d par=%d", npoints, jacp.M, jacp.N)
		}

		dc, ok := stepDirection()
		if !ok {
			return nil, perr.New(perr.NoDirection, "", "modes: no step direction found")
		}

		moddir := false

		if locIter >= maxIter {
			return nil, perr.New(perr.SlowConvergence, "", "modes: slow convergence, iteration %d", iter)
		}

		boundDc := prec*sumsq + 10.0*prec*prec*float64(npoints)
		conv = dc < boundDc

		if conv {
			locIter = 1
			prox = modify.Proximity(res, sVal, ng, rank, cfg.Criterion, &maxcon, -1)

			if !prox {
				pr, err := modify.ModifyPointSet(res, ng, sVal, sVec, q, rank, dp)
				if err != nil {
					return nil, err
				}
				if !pr.Ok {
					return nil, perr.New(perr.ModifyFailed, "", "modes: unable to modify point set")
				}
				demoteActivePoint(nb, pr.Index)

				dp = pr.Dp
				dc = pr.Dc
				resNorm = pr.ResNorm
				npoints = nb.Group(numdat.Active).Count()
				moddir = true

				sumsq = resNorm * resNorm
				boundDc = prec*sumsq + prec*prec*float64(npoints)
				conv = dc < boundDc
			}
		}

		if conv && prox {
			break
		}

		var alpha float64
		if !conv {
			pNorm, dpNorm := vecmat.Norm2(p), vecmat.Norm2(dp)
			var minAlpha float64
			if dpNorm > 0 {
				minAlpha = machineEps * (pNorm / dpNorm)
			} else {
				minAlpha = machineEps * pNorm
			}
			boundAlpha := checkBounds()
			alpha, rf, jf = stepSize(resNorm, rtol, minAlpha, boundAlpha)
		} else {
			alpha, rf, jf = 1.0, true, true
		}

		switch {
		case alpha == 0.0 && !moddir:
			return nil, perr.New(perr.NoLowerPoint, "", "modes: no step size found")
		case alpha == 1.0:
			fullstep++
		default:
			partstep++
		}

		for i := 0; i < n; i++ {
			p[i] += alpha * dp[i]
		}

		ratio := paramScale.Update(p, plow, pup)
		if !jf {
			rescaleJacpColumns(jacp, ratio)
		}

		iter++
		locIter++
	}

	precision, redundancy := confLim(p, res, sVal, sVec, rank)

	condn := 0.0
	if rank > 0 {
		condn = math.Abs(sVal[0] / sVal[rank-1])
	}

	// final distances: refresh Delta/Res on every xset, including points
	// demoted along the way, matching modes()'s closing objective() call.
	finalReq := objective.Request{P: p, WantR: true, WantJ: false, Modify: false, All: true}
	funcEval++
	if _, err := objective.Evaluate(cfg.Objective, ev, nb, finalReq, &counts); err != nil {
		return nil, perr.New(perr.ObjectiveFailed, "", "modes: final distance evaluation failed: %v", err)
	}

	copy(nb.P, p)

	return &Result{
		P:               p,
		Precision:       precision,
		Redundancy:      redundancy,
		Rank:            rank,
		ConditionNumber: condn,
		Converged:       conv,
		Proximate:       prox,
		NPoints:         npoints,
		Iterations:      iter,
		FullSteps:       fullstep,
		PartSteps:       partstep,
		FuncEvals:       funcEval,
		LineSearchEvals: mineval,
		ModelEvals:      counts,
	}, nil
}

// demoteActivePoint moves the xset at position index within nb's ACTIVE
// group into UNSELECTED, matching modify_point_set's own call to
// remove_data_point(index_max, UGROUP, trace).
func demoteActivePoint(nb *numdat.NumBlock, index int) {
	active := nb.Group(numdat.Active)
	xs := active.XSets[index]
	active.XSets = append(active.XSets[:index], active.XSets[index+1:]...)
	unselected := nb.EnsureGroup(numdat.Unselected)
	unselected.XSets = append(unselected.XSets, xs)
}

// rescaleJacpColumns multiplies jacp's column j by ratio[j], matching
// set_p_scale's rescale of a cached (not about to be recomputed)
// Jacobian when the parameter scale changes underneath it.
func rescaleJacpColumns(jacp *vecmat.Matrix, ratio vecmat.Vector) {
	for j := 0; j < jacp.N; j++ {
		r := ratio[j]
		for i := 0; i < jacp.M; i++ {
			jacp.Set(i, j, jacp.At(i, j)*r)
		}
	}
}

// confLim computes approximate confidence limits on the parameters:
// precision[i] is the root-sum-of-squares residual norm scaled by the
// i-th row norm of P/S (zero singular directions excluded by rank);
// redundancy[i] is nonzero, and precision[i] replaced by |p[i]|, whenever
// parameter i is dominated by a singular direction beyond rank.
func confLim(p, res, sVal vecmat.Vector, sVec *vecmat.Matrix, rank int) (precision, redundancy vecmat.Vector) {
	n := len(p)
	rssq := vecmat.Norm2(res)
	precision = vecmat.NewVector(n)
	redundancy = vecmat.NewVector(n)

	for i := 0; i < n; i++ {
		c := 0.0
		for w := 0; w < rank; w++ {
			ci := sVec.At(w, i) / sVal[w]
			c += ci * ci
		}
		precision[i] = math.Abs(rssq * math.Sqrt(c))
	}

	for i := 0; i < n; i++ {
		cm, im := 0.0, 0
		for w := 0; w < len(sVal); w++ {
			if ci := math.Abs(sVec.At(w, i)); ci > cm {
				cm, im = ci, w
			}
		}
		if im >= rank {
			precision[i] = math.Abs(p[i])
			redundancy[i] = cm
		}
	}

	return precision, redundancy
}
