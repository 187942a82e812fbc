package numdat

import (
	"math"

	"github.com/mgmiddelhoek/ParXCL/perr"
)

// ScaleKind selects how a Stimulus's interval is subdivided into steps,
// mirroring stim2dat.h's SLIN/SLOG/SLN scale codes.
type ScaleKind int

const (
	ScaleLinear ScaleKind = iota
	ScaleLog10
	ScaleLn
)

// Stimulus describes one externally-driven model input to sweep: its
// bounds, how many intervals to divide them into, and the scale the
// interval is subdivided on. Setting AllowSigned permits Lower/Upper to
// both be negative for a log/ln scale (stim2dat.h's A-prefixed variants,
// which sweep |value| and reapply the sign), where the default forbids it
// (the S-prefixed variants, which require strictly positive bounds).
type StimulusSpec struct {
	Name         string
	Scale        ScaleKind
	AllowSigned  bool
	Lower, Upper float64
	Intervals    int // number of intervals; generates Intervals+1 distinct values
}

func (s StimulusSpec) validate() error {
	if s.Intervals < 0 {
		return perr.New(perr.IllegalSpec, s.Name, "stimulus: negative interval count")
	}
	if s.Scale == ScaleLinear {
		return nil
	}
	if s.AllowSigned {
		if sign(s.Lower) != sign(s.Upper) || s.Lower == 0 || s.Upper == 0 {
			return perr.New(perr.IllegalSpec, s.Name, "stimulus: signed log/ln bounds must share a sign and be nonzero")
		}
		return nil
	}
	if s.Lower <= 0 || s.Upper <= 0 {
		return perr.New(perr.IllegalSpec, s.Name, "stimulus: log/ln bounds must be strictly positive")
	}
	return nil
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// bounds returns the (lowerb, upperb, step) triple in the scale's working
// coordinate, matching makedata's pre-scan before the per-row fill.
func (s StimulusSpec) bounds() (lowerb, upperb, step float64) {
	switch s.Scale {
	case ScaleLog10:
		lowerb, upperb = math.Log10(math.Abs(s.Lower)), math.Log10(math.Abs(s.Upper))
	case ScaleLn:
		lowerb, upperb = math.Log(math.Abs(s.Lower)), math.Log(math.Abs(s.Upper))
	default:
		lowerb, upperb = s.Lower, s.Upper
	}
	if s.Intervals > 0 {
		step = (upperb - lowerb) / float64(s.Intervals)
	}
	return
}

// valueAt un-scales the n-th (0-based) step back to the stimulus's native
// coordinate, matching makedata's un-scale switch.
func (s StimulusSpec) valueAt(n int) float64 {
	lowerb, _, step := s.bounds()
	x := lowerb + float64(n)*step
	switch s.Scale {
	case ScaleLog10:
		v := math.Pow(10.0, x)
		if sign(s.Lower) < 0 {
			return -v
		}
		return v
	case ScaleLn:
		v := math.Exp(x)
		if sign(s.Lower) < 0 {
			return -v
		}
		return v
	default:
		return x
	}
}

// MakeStimulusSweep expands a list of candidate stimuli into a DataTable
// that enumerates every combination of their values. Of the stimuli whose
// name matches one of mt's Externals, the one with the largest interval
// count becomes the sweep variable (first column, fastest-varying, and
// the sole source of CrvID grouping); the rest become ordinary stimulus
// columns. Model externals with no matching stimulus become UNKN columns,
// held at zero on every row; unconnected stimuli are ignored. If no
// stimulus connects to the model at all, an empty table is returned.
func MakeStimulusSweep(stimuli []StimulusSpec, mt *ModelTemplate) (DataTable, error) {
	for _, s := range stimuli {
		if err := s.validate(); err != nil {
			return DataTable{}, err
		}
	}

	connected := func(name string) bool {
		for _, x := range mt.Externals {
			if x == name {
				return true
			}
		}
		return false
	}
	byName := func(name string) *StimulusSpec {
		for i := range stimuli {
			if stimuli[i].Name == name {
				return &stimuli[i]
			}
		}
		return nil
	}

	sweepIdx := -1
	for i, s := range stimuli {
		if !connected(s.Name) {
			continue
		}
		if sweepIdx < 0 || s.Intervals > stimuli[sweepIdx].Intervals {
			sweepIdx = i
		}
	}
	if sweepIdx < 0 {
		return DataTable{}, nil
	}

	type col struct {
		name string
		flag StateFlag
		stim *StimulusSpec // nil for UNKN
	}
	var cols []col
	cols = append(cols, col{stimuli[sweepIdx].Name, Sweep, &stimuli[sweepIdx]})
	for i, s := range stimuli {
		if i == sweepIdx || !connected(s.Name) {
			continue
		}
		cols = append(cols, col{s.Name, Stimulus, &stimuli[i]})
	}
	for _, x := range mt.Externals {
		if byName(x) == nil {
			cols = append(cols, col{x, Unknown, nil})
		}
	}

	header := make([]Column, len(cols))
	for i, c := range cols {
		header[i] = Column{Name: c.name, Flag: c.flag}
	}

	np := 1
	for _, c := range cols {
		if c.stim != nil {
			np *= c.stim.Intervals + 1
		}
	}

	rows := make([]Row, np)
	divisor := 1
	var sweepCycle int
	for ci, c := range cols {
		if c.stim == nil {
			for i := range rows {
				rows[i].Val = append(rows[i].Val, 0.0)
				rows[i].Err = append(rows[i].Err, 0.0)
			}
			continue
		}
		period := c.stim.Intervals + 1
		for i := range rows {
			n := (i / divisor) % period
			rows[i].Val = append(rows[i].Val, c.stim.valueAt(n))
			rows[i].Err = append(rows[i].Err, 0.0)
		}
		if ci == 0 {
			sweepCycle = period
		}
		divisor *= period
	}

	for i := range rows {
		rows[i].RowID = i
		rows[i].CrvID = 1 + i/sweepCycle
	}

	return DataTable{Header: header, Rows: rows}, nil
}
