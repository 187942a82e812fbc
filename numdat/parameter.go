package numdat

import "github.com/cpmech/gosl/fun"

// ParameterValue is a tagged variant over the ways a parameter, constant
// or flag may be held. Only one of the fields group is meaningful,
// selected by Kind; UnknownS are what extraction solves for, ConstS and
// FlagS are immutable inputs.
type ParameterKind int

const (
	UnknownP ParameterKind = iota
	MeasuredP
	CalculatedP
	FactP
	ConstP
	FlagP
)

type ParameterValue struct {
	Kind  ParameterKind
	Val   float64
	Lower float64 // UnknownP bounds
	Upper float64
	Interval float64 // MeasuredP / CalculatedP precision interval
}

// NewUnknown builds an Unknown parameter with box bounds.
func NewUnknown(val, lower, upper float64) ParameterValue {
	return ParameterValue{Kind: UnknownP, Val: val, Lower: lower, Upper: upper}
}

// NewFact builds a Fact (fixed, non-bounded) parameter.
func NewFact(val float64) ParameterValue {
	return ParameterValue{Kind: FactP, Val: val}
}

// NewConst builds an immutable Const value, e.g. for the model's constants
// vector c.
func NewConst(val float64) ParameterValue {
	return ParameterValue{Kind: ConstP, Val: val}
}

// FromPrm constructs a Fact ParameterValue from a gosl/fun.Prm, the shared
// name/value parameter vocabulary used by ModelTemplate/SystemTemplate,
// matching how msolid.Driver.Init accepts fun.Prms. Bounds (needed only for
// UnknownP) are a ParXCL-specific addition carried alongside the template,
// not part of fun.Prm itself — use NewUnknown directly when bounds apply.
func FromPrm(p *fun.Prm) ParameterValue {
	return NewFact(p.V)
}

// IsFree reports whether this value is solved for by extraction.
func (v ParameterValue) IsFree() bool {
	return v.Kind == UnknownP
}
