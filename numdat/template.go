package numdat

import "github.com/cpmech/gosl/fun"

// ModelTemplate is the immutable description of a model: identifier,
// authorship, and its four ordered quantity lists plus residual labels.
type ModelTemplate struct {
	Name, Author, Date string

	Externals  []string // x
	Auxiliary  []string // a
	Parameters []string // p
	Constants  []string // c
	Flags      []string // f
	Residuals  []string // r labels

	// Defaults/bounds for externals and parameters, aligned to Externals
	// and Parameters respectively.
	XDefault  []float64
	XLower    []float64
	XUpper    []float64
	PDefault  []float64
	PLower    []float64
	PUpper    []float64
}

func (mt *ModelTemplate) Dims() (nr, nx, na, np, nc, nf int) {
	return len(mt.Residuals), len(mt.Externals), len(mt.Auxiliary),
		len(mt.Parameters), len(mt.Constants), len(mt.Flags)
}

// SystemTemplate binds a model to a concrete parameter set. Its Parameters
// list must biject onto ModelTemplate.Parameters in name and order; the
// same for Constants and Flags.
type SystemTemplate struct {
	Model *ModelTemplate

	Parameters []ParameterValue
	Constants  []ParameterValue
	Flags      []ParameterValue
}

// NewSystemTemplate builds a SystemTemplate from gosl/fun.Prms for
// constants and flags (always Fact-like, immutable) and explicit
// ParameterValue entries for the parameters themselves, which may be
// UnknownP.
func NewSystemTemplate(mt *ModelTemplate, params []ParameterValue, constPrms, flagPrms fun.Prms) (*SystemTemplate, error) {
	if len(params) != len(mt.Parameters) {
		return nil, errShape("parameters", len(params), len(mt.Parameters))
	}
	if len(constPrms) != len(mt.Constants) {
		return nil, errShape("constants", len(constPrms), len(mt.Constants))
	}
	if len(flagPrms) != len(mt.Flags) {
		return nil, errShape("flags", len(flagPrms), len(mt.Flags))
	}
	st := &SystemTemplate{Model: mt, Parameters: params}
	for _, p := range constPrms {
		st.Constants = append(st.Constants, FromPrm(p))
	}
	for _, p := range flagPrms {
		st.Flags = append(st.Flags, FromPrm(p))
	}
	return st, nil
}
