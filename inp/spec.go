// Package inp implements the input data read from a run specification
// (.pxs) JSON file: the model template, its parameter/constant/flag
// values, the data source, and the extractor tuning knobs, following a
// read-file/decode/derive-output-path pattern.
package inp

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/io"

	"github.com/mgmiddelhoek/ParXCL/model"
	"github.com/mgmiddelhoek/ParXCL/modes"
	"github.com/mgmiddelhoek/ParXCL/modify"
	"github.com/mgmiddelhoek/ParXCL/numdat"
	"github.com/mgmiddelhoek/ParXCL/objective"
	"github.com/mgmiddelhoek/ParXCL/residual"
)

// ParamSpec describes one entry of a model's parameter list: either an
// Unknown to be extracted (with box bounds) or a Fact held constant at V.
type ParamSpec struct {
	Name    string  `json:"name"`
	V       float64 `json:"v"`
	Lower   float64 `json:"lower"`
	Upper   float64 `json:"upper"`
	Unknown bool    `json:"unknown"`
}

// ModelSpec describes the model template and its bytecode program.
type ModelSpec struct {
	Name   string `json:"name"`
	Author string `json:"author"`
	Date   string `json:"date"`

	Code string `json:"code"` // path to the compiled bytecode file

	Externals  []string    `json:"externals"`
	Auxiliary  []string    `json:"auxiliary"`
	Residuals  []string    `json:"residuals"`
	Constants  fun.Prms    `json:"constants"`
	Flags      fun.Prms    `json:"flags"`
	Parameters []ParamSpec `json:"parameters"`

	XDefault []float64 `json:"xdefault"`
	XLower   []float64 `json:"xlower"`
	XUpper   []float64 `json:"xupper"`
}

// StimulusSpec mirrors numdat.StimulusSpec for JSON decoding.
type StimulusSpec struct {
	Name        string  `json:"name"`
	Scale       string  `json:"scale"` // "lin", "log", "ln"
	AllowSigned bool    `json:"allowsigned"`
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`
	Intervals   int     `json:"intervals"`
}

// DataSpec names the measured-data source: exactly one of File or Sweep
// should be given.
type DataSpec struct {
	File  string         `json:"file"`  // path to a tagged CSV data file
	Sweep []StimulusSpec `json:"sweep"` // or, a stimulus sweep to synthesize
}

// ExtractSpec carries the modes.Config knobs as plain JSON fields; zero
// values fall back to modes' own defaults.
type ExtractSpec struct {
	Criterion string  `json:"criterion"` // "modes", "strict", "chisq", "consist", "bestfit" (modify.Criterion names)
	Tol       float64 `json:"tol"`
	Prec      float64 `json:"prec"`
	Sens      float64 `json:"sens"`
	MaxIter   int     `json:"maxiter"`
	NG        int     `json:"ng"`
}

// Spec is the top-level run specification read from a .pxs JSON file.
type Spec struct {
	Desc    string      `json:"desc"`
	DirOut  string      `json:"dirout"`
	Model   ModelSpec   `json:"model"`
	Data    DataSpec    `json:"data"`
	Extract ExtractSpec `json:"extract"`

	// derived
	Key  string // file name key, e.g. sample.pxs => sample
	base string // directory the spec file lives in, for resolving relative paths
}

// ReadSpec reads a run specification from a .pxs JSON file, resolving
// the model's bytecode path and the data file path (if any) relative to
// the spec file's own directory.
func ReadSpec(specfilepath string) *Spec {
	var o Spec

	b, err := io.ReadFile(specfilepath)
	if err != nil {
		chk.Panic("ReadSpec: cannot read specification file %q", specfilepath)
	}

	err = json.Unmarshal(b, &o)
	if err != nil {
		chk.Panic("ReadSpec: cannot unmarshal specification file %q: %v", specfilepath, err)
	}

	o.base = os.ExpandEnv(filepath.Dir(specfilepath))
	o.Key = io.FnKey(filepath.Base(specfilepath))
	if o.DirOut == "" {
		o.DirOut = "/tmp/parx/" + o.Key
	}

	return &o
}

// resolve joins a path relative to the spec file's directory, leaving
// absolute paths untouched.
func (o *Spec) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.base, p)
}

// ModelTemplate builds the numdat.ModelTemplate described by the spec.
func (o *Spec) ModelTemplate() *numdat.ModelTemplate {
	mt := &numdat.ModelTemplate{
		Name: o.Model.Name, Author: o.Model.Author, Date: o.Model.Date,
		Externals: o.Model.Externals,
		Auxiliary: o.Model.Auxiliary,
		Residuals: o.Model.Residuals,
		XDefault:  o.Model.XDefault,
		XLower:    o.Model.XLower,
		XUpper:    o.Model.XUpper,
	}
	for _, p := range o.Model.Parameters {
		mt.Parameters = append(mt.Parameters, p.Name)
		mt.PDefault = append(mt.PDefault, p.V)
		mt.PLower = append(mt.PLower, p.Lower)
		mt.PUpper = append(mt.PUpper, p.Upper)
	}
	for _, c := range o.Model.Constants {
		mt.Constants = append(mt.Constants, c.N)
	}
	for _, f := range o.Model.Flags {
		mt.Flags = append(mt.Flags, f.N)
	}
	return mt
}

// SystemTemplate builds the numdat.SystemTemplate binding mt to this
// spec's concrete parameter, constant and flag values.
func (o *Spec) SystemTemplate(mt *numdat.ModelTemplate) (*numdat.SystemTemplate, error) {
	params := make([]numdat.ParameterValue, len(o.Model.Parameters))
	for i, p := range o.Model.Parameters {
		if p.Unknown {
			params[i] = numdat.NewUnknown(p.V, p.Lower, p.Upper)
		} else {
			params[i] = numdat.NewFact(p.V)
		}
	}
	return numdat.NewSystemTemplate(mt, params, o.Model.Constants, o.Model.Flags)
}

// Evaluator decodes the model's bytecode file and builds a
// model.BytecodeEvaluator sized to mt's dimensions.
func (o *Spec) Evaluator(mt *numdat.ModelTemplate) (model.Evaluator, error) {
	b, err := io.ReadFile(o.resolve(o.Model.Code))
	if err != nil {
		return nil, chk.Err("Evaluator: cannot read bytecode file %q: %v", o.Model.Code, err)
	}
	prog, err := model.DecodeProgram(b)
	if err != nil {
		return nil, err
	}
	nr, nx, na, np, nc, nf := mt.Dims()
	dims := model.Dims{NR: nr, NX: nx, NA: na, NP: np, NC: nc, NF: nf}
	return model.NewBytecodeEvaluator(dims, prog), nil
}

// DataTable resolves the spec's data source into a numdat.DataTable:
// either reading the tagged CSV file it names, or synthesizing one from
// its stimulus sweep.
func (o *Spec) DataTable(mt *numdat.ModelTemplate) (numdat.DataTable, error) {
	if o.Data.File != "" {
		return ReadDataTable(o.resolve(o.Data.File))
	}
	stimuli := make([]numdat.StimulusSpec, len(o.Data.Sweep))
	for i, s := range o.Data.Sweep {
		stimuli[i] = numdat.StimulusSpec{
			Name: s.Name, AllowSigned: s.AllowSigned,
			Lower: s.Lower, Upper: s.Upper, Intervals: s.Intervals,
		}
		switch s.Scale {
		case "log":
			stimuli[i].Scale = numdat.ScaleLog10
		case "ln":
			stimuli[i].Scale = numdat.ScaleLn
		default:
			stimuli[i].Scale = numdat.ScaleLinear
		}
	}
	return numdat.MakeStimulusSweep(stimuli, mt)
}

// ModesConfig builds a modes.Config from the spec's Extract section,
// defaulting an empty criterion name to modify.Modes.
func (o *Spec) ModesConfig() modes.Config {
	criterion := modify.Modes
	switch o.Extract.Criterion {
	case "strict":
		criterion = modify.Strict
	case "chisq":
		criterion = modify.Chisq
	case "consist":
		criterion = modify.Consist
	case "bestfit":
		criterion = modify.BestFit
	}
	return modes.Config{
		Objective: objective.Cfg(residual.DefaultConfig()),
		Criterion: criterion,
		Tol:       o.Extract.Tol,
		Prec:      o.Extract.Prec,
		Sens:      o.Extract.Sens,
		MaxIter:   o.Extract.MaxIter,
		NG:        o.Extract.NG,
	}
}
