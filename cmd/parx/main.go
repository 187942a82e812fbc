// Command parx is the command-line front end for the ParX parameter
// extraction engine: it reads a run specification (.pxs), builds the
// model evaluator and numeric data block it describes, then either
// extracts the model's free parameters from the data (the default) or
// simulates the model forward across the data block's externals.
package main

import (
	"flag"
	"os"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/utl"

	"github.com/mgmiddelhoek/ParXCL/inp"
	"github.com/mgmiddelhoek/ParXCL/model"
	"github.com/mgmiddelhoek/ParXCL/modes"
	"github.com/mgmiddelhoek/ParXCL/numdat"
	"github.com/mgmiddelhoek/ParXCL/residual"
	"github.com/mgmiddelhoek/ParXCL/simulate"
)

func main() {
	verbose := flag.Bool("v", true, "print progress messages")
	simOnly := flag.Bool("simulate", false, "simulate the model instead of extracting parameters")
	flag.Parse()

	defer func() {
		if err := recover(); err != nil {
			chk.Verbose = true
			io.Pfred("ERROR: %v\n", err)
			os.Exit(1)
		}
	}()
	defer utl.DoProf(false)()

	if *verbose {
		io.PfWhite("\nParX -- parameter extraction engine\n\n")
	}

	if len(flag.Args()) < 1 {
		chk.Panic("Please, provide a specification filename. Ex.: diode.pxs")
	}
	specpath := flag.Arg(0)
	if io.FnExt(specpath) == "" {
		specpath += ".pxs"
	}

	spec := inp.ReadSpec(specpath)
	if *verbose {
		io.Pf("> run %q read\n", spec.Key)
	}

	mt := spec.ModelTemplate()
	st, err := spec.SystemTemplate(mt)
	if err != nil {
		chk.Panic("%v", err)
	}
	ev, err := spec.Evaluator(mt)
	if err != nil {
		chk.Panic("%v", err)
	}
	dt, err := spec.DataTable(mt)
	if err != nil {
		chk.Panic("%v", err)
	}
	if *verbose {
		io.Pf("> model %q: %d externals, %d parameters, %d data rows\n",
			mt.Name, len(mt.Externals), len(mt.Parameters), len(dt.Rows))
	}

	nb := numdat.MakeNumBlock(mt, st, &dt, ev)

	if *simOnly {
		runSimulate(ev, nb, *verbose)
		return
	}
	runExtract(spec, mt, ev, nb, *verbose)
}

// runSimulate drives every data point in nb forward through the model's
// constraint equations, reporting how many converged.
func runSimulate(ev model.Evaluator, nb *numdat.NumBlock, verbose bool) {
	counters, err := simulate.Run(ev, nb, 1e-6, 0)
	if err != nil {
		chk.Panic("%v", err)
	}
	if verbose {
		io.Pf("> simulate: %d valid, %d invalid\n", counters.Valid, counters.Invalid)
	}
}

// runExtract runs the MODES optimizer on nb's active points and prints
// the resulting parameter values and convergence diagnostics.
func runExtract(spec *inp.Spec, mt *numdat.ModelTemplate, ev model.Evaluator, nb *numdat.NumBlock, verbose bool) {
	paramScale := residual.NewParamScale(nb.P, nb.PLower, nb.PUpper)
	cfg := spec.ModesConfig()

	result, err := modes.Extract(cfg, ev, nb, paramScale)
	if err != nil {
		chk.Panic("%v", err)
	}

	if verbose {
		io.Pf("> extract: %d iterations, %d active points, converged=%v, proximate=%v\n",
			result.Iterations, result.NPoints, result.Converged, result.Proximate)
	}
	for i, name := range mt.Parameters {
		io.Pf("  %-12s = %12.6g  (± %.3g)\n", name, result.P[i]*paramScale.Sigma[i], result.Precision[i])
	}
}
