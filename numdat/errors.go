package numdat

import "github.com/mgmiddelhoek/ParXCL/perr"

func errShape(what string, got, want int) error {
	return perr.New(perr.IllegalSpec, what, "length %d does not match model's %d", got, want)
}
