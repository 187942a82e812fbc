package model

import "github.com/mgmiddelhoek/ParXCL/vecmat"

// CompiledFunc is the shape of a model implemented directly in Go: given
// the request, fill res in place and report success.
type CompiledFunc func(req *Request, res *Result) bool

// Compiled wraps a CompiledFunc as an Evaluator with identity transposes.
type Compiled struct {
	dims Dims
	fn   CompiledFunc

	// optional coarser-view transposes; nil means identity.
	TX, TP, TXInv, TPInv func(vecmat.Vector) vecmat.Vector
}

// NewCompiled builds a Compiled evaluator around fn with the given fixed
// dimensions.
func NewCompiled(dims Dims, fn CompiledFunc) *Compiled {
	return &Compiled{dims: dims, fn: fn}
}

func (c *Compiled) Dims() Dims { return c.dims }

func (c *Compiled) Evaluate(req *Request, res *Result) bool {
	return c.fn(req, res)
}

func (c *Compiled) TransposeX(x vecmat.Vector) vecmat.Vector {
	if c.TX == nil {
		return x
	}
	return c.TX(x)
}

func (c *Compiled) TransposeP(p vecmat.Vector) vecmat.Vector {
	if c.TP == nil {
		return p
	}
	return c.TP(p)
}

func (c *Compiled) InverseTransposeX(x vecmat.Vector) vecmat.Vector {
	if c.TXInv == nil {
		return x
	}
	return c.TXInv(x)
}

func (c *Compiled) InverseTransposeP(p vecmat.Vector) vecmat.Vector {
	if c.TPInv == nil {
		return p
	}
	return c.TPInv(p)
}
