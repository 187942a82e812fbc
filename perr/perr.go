// Package perr defines the closed error-kind vocabulary used throughout
// ParXCL, grouped into PERR/SERR/CERR error code families.
package perr

import "fmt"

// Kind is a closed error classification, grouped into parser (PERR),
// setup (SERR) and calculation (CERR) error codes.
type Kind int

const (
	// Setup errors: abort the current command, roll back to the last
	// consistent snapshot.
	UnknownIdent Kind = iota
	UnknownField
	UnknownModel
	IllegalRedeclaration
	IllegalSpec
	IllegalType
	IllegalAssign
	IllegalNegativeValue
	WrongArgument
	NoFile
	NoData
	NoKey
	NoVariable
	NoParameter
	UnknownVariable

	// Numerical errors: abort the solver; partial p and per-point res are
	// left intact.
	NumEq
	NoDirection
	NoLowerPoint
	SlowConvergence
	ObjectiveFailed
	ModifyFailed

	// Evaluator errors: per-call failures, never committed.
	IllegalOpcode
	BadBytecodeHeader
	UnexpectedEOF
	StackOverflow
	ModelReturnedFalse
	FPException
)

var names = map[Kind]string{
	UnknownIdent:          "unknown identifier",
	UnknownField:          "unknown field",
	UnknownModel:          "unknown model",
	IllegalRedeclaration:  "illegal redeclaration",
	IllegalSpec:           "illegal specification",
	IllegalType:           "illegal type",
	IllegalAssign:         "illegal assignment",
	IllegalNegativeValue:  "illegal negative value",
	WrongArgument:         "wrong argument",
	NoFile:                "no such file",
	NoData:                "no data",
	NoKey:                 "no key",
	NoVariable:            "no variable",
	NoParameter:           "no parameter",
	UnknownVariable:       "unknown variable",
	NumEq:                 "insufficient data points",
	NoDirection:           "no step direction",
	NoLowerPoint:          "no lower point",
	SlowConvergence:       "slow convergence",
	ObjectiveFailed:       "objective evaluation failed",
	ModifyFailed:          "unable to modify point set",
	IllegalOpcode:         "illegal opcode",
	BadBytecodeHeader:     "bad bytecode header",
	UnexpectedEOF:         "unexpected end of file",
	StackOverflow:         "interpreter stack overflow",
	ModelReturnedFalse:    "model evaluation returned false",
	FPException:           "floating-point exception",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown error"
}

// SolverError is the closed error type propagated by every ParXCL
// component, in place of a mix of booleans and a global error code.
type SolverError struct {
	Kind   Kind
	Name   string // offending identifier or filename, if any
	Detail string
}

func (e *SolverError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Name, e.Detail)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return e.Kind.String()
}

// New builds a SolverError with the given kind and optional offending name.
func New(kind Kind, name string, format string, args ...interface{}) *SolverError {
	return &SolverError{Kind: kind, Name: name, Detail: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a SolverError of the given kind.
func Is(err error, kind Kind) bool {
	se, ok := err.(*SolverError)
	return ok && se.Kind == kind
}
