package numdat

import (
	"github.com/mgmiddelhoek/ParXCL/model"
	"github.com/mgmiddelhoek/ParXCL/vecmat"
)

// XSet is one measurement point: its transposed measured x, relative and
// absolute precisions, the δ filled by the distance solver, and the
// scalar residual norm left after a solve.
type XSet struct {
	ID int

	Val    vecmat.Vector // transposed measured x
	Err    vecmat.Vector // relative precisions
	AbsErr vecmat.Vector // absolute precisions
	Delta  vecmat.Vector // δ filled by the solver
	Res    float64       // scalar residual norm, -1 if not (re)evaluated

	Row *Row // originating data-table row, for write-back
}

// XGroup is a named group of XSets (ACTIVE, UNSELECTED, FAILED, or an
// arbitrary user group id).
type XGroup struct {
	ID    GroupID
	XSets []*XSet
}

func (g *XGroup) Count() int { return len(g.XSets) }

// NumBlock is the solver-facing materialization of (model, system, data):
// dimensions, evaluator handle, owned parameter/constant/flag/aux
// vectors, and the xgroup list. Built at the start of each
// simulate/extract command and discarded at the end; Templates outlive
// it.
type NumBlock struct {
	Dims model.Dims

	Evaluator model.Evaluator

	P vecmat.Vector // current parameter values, owned
	C vecmat.Vector // constants
	F vecmat.Vector // flags
	A vecmat.Vector // auxiliary defaults

	PLower, PUpper vecmat.Vector // parameter box bounds

	Groups []*XGroup

	// xtrans/ptrans: the model indices of the externals that simulate
	// solves for, and of the parameters, in order. MakeNumBlock fills both
	// with every index in model order; it does not derive them from the
	// StateFlags.
	XTrans []int
	PTrans []int
}

// Group returns the group with the given id, or nil.
func (nb *NumBlock) Group(id GroupID) *XGroup {
	for _, g := range nb.Groups {
		if g.ID == id {
			return g
		}
	}
	return nil
}

// EnsureGroup returns the group with the given id, creating an empty one
// if absent (used when demoting points into UNSELECTED/FAILED for the
// first time).
func (nb *NumBlock) EnsureGroup(id GroupID) *XGroup {
	if g := nb.Group(id); g != nil {
		return g
	}
	g := &XGroup{ID: id}
	nb.Groups = append(nb.Groups, g)
	return g
}

// TotalCount sums XSet counts across all groups, which must equal the
// number of data rows throughout a run.
func (nb *NumBlock) TotalCount() int {
	n := 0
	for _, g := range nb.Groups {
		n += g.Count()
	}
	return n
}

// MakeNumBlock builds a NumBlock from a model/system template and a data
// table: every row becomes an XSet
// in the ACTIVE group (rows tagged with the UNSELECTED grpid go to
// UNSELECTED and rows with a negative grpid to FAILED instead), Val/Err
// are copied from the table columns named after the model's externals,
// and xtrans/ptrans list every external and parameter in model order.
func MakeNumBlock(mt *ModelTemplate, st *SystemTemplate, dt *DataTable, ev model.Evaluator) *NumBlock {
	nr, nx, na, np, nc, nf := mt.Dims()
	nb := &NumBlock{
		Dims:      model.Dims{NR: nr, NX: nx, NA: na, NP: np, NC: nc, NF: nf},
		Evaluator: ev,
		P:         vecmat.NewVector(np),
		C:         vecmat.NewVector(nc),
		F:         vecmat.NewVector(nf),
		A:         vecmat.NewVector(na),
		PLower:    vecmat.NewVector(np),
		PUpper:    vecmat.NewVector(np),
	}
	for i, pv := range st.Parameters {
		nb.P[i] = pv.Val
		nb.PLower[i] = pv.Lower
		nb.PUpper[i] = pv.Upper
	}
	for i, cv := range st.Constants {
		nb.C[i] = cv.Val
	}
	for i, fv := range st.Flags {
		nb.F[i] = fv.Val
	}
	copy(nb.A, mt.XDefault) // placeholder seed; refined per-point below

	nb.XTrans = make([]int, nx)
	for i := range nb.XTrans {
		nb.XTrans[i] = i
	}
	nb.PTrans = make([]int, np)
	for i := range nb.PTrans {
		nb.PTrans[i] = i
	}

	nb.EnsureGroup(Active)
	for idx := range dt.Rows {
		row := &dt.Rows[idx]
		xs := &XSet{
			ID:     row.RowID,
			Val:    vecmat.NewVector(nx),
			Err:    vecmat.NewVector(nx),
			AbsErr: vecmat.NewVector(nx),
			Delta:  vecmat.NewVector(nx),
			Row:    row,
		}
		for i, col := range dt.Header {
			j := -1
			for k, name := range mt.Externals {
				if name == col.Name {
					j = k
					break
				}
			}
			if j < 0 || i >= len(row.Val) {
				continue
			}
			xs.Val[j] = row.Val[i]
			if i < len(row.Err) {
				xs.Err[j] = row.Err[i]
			}
		}
		grp := Active
		if row.GrpID == int(Unselected) {
			grp = Unselected
		} else if row.GrpID < 0 {
			grp = Failed
		}
		g := nb.EnsureGroup(grp)
		g.XSets = append(g.XSets, xs)
	}
	return nb
}
