// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pk

import (
	"github.com/cpmech/gosl/chk"

	"github.com/ghammond86/amanzi/inp"
	"github.com/ghammond86/amanzi/state"
)

// MPC is the weak multi-process coupler: children are advanced sequentially
// over the same time interval, with no iteration between them. The implicit
// integration callbacks fan out to the children so that composite PKs can
// sit at any level of the tree.
type MPC struct {
	name string          // unique name in the PK tree
	sim  *inp.Simulation // input data
	s    *state.State    // the data manager
	kids []PK            // ordered children
	soln *TreeVector     // branch view over the children's solutions
	dt   float64         // imposed time increment
}

// newMPC builds a weak coupler and its children
func newMPC(data *inp.PKData, sim *inp.Simulation, s *state.State) (o *MPC, err error) {
	o = new(MPC)
	o.name = data.Name
	o.sim = sim
	o.s = s
	o.kids, err = newKids(data, sim, s)
	return
}

// Name returns the unique name of this PK
func (o *MPC) Name() string { return o.name }

// Setup delegates to all children and assembles the composite solution view
func (o *MPC) Setup() (err error) {
	for _, kid := range o.kids {
		err = kid.Setup()
		if err != nil {
			return
		}
	}
	subs := make([]*TreeVector, len(o.kids))
	for i, kid := range o.kids {
		subs[i] = kid.Solution()
	}
	o.soln = NewBranch(subs...)
	return
}

// Initialize delegates to all children
func (o *MPC) Initialize() (err error) {
	for _, kid := range o.kids {
		err = kid.Initialize()
		if err != nil {
			return
		}
	}
	return
}

// Dt returns the smallest increment requested by any child
func (o *MPC) Dt() float64 {
	dt := o.kids[0].Dt()
	for _, kid := range o.kids[1:] {
		if d := kid.Dt(); d < dt {
			dt = d
		}
	}
	return dt
}

// SetDt imposes the time increment on all children
func (o *MPC) SetDt(dt float64) {
	o.dt = dt
	for _, kid := range o.kids {
		kid.SetDt(dt)
	}
}

// AdvanceStep advances the children in order; the first failure fails the
// composite step and rolls the already-advanced children back so that the
// whole interval can be retried from the committed solution
func (o *MPC) AdvanceStep(tOld, tNew float64) (fail bool, err error) {
	backup := o.soln.Clone()
	for i, kid := range o.kids {
		fail, err = kid.AdvanceStep(tOld, tNew)
		if fail || err != nil {
			for j := 0; j < i; j++ {
				o.kids[j].Solution().CopyFrom(backup.SubVector(j))
				o.kids[j].ChangedSolution()
			}
			return
		}
	}
	return
}

// CommitStep delegates to all children
func (o *MPC) CommitStep(tOld, tNew float64) (err error) {
	for _, kid := range o.kids {
		err = kid.CommitStep(tOld, tNew)
		if err != nil {
			return
		}
	}
	return
}

// ChangedSolution delegates to all children
func (o *MPC) ChangedSolution() {
	for _, kid := range o.kids {
		kid.ChangedSolution()
	}
}

// Solution returns the composite solution view
func (o *MPC) Solution() *TreeVector { return o.soln }

// fan-out of implicit integration callbacks ///////////////////////////////////////////////////////

// Functional evaluates the time-discrete residual of all children
func (o *MPC) Functional(tOld, tNew float64, uOld, uNew, res *TreeVector) (err error) {
	o.checkStructure(uOld, "Functional")
	o.checkStructure(uNew, "Functional")
	o.checkStructure(res, "Functional")
	for i, kid := range o.kids {
		err = kid.Functional(tOld, tNew, uOld.SubVector(i), uNew.SubVector(i), res.SubVector(i))
		if err != nil {
			return
		}
	}
	return
}

// ApplyPreconditioner applies the children's preconditioners block-wise
func (o *MPC) ApplyPreconditioner(r, pu *TreeVector) (err error) {
	o.checkStructure(r, "ApplyPreconditioner")
	o.checkStructure(pu, "ApplyPreconditioner")
	for i, kid := range o.kids {
		err = kid.ApplyPreconditioner(r.SubVector(i), pu.SubVector(i))
		if err != nil {
			return
		}
	}
	return
}

// UpdatePreconditioner refreshes the children's preconditioners
func (o *MPC) UpdatePreconditioner(t float64, u *TreeVector, h float64) (err error) {
	o.checkStructure(u, "UpdatePreconditioner")
	for i, kid := range o.kids {
		err = kid.UpdatePreconditioner(t, u.SubVector(i), h)
		if err != nil {
			return
		}
	}
	return
}

// ErrorNorm returns the largest error norm reported by any child
func (o *MPC) ErrorNorm(u, du *TreeVector) (norm float64, err error) {
	o.checkStructure(u, "ErrorNorm")
	o.checkStructure(du, "ErrorNorm")
	for i, kid := range o.kids {
		n, e := kid.ErrorNorm(u.SubVector(i), du.SubVector(i))
		if e != nil {
			return 0, e
		}
		if n > norm {
			norm = n
		}
	}
	return
}

// IsAdmissible tells whether all children admit the solution; the first
// rejection rejects the composite
func (o *MPC) IsAdmissible(u *TreeVector) bool {
	o.checkStructure(u, "IsAdmissible")
	for i, kid := range o.kids {
		if !kid.IsAdmissible(u.SubVector(i)) {
			return false
		}
	}
	return true
}

// ModifyPredictor gives every child the chance to alter the initial guess
func (o *MPC) ModifyPredictor(h float64, u0, u *TreeVector) (modified bool) {
	o.checkStructure(u0, "ModifyPredictor")
	o.checkStructure(u, "ModifyPredictor")
	for i, kid := range o.kids {
		if kid.ModifyPredictor(h, u0.SubVector(i), u.SubVector(i)) {
			modified = true
		}
	}
	return
}

// ModifyCorrection gives every child the chance to alter the correction;
// the dominating action wins
func (o *MPC) ModifyCorrection(h float64, res, u, du *TreeVector) (action CorrectionAction) {
	o.checkStructure(res, "ModifyCorrection")
	o.checkStructure(u, "ModifyCorrection")
	o.checkStructure(du, "ModifyCorrection")
	for i, kid := range o.kids {
		action = MaxAction(action, kid.ModifyCorrection(h, res.SubVector(i), u.SubVector(i), du.SubVector(i)))
	}
	return
}

// checkStructure panics unless v mirrors the composite solution
func (o *MPC) checkStructure(v *TreeVector, caller string) {
	if o.soln == nil {
		chk.Panic("MPC %q: %s called before Setup", o.name, caller)
	}
	o.soln.AssertSameStructure(v, "MPC "+o.name+": "+caller)
}

// add weak coupler to factory
func init() {
	SetAllocator("weak mpc", func(data *inp.PKData, sim *inp.Simulation, s *state.State) (PK, error) {
		return newMPC(data, sim, s)
	})
}
