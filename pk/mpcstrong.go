// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pk

import (
	"github.com/ghammond86/amanzi/inp"
	"github.com/ghammond86/amanzi/state"
)

// MPCStrong couples its children implicitly: one integrator advances the
// composite solution, and the integration callbacks fan out block-wise to
// the children. Children never step on their own.
type MPCStrong struct {
	MPC             // fan-out of callbacks and tree bookkeeping
	ti      *BDF1   // the implicit integrator over the composite
	dtRec   float64 // increment recommended by the last step
	Verbose bool    // prints integrator iteration log
}

// newMPCStrong builds a strong coupler and its children
func newMPCStrong(data *inp.PKData, sim *inp.Simulation, s *state.State) (o *MPCStrong, err error) {
	o = new(MPCStrong)
	o.name = data.Name
	o.sim = sim
	o.s = s
	o.kids, err = newKids(data, sim, s)
	return
}

// Setup delegates to the children and creates the integrator over the
// assembled composite solution
func (o *MPCStrong) Setup() (err error) {
	err = o.MPC.Setup()
	if err != nil {
		return
	}
	o.ti = NewBDF1(o, &o.sim.Solver, commOf(o.s))
	o.ti.Verbose = o.Verbose
	return
}

// Dt returns the next increment: the children's smallest request, capped by
// the integrator's recommendation
func (o *MPCStrong) Dt() float64 {
	dt := o.MPC.Dt()
	if o.dtRec > 0 && o.dtRec < dt {
		dt = o.dtRec
	}
	return dt
}

// AdvanceStep performs one implicit step over the composite solution
func (o *MPCStrong) AdvanceStep(tOld, tNew float64) (fail bool, err error) {
	o.ti.Verbose = o.Verbose
	o.dtRec, fail, err = o.ti.Step(tOld, tNew)
	return
}

// add strong coupler to factory
func init() {
	SetAllocator("strong mpc", func(data *inp.PKData, sim *inp.Simulation, s *state.State) (PK, error) {
		return newMPCStrong(data, sim, s)
	})
}
