// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pk

import (
	"math"

	"github.com/cpmech/gosl/chk"

	"github.com/ghammond86/amanzi/inp"
	"github.com/ghammond86/amanzi/state"
)

// ShallowWaterBox is a lumped reservoir standing in for a shallow-water
// kernel:
//
//	a dH/dt = qin(t) - cout H
//
// with primary depth H. Negative depths are inadmissible and corrections
// driving the depth negative are clipped.
type ShallowWaterBox struct {

	// input
	name string          // unique name in the PK tree
	sim  *inp.Simulation // input data
	s    *state.State    // the data manager

	// field keys
	hkey string // primary depth field
	qkey string // inflow field (independent); may be empty

	// parameters
	area float64 // plan area of the reservoir
	cout float64 // outflow coefficient

	// runtime
	prim *state.Primary // evaluator of the depth field
	soln *TreeVector    // solution view (one entry)
	ti   *BDF1          // integrator for stand-alone stepping
	jac  float64        // current tangent
	dt   float64        // next increment
}

// newShallowWaterBox builds a lumped reservoir
func newShallowWaterBox(data *inp.PKData, sim *inp.Simulation, s *state.State) (o *ShallowWaterBox, err error) {
	o = new(ShallowWaterBox)
	o.name = data.Name
	o.sim = sim
	o.s = s
	o.hkey = "ponded depth"
	if len(data.Flds) > 0 {
		o.hkey = data.Flds[0]
	}
	if len(data.Flds) > 1 {
		o.qkey = data.Flds[1]
	}
	o.area = data.Prm("area", 1.0)
	o.cout = data.Prm("cout", 1.0)
	o.dt = data.Prm("dt0", 1.0)
	return
}

// Name returns the unique name of this PK
func (o *ShallowWaterBox) Name() string { return o.name }

// Setup requires the depth and inflow fields
func (o *ShallowWaterBox) Setup() (err error) {
	err = o.s.Require(o.hkey, "", o.name, state.KindScalar)
	if err != nil {
		return
	}
	if !o.s.HasEvaluator(o.hkey, "") {
		o.s.SetEvaluator(o.hkey, "", state.NewPrimary(o.hkey, ""))
	}
	prim, ok := o.s.GetEvaluator(o.hkey, "").(*state.Primary)
	if !ok {
		return chk.Err("PK %q: field %q must have a primary evaluator", o.name, o.hkey)
	}
	o.prim = prim
	if o.qkey != "" {
		err = o.s.Require(o.qkey, "", "", state.KindScalar)
		if err != nil {
			return
		}
		_, err = o.s.RequireEvaluator(o.qkey, "")
		if err != nil {
			return
		}
	}
	o.soln = NewLeaf(1)
	o.ti = NewBDF1(o, &o.sim.Solver, commOf(o.s))
	return
}

// Initialize sets the initial depth and pushes it into the state. A record
// already initialized (restart) keeps its restored value.
func (o *ShallowWaterBox) Initialize() (err error) {
	if r := o.s.GetRecord(o.hkey, ""); r.Initialized {
		o.soln.Data[0] = r.Float()
		o.prim.SetChanged()
		return
	}
	ic := 0.0
	if spec := o.sim.FieldSpec(o.hkey); spec != nil && spec.HasIc {
		ic = spec.IcVal
	}
	if ic < 0 {
		return chk.Err("PK %q: initial depth %g is negative", o.name, ic)
	}
	o.soln.Data[0] = ic
	o.pushSolution()
	o.s.GetRecord(o.hkey, "").SetInitialized()
	return
}

// Dt returns the next increment
func (o *ShallowWaterBox) Dt() float64 { return o.dt }

// SetDt imposes the next increment
func (o *ShallowWaterBox) SetDt(dt float64) { o.dt = dt }

// AdvanceStep advances this PK on its own (stand-alone or weakly coupled)
func (o *ShallowWaterBox) AdvanceStep(tOld, tNew float64) (fail bool, err error) {
	o.dt, fail, err = o.ti.Step(tOld, tNew)
	return
}

// CommitStep accepts the step and pushes results into the state
func (o *ShallowWaterBox) CommitStep(tOld, tNew float64) (err error) {
	o.pushSolution()
	return
}

// Functional computes the backward-Euler residual of the water balance
func (o *ShallowWaterBox) Functional(tOld, tNew float64, uOld, uNew, res *TreeVector) (err error) {
	h := tNew - tOld
	q := 0.0
	if o.qkey != "" {
		o.s.SetTime("", tNew)
		o.s.GetEvaluator(o.qkey, "").Update(o.s, o.name)
		q = o.s.GetFloat(o.qkey, "")
	}
	res.Data[0] = o.area*(uNew.Data[0]-uOld.Data[0])/h + o.cout*uNew.Data[0] - q
	return
}

// ApplyPreconditioner applies the inverse of the scalar tangent
func (o *ShallowWaterBox) ApplyPreconditioner(r, pu *TreeVector) (err error) {
	pu.Data[0] = r.Data[0] / o.jac
	return
}

// UpdatePreconditioner refreshes the tangent
func (o *ShallowWaterBox) UpdatePreconditioner(t float64, u *TreeVector, h float64) (err error) {
	o.jac = o.area/h + o.cout
	return
}

// ErrorNorm returns the scaled correction norm
func (o *ShallowWaterBox) ErrorNorm(u, du *TreeVector) (norm float64, err error) {
	sol := &o.sim.Solver
	norm = math.Abs(du.Data[0]) / (sol.Atol + sol.Rtol*math.Abs(u.Data[0]))
	return
}

// IsAdmissible rejects negative depths
func (o *ShallowWaterBox) IsAdmissible(u *TreeVector) bool {
	return u.Data[0] >= 0
}

// ModifyPredictor keeps the constant predictor
func (o *ShallowWaterBox) ModifyPredictor(h float64, u0, u *TreeVector) bool { return false }

// ModifyCorrection clips corrections that would drive the depth negative
func (o *ShallowWaterBox) ModifyCorrection(h float64, res, u, du *TreeVector) CorrectionAction {
	if u.Data[0]-du.Data[0] < 0 {
		du.Data[0] = u.Data[0]
		return Modified
	}
	return NotModified
}

// ChangedSolution marks the depth field changed in the state
func (o *ShallowWaterBox) ChangedSolution() {
	o.pushSolution()
}

// Solution returns the solution view
func (o *ShallowWaterBox) Solution() *TreeVector { return o.soln }

// pushSolution copies the solution into the state and marks it changed
func (o *ShallowWaterBox) pushSolution() {
	o.s.SetFloat(o.hkey, "", o.name, o.soln.Data[0])
	o.prim.SetChanged()
}

// add lumped reservoir to factory
func init() {
	SetAllocator("shallow water box", func(data *inp.PKData, sim *inp.Simulation, s *state.State) (PK, error) {
		return newShallowWaterBox(data, sim, s)
	})
}
