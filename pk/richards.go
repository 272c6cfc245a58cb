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

// RichardsCell is a lumped single-cell storage model standing in for a
// Richards-type flow kernel:
//
//	d(wc)/dt = -k p + q(t),  wc = c p
//
// with primary field p, storage wc computed by a secondary evaluator, and a
// source q given by an independent evaluator. All data flows through the
// state.
type RichardsCell struct {

	// input
	name string          // unique name in the PK tree
	sim  *inp.Simulation // input data
	s    *state.State    // the data manager

	// field keys
	pkey  string // primary field
	wckey string // storage field (secondary)
	qkey  string // source field (independent); may be empty

	// parameters
	kcoef float64 // conductance coefficient
	ccoef float64 // storage coefficient

	// runtime
	prim *state.Primary // evaluator of the primary field
	soln *TreeVector    // solution view (one entry)
	ti   *BDF1          // integrator for stand-alone stepping
	jac  float64        // current tangent
	dt   float64        // next increment
}

// newRichardsCell builds a lumped Richards cell
func newRichardsCell(data *inp.PKData, sim *inp.Simulation, s *state.State) (o *RichardsCell, err error) {
	o = new(RichardsCell)
	o.name = data.Name
	o.sim = sim
	o.s = s
	o.pkey = "pressure"
	o.wckey = "water content"
	if len(data.Flds) > 0 {
		o.pkey = data.Flds[0]
	}
	if len(data.Flds) > 1 {
		o.wckey = data.Flds[1]
	}
	if len(data.Flds) > 2 {
		o.qkey = data.Flds[2]
	}
	o.kcoef = data.Prm("k", 1.0)
	o.ccoef = data.Prm("storage", 1.0)
	o.dt = data.Prm("dt0", 1.0)
	return
}

// Name returns the unique name of this PK
func (o *RichardsCell) Name() string { return o.name }

// Setup requires the fields, evaluators and derivatives of this PK
func (o *RichardsCell) Setup() (err error) {

	// primary field, owned by this PK
	err = o.s.Require(o.pkey, "", o.name, state.KindScalar)
	if err != nil {
		return
	}
	if !o.s.HasEvaluator(o.pkey, "") {
		o.s.SetEvaluator(o.pkey, "", state.NewPrimary(o.pkey, ""))
	}
	prim, ok := o.s.GetEvaluator(o.pkey, "").(*state.Primary)
	if !ok {
		return chk.Err("PK %q: field %q must have a primary evaluator", o.name, o.pkey)
	}
	o.prim = prim

	// storage field, computed by a secondary evaluator
	err = o.s.Require(o.wckey, "", "", state.KindScalar)
	if err != nil {
		return
	}
	if !o.s.HasEvaluator(o.wckey, "") {
		deps := []state.Dep{{Key: o.pkey}}
		fcn := func(s *state.State, res []float64) {
			res[0] = o.ccoef * s.GetFloat(o.pkey, "")
		}
		dfcn := func(s *state.State, wrtKey, wrtTag string, res []float64) {
			res[0] = o.ccoef
		}
		o.s.SetEvaluator(o.wckey, "", state.NewSecondary(o.wckey, "", deps, fcn, dfcn))
	}
	err = o.s.RequireDerivative(o.wckey, "", o.pkey, "", "", state.KindScalar)
	if err != nil {
		return
	}

	// source field, provided by an independent evaluator from the input
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

// Initialize sets the initial pressure and pushes it into the state. A
// record already initialized (restart) keeps its restored value.
func (o *RichardsCell) Initialize() (err error) {
	if r := o.s.GetRecord(o.pkey, ""); r.Initialized {
		o.soln.Data[0] = r.Float()
		o.prim.SetChanged()
		return
	}
	ic := 0.0
	if spec := o.sim.FieldSpec(o.pkey); spec != nil && spec.HasIc {
		ic = spec.IcVal
	}
	o.soln.Data[0] = ic
	o.pushSolution()
	o.s.GetRecord(o.pkey, "").SetInitialized()
	return
}

// Dt returns the next increment
func (o *RichardsCell) Dt() float64 { return o.dt }

// SetDt imposes the next increment
func (o *RichardsCell) SetDt(dt float64) { o.dt = dt }

// AdvanceStep advances this PK on its own (stand-alone or weakly coupled)
func (o *RichardsCell) AdvanceStep(tOld, tNew float64) (fail bool, err error) {
	o.dt, fail, err = o.ti.Step(tOld, tNew)
	return
}

// CommitStep accepts the step and pushes results into the state
func (o *RichardsCell) CommitStep(tOld, tNew float64) (err error) {
	o.pushSolution()
	return
}

// Functional computes the backward-Euler residual of the storage balance
func (o *RichardsCell) Functional(tOld, tNew float64, uOld, uNew, res *TreeVector) (err error) {
	h := tNew - tOld
	pOld := uOld.Data[0]
	pNew := uNew.Data[0]

	// storage at tNew through the dependency graph
	o.s.SetFloat(o.pkey, "", o.name, pNew)
	o.prim.SetChanged()
	o.s.GetEvaluator(o.wckey, "").Update(o.s, o.name)
	wcNew := o.s.GetFloat(o.wckey, "")
	wcOld := o.ccoef * pOld

	// source at tNew
	q := 0.0
	if o.qkey != "" {
		o.s.SetTime("", tNew)
		o.s.GetEvaluator(o.qkey, "").Update(o.s, o.name)
		q = o.s.GetFloat(o.qkey, "")
	}

	res.Data[0] = (wcNew-wcOld)/h + o.kcoef*pNew - q
	return
}

// ApplyPreconditioner applies the inverse of the scalar tangent
func (o *RichardsCell) ApplyPreconditioner(r, pu *TreeVector) (err error) {
	pu.Data[0] = r.Data[0] / o.jac
	return
}

// UpdatePreconditioner refreshes the tangent using the storage derivative
// from the dependency graph
func (o *RichardsCell) UpdatePreconditioner(t float64, u *TreeVector, h float64) (err error) {
	o.s.SetFloat(o.pkey, "", o.name, u.Data[0])
	o.prim.SetChanged()
	o.s.GetEvaluator(o.wckey, "").UpdateDerivative(o.s, o.name, o.pkey, "")
	dwc := o.s.GetDerivFloat(o.wckey, "", o.pkey, "")
	o.jac = dwc/h + o.kcoef
	return
}

// ErrorNorm returns the scaled correction norm
func (o *RichardsCell) ErrorNorm(u, du *TreeVector) (norm float64, err error) {
	sol := &o.sim.Solver
	norm = math.Abs(du.Data[0]) / (sol.Atol + sol.Rtol*math.Abs(u.Data[0]))
	return
}

// IsAdmissible admits any pressure
func (o *RichardsCell) IsAdmissible(u *TreeVector) bool { return true }

// ModifyPredictor keeps the constant predictor
func (o *RichardsCell) ModifyPredictor(h float64, u0, u *TreeVector) bool { return false }

// ModifyCorrection keeps the correction as computed
func (o *RichardsCell) ModifyCorrection(h float64, res, u, du *TreeVector) CorrectionAction {
	return NotModified
}

// ChangedSolution marks the primary field changed in the state
func (o *RichardsCell) ChangedSolution() {
	o.pushSolution()
}

// Solution returns the solution view
func (o *RichardsCell) Solution() *TreeVector { return o.soln }

// pushSolution copies the solution into the state and marks it changed
func (o *RichardsCell) pushSolution() {
	o.s.SetFloat(o.pkey, "", o.name, o.soln.Data[0])
	o.prim.SetChanged()
}

// add lumped Richards cell to factory
func init() {
	SetAllocator("richards cell", func(data *inp.PKData, sim *inp.Simulation, s *state.State) (PK, error) {
		return newRichardsCell(data, sim, s)
	})
}
