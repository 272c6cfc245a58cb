// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pk

import (
	"github.com/cpmech/gosl/chk"

	"github.com/ghammond86/amanzi/inp"
	"github.com/ghammond86/amanzi/msh"
	"github.com/ghammond86/amanzi/state"
)

// commOf returns the communicator of the state's mesh, or a serial one when
// the state carries no mesh
func commOf(s *state.State) msh.Comm {
	if s != nil && s.Mesh != nil {
		return s.Mesh.Comm()
	}
	return msh.NewComm()
}

// CorrectionAction reports how a PK modified a Newton correction. The
// actions form a ladder: a lagged modification dominates a plain one, which
// dominates none.
type CorrectionAction int

const (
	NotModified    CorrectionAction = iota // correction taken as computed
	Modified                               // correction was altered
	ModifiedLagged                         // correction was altered; tangent is stale
)

// MaxAction returns the dominating action of two
func MaxAction(a, b CorrectionAction) CorrectionAction {
	if b > a {
		return b
	}
	return a
}

// PK is a process kernel: one physical process, or a coupler over several,
// advanced over time steps. Composite PKs mirror their children in the
// structure of their tree vectors.
type PK interface {

	// identity and lifecycle
	Name() string      // unique name in the PK tree
	Setup() error      // requires fields, evaluators and derivatives
	Initialize() error // sets initial values and pushes them into the state

	// time stepping
	Dt() float64                                           // requested next time increment
	SetDt(dt float64)                                      // imposes the next time increment
	AdvanceStep(tOld, tNew float64) (fail bool, err error) // advances; fail is recoverable
	CommitStep(tOld, tNew float64) error                   // accepts the step; pushes results

	// implicit integration callbacks
	Functional(tOld, tNew float64, uOld, uNew, res *TreeVector) error // time-discrete residual
	ApplyPreconditioner(r, pu *TreeVector) error                      // pu ≈ tangent⁻¹ r
	UpdatePreconditioner(t float64, u *TreeVector, h float64) error   // refreshes the tangent
	ErrorNorm(u, du *TreeVector) (float64, error)                     // scaled correction norm
	IsAdmissible(u *TreeVector) bool                                  // physical admissibility
	ModifyPredictor(h float64, u0, u *TreeVector) bool                // may alter the guess
	ModifyCorrection(h float64, res, u, du *TreeVector) CorrectionAction
	ChangedSolution() // marks primary variables changed in the state

	// solution access
	Solution() *TreeVector // the PK's (possibly hierarchical) solution view
}

// Allocator builds a PK from its input specification
type Allocator func(data *inp.PKData, sim *inp.Simulation, s *state.State) (PK, error)

// pkallocators holds all available PK allocators; maps typename => allocator
var pkallocators = make(map[string]Allocator)

// SetAllocator sets a PK allocator. It panics if there are allocators with
// the same type name (to avoid conflicts).
func SetAllocator(typename string, allocator Allocator) {
	if _, ok := pkallocators[typename]; ok {
		chk.Panic("cannot add PK type %q because another allocator with the same type exists", typename)
	}
	pkallocators[typename] = allocator
}

// New builds the PK named in the input data, recursively building children
// for composite PKs
func New(name string, sim *inp.Simulation, s *state.State) (p PK, err error) {
	data := sim.PKdata(name)
	if data == nil {
		return nil, chk.Err("cannot find PK %q in input data", name)
	}
	allocator, ok := pkallocators[data.Type]
	if !ok {
		return nil, chk.Err("cannot find allocator for PK type %q (PK %q)", data.Type, name)
	}
	return allocator(data, sim, s)
}

// newKids builds all children of a composite PK
func newKids(data *inp.PKData, sim *inp.Simulation, s *state.State) (kids []PK, err error) {
	if len(data.Kids) < 1 {
		return nil, chk.Err("composite PK %q has no children", data.Name)
	}
	kids = make([]PK, len(data.Kids))
	for i, kname := range data.Kids {
		kids[i], err = New(kname, sim, s)
		if err != nil {
			return nil, err
		}
	}
	return
}
