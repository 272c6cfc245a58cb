// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package driver implements the cycle driver: the outer loop that walks the
// time periods of a simulation, negotiates time increments with the PK tree,
// retries failed steps, and writes checkpoints.
package driver

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"

	"github.com/ghammond86/amanzi/inp"
	"github.com/ghammond86/amanzi/msh"
	"github.com/ghammond86/amanzi/pk"
	"github.com/ghammond86/amanzi/state"
)

// tolerance for deciding that the end of a period was reached
const timeEps = 1e-10

// Driver runs a simulation: it owns the state, the root PK, and the outer
// time loop over the configured periods.
type Driver struct {

	// input
	Sim  *inp.Simulation // input data
	S    *state.State    // the data manager
	Root pk.PK           // root of the PK tree

	// options
	Verbose bool     // prints time stepping log
	Summary *Summary // checkpoint writer; may be nil

	// control
	started bool     // Start has completed
	comm    msh.Comm // collective reductions of this run
}

// New returns a new driver with the state and root PK built from the input
// data
func New(sim *inp.Simulation, s *state.State) (o *Driver, err error) {
	o = new(Driver)
	o.Sim = sim
	o.S = s
	if s.Mesh != nil {
		o.comm = s.Mesh.Comm()
	} else {
		o.comm = msh.NewComm()
	}
	o.Root, err = pk.New(sim.Root, sim, s)
	if err != nil {
		return nil, err
	}
	return
}

// Start runs the setup/initialize sequence: PK setup, state setup, optional
// restart, PK initialization, state initialization
func (o *Driver) Start() (err error) {
	if o.started {
		return
	}
	err = o.Root.Setup()
	if err != nil {
		return
	}
	err = o.S.Setup()
	if err != nil {
		return
	}
	if o.Sim.Data.ListFds {
		o.S.ListFields()
	}
	if o.Summary != nil && o.Summary.RestartPath != "" {
		err = o.Summary.Read(o.Summary.RestartPath, o.S)
		if err != nil {
			return
		}
	}
	err = o.Root.Initialize()
	if err != nil {
		return
	}
	err = o.S.Initialize()
	if err != nil {
		return
	}
	o.started = true
	return
}

// Run walks all time periods, advancing the PK tree step by step. Failed
// steps are retried with the increment recommended by the tree; too many
// consecutive failures abort the run.
func (o *Driver) Run() (err error) {
	err = o.Start()
	if err != nil {
		return
	}

	t := o.S.Time("")
	o.S.SetInitialTime(t)
	if n := len(o.Sim.Periods); n > 0 {
		o.S.SetFinalTime(o.Sim.Periods[n-1].Tf)
	}

	for iper, per := range o.Sim.Periods {
		if per.Skip || per.Tf <= t+timeEps {
			continue
		}
		err = o.runPeriod(iper, per, &t)
		if err != nil {
			return
		}
		o.S.SetIntermediateTime(per.Tf)
	}
	return
}

// runPeriod advances over one time period until its final time is reached
// exactly
func (o *Driver) runPeriod(iper int, per *inp.TimePeriod, t *float64) (err error) {

	// schedule functions
	var dtFcn, dtoFcn dbf.T
	dtFcn, err = o.Sim.Functions.Get(per.DtFunc)
	if err != nil {
		return chk.Err("period %d: %v", iper, err)
	}
	if per.DtoFunc != "" {
		dtoFcn, err = o.Sim.Functions.Get(per.DtoFunc)
		if err != nil {
			return chk.Err("period %d: %v", iper, err)
		}
	}

	o.S.SetPosition(state.TimePeriodStart)
	ndvg := 0
	tout := *t
	for *t < per.Tf-timeEps {

		// negotiate the increment: PK request, schedule, agreement across
		// processors, distance to the period boundary
		dt := o.Root.Dt()
		if d := dtFcn.F(*t, nil); d < dt {
			dt = d
		}
		dt = o.comm.AllReduceMin(dt)
		if d := per.Tf - *t; d < dt {
			dt = d
		} else if d-dt < o.Sim.Solver.DtMin {
			dt = d // land exactly on the boundary instead of leaving a sliver
		}
		if dt < o.Sim.Solver.DtMin {
			return chk.Err("period %d: time increment %g is smaller than the minimum %g", iper, dt, o.Sim.Solver.DtMin)
		}

		// advance
		fail, e := o.Root.AdvanceStep(*t, *t+dt)
		if e != nil {
			return e
		}
		if fail {
			ndvg++
			if o.Verbose {
				io.Pfred("step failed at t=%g with dt=%g (attempt %d)\n", *t, dt, ndvg)
			}
			if ndvg >= o.Sim.Solver.NdvgMax {
				return chk.Err("period %d: %d consecutive failed steps at t=%g", iper, ndvg, *t)
			}
			continue // the tree now recommends a smaller increment
		}
		ndvg = 0

		// accept
		err = o.Root.CommitStep(*t, *t+dt)
		if err != nil {
			return
		}
		*t += dt
		o.S.SetTime("", *t)
		o.S.SetLastTime(*t)
		o.S.AdvanceCycle()
		if *t >= per.Tf-timeEps {
			o.S.SetPosition(state.TimePeriodEnd)
		} else {
			o.S.SetPosition(state.TimePeriodInside)
		}
		if o.Verbose {
			io.Pf("t=%-14g dt=%-14g cycle=%d\n", *t, dt, o.S.Cycle())
		}

		// output
		if o.Summary != nil {
			atEnd := o.S.Position() == state.TimePeriodEnd
			due := dtoFcn != nil && *t >= tout+dtoFcn.F(*t, nil)-timeEps
			if due || atEnd {
				err = o.Summary.Save(o.S)
				if err != nil {
					return
				}
				tout = *t
			}
		}
	}
	return
}
