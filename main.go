// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
	"github.com/cpmech/gosl/mpi"

	"github.com/ghammond86/amanzi/driver"
	"github.com/ghammond86/amanzi/inp"
	"github.com/ghammond86/amanzi/msh"
	"github.com/ghammond86/amanzi/state"
)

func main() {

	// catch errors
	defer func() {
		if err := recover(); err != nil {
			io.Pfred("ERROR: %v\n", err)
		}
		if mpi.IsOn() {
			mpi.Stop()
		}
	}()
	mpi.Start()
	verbose := true
	if mpi.IsOn() && mpi.WorldRank() != 0 {
		verbose = false
	}

	// simulation filename
	simfn, _ := io.ArgToFilename(0, "data/richards", ".sim", true)

	// read input
	sim := inp.ReadSim(simfn, verbose)
	if sim == nil {
		chk.Panic("cannot read simulation input file %q", simfn)
	}

	// state over a uniform grid
	mesh := msh.NewUniformGrid(sim.Data.Ncells, sim.Data.Length)
	s := state.NewState(sim, mesh)

	// driver
	dr, err := driver.New(sim, s)
	if err != nil {
		chk.Panic("cannot create driver:\n%v", err)
	}
	dr.Verbose = verbose
	dr.Summary = &driver.Summary{DirOut: sim.Data.DirOut, FnKey: sim.Key, EncType: sim.EncType}

	// run
	err = dr.Run()
	if err != nil {
		chk.Panic("simulation failed:\n%v", err)
	}
	if verbose {
		io.Pf("simulation finished: t=%g cycles=%d\n", s.Time(""), s.Cycle())
	}
}
