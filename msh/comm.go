// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msh

import (
	"github.com/cpmech/gosl/mpi"
)

// Comm defines the collective reductions shared by all processors of a run.
// Every processor must participate in every call; a processor that skips a
// collective call deadlocks the others.
type Comm interface {
	Rank() int                      // processor id
	Size() int                      // number of processors
	AllReduceSum(x float64) float64 // global sum
	AllReduceMin(x float64) float64 // global minimum
	AllReduceMax(x float64) float64 // global maximum
}

// NewComm returns the communicator for this run: MPI-backed if MPI is on,
// serial otherwise
func NewComm() Comm {
	if mpi.IsOn() {
		return &mpiComm{
			world: mpi.NewCommunicator(nil),
			dest:  []float64{0},
			orig:  []float64{0},
		}
	}
	return new(serialComm)
}

// serialComm implements Comm for single-processor runs
type serialComm struct{}

func (o *serialComm) Rank() int                      { return 0 }
func (o *serialComm) Size() int                      { return 1 }
func (o *serialComm) AllReduceSum(x float64) float64 { return x }
func (o *serialComm) AllReduceMin(x float64) float64 { return x }
func (o *serialComm) AllReduceMax(x float64) float64 { return x }

// mpiComm implements Comm on top of the world MPI communicator
type mpiComm struct {
	world *mpi.Communicator // all processors of this run
	dest  []float64         // reduction result buffer
	orig  []float64         // reduction input buffer
}

func (o *mpiComm) Rank() int { return o.world.Rank() }
func (o *mpiComm) Size() int { return o.world.Size() }

func (o *mpiComm) AllReduceSum(x float64) float64 {
	o.orig[0], o.dest[0] = x, 0
	o.world.AllReduceSum(o.dest, o.orig)
	return o.dest[0]
}

func (o *mpiComm) AllReduceMin(x float64) float64 {
	o.orig[0], o.dest[0] = x, 0
	o.world.AllReduceMin(o.dest, o.orig)
	return o.dest[0]
}

func (o *mpiComm) AllReduceMax(x float64) float64 {
	o.orig[0], o.dest[0] = x, 0
	o.world.AllReduceMax(o.dest, o.orig)
	return o.dest[0]
}
