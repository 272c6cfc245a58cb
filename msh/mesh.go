// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package msh provides access to mesh/geometry data and to the collective
// communication primitives of a distributed run. The mesh itself is an
// external service; simulations only see the interface defined here.
package msh

import (
	"github.com/cpmech/gosl/chk"
)

// Mesh defines the geometric queries needed by evaluators and process kernels
type Mesh interface {
	NumCells() int                // number of cells on this processor, including ghosts
	NumCellsOwned() int           // number of cells owned by this processor
	CellVolume(i int) float64     // volume of cell i
	CellCentroid(i int) []float64 // centroid of cell i
	Comm() Comm                   // collective communication primitive

	// ScatterGhosts pushes owned values into the ghost entries of vals.
	// This is an explicit synchronisation point: every processor must call it,
	// with vals holding NumCells entries.
	ScatterGhosts(vals []float64)
}

// UniformGrid implements a uniform one-dimensional mesh with ncells cells
// covering [0, length]. It is serial: all cells are owned and there are no
// ghost entries.
type UniformGrid struct {
	Ncells int     // number of cells
	Dx     float64 // cell size
	comm   Comm    // communicator
}

// NewUniformGrid returns a new uniform grid
func NewUniformGrid(ncells int, length float64) (o *UniformGrid) {
	if ncells < 1 {
		chk.Panic("grid needs at least one cell. ncells=%d is invalid", ncells)
	}
	o = new(UniformGrid)
	o.Ncells = ncells
	o.Dx = length / float64(ncells)
	o.comm = NewComm()
	return
}

// NumCells returns the number of cells including ghosts
func (o *UniformGrid) NumCells() int { return o.Ncells }

// NumCellsOwned returns the number of owned cells
func (o *UniformGrid) NumCellsOwned() int { return o.Ncells }

// CellVolume returns the volume (length) of cell i
func (o *UniformGrid) CellVolume(i int) float64 { return o.Dx }

// CellCentroid returns the centroid of cell i
func (o *UniformGrid) CellCentroid(i int) []float64 {
	return []float64{(float64(i) + 0.5) * o.Dx}
}

// Comm returns the communicator
func (o *UniformGrid) Comm() Comm { return o.comm }

// ScatterGhosts refreshes ghost values from owned data. The serial grid has
// no ghost entries; only the length contract is checked.
func (o *UniformGrid) ScatterGhosts(vals []float64) {
	if len(vals) != o.Ncells {
		chk.Panic("cannot scatter ghosts: len(vals)=%d must equal ncells=%d", len(vals), o.Ncells)
	}
}
