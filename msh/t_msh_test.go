// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msh

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

func Test_grid01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("grid01. uniform grid geometry")

	g := NewUniformGrid(4, 2.0)
	chk.IntAssert(g.NumCells(), 4)
	chk.IntAssert(g.NumCellsOwned(), 4)

	// volumes tile the domain
	sum := 0.0
	for i := 0; i < g.NumCells(); i++ {
		sum += g.CellVolume(i)
	}
	chk.Float64(tst, "total volume", 1e-15, sum, 2.0)

	// centroids sit at cell midpoints
	chk.Float64(tst, "centroid 0", 1e-15, g.CellCentroid(0)[0], 0.25)
	chk.Float64(tst, "centroid 3", 1e-15, g.CellCentroid(3)[0], 1.75)

	// serial scatter only checks the length contract
	g.ScatterGhosts(make([]float64, 4))
}

func Test_comm01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("comm01. serial reductions are the identity")

	c := NewUniformGrid(1, 1.0).Comm()
	chk.IntAssert(c.Rank(), 0)
	chk.IntAssert(c.Size(), 1)
	chk.Float64(tst, "sum", 1e-15, c.AllReduceSum(3.5), 3.5)
	chk.Float64(tst, "min", 1e-15, c.AllReduceMin(-1.5), -1.5)
	chk.Float64(tst, "max", 1e-15, c.AllReduceMax(9.0), 9.0)
}
