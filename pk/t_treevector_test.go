// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pk

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_treevec01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("treevec01. structure, copies and norms")

	// (3) + ((2) + (1))
	u := NewBranch(NewLeaf(3), NewBranch(NewLeaf(2), NewLeaf(1)))
	chk.IntAssert(u.Len(), 6)
	u.PutScalar(2.0)
	chk.Float64(tst, "norm2", 1e-14, u.Norm2(), 2.0*2.449489742783178)
	chk.Float64(tst, "normmax", 1e-15, u.NormMax(), 2.0)

	// clones are deep and structure-identical
	v := u.Clone()
	if !u.SameStructure(v) {
		tst.Errorf("clone should have the same structure\n")
		return
	}
	v.Subs[0].Data[0] = 7.0
	chk.Float64(tst, "original untouched", 1e-15, u.Subs[0].Data[0], 2.0)

	// axpy works across the hierarchy
	w := u.Clone()
	w.Axpy(-1, u)
	chk.Float64(tst, "w=0 after axpy", 1e-15, w.Norm2(), 0.0)

	// different shapes are detected
	if u.SameStructure(NewBranch(NewLeaf(3), NewLeaf(3))) {
		tst.Errorf("different nesting should not match\n")
		return
	}
	if u.SameStructure(nil) {
		tst.Errorf("nil should not match\n")
		return
	}
	if NewLeaf(3).SameStructure(NewLeaf(4)) {
		tst.Errorf("different leaf sizes should not match\n")
		return
	}
}
