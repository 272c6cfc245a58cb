// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package pk implements process kernels (PKs): the couplers that advance the
// physics in time, the tree vectors holding their hierarchical solutions,
// and the implicit integrator driving the strongly-coupled ones.
package pk

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/la"
)

// TreeVector is a vector mirroring the PK tree: a node either holds flat
// data (leaf) or an ordered list of sub-vectors (branch), never both.
type TreeVector struct {
	Data la.Vector     // leaf data; nil for branches
	Subs []*TreeVector // ordered sub-vectors; nil for leaves
}

// NewLeaf returns a new leaf tree vector with n entries
func NewLeaf(n int) *TreeVector {
	return &TreeVector{Data: la.NewVector(n)}
}

// NewBranch returns a new branch tree vector over the given sub-vectors
func NewBranch(subs ...*TreeVector) *TreeVector {
	return &TreeVector{Subs: subs}
}

// IsLeaf tells whether this node holds flat data
func (o *TreeVector) IsLeaf() bool { return o.Subs == nil }

// SubVector returns the i-th sub-vector, or nil if i is out of range or this
// node is a leaf
func (o *TreeVector) SubVector(i int) *TreeVector {
	if i < 0 || i >= len(o.Subs) {
		return nil
	}
	return o.Subs[i]
}

// SameStructure tells whether two tree vectors have identical shape,
// recursively
func (o *TreeVector) SameStructure(v *TreeVector) bool {
	if v == nil {
		return false
	}
	if o.IsLeaf() != v.IsLeaf() {
		return false
	}
	if o.IsLeaf() {
		return len(o.Data) == len(v.Data)
	}
	if len(o.Subs) != len(v.Subs) {
		return false
	}
	for i, sub := range o.Subs {
		if !sub.SameStructure(v.Subs[i]) {
			return false
		}
	}
	return true
}

// AssertSameStructure panics unless v mirrors this vector's shape
func (o *TreeVector) AssertSameStructure(v *TreeVector, msg string) {
	if !o.SameStructure(v) {
		chk.Panic("%s: vector structure does not match PK structure", msg)
	}
}

// Clone returns a deep copy
func (o *TreeVector) Clone() (v *TreeVector) {
	v = new(TreeVector)
	if o.IsLeaf() {
		v.Data = o.Data.GetCopy()
		return
	}
	v.Subs = make([]*TreeVector, len(o.Subs))
	for i, sub := range o.Subs {
		v.Subs[i] = sub.Clone()
	}
	return
}

// CopyFrom copies values from v; shapes must match
func (o *TreeVector) CopyFrom(v *TreeVector) {
	if o.IsLeaf() {
		copy(o.Data, v.Data)
		return
	}
	for i, sub := range o.Subs {
		sub.CopyFrom(v.Subs[i])
	}
}

// PutScalar sets all entries to val
func (o *TreeVector) PutScalar(val float64) {
	if o.IsLeaf() {
		o.Data.Fill(val)
		return
	}
	for _, sub := range o.Subs {
		sub.PutScalar(val)
	}
}

// Axpy performs o += a * x
func (o *TreeVector) Axpy(a float64, x *TreeVector) {
	if o.IsLeaf() {
		la.VecAdd(o.Data, 1, o.Data, a, x.Data)
		return
	}
	for i, sub := range o.Subs {
		sub.Axpy(a, x.Subs[i])
	}
}

// Len returns the total number of entries
func (o *TreeVector) Len() (n int) {
	if o.IsLeaf() {
		return len(o.Data)
	}
	for _, sub := range o.Subs {
		n += sub.Len()
	}
	return
}

// Norm2 returns the Euclidean norm over all entries
func (o *TreeVector) Norm2() float64 {
	return math.Sqrt(o.Dot())
}

// NormMax returns the maximum absolute entry
func (o *TreeVector) NormMax() (res float64) {
	if o.IsLeaf() {
		if len(o.Data) > 0 {
			res = o.Data.Largest(1)
		}
		return
	}
	for _, sub := range o.Subs {
		if r := sub.NormMax(); r > res {
			res = r
		}
	}
	return
}

// Dot returns the sum of squared entries; this is the processor-local part
// of the squared Euclidean norm
func (o *TreeVector) Dot() (res float64) {
	if o.IsLeaf() {
		return la.VecDot(o.Data, o.Data)
	}
	for _, sub := range o.Subs {
		res += sub.Dot()
	}
	return
}
