// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"github.com/cpmech/gosl/chk"
)

// Kind is the data kind discriminator of a record
type Kind string

// available kinds
const (
	KindScalar Kind = "scalar" // one float64
	KindVector Kind = "vector" // one []float64; e.g. a cell field
)

// Record wraps exactly one datum for one (key,tag) pair. At most one owner
// may write the datum; everyone else gets read-only access.
type Record struct {

	// identity and metadata
	Key         string // field name
	Tag         string // temporal copy
	Kind        Kind   // data kind
	Owner       string // the only entity permitted to mutate this record
	Initialized bool   // whether the datum has received its initial value

	// type-erased storage
	scalar float64
	vector []float64
}

// AssertOwner panics (ownership violation) unless owner matches the
// registered owner of this record
func (o *Record) AssertOwner(owner string) {
	if owner != o.Owner {
		chk.Panic("ownership violation: %q cannot write to record {key=%q, tag=%q} owned by %q",
			owner, o.Key, o.Tag, o.Owner)
	}
}

// Float returns the scalar datum (read-only access)
func (o *Record) Float() float64 {
	if o.Kind != KindScalar {
		chk.Panic("record {key=%q, tag=%q} holds %q data, not a scalar", o.Key, o.Tag, o.Kind)
	}
	return o.scalar
}

// Vector returns the vector datum. The returned slice must be treated as
// read-only by non-owners.
func (o *Record) Vector() []float64 {
	if o.Kind != KindVector {
		chk.Panic("record {key=%q, tag=%q} holds %q data, not a vector", o.Key, o.Tag, o.Kind)
	}
	return o.vector
}

// SetFloat sets the scalar datum under the given ownership
func (o *Record) SetFloat(owner string, v float64) {
	o.AssertOwner(owner)
	if o.Kind != KindScalar {
		chk.Panic("record {key=%q, tag=%q} holds %q data, not a scalar", o.Key, o.Tag, o.Kind)
	}
	o.scalar = v
}

// VectorW returns the vector datum for writing, under the given ownership
func (o *Record) VectorW(owner string) []float64 {
	o.AssertOwner(owner)
	if o.Kind != KindVector {
		chk.Panic("record {key=%q, tag=%q} holds %q data, not a vector", o.Key, o.Tag, o.Kind)
	}
	return o.vector
}

// SetInitialized marks the record as holding its initial value
func (o *Record) SetInitialized() { o.Initialized = true }

// allocate sizes the storage of a vector record; returns true if anything
// changed
func (o *Record) allocate(n int) bool {
	if o.Kind == KindVector && len(o.vector) != n {
		o.vector = make([]float64, n)
		return true
	}
	return false
}
