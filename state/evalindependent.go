// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"github.com/cpmech/gosl/fun/dbf"
)

// Independent is a leaf evaluator for a field prescribed as a function of
// time and space only. It owns its record and recomputes whenever the time
// of its tag has advanced since the last computation.
type Independent struct {
	key      string
	tag      string
	fcn      dbf.T
	lastT    float64
	computed bool
	requests requestSet
}

// NewIndependent returns a new independent-variable evaluator
func NewIndependent(key, tag string, fcn dbf.T) (o *Independent) {
	o = new(Independent)
	o.key = key
	o.tag = tag
	o.fcn = fcn
	o.requests = make(requestSet)
	return
}

// Key returns the field name
func (o *Independent) Key() string { return o.key }

// Tag returns the temporal copy
func (o *Independent) Tag() string { return o.tag }

// Deps returns no dependencies: independents are leaves
func (o *Independent) Deps() []Dep { return nil }

// IsDependency tells whether (key,tag) is a transitive dependency; for an
// independent this holds only for itself
func (o *Independent) IsDependency(s *State, key, tag string) bool {
	return key == o.key && tag == o.tag
}

// EnsureCompatibility resolves the default shape of the field and claims
// ownership of the record, since only this evaluator may write it
func (o *Independent) EnsureCompatibility(s *State) (changed bool, err error) {
	changed, err = s.ensureShape(o.key)
	if err != nil {
		return
	}
	_, err = s.recordSet(o.key).RequireRecord(o.tag, o.key)
	return
}

// Update recomputes the value if the time of this evaluator's tag advanced
func (o *Independent) Update(s *State, requester string) (changed bool) {
	t := s.Time(o.tag)
	if !o.computed || t != o.lastT {
		o.recompute(s, t)
		o.computed = true
		o.lastT = t
		o.requests.reset(requester)
		return true
	}
	return o.requests.seen(requester)
}

// UpdateDerivative handles derivatives of an independent field: they are all
// zero with respect to any other field, so nothing is computed
func (o *Independent) UpdateDerivative(s *State, requester, wrtKey, wrtTag string) (changed bool) {
	return false
}

// recompute evaluates the prescribed function and stores the result under
// this evaluator's ownership
func (o *Independent) recompute(s *State, t float64) {
	r := s.GetRecord(o.key, o.tag)
	switch r.Kind {
	case KindScalar:
		r.SetFloat(o.key, o.fcn.F(t, nil))
	case KindVector:
		v := r.VectorW(o.key)
		for i := 0; i < len(v); i++ {
			var x []float64
			if s.Mesh != nil {
				x = s.Mesh.CellCentroid(i)
			}
			v[i] = o.fcn.F(t, x)
		}
	}
	r.SetInitialized()
}
