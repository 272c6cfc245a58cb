// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"github.com/cpmech/gosl/chk"
)

// SecondaryMulti is a secondary evaluator whose dependencies may mix data
// kinds: each dependency keeps its own kind and shape instead of taking this
// field's. Values update exactly like the monotype variant. The chain rule
// of UpdateDerivative is inherited and therefore only valid along chains
// that share this field's kind; mixed-kind dependencies serve value
// computations.
type SecondaryMulti struct {
	SecondaryMono
	depKinds []Kind // kind per dependency; "" accepts the dependency's own
}

// NewSecondaryMulti returns a new mixed-kind secondary evaluator. depKinds
// pairs with deps by position; a missing or empty entry leaves the
// dependency's kind alone.
func NewSecondaryMulti(key, tag string, deps []Dep, depKinds []Kind, fcn EvalFcn, dfcn DerivFcn) (o *SecondaryMulti) {
	if len(depKinds) > len(deps) {
		chk.Panic("secondary evaluator %q has %d dependency kinds for %d dependencies",
			KeyTag(key, tag), len(depKinds), len(deps))
	}
	o = new(SecondaryMulti)
	o.SecondaryMono = *NewSecondary(key, tag, deps, fcn, dfcn)
	o.depKinds = depKinds
	return
}

// EnsureCompatibility resolves this field's shape and registers all
// dependencies with their own kinds; no shape is forced on them
func (o *SecondaryMulti) EnsureCompatibility(s *State) (changed bool, err error) {
	changed, err = s.ensureShape(o.key)
	if err != nil {
		return
	}
	rs := s.recordSet(o.key)
	_, err = rs.RequireRecord(o.tag, o.key)
	if err != nil {
		return
	}
	for i, dep := range o.deps {
		kind := Kind("")
		if i < len(o.depKinds) {
			kind = o.depKinds[i]
		}
		c, e := s.requireDep(dep, kind, 0)
		if e != nil {
			return changed, chk.Err("evaluator %q: %v", KeyTag(o.key, o.tag), e)
		}
		if c {
			changed = true
		}
	}
	return
}
