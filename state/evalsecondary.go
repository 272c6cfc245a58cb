// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"github.com/cpmech/gosl/chk"
)

// EvalFcn computes the value of a secondary field into res, reading
// dependencies through the state. Scalar fields use len(res)==1.
type EvalFcn func(s *State, res []float64)

// DerivFcn computes the partial derivative of a secondary field with respect
// to one of its direct dependencies into res
type DerivFcn func(s *State, wrtKey, wrtTag string, res []float64)

// SecondaryMono is an internal node of the dependency graph: a field computed
// from an explicit ordered list of dependencies, all of the same data kind.
// Derivatives with respect to any transitive dependency are obtained with the
// chain rule; intermediate derivatives along the active chain are cached in
// the state so results do not depend on request order.
type SecondaryMono struct {
	key           string
	tag           string
	deps          []Dep
	fcn           EvalFcn
	dfcn          DerivFcn
	requests      requestSet
	derivRequests requestSet
}

// NewSecondary returns a new secondary evaluator with the given ordered
// dependencies and computation callbacks
func NewSecondary(key, tag string, deps []Dep, fcn EvalFcn, dfcn DerivFcn) (o *SecondaryMono) {
	if fcn == nil {
		chk.Panic("secondary evaluator %q requires an evaluation function", KeyTag(key, tag))
	}
	o = new(SecondaryMono)
	o.key = key
	o.tag = tag
	o.deps = deps
	o.fcn = fcn
	o.dfcn = dfcn
	o.requests = make(requestSet)
	o.derivRequests = make(requestSet)
	return
}

// Key returns the field name
func (o *SecondaryMono) Key() string { return o.key }

// Tag returns the temporal copy
func (o *SecondaryMono) Tag() string { return o.tag }

// Deps returns the declared dependencies in order
func (o *SecondaryMono) Deps() []Dep { return o.deps }

// IsDependency tells whether (key,tag) is a direct or transitive dependency
func (o *SecondaryMono) IsDependency(s *State, key, tag string) bool {
	for _, dep := range o.deps {
		if dep.Key == key && dep.Tag == tag {
			return true
		}
	}
	for _, dep := range o.deps {
		if s.GetEvaluator(dep.Key, dep.Tag).IsDependency(s, key, tag) {
			return true
		}
	}
	return false
}

// EnsureCompatibility resolves this field's shape and propagates the shape
// and evaluator requirements to all dependencies
func (o *SecondaryMono) EnsureCompatibility(s *State) (changed bool, err error) {
	changed, err = s.ensureShape(o.key)
	if err != nil {
		return
	}
	rs := s.recordSet(o.key)
	_, err = rs.RequireRecord(o.tag, o.key)
	if err != nil {
		return
	}
	for _, dep := range o.deps {
		c, e := s.requireDep(dep, rs.Kind, rs.N)
		if e != nil {
			return changed, chk.Err("evaluator %q: %v", KeyTag(o.key, o.tag), e)
		}
		if c {
			changed = true
		}
	}
	return
}

// Update updates all dependencies in post-order and recomputes this field if
// any dependency changed. With an unchanged graph, each consumer is told
// "changed" exactly once.
func (o *SecondaryMono) Update(s *State, requester string) (changed bool) {
	me := KeyTag(o.key, o.tag)
	update := false
	for _, dep := range o.deps {
		if s.GetEvaluator(dep.Key, dep.Tag).Update(s, me) {
			update = true
		}
	}
	if update {
		o.recompute(s)
		o.requests.reset(requester)
		return true
	}
	return o.requests.seen(requester)
}

// UpdateDerivative computes the derivative of this field with respect to
// (wrtKey,wrtTag) using the chain rule. Requesting the derivative with
// respect to a non-ancestor yields no derivative and reports unchanged;
// this is not an error.
func (o *SecondaryMono) UpdateDerivative(s *State, requester, wrtKey, wrtTag string) (changed bool) {
	if !o.IsDependency(s, wrtKey, wrtTag) {
		return false
	}
	me := KeyTag(o.key, o.tag)
	wrt := KeyTag(wrtKey, wrtTag)
	myid := derivID(me, wrt)

	// the primal values used in derivative formulas must be current
	anything := o.Update(s, myid)

	// update the derivative chain below, skipping branches that do not reach
	// the wrt field
	for _, dep := range o.deps {
		ev := s.GetEvaluator(dep.Key, dep.Tag)
		if dep.Key == wrtKey && dep.Tag == wrtTag {
			if ev.Update(s, myid) {
				anything = true
			}
		} else if ev.IsDependency(s, wrtKey, wrtTag) {
			if ev.UpdateDerivative(s, myid, wrtKey, wrtTag) {
				anything = true
			}
		}
	}

	reqkey := requester + "|" + wrt
	if anything {
		o.recomputeDerivative(s, wrtKey, wrtTag)
		o.derivRequests.reset(reqkey)
		return true
	}
	return o.derivRequests.seen(reqkey)
}

// recompute evaluates this field and stores the result under this
// evaluator's ownership
func (o *SecondaryMono) recompute(s *State) {
	r := s.GetRecord(o.key, o.tag)
	switch r.Kind {
	case KindScalar:
		res := []float64{0}
		o.fcn(s, res)
		r.SetFloat(o.key, res[0])
	case KindVector:
		o.fcn(s, r.VectorW(o.key))
	}
	r.SetInitialized()
}

// recomputeDerivative combines partial derivatives with the chain rule:
//
//	d(me)/d(wrt) = Σ over deps [ ∂(me)/∂(dep) * d(dep)/d(wrt) ]
//
// with d(dep)/d(wrt) = 1 for the direct dependency and taken from the cached
// intermediate derivative otherwise
func (o *SecondaryMono) recomputeDerivative(s *State, wrtKey, wrtTag string) {
	if o.dfcn == nil {
		chk.Panic("evaluator %q cannot compute derivatives: no derivative function was given",
			KeyTag(o.key, o.tag))
	}

	// result slot (cached intermediate derivative for consumers above)
	rs := s.recordSet(o.key)
	err := s.RequireDerivative(o.key, o.tag, wrtKey, wrtTag, o.key, rs.Kind)
	if err != nil {
		chk.Panic("evaluator %q: %v", KeyTag(o.key, o.tag), err)
	}

	n := 1
	if rs.Kind == KindVector {
		n = rs.N
	}
	total := make([]float64, n)
	part := make([]float64, n)

	for _, dep := range o.deps {
		ev := s.GetEvaluator(dep.Key, dep.Tag)
		direct := dep.Key == wrtKey && dep.Tag == wrtTag
		if !direct && !ev.IsDependency(s, wrtKey, wrtTag) {
			continue // this branch has zero derivative
		}
		o.dfcn(s, dep.Key, dep.Tag, part)
		if direct {
			for i := 0; i < n; i++ {
				total[i] += part[i]
			}
			continue
		}
		switch rs.Kind {
		case KindScalar:
			total[0] += part[0] * s.GetDerivFloat(dep.Key, dep.Tag, wrtKey, wrtTag)
		case KindVector:
			dv := s.GetDerivVector(dep.Key, dep.Tag, wrtKey, wrtTag)
			for i := 0; i < n; i++ {
				total[i] += part[i] * dv[i]
			}
		}
	}

	switch rs.Kind {
	case KindScalar:
		s.SetDerivFloat(o.key, o.tag, wrtKey, wrtTag, o.key, total[0])
	case KindVector:
		copy(s.GetDerivVectorW(o.key, o.tag, wrtKey, wrtTag, o.key), total)
	}
}
