// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

// Evaluator is one node of the dependency graph. Each evaluator computes the
// value (and, on demand, the partial derivatives) of one (key,tag) field.
//
// Update and UpdateDerivative take the identifier of the requesting consumer
// so that repeated requests within one timestep do not trigger redundant
// recomputation. Both report whether the cached value changed as a result of
// the call.
type Evaluator interface {

	// identity
	Key() string // field name provided by this evaluator
	Tag() string // temporal copy provided by this evaluator

	// dependencies
	Deps() []Dep                                 // declared dependencies, in order
	IsDependency(s *State, key, tag string) bool // whether (key,tag) is a transitive dependency

	// lifecycle
	EnsureCompatibility(s *State) (changed bool, err error) // resolve shapes; must be idempotent

	// computation
	Update(s *State, requester string) (changed bool)
	UpdateDerivative(s *State, requester, wrtKey, wrtTag string) (changed bool)
}

// requestSet tracks which consumers have seen the current cached value
type requestSet map[string]bool

// seen records a request; it returns true if the requester had not seen the
// current value yet
func (o requestSet) seen(requester string) bool {
	if o[requester] {
		return false
	}
	o[requester] = true
	return true
}

// reset forgets all requests except the given one
func (o requestSet) reset(requester string) {
	for k := range o {
		delete(o, k)
	}
	o[requester] = true
}

// derivID forms the requester identifier used when walking the derivative
// chain of (key,tag) with respect to (wrtKey,wrtTag)
func derivID(keytag, wrtKeytag string) string {
	return "d" + keytag + "/d" + wrtKeytag
}
