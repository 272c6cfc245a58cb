// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

// Primary is a leaf evaluator for a field mutated directly by external code
// (typically a PK). The external writer calls SetChanged after mutating the
// record; Update then reports the change to each consumer exactly once.
type Primary struct {
	key      string
	tag      string
	changed  bool
	requests requestSet
}

// NewPrimary returns a new primary-variable evaluator. A fresh primary is
// marked changed so the first Update pass reaches every consumer.
func NewPrimary(key, tag string) (o *Primary) {
	o = new(Primary)
	o.key = key
	o.tag = tag
	o.changed = true
	o.requests = make(requestSet)
	return
}

// Key returns the field name
func (o *Primary) Key() string { return o.key }

// Tag returns the temporal copy
func (o *Primary) Tag() string { return o.tag }

// Deps returns no dependencies: primaries are leaves
func (o *Primary) Deps() []Dep { return nil }

// IsDependency tells whether (key,tag) is a transitive dependency; for a
// primary this holds only for itself
func (o *Primary) IsDependency(s *State, key, tag string) bool {
	return key == o.key && tag == o.tag
}

// SetChanged flags that the external owner has (possibly) mutated the value.
// Consumers will observe changed=true on their next Update even if the
// stored value is numerically identical.
func (o *Primary) SetChanged() {
	o.changed = true
}

// EnsureCompatibility resolves the default shape of the field
func (o *Primary) EnsureCompatibility(s *State) (changed bool, err error) {
	return s.ensureShape(o.key)
}

// Update implements the evaluator contract for a leaf
func (o *Primary) Update(s *State, requester string) (changed bool) {
	if o.changed {
		o.requests.reset(requester)
		o.changed = false
		return true
	}
	return o.requests.seen(requester)
}

// UpdateDerivative handles the trivial derivative of a primary: one with
// respect to itself, zero otherwise. The value is constant, so nothing is
// ever recomputed here.
func (o *Primary) UpdateDerivative(s *State, requester, wrtKey, wrtTag string) (changed bool) {
	return false
}
