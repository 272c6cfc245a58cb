// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/ghammond86/amanzi/inp"
	"github.com/ghammond86/amanzi/msh"
)

// position of the current time within a time period
const (
	TimePeriodStart  = iota // at the start of a period
	TimePeriodInside        // inside a period
	TimePeriodEnd           // at the end of a period
)

// setupMaxPasses bounds the EnsureCompatibility fixpoint iteration; a graph
// that cannot settle within this many passes is malformed
const setupMaxPasses = 100

// State is the data manager of a simulation: it owns all record sets and all
// evaluators, mediates every read and write, and enforces the
// require/setup/initialize lifecycle.
type State struct {

	// external collaborators
	Sim  *inp.Simulation // field specifications for default evaluators; may be nil
	Mesh msh.Mesh        // mesh/geometry service; may be nil for mesh-free states

	// containers
	data      map[string]*RecordSet // key => records over tags
	dataOrder []string              // keys in requirement order
	derivs    map[string]*RecordSet // keytag => derivative records keyed by wrt keytag
	evals     map[string]Evaluator  // keytag => evaluator
	evalOrder []string              // evaluator keytags in registration order

	// time and cycle bookkeeping
	time     map[string]float64 // tag => time value
	cycle    int                // global cycle counter
	position int                // position within the current time period

	// named time checkpoints used by the cycle driver
	initialTime      float64
	finalTime        float64
	intermediateTime float64
	lastTime         float64

	// lifecycle
	setupDone bool
}

// NewState returns a new state. Both sim and mesh may be nil; a nil sim
// disables factory-built default evaluators and a nil mesh disables
// mesh-shaped vector fields.
func NewState(sim *inp.Simulation, mesh msh.Mesh) (o *State) {
	o = new(State)
	o.Sim = sim
	o.Mesh = mesh
	o.data = make(map[string]*RecordSet)
	o.derivs = make(map[string]*RecordSet)
	o.evals = make(map[string]Evaluator)
	o.time = make(map[string]float64)
	return
}

// Require registers storage for (key,tag) with the given data kind. The call
// is idempotent; requiring a conflicting kind for an already-registered key
// is a configuration error. A non-empty owner claims write access.
func (o *State) Require(key, tag, owner string, kind Kind) (err error) {
	rs, ok := o.data[key]
	if !ok {
		if o.setupDone {
			return chk.Err("cannot require new field %q after Setup", key)
		}
		rs = NewRecordSet(key)
		o.data[key] = rs
		o.dataOrder = append(o.dataOrder, key)
	}
	err = rs.SetKind(kind)
	if err != nil {
		return
	}
	_, err = rs.RequireRecord(tag, owner)
	return
}

// RequireDerivative registers a derivative slot for d(key,tag)/d(wrt). Unlike
// plain fields, derivative slots may also be required lazily after Setup, so
// that intermediate derivatives along an active chain can always be cached.
func (o *State) RequireDerivative(key, tag, wrtKey, wrtTag, owner string, kind Kind) (err error) {
	keytag := KeyTag(key, tag)
	drs, ok := o.derivs[keytag]
	if !ok {
		drs = NewRecordSet(keytag)
		o.derivs[keytag] = drs
	}
	err = drs.SetKind(kind)
	if err != nil {
		return
	}
	_, err = drs.RequireRecord(KeyTag(wrtKey, wrtTag), owner)
	if err != nil {
		return
	}
	if rs, ok := o.data[key]; ok {
		drs.N = rs.N
	}
	drs.allocate()
	return
}

// HasData tells whether (key,tag) has been required
func (o *State) HasData(key, tag string) bool {
	if rs, ok := o.data[key]; ok {
		return rs.HasRecord(tag)
	}
	return false
}

// HasDerivative tells whether a derivative slot exists
func (o *State) HasDerivative(key, tag, wrtKey, wrtTag string) bool {
	if drs, ok := o.derivs[KeyTag(key, tag)]; ok {
		return drs.HasRecord(KeyTag(wrtKey, wrtTag))
	}
	return false
}

// GetRecord returns the record of (key,tag); unknown keys are a fatal lookup
// error
func (o *State) GetRecord(key, tag string) *Record {
	return o.recordSet(key).GetRecord(tag)
}

// GetRecordW returns the record of (key,tag) for writing, checking ownership
func (o *State) GetRecordW(key, tag, owner string) *Record {
	r := o.GetRecord(key, tag)
	r.AssertOwner(owner)
	return r
}

// GetFloat returns the scalar value of (key,tag)
func (o *State) GetFloat(key, tag string) float64 {
	return o.GetRecord(key, tag).Float()
}

// SetFloat sets the scalar value of (key,tag) under the given ownership
func (o *State) SetFloat(key, tag, owner string, v float64) {
	o.GetRecord(key, tag).SetFloat(owner, v)
}

// GetVector returns the vector value of (key,tag) for read-only use
func (o *State) GetVector(key, tag string) []float64 {
	return o.GetRecord(key, tag).Vector()
}

// GetVectorW returns the vector value of (key,tag) for writing, checking
// ownership
func (o *State) GetVectorW(key, tag, owner string) []float64 {
	return o.GetRecord(key, tag).VectorW(owner)
}

// GetDerivFloat returns the scalar derivative d(key,tag)/d(wrt)
func (o *State) GetDerivFloat(key, tag, wrtKey, wrtTag string) float64 {
	return o.derivSet(key, tag).GetRecord(KeyTag(wrtKey, wrtTag)).Float()
}

// SetDerivFloat sets the scalar derivative d(key,tag)/d(wrt)
func (o *State) SetDerivFloat(key, tag, wrtKey, wrtTag, owner string, v float64) {
	o.derivSet(key, tag).GetRecord(KeyTag(wrtKey, wrtTag)).SetFloat(owner, v)
}

// GetDerivVector returns the vector derivative d(key,tag)/d(wrt) for
// read-only use
func (o *State) GetDerivVector(key, tag, wrtKey, wrtTag string) []float64 {
	return o.derivSet(key, tag).GetRecord(KeyTag(wrtKey, wrtTag)).Vector()
}

// GetDerivVectorW returns the vector derivative d(key,tag)/d(wrt) for
// writing, checking ownership
func (o *State) GetDerivVectorW(key, tag, wrtKey, wrtTag, owner string) []float64 {
	return o.derivSet(key, tag).GetRecord(KeyTag(wrtKey, wrtTag)).VectorW(owner)
}

// SetEvaluator binds an evaluator to (key,tag)
func (o *State) SetEvaluator(key, tag string, ev Evaluator) {
	keytag := KeyTag(key, tag)
	if _, ok := o.evals[keytag]; !ok {
		o.evalOrder = append(o.evalOrder, keytag)
	}
	o.evals[keytag] = ev
}

// GetEvaluator returns the evaluator of (key,tag); a missing evaluator is a
// fatal lookup error
func (o *State) GetEvaluator(key, tag string) Evaluator {
	ev, ok := o.evals[KeyTag(key, tag)]
	if !ok {
		chk.Panic("cannot find evaluator for field %q", KeyTag(key, tag))
	}
	return ev
}

// HasEvaluator tells whether (key,tag) has an evaluator
func (o *State) HasEvaluator(key, tag string) bool {
	_, ok := o.evals[KeyTag(key, tag)]
	return ok
}

// RequireEvaluator returns the evaluator of (key,tag), building the default
// one from the field specifications if none was explicitly set
func (o *State) RequireEvaluator(key, tag string) (ev Evaluator, err error) {
	if o.HasEvaluator(key, tag) {
		return o.GetEvaluator(key, tag), nil
	}
	if o.Sim == nil {
		return nil, chk.Err("cannot build default evaluator for field %q: no simulation data is available", KeyTag(key, tag))
	}
	spec := o.Sim.FieldSpec(key)
	if spec == nil {
		return nil, chk.Err("cannot build default evaluator for field %q: no field specification was found", KeyTag(key, tag))
	}
	ev, err = NewEvaluator(spec, tag, o.Sim)
	if err != nil {
		return
	}
	err = o.Require(key, tag, "", Kind(spec.Kind))
	if err != nil {
		return
	}
	o.SetEvaluator(key, tag, ev)
	return
}

// Setup finalises the shapes of all fields by iterating every evaluator's
// EnsureCompatibility until no further changes occur, verifies that the
// dependency graph is acyclic, and allocates storage. Setup is idempotent.
func (o *State) Setup() (err error) {

	// fixpoint iteration. RequireEvaluator may register new evaluators while
	// the loop runs, so the list is walked by index.
	pass := 0
	for {
		pass++
		if pass > setupMaxPasses {
			return chk.Err("Setup cannot reach a fixpoint after %d passes: the dependency graph is malformed", setupMaxPasses)
		}
		changed := false
		for i := 0; i < len(o.evalOrder); i++ {
			ev := o.evals[o.evalOrder[i]]
			c, e := ev.EnsureCompatibility(o)
			if e != nil {
				return e
			}
			if c {
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	// the dependency relation must form a DAG
	err = o.checkCycles()
	if err != nil {
		return
	}

	// allocate storage
	for _, key := range o.dataOrder {
		o.data[key].allocate()
	}
	o.setupDone = true
	return
}

// Initialize gives initial values to evaluator-owned data and verifies that
// every required record has been initialized. Primary data must have been
// set (and marked initialized) by its owner before this call.
func (o *State) Initialize() (err error) {
	if !o.setupDone {
		return chk.Err("State must be Setup before Initialize")
	}

	// independent variables own their values
	for _, keytag := range o.evalOrder {
		if ev, ok := o.evals[keytag].(*Independent); ok {
			ev.Update(o, "state initialization")
		}
	}

	// externally-owned data must be ready by now
	for _, key := range o.dataOrder {
		rs := o.data[key]
		for _, tag := range rs.Tags() {
			if o.HasEvaluator(key, tag) {
				if _, secondary := o.evals[KeyTag(key, tag)].(*SecondaryMono); secondary {
					continue
				}
			}
			if !rs.GetRecord(tag).Initialized {
				return chk.Err("field {key=%q, tag=%q} has not been initialized", key, tag)
			}
		}
	}

	// evaluate the graph once so every derived record holds a consistent
	// value
	for _, keytag := range o.evalOrder {
		if ev, ok := o.evals[keytag].(*SecondaryMono); ok {
			ev.Update(o, "state initialization")
		}
	}
	return o.CheckAllInitialized()
}

// CheckAllInitialized verifies that every required record has been
// initialized, reporting the first offender
func (o *State) CheckAllInitialized() (err error) {
	for _, key := range o.dataOrder {
		rs := o.data[key]
		for _, tag := range rs.Tags() {
			if !rs.GetRecord(tag).Initialized {
				return chk.Err("field {key=%q, tag=%q} has not been initialized", key, tag)
			}
		}
	}
	return
}

// Keys returns all field names in requirement order
func (o *State) Keys() []string { return o.dataOrder }

// GetRecordSet returns the record set of a key; unknown keys are a fatal
// lookup error
func (o *State) GetRecordSet(key string) *RecordSet { return o.recordSet(key) }

// ListFields prints a report of all fields
func (o *State) ListFields() {
	io.Pf("%-25s%-10s%-8s%-20s%s\n", "key", "kind", "size", "owner", "tags")
	for _, key := range o.dataOrder {
		rs := o.data[key]
		owner := rs.GetRecord(rs.Tags()[0]).Owner
		io.Pf("%-25s%-10s%-8d%-20s%v\n", key, rs.Kind, rs.N, owner, rs.Tags())
	}
}

// Time returns the time value of a tag
func (o *State) Time(tag string) float64 { return o.time[tag] }

// SetTime sets the time value of a tag
func (o *State) SetTime(tag string, t float64) { o.time[tag] = t }

// AdvanceTime advances the time value of a tag
func (o *State) AdvanceTime(tag string, dt float64) { o.time[tag] += dt }

// Cycle returns the global cycle counter
func (o *State) Cycle() int { return o.cycle }

// SetCycle sets the global cycle counter
func (o *State) SetCycle(c int) { o.cycle = c }

// AdvanceCycle advances the global cycle counter
func (o *State) AdvanceCycle() { o.cycle++ }

// Position returns the position within the current time period
func (o *State) Position() int { return o.position }

// SetPosition sets the position within the current time period
func (o *State) SetPosition(p int) { o.position = p }

// named time checkpoints
func (o *State) InitialTime() float64          { return o.initialTime }
func (o *State) SetInitialTime(t float64)      { o.initialTime = t }
func (o *State) FinalTime() float64            { return o.finalTime }
func (o *State) SetFinalTime(t float64)        { o.finalTime = t }
func (o *State) IntermediateTime() float64     { return o.intermediateTime }
func (o *State) SetIntermediateTime(t float64) { o.intermediateTime = t }
func (o *State) LastTime() float64             { return o.lastTime }
func (o *State) SetLastTime(t float64)         { o.lastTime = t }

// auxiliary ///////////////////////////////////////////////////////////////////////////////////////

// recordSet returns the record set of a key; unknown keys are a fatal lookup
// error
func (o *State) recordSet(key string) *RecordSet {
	rs, ok := o.data[key]
	if !ok {
		chk.Panic("cannot find field %q", key)
	}
	return rs
}

// derivSet returns the derivative record set of (key,tag)
func (o *State) derivSet(key, tag string) *RecordSet {
	drs, ok := o.derivs[KeyTag(key, tag)]
	if !ok {
		chk.Panic("no derivatives are registered for field %q", KeyTag(key, tag))
	}
	return drs
}

// ensureShape resolves the default shape of a field: vector fields take the
// number of mesh cells. Returns whether anything changed.
func (o *State) ensureShape(key string) (changed bool, err error) {
	rs, ok := o.data[key]
	if !ok {
		return false, chk.Err("field %q has an evaluator but was never required", key)
	}
	if rs.Kind == KindVector && rs.N == 0 {
		if o.Mesh == nil {
			return false, chk.Err("vector field %q needs a mesh to resolve its shape", key)
		}
		rs.N = o.Mesh.NumCells()
		changed = true
	}
	return
}

// requireDep registers the record, evaluator and shape of one dependency of
// a secondary evaluator. Monotype secondaries force their own kind and shape
// on all dependencies; kind "" accepts whatever kind the dependency has.
func (o *State) requireDep(dep Dep, kind Kind, n int) (changed bool, err error) {
	if !o.HasData(dep.Key, dep.Tag) {
		err = o.Require(dep.Key, dep.Tag, "", kind)
		if err != nil {
			return
		}
		changed = true
	}
	rs := o.recordSet(dep.Key)
	if kind != "" && rs.Kind != kind {
		return changed, chk.Err("dependency %q has kind %q but %q is required", dep.KeyTag(), rs.Kind, kind)
	}
	if !o.HasEvaluator(dep.Key, dep.Tag) {
		_, err = o.RequireEvaluator(dep.Key, dep.Tag)
		if err != nil {
			return
		}
		changed = true
	}
	if kind == KindVector && n > 0 {
		if rs.N == 0 {
			rs.N = n
			changed = true
		} else if rs.N != n {
			return changed, chk.Err("dependency %q has size %d but %d is required", dep.KeyTag(), rs.N, n)
		}
	}
	return
}

// checkCycles verifies that the dependency relation is acyclic, reporting
// the offending chain otherwise
func (o *State) checkCycles() (err error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var stack []string
	var visit func(keytag string) error
	visit = func(keytag string) error {
		if visiting[keytag] {
			return chk.Err("dependency cycle detected: %v -> %q", stack, keytag)
		}
		if visited[keytag] {
			return nil
		}
		ev, ok := o.evals[keytag]
		if !ok {
			return chk.Err("field %q is a dependency but has no evaluator", keytag)
		}
		visiting[keytag] = true
		stack = append(stack, keytag)
		for _, dep := range ev.Deps() {
			if e := visit(dep.KeyTag()); e != nil {
				return e
			}
		}
		visiting[keytag] = false
		visited[keytag] = true
		stack = stack[:len(stack)-1]
		return nil
	}
	for _, keytag := range o.evalOrder {
		if e := visit(keytag); e != nil {
			return e
		}
	}
	return
}
