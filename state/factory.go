// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"github.com/cpmech/gosl/chk"

	"github.com/ghammond86/amanzi/inp"
)

// Allocator builds an evaluator from a field specification
type Allocator func(spec *inp.FieldData, tag string, sim *inp.Simulation) (Evaluator, error)

// allocators holds all available evaluator allocators; maps evtype => allocator
var allocators = make(map[string]Allocator)

// SetAllocator sets an evaluator allocator. It panics if there are
// allocators with the same evaluator type (to avoid conflicts).
func SetAllocator(evtype string, allocator Allocator) {
	if _, ok := allocators[evtype]; ok {
		chk.Panic("cannot add evaluator type %q because another allocator with the same type exists", evtype)
	}
	allocators[evtype] = allocator
}

// NewEvaluator returns a new evaluator from a field specification
func NewEvaluator(spec *inp.FieldData, tag string, sim *inp.Simulation) (ev Evaluator, err error) {
	evtype := spec.EvType
	if evtype == "" {
		evtype = "primary"
	}
	allocator, ok := allocators[evtype]
	if !ok {
		return nil, chk.Err("cannot find allocator for evaluator type %q (field %q)", evtype, spec.Name)
	}
	return allocator(spec, tag, sim)
}

// add basic evaluators to factory
func init() {
	SetAllocator("primary", func(spec *inp.FieldData, tag string, sim *inp.Simulation) (Evaluator, error) {
		return NewPrimary(spec.Name, tag), nil
	})
	SetAllocator("independent", func(spec *inp.FieldData, tag string, sim *inp.Simulation) (Evaluator, error) {
		fcn, err := sim.Functions.Get(spec.Func)
		if err != nil {
			return nil, err
		}
		return NewIndependent(spec.Name, tag, fcn), nil
	})
}
