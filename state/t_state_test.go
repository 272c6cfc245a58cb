// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"

	"github.com/ghammond86/amanzi/inp"
	"github.com/ghammond86/amanzi/msh"
)

func Test_state01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("state01. ownership is enforced on writes")

	s := NewState(nil, nil)
	err := s.Require("pressure", "", "flow pk", KindScalar)
	if err != nil {
		tst.Errorf("Require failed:\n%v", err)
		return
	}
	err = s.Require("saturation", "", "flow pk", KindVector)
	if err != nil {
		tst.Errorf("Require failed:\n%v", err)
		return
	}
	s.GetRecordSet("saturation").N = 3
	s.SetEvaluator("pressure", "", NewPrimary("pressure", ""))
	s.SetEvaluator("saturation", "", NewPrimary("saturation", ""))
	err = s.Setup()
	if err != nil {
		tst.Errorf("Setup failed:\n%v", err)
		return
	}

	// the owner may write
	s.SetFloat("pressure", "", "flow pk", 101325.0)
	chk.Float64(tst, "pressure", 1e-15, s.GetFloat("pressure", ""), 101325.0)
	v := s.GetVectorW("saturation", "", "flow pk")
	chk.IntAssert(len(v), 3)
	v[0] = 0.5

	// anyone else may not
	expectPanic(tst, "scalar write by non-owner", func() {
		s.SetFloat("pressure", "", "intruder", 0)
	})
	expectPanic(tst, "vector write by non-owner", func() {
		s.GetVectorW("saturation", "", "intruder")
	})

	// claiming an owned record is a configuration error
	err = s.Require("pressure", "", "other pk", KindScalar)
	if err == nil {
		tst.Errorf("Require with a second owner should have failed\n")
		return
	}

	// conflicting kinds are a configuration error
	err = s.Require("pressure", "", "", KindVector)
	if err == nil {
		tst.Errorf("Require with a conflicting kind should have failed\n")
		return
	}
}

func Test_state02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("state02. independent vector field over a mesh")

	// a 4-cell grid of total length 2; "recharge" varies in time and space
	sim := &inp.Simulation{
		Functions: inp.FuncsData{
			&inp.FuncData{Name: "rain", Type: "cte", Prms: dbf.Params{&dbf.P{N: "c", V: 1.5}}},
		},
		Fields: []*inp.FieldData{
			&inp.FieldData{Name: "recharge", EvType: "independent", Kind: "vector", Func: "rain"},
		},
	}
	sim.SetDefault()
	mesh := msh.NewUniformGrid(4, 2.0)
	s := NewState(sim, mesh)

	err := s.Require("recharge", "", "", KindVector)
	if err != nil {
		tst.Errorf("Require failed:\n%v", err)
		return
	}
	_, err = s.RequireEvaluator("recharge", "")
	if err != nil {
		tst.Errorf("RequireEvaluator failed:\n%v", err)
		return
	}
	err = s.Setup()
	if err != nil {
		tst.Errorf("Setup failed:\n%v", err)
		return
	}

	// the shape comes from the mesh
	chk.IntAssert(s.GetRecordSet("recharge").N, 4)

	err = s.Initialize()
	if err != nil {
		tst.Errorf("Initialize failed:\n%v", err)
		return
	}
	v := s.GetVector("recharge", "")
	for i := 0; i < 4; i++ {
		chk.Float64(tst, "recharge", 1e-15, v[i], 1.5)
	}

	// advancing time recomputes; same time does not
	ev := s.GetEvaluator("recharge", "")
	if ev.Update(s, "state initialization") {
		tst.Errorf("update at the same time should not report a change\n")
		return
	}
	s.SetTime("", 1.0)
	if !ev.Update(s, "driver") {
		tst.Errorf("update after advancing time should report a change\n")
		return
	}
}
