// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
	"github.com/cpmech/gosl/io"

	"github.com/ghammond86/amanzi/inp"
	"github.com/ghammond86/amanzi/msh"
	"github.com/ghammond86/amanzi/pk"
	"github.com/ghammond86/amanzi/state"
)

// countingComm counts the reductions made through it; values pass through
type countingComm struct {
	nsum, nmin, nmax int
}

func (o *countingComm) Rank() int                      { return 0 }
func (o *countingComm) Size() int                      { return 1 }
func (o *countingComm) AllReduceSum(x float64) float64 { o.nsum++; return x }
func (o *countingComm) AllReduceMin(x float64) float64 { o.nmin++; return x }
func (o *countingComm) AllReduceMax(x float64) float64 { o.nmax++; return x }

// oneCellMesh is a single-cell mesh with an observable communicator
type oneCellMesh struct {
	comm msh.Comm
}

func (o *oneCellMesh) NumCells() int                { return 1 }
func (o *oneCellMesh) NumCellsOwned() int           { return 1 }
func (o *oneCellMesh) CellVolume(i int) float64     { return 1.0 }
func (o *oneCellMesh) CellCentroid(i int) []float64 { return []float64{0.5} }
func (o *oneCellMesh) Comm() msh.Comm               { return o.comm }
func (o *oneCellMesh) ScatterGhosts(vals []float64) {}

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// decaySim assembles a one-kernel simulation with a single time period
func decaySim() *inp.Simulation {
	sim := &inp.Simulation{
		Functions: inp.FuncsData{
			&inp.FuncData{Name: "dtcte", Type: "cte", Prms: dbf.Params{&dbf.P{N: "c", V: 0.1}}},
		},
		Fields: []*inp.FieldData{
			&inp.FieldData{Name: "pressure", EvType: "primary", Kind: "scalar", IcVal: 1.0, HasIc: true},
		},
		PKs: []*inp.PKData{
			&inp.PKData{Name: "flow", Type: "richards cell", Prms: []*inp.PkPrm{
				&inp.PkPrm{N: "k", V: 1},
				&inp.PkPrm{N: "storage", V: 1},
				&inp.PkPrm{N: "dt0", V: 0.1},
			}},
		},
		Root: "flow",
		Periods: []*inp.TimePeriod{
			&inp.TimePeriod{Tf: 1.0, DtFunc: "dtcte"},
		},
	}
	sim.SetDefault()
	return sim
}

func Test_driver01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("driver01. full run lands exactly on the period boundary")

	sim := decaySim()
	s := state.NewState(sim, nil)
	dr, err := New(sim, s)
	if err != nil {
		tst.Errorf("New failed:\n%v", err)
		return
	}
	err = dr.Run()
	if err != nil {
		tst.Errorf("Run failed:\n%v", err)
		return
	}
	chk.Float64(tst, "final time", 1e-12, s.Time(""), 1.0)
	chk.IntAssert(s.Cycle(), 10)
	chk.Float64(tst, "p(1)", 1e-12, s.GetFloat("pressure", ""), math.Pow(1.1, -10))
}

// balkyPK fails a scripted number of steps before succeeding
type balkyPK struct {
	dt    float64
	nfail int // remaining failures
	soln  *pk.TreeVector
	steps int
}

func (o *balkyPK) Name() string             { return "balky" }
func (o *balkyPK) Setup() error             { return nil }
func (o *balkyPK) Initialize() error        { return nil }
func (o *balkyPK) Dt() float64              { return o.dt }
func (o *balkyPK) SetDt(dt float64)         { o.dt = dt }
func (o *balkyPK) ChangedSolution()         {}
func (o *balkyPK) Solution() *pk.TreeVector { return o.soln }

func (o *balkyPK) AdvanceStep(tOld, tNew float64) (fail bool, err error) {
	if o.nfail > 0 {
		o.nfail--
		o.dt /= 2
		return true, nil
	}
	o.steps++
	return
}

func (o *balkyPK) CommitStep(tOld, tNew float64) error { return nil }

func (o *balkyPK) Functional(tOld, tNew float64, uOld, uNew, res *pk.TreeVector) error { return nil }
func (o *balkyPK) ApplyPreconditioner(r, pu *pk.TreeVector) error                      { return nil }
func (o *balkyPK) UpdatePreconditioner(t float64, u *pk.TreeVector, h float64) error   { return nil }
func (o *balkyPK) ErrorNorm(u, du *pk.TreeVector) (float64, error)                     { return 0, nil }
func (o *balkyPK) IsAdmissible(u *pk.TreeVector) bool                                  { return true }
func (o *balkyPK) ModifyPredictor(h float64, u0, u *pk.TreeVector) bool                { return false }
func (o *balkyPK) ModifyCorrection(h float64, res, u, du *pk.TreeVector) pk.CorrectionAction {
	return pk.NotModified
}

func Test_driver02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("driver02. failed steps are retried with smaller increments")

	sim := &inp.Simulation{
		Functions: inp.FuncsData{
			&inp.FuncData{Name: "dtcte", Type: "cte", Prms: dbf.Params{&dbf.P{N: "c", V: 0.5}}},
		},
		Periods: []*inp.TimePeriod{
			&inp.TimePeriod{Tf: 1.0, DtFunc: "dtcte"},
		},
	}
	sim.SetDefault()
	s := state.NewState(sim, nil)
	root := &balkyPK{dt: 0.5, nfail: 2, soln: pk.NewLeaf(1)}
	dr := &Driver{Sim: sim, S: s, Root: root}
	err := dr.Run()
	if err != nil {
		tst.Errorf("Run failed:\n%v", err)
		return
	}
	chk.Float64(tst, "final time", 1e-12, s.Time(""), 1.0)
	if root.steps < 2 {
		tst.Errorf("run should have taken several successful steps; got %d\n", root.steps)
		return
	}
}

func Test_driver03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("driver03. too many consecutive failures abort the run")

	sim := &inp.Simulation{
		Functions: inp.FuncsData{
			&inp.FuncData{Name: "dtcte", Type: "cte", Prms: dbf.Params{&dbf.P{N: "c", V: 0.5}}},
		},
		Periods: []*inp.TimePeriod{
			&inp.TimePeriod{Tf: 1.0, DtFunc: "dtcte"},
		},
	}
	sim.SetDefault()
	sim.Solver.NdvgMax = 3
	s := state.NewState(sim, nil)
	root := &balkyPK{dt: 0.5, nfail: 1000, soln: pk.NewLeaf(1)}
	dr := &Driver{Sim: sim, S: s, Root: root}
	err := dr.Run()
	if err == nil {
		tst.Errorf("Run should have aborted after %d failures\n", sim.Solver.NdvgMax)
		return
	}
	chk.Float64(tst, "no time advanced", 1e-15, s.Time(""), 0.0)
}

func Test_driver04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("driver04. dt negotiation and norms are collective")

	sim := decaySim()
	cc := new(countingComm)
	s := state.NewState(sim, &oneCellMesh{comm: cc})
	dr, err := New(sim, s)
	if err != nil {
		tst.Errorf("New failed:\n%v", err)
		return
	}
	err = dr.Run()
	if err != nil {
		tst.Errorf("Run failed:\n%v", err)
		return
	}
	chk.Float64(tst, "final time", 1e-12, s.Time(""), 1.0)

	// every cycle agrees on one increment; every Newton iteration reduces
	// one residual norm (two iterations per step on this problem)
	chk.IntAssert(cc.nmin, 10)
	chk.IntAssert(cc.nsum, 20)
}

func Test_driver05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("driver05. a run resumes from a mid-run checkpoint")

	outdir := "/tmp/amanzi/restart01"

	// first run writes checkpoints every 0.5
	sim := decaySim()
	sim.Functions = append(sim.Functions,
		&inp.FuncData{Name: "dtout", Type: "cte", Prms: dbf.Params{&dbf.P{N: "c", V: 0.5}}})
	sim.Periods[0].DtoFunc = "dtout"
	s := state.NewState(sim, nil)
	dr, err := New(sim, s)
	if err != nil {
		tst.Errorf("New failed:\n%v", err)
		return
	}
	dr.Summary = &Summary{DirOut: outdir, FnKey: "decay", EncType: "gob"}
	err = dr.Run()
	if err != nil {
		tst.Errorf("Run failed:\n%v", err)
		return
	}
	chk.IntAssert(s.Cycle(), 10)

	// second run restarts from the t=0.5 checkpoint and must reach the same
	// final solution without repeating the first half
	sim2 := decaySim()
	s2 := state.NewState(sim2, nil)
	dr2, err := New(sim2, s2)
	if err != nil {
		tst.Errorf("New failed:\n%v", err)
		return
	}
	dr2.Summary = &Summary{DirOut: outdir, FnKey: "decay", EncType: "gob",
		RestartPath: dr.Summary.Path(5)}
	err = dr2.Start()
	if err != nil {
		tst.Errorf("Start failed:\n%v", err)
		return
	}
	chk.Float64(tst, "restored time", 1e-12, s2.Time(""), 0.5)
	chk.IntAssert(s2.Cycle(), 5)
	chk.Float64(tst, "restored p", 1e-12, s2.GetFloat("pressure", ""), math.Pow(1.1, -5))

	err = dr2.Run()
	if err != nil {
		tst.Errorf("Run failed:\n%v", err)
		return
	}
	chk.Float64(tst, "final time", 1e-12, s2.Time(""), 1.0)
	chk.IntAssert(s2.Cycle(), 10)
	chk.Float64(tst, "p(1) after restart", 1e-12, s2.GetFloat("pressure", ""), math.Pow(1.1, -10))
}

func Test_summary01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("summary01. checkpoints round-trip through the encoder")

	newState := func() *state.State {
		s := state.NewState(nil, nil)
		s.Require("pressure", "", "flow", state.KindScalar)
		s.Require("saturation", "", "flow", state.KindVector)
		s.GetRecordSet("saturation").N = 3
		s.SetEvaluator("pressure", "", state.NewPrimary("pressure", ""))
		s.SetEvaluator("saturation", "", state.NewPrimary("saturation", ""))
		if err := s.Setup(); err != nil {
			tst.Fatalf("Setup failed:\n%v", err)
		}
		return s
	}

	// fill and save
	a := newState()
	a.SetFloat("pressure", "", "flow", 101325.0)
	a.GetRecord("pressure", "").SetInitialized()
	v := a.GetVectorW("saturation", "", "flow")
	v[0], v[1], v[2] = 0.1, 0.2, 0.3
	a.GetRecord("saturation", "").SetInitialized()
	a.SetTime("", 12.5)
	a.SetCycle(42)
	sum := &Summary{DirOut: "/tmp/amanzi/summary01", FnKey: "test", EncType: "gob"}
	err := sum.Save(a)
	if err != nil {
		tst.Errorf("Save failed:\n%v", err)
		return
	}

	// restore into a fresh state
	b := newState()
	err = sum.Read(sum.Path(42), b)
	if err != nil {
		tst.Errorf("Read failed:\n%v", err)
		return
	}
	chk.Float64(tst, "time", 1e-15, b.Time(""), 12.5)
	chk.IntAssert(b.Cycle(), 42)
	chk.Float64(tst, "pressure", 1e-15, b.GetFloat("pressure", ""), 101325.0)
	w := b.GetVector("saturation", "")
	chk.Float64(tst, "sat0", 1e-15, w[0], 0.1)
	chk.Float64(tst, "sat2", 1e-15, w[2], 0.3)
	if !b.GetRecord("pressure", "").Initialized {
		tst.Errorf("restored records should be marked initialized\n")
		return
	}
	err = b.CheckAllInitialized()
	if err != nil {
		tst.Errorf("restored state should pass the initialization check:\n%v", err)
		return
	}
}
