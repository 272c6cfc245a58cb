// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pk

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/ghammond86/amanzi/inp"
	"github.com/ghammond86/amanzi/state"
)

func verbose() {
	io.Verbose = true
	chk.Verbose = true
}

// expectPanic fails the test unless fcn panics
func expectPanic(tst *testing.T, msg string, fcn func()) {
	defer func() {
		if r := recover(); r == nil {
			tst.Errorf("%s: should have panicked\n", msg)
		}
	}()
	fcn()
}

// mockPK is a scripted process kernel for coupler tests
type mockPK struct {
	name       string
	dt         float64
	admissible bool
	action     CorrectionAction
	enorm      float64
	soln       *TreeVector

	// counters
	nAdmissible int
	nAdvance    int
	nCommit     int
	failFirst   int // number of AdvanceStep calls to fail before succeeding
}

func newMockPK(name string, dt float64) *mockPK {
	return &mockPK{name: name, dt: dt, admissible: true, soln: NewLeaf(1)}
}

func (o *mockPK) Name() string          { return o.name }
func (o *mockPK) Setup() error          { return nil }
func (o *mockPK) Initialize() error     { return nil }
func (o *mockPK) Dt() float64           { return o.dt }
func (o *mockPK) SetDt(dt float64)      { o.dt = dt }
func (o *mockPK) ChangedSolution()      {}
func (o *mockPK) Solution() *TreeVector { return o.soln }

func (o *mockPK) AdvanceStep(tOld, tNew float64) (fail bool, err error) {
	o.nAdvance++
	if o.nAdvance <= o.failFirst {
		o.dt /= 2
		return true, nil
	}
	return
}

func (o *mockPK) CommitStep(tOld, tNew float64) error {
	o.nCommit++
	return nil
}

func (o *mockPK) Functional(tOld, tNew float64, uOld, uNew, res *TreeVector) error {
	res.Data[0] = uNew.Data[0]
	return nil
}

func (o *mockPK) ApplyPreconditioner(r, pu *TreeVector) error {
	pu.Data[0] = r.Data[0]
	return nil
}

func (o *mockPK) UpdatePreconditioner(t float64, u *TreeVector, h float64) error { return nil }

func (o *mockPK) ErrorNorm(u, du *TreeVector) (float64, error) { return o.enorm, nil }

func (o *mockPK) IsAdmissible(u *TreeVector) bool {
	o.nAdmissible++
	return o.admissible
}

func (o *mockPK) ModifyPredictor(h float64, u0, u *TreeVector) bool { return false }

func (o *mockPK) ModifyCorrection(h float64, res, u, du *TreeVector) CorrectionAction {
	return o.action
}

// newTestMPC assembles a weak coupler over mocks
func newTestMPC(tst *testing.T, kids ...*mockPK) *MPC {
	o := new(MPC)
	o.name = "coupler"
	for _, kid := range kids {
		o.kids = append(o.kids, kid)
	}
	err := o.Setup()
	if err != nil {
		tst.Fatalf("Setup failed:\n%v", err)
	}
	return o
}

func Test_mpc01(tst *testing.T) {

	//verbose()
	chk.PrintTitle("mpc01. composite dt is the smallest child request")

	a := newMockPK("a", 0.5)
	b := newMockPK("b", 0.2)
	c := newMockPK("c", 0.8)
	o := newTestMPC(tst, a, b, c)
	chk.Float64(tst, "dt", 1e-15, o.Dt(), 0.2)

	// imposing an increment reaches every child
	o.SetDt(0.1)
	chk.Float64(tst, "dt a", 1e-15, a.Dt(), 0.1)
	chk.Float64(tst, "dt b", 1e-15, b.Dt(), 0.1)
	chk.Float64(tst, "dt c", 1e-15, c.Dt(), 0.1)
}

func Test_mpc02(tst *testing.T) {

	//verbose()
	chk.PrintTitle("mpc02. composite admissibility is a short-circuit AND")

	a := newMockPK("a", 0.1)
	b := newMockPK("b", 0.1)
	c := newMockPK("c", 0.1)
	o := newTestMPC(tst, a, b, c)

	// all children agree
	if !o.IsAdmissible(o.Solution()) {
		tst.Errorf("composite should be admissible when all children agree\n")
		return
	}

	// one rejection rejects the composite without consulting the rest
	b.admissible = false
	if o.IsAdmissible(o.Solution()) {
		tst.Errorf("composite should be inadmissible when a child rejects\n")
		return
	}
	chk.IntAssert(a.nAdmissible, 2)
	chk.IntAssert(b.nAdmissible, 2)
	chk.IntAssert(c.nAdmissible, 1)
}

func Test_mpc03(tst *testing.T) {

	//verbose()
	chk.PrintTitle("mpc03. correction actions and error norms combine upward")

	a := newMockPK("a", 0.1)
	b := newMockPK("b", 0.1)
	o := newTestMPC(tst, a, b)
	u := o.Solution()
	du := u.Clone()
	res := u.Clone()

	// the dominating action wins
	a.action = Modified
	b.action = NotModified
	chk.IntAssert(int(o.ModifyCorrection(0.1, res, u, du)), int(Modified))
	b.action = ModifiedLagged
	chk.IntAssert(int(o.ModifyCorrection(0.1, res, u, du)), int(ModifiedLagged))

	// the largest error norm wins
	a.enorm = 0.3
	b.enorm = 2.5
	norm, err := o.ErrorNorm(u, du)
	if err != nil {
		tst.Errorf("ErrorNorm failed:\n%v", err)
		return
	}
	chk.Float64(tst, "enorm", 1e-15, norm, 2.5)
}

func Test_mpc04(tst *testing.T) {

	//verbose()
	chk.PrintTitle("mpc04. structural mismatch at a delegation fails fast")

	a := newMockPK("a", 0.1)
	b := newMockPK("b", 0.1)
	o := newTestMPC(tst, a, b)

	// a vector with the wrong number of blocks
	bad := NewBranch(NewLeaf(1))
	expectPanic(tst, "Functional with wrong structure", func() {
		o.Functional(0, 1, bad, bad, bad)
	})

	// a vector with the wrong leaf size
	bad2 := NewBranch(NewLeaf(1), NewLeaf(7))
	expectPanic(tst, "UpdatePreconditioner with wrong structure", func() {
		o.UpdatePreconditioner(0, bad2, 1)
	})

	// out-of-range sub-vectors are nil
	if o.Solution().SubVector(5) != nil {
		tst.Errorf("out-of-range sub-vector should be nil\n")
		return
	}
	if o.Solution().SubVector(-1) != nil {
		tst.Errorf("negative sub-vector index should be nil\n")
		return
	}
}

func Test_mpc05(tst *testing.T) {

	//verbose()
	chk.PrintTitle("mpc05. weak coupling stops at the first failing child")

	a := newMockPK("a", 0.1)
	b := newMockPK("b", 0.1)
	c := newMockPK("c", 0.1)
	b.failFirst = 1
	o := newTestMPC(tst, a, b, c)

	fail, err := o.AdvanceStep(0, 0.1)
	if err != nil {
		tst.Errorf("AdvanceStep failed:\n%v", err)
		return
	}
	if !fail {
		tst.Errorf("composite step should have failed\n")
		return
	}
	chk.IntAssert(a.nAdvance, 1)
	chk.IntAssert(b.nAdvance, 1)
	chk.IntAssert(c.nAdvance, 0)

	// the retry succeeds and every child commits
	fail, err = o.AdvanceStep(0, 0.1)
	if err != nil {
		tst.Errorf("AdvanceStep failed:\n%v", err)
		return
	}
	if fail {
		tst.Errorf("retried composite step should have passed\n")
		return
	}
	err = o.CommitStep(0, 0.1)
	if err != nil {
		tst.Errorf("CommitStep failed:\n%v", err)
		return
	}
	chk.IntAssert(a.nCommit, 1)
	chk.IntAssert(b.nCommit, 1)
	chk.IntAssert(c.nCommit, 1)
}

func Test_mpc06(tst *testing.T) {

	//verbose()
	chk.PrintTitle("mpc06. failed child rolls the earlier children back")

	// dp/dt = -p with p(0)=1; one backward-Euler step of h=0.1 gives 1/1.1
	sim := &inp.Simulation{
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
	}
	sim.SetDefault()
	s := state.NewState(sim, nil)
	flow, err := New("flow", sim, s)
	if err != nil {
		tst.Errorf("New failed:\n%v", err)
		return
	}
	balky := newMockPK("balky", 0.1)
	balky.failFirst = 1
	o := new(MPC)
	o.name = "pair"
	o.kids = []PK{flow, balky}
	if !startPK(tst, o, s) {
		return
	}

	// the first attempt fails on the second child; the first child has
	// already advanced and must be back at the committed solution
	fail, err := o.AdvanceStep(0, 0.1)
	if err != nil {
		tst.Errorf("AdvanceStep failed:\n%v", err)
		return
	}
	if !fail {
		tst.Errorf("composite step should have failed\n")
		return
	}
	chk.Float64(tst, "p after failed step", 1e-15, flow.Solution().Data[0], 1.0)
	chk.Float64(tst, "state p after failed step", 1e-15, s.GetFloat("pressure", ""), 1.0)

	// the retry over the same interval integrates once, not twice
	fail, err = o.AdvanceStep(0, 0.1)
	if err != nil {
		tst.Errorf("AdvanceStep failed:\n%v", err)
		return
	}
	if fail {
		tst.Errorf("retried composite step should have passed\n")
		return
	}
	err = o.CommitStep(0, 0.1)
	if err != nil {
		tst.Errorf("CommitStep failed:\n%v", err)
		return
	}
	chk.Float64(tst, "p after retry", 1e-12, s.GetFloat("pressure", ""), math.Pow(1.1, -1))
}
