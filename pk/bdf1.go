// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pk

import (
	"math"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/ghammond86/amanzi/inp"
	"github.com/ghammond86/amanzi/msh"
)

// BDF1 advances a PK with backward-Euler steps, solving the time-discrete
// residual by Newton iterations with the PK's preconditioner as tangent.
// Residual and error norms are reduced over all processors; every processor
// must therefore run the same iterations.
type BDF1 struct {

	// input
	pk  PK              // supplies residual, preconditioner and norms
	sol *inp.SolverData // nonlinear solver control data
	cm  msh.Comm        // collective reductions of this run

	// workspaces mirroring the PK solution
	uOld *TreeVector // solution at the beginning of the step
	res  *TreeVector // time-discrete residual
	du   *TreeVector // Newton correction

	// statistics
	Niter   int  // iterations spent in the last step
	Verbose bool // prints iteration log
}

// NewBDF1 returns a new integrator over the given PK. The PK must have been
// Setup already, since the workspaces mirror its solution structure. A nil
// communicator means a serial run.
func NewBDF1(p PK, sol *inp.SolverData, cm msh.Comm) (o *BDF1) {
	if p.Solution() == nil {
		chk.Panic("cannot create integrator for PK %q before its Setup", p.Name())
	}
	o = new(BDF1)
	o.pk = p
	o.sol = sol
	o.cm = cm
	if o.cm == nil {
		o.cm = msh.NewComm()
	}
	o.uOld = p.Solution().Clone()
	o.res = p.Solution().Clone()
	o.du = p.Solution().Clone()
	return
}

// Step advances the PK solution from tOld to tNew in place. fail reports a
// recoverable numerical failure (inadmissible predictor, divergence, or too
// many iterations); the solution is restored in that case. dtNew is the
// recommended next increment: shrunk after failure, grown after an easy
// convergence.
func (o *BDF1) Step(tOld, tNew float64) (dtNew float64, fail bool, err error) {

	h := tNew - tOld
	u := o.pk.Solution()
	o.uOld.CopyFrom(u)
	dtNew = h

	// predictor: constant extrapolation, then the PKs may improve it
	if o.pk.ModifyPredictor(h, o.uOld, u) {
		o.pk.ChangedSolution()
	}

	// gate on admissibility of the initial guess
	if !o.pk.IsAdmissible(u) {
		if o.Verbose {
			io.Pfred("  . . . inadmissible predictor . . .\n")
		}
		return o.failStep(h, u)
	}

	// Newton iterations
	var fb, fb0, fbprev, enorm float64
	largFb := false
	lagged := false
	for it := 0; it < o.sol.NmaxIt; it++ {
		o.Niter = it + 1

		// residual
		err = o.pk.Functional(tOld, tNew, o.uOld, u, o.res)
		if err != nil {
			if o.Verbose {
				io.Pfred("  . . . residual evaluation failed: %v . . .\n", err)
			}
			dtNew, fail, _ = o.failStep(h, u)
			return dtNew, fail, nil
		}
		fb = math.Sqrt(o.cm.AllReduceSum(o.res.Dot()))
		if it == 0 {
			fb0 = fb
			largFb = fb0 > o.sol.FbMin
		}
		if o.Verbose {
			io.Pf("  it=%2d  fb=%13.6e  enorm=%13.6e\n", it, fb, enorm)
		}

		// convergence on the residual
		if fb < o.sol.FbMin {
			return o.passStep(h)
		}
		if largFb && fb < o.sol.FbTol*fb0 && (it == 0 || enorm < 1) {
			return o.passStep(h)
		}

		// divergence control
		if o.sol.DvgCtrl && it > 0 && fb > fbprev {
			if o.Verbose {
				io.Pfred("  . . . diverging . . .\n")
			}
			return o.failStep(h, u)
		}
		fbprev = fb

		// tangent: refreshed on the first iteration, then lagged if CteTg
		if it == 0 || !o.sol.CteTg || lagged {
			err = o.pk.UpdatePreconditioner(tNew, u, h)
			if err != nil {
				return dtNew, false, err
			}
			lagged = false
		}

		// correction
		err = o.pk.ApplyPreconditioner(o.res, o.du)
		if err != nil {
			dtNew, fail, _ = o.failStep(h, u)
			return dtNew, fail, nil
		}
		switch o.pk.ModifyCorrection(h, o.res, u, o.du) {
		case ModifiedLagged:
			lagged = true
		}
		u.Axpy(-1, o.du)
		o.pk.ChangedSolution()

		// error norm of the correction, agreed across processors
		enorm, err = o.pk.ErrorNorm(u, o.du)
		if err != nil {
			return dtNew, false, err
		}
		enorm = o.cm.AllReduceMax(enorm)
	}

	if o.Verbose {
		io.Pfred("  . . . did not converge after %d iterations . . .\n", o.sol.NmaxIt)
	}
	return o.failStep(h, u)
}

// passStep recommends the next increment after success
func (o *BDF1) passStep(h float64) (dtNew float64, fail bool, err error) {
	dtNew = h
	if o.Niter*3 <= o.sol.NmaxIt {
		dtNew = h * o.sol.DtGrow
	}
	return
}

// failStep restores the solution and recommends a shrunken increment
func (o *BDF1) failStep(h float64, u *TreeVector) (dtNew float64, fail bool, err error) {
	u.CopyFrom(o.uOld)
	o.pk.ChangedSolution()
	dtNew = h * o.sol.DtRed
	if dtNew < o.sol.DtMin {
		dtNew = o.sol.DtMin
	}
	return dtNew, true, nil
}
