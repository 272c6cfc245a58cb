// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"testing"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
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
