// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package inp

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun/dbf"
)

// FuncData holds function definition
type FuncData struct {
	Name string     `json:"name"` // name of function. ex: zero, dtcte, inflow
	Type string     `json:"type"` // type of function. ex: cte, rmp
	Prms dbf.Params `json:"prms"` // parameters
}

// FuncsData holds all functions
type FuncsData []*FuncData

// Get returns function by name. dbf panics on unknown types or invalid
// parameters; the panic is converted here into an error for the caller.
func (o FuncsData) Get(name string) (fcn dbf.T, err error) {
	defer func() {
		if r := recover(); r != nil {
			fcn = nil
			err = chk.Err("cannot get function named %q because of the following error:\n%v", name, r)
		}
	}()
	if name == "zero" || name == "none" {
		fcn = dbf.New("cte", nil)
		return
	}
	for _, f := range o {
		if f.Name == name {
			fcn = dbf.New(f.Type, f.Prms)
			return
		}
	}
	err = chk.Err("cannot find function named %q", name)
	return
}
