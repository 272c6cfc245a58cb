// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package inp implements the input data read from a (.sim) JSON file
package inp

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"
)

// Data holds global data for simulations
type Data struct {
	Desc    string  `json:"desc"`    // description of simulation
	DirOut  string  `json:"dirout"`  // directory for output; e.g. /tmp/amanzi
	Encoder string  `json:"encoder"` // encoder name; e.g. "gob" "json"
	ListFds bool    `json:"listfds"` // list fields after setup
	Ncells  int     `json:"ncells"`  // number of cells of the (uniform) mesh
	Length  float64 `json:"length"`  // total length of the mesh
}

// SetDefault sets defaults
func (o *Data) SetDefault(simfnk string) {
	if o.DirOut == "" {
		o.DirOut = "/tmp/amanzi/" + simfnk
	}
	if o.Encoder == "" {
		o.Encoder = "gob"
	}
	if o.Ncells < 1 {
		o.Ncells = 1
	}
	if o.Length <= 0 {
		o.Length = 1.0
	}
}

// SolverData holds nonlinear solver and timestep control data
type SolverData struct {

	// nonlinear solver
	NmaxIt  int     `json:"nmaxit"`  // number of max iterations
	Atol    float64 `json:"atol"`    // absolute tolerance on du
	Rtol    float64 `json:"rtol"`    // relative tolerance on du
	FbTol   float64 `json:"fbtol"`   // tolerance for convergence on residual drop
	FbMin   float64 `json:"fbmin"`   // minimum value of residual norm
	DvgCtrl bool    `json:"dvgctrl"` // use divergence control
	NdvgMax int     `json:"ndvgmax"` // max number of consecutive diverging/failing steps
	CteTg   bool    `json:"ctetg"`   // use constant tangent (lagged preconditioner) during iterations

	// timestep control
	DtMin  float64 `json:"dtmin"`  // minimum time increment
	DtRed  float64 `json:"dtred"`  // time increment reduction factor upon failure
	DtGrow float64 `json:"dtgrow"` // time increment growth factor upon easy convergence
}

// SetDefault sets defaults
func (o *SolverData) SetDefault() {
	if o.NmaxIt < 1 {
		o.NmaxIt = 20
	}
	if o.Atol <= 0 {
		o.Atol = 1e-8
	}
	if o.Rtol <= 0 {
		o.Rtol = 1e-8
	}
	if o.FbTol <= 0 {
		o.FbTol = 1e-10
	}
	if o.FbMin <= 0 {
		o.FbMin = 1e-13
	}
	if o.NdvgMax < 1 {
		o.NdvgMax = 20
	}
	if o.DtMin <= 0 {
		o.DtMin = 1e-10
	}
	if o.DtRed <= 0 || o.DtRed >= 1 {
		o.DtRed = 0.5
	}
	if o.DtGrow < 1 {
		o.DtGrow = 1.2
	}
}

// FieldData holds the specification of one field and its evaluator
type FieldData struct {
	Name   string   `json:"name"`   // field name; e.g. "pressure"
	EvType string   `json:"evtype"` // evaluator type; e.g. "primary", "independent"
	Kind   string   `json:"kind"`   // data kind: "scalar" or "vector"
	Func   string   `json:"func"`   // function name for independent evaluators
	IcVal  float64  `json:"icval"`  // initial condition value (primary fields)
	HasIc  bool     `json:"hasic"`  // initial condition value is present
	Deps   []string `json:"deps"`   // dependency field names (configured secondaries)
}

// PKData holds the specification of one process kernel in the PK tree
type PKData struct {
	Name string   `json:"name"` // unique PK name
	Type string   `json:"type"` // PK type in factory; e.g. "strong mpc", "richards cell"
	Kids []string `json:"kids"` // ordered children names (composite PKs)
	Prms []*PkPrm `json:"prms"` // named scalar parameters
	Flds []string `json:"flds"` // primary field names used by this PK
}

// PkPrm holds one named PK parameter
type PkPrm struct {
	N string  `json:"n"` // name
	V float64 `json:"v"` // value
}

// Prm returns a named parameter value, or the given default if absent
func (o *PKData) Prm(name string, dflt float64) float64 {
	for _, p := range o.Prms {
		if p.N == name {
			return p.V
		}
	}
	return dflt
}

// TimePeriod holds the control data for one time period
type TimePeriod struct {
	Tf      float64 `json:"tf"`    // final time of this period
	DtFunc  string  `json:"dt"`    // name of time increment function
	DtoFunc string  `json:"dtout"` // name of output time increment function
	Skip    bool    `json:"skip"`  // do not run this period
}

// Simulation holds all simulation data read from a .sim file
type Simulation struct {

	// input
	Data      Data          `json:"data"`      // global data
	Solver    SolverData    `json:"solver"`    // solver and timestep control data
	Functions FuncsData     `json:"functions"` // all functions of time/space
	Fields    []*FieldData  `json:"fields"`    // all field/evaluator specifications
	PKs       []*PKData     `json:"pks"`       // all process kernels
	Root      string        `json:"root"`      // name of root PK
	Periods   []*TimePeriod `json:"periods"`   // time periods

	// derived
	Key     string // simulation key == filename without extension
	EncType string // encoder type
}

// ReadSim reads a simulation input file. It returns nil on failure, after
// printing the cause.
func ReadSim(simfilepath string, verbose bool) (o *Simulation) {

	// read file
	b, err := os.ReadFile(simfilepath)
	if err != nil {
		io.Pfred("sim file cannot be read: %v\n", err)
		return nil
	}

	// decode
	o = new(Simulation)
	err = json.Unmarshal(b, o)
	if err != nil {
		io.Pfred("sim file is invalid: %v\n", err)
		return nil
	}

	// derived data and defaults
	fn := filepath.Base(simfilepath)
	o.Key = fn[:len(fn)-len(filepath.Ext(fn))]
	o.SetDefault()

	// check
	err = o.Check()
	if err != nil {
		io.Pfred("sim file check failed:\n%v\n", err)
		return nil
	}

	// message
	if verbose {
		io.Pf("> simulation (.sim) file read. key=%q\n", o.Key)
	}
	return
}

// SetDefault fills in defaults and derived data. It must be called on
// simulations assembled in code rather than read from a file.
func (o *Simulation) SetDefault() {
	if o.Key == "" {
		o.Key = "sim"
	}
	o.Data.SetDefault(o.Key)
	o.Solver.SetDefault()
	o.EncType = o.Data.Encoder
}

// Check verifies that the input is consistent: all configuration errors are
// reported here, before any setup work begins.
func (o *Simulation) Check() (err error) {

	// fields
	for _, fd := range o.Fields {
		if fd.Name == "" {
			return chk.Err("field with empty name in 'fields' list")
		}
		switch fd.Kind {
		case "", "scalar", "vector":
		default:
			return chk.Err("field %q has unknown kind %q", fd.Name, fd.Kind)
		}
		if fd.EvType == "independent" && fd.Func == "" {
			return chk.Err("independent field %q requires a function name", fd.Name)
		}
		if fd.Func != "" {
			if _, e := o.Functions.Get(fd.Func); e != nil {
				return chk.Err("field %q: %v", fd.Name, e)
			}
		}
	}

	// PK tree: all names must be resolvable, each PK used at most once and
	// the root must reach all of its children without cycles
	if len(o.PKs) > 0 {
		if o.Root == "" {
			return chk.Err("'root' PK name is missing in sim file")
		}
		if o.PKdata(o.Root) == nil {
			return chk.Err("cannot find root PK named %q", o.Root)
		}
		visited := make(map[string]bool)
		err = o.checkPkTree(o.Root, visited)
		if err != nil {
			return
		}
	}

	// time periods
	for i, tp := range o.Periods {
		if tp.DtFunc == "" {
			return chk.Err("time period %d is missing its dt function", i)
		}
		if _, e := o.Functions.Get(tp.DtFunc); e != nil {
			return chk.Err("time period %d: %v", i, e)
		}
		if tp.DtoFunc != "" {
			if _, e := o.Functions.Get(tp.DtoFunc); e != nil {
				return chk.Err("time period %d: %v", i, e)
			}
		}
	}
	return
}

// checkPkTree checks one branch of the PK tree
func (o *Simulation) checkPkTree(name string, visited map[string]bool) (err error) {
	if visited[name] {
		return chk.Err("PK %q appears more than once in the PK tree", name)
	}
	visited[name] = true
	dat := o.PKdata(name)
	if dat == nil {
		return chk.Err("cannot find PK named %q in 'pks' list", name)
	}
	for _, kid := range dat.Kids {
		err = o.checkPkTree(kid, visited)
		if err != nil {
			return
		}
	}
	return
}

// PKdata returns the data of a named PK, or nil if absent
func (o *Simulation) PKdata(name string) *PKData {
	for _, dat := range o.PKs {
		if dat.Name == name {
			return dat
		}
	}
	return nil
}

// FieldSpec returns the specification of a named field, or nil if absent
func (o *Simulation) FieldSpec(name string) *FieldData {
	for _, fd := range o.Fields {
		if fd.Name == name {
			return fd
		}
	}
	return nil
}
