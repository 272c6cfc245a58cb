// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package driver

import (
	"encoding/gob"
	"encoding/json"
	goio "io"
	"os"
	"path/filepath"

	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/io"

	"github.com/ghammond86/amanzi/state"
)

// Encoder defines encoders; e.g. gob or json
type Encoder interface {
	Encode(e interface{}) error
}

// Decoder defines decoders; e.g. gob or json
type Decoder interface {
	Decode(e interface{}) error
}

// GetEncoder returns a new encoder
func GetEncoder(w goio.Writer, enctype string) Encoder {
	if enctype == "json" {
		return json.NewEncoder(w)
	}
	return gob.NewEncoder(w)
}

// GetDecoder returns a new decoder
func GetDecoder(r goio.Reader, enctype string) Decoder {
	if enctype == "json" {
		return json.NewDecoder(r)
	}
	return gob.NewDecoder(r)
}

// Summary writes and reads simulation checkpoints: every initialized record
// of the state plus the time and cycle counters
type Summary struct {
	DirOut      string // output directory
	FnKey       string // simulation file key; used in checkpoint names
	EncType     string // encoder type: "gob" or "json"
	RestartPath string // checkpoint to restore before initialization; may be empty
}

// checkpoint is the payload of one summary file
type checkpoint struct {
	Time    float64              // committed time
	Cycle   int                  // cycle counter
	Scalars map[string]float64   // keytag => scalar value
	Vectors map[string][]float64 // keytag => vector value
}

// Path returns the name of the checkpoint file for a cycle
func (o *Summary) Path(cycle int) string {
	ext := "gob"
	if o.EncType == "json" {
		ext = "json"
	}
	return filepath.Join(o.DirOut, io.Sf("%s_cycle%08d.%s", o.FnKey, cycle, ext))
}

// Save writes one checkpoint with all initialized records of the state
func (o *Summary) Save(s *state.State) (err error) {
	cp := checkpoint{
		Time:    s.Time(""),
		Cycle:   s.Cycle(),
		Scalars: make(map[string]float64),
		Vectors: make(map[string][]float64),
	}
	for _, key := range s.Keys() {
		rs := s.GetRecordSet(key)
		for _, tag := range rs.Tags() {
			r := rs.GetRecord(tag)
			if !r.Initialized {
				continue
			}
			keytag := state.KeyTag(key, tag)
			switch r.Kind {
			case state.KindScalar:
				cp.Scalars[keytag] = r.Float()
			case state.KindVector:
				v := make([]float64, len(r.Vector()))
				copy(v, r.Vector())
				cp.Vectors[keytag] = v
			}
		}
	}
	err = os.MkdirAll(o.DirOut, 0777)
	if err != nil {
		return chk.Err("cannot create output directory %q: %v", o.DirOut, err)
	}
	fil, err := os.Create(o.Path(s.Cycle()))
	if err != nil {
		return chk.Err("cannot create checkpoint file: %v", err)
	}
	defer fil.Close()
	return GetEncoder(fil, o.EncType).Encode(&cp)
}

// Read restores one checkpoint into the state: known records get their
// values back and are marked initialized; records unknown to this run are
// skipped. The time and cycle counters are restored too.
func (o *Summary) Read(path string, s *state.State) (err error) {
	fil, err := os.Open(path)
	if err != nil {
		return chk.Err("cannot open checkpoint file %q: %v", path, err)
	}
	defer fil.Close()
	var cp checkpoint
	err = GetDecoder(fil, o.EncType).Decode(&cp)
	if err != nil {
		return chk.Err("cannot decode checkpoint file %q: %v", path, err)
	}
	for keytag, v := range cp.Scalars {
		key, tag := state.SplitKeyTag(keytag)
		if !s.HasData(key, tag) {
			continue
		}
		r := s.GetRecord(key, tag)
		r.SetFloat(r.Owner, v)
		r.SetInitialized()
	}
	for keytag, v := range cp.Vectors {
		key, tag := state.SplitKeyTag(keytag)
		if !s.HasData(key, tag) {
			continue
		}
		r := s.GetRecord(key, tag)
		copy(r.VectorW(r.Owner), v)
		r.SetInitialized()
	}
	s.SetTime("", cp.Time)
	s.SetCycle(cp.Cycle)
	return
}
