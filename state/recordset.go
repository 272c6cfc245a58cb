// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package state

import (
	"github.com/cpmech/gosl/chk"
)

// RecordSet owns the records of a single key across all tags it has been
// required with. All tags of a key share one data kind and one shape.
type RecordSet struct {

	// metadata
	Key  string // field name
	Kind Kind   // data kind shared by all tags
	N    int    // vector length; 0 until shaped by EnsureCompatibility

	// records
	records map[string]*Record // tag => record
	tags    []string           // tags in requirement order
}

// NewRecordSet returns a new record set for one key
func NewRecordSet(key string) (o *RecordSet) {
	o = new(RecordSet)
	o.Key = key
	o.records = make(map[string]*Record)
	return
}

// SetKind sets the data kind of this key. Requiring a conflicting kind for
// an already-registered key is a configuration error.
func (o *RecordSet) SetKind(kind Kind) (err error) {
	if kind == "" {
		kind = KindScalar
	}
	if o.Kind == "" {
		o.Kind = kind
		for _, r := range o.records {
			r.Kind = kind
		}
		return
	}
	if o.Kind != kind {
		return chk.Err("field %q is already registered with kind %q; cannot require kind %q",
			o.Key, o.Kind, kind)
	}
	return
}

// RequireRecord registers storage for one tag. The call is idempotent:
// requiring the same tag twice does not duplicate storage. A non-empty owner
// claims ownership; claiming an already-owned record is a configuration
// error.
func (o *RecordSet) RequireRecord(tag, owner string) (r *Record, err error) {
	r, ok := o.records[tag]
	if !ok {
		r = &Record{Key: o.Key, Tag: tag, Kind: o.Kind}
		o.records[tag] = r
		o.tags = append(o.tags, tag)
	}
	if owner != "" {
		if r.Owner != "" && r.Owner != owner {
			return nil, chk.Err("record {key=%q, tag=%q} is already owned by %q; cannot assign owner %q",
				o.Key, tag, r.Owner, owner)
		}
		r.Owner = owner
	}
	return
}

// HasRecord tells whether a tag has been required
func (o *RecordSet) HasRecord(tag string) bool {
	_, ok := o.records[tag]
	return ok
}

// GetRecord returns the record of one tag; unknown tags are a fatal lookup
// error
func (o *RecordSet) GetRecord(tag string) *Record {
	r, ok := o.records[tag]
	if !ok {
		chk.Panic("cannot find record {key=%q, tag=%q}", o.Key, tag)
	}
	return r
}

// Tags returns the required tags in requirement order
func (o *RecordSet) Tags() []string { return o.tags }

// allocate sizes the storage of all records; returns true if anything changed
func (o *RecordSet) allocate() (changed bool) {
	for _, tag := range o.tags {
		if o.records[tag].allocate(o.N) {
			changed = true
		}
	}
	return
}
