// Copyright 2016 The Gofem Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// package state implements the data manager of a coupled simulation: records
// of field data, the directed acyclic graph of evaluators computing them, and
// the require/setup/initialize lifecycle.
package state

import "strings"

// A field is identified by a Key (its name) and a Tag (the temporal copy of
// its data; e.g. "", "next", "snapshot"). Tag "" is the current copy.

// KeyTag combines key and tag into a single identifier; e.g. "pressure@next"
func KeyTag(key, tag string) string {
	if tag == "" {
		return key
	}
	return key + "@" + tag
}

// SplitKeyTag splits a combined identifier into key and tag
func SplitKeyTag(keytag string) (key, tag string) {
	if i := strings.IndexByte(keytag, '@'); i >= 0 {
		return keytag[:i], keytag[i+1:]
	}
	return keytag, ""
}

// Dep identifies one dependency of an evaluator
type Dep struct {
	Key string // field name
	Tag string // temporal copy
}

// KeyTag returns the combined identifier of this dependency
func (o Dep) KeyTag() string { return KeyTag(o.Key, o.Tag) }
