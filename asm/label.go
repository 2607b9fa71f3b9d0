// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

// LabelMap maps every label defined in a source file to the address it
// resolved to, returned to the caller alongside the assembled image
// (spec.md §6.2).
type LabelMap map[string]uint16

// labelTable is pass 1's working set of label definitions. A label names
// the address of the byte immediately following its "NAME:" line.
type labelTable struct {
	defs map[string]uint16
}

func newLabelTable() *labelTable {
	return &labelTable{defs: make(map[string]uint16)}
}

// define records name at addr. It returns a LabelError if name was
// already defined.
func (lt *labelTable) define(filename string, line int, name string, addr uint16) error {
	if _, exists := lt.defs[name]; exists {
		return labelError(filename, line, 0, "duplicate label %q", name)
	}
	lt.defs[name] = addr
	return nil
}

func (lt *labelTable) lookup(name string) (uint16, bool) {
	addr, ok := lt.defs[name]
	return addr, ok
}

func (lt *labelTable) export() LabelMap {
	m := make(LabelMap, len(lt.defs))
	for k, v := range lt.defs {
		m[k] = v
	}
	return m
}
