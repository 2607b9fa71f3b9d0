// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package asm implements a two-pass assembler for Intel 8085 source,
// producing a flat 64KiB memory image ready to hand to package cpu.
package asm

import (
	"fmt"
	"io"
	"io/ioutil"

	"github.com/8085dev/go8085/cpu"
)

// Option is a bitmask of assembler behaviors, set by the caller the way
// package cpu's Debugger options work: a small set of independent bits
// rather than a config struct, since there are only a couple of knobs.
type Option byte

const (
	// Verbose causes Assemble to write a listing (address, encoded
	// bytes, source line) to its output writer as it assembles.
	Verbose Option = 1 << iota
)

// Result is everything assembling a source file produces.
type Result struct {
	Image     *cpu.FlatMemory
	Origin    uint16
	Labels    LabelMap
	SourceMap *SourceMap
}

// Assemble reads 8085 source from src, assembles it into a 64KiB image
// starting at origin, and returns the result plus the label table built
// along the way. filename is used only to annotate error messages and
// listing output. When opts includes Verbose, a source-level listing is
// written to out.
func Assemble(src io.Reader, filename string, origin uint16, out io.Writer, opts Option) (*Result, LabelMap, error) {
	raw, err := ioutil.ReadAll(src)
	if err != nil {
		return nil, nil, err
	}

	sf, err := newSourceFile(filename, string(raw))
	if err != nil {
		return nil, nil, err
	}

	labels := newLabelTable()
	if err := pass1(filename, sf, origin, labels); err != nil {
		return nil, nil, err
	}

	mem := cpu.NewFlatMemory()
	smap := &SourceMap{Files: []string{filename}}
	sf.Rewind()
	if err := pass2(filename, sf, origin, labels, mem, smap, out, opts); err != nil {
		return nil, nil, err
	}
	for name, addr := range labels.export() {
		smap.Exports = append(smap.Exports, Export{Name: name, Address: int(addr)})
	}

	return &Result{Image: mem, Origin: origin, Labels: labels.export(), SourceMap: smap}, labels.export(), nil
}

// pass1 walks every statement, assigning each label the address of the
// byte that follows it, and each EQU name the literal value it binds.
// This requires knowing every directive/instruction's encoded length
// without actually encoding it, since forward references (a JMP to a
// label defined later in the file) are the entire reason two passes
// exist (spec.md §4.4).
func pass1(filename string, sf *SourceFile, origin uint16, labels *labelTable) error {
	pc := origin
	for {
		stmt, ok := sf.NextStatement()
		if !ok {
			break
		}

		if stmt.Mnemonic == "EQU" {
			if err := defineEquLabel(filename, stmt, labels); err != nil {
				return err
			}
			continue
		}

		if stmt.Label != "" {
			if err := labels.define(filename, stmt.Line, stmt.Label, pc); err != nil {
				return err
			}
		}

		switch stmt.Mnemonic {
		case "":
			continue
		case "ORG":
			v, err := directiveOperand16(filename, stmt)
			if err != nil {
				return err
			}
			pc = v
			continue
		case "DB":
			pc += uint16(dbLength(stmt.Operands))
			continue
		case "DW":
			pc += uint16(2 * len(stmt.Operands))
			continue
		}

		n, ok := instructionLength(stmt.Mnemonic)
		if !ok {
			return encodingError(filename, stmt.Line, 0, "unknown mnemonic %q", stmt.Mnemonic)
		}
		pc += uint16(n)
	}
	return nil
}

// pass2 re-walks the statement stream with every label now resolved,
// encoding each instruction and directive and storing the result into
// mem at the matching address.
func pass2(filename string, sf *SourceFile, origin uint16, labels *labelTable, mem *cpu.FlatMemory, smap *SourceMap, out io.Writer, opts Option) error {
	pc := origin
	emit := func(stmt Statement, data []byte) {
		mem.StoreBytes(pc, data)
		listLine(out, opts, pc, data, stmt)
		smap.Lines = append(smap.Lines, SourceLine{Address: int(pc), FileIndex: 0, Line: stmt.Line})
		pc += uint16(len(data))
	}

	for {
		stmt, ok := sf.NextStatement()
		if !ok {
			break
		}

		switch stmt.Mnemonic {
		case "", "EQU":
			continue
		case "ORG":
			v, err := directiveOperand16(filename, stmt)
			if err != nil {
				return err
			}
			pc = v
			continue
		case "DB":
			data, err := encodeDB(filename, stmt)
			if err != nil {
				return err
			}
			emit(stmt, data)
			continue
		case "DW":
			data, err := encodeDW(filename, stmt)
			if err != nil {
				return err
			}
			emit(stmt, data)
			continue
		}

		data, err := encode(filename, stmt, labels)
		if err != nil {
			return err
		}
		emit(stmt, data)
	}
	return nil
}

func listLine(out io.Writer, opts Option, pc uint16, data []byte, stmt Statement) {
	if out == nil || opts&Verbose == 0 {
		return
	}
	fmt.Fprintf(out, "%04X: % -9X %s\n", pc, data, stmt.RawSource)
}

func directiveOperand16(filename string, stmt Statement) (uint16, error) {
	if len(stmt.Operands) != 1 {
		return 0, directiveError(filename, stmt.Line, 0, "%s expects exactly one operand", stmt.Mnemonic)
	}
	v, err := parseU16(stmt.Operands[0].String())
	if err != nil {
		return 0, directiveError(filename, stmt.Line, stmt.Operands[0].column, "%s: %s", stmt.Mnemonic, err)
	}
	return v, nil
}

func defineEquLabel(filename string, stmt Statement, labels *labelTable) error {
	if stmt.Label == "" {
		return directiveError(filename, stmt.Line, 0, "EQU requires a label")
	}
	v, err := directiveOperand16(filename, stmt)
	if err != nil {
		return err
	}
	return labels.define(filename, stmt.Line, stmt.Label, v)
}

// dbOperandLength reports how many bytes a single DB operand token
// contributes: a quoted literal contributes one byte per character
// between its quotes, anything else contributes exactly one byte.
func dbOperandLength(tok string) int {
	if len(tok) >= 2 && tok[0] == '\'' && tok[len(tok)-1] == '\'' {
		if n := len(tok) - 2; n > 0 {
			return n
		}
	}
	return 1
}

func dbLength(ops []fstring) int {
	n := 0
	for _, op := range ops {
		n += dbOperandLength(op.String())
	}
	return n
}

func encodeDB(filename string, stmt Statement) ([]byte, error) {
	if len(stmt.Operands) == 0 {
		return nil, directiveError(filename, stmt.Line, 0, "DB requires at least one operand")
	}
	var out []byte
	for _, op := range stmt.Operands {
		tok := op.String()
		if len(tok) >= 2 && tok[0] == '\'' && tok[len(tok)-1] == '\'' && len(tok) > 3 {
			out = append(out, tok[1:len(tok)-1]...)
			continue
		}
		v, err := parseU8(tok)
		if err != nil {
			return nil, directiveError(filename, stmt.Line, op.column, "DB: %s", err)
		}
		out = append(out, v)
	}
	return out, nil
}

func encodeDW(filename string, stmt Statement) ([]byte, error) {
	if len(stmt.Operands) == 0 {
		return nil, directiveError(filename, stmt.Line, 0, "DW requires at least one operand")
	}
	var out []byte
	for _, op := range stmt.Operands {
		v, err := parseU16(op.String())
		if err != nil {
			return nil, directiveError(filename, stmt.Line, op.column, "DW: %s", err)
		}
		out = append(out, byte(v), byte(v>>8))
	}
	return out, nil
}
