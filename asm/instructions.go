// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"strings"
)

// This file is the assembler half of the instruction table spec.md §4.3
// describes: for each mnemonic, it knows which operand shapes are
// admissible and how to pick the right opcode byte. Opcode values here
// are the same literal numbers package cpu's instruction table assigns
// those opcodes to decode; the encodingCoverage test (asm_test.go) checks
// the two tables never drift apart.

// regCode maps a register-name token to the canonical 3-bit field
// (B=0 C=1 D=2 E=3 H=4 L=5 M=6 A=7). Matching is case-insensitive.
func regCode(tok string) (byte, bool) {
	switch strings.ToUpper(tok) {
	case "B":
		return 0, true
	case "C":
		return 1, true
	case "D":
		return 2, true
	case "E":
		return 3, true
	case "H":
		return 4, true
	case "L":
		return 5, true
	case "M":
		return 6, true
	case "A":
		return 7, true
	}
	return 0, false
}

// pairKind selects which register-pair names an instruction admits, per
// spec.md §4.4: LXI/INX/DCX/DAD admit SP but not PSW; PUSH/POP admit PSW
// but not SP; STAX/LDAX admit only B and D.
type pairKind int

const (
	pairLXI pairKind = iota
	pairPushPop
	pairStax
)

// pairCode maps a register-pair token to its 2-bit field (B=0x00 D=0x10
// H=0x20 SP|PSW=0x30), rejecting names the given kind does not admit.
func pairCode(tok string, kind pairKind) (byte, bool) {
	switch strings.ToUpper(tok) {
	case "B":
		return 0x00, true
	case "D":
		return 0x10, true
	case "H":
		if kind == pairStax {
			return 0, false
		}
		return 0x20, true
	case "SP":
		if kind != pairLXI {
			return 0, false
		}
		return 0x30, true
	case "PSW":
		if kind != pairPushPop {
			return 0, false
		}
		return 0x30, true
	}
	return 0, false
}

var conditionCode = map[string]byte{
	"NZ": 0, "Z": 1, "NC": 2, "C": 3, "PO": 4, "PE": 5, "P": 6, "M": 7,
}

// fixedOp is the table of every no-operand mnemonic (ShapeNone), mapping
// directly to a single opcode byte.
var fixedOp = map[string]byte{
	"NOP": 0x00, "DSUB": 0x08, "RIM": 0x20, "SIM": 0x30, "HLT": 0x76, "DAA": 0x27,
	"RLC": 0x07, "RRC": 0x0F, "RAL": 0x17, "RAR": 0x1F, "CMA": 0x2F,
	"STC": 0x37, "CMC": 0x3F, "XTHL": 0xE3, "XCHG": 0xEB, "PCHL": 0xE9,
	"SPHL": 0xF9, "DI": 0xF3, "EI": 0xFB, "RET": 0xC9,
	"RNZ": 0xC0, "RZ": 0xC8, "RNC": 0xD0, "RC": 0xD8,
	"RPO": 0xE0, "RPE": 0xE8, "RP": 0xF0, "RM": 0xF8,
}

// regOp is the table of single-register mnemonics (ShapeReg), keyed to
// the base opcode their register field is OR'd into.
var regOp = map[string]byte{
	"ADD": 0x80, "ADC": 0x88, "SUB": 0x90, "SBB": 0x98,
	"ANA": 0xA0, "XRA": 0xA8, "ORA": 0xB0, "CMP": 0xB8,
}

// imm8Op is the table of 8-bit-immediate mnemonics (ShapeImm8).
var imm8Op = map[string]byte{
	"ADI": 0xC6, "ACI": 0xCE, "SUI": 0xD6, "SBI": 0xDE,
	"ANI": 0xE6, "XRI": 0xEE, "ORI": 0xF6, "CPI": 0xFE,
}

// addr16Op is the table of unconditional 16-bit-address mnemonics
// (ShapeAddr16).
var addr16Op = map[string]byte{
	"JMP": 0xC3, "CALL": 0xCD, "SHLD": 0x22, "LHLD": 0x2A,
	"STA": 0x32, "LDA": 0x3A,
}

func condJmpOp(cc byte) byte  { return 0xC2 | cc<<3 }
func condCallOp(cc byte) byte { return 0xC4 | cc<<3 }

// encode dispatches a single parsed Statement (already known to name an
// instruction mnemonic, not a directive) to its opcode bytes. labels
// resolves label operands; it must already contain every label by pass
// 2 (pass 1 has completed).
func encode(filename string, stmt Statement, labels *labelTable) ([]byte, error) {
	m := stmt.Mnemonic
	ops := stmt.Operands
	line := stmt.Line

	if op, ok := fixedOp[m]; ok {
		if len(ops) != 0 {
			return nil, operandError(filename, line, 0, "%s takes no operands", m)
		}
		return []byte{op}, nil
	}

	if base, ok := regOp[m]; ok {
		return encodeReg(filename, line, m, base, ops)
	}

	if op, ok := imm8Op[m]; ok {
		return encodeImm8(filename, line, m, op, ops, labels)
	}

	if op, ok := addr16Op[m]; ok {
		return encodeAddr16(filename, line, m, op, ops, labels)
	}

	switch m {
	case "MOV":
		return encodeMOV(filename, line, ops)
	case "MVI":
		return encodeMVI(filename, line, ops, labels)
	case "LXI":
		return encodeLXI(filename, line, ops, labels)
	case "INR":
		return encodeRegField(filename, line, m, 0x04, ops)
	case "DCR":
		return encodeRegField(filename, line, m, 0x05, ops)
	case "INX":
		return encodePair(filename, line, m, 0x03, pairLXI, ops)
	case "DCX":
		return encodePair(filename, line, m, 0x0B, pairLXI, ops)
	case "DAD":
		return encodePair(filename, line, m, 0x09, pairLXI, ops)
	case "PUSH":
		return encodePair(filename, line, m, 0xC5, pairPushPop, ops)
	case "POP":
		return encodePair(filename, line, m, 0xC1, pairPushPop, ops)
	case "STAX":
		return encodeStaxLdax(filename, line, m, 0x02, ops)
	case "LDAX":
		return encodeStaxLdax(filename, line, m, 0x0A, ops)
	case "RST":
		return encodeRST(filename, line, ops, labels)
	case "IN":
		return encodeIO(filename, line, m, 0xDB, ops, labels)
	case "OUT":
		return encodeIO(filename, line, m, 0xD3, ops, labels)
	}

	if cc, ok := conditionCodeForCall(m, "J"); ok {
		return encodeAddr16(filename, line, m, condJmpOp(cc), ops, labels)
	}
	if cc, ok := conditionCodeForCall(m, "C"); ok {
		return encodeAddr16(filename, line, m, condCallOp(cc), ops, labels)
	}

	return nil, encodingError(filename, line, 0, "unknown mnemonic %q", m)
}

// conditionCodeForCall recognizes the eight Jcc/Ccc mnemonics (JNZ..JM,
// CNZ..CM) sharing prefix.
func conditionCodeForCall(m, prefix string) (byte, bool) {
	if !strings.HasPrefix(m, prefix) || len(m) <= len(prefix) {
		return 0, false
	}
	cc, ok := conditionCode[m[len(prefix):]]
	return cc, ok
}

func expectOperands(filename string, line int, m string, ops []fstring, n int) error {
	if len(ops) != n {
		return operandError(filename, line, 0, "%s expects %d operand(s), got %d", m, n, len(ops))
	}
	return nil
}

func encodeReg(filename string, line int, m string, base byte, ops []fstring) ([]byte, error) {
	if err := expectOperands(filename, line, m, ops, 1); err != nil {
		return nil, err
	}
	r, ok := regCode(ops[0].String())
	if !ok {
		return nil, operandError(filename, line, ops[0].column, "%s: %q is not a register", m, ops[0].String())
	}
	return []byte{base | r}, nil
}

func encodeRegField(filename string, line int, m string, base byte, ops []fstring) ([]byte, error) {
	if err := expectOperands(filename, line, m, ops, 1); err != nil {
		return nil, err
	}
	r, ok := regCode(ops[0].String())
	if !ok {
		return nil, operandError(filename, line, ops[0].column, "%s: %q is not a register", m, ops[0].String())
	}
	return []byte{base | r<<3}, nil
}

func encodeImm8(filename string, line int, m string, op byte, ops []fstring, labels *labelTable) ([]byte, error) {
	if err := expectOperands(filename, line, m, ops, 1); err != nil {
		return nil, err
	}
	v, err := resolveU8(filename, line, labels, ops[0])
	if err != nil {
		return nil, err
	}
	return []byte{op, v}, nil
}

func encodeIO(filename string, line int, m string, op byte, ops []fstring, labels *labelTable) ([]byte, error) {
	return encodeImm8(filename, line, m, op, ops, labels)
}

// resolveAddr16 parses ops[0] as a numeric literal if it looks like one
// (JMP and friends accept a bare numeric literal in addition to a
// label, per spec.md §4.4), otherwise looks it up as a label.
func resolveAddr16(filename string, line int, labels *labelTable, tok fstring) (uint16, error) {
	text := tok.String()
	if looksLikeNumber(text) {
		return parseU16(text)
	}
	addr, ok := labels.lookup(text)
	if !ok {
		return 0, labelError(filename, line, tok.column, "undefined label %q", text)
	}
	return addr, nil
}

// resolveU8 parses tok as a numeric literal if it looks like one,
// otherwise looks it up as a label (an EQU constant, per spec.md §3/§4.2
// — the same probe-then-lookup fallback resolveAddr16 applies to
// addr16 operands applies equally to 8-bit immediate, I/O port, and RST
// vector operands), rejecting values that don't fit in a byte.
func resolveU8(filename string, line int, labels *labelTable, tok fstring) (byte, error) {
	text := tok.String()
	if looksLikeNumber(text) {
		return parseU8(text)
	}
	addr, ok := labels.lookup(text)
	if !ok {
		return 0, labelError(filename, line, tok.column, "undefined label %q", text)
	}
	if addr > 0xFF {
		return 0, operandError(filename, line, tok.column, "label %q value $%04X does not fit in 8 bits", text, addr)
	}
	return byte(addr), nil
}

func encodeAddr16(filename string, line int, m string, op byte, ops []fstring, labels *labelTable) ([]byte, error) {
	if err := expectOperands(filename, line, m, ops, 1); err != nil {
		return nil, err
	}
	addr, err := resolveAddr16(filename, line, labels, ops[0])
	if err != nil {
		return nil, err
	}
	return []byte{op, byte(addr), byte(addr >> 8)}, nil
}

func encodeMOV(filename string, line int, ops []fstring) ([]byte, error) {
	if err := expectOperands(filename, line, "MOV", ops, 2); err != nil {
		return nil, err
	}
	dst, ok := regCode(ops[0].String())
	if !ok {
		return nil, operandError(filename, line, ops[0].column, "MOV: %q is not a register", ops[0].String())
	}
	src, ok := regCode(ops[1].String())
	if !ok {
		return nil, operandError(filename, line, ops[1].column, "MOV: %q is not a register", ops[1].String())
	}
	if dst == 6 && src == 6 {
		return nil, operandError(filename, line, ops[0].column, "MOV M,M is not a valid instruction")
	}
	return []byte{0x40 | dst<<3 | src}, nil
}

func encodeMVI(filename string, line int, ops []fstring, labels *labelTable) ([]byte, error) {
	if err := expectOperands(filename, line, "MVI", ops, 2); err != nil {
		return nil, err
	}
	r, ok := regCode(ops[0].String())
	if !ok {
		return nil, operandError(filename, line, ops[0].column, "MVI: %q is not a register", ops[0].String())
	}
	v, err := resolveU8(filename, line, labels, ops[1])
	if err != nil {
		return nil, err
	}
	return []byte{0x06 | r<<3, v}, nil
}

func encodeLXI(filename string, line int, ops []fstring, labels *labelTable) ([]byte, error) {
	if err := expectOperands(filename, line, "LXI", ops, 2); err != nil {
		return nil, err
	}
	rp, ok := pairCode(ops[0].String(), pairLXI)
	if !ok {
		return nil, operandError(filename, line, ops[0].column, "LXI: %q is not a valid register pair", ops[0].String())
	}
	v, err := resolveAddr16(filename, line, labels, ops[1])
	if err != nil {
		return nil, err
	}
	return []byte{0x01 | rp, byte(v), byte(v >> 8)}, nil
}

func encodePair(filename string, line int, m string, base byte, kind pairKind, ops []fstring) ([]byte, error) {
	if err := expectOperands(filename, line, m, ops, 1); err != nil {
		return nil, err
	}
	rp, ok := pairCode(ops[0].String(), kind)
	if !ok {
		return nil, operandError(filename, line, ops[0].column, "%s: %q is not a valid operand here", m, ops[0].String())
	}
	return []byte{base | rp}, nil
}

func encodeStaxLdax(filename string, line int, m string, base byte, ops []fstring) ([]byte, error) {
	if err := expectOperands(filename, line, m, ops, 1); err != nil {
		return nil, err
	}
	rp, ok := pairCode(ops[0].String(), pairStax)
	if !ok {
		return nil, operandError(filename, line, ops[0].column, "%s admits only B or D", m)
	}
	op := base
	if rp == 0x10 {
		op |= 0x10
	}
	return []byte{op}, nil
}

func encodeRST(filename string, line int, ops []fstring, labels *labelTable) ([]byte, error) {
	if err := expectOperands(filename, line, "RST", ops, 1); err != nil {
		return nil, err
	}
	n, err := resolveU8(filename, line, labels, ops[0])
	if err != nil || n > 7 {
		return nil, operandError(filename, line, ops[0].column, "RST vector must be 0-7")
	}
	return []byte{0xC7 + 8*n}, nil
}

// instructionLength returns the byte length an instruction with this
// mnemonic will encode to, without performing operand validation — used
// by pass 1, which only needs sizes, not full well-formedness checks.
func instructionLength(m string) (int, bool) {
	if _, ok := fixedOp[m]; ok {
		return 1, true
	}
	if _, ok := regOp[m]; ok {
		return 1, true
	}
	if _, ok := imm8Op[m]; ok {
		return 2, true
	}
	if _, ok := addr16Op[m]; ok {
		return 3, true
	}
	switch m {
	case "MOV", "INR", "DCR", "INX", "DCX", "DAD", "PUSH", "POP", "STAX", "LDAX", "RST":
		return 1, true
	case "MVI":
		return 2, true
	case "LXI":
		return 3, true
	case "IN", "OUT":
		return 2, true
	}
	if _, ok := conditionCodeForCall(m, "J"); ok {
		return 3, true
	}
	if _, ok := conditionCodeForCall(m, "C"); ok {
		return 3, true
	}
	return 0, false
}
