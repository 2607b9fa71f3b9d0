// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import (
	"bytes"
	"io/ioutil"
	"testing"

	"github.com/8085dev/go8085/cpu"
)

func assemble(t *testing.T, src string) *Result {
	t.Helper()
	r, _, err := Assemble(bytes.NewReader([]byte(src)), "test.asm", 0x0000, ioutil.Discard, 0)
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	return r
}

func assembleError(t *testing.T, src string) error {
	t.Helper()
	_, _, err := Assemble(bytes.NewReader([]byte(src)), "test.asm", 0x0000, ioutil.Discard, 0)
	if err == nil {
		t.Fatalf("expected an error, got none")
	}
	return err
}

func expectBytes(t *testing.T, r *Result, addr uint16, want ...byte) {
	t.Helper()
	got := make([]byte, len(want))
	r.Image.LoadBytes(addr, got)
	if !bytes.Equal(got, want) {
		t.Errorf("at $%04X: got % 02X, want % 02X", addr, got, want)
	}
}

func TestRegisterImmediateGroup(t *testing.T) {
	r := assemble(t, `
		MVI A,7
		MVI B,5
		ADD B
		SUB B
		ANA B
		XRA B
		ORA B
		CMP B
		HLT`)
	expectBytes(t, r, 0x0000, 0x3E, 0x07, 0x06, 0x05, 0x80, 0x90, 0xA0, 0xA8, 0xB0, 0xB8, 0x76)
}

func TestMOVEncoding(t *testing.T) {
	r := assemble(t, `
		MOV A,B
		MOV B,C
		MOV M,A
		MOV A,M`)
	expectBytes(t, r, 0x0000, 0x78, 0x41, 0x77, 0x7E)
}

func TestMOVMemToMemRejected(t *testing.T) {
	err := assembleError(t, `MOV M,M`)
	if _, ok := err.(*OperandError); !ok {
		t.Errorf("expected an OperandError, got %T: %v", err, err)
	}
}

func TestLXIAdmitsStackPointerNotPSW(t *testing.T) {
	r := assemble(t, `LXI SP,1000h`)
	expectBytes(t, r, 0x0000, 0x31, 0x00, 0x10)

	if err := assembleError(t, `LXI PSW,1000h`); err == nil {
		t.Error("expected LXI PSW to be rejected")
	}
}

func TestPushPopAdmitPSWNotStackPointer(t *testing.T) {
	r := assemble(t, `
		PUSH B
		PUSH PSW
		POP PSW
		POP H`)
	expectBytes(t, r, 0x0000, 0xC5, 0xF5, 0xF1, 0xE1)

	if err := assembleError(t, `PUSH SP`); err == nil {
		t.Error("expected PUSH SP to be rejected")
	}
	if err := assembleError(t, `POP SP`); err == nil {
		t.Error("expected POP SP to be rejected")
	}
}

func TestStaxLdaxAdmitOnlyBAndD(t *testing.T) {
	r := assemble(t, `
		STAX B
		STAX D
		LDAX B
		LDAX D`)
	expectBytes(t, r, 0x0000, 0x02, 0x12, 0x0A, 0x1A)

	if err := assembleError(t, `STAX H`); err == nil {
		t.Error("expected STAX H to be rejected")
	}
	if err := assembleError(t, `LDAX H`); err == nil {
		t.Error("expected LDAX H to be rejected")
	}
}

func TestRSTEncoding(t *testing.T) {
	r := assemble(t, `
		RST 0
		RST 7`)
	expectBytes(t, r, 0x0000, 0xC7, 0xFF)
}

func TestConditionalJumpsAndCalls(t *testing.T) {
	r := assemble(t, `
		ORG 0100h
		JNZ LOOP
		JZ LOOP
		CNC LOOP
		CC LOOP
	LOOP:
		RET`)
	expectBytes(t, r, 0x0100, 0xC2, 0x0C, 0x01)
	expectBytes(t, r, 0x0103, 0xCA, 0x0C, 0x01)
	expectBytes(t, r, 0x0106, 0xD4, 0x0C, 0x01)
	expectBytes(t, r, 0x0109, 0xDC, 0x0C, 0x01)
	expectBytes(t, r, 0x010C, 0xC9)
}

func TestForwardLabelReference(t *testing.T) {
	r := assemble(t, `
		JMP DONE
		NOP
	DONE:
		HLT`)
	expectBytes(t, r, 0x0000, 0xC3, 0x04, 0x00)
	if addr := r.Labels["DONE"]; addr != 0x0004 {
		t.Errorf("DONE resolved to $%04X, want $0004", addr)
	}
}

func TestDuplicateLabelIsAnError(t *testing.T) {
	err := assembleError(t, `
	AGAIN:
		NOP
	AGAIN:
		NOP`)
	if _, ok := err.(*LabelError); !ok {
		t.Errorf("expected a LabelError, got %T: %v", err, err)
	}
}

func TestUndefinedLabelIsAnError(t *testing.T) {
	err := assembleError(t, `JMP NOWHERE`)
	if _, ok := err.(*LabelError); !ok {
		t.Errorf("expected a LabelError, got %T: %v", err, err)
	}
}

func TestOrgMovesTheVirtualPC(t *testing.T) {
	r := assemble(t, `
		ORG 2000h
		NOP
		ORG 3000h
		HLT`)
	expectBytes(t, r, 0x2000, 0x00)
	expectBytes(t, r, 0x3000, 0x76)
}

func TestEquDefinesAConstant(t *testing.T) {
	r := assemble(t, `
	PORTA EQU 10h
		MVI A,5
		OUT PORTA`)
	expectBytes(t, r, 0x0002, 0xD3, 0x10)
	if v := r.Labels["PORTA"]; v != 0x0010 {
		t.Errorf("PORTA resolved to $%04X, want $0010", v)
	}
}

// TestEquConstantAsImmediate checks that an EQU-bound name also resolves
// in 8-bit immediate, I/O port, and RST vector operand position, not
// just addr16 position (spec.md §3/§4.2).
func TestEquConstantAsImmediate(t *testing.T) {
	r := assemble(t, `
	COUNT EQU 5h
	VEC EQU 3h
		MVI A,COUNT
		ADI COUNT
		OUT COUNT
		RST VEC`)
	expectBytes(t, r, 0x0000, 0x3E, 0x05, 0xC6, 0x05, 0xD3, 0x05, 0xC7+8*3)
}

func TestUnterminatedCharLiteralIsALexError(t *testing.T) {
	err := assembleError(t, `DB 'A`)
	if _, ok := err.(*LexError); !ok {
		t.Errorf("expected a LexError, got %T: %v", err, err)
	}
}

func TestDBLiteralForms(t *testing.T) {
	r := assemble(t, `DB 10, 0Ah, 0x0A, $0A, 12q, 1010b, 'A'`)
	expectBytes(t, r, 0x0000, 10, 10, 10, 10, 10, 10, 'A')
}

func TestDBStringLiteral(t *testing.T) {
	r := assemble(t, `DB 'HI'`)
	expectBytes(t, r, 0x0000, 'H', 'I')
}

func TestDWLittleEndian(t *testing.T) {
	r := assemble(t, `DW 1234h, 5678h`)
	expectBytes(t, r, 0x0000, 0x34, 0x12, 0x78, 0x56)
}

func TestUnknownMnemonicIsAnError(t *testing.T) {
	if err := assembleError(t, `FROB A,B`); err == nil {
		t.Error("expected an error for an unknown mnemonic")
	}
}

// TestEncodingCoverageAgreesWithDecodeTable cross-checks, for a sample of
// mnemonics, that the opcode this package encodes decodes back to an
// instruction of the same byte length in package cpu, catching drift
// between the two independently maintained tables.
func TestEncodingCoverageAgreesWithDecodeTable(t *testing.T) {
	samples := []string{
		"NOP", "HLT", "RLC", "RAR", "MOV A,B", "MVI A,1", "LXI H,1000h",
		"ADD B", "ADI 1", "JMP 0", "PUSH H", "RST 1", "IN 1", "DSUB",
	}
	for _, src := range samples {
		r := assemble(t, src)
		op := r.Image.LoadByte(0)
		inst := cpu.InstructionAt(op)
		if inst == nil {
			t.Errorf("%q: opcode $%02X has no decode-table entry", src, op)
			continue
		}
		mnemonic, _, _ := bytes.Cut([]byte(src), []byte(" "))
		wantLen, ok := instructionLength(string(mnemonic))
		if !ok {
			t.Errorf("%q: no pass-1 length known for mnemonic %q", src, mnemonic)
			continue
		}
		if int(inst.Length) != wantLen {
			t.Errorf("%q: encoder sizes it at %d bytes, decoder at %d", src, wantLen, inst.Length)
		}
	}
}
