// Copyright 2014 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package disasm implements an Intel 8085 instruction set disassembler.
package disasm

import (
	"fmt"

	"github.com/8085dev/go8085/cpu"
)

var regName = [8]string{"B", "C", "D", "E", "H", "L", "M", "A"}

var hex = "0123456789ABCDEF"

// hexString returns a big-endian hexadecimal string representation of
// the byte slice, without reversing byte order — used only for operand
// bytes that are already in display order.
func hexString(b []byte) string {
	buf := make([]byte, len(b)*2)
	for i, v := range b {
		buf[i*2] = hex[v>>4]
		buf[i*2+1] = hex[v&0xf]
	}
	return string(buf)
}

// Disassemble decodes the instruction in m at addr, returning its
// mnemonic text and the address of the instruction that follows it.
func Disassemble(m cpu.Memory, addr uint16) (line string, next uint16) {
	opcode := m.LoadByte(addr)
	inst := cpu.InstructionAt(opcode)
	if inst == nil {
		return fmt.Sprintf("??? ($%02X)", opcode), addr + 1
	}

	operand := make([]byte, inst.Length-1)
	m.LoadBytes(addr+1, operand)

	line = inst.Name + operandText(opcode, inst.Shape, operand)
	next = addr + uint16(inst.Length)
	return
}

// pairName names the register pair selected by the canonical 8085 2-bit
// pair field at bits 4-5 of the opcode. forPushPop reports PSW instead of
// SP for the 0x30 code, matching PUSH/POP's admissibility rather than
// LXI/INX/DCX/DAD's.
func pairName(opcode byte, forPushPop bool) string {
	switch opcode & 0x30 {
	case 0x00:
		return "B"
	case 0x10:
		return "D"
	case 0x20:
		return "H"
	default:
		if forPushPop {
			return "PSW"
		}
		return "SP"
	}
}

// operandText formats an instruction's operands for display. Most shapes
// read their operand from the trailing bytes already fetched by
// Disassemble; MOV, register, and register-pair shapes instead decode
// their operand out of the opcode's own bit fields, since that's where
// the encoder packed them.
func operandText(opcode byte, shape cpu.OperandShape, operand []byte) string {
	switch shape {
	case cpu.ShapeNone:
		return ""
	case cpu.ShapeImm8, cpu.ShapeIO:
		return fmt.Sprintf(" %02Xh", operand[0])
	case cpu.ShapeRST:
		return fmt.Sprintf(" %dh", (opcode-0xC7)/8)
	case cpu.ShapeAddr16:
		return fmt.Sprintf(" %02X%02Xh", operand[1], operand[0])
	case cpu.ShapeMov:
		return fmt.Sprintf(" %s,%s", regName[(opcode>>3)&0x7], regName[opcode&0x7])
	case cpu.ShapeReg:
		// INR/DCR (opcodes below 0x80) carry their register in bits 3-5;
		// the ALU register group (0x80 and above) carries it in bits 0-2.
		if opcode < 0x80 {
			return " " + regName[(opcode>>3)&0x7]
		}
		return " " + regName[opcode&0x7]
	case cpu.ShapeRegPair:
		forPushPop := opcode&0xC0 == 0xC0 // PUSH/POP live in 0xC0-0xFF
		return " " + pairName(opcode, forPushPop)
	case cpu.ShapeMvi:
		return fmt.Sprintf(" %s,%02Xh", regName[(opcode>>3)&0x7], operand[0])
	case cpu.ShapeLxi:
		return fmt.Sprintf(" %s,%02X%02Xh", pairName(opcode, false), operand[1], operand[0])
	default:
		if len(operand) == 0 {
			return ""
		}
		return " " + hexString(operand)
	}
}
