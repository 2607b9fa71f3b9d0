// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Registers contains the state of all 8085 registers.
type Registers struct {
	A byte // accumulator
	B byte
	C byte
	D byte
	E byte
	H byte
	L byte

	Flags byte // S Z x AC x P x CY packed per the flag* constants below

	PC uint16 // program counter
	SP uint16 // stack pointer, indexes directly into memory

	InterruptEnable bool // DI/EI state
	Halted           bool // set by HLT, cleared by a resuming interrupt
}

// Flag bit positions within the Flags byte. Bits 1, 3 and 5 are undefined
// on real hardware and always read as 0 here.
const (
	flagCY = 1 << 0 // carry
	flagP  = 1 << 2 // parity (even)
	flagAC = 1 << 4 // auxiliary carry (carry out of bit 3)
	flagZ  = 1 << 6 // zero
	flagS  = 1 << 7 // sign
)

// BC, DE, HL and PSW present the byte-register pairs as the 16-bit views
// the assembler's register-pair addressing mode and the CPU's 16-bit
// instructions operate on.

// BC returns the BC register pair.
func (r *Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }

// SetBC sets the BC register pair.
func (r *Registers) SetBC(v uint16) { r.B = byte(v >> 8); r.C = byte(v) }

// DE returns the DE register pair.
func (r *Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }

// SetDE sets the DE register pair.
func (r *Registers) SetDE(v uint16) { r.D = byte(v >> 8); r.E = byte(v) }

// HL returns the HL register pair.
func (r *Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

// SetHL sets the HL register pair.
func (r *Registers) SetHL(v uint16) { r.H = byte(v >> 8); r.L = byte(v) }

// PSW returns the Program Status Word: A in the high byte, Flags in the
// low byte. It is used only by PUSH PSW / POP PSW.
func (r *Registers) PSW() uint16 { return uint16(r.A)<<8 | uint16(r.Flags) }

// SetPSW sets A and Flags from a Program Status Word. Bits 1, 3 and 5 of
// the restored Flags byte always read as 0, so they are cleared here
// rather than carried over from v.
func (r *Registers) SetPSW(v uint16) {
	r.A = byte(v >> 8)
	r.Flags = byte(v) &^ (1<<5 | 1<<3 | 1<<1)
}

func (r *Registers) setFlag(bit byte, v bool) {
	if v {
		r.Flags |= bit
	} else {
		r.Flags &^= bit
	}
}

// Sign, Zero, AuxCarry, Parity, and Carry read the individual condition
// flags out of the Flags byte.

// Sign reports the state of the S flag.
func (r *Registers) Sign() bool { return r.Flags&flagS != 0 }

// Zero reports the state of the Z flag.
func (r *Registers) Zero() bool { return r.Flags&flagZ != 0 }

// AuxCarry reports the state of the AC flag.
func (r *Registers) AuxCarry() bool { return r.Flags&flagAC != 0 }

// Parity reports the state of the P flag.
func (r *Registers) Parity() bool { return r.Flags&flagP != 0 }

// Carry reports the state of the CY flag.
func (r *Registers) Carry() bool { return r.Flags&flagCY != 0 }

// SetSign, SetZero, SetAuxCarry, SetParity, and SetCarry let a debug
// console force an individual condition flag without disturbing the
// others.

// SetSign sets the S flag.
func (r *Registers) SetSign(v bool) { r.setFlag(flagS, v) }

// SetZero sets the Z flag.
func (r *Registers) SetZero(v bool) { r.setFlag(flagZ, v) }

// SetAuxCarry sets the AC flag.
func (r *Registers) SetAuxCarry(v bool) { r.setFlag(flagAC, v) }

// SetParity sets the P flag.
func (r *Registers) SetParity(v bool) { r.setFlag(flagP, v) }

// SetCarry sets the CY flag.
func (r *Registers) SetCarry(v bool) { r.setFlag(flagCY, v) }

// reg returns the byte register selected by the canonical 8085 3-bit
// register field (B=0 C=1 D=2 E=3 H=4 L=5 M=6 A=7). M (memory at HL) is
// not a register and must be special-cased by the caller; reg panics if
// asked for code 6.
func (r *Registers) reg(code byte) *byte {
	switch code & 0x7 {
	case 0:
		return &r.B
	case 1:
		return &r.C
	case 2:
		return &r.D
	case 3:
		return &r.E
	case 4:
		return &r.H
	case 5:
		return &r.L
	case 7:
		return &r.A
	default:
		panic("cpu: reg() called with M operand code")
	}
}

// pair returns the 16-bit register pair selected by the canonical 8085
// 2-bit pair field (B=0x00 D=0x10 H=0x20 SP=0x30), used by instructions
// that admit SP (LXI, INX, DCX, DAD).
func (r *Registers) pair(code byte) uint16 {
	switch code & 0x30 {
	case 0x00:
		return r.BC()
	case 0x10:
		return r.DE()
	case 0x20:
		return r.HL()
	default:
		return r.SP
	}
}

func (r *Registers) setPair(code byte, v uint16) {
	switch code & 0x30 {
	case 0x00:
		r.SetBC(v)
	case 0x10:
		r.SetDE(v)
	case 0x20:
		r.SetHL(v)
	default:
		r.SP = v
	}
}

// Init resets all registers to their post-Reset state: general registers
// and flags cleared, SP cleared, PC set to origin.
func (r *Registers) Init(origin uint16) {
	r.A, r.B, r.C, r.D, r.E, r.H, r.L = 0, 0, 0, 0, 0, 0, 0
	r.Flags = 0
	r.SP = 0
	r.PC = origin
	r.InterruptEnable = false
	r.Halted = false
}

func boolToByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// evenParity reports whether v has an even number of set bits, matching
// the 8085's P flag definition.
func evenParity(v byte) bool {
	v ^= v >> 4
	v ^= v >> 2
	v ^= v >> 1
	return v&1 == 0
}
