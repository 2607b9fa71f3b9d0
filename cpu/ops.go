// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// This file implements the execFunc for every defined opcode in
// instructionTable (instructions.go). Each function receives the opcode
// byte (so register/pair/condition fields embedded in it can be decoded)
// and the already-fetched operand bytes, and returns the cycle cost of
// the instruction it just ran.

func (c *CPU) execNOP(op byte, operand []byte) byte { return 4 }

// execDSUB implements the undocumented DSUB opcode: HL = HL - BC, with
// flags set from the two underlying 8-bit subtractions (L-C, then
// H-B-borrow).
func (c *CPU) execDSUB(op byte, operand []byte) byte {
	l := c.sub8(c.Reg.L, c.Reg.C, 0)
	h := c.sub8(c.Reg.H, c.Reg.B, boolToByte(c.Reg.Carry()))
	c.Reg.L = l
	c.Reg.H = h
	return 10
}

// execRIM loads the accumulator with the (here, minimal) interrupt-mask
// and serial-input status: bit 3 reflects the current interrupt-enable
// state, all other bits read 0.
func (c *CPU) execRIM(op byte, operand []byte) byte {
	c.Reg.A = boolToByte(c.Reg.InterruptEnable) << 3
	return 4
}

// execSIM consumes the accumulator as an interrupt-mask/serial-output
// word. No serial hardware is modeled, so the only observable effect is
// bit 3 (unused here) — the instruction still costs the documented cycles
// and leaves A unchanged.
func (c *CPU) execSIM(op byte, operand []byte) byte { return 4 }

func (c *CPU) execHLT(op byte, operand []byte) byte {
	c.Reg.Halted = true
	return 5
}

// execDAA adjusts A to valid packed-BCD after an addition, per the
// 8085's documented DAA algorithm.
func (c *CPU) execDAA(op byte, operand []byte) byte {
	a := c.Reg.A
	cy := c.Reg.Carry()
	correction := byte(0)
	if c.Reg.AuxCarry() || a&0xF > 9 {
		correction |= 0x06
	}
	if cy || a>>4 > 9 || (a>>4 == 9 && a&0xF > 9) {
		correction |= 0x60
		cy = true
	}
	c.Reg.A = c.add8(a, correction, 0)
	c.Reg.setFlag(flagCY, cy)
	return 4
}

func (c *CPU) execRLC(op byte, operand []byte) byte {
	a := c.Reg.A
	bit7 := a >> 7
	c.Reg.A = a<<1 | bit7
	c.Reg.setFlag(flagCY, bit7 != 0)
	return 4
}

func (c *CPU) execRRC(op byte, operand []byte) byte {
	a := c.Reg.A
	bit0 := a & 1
	c.Reg.A = a>>1 | bit0<<7
	c.Reg.setFlag(flagCY, bit0 != 0)
	return 4
}

func (c *CPU) execRAL(op byte, operand []byte) byte {
	a := c.Reg.A
	bit7 := a >> 7
	c.Reg.A = a<<1 | boolToByte(c.Reg.Carry())
	c.Reg.setFlag(flagCY, bit7 != 0)
	return 4
}

func (c *CPU) execRAR(op byte, operand []byte) byte {
	a := c.Reg.A
	bit0 := a & 1
	c.Reg.A = a>>1 | boolToByte(c.Reg.Carry())<<7
	c.Reg.setFlag(flagCY, bit0 != 0)
	return 4
}

func (c *CPU) execCMA(op byte, operand []byte) byte {
	c.Reg.A = ^c.Reg.A
	return 4
}

func (c *CPU) execSTC(op byte, operand []byte) byte {
	c.Reg.setFlag(flagCY, true)
	return 4
}

func (c *CPU) execCMC(op byte, operand []byte) byte {
	c.Reg.setFlag(flagCY, !c.Reg.Carry())
	return 4
}

func (c *CPU) execXTHL(op byte, operand []byte) byte {
	v := c.Mem.LoadAddress(c.Reg.SP)
	c.Mem.StoreAddress(c.Reg.SP, c.Reg.HL())
	c.Reg.SetHL(v)
	return 16
}

func (c *CPU) execXCHG(op byte, operand []byte) byte {
	h, l := c.Reg.H, c.Reg.L
	c.Reg.H, c.Reg.L = c.Reg.D, c.Reg.E
	c.Reg.D, c.Reg.E = h, l
	return 4
}

func (c *CPU) execPCHL(op byte, operand []byte) byte {
	c.Reg.PC = c.Reg.HL()
	return 6
}

func (c *CPU) execSPHL(op byte, operand []byte) byte {
	c.Reg.SP = c.Reg.HL()
	return 6
}

func (c *CPU) execDI(op byte, operand []byte) byte {
	c.Reg.InterruptEnable = false
	return 4
}

func (c *CPU) execEI(op byte, operand []byte) byte {
	c.Reg.InterruptEnable = true
	return 4
}

func (c *CPU) execRET(op byte, operand []byte) byte {
	if c.popStackFault(op) {
		return 0
	}
	c.Reg.PC, c.Reg.SP = stackPop(c.Mem, c.Reg.SP)
	return 10
}

func (c *CPU) execRETcc(op byte, operand []byte) byte {
	cc := (op >> 3) & 7
	if c.conditionMet(cc) {
		if c.popStackFault(op) {
			return 0
		}
		c.Reg.PC, c.Reg.SP = stackPop(c.Mem, c.Reg.SP)
		return 12
	}
	return 6
}

func (c *CPU) execJMP(op byte, operand []byte) byte {
	c.Reg.PC = operand16(operand)
	return 10
}

func (c *CPU) execJMPcc(op byte, operand []byte) byte {
	cc := (op >> 3) & 7
	if c.conditionMet(cc) {
		c.Reg.PC = operand16(operand)
		return 10
	}
	return 7
}

func (c *CPU) execCALL(op byte, operand []byte) byte {
	if c.pushStackFault(op) {
		return 0
	}
	c.Reg.SP = stackPush(c.Mem, c.Reg.SP, c.Reg.PC)
	c.Reg.PC = operand16(operand)
	return 18
}

func (c *CPU) execCALLcc(op byte, operand []byte) byte {
	cc := (op >> 3) & 7
	if c.conditionMet(cc) {
		if c.pushStackFault(op) {
			return 0
		}
		c.Reg.SP = stackPush(c.Mem, c.Reg.SP, c.Reg.PC)
		c.Reg.PC = operand16(operand)
		return 18
	}
	return 9
}

func (c *CPU) execSHLD(op byte, operand []byte) byte {
	c.Mem.StoreAddress(operand16(operand), c.Reg.HL())
	return 16
}

func (c *CPU) execLHLD(op byte, operand []byte) byte {
	c.Reg.SetHL(c.Mem.LoadAddress(operand16(operand)))
	return 16
}

func (c *CPU) execSTA(op byte, operand []byte) byte {
	c.storeByte(operand16(operand), c.Reg.A)
	return 13
}

func (c *CPU) execLDA(op byte, operand []byte) byte {
	c.Reg.A = c.Mem.LoadByte(operand16(operand))
	return 13
}

func (c *CPU) execOUT(op byte, operand []byte) byte {
	c.IO.Out(operand[0], c.Reg.A)
	return 10
}

func (c *CPU) execIN(op byte, operand []byte) byte {
	c.Reg.A = c.IO.In(operand[0])
	return 10
}

func (c *CPU) execADI(op byte, operand []byte) byte {
	c.Reg.A = c.add8(c.Reg.A, operand[0], 0)
	return 7
}

func (c *CPU) execACI(op byte, operand []byte) byte {
	c.Reg.A = c.add8(c.Reg.A, operand[0], boolToByte(c.Reg.Carry()))
	return 7
}

func (c *CPU) execSUI(op byte, operand []byte) byte {
	c.Reg.A = c.sub8(c.Reg.A, operand[0], 0)
	return 7
}

func (c *CPU) execSBI(op byte, operand []byte) byte {
	c.Reg.A = c.sub8(c.Reg.A, operand[0], boolToByte(c.Reg.Carry()))
	return 7
}

func (c *CPU) execANI(op byte, operand []byte) byte {
	c.Reg.A = c.logicAnd(c.Reg.A, operand[0])
	return 7
}

func (c *CPU) execXRI(op byte, operand []byte) byte {
	c.Reg.A = c.logicXorOr(c.Reg.A ^ operand[0])
	return 7
}

func (c *CPU) execORI(op byte, operand []byte) byte {
	c.Reg.A = c.logicXorOr(c.Reg.A | operand[0])
	return 7
}

func (c *CPU) execCPI(op byte, operand []byte) byte {
	c.sub8(c.Reg.A, operand[0], 0)
	return 7
}

// execSTAX stores A at the address in BC (opcode 0x02) or DE (opcode
// 0x12); the assembler admits only these two pairs for STAX.
func (c *CPU) execSTAX(op byte, operand []byte) byte {
	addr := c.Reg.BC()
	if op == 0x12 {
		addr = c.Reg.DE()
	}
	c.storeByte(addr, c.Reg.A)
	return 7
}

func (c *CPU) execLDAX(op byte, operand []byte) byte {
	addr := c.Reg.BC()
	if op == 0x1A {
		addr = c.Reg.DE()
	}
	c.Reg.A = c.Mem.LoadByte(addr)
	return 7
}

func (c *CPU) execMOV(op byte, operand []byte) byte {
	dst, src := (op>>3)&7, op&7
	c.writeReg8(dst, c.readReg8(src))
	if dst == 6 || src == 6 {
		return 7
	}
	return 4
}

func (c *CPU) aluCycles(r byte) byte {
	if r == 6 {
		return 7
	}
	return 4
}

func (c *CPU) execADD(op byte, operand []byte) byte {
	r := op & 7
	c.Reg.A = c.add8(c.Reg.A, c.readReg8(r), 0)
	return c.aluCycles(r)
}

func (c *CPU) execADC(op byte, operand []byte) byte {
	r := op & 7
	c.Reg.A = c.add8(c.Reg.A, c.readReg8(r), boolToByte(c.Reg.Carry()))
	return c.aluCycles(r)
}

func (c *CPU) execSUB(op byte, operand []byte) byte {
	r := op & 7
	c.Reg.A = c.sub8(c.Reg.A, c.readReg8(r), 0)
	return c.aluCycles(r)
}

func (c *CPU) execSBB(op byte, operand []byte) byte {
	r := op & 7
	c.Reg.A = c.sub8(c.Reg.A, c.readReg8(r), boolToByte(c.Reg.Carry()))
	return c.aluCycles(r)
}

func (c *CPU) execANA(op byte, operand []byte) byte {
	r := op & 7
	c.Reg.A = c.logicAnd(c.Reg.A, c.readReg8(r))
	return c.aluCycles(r)
}

func (c *CPU) execXRA(op byte, operand []byte) byte {
	r := op & 7
	c.Reg.A = c.logicXorOr(c.Reg.A ^ c.readReg8(r))
	return c.aluCycles(r)
}

func (c *CPU) execORA(op byte, operand []byte) byte {
	r := op & 7
	c.Reg.A = c.logicXorOr(c.Reg.A | c.readReg8(r))
	return c.aluCycles(r)
}

// execCMP computes A-operand and sets flags without writing A, per
// spec.md's documented CMP semantics (the canonical 0xBE=CMP M /
// 0xBD=CMP L encoding is what instructionTable assigns, not the swapped
// pairing an earlier, buggy source table used).
func (c *CPU) execCMP(op byte, operand []byte) byte {
	r := op & 7
	c.sub8(c.Reg.A, c.readReg8(r), 0)
	return c.aluCycles(r)
}

func (c *CPU) execINR(op byte, operand []byte) byte {
	r := (op >> 3) & 7
	v := c.readReg8(r)
	result := v + 1
	c.Reg.setFlag(flagAC, v&0xF == 0xF)
	c.setZSP(result)
	c.writeReg8(r, result)
	if r == 6 {
		return 10
	}
	return 4
}

func (c *CPU) execDCR(op byte, operand []byte) byte {
	r := (op >> 3) & 7
	v := c.readReg8(r)
	result := v - 1
	c.Reg.setFlag(flagAC, v&0xF != 0)
	c.setZSP(result)
	c.writeReg8(r, result)
	if r == 6 {
		return 10
	}
	return 4
}

func (c *CPU) execMVI(op byte, operand []byte) byte {
	r := (op >> 3) & 7
	c.writeReg8(r, operand[0])
	if r == 6 {
		return 10
	}
	return 7
}

func (c *CPU) execLXI(op byte, operand []byte) byte {
	c.Reg.setPair(op&0x30, operand16(operand))
	return 10
}

func (c *CPU) execINX(op byte, operand []byte) byte {
	rp := op & 0x30
	c.Reg.setPair(rp, c.Reg.pair(rp)+1)
	return 6
}

func (c *CPU) execDCX(op byte, operand []byte) byte {
	rp := op & 0x30
	c.Reg.setPair(rp, c.Reg.pair(rp)-1)
	return 6
}

func (c *CPU) execDAD(op byte, operand []byte) byte {
	rp := op & 0x30
	sum := uint32(c.Reg.HL()) + uint32(c.Reg.pair(rp))
	c.Reg.SetHL(uint16(sum))
	c.Reg.setFlag(flagCY, sum > 0xFFFF)
	return 10
}

// execPUSH and execPOP treat the 0x30 pair field as PSW: the assembler's
// admissibility mask (package asm) is what keeps "PUSH SP" from ever
// reaching this function, so there is no ambiguity to resolve here.
func (c *CPU) execPUSH(op byte, operand []byte) byte {
	if c.pushStackFault(op) {
		return 0
	}
	rp := op & 0x30
	var v uint16
	if rp == 0x30 {
		v = c.Reg.PSW()
	} else {
		v = c.Reg.pair(rp)
	}
	c.Reg.SP = stackPush(c.Mem, c.Reg.SP, v)
	return 12
}

func (c *CPU) execPOP(op byte, operand []byte) byte {
	if c.popStackFault(op) {
		return 0
	}
	rp := op & 0x30
	var v uint16
	v, c.Reg.SP = stackPop(c.Mem, c.Reg.SP)
	if rp == 0x30 {
		c.Reg.SetPSW(v)
	} else {
		c.Reg.setPair(rp, v)
	}
	return 10
}

func (c *CPU) execRST(op byte, operand []byte) byte {
	if c.pushStackFault(op) {
		return 0
	}
	n := (op >> 3) & 7
	c.Reg.SP = stackPush(c.Mem, c.Reg.SP, c.Reg.PC)
	c.Reg.PC = uint16(n) * 8
	return 12
}
