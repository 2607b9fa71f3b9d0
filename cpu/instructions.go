// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// OperandShape classifies the operand grammar of an instruction slot. The
// disassembler uses it to decide how to format an opcode's operands; the
// CPU itself only needs Opcode, Length and Exec to run.
type OperandShape int

// Operand shapes named in the instruction set.
const (
	ShapeNone    OperandShape = iota // no operand: NOP, HLT, RET, ...
	ShapeReg                         // single register B..A, M: INR, DCR, ...
	ShapeRegPair                     // register pair B,D,H,SP|PSW: DAD, PUSH, ...
	ShapeImm8                        // 8-bit immediate: ADI, MVI's second operand
	ShapeAddr16                      // 16-bit address or label: JMP, CALL, STA, ...
	ShapeRST                         // RST vector 0..7
	ShapeMov                         // MOV dst,src
	ShapeMvi                         // MVI reg,imm8
	ShapeLxi                         // LXI pair,imm16
	ShapeIO                          // IN/OUT port
)

// execFunc implements one opcode. It receives the already-fetched operand
// bytes (Length-1 of them, read relative to the pre-increment PC) and
// returns the number of clock cycles the instruction consumed. The CPU has
// already advanced Reg.PC past the instruction before Exec runs, so
// control-flow instructions that need "the address of the next
// instruction" (CALL, RST) read it directly from c.Reg.PC before
// overwriting it.
type execFunc func(c *CPU, opcode byte, operand []byte) byte

// Instruction is one record of the 256-slot opcode table. Encoding (how
// the assembler selects this opcode from source operands) and decoding
// (how the CPU executes it) are tied to the same Opcode value so the two
// halves of the instruction set can never drift apart silently; package
// asm's mnemonic tables are keyed by these same opcode values.
type Instruction struct {
	Opcode byte
	Name   string
	Length byte // total instruction length in bytes, including opcode
	Shape  OperandShape
	Exec   execFunc
}

// instructionTable holds all 256 opcode slots. A nil entry is one of the
// slots the 8085 leaves undefined: 0x10, 0x18, 0x28, 0x38, 0xCB, 0xD9,
// 0xDD, 0xED, 0xFD. 0x08 is filled by the undocumented DSUB instruction,
// which spec.md names explicitly alongside RIM/SIM.
var instructionTable [256]*Instruction

// InstructionAt returns the instruction record for opcode, or nil if the
// slot is undefined.
func InstructionAt(opcode byte) *Instruction {
	return instructionTable[opcode]
}

// Instructions returns every defined instruction in opcode order, for
// tools that need to walk the whole table.
func Instructions() []*Instruction {
	var out []*Instruction
	for _, in := range instructionTable {
		if in != nil {
			out = append(out, in)
		}
	}
	return out
}

func def(opcode byte, name string, length byte, shape OperandShape, fn execFunc) {
	instructionTable[opcode] = &Instruction{Opcode: opcode, Name: name, Length: length, Shape: shape, Exec: fn}
}

func init() {
	def(0x00, "NOP", 1, ShapeNone, (*CPU).execNOP)
	def(0x08, "DSUB", 1, ShapeNone, (*CPU).execDSUB)
	def(0x20, "RIM", 1, ShapeNone, (*CPU).execRIM)
	def(0x30, "SIM", 1, ShapeNone, (*CPU).execSIM)
	def(0x76, "HLT", 1, ShapeNone, (*CPU).execHLT)
	def(0x27, "DAA", 1, ShapeNone, (*CPU).execDAA)
	def(0x07, "RLC", 1, ShapeNone, (*CPU).execRLC)
	def(0x0F, "RRC", 1, ShapeNone, (*CPU).execRRC)
	def(0x17, "RAL", 1, ShapeNone, (*CPU).execRAL)
	def(0x1F, "RAR", 1, ShapeNone, (*CPU).execRAR)
	def(0x2F, "CMA", 1, ShapeNone, (*CPU).execCMA)
	def(0x37, "STC", 1, ShapeNone, (*CPU).execSTC)
	def(0x3F, "CMC", 1, ShapeNone, (*CPU).execCMC)
	def(0xE3, "XTHL", 1, ShapeNone, (*CPU).execXTHL)
	def(0xEB, "XCHG", 1, ShapeNone, (*CPU).execXCHG)
	def(0xE9, "PCHL", 1, ShapeNone, (*CPU).execPCHL)
	def(0xF9, "SPHL", 1, ShapeNone, (*CPU).execSPHL)
	def(0xF3, "DI", 1, ShapeNone, (*CPU).execDI)
	def(0xFB, "EI", 1, ShapeNone, (*CPU).execEI)
	def(0xC9, "RET", 1, ShapeNone, (*CPU).execRET)
	def(0xC3, "JMP", 3, ShapeAddr16, (*CPU).execJMP)
	def(0xCD, "CALL", 3, ShapeAddr16, (*CPU).execCALL)
	def(0x22, "SHLD", 3, ShapeAddr16, (*CPU).execSHLD)
	def(0x2A, "LHLD", 3, ShapeAddr16, (*CPU).execLHLD)
	def(0x32, "STA", 3, ShapeAddr16, (*CPU).execSTA)
	def(0x3A, "LDA", 3, ShapeAddr16, (*CPU).execLDA)
	def(0xD3, "OUT", 2, ShapeIO, (*CPU).execOUT)
	def(0xDB, "IN", 2, ShapeIO, (*CPU).execIN)
	def(0xC6, "ADI", 2, ShapeImm8, (*CPU).execADI)
	def(0xCE, "ACI", 2, ShapeImm8, (*CPU).execACI)
	def(0xD6, "SUI", 2, ShapeImm8, (*CPU).execSUI)
	def(0xDE, "SBI", 2, ShapeImm8, (*CPU).execSBI)
	def(0xE6, "ANI", 2, ShapeImm8, (*CPU).execANI)
	def(0xEE, "XRI", 2, ShapeImm8, (*CPU).execXRI)
	def(0xF6, "ORI", 2, ShapeImm8, (*CPU).execORI)
	def(0xFE, "CPI", 2, ShapeImm8, (*CPU).execCPI)
	def(0x02, "STAX", 1, ShapeRegPair, (*CPU).execSTAX)
	def(0x12, "STAX", 1, ShapeRegPair, (*CPU).execSTAX)
	def(0x0A, "LDAX", 1, ShapeRegPair, (*CPU).execLDAX)
	def(0x1A, "LDAX", 1, ShapeRegPair, (*CPU).execLDAX)

	// MOV dst,src: 0x40-0x7F, every (dst,src) pair except dst=src=M (0x76,
	// reused for HLT, already defined above).
	for dst := byte(0); dst < 8; dst++ {
		for src := byte(0); src < 8; src++ {
			op := 0x40 | dst<<3 | src
			if op == 0x76 {
				continue
			}
			def(op, "MOV", 1, ShapeMov, (*CPU).execMOV)
		}
	}

	// Register-addressed ALU group: 0x80-0xBF, one row per operation.
	aluOps := []struct {
		base byte
		name string
		fn   execFunc
	}{
		{0x80, "ADD", (*CPU).execADD},
		{0x88, "ADC", (*CPU).execADC},
		{0x90, "SUB", (*CPU).execSUB},
		{0x98, "SBB", (*CPU).execSBB},
		{0xA0, "ANA", (*CPU).execANA},
		{0xA8, "XRA", (*CPU).execXRA},
		{0xB0, "ORA", (*CPU).execORA},
		{0xB8, "CMP", (*CPU).execCMP},
	}
	for _, a := range aluOps {
		for r := byte(0); r < 8; r++ {
			def(a.base|r, a.name, 1, ShapeReg, a.fn)
		}
	}

	// INR/DCR/MVI per register: spread across both nibble rows.
	for r := byte(0); r < 8; r++ {
		def(0x04|r<<3, "INR", 1, ShapeReg, (*CPU).execINR)
		def(0x05|r<<3, "DCR", 1, ShapeReg, (*CPU).execDCR)
		def(0x06|r<<3, "MVI", 2, ShapeMvi, (*CPU).execMVI)
	}

	// Register-pair group: LXI, INX, DCX, DAD over B, D, H, SP.
	for _, rp := range []byte{0x00, 0x10, 0x20, 0x30} {
		def(0x01|rp, "LXI", 3, ShapeLxi, (*CPU).execLXI)
		def(0x03|rp, "INX", 1, ShapeRegPair, (*CPU).execINX)
		def(0x09|rp, "DAD", 1, ShapeRegPair, (*CPU).execDAD)
		def(0x0B|rp, "DCX", 1, ShapeRegPair, (*CPU).execDCX)
	}

	// PUSH/POP: same 0x30 slot as SP above, but here it means PSW.
	for _, rp := range []byte{0x00, 0x10, 0x20, 0x30} {
		def(0xC1|rp, "POP", 1, ShapeRegPair, (*CPU).execPOP)
		def(0xC5|rp, "PUSH", 1, ShapeRegPair, (*CPU).execPUSH)
	}

	// RST 0..7.
	for n := byte(0); n < 8; n++ {
		def(0xC7+8*n, "RST", 1, ShapeRST, (*CPU).execRST)
	}

	// Conditional RET/JMP/CALL: condition code cc = (opcode>>3)&7 in the
	// order NZ,Z,NC,C,PO,PE,P,M.
	names := [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	for cc := byte(0); cc < 8; cc++ {
		def(0xC0|cc<<3, "R"+names[cc], 1, ShapeNone, (*CPU).execRETcc)
		def(0xC2|cc<<3, "J"+names[cc], 3, ShapeAddr16, (*CPU).execJMPcc)
		def(0xC4|cc<<3, "C"+names[cc], 3, ShapeAddr16, (*CPU).execCALLcc)
	}
}
