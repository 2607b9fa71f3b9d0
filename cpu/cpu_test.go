package cpu_test

import (
	"os"
	"strings"
	"testing"

	"github.com/8085dev/go8085/asm"
	"github.com/8085dev/go8085/cpu"
)

func loadCPU(t *testing.T, asmString string) *cpu.CPU {
	t.Helper()
	b := strings.NewReader(asmString)
	r, _, err := asm.Assemble(b, "test.asm", 0x0800, os.Stdout, 0)
	if err != nil {
		t.Fatal(err)
		return nil
	}

	c := cpu.NewCPU(r.Image, cpu.NewIOBus())
	c.SetPC(r.Origin)
	c.Reg.SP = 0xFFFE
	return c
}

func stepCPU(c *cpu.CPU, steps int) {
	for i := 0; i < steps; i++ {
		c.Step()
	}
}

func runCPU(t *testing.T, asmString string, steps int) *cpu.CPU {
	c := loadCPU(t, asmString)
	if c != nil {
		stepCPU(c, steps)
	}
	return c
}

func expectA(t *testing.T, c *cpu.CPU, want byte) {
	t.Helper()
	if c.Reg.A != want {
		t.Errorf("A incorrect. exp: $%02X, got: $%02X", want, c.Reg.A)
	}
}

func expectFlags(t *testing.T, c *cpu.CPU, s, z, ac, p, cy bool) {
	t.Helper()
	got := [5]bool{c.Reg.Sign(), c.Reg.Zero(), c.Reg.AuxCarry(), c.Reg.Parity(), c.Reg.Carry()}
	want := [5]bool{s, z, ac, p, cy}
	names := [5]string{"S", "Z", "AC", "P", "CY"}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("flag %s incorrect. exp: %v, got: %v", names[i], want[i], got[i])
		}
	}
}

func TestAddTwoBytes(t *testing.T) {
	src := `
	ORG 0800H
	MVI A, 07h
	MVI B, 05h
	ADD B
	HLT`

	c := runCPU(t, src, 4)
	expectA(t, c, 0x0C)
	expectFlags(t, c, false, false, false, true, false)

	var img [6]byte
	c.Mem.LoadBytes(0x0800, img[:])
	want := [6]byte{0x3E, 0x07, 0x06, 0x05, 0x80, 0x76}
	if img != want {
		t.Errorf("encoded image incorrect. exp: % X, got: % X", want, img)
	}
}

func TestSubtractToZero(t *testing.T) {
	src := `
	ORG 0800H
	MVI A, 42h
	SUI 42h
	HLT`

	c := runCPU(t, src, 3)
	expectA(t, c, 0x00)
	expectFlags(t, c, false, true, false, true, false)
}

func TestAddOverflowCarry(t *testing.T) {
	src := `
	ORG 0800H
	MVI A, F0h
	ADI 20h
	HLT`

	c := runCPU(t, src, 3)
	expectA(t, c, 0x10)
	if !c.Reg.Carry() {
		t.Error("expected CY set")
	}
	if c.Reg.AuxCarry() {
		t.Error("expected AC clear")
	}
}

func TestCallRetPreservesPC(t *testing.T) {
	src := `
	ORG 0800H
	CALL SUB
	HLT
SUB:
	MVI A, 1h
	RET`

	c := loadCPU(t, src)
	sp := c.Reg.SP
	stepCPU(c, 1) // CALL
	if c.Reg.PC != 0x0804 {
		t.Errorf("PC after CALL incorrect. exp $0804, got $%04X", c.Reg.PC)
	}
	stepCPU(c, 2) // MVI A,1 ; RET
	if c.Reg.PC != 0x0803 {
		t.Errorf("PC after RET incorrect. exp $0803, got $%04X", c.Reg.PC)
	}
	if c.Reg.SP != sp {
		t.Errorf("SP not restored. exp $%04X, got $%04X", sp, c.Reg.SP)
	}
}

func TestConditionalJump(t *testing.T) {
	src := `
	ORG 0800H
	MVI A, 0
	CPI 1
	JC TARGET
	HLT
TARGET:
	MVI A, 9
	HLT`

	c := runCPU(t, src, 5)
	expectA(t, c, 9)
	if !c.Reg.Halted {
		t.Error("expected CPU halted")
	}
}

func TestIORoundTrip(t *testing.T) {
	src := `
	ORG 0800H
	MVI A, 5Ah
	OUT 10h
	MVI A, 0
	IN 10h
	HLT`

	c := runCPU(t, src, 4)
	expectA(t, c, 0x5A)
	if got := c.IO.In(0x10); got != 0x5A {
		t.Errorf("port $10 readback incorrect. exp $5A, got $%02X", got)
	}
}

func TestStackPushPop(t *testing.T) {
	src := `
	ORG 0800H
	LXI H, 1234h
	PUSH H
	POP D
	HLT`

	c := runCPU(t, src, 3)
	if c.Reg.DE() != 0x1234 {
		t.Errorf("DE incorrect after PUSH H/POP D. exp $1234, got $%04X", c.Reg.DE())
	}
}

func TestPushPopPSWNotSP(t *testing.T) {
	src := `
	ORG 0800H
	MVI A, 99h
	STC
	PUSH PSW
	MVI A, 0
	POP PSW
	HLT`

	c := runCPU(t, src, 5)
	expectA(t, c, 0x99)
	if !c.Reg.Carry() {
		t.Error("expected CY restored from PSW")
	}
}

func TestFlagDeterminism(t *testing.T) {
	const src = `
	ORG 0800H
	MVI A, 0FFh
	MVI B, 01h
	ADD B
	HLT`

	c1 := runCPU(t, src, 4)
	c2 := runCPU(t, src, 4)
	if c1.Reg.A != c2.Reg.A || c1.Reg.Flags != c2.Reg.Flags {
		t.Error("executing the same instruction stream twice produced different results")
	}
}

func TestDSUB(t *testing.T) {
	src := `
	ORG 0800H
	LXI H, 3000h
	LXI B, 1000h
	DSUB
	HLT`

	c := runCPU(t, src, 3)
	if c.Reg.HL() != 0x2000 {
		t.Errorf("HL = %04X, want 2000", c.Reg.HL())
	}
	if c.Reg.Carry() {
		t.Error("expected no borrow")
	}
}

func TestPushBeyondStackBottomFaults(t *testing.T) {
	src := `
	ORG 0800H
	PUSH B`

	c := loadCPU(t, src)
	c.Reg.SP = 1
	stepCPU(c, 1)

	if _, ok := c.Err.(*cpu.RuntimeError); !ok {
		t.Fatalf("expected *cpu.RuntimeError, got %T", c.Err)
	}
	if !c.Reg.Halted {
		t.Error("expected CPU to halt on stack fault")
	}
}

func TestPopBeyondStackTopFaults(t *testing.T) {
	src := `
	ORG 0800H
	POP B`

	c := loadCPU(t, src)
	c.Reg.SP = 0xFFFE
	stepCPU(c, 1)

	if _, ok := c.Err.(*cpu.RuntimeError); !ok {
		t.Fatalf("expected *cpu.RuntimeError, got %T", c.Err)
	}
	if !c.Reg.Halted {
		t.Error("expected CPU to halt on stack fault")
	}
}
