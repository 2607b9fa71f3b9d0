package disasm_test

import (
	"os"
	"strings"
	"testing"

	"github.com/8085dev/go8085/asm"
	"github.com/8085dev/go8085/disasm"
)

func assembleMem(t *testing.T, src string) *asm.Result {
	t.Helper()
	r, _, err := asm.Assemble(strings.NewReader(src), "test.asm", 0, os.Stdout, 0)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestDisassembleMOV(t *testing.T) {
	r := assembleMem(t, "MOV A,B")
	line, next := disasm.Disassemble(r.Image, 0)
	if line != "MOV A,B" {
		t.Errorf("got %q, want %q", line, "MOV A,B")
	}
	if next != 1 {
		t.Errorf("next = %d, want 1", next)
	}
}

func TestDisassembleMVI(t *testing.T) {
	r := assembleMem(t, "MVI A,5Ah")
	line, _ := disasm.Disassemble(r.Image, 0)
	if line != "MVI A,5Ah" {
		t.Errorf("got %q, want %q", line, "MVI A,5Ah")
	}
}

func TestDisassembleLXI(t *testing.T) {
	r := assembleMem(t, "LXI H,1234h")
	line, _ := disasm.Disassemble(r.Image, 0)
	if line != "LXI H,1234h" {
		t.Errorf("got %q, want %q", line, "LXI H,1234h")
	}
}

func TestDisassembleINRDCR(t *testing.T) {
	r := assembleMem(t, "INR B\nDCR C")
	line, next := disasm.Disassemble(r.Image, 0)
	if line != "INR B" {
		t.Errorf("got %q, want %q", line, "INR B")
	}
	line, _ = disasm.Disassemble(r.Image, next)
	if line != "DCR C" {
		t.Errorf("got %q, want %q", line, "DCR C")
	}
}

func TestDisassembleALUReg(t *testing.T) {
	r := assembleMem(t, "ADD C")
	line, _ := disasm.Disassemble(r.Image, 0)
	if line != "ADD C" {
		t.Errorf("got %q, want %q", line, "ADD C")
	}
}

func TestDisassembleRST(t *testing.T) {
	r := assembleMem(t, "RST 3")
	line, _ := disasm.Disassemble(r.Image, 0)
	if line != "RST 3h" {
		t.Errorf("got %q, want %q", line, "RST 3h")
	}
}

func TestDisassemblePushPopAndPair(t *testing.T) {
	r := assembleMem(t, "PUSH PSW\nPOP PSW\nINX SP")
	line, next := disasm.Disassemble(r.Image, 0)
	if line != "PUSH PSW" {
		t.Errorf("got %q, want %q", line, "PUSH PSW")
	}
	line, next = disasm.Disassemble(r.Image, next)
	if line != "POP PSW" {
		t.Errorf("got %q, want %q", line, "POP PSW")
	}
	line, _ = disasm.Disassemble(r.Image, next)
	if line != "INX SP" {
		t.Errorf("got %q, want %q", line, "INX SP")
	}
}

func TestDisassembleAddr16(t *testing.T) {
	r := assembleMem(t, "JMP 1234h")
	line, _ := disasm.Disassemble(r.Image, 0)
	if line != "JMP 1234h" {
		t.Errorf("got %q, want %q", line, "JMP 1234h")
	}
}

func TestDisassembleUndefinedOpcode(t *testing.T) {
	r := assembleMem(t, "DB 10h")
	line, next := disasm.Disassemble(r.Image, 0)
	if line != "??? ($10)" {
		t.Errorf("got %q, want %q", line, "??? ($10)")
	}
	if next != 1 {
		t.Errorf("next = %d, want 1", next)
	}
}
