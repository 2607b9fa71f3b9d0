package cpu_test

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/8085dev/go8085/asm"
	"github.com/8085dev/go8085/cpu"
)

func TestClockStepWhileStopped(t *testing.T) {
	c := loadCPU(t, "MVI A, 5h\nINR A\nHLT")
	cl := cpu.NewClock(c, 0)

	if cl.State() != cpu.ClockStopped {
		t.Fatalf("expected ClockStopped, got %v", cl.State())
	}

	cl.Step()
	if c.Reg.A != 5 {
		t.Fatalf("A = %02X, want 05", c.Reg.A)
	}
	cl.Step()
	if c.Reg.A != 6 {
		t.Fatalf("A = %02X, want 06", c.Reg.A)
	}
}

func TestClockRunPauseHalt(t *testing.T) {
	src := strings.Repeat("INR A\n", 100) + "HLT\n"
	b := strings.NewReader(src)
	r, _, err := asm.Assemble(b, "test.asm", 0x0800, os.Stdout, 0)
	if err != nil {
		t.Fatal(err)
	}

	c := cpu.NewCPU(r.Image, cpu.NewIOBus())
	c.SetPC(r.Origin)

	cl := cpu.NewClock(c, 1_000_000)
	cl.Run()
	if cl.State() != cpu.ClockRunning {
		t.Fatalf("expected ClockRunning, got %v", cl.State())
	}

	deadline := time.Now().Add(time.Second)
	for c.Cycles == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	cl.Pause()
	if cl.State() != cpu.ClockPaused {
		t.Fatalf("expected ClockPaused, got %v", cl.State())
	}
	cycles := c.Cycles

	time.Sleep(10 * time.Millisecond)
	if c.Cycles != cycles {
		t.Fatalf("CPU advanced while clock was paused")
	}

	cl.Resume()
	if cl.State() != cpu.ClockRunning {
		t.Fatalf("expected ClockRunning after Resume, got %v", cl.State())
	}

	cl.Halt()
	if cl.State() != cpu.ClockStopped {
		t.Fatalf("expected ClockStopped after Halt, got %v", cl.State())
	}
}

func TestClockDoRunsCommandBetweenTicks(t *testing.T) {
	c := loadCPU(t, "NOP\nNOP\nHLT")
	cl := cpu.NewClock(c, 0)

	var ran bool
	cl.Do(func() { ran = true })
	if !ran {
		t.Fatal("Do did not run the command while the clock was stopped")
	}
}
