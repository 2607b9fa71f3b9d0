// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import (
	"sync"
	"sync/atomic"
	"time"
)

// ClockState describes what a Clock's producer goroutine is currently
// doing.
type ClockState int32

// Clock states.
const (
	ClockStopped ClockState = iota // goroutine not running
	ClockRunning                   // free-running at the configured rate
	ClockPaused                    // goroutine alive, not advancing the CPU
)

// Clock paces repeated CPU.Step calls against a configurable cycle
// period. It owns the single goroutine that is ever allowed to mutate the
// CPU while running: every other caller communicates with it through a
// command queue drained at tick boundaries, per the single-writer/
// many-readers model this package follows.
//
// The run loop computes each tick's deadline as start + n*period from a
// fixed starting reference and the cumulative cycle count, then sleeps
// until that deadline — never by accumulating successive wall-clock
// deltas, which is what causes pacing to drift under scheduler jitter.
type Clock struct {
	cpu *CPU

	mu     sync.Mutex
	period time.Duration

	state atomic.Int32
	cmds  chan func()
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewClock creates a clock driving cpu at hz cycles per second. A 0 or
// negative hz is treated as the conventional 8085 rate of 3.072 MHz.
func NewClock(cpu *CPU, hz float64) *Clock {
	cl := &Clock{
		cpu:  cpu,
		cmds: make(chan func(), 16),
	}
	cl.SetClockHz(hz)
	cl.state.Store(int32(ClockStopped))
	return cl
}

// SetClockHz changes the nominal cycle rate. It is safe to call while the
// clock is running.
func (cl *Clock) SetClockHz(hz float64) {
	if hz <= 0 {
		hz = 3_072_000
	}
	cl.mu.Lock()
	cl.period = time.Duration(float64(time.Second) / hz)
	cl.mu.Unlock()
}

func (cl *Clock) getPeriod() time.Duration {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.period
}

// State reports the clock's current run state.
func (cl *Clock) State() ClockState {
	return ClockState(cl.state.Load())
}

// Run starts the producer goroutine in the ClockRunning state. Calling
// Run while already running or paused has no effect beyond waking a
// paused clock.
func (cl *Clock) Run() {
	if cl.State() != ClockStopped {
		cl.state.Store(int32(ClockRunning))
		return
	}
	cl.done = make(chan struct{})
	cl.state.Store(int32(ClockRunning))
	cl.wg.Add(1)
	go cl.runLoop(cl.done)
}

// Pause suspends free-running execution without stopping the goroutine;
// queued commands (including Step) are still serviced.
func (cl *Clock) Pause() {
	if cl.State() != ClockStopped {
		cl.state.Store(int32(ClockPaused))
	}
}

// Resume continues a paused clock.
func (cl *Clock) Resume() {
	if cl.State() == ClockPaused {
		cl.state.Store(int32(ClockRunning))
	}
}

// Halt stops the producer goroutine entirely. A subsequent Run starts a
// fresh pacing reference.
func (cl *Clock) Halt() {
	if cl.State() == ClockStopped {
		return
	}
	close(cl.done)
	cl.wg.Wait()
	cl.state.Store(int32(ClockStopped))
}

// Step executes exactly one instruction on the clock's goroutine,
// ignoring the configured period, and returns its cycle cost. It works
// whether the clock is stopped, paused, or running: a stopped clock
// executes the step inline; otherwise the step is enqueued as a command
// and this call blocks for its result.
func (cl *Clock) Step() byte {
	if cl.State() == ClockStopped {
		return cl.cpu.Step()
	}
	result := make(chan byte, 1)
	cl.cmds <- func() { result <- cl.cpu.Step() }
	return <-result
}

// Reset enqueues a CPU reset as a command, so it is safe to call while
// the clock is running.
func (cl *Clock) Reset() {
	cl.Do(func() { cl.cpu.Reset() })
}

// Do enqueues an arbitrary command (Poke, WritePort, LoadImage, ...) to
// run on the clock's goroutine between ticks. If the clock is stopped,
// the command runs immediately on the calling goroutine.
func (cl *Clock) Do(fn func()) {
	if cl.State() == ClockStopped {
		fn()
		return
	}
	done := make(chan struct{})
	cl.cmds <- func() { fn(); close(done) }
	<-done
}

func (cl *Clock) runLoop(done chan struct{}) {
	defer cl.wg.Done()

	start := time.Now()
	var n uint64

	for {
		select {
		case cmd := <-cl.cmds:
			cmd()
			continue
		case <-done:
			return
		default:
		}

		if cl.State() != ClockRunning || cl.cpu.Reg.Halted || cl.cpu.Err != nil {
			select {
			case cmd := <-cl.cmds:
				cmd()
			case <-done:
				return
			}
			continue
		}

		cycles := cl.cpu.Step()
		n += uint64(cycles)
		next := start.Add(time.Duration(n) * cl.getPeriod())
		sleepUntil(next, done)
	}
}

// sleepUntil blocks until deadline or until done is closed, whichever
// comes first. A deadline already in the past returns immediately.
func sleepUntil(deadline time.Time, done chan struct{}) {
	d := time.Until(deadline)
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-done:
	}
}
