// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

import "errors"

// Errors
var (
	ErrMemoryOutOfBounds = errors.New("memory access out of bounds")
)

// The Memory interface presents the 8085's 64 KiB linear address space to
// both the assembler (as an output image) and the CPU (as its code, data,
// and stack store).
type Memory interface {
	// LoadByte loads a single byte from the address and returns it.
	LoadByte(addr uint16) byte

	// LoadBytes loads multiple bytes starting at addr into b.
	LoadBytes(addr uint16, b []byte)

	// LoadAddress loads a little-endian 16-bit value from addr (low byte)
	// and addr+1 (high byte).
	LoadAddress(addr uint16) uint16

	// StoreByte stores a byte at addr.
	StoreByte(addr uint16, v byte)

	// StoreBytes stores multiple bytes starting at addr.
	StoreBytes(addr uint16, b []byte)

	// StoreAddress stores a little-endian 16-bit value at addr (low byte)
	// and addr+1 (high byte).
	StoreAddress(addr uint16, v uint16)
}

// FlatMemory represents the entire 64 KiB 8085 address space as a single
// flat buffer. Code, data, and the stack all share this one array, exactly
// as the 8085 itself addresses them.
type FlatMemory struct {
	b [64 * 1024]byte
}

// NewFlatMemory creates a new, zero-initialized 64 KiB memory image.
func NewFlatMemory() *FlatMemory {
	return &FlatMemory{}
}

// LoadByte loads a single byte from addr.
func (m *FlatMemory) LoadByte(addr uint16) byte {
	return m.b[addr]
}

// LoadBytes loads len(b) bytes starting at addr into b, wrapping around
// the 64 KiB boundary.
func (m *FlatMemory) LoadBytes(addr uint16, b []byte) {
	if int(addr)+len(b) <= len(m.b) {
		copy(b, m.b[addr:])
		return
	}
	r0 := len(m.b) - int(addr)
	copy(b, m.b[addr:])
	copy(b[r0:], m.b[:len(b)-r0])
}

// LoadAddress loads a little-endian 16-bit address from addr and addr+1.
// The 8085 has no 6502-style page-wrap quirk; the read simply wraps around
// the 64 KiB boundary like any other access.
func (m *FlatMemory) LoadAddress(addr uint16) uint16 {
	return uint16(m.b[addr]) | uint16(m.b[addr+1])<<8
}

// StoreByte stores a byte at addr.
func (m *FlatMemory) StoreByte(addr uint16, v byte) {
	m.b[addr] = v
}

// StoreBytes stores b starting at addr, wrapping around the 64 KiB space.
func (m *FlatMemory) StoreBytes(addr uint16, b []byte) {
	if int(addr)+len(b) <= len(m.b) {
		copy(m.b[addr:], b)
		return
	}
	r0 := len(m.b) - int(addr)
	copy(m.b[addr:], b[:r0])
	copy(m.b[:len(b)-r0], b[r0:])
}

// StoreAddress stores v as a little-endian 16-bit value at addr and addr+1.
func (m *FlatMemory) StoreAddress(addr uint16, v uint16) {
	m.b[addr] = byte(v)
	m.b[addr+1] = byte(v >> 8)
}

// Bytes exposes the raw backing array. The assembler uses it to populate an
// image directly; the CLI uses it to write a raw 64 KiB binary file.
func (m *FlatMemory) Bytes() []byte {
	return m.b[:]
}

// stackPush writes a 16-bit value below sp and returns the new stack
// pointer. The 8085 stack grows downward: SP is decremented before the
// write.
func stackPush(m Memory, sp uint16, v uint16) uint16 {
	sp -= 2
	m.StoreAddress(sp, v)
	return sp
}

// stackPop reads a 16-bit value at sp and returns it along with the new
// stack pointer. SP is incremented after the read.
func stackPop(m Memory, sp uint16) (uint16, uint16) {
	v := m.LoadAddress(sp)
	return v, sp + 2
}
