// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cpu

// Device is implemented by anything that wants to observe or supply data
// on one or more I/O ports. Ports a device does not claim fall through to
// the bus's default last-written-value readback.
type Device interface {
	// OnOut is called when the CPU executes OUT to a port this device
	// claims.
	OnOut(port byte, v byte)

	// OnIn is called when the CPU executes IN from a port this device
	// claims, and returns the byte to place in the accumulator.
	OnIn(port byte) byte
}

// IOBus is the 8085's 256-port I/O address space. It is independent of the
// 64 KiB memory space; OUT/IN address it with a single byte.
type IOBus struct {
	devices [256]Device
	latch   [256]byte // last value written, used when no device claims a port
}

// NewIOBus creates an I/O bus with all 256 ports unclaimed.
func NewIOBus() *IOBus {
	return &IOBus{}
}

// Attach registers dev as the handler for a single port. Attaching to a
// port that already has a device replaces it.
func (b *IOBus) Attach(port byte, dev Device) {
	b.devices[port] = dev
}

// AttachRange registers dev as the handler for every port in [first, last].
func (b *IOBus) AttachRange(first, last byte, dev Device) {
	for p := int(first); p <= int(last); p++ {
		b.devices[p] = dev
	}
}

// Detach removes whatever device is attached to port.
func (b *IOBus) Detach(port byte) {
	b.devices[port] = nil
}

// Out writes v to port, notifying an attached device if present and
// recording v as the port's latched value in all cases.
func (b *IOBus) Out(port byte, v byte) {
	b.latch[port] = v
	if d := b.devices[port]; d != nil {
		d.OnOut(port, v)
	}
}

// In reads port, querying an attached device if present. With no device
// attached, the last value written to the port is returned (0 if the port
// has never been written since the bus was created or reset).
func (b *IOBus) In(port byte) byte {
	if d := b.devices[port]; d != nil {
		return d.OnIn(port)
	}
	return b.latch[port]
}

// Reset clears every port's latched value. Attached devices are left in
// place; a device that needs its own reset behavior observes it through
// the next OnOut/OnIn call.
func (b *IOBus) Reset() {
	for i := range b.latch {
		b.latch[i] = 0
	}
}
