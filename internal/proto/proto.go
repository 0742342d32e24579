// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package proto declares the shared contract every protocol packet
// package (modbus, rplc, mgmt, coorddata, coordapi) implements. The
// source this system was distilled from modeled each packet as a
// closure over a mutable record; here each protocol is instead a
// tagged variant behind one interface, decoded by its own package.
package proto

import "github.com/reactorfleet/scada-core/internal/frame"

// Packet is the contract every protocol payload type satisfies. Decode
// attempts to parse a frame's payload into the packet's fields and
// reports whether the frame matched this packet's protocol tag and
// shape; on failure the packet's fields stay at their zero values and
// the caller's state is left untouched.
type Packet interface {
	// Decode attempts to parse f into this packet. It returns false
	// (and leaves the packet's fields at their zero values) if f's
	// protocol tag doesn't match or its payload is the wrong shape.
	Decode(f frame.Frame) bool
	// Valid reports whether the last Decode call succeeded.
	Valid() bool
}
