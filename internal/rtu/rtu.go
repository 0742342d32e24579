// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package rtu implements the RTU gateway node role: a spoke that
// advertises the peripheral capabilities it bridges onto the
// hub-and-spoke radio network and answers MODBUS_TCP requests against
// a simulated local peripheral bus (or, optionally, a real serial
// line via internal/rtu/serialbridge).
package rtu

import (
	"github.com/reactorfleet/scada-core/internal/capability"
	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/proto/mgmt"
	"github.com/reactorfleet/scada-core/internal/proto/modbus"
	"github.com/reactorfleet/scada-core/internal/rtu/serialbridge"
)

// AdvertTicks is how often (in scheduler ticks) the gateway re-sends
// its RTU_ADVERT, mirroring the PLC side's LINK_REQ cadence
// (internal/plc/comms.LinkTicks) since both are "stay visible to the
// hub" heartbeats for an unlinked/unsure peer.
const AdvertTicks = 20

// Bus is the simulated peripheral register bank a Gateway answers
// MODBUS_TCP reads/writes against. Real deployments would back this
// with internal/rtu/serialbridge instead.
type Bus struct {
	registers map[capability.Tag]uint32
}

// NewBus constructs a bus pre-seeded with a zero register per
// capability tag the gateway advertises.
func NewBus(tags []capability.Tag) *Bus {
	b := &Bus{registers: make(map[capability.Tag]uint32, len(tags))}
	for _, t := range tags {
		b.registers[t] = 0
	}
	return b
}

// Read returns the current value of tag's register.
func (b *Bus) Read(tag capability.Tag) (uint32, bool) {
	v, ok := b.registers[tag]
	return v, ok
}

// Write sets tag's register, if the gateway bridges that tag.
func (b *Bus) Write(tag capability.Tag, value uint32) bool {
	if _, ok := b.registers[tag]; !ok {
		return false
	}
	b.registers[tag] = value
	return true
}

// RegisterIO is the bus backend a Gateway answers MODBUS_TCP requests
// against. *Bus is the in-memory simulated backend; SerialIO adapts a
// real serial line onto the same contract for --serial-bridge
// deployments.
type RegisterIO interface {
	Read(tag capability.Tag) (uint32, bool)
	Write(tag capability.Tag, value uint32) bool
}

// SerialIO adapts a serialbridge.Bridge to RegisterIO, letting a
// Gateway answer MODBUS_TCP requests against real hardware instead of
// the simulated Bus.
type SerialIO struct {
	Bridge *serialbridge.Bridge
}

// Read reads tag's register over the serial bridge. A bridge error
// (unreachable controller, malformed reply) is reported the same way
// an unbridged tag on the simulated Bus is: (0, false).
func (s SerialIO) Read(tag capability.Tag) (uint32, bool) {
	value, err := s.Bridge.ReadRegister(uint8(tag))
	if err != nil {
		return 0, false
	}
	return value, true
}

// Write writes tag's register over the serial bridge.
func (s SerialIO) Write(tag capability.Tag, value uint32) bool {
	return s.Bridge.WriteRegister(uint8(tag), value) == nil
}

const (
	// FuncReadRegister reads a single register: Data = [tag].
	FuncReadRegister uint8 = 0
	// FuncWriteRegister writes a single register: Data = [tag, value].
	FuncWriteRegister uint8 = 1
)

// Gateway is one RTU node's state: its identity, the capabilities it
// advertises, and the register backend it bridges MODBUS_TCP onto
// (the simulated Bus by default, or a SerialIO if --serial-bridge was
// given).
type Gateway struct {
	RtuID        uint32
	Capabilities []capability.Tag
	Bus          RegisterIO

	ticksSinceAdvert uint64
}

// New constructs a Gateway advertising tags, backed by a fresh
// simulated Bus.
func New(rtuID uint32, tags []capability.Tag) *Gateway {
	return &Gateway{RtuID: rtuID, Capabilities: tags, Bus: NewBus(tags)}
}

// OnLoopTick returns an RTU_ADVERT frame if it's time to re-announce
// capabilities, matching the PLC side's unlinked LINK_REQ cadence
// (internal/plc/comms.Comms.OnLoopTick).
func (g *Gateway) OnLoopTick() (frame.Frame, bool) {
	g.ticksSinceAdvert++
	if g.ticksSinceAdvert < AdvertTicks {
		return frame.Frame{}, false
	}
	g.ticksSinceAdvert = 0

	advert := mgmt.AdvertFor(capability.EncodeAdvert(g.Capabilities))
	return frame.Make(0, frame.ScadaMgmt, advert.Encode()), true
}

// HandleFrame answers an inbound MODBUS_TCP request against the
// gateway's bus, returning the reply frame to send back (if any).
func (g *Gateway) HandleFrame(f frame.Frame) (frame.Frame, bool) {
	if f.Protocol() != frame.ModbusTCP {
		return frame.Frame{}, false
	}
	var req modbus.Packet
	if !req.Decode(f) {
		return frame.Frame{}, false
	}

	switch req.FuncCode {
	case FuncReadRegister:
		if len(req.Data) < 1 {
			return frame.Frame{}, false
		}
		tag, ok := tagFromField(req.Data[0])
		if !ok {
			return frame.Frame{}, false
		}
		value, ok := g.Bus.Read(tag)
		if !ok {
			return frame.Frame{}, false
		}
		reply := modbus.Make(req.TxnID, req.UnitID, FuncReadRegister, []interface{}{uint64(tag), uint64(value)})
		return frame.Make(0, frame.ModbusTCP, reply.Encode()), true

	case FuncWriteRegister:
		if len(req.Data) < 2 {
			return frame.Frame{}, false
		}
		tag, ok := tagFromField(req.Data[0])
		if !ok {
			return frame.Frame{}, false
		}
		value, ok := asUint32(req.Data[1])
		if !ok {
			return frame.Frame{}, false
		}
		ok = g.Bus.Write(tag, value)
		reply := modbus.Make(req.TxnID, req.UnitID, FuncWriteRegister, []interface{}{ok})
		return frame.Make(0, frame.ModbusTCP, reply.Encode()), true
	}

	return frame.Frame{}, false
}

func tagFromField(v interface{}) (capability.Tag, bool) {
	n, ok := asUint32(v)
	if !ok || n > 255 {
		return 0, false
	}
	tag := capability.Tag(n)
	if !tag.Valid() {
		return 0, false
	}
	return tag, true
}

func asUint32(v interface{}) (uint32, bool) {
	switch n := v.(type) {
	case uint64:
		return uint32(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint32(n), true
	}
	return 0, false
}
