// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package coordapi implements the Coordinator-API protocol packet
// carried by SCADA frames tagged frame.CoordAPI: operator commands the
// Coordinator dispatches to the Supervisor. The source this system was
// distilled from left this sub-type enum as a @todo with sub-type
// validation returning false unconditionally; this package fills it in
// per SPEC_FULL.md's resolution of that open question. Only the
// Coordinator-to-Supervisor leg is modeled; Pocket attach/detach is out
// of the core's scope.
package coordapi

import (
	"log"

	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/proto/wireval"
)

const minFrameLength = 1

// Type is the Coordinator-API sub-type tag.
type Type uint8

// Coordinator-API sub-types.
const (
	// CmdSetBurnRate carries (plc_id, burn_rate).
	CmdSetBurnRate Type = 0
	// CmdEnable carries (plc_id).
	CmdEnable Type = 1
	// CmdScram carries (plc_id).
	CmdScram Type = 2
	// CmdResetRPS carries (plc_id).
	CmdResetRPS Type = 3
	// CmdSubscribe requests the fleet snapshot feed; no fields.
	CmdSubscribe Type = 4
)

// Valid reports whether t is a recognized Coordinator-API sub-type.
func (t Type) Valid() bool {
	return t <= CmdSubscribe
}

// String returns the human-readable sub-type name.
func (t Type) String() string {
	switch t {
	case CmdSetBurnRate:
		return "CMD_SET_BURN_RATE"
	case CmdEnable:
		return "CMD_ENABLE"
	case CmdScram:
		return "CMD_SCRAM"
	case CmdResetRPS:
		return "CMD_RESET_RPS"
	case CmdSubscribe:
		return "CMD_SUBSCRIBE"
	default:
		return "UNKNOWN"
	}
}

// Packet is a decoded or constructed Coordinator-API packet:
// (sub_type, fields...).
type Packet struct {
	Type   Type
	Fields []interface{}

	valid bool
}

// Make constructs a Coordinator-API packet from its fields.
func Make(t Type, fields []interface{}) Packet {
	return Packet{Type: t, Fields: fields, valid: true}
}

// Decode parses f as a Coordinator-API packet.
func (p *Packet) Decode(f frame.Frame) bool {
	*p = Packet{}

	if f.Protocol() != frame.CoordAPI {
		log.Printf("debug: attempted COORD_API parse of incorrect protocol %v", f.Protocol())
		return false
	}
	if f.Length() < minFrameLength {
		return false
	}

	data := f.Data()
	rawType, ok := wireval.Uint8(data[0])
	if !ok {
		return false
	}
	t := Type(rawType)
	if !t.Valid() {
		return false
	}

	p.Type = t
	p.Fields = wireval.Tail(data, 1)
	p.valid = true
	return true
}

// Valid reports whether the last Decode call succeeded.
func (p *Packet) Valid() bool { return p.valid }

// Encode renders the packet as the payload sequence a frame carries.
func (p Packet) Encode() []interface{} {
	payload := make([]interface{}, 0, 1+len(p.Fields))
	payload = append(payload, uint64(p.Type))
	payload = append(payload, p.Fields...)
	return payload
}

// SetBurnRate builds a CMD_SET_BURN_RATE command for plcID.
func SetBurnRate(plcID uint32, rate uint32) Packet {
	return Make(CmdSetBurnRate, []interface{}{uint64(plcID), uint64(rate)})
}

// Enable builds a CMD_ENABLE command for plcID.
func Enable(plcID uint32) Packet {
	return Make(CmdEnable, []interface{}{uint64(plcID)})
}

// Scram builds a CMD_SCRAM command for plcID.
func Scram(plcID uint32) Packet {
	return Make(CmdScram, []interface{}{uint64(plcID)})
}

// ResetRPS builds a CMD_RESET_RPS command for plcID.
func ResetRPS(plcID uint32) Packet {
	return Make(CmdResetRPS, []interface{}{uint64(plcID)})
}

// Subscribe builds a CMD_SUBSCRIBE request with no fields.
func Subscribe() Packet {
	return Make(CmdSubscribe, nil)
}
