// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package rplc implements the reactor PLC protocol packet carried by
// SCADA frames tagged frame.RPLC. This is the protocol a PLC and the
// Supervisor speak to each other: link handshakes, status telemetry,
// and the remote reactor-protection-system (RPS) commands.
package rplc

import (
	"log"

	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/proto/wireval"
)

const minFrameLength = 2

// Type is the RPLC sub-type tag.
type Type uint8

// RPLC sub-types, bit-exact per the wire spec.
const (
	LinkReq      Type = 0
	Status       Type = 1
	MekStruct    Type = 2
	MekBurnRate  Type = 3
	RpsEnable    Type = 4
	RpsScram     Type = 5
	RpsStatus    Type = 6
	RpsAlarm     Type = 7
	RpsReset     Type = 8
	RplcKeepAlive Type = 9
)

// Valid reports whether t is a recognized RPLC sub-type.
func (t Type) Valid() bool {
	return t <= RplcKeepAlive
}

// String returns the human-readable sub-type name.
func (t Type) String() string {
	switch t {
	case LinkReq:
		return "LINK_REQ"
	case Status:
		return "STATUS"
	case MekStruct:
		return "MEK_STRUCT"
	case MekBurnRate:
		return "MEK_BURN_RATE"
	case RpsEnable:
		return "RPS_ENABLE"
	case RpsScram:
		return "RPS_SCRAM"
	case RpsStatus:
		return "RPS_STATUS"
	case RpsAlarm:
		return "RPS_ALARM"
	case RpsReset:
		return "RPS_RESET"
	case RplcKeepAlive:
		return "KEEP_ALIVE"
	default:
		return "UNKNOWN"
	}
}

// LinkResult is returned by the Supervisor in reply to a LINK_REQ.
type LinkResult uint8

// Link results, bit-exact per the wire spec.
const (
	Allow     LinkResult = 0
	Deny      LinkResult = 1
	Collision LinkResult = 2
)

// Packet is a decoded or constructed RPLC packet: (plc_id, type, body).
type Packet struct {
	PlcID uint32
	Type  Type
	Body  []interface{}

	valid bool
}

// Make constructs an RPLC packet from its fields.
func Make(plcID uint32, t Type, body []interface{}) Packet {
	return Packet{PlcID: plcID, Type: t, Body: body, valid: true}
}

// Decode parses f as an RPLC packet. It requires
// f.Protocol() == frame.RPLC, f.Length() >= 2, and the type field to
// be a recognized RplcType.
func (p *Packet) Decode(f frame.Frame) bool {
	*p = Packet{}

	if f.Protocol() != frame.RPLC {
		log.Printf("debug: attempted RPLC parse of incorrect protocol %v", f.Protocol())
		return false
	}
	if f.Length() < minFrameLength {
		return false
	}

	data := f.Data()
	plcID, ok := wireval.Uint32(data[0])
	if !ok {
		return false
	}
	rawType, ok := wireval.Uint8(data[1])
	if !ok {
		return false
	}
	t := Type(rawType)
	if !t.Valid() {
		return false
	}

	p.PlcID = plcID
	p.Type = t
	p.Body = wireval.Tail(data, 2)
	p.valid = true
	return true
}

// Valid reports whether the last Decode call succeeded.
func (p *Packet) Valid() bool { return p.valid }

// Encode renders the packet as the payload sequence a frame carries.
func (p Packet) Encode() []interface{} {
	payload := make([]interface{}, 0, 2+len(p.Body))
	payload = append(payload, uint64(p.PlcID), uint64(p.Type))
	payload = append(payload, p.Body...)
	return payload
}

// LinkRequest builds a LINK_REQ packet with no body.
func LinkRequest(plcID uint32) Packet {
	return Make(plcID, LinkReq, nil)
}

// StatusReport builds a STATUS packet carrying (scram, iss_status).
func StatusReport(plcID uint32, scram bool, issStatus uint32) Packet {
	return Make(plcID, Status, []interface{}{scram, uint64(issStatus)})
}

// Alarm builds an RPS_ALARM packet carrying the tripped IssStatus.
func Alarm(plcID uint32, issStatus uint32) Packet {
	return Make(plcID, RpsAlarm, []interface{}{uint64(issStatus)})
}

// Scram builds an RPS_SCRAM command packet.
func Scram(plcID uint32) Packet {
	return Make(plcID, RpsScram, nil)
}

// Reset builds an RPS_RESET command packet.
func Reset(plcID uint32) Packet {
	return Make(plcID, RpsReset, nil)
}
