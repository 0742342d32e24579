// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package mgmt implements the management protocol packet carried by
// SCADA frames tagged frame.ScadaMgmt. This is the Supervisor's
// housekeeping channel: keep-alives, session close, RTU capability
// advertisements, and link-accepted notices.
package mgmt

import (
	"log"

	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/proto/wireval"
)

const minFrameLength = 1

// Type is the management sub-type tag.
//
// The canonical name for the keep-alive sub-type is KEEP_ALIVE. Two
// other symbols, PING and RTU_HEARTBEAT, appear in places in the
// source this system was distilled from but are not part of the
// canonical enum; this package does not carry either of them forward.
type Type uint8

// Management sub-types, bit-exact per the wire spec.
const (
	MgmtKeepAlive Type = 0
	Close         Type = 1
	RtuAdvert     Type = 2
	RemoteLinked  Type = 3
)

// Valid reports whether t is a recognized management sub-type.
func (t Type) Valid() bool {
	return t <= RemoteLinked
}

// String returns the human-readable sub-type name.
func (t Type) String() string {
	switch t {
	case MgmtKeepAlive:
		return "KEEP_ALIVE"
	case Close:
		return "CLOSE"
	case RtuAdvert:
		return "RTU_ADVERT"
	case RemoteLinked:
		return "REMOTE_LINKED"
	default:
		return "UNKNOWN"
	}
}

// Packet is a decoded or constructed management packet: (type, body).
type Packet struct {
	Type Type
	Body []interface{}

	valid bool
}

// Make constructs a management packet from its fields.
func Make(t Type, body []interface{}) Packet {
	return Packet{Type: t, Body: body, valid: true}
}

// Decode parses f as a management packet. It requires
// f.Protocol() == frame.ScadaMgmt, f.Length() >= 1, and the type field
// to be a recognized MgmtType.
func (p *Packet) Decode(f frame.Frame) bool {
	*p = Packet{}

	if f.Protocol() != frame.ScadaMgmt {
		log.Printf("debug: attempted SCADA_MGMT parse of incorrect protocol %v", f.Protocol())
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
	p.Body = wireval.Tail(data, 1)
	p.valid = true
	return true
}

// Valid reports whether the last Decode call succeeded.
func (p *Packet) Valid() bool { return p.valid }

// Encode renders the packet as the payload sequence a frame carries.
func (p Packet) Encode() []interface{} {
	payload := make([]interface{}, 0, 1+len(p.Body))
	payload = append(payload, uint64(p.Type))
	payload = append(payload, p.Body...)
	return payload
}

// KeepAlive builds a KEEP_ALIVE packet with no body.
func KeepAlive() Packet {
	return Make(MgmtKeepAlive, nil)
}

// RemoteLinkedFor builds a REMOTE_LINKED packet addressed to plcID.
func RemoteLinkedFor(plcID uint32) Packet {
	return Make(RemoteLinked, []interface{}{uint64(plcID)})
}

// AdvertFor builds an RTU_ADVERT packet carrying an encoded capability
// sequence (see internal/capability.EncodeAdvert).
func AdvertFor(capabilities []interface{}) Packet {
	return Make(RtuAdvert, capabilities)
}
