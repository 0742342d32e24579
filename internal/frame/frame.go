// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package frame implements the SCADA frame codec: the outermost wire
// envelope shared by every protocol that rides the reactor fleet's
// radio network. A frame carries a sequence number, a protocol tag,
// and an opaque payload; it never interprets the payload itself.
package frame

import (
	"github.com/fxamacker/cbor/v2"
)

// ProtocolTag identifies which sub-protocol a frame's payload belongs to.
type ProtocolTag uint8

// Protocol tags, bit-exact per the wire spec.
const (
	ModbusTCP ProtocolTag = 0
	RPLC      ProtocolTag = 1
	ScadaMgmt ProtocolTag = 2
	CoordData ProtocolTag = 3
	CoordAPI  ProtocolTag = 4
)

// Valid reports whether t is one of the recognized protocol tags.
func (t ProtocolTag) Valid() bool {
	switch t {
	case ModbusTCP, RPLC, ScadaMgmt, CoordData, CoordAPI:
		return true
	}
	return false
}

// String returns the human-readable protocol name, for logs and the
// decode command's formatter.
func (t ProtocolTag) String() string {
	switch t {
	case ModbusTCP:
		return "MODBUS_TCP"
	case RPLC:
		return "RPLC"
	case ScadaMgmt:
		return "SCADA_MGMT"
	case CoordData:
		return "COORD_DATA"
	case CoordAPI:
		return "COORD_API"
	default:
		return "UNKNOWN"
	}
}

// Frame is the unit of transmission: a sequence number, a protocol tag,
// and an opaque payload sequence. The payload is always a self-describing
// sub-packet that a protocol package in internal/proto knows how to decode.
type Frame struct {
	seqNum   uint32
	protocol ProtocolTag
	payload  []interface{}
}

// Make constructs a frame from its fields. The codec does not validate
// the payload's internal shape; that is each protocol packet's job.
func Make(seqNum uint32, protocol ProtocolTag, payload []interface{}) Frame {
	return Frame{seqNum: seqNum, protocol: protocol, payload: payload}
}

// SeqNum returns the frame's sequence number.
func (f Frame) SeqNum() uint32 { return f.seqNum }

// Protocol returns the frame's protocol tag.
func (f Frame) Protocol() ProtocolTag { return f.protocol }

// Length returns the number of elements in the frame's payload.
func (f Frame) Length() int { return len(f.payload) }

// Data returns the frame's raw payload sequence. Protocol packets index
// into this directly; the codec never interprets it.
func (f Frame) Data() []interface{} { return f.payload }

// WireMessage is what the transport hands the codec on receipt: a
// datagram plus the radio-link metadata the transport attaches to it.
// LocalIface/SourcePort/ReplyPort mirror the three-port addressing the
// spoke/hub radio network uses; Distance is the simulated radial
// distance between sender and receiver, supplied by the transport for
// diagnostics (the codec never acts on it).
type WireMessage struct {
	LocalIface string
	SourcePort uint16
	ReplyPort  uint16
	Message    []byte
	Distance   float64
}

// Encode serializes a frame to its wire representation: a CBOR array
// [seq_num, protocol_tag, payload]. One frame occupies exactly one
// datagram, so unlike a continuous byte stream this codec needs no
// start/end framing bytes or CRC — the transport's datagram boundary is
// the frame boundary.
func Encode(f Frame) ([]byte, error) {
	wire := []interface{}{uint64(f.seqNum), uint64(f.protocol), f.payload}
	return cbor.Marshal(wire)
}

// Receive decodes a wire message into a Frame. Decode is valid iff the
// message is a 3-element array whose second element is a recognized
// ProtocolTag and whose third element is itself an array. Malformed
// input is reported as (Frame{}, false); it is never treated as a
// program error and never mutates any caller state.
func Receive(msg WireMessage) (Frame, bool) {
	var wire []interface{}
	if err := cbor.Unmarshal(msg.Message, &wire); err != nil {
		return Frame{}, false
	}
	if len(wire) != 3 {
		return Frame{}, false
	}

	seqNum, ok := asUint32(wire[0])
	if !ok {
		return Frame{}, false
	}

	protoVal, ok := asUint32(wire[1])
	if !ok {
		return Frame{}, false
	}
	protocol := ProtocolTag(protoVal)
	if !protocol.Valid() {
		return Frame{}, false
	}

	payload, ok := wire[2].([]interface{})
	if !ok {
		return Frame{}, false
	}

	return Frame{seqNum: seqNum, protocol: protocol, payload: payload}, true
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
	default:
		return 0, false
	}
}
