// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package modbus implements the MODBUS-TCP-style protocol packet
// carried by SCADA frames tagged frame.ModbusTCP. RTU gateways speak
// this protocol to bridge the hub-and-spoke radio network onto a local
// peripheral bus.
package modbus

import (
	"log"

	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/proto/wireval"
)

const minFrameLength = 3

// Packet is a decoded or constructed MODBUS_TCP packet:
// [txn_id, unit_id, func_code, data...].
type Packet struct {
	TxnID    uint32
	UnitID   uint8
	FuncCode uint8
	Data     []interface{}

	valid bool
}

// Make constructs a MODBUS_TCP packet from its fields.
func Make(txnID uint32, unitID, funcCode uint8, data []interface{}) Packet {
	return Packet{TxnID: txnID, UnitID: unitID, FuncCode: funcCode, Data: data, valid: true}
}

// Decode parses f as a MODBUS_TCP packet. It requires
// f.Protocol() == frame.ModbusTCP and f.Length() >= 3.
func (p *Packet) Decode(f frame.Frame) bool {
	*p = Packet{}

	if f.Protocol() != frame.ModbusTCP {
		log.Printf("debug: attempted MODBUS_TCP parse of incorrect protocol %v", f.Protocol())
		return false
	}
	if f.Length() < minFrameLength {
		return false
	}

	data := f.Data()
	txnID, ok := wireval.Uint32(data[0])
	if !ok {
		return false
	}
	unitID, ok := wireval.Uint8(data[1])
	if !ok {
		return false
	}
	funcCode, ok := wireval.Uint8(data[2])
	if !ok {
		return false
	}

	p.TxnID = txnID
	p.UnitID = unitID
	p.FuncCode = funcCode
	p.Data = wireval.Tail(data, 3)
	p.valid = true
	return true
}

// Valid reports whether the last Decode call succeeded.
func (p *Packet) Valid() bool { return p.valid }

// Encode renders the packet as the payload sequence a frame carries.
func (p Packet) Encode() []interface{} {
	payload := make([]interface{}, 0, 3+len(p.Data))
	payload = append(payload, uint64(p.TxnID), uint64(p.UnitID), uint64(p.FuncCode))
	payload = append(payload, p.Data...)
	return payload
}
