// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package rplc

import (
	"testing"

	"github.com/reactorfleet/scada-core/internal/frame"
)

func TestDecodeAllSubTypes(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
	}{
		{"LINK_REQ", LinkReq},
		{"STATUS", Status},
		{"MEK_STRUCT", MekStruct},
		{"MEK_BURN_RATE", MekBurnRate},
		{"RPS_ENABLE", RpsEnable},
		{"RPS_SCRAM", RpsScram},
		{"RPS_STATUS", RpsStatus},
		{"RPS_ALARM", RpsAlarm},
		{"RPS_RESET", RpsReset},
		{"KEEP_ALIVE", RplcKeepAlive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := frame.Make(1, frame.RPLC, []interface{}{uint64(7), uint64(tt.typ)})
			var p Packet
			if !p.Decode(f) {
				t.Fatalf("Decode() = false, want true")
			}
			if p.Type != tt.typ {
				t.Errorf("Type = %v, want %v", p.Type, tt.typ)
			}
			if p.PlcID != 7 {
				t.Errorf("PlcID = %d, want 7", p.PlcID)
			}
		})
	}
}

func TestDecodeUnknownSubTypeRejected(t *testing.T) {
	f := frame.Make(1, frame.RPLC, []interface{}{uint64(7), uint64(200)})
	var p Packet
	if p.Decode(f) {
		t.Errorf("Decode() = true for unknown sub-type, want false")
	}
}

func TestDecodeMinimumLength(t *testing.T) {
	f := frame.Make(1, frame.RPLC, []interface{}{uint64(7), uint64(LinkReq)})
	var p Packet
	if !p.Decode(f) {
		t.Errorf("Decode() = false for minimum-length frame, want true")
	}
}

func TestDecodeOneShortRejected(t *testing.T) {
	f := frame.Make(1, frame.RPLC, []interface{}{uint64(7)})
	var p Packet
	if p.Decode(f) {
		t.Errorf("Decode() = true for one-short frame, want false")
	}
}

func TestDecodeWrongProtocolRejected(t *testing.T) {
	f := frame.Make(1, frame.ModbusTCP, []interface{}{uint64(7), uint64(LinkReq)})
	var p Packet
	if p.Decode(f) {
		t.Errorf("Decode() = true for wrong protocol, want false")
	}
}

func TestBodyPreservedAcrossRoundTrip(t *testing.T) {
	original := StatusReport(7, true, 0x04)
	f := frame.Make(1, frame.RPLC, original.Encode())

	var got Packet
	if !got.Decode(f) {
		t.Fatalf("Decode() = false, want true")
	}
	if len(got.Body) != 2 {
		t.Fatalf("len(Body) = %d, want 2", len(got.Body))
	}
	scram, ok := got.Body[0].(bool)
	if !ok || !scram {
		t.Errorf("Body[0] = %v, want true", got.Body[0])
	}
}

func TestConstructorHelpers(t *testing.T) {
	if p := LinkRequest(7); p.Type != LinkReq || p.PlcID != 7 {
		t.Errorf("LinkRequest() = %+v", p)
	}
	if p := Scram(7); p.Type != RpsScram {
		t.Errorf("Scram() = %+v", p)
	}
	if p := Reset(7); p.Type != RpsReset {
		t.Errorf("Reset() = %+v", p)
	}
	if p := Alarm(7, 0x02); p.Type != RpsAlarm || len(p.Body) != 1 {
		t.Errorf("Alarm() = %+v", p)
	}
}

func TestPlcIDMismatchIsCallerResponsibility(t *testing.T) {
	// Decode succeeds regardless of which PLC the packet is addressed
	// to; rejecting mismatched plc_id is comms.go's job (spec.md 4.5),
	// not the packet decoder's.
	f := frame.Make(1, frame.RPLC, []interface{}{uint64(99), uint64(LinkReq)})
	var p Packet
	if !p.Decode(f) {
		t.Fatalf("Decode() = false, want true")
	}
	if p.PlcID != 99 {
		t.Errorf("PlcID = %d, want 99", p.PlcID)
	}
}
