// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package coordapi

import (
	"testing"

	"github.com/reactorfleet/scada-core/internal/frame"
)

func TestDecodeAllSubTypes(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
	}{
		{"CMD_SET_BURN_RATE", CmdSetBurnRate},
		{"CMD_ENABLE", CmdEnable},
		{"CMD_SCRAM", CmdScram},
		{"CMD_RESET_RPS", CmdResetRPS},
		{"CMD_SUBSCRIBE", CmdSubscribe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := frame.Make(1, frame.CoordAPI, []interface{}{uint64(tt.typ)})
			var p Packet
			if !p.Decode(f) {
				t.Fatalf("Decode() = false, want true")
			}
			if p.Type != tt.typ {
				t.Errorf("Type = %v, want %v", p.Type, tt.typ)
			}
		})
	}
}

func TestDecodeUnknownSubTypeRejected(t *testing.T) {
	f := frame.Make(1, frame.CoordAPI, []interface{}{uint64(200)})
	var p Packet
	if p.Decode(f) {
		t.Errorf("Decode() = true for unknown sub-type, want false")
	}
}

func TestDecodeOneShortRejected(t *testing.T) {
	f := frame.Make(1, frame.CoordAPI, []interface{}{})
	var p Packet
	if p.Decode(f) {
		t.Errorf("Decode() = true for empty payload, want false")
	}
}

func TestDecodeWrongProtocolRejected(t *testing.T) {
	f := frame.Make(1, frame.CoordData, []interface{}{uint64(CmdScram)})
	var p Packet
	if p.Decode(f) {
		t.Errorf("Decode() = true for wrong protocol, want false")
	}
}

func TestConstructorHelpers(t *testing.T) {
	if p := SetBurnRate(7, 50); p.Type != CmdSetBurnRate || len(p.Fields) != 2 {
		t.Errorf("SetBurnRate() = %+v", p)
	}
	if p := Enable(7); p.Type != CmdEnable || len(p.Fields) != 1 {
		t.Errorf("Enable() = %+v", p)
	}
	if p := Scram(7); p.Type != CmdScram {
		t.Errorf("Scram() = %+v", p)
	}
	if p := ResetRPS(7); p.Type != CmdResetRPS {
		t.Errorf("ResetRPS() = %+v", p)
	}
	if p := Subscribe(); p.Type != CmdSubscribe || len(p.Fields) != 0 {
		t.Errorf("Subscribe() = %+v", p)
	}
}

func TestRoundTripThroughFrame(t *testing.T) {
	original := SetBurnRate(7, 50)
	f := frame.Make(1, frame.CoordAPI, original.Encode())

	var got Packet
	if !got.Decode(f) {
		t.Fatalf("Decode() = false, want true")
	}
	if len(got.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(got.Fields))
	}
}
