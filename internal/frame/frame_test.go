// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package frame

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestMakeAndAccessors(t *testing.T) {
	f := Make(42, RPLC, []interface{}{uint64(7), uint64(1)})

	if f.SeqNum() != 42 {
		t.Errorf("SeqNum() = %d, want 42", f.SeqNum())
	}
	if f.Protocol() != RPLC {
		t.Errorf("Protocol() = %v, want RPLC", f.Protocol())
	}
	if f.Length() != 2 {
		t.Errorf("Length() = %d, want 2", f.Length())
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		seqNum   uint32
		protocol ProtocolTag
		payload  []interface{}
	}{
		{"modbus", 1, ModbusTCP, []interface{}{uint64(10), uint64(1), uint64(3)}},
		{"rplc link req", 2, RPLC, []interface{}{uint64(7), uint64(0)}},
		{"mgmt keep alive", 3, ScadaMgmt, []interface{}{uint64(0)}},
		{"coord data", 4, CoordData, []interface{}{uint64(0)}},
		{"coord api", 5, CoordAPI, []interface{}{uint64(2)}},
		{"empty payload", 6, RPLC, []interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Make(tt.seqNum, tt.protocol, tt.payload)

			wire, err := Encode(f)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}

			got, ok := Receive(WireMessage{Message: wire})
			if !ok {
				t.Fatalf("Receive() = false, want true")
			}
			if got.SeqNum() != tt.seqNum {
				t.Errorf("SeqNum() = %d, want %d", got.SeqNum(), tt.seqNum)
			}
			if got.Protocol() != tt.protocol {
				t.Errorf("Protocol() = %v, want %v", got.Protocol(), tt.protocol)
			}
			if got.Length() != len(tt.payload) {
				t.Errorf("Length() = %d, want %d", got.Length(), len(tt.payload))
			}
		})
	}
}

func TestReceiveMalformed(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"wrong arity - too few", []interface{}{uint64(1), uint64(2)}},
		{"wrong arity - too many", []interface{}{uint64(1), uint64(2), []interface{}{}, uint64(4)}},
		{"unknown protocol tag", []interface{}{uint64(1), uint64(99), []interface{}{}}},
		{"payload not a sequence", []interface{}{uint64(1), uint64(1), "not a sequence"}},
		{"protocol not an int", []interface{}{uint64(1), "RPLC", []interface{}{}}},
		{"not an array at all", map[interface{}]interface{}{"a": 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := cbor.Marshal(tt.body)
			if err != nil {
				t.Fatalf("cbor.Marshal() error = %v", err)
			}

			_, ok := Receive(WireMessage{Message: raw})
			if ok {
				t.Errorf("Receive() = true, want false for malformed input %q", tt.name)
			}
		})
	}
}

func TestReceiveGarbageBytesNeverPanics(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		{0x00},
		{0xFF, 0xFF, 0xFF, 0xFF},
		[]byte("not cbor at all, just ascii text"),
	}

	for _, in := range inputs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Receive() panicked on %v: %v", in, r)
				}
			}()
			Receive(WireMessage{Message: in})
		}()
	}
}

func TestProtocolTagValid(t *testing.T) {
	for tag := ProtocolTag(0); tag <= 4; tag++ {
		if !tag.Valid() {
			t.Errorf("ProtocolTag(%d).Valid() = false, want true", tag)
		}
	}
	for _, tag := range []ProtocolTag{5, 99, 255} {
		if tag.Valid() {
			t.Errorf("ProtocolTag(%d).Valid() = true, want false", tag)
		}
	}
}
