// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package wireval holds the small CBOR-element-to-Go-value coercions
// shared by every protocol packet decoder in internal/proto. Each
// protocol package owns its own field layout; only the "is this
// element an integer/byte-string in the range I expect" logic is
// common enough to factor out.
package wireval

// Uint32 coerces a decoded CBOR element to a uint32, accepting either
// of CBOR's two integer major types.
func Uint32(v interface{}) (uint32, bool) {
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

// Uint8 coerces a decoded CBOR element to a uint8, rejecting values
// outside the byte range.
func Uint8(v interface{}) (uint8, bool) {
	n, ok := Uint32(v)
	if !ok || n > 255 {
		return 0, false
	}
	return uint8(n), true
}

// Bytes coerces a decoded CBOR element to a byte slice.
func Bytes(v interface{}) ([]byte, bool) {
	b, ok := v.([]byte)
	return b, ok
}

// Sequence coerces a decoded CBOR element to an element slice. The
// packet decoders split their body/fields tails with Tail instead, and
// nothing in the repository calls Sequence.
func Sequence(v interface{}) ([]interface{}, bool) {
	s, ok := v.([]interface{})
	return s, ok
}

// Tail returns the elements of data starting at index n, or an empty
// (non-nil) slice if data is shorter than n. Used by each protocol
// packet to split its fixed-position header fields from its variable
// body/tail.
func Tail(data []interface{}, n int) []interface{} {
	if len(data) <= n {
		return []interface{}{}
	}
	return data[n:]
}
