// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package alertlog is the operator-facing console surface (spec.md
// §6): safety-relevant events get a "[alert]" prefix, everything else
// is a plain debug line. The teacher never reaches for a structured
// logging library (cmd/error_detection.go prints straight to stdout
// with an ad hoc "[timestamp] LEVEL:" convention); this package keeps
// that same texture on top of the standard log package rather than
// introducing one.
package alertlog

import "log"

// Alert prints an operator-visible safety event, formatted like the
// "server timeout, reactor disabled" / "terminate requested, exiting"
// lines spec.md §8's scenarios call for verbatim.
func Alert(format string, args ...interface{}) {
	log.Printf("[alert] "+format, args...)
}

// Debug prints a non-safety-relevant diagnostic line (malformed
// frames, wrong-protocol decode attempts, dropped packets).
func Debug(format string, args ...interface{}) {
	log.Printf("debug: "+format, args...)
}
