// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package safety implements the PLC safety core: the latching SCRAM
// flag, the per-tick ISS check, and the reconciliation of peripheral
// attach/detach events with the safety obligations they trigger. The
// source this system was distilled from modeled PlcState as mutable
// fields threaded through closures; per spec.md §9's redesign note
// this package instead models each tick as a pure reducer,
// reduce(prevState, event) -> (nextState, outbox), so that the "once
// true, stays true until an explicit reset clears it" SCRAM rule is
// trivially testable in isolation from the I/O it drives.
package safety

// State is the safety-relevant snapshot of the PLC: the latching SCRAM
// flag and the peripheral-presence flags that derive Degraded.
//
// Invariant: Degraded == NoReactor || (Networked && NoModem).
// Invariant: once any of {NoReactor, NoModem (networked), an ISS trip,
// a session timeout} has been true, Scram stays true until an
// explicit RPS_RESET arrives on a tick where the ISS reports
// not-tripped (see Core.Tick).
type State struct {
	InitOK   bool
	Scram    bool
	Degraded bool
	NoReactor bool
	NoModem   bool

	// Networked mirrors the node's NETWORKED config flag; a modem is
	// only a required peripheral (and its absence only degrading) when
	// the node is networked per spec.md §3's invariant.
	Networked bool
}

// deriveDegraded recomputes Degraded from the presence flags per the
// PlcState invariant in spec.md §3.
func (s *State) deriveDegraded() {
	s.Degraded = s.NoReactor || (s.Networked && s.NoModem)
}

// BootState returns the PlcState a PLC starts in once its boot
// sequence has checked for the reactor and (if networked) the modem.
// Scram starts true: the reactor always boots latched until the first
// healthy tick clears it through the normal RPS_RESET + not-tripped
// path, matching concrete scenario 1 in spec.md §8.
func BootState(networked, reactorPresent, modemPresent bool) State {
	s := State{
		InitOK:    true,
		Scram:     true,
		Networked: networked,
		NoReactor: !reactorPresent,
		NoModem:   !modemPresent,
	}
	s.deriveDegraded()
	return s
}
