// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package safety

// Event is the closed set of things the tick scheduler can hand the
// safety core in a single Tick call, matching spec.md §4.6's five
// event kinds (loop tick and terminate carry no payload here; watchdog
// firing is reported by the scheduler, not recomputed by the core).
type Event interface {
	isEvent()
}

// LoopTick is the 20 Hz main-cadence event. The core's reaction to it
// never sends wire traffic itself (that's comms' job, driven off
// Outbox and the resulting State); it only runs the ordered safety
// reaction of spec.md §4.4.
type LoopTick struct{}

func (LoopTick) isEvent() {}

// PeripheralKind distinguishes which required peripheral an attach or
// detach event concerns.
type PeripheralKind int

const (
	ReactorPeripheral PeripheralKind = iota
	ModemPeripheral
)

// PeripheralChange is a single attach or detach event for one
// peripheral kind. Attach == false means detach.
type PeripheralChange struct {
	Kind   PeripheralKind
	Attach bool
}

func (PeripheralChange) isEvent() {}

// RemoteCommand reports what comms parsed out of an inbound RPLC
// packet addressed to this PLC, already filtered to this node's
// plc_id (spec.md §4.5's rejection rule happens before this event is
// constructed). Zero or more of these fields may be set in the same
// tick's Tick call; comms is expected to call Tick once per inbound
// packet rather than batching.
type RemoteCommand struct {
	Scram    bool
	ResetRPS bool
}

func (RemoteCommand) isEvent() {}

// WatchdogFired reports the session watchdog has expired: the
// scheduler observed the wall-clock deadline pass at the top of a
// tick (spec.md §5's "no background timer goroutine" constraint).
type WatchdogFired struct{}

func (WatchdogFired) isEvent() {}

// Terminate is the operator shutdown signal.
type Terminate struct{}

func (Terminate) isEvent() {}
