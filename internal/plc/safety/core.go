// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package safety

import "github.com/reactorfleet/scada-core/internal/plc/iss"

// Reactor is the opaque physical-reactor handle the safety core drives.
// Every call here may run against a stale handle after a detach races
// the scheduler; the core never treats that as fatal (spec.md §9's
// guarded-nil behavior, and §5's peripheral error-reporting gate) —
// callers are expected to swallow the returned error and retry next
// tick rather than propagate it.
type Reactor interface {
	// Scram commands the reactor off. Idempotent; safe to call every
	// tick while Scram is latched.
	Scram() error
	// Running reports whether the reactor has not yet confirmed it is
	// off. The core keeps calling Scram every tick this is true.
	Running() (bool, error)
}

// Outbox is what a single Tick call asks the caller (comms) to do.
// Nothing here is sent on the wire by the safety core itself; comms
// owns framing and session state.
type Outbox struct {
	// ScramAttempted is true iff the core called Reactor.Scram this
	// tick.
	ScramAttempted bool
	// Alarm is non-nil exactly on an ISS rising edge (first_trip),
	// carrying the tripped status to relay as one RPS_ALARM.
	Alarm *iss.Status
	// TimedOut is true on the tick a WatchdogFired event was handled.
	// The scheduler's watchdog path unlinks the session and logs the
	// timeout notice itself; it does not read this field.
	TimedOut bool
	// Terminated is true on the tick a Terminate event was handled.
	Terminated bool
}

// Core is the PLC safety core. It owns the latching PlcState and the
// reactor handle; the ISS checker is injected, and peripheral presence
// arrives only as PeripheralChange events, so the core never reaches
// into global state or holds the peripheral registry (spec.md §9's
// redesign of the source's process-wide peripheral manager).
type Core struct {
	state   State
	reactor Reactor
	checker iss.Checker
}

// New constructs a safety core with the given boot state, ISS checker,
// and initial reactor handle (nil if the reactor was absent at boot).
func New(boot State, checker iss.Checker, reactor Reactor) *Core {
	return &Core{state: boot, checker: checker, reactor: reactor}
}

// State returns the current safety snapshot.
func (c *Core) State() State { return c.state }

// Tick runs the strict per-tick ordered reaction of spec.md §4.4 for a
// single event and returns the resulting outbox. This is the core's
// only mutating entry point; every other accessor is read-only.
func (c *Core) Tick(ev Event) Outbox {
	var out Outbox

	// Step 1: if booted, keep commanding the reactor off every tick
	// the latch is set and the reactor hasn't confirmed off yet.
	// Errors from a stale/detached handle are swallowed here — that is
	// the "suppress peripheral error reporting" gate spec.md §4.4
	// describes; the call is simply retried next tick.
	if c.state.InitOK && c.reactor != nil && c.state.Scram {
		if running, _ := c.reactor.Running(); running {
			_ = c.reactor.Scram()
			out.ScramAttempted = true
		}
	}

	// Step 2: reconcile one peripheral attach/detach event, if this is
	// one.
	if pc, ok := ev.(PeripheralChange); ok {
		c.applyPeripheralChange(pc, &out)
	}

	// Step 3: ISS check, gated on not being degraded. A degraded node
	// still attempts SCRAM fail-safe even though it can't trust its
	// sensors.
	var result iss.Result
	haveResult := false
	if !c.state.Degraded {
		result = c.checker.Check()
		haveResult = true
		c.state.Scram = c.state.Scram || result.Tripped
		if result.FirstTrip {
			status := result.Status
			out.Alarm = &status
		}
	} else if c.state.InitOK {
		c.attemptScram(&out)
	}

	// Step 4: dispatch the event itself.
	switch e := ev.(type) {
	case RemoteCommand:
		if e.Scram {
			c.state.Scram = true
		}
		if e.ResetRPS && haveResult && !result.Tripped {
			c.state.Scram = false
		}
	case WatchdogFired:
		c.state.Scram = true
		out.TimedOut = true
		if mt, ok := c.checker.(interface{ TripNow(iss.Status) }); ok {
			mt.TripNow(iss.Timeout)
		}
	case Terminate:
		c.state.Scram = true
		c.attemptScram(&out)
		out.Terminated = true
	case LoopTick, PeripheralChange:
		// Cadence (STATUS/LINK_REQ) and attach/detach bookkeeping
		// already handled above/by comms; nothing further here.
	}

	return out
}

func (c *Core) applyPeripheralChange(pc PeripheralChange, out *Outbox) {
	switch pc.Kind {
	case ReactorPeripheral:
		if pc.Attach {
			c.state.NoReactor = false
			c.state.Scram = true
			c.attemptScram(out)
		} else {
			c.state.NoReactor = true
			c.reactor = nil
			if c.state.InitOK {
				c.state.Scram = true
			}
		}
	case ModemPeripheral:
		if pc.Attach {
			c.state.NoModem = false
		} else {
			c.state.NoModem = true
			if c.state.InitOK {
				c.state.Scram = true
				c.attemptScram(out)
			}
		}
	}
	c.state.deriveDegraded()
}

// ClearForcedTrip un-latches a previously-forced ISS cause, if the
// installed checker supports it. The only caller today is the
// scheduler's relink handling, which clears iss.Timeout once the
// Supervisor session that the watchdog tripped on is re-established
// (spec.md §4.4's clear condition still additionally requires an
// RPS_RESET command and iss.check() reporting not-tripped on the same
// tick; this only removes the permanent half of that condition). A
// checker that doesn't support clearing (e.g. a bare EdgeChecker) is
// left untouched.
func (c *Core) ClearForcedTrip(cause iss.Status) {
	if mt, ok := c.checker.(interface{ Reset(iss.Status) }); ok {
		mt.Reset(cause)
	}
}

// SetReactor installs the freshly-attached reactor handle. The
// scheduler calls this before delivering the corresponding
// PeripheralChange{Kind: ReactorPeripheral, Attach: true} event, so step 1/2 of
// the same tick already sees the new handle.
func (c *Core) SetReactor(r Reactor) {
	c.reactor = r
}

func (c *Core) attemptScram(out *Outbox) {
	if c.reactor == nil {
		return
	}
	_ = c.reactor.Scram()
	out.ScramAttempted = true
}
