// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package peripheral owns the PLC's reactor and modem handles. The
// source this system was distilled from kept this as process-wide
// mutable state reached into directly from the safety core; per
// spec.md §9's redesign note this package is instead a single owned
// registry the tick scheduler holds, emitting attach/detach as
// scheduler events rather than letting the safety core touch it
// directly (the safety core only ever sees a safety.Reactor handle,
// installed via Core.SetReactor).
package peripheral

import "github.com/reactorfleet/scada-core/internal/plc/safety"

// Kind names a peripheral this registry tracks presence for.
type Kind = safety.PeripheralKind

// Reactor and Modem mirror the safety package's peripheral kinds so
// callers of this package never need to import safety directly just
// to name one.
const (
	Reactor = safety.ReactorPeripheral
	Modem   = safety.ModemPeripheral
)

// Change is what the registry reports to the scheduler on a mount or
// unmount; it carries the same shape safety.PeripheralChange expects.
type Change struct {
	Kind   Kind
	Attach bool
	// ReactorHandle is populated only for a Reactor attach; the
	// scheduler installs it on the safety core via Core.SetReactor
	// before delivering the corresponding safety.PeripheralChange
	// event, so the same tick's reaction already sees the new handle.
	ReactorHandle safety.Reactor
}

// Registry tracks whether the reactor and modem are currently mounted.
// It is only ever touched from the scheduler's single goroutine, same
// as every other piece of PLC state.
type Registry struct {
	reactorPresent bool
	modemPresent   bool
}

// NewRegistry constructs a registry seeded with the peripherals
// present at boot.
func NewRegistry(reactorPresent, modemPresent bool) *Registry {
	return &Registry{reactorPresent: reactorPresent, modemPresent: modemPresent}
}

// ReactorPresent reports whether the reactor is currently mounted.
func (r *Registry) ReactorPresent() bool { return r.reactorPresent }

// ModemPresent reports whether the modem is currently mounted.
func (r *Registry) ModemPresent() bool { return r.modemPresent }

// Attach records kind as newly mounted and returns the Change the
// scheduler should deliver to the safety core.
func (r *Registry) Attach(kind Kind, reactorHandle safety.Reactor) Change {
	switch kind {
	case Reactor:
		r.reactorPresent = true
	case Modem:
		r.modemPresent = true
	}
	return Change{Kind: kind, Attach: true, ReactorHandle: reactorHandle}
}

// Detach records kind as unmounted and returns the Change the
// scheduler should deliver to the safety core.
func (r *Registry) Detach(kind Kind) Change {
	switch kind {
	case Reactor:
		r.reactorPresent = false
	case Modem:
		r.modemPresent = false
	}
	return Change{Kind: kind, Attach: false}
}

// ToSafetyEvent converts a Change to the safety.PeripheralChange event
// the core's Tick expects.
func (c Change) ToSafetyEvent() safety.PeripheralChange {
	return safety.PeripheralChange{Kind: c.Kind, Attach: c.Attach}
}
