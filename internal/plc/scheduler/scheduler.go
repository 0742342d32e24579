// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package scheduler implements the PLC's 20 Hz cooperative tick loop:
// the single goroutine that owns every piece of PLC state and
// multiplexes timer events, incoming messages, peripheral attach/
// detach events, and the operator-terminate signal into the safety
// core's ordered per-tick reaction (spec.md §4.6). It is grounded on
// the teacher's runTextMode select{} loop over a stats ticker and a
// buffered serial-read channel (cmd/error_detection.go), generalized
// from a packet-logging loop to the safety-core event loop.
package scheduler

import (
	"time"

	"github.com/reactorfleet/scada-core/internal/alertlog"
	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/plc/comms"
	"github.com/reactorfleet/scada-core/internal/plc/iss"
	"github.com/reactorfleet/scada-core/internal/plc/peripheral"
	"github.com/reactorfleet/scada-core/internal/plc/safety"
	"github.com/reactorfleet/scada-core/internal/session"
)

// LoopPeriod is the nominal 20 Hz tick cadence (spec.md §6).
const LoopPeriod = 50 * time.Millisecond

// WatchdogDuration is the session timeout (spec.md §6).
const WatchdogDuration = 3 * time.Second

// Sender is the transport's send half: everything the scheduler wants
// to put on the wire goes through here. Its implementation (UDP
// datagram, in-process channel for tests) is out of this package's
// scope.
type Sender interface {
	Send(f frame.Frame) error
}

// Scheduler is the PLC's single-goroutine event loop. Every field here
// is only ever touched from Run's goroutine; no lock is needed or
// permitted (spec.md §5).
type Scheduler struct {
	Core    *safety.Core
	Comms   *comms.Comms
	Periph  *peripheral.Registry
	Sender  Sender

	Inbound          <-chan frame.WireMessage
	PeripheralEvents <-chan peripheral.Change
	Terminate        <-chan struct{}

	watchdog *session.Watchdog
	now      func() time.Time
}

// New constructs a scheduler wired to the given safety core, comms
// binding, peripheral registry, and transport sender. now defaults to
// time.Now; tests override it for deterministic watchdog behavior.
func New(core *safety.Core, c *comms.Comms, periph *peripheral.Registry, sender Sender,
	inbound <-chan frame.WireMessage, peripheralEvents <-chan peripheral.Change, terminate <-chan struct{}) *Scheduler {
	return &Scheduler{
		Core:             core,
		Comms:            c,
		Periph:           periph,
		Sender:           sender,
		Inbound:          inbound,
		PeripheralEvents: peripheralEvents,
		Terminate:        terminate,
		now:              time.Now,
	}
}

// Run executes the tick loop until Terminate fires or the loop hits an
// unrecoverable send error. Every iteration is one suspension (the
// select) followed by the full, bounded §4.4 ordered reaction — no
// component code here may itself await another event (spec.md §5).
func (s *Scheduler) Run() error {
	ticker := time.NewTicker(LoopPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.onLoopTick(); err != nil {
				return err
			}
			if s.checkWatchdog() {
				return nil
			}

		case wm, ok := <-s.Inbound:
			if !ok {
				continue
			}
			if err := s.onWireMessage(wm); err != nil {
				return err
			}
			if s.checkWatchdog() {
				return nil
			}

		case pc, ok := <-s.PeripheralEvents:
			if !ok {
				continue
			}
			s.onPeripheralChange(pc)
			if s.checkWatchdog() {
				return nil
			}

		case <-s.Terminate:
			s.onTerminate()
			return nil
		}
	}
}

// checkWatchdog observes the armed watchdog's deadline at the top of
// (here: immediately after) each iteration, per spec.md §5/§9's "wall
// clock deadline, no background timer" model. It returns true if the
// resulting reaction requested the scheduler stop (it never does on
// its own — a timeout reverts to the unlinked cadence rather than
// exiting — but the return value keeps Run's call sites uniform).
func (s *Scheduler) checkWatchdog() bool {
	if s.watchdog == nil || !s.Comms.IsLinked() {
		return false
	}
	if !s.watchdog.CheckAndFire(s.now()) {
		return false
	}
	s.onWatchdogFired()
	return false
}

func (s *Scheduler) onLoopTick() error {
	out := s.Core.Tick(safety.LoopTick{})
	s.handleOutbox(out)

	if f, ok := s.Comms.OnLoopTick(s.now(), s.Core.State()); ok {
		return s.Sender.Send(f)
	}
	return nil
}

func (s *Scheduler) onWireMessage(wm frame.WireMessage) error {
	f, ok := frame.Receive(wm)
	if !ok {
		alertlog.Debug("malformed frame from %s:%d, dropped", wm.LocalIface, wm.SourcePort)
		return nil
	}

	wasLinked := s.Comms.IsLinked()
	in := s.Comms.HandleFrame(f, s.now())

	if s.watchdog == nil {
		s.watchdog = session.NewWatchdog(WatchdogDuration, s.now())
	} else {
		s.watchdog.Feed(s.now())
	}

	if in.JustLinked && !wasLinked {
		// A successful relink un-forces a prior TIMEOUT trip: the
		// Supervisor has just re-established the session the watchdog
		// fired on, so iss.check() may report not-tripped again (the
		// RPS_RESET path still has to clear safety.State.Scram itself).
		s.Core.ClearForcedTrip(iss.Timeout)
		alertlog.Alert("linked to supervisor, plc_id=%d", s.Comms.PlcID())
	}

	if in.HasEvent {
		out := s.Core.Tick(in.Event)
		s.handleOutbox(out)
	}
	return nil
}

func (s *Scheduler) onPeripheralChange(pc peripheral.Change) {
	if pc.Kind == peripheral.Reactor && pc.Attach {
		s.Core.SetReactor(pc.ReactorHandle)
	}
	out := s.Core.Tick(pc.ToSafetyEvent())
	s.handleOutbox(out)
}

func (s *Scheduler) onWatchdogFired() {
	out := s.Core.Tick(safety.WatchdogFired{})
	s.handleOutbox(out)
	s.Comms.Unlink()
	alertlog.Alert("server timeout, reactor disabled")
}

func (s *Scheduler) onTerminate() {
	out := s.Core.Tick(safety.Terminate{})
	s.handleOutbox(out)
	alertlog.Alert("terminate requested, exiting")
}

func (s *Scheduler) handleOutbox(out safety.Outbox) {
	if out.Alarm != nil {
		status := *out.Alarm
		alertlog.Alert("RPS_ALARM: %s", iss.Status(status))
		f := s.Comms.BuildAlarm(uint32(status))
		_ = s.Sender.Send(f)
	}
}
