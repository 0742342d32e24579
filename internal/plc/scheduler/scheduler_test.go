// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package scheduler

import (
	"testing"
	"time"

	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/plc/comms"
	"github.com/reactorfleet/scada-core/internal/plc/iss"
	"github.com/reactorfleet/scada-core/internal/plc/peripheral"
	"github.com/reactorfleet/scada-core/internal/plc/safety"
	"github.com/reactorfleet/scada-core/internal/proto/mgmt"
)

type fakeSender struct {
	sent []frame.Frame
}

func (f *fakeSender) Send(fr frame.Frame) error {
	f.sent = append(f.sent, fr)
	return nil
}

type stubChecker struct{ result iss.Result }

func (s *stubChecker) Check() iss.Result { return s.result }

func newTestScheduler() (*Scheduler, *fakeSender) {
	checker := &stubChecker{}
	core := safety.New(safety.BootState(true, true, true), checker, nil)
	c := comms.New(7)
	periph := peripheral.NewRegistry(true, true)
	sender := &fakeSender{}
	s := New(core, c, periph, sender, nil, nil, nil)
	base := time.Unix(0, 0)
	s.now = func() time.Time { return base }
	return s, sender
}

func TestOnWireMessageFeedsWatchdogAndLinks(t *testing.T) {
	s, _ := newTestScheduler()
	linkedPkt := mgmt.RemoteLinkedFor(7)
	f := frame.Make(1, frame.ScadaMgmt, linkedPkt.Encode())
	payload, _ := frame.Encode(f)

	if err := s.onWireMessage(frame.WireMessage{Message: payload}); err != nil {
		t.Fatalf("onWireMessage() error: %v", err)
	}
	if !s.Comms.IsLinked() {
		t.Fatalf("expected session linked after REMOTE_LINKED")
	}
	if s.watchdog == nil {
		t.Fatalf("expected watchdog armed after first valid inbound packet")
	}
}

func TestWatchdogFiresAfterThreeSecondsSilence(t *testing.T) {
	s, _ := newTestScheduler()
	linkedPkt := mgmt.RemoteLinkedFor(7)
	f := frame.Make(1, frame.ScadaMgmt, linkedPkt.Encode())
	payload, _ := frame.Encode(f)
	s.onWireMessage(frame.WireMessage{Message: payload})

	base := time.Unix(0, 0)
	s.now = func() time.Time { return base.Add(3100 * time.Millisecond) }

	if fired := s.checkWatchdog(); fired {
		t.Fatalf("checkWatchdog() returned true, Run() expects false even on fire")
	}
	if s.Comms.IsLinked() {
		t.Errorf("IsLinked() = true after watchdog fired, want false")
	}
	if !s.Core.State().Scram {
		t.Errorf("Scram = false after watchdog fired, want true")
	}
}

func TestFeedingWatchdogBeforeExpiryPreventsTimeout(t *testing.T) {
	s, _ := newTestScheduler()
	linkedPkt := mgmt.RemoteLinkedFor(7)
	f := frame.Make(1, frame.ScadaMgmt, linkedPkt.Encode())
	payload, _ := frame.Encode(f)
	s.onWireMessage(frame.WireMessage{Message: payload})

	base := time.Unix(0, 0)
	// Feed again just before expiry.
	s.now = func() time.Time { return base.Add(2900 * time.Millisecond) }
	s.onWireMessage(frame.WireMessage{Message: payload})

	s.now = func() time.Time { return base.Add(3100 * time.Millisecond) }
	s.checkWatchdog()
	if !s.Comms.IsLinked() {
		t.Errorf("IsLinked() = false, want still linked: watchdog was fed before its original deadline")
	}
}

func TestOnTerminateAttemptsScramAndExits(t *testing.T) {
	s, sender := newTestScheduler()
	s.onTerminate()
	_ = sender
	if !s.Core.State().Scram {
		t.Errorf("Scram = false after terminate, want true")
	}
}

func TestOnLoopTickSendsLinkReqWhileUnlinked(t *testing.T) {
	s, sender := newTestScheduler()
	for i := 0; i < comms.LinkTicks; i++ {
		if err := s.onLoopTick(); err != nil {
			t.Fatalf("onLoopTick() error: %v", err)
		}
	}
	if len(sender.sent) == 0 {
		t.Fatalf("no frames sent within %d ticks while unlinked", comms.LinkTicks)
	}
}

func TestAlarmSentOnFirstTrip(t *testing.T) {
	checker := &stubChecker{}
	core := safety.New(safety.BootState(true, true, true), checker, nil)
	c := comms.New(7)
	periph := peripheral.NewRegistry(true, true)
	sender := &fakeSender{}
	s := New(core, c, periph, sender, nil, nil, nil)
	s.now = func() time.Time { return time.Unix(0, 0) }

	checker.result = iss.Result{Tripped: true, Status: iss.TempCrit, FirstTrip: true}
	if err := s.onLoopTick(); err != nil {
		t.Fatalf("onLoopTick() error: %v", err)
	}

	found := false
	for _, f := range sender.sent {
		if f.Protocol() == frame.RPLC {
			found = true
		}
	}
	if !found {
		t.Errorf("no RPLC alarm frame sent after ISS first trip")
	}
}
