// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package safety

import (
	"testing"

	"github.com/reactorfleet/scada-core/internal/plc/iss"
)

type fakeReactor struct {
	running     bool
	scramCalls  int
	scramErr    error
	runningErr  error
}

func (f *fakeReactor) Scram() error {
	f.scramCalls++
	if f.scramErr == nil {
		f.running = false
	}
	return f.scramErr
}

func (f *fakeReactor) Running() (bool, error) {
	return f.running, f.runningErr
}

type fakeChecker struct {
	result iss.Result
}

func (f *fakeChecker) Check() iss.Result { return f.result }

func TestColdBootHealthyStartsLatched(t *testing.T) {
	boot := BootState(true, true, true)
	if !boot.Scram {
		t.Fatalf("BootState().Scram = false, want true")
	}
	if !boot.InitOK {
		t.Fatalf("BootState().InitOK = false, want true")
	}
	if boot.Degraded {
		t.Fatalf("BootState().Degraded = true, want false for healthy boot")
	}
}

func TestModemDetachLatchesScramAndAttemptsScram(t *testing.T) {
	reactor := &fakeReactor{running: true}
	checker := &fakeChecker{}
	core := New(BootState(true, true, true), checker, reactor)

	// Clear the boot latch via reset so we can observe the detach
	// forcing it back on, not just the boot default.
	checker.result = iss.Result{}
	core.Tick(RemoteCommand{ResetRPS: true})
	if core.State().Scram {
		t.Fatalf("Scram still true after reset with not-tripped ISS")
	}

	out := core.Tick(PeripheralChange{Kind: ModemPeripheral, Attach: false})

	st := core.State()
	if !st.NoModem {
		t.Errorf("NoModem = false, want true")
	}
	if !st.Degraded {
		t.Errorf("Degraded = false, want true")
	}
	if !st.Scram {
		t.Errorf("Scram = false, want true after modem detach")
	}
	if !out.ScramAttempted {
		t.Errorf("ScramAttempted = false, want true")
	}
	if reactor.scramCalls == 0 {
		t.Errorf("reactor.Scram() was never called")
	}
}

func TestIssFirstTripEmitsExactlyOneAlarm(t *testing.T) {
	reactor := &fakeReactor{running: true}
	checker := &fakeChecker{}
	core := New(BootState(true, true, true), checker, reactor)
	core.Tick(RemoteCommand{ResetRPS: true}) // clear boot latch

	checker.result = iss.Result{Tripped: true, Status: iss.TempCrit, FirstTrip: true}
	out := core.Tick(LoopTick{})
	if out.Alarm == nil {
		t.Fatalf("Alarm = nil, want TEMP_CRIT alarm on rising edge")
	}
	if *out.Alarm != iss.TempCrit {
		t.Errorf("Alarm = %v, want %v", *out.Alarm, iss.TempCrit)
	}
	if !core.State().Scram {
		t.Errorf("Scram = false after ISS trip, want true")
	}

	// Next tick: still tripped but not a rising edge, no more alarms.
	checker.result = iss.Result{Tripped: true, Status: iss.TempCrit, FirstTrip: false}
	out2 := core.Tick(LoopTick{})
	if out2.Alarm != nil {
		t.Errorf("Alarm emitted on non-rising-edge tick, want nil")
	}
}

func TestWatchdogFiredLatchesScram(t *testing.T) {
	reactor := &fakeReactor{running: true}
	checker := &fakeChecker{}
	core := New(BootState(true, true, true), checker, reactor)
	core.Tick(RemoteCommand{ResetRPS: true})

	out := core.Tick(WatchdogFired{})
	if !core.State().Scram {
		t.Errorf("Scram = false after watchdog fired, want true")
	}
	if !out.TimedOut {
		t.Errorf("TimedOut = false, want true")
	}
}

func TestWatchdogFiredTripsIssTimeoutCause(t *testing.T) {
	reactor := &fakeReactor{running: true}
	checker := iss.NewManualTrip(&fakeChecker{})
	core := New(BootState(true, true, true), checker, reactor)
	core.Tick(RemoteCommand{ResetRPS: true})

	core.Tick(WatchdogFired{})

	// A later reset attempt must see the latched TIMEOUT cause and
	// refuse to clear Scram.
	out := core.Tick(RemoteCommand{ResetRPS: true})
	if !core.State().Scram {
		t.Errorf("Scram cleared after a TIMEOUT trip, want still latched")
	}
	_ = out
}

func TestClearForcedTripUnlatchesTimeoutForAFollowingReset(t *testing.T) {
	reactor := &fakeReactor{running: true}
	checker := iss.NewManualTrip(&fakeChecker{})
	core := New(BootState(true, true, true), checker, reactor)

	core.Tick(WatchdogFired{})
	core.Tick(RemoteCommand{ResetRPS: true})
	if !core.State().Scram {
		t.Fatalf("setup: expected Scram still latched by the forced TIMEOUT cause")
	}

	core.ClearForcedTrip(iss.Timeout)
	core.Tick(RemoteCommand{ResetRPS: true})
	if core.State().Scram {
		t.Errorf("Scram still latched after ClearForcedTrip + RPS_RESET, want cleared")
	}
}

func TestTerminateAttemptsFinalScram(t *testing.T) {
	reactor := &fakeReactor{running: true}
	checker := &fakeChecker{}
	core := New(BootState(true, true, true), checker, reactor)

	out := core.Tick(Terminate{})
	if !out.Terminated {
		t.Errorf("Terminated = false, want true")
	}
	if reactor.scramCalls == 0 {
		t.Errorf("reactor.Scram() never called on terminate")
	}
}

func TestResetOnlyClearsWhenNotTrippedAndNotDegraded(t *testing.T) {
	reactor := &fakeReactor{running: true}
	checker := &fakeChecker{result: iss.Result{Tripped: true, Status: iss.TempCrit}}
	core := New(BootState(true, true, true), checker, reactor)

	core.Tick(RemoteCommand{ResetRPS: true})
	if !core.State().Scram {
		t.Errorf("Scram cleared while ISS still tripped, want still latched")
	}

	checker.result = iss.Result{}
	core.Tick(RemoteCommand{ResetRPS: true})
	if core.State().Scram {
		t.Errorf("Scram = true, want false after reset with not-tripped ISS")
	}
}

func TestResetNeverClearsWhenDegraded(t *testing.T) {
	checker := &fakeChecker{}
	core := New(BootState(true, false, true), checker, nil) // no reactor -> degraded

	out := core.Tick(RemoteCommand{ResetRPS: true})
	if !core.State().Scram {
		t.Errorf("Scram cleared while degraded, want still latched")
	}
	_ = out
}

func TestReactorNilNeverCalled(t *testing.T) {
	checker := &fakeChecker{}
	core := New(BootState(false, false, false), checker, nil)
	// Must not panic on a nil reactor handle (spec.md §9's guarded
	// second variant).
	out := core.Tick(LoopTick{})
	if out.ScramAttempted {
		t.Errorf("ScramAttempted = true with nil reactor, want false")
	}
}

func TestReactorReattachForcesScramAndImmediateCall(t *testing.T) {
	checker := &fakeChecker{}
	core := New(BootState(true, false, true), checker, nil)
	core.Tick(RemoteCommand{ResetRPS: true}) // still degraded, no-op

	reactor := &fakeReactor{running: true}
	core.SetReactor(reactor)
	out := core.Tick(PeripheralChange{Kind: ReactorPeripheral, Attach: true})

	if !core.State().Scram {
		t.Errorf("Scram = false after reactor reattach, want true")
	}
	if !out.ScramAttempted || reactor.scramCalls == 0 {
		t.Errorf("reactor.Scram() not called immediately on reattach")
	}
	if core.State().Degraded {
		t.Errorf("Degraded = true after reactor reattach with modem present, want false")
	}
}
