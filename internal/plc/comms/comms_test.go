// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package comms

import (
	"testing"
	"time"

	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/plc/safety"
	"github.com/reactorfleet/scada-core/internal/proto/mgmt"
	"github.com/reactorfleet/scada-core/internal/proto/rplc"
)

func TestLinkRequestSentWithinLinkTicksWhileUnlinked(t *testing.T) {
	c := New(7)
	sent := 0
	for i := 0; i < LinkTicks; i++ {
		if f, ok := c.OnLoopTick(time.Now(), safety.State{}); ok {
			sent++
			var p rplc.Packet
			if !p.Decode(f) || p.Type != rplc.LinkReq || p.PlcID != 7 {
				t.Fatalf("unexpected link-req frame: %+v", p)
			}
		}
	}
	if sent == 0 {
		t.Fatalf("no LINK_REQ observed within %d ticks", LinkTicks)
	}
}

func TestLinkRequestCadenceNoMoreThanOncePer20Ticks(t *testing.T) {
	c := New(7)
	var sentAt []int
	for i := 1; i <= LinkTicks*2; i++ {
		if _, ok := c.OnLoopTick(time.Now(), safety.State{}); ok {
			sentAt = append(sentAt, i)
		}
	}
	for i := 1; i < len(sentAt); i++ {
		if sentAt[i]-sentAt[i-1] < LinkTicks {
			t.Errorf("LINK_REQ sent at ticks %v, gap %d < %d", sentAt, sentAt[i]-sentAt[i-1], LinkTicks)
		}
	}
}

func TestRemoteLinkedTransitionsToLinkedAndStatusCadence(t *testing.T) {
	c := New(7)
	linkedPkt := mgmt.RemoteLinkedFor(7)
	f := frame.Make(1, frame.ScadaMgmt, linkedPkt.Encode())

	in := c.HandleFrame(f, time.Now())
	if !in.JustLinked || !c.IsLinked() {
		t.Fatalf("HandleFrame(REMOTE_LINKED) did not link the session")
	}

	sent := 0
	for i := 0; i < UpdateTicks; i++ {
		if out, ok := c.OnLoopTick(time.Now(), safety.State{Scram: true}); ok {
			sent++
			var p rplc.Packet
			if !p.Decode(out) || p.Type != rplc.Status {
				t.Fatalf("expected STATUS frame, got %+v", p)
			}
		}
	}
	if sent != 1 {
		t.Errorf("STATUS sends within %d ticks = %d, want exactly 1", UpdateTicks, sent)
	}
}

func TestRemoteLinkedForDifferentPlcIgnored(t *testing.T) {
	c := New(7)
	linkedPkt := mgmt.RemoteLinkedFor(99)
	f := frame.Make(1, frame.ScadaMgmt, linkedPkt.Encode())

	in := c.HandleFrame(f, time.Now())
	if in.JustLinked || c.IsLinked() {
		t.Errorf("HandleFrame(REMOTE_LINKED for a different plc_id) linked this node")
	}
}

func TestMismatchedPlcIDDropped(t *testing.T) {
	c := New(7)
	scram := rplc.Scram(99)
	f := frame.Make(1, frame.RPLC, scram.Encode())

	in := c.HandleFrame(f, time.Now())
	if in.HasEvent {
		t.Errorf("HandleFrame() produced an event for a mismatched plc_id")
	}
}

func TestRemoteScramSetsIsScrammed(t *testing.T) {
	c := New(7)
	scram := rplc.Scram(7)
	f := frame.Make(1, frame.RPLC, scram.Encode())

	in := c.HandleFrame(f, time.Now())
	if !in.HasEvent {
		t.Fatalf("HandleFrame(RPS_SCRAM) produced no event")
	}
	if !c.IsScrammed() {
		t.Errorf("IsScrammed() = false after RPS_SCRAM, want true")
	}
}

func TestCloseUnlinksSession(t *testing.T) {
	c := New(7)
	linkedPkt := mgmt.RemoteLinkedFor(7)
	c.HandleFrame(frame.Make(1, frame.ScadaMgmt, linkedPkt.Encode()), time.Now())
	if !c.IsLinked() {
		t.Fatalf("setup: expected linked session")
	}

	closePkt := mgmt.Make(mgmt.Close, nil)
	c.HandleFrame(frame.Make(2, frame.ScadaMgmt, closePkt.Encode()), time.Now())
	if c.IsLinked() {
		t.Errorf("IsLinked() = true after CLOSE, want false")
	}
}

func TestStaleSequenceDroppedOnceLinked(t *testing.T) {
	c := New(7)
	linkedPkt := mgmt.RemoteLinkedFor(7)
	c.HandleFrame(frame.Make(5, frame.ScadaMgmt, linkedPkt.Encode()), time.Now())
	if !c.IsLinked() {
		t.Fatalf("setup: expected linked session")
	}

	scram := rplc.Scram(7)
	in := c.HandleFrame(frame.Make(3, frame.RPLC, scram.Encode()), time.Now())
	if in.HasEvent || c.IsScrammed() {
		t.Errorf("HandleFrame() accepted seq=3 after seq=5 was already seen")
	}

	in = c.HandleFrame(frame.Make(6, frame.RPLC, scram.Encode()), time.Now())
	if !in.HasEvent || !c.IsScrammed() {
		t.Errorf("HandleFrame() dropped seq=6, a valid advance past seq=5")
	}
}

func TestHandleFrameUpdatesRTTEstimate(t *testing.T) {
	c := New(7)
	base := time.Unix(0, 0)

	if _, ok := c.OnLoopTick(base, safety.State{}); !ok {
		t.Fatalf("setup: expected a LINK_REQ on the first tick")
	}
	if c.RTTMillis() != 0 {
		t.Fatalf("RTTMillis() = %v before any reply, want 0", c.RTTMillis())
	}

	linkedPkt := mgmt.RemoteLinkedFor(7)
	f := frame.Make(1, frame.ScadaMgmt, linkedPkt.Encode())
	c.HandleFrame(f, base.Add(42*time.Millisecond))

	if got := c.RTTMillis(); got != 42 {
		t.Errorf("RTTMillis() = %v, want 42", got)
	}
}
