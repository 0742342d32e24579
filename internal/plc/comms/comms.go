// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package comms binds the PLC safety core to the SCADA messaging
// layer: it maintains the single session the PLC keeps with the
// Supervisor, drives the STATUS/LINK_REQ send cadence, and turns
// inbound RPLC/management frames into safety.Event values the tick
// scheduler feeds to the core.
package comms

import (
	"log"
	"time"

	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/plc/safety"
	"github.com/reactorfleet/scada-core/internal/proto/mgmt"
	"github.com/reactorfleet/scada-core/internal/proto/rplc"
	"github.com/reactorfleet/scada-core/internal/session"
)

// Tick cadences, bit-exact per spec.md §6: a 20 Hz loop, STATUS every
// 3 ticks while linked, LINK_REQ every 20 ticks while unlinked.
const (
	LinkTicks   = 20
	UpdateTicks = 3
)

// Comms is the PLC's binding to its single Supervisor session.
type Comms struct {
	plcID uint32

	linked          bool
	lastRemoteScram bool
	ticksSinceLink  uint64
	ticksSinceStat  uint64

	outSeq uint32

	// rx tracks the Supervisor's highest-seen outbound sequence number
	// and this session's RTT estimate (spec.md §3/§4.3). It is a plain
	// value, not a pointer, since Comms is always held behind a
	// pointer itself.
	rx session.Session
	// lastSendAt is when this node last transmitted a frame; the next
	// valid frame received from the Supervisor closes the round trip
	// that started there.
	lastSendAt time.Time
}

// New constructs a comms binding for the given PLC identity, unlinked.
func New(plcID uint32) *Comms {
	return &Comms{plcID: plcID}
}

// PlcID returns this node's configured reactor ID.
func (c *Comms) PlcID() uint32 { return c.plcID }

// IsLinked reports whether the Supervisor has accepted this PLC's link.
func (c *Comms) IsLinked() bool { return c.linked }

// IsScrammed reports whether the last remote packet this PLC received
// asked for a SCRAM, independent of the safety core's own latch.
func (c *Comms) IsScrammed() bool { return c.lastRemoteScram }

// RTTMillis returns the current round-trip estimate to the Supervisor,
// or zero if no round trip has completed yet.
func (c *Comms) RTTMillis() float64 { return c.rx.RTTMillis }

// Unlink tears down the session, reverting to the unlinked LINK_REQ
// cadence.
func (c *Comms) Unlink() {
	c.linked = false
	c.ticksSinceLink = 0
	c.rx.Linked = false
	c.rx.SeqExpected = 0
}

func (c *Comms) nextSeq() uint32 {
	c.outSeq++
	return c.outSeq
}

// OnLoopTick advances the send cadence and returns the frame to
// transmit this tick, if the cadence calls for one this tick. now is
// recorded as the reference point for the next round-trip estimate
// (spec.md §4.3 step 3).
func (c *Comms) OnLoopTick(now time.Time, state safety.State) (frame.Frame, bool) {
	if c.linked {
		c.ticksSinceStat++
		if c.ticksSinceStat >= UpdateTicks {
			c.ticksSinceStat = 0
			status := rplc.StatusReport(c.plcID, state.Scram, 0)
			c.lastSendAt = now
			return frame.Make(c.nextSeq(), frame.RPLC, status.Encode()), true
		}
		return frame.Frame{}, false
	}

	// The first unlinked tick sends at once; after that, one LINK_REQ
	// every LinkTicks ticks.
	c.ticksSinceLink++
	if (c.ticksSinceLink-1)%LinkTicks == 0 {
		req := rplc.LinkRequest(c.plcID)
		c.lastSendAt = now
		return frame.Make(c.nextSeq(), frame.RPLC, req.Encode()), true
	}
	return frame.Frame{}, false
}

// Inbound is what HandleFrame derives from a parsed inbound message:
// the safety event to feed the core (if any) and whether the session
// should be considered freshly linked this tick.
type Inbound struct {
	Event      safety.Event
	HasEvent   bool
	JustLinked bool
}

// HandleFrame parses an inbound RPLC or management frame addressed to
// this PLC. Packets whose plc_id doesn't match this node are logged
// and dropped (spec.md §4.5); malformed or foreign-protocol frames are
// silently ignored, matching the codec's own drop-on-decode-failure
// contract. A frame whose sequence number is not strictly greater than
// the highest this session has already seen is a stale/replayed rerun
// and is silently dropped too (spec.md §3). now closes the round trip
// OnLoopTick opened, feeding the session's RTT estimate.
func (c *Comms) HandleFrame(f frame.Frame, now time.Time) Inbound {
	if !c.rx.AdvanceSeq(f.SeqNum()) {
		return Inbound{}
	}
	if !c.lastSendAt.IsZero() {
		c.rx.UpdateRTT(now.Sub(c.lastSendAt))
	}

	switch f.Protocol() {
	case frame.RPLC:
		return c.handleRPLC(f)
	case frame.ScadaMgmt:
		return c.handleMgmt(f)
	default:
		return Inbound{}
	}
}

func (c *Comms) handleRPLC(f frame.Frame) Inbound {
	var p rplc.Packet
	if !p.Decode(f) {
		return Inbound{}
	}
	if p.PlcID != c.plcID {
		log.Printf("debug: dropping RPLC packet addressed to plc_id=%d, this node is %d", p.PlcID, c.plcID)
		return Inbound{}
	}

	switch p.Type {
	case rplc.RpsScram:
		c.lastRemoteScram = true
		return Inbound{Event: safety.RemoteCommand{Scram: true}, HasEvent: true}
	case rplc.RpsReset:
		c.lastRemoteScram = false
		return Inbound{Event: safety.RemoteCommand{ResetRPS: true}, HasEvent: true}
	case rplc.RpsEnable:
		return Inbound{Event: safety.RemoteCommand{}, HasEvent: true}
	default:
		return Inbound{}
	}
}

func (c *Comms) handleMgmt(f frame.Frame) Inbound {
	var p mgmt.Packet
	if !p.Decode(f) {
		return Inbound{}
	}

	switch p.Type {
	case mgmt.RemoteLinked:
		if len(p.Body) == 0 {
			return Inbound{}
		}
		id, ok := p.Body[0].(uint64)
		if !ok || uint32(id) != c.plcID {
			return Inbound{}
		}
		c.linked = true
		c.ticksSinceStat = 0
		c.rx.Linked = true
		return Inbound{JustLinked: true}
	case mgmt.Close:
		c.Unlink()
		return Inbound{}
	default:
		return Inbound{}
	}
}

// BuildAlarm renders a rising-edge ISS alarm as the outbound frame to
// send, consuming the core's safety.Outbox.Alarm.
func (c *Comms) BuildAlarm(issStatus uint32) frame.Frame {
	alarm := rplc.Alarm(c.plcID, issStatus)
	return frame.Make(c.nextSeq(), frame.RPLC, alarm.Encode())
}
