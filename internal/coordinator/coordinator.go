// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package coordinator implements the Coordinator node role: it
// subscribes to the Supervisor's aggregate fleet state, dispatches
// operator commands to the Supervisor, and republishes the fleet
// snapshot to downstream subscribers via internal/coordinator/wsfeed.
package coordinator

import (
	"sync"

	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/proto/coordapi"
	"github.com/reactorfleet/scada-core/internal/proto/coorddata"
)

// PlcSnapshot is one PLC's state as last reported in a FLEET_SNAPSHOT.
type PlcSnapshot struct {
	PlcID     uint32
	Scram     bool
	IssStatus uint32
}

// Publisher receives a fresh fleet snapshot whenever one arrives, to
// forward downstream (internal/coordinator/wsfeed.Hub implements this).
type Publisher interface {
	Publish(snapshot []PlcSnapshot)
}

// Node holds the Coordinator's view of the fleet and forwards operator
// commands as COORD_API frames.
type Node struct {
	mu       sync.Mutex
	fleet    []PlcSnapshot
	alarms   []coorddata.Packet
	Publish  Publisher
}

// New constructs a Coordinator node. pub may be nil if nothing
// downstream needs the live feed.
func New(pub Publisher) *Node {
	return &Node{Publish: pub}
}

// HandleFrame processes one inbound COORD_DATA frame from the
// Supervisor.
func (n *Node) HandleFrame(f frame.Frame) {
	if f.Protocol() != frame.CoordData {
		return
	}
	var p coorddata.Packet
	if !p.Decode(f) {
		return
	}

	switch p.Type {
	case coorddata.FleetSnapshot:
		n.applySnapshot(p.Fields)
	case coorddata.AlarmFeed:
		n.mu.Lock()
		n.alarms = append(n.alarms, p)
		n.mu.Unlock()
	}
}

func (n *Node) applySnapshot(fields []interface{}) {
	fleet := make([]PlcSnapshot, 0, len(fields)/3)
	for i := 0; i+2 < len(fields); i += 3 {
		plcID, ok1 := asUint32(fields[i])
		scram, ok2 := fields[i+1].(bool)
		issStatus, ok3 := asUint32(fields[i+2])
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		fleet = append(fleet, PlcSnapshot{PlcID: plcID, Scram: scram, IssStatus: issStatus})
	}

	n.mu.Lock()
	n.fleet = fleet
	n.mu.Unlock()

	if n.Publish != nil {
		n.Publish.Publish(fleet)
	}
}

// Fleet returns a snapshot of the last-known fleet state.
func (n *Node) Fleet() []PlcSnapshot {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]PlcSnapshot, len(n.fleet))
	copy(out, n.fleet)
	return out
}

// Subscribe builds the CMD_SUBSCRIBE frame a Coordinator sends the
// Supervisor once at startup to begin receiving snapshots.
func Subscribe() frame.Frame {
	return frame.Make(0, frame.CoordAPI, coordapi.Subscribe().Encode())
}

// SetBurnRate builds a CMD_SET_BURN_RATE dispatch frame.
func SetBurnRate(plcID, rate uint32) frame.Frame {
	return frame.Make(0, frame.CoordAPI, coordapi.SetBurnRate(plcID, rate).Encode())
}

// Enable builds a CMD_ENABLE dispatch frame.
func Enable(plcID uint32) frame.Frame {
	return frame.Make(0, frame.CoordAPI, coordapi.Enable(plcID).Encode())
}

// Scram builds a CMD_SCRAM dispatch frame.
func Scram(plcID uint32) frame.Frame {
	return frame.Make(0, frame.CoordAPI, coordapi.Scram(plcID).Encode())
}

// ResetRPS builds a CMD_RESET_RPS dispatch frame.
func ResetRPS(plcID uint32) frame.Frame {
	return frame.Make(0, frame.CoordAPI, coordapi.ResetRPS(plcID).Encode())
}

func asUint32(v interface{}) (uint32, bool) {
	switch n := v.(type) {
	case uint64:
		return uint32(n), true
	case int64:
		if n < 0 {
			return 0, false
		}
		return uint32(n), true
	}
	return 0, false
}
