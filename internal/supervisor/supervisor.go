// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package supervisor implements the hub of the hub-and-spoke SCADA
// network: link arbitration for PLC/RTU spokes, the session registry
// and watchdog that notice a spoke going quiet, and the aggregate
// fleet snapshot the Coordinator subscribes to.
package supervisor

import (
	"net"
	"sync"
	"time"

	"github.com/reactorfleet/scada-core/internal/alertlog"
	"github.com/reactorfleet/scada-core/internal/capability"
	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/proto/coordapi"
	"github.com/reactorfleet/scada-core/internal/proto/coorddata"
	"github.com/reactorfleet/scada-core/internal/proto/mgmt"
	"github.com/reactorfleet/scada-core/internal/proto/rplc"
	"github.com/reactorfleet/scada-core/internal/session"
)

// Sender is the outbound half of a hub's transport: encode-and-send to
// an arbitrary peer address. *transport.Socket satisfies this.
type Sender interface {
	SendTo(addr *net.UDPAddr, f frame.Frame) error
}

// SessionTimeout is the PLC↔Supervisor watchdog duration (spec.md §6).
const SessionTimeout = 3 * time.Second

// PlcSummary is the Supervisor's latest-known view of one PLC, the
// material a FLEET_SNAPSHOT COORD_DATA packet is built from.
type PlcSummary struct {
	PlcID     uint32
	Scram     bool
	IssStatus uint32
	Addr      *net.UDPAddr
}

// RtuSummary is the Supervisor's latest-known view of one RTU gateway.
type RtuSummary struct {
	RtuID        uint32
	Capabilities []capability.Tag
	Addr         *net.UDPAddr
}

// Hub is the Supervisor node's core state: every session it currently
// holds, the latest per-peer summaries, and the set of Coordinators
// subscribed to the fleet snapshot feed.
type Hub struct {
	Registry *session.Registry
	Socket   Sender

	mu          sync.Mutex
	plcs        map[uint32]*PlcSummary
	rtus        map[uint32]*RtuSummary
	subscribers map[string]*net.UDPAddr
	alarmFeed   []coorddata.Packet

	// allowlist, when non-nil, restricts which PLC IDs may complete a
	// link handshake. nil (the default) leaves linking unrestricted.
	// Set via SetAllowlist, gated behind cmd/supervisor.go's
	// --admin-allowlist flag.
	allowlist map[uint32]bool
}

// New constructs a Hub bound to socket.
func New(socket Sender) *Hub {
	return &Hub{
		Registry:    session.NewRegistry(),
		Socket:      socket,
		plcs:        make(map[uint32]*PlcSummary),
		rtus:        make(map[uint32]*RtuSummary),
		subscribers: make(map[string]*net.UDPAddr),
	}
}

// SetAllowlist restricts which PLC IDs may complete a link handshake
// to ids; nil leaves linking unrestricted, and an empty non-nil map
// rejects every PLC.
func (h *Hub) SetAllowlist(ids map[uint32]bool) {
	h.mu.Lock()
	h.allowlist = ids
	h.mu.Unlock()
}

// HandleFrame dispatches one inbound frame from remote. Malformed or
// foreign-protocol payloads are silently dropped by each protocol
// packet's own Decode contract; HandleFrame only needs to try each
// candidate decoder for the frame's protocol tag.
func (h *Hub) HandleFrame(remote *net.UDPAddr, f frame.Frame) {
	switch f.Protocol() {
	case frame.RPLC:
		h.handleRPLC(remote, f)
	case frame.ScadaMgmt:
		h.handleMgmt(remote, f)
	case frame.CoordAPI:
		h.handleCoordAPI(remote, f)
	}
}

func (h *Hub) handleRPLC(remote *net.UDPAddr, f frame.Frame) {
	var p rplc.Packet
	if !p.Decode(f) {
		return
	}

	if p.Type == rplc.LinkReq {
		h.link(remote, p.PlcID)
		return
	}

	// Every other RPLC type requires an established session: look it
	// up and drop a stale/replayed rerun (spec.md §3's sequence rule)
	// before dispatching.
	s, ok := h.Registry.Get(p.PlcID)
	if !ok || !s.AdvanceSeq(f.SeqNum()) {
		alertlog.Debug("dropping out-of-session or stale RPLC seq=%d from plc %d", f.SeqNum(), p.PlcID)
		return
	}

	switch p.Type {
	case rplc.Status:
		h.updateStatus(p, remote, s)
	case rplc.RpsAlarm:
		h.relayAlarm(p)
	case rplc.RplcKeepAlive:
		h.feedWatchdog(p.PlcID)
	}
}

func (h *Hub) link(remote *net.UDPAddr, plcID uint32) {
	h.mu.Lock()
	allowed := h.allowlist == nil || h.allowlist[plcID]
	h.mu.Unlock()
	if !allowed {
		alertlog.Alert("plc %d rejected: not on the peer allow-list", plcID)
		return
	}

	h.Registry.Link(plcID)
	h.mu.Lock()
	h.plcs[plcID] = &PlcSummary{PlcID: plcID, Addr: remote}
	h.mu.Unlock()

	h.Registry.ArmWatchdog(plcID, SessionTimeout, func() {
		alertlog.Alert("plc %d session timed out, unlinking", plcID)
		h.Registry.Unlink(plcID)
	})

	linked := mgmt.RemoteLinkedFor(plcID)
	reply := frame.Make(1, frame.ScadaMgmt, linked.Encode())
	if err := h.Socket.SendTo(remote, reply); err != nil {
		alertlog.Debug("failed to send REMOTE_LINKED to plc %d: %v", plcID, err)
	}
}

func (h *Hub) feedWatchdog(plcID uint32) {
	if s, ok := h.Registry.Get(plcID); ok && s.Linked {
		h.Registry.FeedWatchdog(plcID, SessionTimeout, func() {
			alertlog.Alert("plc %d session timed out, unlinking", plcID)
			h.Registry.Unlink(plcID)
		})
	}
}

func (h *Hub) updateStatus(p rplc.Packet, remote *net.UDPAddr, s *session.Session) {
	h.feedWatchdog(p.PlcID)
	s.ObserveRTT(time.Now())

	scram, _ := p.Body[0].(bool)
	var issStatus uint64
	if len(p.Body) > 1 {
		issStatus, _ = p.Body[1].(uint64)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.plcs[p.PlcID] = &PlcSummary{PlcID: p.PlcID, Scram: scram, IssStatus: uint32(issStatus), Addr: remote}
}

func (h *Hub) relayAlarm(p rplc.Packet) {
	var issStatus uint64
	if len(p.Body) > 0 {
		issStatus, _ = p.Body[0].(uint64)
	}
	alertlog.Alert("RPS_ALARM relayed from plc %d: status=0x%x", p.PlcID, issStatus)

	h.mu.Lock()
	h.alarmFeed = append(h.alarmFeed, coorddata.RelayedAlarm(p.PlcID, uint32(issStatus)))
	h.mu.Unlock()
}

func (h *Hub) handleMgmt(remote *net.UDPAddr, f frame.Frame) {
	var p mgmt.Packet
	if !p.Decode(f) {
		return
	}

	switch p.Type {
	case mgmt.RtuAdvert:
		tags, ok := capability.DecodeAdvert(p.Body)
		if !ok {
			return
		}
		h.mu.Lock()
		id := uint32(len(h.rtus)) + 1
		h.rtus[id] = &RtuSummary{RtuID: id, Capabilities: tags, Addr: remote}
		h.mu.Unlock()
	case mgmt.Close:
		// Identity of the closing peer isn't carried on this packet;
		// real shutdowns are expected to arrive as a watchdog timeout
		// instead for spoke nodes that crash rather than close cleanly.
	}
}

func (h *Hub) handleCoordAPI(remote *net.UDPAddr, f frame.Frame) {
	var p coordapi.Packet
	if !p.Decode(f) {
		return
	}

	switch p.Type {
	case coordapi.CmdSubscribe:
		h.mu.Lock()
		h.subscribers[remote.String()] = remote
		h.mu.Unlock()
	case coordapi.CmdSetBurnRate, coordapi.CmdEnable, coordapi.CmdScram, coordapi.CmdResetRPS:
		h.forwardCommand(p)
	}
}

func (h *Hub) forwardCommand(p coordapi.Packet) {
	if len(p.Fields) == 0 {
		return
	}
	plcIDRaw, ok := p.Fields[0].(uint64)
	if !ok {
		return
	}
	plcID := uint32(plcIDRaw)

	h.mu.Lock()
	summary, known := h.plcs[plcID]
	h.mu.Unlock()
	if !known || summary.Addr == nil {
		alertlog.Debug("dropping coordinator command for unknown plc %d", plcID)
		return
	}

	var out rplc.Packet
	switch p.Type {
	case coordapi.CmdSetBurnRate:
		rate := uint32(0)
		if len(p.Fields) > 1 {
			if r, ok := p.Fields[1].(uint64); ok {
				rate = uint32(r)
			}
		}
		out = rplc.Make(plcID, rplc.MekBurnRate, []interface{}{uint64(rate)})
	case coordapi.CmdEnable:
		out = rplc.Make(plcID, rplc.RpsEnable, nil)
	case coordapi.CmdScram:
		out = rplc.Scram(plcID)
	case coordapi.CmdResetRPS:
		out = rplc.Reset(plcID)
	}

	frm := frame.Make(1, frame.RPLC, out.Encode())
	if err := h.Socket.SendTo(summary.Addr, frm); err != nil {
		alertlog.Debug("failed to forward command to plc %d: %v", plcID, err)
	}
}

// BroadcastSnapshot pushes a FLEET_SNAPSHOT COORD_DATA frame to every
// subscribed Coordinator. The caller drives this on its own cadence
// (cmd/supervisor.go's periodic ticker, not this package).
func (h *Hub) BroadcastSnapshot() {
	h.mu.Lock()
	entries := make([]interface{}, 0, len(h.plcs)*3)
	for _, p := range h.plcs {
		entries = append(entries, uint64(p.PlcID), p.Scram, uint64(p.IssStatus))
	}
	subs := make([]*net.UDPAddr, 0, len(h.subscribers))
	for _, addr := range h.subscribers {
		subs = append(subs, addr)
	}
	h.mu.Unlock()

	snap := coorddata.Snapshot(entries)
	frm := frame.Make(1, frame.CoordData, snap.Encode())
	for _, addr := range subs {
		if err := h.Socket.SendTo(addr, frm); err != nil {
			alertlog.Debug("failed to push snapshot to %s: %v", addr, err)
		}
	}
}
