// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package session

import (
	"sync"
	"time"
)

// Session is one peer's link state: sequence tracking, RTT estimate,
// and link status. Created on a successful LINK_REQ/REMOTE_LINKED
// exchange; destroyed on CLOSE, watchdog timeout, or explicit unlink
// (spec.md §3's Session lifecycle).
type Session struct {
	PeerID      uint32
	Linked      bool
	LastRxTick  uint64
	SeqExpected uint32
	RTTMillis   float64

	lastObservedAt time.Time
}

// AdvanceSeq reports whether seq is a valid next sequence number for
// this session: strictly greater than the highest seen so far. Linked
// receivers silently drop lower reruns (spec.md §3's Sequence number
// rule); unlinked/fresh sessions accept the first sequence they see.
func (s *Session) AdvanceSeq(seq uint32) bool {
	if s.Linked && seq <= s.SeqExpected {
		return false
	}
	s.SeqExpected = seq
	return true
}

// UpdateRTT folds a new round-trip sample into the session's RTT
// estimate using a simple exponential moving average (alpha 0.2); the
// first sample seeds the estimate directly.
func (s *Session) UpdateRTT(sample time.Duration) {
	ms := float64(sample) / float64(time.Millisecond)
	if s.RTTMillis == 0 {
		s.RTTMillis = ms
		return
	}
	const alpha = 0.2
	s.RTTMillis = alpha*ms + (1-alpha)*s.RTTMillis
}

// ObserveRTT folds the time elapsed since the previous ObserveRTT call
// into the RTT estimate via UpdateRTT, then records now as the new
// reference point. The first call on a session only seeds the
// reference point and updates nothing. Use this where a true
// send/then-receive pair isn't available and the sender's own packet
// cadence is the best round-trip proxy (the Supervisor watching a
// peer's STATUS arrivals, spec.md §4.3).
func (s *Session) ObserveRTT(now time.Time) {
	if !s.lastObservedAt.IsZero() {
		s.UpdateRTT(now.Sub(s.lastObservedAt))
	}
	s.lastObservedAt = now
}

// Registry is a peer_id-keyed table of sessions, used by the
// Supervisor side (the PLC keeps its single session as a plain Session
// inside comms.Comms). The Supervisor serves an arbitrary peer count
// from per-connection goroutines, so Registry is safe for concurrent
// use from multiple goroutines.
type Registry struct {
	mu       sync.Mutex
	sessions map[uint32]*Session
	watchdog map[uint32]*time.Timer
}

// NewRegistry constructs an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[uint32]*Session),
		watchdog: make(map[uint32]*time.Timer),
	}
}

// Link creates (or replaces) a session for peerID, marking it linked.
func (r *Registry) Link(peerID uint32) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Session{PeerID: peerID, Linked: true}
	r.sessions[peerID] = s
	return s
}

// Get returns the session for peerID, if one exists.
func (r *Registry) Get(peerID uint32) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[peerID]
	return s, ok
}

// Unlink destroys peerID's session and cancels any armed watchdog for
// it. The Supervisor's watchdog expiry routes here; its CLOSE handling
// does not, since a CLOSE packet carries no peer identity.
func (r *Registry) Unlink(peerID uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, peerID)
	if t, ok := r.watchdog[peerID]; ok {
		t.Stop()
		delete(r.watchdog, peerID)
	}
}

// ArmWatchdog starts (or restarts) a duration-long timer for peerID
// that calls onExpire if no Feed arrives first. This is the
// Supervisor-side watchdog shape: a real background timer is
// appropriate here because the Supervisor legitimately serves many
// concurrent peers, unlike the PLC's own single cooperative session
// (spec.md §5's concurrency constraints are scoped to "the PLC
// process").
func (r *Registry) ArmWatchdog(peerID uint32, duration time.Duration, onExpire func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.watchdog[peerID]; ok {
		t.Stop()
	}
	r.watchdog[peerID] = time.AfterFunc(duration, onExpire)
}

// FeedWatchdog resets peerID's armed watchdog, if any, to duration
// from now.
func (r *Registry) FeedWatchdog(peerID uint32, duration time.Duration, onExpire func()) {
	r.ArmWatchdog(peerID, duration, onExpire)
}

// Peers returns a snapshot of every currently-linked peer ID.
func (r *Registry) Peers() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]uint32, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}
