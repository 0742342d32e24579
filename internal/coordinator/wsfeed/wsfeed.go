// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package wsfeed is the Coordinator's downstream push feed: a
// websocket endpoint Pocket/browser-style subscribers connect to and
// receive a JSON-encoded fleet snapshot on every update. This
// generalizes the teacher's WebSocketConnection (cmd/connection.go)
// from a Fusain byte-stream carrier into a framed JSON broadcast.
package wsfeed

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/reactorfleet/scada-core/internal/coordinator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Pocket/browser clients may come from any origin on the local
	// fleet network; this endpoint carries no credentials of its own.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans a fleet snapshot out to every currently-connected
// websocket subscriber. It implements coordinator.Publisher.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub constructs an empty subscriber hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades the request to a websocket and registers the
// connection as a subscriber until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	// Drain inbound messages (subscribers never send anything
	// meaningful) purely to notice disconnects.
	go func() {
		defer h.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	conn.Close()
}

// Publish JSON-encodes snapshot once and writes it to every connected
// subscriber, dropping (and unregistering) any that errors.
func (h *Hub) Publish(snapshot []coordinator.PlcSnapshot) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}

	h.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(c)
		}
	}
}
