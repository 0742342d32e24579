// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package transport is the datagram transport every node role rides
// the SCADA frame codec over: a thin net.PacketConn wrapper that
// turns inbound UDP datagrams into frame.WireMessage values and lets
// callers send encoded frames to a peer address. The radio network
// spec.md describes is modeled here as plain UDP, the closest
// standard-library analogue to an unreliable datagram-like transport.
package transport

import (
	"fmt"
	"net"

	"github.com/reactorfleet/scada-core/internal/frame"
)

// Socket is a bound UDP endpoint shared by every node role.
type Socket struct {
	conn *net.UDPConn
}

// Listen binds a UDP socket on port (0.0.0.0:port).
func Listen(port uint16) (*Socket, error) {
	addr := &net.UDPAddr{Port: int(port)}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on port %d: %w", port, err)
	}
	return &Socket{conn: conn}, nil
}

// Close releases the underlying socket.
func (s *Socket) Close() error { return s.conn.Close() }

// LocalPort returns the port this socket is bound to.
func (s *Socket) LocalPort() int { return s.conn.LocalAddr().(*net.UDPAddr).Port }

// SendTo encodes f and writes it to addr.
func (s *Socket) SendTo(addr *net.UDPAddr, f frame.Frame) error {
	wire, err := frame.Encode(f)
	if err != nil {
		return fmt.Errorf("transport: encode frame: %w", err)
	}
	_, err = s.conn.WriteToUDP(wire, addr)
	return err
}

// ReadLoop blocks reading datagrams and delivers each as a
// frame.WireMessage on out, until the socket is closed. The SCADA
// frame's Distance metadata isn't meaningful over real UDP so it's
// left at zero; LocalIface carries the bound local address for log
// lines.
func (s *Socket) ReadLoop(out chan<- frame.WireMessage) error {
	buf := make([]byte, 65535)
	localIface := s.conn.LocalAddr().String()
	for {
		n, remote, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		msg := make([]byte, n)
		copy(msg, buf[:n])
		out <- frame.WireMessage{
			LocalIface: localIface,
			SourcePort: uint16(remote.Port),
			ReplyPort:  uint16(s.LocalPort()),
			Message:    msg,
		}
	}
}

// Datagram is one inbound frame plus the peer address it arrived
// from. Unlike WireMessage (used by a spoke node that only ever talks
// to its one configured peer), a hub node serving many concurrent
// peers needs the actual source address to reply to.
type Datagram struct {
	Frame frame.Frame
	Addr  *net.UDPAddr
}

// ReadFrames blocks reading datagrams, decoding each as a frame, and
// delivering the successfully-decoded ones on out along with their
// source address. Malformed datagrams are silently dropped, matching
// frame.Receive's contract. Returns when the socket is closed.
func (s *Socket) ReadFrames(out chan<- Datagram) error {
	buf := make([]byte, 65535)
	for {
		n, remote, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		msg := make([]byte, n)
		copy(msg, buf[:n])
		f, ok := frame.Receive(frame.WireMessage{Message: msg})
		if !ok {
			continue
		}
		out <- Datagram{Frame: f, Addr: remote}
	}
}

// PeerSender adapts a Socket plus a fixed remote address to the
// scheduler.Sender contract a spoke node (PLC, RTU) needs: it only
// ever talks to the Supervisor.
type PeerSender struct {
	Socket *Socket
	Remote *net.UDPAddr
}

// Send encodes and sends f to the configured remote peer.
func (p *PeerSender) Send(f frame.Frame) error {
	return p.Socket.SendTo(p.Remote, f)
}

// ResolveUDP resolves a host and a separately-given port into a
// *net.UDPAddr.
func ResolveUDP(host string, port uint16) (*net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s:%d: %w", host, port, err)
	}
	return addr, nil
}
