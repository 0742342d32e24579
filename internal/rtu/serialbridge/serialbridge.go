// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package serialbridge backs an RTU gateway's simulated Bus with a
// real serial line, for the RTU node role's optional --serial-bridge
// flag. This generalizes the teacher's OpenSerialConnection
// (cmd/connection.go) from a raw byte-stream Fusain transport to a
// line-oriented ASCII register protocol a boiler/turbine controller
// on the other end of the wire speaks: "R <tag>\n" to read, "W <tag>
// <value>\n" to write, one line per reply.
package serialbridge

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"go.bug.st/serial"
)

// Bridge wraps an open serial port as a register read/write bridge.
type Bridge struct {
	port   serial.Port
	reader *bufio.Reader
}

// Open opens portName at baudRate and wraps it as a Bridge, mirroring
// the teacher's serial.Mode defaults (8-N-1).
func Open(portName string, baudRate int) (*Bridge, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("serialbridge: open %s: %w", portName, err)
	}
	return &Bridge{port: port, reader: bufio.NewReader(port)}, nil
}

// Close releases the underlying serial port.
func (b *Bridge) Close() error { return b.port.Close() }

// ReadRegister sends a read request for tag and parses the controller's
// single-line numeric reply.
func (b *Bridge) ReadRegister(tag uint8) (uint32, error) {
	if _, err := fmt.Fprintf(b.port, "R %d\n", tag); err != nil {
		return 0, fmt.Errorf("serialbridge: write read request: %w", err)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		return 0, fmt.Errorf("serialbridge: read reply: %w", err)
	}
	value, err := strconv.ParseUint(strings.TrimSpace(line), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("serialbridge: parse reply %q: %w", line, err)
	}
	return uint32(value), nil
}

// WriteRegister sends a write request for tag and waits for the
// controller's "OK\n"/"ERR\n" acknowledgment.
func (b *Bridge) WriteRegister(tag uint8, value uint32) error {
	if _, err := fmt.Fprintf(b.port, "W %d %d\n", tag, value); err != nil {
		return fmt.Errorf("serialbridge: write request: %w", err)
	}
	line, err := b.reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("serialbridge: read ack: %w", err)
	}
	if strings.TrimSpace(line) != "OK" {
		return fmt.Errorf("serialbridge: controller rejected write: %q", line)
	}
	return nil
}
