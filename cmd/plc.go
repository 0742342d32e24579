// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/reactorfleet/scada-core/internal/alertlog"
	"github.com/reactorfleet/scada-core/internal/config"
	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/plc/comms"
	"github.com/reactorfleet/scada-core/internal/plc/iss"
	"github.com/reactorfleet/scada-core/internal/plc/peripheral"
	"github.com/reactorfleet/scada-core/internal/plc/safety"
	"github.com/reactorfleet/scada-core/internal/plc/scheduler"
	"github.com/reactorfleet/scada-core/internal/plc/simreactor"
	"github.com/reactorfleet/scada-core/internal/transport"
	"github.com/spf13/cobra"
)

var plcCmd = &cobra.Command{
	Use:   "plc",
	Short: "Run the reactor PLC safety core and tick scheduler",
	Long: `Runs the PLC safety loop: the latching SCRAM state, the per-tick
ISS check, and the 20 Hz tick scheduler that binds them to a single
Supervisor session over UDP.

Since the real peripheral driver adapters (boiler/turbine/reactor
handles) are outside this core's scope, this command drives a
simulated reactor handle that starts running and reports off once
Scram commands it.`,
	RunE: runPLC,
}

func init() {
	config.BindFlags(plcCmd)
}

func runPLC(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}
	if cfg.ReactorID == 0 {
		return fmt.Errorf("plc: --reactor-id is required")
	}

	socket, err := transport.Listen(cfg.ListenPort)
	if err != nil {
		return err
	}
	defer socket.Close()

	remote, err := transport.ResolveUDP(cfg.ServerHost, cfg.ServerPort)
	if err != nil {
		return err
	}
	sender := &transport.PeerSender{Socket: socket, Remote: remote}

	reactor := simreactor.New()
	checker := iss.NewManualTrip(&iss.EdgeChecker{Evaluate: func() iss.Status { return 0 }})
	boot := safety.BootState(cfg.Networked, true, true)
	core := safety.New(boot, checker, reactor)

	c := comms.New(cfg.ReactorID)
	periph := peripheral.NewRegistry(true, true)

	inbound := make(chan frame.WireMessage, 64)
	peripheralEvents := make(chan peripheral.Change, 8)
	terminate := make(chan struct{})

	go func() {
		if err := socket.ReadLoop(inbound); err != nil {
			alertlog.Debug("udp read loop exited: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		close(terminate)
	}()

	sched := scheduler.New(core, c, periph, sender, inbound, peripheralEvents, terminate)
	alertlog.Alert("plc %d booted, networked=%v, listening on :%d, supervisor %s:%d",
		cfg.ReactorID, cfg.Networked, cfg.ListenPort, cfg.ServerHost, cfg.ServerPort)

	return sched.Run()
}
