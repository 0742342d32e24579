// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"time"

	"github.com/reactorfleet/scada-core/internal/alertlog"
	"github.com/reactorfleet/scada-core/internal/capability"
	"github.com/reactorfleet/scada-core/internal/config"
	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/rtu"
	"github.com/reactorfleet/scada-core/internal/rtu/serialbridge"
	"github.com/reactorfleet/scada-core/internal/transport"
	"github.com/spf13/cobra"
)

// tickPeriod is the gateway's advert cadence tick, the same 50ms loop
// period the PLC scheduler runs at (internal/plc/scheduler.LoopPeriod).
const tickPeriod = 50 * time.Millisecond

var rtuCmd = &cobra.Command{
	Use:   "rtu",
	Short: "Run an RTU gateway",
	Long: `Runs an RTU gateway: advertises the peripheral capabilities it
bridges onto the radio network and answers MODBUS_TCP requests against
a simulated peripheral bus. Pass --serial-bridge to back the bus with
a real serial line instead.`,
	RunE: runRTU,
}

var (
	rtuCapabilities []string
	serialBridge    string
	serialBaud      int
)

func init() {
	config.BindFlags(rtuCmd)
	rtuCmd.Flags().StringSliceVar(&rtuCapabilities, "capabilities", []string{"BOILER"},
		"Comma-separated capability tags this gateway bridges")
	rtuCmd.Flags().StringVar(&serialBridge, "serial-bridge", "", "Serial port to bridge register reads/writes onto")
	rtuCmd.Flags().IntVar(&serialBaud, "serial-baud", 9600, "Baud rate for --serial-bridge")
}

func runRTU(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	tags, err := parseCapabilities(rtuCapabilities)
	if err != nil {
		return err
	}

	gw := rtu.New(cfg.ReactorID, tags)

	if serialBridge != "" {
		bridge, err := serialbridge.Open(serialBridge, serialBaud)
		if err != nil {
			return err
		}
		defer bridge.Close()
		gw.Bus = rtu.SerialIO{Bridge: bridge}
		alertlog.Alert("rtu %d bridging capabilities %v onto serial %s @ %d baud",
			cfg.ReactorID, tags, serialBridge, serialBaud)
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

	alertlog.Alert("rtu %d booted, capabilities=%v, listening on :%d, supervisor %s:%d",
		cfg.ReactorID, tags, cfg.ListenPort, cfg.ServerHost, cfg.ServerPort)

	inbound := make(chan frame.WireMessage, 64)
	go func() {
		if err := socket.ReadLoop(inbound); err != nil {
			alertlog.Debug("udp read loop exited: %v", err)
		}
	}()

	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case wm := <-inbound:
			f, ok := frame.Receive(wm)
			if !ok {
				continue
			}
			if reply, ok := gw.HandleFrame(f); ok {
				if err := sender.Send(reply); err != nil {
					alertlog.Debug("rtu %d: failed to send reply: %v", cfg.ReactorID, err)
				}
			}
		case <-ticker.C:
			if advert, ok := gw.OnLoopTick(); ok {
				if err := sender.Send(advert); err != nil {
					alertlog.Debug("rtu %d: failed to send advert: %v", cfg.ReactorID, err)
				}
			}
		}
	}
}

func parseCapabilities(names []string) ([]capability.Tag, error) {
	lookup := map[string]capability.Tag{
		"REDSTONE":      capability.Redstone,
		"BOILER":        capability.Boiler,
		"BOILER_VALVE":  capability.BoilerValve,
		"TURBINE":       capability.Turbine,
		"TURBINE_VALVE": capability.TurbineValve,
		"EMACHINE":      capability.EMachine,
		"IMATRIX":       capability.IMatrix,
	}
	tags := make([]capability.Tag, 0, len(names))
	for _, n := range names {
		tag, ok := lookup[n]
		if !ok {
			return nil, errUnknownCapability(n)
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

type errUnknownCapability string

func (e errUnknownCapability) Error() string {
	return "rtu: unknown capability tag " + string(e)
}
