// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"strconv"
	"time"

	"github.com/reactorfleet/scada-core/internal/alertlog"
	"github.com/reactorfleet/scada-core/internal/config"
	"github.com/reactorfleet/scada-core/internal/supervisor"
	"github.com/reactorfleet/scada-core/internal/transport"
	"github.com/spf13/cobra"
)

// snapshotPeriod is how often the Supervisor pushes a FLEET_SNAPSHOT
// to subscribed Coordinators.
const snapshotPeriod = 1 * time.Second

var supervisorCmd = &cobra.Command{
	Use:   "supervisor",
	Short: "Run the Supervisor hub",
	Long: `Runs the Supervisor: the hub of the hub-and-spoke SCADA network.
It arbitrates PLC/RTU link requests, holds the session registry and
per-peer watchdogs, relays RPS_ALARM notices, and serves the aggregate
fleet snapshot feed Coordinators subscribe to.`,
	RunE: runSupervisor,
}

var (
	adminAllowlist bool
	allowedPlcs    []string
)

func init() {
	config.BindFlags(supervisorCmd)
	supervisorCmd.Flags().BoolVar(&adminAllowlist, "admin-allowlist", false,
		"Require the admin password and restrict linking to --allowed-plcs")
	supervisorCmd.Flags().StringSliceVar(&allowedPlcs, "allowed-plcs", nil,
		"Comma-separated REACTOR_IDs allowed to link when --admin-allowlist is set")
}

func runSupervisor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
	}

	var allowlist map[uint32]bool
	if adminAllowlist {
		if err := config.VerifyAdminPassword(); err != nil {
			return err
		}
		allowlist, err = parseAllowlist(allowedPlcs)
		if err != nil {
			return err
		}
	}

	socket, err := transport.Listen(cfg.ListenPort)
	if err != nil {
		return err
	}
	defer socket.Close()

	hub := supervisor.New(socket)
	if allowlist != nil {
		hub.SetAllowlist(allowlist)
	}
	alertlog.Alert("supervisor booted, listening on :%d", cfg.ListenPort)

	datagrams := make(chan transport.Datagram, 256)
	go func() {
		if err := socket.ReadFrames(datagrams); err != nil {
			alertlog.Debug("udp read loop exited: %v", err)
		}
	}()

	ticker := time.NewTicker(snapshotPeriod)
	defer ticker.Stop()

	for {
		select {
		case dg := <-datagrams:
			hub.HandleFrame(dg.Addr, dg.Frame)
		case <-ticker.C:
			hub.BroadcastSnapshot()
		}
	}
}

// parseAllowlist turns --allowed-plcs's REACTOR_ID strings into the
// set supervisor.Hub.SetAllowlist expects, mirroring cmd/rtu.go's
// parseCapabilities validation pattern. An empty ids with
// --admin-allowlist set is accepted (an allow-list rejecting every
// peer), so a nil map (no restriction) and an empty-but-set map are
// kept distinct from the caller's point of view.
func parseAllowlist(ids []string) (map[uint32]bool, error) {
	allow := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseUint(id, 10, 32)
		if err != nil {
			return nil, errInvalidPlcID(id)
		}
		allow[uint32(n)] = true
	}
	return allow, nil
}

type errInvalidPlcID string

func (e errInvalidPlcID) Error() string {
	return "supervisor: invalid --allowed-plcs entry " + string(e)
}
