// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/reactorfleet/scada-core/internal/alertlog"
	"github.com/reactorfleet/scada-core/internal/config"
	"github.com/reactorfleet/scada-core/internal/coordinator"
	"github.com/reactorfleet/scada-core/internal/coordinator/wsfeed"
	"github.com/reactorfleet/scada-core/internal/frame"
	"github.com/reactorfleet/scada-core/internal/transport"
	"github.com/spf13/cobra"
)

var coordinatorCmd = &cobra.Command{
	Use:   "coordinator",
	Short: "Run the Coordinator aggregation/dispatch node",
	Long: `Runs the Coordinator: subscribes to the Supervisor's fleet
snapshot, republishes it to websocket subscribers (Pocket/browser
clients), and dispatches operator commands typed on stdin as COORD_API
frames ("scram <plc_id>", "reset <plc_id>", "enable <plc_id>",
"burn <plc_id> <rate>").`,
	RunE: runCoordinator,
}

var wsListenAddr string

func init() {
	config.BindFlags(coordinatorCmd)
	coordinatorCmd.Flags().StringVar(&wsListenAddr, "ws-listen", ":8080", "HTTP listen address for the websocket snapshot feed")
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd)
	if err != nil {
		return err
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

	hub := wsfeed.NewHub()
	node := coordinator.New(hub)

	mux := http.NewServeMux()
	mux.Handle("/feed", hub)
	go func() {
		if err := http.ListenAndServe(wsListenAddr, mux); err != nil {
			alertlog.Debug("websocket feed server exited: %v", err)
		}
	}()
	alertlog.Alert("coordinator booted, websocket feed on %s, supervisor %s:%d",
		wsListenAddr, cfg.ServerHost, cfg.ServerPort)

	if err := sender.Send(coordinator.Subscribe()); err != nil {
		return fmt.Errorf("coordinator: subscribe: %w", err)
	}

	inbound := make(chan frame.WireMessage, 64)
	go func() {
		if err := socket.ReadLoop(inbound); err != nil {
			alertlog.Debug("udp read loop exited: %v", err)
		}
	}()

	commands := make(chan frame.Frame, 8)
	go readOperatorCommands(commands)

	for {
		select {
		case wm := <-inbound:
			f, ok := frame.Receive(wm)
			if !ok {
				continue
			}
			node.HandleFrame(f)
		case cmdFrame := <-commands:
			if err := sender.Send(cmdFrame); err != nil {
				alertlog.Debug("coordinator: failed to dispatch command: %v", err)
			}
		}
	}
}

// readOperatorCommands parses simple line-oriented operator commands
// from stdin into COORD_API frames, the way the teacher's TUI commands
// (cmd/control_tui.go) turned keystrokes into protocol actions.
func readOperatorCommands(out chan<- frame.Frame) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}

		plcID, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			alertlog.Debug("coordinator: bad plc_id %q", fields[1])
			continue
		}

		switch fields[0] {
		case "scram":
			out <- coordinator.Scram(uint32(plcID))
		case "reset":
			out <- coordinator.ResetRPS(uint32(plcID))
		case "enable":
			out <- coordinator.Enable(uint32(plcID))
		case "burn":
			if len(fields) < 3 {
				continue
			}
			rate, err := strconv.ParseUint(fields[2], 10, 32)
			if err != nil {
				continue
			}
			out <- coordinator.SetBurnRate(uint32(plcID), uint32(rate))
		default:
			alertlog.Debug("coordinator: unknown command %q", fields[0])
		}
	}
}
