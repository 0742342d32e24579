// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "scadactl",
	Short: "Reactor fleet SCADA node controller",
	Long: `scadactl runs one node of the reactor fleet SCADA system: a PLC
safety loop, the Supervisor hub, an RTU gateway, or a Coordinator
display, plus an offline frame-capture decoder.

Every node shares the same SCADA frame codec and protocol packet set;
subcommands only differ in which role they play on the hub-and-spoke
radio network.`,
	Version: "1.0.0",
}

func init() {
	rootCmd.AddCommand(plcCmd)
	rootCmd.AddCommand(supervisorCmd)
	rootCmd.AddCommand(rtuCmd)
	rootCmd.AddCommand(coordinatorCmd)
	rootCmd.AddCommand(decodeCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
