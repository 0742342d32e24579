// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads per-node configuration (spec.md §6): REACTOR_ID,
// LISTEN_PORT, SERVER_PORT, NETWORKED. It layers a YAML config file
// under command-line flags the way the teacher's cmd/root.go builds
// its persistent flags, using spf13/cobra's own companion,
// spf13/viper, to do the layering rather than hand-rolling a flag/file
// merge.
package config

import (
	"bufio"
	"crypto/subtle"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// NodeConfig is the configuration every node role loads at boot. It is
// not changeable at runtime (spec.md §6).
type NodeConfig struct {
	ReactorID  uint32
	ListenPort uint16
	ServerPort uint16
	Networked  bool

	// ServerHost is the Supervisor's address a spoke node dials; the
	// distilled spec only names SERVER_PORT, but a real UDP transport
	// also needs a host to send to.
	ServerHost string
	// ConfigFile, if set, is layered under the flags below via viper.
	ConfigFile string
}

// BindFlags registers the node configuration flags onto cmd, mirroring
// the teacher's rootCmd.PersistentFlags() pattern (cmd/root.go).
func BindFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Uint32("reactor-id", 0, "This node's REACTOR_ID")
	flags.Uint16("listen-port", 7100, "Local LISTEN_PORT to bind")
	flags.Uint16("server-port", 7000, "Supervisor SERVER_PORT to dial")
	flags.String("server-host", "127.0.0.1", "Supervisor host to dial")
	flags.Bool("networked", true, "Whether this node requires a modem link")
	flags.String("config", "", "YAML config file to layer under the flags above")
}

// Load reads NodeConfig from cmd's bound flags, layered over any
// --config file given. Flags explicitly set on the command line always
// win over the config file, matching viper's BindPFlag precedence.
func Load(cmd *cobra.Command) (NodeConfig, error) {
	v := viper.New()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return NodeConfig{}, fmt.Errorf("config: bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return NodeConfig{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := NodeConfig{
		ReactorID:  v.GetUint32("reactor-id"),
		ListenPort: uint16(v.GetUint32("listen-port")),
		ServerPort: uint16(v.GetUint32("server-port")),
		ServerHost: v.GetString("server-host"),
		Networked:  v.GetBool("networked"),
		ConfigFile: v.GetString("config"),
	}
	return cfg, nil
}

// mustFlagSet returns a consistently-worded error, rather than cobra's
// raw pflag message, when flag name was not set on the command line.
// It is unexported and nothing in the repository calls it.
func mustFlagSet(flags *pflag.FlagSet, name string) error {
	if !flags.Changed(name) {
		return fmt.Errorf("config: required flag --%s not set", name)
	}
	return nil
}

// promptAdminPassword reads the operator's admin password from the
// terminal with input echo disabled, generalizing the teacher's
// GetPassword/term.ReadPassword (cmd/connection.go) from a Fusain
// device credential to the Supervisor's own admin gate.
func promptAdminPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Admin password: ")
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("config: read admin password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// VerifyAdminPassword gates the Supervisor's peer allow-list behind an
// operator-entered password, checked against SCADA_ADMIN_PASSWORD. It
// is an error to require this gate (--admin-allowlist) without that
// environment variable set: there is nothing to compare the prompted
// password against. The comparison itself runs in constant time so a
// timing side channel can't shorten a guess.
func VerifyAdminPassword() error {
	expected := os.Getenv("SCADA_ADMIN_PASSWORD")
	if expected == "" {
		return fmt.Errorf("config: --admin-allowlist requires SCADA_ADMIN_PASSWORD to be set")
	}

	got, err := promptAdminPassword()
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
		return fmt.Errorf("config: admin password did not match")
	}
	return nil
}
