// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"github.com/Thermoquad/pinbus/pkg/config"
	"github.com/Thermoquad/pinbus/pkg/fsp"
	"github.com/Thermoquad/pinbus/pkg/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgPath string

	// WebSocket connection flags
	wsUsername    string
	wsNoSSLVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "pinbus",
	Short: "FAST Pinball serial protocol host",
	Long: `Pinbus - drive and inspect FAST Pinball controllers over the FAST Serial Protocol.

A FAST controller exposes two serial ports: the I/O NET bus (switches, coils,
watchdog) and the EXP bus (expansion boards and LEDs). Pinbus boots the
controller, keeps the watchdog fed and streams LED updates, and provides
tools for capturing and analyzing bus traffic.

Connection modes:
  Serial:    --io-port /dev/ttyACM0 --exp-port /dev/ttyACM1 [--baud 921600]
  WebSocket: --io-port ws://host/io --exp-port ws://host/exp [--username user]

Settings are read from --config (YAML), then PINBUS_* environment variables,
then flags. For WebSocket authentication, the password is read from the
PINBUS_PASSWORD environment variable, or prompted interactively if not set.`,
	Version:      "0.4.0",
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgPath, "config", "c", "", "Machine configuration file (YAML)")

	// Bus flags, bound to configuration keys by config.Load
	flags.String("io-port", "", "I/O NET bus port (device path or ws:// URL)")
	flags.String("exp-port", "", "EXP bus port (device path or ws:// URL)")
	flags.IntP("baud", "b", fsp.DefaultBaudRate, "I/O NET bus baud rate (serial only)")
	flags.Int("exp-baud", fsp.DefaultBaudRate, "EXP bus baud rate (serial only)")
	flags.String("platform", "neutron", "Machine platform (neutron, nano, system11, wpc89, wpc95)")
	flags.String("reporting", "verbose", "Switch reporting mode (read, verbose)")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("dev-log", true, "Human readable console logging")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9100)")

	// WebSocket connection flags
	flags.StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth (ws:// ports)")
	flags.BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")
}

// loadConfig merges the config file, environment and persistent flags
func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath, rootCmd.PersistentFlags())
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Development)
}

// setup loads configuration and builds the logger in one step
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
