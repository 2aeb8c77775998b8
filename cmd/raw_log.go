// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/Thermoquad/pinbus/pkg/config"
	"github.com/Thermoquad/pinbus/pkg/fsp"
	"github.com/spf13/cobra"
)

var rawLogBus string

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display received lines in human-readable format",
	Long: `Continuously decode and display FSP responses as they arrive on one bus.

Nothing is written to the port, so this can be attached to a tap or bridge
without disturbing the host that owns the controller. Malformed lines are
shown as errors and anomalous responses are flagged.`,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().StringVar(&rawLogBus, "bus", "io", "Bus to listen on (io, exp)")
}

// busPort picks the configured port and baud for a bus name
func busPort(cfg *config.Config, bus string) (string, int, error) {
	var port string
	var baud int
	switch bus {
	case "io", "net":
		port, baud = cfg.IO.Port, cfg.IO.Baud
	case "exp":
		port, baud = cfg.Exp.Port, cfg.Exp.Baud
	default:
		return "", 0, fmt.Errorf("unknown bus %q (use io or exp)", bus)
	}
	if port == "" {
		return "", 0, fmt.Errorf("no port configured for the %s bus", bus)
	}
	return port, baud, nil
}

func runRawLog(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	name, baud, err := busPort(cfg, rawLogBus)
	if err != nil {
		return err
	}

	conn, err := portOpener(cfg)(name)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("Pinbus - Raw Line Log\n")
	fmt.Printf("Connection: %s\n", describePort(name, baud))
	fmt.Printf("Press Ctrl+C to exit\n\n")

	decoder := fsp.NewDecoder()
	buf := make([]byte, 256)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			frames, errs := decoder.Decode(buf[:n])
			for _, e := range errs {
				fmt.Printf("[ERROR] %v\n", e)
			}
			for _, f := range frames {
				fmt.Print(fsp.FormatFrame(f))
				for _, v := range fsp.ValidateResponse(f.Response()) {
					if v.Type != fsp.AnomalyUnknownCommand {
						fmt.Printf("  [ANOMALY] %s\n", v.Message)
					}
				}
			}
		}
		if err != nil {
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				log.Printf("Connection closed")
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
	}
}
