// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fast"
	"github.com/Thermoquad/pinbus/pkg/fsp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ledHold time.Duration

var ledsCmd = &cobra.Command{
	Use:   "leds",
	Short: "Inspect and drive expansion board LEDs",
}

var ledsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured LEDs and their hardware addresses",
	RunE:  runLedsList,
}

var ledsSetCmd = &cobra.Command{
	Use:   "set <name|address:index> <rrggbb>",
	Short: "Light one LED",
	Long: `Boot the controller, light one LED and hold it.

The LED is given either by its configured name or as a port address and
index, e.g. "480:3". The color is six hex digits. The LED stays lit for
--hold, or until interrupted when --hold is zero.`,
	Args: cobra.ExactArgs(2),
	RunE: runLedsSet,
}

var ledsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Turn off every configured LED port",
	RunE:  runLedsClear,
}

func init() {
	rootCmd.AddCommand(ledsCmd)
	ledsCmd.AddCommand(ledsListCmd, ledsSetCmd, ledsClearCmd)
	ledsSetCmd.Flags().DurationVar(&ledHold, "hold", 0, "How long to keep the LED lit (0 = until interrupted)")
}

// parseColor parses rrggbb, with or without a leading '#'
func parseColor(s string) (r, g, b uint8, err error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("color %q must be six hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// parseLedTarget resolves "address:index" into a port address and index
func parseLedTarget(s string) (string, uint8, bool) {
	addr, idx, ok := strings.Cut(s, ":")
	if !ok || addr == "" {
		return "", 0, false
	}
	n, err := strconv.ParseUint(idx, 16, 8)
	if err != nil {
		return "", 0, false
	}
	return strings.ToUpper(addr), uint8(n), true
}

func runLedsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	boards, err := cfg.LedLayout()
	if err != nil {
		return err
	}
	leds, err := fast.NewLedMap(boards)
	if err != nil {
		return err
	}

	fmt.Printf("%d LED(s) on %d port(s)\n\n", leds.Len(), len(leds.PortAddresses()))
	for _, name := range leds.Names() {
		hw, _ := leds.Lookup(name)
		fmt.Printf("  %-24s %s:%02x  (%s port %d)\n", name, hw.Address(), hw.Index, hw.Board, hw.Port)
	}
	return nil
}

// withReadySystem boots the system and calls fn once it is ready. fn runs
// while the system keeps servicing both buses.
func withReadySystem(fn func(ctx context.Context, sys *fast.System, log *zap.Logger) error) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	sys, cleanup, err := startSystem(cfg, log, "")
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sys.Run(ctx) }()

	select {
	case <-sys.Ready():
	case err := <-done:
		return err
	}

	fnErr := fn(ctx, sys, log)
	cancel()
	if err := <-done; err != nil {
		return err
	}
	return fnErr
}

func runLedsSet(cmd *cobra.Command, args []string) error {
	r, g, b, err := parseColor(args[1])
	if err != nil {
		return err
	}

	return withReadySystem(func(ctx context.Context, sys *fast.System, log *zap.Logger) error {
		if addr, idx, ok := parseLedTarget(args[0]); ok {
			sys.Leds().Set(addr, fsp.LedState{Index: idx, R: r, G: g, B: b})
		} else if err := sys.Leds().SetNamed(args[0], r, g, b); err != nil {
			return err
		}
		log.Info("LED set", zap.String("led", args[0]), zap.String("color", args[1]))

		if ledHold <= 0 {
			<-ctx.Done()
			return nil
		}
		select {
		case <-ctx.Done():
		case <-time.After(ledHold):
		}
		return nil
	})
}

func runLedsClear(cmd *cobra.Command, args []string) error {
	return withReadySystem(func(ctx context.Context, sys *fast.System, log *zap.Logger) error {
		// Boot already clears every port; wait for the queue to empty
		_, exp := sys.Transports()
		for exp.Pending() > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(10 * time.Millisecond):
			}
		}
		log.Info("LEDs cleared", zap.Strings("ports", sys.LedMap().PortAddresses()))
		return nil
	})
}
