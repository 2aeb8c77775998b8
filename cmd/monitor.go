// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/pinbus/pkg/config"
	"github.com/Thermoquad/pinbus/pkg/fast"
	"github.com/Thermoquad/pinbus/pkg/fsp"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	statsInterval int
	showAll       bool
	textMode      bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Run the controller with a live dashboard",
	Long: `Boot the controller and show live bus statistics, switch states and
anomalies in a terminal dashboard.

Monitoring:
  - Decode errors (syntax, bad numbers, overlong lines)
  - Rejected configuration and watchdog commands
  - Watchdog running low or expired
  - Switch changes by name

Use --text for plain output with periodic statistics instead of the dashboard.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().IntVarP(&statsInterval, "stats-interval", "s", 10, "Statistics display interval in seconds (text mode)")
	monitorCmd.Flags().BoolVarP(&showAll, "show-all", "a", false, "Show every received frame, not only anomalies")
	monitorCmd.Flags().BoolVar(&textMode, "text", false, "Plain text output instead of the dashboard")
	monitorCmd.Flags().StringVar(&recordPath, "record", "", "Write bus traffic to a capture file")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if textMode {
		return runMonitorText(cfg)
	}
	return runMonitorTUI(cfg)
}

// tuiLogWriter forwards encoded log lines to the dashboard
type tuiLogWriter struct {
	p *tea.Program
}

func (w tuiLogWriter) Write(b []byte) (int, error) {
	w.p.Send(logMsg{line: string(b)})
	return len(b), nil
}

func (w tuiLogWriter) Sync() error { return nil }

// runMonitorTUI runs the system with warnings routed into the dashboard log
func runMonitorTUI(cfg *config.Config) error {
	var sys *fast.System
	m := initialModel(cfg)
	m.sample = func() (fsp.Statistics, fsp.Statistics, uint64) {
		io, exp := sys.Transports()
		return io.Stats(), exp.Stats(), io.Dropped() + exp.Dropped()
	}
	p := tea.NewProgram(m, tea.WithAltScreen())

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), tuiLogWriter{p: p}, zapcore.WarnLevel)
	log := zap.New(core)

	built, cleanup, err := startSystem(cfg, log, recordPath)
	if err != nil {
		return err
	}
	defer cleanup()
	sys = built

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sys.Run(ctx) }()
	go pumpSystem(ctx, p, sys, done)

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	cancel()

	// pumpSystem consumes done when the system stops before ready
	if fm, ok := final.(model); ok {
		if err := fm.fatalErr(); err != nil {
			return err
		}
	}

	select {
	case err := <-done:
		if errors.Is(err, fast.ErrConfigRejected) {
			return err
		}
	case <-time.After(2 * time.Second):
	}
	return nil
}

// pumpSystem feeds system events to the dashboard until ctx is done
func pumpSystem(ctx context.Context, p *tea.Program, sys *fast.System, done <-chan error) {
	select {
	case <-sys.Ready():
		p.Send(readyMsg{identity: sys.BootResult().Identity, elapsed: sys.BootResult().Elapsed})
	case err := <-done:
		p.Send(stoppedMsg{err: err})
		return
	case <-ctx.Done():
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sys.SwitchEvents():
			p.Send(switchMsg{event: ev})
		case f := <-sys.Frames():
			p.Send(frameMsg{frame: f})
		}
	}
}

// runMonitorText runs the system with plain output
func runMonitorText(cfg *config.Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	fmt.Printf("Pinbus - Monitor\n")
	fmt.Printf("I/O NET: %s\n", describePort(cfg.IO.Port, cfg.IO.Baud))
	fmt.Printf("EXP:     %s\n", describePort(cfg.Exp.Port, cfg.Exp.Baud))
	fmt.Printf("Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Printf("Mode: All frames\n")
	} else {
		fmt.Printf("Mode: Switches and anomalies only\n")
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	sys, cleanup, err := startSystem(cfg, log, recordPath)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- sys.Run(ctx) }()

	select {
	case <-sys.Ready():
		res := sys.BootResult()
		fmt.Printf("[READY] %s after %d identity request(s), %s\n\n",
			res.Identity, res.IdentityRequests, res.Elapsed.Round(time.Millisecond))
	case err := <-done:
		return err
	}

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()

	for {
		select {
		case err := <-done:
			return err

		case ev := <-sys.SwitchEvents():
			printSwitchEvent(ev)

		case f := <-sys.Frames():
			if showAll {
				fmt.Print(fsp.FormatFrame(f))
			}

		case <-statsTicker.C:
			io, exp := sys.Transports()
			fmt.Println()
			printBusStats("I/O NET", io)
			printBusStats("EXP", exp)
		}
	}
}

func printSwitchEvent(ev fast.SwitchEvent) {
	name := ev.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Printf("[%s] SWITCH %-6s %s (0x%s)\n", ev.Time.Format("15:04:05.000"), ev.State, name, ev.ID)
}

func printBusStats(label string, t *fast.Transport) {
	stats := t.Stats()
	fmt.Printf("%s", label)
	if dropped := t.Dropped(); dropped > 0 {
		fmt.Printf(" (%d frame(s) dropped)", dropped)
	}
	fmt.Println()
	fmt.Print(stats.String())
	fmt.Println()
}
