// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fast"
	"github.com/Thermoquad/pinbus/pkg/fsp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	identifyTimeout time.Duration
	identifyScanExp bool
)

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Query controller and expansion board identities",
	Long: `Send identity queries to the controller and report what answers.

On the I/O NET bus the controller is asked for ID, NI and NN. With --scan-exp
every possible expansion board address is probed on the EXP bus, one at a
time, and boards that answer are listed. The watchdog is never armed, so this
is safe to run against an idle controller.

Exit codes:
  0 - Controller identified
  1 - Controller did not answer or failed to identify
  2 - Connection error`,
	RunE: runIdentify,
}

func init() {
	rootCmd.AddCommand(identifyCmd)
	identifyCmd.Flags().DurationVar(&identifyTimeout, "timeout", time.Second, "Timeout for each query")
	identifyCmd.Flags().BoolVar(&identifyScanExp, "scan-exp", false, "Probe every expansion board address")
}

// query enqueues r and waits for the first response accepted by match
func query(ctx context.Context, t *fast.Transport, r fsp.Request, timeout time.Duration, match func(fsp.Response) bool) (fsp.Response, time.Duration, bool) {
	start := time.Now()
	t.Enqueue(r)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, time.Since(start), false
		case <-timer.C:
			return nil, time.Since(start), false
		case f := <-t.Events():
			if match(f.Response()) {
				return f.Response(), time.Since(start), true
			}
		}
	}
}

func isCommand(cmd string) func(fsp.Response) bool {
	return func(r fsp.Response) bool { return r.Command() == cmd }
}

func runIdentify(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	name, baud, err := busPort(cfg, "io")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	open := portOpener(cfg)

	ioPort, err := open(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer ioPort.Close()

	fmt.Printf("Pinbus - Identify\n")
	fmt.Printf("I/O NET: %s\n", describePort(name, baud))
	fmt.Printf("Timeout: %s per query\n\n", identifyTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	ioBus := fast.NewTransport(fsp.BusIO, ioPort, log, fast.WithTick(cfg.Timing.Tick))
	g.Go(func() error { return ioBus.Run(gctx) })

	identified := false
	probes := []struct {
		label string
		req   fsp.Request
	}{
		{"Identity", fsp.GetIdentity{}},
		{"Node ID", fsp.GetNodeID{}},
		{"Node info", fsp.GetNodeInfo{}},
	}
	for _, p := range probes {
		fmt.Printf("%-10s ", p.label+":")
		resp, rtt, ok := query(gctx, ioBus, p.req, identifyTimeout, isCommand(p.req.Command()))
		if !ok {
			fmt.Printf("TIMEOUT (%s)\n", rtt.Round(time.Millisecond))
			continue
		}
		fmt.Printf("%s %s (%s)\n", fsp.ResponseName(resp), fsp.FormatResponse(resp), rtt.Round(time.Millisecond))
		if _, ok := resp.(fsp.Identity); ok {
			identified = true
		}
	}

	if identifyScanExp {
		if err := scanExpansion(gctx, g, cfg.Exp.Port, cfg.Exp.Baud, open, log); err != nil {
			fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
			cancel()
			_ = g.Wait()
			os.Exit(2)
		}
	}

	stats := ioBus.Stats()
	fmt.Println()
	fmt.Print(stats.String())

	cancel()
	_ = g.Wait()

	if !identified {
		os.Exit(1)
	}
	return nil
}

// scanExpansion probes every board address on the EXP bus
func scanExpansion(ctx context.Context, g *errgroup.Group, name string, baud int, open fast.OpenFunc, log *zap.Logger) error {
	if name == "" {
		return fmt.Errorf("no port configured for the exp bus")
	}
	port, err := open(name)
	if err != nil {
		return err
	}
	// Closed when the group finishes
	expBus := fast.NewTransport(fsp.BusExp, port, log)
	g.Go(func() error {
		defer port.Close()
		return expBus.Run(ctx)
	})

	fmt.Printf("\nEXP: %s\n", describePort(name, baud))
	found := 0
	for _, board := range fsp.AllExpansionBoards() {
		resp, _, ok := query(ctx, expBus, fsp.GetExpansionID{Address: board.Address()}, identifyTimeout, isCommand(fsp.CmdID))
		if !ok {
			continue
		}
		found++
		fmt.Printf("  %-28s %s\n", board.String(), fsp.FormatResponse(resp))
	}
	fmt.Printf("%d expansion board(s) found\n", found)
	return nil
}
