// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/pinbus/pkg/capture"
	"github.com/Thermoquad/pinbus/pkg/config"
	"github.com/Thermoquad/pinbus/pkg/fast"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var recordPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Boot the controller and keep it running",
	Long: `Connect to both buses, run the boot handshake, then keep the watchdog fed
and stream LED updates until interrupted.

Switch events are logged by name. With --metrics-addr a Prometheus endpoint is
served on /metrics. With --record all bus traffic is written to a capture file
that can be inspected later with "pinbus replay".`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&recordPath, "record", "", "Write bus traffic to a capture file")
}

// startSystem builds the system from configuration, optionally recording
// traffic. The returned cleanup closes the capture file.
func startSystem(cfg *config.Config, log *zap.Logger, record string) (*fast.System, func(), error) {
	sc, err := cfg.SystemConfig()
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	var opts []fast.SystemOption
	if record != "" {
		f, err := os.Create(record)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create capture file: %w", err)
		}
		w, err := capture.NewWriter(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		opts = append(opts, fast.WithSystemObserver(w))
		cleanup = func() {
			if err := w.Err(); err != nil {
				log.Warn("capture incomplete", zap.Error(err))
			}
			log.Info("capture closed", zap.String("path", record), zap.Uint64("records", w.Count()))
			f.Close()
		}
	}

	sys, err := fast.NewSystem(sc, portOpener(cfg), log, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return sys, cleanup, nil
}

// serveMetrics runs the Prometheus endpoint until ctx is done
func serveMetrics(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	sys, cleanup, err := startSystem(cfg, log, recordPath)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting",
		zap.String("io", describePort(cfg.IO.Port, cfg.IO.Baud)),
		zap.String("exp", describePort(cfg.Exp.Port, cfg.Exp.Baud)),
		zap.String("platform", cfg.Machine.Platform))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sys.Run(gctx) })
	if cfg.Metrics.Listen != "" {
		g.Go(func() error { return serveMetrics(gctx, cfg.Metrics.Listen, log) })
	}
	g.Go(func() error { return logEvents(gctx, sys, log) })

	err = g.Wait()
	if errors.Is(err, fast.ErrConfigRejected) {
		log.Error("controller rejected the hardware configuration, check machine.platform",
			zap.String("platform", cfg.Machine.Platform))
		return err
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("stopped")
	return nil
}

// logEvents reports switch changes and unsolicited frames
func logEvents(ctx context.Context, sys *fast.System, log *zap.Logger) error {
	select {
	case <-sys.Ready():
		log.Info("controller ready", zap.String("identity", sys.BootResult().Identity))
	case <-ctx.Done():
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-sys.SwitchEvents():
			name := ev.Name
			if name == "" {
				name = "(unnamed)"
			}
			log.Info("switch",
				zap.String("name", name),
				zap.String("id", ev.ID),
				zap.Stringer("state", ev.State))
		case f := <-sys.Frames():
			log.Debug("frame", zap.String("line", f.Line()))
		}
	}
}
