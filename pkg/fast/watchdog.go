// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fast

import (
	"context"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fsp"
	"go.uber.org/zap"
)

// tickerFunc returns a tick channel and a stop function
type tickerFunc func(d time.Duration) (<-chan time.Time, func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Watchdog keeps the controller's driver outputs enabled by resending
// WD:<timeout> on a fixed interval shorter than the timeout. Replies are
// not awaited.
type Watchdog struct {
	out       Requester
	timeout   time.Duration
	interval  time.Duration
	log       *zap.Logger
	newTicker tickerFunc
}

// NewWatchdog creates a watchdog. Zero durations use the defaults
// (750ms timeout, 500ms interval).
func NewWatchdog(out Requester, timeout, interval time.Duration, log *zap.Logger) *Watchdog {
	if timeout <= 0 {
		timeout = fsp.DefaultWatchdogTimeout
	}
	if interval <= 0 {
		interval = fsp.DefaultWatchdogInterval
	}
	if interval >= timeout {
		log.Warn("watchdog interval is not shorter than its timeout",
			zap.Duration("interval", interval),
			zap.Duration("timeout", timeout))
	}
	return &Watchdog{
		out:       out,
		timeout:   timeout,
		interval:  interval,
		log:       log,
		newTicker: realTicker,
	}
}

// Run pings immediately and then once per interval until ctx is cancelled
func (w *Watchdog) Run(ctx context.Context) error {
	w.log.Info("watchdog started",
		zap.Duration("timeout", w.timeout),
		zap.Duration("interval", w.interval))

	ticks, stop := w.newTicker(w.interval)
	defer stop()

	w.ping()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("watchdog stopped")
			return ctx.Err()
		case <-ticks:
			w.ping()
		}
	}
}

func (w *Watchdog) ping() {
	w.out.Enqueue(fsp.Watchdog{Timeout: w.timeout})
	watchdogPings.Inc()
}
