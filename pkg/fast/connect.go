// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fast

import (
	"context"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fsp"
	"go.uber.org/zap"
)

// OpenFunc opens a named port
type OpenFunc func(name string) (Port, error)

// Connect opens the named port, retrying forever with a fixed backoff.
// It returns an open port, or ctx.Err() once ctx is cancelled.
func Connect(ctx context.Context, log *zap.Logger, name string, open OpenFunc, backoff time.Duration) (Port, error) {
	if backoff <= 0 {
		backoff = fsp.DefaultConnectBackoff
	}

	for attempt := 1; ; attempt++ {
		port, err := open(name)
		if err == nil {
			log.Info("port opened", zap.String("port", name), zap.Int("attempts", attempt))
			return port, nil
		}

		connectFailures.WithLabelValues(name).Inc()
		log.Debug("failed to open port, retrying",
			zap.String("port", name),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
