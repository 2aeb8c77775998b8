// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fast

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fsp"
	"go.uber.org/zap"
)

// DefaultLedFlushInterval is how often pending LED updates are sent
const DefaultLedFlushInterval = 16 * time.Millisecond

// LedBusWriter collects LED updates made during one tick and sends them
// as one SetLeds request per port address.
type LedBusWriter struct {
	out      Requester
	leds     *LedMap
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	order   []string
	pending map[string][]fsp.LedState
}

// NewLedBusWriter creates a writer on the EXP bus. leds may be nil when
// only raw addresses are used.
func NewLedBusWriter(out Requester, leds *LedMap, interval time.Duration, log *zap.Logger) *LedBusWriter {
	if interval <= 0 {
		interval = DefaultLedFlushInterval
	}
	if leds == nil {
		leds = &LedMap{leds: map[string]HardwareLed{}}
	}
	return &LedBusWriter{
		out:      out,
		leds:     leds,
		interval: interval,
		log:      log,
		pending:  make(map[string][]fsp.LedState),
	}
}

// Set records updates for one port address. Setting an index already
// pending in this tick replaces its color and keeps its position.
func (w *LedBusWriter) Set(address string, states ...fsp.LedState) {
	if len(states) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	batch, seen := w.pending[address]
	if !seen {
		w.order = append(w.order, address)
	}
next:
	for _, st := range states {
		for i := range batch {
			if batch[i].Index == st.Index {
				batch[i] = st
				continue next
			}
		}
		batch = append(batch, st)
	}
	w.pending[address] = batch
}

// SetNamed records an update for a named LED
func (w *LedBusWriter) SetNamed(name string, r, g, b uint8) error {
	led, ok := w.leds.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLed, name)
	}
	w.Set(led.Address(), fsp.LedState{Index: led.Index, R: r, G: g, B: b})
	return nil
}

// Flush sends everything pending, one request per address in the order the
// addresses were first touched. Returns the number of requests sent.
func (w *LedBusWriter) Flush() int {
	w.mu.Lock()
	order := w.order
	pending := w.pending
	w.order = nil
	w.pending = make(map[string][]fsp.LedState, len(pending))
	w.mu.Unlock()

	for _, addr := range order {
		w.out.Enqueue(fsp.SetLeds{Address: addr, States: pending[addr]})
		ledBatches.WithLabelValues(addr).Inc()
	}
	return len(order)
}

// ClearAll turns off every mapped LED port
func (w *LedBusWriter) ClearAll() {
	for _, addr := range w.leds.PortAddresses() {
		w.out.Enqueue(fsp.ClearAllLeds{Address: addr})
	}
}

// Run flushes once per interval until ctx is cancelled
func (w *LedBusWriter) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Flush()
			return ctx.Err()
		case <-ticker.C:
			if n := w.Flush(); n > 0 {
				w.log.Debug("flushed LED updates", zap.Int("requests", n))
			}
		}
	}
}
