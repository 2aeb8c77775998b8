// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package fast runs the FAST serial protocol over open byte streams: the
// per-port transport loop, the boot handshake, the watchdog and the
// expansion-bus LED writer.
package fast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fsp"
	"github.com/Thermoquad/pinbus/pkg/logging"
	"go.uber.org/zap"
)

// ErrPortClosed is returned by Run when the underlying port stops reading
var ErrPortClosed = errors.New("port closed")

// Port is an open duplex byte stream (serial port or websocket bridge)
type Port interface {
	io.Reader
	io.Writer
	io.Closer
}

// Requester accepts outgoing requests. Transport implements it; tests
// substitute recorders.
type Requester interface {
	Enqueue(r fsp.Request)
}

// Direction of a line relative to the host
type Direction uint8

const (
	DirectionRX Direction = iota
	DirectionTX
)

func (d Direction) String() string {
	if d == DirectionTX {
		return "tx"
	}
	return "rx"
}

// Observer is notified of every complete line crossing a transport,
// including lines that failed to decode.
type Observer interface {
	Observe(bus fsp.Bus, dir Direction, line string, at time.Time)
}

// TransportOption configures a Transport
type TransportOption func(*Transport)

// WithTick sets the polling interval
func WithTick(d time.Duration) TransportOption {
	return func(t *Transport) {
		if d > 0 {
			t.tick = d
		}
	}
}

// WithEventBuffer sets the capacity of the events channel
func WithEventBuffer(n int) TransportOption {
	return func(t *Transport) {
		if n > 0 {
			t.events = make(chan *fsp.Frame, n)
		}
	}
}

// WithObserver attaches an observer for raw line traffic
func WithObserver(o Observer) TransportOption {
	return func(t *Transport) {
		t.observer = o
	}
}

// Transport owns one open port. A reader goroutine hands received chunks to
// the tick loop, which decodes complete lines, publishes them on Events and
// writes at most one queued request per tick.
type Transport struct {
	bus      fsp.Bus
	port     Port
	log      *zap.Logger
	tick     time.Duration
	decoder  *fsp.Decoder
	chunks   chan []byte
	events   chan *fsp.Frame
	observer Observer

	mu    sync.Mutex
	queue []string

	statsMu sync.Mutex
	stats   *fsp.Statistics

	dropped atomic.Uint64
}

// NewTransport wraps an open port for the given bus
func NewTransport(bus fsp.Bus, port Port, log *zap.Logger, opts ...TransportOption) *Transport {
	t := &Transport{
		bus:     bus,
		port:    port,
		log:     logging.Bus(log, bus.String()),
		tick:    fsp.DefaultTickInterval,
		decoder: fsp.NewDecoder(),
		chunks:  make(chan []byte, 64),
		events:  make(chan *fsp.Frame, 256),
		stats:   fsp.NewStatistics(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Bus returns the bus this transport serves
func (t *Transport) Bus() fsp.Bus {
	return t.bus
}

// Events delivers decoded response frames in receive order
func (t *Transport) Events() <-chan *fsp.Frame {
	return t.events
}

// Enqueue encodes a request and appends it to the write queue.
// Safe for concurrent use.
func (t *Transport) Enqueue(r fsp.Request) {
	if r.Bus() != t.bus {
		t.log.Warn("request routed to the wrong bus",
			zap.String("request", fsp.FormatRequest(r)))
	}
	t.EnqueueRaw(fsp.Encode(r))
}

// EnqueueRaw appends an already encoded line (without terminator)
func (t *Transport) EnqueueRaw(line string) {
	t.mu.Lock()
	t.queue = append(t.queue, line)
	depth := len(t.queue)
	t.mu.Unlock()
	queueDepth.WithLabelValues(t.bus.String()).Set(float64(depth))
}

// Pending returns the number of queued, unwritten lines
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// Dropped returns the number of frames discarded because Events was full
func (t *Transport) Dropped() uint64 {
	return t.dropped.Load()
}

// Stats returns a snapshot of the receive statistics
func (t *Transport) Stats() fsp.Statistics {
	t.statsMu.Lock()
	defer t.statsMu.Unlock()
	return *t.stats
}

// Run services the port until ctx is cancelled or the port fails.
// The port is not closed on return.
func (t *Transport) Run(ctx context.Context) error {
	readErr := make(chan error, 1)
	go t.readLoop(ctx, readErr)

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			// Flush whatever arrived before the failure
			t.drain()
			return fmt.Errorf("%w: %s: %v", ErrPortClosed, t.bus, err)
		case <-ticker.C:
			t.drain()
			t.writeNext()
		}
	}
}

func (t *Transport) readLoop(ctx context.Context, readErr chan<- error) {
	buf := make([]byte, 1024)
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case t.chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if ctx.Err() == nil {
				readErr <- err
			}
			return
		}
	}
}

// drain consumes every chunk received so far without blocking
func (t *Transport) drain() {
	for {
		select {
		case chunk := <-t.chunks:
			t.process(chunk)
		default:
			return
		}
	}
}

func (t *Transport) process(chunk []byte) {
	bus := t.bus.String()
	bytesRead.WithLabelValues(bus).Add(float64(len(chunk)))

	frames, errs := t.decoder.Decode(chunk)

	t.statsMu.Lock()
	t.stats.AddBytes(len(chunk))
	for _, err := range errs {
		t.stats.Update(nil, err, nil)
	}
	for _, f := range frames {
		t.stats.Update(f, nil, fsp.ValidateResponse(f.Response()))
	}
	t.statsMu.Unlock()

	for _, err := range errs {
		decodeErrors.WithLabelValues(bus).Inc()
		t.log.Warn("dropping malformed line", zap.Error(err))
		var pe *fsp.ParseError
		if t.observer != nil && errors.As(err, &pe) {
			t.observer.Observe(t.bus, DirectionRX, pe.Line, time.Now())
		}
	}

	for _, f := range frames {
		linesRead.WithLabelValues(bus, f.Command()).Inc()
		if t.observer != nil {
			t.observer.Observe(t.bus, DirectionRX, f.Line(), f.Timestamp())
		}
		if _, ok := f.Response().(fsp.Unknown); ok {
			t.log.Debug("unmodeled response", zap.String("line", f.Line()))
		} else {
			t.log.Debug("rx", zap.String("line", f.Line()))
		}
		t.publish(f)
	}
}

func (t *Transport) publish(f *fsp.Frame) {
	select {
	case t.events <- f:
	default:
		t.dropped.Add(1)
		eventsDropped.WithLabelValues(t.bus.String()).Inc()
		t.log.Warn("event buffer full, dropping frame", zap.String("line", f.Line()))
	}
}

// writeNext writes the oldest queued line, if any
func (t *Transport) writeNext() {
	t.mu.Lock()
	if len(t.queue) == 0 {
		t.mu.Unlock()
		return
	}
	line := t.queue[0]
	t.queue[0] = ""
	t.queue = t.queue[1:]
	depth := len(t.queue)
	t.mu.Unlock()

	bus := t.bus.String()
	queueDepth.WithLabelValues(bus).Set(float64(depth))

	if _, err := io.WriteString(t.port, line+string(fsp.LineTerminator)); err != nil {
		writeErrors.WithLabelValues(bus).Inc()
		t.log.Warn("write failed", zap.String("line", line), zap.Error(err))
		return
	}
	linesWritten.WithLabelValues(bus).Inc()
	if t.observer != nil {
		t.observer.Observe(t.bus, DirectionTX, line, time.Now())
	}
	t.log.Debug("tx", zap.String("line", line))
}
