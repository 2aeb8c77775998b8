// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fast

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fsp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SystemConfig is everything needed to bring a machine online
type SystemConfig struct {
	IOPort  string
	ExpPort string

	Boot             BootConfig
	WatchdogTimeout  time.Duration
	WatchdogInterval time.Duration
	Tick             time.Duration
	ConnectBackoff   time.Duration
	LedFlushInterval time.Duration

	LedBoards []LedBoard
	IoBoards  []IoBoard
}

// System connects both buses, boots the I/O controller and then keeps the
// watchdog, LED writer and event dispatch running until cancelled.
type System struct {
	cfg      SystemConfig
	open     OpenFunc
	log      *zap.Logger
	observer Observer

	leds     *LedMap
	switches *SwitchMap

	io        *Transport
	exp       *Transport
	ledWriter *LedBusWriter

	ready    chan struct{}
	bootMu   sync.Mutex
	bootInfo BootResult

	switchEvents chan SwitchEvent
	frames       chan *fsp.Frame
}

// SystemOption configures a System
type SystemOption func(*System)

// WithSystemObserver records raw traffic on both buses
func WithSystemObserver(o Observer) SystemOption {
	return func(s *System) {
		s.observer = o
	}
}

// NewSystem validates the LED and switch layout. Ports are opened by Run.
func NewSystem(cfg SystemConfig, open OpenFunc, log *zap.Logger, opts ...SystemOption) (*System, error) {
	leds, err := NewLedMap(cfg.LedBoards)
	if err != nil {
		return nil, err
	}
	switches, err := NewSwitchMap(cfg.IoBoards)
	if err != nil {
		return nil, err
	}

	s := &System{
		cfg:          cfg,
		open:         open,
		log:          log,
		leds:         leds,
		switches:     switches,
		ready:        make(chan struct{}),
		switchEvents: make(chan SwitchEvent, 256),
		frames:       make(chan *fsp.Frame, 256),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Ready is closed once boot has completed and the LED writer is available
func (s *System) Ready() <-chan struct{} {
	return s.ready
}

// BootResult returns the handshake summary. Valid after Ready.
func (s *System) BootResult() BootResult {
	s.bootMu.Lock()
	defer s.bootMu.Unlock()
	return s.bootInfo
}

// Leds returns the LED writer. Valid after Ready.
func (s *System) Leds() *LedBusWriter {
	return s.ledWriter
}

// LedMap returns the configured LED layout
func (s *System) LedMap() *LedMap {
	return s.leds
}

// SwitchMap returns the configured switch layout
func (s *System) SwitchMap() *SwitchMap {
	return s.switches
}

// SwitchEvents delivers named switch transitions
func (s *System) SwitchEvents() <-chan SwitchEvent {
	return s.switchEvents
}

// Frames delivers every other response from both buses
func (s *System) Frames() <-chan *fsp.Frame {
	return s.frames
}

// Transports returns the I/O and EXP transports. Valid after Ready.
func (s *System) Transports() (io, exp *Transport) {
	return s.io, s.exp
}

// Run blocks until ctx is cancelled or a component fails. Configuration
// rejection is returned as ErrConfigRejected. Cancellation returns nil.
func (s *System) Run(ctx context.Context) error {
	defer systemReady.Set(0)

	ioPort, err := Connect(ctx, s.log, s.cfg.IOPort, s.open, s.cfg.ConnectBackoff)
	if err != nil {
		return ignoreCanceled(ctx, err)
	}
	defer ioPort.Close()

	expPort, err := Connect(ctx, s.log, s.cfg.ExpPort, s.open, s.cfg.ConnectBackoff)
	if err != nil {
		return ignoreCanceled(ctx, err)
	}
	defer expPort.Close()

	opts := []TransportOption{WithTick(s.cfg.Tick)}
	if s.observer != nil {
		opts = append(opts, WithObserver(s.observer))
	}
	s.io = NewTransport(fsp.BusIO, ioPort, s.log, opts...)
	s.exp = NewTransport(fsp.BusExp, expPort, s.log, opts...)
	s.ledWriter = NewLedBusWriter(s.exp, s.leds, s.cfg.LedFlushInterval, s.log.Named("leds"))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return s.io.Run(gctx) })
	g.Go(func() error { return s.exp.Run(gctx) })
	g.Go(func() error { return s.dispatch(gctx, s.exp) })

	g.Go(func() error {
		boot := NewBootSequencer(s.cfg.Boot, s.io, s.io.Events(), s.log.Named("boot"))
		result, err := boot.Run(gctx)
		if err != nil {
			return err
		}
		s.bootMu.Lock()
		s.bootInfo = result
		s.bootMu.Unlock()

		s.log.Info("system online",
			zap.String("identity", result.Identity),
			zap.Int("identity_requests", result.IdentityRequests),
			zap.Duration("elapsed", result.Elapsed))

		s.ledWriter.ClearAll()

		wd := NewWatchdog(s.io, s.cfg.WatchdogTimeout, s.cfg.WatchdogInterval, s.log.Named("watchdog"))
		g.Go(func() error { return wd.Run(gctx) })
		g.Go(func() error { return s.ledWriter.Run(gctx) })
		g.Go(func() error { return s.dispatch(gctx, s.io) })

		systemReady.Set(1)
		close(s.ready)
		return nil
	})

	return ignoreCanceled(ctx, g.Wait())
}

// dispatch routes decoded frames from one transport to subscribers
func (s *System) dispatch(ctx context.Context, t *Transport) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-t.Events():
			s.route(t.Bus(), f)
		}
	}
}

func (s *System) route(bus fsp.Bus, f *fsp.Frame) {
	for _, v := range fsp.ValidateResponse(f.Response()) {
		if v.Type == fsp.AnomalyUnknownCommand {
			continue
		}
		s.log.Warn("anomalous response",
			zap.Stringer("bus", bus),
			zap.String("line", f.Line()),
			zap.String("reason", v.Message))
	}

	if ev, ok := s.switches.Resolve(f.Response(), f.Timestamp()); ok {
		switchEvents.WithLabelValues(ev.State.String()).Inc()
		select {
		case s.switchEvents <- ev:
		default:
			s.log.Warn("switch event buffer full, dropping event", zap.String("switch", ev.ID))
		}
		return
	}

	select {
	case s.frames <- f:
	default:
		s.log.Debug("frame buffer full, dropping frame", zap.String("line", f.Line()))
	}
}

func ignoreCanceled(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
