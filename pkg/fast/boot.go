// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fast

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fsp"
	"go.uber.org/zap"
)

var (
	// ErrConfigRejected is returned when the controller answers CH with X or F.
	// Running with a misconfigured reporting mode is unsafe, so callers treat
	// it as fatal.
	ErrConfigRejected = errors.New("hardware configuration rejected by controller")
	// ErrEventsClosed is returned when the response channel closes mid-boot
	ErrEventsClosed = errors.New("response channel closed")
)

// BootState is the handshake progress
type BootState uint8

const (
	BootAwaitingIdentity BootState = iota
	BootAwaitingConfigAck
	BootReady
)

func (s BootState) String() string {
	switch s {
	case BootAwaitingIdentity:
		return "awaiting-identity"
	case BootAwaitingConfigAck:
		return "awaiting-config-ack"
	case BootReady:
		return "ready"
	default:
		return fmt.Sprintf("BootState(%d)", uint8(s))
	}
}

// BootConfig describes how the I/O controller should be configured
type BootConfig struct {
	Platform        fsp.Platform
	SwitchReporting fsp.SwitchReporting
	ResponseTimeout time.Duration
}

// BootResult summarizes a completed handshake
type BootResult struct {
	Identity         string
	IdentityRequests int
	ConfigRequests   int
	Elapsed          time.Duration
}

// BootSequencer performs the startup handshake on the I/O bus. Nothing else
// may be sent on that bus until Run returns successfully.
type BootSequencer struct {
	cfg       BootConfig
	out       Requester
	responses <-chan *fsp.Frame
	log       *zap.Logger
	state     atomic.Uint32
}

// NewBootSequencer creates a sequencer that writes to out and reads
// responses from the I/O transport's events
func NewBootSequencer(cfg BootConfig, out Requester, responses <-chan *fsp.Frame, log *zap.Logger) *BootSequencer {
	if cfg.ResponseTimeout <= 0 {
		cfg.ResponseTimeout = fsp.DefaultResponseTimeout
	}
	b := &BootSequencer{
		cfg:       cfg,
		out:       out,
		responses: responses,
		log:       log,
	}
	b.setState(BootAwaitingIdentity)
	return b
}

// State returns the current handshake state. Safe to call while Run is
// in progress.
func (b *BootSequencer) State() BootState {
	return BootState(b.state.Load())
}

func (b *BootSequencer) setState(s BootState) {
	b.state.Store(uint32(s))
}

// Run drives the handshake to Ready. Identity and configuration requests
// are resent after every timeout, without limit. Returns ErrConfigRejected
// when the controller refuses the configuration.
func (b *BootSequencer) Run(ctx context.Context) (BootResult, error) {
	var result BootResult
	start := time.Now()

	for {
		switch b.State() {
		case BootAwaitingIdentity:
			b.out.Enqueue(fsp.GetIdentity{})
			result.IdentityRequests++
			bootAttempts.WithLabelValues(fsp.CmdID).Inc()

			resp, err := b.await(ctx, func(r fsp.Response) bool {
				switch r.(type) {
				case fsp.Identity, fsp.IdentityFailed:
					return true
				}
				return false
			})
			if err != nil {
				return result, err
			}

			switch v := resp.(type) {
			case nil:
				b.log.Debug("identity request timed out", zap.Int("attempt", result.IdentityRequests))
			case fsp.IdentityFailed:
				b.log.Debug("controller not ready", zap.Int("attempt", result.IdentityRequests))
			case fsp.Identity:
				result.Identity = v.Identity
				b.log.Info("controller identified", zap.String("identity", v.Identity))
				if b.cfg.Platform.NeedsConfiguration() {
					b.setState(BootAwaitingConfigAck)
				} else {
					b.setState(BootReady)
				}
			}

		case BootAwaitingConfigAck:
			b.out.Enqueue(fsp.ConfigureHardware{
				Platform:        b.cfg.Platform,
				SwitchReporting: b.cfg.SwitchReporting,
			})
			result.ConfigRequests++
			bootAttempts.WithLabelValues(fsp.CmdConfigHardware).Inc()

			resp, err := b.await(ctx, func(r fsp.Response) bool {
				switch r.(type) {
				case fsp.HardwareConfigValid, fsp.HardwareConfigInvalid:
					return true
				}
				return false
			})
			if err != nil {
				return result, err
			}

			switch resp.(type) {
			case nil:
				b.log.Debug("configuration request timed out", zap.Int("attempt", result.ConfigRequests))
			case fsp.HardwareConfigInvalid:
				return result, fmt.Errorf("%w: platform %s, reporting %s",
					ErrConfigRejected, b.cfg.Platform, b.cfg.SwitchReporting)
			case fsp.HardwareConfigValid:
				b.log.Info("hardware configured",
					zap.Stringer("platform", b.cfg.Platform),
					zap.Stringer("reporting", b.cfg.SwitchReporting))
				b.setState(BootReady)
			}

		case BootReady:
			result.Elapsed = time.Since(start)
			return result, nil
		}
	}
}

// await waits up to the response timeout for a response accepted by match.
// Other responses are ignored. A nil response means the wait timed out.
func (b *BootSequencer) await(ctx context.Context, match func(fsp.Response) bool) (fsp.Response, error) {
	timer := time.NewTimer(b.cfg.ResponseTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, nil
		case f, ok := <-b.responses:
			if !ok {
				return nil, ErrEventsClosed
			}
			if match(f.Response()) {
				return f.Response(), nil
			}
			b.log.Debug("ignoring response during boot",
				zap.Stringer("state", b.State()),
				zap.String("line", f.Line()))
		}
	}
}
