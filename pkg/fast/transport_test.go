// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fsp"
	"go.uber.org/zap"
)

func startTransport(t *testing.T, port *fakePort, opts ...TransportOption) (*Transport, context.CancelFunc, <-chan error) {
	t.Helper()
	tr := NewTransport(fsp.BusIO, port, zap.NewNop(), opts...)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		port.Close()
	})
	return tr, cancel, done
}

func nextFrame(t *testing.T, tr *Transport) *fsp.Frame {
	t.Helper()
	select {
	case f := <-tr.Events():
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for frame")
		return nil
	}
}

// ============================================================
// Read Side Tests
// ============================================================

func TestTransport_PublishesDecodedLines(t *testing.T) {
	port := newFakePort()
	tr, _, _ := startTransport(t, port)

	port.Inject("ID:NET FP-CPU-2000 02.13\r-L:0A\r")

	if got := nextFrame(t, tr).Response(); got != (fsp.Identity{Identity: "NET FP-CPU-2000 02.13"}) {
		t.Errorf("First frame = %#v", got)
	}
	if got := nextFrame(t, tr).Response(); got != (fsp.SwitchClosed{ID: "0A"}) {
		t.Errorf("Second frame = %#v", got)
	}
}

func TestTransport_LineSplitAcrossReads(t *testing.T) {
	port := newFakePort()
	tr, _, _ := startTransport(t, port)

	port.Inject("WD:000F")
	time.Sleep(10 * time.Millisecond)
	select {
	case f := <-tr.Events():
		t.Fatalf("Partial line should not be published, got %q", f.Line())
	default:
	}

	port.Inject("F839\r")
	got := nextFrame(t, tr).Response()
	if got != (fsp.WatchdogStatus{Remaining: 1046585 * time.Millisecond}) {
		t.Errorf("Reassembled frame = %#v", got)
	}
}

func TestTransport_MalformedLineDropped(t *testing.T) {
	port := newFakePort()
	tr, _, _ := startTransport(t, port)

	port.Inject("garbage\rNI:zz,1\r/L:03\r")

	if got := nextFrame(t, tr).Response(); got != (fsp.SwitchOpened{ID: "03"}) {
		t.Errorf("Expected the valid line after two bad ones, got %#v", got)
	}
	waitFor(t, "decode errors counted", func() bool {
		return tr.Stats().DecodeErrors == 2
	})
	if s := tr.Stats(); s.SyntaxErrors != 1 || s.NumericErrors != 1 {
		t.Errorf("Unexpected error split: %+v", s)
	}
}

func TestTransport_DropsWhenEventsFull(t *testing.T) {
	port := newFakePort()
	tr, _, _ := startTransport(t, port, WithEventBuffer(1))

	port.Inject("-L:01\r-L:02\r-L:03\r")

	waitFor(t, "frames dropped", func() bool { return tr.Dropped() == 2 })
	if got := nextFrame(t, tr).Response(); got != (fsp.SwitchClosed{ID: "01"}) {
		t.Errorf("Oldest frame should be kept, got %#v", got)
	}
}

func TestTransport_PortClosed(t *testing.T) {
	port := newFakePort()
	_, _, done := startTransport(t, port)

	port.Close()

	select {
	case err := <-done:
		if !errors.Is(err, ErrPortClosed) {
			t.Errorf("Expected ErrPortClosed, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the port closed")
	}
}

func TestTransport_Cancel(t *testing.T) {
	port := newFakePort()
	_, cancel, done := startTransport(t, port)

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// ============================================================
// Write Side Tests
// ============================================================

func TestTransport_WritesInOrder(t *testing.T) {
	port := newFakePort()
	tr, _, _ := startTransport(t, port)

	tr.Enqueue(fsp.GetIdentity{})
	tr.Enqueue(fsp.ConfigureHardware{Platform: fsp.PlatformNeutron, SwitchReporting: fsp.ReportingVerbose})
	tr.Enqueue(fsp.Watchdog{Timeout: 750 * time.Millisecond})
	tr.EnqueueRaw("NN:")

	waitFor(t, "four writes", func() bool { return len(port.Written()) == 4 })

	expected := []string{"ID:", "CH:2000,01", "WD:750", "NN:"}
	for i, line := range port.Written() {
		if line != expected[i] {
			t.Errorf("Write %d = %q, expected %q", i, line, expected[i])
		}
	}
	if tr.Pending() != 0 {
		t.Errorf("Queue should be empty, has %d", tr.Pending())
	}
}

func TestTransport_OneWritePerTick(t *testing.T) {
	port := newFakePort()
	tr := NewTransport(fsp.BusIO, port, zap.NewNop())

	tr.Enqueue(fsp.GetIdentity{})
	tr.Enqueue(fsp.GetNodeID{})

	tr.writeNext()
	if got := port.Written(); len(got) != 1 || got[0] != "ID:" {
		t.Fatalf("After one tick expected [ID:], got %v", got)
	}
	if tr.Pending() != 1 {
		t.Errorf("One request should remain queued, got %d", tr.Pending())
	}

	tr.writeNext()
	tr.writeNext()
	if got := port.Written(); len(got) != 2 || got[1] != "NI:" {
		t.Errorf("Expected [ID: NI:], got %v", got)
	}
}

func TestTransport_ConcurrentProducers(t *testing.T) {
	port := newFakePort()
	tr, _, _ := startTransport(t, port)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				tr.Enqueue(fsp.GetIdentity{})
			}
		}()
	}
	wg.Wait()

	waitFor(t, "all writes", func() bool { return len(port.Written()) == 40 })
}

// ============================================================
// Observer Tests
// ============================================================

type observed struct {
	bus  fsp.Bus
	dir  Direction
	line string
}

type captureObserver struct {
	mu    sync.Mutex
	lines []observed
}

func (c *captureObserver) Observe(bus fsp.Bus, dir Direction, line string, _ time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, observed{bus, dir, line})
}

func (c *captureObserver) Snapshot() []observed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]observed(nil), c.lines...)
}

func TestTransport_Observer(t *testing.T) {
	port := newFakePort()
	obs := &captureObserver{}
	tr, _, _ := startTransport(t, port, WithObserver(obs))

	tr.Enqueue(fsp.GetIdentity{})
	waitFor(t, "write", func() bool { return len(port.Written()) == 1 })
	port.Inject("ID:NET\rbad\r")
	nextFrame(t, tr)

	waitFor(t, "observations", func() bool { return len(obs.Snapshot()) == 3 })

	got := obs.Snapshot()
	expected := []observed{
		{fsp.BusIO, DirectionTX, "ID:"},
		{fsp.BusIO, DirectionRX, "bad"},
		{fsp.BusIO, DirectionRX, "ID:NET"},
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Observation %d = %+v, expected %+v", i, got[i], expected[i])
		}
	}
}
