// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fast

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fsp"
)

// fakePort is an in-memory Port. Bytes pushed with Inject are returned by
// Read; every written line is recorded and optionally answered by onWrite.
type fakePort struct {
	rx      chan []byte
	closed  chan struct{}
	once    sync.Once
	pending []byte

	mu      sync.Mutex
	written []string
	partial string
	onWrite func(line string)
}

func newFakePort() *fakePort {
	return &fakePort{
		rx:     make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (p *fakePort) Inject(s string) {
	p.rx <- []byte(s)
}

func (p *fakePort) Read(b []byte) (int, error) {
	if len(p.pending) == 0 {
		select {
		case chunk := <-p.rx:
			p.pending = chunk
		case <-p.closed:
			return 0, io.EOF
		}
	}
	n := copy(b, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	data := p.partial + string(b)
	lines := strings.Split(data, "\r")
	p.partial = lines[len(lines)-1]
	lines = lines[:len(lines)-1]
	p.written = append(p.written, lines...)
	hook := p.onWrite
	p.mu.Unlock()

	if hook != nil {
		for _, l := range lines {
			hook(l)
		}
	}
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) Written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

func (p *fakePort) HasWritten(line string) bool {
	for _, l := range p.Written() {
		if l == line {
			return true
		}
	}
	return false
}

// recorder is a Requester that keeps every request
type recorder struct {
	mu       sync.Mutex
	requests []fsp.Request
}

func (r *recorder) Enqueue(req fsp.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
}

func (r *recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	lines := make([]string, len(r.requests))
	for i, req := range r.requests {
		lines[i] = fsp.Encode(req)
	}
	return lines
}

// waitFor polls cond until it holds or the deadline passes
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func mustFrame(t *testing.T, line string) *fsp.Frame {
	t.Helper()
	f, err := fsp.NewFrame(line)
	if err != nil {
		t.Fatalf("NewFrame(%q): %v", line, err)
	}
	return f
}
