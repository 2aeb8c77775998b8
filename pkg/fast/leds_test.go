// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fsp"
	"go.uber.org/zap"
)

func testLedMap(t *testing.T) *LedMap {
	t.Helper()
	m, err := NewLedMap([]LedBoard{
		{
			Board: fsp.ExpansionBoard{Model: fsp.BoardNeutron},
			Ports: [][]string{
				{"left ramp", "right ramp"},
				{"spinner"},
			},
		},
		{
			Board: fsp.ExpansionBoard{Model: fsp.BoardFPExp0091, Jumper0: true},
			Ports: [][]string{
				nil,
				nil,
				{"start button"},
			},
		},
	})
	if err != nil {
		t.Fatalf("NewLedMap: %v", err)
	}
	return m
}

// ============================================================
// LedMap Tests
// ============================================================

func TestLedMap_Lookup(t *testing.T) {
	m := testLedMap(t)

	tests := []struct {
		name    string
		address string
		index   uint8
	}{
		{"left ramp", "480", 0},
		{"right ramp", "480", 1},
		{"spinner", "481", 0},
		{"start button", "892", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			led, ok := m.Lookup(tt.name)
			if !ok {
				t.Fatalf("%q not found", tt.name)
			}
			if led.Address() != tt.address || led.Index != tt.index {
				t.Errorf("Got %s index %d, expected %s index %d", led.Address(), led.Index, tt.address, tt.index)
			}
		})
	}

	if _, ok := m.Lookup("missing"); ok {
		t.Error("Unknown name should not resolve")
	}
	if m.Len() != 4 {
		t.Errorf("Len = %d, expected 4", m.Len())
	}
}

func TestLedMap_PortAddresses(t *testing.T) {
	got := testLedMap(t).PortAddresses()
	expected := []string{"480", "481", "892"}
	if len(got) != len(expected) {
		t.Fatalf("Got %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Port %d = %s, expected %s", i, got[i], expected[i])
		}
	}
}

func TestLedMap_Errors(t *testing.T) {
	neutron := fsp.ExpansionBoard{}
	tests := []struct {
		name   string
		boards []LedBoard
		want   error
	}{
		{
			"DuplicateSamePort",
			[]LedBoard{{Board: neutron, Ports: [][]string{{"a", "a"}}}},
			ErrDuplicateLed,
		},
		{
			"DuplicateAcrossBoards",
			[]LedBoard{
				{Board: neutron, Ports: [][]string{{"a"}}},
				{Board: fsp.ExpansionBoard{Model: fsp.BoardFPExp0071}, Ports: [][]string{{"a"}}},
			},
			ErrDuplicateLed,
		},
		{
			"EmptyName",
			[]LedBoard{{Board: neutron, Ports: [][]string{{""}}}},
			ErrEmptyLedName,
		},
		{
			"TooManyPorts",
			[]LedBoard{{Board: neutron, Ports: make([][]string, MaxLedPorts+1)}},
			ErrTooManyPorts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLedMap(tt.boards); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

// ============================================================
// LedBusWriter Tests
// ============================================================

func TestLedBusWriter_BatchesPerAddress(t *testing.T) {
	out := &recorder{}
	w := NewLedBusWriter(out, nil, 0, zap.NewNop())

	w.Set("480", fsp.LedState{Index: 0, R: 0xff})
	w.Set("B40", fsp.LedState{Index: 1, G: 0xff})
	w.Set("480", fsp.LedState{Index: 2, B: 0xff})

	if n := w.Flush(); n != 2 {
		t.Fatalf("Expected 2 requests, got %d", n)
	}

	expected := []string{
		"RS@480:00ff0000,020000ff",
		"RS@B40:0100ff00",
	}
	got := out.Lines()
	if len(got) != len(expected) {
		t.Fatalf("Got %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Request %d = %q, expected %q", i, got[i], expected[i])
		}
	}
}

func TestLedBusWriter_RepeatedIndexOverwrites(t *testing.T) {
	out := &recorder{}
	w := NewLedBusWriter(out, nil, 0, zap.NewNop())

	w.Set("480", fsp.LedState{Index: 3, R: 1}, fsp.LedState{Index: 4, R: 2})
	w.Set("480", fsp.LedState{Index: 3, R: 9})
	w.Flush()

	got := out.Lines()
	if len(got) != 1 || got[0] != "RS@480:03090000,04020000" {
		t.Errorf("Got %v", got)
	}
}

func TestLedBusWriter_FlushEmpty(t *testing.T) {
	out := &recorder{}
	w := NewLedBusWriter(out, nil, 0, zap.NewNop())

	w.Set("480")
	if n := w.Flush(); n != 0 {
		t.Errorf("Nothing pending should send nothing, sent %d", n)
	}

	w.Set("480", fsp.LedState{Index: 1})
	w.Flush()
	if n := w.Flush(); n != 0 {
		t.Errorf("Second flush should be empty, sent %d", n)
	}
}

func TestLedBusWriter_SetNamed(t *testing.T) {
	out := &recorder{}
	w := NewLedBusWriter(out, testLedMap(t), 0, zap.NewNop())

	if err := w.SetNamed("right ramp", 0x10, 0x20, 0x30); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := w.SetNamed("start button", 0xff, 0xff, 0xff); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := w.SetNamed("nope", 0, 0, 0); !errors.Is(err, ErrUnknownLed) {
		t.Errorf("Expected ErrUnknownLed, got %v", err)
	}
	w.Flush()

	got := out.Lines()
	if len(got) != 2 || got[0] != "RS@480:01102030" || got[1] != "RS@892:00ffffff" {
		t.Errorf("Got %v", got)
	}
}

func TestLedBusWriter_ClearAll(t *testing.T) {
	out := &recorder{}
	w := NewLedBusWriter(out, testLedMap(t), 0, zap.NewNop())

	w.ClearAll()

	got := out.Lines()
	expected := []string{"RA@480:0", "RA@481:0", "RA@892:0"}
	if len(got) != len(expected) {
		t.Fatalf("Got %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Request %d = %q, expected %q", i, got[i], expected[i])
		}
	}
}

func TestLedBusWriter_Run(t *testing.T) {
	out := &recorder{}
	w := NewLedBusWriter(out, nil, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Set("480", fsp.LedState{Index: 0, R: 1})
	waitFor(t, "flush", func() bool { return len(out.Lines()) == 1 })

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
