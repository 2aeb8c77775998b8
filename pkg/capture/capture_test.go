// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fast"
	"github.com/Thermoquad/pinbus/pkg/fsp"
	"github.com/fxamacker/cbor/v2"
)

var _ fast.Observer = (*Writer)(nil)

func TestWriterReader(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	at := time.Unix(1700000000, 123456789)
	w.Observe(fsp.BusIO, fast.DirectionTX, "ID:", at)
	w.Observe(fsp.BusIO, fast.DirectionRX, "ID:NET 12345", at.Add(time.Millisecond))
	w.Observe(fsp.BusExp, fast.DirectionTX, "RS@480:00ff0000", at.Add(2*time.Millisecond))

	if w.Count() != 3 {
		t.Errorf("Count = %d, expected 3", w.Count())
	}
	if w.Err() != nil {
		t.Errorf("Unexpected write error: %v", w.Err())
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.Header().Version != Version {
		t.Errorf("Header version = %d", r.Header().Version)
	}

	var got []Record
	if err := r.Each(func(rec Record) error {
		got = append(got, rec)
		return nil
	}); err != nil {
		t.Fatalf("Each: %v", err)
	}

	if len(got) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(got))
	}
	if got[1].Line != "ID:NET 12345" || got[1].Bus != fsp.BusIO || got[1].Direction != fast.DirectionRX {
		t.Errorf("Unexpected record %+v", got[1])
	}
	if got[2].Bus != fsp.BusExp {
		t.Errorf("Third record should be on the EXP bus: %+v", got[2])
	}
	if !got[0].Timestamp().Equal(at) {
		t.Errorf("Timestamp = %s, expected %s", got[0].Timestamp(), at)
	}
}

func TestReader_EmptyAfterHeader(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewWriter(&buf); err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestReader_RejectsForeignStreams(t *testing.T) {
	tests := []struct {
		name string
		data func() []byte
		want error
	}{
		{
			"Empty",
			func() []byte { return nil },
			ErrNotCapture,
		},
		{
			"WrongMagic",
			func() []byte {
				b, _ := cbor.Marshal(Header{Magic: "fusain", Version: Version})
				return b
			},
			ErrNotCapture,
		},
		{
			"FutureVersion",
			func() []byte {
				b, _ := cbor.Marshal(Header{Magic: Magic, Version: Version + 1})
				return b
			},
			ErrUnsupportedVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewReader(bytes.NewReader(tt.data())); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestReader_EachStopsOnError(t *testing.T) {
	var buf bytes.Buffer
	w, _ := NewWriter(&buf)
	for i := 0; i < 5; i++ {
		w.Observe(fsp.BusIO, fast.DirectionRX, "-L:01", time.Now())
	}

	r, _ := NewReader(&buf)
	stop := errors.New("stop")
	seen := 0
	err := r.Each(func(Record) error {
		seen++
		if seen == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || seen != 2 {
		t.Errorf("Each should stop at the callback error, got %v after %d", err, seen)
	}
}

func TestReader_RejectsCorruptRecords(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"UnknownBus", Record{Bus: fsp.Bus(7), Direction: fast.DirectionRX, Line: "ID:X"}},
		{"UnknownDirection", Record{Bus: fsp.BusExp, Direction: fast.Direction(9), Line: "ID:X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf)
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}
			w.Observe(fsp.BusIO, fast.DirectionRX, "WD:P", time.Now())
			if err := w.Write(tt.rec); err != nil {
				t.Fatalf("Write: %v", err)
			}

			r, err := NewReader(&buf)
			if err != nil {
				t.Fatalf("NewReader: %v", err)
			}
			if _, err := r.Next(); err != nil {
				t.Fatalf("First record should be valid: %v", err)
			}
			if _, err := r.Next(); !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("Expected ErrCorruptRecord, got %v", err)
			}
		})
	}
}
