// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records bus traffic to a CBOR stream and reads it back.
//
// A capture file is a CBOR header map followed by one record per line, each
// encoded as the array [unix_nanos, bus, direction, line].
package capture

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fast"
	"github.com/Thermoquad/pinbus/pkg/fsp"
	"github.com/fxamacker/cbor/v2"
)

const (
	// Magic identifies a capture stream
	Magic = "pinbus-capture"
	// Version is the current record layout
	Version = 1
)

var (
	ErrNotCapture         = errors.New("not a capture stream")
	ErrUnsupportedVersion = errors.New("unsupported capture version")
	ErrCorruptRecord      = errors.New("corrupt capture record")
)

// Header opens every capture stream
type Header struct {
	Magic   string `cbor:"magic"`
	Version int    `cbor:"version"`
	Started int64  `cbor:"started"`
}

// Record is one line seen on a bus
type Record struct {
	_         struct{} `cbor:",toarray"`
	Time      int64
	Bus       fsp.Bus
	Direction fast.Direction
	Line      string
}

// Timestamp returns the record time
func (r Record) Timestamp() time.Time {
	return time.Unix(0, r.Time)
}

// Writer appends records to a stream. It implements fast.Observer and is
// safe for concurrent use by both transports.
type Writer struct {
	mu      sync.Mutex
	enc     *cbor.Encoder
	count   uint64
	lastErr error
}

// NewWriter writes the header and returns a writer
func NewWriter(w io.Writer) (*Writer, error) {
	enc := cbor.NewEncoder(w)
	h := Header{Magic: Magic, Version: Version, Started: time.Now().UnixNano()}
	if err := enc.Encode(h); err != nil {
		return nil, fmt.Errorf("failed to write capture header: %w", err)
	}
	return &Writer{enc: enc}, nil
}

// Write appends one record
func (w *Writer) Write(rec Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(rec); err != nil {
		w.lastErr = err
		return fmt.Errorf("failed to write capture record: %w", err)
	}
	w.count++
	return nil
}

// Observe implements fast.Observer. Write failures are kept for Err.
func (w *Writer) Observe(bus fsp.Bus, dir fast.Direction, line string, at time.Time) {
	_ = w.Write(Record{Time: at.UnixNano(), Bus: bus, Direction: dir, Line: line})
}

// Count returns the number of records written
func (w *Writer) Count() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Err returns the most recent write error
func (w *Writer) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Reader reads records from a capture stream
type Reader struct {
	dec    *cbor.Decoder
	header Header
}

// NewReader validates the header
func NewReader(r io.Reader) (*Reader, error) {
	dec := cbor.NewDecoder(r)
	var h Header
	if err := dec.Decode(&h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCapture, err)
	}
	if h.Magic != Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrNotCapture, h.Magic)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return &Reader{dec: dec, header: h}, nil
}

// Header returns the stream header
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next record, or io.EOF at the end of the stream
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to read capture record: %w", err)
	}
	if rec.Bus != fsp.BusIO && rec.Bus != fsp.BusExp {
		return Record{}, fmt.Errorf("%w: bus %d", ErrCorruptRecord, rec.Bus)
	}
	if rec.Direction != fast.DirectionRX && rec.Direction != fast.DirectionTX {
		return Record{}, fmt.Errorf("%w: direction %d", ErrCorruptRecord, rec.Direction)
	}
	return rec, nil
}

// Each calls fn for every remaining record, stopping at the first error
func (r *Reader) Each(fn func(Record) error) error {
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
