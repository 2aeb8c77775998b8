// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsp

import (
	"errors"
	"fmt"
)

// ErrLineTooLong is returned when a line exceeds MaxLineLength
var ErrLineTooLong = errors.New("line too long")

// Decoder splits a byte stream into lines and parses each one.
// Partial lines are kept across calls until their terminator arrives.
type Decoder struct {
	buffer     []byte
	overflowed bool // discard until the next terminator
}

// NewDecoder creates a new line decoder
func NewDecoder() *Decoder {
	return &Decoder{
		buffer: make([]byte, 0, 64),
	}
}

// Reset discards any partial line
func (d *Decoder) Reset() {
	d.buffer = d.buffer[:0]
	d.overflowed = false
}

// Pending returns the bytes of the incomplete line buffered so far
func (d *Decoder) Pending() []byte {
	return d.buffer
}

// DecodeByte processes a single byte.
// Returns a frame when b completes a line, nil while a line is incomplete,
// or an error when the completed line is malformed or too long.
// Empty lines (such as the '\n' of a "\r\n" pair) are skipped.
func (d *Decoder) DecodeByte(b byte) (*Frame, error) {
	if b != '\r' && b != '\n' {
		if d.overflowed {
			return nil, nil
		}
		if len(d.buffer) >= MaxLineLength {
			d.buffer = d.buffer[:0]
			d.overflowed = true
			return nil, fmt.Errorf("%w: exceeds %d bytes", ErrLineTooLong, MaxLineLength)
		}
		d.buffer = append(d.buffer, b)
		return nil, nil
	}

	if d.overflowed {
		d.overflowed = false
		return nil, nil
	}
	if len(d.buffer) == 0 {
		return nil, nil
	}

	line := string(d.buffer)
	d.buffer = d.buffer[:0]
	return NewFrame(line)
}

// Decode feeds a chunk of bytes through the decoder and returns the frames
// completed by it along with any per-line errors, in stream order.
func (d *Decoder) Decode(data []byte) ([]*Frame, []error) {
	var frames []*Frame
	var errs []error
	for _, b := range data {
		frame, err := d.DecodeByte(b)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if frame != nil {
			frames = append(frames, frame)
		}
	}
	return frames, errs
}
