// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsp

import "time"

// Frame is one decoded line together with its parsed response
type Frame struct {
	line      string
	response  Response
	timestamp time.Time
}

// NewFrame parses line and wraps the result. The returned error is the
// ParseLine error; the frame is nil in that case.
func NewFrame(line string) (*Frame, error) {
	resp, err := ParseLine(line)
	if err != nil {
		return nil, err
	}
	return &Frame{
		line:      line,
		response:  resp,
		timestamp: time.Now(),
	}, nil
}

// Line returns the raw line without its terminator
func (f *Frame) Line() string {
	return f.line
}

// Response returns the parsed response
func (f *Frame) Response() Response {
	return f.response
}

// Command returns the response's command mnemonic
func (f *Frame) Command() string {
	return f.response.Command()
}

// Timestamp returns when the line was completed
func (f *Frame) Timestamp() time.Time {
	return f.timestamp
}
