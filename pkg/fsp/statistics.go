// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsp

import (
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Statistics tracks line statistics and error rates for one bus
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	BytesRead       uint64
	TotalLines      uint64
	ValidLines      uint64
	DecodeErrors    uint64
	SyntaxErrors    uint64
	NumericErrors   uint64
	OverlongLines   uint64
	UnknownCommands uint64
	Anomalies       uint64
	SwitchEvents    uint64
	WatchdogReplies uint64

	// Rates (calculated)
	LineRate  float64 // lines/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// AddBytes records raw bytes received from the port
func (s *Statistics) AddBytes(n int) {
	s.BytesRead += uint64(n)
}

// Update updates statistics based on a frame and its errors
func (s *Statistics) Update(frame *Frame, decodeErr error, validationErrors []ValidationError) {
	s.TotalLines++
	s.LastUpdateTime = time.Now()

	if decodeErr != nil {
		s.DecodeErrors++
		switch {
		case errors.Is(decodeErr, ErrMissingCommand), errors.Is(decodeErr, ErrMissingArgument):
			s.SyntaxErrors++
		case errors.Is(decodeErr, ErrInvalidNumber):
			s.NumericErrors++
		case errors.Is(decodeErr, ErrLineTooLong):
			s.OverlongLines++
		}
		return
	}

	if frame != nil {
		switch frame.Response().(type) {
		case Unknown:
			s.UnknownCommands++
		case SwitchClosed, SwitchOpened:
			s.SwitchEvents++
		case WatchdogValid, WatchdogInvalid, WatchdogStatus:
			s.WatchdogReplies++
		}
	}

	// Unknown commands are flagged by the validator but still valid lines
	anomalies := 0
	for _, v := range validationErrors {
		if v.Type != AnomalyUnknownCommand {
			anomalies++
		}
	}
	if anomalies > 0 {
		s.Anomalies += uint64(anomalies)
		return
	}
	s.ValidLines++
}

// CalculateRates calculates line and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.LineRate = float64(s.TotalLines) / elapsed
		s.ErrorRate = float64(s.DecodeErrors+s.Anomalies) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent, errorPercent float64
	if s.TotalLines > 0 {
		validPercent = float64(s.ValidLines) * 100.0 / float64(s.TotalLines)
		errorPercent = float64(s.DecodeErrors) * 100.0 / float64(s.TotalLines)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Bytes Read:      %8s\n", humanize.Bytes(s.BytesRead))
	result += fmt.Sprintf("Total Lines:     %8d\n", s.TotalLines)
	result += fmt.Sprintf("Valid Lines:     %8d (%.1f%%)\n", s.ValidLines, validPercent)

	if s.DecodeErrors > 0 {
		result += fmt.Sprintf("Decode Errors:   %8d (%.1f%%)\n", s.DecodeErrors, errorPercent)
		if s.SyntaxErrors > 0 {
			result += fmt.Sprintf("  Syntax:           %5d\n", s.SyntaxErrors)
		}
		if s.NumericErrors > 0 {
			result += fmt.Sprintf("  Bad Number:       %5d\n", s.NumericErrors)
		}
		if s.OverlongLines > 0 {
			result += fmt.Sprintf("  Overlong:         %5d\n", s.OverlongLines)
		}
	}
	if s.Anomalies > 0 {
		result += fmt.Sprintf("Anomalies:       %8d\n", s.Anomalies)
	}
	if s.UnknownCommands > 0 {
		result += fmt.Sprintf("Unknown Cmds:    %8d\n", s.UnknownCommands)
	}

	result += fmt.Sprintf("Switch Events:   %8d\n", s.SwitchEvents)
	result += fmt.Sprintf("Watchdog Replies:%8d\n", s.WatchdogReplies)
	result += fmt.Sprintf("Line Rate:       %8.1f lines/sec\n", s.LineRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
