// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package fsp implements the FAST Pinball serial protocol (FSP) codec.
//
// FSP is a line-oriented ASCII protocol spoken over two serial links: the
// I/O/Net bus (switches, coils, board identity, watchdog) and the Expansion
// bus (addressable RGB LED drivers). Every message on either bus uses the
// same envelope:
//
//	CMD[@ADDR]:ARG1,ARG2,...\r
//
// This package provides request encoding, response parsing, a byte-stream
// line decoder, address resolution for expansion boards, and formatting
// helpers. It performs no I/O.
package fsp

import "time"

// Framing
const (
	LineTerminator = '\r'
	CommandSep     = ':'
	AddressSep     = '@'
	ArgSep         = ','

	// MaxLineLength bounds a single buffered line. Real responses are well
	// under 100 bytes; anything longer is line noise.
	MaxLineLength = 512
)

// I/O bus commands
const (
	CmdID             = "ID"
	CmdNodeID         = "NI"
	CmdNodeInfo       = "NN"
	CmdConfigHardware = "CH"
	CmdWatchdog       = "WD"
	CmdSwitchAll      = "SA"
	CmdSwitchClosed   = "-L"
	CmdSwitchOpened   = "/L"
)

// Expansion bus commands
const (
	CmdLedSetAll   = "RA"
	CmdLedFadeRate = "RF"
	CmdLedSet      = "RS"
)

// Status arguments shared by CH and WD responses
const (
	StatusPass    = "P"
	StatusFail    = "F"
	StatusInvalid = "X"
)

// Serial defaults
const (
	DefaultBaudRate = 921600
)

// Timing defaults
const (
	DefaultWatchdogTimeout  = 750 * time.Millisecond
	DefaultWatchdogInterval = 500 * time.Millisecond
	DefaultResponseTimeout  = 100 * time.Millisecond
	DefaultTickInterval     = 1 * time.Millisecond
	DefaultConnectBackoff   = 300 * time.Millisecond
)
