// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingCommand is returned for a line without a ':' separator
	ErrMissingCommand = errors.New("invalid message syntax: missing command")
	// ErrMissingArgument is returned when a modeled response lacks a required field
	ErrMissingArgument = errors.New("missing argument")
	// ErrInvalidNumber is returned when a numeric field does not parse
	ErrInvalidNumber = errors.New("invalid number")
)

// ParseError describes a line that could not be parsed
type ParseError struct {
	Line    string
	Command string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Command == "" {
		return fmt.Sprintf("parse %q: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse %q: %s: %v", e.Line, e.Command, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseLine converts one response line into a Response. A trailing '\r'
// or '\n' is ignored. Unmodeled commands produce Unknown, not an error.
func ParseLine(line string) (Response, error) {
	trimmed := strings.TrimRight(line, "\r\n")

	head, rest, ok := strings.Cut(trimmed, string(CommandSep))
	if !ok {
		return nil, &ParseError{Line: trimmed, Err: ErrMissingCommand}
	}

	cmd, address, _ := strings.Cut(head, string(AddressSep))
	args := splitArgs(rest)

	fail := func(err error) (Response, error) {
		return nil, &ParseError{Line: trimmed, Command: cmd, Err: err}
	}

	switch cmd {
	case CmdID:
		if len(args) < 1 {
			return fail(ErrMissingArgument)
		}
		if args[0] == StatusFail {
			return IdentityFailed{}, nil
		}
		return Identity{Identity: args[0]}, nil

	case CmdNodeID:
		if len(args) < 2 {
			return fail(ErrMissingArgument)
		}
		id, err := parseDecimal(args[0], 8)
		if err != nil {
			return fail(err)
		}
		return NodeID{ID: uint8(id), Serial: args[1]}, nil

	case CmdNodeInfo:
		if len(args) < 5 {
			return fail(ErrMissingArgument)
		}
		id, err := parseDecimal(args[0], 8)
		if err != nil {
			return fail(err)
		}
		drivers, err := parseDecimal(args[3], 16)
		if err != nil {
			return fail(err)
		}
		switches, err := parseDecimal(args[4], 16)
		if err != nil {
			return fail(err)
		}
		return NodeInfo{
			ID:          uint8(id),
			Name:        strings.TrimSpace(args[1]),
			Firmware:    args[2],
			DriverCount: uint16(drivers),
			SwitchCount: uint16(switches),
		}, nil

	case CmdWatchdog:
		if len(args) < 1 {
			return fail(ErrMissingArgument)
		}
		switch args[0] {
		case StatusPass:
			return WatchdogValid{}, nil
		case StatusInvalid, StatusFail:
			return WatchdogInvalid{}, nil
		}
		ms, err := strconv.ParseUint(args[0], 16, 32)
		if err != nil {
			return fail(fmt.Errorf("%w: %q", ErrInvalidNumber, args[0]))
		}
		return WatchdogStatus{Remaining: time.Duration(ms) * time.Millisecond}, nil

	case CmdConfigHardware:
		if len(args) < 1 {
			return fail(ErrMissingArgument)
		}
		switch args[0] {
		case StatusPass:
			return HardwareConfigValid{}, nil
		case StatusInvalid, StatusFail:
			return HardwareConfigInvalid{}, nil
		}
		if len(args) < 2 {
			return fail(ErrMissingArgument)
		}
		return HardwareConfig{System: args[0], Flags: args[1]}, nil

	case CmdSwitchClosed:
		if len(args) < 1 {
			return fail(ErrMissingArgument)
		}
		return SwitchClosed{ID: args[0]}, nil

	case CmdSwitchOpened:
		if len(args) < 1 {
			return fail(ErrMissingArgument)
		}
		return SwitchOpened{ID: args[0]}, nil

	default:
		return Unknown{Cmd: cmd, Address: address, Data: rest}, nil
	}
}

// splitArgs splits everything after ':' on ','; "" yields no arguments
func splitArgs(all string) []string {
	if all == "" {
		return nil
	}
	return strings.Split(all, string(ArgSep))
}

func parseDecimal(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, s)
	}
	return v, nil
}
