// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsp

import "time"

// Response is a parsed incoming FSP line. The set of implementations is
// closed; every implementation is a comparable value type.
type Response interface {
	// Command returns the command mnemonic the response was parsed from
	Command() string
	response()
}

// Identity is a successful ID reply, verbatim including embedded spaces
type Identity struct {
	Identity string
}

// IdentityFailed is "ID:F"
type IdentityFailed struct{}

// NodeID is an NI reply
type NodeID struct {
	ID     uint8
	Serial string
}

// NodeInfo is an NN reply. Name has its padding trimmed.
type NodeInfo struct {
	ID          uint8
	Name        string
	Firmware    string
	DriverCount uint16
	SwitchCount uint16
}

// HardwareConfigValid is "CH:P"
type HardwareConfigValid struct{}

// HardwareConfigInvalid is "CH:X" or "CH:F"
type HardwareConfigInvalid struct{}

// HardwareConfig reports the currently configured system and flags
type HardwareConfig struct {
	System string
	Flags  string
}

// WatchdogValid is "WD:P"
type WatchdogValid struct{}

// WatchdogInvalid is "WD:X" or "WD:F"
type WatchdogInvalid struct{}

// WatchdogStatus reports the time left before the watchdog expires
type WatchdogStatus struct {
	Remaining time.Duration
}

// SwitchClosed is "-L:<id>"
type SwitchClosed struct {
	ID string
}

// SwitchOpened is "/L:<id>"
type SwitchOpened struct {
	ID string
}

// Unknown is any command this package does not model. Address and Data are
// empty when absent from the line.
type Unknown struct {
	Cmd     string
	Address string
	Data    string
}

func (Identity) Command() string              { return CmdID }
func (IdentityFailed) Command() string        { return CmdID }
func (NodeID) Command() string                { return CmdNodeID }
func (NodeInfo) Command() string              { return CmdNodeInfo }
func (HardwareConfigValid) Command() string   { return CmdConfigHardware }
func (HardwareConfigInvalid) Command() string { return CmdConfigHardware }
func (HardwareConfig) Command() string        { return CmdConfigHardware }
func (WatchdogValid) Command() string         { return CmdWatchdog }
func (WatchdogInvalid) Command() string       { return CmdWatchdog }
func (WatchdogStatus) Command() string        { return CmdWatchdog }
func (SwitchClosed) Command() string          { return CmdSwitchClosed }
func (SwitchOpened) Command() string          { return CmdSwitchOpened }
func (u Unknown) Command() string             { return u.Cmd }

func (Identity) response()              {}
func (IdentityFailed) response()        {}
func (NodeID) response()                {}
func (NodeInfo) response()              {}
func (HardwareConfigValid) response()   {}
func (HardwareConfigInvalid) response() {}
func (HardwareConfig) response()        {}
func (WatchdogValid) response()         {}
func (WatchdogInvalid) response()       {}
func (WatchdogStatus) response()        {}
func (SwitchClosed) response()          {}
func (SwitchOpened) response()          {}
func (Unknown) response()               {}
