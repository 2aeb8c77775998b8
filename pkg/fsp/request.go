// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsp

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bus identifies which serial link a message travels on
type Bus uint8

const (
	BusIO Bus = iota
	BusExp
)

func (b Bus) String() string {
	switch b {
	case BusIO:
		return "io"
	case BusExp:
		return "exp"
	default:
		return fmt.Sprintf("Bus(%d)", uint8(b))
	}
}

// Request is an outgoing FSP command. The set of implementations is closed.
type Request interface {
	// Command returns the two-character command mnemonic
	Command() string
	// Bus returns the link this request must be written to
	Bus() Bus
	encode(sb *strings.Builder)
}

// Encode renders a request in wire format without the line terminator
func Encode(r Request) string {
	var sb strings.Builder
	r.encode(&sb)
	return sb.String()
}

func writeHeader(sb *strings.Builder, cmd, address string) {
	sb.WriteString(cmd)
	if address != "" {
		sb.WriteByte(AddressSep)
		sb.WriteString(address)
	}
	sb.WriteByte(CommandSep)
}

func writeHex2(sb *strings.Builder, v uint8) {
	const digits = "0123456789abcdef"
	sb.WriteByte(digits[v>>4])
	sb.WriteByte(digits[v&0x0F])
}

//////////////////////////////////////////////////////////////
// I/O bus requests
//////////////////////////////////////////////////////////////

// GetIdentity asks the I/O controller for its identity string (ID:)
type GetIdentity struct{}

func (GetIdentity) Command() string { return CmdID }
func (GetIdentity) Bus() Bus        { return BusIO }
func (GetIdentity) encode(sb *strings.Builder) {
	writeHeader(sb, CmdID, "")
}

// GetNodeID asks for the node id and serial (NI:)
type GetNodeID struct{}

func (GetNodeID) Command() string { return CmdNodeID }
func (GetNodeID) Bus() Bus        { return BusIO }
func (GetNodeID) encode(sb *strings.Builder) {
	writeHeader(sb, CmdNodeID, "")
}

// GetNodeInfo asks for node name, firmware and port counts (NN:)
type GetNodeInfo struct{}

func (GetNodeInfo) Command() string { return CmdNodeInfo }
func (GetNodeInfo) Bus() Bus        { return BusIO }
func (GetNodeInfo) encode(sb *strings.Builder) {
	writeHeader(sb, CmdNodeInfo, "")
}

// ConfigureHardware tells the controller which platform it is driving and
// how switch changes are reported (CH:<platform>,<mode>)
type ConfigureHardware struct {
	Platform        Platform
	SwitchReporting SwitchReporting
}

func (ConfigureHardware) Command() string { return CmdConfigHardware }
func (ConfigureHardware) Bus() Bus        { return BusIO }
func (c ConfigureHardware) encode(sb *strings.Builder) {
	writeHeader(sb, CmdConfigHardware, "")
	sb.WriteString(c.Platform.Code())
	sb.WriteByte(ArgSep)
	sb.WriteString(c.SwitchReporting.Code())
}

// Watchdog resets the firmware watchdog and arms it for Timeout (WD:<ms>)
type Watchdog struct {
	Timeout time.Duration
}

func (Watchdog) Command() string { return CmdWatchdog }
func (Watchdog) Bus() Bus        { return BusIO }
func (w Watchdog) encode(sb *strings.Builder) {
	writeHeader(sb, CmdWatchdog, "")
	sb.WriteString(strconv.FormatInt(w.Timeout.Milliseconds(), 10))
}

// GetAllSwitchState requests the state of every switch (SA:)
type GetAllSwitchState struct{}

func (GetAllSwitchState) Command() string { return CmdSwitchAll }
func (GetAllSwitchState) Bus() Bus        { return BusIO }
func (GetAllSwitchState) encode(sb *strings.Builder) {
	writeHeader(sb, CmdSwitchAll, "")
}

//////////////////////////////////////////////////////////////
// Expansion bus requests
//////////////////////////////////////////////////////////////

// GetExpansionID asks an expansion board for its identity (ID@aa:)
type GetExpansionID struct {
	Address string
}

func (GetExpansionID) Command() string { return CmdID }
func (GetExpansionID) Bus() Bus        { return BusExp }
func (g GetExpansionID) encode(sb *strings.Builder) {
	writeHeader(sb, CmdID, g.Address)
}

// ClearAllLeds turns off every LED at Address (RA@aa:0)
type ClearAllLeds struct {
	Address string
}

func (ClearAllLeds) Command() string { return CmdLedSetAll }
func (ClearAllLeds) Bus() Bus        { return BusExp }
func (c ClearAllLeds) encode(sb *strings.Builder) {
	writeHeader(sb, CmdLedSetAll, c.Address)
	sb.WriteByte('0')
}

// SetAllLeds sets every LED at Address to one color (RA@aa:rrggbb)
type SetAllLeds struct {
	Address string
	R, G, B uint8
}

func (SetAllLeds) Command() string { return CmdLedSetAll }
func (SetAllLeds) Bus() Bus        { return BusExp }
func (s SetAllLeds) encode(sb *strings.Builder) {
	writeHeader(sb, CmdLedSetAll, s.Address)
	writeHex2(sb, s.R)
	writeHex2(sb, s.G)
	writeHex2(sb, s.B)
}

// SetFadeRate sets the hardware fade time in milliseconds (RF@aa:<hex>)
type SetFadeRate struct {
	Address string
	Rate    uint16
}

func (SetFadeRate) Command() string { return CmdLedFadeRate }
func (SetFadeRate) Bus() Bus        { return BusExp }
func (s SetFadeRate) encode(sb *strings.Builder) {
	writeHeader(sb, CmdLedFadeRate, s.Address)
	fmt.Fprintf(sb, "%02x", s.Rate)
}

// LedState is one LED's color, indexed within its port
type LedState struct {
	Index   uint8
	R, G, B uint8
}

// SetLeds sets individual LEDs at Address (RS@aa:iirrggbb,iirrggbb,...)
type SetLeds struct {
	Address string
	States  []LedState
}

func (SetLeds) Command() string { return CmdLedSet }
func (SetLeds) Bus() Bus        { return BusExp }
func (s SetLeds) encode(sb *strings.Builder) {
	writeHeader(sb, CmdLedSet, s.Address)
	for i, st := range s.States {
		if i > 0 {
			sb.WriteByte(ArgSep)
		}
		writeHex2(sb, st.Index)
		writeHex2(sb, st.R)
		writeHex2(sb, st.G)
		writeHex2(sb, st.B)
	}
}
