// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsp

import "fmt"

// FormatFrame formats a frame into a human-readable line
func FormatFrame(f *Frame) string {
	timestamp := f.timestamp.Format("15:04:05.000")
	return fmt.Sprintf("[%s] %s (%s) %s\n", timestamp, ResponseName(f.response), f.Command(), FormatResponse(f.response))
}

// CommandName returns the human-readable name for a command mnemonic
func CommandName(cmd string) string {
	switch cmd {
	case CmdID:
		return "IDENTITY"
	case CmdNodeID:
		return "NODE_ID"
	case CmdNodeInfo:
		return "NODE_INFO"
	case CmdConfigHardware:
		return "CONFIGURE_HARDWARE"
	case CmdWatchdog:
		return "WATCHDOG"
	case CmdSwitchAll:
		return "SWITCH_STATE_ALL"
	case CmdSwitchClosed:
		return "SWITCH_CLOSED"
	case CmdSwitchOpened:
		return "SWITCH_OPENED"
	case CmdLedSetAll:
		return "LED_SET_ALL"
	case CmdLedFadeRate:
		return "LED_FADE_RATE"
	case CmdLedSet:
		return "LED_SET"
	default:
		return "UNKNOWN"
	}
}

// ResponseName returns the human-readable name for a parsed response
func ResponseName(r Response) string {
	switch r.(type) {
	case Identity:
		return "IDENTITY"
	case IdentityFailed:
		return "IDENTITY_FAILED"
	case NodeID:
		return "NODE_ID"
	case NodeInfo:
		return "NODE_INFO"
	case HardwareConfigValid:
		return "CONFIG_ACCEPTED"
	case HardwareConfigInvalid:
		return "CONFIG_REJECTED"
	case HardwareConfig:
		return "HARDWARE_CONFIG"
	case WatchdogValid:
		return "WATCHDOG_ACCEPTED"
	case WatchdogInvalid:
		return "WATCHDOG_REJECTED"
	case WatchdogStatus:
		return "WATCHDOG_STATUS"
	case SwitchClosed:
		return "SWITCH_CLOSED"
	case SwitchOpened:
		return "SWITCH_OPENED"
	default:
		return "UNKNOWN"
	}
}

// FormatResponse renders a response's fields
func FormatResponse(r Response) string {
	switch v := r.(type) {
	case Identity:
		return fmt.Sprintf("identity=%q", v.Identity)
	case NodeID:
		return fmt.Sprintf("node=%d serial=%s", v.ID, v.Serial)
	case NodeInfo:
		return fmt.Sprintf("node=%d name=%q firmware=%s drivers=%d switches=%d",
			v.ID, v.Name, v.Firmware, v.DriverCount, v.SwitchCount)
	case HardwareConfig:
		return fmt.Sprintf("system=%s flags=%s", v.System, v.Flags)
	case WatchdogStatus:
		return fmt.Sprintf("remaining=%s", v.Remaining)
	case SwitchClosed:
		return fmt.Sprintf("switch=%s", v.ID)
	case SwitchOpened:
		return fmt.Sprintf("switch=%s", v.ID)
	case Unknown:
		if v.Address != "" {
			return fmt.Sprintf("address=%s data=%q", v.Address, v.Data)
		}
		return fmt.Sprintf("data=%q", v.Data)
	default:
		return ""
	}
}

// FormatRequest renders a request for logs: its name and wire text
func FormatRequest(r Request) string {
	return fmt.Sprintf("%s [%s] %s", CommandName(r.Command()), r.Bus(), Encode(r))
}
