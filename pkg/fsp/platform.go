// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsp

import (
	"errors"
	"fmt"
	"strings"
)

// Platform selects the hardware personality configured with CH
type Platform uint8

const (
	PlatformNeutron  Platform = iota // FAST Neutron (modern)
	PlatformSystem11                 // Retro: Williams System 11
	PlatformWPC89                    // Retro: WPC-89
	PlatformWPC95                    // Retro: WPC-95
	PlatformNano                     // Legacy Nano controller, no CH command
)

// SwitchReporting selects how the controller reports switch changes
type SwitchReporting uint8

const (
	ReportingRead    SwitchReporting = iota // switches must be polled
	ReportingVerbose                        // changes are pushed as -L / /L
)

var (
	ErrUnknownPlatform        = errors.New("unknown platform")
	ErrUnknownSwitchReporting = errors.New("unknown switch reporting mode")
)

var platformInfo = map[Platform]struct {
	name string
	code string
}{
	PlatformNeutron:  {"neutron", "2000"},
	PlatformSystem11: {"system11", "0011"},
	PlatformWPC89:    {"wpc89", "0089"},
	PlatformWPC95:    {"wpc95", "0095"},
	PlatformNano:     {"nano", ""},
}

// Code returns the CH platform literal ("" for platforms without CH)
func (p Platform) Code() string {
	return platformInfo[p].code
}

// NeedsConfiguration reports whether boot must send CH for this platform
func (p Platform) NeedsConfiguration() bool {
	return p.Code() != ""
}

func (p Platform) String() string {
	if info, ok := platformInfo[p]; ok {
		return info.name
	}
	return fmt.Sprintf("Platform(%d)", uint8(p))
}

// ParsePlatform parses a platform name or its CH code
func ParsePlatform(s string) (Platform, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for p, info := range platformInfo {
		if v == info.name || (info.code != "" && v == info.code) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPlatform, s)
}

// Code returns the two-digit CH reporting argument
func (r SwitchReporting) Code() string {
	if r == ReportingVerbose {
		return "01"
	}
	return "00"
}

func (r SwitchReporting) String() string {
	switch r {
	case ReportingRead:
		return "read"
	case ReportingVerbose:
		return "verbose"
	default:
		return fmt.Sprintf("SwitchReporting(%d)", uint8(r))
	}
}

// ParseSwitchReporting parses "read"/"verbose" or the codes "00"/"01"
func ParseSwitchReporting(s string) (SwitchReporting, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read", "00", "0":
		return ReportingRead, nil
	case "verbose", "01", "1":
		return ReportingVerbose, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSwitchReporting, s)
	}
}
