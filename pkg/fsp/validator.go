// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsp

import (
	"fmt"
	"strconv"
	"time"
)

// AnomalyType represents different kinds of suspicious responses
type AnomalyType int

const (
	AnomalyIdentityFailed AnomalyType = iota
	AnomalyConfigRejected
	AnomalyWatchdogRejected
	AnomalyWatchdogLow
	AnomalyWatchdogExpired
	AnomalyInvalidSwitchID
	AnomalyUnknownCommand
)

// WatchdogLowThreshold is the remaining time below which a watchdog
// status is flagged
const WatchdogLowThreshold = 100 * time.Millisecond

// ValidationError represents a response that is well-formed but suspicious
type ValidationError struct {
	Type    AnomalyType
	Message string
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateResponse inspects a response for anomalies.
// Returns an empty slice when nothing is wrong.
func ValidateResponse(r Response) []ValidationError {
	errors := []ValidationError{}

	switch v := r.(type) {
	case IdentityFailed:
		errors = append(errors, ValidationError{
			Type:    AnomalyIdentityFailed,
			Message: "controller failed to identify",
		})
	case HardwareConfigInvalid:
		errors = append(errors, ValidationError{
			Type:    AnomalyConfigRejected,
			Message: "hardware configuration rejected",
		})
	case WatchdogInvalid:
		errors = append(errors, ValidationError{
			Type:    AnomalyWatchdogRejected,
			Message: "watchdog command rejected",
		})
	case WatchdogStatus:
		errors = append(errors, validateWatchdogStatus(v)...)
	case SwitchClosed:
		errors = append(errors, validateSwitchID(v.ID)...)
	case SwitchOpened:
		errors = append(errors, validateSwitchID(v.ID)...)
	case Unknown:
		errors = append(errors, ValidationError{
			Type:    AnomalyUnknownCommand,
			Message: fmt.Sprintf("unmodeled command %q", v.Cmd),
		})
	}

	return errors
}

func validateWatchdogStatus(s WatchdogStatus) []ValidationError {
	if s.Remaining == 0 {
		return []ValidationError{{
			Type:    AnomalyWatchdogExpired,
			Message: "watchdog expired, drivers disabled",
		}}
	}
	if s.Remaining < WatchdogLowThreshold {
		return []ValidationError{{
			Type:    AnomalyWatchdogLow,
			Message: fmt.Sprintf("watchdog nearly expired: %s remaining", s.Remaining),
		}}
	}
	return nil
}

// Switch ids are hex port numbers
func validateSwitchID(id string) []ValidationError {
	if _, err := strconv.ParseUint(id, 16, 16); err != nil {
		return []ValidationError{{
			Type:    AnomalyInvalidSwitchID,
			Message: fmt.Sprintf("switch id %q is not a hex port number", id),
		}}
	}
	return nil
}
