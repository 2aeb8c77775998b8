// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fast

import (
	"github.com/Thermoquad/pinbus/pkg/metrics"
)

const (
	subSystem = "fast"
)

var (
	// Total number of bytes read per bus
	bytesRead = metrics.MustRegisterCounterVec(subSystem,
		"bytes_read_total",
		"Total number of bytes read per bus",
		"bus")
	// Total number of decoded lines per bus and command
	linesRead = metrics.MustRegisterCounterVec(subSystem,
		"lines_read_total",
		"Total number of decoded lines per bus and command",
		"bus", "command")
	// Total number of lines dropped because they failed to decode
	decodeErrors = metrics.MustRegisterCounterVec(subSystem,
		"decode_errors_total",
		"Total number of lines dropped because they failed to decode",
		"bus")
	// Total number of lines written per bus
	linesWritten = metrics.MustRegisterCounterVec(subSystem,
		"lines_written_total",
		"Total number of lines written per bus",
		"bus")
	// Total number of failed writes per bus
	writeErrors = metrics.MustRegisterCounterVec(subSystem,
		"write_errors_total",
		"Total number of failed writes per bus",
		"bus")
	// Total number of frames dropped because the event buffer was full
	eventsDropped = metrics.MustRegisterCounterVec(subSystem,
		"events_dropped_total",
		"Total number of frames dropped because the event buffer was full",
		"bus")
	// Current write queue depth per bus
	queueDepth = metrics.MustRegisterGaugeVec(subSystem,
		"queue_depth",
		"Current write queue depth per bus",
		"bus")
	// 1 while the controller is booted and serviced
	systemReady = metrics.MustRegisterGauge(subSystem,
		"ready",
		"1 while the controller is booted and serviced")
	// Total number of failed port open attempts per port name
	connectFailures = metrics.MustRegisterCounterVec(subSystem,
		"connect_failures_total",
		"Total number of failed port open attempts",
		"port")
	// Total number of boot attempts per request type
	bootAttempts = metrics.MustRegisterCounterVec(subSystem,
		"boot_attempts_total",
		"Total number of boot handshake requests sent",
		"command")
	// Total number of watchdog pings sent
	watchdogPings = metrics.MustRegisterCounter(subSystem,
		"watchdog_pings_total",
		"Total number of watchdog pings sent")
	// Total number of SetLeds requests emitted per address
	ledBatches = metrics.MustRegisterCounterVec(subSystem,
		"led_batches_total",
		"Total number of SetLeds requests emitted per address",
		"address")
	// Total number of switch events per direction
	switchEvents = metrics.MustRegisterCounterVec(subSystem,
		"switch_events_total",
		"Total number of switch transitions",
		"state")
)
