// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// Pinbus - FAST Pinball serial protocol host
//
// Boots FAST controllers, keeps the watchdog fed, drives expansion board
// LEDs and records or analyzes bus traffic.

package main

import (
	"os"

	"github.com/Thermoquad/pinbus/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
