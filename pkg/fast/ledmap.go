// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fast

import (
	"errors"
	"fmt"

	"github.com/Thermoquad/pinbus/pkg/fsp"
)

const (
	// MaxLedPorts is the number of LED ports addressable on one board
	MaxLedPorts = 16
	// MaxLedsPerPort is the number of LED indexes addressable on one port
	MaxLedsPerPort = 256
)

var (
	ErrDuplicateLed = errors.New("LED names must be unique")
	ErrUnknownLed   = errors.New("unknown LED")
	ErrTooManyPorts = errors.New("too many LED ports")
	ErrTooManyLeds  = errors.New("too many LEDs on port")
	ErrEmptyLedName = errors.New("empty LED name")
)

// HardwareLed locates one LED on the expansion bus
type HardwareLed struct {
	Board fsp.ExpansionBoard
	Port  uint8
	Index uint8
}

// Address returns the EXP address of the LED's port
func (h HardwareLed) Address() string {
	return fsp.LedPortAddress(h.Board, h.Port)
}

// LedBoard lists the named LEDs wired to one expansion board, one slice of
// names per port in port order
type LedBoard struct {
	Board fsp.ExpansionBoard
	Ports [][]string
}

// LedMap is a fixed name to hardware mapping built once from configuration
type LedMap struct {
	leds  map[string]HardwareLed
	names []string
	ports []string
}

// NewLedMap builds the mapping. Every name must be unique across all boards.
func NewLedMap(boards []LedBoard) (*LedMap, error) {
	m := &LedMap{leds: make(map[string]HardwareLed)}

	for _, b := range boards {
		if len(b.Ports) > MaxLedPorts {
			return nil, fmt.Errorf("%w: %s has %d, max %d", ErrTooManyPorts, b.Board, len(b.Ports), MaxLedPorts)
		}
		for port, names := range b.Ports {
			if len(names) > MaxLedsPerPort {
				return nil, fmt.Errorf("%w: %s port %d has %d, max %d",
					ErrTooManyLeds, b.Board, port, len(names), MaxLedsPerPort)
			}
			led := HardwareLed{Board: b.Board, Port: uint8(port)}
			if len(names) > 0 {
				m.ports = append(m.ports, led.Address())
			}
			for index, name := range names {
				if name == "" {
					return nil, fmt.Errorf("%w: %s port %d index %d", ErrEmptyLedName, b.Board, port, index)
				}
				if _, exists := m.leds[name]; exists {
					return nil, fmt.Errorf("%w: found duplicate for %q", ErrDuplicateLed, name)
				}
				led.Index = uint8(index)
				m.leds[name] = led
				m.names = append(m.names, name)
			}
		}
	}

	return m, nil
}

// Lookup returns the hardware location of a named LED
func (m *LedMap) Lookup(name string) (HardwareLed, bool) {
	led, ok := m.leds[name]
	return led, ok
}

// Names returns LED names in configuration order
func (m *LedMap) Names() []string {
	return append([]string(nil), m.names...)
}

// PortAddresses returns the address of every port with at least one LED
func (m *LedMap) PortAddresses() []string {
	return append([]string(nil), m.ports...)
}

// Len returns the number of mapped LEDs
func (m *LedMap) Len() int {
	return len(m.leds)
}
