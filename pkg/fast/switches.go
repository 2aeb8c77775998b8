// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fast

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Thermoquad/pinbus/pkg/fsp"
)

var (
	ErrUnknownIoBoard  = errors.New("unknown I/O board model")
	ErrTooManySwitches = errors.New("more switches than the board supports")
	ErrTooManyCoils    = errors.New("more coils than the board supports")
	ErrDuplicateName   = errors.New("switch and coil names must be unique")
)

// IoBoardModel is a board on the I/O loop
type IoBoardModel uint8

const (
	IoBoard3208 IoBoardModel = iota
	IoBoard1616
	IoBoard0804
	IoBoardCabinet
)

var ioBoardInfo = map[IoBoardModel]struct {
	name     string
	switches int
	coils    int
}{
	IoBoard3208:    {"fp-i/o-3208", 32, 8},
	IoBoard1616:    {"fp-i/o-1616", 16, 16},
	IoBoard0804:    {"fp-i/o-0804", 8, 4},
	IoBoardCabinet: {"fp-cab-0001", 24, 8},
}

func (m IoBoardModel) String() string {
	if info, ok := ioBoardInfo[m]; ok {
		return info.name
	}
	return fmt.Sprintf("IoBoardModel(%d)", uint8(m))
}

// SwitchPorts returns the number of switch inputs on the board
func (m IoBoardModel) SwitchPorts() int {
	return ioBoardInfo[m].switches
}

// CoilPorts returns the number of driver outputs on the board
func (m IoBoardModel) CoilPorts() int {
	return ioBoardInfo[m].coils
}

// ParseIoBoardModel parses a model name such as "FP-I/O-1616"
func ParseIoBoardModel(s string) (IoBoardModel, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for m, info := range ioBoardInfo {
		if v == info.name {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownIoBoard, s)
}

// IoBoard names the switches and coils wired to one board, by port.
// An empty name leaves the port unused.
type IoBoard struct {
	Model    IoBoardModel
	Switches []string
	Coils    []string
}

// SwitchState is the reported position of a switch
type SwitchState uint8

const (
	SwitchOpen SwitchState = iota
	SwitchClosed
)

func (s SwitchState) String() string {
	if s == SwitchClosed {
		return "closed"
	}
	return "open"
}

// SwitchEvent is a switch transition resolved to its configured name.
// Name is empty for switches that are not mapped.
type SwitchEvent struct {
	ID    string
	Name  string
	State SwitchState
	Time  time.Time
}

// SwitchMap assigns hex ids to named switches and coils. Ids are allocated
// sequentially along the loop: each board's ports start after every port of
// the boards before it, used or not.
type SwitchMap struct {
	switchByID   map[uint64]string
	switchByName map[string]string
	coilByName   map[string]string
}

// NewSwitchMap builds the id tables for the boards in loop order
func NewSwitchMap(boards []IoBoard) (*SwitchMap, error) {
	m := &SwitchMap{
		switchByID:   make(map[uint64]string),
		switchByName: make(map[string]string),
		coilByName:   make(map[string]string),
	}

	var switchBase, coilBase uint64
	for i, b := range boards {
		if _, ok := ioBoardInfo[b.Model]; !ok {
			return nil, fmt.Errorf("board %d: %w", i, ErrUnknownIoBoard)
		}
		if len(b.Switches) > b.Model.SwitchPorts() {
			return nil, fmt.Errorf("board %d (%s): %w: %d > %d",
				i, b.Model, ErrTooManySwitches, len(b.Switches), b.Model.SwitchPorts())
		}
		if len(b.Coils) > b.Model.CoilPorts() {
			return nil, fmt.Errorf("board %d (%s): %w: %d > %d",
				i, b.Model, ErrTooManyCoils, len(b.Coils), b.Model.CoilPorts())
		}

		for port, name := range b.Switches {
			if name == "" {
				continue
			}
			if _, dup := m.switchByName[name]; dup {
				return nil, fmt.Errorf("%w: switch %q", ErrDuplicateName, name)
			}
			id := switchBase + uint64(port)
			m.switchByID[id] = name
			m.switchByName[name] = strconv.FormatUint(id, 16)
		}
		for port, name := range b.Coils {
			if name == "" {
				continue
			}
			if _, dup := m.coilByName[name]; dup {
				return nil, fmt.Errorf("%w: coil %q", ErrDuplicateName, name)
			}
			m.coilByName[name] = strconv.FormatUint(coilBase+uint64(port), 16)
		}

		switchBase += uint64(b.Model.SwitchPorts())
		coilBase += uint64(b.Model.CoilPorts())
	}

	return m, nil
}

// SwitchID returns the lowercase hex id of a named switch
func (m *SwitchMap) SwitchID(name string) (string, bool) {
	id, ok := m.switchByName[name]
	return id, ok
}

// CoilID returns the lowercase hex id of a named coil
func (m *SwitchMap) CoilID(name string) (string, bool) {
	id, ok := m.coilByName[name]
	return id, ok
}

// SwitchName resolves a reported switch id. Ids are compared numerically,
// so "0A", "a" and "0a" are the same switch.
func (m *SwitchMap) SwitchName(id string) (string, bool) {
	n, err := strconv.ParseUint(id, 16, 16)
	if err != nil {
		return "", false
	}
	name, ok := m.switchByID[n]
	return name, ok
}

// Resolve turns a switch response into a SwitchEvent. ok is false for any
// other response.
func (m *SwitchMap) Resolve(r fsp.Response, at time.Time) (SwitchEvent, bool) {
	var ev SwitchEvent
	switch v := r.(type) {
	case fsp.SwitchClosed:
		ev = SwitchEvent{ID: v.ID, State: SwitchClosed}
	case fsp.SwitchOpened:
		ev = SwitchEvent{ID: v.ID, State: SwitchOpen}
	default:
		return SwitchEvent{}, false
	}
	ev.Time = at
	if m != nil {
		ev.Name, _ = m.SwitchName(ev.ID)
	}
	return ev, true
}
