// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package fsp

import (
	"errors"
	"fmt"
	"strings"
)

// BoardModel identifies an expansion board SKU
type BoardModel uint8

const (
	BoardNeutron   BoardModel = iota // Neutron controller's built-in expansion section
	BoardFPExp0071                   // FP-EXP-0071
	BoardFPExp0081                   // FP-EXP-0081
	BoardFPExp0091                   // FP-EXP-0091
)

var (
	ErrUnknownBoardModel = errors.New("unknown expansion board model")
	ErrBoardHasNoJumpers = errors.New("expansion board has no address jumpers")
)

// addressTable maps (model, jumper0, jumper1) to the board's bus address.
// Values are from the FAST expansion board documentation. Each jumpered
// family occupies four consecutive codes: 00, 10, 01, 11.
var addressTable = map[BoardModel][2][2]string{
	BoardNeutron: {
		{"48", "48"},
		{"48", "48"},
	},
	BoardFPExp0071: {
		{"B4", "B6"}, // jumper0 off: jumper1 off, jumper1 on
		{"B5", "B7"}, // jumper0 on
	},
	BoardFPExp0081: {
		{"84", "86"},
		{"85", "87"},
	},
	BoardFPExp0091: {
		{"88", "8A"},
		{"89", "8B"},
	},
}

var boardModelNames = map[BoardModel]string{
	BoardNeutron:   "neutron",
	BoardFPExp0071: "fp-exp-0071",
	BoardFPExp0081: "fp-exp-0081",
	BoardFPExp0091: "fp-exp-0091",
}

// String returns the lowercase model name used in configuration files
func (m BoardModel) String() string {
	if name, ok := boardModelNames[m]; ok {
		return name
	}
	return fmt.Sprintf("BoardModel(%d)", uint8(m))
}

// HasJumpers reports whether the model's address is selected by jumpers
func (m BoardModel) HasJumpers() bool {
	return m != BoardNeutron
}

// ParseBoardModel parses a model name such as "fp-exp-0081" or "FP-EXP-0081"
func ParseBoardModel(s string) (BoardModel, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for model, n := range boardModelNames {
		if n == name {
			return model, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBoardModel, s)
}

// ExpansionBoard identifies one physical board on the EXP bus.
// The zero value is the Neutron's built-in expansion board.
type ExpansionBoard struct {
	Model   BoardModel
	Jumper0 bool
	Jumper1 bool
}

// NewExpansionBoard validates a model and jumper combination
func NewExpansionBoard(model BoardModel, jumper0, jumper1 bool) (ExpansionBoard, error) {
	if _, ok := addressTable[model]; !ok {
		return ExpansionBoard{}, fmt.Errorf("%w: %d", ErrUnknownBoardModel, uint8(model))
	}
	if !model.HasJumpers() && (jumper0 || jumper1) {
		return ExpansionBoard{}, fmt.Errorf("%w: %s", ErrBoardHasNoJumpers, model)
	}
	return ExpansionBoard{Model: model, Jumper0: jumper0, Jumper1: jumper1}, nil
}

// Address returns the board's two-character uppercase hex bus address.
// Returns "" for a model outside the table, which NewExpansionBoard rejects.
func (b ExpansionBoard) Address() string {
	codes, ok := addressTable[b.Model]
	if !ok {
		return ""
	}
	return codes[boolIndex(b.Jumper0)][boolIndex(b.Jumper1)]
}

// String implements fmt.Stringer
func (b ExpansionBoard) String() string {
	if !b.Model.HasJumpers() {
		return fmt.Sprintf("%s@%s", b.Model, b.Address())
	}
	return fmt.Sprintf("%s[j0=%t,j1=%t]@%s", b.Model, b.Jumper0, b.Jumper1, b.Address())
}

// AllExpansionBoards enumerates every valid board/jumper combination
func AllExpansionBoards() []ExpansionBoard {
	boards := []ExpansionBoard{{Model: BoardNeutron}}
	for _, model := range []BoardModel{BoardFPExp0071, BoardFPExp0081, BoardFPExp0091} {
		for _, j1 := range []bool{false, true} {
			for _, j0 := range []bool{false, true} {
				boards = append(boards, ExpansionBoard{Model: model, Jumper0: j0, Jumper1: j1})
			}
		}
	}
	return boards
}

// LedPortAddress returns the EXP address of one LED port on a board:
// the board address followed by the port number as a hex digit.
func LedPortAddress(board ExpansionBoard, port uint8) string {
	return fmt.Sprintf("%s%X", board.Address(), port&0x0F)
}

func boolIndex(b bool) int {
	if b {
		return 1
	}
	return 0
}
