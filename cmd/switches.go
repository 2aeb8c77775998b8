// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/pinbus/pkg/fast"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var switchesCmd = &cobra.Command{
	Use:   "switches",
	Short: "Print the switch and coil id table",
	Long: `Print the hex id the controller uses for every named switch and coil in
the configured io_boards, in loop order.

Ids run sequentially along the I/O loop. Each board starts after every port
of the boards before it, whether or not those ports are named.`,
	RunE: runSwitches,
}

func init() {
	rootCmd.AddCommand(switchesCmd)
}

func runSwitches(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	boards, err := cfg.IoBoardLayout()
	if err != nil {
		return err
	}
	if len(boards) == 0 {
		fmt.Println("No io_boards configured")
		return nil
	}

	rows, err := switchTableRows(boards)
	if err != nil {
		return err
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("BOARD", "KIND", "PORT", "ID", "NAME").
		Rows(rows...)

	fmt.Println(t)
	return nil
}

// switchTableRows lists every named switch then coil, board by board
func switchTableRows(boards []fast.IoBoard) ([][]string, error) {
	m, err := fast.NewSwitchMap(boards)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for i, b := range boards {
		board := fmt.Sprintf("%d %s", i, b.Model)
		for port, name := range b.Switches {
			if id, ok := m.SwitchID(name); ok && name != "" {
				rows = append(rows, []string{board, "switch", fmt.Sprintf("%d", port), id, name})
			}
		}
		for port, name := range b.Coils {
			if id, ok := m.CoilID(name); ok && name != "" {
				rows = append(rows, []string{board, "coil", fmt.Sprintf("%d", port), id, name})
			}
		}
	}
	return rows, nil
}
