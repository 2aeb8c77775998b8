// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/pinbus/pkg/fsp"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var addressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "Print the expansion board address table",
	Long: `Print the EXP bus address for every expansion board model and jumper setting.

LED ports are addressed by appending the port number as a single hex digit to
the board address, so port 2 of a board at 89 is 892.`,
	RunE: runAddresses,
}

func init() {
	rootCmd.AddCommand(addressesCmd)
}

func runAddresses(cmd *cobra.Command, args []string) error {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := [][]string{}
	for _, b := range fsp.AllExpansionBoards() {
		j0, j1 := "-", "-"
		if b.Model.HasJumpers() {
			j0, j1 = jumper(b.Jumper0), jumper(b.Jumper1)
		}
		rows = append(rows, []string{
			b.Model.String(), j0, j1, b.Address(),
			fsp.LedPortAddress(b, 0) + "-" + fsp.LedPortAddress(b, 0x0F),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("MODEL", "J0", "J1", "ADDRESS", "LED PORTS").
		Rows(rows...)

	fmt.Println(t)
	return nil
}

func jumper(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
