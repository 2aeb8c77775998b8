// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Thermoquad/pinbus/pkg/config"
	"github.com/Thermoquad/pinbus/pkg/fast"
	"github.com/Thermoquad/pinbus/pkg/fsp"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Event log entry
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// switchRow is the latest known state of one switch
type switchRow struct {
	id      string
	name    string
	state   fast.SwitchState
	changed time.Time
	count   uint64
}

// TUI model
type model struct {
	ioPort   string
	expPort  string
	platform string
	showAll  bool

	ready    bool
	identity string
	bootTime time.Duration
	readyAt  time.Time
	stopErr  error

	ioStats  fsp.Statistics
	expStats fsp.Statistics
	dropped  uint64

	switches    map[string]*switchRow
	switchTable table.Model

	eventLog      []logEntry
	maxLogEntries int

	width    int
	height   int
	quitting bool

	// Refreshes statistics; nil in tests
	sample func() (io, exp fsp.Statistics, dropped uint64)
}

// Messages
type tickMsg time.Time
type readyMsg struct {
	identity string
	elapsed  time.Duration
}
type stoppedMsg struct {
	err error
}
type switchMsg struct {
	event fast.SwitchEvent
}
type frameMsg struct {
	frame *fsp.Frame
}
type logMsg struct {
	line string
}

func initialModel(cfg *config.Config) model {
	columns := []table.Column{
		{Title: "ID", Width: 4},
		{Title: "Name", Width: 24},
		{Title: "State", Width: 7},
		{Title: "Changes", Width: 8},
		{Title: "Last", Width: 14},
	}
	t := table.New(table.WithColumns(columns), table.WithHeight(8))
	t.SetStyles(switchTableStyles())

	return model{
		ioPort:        cfg.IO.Port,
		expPort:       cfg.Exp.Port,
		platform:      cfg.Machine.Platform,
		showAll:       showAll,
		switches:      make(map[string]*switchRow),
		switchTable:   t,
		eventLog:      make([]logEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func switchTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Bold(false)
	return s
}

func (m model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.sample != nil && m.ready {
			m.ioStats, m.expStats, m.dropped = m.sample()
		}
		return m, tickCmd()

	case readyMsg:
		m.ready = true
		m.identity = msg.identity
		m.bootTime = msg.elapsed
		m.readyAt = time.Now()
		m.addLogEntry(fmt.Sprintf("Controller ready: %s", msg.identity), false)

	case stoppedMsg:
		m.stopErr = msg.err
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("STOPPED: %v", msg.err), true)
		}
		if errors.Is(msg.err, fast.ErrConfigRejected) {
			m.quitting = true
			return m, tea.Quit
		}

	case switchMsg:
		m.recordSwitch(msg.event)

	case frameMsg:
		for _, v := range fsp.ValidateResponse(msg.frame.Response()) {
			if v.Type != fsp.AnomalyUnknownCommand {
				m.addLogEntry(fmt.Sprintf("%s: %s", fsp.ResponseName(msg.frame.Response()), v.Message), true)
			}
		}
		if m.showAll {
			m.addLogEntry(strings.TrimSuffix(fsp.FormatFrame(msg.frame), "\n"), false)
		}

	case logMsg:
		line := strings.TrimSpace(msg.line)
		if line != "" {
			m.addLogEntry(line, strings.Contains(line, "ERROR"))
		}
	}

	var cmd tea.Cmd
	m.switchTable, cmd = m.switchTable.Update(msg)
	return m, cmd
}

// fatalErr returns the error the dashboard should exit with, if any
func (m model) fatalErr() error {
	if errors.Is(m.stopErr, fast.ErrConfigRejected) {
		return m.stopErr
	}
	return nil
}

func (m *model) recordSwitch(ev fast.SwitchEvent) {
	row, ok := m.switches[ev.ID]
	if !ok {
		row = &switchRow{id: ev.ID, name: ev.Name}
		m.switches[ev.ID] = row
	}
	row.state = ev.State
	row.changed = ev.Time
	row.count++

	if m.showAll {
		name := ev.Name
		if name == "" {
			name = "0x" + ev.ID
		}
		m.addLogEntry(fmt.Sprintf("Switch %s %s", name, ev.State), false)
	}

	m.switchTable.SetRows(m.switchRows())
}

// switchRows renders switches most recently changed first
func (m *model) switchRows() []table.Row {
	rows := make([]*switchRow, 0, len(m.switches))
	for _, r := range m.switches {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].changed.After(rows[j].changed) })

	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, table.Row{
			r.id, r.name, r.state.String(),
			fmt.Sprintf("%d", r.count),
			r.changed.Format("15:04:05.000"),
		})
	}
	return out
}

func (m *model) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("PINBUS - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("I/O: %s | EXP: %s | Platform: %s | Press 'q' to quit",
		m.ioPort, m.expPort, m.platform)))
	s.WriteString("\n\n")

	switch {
	case m.stopErr != nil:
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ Stopped: %v", m.stopErr)))
	case !m.ready:
		s.WriteString(warningStyle.Render("⏳ Waiting for controller..."))
	default:
		s.WriteString(valueStyle.Render("✓ " + m.identity))
		s.WriteString(headerStyle.Render(fmt.Sprintf(" (booted in %s, up since %s)",
			m.bootTime.Round(time.Millisecond), humanize.Time(m.readyAt))))
	}
	s.WriteString("\n\n")

	busBox := func(label string, st fsp.Statistics) string {
		st.CalculateRates()
		var b strings.Builder
		b.WriteString(labelStyle.Render(label))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("Lines:"), valueStyle.Render(fmt.Sprintf("%d", st.TotalLines)),
			labelStyle.Render("Bytes:"), valueStyle.Render(humanize.Bytes(st.BytesRead))))
		errText := fmt.Sprintf("%d", st.DecodeErrors+st.Anomalies)
		if st.DecodeErrors+st.Anomalies > 0 {
			errText = errorStyle.Render(errText)
		} else {
			errText = valueStyle.Render(errText)
		}
		b.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("Errors:"), errText,
			labelStyle.Render("Unknown:"), valueStyle.Render(fmt.Sprintf("%d", st.UnknownCommands))))
		b.WriteString(fmt.Sprintf("%s %s",
			labelStyle.Render("Rate:"), valueStyle.Render(fmt.Sprintf("%.1f lines/s", st.LineRate))))
		return boxStyle.Render(b.String())
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		busBox("I/O NET", m.ioStats), " ", busBox("EXP", m.expStats)))
	s.WriteString("\n")
	if m.dropped > 0 {
		s.WriteString(warningStyle.Render(fmt.Sprintf("%d frame(s) dropped", m.dropped)))
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(labelStyle.Render("Switches:"))
	s.WriteString("\n")
	if len(m.switches) == 0 {
		s.WriteString(headerStyle.Render("No switch activity yet"))
		s.WriteString("\n")
	} else {
		s.WriteString(m.switchTable.View())
		s.WriteString("\n")
	}
	s.WriteString("\n")

	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 24
	if logHeight < 5 {
		logHeight = 5
	}

	var logContent strings.Builder
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}
	for _, entry := range m.eventLog[startIdx:] {
		line := fmt.Sprintf("[%s] %s", entry.timestamp.Format("15:04:05"), entry.message)
		if entry.isError {
			logContent.WriteString(errorStyle.Render(line))
		} else {
			logContent.WriteString(headerStyle.Render(line))
		}
		logContent.WriteString("\n")
	}
	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("No events yet"))
	}
	s.WriteString(boxStyle.Render(strings.TrimSuffix(logContent.String(), "\n")))

	return s.String()
}
