// Package monitor shows the live voice state in the terminal.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chase3718/midicv/controller"
	"github.com/chase3718/midicv/midi"
)

const refreshRate = 50 * time.Millisecond

// Source supplies snapshots; *controller.Controller satisfies it.
type Source interface {
	Snapshot() controller.Snapshot
}

// Releaser is optionally implemented by the source to force the voice idle.
type Releaser interface {
	Release()
}

type tickMsg time.Time

// Model is the bubbletea model for the monitor screen.
type Model struct {
	src      Source
	snap     controller.Snapshot
	device   func() string
	quitting bool
}

// NewModel builds the monitor. device, if non-nil, names the current MIDI
// input for the header.
func NewModel(src Source, device func() string) Model {
	return Model{src: src, snap: src.Snapshot(), device: device}
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "p", " ":
			if r, ok := m.src.(Releaser); ok {
				r.Release()
			}
		}

	case tickMsg:
		m.snap = m.src.Snapshot()
		return m, tick()
	}
	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	onStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	offStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func lamp(name string, on bool) string {
	if on {
		return onStyle.Render("● " + name)
	}
	return offStyle.Render("○ " + name)
}

// bar renders code/full as a fixed-width meter.
func bar(code, full uint32, width int) string {
	filled := width
	if code < full {
		filled = int(code * uint32(width) / full)
	}
	return strings.Repeat("█", filled) + strings.Repeat("·", width-filled)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.snap

	device := "no device"
	if m.device != nil {
		if d := m.device(); d != "" {
			device = d
		}
	}
	header := headerStyle.Render(fmt.Sprintf("midicv  ch %d  %s", s.Channel+1, device))

	note := "--"
	if s.Gate {
		note = midi.NoteName(s.LastNote)
	}

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	fmt.Fprintf(&out, "  %s   %s   note %-4s\n\n", lamp("gate", s.Gate), lamp("trig", s.Trigger), note)
	fmt.Fprintf(&out, "  pitch %4d %s\n", s.Pitch, bar(uint32(s.Pitch), 4095, 32))
	fmt.Fprintf(&out, "  bend  %4d %s\n", s.Bend, bar(uint32(s.Bend), 4095, 32))
	fmt.Fprintf(&out, "  vel   %4d %s\n", s.Velocity, bar(uint32(s.Velocity), 255, 32))
	fmt.Fprintf(&out, "  mod   %4d %s\n\n", s.Mod, bar(uint32(s.Mod), 255, 32))
	out.WriteString(dimStyle.Render(fmt.Sprintf("  pulse %d  msgs %d  ignored %d  passes %d",
		s.TimerElapsed, s.Messages, s.Dropped, s.Passes)))
	out.WriteString("\n\n")
	out.WriteString(dimStyle.Render("  p:panic  q:quit"))
	return out.String()
}

// Run shows the monitor until the user quits or ctx is cancelled.
func Run(ctx context.Context, src Source, device func() string) error {
	p := tea.NewProgram(NewModel(src, device), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
