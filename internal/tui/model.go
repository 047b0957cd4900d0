// internal/tui/model.go
// Package tui renders the emulated keyer display in the terminal.
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxTranscript bounds the decoded history kept in memory.
const maxTranscript = 2048

// ScreenMsg carries a snapshot of the display rows.
type ScreenMsg struct {
	Rows []string
}

// ToneMsg reports the sidetone state.
type ToneMsg bool

// DecodedMsg carries one decoded character, a word space or '\n' for a session end.
type DecodedMsg rune

// DoneMsg reports that the control loop has stopped. Err is nil on a clean exit.
type DoneMsg struct {
	Err error
}

type keyMap struct {
	Clear key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Clear}, {k.Help, k.Quit}}
}

var keys = keyMap{
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear transcript"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	lcdStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("10")).
			Padding(0, 1)

	toneOnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	toneOffStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Model is the Bubble Tea model for the keyer display.
type Model struct {
	title      string
	cols       int
	rows       []string
	tone       bool
	transcript []rune
	err        error
	done       bool

	width int
	keys  keyMap
	help  help.Model

	cancel func()
}

// New creates a model for a cols x rows display. cancel is called on quit
// to stop the control loop; it may be nil.
func New(title string, cols, rows int, cancel func()) Model {
	m := Model{
		title:  title,
		cols:   cols,
		rows:   make([]string, rows),
		keys:   keys,
		help:   help.New(),
		cancel: cancel,
	}
	for i := range m.rows {
		m.rows[i] = strings.Repeat(" ", cols)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.stop()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Clear):
			m.transcript = m.transcript[:0]
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case ScreenMsg:
		for i := range m.rows {
			if i < len(msg.Rows) {
				m.rows[i] = msg.Rows[i]
			}
		}

	case ToneMsg:
		m.tone = bool(msg)

	case DecodedMsg:
		m.appendDecoded(rune(msg))

	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.tone = false
		if msg.Err != nil {
			return m, nil
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Model) appendDecoded(r rune) {
	// A session end only needs one line break.
	if r == '\n' && (len(m.transcript) == 0 || m.transcript[len(m.transcript)-1] == '\n') {
		return
	}
	m.transcript = append(m.transcript, r)
	if n := len(m.transcript); n > maxTranscript {
		m.transcript = m.transcript[n-maxTranscript:]
	}
}

// Transcript returns the decoded text so far.
func (m Model) Transcript() string {
	return string(m.transcript)
}

// Err returns the error the control loop stopped with.
func (m Model) Err() error {
	return m.err
}

// View implements tea.Model.
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(m.title))
	s.WriteString("\n\n")

	lines := make([]string, len(m.rows))
	for i, row := range m.rows {
		lines[i] = padRow(row, m.cols)
	}
	lcd := lcdStyle.Render(strings.Join(lines, "\n"))

	led := toneOffStyle.Render("○ key up")
	if m.tone {
		led = toneOnStyle.Render("● key down")
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Center, lcd, "  ", led))
	s.WriteString("\n\n")

	s.WriteString(labelStyle.Render("Decoded:"))
	s.WriteString("\n")
	s.WriteString(m.lastLines(5))
	s.WriteString("\n\n")

	if m.err != nil {
		s.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		s.WriteString("\n\n")
	}

	s.WriteString(m.help.View(m.keys))
	return s.String()
}

// lastLines returns at most n lines of the transcript.
func (m Model) lastLines(n int) string {
	lines := strings.Split(string(m.transcript), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

func padRow(row string, cols int) string {
	if len(row) >= cols {
		return row[:cols]
	}
	return row + strings.Repeat(" ", cols-len(row))
}
