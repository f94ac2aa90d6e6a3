// Package tui is the interactive debug stepper: a terminal UI that
// runs an isiXhosa program under debug instrumentation and lets the
// student walk it statement by statement, watching variables change.
package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/LuthoYRN/isipython/internal/session"
)

// pollInterval is how often the UI refreshes the session status while
// the program is running between pauses.
const pollInterval = 300 * time.Millisecond

type snapshotMsg struct {
	snap session.Snapshot
	err  error
}

type tickMsg struct{}

// Model is the bubbletea model for one debug session.
type Model struct {
	supervisor *session.Supervisor
	sessionID  string
	source     []string

	snap session.Snapshot
	err  error
	done bool

	output viewport.Model
	input  textinput.Model

	termWidth  int
	termHeight int
	ready      bool
}

// New builds the stepper around an already-started debug session.
func New(supervisor *session.Supervisor, source string, first session.Snapshot) Model {
	ti := textinput.New()
	ti.Placeholder = "impendulo..."
	ti.CharLimit = 256

	return Model{
		supervisor: supervisor,
		sessionID:  first.ID,
		source:     strings.Split(source, "\n"),
		snap:       first,
		input:      ti,
	}
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.supervisor.Status(context.Background(), m.sessionID)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) step() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.supervisor.Step(context.Background(), m.sessionID)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) send(text string) tea.Cmd {
	return func() tea.Msg {
		snap, err := m.supervisor.SupplyInput(context.Background(), m.sessionID, text)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.termWidth = msg.Width
		m.termHeight = msg.Height
		m.layout()
		m.ready = true
		return m, nil

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tea.Batch(m.refresh(), m.tick())

	case snapshotMsg:
		if msg.err != nil {
			// A poll can land just after the terminal snapshot was
			// consumed, or race an input submit; neither is fatal.
			if errors.Is(msg.err, session.ErrNotFound) || errors.Is(msg.err, session.ErrNotWaiting) {
				return m, nil
			}
			m.err = msg.err
			m.done = true
			return m, nil
		}
		m.snap = msg.snap
		m.output.SetContent(m.snap.Output)
		m.output.GotoBottom()
		if m.snap.State.Terminal() {
			m.done = true
		}
		m.syncInputFocus()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if msg.String() == "q" && m.input.Focused() {
			break
		}
		if !m.done {
			m.supervisor.Kill(m.sessionID)
		}
		return *m, tea.Quit

	case "enter":
		if m.input.Focused() {
			text := m.input.Value()
			m.input.SetValue("")
			m.input.Blur()
			return *m, m.send(text)
		}
		if m.snap.State == session.StateWaitingForStep {
			return *m, m.step()
		}
		return *m, nil

	case "n", " ":
		if !m.input.Focused() && m.snap.State == session.StateWaitingForStep {
			return *m, m.step()
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return *m, cmd
}

// syncInputFocus focuses the answer field exactly when the program is
// blocked on an input() call.
func (m *Model) syncInputFocus() {
	if m.snap.State == session.StateWaitingForInput {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) layout() {
	outputH := m.termHeight - sourcePanelHeight(m.source, m.termHeight) - 4
	if outputH < 3 {
		outputH = 3
	}
	if m.output.Width == 0 {
		m.output = viewport.New(m.termWidth, outputH)
	} else {
		m.output.Width = m.termWidth
		m.output.Height = outputH
	}
	m.input.Width = m.termWidth - 4
}
