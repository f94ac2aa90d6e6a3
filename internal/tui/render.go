package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/LuthoYRN/isipython/internal/diagnostics"
	"github.com/LuthoYRN/isipython/internal/session"
)

var (
	currentLineStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("11"))
	lineNumStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))
	varsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6"))
	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("7")).
			Padding(0, 1)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("1"))
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))
)

// maxSourceShare caps how much of the terminal the source panel takes.
const maxSourceShare = 2

func sourcePanelHeight(source []string, termHeight int) int {
	h := len(source)
	if max := termHeight / maxSourceShare; h > max {
		h = max
	}
	return h
}

func (m Model) View() string {
	if !m.ready {
		return "ilayisha..."
	}

	var b strings.Builder
	b.WriteString(m.sourcePanel())
	b.WriteString("\n")
	b.WriteString(m.output.View())
	b.WriteString("\n")

	if m.snap.State == session.StateWaitingForInput {
		b.WriteString(promptStyle.Render(m.snap.Prompt) + " " + m.input.View() + "\n")
	}
	if m.snap.Error != "" {
		msg := m.snap.Error
		// Timeout snapshots carry the bare sentinel; show the student
		// the isiXhosa explanation instead.
		if m.snap.State == session.StateTimedOut {
			msg = diagnostics.TimeoutFallback
		}
		b.WriteString(errorStyle.Render(wordwrap.String(msg, m.termWidth)) + "\n")
	}
	b.WriteString(m.statusBar())
	return b.String()
}

// sourcePanel renders the program with the paused line highlighted and
// a variables column alongside it when a step snapshot is available.
func (m Model) sourcePanel() string {
	height := sourcePanelHeight(m.source, m.termHeight)
	start := 0
	if m.snap.Line > height {
		start = m.snap.Line - height
	}

	var lines []string
	for i := start; i < len(m.source) && i-start < height; i++ {
		num := lineNumStyle.Render(fmt.Sprintf("%3d ", i+1))
		text := m.source[i]
		if i+1 == m.snap.Line && m.snap.State == session.StateWaitingForStep {
			text = currentLineStyle.Render(text)
		}
		lines = append(lines, num+text)
	}
	code := strings.Join(lines, "\n")

	if vars := m.varsPanel(); vars != "" {
		return lipgloss.JoinHorizontal(lipgloss.Top, code, "   ", vars)
	}
	return code
}

func (m Model) varsPanel() string {
	if len(m.snap.Vars) == 0 {
		return ""
	}
	names := make([]string, 0, len(m.snap.Vars))
	for k := range m.snap.Vars {
		names = append(names, k)
	}
	sort.Strings(names)

	var lines []string
	for _, k := range names {
		lines = append(lines, varsStyle.Render(fmt.Sprintf("%s = %v", k, m.snap.Vars[k])))
	}
	return strings.Join(lines, "\n")
}

func (m Model) statusBar() string {
	var hint string
	switch m.snap.State {
	case session.StateWaitingForStep:
		hint = "n: qhubeka phambili  q: yeka"
	case session.StateWaitingForInput:
		hint = "bhala impendulo, ucofe enter"
	case session.StateCompleted:
		hint = "igqibile  q: yeka"
	case session.StateFailed, session.StateTimedOut:
		hint = "imile  q: yeka"
	default:
		hint = "iyasebenza..."
	}
	return statusStyle.Render(fmt.Sprintf("%s | %s", m.snap.State, hint))
}
