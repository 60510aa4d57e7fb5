// Package tui is the terminal chat for asking questions against a running
// finance-lm server.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cloo-solutions/financelm/internal/domain"
)

const askTimeout = 30 * time.Second

// Asker answers one question.
type Asker interface {
	Ask(ctx context.Context, q domain.QAQuery) (*domain.QAResult, error)
}

type answerMsg struct {
	question string
	result   *domain.QAResult
	err      error
}

// Model is the Bubble Tea model for the chat.
type Model struct {
	asker    Asker
	topK     int
	filters  domain.Filters
	input    textinput.Model
	viewport viewport.Model

	question string
	result   *domain.QAResult
	cursor   int
	status   string
	pending  bool
	ready    bool
}

// New creates a chat model. Filters apply to every question.
func New(asker Asker, topK int, filters domain.Filters) Model {
	ti := textinput.New()
	ti.Prompt = "? "
	ti.Placeholder = "Ask about your filings and press Enter"
	ti.Focus()
	ti.CharLimit = 2000

	return Model{
		asker:    asker,
		topK:     topK,
		filters:  filters,
		input:    ti,
		viewport: viewport.New(0, 0),
		status:   "Ready. Up/Down cycles citations, Ctrl+C quits.",
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, ah := answerBoxStyle.GetFrameSize()
		_, qh := questionBoxStyle.GetFrameSize()
		// header, status, spacer
		reserved := 3 + qh + 1
		m.viewport.Width = max(20, msg.Width-2)
		m.viewport.Height = max(3, msg.Height-reserved-ah)
		m.viewport.SetContent(m.render())
		return m, nil

	case answerMsg:
		m.pending = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.result = nil
		} else {
			m.question = msg.question
			m.result = msg.result
			m.cursor = 0
			m.status = fmt.Sprintf("confidence %.3f, %d citations", msg.result.Confidence, len(msg.result.Citations))
		}
		m.viewport.SetContent(m.render())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.pending {
				return m, nil
			}
			m.pending = true
			m.status = "Thinking..."
			m.input.SetValue("")
			return m, m.ask(q)
		case "down":
			if m.result != nil && len(m.result.Citations) > 0 {
				m.cursor = (m.cursor + 1) % len(m.result.Citations)
				m.viewport.SetContent(m.render())
				return m, nil
			}
		case "up":
			if m.result != nil && len(m.result.Citations) > 0 {
				n := len(m.result.Citations)
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.render())
				return m, nil
			}
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(question string) tea.Cmd {
	asker, topK, filters := m.asker, m.topK, m.filters
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()
		result, err := asker.Ask(ctx, domain.QAQuery{Question: question, TopK: topK, Filters: filters})
		return answerMsg{question: question, result: result, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("finance-lm chat")
	answer := answerBoxStyle.Render(m.viewport.View())
	question := questionBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	return header + "\n" + answer + "\n" + question + "\n" + status
}

func (m Model) render() string {
	if m.result == nil {
		return "No answer yet."
	}

	var b strings.Builder
	b.WriteString(questionStyle.Render("Q: " + m.question))
	b.WriteString("\n\n")
	b.WriteString(m.result.Answer)
	b.WriteString("\n\n")

	if len(m.result.Citations) == 0 {
		b.WriteString(mutedStyle.Render("No citations."))
		return b.String()
	}

	c := m.result.Citations[m.cursor]
	b.WriteString(citationTitleStyle.Render(fmt.Sprintf("Citation %d/%d  score=%.3f", m.cursor+1, len(m.result.Citations), c.Score)))
	b.WriteString("\n")
	meta := fmt.Sprintf("document %d  source=%s", c.DocumentID, c.Source)
	if c.Ticker != nil {
		meta += "  ticker=" + *c.Ticker
	}
	if c.PublishedAt != nil {
		meta += "  published=" + c.PublishedAt.Format(time.DateOnly)
	}
	b.WriteString(mutedStyle.Render(meta))
	b.WriteString("\n\n")
	b.WriteString(c.Excerpt)
	return b.String()
}

var (
	headerStyle        = lipgloss.NewStyle().Bold(true)
	answerBoxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	questionStyle      = lipgloss.NewStyle().Bold(true)
	citationTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	mutedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// Run starts the chat in the alternate screen and blocks until it exits.
func Run(asker Asker, topK int, filters domain.Filters) error {
	_, err := tea.NewProgram(New(asker, topK, filters), tea.WithAltScreen()).Run()
	return err
}
