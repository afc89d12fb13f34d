// internal/tui/tui.go
// Package tui provides the interactive question prompt for geoassist.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mwiater/geoassist/internal/query"
	"github.com/mwiater/geoassist/internal/suitability"
)

// exchange is one question and, once it arrives, its answer.
type exchange struct {
	question string
	answer   *query.Answer
}

// model is the Bubble Tea model of the prompt.
type model struct {
	ctx              context.Context
	engine           *query.Engine
	debug            bool
	isLoading        bool
	textArea         textarea.Model
	viewport         viewport.Model
	spinner          spinner.Model
	history          []exchange
	width, height    int
	requestStartTime time.Time
}

// initialModel creates the prompt with an empty history.
func initialModel(ctx context.Context, engine *query.Engine, debug bool) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ta := textarea.New()
	ta.Placeholder = "Which districts are suitable for solar?"
	ta.Focus()
	ta.Prompt = "Ask: "
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	return &model{
		ctx:      ctx,
		engine:   engine,
		debug:    debug,
		textArea: ta,
		viewport: viewport.New(100, 5),
		spinner:  s,
	}
}

// answerMsg carries a finished answer back to Update.
type answerMsg struct{ answer query.Answer }

// askCmd runs the query off the UI goroutine. The engine never fails, so
// there is no error message type.
func askCmd(ctx context.Context, engine *query.Engine, text string) tea.Cmd {
	return func() tea.Msg {
		return answerMsg{answer: engine.Answer(ctx, text)}
	}
}

// Init starts the spinner.
func (m *model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update handles keys, resizes and finished answers.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.isLoading {
				return m, nil
			}
			text := strings.TrimSpace(m.textArea.Value())
			if text == "" {
				return m, nil
			}
			m.history = append(m.history, exchange{question: text})
			m.textArea.Reset()
			m.isLoading = true
			m.requestStartTime = time.Now()
			return m, tea.Batch(m.spinner.Tick, askCmd(m.ctx, m.engine, text))
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.textArea.SetWidth(msg.Width - 3)
		headerHeight := 2
		footerHeight := 3
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - headerHeight - footerHeight

	case answerMsg:
		if n := len(m.history); n > 0 && m.history[n-1].answer == nil {
			ans := msg.answer
			m.history[n-1].answer = &ans
		}
		m.isLoading = false
		m.textArea.Focus()
		m.viewport.GotoBottom()
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	if !m.isLoading {
		m.textArea, cmd = m.textArea.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View renders the header, the conversation and the prompt.
func (m *model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var builder strings.Builder
	headerStyle := lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1)
	badgeStyle := lipgloss.NewStyle().Background(lipgloss.Color("255")).Foreground(lipgloss.Color("0")).Padding(0, 1).MarginLeft(1)
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		headerStyle.Render("geoassist"),
		badgeStyle.Render(fmt.Sprintf("Districts: %d", m.engine.Districts().Len())),
	)
	builder.WriteString(header + lipgloss.NewStyle().Render(" (esc to quit)") + "\n\n")

	m.viewport.SetContent(m.historyView())
	builder.WriteString(m.viewport.View())

	if m.isLoading {
		timer := fmt.Sprintf("%.1f", time.Since(m.requestStartTime).Seconds())
		builder.WriteString("\n" + m.spinner.View() + " Searching... " + timer + "s")
	} else {
		builder.WriteString("\n" + m.textArea.View())
	}
	return builder.String()
}

func (m *model) historyView() string {
	var b strings.Builder
	userStyle := lipgloss.NewStyle().Bold(true)
	answerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	noticeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	width := m.width - 2
	if width < 20 {
		width = 20
	}

	for _, ex := range m.history {
		role := userStyle.Render("You: ")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, role, lipgloss.NewStyle().Width(width-lipgloss.Width(role)).Render(ex.question)) + "\n")
		if ex.answer == nil {
			continue
		}
		role = answerStyle.Render("geoassist: ")
		body := query.FormatText(*ex.answer)
		if m.debug && ex.answer.Route == query.IntentSuitability && len(ex.answer.Urban) > 0 {
			body += "\n\n" + strings.Join(urbanLines(ex.answer.Urban), "\n")
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, role, lipgloss.NewStyle().Width(width-lipgloss.Width(role)).Render(body)) + "\n")
		if ex.answer.Notice != "" && m.debug {
			b.WriteString(noticeStyle.Render("  >>> "+ex.answer.Notice) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func urbanLines(rows []suitability.UrbanBreakdown) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.String()
	}
	return out
}

// Start runs the prompt until the user quits.
func Start(ctx context.Context, engine *query.Engine, debug bool) error {
	m := initialModel(ctx, engine, debug)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
