// Package tui is the interactive terminal chat surface: a transcript
// viewport, a composer line, and an indicator row for connection state, turn
// status and tool activity.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/HueCodes/shipagent/internal/dispatch"
	"github.com/HueCodes/shipagent/internal/interp"
	"github.com/HueCodes/shipagent/internal/ledger"
)

// Transport is the connection state the indicator row renders.
type Transport interface {
	Connected() bool
	ReconnectAttempt() int
}

// Deps wires the chat machinery into the UI. The caller owns connection
// lifecycle; the UI only reads state and submits turns.
type Deps struct {
	Ledger     *ledger.Ledger
	Interp     *interp.Interpreter
	Dispatcher *dispatch.Dispatcher
	Transport  Transport
	SessionID  string
}

type refreshMsg struct{}

type sendResultMsg struct{ err error }

type styles struct {
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	system    lipgloss.Style
	body      lipgloss.Style
	connected lipgloss.Style
	offline   lipgloss.Style
	status    lipgloss.Style
	tool      lipgloss.Style
	errLine   lipgloss.Style
}

func newStyles() styles {
	return styles{
		header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("81")),
		user:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("114")),
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213")),
		system:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")),
		body:      lipgloss.NewStyle(),
		connected: lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
		offline:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		status:    lipgloss.NewStyle().Foreground(lipgloss.Color("81")),
		tool:      lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		errLine:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	}
}

// Model is the bubbletea model for the chat screen.
type Model struct {
	deps    Deps
	updates chan tea.Msg

	width  int
	height int
	ready  bool

	transcript viewport.Model
	input      textinput.Model
	spinner    spinner.Model

	notice string

	theme styles
}

func NewModel(deps Deps) Model {
	input := textinput.New()
	input.Placeholder = "Ask about rates, addresses, shipments or tracking"
	input.Prompt = "> "
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		deps:    deps,
		updates: make(chan tea.Msg, 64),
		input:   input,
		spinner: sp,
		theme:   newStyles(),
	}
}

// Notify wakes the UI after external state changed. Safe to call from any
// goroutine; bursts coalesce into the refresh already queued.
func (m Model) Notify() {
	select {
	case m.updates <- refreshMsg{}:
	default:
	}
}

func (m Model) waitForUpdate() tea.Cmd {
	updates := m.updates
	return func() tea.Msg { return <-updates }
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForUpdate())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		chromeHeight := 4
		if !m.ready {
			m.transcript = viewport.New(msg.Width, max(1, msg.Height-chromeHeight))
			m.ready = true
		} else {
			m.transcript.Width = msg.Width
			m.transcript.Height = max(1, msg.Height-chromeHeight)
		}
		m.renderTranscript()

	case refreshMsg:
		m.renderTranscript()
		cmds = append(cmds, m.waitForUpdate())

	case sendResultMsg:
		switch {
		case msg.err == nil, errors.Is(msg.err, dispatch.ErrEmptyMessage):
			m.notice = ""
		case errors.Is(msg.err, dispatch.ErrBusy):
			m.notice = "Still working on the previous message."
		default:
			m.notice = msg.err.Error()
		}
		m.renderTranscript()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				break
			}
			m.input.Reset()
			m.notice = ""
			cmds = append(cmds, m.sendCmd(text))
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m Model) sendCmd(text string) tea.Cmd {
	dispatcher := m.deps.Dispatcher
	return func() tea.Msg {
		return sendResultMsg{err: dispatcher.SendMessage(context.Background(), text)}
	}
}

func (m *Model) renderTranscript() {
	if !m.ready {
		return
	}
	wasAtBottom := m.transcript.AtBottom()
	m.transcript.SetContent(m.transcriptContent())
	if wasAtBottom {
		m.transcript.GotoBottom()
	}
}

func (m Model) transcriptContent() string {
	var b strings.Builder
	for _, msg := range m.deps.Ledger.Messages() {
		var label lipgloss.Style
		var name string
		switch msg.Role {
		case ledger.RoleUser:
			label, name = m.theme.user, "You"
		case ledger.RoleAssistant:
			label, name = m.theme.assistant, "Agent"
		default:
			label, name = m.theme.system, "System"
		}

		content := msg.Content
		if msg.IsStreaming {
			content += "▌"
		}
		b.WriteString(label.Render(name))
		b.WriteString("\n")
		b.WriteString(m.theme.body.Width(max(1, m.width)).Render(content))
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) indicatorLine() string {
	var parts []string

	if m.deps.Transport.Connected() {
		parts = append(parts, m.theme.connected.Render("● connected"))
	} else if attempt := m.deps.Transport.ReconnectAttempt(); attempt > 0 {
		parts = append(parts, m.theme.offline.Render(fmt.Sprintf("○ reconnecting (attempt %d)", attempt)))
	} else {
		parts = append(parts, m.theme.offline.Render("○ offline"))
	}

	snap := m.deps.Interp.Snapshot()
	switch {
	case snap.Tool != nil && snap.Tool.State == interp.ToolStateStart:
		parts = append(parts, m.theme.tool.Render("⚙ "+snap.Tool.Tool+"..."))
	case snap.Tool != nil:
		parts = append(parts, m.theme.tool.Render("✓ "+snap.Tool.Tool))
	case snap.StatusText != "":
		parts = append(parts, m.theme.status.Render(snap.StatusText))
	}

	if snap.Busy {
		parts = append(parts, m.spinner.View())
	}
	if m.notice != "" {
		parts = append(parts, m.theme.errLine.Render(m.notice))
	}
	return strings.Join(parts, "  ")
}

func (m Model) View() string {
	if !m.ready {
		return "loading..."
	}
	header := m.theme.header.Render("Shipping Assistant") + "  " +
		m.theme.system.Render(m.deps.SessionID)
	return header + "\n" +
		m.transcript.View() + "\n" +
		m.indicatorLine() + "\n" +
		m.input.View()
}
