package tui

import (
	"io"
	"log"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/HueCodes/shipagent/internal/chatwire"
	"github.com/HueCodes/shipagent/internal/dispatch"
	"github.com/HueCodes/shipagent/internal/interp"
	"github.com/HueCodes/shipagent/internal/ledger"
)

type stubTransport struct {
	connected bool
	attempt   int
}

func (s *stubTransport) Connected() bool              { return s.connected }
func (s *stubTransport) ReconnectAttempt() int        { return s.attempt }
func (s *stubTransport) Send(message, id string) bool { return s.connected }

func newTestModel(t *testing.T, transport *stubTransport) (Model, *ledger.Ledger, *interp.Interpreter) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	l := ledger.New()
	i := interp.New(l, logger)
	d := dispatch.New(transport, i, func() (string, error) { return "session_t", nil }, "http://127.0.0.1:1", logger)

	m := NewModel(Deps{
		Ledger:     l,
		Interp:     i,
		Dispatcher: d,
		Transport:  transport,
		SessionID:  "session_t",
	})
	resized, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return resized.(Model), l, i
}

func TestTranscriptRendersRolesAndStreamingCursor(t *testing.T) {
	m, l, _ := newTestModel(t, &stubTransport{connected: true})

	l.Append(ledger.RoleUser, "rates to Chicago", false)
	l.Append(ledger.RoleAssistant, "Looking that up", true)

	content := m.transcriptContent()
	if !strings.Contains(content, "You") || !strings.Contains(content, "rates to Chicago") {
		t.Fatalf("missing user entry: %q", content)
	}
	if !strings.Contains(content, "Agent") {
		t.Fatalf("missing assistant label: %q", content)
	}
	if !strings.Contains(content, "Looking that up▌") {
		t.Fatalf("streaming entry must show cursor: %q", content)
	}
}

func TestIndicatorShowsConnectionAndTool(t *testing.T) {
	transport := &stubTransport{connected: true}
	m, _, i := newTestModel(t, transport)

	if line := m.indicatorLine(); !strings.Contains(line, "connected") {
		t.Fatalf("expected connected marker, got %q", line)
	}

	i.HandleEvent(chatwire.StatusEvent{Message: "Processing your request..."})
	if line := m.indicatorLine(); !strings.Contains(line, "Processing your request...") {
		t.Fatalf("expected status text, got %q", line)
	}

	i.HandleEvent(chatwire.ToolStartEvent{Tool: "get_shipping_rates"})
	if line := m.indicatorLine(); !strings.Contains(line, "get_shipping_rates...") {
		t.Fatalf("tool indicator must supersede status, got %q", line)
	}

	transport.connected = false
	transport.attempt = 3
	if line := m.indicatorLine(); !strings.Contains(line, "reconnecting (attempt 3)") {
		t.Fatalf("expected reconnect marker, got %q", line)
	}
}

func TestEnterSubmitsAndClearsInput(t *testing.T) {
	m, l, _ := newTestModel(t, &stubTransport{connected: true})

	m.input.SetValue("hello rates")
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	if m.input.Value() != "" {
		t.Fatalf("input must clear on submit, got %q", m.input.Value())
	}
	if cmd == nil {
		t.Fatal("enter must produce a send command")
	}

	if msg := cmd(); msg != nil {
		if result, ok := extractSendResult(msg); ok && result.err != nil {
			t.Fatalf("send failed: %v", result.err)
		}
	}
	if l.Len() == 0 {
		t.Fatal("submitted message must reach the ledger")
	}
}

// tea.Batch wraps commands, so unwrap one level when needed.
func extractSendResult(msg tea.Msg) (sendResultMsg, bool) {
	if result, ok := msg.(sendResultMsg); ok {
		return result, true
	}
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, cmd := range batch {
			if cmd == nil {
				continue
			}
			if result, ok := extractSendResult(cmd()); ok {
				return result, true
			}
		}
	}
	return sendResultMsg{}, false
}

func TestNotifyNeverBlocks(t *testing.T) {
	m, _, _ := newTestModel(t, &stubTransport{})
	for range [200]struct{}{} {
		m.Notify()
	}
}

func TestViewIncludesSessionID(t *testing.T) {
	m, _, _ := newTestModel(t, &stubTransport{connected: true})
	if view := m.View(); !strings.Contains(view, "session_t") {
		t.Fatalf("view must show the session id, got %q", view)
	}
}
