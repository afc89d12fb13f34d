// internal/tui/tui_test.go
package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mwiater/geoassist/internal/district"
	"github.com/mwiater/geoassist/internal/query"
)

func testEngine() *query.Engine {
	elev := 700.0
	return query.NewEngine([]district.Record{
		{Name: "Alpha", AverageElevation: &elev, LULCClasses: []district.ClassShare{{ClassName: "Wasteland", Percentage: 15}}},
	}, query.Options{})
}

// TestUpdate checks quitting, resizing and the ask round trip.
func TestUpdate(t *testing.T) {
	ctx := context.Background()
	m := initialModel(ctx, testEngine(), false)

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil {
		t.Fatal("expected a quit command")
	}

	newModel, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m = newModel.(*model)
	if m.width != 100 || m.height != 40 {
		t.Fatalf("expected 100x40, got %dx%d", m.width, m.height)
	}

	// blank input is ignored
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil || len(m.history) != 0 {
		t.Fatal("expected blank input to be ignored")
	}

	m.textArea.SetValue("districts suitable for solar")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || !m.isLoading || len(m.history) != 1 {
		t.Fatalf("expected a pending question, got loading=%v history=%d", m.isLoading, len(m.history))
	}
	if m.textArea.Value() != "" {
		t.Fatal("expected the prompt to be cleared")
	}

	msg := askCmd(ctx, m.engine, m.history[0].question)()
	newModel, _ = m.Update(msg)
	m = newModel.(*model)
	if m.isLoading || m.history[0].answer == nil {
		t.Fatal("expected the answer to be recorded")
	}
	if got := m.history[0].answer.Suitable; len(got) != 1 || got[0] != "Alpha" {
		t.Fatalf("unexpected answer %v", got)
	}
}

// TestView checks the rendered states.
func TestView(t *testing.T) {
	m := initialModel(context.Background(), testEngine(), true)
	if view := m.View(); view != "Initializing..." {
		t.Fatalf("expected initializing view, got %q", view)
	}

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if view := m.View(); !strings.Contains(view, "Districts: 1") {
		t.Fatalf("expected header, got %q", view)
	}

	ans := m.engine.Answer(context.Background(), "suitable for urban development")
	m.history = append(m.history, exchange{question: "urban?", answer: &ans})
	history := m.historyView()
	if !strings.Contains(history, "No suitable districts found for Urban Development.") {
		t.Fatalf("expected urban answer, got %q", history)
	}
	if !strings.Contains(history, "Forest/Water") {
		t.Fatalf("expected debug breakdown, got %q", history)
	}

	m.isLoading = true
	if view := m.View(); !strings.Contains(view, "Searching...") {
		t.Fatalf("expected loading view, got %q", view)
	}
}
