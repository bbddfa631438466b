package live

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cukereport/pkg/listener"
)

// TestModelAppliesEvents verifies events update the rendered view.
func TestModelAppliesEvents(t *testing.T) {
	model := NewModel(nil, Options{NoColor: true})
	now := time.Now()

	next, _ := model.Update(EventMsg{Event: Event{Kind: EventRunStart, At: now, Total: 2}})
	next, _ = next.Update(EventMsg{Event: caseStart("c1", "Pay with card", now)})
	next, _ = next.Update(EventMsg{Event: caseEnd("c1", listener.StatusPassed, now)})

	view := next.View()
	for _, want := range []string{"Scenarios 1/2", "Passed: 1", "Pay with card", "passed"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
	if got := next.(Model).State().Counts.Passed; got != 1 {
		t.Fatalf("expected model state to count passed, got %d", got)
	}
}

// TestModelQuitsOnRunEnd verifies the program exits after the run.
func TestModelQuitsOnRunEnd(t *testing.T) {
	model := NewModel(nil, Options{NoColor: true})
	_, cmd := model.Update(EventMsg{Event: Event{Kind: EventRunEnd}})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected QuitMsg")
	}
}

// TestColumnsForWidth verifies the scenario column fills the terminal.
func TestColumnsForWidth(t *testing.T) {
	narrow := columnsForWidth(40)
	if narrow[1].Width != 20 {
		t.Fatalf("expected minimum scenario width, got %d", narrow[1].Width)
	}
	wide := columnsForWidth(200)
	if wide[1].Width != 200-53-10 {
		t.Fatalf("unexpected scenario width %d", wide[1].Width)
	}
}
