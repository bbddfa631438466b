package live

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"cukereport/internal/allure"
	"cukereport/internal/testutil"
	"cukereport/pkg/listener"
)

const cartFeature = `Feature: Cart

  Scenario: Add item
    Given an empty cart
    When I add an item
`

func runCartScenario(t *testing.T, collaborator listener.Collaborator, total int) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	d := listener.New(allure.NewLifecycle(allure.NewMemoryWriter()),
		listener.WithLogger(logger), listener.WithCollaborators(collaborator))
	ctx := testutil.Context(t, 0)
	steps := []string{"an empty cart", "I add an item"}
	events := []listener.Event{
		listener.RunStarted{},
		listener.SourceRead{URI: "cart.feature", Source: []byte(cartFeature)},
	}
	for _, ev := range events {
		if _, err := d.Dispatch(ctx, ev); err != nil {
			t.Fatalf("dispatch %s: %v", ev.Kind(), err)
		}
	}
	tc := listener.TestCase{ID: "p1", URI: "cart.feature", Line: 3, Name: "Add item", Steps: steps}
	for i := 0; i < total; i++ {
		caseCtx, err := d.Dispatch(ctx, listener.CaseStarted{Case: tc})
		if err != nil {
			t.Fatalf("case started: %v", err)
		}
		for j, text := range steps {
			step := &listener.PickleStep{Text: text, Line: 4 + j}
			if _, err := d.Dispatch(caseCtx, listener.StepStarted{Step: step}); err != nil {
				t.Fatalf("step started: %v", err)
			}
			if _, err := d.Dispatch(caseCtx, listener.StepFinished{Step: step, Outcome: listener.OutcomePassed}); err != nil {
				t.Fatalf("step finished: %v", err)
			}
		}
		if _, err := d.Dispatch(caseCtx, listener.CaseFinished{Case: tc, Outcome: listener.OutcomePassed}); err != nil {
			t.Fatalf("case finished: %v", err)
		}
	}
	if _, err := d.Dispatch(ctx, listener.RunFinished{}); err != nil {
		t.Fatalf("run finished: %v", err)
	}
}

// TestControllerForwardsCollaboratorEvents verifies dispatcher callbacks reach the UI queue.
func TestControllerForwardsCollaboratorEvents(t *testing.T) {
	events := make(chan Event, 16)
	clock := testutil.NewFakeClock(time.Unix(1_700_000_000, 0))
	controller := newController(events, Options{Now: clock.Now, Total: func() int { return 1 }})

	runCartScenario(t, controller, 1)

	var kinds []EventKind
	var state State
	for ev := range events {
		kinds = append(kinds, ev.Kind)
		state = Reduce(state, ev)
	}
	if len(kinds) != 4 || kinds[0] != EventRunStart || kinds[3] != EventRunEnd {
		t.Fatalf("unexpected event kinds %v", kinds)
	}
	if state.Counts.Passed != 1 || state.Rows[0].Feature != "Cart" || state.Rows[0].Location != "cart.feature:3" {
		t.Fatalf("unexpected state %+v", state)
	}
}

// TestControllerDropsEventsAfterClose verifies late events do not panic.
func TestControllerDropsEventsAfterClose(t *testing.T) {
	controller := newController(make(chan Event, 1), Options{})
	controller.Close()
	controller.Close()
	if err := controller.RunStarted(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestControllerWaitsForQueueRoom(t *testing.T) {
	events := make(chan Event, 1)
	controller := newController(events, Options{})
	controller.send(Event{Kind: EventRunStart})

	delivered := make(chan struct{})
	go func() {
		controller.send(Event{Kind: EventCaseEnd, CaseID: "c1"})
		close(delivered)
	}()
	select {
	case <-delivered:
		t.Fatalf("send returned while the queue was full")
	case <-time.After(50 * time.Millisecond):
	}

	if ev := <-events; ev.Kind != EventRunStart {
		t.Fatalf("unexpected first event %v", ev.Kind)
	}
	select {
	case <-delivered:
	case <-time.After(5 * time.Second):
		t.Fatalf("send did not resume after the queue drained")
	}
	if ev := <-events; ev.Kind != EventCaseEnd || ev.CaseID != "c1" {
		t.Fatalf("case end was not delivered: %+v", ev)
	}
}

func TestControllerStopsWaitingAfterExit(t *testing.T) {
	controller := newController(make(chan Event, 1), Options{})
	controller.send(Event{Kind: EventRunStart})
	close(controller.done)

	finished := make(chan struct{})
	go func() {
		controller.send(Event{Kind: EventCaseEnd})
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatalf("send blocked after the UI exited")
	}
}

// TestPrinterWritesResultLines verifies plain output names each scenario.
func TestPrinterWritesResultLines(t *testing.T) {
	var out bytes.Buffer
	runCartScenario(t, NewPrinter(&out, true), 2)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 2 result lines and a summary, got %q", out.String())
	}
	if !strings.HasPrefix(lines[0], "passed") || !strings.Contains(lines[0], "Add item (cart.feature:3)") {
		t.Fatalf("unexpected result line %q", lines[0])
	}
	if !strings.Contains(lines[2], "Passed: 2") {
		t.Fatalf("unexpected summary %q", lines[2])
	}
}
