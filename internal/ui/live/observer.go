package live

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"cukereport/pkg/listener"
)

// Controller runs the live UI and implements listener.Collaborator.
type Controller struct {
	events  chan Event
	program *tea.Program
	total   func() int
	now     func() time.Time
	done    chan struct{}

	mu     sync.Mutex
	closed bool
}

// Start launches a live UI controller that writes to stdout.
func Start(stdout io.Writer, opts Options) *Controller {
	if stdout == nil {
		stdout = os.Stdout
	}
	events := make(chan Event, 256)
	model := NewModel(events, opts)
	program := tea.NewProgram(model, tea.WithOutput(stdout), tea.WithInput(nil), tea.WithAltScreen())
	controller := newController(events, opts)
	controller.program = program
	go func() {
		_, _ = program.Run()
		close(controller.done)
	}()
	return controller
}

func newController(events chan Event, opts Options) *Controller {
	c := &Controller{
		events: events,
		total:  opts.Total,
		now:    opts.Now,
		done:   make(chan struct{}),
	}
	if c.total == nil {
		c.total = func() int { return 0 }
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Close signals the UI to stop.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
}

// Wait blocks until the UI has exited.
func (c *Controller) Wait() {
	if c == nil {
		return
	}
	<-c.done
}

// RunStarted forwards run start events to the UI.
func (c *Controller) RunStarted(context.Context) error {
	c.send(Event{Kind: EventRunStart, At: c.now(), Total: c.total()})
	return nil
}

// CaseStarted adds a running scenario row.
func (c *Controller) CaseStarted(_ context.Context, sc *listener.ScenarioContext) error {
	c.send(Event{
		Kind:     EventCaseStart,
		At:       c.now(),
		CaseID:   sc.CaseID(),
		Feature:  sc.FeatureName(),
		Scenario: sc.ScenarioName(),
		URI:      sc.URI(),
		Line:     sc.Case().Line,
		Total:    c.total(),
	})
	return nil
}

// CaseFinished records the scenario's final status.
func (c *Controller) CaseFinished(_ context.Context, sc *listener.ScenarioContext, _ listener.Attacher) error {
	c.send(Event{
		Kind:   EventCaseEnd,
		At:     c.now(),
		CaseID: sc.CaseID(),
		Status: sc.Status(),
		Total:  c.total(),
	})
	return nil
}

// RunFinished forwards the run summary and closes the UI.
func (c *Controller) RunFinished(_ context.Context, summary listener.RunSummary) error {
	c.send(Event{Kind: EventRunEnd, At: c.now(), Total: summary.Total, Summary: summary})
	c.Close()
	return nil
}

// send enqueues an event, waiting for room while the UI is running.
// Events after Close or after the UI exited are dropped.
func (c *Controller) send(event Event) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.events <- event:
	case <-c.done:
	}
}
