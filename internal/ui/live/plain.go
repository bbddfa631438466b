package live

import (
	"context"
	"fmt"
	"io"
	"sync"

	"cukereport/pkg/listener"
)

// Printer writes one line per finished scenario and implements
// listener.Collaborator for non-interactive output.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	noColor bool
	state   State
}

// NewPrinter creates a plain progress printer.
func NewPrinter(out io.Writer, noColor bool) *Printer {
	return &Printer{out: out, noColor: noColor}
}

// RunStarted implements listener.Collaborator.
func (p *Printer) RunStarted(context.Context) error {
	return nil
}

// CaseStarted remembers the scenario so its result line can name it.
func (p *Printer) CaseStarted(_ context.Context, sc *listener.ScenarioContext) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Reduce(p.state, Event{
		Kind:     EventCaseStart,
		CaseID:   sc.CaseID(),
		Feature:  sc.FeatureName(),
		Scenario: sc.ScenarioName(),
		URI:      sc.URI(),
		Line:     sc.Case().Line,
	})
	return nil
}

// CaseFinished prints the scenario result line.
func (p *Printer) CaseFinished(_ context.Context, sc *listener.ScenarioContext, _ listener.Attacher) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Reduce(p.state, Event{Kind: EventCaseEnd, CaseID: sc.CaseID(), Status: sc.Status()})
	idx := -1
	for i := len(p.state.Rows) - 1; i >= 0; i-- {
		if p.state.Rows[i].CaseID == sc.CaseID() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	row := p.state.Rows[idx]
	line := fmt.Sprintf("%-8s %s", formatStatus(row, p.noColor), row.Name)
	if row.Location != "" {
		line += " (" + row.Location + ")"
	}
	_, err := fmt.Fprintln(p.out, line)
	return err
}

// RunFinished prints the totals line.
func (p *Printer) RunFinished(_ context.Context, summary listener.RunSummary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = Reduce(p.state, Event{Kind: EventRunEnd, Summary: summary, Total: summary.Total})
	_, err := fmt.Fprintln(p.out, renderSummary(p.state, p.noColor))
	return err
}
