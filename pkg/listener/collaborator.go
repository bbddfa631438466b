package listener

import "context"

// Attacher adds attachments to the case being finished.
type Attacher interface {
	Attach(ctx context.Context, content AttachmentContent) error
}

// Collaborator is an extension point invoked around the run and each case.
// Errors from RunStarted and RunFinished are returned to the runner;
// errors from the case callbacks are logged and do not change case status.
type Collaborator interface {
	RunStarted(ctx context.Context) error
	CaseStarted(ctx context.Context, sc *ScenarioContext) error
	CaseFinished(ctx context.Context, sc *ScenarioContext, attach Attacher) error
	RunFinished(ctx context.Context, summary RunSummary) error
}

// CollaboratorFuncs adapts optional functions to Collaborator.
type CollaboratorFuncs struct {
	OnRunStarted   func(ctx context.Context) error
	OnCaseStarted  func(ctx context.Context, sc *ScenarioContext) error
	OnCaseFinished func(ctx context.Context, sc *ScenarioContext, attach Attacher) error
	OnRunFinished  func(ctx context.Context, summary RunSummary) error
}

func (f CollaboratorFuncs) RunStarted(ctx context.Context) error {
	if f.OnRunStarted == nil {
		return nil
	}
	return f.OnRunStarted(ctx)
}

func (f CollaboratorFuncs) CaseStarted(ctx context.Context, sc *ScenarioContext) error {
	if f.OnCaseStarted == nil {
		return nil
	}
	return f.OnCaseStarted(ctx, sc)
}

func (f CollaboratorFuncs) CaseFinished(ctx context.Context, sc *ScenarioContext, attach Attacher) error {
	if f.OnCaseFinished == nil {
		return nil
	}
	return f.OnCaseFinished(ctx, sc, attach)
}

func (f CollaboratorFuncs) RunFinished(ctx context.Context, summary RunSummary) error {
	if f.OnRunFinished == nil {
		return nil
	}
	return f.OnRunFinished(ctx, summary)
}

// caseAttacher attaches to a fixed case through the sink.
type caseAttacher struct {
	sink   Sink
	caseID string
}

func (a caseAttacher) Attach(ctx context.Context, content AttachmentContent) error {
	return a.sink.AddAttachment(ctx, a.caseID, content)
}
