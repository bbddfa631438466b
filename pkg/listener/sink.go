package listener

import "context"

// Sink is the append-only report write API the dispatcher drives.
// Implementations must be safe for concurrent use by different scenarios.
type Sink interface {
	ScheduleCase(result TestResult) error
	StartContainer(container Container) error
	StartCase(uuid string) error
	StartStep(parentUUID, uuid string, step StepResult) error
	StartFixture(containerUUID, uuid string, kind HookKind, fixture FixtureResult) error

	UpdateCase(uuid string, update func(*TestResult)) error
	UpdateStep(uuid string, update func(*StepResult)) error
	UpdateFixture(uuid string, update func(*FixtureResult)) error

	StopCase(uuid string) error
	StopStep(uuid string) error
	StopFixture(uuid string) error
	StopContainer(uuid string) error

	WriteCase(ctx context.Context, uuid string) error
	WriteContainer(ctx context.Context, uuid string) error

	// AddAttachment attaches content to the case, step or fixture ownerUUID.
	AddAttachment(ctx context.Context, ownerUUID string, content AttachmentContent) error
}
