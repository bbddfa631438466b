package allure

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cukereport/pkg/listener"
)

var (
	// ErrUnknownUUID is returned for operations on items that were never
	// started or were already written.
	ErrUnknownUUID = errors.New("allure: unknown uuid")
	// ErrDuplicateUUID is returned when an item with the same uuid is live.
	ErrDuplicateUUID = errors.New("allure: duplicate uuid")
)

// ResultsWriter persists finished report items.
type ResultsWriter interface {
	WriteResult(ctx context.Context, result listener.TestResult) error
	WriteContainer(ctx context.Context, container listener.Container) error
	WriteAttachment(ctx context.Context, source string, data []byte) error
}

// Lifecycle is an in-memory report store implementing listener.Sink.
// Items live in memory from start until written.
type Lifecycle struct {
	mu     sync.Mutex
	writer ResultsWriter
	now    func() time.Time

	cases      map[string]*listener.TestResult
	containers map[string]*listener.Container
	steps      map[string]*listener.StepResult
	fixtures   map[string]*listener.FixtureResult
	// children lists step uuids per case or step uuid, in start order.
	children map[string][]string
	// befores and afters list fixture uuids per container uuid.
	befores map[string][]string
	afters  map[string][]string
}

// NewLifecycle creates a Lifecycle handing written items to writer.
func NewLifecycle(writer ResultsWriter) *Lifecycle {
	return &Lifecycle{
		writer:     writer,
		now:        time.Now,
		cases:      make(map[string]*listener.TestResult),
		containers: make(map[string]*listener.Container),
		steps:      make(map[string]*listener.StepResult),
		fixtures:   make(map[string]*listener.FixtureResult),
		children:   make(map[string][]string),
		befores:    make(map[string][]string),
		afters:     make(map[string][]string),
	}
}

// ScheduleCase registers a case before it starts.
func (l *Lifecycle) ScheduleCase(result listener.TestResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.cases[result.UUID]; exists {
		return fmt.Errorf("%w: case %s", ErrDuplicateUUID, result.UUID)
	}
	result.Stage = listener.StageScheduled
	l.cases[result.UUID] = &result
	return nil
}

// StartContainer registers a running container.
func (l *Lifecycle) StartContainer(container listener.Container) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.containers[container.UUID]; exists {
		return fmt.Errorf("%w: container %s", ErrDuplicateUUID, container.UUID)
	}
	if container.Start == 0 {
		container.Start = l.stamp()
	}
	l.containers[container.UUID] = &container
	return nil
}

// StartCase moves a scheduled case to running.
func (l *Lifecycle) StartCase(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	result, ok := l.cases[id]
	if !ok {
		return fmt.Errorf("%w: case %s", ErrUnknownUUID, id)
	}
	result.Stage = listener.StageRunning
	if result.Start == 0 {
		result.Start = l.stamp()
	}
	return nil
}

// StartStep starts a step under a case or another step.
func (l *Lifecycle) StartStep(parentUUID, id string, step listener.StepResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.isStepParent(parentUUID) {
		return fmt.Errorf("%w: step parent %s", ErrUnknownUUID, parentUUID)
	}
	if _, exists := l.steps[id]; exists {
		return fmt.Errorf("%w: step %s", ErrDuplicateUUID, id)
	}
	step.Stage = listener.StageRunning
	if step.Start == 0 {
		step.Start = l.stamp()
	}
	l.steps[id] = &step
	l.children[parentUUID] = append(l.children[parentUUID], id)
	return nil
}

// StartFixture starts a before or after fixture in a container.
func (l *Lifecycle) StartFixture(containerUUID, id string, kind listener.HookKind, fixture listener.FixtureResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.containers[containerUUID]; !ok {
		return fmt.Errorf("%w: container %s", ErrUnknownUUID, containerUUID)
	}
	if _, exists := l.fixtures[id]; exists {
		return fmt.Errorf("%w: fixture %s", ErrDuplicateUUID, id)
	}
	fixture.Stage = listener.StageRunning
	if fixture.Start == 0 {
		fixture.Start = l.stamp()
	}
	l.fixtures[id] = &fixture
	if kind == listener.HookBefore {
		l.befores[containerUUID] = append(l.befores[containerUUID], id)
	} else {
		l.afters[containerUUID] = append(l.afters[containerUUID], id)
	}
	return nil
}

// UpdateCase applies update to a live case.
func (l *Lifecycle) UpdateCase(id string, update func(*listener.TestResult)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	result, ok := l.cases[id]
	if !ok {
		return fmt.Errorf("%w: case %s", ErrUnknownUUID, id)
	}
	update(result)
	return nil
}

// UpdateStep applies update to a live step.
func (l *Lifecycle) UpdateStep(id string, update func(*listener.StepResult)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	step, ok := l.steps[id]
	if !ok {
		return fmt.Errorf("%w: step %s", ErrUnknownUUID, id)
	}
	update(step)
	return nil
}

// UpdateFixture applies update to a live fixture.
func (l *Lifecycle) UpdateFixture(id string, update func(*listener.FixtureResult)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	fixture, ok := l.fixtures[id]
	if !ok {
		return fmt.Errorf("%w: fixture %s", ErrUnknownUUID, id)
	}
	update(fixture)
	return nil
}

// StopCase marks a case finished.
func (l *Lifecycle) StopCase(id string) error {
	return l.UpdateCase(id, func(r *listener.TestResult) {
		r.Stage = listener.StageFinished
		if r.Stop == 0 {
			r.Stop = l.stamp()
		}
	})
}

// StopStep marks a step finished.
func (l *Lifecycle) StopStep(id string) error {
	return l.UpdateStep(id, func(r *listener.StepResult) {
		r.Stage = listener.StageFinished
		if r.Stop == 0 {
			r.Stop = l.stamp()
		}
	})
}

// StopFixture marks a fixture finished.
func (l *Lifecycle) StopFixture(id string) error {
	return l.UpdateFixture(id, func(r *listener.FixtureResult) {
		r.Stage = listener.StageFinished
		if r.Stop == 0 {
			r.Stop = l.stamp()
		}
	})
}

// StopContainer records the container stop time.
func (l *Lifecycle) StopContainer(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	container, ok := l.containers[id]
	if !ok {
		return fmt.Errorf("%w: container %s", ErrUnknownUUID, id)
	}
	if container.Stop == 0 {
		container.Stop = l.stamp()
	}
	return nil
}

// WriteCase hands the case with its step tree to the writer and forgets it.
func (l *Lifecycle) WriteCase(ctx context.Context, id string) error {
	l.mu.Lock()
	result, ok := l.cases[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: case %s", ErrUnknownUUID, id)
	}
	snapshot := *result
	snapshot.Steps = l.detachSteps(id)
	delete(l.cases, id)
	l.mu.Unlock()

	if err := l.writer.WriteResult(ctx, snapshot); err != nil {
		return fmt.Errorf("write case %s: %w", id, err)
	}
	return nil
}

// WriteContainer hands the container with its fixtures to the writer and
// forgets it.
func (l *Lifecycle) WriteContainer(ctx context.Context, id string) error {
	l.mu.Lock()
	container, ok := l.containers[id]
	if !ok {
		l.mu.Unlock()
		return fmt.Errorf("%w: container %s", ErrUnknownUUID, id)
	}
	snapshot := *container
	snapshot.Befores = l.detachFixtures(l.befores[id])
	snapshot.Afters = l.detachFixtures(l.afters[id])
	delete(l.befores, id)
	delete(l.afters, id)
	delete(l.containers, id)
	l.mu.Unlock()

	if err := l.writer.WriteContainer(ctx, snapshot); err != nil {
		return fmt.Errorf("write container %s: %w", id, err)
	}
	return nil
}

// AddAttachment stores content and links it to the case, step or fixture.
func (l *Lifecycle) AddAttachment(ctx context.Context, ownerUUID string, content listener.AttachmentContent) error {
	l.mu.Lock()
	known := l.isOwner(ownerUUID)
	l.mu.Unlock()
	if !known {
		return fmt.Errorf("%w: attachment owner %s", ErrUnknownUUID, ownerUUID)
	}

	source := uuid.NewString() + AttachmentMarker + attachmentExtension(content)
	if err := l.writer.WriteAttachment(ctx, source, content.Data); err != nil {
		return fmt.Errorf("write attachment %s: %w", source, err)
	}
	attachment := listener.Attachment{Name: content.Name, Source: source, Type: content.MediaType}

	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.cases[ownerUUID] != nil:
		r := l.cases[ownerUUID]
		r.Attachments = append(r.Attachments, attachment)
	case l.steps[ownerUUID] != nil:
		r := l.steps[ownerUUID]
		r.Attachments = append(r.Attachments, attachment)
	case l.fixtures[ownerUUID] != nil:
		r := l.fixtures[ownerUUID]
		r.Attachments = append(r.Attachments, attachment)
	default:
		return fmt.Errorf("%w: attachment owner %s", ErrUnknownUUID, ownerUUID)
	}
	return nil
}

// Pending reports how many cases and containers are not yet written.
func (l *Lifecycle) Pending() (cases int, containers int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cases), len(l.containers)
}

func (l *Lifecycle) isStepParent(id string) bool {
	_, isCase := l.cases[id]
	_, isStep := l.steps[id]
	return isCase || isStep
}

func (l *Lifecycle) isOwner(id string) bool {
	_, isFixture := l.fixtures[id]
	return isFixture || l.isStepParent(id)
}

// detachSteps materializes and removes the step tree under parent.
// Callers hold l.mu.
func (l *Lifecycle) detachSteps(parent string) []listener.StepResult {
	ids := l.children[parent]
	delete(l.children, parent)
	if len(ids) == 0 {
		return nil
	}
	out := make([]listener.StepResult, 0, len(ids))
	for _, id := range ids {
		step, ok := l.steps[id]
		if !ok {
			continue
		}
		snapshot := *step
		snapshot.Steps = l.detachSteps(id)
		delete(l.steps, id)
		out = append(out, snapshot)
	}
	return out
}

// detachFixtures materializes and removes fixtures. Callers hold l.mu.
func (l *Lifecycle) detachFixtures(ids []string) []listener.FixtureResult {
	if len(ids) == 0 {
		return nil
	}
	out := make([]listener.FixtureResult, 0, len(ids))
	for _, id := range ids {
		fixture, ok := l.fixtures[id]
		if !ok {
			continue
		}
		out = append(out, *fixture)
		delete(l.fixtures, id)
	}
	return out
}

func (l *Lifecycle) stamp() int64 {
	return l.now().UnixMilli()
}

// attachmentExtension returns a dotted file extension for content.
func attachmentExtension(content listener.AttachmentContent) string {
	ext := strings.TrimSpace(content.Extension)
	if ext == "" && content.MediaType != "" {
		if exts, err := mime.ExtensionsByType(content.MediaType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
