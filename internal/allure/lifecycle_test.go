package allure

import (
	"context"
	"errors"
	"testing"
	"time"

	"cukereport/internal/testutil"
	"cukereport/pkg/listener"
)

func newTestLifecycle() (*Lifecycle, *MemoryWriter, *testutil.FakeClock) {
	writer := NewMemoryWriter()
	clock := testutil.NewFakeClock(time.UnixMilli(1_700_000_000_000))
	lifecycle := NewLifecycle(writer)
	lifecycle.now = clock.Now
	return lifecycle, writer, clock
}

// TestLifecycleWritesStepTree verifies nested steps are materialized in start order.
func TestLifecycleWritesStepTree(t *testing.T) {
	ctx := testutil.Context(t, 0)
	lifecycle, writer, clock := newTestLifecycle()

	if err := lifecycle.ScheduleCase(listener.TestResult{UUID: "case", Name: "checkout"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := lifecycle.StartCase("case"); err != nil {
		t.Fatalf("start case: %v", err)
	}
	if err := lifecycle.StartStep("case", "s1", listener.StepResult{Name: "Given a cart"}); err != nil {
		t.Fatalf("start s1: %v", err)
	}
	if err := lifecycle.StartStep("s1", "s1.1", listener.StepResult{Name: "nested"}); err != nil {
		t.Fatalf("start nested: %v", err)
	}
	clock.Advance(time.Second)
	for _, id := range []string{"s1.1", "s1"} {
		if err := lifecycle.StopStep(id); err != nil {
			t.Fatalf("stop %s: %v", id, err)
		}
	}
	if err := lifecycle.StartStep("case", "s2", listener.StepResult{Name: "When paying"}); err != nil {
		t.Fatalf("start s2: %v", err)
	}
	if err := lifecycle.StopStep("s2"); err != nil {
		t.Fatalf("stop s2: %v", err)
	}
	if err := lifecycle.StopCase("case"); err != nil {
		t.Fatalf("stop case: %v", err)
	}
	if err := lifecycle.WriteCase(ctx, "case"); err != nil {
		t.Fatalf("write case: %v", err)
	}

	results := writer.Results()
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	result := results[0]
	if result.Stage != listener.StageFinished {
		t.Fatalf("expected finished stage, got %q", result.Stage)
	}
	if result.Stop-result.Start != 1000 {
		t.Fatalf("expected 1000ms duration, got %d", result.Stop-result.Start)
	}
	if len(result.Steps) != 2 || result.Steps[0].Name != "Given a cart" || result.Steps[1].Name != "When paying" {
		t.Fatalf("unexpected steps: %+v", result.Steps)
	}
	if len(result.Steps[0].Steps) != 1 || result.Steps[0].Steps[0].Name != "nested" {
		t.Fatalf("expected nested step, got %+v", result.Steps[0].Steps)
	}
	if cases, _ := lifecycle.Pending(); cases != 0 {
		t.Fatalf("expected case to be forgotten, %d pending", cases)
	}
	if err := lifecycle.StartStep("s1", "late", listener.StepResult{}); !errors.Is(err, ErrUnknownUUID) {
		t.Fatalf("expected ErrUnknownUUID for written parent, got %v", err)
	}
}

// TestLifecycleContainerFixtures verifies befores and afters land on the container.
func TestLifecycleContainerFixtures(t *testing.T) {
	ctx := testutil.Context(t, 0)
	lifecycle, writer, _ := newTestLifecycle()

	if err := lifecycle.StartContainer(listener.Container{UUID: "c1", Name: "Scenario: one"}); err != nil {
		t.Fatalf("start container: %v", err)
	}
	if err := lifecycle.StartFixture("c1", "b1", listener.HookBefore, listener.FixtureResult{Name: "setup"}); err != nil {
		t.Fatalf("start before: %v", err)
	}
	if err := lifecycle.StartFixture("c1", "a1", listener.HookAfter, listener.FixtureResult{Name: "teardown"}); err != nil {
		t.Fatalf("start after: %v", err)
	}
	if err := lifecycle.UpdateFixture("a1", func(f *listener.FixtureResult) { f.Status = listener.StatusBroken }); err != nil {
		t.Fatalf("update after: %v", err)
	}
	if err := lifecycle.StopContainer("c1"); err != nil {
		t.Fatalf("stop container: %v", err)
	}
	if err := lifecycle.WriteContainer(ctx, "c1"); err != nil {
		t.Fatalf("write container: %v", err)
	}

	containers := writer.Containers()
	if len(containers) != 1 {
		t.Fatalf("expected 1 container, got %d", len(containers))
	}
	container := containers[0]
	if len(container.Befores) != 1 || container.Befores[0].Name != "setup" {
		t.Fatalf("unexpected befores: %+v", container.Befores)
	}
	if len(container.Afters) != 1 || container.Afters[0].Status != listener.StatusBroken {
		t.Fatalf("unexpected afters: %+v", container.Afters)
	}
	if container.Stop == 0 {
		t.Fatalf("expected stop time")
	}
}

// TestLifecycleAttachmentOwners verifies attachments reach the right owner and writer.
func TestLifecycleAttachmentOwners(t *testing.T) {
	ctx := testutil.Context(t, 0)
	lifecycle, writer, _ := newTestLifecycle()

	if err := lifecycle.ScheduleCase(listener.TestResult{UUID: "case"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := lifecycle.StartStep("case", "step", listener.StepResult{Name: "step"}); err != nil {
		t.Fatalf("start step: %v", err)
	}
	content := listener.AttachmentContent{Name: "log", MediaType: "text/plain", Extension: "txt", Data: []byte("hello")}
	if err := lifecycle.AddAttachment(ctx, "step", content); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := lifecycle.AddAttachment(ctx, "missing", content); !errors.Is(err, ErrUnknownUUID) {
		t.Fatalf("expected ErrUnknownUUID, got %v", err)
	}
	if err := lifecycle.WriteCase(ctx, "case"); err != nil {
		t.Fatalf("write case: %v", err)
	}

	result := writer.Results()[0]
	attachments := result.Steps[0].Attachments
	if len(attachments) != 1 {
		t.Fatalf("expected step attachment, got %+v", result.Steps[0])
	}
	data, ok := writer.Attachment(attachments[0].Source)
	if !ok || string(data) != "hello" {
		t.Fatalf("expected stored attachment, got %q (%v)", data, ok)
	}
}

// TestLifecycleRejectsDuplicates verifies a live uuid cannot be reused.
func TestLifecycleRejectsDuplicates(t *testing.T) {
	lifecycle, _, _ := newTestLifecycle()
	if err := lifecycle.ScheduleCase(listener.TestResult{UUID: "dup"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := lifecycle.ScheduleCase(listener.TestResult{UUID: "dup"}); !errors.Is(err, ErrDuplicateUUID) {
		t.Fatalf("expected ErrDuplicateUUID, got %v", err)
	}
	if err := lifecycle.UpdateCase("other", func(*listener.TestResult) {}); !errors.Is(err, ErrUnknownUUID) {
		t.Fatalf("expected ErrUnknownUUID, got %v", err)
	}
}

// TestAttachmentExtension verifies explicit and media type derived suffixes.
func TestAttachmentExtension(t *testing.T) {
	cases := []struct {
		content listener.AttachmentContent
		want    string
	}{
		{listener.AttachmentContent{Extension: "csv"}, ".csv"},
		{listener.AttachmentContent{Extension: ".txt"}, ".txt"},
		{listener.AttachmentContent{MediaType: "image/png"}, ".png"},
		{listener.AttachmentContent{}, ""},
	}
	for _, tc := range cases {
		if got := attachmentExtension(tc.content); got != tc.want {
			t.Fatalf("attachmentExtension(%+v) = %q, want %q", tc.content, got, tc.want)
		}
	}
}

type failingWriter struct{ err error }

func (f failingWriter) WriteResult(context.Context, listener.TestResult) error   { return f.err }
func (f failingWriter) WriteContainer(context.Context, listener.Container) error { return f.err }
func (f failingWriter) WriteAttachment(context.Context, string, []byte) error    { return f.err }

// TestLifecycleSurfacesWriterErrors verifies writer failures are wrapped and returned.
func TestLifecycleSurfacesWriterErrors(t *testing.T) {
	boom := errors.New("disk full")
	lifecycle := NewLifecycle(failingWriter{err: boom})
	if err := lifecycle.ScheduleCase(listener.TestResult{UUID: "case"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := lifecycle.WriteCase(context.Background(), "case"); !errors.Is(err, boom) {
		t.Fatalf("expected writer error, got %v", err)
	}
}
