package allure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cukereport/pkg/listener"
)

// File suffixes of the results directory layout.
const (
	ResultSuffix    = "-result.json"
	ContainerSuffix = "-container.json"
	// AttachmentMarker precedes the extension in attachment file names.
	AttachmentMarker = "-attachment"
	EnvironmentFile  = "environment.properties"
	// DefaultResultsDir is used when no results directory is configured.
	DefaultResultsDir = "allure-results"
)

// FileSystemWriter writes results, containers and attachments into a
// results directory.
type FileSystemWriter struct {
	dir string
}

// NewFileSystemWriter prepares dir for writing. With clean set, existing
// entries are removed first.
func NewFileSystemWriter(dir string, clean bool) (*FileSystemWriter, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("results directory is required")
	}
	if clean {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("clean results dir: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &FileSystemWriter{dir: dir}, nil
}

// Dir returns the results directory.
func (w *FileSystemWriter) Dir() string {
	return w.dir
}

func (w *FileSystemWriter) WriteResult(ctx context.Context, result listener.TestResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeJSON(filepath.Join(w.dir, result.UUID+ResultSuffix), result)
}

func (w *FileSystemWriter) WriteContainer(ctx context.Context, container listener.Container) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return writeJSON(filepath.Join(w.dir, container.UUID+ContainerSuffix), container)
}

func (w *FileSystemWriter) WriteAttachment(ctx context.Context, source string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" || strings.ContainsAny(source, `/\`) {
		return fmt.Errorf("invalid attachment source %q", source)
	}
	return writeFileAtomic(filepath.Join(w.dir, source), data)
}

// WriteEnvironment writes key = value lines sorted by key.
func (w *FileSystemWriter) WriteEnvironment(env map[string]string) error {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s = %s\n", key, env[key])
	}
	return writeFileAtomic(filepath.Join(w.dir, EnvironmentFile), []byte(b.String()))
}

func writeJSON(path string, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return writeFileAtomic(path, payload)
}

// writeFileAtomic writes through a temp file and rename so readers never
// observe partial files.
func writeFileAtomic(path string, payload []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, payload, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// MemoryWriter keeps written items in memory.
type MemoryWriter struct {
	mu          sync.Mutex
	results     []listener.TestResult
	containers  []listener.Container
	attachments map[string][]byte
}

// NewMemoryWriter creates an empty MemoryWriter.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{attachments: make(map[string][]byte)}
}

func (w *MemoryWriter) WriteResult(_ context.Context, result listener.TestResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results = append(w.results, result)
	return nil
}

func (w *MemoryWriter) WriteContainer(_ context.Context, container listener.Container) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.containers = append(w.containers, container)
	return nil
}

func (w *MemoryWriter) WriteAttachment(_ context.Context, source string, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attachments[source] = append([]byte(nil), data...)
	return nil
}

// Results returns written results in write order.
func (w *MemoryWriter) Results() []listener.TestResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]listener.TestResult(nil), w.results...)
}

// Containers returns written containers in write order.
func (w *MemoryWriter) Containers() []listener.Container {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]listener.Container(nil), w.containers...)
}

// Attachment returns the content stored under source.
func (w *MemoryWriter) Attachment(source string) ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	data, ok := w.attachments[source]
	return data, ok
}

// ResultNamed returns the last written result with the given name.
func (w *MemoryWriter) ResultNamed(name string) (listener.TestResult, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := len(w.results) - 1; i >= 0; i-- {
		if w.results[i].Name == name {
			return w.results[i], true
		}
	}
	return listener.TestResult{}, false
}

// MultiWriter fans writes out to several writers.
type MultiWriter struct {
	writers []ResultsWriter
}

// NewMultiWriter skips nil writers.
func NewMultiWriter(writers ...ResultsWriter) *MultiWriter {
	out := &MultiWriter{}
	for _, w := range writers {
		if w != nil {
			out.writers = append(out.writers, w)
		}
	}
	return out
}

func (m *MultiWriter) WriteResult(ctx context.Context, result listener.TestResult) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.WriteResult(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiWriter) WriteContainer(ctx context.Context, container listener.Container) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.WriteContainer(ctx, container); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiWriter) WriteAttachment(ctx context.Context, source string, data []byte) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.WriteAttachment(ctx, source, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
