// Package godogreport reports godog test runs through a listener.Dispatcher.
package godogreport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/cucumber/godog"

	"cukereport/internal/cucumber"
	"cukereport/pkg/listener"
)

// Reporter translates godog suite, scenario and step hooks into listener
// events. One Reporter serves every scenario of a suite, including
// concurrently running ones.
type Reporter struct {
	dispatcher *listener.Dispatcher
	logger     *slog.Logger
	root       string
	paths      []string

	mu sync.Mutex
	// loaded maps absolute feature paths to their parsed document.
	loaded map[string]*cucumber.Document
	// claimed tracks locally compiled pickles already bound to a godog
	// scenario, per document URI.
	claimed map[string]map[int]bool
	errs    []error
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reporter) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFeaturePaths preloads feature files, directories or globs resolved
// against root when the suite starts.
func WithFeaturePaths(root string, paths ...string) Option {
	return func(r *Reporter) {
		r.root = root
		r.paths = append(r.paths, paths...)
	}
}

// New creates a Reporter driving dispatcher.
func New(dispatcher *listener.Dispatcher, opts ...Option) *Reporter {
	r := &Reporter{
		dispatcher: dispatcher,
		logger:     slog.Default(),
		loaded:     make(map[string]*cucumber.Document),
		claimed:    make(map[string]map[int]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dispatcher returns the dispatcher events are sent to.
func (r *Reporter) Dispatcher() *listener.Dispatcher {
	return r.dispatcher
}

// Err returns the reporting errors collected during the run.
func (r *Reporter) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

// InitializeTestSuite registers suite hooks emitting run events.
func (r *Reporter) InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(func() {
		bg := context.Background()
		r.record(r.dispatch(bg, listener.RunStarted{}))
		if len(r.paths) > 0 {
			r.record(r.Preload(bg, r.paths...))
		}
	})
	ctx.AfterSuite(func() {
		r.record(r.dispatch(context.Background(), listener.RunFinished{}))
	})
}

// Preload parses feature files, directories or globs resolved against the
// configured root and announces them to the dispatcher.
func (r *Reporter) Preload(ctx context.Context, paths ...string) error {
	files, err := cucumber.ExpandFeaturePaths(r.root, paths)
	if err != nil {
		return fmt.Errorf("preload features: %w", err)
	}
	for _, file := range files {
		uri := file
		if r.root != "" {
			if rel, err := filepath.Rel(r.root, file); err == nil {
				uri = rel
			}
		}
		if _, err := r.load(ctx, uri); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reporter) dispatch(ctx context.Context, ev listener.Event) error {
	_, err := r.dispatcher.Dispatch(ctx, ev)
	return err
}

func (r *Reporter) record(err error) {
	if err == nil {
		return
	}
	r.logger.Error("report event failed", slog.String("error", err.Error()))
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

// document returns the parsed source for uri, loading it on first use.
func (r *Reporter) document(ctx context.Context, uri string) (*cucumber.Document, error) {
	if doc, ok := r.dispatcher.Sources().Document(uri); ok {
		return doc, nil
	}
	return r.load(ctx, uri)
}

// load reads a feature once per path and emits SourceRead and SourceParsed.
func (r *Reporter) load(ctx context.Context, uri string) (*cucumber.Document, error) {
	key := r.absPath(uri)
	r.mu.Lock()
	doc, ok := r.loaded[key]
	r.mu.Unlock()
	if ok {
		if doc.URI != uri {
			// Already announced under a different spelling of the same path.
			alias := *doc
			alias.URI = uri
			r.dispatcher.Sources().Put(&alias)
			return &alias, nil
		}
		return doc, nil
	}

	source, err := os.ReadFile(key)
	if err != nil {
		return nil, fmt.Errorf("read feature %s: %w", uri, err)
	}
	if err := r.dispatch(ctx, listener.SourceRead{URI: uri, Source: source}); err != nil {
		return nil, err
	}
	doc, ok = r.dispatcher.Sources().Document(uri)
	if !ok {
		return nil, fmt.Errorf("feature %s was not indexed", uri)
	}

	r.mu.Lock()
	if existing, raced := r.loaded[key]; raced {
		r.mu.Unlock()
		return existing, nil
	}
	r.loaded[key] = doc
	r.mu.Unlock()

	if err := r.dispatch(ctx, listener.SourceParsed{URI: uri, Pickles: doc.Pickles}); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *Reporter) absPath(uri string) string {
	path := uri
	if !filepath.IsAbs(path) && r.root != "" {
		path = filepath.Join(r.root, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// claim binds a godog scenario to the first unclaimed local pickle with the
// same name and step texts. It returns -1 when nothing matches.
func (r *Reporter) claim(doc *cucumber.Document, scenario *godog.Scenario) int {
	texts := make([]string, len(scenario.Steps))
	for i, step := range scenario.Steps {
		texts[i] = step.Text
	}
	matches := doc.MatchPickles(scenario.Name, texts)
	if len(matches) == 0 {
		return -1
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	taken := r.claimed[doc.URI]
	if taken == nil {
		taken = make(map[int]bool)
		r.claimed[doc.URI] = taken
	}
	for _, idx := range matches {
		if !taken[idx] {
			taken[idx] = true
			return idx
		}
	}
	// Reruns of an already reported pickle reuse the first match.
	return matches[0]
}
