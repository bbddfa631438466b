// Package cukereport wires a configured reporting session for godog suites:
// result sinks, the event dispatcher, progress output and the godog bridge.
package cukereport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/cucumber/godog"

	"cukereport/internal/allure"
	"cukereport/internal/config"
	"cukereport/internal/cucumber"
	"cukereport/internal/resultsdb"
	"cukereport/internal/ui/live"
	"cukereport/pkg/godogreport"
	"cukereport/pkg/listener"
)

// Session is one configured reporting session.
type Session struct {
	Config config.Config
	// Root is the directory config-relative paths resolve against.
	Root string

	dispatcher *listener.Dispatcher
	reporter   *godogreport.Reporter
	lifecycle  *allure.Lifecycle
	files      *allure.FileSystemWriter
	store      *resultsdb.Store
	controller *live.Controller
	logger     *slog.Logger
	scenario   []godogreport.ScenarioOption
	liveUI     bool
}

type settings struct {
	stderr        io.Writer
	logger        *slog.Logger
	collaborators []listener.Collaborator
	scenario      []godogreport.ScenarioOption
}

// Option customizes Open.
type Option func(*settings)

// WithStderr sets where logs go when no logger is given.
func WithStderr(w io.Writer) Option {
	return func(s *settings) { s.stderr = w }
}

// WithLogger replaces the logger built from the configured level.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithCollaborators adds extension points to the dispatcher.
func WithCollaborators(collaborators ...listener.Collaborator) Option {
	return func(s *settings) { s.collaborators = append(s.collaborators, collaborators...) }
}

// WithScenarioOptions reports extra hooks around every scenario.
func WithScenarioOptions(opts ...godogreport.ScenarioOption) Option {
	return func(s *settings) { s.scenario = append(s.scenario, opts...) }
}

// Open loads the config at configPath (searching upward from the working
// directory when empty) and prepares the configured sinks. Progress output
// goes to stdout.
func Open(ctx context.Context, configPath string, stdout io.Writer, opts ...Option) (*Session, error) {
	set := settings{stderr: os.Stderr}
	for _, opt := range opts {
		opt(&set)
	}
	if stdout == nil {
		stdout = os.Stdout
	}

	path := configPath
	if path == "" {
		found, err := config.FindConfigPath("")
		if err != nil {
			return nil, err
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger := set.logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(set.stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	}
	s := &Session{
		Config:   cfg,
		Root:     config.RepoRootFromConfigPath(path),
		logger:   logger,
		scenario: set.scenario,
	}
	if err := s.openSinks(ctx); err != nil {
		_ = s.closeSinks()
		return nil, err
	}

	decision, err := live.ResolveMode(cfg.UI, stdout)
	if err != nil {
		_ = s.closeSinks()
		return nil, err
	}
	if decision.Warning != "" {
		logger.Warn(decision.Warning)
	}
	collaborators := append([]listener.Collaborator{}, set.collaborators...)
	if decision.UseLive {
		s.controller = live.Start(stdout, live.Options{Total: s.totalCases})
		s.liveUI = true
		collaborators = append(collaborators, s.controller)
	} else {
		collaborators = append(collaborators, live.NewPrinter(stdout, !live.IsTerminal(stdout)))
	}

	s.dispatcher = listener.New(s.lifecycle,
		listener.WithLogger(logger),
		listener.WithLabels(staticLabels(cfg.Labels)...),
		listener.WithCollaborators(collaborators...),
	)
	s.reporter = godogreport.New(s.dispatcher,
		godogreport.WithLogger(logger),
		godogreport.WithFeaturePaths(s.Root, cfg.Features...),
	)
	return s, nil
}

// openSinks creates the configured result writers.
func (s *Session) openSinks(ctx context.Context) error {
	var writers []allure.ResultsWriter
	if s.Config.HasSink(config.SinkFilesystem) {
		dir := config.ResolvePath(s.Root, s.Config.ResultsDir)
		files, err := allure.NewFileSystemWriter(dir, s.Config.CleanResults)
		if err != nil {
			return err
		}
		if len(s.Config.Environment) > 0 {
			if err := files.WriteEnvironment(s.Config.Environment); err != nil {
				return err
			}
		}
		s.files = files
		writers = append(writers, files)
	}
	if s.Config.HasSink(config.SinkDuckDB) {
		store, err := resultsdb.Open(ctx, config.ResolvePath(s.Root, s.Config.DuckDBPath))
		if err != nil {
			return err
		}
		s.store = store
		writers = append(writers, store)
	}
	s.lifecycle = allure.NewLifecycle(allure.NewMultiWriter(writers...))
	return nil
}

func (s *Session) totalCases() int {
	if s.dispatcher == nil {
		return 0
	}
	return s.dispatcher.TotalCases()
}

// Dispatcher returns the session's event dispatcher.
func (s *Session) Dispatcher() *listener.Dispatcher {
	return s.dispatcher
}

// Reporter returns the godog bridge.
func (s *Session) Reporter() *godogreport.Reporter {
	return s.reporter
}

// Store returns the results database, or nil when the duckdb sink is off.
func (s *Session) Store() *resultsdb.Store {
	return s.store
}

// ResultsDir returns the results directory, or "" when the filesystem sink
// is off.
func (s *Session) ResultsDir() string {
	if s.files == nil {
		return ""
	}
	return s.files.Dir()
}

// Suite builds a godog suite reporting through this session. Paths default
// to the configured feature paths and the formatter output is discarded
// while the live UI owns the terminal.
func (s *Session) Suite(name string, initializer func(*godog.ScenarioContext), options godog.Options) (godog.TestSuite, error) {
	if len(options.Paths) == 0 {
		paths, err := cucumber.ExpandFeaturePaths(s.Root, s.Config.Features)
		if err != nil {
			return godog.TestSuite{}, err
		}
		options.Paths = paths
	}
	if options.Format == "" {
		options.Format = "progress"
	}
	if s.liveUI || options.Output == nil {
		options.Output = io.Discard
	}
	return godog.TestSuite{
		Name:                 name,
		TestSuiteInitializer: s.reporter.InitializeTestSuite,
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			s.reporter.InitializeScenario(sc, s.scenario...)
			if initializer != nil {
				initializer(sc)
			}
		},
		Options: &options,
	}, nil
}

// Close waits for the live UI, closes the sinks and reports reporting
// errors collected during the run.
func (s *Session) Close() error {
	if s.controller != nil {
		s.controller.Close()
		s.controller.Wait()
	}
	var errs []error
	if s.reporter != nil {
		errs = append(errs, s.reporter.Err())
	}
	if s.lifecycle != nil {
		if cases, containers := s.lifecycle.Pending(); cases > 0 || containers > 0 {
			s.logger.Warn("unwritten report items at close", slog.Int("cases", cases), slog.Int("containers", containers))
		}
	}
	errs = append(errs, s.closeSinks())
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

func (s *Session) closeSinks() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// staticLabels turns configured labels into sorted report labels.
func staticLabels(labels map[string]string) []listener.Label {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]listener.Label, 0, len(names))
	for _, name := range names {
		out = append(out, listener.Label{Name: name, Value: labels[name]})
	}
	return out
}
