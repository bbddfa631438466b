package resultsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"

	"cukereport/pkg/listener"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Store writes reported cases and containers into DuckDB tables.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if ctx == nil {
		return nil, errors.New("resultsdb: context is nil")
	}
	dsn := strings.TrimSpace(path)
	if dsn == MemoryDSN {
		dsn = ""
	}
	if dsn != "" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing connection whose schema is already applied.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WriteResult upserts a case and replaces its step rows.
func (s *Store) WriteResult(ctx context.Context, result listener.TestResult) error {
	if result.UUID == "" {
		return errors.New("resultsdb: case uuid is required")
	}
	labels, err := encodeJSON(result.Labels)
	if err != nil {
		return err
	}
	params, err := encodeJSON(result.Parameters)
	if err != nil {
		return err
	}
	message, trace := details(result.StatusDetails)

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cases (
			  uuid, history_id, name, full_name, description, status, stage, message, trace,
			  start_ms, stop_ms, labels, parameters, written_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, now())
			ON CONFLICT (uuid) DO UPDATE SET
			  history_id = excluded.history_id,
			  name = excluded.name,
			  full_name = excluded.full_name,
			  description = excluded.description,
			  status = excluded.status,
			  stage = excluded.stage,
			  message = excluded.message,
			  trace = excluded.trace,
			  start_ms = excluded.start_ms,
			  stop_ms = excluded.stop_ms,
			  labels = excluded.labels,
			  parameters = excluded.parameters,
			  written_at = excluded.written_at`,
			result.UUID, result.HistoryID, result.Name, nullable(result.FullName), nullable(result.Description),
			nullable(string(result.Status)), nullable(string(result.Stage)), nullable(message), nullable(trace),
			result.Start, result.Stop, labels, params,
		); err != nil {
			return fmt.Errorf("upsert case: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM steps WHERE case_uuid = ?`, result.UUID); err != nil {
			return fmt.Errorf("clear steps: %w", err)
		}
		seq := 0
		if err := insertSteps(ctx, tx, result.UUID, "", 0, &seq, result.Steps); err != nil {
			return err
		}
		return claimAttachments(ctx, tx, result.UUID, result.Attachments, result.Steps)
	})
}

// WriteContainer upserts a container with its children and fixtures.
func (s *Store) WriteContainer(ctx context.Context, container listener.Container) error {
	if container.UUID == "" {
		return errors.New("resultsdb: container uuid is required")
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO containers (uuid, name, start_ms, stop_ms, written_at)
			 VALUES (?, ?, ?, ?, now())
			 ON CONFLICT (uuid) DO UPDATE SET
			   name = excluded.name,
			   start_ms = excluded.start_ms,
			   stop_ms = excluded.stop_ms,
			   written_at = excluded.written_at`,
			container.UUID, nullable(container.Name), container.Start, container.Stop,
		); err != nil {
			return fmt.Errorf("upsert container: %w", err)
		}
		for _, table := range []string{"container_children", "fixtures"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE container_uuid = ?", container.UUID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		for _, child := range container.Children {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO container_children (container_uuid, case_uuid) VALUES (?, ?)`,
				container.UUID, child,
			); err != nil {
				return fmt.Errorf("insert container child: %w", err)
			}
		}
		if err := insertFixtures(ctx, tx, container.UUID, listener.HookBefore, container.Befores); err != nil {
			return err
		}
		if err := insertFixtures(ctx, tx, container.UUID, listener.HookAfter, container.Afters); err != nil {
			return err
		}
		for _, fixture := range append(append([]listener.FixtureResult{}, container.Befores...), container.Afters...) {
			if err := claimAttachments(ctx, tx, container.UUID, fixture.Attachments, fixture.Steps); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteAttachment stores attachment content with its digest.
func (s *Store) WriteAttachment(ctx context.Context, source string, data []byte) error {
	if source == "" {
		return errors.New("resultsdb: attachment source is required")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO attachments (source, sha256, size_bytes, content)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (source) DO UPDATE SET
		   sha256 = excluded.sha256,
		   size_bytes = excluded.size_bytes,
		   content = excluded.content`,
		source, fingerprintBytes(data), int64(len(data)), data,
	); err != nil {
		return fmt.Errorf("upsert attachment: %w", err)
	}
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if ctx == nil {
		return errors.New("resultsdb: context is nil")
	}
	if s == nil || s.db == nil {
		return errors.New("resultsdb: db is nil")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertSteps stores the step tree in pre-order; seq carries the position
// across recursion.
func insertSteps(ctx context.Context, tx *sql.Tx, caseUUID, prefix string, depth int, seq *int, steps []listener.StepResult) error {
	for i, step := range steps {
		path := stepPath(prefix, i)
		message, _ := details(step.StatusDetails)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO steps (case_uuid, seq, path, depth, name, status, message, start_ms, stop_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			caseUUID, *seq, path, depth, step.Name, nullable(string(step.Status)), nullable(message), step.Start, step.Stop,
		); err != nil {
			return fmt.Errorf("insert step %s: %w", path, err)
		}
		*seq++
		if err := insertSteps(ctx, tx, caseUUID, path, depth+1, seq, step.Steps); err != nil {
			return err
		}
	}
	return nil
}

func insertFixtures(ctx context.Context, tx *sql.Tx, containerUUID string, kind listener.HookKind, fixtures []listener.FixtureResult) error {
	for i, fixture := range fixtures {
		message, _ := details(fixture.StatusDetails)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fixtures (container_uuid, kind, position, name, status, message, start_ms, stop_ms)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			containerUUID, string(kind), i, fixture.Name, nullable(string(fixture.Status)), nullable(message), fixture.Start, fixture.Stop,
		); err != nil {
			return fmt.Errorf("insert %s fixture: %w", strings.ToLower(string(kind)), err)
		}
	}
	return nil
}

// claimAttachments records the owner, name and media type of attachments
// referenced anywhere in a result tree.
func claimAttachments(ctx context.Context, tx *sql.Tx, owner string, attachments []listener.Attachment, steps []listener.StepResult) error {
	for _, attachment := range attachments {
		if _, err := tx.ExecContext(ctx,
			`UPDATE attachments SET owner_uuid = ?, name = ?, media_type = ? WHERE source = ?`,
			owner, attachment.Name, attachment.Type, attachment.Source,
		); err != nil {
			return fmt.Errorf("claim attachment %s: %w", attachment.Source, err)
		}
	}
	for _, step := range steps {
		if err := claimAttachments(ctx, tx, owner, step.Attachments, step.Steps); err != nil {
			return err
		}
	}
	return nil
}
