package resultsdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cukereport/pkg/listener"
)

// ErrNotFound reports a missing row.
var ErrNotFound = errors.New("resultsdb: not found")

// Summary aggregates stored case statuses.
type Summary struct {
	Total    int                     `json:"total"`
	ByStatus map[listener.Status]int `json:"byStatus"`
}

// CaseRow is a stored case without its step tree.
type CaseRow struct {
	UUID       string               `json:"uuid"`
	HistoryID  string               `json:"historyId"`
	Name       string               `json:"name"`
	FullName   string               `json:"fullName,omitempty"`
	Status     listener.Status      `json:"status,omitempty"`
	Message    string               `json:"message,omitempty"`
	Start      int64                `json:"start,omitempty"`
	Stop       int64                `json:"stop,omitempty"`
	Labels     []listener.Label     `json:"labels,omitempty"`
	Parameters []listener.Parameter `json:"parameters,omitempty"`
}

// StepRow is a stored step; Path numbers nested steps from the case root.
type StepRow struct {
	Path    string          `json:"path"`
	Depth   int             `json:"depth"`
	Name    string          `json:"name"`
	Status  listener.Status `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
}

// HistoryStats summarizes every stored run of one history id.
type HistoryStats struct {
	HistoryID  string `json:"historyId"`
	Runs       int    `json:"runs"`
	Passed     int    `json:"passed"`
	Failing    int    `json:"failing"`
	LastStopMs int64  `json:"lastStop,omitempty"`
}

// Summary counts stored cases by status. Cases without a status count as
// unknown.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(status, 'unknown') AS status, COUNT(*) FROM cases GROUP BY 1 ORDER BY 1`)
	if err != nil {
		return Summary{}, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()
	out := Summary{ByStatus: map[listener.Status]int{}}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Summary{}, fmt.Errorf("scan summary: %w", err)
		}
		out.ByStatus[listener.Status(status)] = count
		out.Total += count
	}
	return out, rows.Err()
}

// Cases lists stored cases ordered by start time, optionally filtered by
// status.
func (s *Store) Cases(ctx context.Context, status listener.Status) ([]CaseRow, error) {
	if status == "" {
		return s.queryCases(ctx, caseSelect+` ORDER BY start_ms, name`)
	}
	return s.queryCases(ctx, caseSelect+` WHERE status = ? ORDER BY start_ms, name`, string(status))
}

// History lists every stored run of a history id, oldest first.
func (s *Store) History(ctx context.Context, historyID string) ([]CaseRow, error) {
	return s.queryCases(ctx, caseSelect+` WHERE history_id = ? ORDER BY start_ms, uuid`, historyID)
}

// HistoryStats returns aggregate pass and failure counts for a history id.
func (s *Store) HistoryStats(ctx context.Context, historyID string) (HistoryStats, error) {
	var out HistoryStats
	var lastStop sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT history_id, runs, passed, failing, last_stop_ms FROM v_history WHERE history_id = ?`,
		historyID,
	).Scan(&out.HistoryID, &out.Runs, &out.Passed, &out.Failing, &lastStop)
	if errors.Is(err, sql.ErrNoRows) {
		return HistoryStats{}, ErrNotFound
	}
	if err != nil {
		return HistoryStats{}, fmt.Errorf("query history stats: %w", err)
	}
	out.LastStopMs = lastStop.Int64
	return out, nil
}

// Steps lists the flattened step tree of a case in execution order.
func (s *Store) Steps(ctx context.Context, caseUUID string) ([]StepRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, depth, name, status, message FROM steps WHERE case_uuid = ? ORDER BY seq`,
		caseUUID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()
	var out []StepRow
	for rows.Next() {
		var row StepRow
		var status, message sql.NullString
		if err := rows.Scan(&row.Path, &row.Depth, &row.Name, &status, &message); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		row.Status = listener.Status(status.String)
		row.Message = message.String
		out = append(out, row)
	}
	return out, rows.Err()
}

// Attachment returns stored attachment content and its media type.
func (s *Store) Attachment(ctx context.Context, source string) ([]byte, string, error) {
	var data []byte
	var mediaType sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT content, media_type FROM attachments WHERE source = ?`, source,
	).Scan(&data, &mediaType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("query attachment: %w", err)
	}
	return data, mediaType.String, nil
}

const caseSelect = `SELECT uuid, history_id, name, full_name, status, message, start_ms, stop_ms, labels, parameters FROM cases`

func (s *Store) queryCases(ctx context.Context, query string, args ...interface{}) ([]CaseRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()
	var out []CaseRow
	for rows.Next() {
		var row CaseRow
		var fullName, status, message, labels, params sql.NullString
		var start, stop sql.NullInt64
		if err := rows.Scan(&row.UUID, &row.HistoryID, &row.Name, &fullName, &status, &message, &start, &stop, &labels, &params); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		row.FullName = fullName.String
		row.Status = listener.Status(status.String)
		row.Message = message.String
		row.Start, row.Stop = start.Int64, stop.Int64
		if labels.Valid {
			if row.Labels, err = decodeJSON[listener.Label](&labels.String); err != nil {
				return nil, err
			}
		}
		if params.Valid {
			if row.Parameters, err = decodeJSON[listener.Parameter](&params.String); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
