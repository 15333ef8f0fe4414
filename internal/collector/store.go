// Package collector is the persistence/query service for runs and trace
// events: SQLite storage behind a small HTTP ingest/query API. Ingest is
// append-only and tolerates duplicate or out-of-order delivery — run
// upserts are sticky once a run reaches a terminal state.
package collector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/agentward/agentward/internal/event"
	"github.com/agentward/agentward/internal/run"
)

// ErrRunNotFound is returned for events referencing an unknown run and
// for queries on missing runs.
var ErrRunNotFound = errors.New("collector: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                 TEXT PRIMARY KEY,
	project            TEXT NOT NULL,
	started_at         INTEGER NOT NULL,
	ended_at           INTEGER,
	status             TEXT NOT NULL DEFAULT 'running',
	termination_reason TEXT,
	total_cost_usd     REAL NOT NULL DEFAULT 0,
	llm_calls          INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS events (
	id                INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id            TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq               INTEGER,
	type              TEXT NOT NULL,
	model             TEXT,
	prompt            TEXT,
	response          TEXT,
	prompt_tokens     INTEGER,
	completion_tokens INTEGER,
	total_tokens      INTEGER,
	cost_usd          REAL,
	created_at        INTEGER
);
CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id);

CREATE TABLE IF NOT EXISTS a2a_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	type          TEXT NOT NULL,
	method        TEXT,
	url           TEXT,
	service_name  TEXT,
	request_data  TEXT,
	response_data TEXT,
	status_code   INTEGER,
	duration_ms   REAL,
	error         TEXT,
	created_at    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_a2a_events_run ON a2a_events(run_id);
`

// Store persists runs and events in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the database at path. Use
// ":memory:" for tests.
func OpenStore(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("collector: open db: %w", err)
	}
	// modernc/sqlite serializes writes; a single conn avoids lock churn.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("collector: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertRun inserts or updates a run. Updates on a terminal run are
// ignored except for aggregate counters: status, reason, and end time
// stick once terminal.
func (s *Store) UpsertRun(ctx context.Context, snap run.Snapshot) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, project, started_at, ended_at, status, termination_reason, total_cost_usd, llm_calls)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ended_at           = CASE WHEN runs.status = 'running' THEN excluded.ended_at ELSE runs.ended_at END,
			status             = CASE WHEN runs.status = 'running' THEN excluded.status ELSE runs.status END,
			termination_reason = CASE WHEN runs.status = 'running' THEN excluded.termination_reason ELSE runs.termination_reason END,
			total_cost_usd     = MAX(runs.total_cost_usd, excluded.total_cost_usd),
			llm_calls          = MAX(runs.llm_calls, excluded.llm_calls)`,
		snap.ID, snap.Project, snap.StartedAt, nullInt(snap.EndedAt),
		string(snap.Status), nullStr(snap.TerminationReason), snap.TotalCostUSD, snap.LLMCalls)
	if err != nil {
		return fmt.Errorf("collector: upsert run: %w", err)
	}
	return nil
}

// IngestEvent applies one lifecycle or llm_call event. run_started
// creates the run if missing; terminal events update run status;
// llm_call appends to the event log and requires a known run.
func (s *Store) IngestEvent(ctx context.Context, ev event.Event) error {
	switch ev.Type {
	case event.RunStarted:
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO runs (id, project, started_at, status)
			VALUES (?, ?, ?, 'running')
			ON CONFLICT(id) DO NOTHING`,
			ev.RunID, orDefault(ev.Project, "default"), ev.StartedAt)
		if err != nil {
			return fmt.Errorf("collector: ingest run_started: %w", err)
		}
		return nil

	case event.RunTerminated:
		return s.finishRun(ctx, ev.RunID, "terminated", ev.Reason, ev.TerminatedAt)

	case event.RunCompleted:
		return s.finishRun(ctx, ev.RunID, "completed", "", ev.EndedAt)

	case event.LLMCall:
		if err := s.requireRun(ctx, ev.RunID); err != nil {
			return err
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO events (run_id, seq, type, model, prompt, response, prompt_tokens, completion_tokens, total_tokens, cost_usd, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.RunID, ev.Seq, string(ev.Type), ev.Model, ev.Prompt, ev.Response,
			ev.PromptTokens, ev.CompletionTokens, ev.TotalTokens, ev.CostUSD, ev.CreatedAt)
		if err != nil {
			return fmt.Errorf("collector: ingest llm_call: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("collector: unknown event type %q", ev.Type)
	}
}

// IngestA2A appends one A2A event. The run must exist.
func (s *Store) IngestA2A(ctx context.Context, ev event.Event) error {
	if err := s.requireRun(ctx, ev.RunID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO a2a_events (run_id, type, method, url, service_name, request_data, response_data, status_code, duration_ms, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.RunID, string(ev.Type), ev.Method, ev.URL, ev.ServiceName,
		ev.RequestData, ev.ResponseData, ev.StatusCode, ev.DurationMS, ev.Error, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("collector: ingest a2a event: %w", err)
	}
	return nil
}

func (s *Store) finishRun(ctx context.Context, runID, status, reason string, endedAt int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, termination_reason = ?, ended_at = ?
		WHERE id = ? AND status = 'running'`,
		status, nullStr(reason), nullInt(endedAt), runID)
	if err != nil {
		return fmt.Errorf("collector: finish run: %w", err)
	}
	// Duplicate terminal events are tolerated; only a fully unknown run
	// is an ingest error.
	if n, _ := res.RowsAffected(); n == 0 {
		return s.requireRun(ctx, runID)
	}
	return nil
}

func (s *Store) requireRun(ctx context.Context, runID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRunNotFound
	}
	return err
}

// RunSummary is the list view of one run with aggregate cost.
type RunSummary struct {
	ID                string     `json:"id"`
	Project           string     `json:"project"`
	StartedAt         int64      `json:"started_at"`
	EndedAt           int64      `json:"ended_at,omitempty"`
	Status            run.Status `json:"status"`
	TerminationReason string     `json:"termination_reason,omitempty"`
	TotalCostUSD      float64    `json:"total_cost_usd"`
}

// StoredEvent is an event row with its storage id.
type StoredEvent struct {
	ID int64 `json:"id"`
	event.Event
}

// RunDetail is a run with its merged event timeline.
type RunDetail struct {
	RunSummary
	Events []StoredEvent `json:"events"`
}

// ListRuns returns recent runs, optionally filtered by project.
func (s *Store) ListRuns(ctx context.Context, project string, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT r.id, r.project, r.started_at, COALESCE(r.ended_at, 0), r.status,
			COALESCE(r.termination_reason, ''),
			MAX(r.total_cost_usd, COALESCE((SELECT SUM(cost_usd) FROM events e WHERE e.run_id = r.id), 0))
		FROM runs r`
	args := []any{}
	if project != "" {
		query += ` WHERE r.project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY r.started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("collector: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Project, &r.StartedAt, &r.EndedAt, &r.Status, &r.TerminationReason, &r.TotalCostUSD); err != nil {
			return nil, fmt.Errorf("collector: scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns one run with its llm and a2a events in storage order.
func (s *Store) GetRun(ctx context.Context, runID string) (*RunDetail, error) {
	var d RunDetail
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.project, r.started_at, COALESCE(r.ended_at, 0), r.status,
			COALESCE(r.termination_reason, ''),
			MAX(r.total_cost_usd, COALESCE((SELECT SUM(cost_usd) FROM events e WHERE e.run_id = r.id), 0))
		FROM runs r WHERE r.id = ?`, runID).
		Scan(&d.ID, &d.Project, &d.StartedAt, &d.EndedAt, &d.Status, &d.TerminationReason, &d.TotalCostUSD)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("collector: get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, seq, COALESCE(model, ''), COALESCE(prompt, ''), COALESCE(response, ''),
			COALESCE(prompt_tokens, 0), COALESCE(completion_tokens, 0), COALESCE(total_tokens, 0),
			COALESCE(cost_usd, 0), COALESCE(created_at, 0)
		FROM events WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("collector: get run events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		ev := StoredEvent{Event: event.Event{RunID: runID}}
		if err := rows.Scan(&ev.ID, &ev.Type, &ev.Seq, &ev.Model, &ev.Prompt, &ev.Response,
			&ev.PromptTokens, &ev.CompletionTokens, &ev.TotalTokens, &ev.CostUSD, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("collector: scan event: %w", err)
		}
		d.Events = append(d.Events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	a2a, err := s.db.QueryContext(ctx, `
		SELECT id, type, COALESCE(method, ''), COALESCE(url, ''), COALESCE(service_name, ''),
			COALESCE(request_data, ''), COALESCE(response_data, ''), COALESCE(status_code, 0),
			COALESCE(duration_ms, 0), COALESCE(error, ''), COALESCE(created_at, 0)
		FROM a2a_events WHERE run_id = ? ORDER BY id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("collector: get run a2a events: %w", err)
	}
	defer a2a.Close()
	for a2a.Next() {
		ev := StoredEvent{Event: event.Event{RunID: runID}}
		if err := a2a.Scan(&ev.ID, &ev.Type, &ev.Method, &ev.URL, &ev.ServiceName,
			&ev.RequestData, &ev.ResponseData, &ev.StatusCode, &ev.DurationMS, &ev.Error, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("collector: scan a2a event: %w", err)
		}
		d.Events = append(d.Events, ev)
	}
	return &d, a2a.Err()
}

// DeleteRun removes a run and all its events.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("collector: delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRunNotFound
	}
	return nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
