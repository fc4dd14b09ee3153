// Package runlog persists a record of each compile request for audit and
// debugging, separate from the note content itself: what template ran,
// how long each stage took, which warnings and guard decisions fired, and
// the final state. It never stores rendered note text.
package runlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/soochol/notegen/internal/diag"
	"github.com/soochol/notegen/internal/pipeline"
)

// DB wraps a database/sql connection pool for PostgreSQL. The caller must
// import a driver (e.g. _ "github.com/lib/pq").
type DB struct {
	Pool *sql.DB
}

// Open opens and pings a connection pool at databaseURL.
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.SetMaxOpenConns(25)
	pool.SetMaxIdleConns(5)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close closes the connection pool.
func (d *DB) Close() error { return d.Pool.Close() }

// Migrate creates the run_log schema if it does not already exist.
func (d *DB) Migrate(ctx context.Context) error {
	_, err := d.Pool.ExecContext(ctx, migrationSQL)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const migrationSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    template_id   TEXT NOT NULL,
    template_ver  TEXT NOT NULL DEFAULT '',
    state         TEXT NOT NULL,
    model         TEXT NOT NULL DEFAULT '',
    response_id   TEXT NOT NULL DEFAULT '',
    warnings      JSONB NOT NULL DEFAULT '[]',
    timing        JSONB NOT NULL DEFAULT '[]',
    error         TEXT NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    completed_at  TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_runs_template_id ON runs(template_id);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Record is one stored run entry.
type Record struct {
	ID          string
	TemplateID  string
	TemplateVer string
	State       pipeline.State
	Model       string
	ResponseID  string
	Warnings    diag.List
	Timing      []pipeline.StageTiming
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// FromOutput builds a Record from a completed (or failed) pipeline run.
func FromOutput(id, templateID, templateVer string, out pipeline.Output, runErr error, createdAt time.Time) Record {
	r := Record{
		ID: id, TemplateID: templateID, TemplateVer: templateVer,
		State: out.State, Model: out.Model, ResponseID: out.ResponseID,
		Warnings: out.Warnings, Timing: out.Timing, CreatedAt: createdAt,
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	if out.State == pipeline.StateComplete || out.State == pipeline.StateFailed {
		now := createdAt.Add(sumDuration(out.Timing))
		r.CompletedAt = &now
	}
	return r
}

func sumDuration(timing []pipeline.StageTiming) time.Duration {
	var total time.Duration
	for _, t := range timing {
		total += t.Duration
	}
	return total
}

// Insert stores a new run record.
func (d *DB) Insert(ctx context.Context, r Record) error {
	warningsJSON, err := json.Marshal(r.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	timingJSON, err := json.Marshal(r.Timing)
	if err != nil {
		return fmt.Errorf("marshal timing: %w", err)
	}

	_, err = d.Pool.ExecContext(ctx,
		`INSERT INTO runs (id, template_id, template_ver, state, model, response_id, warnings, timing, error, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.ID, r.TemplateID, r.TemplateVer, string(r.State), r.Model, r.ResponseID,
		warningsJSON, timingJSON, r.Error, r.CreatedAt, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Get retrieves a run record by ID.
func (d *DB) Get(ctx context.Context, id string) (*Record, error) {
	r := &Record{}
	var state string
	var warningsJSON, timingJSON []byte

	err := d.Pool.QueryRowContext(ctx,
		`SELECT id, template_id, template_ver, state, model, response_id, warnings, timing, error, created_at, completed_at
		 FROM runs WHERE id = $1`, id,
	).Scan(&r.ID, &r.TemplateID, &r.TemplateVer, &state, &r.Model, &r.ResponseID,
		&warningsJSON, &timingJSON, &r.Error, &r.CreatedAt, &r.CompletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	r.State = pipeline.State(state)
	json.Unmarshal(warningsJSON, &r.Warnings)
	json.Unmarshal(timingJSON, &r.Timing)
	return r, nil
}

// ListByTemplate returns runs for templateID, newest first.
func (d *DB) ListByTemplate(ctx context.Context, templateID string, limit, offset int) ([]*Record, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT id, template_id, template_ver, state, model, response_id, warnings, timing, error, created_at, completed_at
		 FROM runs WHERE template_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		templateID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		r := &Record{}
		var state string
		var warningsJSON, timingJSON []byte
		if err := rows.Scan(&r.ID, &r.TemplateID, &r.TemplateVer, &state, &r.Model, &r.ResponseID,
			&warningsJSON, &timingJSON, &r.Error, &r.CreatedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.State = pipeline.State(state)
		json.Unmarshal(warningsJSON, &r.Warnings)
		json.Unmarshal(timingJSON, &r.Timing)
		out = append(out, r)
	}
	return out, nil
}
