/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "clipcomposer/internal/log"
	"clipcomposer/internal/render"
	"clipcomposer/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// LedgerDirName stores per-project local state under the project root.
	LedgerDirName  = ".clip"
	LedgerFileName = "jobs.sqlite"

	// schemaVersion tracks the local SQLite schema for the ledger.
	schemaVersion = 2

	statusSubmitted = "submitted"

	// fixed width so stored stamps sort lexicographically
	stampLayout = "2006-01-02T15:04:05.000000000Z"
)

// LedgerPath returns the full path to the project's job ledger file.
func LedgerPath(projectRoot string) string {
	return filepath.Join(projectRoot, LedgerDirName, LedgerFileName)
}

// JobRecord is one row of the ledger.
type JobRecord struct {
	ID           string
	OwnerID      string
	OutputFormat string
	Clips        int
	Status       string
	URL          string
	Error        string
	Polls        int
	SubmittedAt  time.Time
	FinishedAt   time.Time
}

// Finished reports whether an outcome was recorded.
func (r JobRecord) Finished() bool { return !r.FinishedAt.IsZero() }

// JobLedger records render submissions and outcomes in SQLite.
type JobLedger struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

var _ render.Recorder = (*JobLedger)(nil)

// OpenLedger ensures the ledger exists at .clip/jobs.sqlite, opens it in WAL
// mode and brings its schema up to date. Callers must Close it.
func OpenLedger(projectRoot string) (*JobLedger, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "ledger_open").With(
		slog.String("root", projectRoot),
	)
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	if err := os.MkdirAll(filepath.Join(projectRoot, LedgerDirName), 0o755); err != nil {
		l.Error("create .clip dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .clip dir: %w", err)
	}

	path := LedgerPath(projectRoot)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("ledger ready", slog.String("path", path))
	return &JobLedger{db: db, log: applog.WithComponent("storage"), now: time.Now}, nil
}

func (j *JobLedger) Close() error { return j.db.Close() }

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh database: start at 0 so every migration runs
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 0, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

var migrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS jobs (
			id            TEXT PRIMARY KEY,
			owner_id      TEXT NOT NULL DEFAULT '',
			output_format TEXT NOT NULL DEFAULT '',
			clips         INTEGER NOT NULL DEFAULT 0,
			status        TEXT NOT NULL,
			url           TEXT NOT NULL DEFAULT '',
			error         TEXT NOT NULL DEFAULT '',
			polls         INTEGER NOT NULL DEFAULT 0,
			submitted_at  TEXT NOT NULL,
			finished_at   TEXT NOT NULL DEFAULT ''
		);`,
	},
	2: {
		`CREATE INDEX IF NOT EXISTS idx_jobs_submitted ON jobs(submitted_at);`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);`,
	},
}

// SchemaVersion reads the ledger's current schema version.
func (j *JobLedger) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := j.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for next := cur + 1; next <= schemaVersion; next++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range migrations[next] {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
	}
	return nil
}

// RecordSubmitted inserts a new job row.
func (j *JobLedger) RecordSubmitted(ctx context.Context, jobID string, req render.Request) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO jobs (id, owner_id, output_format, clips, status, submitted_at) VALUES(?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status=excluded.status, submitted_at=excluded.submitted_at, finished_at=''`,
		jobID, req.OwnerID, req.OutputFormat, len(req.Source.Clips), statusSubmitted, j.stamp())
	if err != nil {
		return fmt.Errorf("record submission %s: %w", jobID, err)
	}
	return nil
}

// RecordOutcome stores the terminal state of a job. Unknown ids are inserted.
func (j *JobLedger) RecordOutcome(ctx context.Context, o render.Outcome) error {
	errText := ""
	if o.Err != nil {
		errText = o.Err.Error()
	}
	now := j.stamp()
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO jobs (id, status, url, error, polls, submitted_at, finished_at) VALUES(?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status=excluded.status, url=excluded.url, error=excluded.error,
		   polls=excluded.polls, finished_at=excluded.finished_at`,
		o.JobID, string(o.State), o.Job.URL, errText, o.Polls, now, now)
	if err != nil {
		return fmt.Errorf("record outcome %s: %w", o.JobID, err)
	}
	j.log.Debug("job outcome recorded", slog.String("job", o.JobID), slog.String("state", string(o.State)))
	return nil
}

const jobColumns = `id, owner_id, output_format, clips, status, url, error, polls, submitted_at, finished_at`

// Jobs lists recorded jobs, newest first. limit <= 0 returns all.
func (j *JobLedger) Jobs(ctx context.Context, limit int) ([]JobRecord, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs ORDER BY submitted_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()
	var out []JobRecord
	for rows.Next() {
		r, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Job returns one record.
func (j *JobLedger) Job(ctx context.Context, id string) (JobRecord, bool, error) {
	r, err := scanJob(j.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return JobRecord{}, false, nil
	}
	if err != nil {
		return JobRecord{}, false, err
	}
	return r, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(s scanner) (JobRecord, error) {
	var r JobRecord
	var sub, fin string
	if err := s.Scan(&r.ID, &r.OwnerID, &r.OutputFormat, &r.Clips, &r.Status, &r.URL, &r.Error, &r.Polls, &sub, &fin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return JobRecord{}, err
		}
		return JobRecord{}, fmt.Errorf("scan job: %w", err)
	}
	r.SubmittedAt = parseStamp(sub)
	r.FinishedAt = parseStamp(fin)
	return r, nil
}

// Pending lists jobs that were submitted but have no recorded outcome.
func (j *JobLedger) Pending(ctx context.Context) ([]JobRecord, error) {
	all, err := j.Jobs(ctx, 0)
	if err != nil {
		return nil, err
	}
	var out []JobRecord
	for _, r := range all {
		if !r.Finished() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (j *JobLedger) stamp() string { return j.now().UTC().Format(stampLayout) }

func parseStamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(stampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
