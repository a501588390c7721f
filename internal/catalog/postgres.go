/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package catalog

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	applog "clipcomposer/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres is a Catalog backed by a Postgres media table.
type Postgres struct {
	db  *sql.DB
	log *slog.Logger
}

var _ Catalog = (*Postgres)(nil)

// Open connects to dsn, pings it and applies pending migrations.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("catalog dsn required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	p := &Postgres{db: db, log: applog.WithComponent("catalog")}
	if err := p.Migrate(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate applies embedded SQL migrations in filename order and records each
// version in schema_migrations.
func (p *Postgres) Migrate(ctx context.Context) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}
	if _, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	applied := map[int64]bool{}
	rows, err := p.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("select schema_migrations: %w", err)
	}
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			_ = rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}
	for _, fname := range files {
		version, err := parseVersion(fname)
		if err != nil {
			return err
		}
		if applied[version] {
			continue
		}
		b, err := migrationsFS.ReadFile(path.Join("migrations", fname))
		if err != nil {
			return err
		}
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, string(b)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", fname, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, version, fname); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", fname, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", fname, err)
		}
		p.log.Info("migration applied", slog.String("file", fname))
	}
	return nil
}

func migrationFiles() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func parseVersion(name string) (int64, error) {
	base := path.Base(name)
	prefix, _, ok := strings.Cut(base, "_")
	if !ok {
		return 0, errors.New("invalid migration filename: " + name)
	}
	v, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse version from %s: %w", name, err)
	}
	return v, nil
}

// Search runs q against the media table.
func (p *Postgres) Search(ctx context.Context, q Query) ([]Item, error) {
	query, args := BuildSearch(q)
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search media: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Get fetches one item by id.
func (p *Postgres) Get(ctx context.Context, id string) (Item, bool, error) {
	row := p.db.QueryRowContext(ctx, `SELECT id, kind, title, url, duration_sec, array_to_string(tags, ','), transcript, updated_at FROM media WHERE id = $1`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, false, nil
	}
	if err != nil {
		return Item{}, false, err
	}
	return it, true, nil
}

// Upsert inserts or replaces it.
func (p *Postgres) Upsert(ctx context.Context, it Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	tags := normalizeTags(it.Tags)
	_, err := p.db.ExecContext(ctx, `INSERT INTO media(id, kind, title, url, duration_sec, tags, transcript, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE SET kind=EXCLUDED.kind, title=EXCLUDED.title, url=EXCLUDED.url,
		  duration_sec=EXCLUDED.duration_sec, tags=EXCLUDED.tags, transcript=EXCLUDED.transcript, updated_at=now()`,
		it.ID, it.Kind, it.Title, it.URL, it.DurationSec, tags, it.Transcript)
	if err != nil {
		return fmt.Errorf("upsert media %s: %w", it.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (Item, error) {
	var (
		it   Item
		tags string
	)
	if err := s.Scan(&it.ID, &it.Kind, &it.Title, &it.URL, &it.DurationSec, &tags, &it.Transcript, &it.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Item{}, err
		}
		return Item{}, fmt.Errorf("scan media: %w", err)
	}
	if tags != "" {
		it.Tags = strings.Split(tags, ",")
	}
	return it, nil
}

var knownKinds = map[string]bool{"video": true, "audio": true, "image": true}

// Validate checks the fields a clip needs to reference the item.
func (it Item) Validate() error {
	if strings.TrimSpace(it.ID) == "" {
		return errors.New("media id required")
	}
	if !knownKinds[it.Kind] {
		return fmt.Errorf("media %s: unknown kind %q", it.ID, it.Kind)
	}
	if strings.TrimSpace(it.URL) == "" {
		return fmt.Errorf("media %s: url required", it.ID)
	}
	if it.DurationSec < 0 {
		return fmt.Errorf("media %s: negative duration", it.ID)
	}
	return nil
}

func normalizeTags(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, t := range in {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
