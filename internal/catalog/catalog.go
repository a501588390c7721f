/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package catalog looks up media sources (videos, audio, images) that clips
// can point at. The Postgres implementation keeps a full-text index over
// titles and transcripts.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Item is one media source.
type Item struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	DurationSec float64   `json:"durationSec"`
	Tags        []string  `json:"tags,omitempty"`
	Transcript  string    `json:"transcript,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Query filters a search. Zero fields do not filter.
type Query struct {
	Text        string
	Kinds       []string
	Tags        []string
	MinDuration float64
	MaxDuration float64
	Limit       int
	Offset      int
}

// Catalog searches and maintains media sources.
type Catalog interface {
	Search(ctx context.Context, q Query) ([]Item, error)
	Get(ctx context.Context, id string) (Item, bool, error)
	Upsert(ctx context.Context, it Item) error
}

const (
	DefaultLimit = 50
	maxLimit     = 500
)

// BuildSearch renders q as a parameterised Postgres query.
func BuildSearch(q Query) (string, []any) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	text := strings.TrimSpace(q.Text)
	b.WriteString("SELECT m.id, m.kind, m.title, m.url, m.duration_sec, array_to_string(m.tags, ','), m.transcript, m.updated_at FROM media m WHERE TRUE")
	if text != "" {
		b.WriteString(" AND m.search_vector @@ plainto_tsquery('simple', " + place(text) + ")")
	}
	if len(q.Kinds) > 0 {
		b.WriteString(" AND m.kind = ANY (" + place(q.Kinds) + ")")
	}
	var tags []string
	for _, t := range q.Tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) > 0 {
		b.WriteString(" AND m.tags @> " + place(tags))
	}
	if q.MinDuration > 0 {
		b.WriteString(" AND m.duration_sec >= " + place(q.MinDuration))
	}
	if q.MaxDuration > 0 {
		b.WriteString(" AND m.duration_sec <= " + place(q.MaxDuration))
	}
	if text != "" {
		b.WriteString(" ORDER BY ts_rank(m.search_vector, plainto_tsquery('simple', $1)) DESC, m.id")
	} else {
		b.WriteString(" ORDER BY m.updated_at DESC, m.id")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))
	return b.String(), args
}
