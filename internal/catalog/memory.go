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
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory is an in-process Catalog with the same filter semantics as Postgres.
// Text matching is a case-insensitive all-words match over title and transcript.
type Memory struct {
	mu    sync.RWMutex
	items map[string]Item
	now   func() time.Time
}

var _ Catalog = (*Memory)(nil)

func NewMemory(items ...Item) *Memory {
	m := &Memory{items: map[string]Item{}, now: time.Now}
	for _, it := range items {
		_ = m.Upsert(context.Background(), it)
	}
	return m
}

func (m *Memory) Upsert(_ context.Context, it Item) error {
	if err := it.Validate(); err != nil {
		return err
	}
	it.Tags = normalizeTags(it.Tags)
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = m.now()
	}
	m.mu.Lock()
	m.items[it.ID] = it
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (Item, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	return it, ok, nil
}

func (m *Memory) Search(_ context.Context, q Query) ([]Item, error) {
	words := strings.Fields(strings.ToLower(q.Text))
	kinds := map[string]bool{}
	for _, k := range q.Kinds {
		kinds[k] = true
	}
	want := normalizeTags(q.Tags)
	m.mu.RLock()
	var out []Item
	for _, it := range m.items {
		if len(kinds) > 0 && !kinds[it.Kind] {
			continue
		}
		if q.MinDuration > 0 && it.DurationSec < q.MinDuration {
			continue
		}
		if q.MaxDuration > 0 && it.DurationSec > q.MaxDuration {
			continue
		}
		if !hasTags(it.Tags, want) || !matchesWords(it, words) {
			continue
		}
		out = append(out, it)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	off := q.Offset
	if off < 0 {
		off = 0
	}
	if off >= len(out) {
		return nil, nil
	}
	out = out[off:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func hasTags(have, want []string) bool {
	for _, w := range want {
		i := sort.SearchStrings(have, w)
		if i >= len(have) || have[i] != w {
			return false
		}
	}
	return true
}

func matchesWords(it Item, words []string) bool {
	if len(words) == 0 {
		return true
	}
	hay := strings.Fields(strings.ToLower(it.Title + " " + it.Transcript))
	set := make(map[string]bool, len(hay))
	for _, h := range hay {
		set[strings.Trim(h, ".,!?;:\"'")] = true
	}
	for _, w := range words {
		if !set[w] {
			return false
		}
	}
	return true
}
