/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Entry is a reversible state recorded for a page. State is opaque to the
// manager; Size is its accounted weight in bytes and TS when it was captured.
type Entry[T any] struct {
	Page  string
	State T
	Size  int
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerPage limits number of entries per page kept in memory (0 means unlimited).
	MaxPerPage int
	// MinInterval coalesces entries recorded within the interval for the same
	// page: the earlier entry is kept so one undo reverts the whole burst.
	// Zero disables coalescing.
	MinInterval time.Duration
}

// Manager keeps undo/redo stacks per page. Callers record the state
// before a change; Undo and Redo exchange the caller's current state for the
// stored one. It is safe for concurrent use.
type Manager[T any] struct {
	cfg Config
	mu  sync.Mutex
	// per-page stacks
	undo map[string][]Entry[T]
	redo map[string][]Entry[T]
	// accounting
	totalBytes int
}

func NewManager[T any](cfg Config) *Manager[T] {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	return &Manager[T]{cfg: cfg, undo: make(map[string][]Entry[T]), redo: make(map[string][]Entry[T])}
}

// Record pushes the pre-change state of a page and clears its redo stack.
func (m *Manager[T]) Record(e Entry[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.TS.IsZero() {
		e.TS = time.Now()
	}
	m.clearRedoLocked(e.Page)
	stack := m.undo[e.Page]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 {
		last := stack[n-1]
		if e.TS.Sub(last.TS) < m.cfg.MinInterval {
			// keep the older state, extend the burst window
			last.TS = e.TS
			stack[n-1] = last
			return
		}
	}
	m.undo[e.Page] = append(stack, e)
	m.totalBytes += e.Size
	m.enforceCapsLocked(e.Page)
}

// Undo pops the latest recorded state of a page and parks current on the redo stack.
func (m *Manager[T]) Undo(current Entry[T]) (Entry[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[current.Page]
	if len(stack) == 0 {
		return Entry[T]{}, false
	}
	e := stack[len(stack)-1]
	m.undo[current.Page] = stack[:len(stack)-1]
	m.totalBytes -= e.Size
	m.redo[current.Page] = append(m.redo[current.Page], current)
	m.totalBytes += current.Size
	return e, true
}

// Redo pops the latest undone state and records current as undoable again.
func (m *Manager[T]) Redo(current Entry[T]) (Entry[T], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[current.Page]
	if len(r) == 0 {
		return Entry[T]{}, false
	}
	e := r[len(r)-1]
	m.redo[current.Page] = r[:len(r)-1]
	m.totalBytes -= e.Size
	m.undo[current.Page] = append(m.undo[current.Page], current)
	m.totalBytes += current.Size
	m.enforceCapsLocked(current.Page)
	return e, true
}

// CanUndo and CanRedo report whether a page has entries on the respective stack.
func (m *Manager[T]) CanUndo(page string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[page]) > 0
}

func (m *Manager[T]) CanRedo(page string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[page]) > 0
}

// ClearPage drops both stacks of a page, for example when the page is removed.
func (m *Manager[T]) ClearPage(page string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.undo[page] {
		m.totalBytes -= e.Size
	}
	m.clearRedoLocked(page)
	delete(m.undo, page)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager[T]) Stats() (totalBytes int, pages int, totalEntries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pages = len(m.undo)
	for _, v := range m.undo {
		totalEntries += len(v)
	}
	return m.totalBytes, pages, totalEntries
}

func (m *Manager[T]) clearRedoLocked(page string) {
	for _, e := range m.redo[page] {
		m.totalBytes -= e.Size
	}
	delete(m.redo, page)
}

func (m *Manager[T]) enforceCapsLocked(page string) {
	if m.cfg.MaxPerPage > 0 {
		stack := m.undo[page]
		if len(stack) > m.cfg.MaxPerPage {
			toDrop := len(stack) - m.cfg.MaxPerPage
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= stack[i].Size
			}
			m.undo[page] = append([]Entry[T]{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest undo entries across all pages
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestPage := ""
		found := false
		var oldestTS time.Time
		for pg, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestPage, oldestTS, found = pg, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestPage]
		m.totalBytes -= stack[0].Size
		m.undo[oldestPage] = stack[1:]
		if len(m.undo[oldestPage]) == 0 {
			delete(m.undo, oldestPage)
		}
	}
}
