/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package store

import (
	"fmt"
	"log/slog"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/undo"
)

func (s *Store) pageIndexLocked(id string) (domain.Page, int) {
	for i, p := range s.project.Pages {
		if p.ID == id {
			return p, i
		}
	}
	return domain.Page{}, -1
}

// AddPage appends a new empty page. The current page does not change.
func (s *Store) AddPage() Result {
	s.mu.Lock()
	doc := s.project.Documents[s.page]
	id := s.uniqueID(&doc)
	s.project.Pages = append(append([]domain.Page(nil), s.project.Pages...),
		domain.Page{ID: id, Name: fmt.Sprintf("Page %d", len(s.project.Pages)+1)})
	s.project.Documents[id] = domain.Document{Sections: []domain.Element{}, Components: []domain.Element{}}
	return s.commitLocked("add-page", id)
}

// RenamePage changes a page's display name. The permanent page is rejected.
func (s *Store) RenamePage(id, name string) Result {
	s.mu.Lock()
	pg, i := s.pageIndexLocked(id)
	var err error
	switch {
	case i < 0:
		err = notFound("page", id)
	case pg.Permanent || id == domain.HomePageID:
		err = fmt.Errorf("%w: page %q cannot be renamed", ErrInvalidOperation, id)
	case name == "":
		err = fmt.Errorf("%w: empty name", ErrInvalidOperation)
	}
	if err != nil {
		s.mu.Unlock()
		return s.reject("rename-page", err)
	}
	pages := append([]domain.Page(nil), s.project.Pages...)
	pages[i].Name = name
	s.project.Pages = pages
	return s.commitLocked("rename-page", id)
}

// RemovePage deletes a page and its document. The permanent page is rejected.
// Removing the current page switches to the home page.
func (s *Store) RemovePage(id string) Result {
	s.mu.Lock()
	pg, i := s.pageIndexLocked(id)
	var err error
	switch {
	case i < 0:
		err = notFound("page", id)
	case pg.Permanent || id == domain.HomePageID:
		err = fmt.Errorf("%w: page %q cannot be deleted", ErrInvalidOperation, id)
	}
	if err != nil {
		s.mu.Unlock()
		return s.reject("remove-page", err)
	}
	pages := make([]domain.Page, 0, len(s.project.Pages)-1)
	pages = append(pages, s.project.Pages[:i]...)
	s.project.Pages = append(pages, s.project.Pages[i+1:]...)
	delete(s.project.Documents, id)
	s.history.ClearPage(id)
	if s.page == id {
		s.page = domain.HomePageID
	}
	return s.commitLocked("remove-page", id)
}

// SwitchPage makes id the page being edited.
func (s *Store) SwitchPage(id string) Result {
	s.mu.Lock()
	if _, i := s.pageIndexLocked(id); i < 0 {
		s.mu.Unlock()
		return s.reject("switch-page", notFound("page", id))
	}
	if s.page == id {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return Result{Snapshot: snap, ID: id}
	}
	s.page = id
	return s.commitLocked("switch-page", id)
}

// Undo restores the document state before the last recorded change on the current page.
func (s *Store) Undo() Result {
	s.mu.Lock()
	cur := s.project.Documents[s.page]
	e, ok := s.history.Undo(undo.Entry[domain.Document]{Page: s.page, State: cur, Size: docSize(cur)})
	if !ok {
		s.mu.Unlock()
		return s.reject("undo", fmt.Errorf("%w: nothing to undo", ErrInvalidOperation))
	}
	s.project.Documents[s.page] = e.State
	return s.commitLocked("undo", "")
}

// Redo reapplies the last undone change on the current page.
func (s *Store) Redo() Result {
	s.mu.Lock()
	cur := s.project.Documents[s.page]
	e, ok := s.history.Redo(undo.Entry[domain.Document]{Page: s.page, State: cur, Size: docSize(cur)})
	if !ok {
		s.mu.Unlock()
		return s.reject("redo", fmt.Errorf("%w: nothing to redo", ErrInvalidOperation))
	}
	s.project.Documents[s.page] = e.State
	return s.commitLocked("redo", "")
}

// CanUndo reports whether the current page has history to undo.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	page := s.page
	s.mu.Unlock()
	return s.history.CanUndo(page)
}

// LogValue lets a Store be logged as a compact summary.
func (s *Store) LogValue() slog.Value {
	snap := s.Snapshot()
	return slog.GroupValue(
		slog.String("page", snap.PageID),
		slog.Uint64("version", snap.Version),
		slog.Int("sections", len(snap.Document.Sections)),
		slog.Int("components", len(snap.Document.Components)),
	)
}
