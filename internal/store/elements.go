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
	"strings"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/props"
)

// SelectElement selects id on the current page. An empty id clears the selection.
func (s *Store) SelectElement(id string) Result {
	return s.mutate("select", func(doc *domain.Document) (change, error) {
		if id != "" {
			if _, ok := doc.Find(id); !ok {
				return change{id: id}, notFound("element", id)
			}
		}
		doc.SelectedID = id
		return change{id: id}, nil
	})
}

// SetElementProperty writes value at path in the selected element's property tree.
func (s *Store) SetElementProperty(path props.Path, value props.Value) Result {
	s.mu.Lock()
	sel := s.project.Documents[s.page].SelectedID
	s.mu.Unlock()
	if sel == "" {
		return s.reject("set-property", fmt.Errorf("%w: no element selected", ErrNotFound))
	}
	return s.SetProperty(sel, path, value)
}

// SetProperty writes value at path in the property tree of element id.
// Intermediate maps are created and every sibling key is preserved.
func (s *Store) SetProperty(id string, path props.Path, value props.Value) Result {
	return s.mutate("set-property", func(doc *domain.Document) (change, error) {
		if len(path) == 0 {
			return change{id: id}, fmt.Errorf("%w: empty property path", ErrInvalidOperation)
		}
		el := element(doc, id)
		if el == nil {
			return change{id: id}, notFound("element", id)
		}
		el.Props = el.Props.Set(path, value)
		return change{id: id, record: true}, nil
	})
}

// DeleteProperty removes the entry at path from element id.
func (s *Store) DeleteProperty(id string, path props.Path) Result {
	return s.mutate("delete-property", func(doc *domain.Document) (change, error) {
		el := element(doc, id)
		if el == nil {
			return change{id: id}, notFound("element", id)
		}
		if _, ok := el.Props.Get(path); !ok || len(path) == 0 {
			return change{id: id}, notFound("property", path.String())
		}
		el.Props = el.Props.Delete(path)
		return change{id: id, record: true}, nil
	})
}

// InsertElement adds a new element of kind at the given document position and
// selects it. Sections ignore at.X; they always start at x=0 and span the frame.
func (s *Store) InsertElement(kind domain.Kind, at domain.Position) Result {
	if !kind.Valid() {
		return s.reject("insert", fmt.Errorf("%w: unknown element kind %q", ErrInvalidOperation, kind))
	}
	frame := s.FrameWidth()
	return s.mutate("insert", func(doc *domain.Document) (change, error) {
		el := domain.Element{ID: s.uniqueID(doc), Kind: kind, Props: props.EmptyMap()}
		switch kind {
		case domain.KindSection:
			el.Name = fmt.Sprintf("Section %d", len(doc.Sections)+1)
			el.Position = domain.Position{X: 0, Y: max(at.Y, 0)}
			el.Size = domain.Size{Width: frame, Height: DefaultSectionHeight}
			doc.Sections = append(doc.Sections, el)
		default:
			el.Name = fmt.Sprintf("Component %d", len(doc.Components)+1)
			el.Position = domain.Position{X: max(at.X, 0), Y: max(at.Y, 0)}
			el.Size = domain.Size{Width: DefaultComponentWidth, Height: DefaultComponentHeight}
			doc.Components = append(doc.Components, el)
		}
		doc.SelectedID = el.ID
		return change{id: el.ID, record: true}, nil
	})
}

// RemoveElement deletes an element. Deleting the selected element clears the
// selection. Page ids are accepted too: the permanent page is rejected with
// ErrInvalidOperation, other pages are removed as by RemovePage.
func (s *Store) RemoveElement(id string) Result {
	s.mu.Lock()
	_, isElement := s.project.Documents[s.page].Find(id)
	_, isPage := s.pageIndexLocked(id)
	s.mu.Unlock()
	if !isElement && isPage >= 0 {
		return s.RemovePage(id)
	}
	return s.mutate("remove", func(doc *domain.Document) (change, error) {
		kind, i := doc.IndexOf(id)
		if i < 0 {
			return change{id: id}, notFound("element", id)
		}
		if kind == domain.KindSection {
			doc.Sections = append(doc.Sections[:i], doc.Sections[i+1:]...)
		} else {
			doc.Components = append(doc.Components[:i], doc.Components[i+1:]...)
		}
		if doc.SelectedID == id {
			doc.SelectedID = ""
		}
		return change{id: id, record: true}, nil
	})
}

// DuplicateElement deep-copies id under a fresh id and a derived name. The copy
// is appended on top of its collection, offset slightly, and selected.
func (s *Store) DuplicateElement(id string) Result {
	return s.mutate("duplicate", func(doc *domain.Document) (change, error) {
		src, ok := doc.Find(id)
		if !ok {
			return change{id: id}, notFound("element", id)
		}
		cp := src.Clone()
		cp.ID = s.uniqueID(doc)
		cp.Name = copyName(src.Name, doc)
		if cp.Kind == domain.KindSection {
			cp.Position.Y += sectionHeight(src)
			doc.Sections = append(doc.Sections, cp)
		} else {
			cp.Position.X += duplicateOffset
			cp.Position.Y += duplicateOffset
			doc.Components = append(doc.Components, cp)
		}
		doc.SelectedID = cp.ID
		return change{id: cp.ID, record: true}, nil
	})
}

// RenameElement sets the display name of an element, or of a page when id
// names one. The permanent page cannot be renamed.
func (s *Store) RenameElement(id, name string) Result {
	name = strings.TrimSpace(name)
	s.mu.Lock()
	_, isElement := s.project.Documents[s.page].Find(id)
	_, pi := s.pageIndexLocked(id)
	s.mu.Unlock()
	if !isElement && pi >= 0 {
		return s.RenamePage(id, name)
	}
	return s.mutate("rename", func(doc *domain.Document) (change, error) {
		el := element(doc, id)
		if el == nil {
			return change{id: id}, notFound("element", id)
		}
		if name == "" {
			return change{id: id}, fmt.Errorf("%w: empty name", ErrInvalidOperation)
		}
		el.Name = name
		return change{id: id, record: true}, nil
	})
}

// MoveElement places an element at pos. Sections keep x=0.
func (s *Store) MoveElement(id string, pos domain.Position) Result {
	return s.mutate("move", func(doc *domain.Document) (change, error) {
		el := element(doc, id)
		if el == nil {
			return change{id: id}, notFound("element", id)
		}
		if el.Kind == domain.KindSection {
			pos.X = 0
		}
		if el.Position == pos {
			return change{id: id, unchanged: true}, nil
		}
		el.Position = pos
		return change{id: id, record: true}, nil
	})
}

// ResizeElement sets the element size. A section's width always follows the frame.
func (s *Store) ResizeElement(id string, size domain.Size) Result {
	frame := s.FrameWidth()
	return s.mutate("resize", func(doc *domain.Document) (change, error) {
		el := element(doc, id)
		if el == nil {
			return change{id: id}, notFound("element", id)
		}
		if size.Width < 0 || size.Height < 0 {
			return change{id: id}, fmt.Errorf("%w: negative size", ErrInvalidOperation)
		}
		if el.Kind == domain.KindSection {
			size.Width = frame
		}
		el.Size = size
		return change{id: id, record: true}, nil
	})
}

// uniqueID draws ids until one is free in doc and among page ids.
func (s *Store) uniqueID(doc *domain.Document) string {
	for {
		id := s.newID()
		if _, taken := doc.Find(id); taken {
			continue
		}
		if _, pi := s.pageIndexLocked(id); pi >= 0 {
			continue
		}
		return id
	}
}

func copyName(name string, doc *domain.Document) string {
	base := name + " copy"
	taken := map[string]bool{}
	for _, e := range doc.Elements() {
		taken[e.Name] = true
	}
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		cand := fmt.Sprintf("%s %d", base, n)
		if !taken[cand] {
			return cand
		}
	}
}

func sectionHeight(e domain.Element) float64 {
	if e.Size.Height > 0 {
		return e.Size.Height
	}
	return DefaultSectionHeight
}
