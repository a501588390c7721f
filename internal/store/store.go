/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package store owns the canonical document of an opened project and the
// mutation protocol the editor components use to change it.
//
// A Store is created when a project is opened and handed to every component
// that edits it. Mutations never panic on bad input: they return a Result
// whose Err is ErrNotFound or ErrInvalidOperation and leave the state (and
// version) untouched. Successful mutations bump the version and notify
// subscribers with the new Snapshot after the store lock is released.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"clipcomposer/internal/domain"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/undo"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidOperation = errors.New("invalid operation")
)

// Default sizes for inserted elements.
const (
	DefaultSectionHeight   = 320
	DefaultComponentWidth  = 240
	DefaultComponentHeight = 120
	duplicateOffset        = 16
)

// Snapshot is an immutable-by-convention view of the current page.
// Callers must not modify the slices it carries.
type Snapshot struct {
	Version  uint64
	PageID   string
	Document domain.Document
}

// Result is returned by every mutation. ID names the element or page the
// mutation created or touched, when there is one.
type Result struct {
	Snapshot Snapshot
	ID       string
	Err      error
}

func (r Result) OK() bool { return r.Err == nil }

// Options tune a Store. The zero value is usable.
type Options struct {
	History undo.Config
	// NewID generates element and page ids; defaults to random UUIDs.
	NewID  func() string
	Logger *slog.Logger
}

// Store holds a project and the id of the page being edited.
type Store struct {
	mu      sync.Mutex
	project domain.Project
	page    string
	version uint64
	history *undo.Manager[domain.Document]
	subs    map[int]func(Snapshot)
	nextSub int
	newID   func() string
	log     *slog.Logger
}

// New opens p for editing on its home page. p is normalized first so the
// permanent page always exists.
func New(p domain.Project, opts Options) *Store {
	p.Normalize()
	docs := make(map[string]domain.Document, len(p.Documents))
	for id, d := range p.Documents {
		docs[id] = d.Clone()
	}
	p.Documents = docs
	p.Pages = append([]domain.Page(nil), p.Pages...)
	p.Composition = p.Composition.Clone()
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("store")
	}
	return &Store{
		project: p,
		page:    domain.HomePageID,
		history: undo.NewManager[domain.Document](opts.History),
		subs:    map[int]func(Snapshot){},
		newID:   opts.NewID,
		log:     opts.Logger,
	}
}

// Subscribe registers fn for every committed mutation and returns a function that removes it.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot returns the current page state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Document is shorthand for Snapshot().Document.
func (s *Store) Document() domain.Document { return s.Snapshot().Document }

// Version returns the mutation counter.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// FrameWidth returns the editing frame width of the project.
func (s *Store) FrameWidth() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.project.Frame()
}

// Pages returns the project pages in order.
func (s *Store) Pages() []domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Page(nil), s.project.Pages...)
}

// Project returns a deep copy of the whole project, ready to be saved.
func (s *Store) Project() domain.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.project
	p.Pages = append([]domain.Page(nil), s.project.Pages...)
	p.Documents = make(map[string]domain.Document, len(s.project.Documents))
	for id, d := range s.project.Documents {
		p.Documents[id] = d.Clone()
	}
	p.Composition = s.project.Composition.Clone()
	return p
}

// SetComposition replaces the composition saved with the project.
func (s *Store) SetComposition(c domain.Composition) {
	s.mu.Lock()
	s.project.Composition = c.Clone()
	s.mu.Unlock()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Version: s.version, PageID: s.page, Document: s.project.Documents[s.page]}
}

// change is the outcome of an edit function: the affected id and whether the
// pre-change document should be recorded for undo.
type change struct {
	id     string
	record bool
	// unchanged skips the commit: no version bump, no notification.
	unchanged bool
}

// mutate runs fn on a copy-on-write copy of the current document. On success
// the copy replaces the document, the version is bumped and subscribers are notified.
func (s *Store) mutate(op string, fn func(doc *domain.Document) (change, error)) Result {
	s.mu.Lock()
	before := s.project.Documents[s.page]
	doc := cow(before)
	ch, err := fn(&doc)
	if err != nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.log.Warn("mutation rejected", slog.String("op", op), slog.String("page", snap.PageID), slog.Any("err", err))
		return Result{Snapshot: snap, ID: ch.id, Err: err}
	}
	if ch.unchanged {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return Result{Snapshot: snap, ID: ch.id}
	}
	if ch.record {
		s.history.Record(undo.Entry[domain.Document]{Page: s.page, State: before, Size: docSize(before)})
	}
	s.project.Documents[s.page] = doc
	return s.commitLocked(op, ch.id)
}

// commitLocked bumps the version, releases the lock and notifies subscribers.
func (s *Store) commitLocked(op, id string) Result {
	s.version++
	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	keys := make([]int, 0, len(s.subs))
	for k := range s.subs {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	for _, k := range keys {
		subs = append(subs, s.subs[k])
	}
	s.mu.Unlock()
	s.log.Debug("mutation applied", slog.String("op", op), slog.String("id", id), slog.Uint64("version", snap.Version))
	for _, fn := range subs {
		fn(snap)
	}
	return Result{Snapshot: snap, ID: id}
}

func (s *Store) reject(op string, err error) Result {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.log.Warn("mutation rejected", slog.String("op", op), slog.String("page", snap.PageID), slog.Any("err", err))
	return Result{Snapshot: snap, Err: err}
}

// cow copies the element slices so edits never touch a published snapshot.
// Property trees are immutable and stay shared.
func cow(d domain.Document) domain.Document {
	return domain.Document{
		Sections:   append(make([]domain.Element, 0, len(d.Sections)+1), d.Sections...),
		Components: append(make([]domain.Element, 0, len(d.Components)+1), d.Components...),
		SelectedID: d.SelectedID,
	}
}

// docSize estimates the memory held by a document for the undo byte cap.
func docSize(d domain.Document) int {
	n := 64
	for _, e := range d.Elements() {
		n += 96 + len(e.ID) + len(e.Name) + len(e.Props.String())
	}
	return n
}

func notFound(what, id string) error { return fmt.Errorf("%w: %s %q", ErrNotFound, what, id) }

// element returns a pointer into doc's (already copied) slices.
func element(doc *domain.Document, id string) *domain.Element {
	kind, i := doc.IndexOf(id)
	if i < 0 {
		return nil
	}
	if kind == domain.KindSection {
		return &doc.Sections[i]
	}
	return &doc.Components[i]
}
