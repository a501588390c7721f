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
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"clipcomposer/internal/domain"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/props"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(domain.NewProject("test"), Options{Logger: applog.Discard()})
}

// seqIDs returns a generator that repeats ids to exercise collision handling.
func seqIDs(ids ...string) func() string {
	i := 0
	return func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}
}

func TestInsertAndDuplicateProduceDistinctIDs(t *testing.T) {
	s := newTestStore(t)
	ids := map[string]bool{}
	for i := 0; i < 20; i++ {
		kind := domain.KindComponent
		if i%3 == 0 {
			kind = domain.KindSection
		}
		r := s.InsertElement(kind, domain.Position{X: float64(i), Y: float64(i)})
		if !r.OK() {
			t.Fatalf("insert %d: %v", i, r.Err)
		}
		d := s.DuplicateElement(r.ID)
		if !d.OK() {
			t.Fatalf("duplicate %d: %v", i, d.Err)
		}
		for _, id := range []string{r.ID, d.ID} {
			if ids[id] {
				t.Fatalf("duplicate id %s", id)
			}
			ids[id] = true
		}
	}
	doc := s.Document()
	if doc.Len() != 40 {
		t.Fatalf("len = %d, want 40", doc.Len())
	}
	if err := doc.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestUniqueIDSkipsCollisions(t *testing.T) {
	s := New(domain.NewProject("ids"), Options{Logger: applog.Discard(), NewID: seqIDs("a", "a", "b", "home", "c")})
	a := s.InsertElement(domain.KindComponent, domain.Position{})
	b := s.InsertElement(domain.KindComponent, domain.Position{})
	c := s.InsertElement(domain.KindComponent, domain.Position{})
	got := []string{a.ID, b.ID, c.ID}
	if diff := cmp.Diff([]string{"a", "b", "c"}, got); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}
}

func TestInsertSectionSpansFrame(t *testing.T) {
	s := newTestStore(t)
	r := s.InsertElement(domain.KindSection, domain.Position{X: 200, Y: 40})
	el, _ := r.Snapshot.Document.Find(r.ID)
	if el.Position.X != 0 || el.Position.Y != 40 {
		t.Fatalf("section position = %+v", el.Position)
	}
	if el.Size.Width != domain.DefaultFrameWidth {
		t.Fatalf("section width = %v", el.Size.Width)
	}
	if r.Snapshot.Document.SelectedID != r.ID {
		t.Fatalf("inserted element not selected")
	}
}

func TestSetElementPropertyPreservesSiblings(t *testing.T) {
	s := newTestStore(t)
	id := s.InsertElement(domain.KindComponent, domain.Position{}).ID
	s.SetProperty(id, props.ParsePath("style.color"), props.Text("#fff"))
	s.SetProperty(id, props.ParsePath("style.font.size"), props.Number(12))
	s.SetProperty(id, props.ParsePath("label"), props.Text("Hello"))

	before, _ := s.Document().Find(id)
	r := s.SetElementProperty(props.ParsePath("style.font.size"), props.Number(18))
	if !r.OK() {
		t.Fatalf("set: %v", r.Err)
	}
	after, _ := r.Snapshot.Document.Find(id)
	if v, _ := after.Props.Get(props.ParsePath("style.font.size")); !v.Equal(props.Number(18)) {
		t.Fatalf("written value = %s", v)
	}
	for _, p := range []string{"style.color", "label"} {
		b, _ := before.Props.Get(props.ParsePath(p))
		a, _ := after.Props.Get(props.ParsePath(p))
		if diff := cmp.Diff(b, a); diff != "" {
			t.Fatalf("%s changed:\n%s", p, diff)
		}
	}
	if v, _ := before.Props.Get(props.ParsePath("style.font.size")); !v.Equal(props.Number(12)) {
		t.Fatalf("earlier snapshot mutated: %s", v)
	}
}

func TestSetElementPropertyWithoutSelection(t *testing.T) {
	s := newTestStore(t)
	v := s.Version()
	r := s.SetElementProperty(props.Path{"x"}, props.Number(1))
	if !errors.Is(r.Err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", r.Err)
	}
	if s.Version() != v {
		t.Fatalf("failed mutation bumped version")
	}
}

func TestUnknownIDsReportNotFound(t *testing.T) {
	s := newTestStore(t)
	checks := map[string]Result{
		"select":    s.SelectElement("nope"),
		"remove":    s.RemoveElement("nope"),
		"duplicate": s.DuplicateElement("nope"),
		"rename":    s.RenameElement("nope", "x"),
		"move":      s.MoveElement("nope", domain.Position{}),
		"switch":    s.SwitchPage("nope"),
	}
	for name, r := range checks {
		if !errors.Is(r.Err, ErrNotFound) {
			t.Fatalf("%s: err = %v, want ErrNotFound", name, r.Err)
		}
	}
	if s.Version() != 0 {
		t.Fatalf("version = %d, want 0", s.Version())
	}
}

func TestDuplicateIsDeepCopyWithDerivedName(t *testing.T) {
	s := newTestStore(t)
	id := s.InsertElement(domain.KindComponent, domain.Position{X: 10, Y: 10}).ID
	s.RenameElement(id, "Title")
	s.SetProperty(id, props.ParsePath("style.color"), props.Text("#000"))
	d := s.DuplicateElement(id)
	cp, _ := d.Snapshot.Document.Find(d.ID)
	if cp.Name != "Title copy" {
		t.Fatalf("name = %q", cp.Name)
	}
	if cp.ID == id {
		t.Fatalf("copy kept source id")
	}
	s.SetProperty(d.ID, props.ParsePath("style.color"), props.Text("#f00"))
	src, _ := s.Document().Find(id)
	if v, _ := src.Props.Get(props.ParsePath("style.color")); !v.Equal(props.Text("#000")) {
		t.Fatalf("source aliased by duplicate: %s", v)
	}
	again := s.DuplicateElement(id)
	cp2, _ := again.Snapshot.Document.Find(again.ID)
	if cp2.Name != "Title copy 2" {
		t.Fatalf("second copy name = %q", cp2.Name)
	}
}

func TestRemoveSelectedClearsSelection(t *testing.T) {
	s := newTestStore(t)
	id := s.InsertElement(domain.KindComponent, domain.Position{}).ID
	r := s.RemoveElement(id)
	if !r.OK() || r.Snapshot.Document.SelectedID != "" {
		t.Fatalf("selection after remove = %q err=%v", r.Snapshot.Document.SelectedID, r.Err)
	}
}

func TestPermanentPageCannotBeRenamedOrDeleted(t *testing.T) {
	s := newTestStore(t)
	s.AddPage()
	pages := s.Pages()
	for name, r := range map[string]Result{
		"rename":      s.RenameElement(domain.HomePageID, "Start"),
		"rename-page": s.RenamePage(domain.HomePageID, "Start"),
		"remove":      s.RemoveElement(domain.HomePageID),
		"remove-page": s.RemovePage(domain.HomePageID),
	} {
		if !errors.Is(r.Err, ErrInvalidOperation) {
			t.Fatalf("%s: err = %v, want ErrInvalidOperation", name, r.Err)
		}
	}
	if diff := cmp.Diff(pages, s.Pages()); diff != "" {
		t.Fatalf("page set changed:\n%s", diff)
	}
}

func TestPagesAddRenameSwitchRemove(t *testing.T) {
	s := New(domain.NewProject("p"), Options{Logger: applog.Discard(), NewID: seqIDs("p2", "e1")})
	add := s.AddPage()
	if add.ID != "p2" || len(s.Pages()) != 2 {
		t.Fatalf("add page: %+v", s.Pages())
	}
	if r := s.RenameElement("p2", "Outro"); !r.OK() {
		t.Fatalf("rename page: %v", r.Err)
	}
	if s.Pages()[1].Name != "Outro" {
		t.Fatalf("page name = %q", s.Pages()[1].Name)
	}
	if r := s.SwitchPage("p2"); !r.OK() || r.Snapshot.PageID != "p2" {
		t.Fatalf("switch: %+v", r)
	}
	s.InsertElement(domain.KindComponent, domain.Position{})
	if s.Project().Documents[domain.HomePageID].Len() != 0 {
		t.Fatalf("insert leaked into home page")
	}
	r := s.RemovePage("p2")
	if !r.OK() || r.Snapshot.PageID != domain.HomePageID {
		t.Fatalf("remove current page: %+v", r)
	}
	if _, ok := s.Project().Documents["p2"]; ok {
		t.Fatalf("document of removed page kept")
	}
}

func TestMoveSectionKeepsXAtZero(t *testing.T) {
	s := newTestStore(t)
	id := s.InsertElement(domain.KindSection, domain.Position{}).ID
	r := s.MoveElement(id, domain.Position{X: 50, Y: 120})
	el, _ := r.Snapshot.Document.Find(id)
	if el.Position != (domain.Position{X: 0, Y: 120}) {
		t.Fatalf("position = %+v", el.Position)
	}
}

func TestMoveToSamePositionIsNotCommitted(t *testing.T) {
	s := newTestStore(t)
	id := s.InsertElement(domain.KindComponent, domain.Position{X: 0.1, Y: 0.7}).ID
	v := s.Version()
	notified := 0
	unsub := s.Subscribe(func(Snapshot) { notified++ })
	defer unsub()
	if r := s.MoveElement(id, domain.Position{X: 0.1, Y: 0.7}); !r.OK() || r.ID != id {
		t.Fatalf("move: id=%q err=%v", r.ID, r.Err)
	}
	if s.Version() != v || notified != 0 {
		t.Fatalf("version %d -> %d, notifications %d", v, s.Version(), notified)
	}
	s.Undo()
	if s.Document().Len() != 0 {
		t.Fatalf("no-op move was recorded in history")
	}
}

func TestUndoRedo(t *testing.T) {
	s := newTestStore(t)
	id := s.InsertElement(domain.KindComponent, domain.Position{X: 10, Y: 10}).ID
	s.MoveElement(id, domain.Position{X: 100, Y: 100})
	if r := s.Undo(); !r.OK() {
		t.Fatalf("undo: %v", r.Err)
	}
	el, _ := s.Document().Find(id)
	if el.Position != (domain.Position{X: 10, Y: 10}) {
		t.Fatalf("after undo position = %+v", el.Position)
	}
	s.Redo()
	el, _ = s.Document().Find(id)
	if el.Position != (domain.Position{X: 100, Y: 100}) {
		t.Fatalf("after redo position = %+v", el.Position)
	}
	s.Undo()
	s.Undo()
	if s.Document().Len() != 0 {
		t.Fatalf("insert not undone")
	}
	if r := s.Undo(); !errors.Is(r.Err, ErrInvalidOperation) {
		t.Fatalf("undo on empty history err = %v", r.Err)
	}
}

func TestSubscribersSeeEveryCommittedVersion(t *testing.T) {
	s := newTestStore(t)
	var seen []uint64
	unsub := s.Subscribe(func(snap Snapshot) { seen = append(seen, snap.Version) })
	s.InsertElement(domain.KindComponent, domain.Position{})
	s.SelectElement("missing")
	s.InsertElement(domain.KindSection, domain.Position{})
	unsub()
	s.InsertElement(domain.KindSection, domain.Position{})
	if diff := cmp.Diff([]uint64{1, 2}, seen); diff != "" {
		t.Fatalf("versions (-want +got):\n%s", diff)
	}
}

func TestSnapshotsAreIsolatedFromLaterEdits(t *testing.T) {
	s := newTestStore(t)
	first := s.InsertElement(domain.KindComponent, domain.Position{}).Snapshot
	for i := 0; i < 5; i++ {
		s.InsertElement(domain.KindComponent, domain.Position{X: float64(i)})
	}
	if len(first.Document.Components) != 1 {
		t.Fatalf("old snapshot grew to %d components", len(first.Document.Components))
	}
	if got := fmt.Sprint(first.Version); got != "1" {
		t.Fatalf("version = %s", got)
	}
}
