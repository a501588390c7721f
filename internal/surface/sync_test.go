/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package surface

import (
	"math/rand"
	"testing"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/drag"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/props"
	"clipcomposer/internal/store"
	"clipcomposer/internal/vector"
)

type rig struct {
	st   *store.Store
	dc   *drag.Controller
	mem  *Memory
	sync *Synchronizer
}

func newRig(t *testing.T, attach bool) *rig {
	t.Helper()
	st := store.New(domain.NewProject("surface"), store.Options{Logger: applog.Discard()})
	dc := drag.New(st, drag.Options{Logger: applog.Discard()})
	mem := NewMemory(vector.R(0, 0, domain.DefaultFrameWidth, 5000))
	if attach {
		mem.Attach()
	}
	s := NewSynchronizer(st, dc, mem, applog.Discard())
	s.Attach()
	t.Cleanup(s.Close)
	return &rig{st: st, dc: dc, mem: mem, sync: s}
}

func (r *rig) assertProjection(t *testing.T) {
	t.Helper()
	doc := r.st.Document()
	want := len(doc.Sections) + len(doc.Components)
	if got := len(r.mem.Nodes()); got != want {
		t.Fatalf("nodes = %d, want %d", got, want)
	}
	if got := r.mem.LiveHandlers(); got != want {
		t.Fatalf("live handlers = %d, want %d (leaked bindings)", got, want)
	}
}

func TestProjectionCountMatchesDocument(t *testing.T) {
	r := newRig(t, true)
	rng := rand.New(rand.NewSource(7))
	var ids []string
	for i := 0; i < 200; i++ {
		switch op := rng.Intn(4); {
		case op == 0 || len(ids) == 0:
			kind := domain.KindComponent
			if rng.Intn(2) == 0 {
				kind = domain.KindSection
			}
			res := r.st.InsertElement(kind, domain.Position{X: rng.Float64() * 800, Y: rng.Float64() * 2000})
			ids = append(ids, res.ID)
		case op == 1:
			id := ids[rng.Intn(len(ids))]
			r.st.MoveElement(id, domain.Position{X: rng.Float64() * 800, Y: rng.Float64() * 2000})
		case op == 2:
			i := rng.Intn(len(ids))
			r.st.RemoveElement(ids[i])
			ids = append(ids[:i], ids[i+1:]...)
		default:
			r.st.DuplicateElement(ids[rng.Intn(len(ids))])
			ids = ids[:0]
			for _, e := range r.st.Document().Elements() {
				ids = append(ids, e.ID)
			}
		}
		r.assertProjection(t)
	}
}

func TestSectionsDrawBeforeComponents(t *testing.T) {
	r := newRig(t, true)
	c := r.st.InsertElement(domain.KindComponent, domain.Position{X: 10, Y: 10}).ID
	s := r.st.InsertElement(domain.KindSection, domain.Position{Y: 0}).ID
	nodes := r.mem.Nodes()
	if len(nodes) != 2 || nodes[0].ElementID != s || nodes[1].ElementID != c {
		t.Fatalf("drawing order = %+v", nodes)
	}
	if nodes[0].Rect.W != domain.DefaultFrameWidth || nodes[0].Rect.X != 0 {
		t.Fatalf("section rect = %+v", nodes[0].Rect)
	}
}

func TestSyncBeforeAttachIsNoop(t *testing.T) {
	r := newRig(t, false)
	r.st.InsertElement(domain.KindComponent, domain.Position{})
	if n := len(r.mem.Nodes()); n != 0 {
		t.Fatalf("detached surface got %d nodes", n)
	}
	r.mem.Attach()
	r.sync.Sync(r.st.Snapshot())
	r.assertProjection(t)
}

func TestSyncIsIdempotent(t *testing.T) {
	r := newRig(t, true)
	r.st.InsertElement(domain.KindComponent, domain.Position{})
	r.st.InsertElement(domain.KindSection, domain.Position{})
	snap := r.st.Snapshot()
	first := r.mem.Nodes()
	r.sync.Sync(snap)
	r.sync.Sync(snap)
	second := r.mem.Nodes()
	if len(first) != len(second) {
		t.Fatalf("node count changed: %d -> %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ElementID != second[i].ElementID || first[i].Rect != second[i].Rect {
			t.Fatalf("node %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
	r.assertProjection(t)
}

func TestStaleSnapshotIgnored(t *testing.T) {
	r := newRig(t, true)
	old := r.st.InsertElement(domain.KindComponent, domain.Position{}).Snapshot
	r.st.InsertElement(domain.KindComponent, domain.Position{X: 300})
	r.sync.Sync(old)
	if len(r.mem.Nodes()) != 2 {
		t.Fatalf("stale snapshot rendered: %d nodes", len(r.mem.Nodes()))
	}
}

func TestClickSelectsAndContextDeletes(t *testing.T) {
	r := newRig(t, true)
	a := r.st.InsertElement(domain.KindComponent, domain.Position{X: 10, Y: 10}).ID
	r.st.InsertElement(domain.KindComponent, domain.Position{X: 500, Y: 10})
	if !r.mem.ClickAt(20, 20) {
		t.Fatalf("click missed")
	}
	if r.st.Document().SelectedID != a {
		t.Fatalf("selected = %q, want %q", r.st.Document().SelectedID, a)
	}
	hit, prevented := r.mem.ContextAt(20, 20)
	if !hit || !prevented {
		t.Fatalf("context hit=%v prevented=%v", hit, prevented)
	}
	if _, ok := r.st.Document().Find(a); ok {
		t.Fatalf("context gesture did not delete")
	}
	r.assertProjection(t)
}

func TestDragThroughSurface(t *testing.T) {
	r := newRig(t, true)
	id := r.st.InsertElement(domain.KindComponent, domain.Position{X: 100, Y: 100}).ID
	if !r.mem.DragStartAt(110, 110) {
		t.Fatalf("drag start missed")
	}
	r.mem.DragOver(200, 200)
	r.mem.DropAt(310, 410)
	el, _ := r.st.Document().Find(id)
	if el.Position != (domain.Position{X: 300, Y: 400}) {
		t.Fatalf("position = %+v", el.Position)
	}
	r.assertProjection(t)
}

func TestCloseReleasesNodes(t *testing.T) {
	r := newRig(t, true)
	r.st.InsertElement(domain.KindComponent, domain.Position{})
	r.sync.Close()
	if r.mem.LiveHandlers() != 0 || len(r.mem.Nodes()) != 0 {
		t.Fatalf("close left nodes behind")
	}
	r.st.InsertElement(domain.KindComponent, domain.Position{})
	if len(r.mem.Nodes()) != 0 {
		t.Fatalf("closed synchronizer still syncing")
	}
}

func TestSpecUsesTextAndBackground(t *testing.T) {
	e := domain.Element{ID: "x", Kind: domain.KindComponent, Name: "Box",
		Props: props.EmptyMap().Set(props.Path{"text"}, props.Text("Hi")).Set(props.ParsePath("style.background"), props.Text("#102030"))}
	spec := Spec(e, 1080, "x")
	if spec.Label != "Hi" || !spec.Selected {
		t.Fatalf("spec = %+v", spec)
	}
	if spec.Fill != (vector.Color{R: 0x10, G: 0x20, B: 0x30, A: 255}) {
		t.Fatalf("fill = %+v", spec.Fill)
	}
}
