//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne-based canvas. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/drag"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/store"
	"clipcomposer/internal/surface"
)

func almostEqual(a, b, eps float32) bool {
	if a > b {
		return a-b <= eps
	}
	return b-a <= eps
}

func canvasWithComponent(t *testing.T) (*FrameCanvas, *store.Store, string) {
	t.Helper()
	test.NewTempApp(t)
	st := store.New(domain.NewProject("canvas"), store.Options{})
	r := st.InsertElement(domain.KindComponent, domain.Position{X: 100, Y: 100})
	if !r.OK() {
		t.Fatalf("insert: %v", r.Err)
	}
	fc := NewFrameCanvas(st.FrameWidth())
	fc.Attach()
	sync := surface.NewSynchronizer(st, drag.New(st, drag.Options{}), fc, applog.Discard())
	sync.Attach()
	t.Cleanup(sync.Close)
	return fc, st, r.ID
}

func TestFrameCanvasGeometry(t *testing.T) {
	fc, _, _ := canvasWithComponent(t)
	f := fc.Frame()
	if f.X != 16 || f.Y != 16 || f.W != 540 || f.H != 160 {
		t.Fatalf("frame = %+v", f)
	}
	if len(fc.nodes) != 1 {
		t.Fatalf("nodes = %d, want 1", len(fc.nodes))
	}
	n := fc.nodes[0]
	if !almostEqual(n.Position().X, 66, 0.01) || !almostEqual(n.Size().Width, 120, 0.01) {
		t.Fatalf("node at %v size %v", n.Position(), n.Size())
	}
	fc.SetZoom(1)
	if !almostEqual(n.Position().X, 116, 0.01) || fc.Frame().W != 1080 {
		t.Fatalf("zoom not applied: node %v frame %+v", n.Position(), fc.Frame())
	}
}

func TestFrameCanvasDragMovesElement(t *testing.T) {
	fc, st, id := canvasWithComponent(t)
	n := fc.nodes[0]
	n.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(10, 10)}})
	n.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(60, 35)}, Dragged: fyne.NewDelta(50, 25)})
	n.DragEnd()

	el, ok := st.Document().Find(id)
	if !ok {
		t.Fatalf("element lost")
	}
	if el.Position != (domain.Position{X: 200, Y: 150}) {
		t.Fatalf("position = %+v, want {200 150}", el.Position)
	}
	if len(fc.nodes) != 1 || fc.nodes[0] == n {
		t.Fatalf("projection should be rebuilt after the drop")
	}
}

func TestFrameCanvasTapAndContext(t *testing.T) {
	fc, st, id := canvasWithComponent(t)
	st.SelectElement("")
	fc.nodes[0].Tapped(&fyne.PointEvent{})
	if st.Document().SelectedID != id {
		t.Fatalf("tap did not select")
	}
	fc.nodes[0].TappedSecondary(&fyne.PointEvent{})
	if _, ok := st.Document().Find(id); ok {
		t.Fatalf("context gesture should delete the element")
	}
	if len(fc.nodes) != 0 {
		t.Fatalf("nodes left: %d", len(fc.nodes))
	}
}

func TestFrameCanvasDetachDropsNodes(t *testing.T) {
	fc, _, _ := canvasWithComponent(t)
	fc.Detach()
	if fc.Attached() || len(fc.nodes) != 0 {
		t.Fatalf("detach left %d nodes", len(fc.nodes))
	}
}
