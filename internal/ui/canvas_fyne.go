//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"clipcomposer/internal/drag"
	"clipcomposer/internal/store"
	"clipcomposer/internal/surface"
	"clipcomposer/internal/vector"
)

// framePad is the gap between the canvas edge and the frame, in pixels.
const framePad float32 = 16

// FrameCanvas is the fyne implementation of surface.Surface. Nodes are
// absolutely positioned widgets above the frame rectangle; pointer positions
// are reported in canvas coordinates.
type FrameCanvas struct {
	widget.BaseWidget

	mu       sync.Mutex
	zoom     float32
	docW     float32 // frame width in document units
	minH     float32
	attached bool
	frameH   surface.FrameHandlers

	bg      *canvas.Rectangle
	frame   *canvas.Rectangle
	content *fyne.Container
	nodes   []*nodeWidget
}

var _ surface.Surface = (*FrameCanvas)(nil)

// NewFrameCanvas returns a detached canvas for a frame docW units wide.
func NewFrameCanvas(docW float64) *FrameCanvas {
	fc := &FrameCanvas{zoom: 0.5, docW: float32(docW), minH: store.DefaultSectionHeight}
	fc.bg = canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	fc.frame = canvas.NewRectangle(color.White)
	fc.frame.StrokeColor = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	fc.frame.StrokeWidth = 1
	fc.content = container.NewWithoutLayout(fc.frame)
	fc.ExtendBaseWidget(fc)
	return fc
}

func (fc *FrameCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(fc.bg, fc.content))
}

func (fc *FrameCanvas) MinSize() fyne.Size {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	r := fc.frameRectLocked()
	return fyne.NewSize(float32(r.W)+2*framePad, float32(r.H)+2*framePad)
}

// Attach mounts the canvas; the synchronizer only projects while attached.
func (fc *FrameCanvas) Attach() {
	fc.mu.Lock()
	fc.attached = true
	fc.mu.Unlock()
}

// Detach unmounts the canvas and drops every node.
func (fc *FrameCanvas) Detach() {
	fc.mu.Lock()
	fc.attached = false
	nodes := append([]*nodeWidget(nil), fc.nodes...)
	fc.mu.Unlock()
	for _, n := range nodes {
		n.Remove()
	}
}

func (fc *FrameCanvas) Attached() bool {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.attached
}

// SetZoom changes the pixel size of one document unit.
func (fc *FrameCanvas) SetZoom(z float32) {
	if z < 0.1 {
		z = 0.1
	}
	if z > 4 {
		z = 4
	}
	fc.mu.Lock()
	fc.zoom = z
	fc.mu.Unlock()
	fc.Refresh()
}

func (fc *FrameCanvas) Zoom() float32 {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.zoom
}

func (fc *FrameCanvas) Frame() vector.Rect {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.frameRectLocked()
}

func (fc *FrameCanvas) frameRectLocked() vector.Rect {
	h := fc.minH
	for _, n := range fc.nodes {
		if b := float32(n.spec.Rect.Y + n.spec.Rect.H); b > h {
			h = b
		}
	}
	return vector.R(float64(framePad), float64(framePad), float64(fc.docW*fc.zoom), float64(h*fc.zoom))
}

func (fc *FrameCanvas) SetFrameHandlers(h surface.FrameHandlers) {
	fc.mu.Lock()
	fc.frameH = h
	fc.mu.Unlock()
}

func (fc *FrameCanvas) frameHandlers() surface.FrameHandlers {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.frameH
}

func (fc *FrameCanvas) Add(spec surface.NodeSpec, h surface.Handlers) surface.Node {
	n := newNodeWidget(fc, spec, h)
	fc.mu.Lock()
	fc.nodes = append(fc.nodes, n)
	fc.mu.Unlock()
	fc.content.Add(n)
	fc.Refresh()
	return n
}

func (fc *FrameCanvas) remove(n *nodeWidget) {
	fc.mu.Lock()
	for i, m := range fc.nodes {
		if m == n {
			fc.nodes = append(fc.nodes[:i], fc.nodes[i+1:]...)
			break
		}
	}
	fc.mu.Unlock()
	fc.content.Remove(n)
}

// Refresh re-lays out the frame and every node for the current zoom.
func (fc *FrameCanvas) Refresh() {
	fc.mu.Lock()
	r := fc.frameRectLocked()
	toView := vector.FrameToDocument(r, float64(fc.docW)).Invert()
	nodes := append([]*nodeWidget(nil), fc.nodes...)
	fc.mu.Unlock()
	fc.frame.Move(fyne.NewPos(float32(r.X), float32(r.Y)))
	fc.frame.Resize(fyne.NewSize(float32(r.W), float32(r.H)))
	for _, n := range nodes {
		n.place(toView)
	}
	fc.BaseWidget.Refresh()
}

// Scrolled zooms with the wheel.
func (fc *FrameCanvas) Scrolled(e *fyne.ScrollEvent) {
	fc.SetZoom(fc.Zoom() + e.Scrolled.DY*0.05)
}

// nodeWidget draws one element and forwards its input to the handlers.
type nodeWidget struct {
	widget.BaseWidget

	fc      *FrameCanvas
	spec    surface.NodeSpec
	h       surface.Handlers
	box     *canvas.Rectangle
	label   *canvas.Text
	origin  fyne.Position
	drag    bool
	last    drag.PointerEvent
	removed bool
}

var (
	_ fyne.Tappable          = (*nodeWidget)(nil)
	_ fyne.SecondaryTappable = (*nodeWidget)(nil)
	_ fyne.Draggable         = (*nodeWidget)(nil)
)

func newNodeWidget(fc *FrameCanvas, spec surface.NodeSpec, h surface.Handlers) *nodeWidget {
	n := &nodeWidget{fc: fc, spec: spec, h: h}
	n.box = canvas.NewRectangle(toNRGBA(spec.Fill))
	n.box.StrokeColor = color.RGBA{R: 40, G: 40, B: 48, A: 255}
	n.box.StrokeWidth = 1
	if spec.Selected {
		n.box.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
		n.box.StrokeWidth = 2
	}
	n.label = canvas.NewText(spec.Label, color.Black)
	n.label.TextSize = 12
	n.ExtendBaseWidget(n)
	return n
}

func (n *nodeWidget) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(n.box, container.NewPadded(n.label)))
}

func (n *nodeWidget) ElementID() string { return n.spec.ElementID }

// Remove detaches the node and drops its handlers.
func (n *nodeWidget) Remove() {
	if n.removed {
		return
	}
	n.removed = true
	n.h = surface.Handlers{}
	n.fc.remove(n)
}

// place lays the node out through toView, the document-to-viewport transform.
func (n *nodeWidget) place(toView vector.Affine2D) {
	lo, hi := toView.Apply(n.spec.Rect.Min()), toView.Apply(n.spec.Rect.Max())
	n.origin = fyne.NewPos(float32(lo.X), float32(lo.Y))
	n.Move(n.origin)
	n.Resize(fyne.NewSize(float32(hi.X-lo.X), float32(hi.Y-lo.Y)))
}

// pointer converts a node-local position into a canvas pointer event.
func (n *nodeWidget) pointer(p fyne.Position) drag.PointerEvent {
	at := n.Position().Add(p)
	return drag.PointerEvent{X: float64(at.X), Y: float64(at.Y)}
}

func (n *nodeWidget) Tapped(*fyne.PointEvent) {
	if n.h.Click != nil {
		n.h.Click()
	}
}

func (n *nodeWidget) TappedSecondary(e *fyne.PointEvent) {
	if n.h.Context == nil {
		return
	}
	ev := n.pointer(e.Position)
	n.h.Context(&surface.ContextEvent{X: ev.X, Y: ev.Y})
}

func (n *nodeWidget) Dragged(e *fyne.DragEvent) {
	ev := n.pointer(e.Position)
	if !n.drag {
		n.drag = true
		if n.h.DragStart != nil {
			n.h.DragStart(ev)
		}
	} else if fh := n.fc.frameHandlers(); fh.DragOver != nil {
		fh.DragOver(ev)
	}
	n.last = ev
	n.Move(n.Position().Add(e.Dragged))
}

func (n *nodeWidget) DragEnd() {
	if !n.drag {
		return
	}
	n.drag = false
	ev := n.last
	if fh := n.fc.frameHandlers(); fh.Drop != nil {
		fh.Drop(ev)
	}
	// A rejected drop leaves the node where the store still has it.
	if !n.removed {
		n.Move(n.origin)
	}
}

func toNRGBA(c vector.Color) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}
