/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package drag maps pointer gestures over the editing frame to document
// coordinates and turns them into store mutations.
//
// Pointer events carry viewport coordinates. The frame rectangle passed with
// them is the frame's bounding box in the same viewport space; its width maps
// to the project's frame width, so a zoomed frame scales pointer deltas.
package drag

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"clipcomposer/internal/domain"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/store"
	"clipcomposer/internal/vector"
)

var (
	ErrNoSession    = errors.New("no drag in progress")
	ErrOutsideFrame = errors.New("drop outside frame")
)

// PointerEvent is a pointer position in viewport coordinates.
type PointerEvent struct {
	X, Y float64
}

func (e PointerEvent) pt() vector.Pt { return vector.Pt{X: e.X, Y: e.Y} }

// Session is the state of one drag gesture. It lives from BeginDrag until the
// matching CompleteDrop or CancelDrag and is never persisted.
type Session struct {
	ElementID string
	Kind      domain.Kind
	// Offset is the pointer position relative to the element origin, in document units.
	Offset vector.Pt
	// Start is the pointer at drag start, in document units. Moves are
	// applied as deltas from it so an unmoved pointer lands on Origin exactly.
	Start vector.Pt
	// Frame is the frame rectangle captured at drag start.
	Frame  vector.Rect
	Origin domain.Position
	Size   domain.Size
}

// Preview is the position an element would take if dropped now.
type Preview struct {
	Position domain.Position
	Guides   []vector.GuideLine
	Inside   bool
}

// Options tune a Controller.
type Options struct {
	// SnapThreshold enables smart-guide snapping of components to their
	// siblings, in document units. Zero disables it.
	SnapThreshold float64
	Logger        *slog.Logger
}

// Controller runs at most one drag session at a time against a Store.
type Controller struct {
	mu      sync.Mutex
	st      *store.Store
	opts    Options
	session *Session
	log     *slog.Logger
}

func New(st *store.Store, opts Options) *Controller {
	l := opts.Logger
	if l == nil {
		l = applog.WithComponent("drag")
	}
	return &Controller{st: st, opts: opts, log: l}
}

// Active returns a copy of the running session.
func (c *Controller) Active() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{}, false
	}
	return *c.session, true
}

// BeginDrag starts dragging elementID. The pointer offset to the element's
// current origin is stored so the element does not jump under the pointer.
// A running session is replaced.
func (c *Controller) BeginDrag(elementID string, ev PointerEvent, frame vector.Rect) error {
	el, ok := c.st.Document().Find(elementID)
	if !ok {
		return fmt.Errorf("begin drag: %w: element %q", store.ErrNotFound, elementID)
	}
	local := c.toDocument(ev, frame)
	s := &Session{
		ElementID: elementID,
		Kind:      el.Kind,
		Offset:    local.Sub(vector.Pt{X: el.Position.X, Y: el.Position.Y}),
		Start:     local,
		Frame:     frame,
		Origin:    el.Position,
		Size:      el.Size,
	}
	c.mu.Lock()
	if c.session != nil {
		c.log.Debug("drag replaced", slog.String("element", c.session.ElementID))
	}
	c.session = s
	c.mu.Unlock()
	c.log.Debug("drag started", slog.String("element", elementID), slog.Float64("dx", s.Offset.X), slog.Float64("dy", s.Offset.Y))
	return nil
}

// UpdateDragOver computes the preview position for the current pointer
// without touching the document.
func (c *Controller) UpdateDragOver(ev PointerEvent) (Preview, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return Preview{}, ErrNoSession
	}
	pos, guides := c.place(s, ev, s.Frame)
	return Preview{Position: pos, Guides: guides, Inside: s.Frame.Contains(ev.pt())}, nil
}

// CompleteDrop ends the session and moves the element through the store. A
// drop outside frame cancels the move; the element keeps its pre-drag position.
func (c *Controller) CompleteDrop(ev PointerEvent, frame vector.Rect) store.Result {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s == nil {
		return store.Result{Snapshot: c.st.Snapshot(), Err: ErrNoSession}
	}
	if !frame.Contains(ev.pt()) {
		c.log.Info("drop outside frame, move cancelled", slog.String("element", s.ElementID))
		return store.Result{Snapshot: c.st.Snapshot(), ID: s.ElementID, Err: ErrOutsideFrame}
	}
	pos, _ := c.place(s, ev, frame)
	return c.st.MoveElement(s.ElementID, pos)
}

// CancelDrag drops the session without changing the document.
func (c *Controller) CancelDrag() {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()
	if s != nil {
		c.log.Debug("drag cancelled", slog.String("element", s.ElementID))
	}
}

// DeleteElement removes id, ending a drag of the same element.
func (c *Controller) DeleteElement(id string) store.Result {
	c.mu.Lock()
	if c.session != nil && c.session.ElementID == id {
		c.session = nil
	}
	c.mu.Unlock()
	return c.st.RemoveElement(id)
}

// toDocument converts a viewport point into frame-local document units.
func (c *Controller) toDocument(ev PointerEvent, frame vector.Rect) vector.Pt {
	return vector.FrameToDocument(frame, c.st.FrameWidth()).Apply(ev.pt())
}

// place computes the clamped drop position of the session's element.
func (c *Controller) place(s *Session, ev PointerEvent, frame vector.Rect) (domain.Position, []vector.GuideLine) {
	d := c.toDocument(ev, frame).Sub(s.Start)
	if s.Kind == domain.KindSection {
		if d.Y == 0 {
			return s.Origin, nil
		}
		return domain.Position{X: 0, Y: math.Max(s.Origin.Y+d.Y, 0)}, nil
	}
	if d == (vector.Pt{}) {
		// an unmoved pointer never moves the element
		return s.Origin, nil
	}
	p := vector.Pt{X: s.Origin.X, Y: s.Origin.Y}.Add(d)
	var guides []vector.GuideLine
	if c.opts.SnapThreshold > 0 {
		moving := vector.R(p.X, p.Y, s.Size.Width, s.Size.Height)
		snapped, g := vector.ComputeSmartGuides(moving, c.anchors(s.ElementID), vector.SnapOptions{
			Threshold:     c.opts.SnapThreshold,
			SnapToEdges:   true,
			SnapToCenters: true,
		})
		p, guides = snapped.Min(), g
	}
	p = vector.ClampInFrame(p, s.Size.Width, c.st.FrameWidth())
	return domain.Position{X: p.X, Y: p.Y}, guides
}

// anchors lists the sibling components and the frame edges as snap targets.
func (c *Controller) anchors(skip string) []vector.Anchor {
	doc := c.st.Document()
	out := []vector.Anchor{{Rect: vector.R(0, 0, c.st.FrameWidth(), 0), Weight: 2}}
	for _, e := range doc.Components {
		if e.ID == skip {
			continue
		}
		out = append(out, vector.Anchor{Rect: vector.R(e.Position.X, e.Position.Y, e.Size.Width, e.Size.Height), Weight: 1})
	}
	return out
}
