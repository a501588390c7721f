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
	"log/slog"
	"sync"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/drag"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/props"
	"clipcomposer/internal/store"
	"clipcomposer/internal/vector"
)

// Synchronizer projects the store's current page onto a Surface. Every pass
// removes all nodes of the previous pass before creating new ones, so no node
// or handler outlives the document state it was built from.
type Synchronizer struct {
	mu    sync.Mutex
	st    *store.Store
	dc    *drag.Controller
	surf  Surface
	log   *slog.Logger
	nodes []Node
	last  uint64
	unsub func()
}

func NewSynchronizer(st *store.Store, dc *drag.Controller, surf Surface, l *slog.Logger) *Synchronizer {
	if l == nil {
		l = applog.WithComponent("surface")
	}
	return &Synchronizer{st: st, dc: dc, surf: surf, log: l}
}

// Attach subscribes to the store, installs the frame handlers and renders the current state.
func (s *Synchronizer) Attach() {
	s.mu.Lock()
	if s.unsub != nil {
		s.mu.Unlock()
		return
	}
	s.unsub = s.st.Subscribe(func(snap store.Snapshot) { s.Sync(snap) })
	s.mu.Unlock()
	s.surf.SetFrameHandlers(FrameHandlers{
		DragOver: func(ev drag.PointerEvent) { _, _ = s.dc.UpdateDragOver(ev) },
		Drop: func(ev drag.PointerEvent) {
			if r := s.dc.CompleteDrop(ev, s.surf.Frame()); r.Err != nil {
				s.log.Debug("drop not applied", slog.Any("err", r.Err))
			}
		},
	})
	s.Sync(s.st.Snapshot())
}

// Close unsubscribes and removes every projected node.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	s.clearLocked()
	s.surf.SetFrameHandlers(FrameHandlers{})
}

// Sync rebuilds the projection from snap and returns the number of nodes.
// It is a no-op while the surface is detached and ignores snapshots older
// than the last one rendered.
func (s *Synchronizer) Sync(snap store.Snapshot) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.surf.Attached() {
		return 0
	}
	if snap.Version < s.last {
		s.log.Debug("stale snapshot skipped", slog.Uint64("version", snap.Version), slog.Uint64("rendered", s.last))
		return len(s.nodes)
	}
	s.last = snap.Version
	s.clearLocked()
	frame := s.st.FrameWidth()
	doc := snap.Document
	for _, e := range doc.Elements() {
		s.nodes = append(s.nodes, s.surf.Add(Spec(e, frame, doc.SelectedID), s.handlers(e.ID)))
	}
	s.log.Debug("projection rebuilt", slog.Uint64("version", snap.Version), slog.Int("nodes", len(s.nodes)))
	return len(s.nodes)
}

// Count returns the number of nodes currently projected.
func (s *Synchronizer) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

func (s *Synchronizer) clearLocked() {
	for _, n := range s.nodes {
		n.Remove()
	}
	s.nodes = nil
}

func (s *Synchronizer) handlers(id string) Handlers {
	return Handlers{
		DragStart: func(ev drag.PointerEvent) {
			if err := s.dc.BeginDrag(id, ev, s.surf.Frame()); err != nil {
				s.log.Warn("drag start failed", slog.String("element", id), slog.Any("err", err))
			}
		},
		Click: func() { s.st.SelectElement(id) },
		Context: func(ev *ContextEvent) {
			ev.PreventDefault()
			s.dc.DeleteElement(id)
		},
	}
}

// Spec derives what a surface draws for e. Sections span the frame.
func Spec(e domain.Element, frameWidth float64, selected string) NodeSpec {
	r := vector.R(e.Position.X, e.Position.Y, e.Size.Width, e.Size.Height)
	if e.Kind == domain.KindSection {
		r.X, r.W = 0, frameWidth
		if r.H <= 0 {
			r.H = store.DefaultSectionHeight
		}
	}
	return NodeSpec{
		ElementID: e.ID,
		Kind:      e.Kind,
		Rect:      r,
		Label:     Label(e),
		Fill:      FillColor(e),
		Selected:  e.ID == selected,
		Props:     e.Props,
	}
}

// Label is the text shown on a node: the "text" property, else the name.
func Label(e domain.Element) string {
	for _, key := range []string{"text", "label"} {
		if v, ok := e.Props.Field(key); ok {
			if s, ok := v.AsText(); ok && s != "" {
				return s
			}
		}
	}
	return e.Name
}

// FillColor reads "background" or "style.background" as a hex color.
func FillColor(e domain.Element) vector.Color {
	for _, p := range []props.Path{{"background"}, {"style", "background"}} {
		if v, ok := e.Props.Get(p); ok {
			if s, ok := v.AsText(); ok {
				if c, err := vector.ParseHex(s); err == nil {
					return c
				}
			}
		}
	}
	if e.Kind == domain.KindSection {
		return vector.Color{R: 240, G: 240, B: 244, A: 255}
	}
	return vector.Color{R: 210, G: 225, B: 250, A: 255}
}
