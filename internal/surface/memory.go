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
	"sync"

	"clipcomposer/internal/drag"
	"clipcomposer/internal/vector"
)

// Memory is a headless Surface. Nodes are kept in drawing order and hit-tested
// topmost first. The frame is drawn at scale 1, so a node's viewport box is its
// document rect translated by the frame origin.
type Memory struct {
	mu       sync.Mutex
	attached bool
	frame    vector.Rect
	nodes    []*memNode
	created  []*memNode
	frameH   FrameHandlers
}

type memNode struct {
	m       *Memory
	spec    NodeSpec
	h       *Handlers
	removed bool
}

func NewMemory(frame vector.Rect) *Memory { return &Memory{frame: frame} }

func (m *Memory) Attach() {
	m.mu.Lock()
	m.attached = true
	m.mu.Unlock()
}

// Detach unmounts the surface and drops every node.
func (m *Memory) Detach() {
	m.mu.Lock()
	nodes := m.nodes
	m.attached = false
	m.mu.Unlock()
	for _, n := range nodes {
		n.Remove()
	}
}

func (m *Memory) Attached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attached
}

func (m *Memory) Frame() vector.Rect {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame
}

func (m *Memory) SetFrameHandlers(h FrameHandlers) {
	m.mu.Lock()
	m.frameH = h
	m.mu.Unlock()
}

func (m *Memory) Add(spec NodeSpec, h Handlers) Node {
	n := &memNode{m: m, spec: spec, h: &h}
	m.mu.Lock()
	m.nodes = append(m.nodes, n)
	m.created = append(m.created, n)
	m.mu.Unlock()
	return n
}

func (n *memNode) ElementID() string { return n.spec.ElementID }

func (n *memNode) Remove() {
	m := n.m
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.removed {
		return
	}
	n.removed = true
	n.h = nil
	for i, o := range m.nodes {
		if o == n {
			m.nodes = append(m.nodes[:i:i], m.nodes[i+1:]...)
			break
		}
	}
}

// Nodes returns the specs of the live nodes in drawing order.
func (m *Memory) Nodes() []NodeSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]NodeSpec, len(m.nodes))
	for i, n := range m.nodes {
		out[i] = n.spec
	}
	return out
}

// LiveHandlers counts nodes ever created that still hold handlers. It equals
// len(Nodes()) unless a removed node leaked its bindings.
func (m *Memory) LiveHandlers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	live := 0
	for _, n := range m.created {
		if n.h != nil {
			live++
		}
	}
	return live
}

// Created returns how many nodes were ever added.
func (m *Memory) Created() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

// hit returns the handlers of the topmost node under the viewport point.
func (m *Memory) hit(x, y float64) (Handlers, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := vector.Pt{X: x, Y: y}.Sub(m.frame.Min())
	for i := len(m.nodes) - 1; i >= 0; i-- {
		n := m.nodes[i]
		if n.h != nil && n.spec.Rect.Contains(p) {
			return *n.h, true
		}
	}
	return Handlers{}, false
}

// ClickAt dispatches a primary click. It reports whether a node was hit.
func (m *Memory) ClickAt(x, y float64) bool {
	h, ok := m.hit(x, y)
	if ok && h.Click != nil {
		h.Click()
	}
	return ok
}

// ContextAt dispatches a context gesture and reports whether a node was hit
// and whether the default behavior was suppressed.
func (m *Memory) ContextAt(x, y float64) (hit, prevented bool) {
	h, ok := m.hit(x, y)
	if !ok {
		return false, false
	}
	ev := &ContextEvent{X: x, Y: y}
	if h.Context != nil {
		h.Context(ev)
	}
	return true, ev.DefaultPrevented()
}

// DragStartAt starts a drag on the node under the point.
func (m *Memory) DragStartAt(x, y float64) bool {
	h, ok := m.hit(x, y)
	if ok && h.DragStart != nil {
		h.DragStart(drag.PointerEvent{X: x, Y: y})
	}
	return ok
}

// DragOver and DropAt feed frame-level pointer events.
func (m *Memory) DragOver(x, y float64) {
	m.mu.Lock()
	fn := m.frameH.DragOver
	m.mu.Unlock()
	if fn != nil {
		fn(drag.PointerEvent{X: x, Y: y})
	}
}

func (m *Memory) DropAt(x, y float64) {
	m.mu.Lock()
	fn := m.frameH.Drop
	m.mu.Unlock()
	if fn != nil {
		fn(drag.PointerEvent{X: x, Y: y})
	}
}
