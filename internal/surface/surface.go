/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package surface keeps a visual projection of the document in sync with the
// store. A Surface is the host toolkit's drawing area (fyne in the desktop
// build, Memory in tests and headless runs); the Synchronizer rebuilds its
// nodes on every document change and wires each node's input back into the
// drag controller and the store.
package surface

import (
	"clipcomposer/internal/domain"
	"clipcomposer/internal/drag"
	"clipcomposer/internal/props"
	"clipcomposer/internal/vector"
)

// ContextEvent is a secondary-button or long-press gesture on a node.
type ContextEvent struct {
	X, Y      float64
	prevented bool
}

// PreventDefault suppresses the host's own context menu.
func (e *ContextEvent) PreventDefault()        { e.prevented = true }
func (e *ContextEvent) DefaultPrevented() bool { return e.prevented }

// Handlers are the input bindings of one projected node.
type Handlers struct {
	DragStart func(ev drag.PointerEvent)
	Click     func()
	Context   func(ev *ContextEvent)
}

// FrameHandlers receive pointer movement and drops over the whole frame.
type FrameHandlers struct {
	DragOver func(ev drag.PointerEvent)
	Drop     func(ev drag.PointerEvent)
}

// NodeSpec describes what to draw for one element. Rect is in document units.
type NodeSpec struct {
	ElementID string
	Kind      domain.Kind
	Rect      vector.Rect
	Label     string
	Fill      vector.Color
	Selected  bool
	Props     props.Value
}

// Node is a projected node owned by a Surface.
type Node interface {
	ElementID() string
	// Remove detaches the node and releases its handlers.
	Remove()
}

// Surface is an editing area that can host projected nodes.
type Surface interface {
	// Attached reports whether the surface is mounted and can take nodes.
	Attached() bool
	// Frame returns the frame's bounding box in viewport coordinates.
	Frame() vector.Rect
	// Add creates a node drawn above every existing node.
	Add(spec NodeSpec, h Handlers) Node
	SetFrameHandlers(h FrameHandlers)
}
