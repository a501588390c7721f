/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package inspector turns an element's property tree into a flat list of typed
// edit fields and parses edits back into values for the store.
package inspector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"clipcomposer/internal/props"
	"clipcomposer/internal/store"
	"clipcomposer/internal/vector"
)

var ErrInvalidInput = errors.New("invalid input")

// WidgetKind selects the edit widget for a leaf.
type WidgetKind int

const (
	WidgetToggle WidgetKind = iota
	WidgetNumber
	WidgetColor
	WidgetText
	WidgetRaw
)

func (k WidgetKind) String() string {
	switch k {
	case WidgetToggle:
		return "toggle"
	case WidgetNumber:
		return "number"
	case WidgetColor:
		return "color"
	case WidgetText:
		return "text"
	default:
		return "raw"
	}
}

// Field is one editable leaf of a property tree.
type Field struct {
	Path   props.Path
	Label  string
	Widget WidgetKind
	Value  props.Value
	// Depth is the nesting level, for indentation.
	Depth int
}

// Text returns the field's current value as edit text.
func (f Field) Text() string {
	switch f.Widget {
	case WidgetToggle:
		b, _ := f.Value.AsBool()
		return strconv.FormatBool(b)
	case WidgetNumber:
		n, _ := f.Value.AsNumber()
		return strconv.FormatFloat(n, 'f', -1, 64)
	case WidgetColor, WidgetText:
		s, _ := f.Value.AsText()
		return s
	default:
		return f.Value.Indent()
	}
}

// WidgetFor infers the widget from the value's variant. A string is edited
// with a color picker when its key or its text mentions "color" in any case.
func WidgetFor(key string, v props.Value) WidgetKind {
	switch v.Kind() {
	case props.KindBool:
		return WidgetToggle
	case props.KindNumber:
		return WidgetNumber
	case props.KindText:
		s, _ := v.AsText()
		if strings.Contains(strings.ToLower(key), "color") || strings.Contains(strings.ToLower(s), "color") {
			return WidgetColor
		}
		return WidgetText
	default:
		return WidgetRaw
	}
}

// RenderFields walks tree below prefix and returns one field per leaf in
// sorted key order. Maps are descended into; every other value is a leaf.
// An empty map or a null root yields no fields.
func RenderFields(tree props.Value, prefix props.Path) []Field {
	if tree.IsNull() && len(prefix) == 0 {
		return nil
	}
	var out []Field
	var walk func(v props.Value, at props.Path)
	walk = func(v props.Value, at props.Path) {
		if v.Kind() == props.KindMap {
			for _, k := range v.Keys() {
				child, _ := v.Field(k)
				walk(child, at.Child(k))
			}
			return
		}
		out = append(out, Field{Path: at, Label: at.Last(), Widget: WidgetFor(at.Last(), v), Value: v, Depth: len(at) - 1})
	}
	walk(tree, prefix)
	return out
}

// Parse converts edit text for a widget of the given kind into a value.
func Parse(kind WidgetKind, text string) (props.Value, error) {
	switch kind {
	case WidgetToggle:
		b, err := strconv.ParseBool(strings.TrimSpace(text))
		if err != nil {
			return props.Value{}, fmt.Errorf("%w: %q is not a boolean", ErrInvalidInput, text)
		}
		return props.Bool(b), nil
	case WidgetNumber:
		n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		if err != nil {
			return props.Value{}, fmt.Errorf("%w: %q is not a number", ErrInvalidInput, text)
		}
		return props.Number(n), nil
	case WidgetColor, WidgetText:
		return props.Text(text), nil
	default:
		v, err := props.Parse([]byte(text))
		if err != nil {
			return props.Value{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return v, nil
	}
}

// Editor applies field edits to one element through the store.
type Editor struct {
	st *store.Store
	id string
}

func NewEditor(st *store.Store, elementID string) *Editor { return &Editor{st: st, id: elementID} }

// Fields renders the element's current properties.
func (e *Editor) Fields() ([]Field, error) {
	el, ok := e.st.Document().Find(e.id)
	if !ok {
		return nil, fmt.Errorf("%w: element %q", store.ErrNotFound, e.id)
	}
	return RenderFields(el.Props, nil), nil
}

// Apply parses text for f and writes it at f's full path. Input that fails to
// parse leaves the document untouched.
func (e *Editor) Apply(f Field, text string) store.Result {
	v, err := Parse(f.Widget, text)
	if err != nil {
		return store.Result{Snapshot: e.st.Snapshot(), ID: e.id, Err: err}
	}
	return e.st.SetProperty(e.id, f.Path, v)
}

// Swatch returns the color a color field shows, when its text is a hex color.
func Swatch(f Field) (vector.Color, bool) {
	if f.Widget != WidgetColor {
		return vector.Color{}, false
	}
	s, _ := f.Value.AsText()
	c, err := vector.ParseHex(s)
	return c, err == nil
}
