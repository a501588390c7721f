/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package inspector

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"clipcomposer/internal/domain"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/props"
	"clipcomposer/internal/store"
)

func tree(t *testing.T) props.Value {
	t.Helper()
	v, err := props.Parse([]byte(`{
		"visible": true,
		"opacity": 0.5,
		"title": "Hello",
		"style": {"textColor": "#ffffff", "accent": "color:red", "font": {"size": 24}},
		"tags": ["a"],
		"extra": null
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return v
}

func TestRenderFieldsInfersWidgets(t *testing.T) {
	fields := RenderFields(tree(t), nil)
	got := map[string]string{}
	for _, f := range fields {
		got[f.Path.String()] = f.Widget.String()
	}
	want := map[string]string{
		"visible":         "toggle",
		"opacity":         "number",
		"title":           "text",
		"style.textColor": "color",
		"style.accent":    "color",
		"style.font.size": "number",
		"tags":            "raw",
		"extra":           "raw",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("widgets (-want +got):\n%s", diff)
	}
}

func TestRenderFieldsKeepsPrefixAndDepth(t *testing.T) {
	fields := RenderFields(tree(t), props.Path{"root"})
	for _, f := range fields {
		if f.Path[0] != "root" {
			t.Fatalf("path %s lost prefix", f.Path)
		}
		if f.Path.String() == "root.style.font.size" && f.Depth != 3 {
			t.Fatalf("depth = %d", f.Depth)
		}
	}
}

func TestRenderFieldsDeepNesting(t *testing.T) {
	v := props.EmptyMap()
	deep := make(props.Path, 40)
	for i := range deep {
		deep[i] = "k"
	}
	v = v.Set(deep, props.Number(1))
	fields := RenderFields(v, nil)
	if len(fields) != 1 || len(fields[0].Path) != 40 {
		t.Fatalf("fields = %+v", fields)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		kind WidgetKind
		in   string
		want props.Value
		err  bool
	}{
		{WidgetToggle, "true", props.Bool(true), false},
		{WidgetToggle, "maybe", props.Value{}, true},
		{WidgetNumber, " 12.5 ", props.Number(12.5), false},
		{WidgetNumber, "twelve", props.Value{}, true},
		{WidgetColor, "#00ff00", props.Text("#00ff00"), false},
		{WidgetText, "plain", props.Text("plain"), false},
		{WidgetRaw, `[1, "a"]`, props.List(props.Number(1), props.Text("a")), false},
		{WidgetRaw, `{"a":`, props.Value{}, true},
	}
	for _, tc := range cases {
		got, err := Parse(tc.kind, tc.in)
		if tc.err {
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("%s %q: err = %v, want ErrInvalidInput", tc.kind, tc.in, err)
			}
			continue
		}
		if err != nil || !got.Equal(tc.want) {
			t.Fatalf("%s %q = %s, %v", tc.kind, tc.in, got, err)
		}
	}
}

func TestEditorApplyKeepsSiblings(t *testing.T) {
	st := store.New(domain.NewProject("insp"), store.Options{Logger: applog.Discard()})
	id := st.InsertElement(domain.KindComponent, domain.Position{}).ID
	for _, f := range RenderFields(tree(t), nil) {
		st.SetProperty(id, f.Path, f.Value)
	}
	ed := NewEditor(st, id)
	fields, err := ed.Fields()
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	var size Field
	for _, f := range fields {
		if f.Path.String() == "style.font.size" {
			size = f
		}
	}
	if size.Text() != "24" {
		t.Fatalf("size text = %q", size.Text())
	}
	if r := ed.Apply(size, "30"); !r.OK() {
		t.Fatalf("apply: %v", r.Err)
	}
	after, _ := ed.Fields()
	if len(after) != len(fields) {
		t.Fatalf("field count %d -> %d", len(fields), len(after))
	}
	for i := range fields {
		if fields[i].Path.String() == "style.font.size" {
			if !after[i].Value.Equal(props.Number(30)) {
				t.Fatalf("size = %s", after[i].Value)
			}
			continue
		}
		if !fields[i].Value.Equal(after[i].Value) {
			t.Fatalf("sibling %s changed: %s -> %s", fields[i].Path, fields[i].Value, after[i].Value)
		}
	}

	v := st.Version()
	if r := ed.Apply(size, "big"); !errors.Is(r.Err, ErrInvalidInput) {
		t.Fatalf("err = %v", r.Err)
	}
	if st.Version() != v {
		t.Fatalf("invalid input mutated the document")
	}
}

func TestRawFieldTextRoundTrips(t *testing.T) {
	f := Field{Widget: WidgetRaw, Value: props.List(props.Text("x"), props.Map(map[string]props.Value{"n": props.Number(1)}))}
	back, err := Parse(WidgetRaw, f.Text())
	if err != nil || !back.Equal(f.Value) {
		t.Fatalf("round trip = %s, %v", back, err)
	}
	if !strings.Contains(f.Text(), "\n") {
		t.Fatalf("raw text not indented: %q", f.Text())
	}
}

func TestSwatch(t *testing.T) {
	c, ok := Swatch(Field{Widget: WidgetColor, Value: props.Text("#ff0000")})
	if !ok || c.R != 255 || c.G != 0 {
		t.Fatalf("swatch = %+v ok=%v", c, ok)
	}
	if _, ok := Swatch(Field{Widget: WidgetColor, Value: props.Text("color:red")}); ok {
		t.Fatalf("non-hex color produced a swatch")
	}
}
