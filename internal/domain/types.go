/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the editable composition model: projects made of pages,
// one document per page, and documents made of positioned elements. The
// structures serialize to the human-readable project.json manifest.

import (
	"errors"
	"fmt"

	"clipcomposer/internal/props"
)

// HomePageID names the permanent page every project has. It can be neither renamed nor deleted.
const HomePageID = "home"

// DefaultFrameWidth is the editing frame width used when a project does not set one.
const DefaultFrameWidth = 1080

// Kind distinguishes the two element variants.
type Kind string

const (
	KindSection   Kind = "section"
	KindComponent Kind = "component"
)

func (k Kind) Valid() bool { return k == KindSection || k == KindComponent }

// Position is a document-space coordinate. Sections only use Y.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the element extent. For sections Width is ignored (they span the
// frame) and a zero Height means "auto".
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height,omitempty"`
}

// Element is a positioned, editable unit of a document.
type Element struct {
	ID       string      `json:"id"`
	Kind     Kind        `json:"kind"`
	Name     string      `json:"name"`
	Position Position    `json:"position"`
	Size     Size        `json:"size"`
	Props    props.Value `json:"properties"`
}

// Clone returns a deep copy of e.
func (e Element) Clone() Element {
	e.Props = e.Props.Clone()
	return e
}

// Document is the composition edited on one page.
// Later entries of each collection stack above earlier ones; components draw above sections.
type Document struct {
	Sections   []Element `json:"sections"`
	Components []Element `json:"components"`
	SelectedID string    `json:"selectedElementId,omitempty"`
}

// Len returns the number of elements in the document.
func (d Document) Len() int { return len(d.Sections) + len(d.Components) }

// Find locates an element by id across both collections.
func (d Document) Find(id string) (Element, bool) {
	if k, i := d.indexOf(id); i >= 0 {
		if k == KindSection {
			return d.Sections[i], true
		}
		return d.Components[i], true
	}
	return Element{}, false
}

// IndexOf returns the collection and index holding id, or -1.
func (d Document) IndexOf(id string) (Kind, int) { return d.indexOf(id) }

func (d Document) indexOf(id string) (Kind, int) {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return KindSection, i
		}
	}
	for i := range d.Components {
		if d.Components[i].ID == id {
			return KindComponent, i
		}
	}
	return "", -1
}

// Elements returns all elements in drawing order: sections first, then components.
func (d Document) Elements() []Element {
	out := make([]Element, 0, d.Len())
	out = append(out, d.Sections...)
	return append(out, d.Components...)
}

// Clone returns a deep copy that shares no slice or property map with d.
func (d Document) Clone() Document {
	out := Document{SelectedID: d.SelectedID}
	out.Sections = make([]Element, len(d.Sections))
	for i, e := range d.Sections {
		out.Sections[i] = e.Clone()
	}
	out.Components = make([]Element, len(d.Components))
	for i, e := range d.Components {
		out.Components[i] = e.Clone()
	}
	return out
}

// Validate checks the document invariants: known kinds, unique ids, sections
// pinned to x=0 and a selection that references an existing element.
func (d Document) Validate() error {
	seen := make(map[string]struct{}, d.Len())
	check := func(e Element, want Kind) error {
		if e.ID == "" {
			return errors.New("element without id")
		}
		if e.Kind != want {
			return fmt.Errorf("element %s: kind %q in %s collection", e.ID, e.Kind, want)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("duplicate element id %s", e.ID)
		}
		seen[e.ID] = struct{}{}
		return nil
	}
	for _, e := range d.Sections {
		if err := check(e, KindSection); err != nil {
			return err
		}
		if e.Position.X != 0 {
			return fmt.Errorf("section %s: x must be 0, got %v", e.ID, e.Position.X)
		}
	}
	for _, e := range d.Components {
		if err := check(e, KindComponent); err != nil {
			return err
		}
	}
	if d.SelectedID != "" {
		if _, ok := seen[d.SelectedID]; !ok {
			return fmt.Errorf("selection references unknown element %s", d.SelectedID)
		}
	}
	return nil
}

// Page groups one document inside a project.
type Page struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Permanent bool   `json:"permanent,omitempty"`
}

// Project is the persisted unit: pages, their documents and the composition
// handed to the render engine.
type Project struct {
	Name        string              `json:"name"`
	OwnerID     string              `json:"ownerId,omitempty"`
	FrameWidth  float64             `json:"frameWidth,omitempty"`
	Pages       []Page              `json:"pages"`
	Documents   map[string]Document `json:"documents"`
	Composition Composition         `json:"composition"`
}

// NewProject returns a project holding only the permanent home page.
func NewProject(name string) Project {
	return Project{
		Name:       name,
		FrameWidth: DefaultFrameWidth,
		Pages:      []Page{{ID: HomePageID, Name: "Home", Permanent: true}},
		Documents:  map[string]Document{HomePageID: {Sections: []Element{}, Components: []Element{}}},
	}
}

// Frame returns the configured frame width or the default.
func (p Project) Frame() float64 {
	if p.FrameWidth > 0 {
		return p.FrameWidth
	}
	return DefaultFrameWidth
}

// Normalize repairs a loaded project so it satisfies the page invariants:
// the home page exists, is first and permanent, and every page has a document.
func (p *Project) Normalize() {
	home := -1
	for i := range p.Pages {
		p.Pages[i].Permanent = p.Pages[i].ID == HomePageID
		if p.Pages[i].ID == HomePageID {
			home = i
		}
	}
	switch {
	case home < 0:
		p.Pages = append([]Page{{ID: HomePageID, Name: "Home", Permanent: true}}, p.Pages...)
	case home > 0:
		hp := p.Pages[home]
		p.Pages = append(p.Pages[:home], p.Pages[home+1:]...)
		p.Pages = append([]Page{hp}, p.Pages...)
	}
	if p.Documents == nil {
		p.Documents = map[string]Document{}
	}
	for _, pg := range p.Pages {
		d, ok := p.Documents[pg.ID]
		if !ok {
			d = Document{}
		}
		if d.Sections == nil {
			d.Sections = []Element{}
		}
		if d.Components == nil {
			d.Components = []Element{}
		}
		p.Documents[pg.ID] = d
	}
}

// Validate checks page uniqueness and each document's invariants.
func (p Project) Validate() error {
	ids := map[string]struct{}{}
	for _, pg := range p.Pages {
		if pg.ID == "" {
			return errors.New("page without id")
		}
		if _, dup := ids[pg.ID]; dup {
			return fmt.Errorf("duplicate page id %s", pg.ID)
		}
		ids[pg.ID] = struct{}{}
	}
	if _, ok := ids[HomePageID]; !ok {
		return errors.New("home page missing")
	}
	for id, d := range p.Documents {
		if _, ok := ids[id]; !ok {
			return fmt.Errorf("document for unknown page %s", id)
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("page %s: %w", id, err)
		}
	}
	return nil
}
