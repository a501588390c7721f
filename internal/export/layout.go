/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes layout proofs of project pages as PDF, PNG and SVG.
// Proofs draw what the editor surface shows: sections as full-width bands in
// order, then components as labelled boxes in stacking order.
package export

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/store"
	"clipcomposer/internal/surface"
	"clipcomposer/internal/vector"
)

// ErrUnknownPage is returned for a page id the project does not have.
var ErrUnknownPage = errors.New("unknown page")

var guideColor = vector.Color{R: 255, G: 0, B: 0, A: 255}

// Layout is the resolved geometry of one page.
type Layout struct {
	PageID   string
	PageName string
	Width    float64
	Height   float64
	Boxes    []surface.NodeSpec
}

// PageLayout resolves the boxes of pageID. The height grows to fit the
// lowest element and is at least one default section tall.
func PageLayout(p domain.Project, pageID string) (Layout, error) {
	var page *domain.Page
	for i := range p.Pages {
		if p.Pages[i].ID == pageID {
			page = &p.Pages[i]
			break
		}
	}
	if page == nil {
		return Layout{}, fmt.Errorf("%w: %s", ErrUnknownPage, pageID)
	}
	doc := p.Documents[pageID]
	l := Layout{PageID: page.ID, PageName: page.Name, Width: p.Frame(), Height: store.DefaultSectionHeight}
	for _, e := range doc.Elements() {
		spec := surface.Spec(e, l.Width, "")
		l.Boxes = append(l.Boxes, spec)
		if b := spec.Rect.Max().Y; b > l.Height {
			l.Height = b
		}
	}
	return l, nil
}

func pageIDs(p domain.Project, only []string) []string {
	if len(only) > 0 {
		return only
	}
	out := make([]string, len(p.Pages))
	for i, pg := range p.Pages {
		out[i] = pg.ID
	}
	return out
}

func pageFileName(pageID, ext string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, pageID)
	return fmt.Sprintf("page-%s.%s", clean, ext)
}

func resolveOut(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, "exports", p)
}
