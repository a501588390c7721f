/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/storage"
	"clipcomposer/internal/vector"
)

// SVGOptions controls SVG export behavior.
type SVGOptions struct {
	IncludeGuides bool
	Pages         []string
}

// WriteSVG writes one page as a standalone SVG document in frame units.
func WriteSVG(p domain.Project, pageID string, w io.Writer, opt SVGOptions) error {
	l, err := PageLayout(p, pageID)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	wf := func(format string, args ...any) { _, _ = fmt.Fprintf(&buf, format, args...) }

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\">\n", l.Width, l.Height, l.Width, l.Height)
	wf("  <title>%s</title>\n", escText(p.Name+" / "+l.PageName))
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", l.Width, l.Height)
	for _, b := range l.Boxes {
		wf("  <g data-element-id=\"%s\" data-kind=\"%s\">\n", escAttr(b.ElementID), b.Kind)
		wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"%s\" stroke=\"%s\" stroke-width=\"1\"/>\n",
			b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H, svgColor(b.Fill), svgColor(vector.Black))
		if b.Label != "" {
			wf("    <text x=\"%g\" y=\"%g\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"12\">%s</text>\n",
				b.Rect.X+6, b.Rect.Y+18, escText(b.Label))
		}
		wf("  </g>\n")
	}
	if opt.IncludeGuides {
		wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"none\" stroke=\"%s\" stroke-width=\"0.5\"/>\n", l.Width, l.Height, svgColor(guideColor))
	}
	wf("</svg>\n")
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

// ExportSVGPages writes page-<id>.svg files to outDir and returns their paths.
func ExportSVGPages(ph *storage.ProjectHandle, outDir string, opt SVGOptions) ([]string, error) {
	if ph == nil {
		return nil, fmt.Errorf("project handle is nil")
	}
	outDir = resolveOut(ph.Root, outDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var written []string
	for _, id := range pageIDs(ph.Project, opt.Pages) {
		var buf bytes.Buffer
		if err := WriteSVG(ph.Project, id, &buf, opt); err != nil {
			return written, err
		}
		name := filepath.Join(outDir, pageFileName(id, "svg"))
		if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
			return written, fmt.Errorf("write svg: %w", err)
		}
		written = append(written, name)
	}
	return written, nil
}

func svgColor(c vector.Color) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func escAttr(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
