/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/storage"
	"clipcomposer/internal/vector"
)

// PDFOptions controls PDF export behavior.
// Units are points; one frame unit maps to one point.
type PDFOptions struct {
	IncludeGuides bool
	// Compress deflates content streams. Off keeps the output greppable.
	Compress bool
	// Pages limits the export; empty means every page.
	Pages []string
}

// WritePDF writes one PDF page per project page to w.
func WritePDF(p domain.Project, w io.Writer, opt PDFOptions) error {
	ids := pageIDs(p, opt.Pages)
	if len(ids) == 0 {
		return fmt.Errorf("project has no pages")
	}
	first, err := PageLayout(p, ids[0])
	if err != nil {
		return err
	}
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: first.Width, Ht: first.Height},
	})
	pdf.SetCompression(opt.Compress)
	pdf.SetTitle(p.Name+" layout proof", true)
	pdf.SetCreator("clipcomposer", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Helvetica", "", 12)

	for _, id := range ids {
		l, err := PageLayout(p, id)
		if err != nil {
			return err
		}
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: l.Width, Ht: l.Height})
		if opt.IncludeGuides {
			setDrawColor(pdf, guideColor)
			pdf.SetLineWidth(0.5)
			pdf.Rect(0, 0, l.Width, l.Height, "D")
		}
		pdf.SetLineWidth(1)
		setDrawColor(pdf, vector.Black)
		for _, b := range l.Boxes {
			setFillColor(pdf, b.Fill)
			pdf.Rect(b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H, "FD")
			if b.Label == "" {
				continue
			}
			pdf.SetTextColor(0, 0, 0)
			pdf.ClipRect(b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H, false)
			pdf.Text(b.Rect.X+6, b.Rect.Y+18, tr(b.Label))
			pdf.ClipEnd()
		}
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportPDF writes the project's pages to outPath. Relative paths land in the
// project's exports folder.
func ExportPDF(ph *storage.ProjectHandle, outPath string, opt PDFOptions) (string, error) {
	if ph == nil {
		return "", fmt.Errorf("project handle is nil")
	}
	outPath = resolveOut(ph.Root, outPath)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create pdf: %w", err)
	}
	if err := WritePDF(ph.Project, f, opt); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close pdf: %w", err)
	}
	return outPath, nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
