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
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/storage"
	"clipcomposer/internal/vector"
)

// PNGOptions controls PNG export behavior.
// Scale maps frame units to pixels; zero means 0.5.
type PNGOptions struct {
	Scale         float64
	IncludeGuides bool
	Pages         []string
}

const labelPad = 4

// RenderPage rasterises one page.
func RenderPage(p domain.Project, pageID string, scale float64) (*image.RGBA, error) {
	if scale <= 0 {
		scale = 0.5
	}
	l, err := PageLayout(p, pageID)
	if err != nil {
		return nil, err
	}
	pixW := int(math.Round(l.Width * scale))
	pixH := int(math.Round(l.Height * scale))
	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	for _, b := range l.Boxes {
		x0 := int(math.Round(b.Rect.X * scale))
		y0 := int(math.Round(b.Rect.Y * scale))
		x1 := int(math.Round((b.Rect.X+b.Rect.W)*scale)) - 1
		y1 := int(math.Round((b.Rect.Y+b.Rect.H)*scale)) - 1
		fillRect(img, x0, y0, x1, y1, toRGBA(b.Fill))
		strokeRect(img, x0, y0, x1, y1, toRGBA(vector.Black))
		drawLabel(img, face, b.Label, image.Rect(x0+1, y0+1, x1, y1))
	}
	return img, nil
}

// drawLabel writes text at the top-left of box, cut to the box width.
func drawLabel(img *image.RGBA, face font.Face, text string, box image.Rectangle) {
	if text == "" || box.Dx() <= 2*labelPad {
		return
	}
	ascent := face.Metrics().Ascent.Ceil()
	if box.Dy() < ascent+labelPad {
		return
	}
	d := &font.Drawer{
		Dst:  img.SubImage(box).(*image.RGBA),
		Src:  image.NewUniform(color.RGBA{0, 0, 0, 255}),
		Face: face,
		Dot:  fixed.P(box.Min.X+labelPad, box.Min.Y+labelPad+ascent),
	}
	limit := fixed.I(box.Dx() - 2*labelPad)
	fitted := []rune{}
	for _, r := range text {
		if d.MeasureString(string(append(fitted, r))) > limit {
			break
		}
		fitted = append(fitted, r)
	}
	d.DrawString(string(fitted))
}

// WritePNG encodes one page to w.
func WritePNG(p domain.Project, pageID string, w io.Writer, opt PNGOptions) error {
	img, err := RenderPage(p, pageID, opt.Scale)
	if err != nil {
		return err
	}
	if opt.IncludeGuides {
		b := img.Bounds()
		strokeRect(img, 0, 0, b.Dx()-1, b.Dy()-1, toRGBA(guideColor))
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ExportPNGPages writes page-<id>.png files to outDir and returns their paths.
func ExportPNGPages(ph *storage.ProjectHandle, outDir string, opt PNGOptions) ([]string, error) {
	if ph == nil {
		return nil, fmt.Errorf("project handle is nil")
	}
	outDir = resolveOut(ph.Root, outDir)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var written []string
	for _, id := range pageIDs(ph.Project, opt.Pages) {
		name := filepath.Join(outDir, pageFileName(id, "png"))
		f, err := os.Create(name)
		if err != nil {
			return written, fmt.Errorf("create png: %w", err)
		}
		if err := WritePNG(ph.Project, id, f, opt); err != nil {
			_ = f.Close()
			return written, err
		}
		if err := f.Close(); err != nil {
			return written, fmt.Errorf("close png: %w", err)
		}
		written = append(written, name)
	}
	return written, nil
}

func toRGBA(c vector.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}
