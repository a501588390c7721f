/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"clipcomposer/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export across formats and pages.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <project>/exports/<preset>/.
//   - PDF is a single file proof.pdf in OutDir.
//   - PNG/SVG outputs are page-<id>.(png|svg) in subfolders png/ or svg/ inside OutDir.
type BatchOptions struct {
	Preset        PresetName
	Formats       []string // allowed: pdf, png, svg; empty means preset defaults
	Pages         []string // empty means all pages
	Scale         float64  // raster scale; zero uses the preset's
	IncludeGuides *bool    // when set, overrides preset's default for guides
	OutDir        string
}

// BatchExport runs exports according to the given preset and returns the written files.
func BatchExport(ph *storage.ProjectHandle, opt BatchOptions) ([]string, error) {
	if ph == nil {
		return nil, fmt.Errorf("project handle is nil")
	}
	if len(ph.Project.Pages) == 0 {
		return nil, fmt.Errorf("project has no pages")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
		if baseOut == "" {
			baseOut = "proof"
		}
	}
	baseOut = resolveOut(ph.Root, baseOut)
	guides := presetIncludeGuides(opt.Preset)
	if opt.IncludeGuides != nil {
		guides = *opt.IncludeGuides
	}
	scale := opt.Scale
	if scale <= 0 {
		scale = presetScale(opt.Preset)
	}

	var written []string
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "pdf":
			out, err := ExportPDF(ph, filepath.Join(baseOut, "proof.pdf"), PDFOptions{IncludeGuides: guides, Compress: true, Pages: opt.Pages})
			if err != nil {
				return written, fmt.Errorf("pdf: %w", err)
			}
			written = append(written, out)
		case "png":
			files, err := ExportPNGPages(ph, filepath.Join(baseOut, "png"), PNGOptions{Scale: scale, IncludeGuides: guides, Pages: opt.Pages})
			written = append(written, files...)
			if err != nil {
				return written, fmt.Errorf("png: %w", err)
			}
		case "svg":
			files, err := ExportSVGPages(ph, filepath.Join(baseOut, "svg"), SVGOptions{IncludeGuides: guides, Pages: opt.Pages})
			written = append(written, files...)
			if err != nil {
				return written, fmt.Errorf("svg: %w", err)
			}
		default:
			return written, fmt.Errorf("unknown format: %s", f)
		}
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"pdf"}
	}
}

func presetIncludeGuides(p PresetName) bool {
	return p != PresetWeb
}

func presetScale(p PresetName) float64 {
	if p == PresetPrint {
		return 2
	}
	return 0.5
}
