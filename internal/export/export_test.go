package export

import (
	"bytes"
	"errors"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/props"
	"clipcomposer/internal/storage"
)

func proofProject() domain.Project {
	p := domain.NewProject("Proof")
	p.Documents[domain.HomePageID] = domain.Document{
		Sections: []domain.Element{{ID: "s1", Kind: domain.KindSection, Name: "Intro", Size: domain.Size{Width: 1080, Height: 320}}},
		Components: []domain.Element{{
			ID: "c1", Kind: domain.KindComponent, Name: "Headline",
			Position: domain.Position{X: 100, Y: 400}, Size: domain.Size{Width: 240, Height: 120},
			Props: props.Map(map[string]props.Value{
				"text":       props.Text("Title"),
				"background": props.Text("#ff0000"),
			}),
		}},
	}
	return p
}

func TestPageLayout(t *testing.T) {
	l, err := PageLayout(proofProject(), domain.HomePageID)
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if l.Width != 1080 || l.Height != 520 || len(l.Boxes) != 2 {
		t.Fatalf("layout = %vx%v boxes=%d", l.Width, l.Height, len(l.Boxes))
	}
	if l.Boxes[0].ElementID != "s1" || l.Boxes[1].Label != "Title" {
		t.Fatalf("box order/labels = %+v", l.Boxes)
	}
	if _, err := PageLayout(proofProject(), "nope"); !errors.Is(err, ErrUnknownPage) {
		t.Fatalf("err = %v", err)
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(proofProject(), &buf, PDFOptions{IncludeGuides: true}); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "%PDF-") {
		t.Fatalf("not a pdf")
	}
	if !strings.Contains(out, "(Title) Tj") {
		t.Fatalf("label missing from content stream")
	}
	if err := WritePDF(proofProject(), &buf, PDFOptions{Pages: []string{"nope"}}); !errors.Is(err, ErrUnknownPage) {
		t.Fatalf("err = %v", err)
	}
}

func TestRenderPagePixels(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(proofProject(), domain.HomePageID, &buf, PNGOptions{Scale: 0.5}); err != nil {
		t.Fatalf("png: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 540 || b.Dy() != 260 {
		t.Fatalf("size = %v", b)
	}
	red := color.RGBAModel.Convert(img.At(160, 250)).(color.RGBA)
	if red != (color.RGBA{255, 0, 0, 255}) {
		t.Fatalf("component fill = %v", red)
	}
	section := color.RGBAModel.Convert(img.At(300, 100)).(color.RGBA)
	if section != (color.RGBA{240, 240, 244, 255}) {
		t.Fatalf("section fill = %v", section)
	}
	ink := false
	for y := 202; y < 222 && !ink; y++ {
		for x := 52; x < 120; x++ {
			if c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA); c.R < 100 {
				ink = true
				break
			}
		}
	}
	if !ink {
		t.Fatalf("label not drawn")
	}
}

func TestWriteSVGEscapes(t *testing.T) {
	p := proofProject()
	doc := p.Documents[domain.HomePageID]
	doc.Components[0].Props = doc.Components[0].Props.Set(props.Path{"text"}, props.Text("<b>&"))
	p.Documents[domain.HomePageID] = doc
	var buf bytes.Buffer
	if err := WriteSVG(p, domain.HomePageID, &buf, SVGOptions{}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`data-element-id="c1"`, `fill="#ff0000"`, `&lt;b&gt;&amp;`, `viewBox="0 0 1080 520"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("svg missing %q:\n%s", want, out)
		}
	}
}

func TestBatchExportPresets(t *testing.T) {
	root := t.TempDir()
	ph, err := storage.InitProject(root, proofProject())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	files, err := BatchExport(ph, BatchOptions{Preset: PresetWeb})
	if err != nil {
		t.Fatalf("web: %v", err)
	}
	want := []string{
		filepath.Join(root, "exports", "web", "png", "page-home.png"),
		filepath.Join(root, "exports", "web", "svg", "page-home.svg"),
	}
	if strings.Join(files, ",") != strings.Join(want, ",") {
		t.Fatalf("files = %v", files)
	}
	out := filepath.Join(t.TempDir(), "print")
	files, err = BatchExport(ph, BatchOptions{Preset: PresetPrint, OutDir: out})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	for _, f := range files {
		if st, err := os.Stat(f); err != nil || st.Size() == 0 {
			t.Fatalf("missing output %s: %v", f, err)
		}
	}
	if _, err := BatchExport(ph, BatchOptions{Formats: []string{"cbz"}}); err == nil {
		t.Fatalf("expected unknown format error")
	}
}
