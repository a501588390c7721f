//go:build fyne && !cgo

package ui

import "fmt"

// Run fails fast: the fyne build links OpenGL through cgo, so a CGO_ENABLED=0
// binary has no editor window to open.
func Run(projectDir string) error {
	return fmt.Errorf("open editor %q: fyne build needs cgo and a C toolchain, rebuild with CGO_ENABLED=1 go build -tags fyne ./cmd/clipcomposer", projectDir)
}
