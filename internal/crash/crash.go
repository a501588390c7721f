/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a report file plus a crash snapshot of the
// project being edited.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"clipcomposer/internal/domain"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/storage"
	"clipcomposer/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Guard describes what to save when the process panics. Live, when set,
// returns the in-memory project so unsaved edits end up in the snapshot.
type Guard struct {
	Handle *storage.ProjectHandle
	Live   func() domain.Project
}

// Recover captures a panic, logs an error with stacktrace,
// writes an error report file, and attempts a crash-safe autosave
// of the project (if a handle is guarded). g may be filled in after the
// defer statement runs; a nil g only writes the report.
//
// Usage: defer crash.Recover(&g)
func Recover(g *Guard) {
	r := recover()
	if r == nil {
		return
	}
	if g == nil {
		g = &Guard{}
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(g.Handle, r, stack)
	if err != nil {
		l.Error("crash report failed", slog.Any("err", err))
	}
	if path, err := snapshot(*g); err != nil {
		l.Error("autosave crash snapshot failed", slog.Any("err", err))
	} else if path != "" {
		l.Info("autosave crash snapshot written", slog.String("path", path))
	}

	_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

func snapshot(g Guard) (path string, err error) {
	if g.Handle == nil {
		return "", nil
	}
	ph := *g.Handle
	if g.Live != nil {
		// The live state may be what panicked; fall back to the last saved project.
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("read live project: %v", r)
				}
			}()
			ph.Project = g.Live()
		}()
		if err != nil {
			ph.Project = g.Handle.Project
			applog.WithComponent("crash").Warn("using last saved project for snapshot", slog.Any("err", err))
			err = nil
		}
	}
	return storage.AutosaveCrashSnapshot(&ph)
}

func writeReport(ph *storage.ProjectHandle, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if ph != nil && ph.Root != "" {
		dir = filepath.Join(ph.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", now.Format("20060102-150405.000")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "ClipComposer Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ph != nil {
		_, _ = fmt.Fprintf(&buf, "ProjectRoot: %s\n", ph.Root)
		_, _ = fmt.Fprintf(&buf, "Manifest: %s\n", ph.ManifestPath)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	return path, f.Sync()
}
