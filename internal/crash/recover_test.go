/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/storage"
)

// TestRecoverWritesReportAndLiveSnapshot ensures Recover handles a panic, writes a report,
// snapshots the live project, and does not terminate the test process due to injected exitFn.
func TestRecoverWritesReportAndLiveSnapshot(t *testing.T) {
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	root := t.TempDir()
	ph := &storage.ProjectHandle{Root: root, ManifestPath: filepath.Join(root, storage.ManifestFileName), Project: domain.Project{Name: "on-disk"}}
	live := func() domain.Project { return domain.Project{Name: "unsaved-edits"} }

	func() {
		defer Recover(&Guard{Handle: ph, Live: live})
		panic("boom")
	}()

	bdir := filepath.Join(root, storage.BackupsDirName)
	files, err := os.ReadDir(bdir)
	if err != nil {
		t.Fatalf("read backups: %v", err)
	}
	var report, snap string
	for _, f := range files {
		switch {
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			report = filepath.Join(bdir, f.Name())
		case strings.HasSuffix(f.Name(), ".crash"):
			snap = filepath.Join(bdir, f.Name())
		}
	}
	if report == "" || snap == "" {
		t.Fatalf("expected report and snapshot, got %v", files)
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}
	s, _ := os.ReadFile(snap)
	if !bytes.Contains(s, []byte("unsaved-edits")) {
		t.Fatalf("snapshot should hold the live project: %s", s)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}
