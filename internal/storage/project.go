/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"clipcomposer/internal/domain"
	applog "clipcomposer/internal/log"
)

const (
	ManifestFileName = "project.json"
	BackupsDirName   = "backups"
	ExportsDirName   = "exports"
	MediaDirName     = "media"

	backupStamp = "20060102-150405.000"
)

var standardSubDirs = []string{
	MediaDirName,
	ExportsDirName,
	BackupsDirName,
}

// ProjectHandle ties a loaded project to its directory on disk.
// Root is the project directory containing project.json and subfolders.
type ProjectHandle struct {
	Root         string
	ManifestPath string
	Project      domain.Project
	// Recovered is set when Open fell back to a backup.
	Recovered string
}

// InitProject creates a new project directory at root (creating it if it doesn't exist),
// scaffolds the standard subfolders, and writes the given manifest file transactionally.
func InitProject(root string, proj domain.Project) (*ProjectHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	proj.Normalize()
	ph := &ProjectHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Project:      proj,
	}
	if err := Save(ph); err != nil {
		return nil, err
	}
	applog.WithComponent("storage").Info("project initialised", slog.String("root", root), slog.String("name", proj.Name))
	return ph, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads an existing project from the given root directory.
// If the current manifest cannot be read, parsed or validated, the latest backup is tried.
func Open(root string) (*ProjectHandle, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("root", root))
	mpath := filepath.Join(root, ManifestFileName)
	p, err := readManifest(mpath)
	if err == nil {
		return &ProjectHandle{Root: root, ManifestPath: mpath, Project: p}, nil
	}
	l.Warn("manifest unusable, trying backup", slog.Any("err", err))
	bp, bpath, berr := openFromLatestBackup(root)
	if berr != nil {
		return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
	}
	l.Info("project recovered from backup", slog.String("backup", bpath))
	return &ProjectHandle{Root: root, ManifestPath: mpath, Project: bp, Recovered: bpath}, nil
}

func readManifest(path string) (domain.Project, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Project{}, err
	}
	return Decode(b)
}

// Decode validates data against the manifest schema and unmarshals it. Property
// trees are checked for depth while decoding.
func Decode(data []byte) (domain.Project, error) {
	if err := ValidateManifest(data); err != nil {
		return domain.Project{}, err
	}
	var p domain.Project
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.Project{}, fmt.Errorf("parse manifest: %w", err)
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return domain.Project{}, fmt.Errorf("invalid project: %w", err)
	}
	return p, nil
}

// Save writes the current ProjectHandle.Project to disk with transactional semantics
// and a timestamped backup of the previous manifest (if present).
func Save(ph *ProjectHandle) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	if ph.Root == "" || ph.ManifestPath == "" {
		return errors.New("invalid ProjectHandle: missing paths")
	}
	data, err := json.MarshalIndent(ph.Project, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(ph.ManifestPath); statErr == nil {
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", ManifestFileName, time.Now().Format(backupStamp)))
		if cerr := copyFile(ph.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
	}
	return atomicWrite(ph.ManifestPath, data)
}

// SaveAs writes the manifest to a new root folder, scaffolding structure if needed, and updates the handle.
func SaveAs(ph *ProjectHandle, newRoot string) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	if newRoot == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	ph.Root = newRoot
	ph.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(ph)
}

// AutosaveCrashSnapshot writes the in-memory project next to the backups without
// touching project.json and returns the written path.
func AutosaveCrashSnapshot(ph *ProjectHandle) (string, error) {
	if ph == nil || ph.Root == "" {
		return "", errors.New("invalid ProjectHandle: missing root")
	}
	data, err := json.MarshalIndent(ph.Project, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(bdir, fmt.Sprintf("%s.%s.crash", ManifestFileName, time.Now().Format(backupStamp)))
	if err := atomicWrite(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// atomicWrite writes to a temp file in the same directory, then renames it over path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp file: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), rerr)
	}
	return nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// Backups lists manifest backups, oldest first.
func Backups(root string) ([]string, error) {
	bdir := filepath.Join(root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	// timestamp in name yields lexicographic order
	sort.Strings(out)
	return out, nil
}

// openFromLatestBackup walks backups newest first and returns the first usable one.
func openFromLatestBackup(root string) (domain.Project, string, error) {
	candidates, err := Backups(root)
	if err != nil {
		return domain.Project{}, "", err
	}
	if len(candidates) == 0 {
		return domain.Project{}, "", errors.New("no backups found")
	}
	var lastErr error
	for i := len(candidates) - 1; i >= 0; i-- {
		p, err := readManifest(candidates[i])
		if err == nil {
			return p, candidates[i], nil
		}
		lastErr = err
	}
	return domain.Project{}, "", fmt.Errorf("no usable backup: %w", lastErr)
}
