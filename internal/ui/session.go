/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"clipcomposer/internal/catalog"
	"clipcomposer/internal/config"
	"clipcomposer/internal/crash"
	"clipcomposer/internal/domain"
	"clipcomposer/internal/drag"
	"clipcomposer/internal/engine"
	"clipcomposer/internal/inspector"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/render"
	"clipcomposer/internal/storage"
	"clipcomposer/internal/store"
	"clipcomposer/internal/surface"
	"clipcomposer/internal/undo"
)

// ErrNoRenderService is returned by Render when no render URL is configured.
var ErrNoRenderService = errors.New("render service not configured")

// Session is one open project with every editing component wired together.
// The desktop shell drives it; tests drive it through surface.Memory.
type Session struct {
	Handle   *storage.ProjectHandle
	Store    *store.Store
	Drag     *drag.Controller
	Sync     *surface.Synchronizer
	Engine   *engine.Adapter
	Pipeline *render.Pipeline
	Ledger   *storage.JobLedger
	Catalog  catalog.Catalog

	cfg config.AppConfig
	log *slog.Logger
}

// SessionDeps are the pieces a caller supplies. Client and Catalog are optional.
type SessionDeps struct {
	Surface  surface.Surface
	Attacher engine.Attacher
	Client   render.Client
	Catalog  catalog.Catalog
}

// OpenSession opens the project at root and attaches its projection to deps.Surface.
func OpenSession(root string, cfg config.AppConfig, deps SessionDeps) (*Session, error) {
	ph, err := storage.Open(root)
	if err != nil {
		return nil, err
	}
	return NewSession(ph, cfg, deps)
}

// NewSession wires an already opened project.
func NewSession(ph *storage.ProjectHandle, cfg config.AppConfig, deps SessionDeps) (*Session, error) {
	if deps.Surface == nil {
		return nil, errors.New("surface required")
	}
	l := applog.WithComponent("session")
	p := ph.Project
	if p.FrameWidth <= 0 && cfg.Editor.FrameWidth > 0 {
		p.FrameWidth = cfg.Editor.FrameWidth
	}
	st := store.New(p, store.Options{History: undo.Config{MaxBytes: cfg.Editor.UndoMaxBytes}})
	dc := drag.New(st, drag.Options{SnapThreshold: cfg.Editor.SnapThreshold})
	s := &Session{
		Handle:  ph,
		Store:   st,
		Drag:    dc,
		Sync:    surface.NewSynchronizer(st, dc, deps.Surface, nil),
		Catalog: deps.Catalog,
		cfg:     cfg,
		log:     l,
	}
	if deps.Attacher != nil {
		s.Engine = engine.NewAdapter(deps.Attacher, engine.Options{})
		_ = s.Engine.SetComposition(context.Background(), p.Composition)
	}
	if deps.Client != nil {
		ledger, err := storage.OpenLedger(ph.Root)
		if err != nil {
			l.Warn("job ledger unavailable", slog.Any("err", err))
		} else {
			s.Ledger = ledger
		}
		rcfg := render.Config{
			Interval: cfg.Render.Interval(),
			Deadline: cfg.Render.Deadline(),
			OwnerID:  cfg.Render.OwnerID,
		}
		if s.Ledger != nil {
			rcfg.Recorder = s.Ledger
		}
		s.Pipeline = render.NewPipeline(deps.Client, rcfg)
	}
	s.Sync.Attach()
	l.Info("session opened", slog.String("root", ph.Root), slog.Int("pages", len(p.Pages)))
	return s, nil
}

// Guard is what the crash handler saves if the session panics.
func (s *Session) Guard() crash.Guard {
	return crash.Guard{Handle: s.Handle, Live: s.project}
}

func (s *Session) project() (p domain.Project) {
	p = s.Store.Project()
	if s.Engine != nil {
		p.Composition = s.Engine.Composition()
	}
	return p
}

// Save writes the live project to disk.
func (s *Session) Save() error {
	s.Handle.Project = s.project()
	if err := storage.Save(s.Handle); err != nil {
		return fmt.Errorf("save project: %w", err)
	}
	s.log.Info("project saved", slog.String("path", s.Handle.ManifestPath))
	return nil
}

// Inspector returns an editor for the selected element, or false when nothing is selected.
func (s *Session) Inspector() (*inspector.Editor, bool) {
	id := s.Store.Document().SelectedID
	if id == "" {
		return nil, false
	}
	return inspector.NewEditor(s.Store, id), true
}

// AttachEngine binds the playback engine to the host handle and applies any
// edits queued while it was detached.
func (s *Session) AttachEngine(ctx context.Context, handle any) error {
	if s.Engine == nil {
		return engine.ErrEngineNotReady
	}
	if err := s.Engine.Attach(ctx, handle); err != nil {
		return err
	}
	return s.Flush(ctx)
}

// SwapVideo points clipID at source, applying it now if the engine is ready.
func (s *Session) SwapVideo(ctx context.Context, clipID, source string) error {
	if s.Engine == nil {
		return engine.ErrEngineNotReady
	}
	s.Engine.QueueVideoSwap(clipID, source)
	return s.Flush(ctx)
}

// InjectCaptions adds caption clips for clipID from its transcript.
func (s *Session) InjectCaptions(ctx context.Context, clipID string, t engine.Transcript, style engine.CaptionStyle) error {
	if s.Engine == nil {
		return engine.ErrEngineNotReady
	}
	s.Engine.QueueCaptionInjection(clipID, t, style)
	return s.Flush(ctx)
}

// Flush applies queued engine edits. A detached engine is not an error; the
// edits stay queued until AttachEngine.
func (s *Session) Flush(ctx context.Context) error {
	err := s.Engine.FlushQueue(ctx)
	s.Store.SetComposition(s.Engine.Composition())
	if errors.Is(err, engine.ErrEngineNotReady) {
		swaps, captions := s.Engine.Pending()
		s.log.Debug("engine edits buffered", slog.Int("swaps", swaps), slog.Int("captions", captions))
		return nil
	}
	return err
}

// Render submits the live composition and polls it in the background.
// report receives exactly one outcome unless the returned task is cancelled.
func (s *Session) Render(ctx context.Context, report func(render.Outcome)) (*render.Task, error) {
	if s.Pipeline == nil {
		return nil, ErrNoRenderService
	}
	comp := s.project().Composition
	id, err := s.Pipeline.Submit(ctx, comp, s.cfg.Render.OutputFormat, float64(s.cfg.Render.FrameRate))
	if err != nil {
		return nil, err
	}
	return s.Pipeline.Poll(ctx, id, report), nil
}

// Close stops polling, detaches the projection and releases the engine and ledger.
func (s *Session) Close() error {
	s.Sync.Close()
	var errs []error
	if s.Pipeline != nil {
		s.Pipeline.Close()
	}
	if s.Engine != nil {
		errs = append(errs, s.Engine.Close())
	}
	if s.Ledger != nil {
		errs = append(errs, s.Ledger.Close())
	}
	return errors.Join(errs...)
}
