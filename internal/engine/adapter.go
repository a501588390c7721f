/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"clipcomposer/internal/domain"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/vector"
)

// Options tune an Adapter.
type Options struct {
	// NewID generates caption clip ids; defaults to random UUIDs.
	NewID  func() string
	Logger *slog.Logger
}

// Adapter owns the engine handle, a mirror of the composition it holds and
// the backlog of edits not yet applied.
type Adapter struct {
	mu       sync.Mutex
	flushMu  sync.Mutex
	attach   Attacher
	eng      Engine
	comp     domain.Composition
	swaps    []VideoSwap
	captions []CaptionInjection
	newID    func() string
	log      *slog.Logger
}

func NewAdapter(attach Attacher, opts Options) *Adapter {
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("engine")
	}
	return &Adapter{attach: attach, newID: opts.NewID, log: opts.Logger}
}

// Attach binds a new engine to handle, disposing any previous engine first,
// and loads the current composition into it. Attach failures are returned
// wrapped in ErrAttach; the adapter is left detached.
func (a *Adapter) Attach(ctx context.Context, handle any) error {
	a.mu.Lock()
	prev := a.eng
	a.eng = nil
	comp := a.comp.Clone()
	a.mu.Unlock()
	if prev != nil {
		if err := prev.Dispose(); err != nil {
			a.log.Warn("dispose previous engine", slog.Any("err", err))
		}
	}
	eng, err := a.attach(ctx, handle)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAttach, err)
	}
	if err := eng.SetSource(ctx, comp); err != nil {
		_ = eng.Dispose()
		return fmt.Errorf("%w: load composition: %v", ErrAttach, err)
	}
	a.mu.Lock()
	a.eng = eng
	a.mu.Unlock()
	a.log.Info("engine attached", slog.Int("clips", len(comp.Clips)))
	return nil
}

// Ready reports whether an engine is attached.
func (a *Adapter) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.eng != nil
}

// SetComposition replaces the composition. Without an engine it is kept and
// loaded on Attach, and ErrEngineNotReady is returned as a buffering signal.
func (a *Adapter) SetComposition(ctx context.Context, c domain.Composition) error {
	c = c.Clone()
	a.mu.Lock()
	a.comp = c
	eng := a.eng
	a.mu.Unlock()
	if eng == nil {
		return ErrEngineNotReady
	}
	return eng.SetSource(ctx, c.Clone())
}

// QueueVideoSwap buffers a source change for elementID. It is always accepted.
func (a *Adapter) QueueVideoSwap(elementID, newSource string) {
	a.mu.Lock()
	a.swaps = append(a.swaps, VideoSwap{ElementID: elementID, Source: newSource})
	a.mu.Unlock()
	a.log.Debug("video swap queued", slog.String("element", elementID))
}

// QueueCaptionInjection buffers captions for elementID. It is always accepted.
func (a *Adapter) QueueCaptionInjection(elementID string, t Transcript, style CaptionStyle) {
	a.mu.Lock()
	a.captions = append(a.captions, CaptionInjection{ElementID: elementID, Transcript: t, Style: style})
	a.mu.Unlock()
	a.log.Debug("caption injection queued", slog.String("element", elementID), slog.Int("words", len(t.Words)))
}

// Pending returns the number of buffered swaps and caption injections.
func (a *Adapter) Pending() (swaps, captions int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.swaps), len(a.captions)
}

// FlushQueue applies the backlog to the engine: every video swap, in arrival
// order, before any caption injection. Each entry leaves the queue only after
// it was applied; on error the remaining entries stay queued for a retry.
func (a *Adapter) FlushQueue(ctx context.Context) error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()
	applied := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.mu.Lock()
		eng := a.eng
		if eng == nil {
			a.mu.Unlock()
			return ErrEngineNotReady
		}
		switch {
		case len(a.swaps) > 0:
			sw := a.swaps[0]
			_, _, found := a.comp.Find(sw.ElementID)
			a.mu.Unlock()
			if !found {
				a.log.Warn("video swap for unknown element dropped", slog.String("element", sw.ElementID))
			} else if err := eng.ReplaceSource(ctx, sw.ElementID, sw.Source); err != nil {
				a.log.Warn("flush stopped", slog.String("at", sw.String()), slog.Any("err", err))
				return fmt.Errorf("apply %s: %w", sw, err)
			}
			a.mu.Lock()
			if _, i, ok := a.comp.Find(sw.ElementID); ok {
				a.comp.Clips[i].Source = sw.Source
			}
			a.swaps = a.swaps[1:]
			a.mu.Unlock()
		case len(a.captions) > 0:
			ci := a.captions[0]
			target, _, found := a.comp.Find(ci.ElementID)
			track := a.comp.MaxTrack() + 1
			a.mu.Unlock()
			offset := 0.0
			if found {
				offset = target.Time
			} else {
				a.log.Warn("caption target missing, timing from 0", slog.String("element", ci.ElementID))
			}
			clips := captionClips(ci, offset, track, a.newID)
			if len(clips) > 0 {
				if err := eng.AddClips(ctx, clips); err != nil {
					a.log.Warn("flush stopped", slog.String("at", "captions "+ci.ElementID), slog.Any("err", err))
					return fmt.Errorf("apply captions for %s: %w", ci.ElementID, err)
				}
			}
			a.mu.Lock()
			a.comp.Clips = append(a.comp.Clips, clips...)
			a.captions = a.captions[1:]
			a.mu.Unlock()
		default:
			a.mu.Unlock()
			if applied > 0 {
				a.log.Info("queue flushed", slog.Int("applied", applied))
			}
			return nil
		}
		applied++
	}
}

// Composition returns a deep copy of the mirrored composition.
func (a *Adapter) Composition() domain.Composition {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.comp.Clone()
}

func (a *Adapter) engine() (Engine, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.eng == nil {
		return nil, ErrEngineNotReady
	}
	return a.eng, nil
}

func (a *Adapter) Play(ctx context.Context) error {
	eng, err := a.engine()
	if err != nil {
		return err
	}
	return eng.Play(ctx)
}

func (a *Adapter) Pause(ctx context.Context) error {
	eng, err := a.engine()
	if err != nil {
		return err
	}
	return eng.Pause(ctx)
}

// Time is the playback position; false while no engine is attached.
func (a *Adapter) Time() (float64, bool) {
	eng, err := a.engine()
	if err != nil {
		return 0, false
	}
	return eng.Time(), true
}

// Seek moves playback to t, clamped to the composition length.
func (a *Adapter) Seek(ctx context.Context, t float64) error {
	eng, err := a.engine()
	if err != nil {
		return err
	}
	a.mu.Lock()
	end := a.comp.End()
	a.mu.Unlock()
	return eng.Seek(ctx, vector.Clamp(t, 0, end))
}

// Skip moves playback by delta seconds from the current position.
func (a *Adapter) Skip(ctx context.Context, delta float64) error {
	eng, err := a.engine()
	if err != nil {
		return err
	}
	return a.Seek(ctx, eng.Time()+delta)
}

// Close disposes the engine. Buffered edits are kept.
func (a *Adapter) Close() error {
	a.mu.Lock()
	eng := a.eng
	a.eng = nil
	a.mu.Unlock()
	if eng == nil {
		return nil
	}
	return eng.Dispose()
}
