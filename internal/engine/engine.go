/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package engine mirrors the editor's composition into an external, stateful
// composition engine (a player/preview that can also render).
//
// The Adapter is the only holder of the engine handle. Edits made before the
// engine is attached are buffered and applied in arrival order by FlushQueue,
// video swaps strictly before caption injections.
package engine

import (
	"context"
	"errors"
	"fmt"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/props"
)

var (
	// ErrEngineNotReady signals that edits were buffered; it is not a failure.
	ErrEngineNotReady = errors.New("composition engine not ready")
	ErrAttach         = errors.New("attach composition engine")
)

// Engine is a live handle to an external composition engine.
type Engine interface {
	// SetSource replaces the whole composition.
	SetSource(ctx context.Context, c domain.Composition) error
	// ReplaceSource points an existing clip at a new media source.
	ReplaceSource(ctx context.Context, clipID, source string) error
	// AddClips inserts new clips.
	AddClips(ctx context.Context, clips []domain.Clip) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, t float64) error
	// Time is the current playback position in seconds.
	Time() float64
	// Dispose releases the engine. The handle is unusable afterwards.
	Dispose() error
}

// Attacher creates an engine bound to a host surface handle.
type Attacher func(ctx context.Context, handle any) (Engine, error)

// Word is one transcribed word with times in seconds relative to its clip.
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (w Word) Duration() float64 {
	if d := w.End - w.Start; d > 0 {
		return d
	}
	return 0
}

// Transcript is the word-level transcription of a clip.
type Transcript struct {
	Words []Word `json:"words"`
}

// CaptionStyle is applied to every generated caption clip.
type CaptionStyle struct {
	Font       string  `json:"font,omitempty"`
	Size       float64 `json:"size,omitempty"`
	Color      string  `json:"color,omitempty"`
	Background string  `json:"background,omitempty"`
	// Placement is "top", "center" or "bottom".
	Placement string `json:"placement,omitempty"`
}

func (s CaptionStyle) props() props.Value {
	v := props.EmptyMap()
	if s.Font != "" {
		v = v.Set(props.Path{"font"}, props.Text(s.Font))
	}
	if s.Size > 0 {
		v = v.Set(props.Path{"size"}, props.Number(s.Size))
	}
	if s.Color != "" {
		v = v.Set(props.Path{"color"}, props.Text(s.Color))
	}
	if s.Background != "" {
		v = v.Set(props.Path{"background"}, props.Text(s.Background))
	}
	if s.Placement != "" {
		v = v.Set(props.Path{"placement"}, props.Text(s.Placement))
	}
	return v
}

// VideoSwap is a buffered request to change a clip's media source.
type VideoSwap struct {
	ElementID string
	Source    string
}

// CaptionInjection is a buffered request to caption a clip word by word.
type CaptionInjection struct {
	ElementID  string
	Transcript Transcript
	Style      CaptionStyle
}

// captionClips expands a transcript into one text clip per word on track,
// offset by the target clip's start time.
func captionClips(ci CaptionInjection, offset float64, track int, newID func() string) []domain.Clip {
	style := ci.Style.props()
	out := make([]domain.Clip, 0, len(ci.Transcript.Words))
	for _, w := range ci.Transcript.Words {
		if w.Text == "" {
			continue
		}
		out = append(out, domain.Clip{
			ID:       newID(),
			Type:     domain.ClipText,
			Track:    track,
			Time:     offset + w.Start,
			Duration: w.Duration(),
			Text:     w.Text,
			Props:    style,
		})
	}
	return out
}

func (v VideoSwap) String() string { return fmt.Sprintf("swap %s -> %s", v.ElementID, v.Source) }
