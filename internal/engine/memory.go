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
	"errors"
	"fmt"
	"sync"

	"clipcomposer/internal/domain"
)

var errDisposed = errors.New("engine disposed")

// Applied is one mutation recorded by a Memory engine. Seq increases by one
// per applied mutation across the engine's lifetime.
type Applied struct {
	Seq       int
	Op        string
	ElementID string
	Clips     []domain.Clip
}

// Memory is an in-process Engine. It keeps the composition, a playback clock
// and a log of applied mutations; FailNext injects errors for tests.
type Memory struct {
	mu       sync.Mutex
	comp     domain.Composition
	log      []Applied
	seq      int
	playing  bool
	at       float64
	okBefore int
	failNext int
	disposed bool
}

func NewMemory() *Memory { return &Memory{} }

// MemoryAttacher returns an Attacher handing out m.
func MemoryAttacher(m *Memory) Attacher {
	return func(context.Context, any) (Engine, error) {
		m.mu.Lock()
		m.disposed = false
		m.mu.Unlock()
		return m, nil
	}
}

// FailNext makes the next n mutating calls fail.
func (m *Memory) FailNext(n int) { m.FailAfter(0, n) }

// FailAfter lets ok mutating calls succeed and fails the n after them.
func (m *Memory) FailAfter(ok, n int) {
	m.mu.Lock()
	m.okBefore, m.failNext = ok, n
	m.mu.Unlock()
}

func (m *Memory) begin() error {
	if m.disposed {
		return errDisposed
	}
	if m.okBefore > 0 {
		m.okBefore--
		return nil
	}
	if m.failNext > 0 {
		m.failNext--
		return errors.New("injected engine failure")
	}
	return nil
}

func (m *Memory) record(op, id string, clips []domain.Clip) {
	m.seq++
	m.log = append(m.log, Applied{Seq: m.seq, Op: op, ElementID: id, Clips: clips})
}

func (m *Memory) SetSource(_ context.Context, c domain.Composition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return err
	}
	m.comp = c.Clone()
	m.record("set-source", "", nil)
	return nil
}

func (m *Memory) ReplaceSource(_ context.Context, clipID, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return err
	}
	_, i, ok := m.comp.Find(clipID)
	if !ok {
		return fmt.Errorf("clip %s not loaded", clipID)
	}
	m.comp.Clips[i].Source = source
	m.record("replace-source", clipID, nil)
	return nil
}

func (m *Memory) AddClips(_ context.Context, clips []domain.Clip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(); err != nil {
		return err
	}
	m.comp.Clips = append(m.comp.Clips, clips...)
	m.record("add-clips", "", append([]domain.Clip(nil), clips...))
	return nil
}

func (m *Memory) Play(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return errDisposed
	}
	m.playing = true
	return nil
}

func (m *Memory) Pause(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return errDisposed
	}
	m.playing = false
	return nil
}

func (m *Memory) Seek(_ context.Context, t float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return errDisposed
	}
	m.at = t
	return nil
}

func (m *Memory) Time() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.at
}

func (m *Memory) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *Memory) Dispose() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disposed = true
	m.playing = false
	return nil
}

func (m *Memory) Disposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// Log returns the applied mutations in order.
func (m *Memory) Log() []Applied {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Applied(nil), m.log...)
}

// Loaded returns a copy of the composition the engine holds.
func (m *Memory) Loaded() domain.Composition {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.comp.Clone()
}
