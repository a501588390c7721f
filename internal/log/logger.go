/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package log configures the process-wide slog logger used by the editor,
// the composition adapter and the render pipeline. Every component derives a
// child logger through WithComponent so records can be filtered by subsystem.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"clipcomposer/internal/version"

	"github.com/mattn/go-isatty"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "CLIP_LOG_LEVEL"
	EnvFormat = "CLIP_LOG_FORMAT"
	EnvSource = "CLIP_LOG_SOURCE"
	EnvFile   = "CLIP_LOG_FILE"
)

// Options controls logger initialization.
//   - Level: debug|info|warn|error (default info)
//   - Format: console|json|auto for stderr output (default console); auto
//     picks console on a terminal and json otherwise
//   - File: optional path; enables an additional rotated JSON sink
type Options struct {
	Level     string
	Format    string
	AddSource bool
	File      string
}

var (
	mu      sync.RWMutex
	current *slog.Logger
	sinks   []io.Closer
)

// L returns the application logger, initializing it from the environment on first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Init replaces the application logger and slog.Default.
// Calling Init again closes file sinks opened by the previous call.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)
	hopts := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}

	var console slog.Handler
	if useJSON(opts.Format, os.Stderr.Fd()) {
		console = slog.NewJSONHandler(os.Stderr, hopts)
	} else {
		console = newConsoleHandler(os.Stderr, lvl, opts.AddSource)
	}
	handlers := []slog.Handler{console}

	var opened []io.Closer
	if path := strings.TrimSpace(opts.File); path != "" {
		w := &lj.Logger{Filename: path, MaxSize: 10, MaxBackups: 5, MaxAge: 14, Compress: true}
		handlers = append(handlers, slog.NewJSONHandler(w, hopts))
		opened = append(opened, w)
	}

	var h slog.Handler = handlers[0]
	if len(handlers) > 1 {
		h = fanout(handlers)
	}
	logger := slog.New(h).With(
		slog.String("app", "clipcomposer"),
		slog.String("ver", version.Version),
	)

	mu.Lock()
	old := sinks
	current = logger
	sinks = opened
	mu.Unlock()
	for _, c := range old {
		_ = c.Close()
	}
	slog.SetDefault(logger)
}

// FromEnv builds Options from CLIP_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     envOr(EnvLevel, "info"),
		Format:    envOr(EnvFormat, "console"),
		AddSource: parseBool(os.Getenv(EnvSource)),
		File:      os.Getenv(EnvFile),
	}
}

// WithComponent returns a logger tagged with the subsystem name.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// Discard returns a logger that drops every record. Useful for tests and
// for components constructed without an explicit logger.
func Discard() *slog.Logger { return slog.New(discardHandler{}) }

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// useJSON reports whether stderr output should be JSON for the given format.
func useJSON(format string, fd uintptr) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return true
	case "auto":
		return !isTerminal(fd)
	}
	return false
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type fanoutHandler struct{ hs []slog.Handler }

func fanout(hs []slog.Handler) slog.Handler { return &fanoutHandler{hs: hs} }

func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.hs {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f.hs {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(f.hs))
	for i, h := range f.hs {
		out[i] = h.WithAttrs(attrs)
	}
	return &fanoutHandler{hs: out}
}

func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(f.hs))
	for i, h := range f.hs {
		out[i] = h.WithGroup(name)
	}
	return &fanoutHandler{hs: out}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
