/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "clipcomposer/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Render        RenderConfig  `yaml:"render"`
	Catalog       CatalogConfig `yaml:"catalog"`
	Editor        EditorConfig  `yaml:"editor"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	Theme string `yaml:"theme"` // "system" | "light" | "dark"
}

// RenderConfig points at the remote render service.
type RenderConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutMs      int    `yaml:"timeout_ms"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
	PollDeadlineMs int    `yaml:"poll_deadline_ms"`
	OwnerID        string `yaml:"owner_id"`
	OutputFormat   string `yaml:"output_format"`
	FrameRate      int    `yaml:"frame_rate"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type CatalogConfig struct {
	DSN     string `yaml:"dsn"`
	Enabled bool   `yaml:"enabled"`
}

type EditorConfig struct {
	FrameWidth    float64 `yaml:"frame_width"`
	SnapThreshold float64 `yaml:"snap_threshold"` // 0 disables snapping
	UndoMaxBytes  int     `yaml:"undo_max_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Render: RenderConfig{
			BaseURL:        "http://localhost:8080/v1",
			TimeoutMs:      10000,
			PollIntervalMs: 2000,
			PollDeadlineMs: 600000,
			OutputFormat:   "mp4",
			FrameRate:      30,
		},
		Editor:  EditorConfig{FrameWidth: 1080, SnapThreshold: 0, UndoMaxBytes: 16 * 1024 * 1024},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath         = "CLIP_CONFIG"
	EnvRenderURL          = "CLIP_RENDER_URL"
	EnvRenderTimeoutMs    = "CLIP_RENDER_TIMEOUT_MS"
	EnvRenderPollInterval = "CLIP_RENDER_POLL_INTERVAL_MS"
	EnvRenderDeadline     = "CLIP_RENDER_DEADLINE_MS"
	EnvOwnerID            = "CLIP_OWNER_ID"
	EnvCatalogDSN         = "CLIP_CATALOG_DSN"
	EnvLogLevel           = applog.EnvLevel
	EnvLogFormat          = applog.EnvFormat
	EnvLogSource          = applog.EnvSource
	EnvLogFile            = applog.EnvFile
)

// ConfigPath returns the per-user config file path. CLIP_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "ClipComposer")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "ClipComposer")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "clipcomposer")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also loads the render token from the keyring (returned separately, never kept in the struct).
// A malformed file is reported as an error alongside the defaults.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	var loadErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			loadErr = fmt.Errorf("parse %s: %w", path, err)
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	tok, _ := Token()
	return cfg, tok, loadErr
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		return SetToken(token)
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	r := src.Render
	if strings.TrimSpace(r.BaseURL) != "" {
		dst.Render.BaseURL = strings.TrimSpace(r.BaseURL)
	}
	if r.TimeoutMs > 0 {
		dst.Render.TimeoutMs = r.TimeoutMs
	}
	if r.PollIntervalMs > 0 {
		dst.Render.PollIntervalMs = r.PollIntervalMs
	}
	if r.PollDeadlineMs > 0 {
		dst.Render.PollDeadlineMs = r.PollDeadlineMs
	}
	if r.OwnerID != "" {
		dst.Render.OwnerID = r.OwnerID
	}
	if r.OutputFormat != "" {
		dst.Render.OutputFormat = strings.ToLower(r.OutputFormat)
	}
	if r.FrameRate > 0 {
		dst.Render.FrameRate = r.FrameRate
	}
	if src.Catalog.DSN != "" {
		dst.Catalog.DSN = src.Catalog.DSN
	}
	dst.Catalog.Enabled = src.Catalog.Enabled
	if src.Editor.FrameWidth > 0 {
		dst.Editor.FrameWidth = src.Editor.FrameWidth
	}
	if src.Editor.SnapThreshold >= 0 {
		dst.Editor.SnapThreshold = src.Editor.SnapThreshold
	}
	if src.Editor.UndoMaxBytes > 0 {
		dst.Editor.UndoMaxBytes = src.Editor.UndoMaxBytes
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvRenderURL)); v != "" {
		cfg.Render.BaseURL = v
	}
	envInt(EnvRenderTimeoutMs, &cfg.Render.TimeoutMs)
	envInt(EnvRenderPollInterval, &cfg.Render.PollIntervalMs)
	envInt(EnvRenderDeadline, &cfg.Render.PollDeadlineMs)
	if v := strings.TrimSpace(os.Getenv(EnvOwnerID)); v != "" {
		cfg.Render.OwnerID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCatalogDSN)); v != "" {
		cfg.Catalog.DSN = v
		cfg.Catalog.Enabled = true
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}

var envKeys = map[string]string{
	"render.base_url":         EnvRenderURL,
	"render.timeout_ms":       EnvRenderTimeoutMs,
	"render.poll_interval_ms": EnvRenderPollInterval,
	"render.poll_deadline_ms": EnvRenderDeadline,
	"render.owner_id":         EnvOwnerID,
	"catalog.dsn":             EnvCatalogDSN,
	"logging.level":           EnvLogLevel,
	"logging.format":          EnvLogFormat,
	"logging.source":          EnvLogSource,
	"logging.file":            EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout is the per-request HTTP timeout.
func (r RenderConfig) Timeout() time.Duration {
	return ms(r.TimeoutMs, Defaults().Render.TimeoutMs)
}

// Interval is the delay between status polls.
func (r RenderConfig) Interval() time.Duration {
	return ms(r.PollIntervalMs, Defaults().Render.PollIntervalMs)
}

// Deadline bounds the total polling time of one job.
func (r RenderConfig) Deadline() time.Duration {
	return ms(r.PollDeadlineMs, Defaults().Render.PollDeadlineMs)
}

func ms(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Millisecond
}

// LogOptions maps the logging section onto logger options.
func (c AppConfig) LogOptions() applog.Options {
	return applog.Options{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		AddSource: c.Logging.Source,
		File:      c.Logging.File,
	}
}
