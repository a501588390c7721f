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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zalando/go-keyring"
)

func isolate(t *testing.T) string {
	t.Helper()
	keyring.MockInit()
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv(EnvConfigPath, path)
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, tok, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if tok != "" {
		t.Fatalf("token = %q, want empty", tok)
	}
	if diff := cmp.Diff(Defaults(), cfg); diff != "" {
		t.Fatalf("defaults (-want +got):\n%s", diff)
	}
	if cfg.Render.Interval() != 2*time.Second || cfg.Render.Deadline() != 10*time.Minute {
		t.Fatalf("interval=%v deadline=%v", cfg.Render.Interval(), cfg.Render.Deadline())
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Render.BaseURL = "https://render.example.test/v1"
	cfg.Render.OwnerID = "team-a"
	cfg.Render.FrameRate = 25
	cfg.Catalog = CatalogConfig{DSN: "postgres://x", Enabled: true}
	cfg.Editor.SnapThreshold = 6
	if err := Save(cfg, "secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tok != "secret" {
		t.Fatalf("token = %q", tok)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestLoadReportsMalformedFile(t *testing.T) {
	path := isolate(t)
	if err := os.WriteFile(path, []byte("render: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Render.BaseURL != Defaults().Render.BaseURL {
		t.Fatalf("defaults not kept on parse error: %#v", cfg.Render)
	}
}

func TestEnvOverridesRender(t *testing.T) {
	isolate(t)
	t.Setenv(EnvRenderURL, "https://example.test:8443")
	t.Setenv(EnvRenderPollInterval, "500")
	t.Setenv(EnvRenderDeadline, "not-a-number")
	t.Setenv(EnvOwnerID, "owner-9")
	t.Setenv(EnvCatalogDSN, "postgres://db")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Render.BaseURL != "https://example.test:8443" || cfg.Render.OwnerID != "owner-9" {
		t.Fatalf("render overrides not applied: %#v", cfg.Render)
	}
	if cfg.Render.Interval() != 500*time.Millisecond {
		t.Fatalf("interval = %v", cfg.Render.Interval())
	}
	if cfg.Render.PollDeadlineMs != Defaults().Render.PollDeadlineMs {
		t.Fatalf("invalid env value should be ignored, got %d", cfg.Render.PollDeadlineMs)
	}
	if !cfg.Catalog.Enabled || cfg.Catalog.DSN != "postgres://db" {
		t.Fatalf("catalog override: %#v", cfg.Catalog)
	}
	if name, ok := EnvOverrideFor("render.base_url"); !ok || name != EnvRenderURL {
		t.Fatalf("EnvOverrideFor = %q %v", name, ok)
	}
	if _, ok := EnvOverrideFor("render.frame_rate"); ok {
		t.Fatalf("frame_rate has no env override")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG "
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/clip.log"
	mergeInto(&dst, &src)
	want := LoggingConfig{Level: "debug", Format: "json", Source: true, File: "/tmp/clip.log"}
	if diff := cmp.Diff(want, dst.Logging); diff != "" {
		t.Fatalf("logging (-want +got):\n%s", diff)
	}
	if opts := dst.LogOptions(); opts.Level != "debug" || !opts.AddSource {
		t.Fatalf("LogOptions = %#v", opts)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/tmp/clip.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/tmp/clip.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

type mapStore map[string]string

func (m mapStore) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}
func (m mapStore) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m mapStore) Delete(service, key string) error {
	if _, ok := m[service+"/"+key]; !ok {
		return keyring.ErrNotFound
	}
	delete(m, service+"/"+key)
	return nil
}

func TestTokenLifecycle(t *testing.T) {
	old := SetTokenStore(mapStore{})
	t.Cleanup(func() { SetTokenStore(old) })

	if _, err := Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("Token() err = %v, want ErrNoToken", err)
	}
	if err := SetToken(""); err == nil {
		t.Fatalf("empty token accepted")
	}
	if err := SetToken("abc"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	if tok, err := Token(); err != nil || tok != "abc" {
		t.Fatalf("Token() = %q, %v", tok, err)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if err := ClearToken(); err != nil {
		t.Fatalf("second ClearToken: %v", err)
	}
	if _, err := Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("token still present: %v", err)
	}
}
