//go:build fyne && cgo

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
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"clipcomposer/internal/catalog"
	"clipcomposer/internal/config"
	"clipcomposer/internal/crash"
	"clipcomposer/internal/domain"
	"clipcomposer/internal/engine"
	"clipcomposer/internal/inspector"
	applog "clipcomposer/internal/log"
	"clipcomposer/internal/props"
	"clipcomposer/internal/render"
	"clipcomposer/internal/storage"
	"clipcomposer/internal/store"
)

// Run starts the Fyne-based desktop editor. An empty projectDir shows the
// recent-projects dashboard first.
func Run(projectDir string) error {
	cfg, token, cfgErr := config.Load()
	applog.Init(cfg.LogOptions())
	l := applog.WithComponent("ui")
	l.Info("starting UI")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
	}

	var guard crash.Guard
	defer crash.Recover(&guard)

	fyneApp := app.NewWithID("clipcomposer")
	w := fyneApp.NewWindow("ClipComposer")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1280)
	winH := prefs.IntWithFallback("window.height", 820)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	var sess *Session
	closeSession := func() {
		if sess == nil {
			return
		}
		if err := sess.Close(); err != nil {
			l.Warn("close session", slog.Any("err", err))
		}
		sess = nil
		guard = crash.Guard{}
	}

	var showDashboard func()
	openEditor := func(dir string) {
		closeSession()
		s, fc, err := openSession(dir, cfg, token, l)
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		sess = s
		guard = s.Guard()
		addRecentProject(prefs, dir)
		w.SetTitle(fmt.Sprintf("ClipComposer - %s", s.Handle.Project.Name))
		w.SetContent(buildEditor(w, s, fc, cfg, l, func() {
			closeSession()
			showDashboard()
		}))
		if s.Handle.Recovered != "" {
			dialog.ShowInformation("Recovered", "The manifest was unreadable and was restored from "+filepath.Base(s.Handle.Recovered), w)
		}
	}

	showDashboard = func() {
		w.SetTitle("ClipComposer")
		w.SetContent(buildDashboard(w, prefs, openEditor, l))
	}

	if strings.TrimSpace(projectDir) != "" {
		openEditor(projectDir)
	} else {
		showDashboard()
	}

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		closeSession()
		w.Close()
	})
	w.ShowAndRun()
	return nil
}

func openSession(dir string, cfg config.AppConfig, token string, l *slog.Logger) (*Session, *FrameCanvas, error) {
	abs, _ := filepath.Abs(dir)
	l.Info("open project", slog.String("root", abs))
	ph, err := storage.Open(abs)
	if err != nil {
		return nil, nil, err
	}
	deps := SessionDeps{Attacher: engine.MemoryAttacher(engine.NewMemory())}
	if base := strings.TrimSpace(cfg.Render.BaseURL); base != "" {
		c, err := render.NewHTTPClient(base,
			render.WithToken(token),
			render.WithHTTPClient(&http.Client{Timeout: cfg.Render.Timeout()}))
		if err != nil {
			l.Warn("render client disabled", slog.Any("err", err))
		} else {
			deps.Client = c
		}
	}
	if cfg.Catalog.Enabled && cfg.Catalog.DSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pg, err := catalog.Open(ctx, cfg.Catalog.DSN)
		cancel()
		if err != nil {
			l.Warn("media catalog unavailable", slog.Any("err", err))
		} else {
			deps.Catalog = pg
		}
	}
	fc := NewFrameCanvas(ph.Project.Frame())
	fc.Attach()
	deps.Surface = fc
	s, err := NewSession(ph, cfg, deps)
	if err != nil {
		return nil, nil, err
	}
	if err := s.AttachEngine(context.Background(), fc); err != nil {
		l.Warn("preview engine not attached", slog.Any("err", err))
	}
	return s, fc, nil
}

func buildDashboard(w fyne.Window, prefs fyne.Preferences, open func(string), l *slog.Logger) fyne.CanvasObject {
	recent := loadRecentProjects(prefs)
	list := widget.NewList(
		func() int { return len(recent) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(recent[i]) },
	)
	list.OnSelected = func(i widget.ListItemID) { open(recent[i]) }

	openBtn := widget.NewButton("Open project…", func() {
		dialog.ShowFolderOpen(func(u fyne.ListableURI, err error) {
			if err != nil || u == nil {
				return
			}
			open(u.Path())
		}, w)
	})
	newBtn := widget.NewButton("New project…", func() {
		name := widget.NewEntry()
		name.SetPlaceHolder("Project name")
		dialog.ShowForm("New project", "Choose folder", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", name)}, func(ok bool) {
			if !ok || strings.TrimSpace(name.Text) == "" {
				return
			}
			dialog.ShowFolderOpen(func(u fyne.ListableURI, err error) {
				if err != nil || u == nil {
					return
				}
				root := filepath.Join(u.Path(), slug(name.Text))
				if _, err := storage.InitProject(root, domain.NewProject(strings.TrimSpace(name.Text))); err != nil {
					l.Error("init project", slog.Any("err", err))
					dialog.ShowError(err, w)
					return
				}
				open(root)
			}, w)
		}, w)
	})
	title := canvas.NewText("ClipComposer", color.White)
	title.TextSize = 24
	return container.NewBorder(
		container.NewVBox(title, container.NewHBox(newBtn, openBtn), widget.NewLabel("Recent projects")),
		nil, nil, nil, list)
}

func buildEditor(w fyne.Window, s *Session, fc *FrameCanvas, cfg config.AppConfig, l *slog.Logger, back func()) fyne.CanvasObject {
	status := widget.NewLabel("Ready")
	notify := func(r store.Result, what string) {
		if r.Err != nil {
			status.SetText(fmt.Sprintf("%s: %v", what, r.Err))
			return
		}
		status.SetText(what)
	}

	// Pages (left)
	var pages []domain.Page
	pageList := widget.NewList(
		func() int { return len(pages) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(pages[i].Name) },
	)
	pageList.OnSelected = func(i widget.ListItemID) {
		if i < len(pages) && pages[i].ID != s.Store.Snapshot().PageID {
			notify(s.Store.SwitchPage(pages[i].ID), "Page "+pages[i].Name)
		}
	}
	addPage := widget.NewButton("Add", func() { notify(s.Store.AddPage(), "Page added") })
	renamePage := widget.NewButton("Rename", func() {
		id := s.Store.Snapshot().PageID
		e := widget.NewEntry()
		dialog.ShowForm("Rename page", "Rename", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", e)}, func(ok bool) {
			if ok {
				notify(s.Store.RenamePage(id, e.Text), "Page renamed")
			}
		}, w)
	})
	removePage := widget.NewButton("Remove", func() {
		id := s.Store.Snapshot().PageID
		dialog.ShowConfirm("Remove page", "Remove the current page and its elements?", func(ok bool) {
			if ok {
				notify(s.Store.RemovePage(id), "Page removed")
			}
		}, w)
	})
	left := container.NewBorder(widget.NewLabel("Pages"), container.NewHBox(addPage, renamePage, removePage), nil, nil, pageList)

	// Inspector (right)
	inspectorBox := container.NewVBox()
	refreshInspector := func() {
		inspectorBox.RemoveAll()
		ed, ok := s.Inspector()
		if !ok {
			inspectorBox.Add(widget.NewLabel("Nothing selected"))
			return
		}
		el, _ := s.Store.Document().Find(s.Store.Document().SelectedID)
		name := widget.NewEntry()
		name.SetText(el.Name)
		name.OnSubmitted = func(v string) { notify(s.Store.RenameElement(el.ID, v), "Renamed") }
		inspectorBox.Add(widget.NewForm(widget.NewFormItem("Name", name)))
		fields, err := ed.Fields()
		if err != nil {
			inspectorBox.Add(widget.NewLabel(err.Error()))
			return
		}
		form := widget.NewForm()
		for _, f := range fields {
			form.AppendItem(widget.NewFormItem(strings.Repeat("  ", f.Depth)+f.Label, fieldWidget(f, func(text string) {
				notify(ed.Apply(f, text), "Updated "+f.Path.String())
			})))
		}
		addKey := widget.NewEntry()
		addKey.SetPlaceHolder("new.property=value")
		addKey.OnSubmitted = func(v string) {
			key, raw, found := strings.Cut(v, "=")
			if !found || strings.TrimSpace(key) == "" {
				status.SetText("expected key=value")
				return
			}
			val, err := inspector.Parse(inspector.WidgetRaw, raw)
			if err != nil {
				val, _ = inspector.Parse(inspector.WidgetText, raw)
			}
			notify(s.Store.SetProperty(el.ID, props.ParsePath(key), val), "Property added")
		}
		inspectorBox.Add(form)
		inspectorBox.Add(addKey)
	}

	// Media (right, below the inspector)
	var media fyne.CanvasObject = widget.NewLabel("Media catalog disabled")
	if s.Catalog != nil {
		media = buildMediaPanel(s, status)
	}
	right := container.NewVSplit(container.NewVScroll(inspectorBox), media)

	// Toolbar
	canUndo := widget.NewButton("Undo", func() { notify(s.Store.Undo(), "Undone") })
	redo := widget.NewButton("Redo", func() { notify(s.Store.Redo(), "Redone") })
	selected := func() string { return s.Store.Document().SelectedID }
	var renderBtn *widget.Button
	renderBtn = widget.NewButton("Render", func() { startRender(s, renderBtn, status, l) })
	toolbar := container.NewHBox(
		widget.NewButton("◀ Projects", back),
		widget.NewButton("Save", func() {
			if err := s.Save(); err != nil {
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Saved")
		}),
		widget.NewSeparator(),
		widget.NewButton("+ Section", func() {
			notify(s.Store.InsertElement(domain.KindSection, domain.Position{}), "Section added")
		}),
		widget.NewButton("+ Component", func() {
			notify(s.Store.InsertElement(domain.KindComponent, domain.Position{X: 24, Y: 24}), "Component added")
		}),
		widget.NewButton("Duplicate", func() { notify(s.Store.DuplicateElement(selected()), "Duplicated") }),
		widget.NewButton("Delete", func() { notify(s.Drag.DeleteElement(selected()), "Deleted") }),
		widget.NewSeparator(),
		canUndo, redo,
		widget.NewSeparator(),
		renderBtn,
	)

	// Playback
	clock := widget.NewLabel("0.0s")
	playback := func(what string, fn func(context.Context) error) func() {
		return func() {
			if err := fn(context.Background()); err != nil {
				status.SetText(fmt.Sprintf("%s: %v", what, err))
			}
			if m, ok := previewTime(s); ok {
				clock.SetText(fmt.Sprintf("%.1fs", m))
			}
		}
	}
	var bar fyne.CanvasObject = widget.NewLabel("Preview engine unavailable")
	if s.Engine != nil {
		bar = container.NewHBox(
			widget.NewButton("⏮ 5s", playback("skip", func(ctx context.Context) error { return s.Engine.Skip(ctx, -5) })),
			widget.NewButton("Play", playback("play", s.Engine.Play)),
			widget.NewButton("Pause", playback("pause", s.Engine.Pause)),
			widget.NewButton("5s ⏭", playback("skip", func(ctx context.Context) error { return s.Engine.Skip(ctx, 5) })),
			clock,
		)
	}

	refresh := func(snap store.Snapshot) {
		pages = s.Store.Pages()
		pageList.Refresh()
		for i, p := range pages {
			if p.ID == snap.PageID {
				pageList.Select(i)
			}
		}
		if s.Store.CanUndo() {
			canUndo.Enable()
		} else {
			canUndo.Disable()
		}
		refreshInspector()
	}
	s.Store.Subscribe(func(snap store.Snapshot) { fyne.Do(func() { refresh(snap) }) })
	refresh(s.Store.Snapshot())

	// Shortcuts
	cv := w.Canvas()
	cv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		notify(s.Store.Undo(), "Undone")
	})
	cv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyZ, Modifier: fyne.KeyModifierShortcutDefault | fyne.KeyModifierShift}, func(fyne.Shortcut) {
		notify(s.Store.Redo(), "Redone")
	})
	cv.AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) {
		if err := s.Save(); err != nil {
			status.SetText(err.Error())
			return
		}
		status.SetText("Saved")
	})
	cv.SetOnTypedKey(func(e *fyne.KeyEvent) {
		if e.Name == fyne.KeyEscape {
			s.Drag.CancelDrag()
		}
	})

	center := container.NewScroll(fc)
	split := container.NewHSplit(left, container.NewHSplit(center, right))
	split.Offset = 0.18
	return container.NewBorder(toolbar, container.NewBorder(nil, nil, nil, bar, status), nil, nil, split)
}

func fieldWidget(f inspector.Field, apply func(string)) fyne.CanvasObject {
	switch f.Widget {
	case inspector.WidgetToggle:
		b, _ := f.Value.AsBool()
		c := widget.NewCheck("", func(v bool) { apply(fmt.Sprint(v)) })
		c.Checked = b
		return c
	case inspector.WidgetColor:
		e := widget.NewEntry()
		e.SetText(f.Text())
		e.OnSubmitted = apply
		sw := canvas.NewRectangle(color.Transparent)
		if c, ok := inspector.Swatch(f); ok {
			sw.FillColor = toNRGBA(c)
		}
		sw.SetMinSize(fyne.NewSize(20, 20))
		return container.NewBorder(nil, nil, sw, nil, e)
	case inspector.WidgetRaw:
		e := widget.NewMultiLineEntry()
		e.SetText(f.Text())
		e.OnSubmitted = apply
		return e
	default:
		e := widget.NewEntry()
		e.SetText(f.Text())
		e.OnSubmitted = apply
		return e
	}
}

func buildMediaPanel(s *Session, status *widget.Label) fyne.CanvasObject {
	var results []catalog.Item
	list := widget.NewList(
		func() int { return len(results) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			it := results[i]
			o.(*widget.Label).SetText(fmt.Sprintf("[%s] %s (%.0fs)", it.Kind, it.Title, it.DurationSec))
		},
	)
	clipID := widget.NewEntry()
	clipID.SetPlaceHolder("clip id")
	list.OnSelected = func(i widget.ListItemID) {
		if strings.TrimSpace(clipID.Text) == "" {
			status.SetText("enter the clip id to swap")
			return
		}
		if err := s.SwapVideo(context.Background(), clipID.Text, results[i].URL); err != nil {
			status.SetText(err.Error())
			return
		}
		status.SetText(fmt.Sprintf("Clip %s now uses %s", clipID.Text, results[i].Title))
	}
	query := widget.NewEntry()
	query.SetPlaceHolder("Search media")
	query.OnSubmitted = func(text string) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			items, err := s.Catalog.Search(ctx, catalog.Query{Text: text, Limit: 50})
			fyne.Do(func() {
				if err != nil {
					status.SetText("search: " + err.Error())
					return
				}
				results = items
				list.Refresh()
			})
		}()
	}
	return container.NewBorder(container.NewVBox(widget.NewLabel("Media"), query, clipID), nil, nil, nil, list)
}

// startRender submits in the background. btn stays disabled until the job
// reports an outcome so a double click cannot submit twice.
func startRender(s *Session, btn *widget.Button, status *widget.Label, l *slog.Logger) {
	btn.Disable()
	status.SetText("Submitting render…")
	go func() {
		var mu sync.Mutex
		finished := false
		task, err := s.Render(context.Background(), func(o render.Outcome) {
			mu.Lock()
			finished = true
			mu.Unlock()
			fyne.Do(func() {
				status.SetText(o.Message())
				btn.Enable()
			})
		})
		fyne.Do(func() {
			switch {
			case errors.Is(err, ErrNoRenderService):
				status.SetText("Set render.base_url in the config to render")
				btn.Enable()
			case err != nil:
				l.Error("render submission failed", slog.Any("err", err))
				status.SetText(err.Error())
				btn.Enable()
			default:
				mu.Lock()
				done := finished
				mu.Unlock()
				if !done {
					status.SetText(fmt.Sprintf("Rendering %s…", task.JobID()))
				}
			}
		})
	}()
}

func previewTime(s *Session) (float64, bool) {
	if s.Engine == nil {
		return 0, false
	}
	return s.Engine.Time()
}

func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	if b.Len() == 0 {
		return "project"
	}
	return b.String()
}

// Recent project persistence helpers for the dashboard.
const recentPrefsKey = "recent.projects"
const recentMax = 10

func loadRecentProjects(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(s, storage.ManifestFileName)); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentProjects(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentProject(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentProjects(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentProjects(p, out)
}
