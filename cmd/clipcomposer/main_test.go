package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/zalando/go-keyring"

	"clipcomposer/internal/config"
	"clipcomposer/internal/crash"
	"clipcomposer/internal/domain"
	"clipcomposer/internal/props"
	"clipcomposer/internal/storage"
	"clipcomposer/internal/store"
)

func isolate(t *testing.T) {
	t.Helper()
	keyring.MockInit()
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "config.yaml"))
	for _, k := range []string{config.EnvRenderURL, config.EnvRenderPollInterval, config.EnvRenderDeadline, config.EnvCatalogDSN, config.EnvOwnerID} {
		t.Setenv(k, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var guard crash.Guard
	cmd := newRootCommand(&guard)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// projectWithElement creates a project holding one component and returns its root and element id.
func projectWithElement(t *testing.T) (string, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "promo")
	ph, err := storage.InitProject(root, domain.NewProject("Promo"))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	st := store.New(ph.Project, store.Options{})
	r := st.InsertElement(domain.KindComponent, domain.Position{X: 10, Y: 20})
	if !r.OK() {
		t.Fatalf("insert: %v", r.Err)
	}
	ph.Project = st.Project()
	if err := storage.Save(ph); err != nil {
		t.Fatalf("save: %v", err)
	}
	return root, r.ID
}

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "clipcomposer ") {
		t.Fatalf("output = %q", out)
	}
}

func TestInitAndOpen(t *testing.T) {
	isolate(t)
	root := filepath.Join(t.TempDir(), "launch")
	if _, err := execute(t, "init", root, "--name", "Launch"); err != nil {
		t.Fatalf("init: %v", err)
	}
	out, err := execute(t, "open", root, "--json")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	var sum projectSummary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if sum.Name != "Launch" || sum.Pages != 1 || sum.Elements != 0 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestInspectSetsProperty(t *testing.T) {
	isolate(t)
	root, id := projectWithElement(t)

	out, err := execute(t, "inspect", root)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if !strings.Contains(out, id) {
		t.Fatalf("element %s missing from:\n%s", id, out)
	}

	out, err = execute(t, "inspect", root, "--element", id, "--set", "label=Hello", "--set", "style.opacity=0.5")
	if err != nil {
		t.Fatalf("inspect --set: %v", err)
	}
	if !strings.Contains(out, "Hello") || !strings.Contains(out, "style.opacity") {
		t.Fatalf("fields table:\n%s", out)
	}

	ph, err := storage.Open(root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	el, ok := ph.Project.Documents[domain.HomePageID].Find(id)
	if !ok {
		t.Fatalf("element lost")
	}
	if got, _ := el.Props.Get(props.Path{"label"}); !isText(got, "Hello") {
		t.Fatalf("label = %v", got)
	}
}

func isText(v props.Value, want string) bool {
	s, ok := v.AsText()
	return ok && s == want
}

func TestInspectSetNeedsElement(t *testing.T) {
	isolate(t)
	root, _ := projectWithElement(t)
	if _, err := execute(t, "inspect", root, "--set", "label=x"); err == nil {
		t.Fatalf("expected an error without --element")
	}
}

func TestExportWebPreset(t *testing.T) {
	isolate(t)
	root, _ := projectWithElement(t)
	out, err := execute(t, "export", root, "--preset", "web")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	paths := strings.Fields(out)
	if len(paths) != 2 {
		t.Fatalf("written = %v, want png and svg", paths)
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
	if _, err := execute(t, "export", root, "--preset", "poster"); err == nil {
		t.Fatalf("unknown preset accepted")
	}
}

func TestJobsEmptyLedger(t *testing.T) {
	isolate(t)
	root, _ := projectWithElement(t)
	out, err := execute(t, "jobs", root)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	if !strings.Contains(out, "No render jobs recorded") {
		t.Fatalf("output = %q", out)
	}
}

func TestRenderWaitsAndRecordsJob(t *testing.T) {
	isolate(t)
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/renders":
			_, _ = w.Write([]byte(`{"id":"job-42","status":"queued"}`))
		case r.Method == http.MethodGet && r.URL.Path == "/renders/job-42":
			if polls.Add(1) < 2 {
				_, _ = w.Write([]byte(`{"id":"job-42","status":"rendering"}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"job-42","status":"succeeded","url":"https://cdn.test/job-42.mp4"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	t.Setenv(config.EnvRenderURL, srv.URL)
	t.Setenv(config.EnvRenderPollInterval, "5")

	root, _ := projectWithElement(t)
	out, err := execute(t, "render", root)
	if err != nil {
		t.Fatalf("render: %v\n%s", err, out)
	}
	if !strings.Contains(out, "https://cdn.test/job-42.mp4") {
		t.Fatalf("output = %q", out)
	}

	out, err = execute(t, "jobs", root, "--json")
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	var jobs []jobView
	if err := json.Unmarshal([]byte(out), &jobs); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(jobs) != 1 || jobs[0].ID != "job-42" || jobs[0].Status != "succeeded" {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestTokenCommands(t *testing.T) {
	isolate(t)
	if _, err := execute(t, "token", "set", "s3cret"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if tok, err := config.Token(); err != nil || tok != "s3cret" {
		t.Fatalf("token = %q, %v", tok, err)
	}
	if _, err := execute(t, "token", "clear"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	out, err := execute(t, "token", "status")
	if err != nil || !strings.Contains(out, "No token stored") {
		t.Fatalf("status = %q, %v", out, err)
	}
}
