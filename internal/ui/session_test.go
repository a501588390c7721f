package ui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"clipcomposer/internal/config"
	"clipcomposer/internal/domain"
	"clipcomposer/internal/engine"
	"clipcomposer/internal/render"
	"clipcomposer/internal/storage"
	"clipcomposer/internal/surface"
	"clipcomposer/internal/vector"
)

type okClient struct {
	mu   sync.Mutex
	reqs []render.Request
}

func (c *okClient) Submit(_ context.Context, r render.Request) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs = append(c.reqs, r)
	return "job-1", nil
}

func (c *okClient) Status(context.Context, string) (render.Job, error) {
	return render.Job{ID: "job-1", Status: "succeeded", URL: "https://cdn.test/job-1.mp4"}, nil
}

func testConfig() config.AppConfig {
	cfg := config.Defaults()
	cfg.Render.PollIntervalMs = 5
	cfg.Render.PollDeadlineMs = 2000
	cfg.Render.OwnerID = "owner-1"
	return cfg
}

func newTestSession(t *testing.T, deps SessionDeps) (*Session, *surface.Memory) {
	t.Helper()
	p := domain.NewProject("promo")
	p.Composition = domain.Composition{OutputFormat: "mp4", FrameRate: 30, Clips: []domain.Clip{
		{ID: "v1", Type: "video", Time: 2, Duration: 5, Source: "s3://old.mp4"},
	}}
	ph, err := storage.InitProject(t.TempDir(), p)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	mem := surface.NewMemory(vector.R(0, 0, 1080, 800))
	mem.Attach()
	deps.Surface = mem
	s, err := NewSession(ph, testConfig(), deps)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mem
}

func TestSessionProjectsAndSaves(t *testing.T) {
	s, mem := newTestSession(t, SessionDeps{})
	r := s.Store.InsertElement(domain.KindComponent, domain.Position{X: 40, Y: 40})
	if !r.OK() {
		t.Fatalf("insert: %v", r.Err)
	}
	if got := len(mem.Nodes()); got != 1 {
		t.Fatalf("projected nodes = %d, want 1", got)
	}
	if ed, ok := s.Inspector(); !ok || ed == nil {
		t.Fatalf("inserted element should be selected")
	}
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	reopened, err := storage.Open(s.Handle.Root)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	want := s.Store.Project().Documents[domain.HomePageID]
	if diff := cmp.Diff(want, reopened.Project.Documents[domain.HomePageID]); diff != "" {
		t.Fatalf("saved document (-want +got):\n%s", diff)
	}
}

func TestSessionBuffersEngineEditsUntilAttach(t *testing.T) {
	eng := engine.NewMemory()
	s, _ := newTestSession(t, SessionDeps{Attacher: engine.MemoryAttacher(eng)})
	ctx := context.Background()

	if err := s.SwapVideo(ctx, "v1", "s3://new.mp4"); err != nil {
		t.Fatalf("swap while detached: %v", err)
	}
	if swaps, _ := s.Engine.Pending(); swaps != 1 {
		t.Fatalf("pending swaps = %d, want 1", swaps)
	}
	if err := s.AttachEngine(ctx, nil); err != nil {
		t.Fatalf("attach: %v", err)
	}
	var ops []string
	for _, a := range eng.Log() {
		ops = append(ops, a.Op)
	}
	if diff := cmp.Diff([]string{"set-source", "replace-source"}, ops); diff != "" {
		t.Fatalf("engine ops (-want +got):\n%s", diff)
	}
	if got := s.Store.Project().Composition.Clips[0].Source; got != "s3://new.mp4" {
		t.Fatalf("store composition source = %q", got)
	}
}

func TestSessionRenderRecordsOutcome(t *testing.T) {
	client := &okClient{}
	s, _ := newTestSession(t, SessionDeps{Client: client})
	if s.Ledger == nil {
		t.Fatalf("ledger not opened")
	}
	done := make(chan render.Outcome, 1)
	task, err := s.Render(context.Background(), func(o render.Outcome) { done <- o })
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	select {
	case o := <-done:
		if o.State != render.StateSucceeded || o.Job.URL == "" {
			t.Fatalf("outcome = %+v", o)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no outcome reported")
	}
	<-task.Done()
	if client.reqs[0].OwnerID != "owner-1" || len(client.reqs[0].Source.Clips) != 1 {
		t.Fatalf("request = %+v", client.reqs[0])
	}
	rec, ok, err := s.Ledger.Job(context.Background(), "job-1")
	if err != nil || !ok || rec.Status != "succeeded" {
		t.Fatalf("ledger record = %+v ok=%v err=%v", rec, ok, err)
	}
}

func TestSessionRenderWithoutService(t *testing.T) {
	s, _ := newTestSession(t, SessionDeps{})
	if _, err := s.Render(context.Background(), func(render.Outcome) {}); !errors.Is(err, ErrNoRenderService) {
		t.Fatalf("err = %v, want ErrNoRenderService", err)
	}
}
