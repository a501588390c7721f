package render

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipcomposer/internal/domain"
)

func TestHTTPClientSubmitAndStatus(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/renders":
			_ = json.NewDecoder(r.Body).Decode(&gotReq)
			_ = json.NewEncoder(w).Encode(Job{ID: "r-9", Status: "planned"})
		case r.Method == http.MethodGet && r.URL.Path == "/v1/renders/r-9":
			_ = json.NewEncoder(w).Encode(Job{ID: "r-9", Status: "succeeded", URL: "https://cdn/x.mp4"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL+"/v1/", WithToken("tok"), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx := context.Background()
	comp := domain.Composition{OutputFormat: "mp4", FrameRate: 25, Clips: []domain.Clip{{ID: "A", Type: domain.ClipVideo, Track: 1}}}
	id, err := c.Submit(ctx, Request{OutputFormat: "mp4", FrameRate: 25, Source: comp, OwnerID: "o1"})
	if err != nil || id != "r-9" {
		t.Fatalf("submit id=%q err=%v", id, err)
	}
	if gotReq["outputFormat"] != "mp4" || gotReq["ownerId"] != "o1" {
		t.Fatalf("payload = %v", gotReq)
	}
	if _, ok := gotReq["source"].(map[string]any)["elements"]; !ok {
		t.Fatalf("source elements missing: %v", gotReq["source"])
	}
	job, err := c.Status(ctx, id)
	if err != nil || job.Status != "succeeded" || job.URL == "" {
		t.Fatalf("status job=%+v err=%v", job, err)
	}
}

func TestHTTPClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/renders":
			w.WriteHeader(http.StatusBadRequest)
		case "/renders/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
		case "/renders/garbled":
			_, _ = w.Write([]byte("{not json"))
		}
	}))
	defer srv.Close()
	c, _ := NewHTTPClient(srv.URL)
	ctx := context.Background()
	if _, err := c.Submit(ctx, Request{}); !errors.Is(err, ErrSubmission) {
		t.Fatalf("submit err = %v", err)
	}
	if _, err := c.Status(ctx, "busy"); !errors.Is(err, ErrTransientPoll) {
		t.Fatalf("busy err = %v", err)
	}
	if _, err := c.Status(ctx, "garbled"); !errors.Is(err, ErrProtocol) {
		t.Fatalf("garbled err = %v", err)
	}
	if _, err := NewHTTPClient("  "); err == nil {
		t.Fatalf("expected error for empty base url")
	}
}
