package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"deckpilot-mcp-server/internal/config"
	"deckpilot-mcp-server/internal/deck"
)

func newTestServer(t *testing.T, slides []deck.Slide) *httptest.Server {
	t.Helper()

	pdfPath := filepath.Join(t.TempDir(), "deck.pdf")
	if err := os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	hub := NewHub(deck.NewBus(), slides)
	t.Cleanup(hub.Close)

	srv, err := NewServer(config.WebConfig{Bind: "127.0.0.1", Port: 0}, hub, pdfPath, slides)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestServerServesViewer(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/static/index.html")
	if err != nil {
		t.Fatalf("GET index: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected security headers, got %q", got)
	}
}

func TestServerRedirectsRoot(t *testing.T) {
	ts := newTestServer(t, nil)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected redirect, got %d", resp.StatusCode)
	}
}

func TestServerServesPDF(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/deck.pdf")
	if err != nil {
		t.Fatalf("GET deck.pdf: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", ct)
	}
}

func TestServerSlidesEndpoint(t *testing.T) {
	slides := []deck.Slide{{Page: 1, Title: "Intro"}, {Page: 2, Title: "Roadmap"}}
	ts := newTestServer(t, slides)

	resp, err := http.Get(ts.URL + "/api/slides")
	if err != nil {
		t.Fatalf("GET slides: %v", err)
	}
	defer resp.Body.Close()

	var payload struct {
		Count  int          `json:"count"`
		Slides []deck.Slide `json:"slides"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Count != 2 || len(payload.Slides) != 2 || payload.Slides[1].Title != "Roadmap" {
		t.Errorf("unexpected payload %+v", payload)
	}
}
