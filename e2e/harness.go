package e2e

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"badgeworks/internal/app"
	"badgeworks/internal/platform/config"
)

// harness runs the whole server in-process over in-memory backends, with a
// stub LinkedIn endpoint in front of the publisher.
type harness struct {
	app      *app.App
	server   *httptest.Server
	linkedIn *linkedInStub
}

func startHarness() (*harness, error) {
	stub := newLinkedInStub()

	cfg := config.Config{
		Server: config.Server{Environment: "e2e", RequestTimeout: 10 * time.Second},
		Badges: config.Badges{
			CatalogPath:  "../assets/catalog.yaml",
			TemplatePath: "../assets/template.png",
			SubjectIDMin: config.DefaultSubjectIDMin,
			SubjectIDMax: config.DefaultSubjectIDMax,
		},
		Database:  config.Database{ConnectAttempts: 1},
		Artifacts: config.Artifacts{PublicHost: "badges.e2e.test"},
		LinkedIn: config.LinkedIn{
			Enabled: true,
			APIURL:  stub.server.URL + "/v2/shares",
			Retries: 0,
		},
		Log: config.Log{Format: "json"},
	}

	a, err := app.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		stub.server.Close()
		return nil, fmt.Errorf("start badge app: %w", err)
	}
	return &harness{app: a, server: httptest.NewServer(a.Handler), linkedIn: stub}, nil
}

func (h *harness) URL() string {
	return h.server.URL
}

func (h *harness) Close() {
	h.server.Close()
	_ = h.app.Close()
	h.linkedIn.server.Close()
}

// linkedInStub accepts shares and counts them per member id.
type linkedInStub struct {
	server  *httptest.Server
	failing atomic.Bool

	mu     sync.Mutex
	shares map[string]int
}

func newLinkedInStub() *linkedInStub {
	s := &linkedInStub{shares: make(map[string]int)}
	s.server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

func (s *linkedInStub) handle(w http.ResponseWriter, r *http.Request) {
	if s.failing.Load() {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	var body struct {
		Owner string `json:"owner"`
	}
	if err := decodeJSON(r.Body, &body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.shares[body.Owner]++
	n := s.shares[body.Owner]
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = fmt.Fprintf(w, `{"id":"urn:li:share:%d"}`, n)
}

func (s *linkedInStub) sharesFor(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shares[owner]
}
