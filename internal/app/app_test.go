package app

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"badgeworks/internal/badge/catalog"
	"badgeworks/internal/platform/config"
)

func testConfig(linkedInURL string) config.Config {
	return config.Config{
		Server: config.Server{Environment: "test", RequestTimeout: 5 * time.Second},
		Badges: config.Badges{SubjectIDMin: 100, SubjectIDMax: 151},
		Database: config.Database{
			ConnectAttempts: 1,
		},
		Artifacts: config.Artifacts{PublicHost: "badges.test"},
		LinkedIn: config.LinkedIn{
			Enabled: linkedInURL != "",
			APIURL:  linkedInURL,
		},
		Log: config.Log{Format: "json"},
	}
}

func newTestApp(t *testing.T, linkedInURL string) *App {
	t.Helper()
	cat, err := catalog.New(map[string]string{"CS101": "Intro to CS"})
	require.NoError(t, err)

	a, err := New(context.Background(), testConfig(linkedInURL), slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithCatalog(cat),
		WithTemplate(image.NewRGBA(image.Rect(0, 0, 60, 20))),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func issueBody(subject int) map[string]any {
	return map[string]any{
		"firstName":   "Ada",
		"lastName":    "Lovelace",
		"email":       "ada@example.com",
		"subjectId":   subject,
		"keyCode":     "CS101",
		"issuer":      "Analytical Engine Academy",
		"hiddenField": "corr-1",
	}
}

func TestIssueAndLookupInMemory(t *testing.T) {
	a := newTestApp(t, "")

	w := post(t, a.Handler, "/badges", issueBody(120))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var issued map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &issued))
	assert.Equal(t, "https://badges.test/CS101.png", issued["imageUrl"])
	assert.Equal(t, "skipped", issued["share"])

	w = get(a.Handler, "/badges/subjects/120")
	require.Equal(t, http.StatusOK, w.Code)

	w = post(t, a.Handler, "/badges", issueBody(120))
	assert.Equal(t, http.StatusConflict, w.Code)

	w = post(t, a.Handler, "/badges/share", map[string]string{"badgeId": issued["badgeId"].(string), "accessToken": "t", "memberId": "m"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestProbesAndMetrics(t *testing.T) {
	a := newTestApp(t, "")
	post(t, a.Handler, "/badges", issueBody(99))

	assert.Equal(t, http.StatusOK, get(a.Handler, "/health/ready").Code)

	w := get(a.Handler, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `badgeworks_rejections_total{reason="subject-id-out-of-range"} 1`)
	assert.Contains(t, w.Body.String(), `badgeworks_http_request_duration_seconds_count{method="POST",route="/badges",status="400"} 1`)
}

func TestShareOnIssue(t *testing.T) {
	var calls atomic.Int32
	linkedIn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"urn:li:share:1"}`))
	}))
	defer linkedIn.Close()

	a := newTestApp(t, linkedIn.URL)
	body := issueBody(121)
	body["share"] = map[string]string{"accessToken": "token-1", "memberId": "abc"}

	w := post(t, a.Handler, "/badges", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"share":"queued"`)

	require.NoError(t, a.Close())
	assert.Equal(t, int32(1), calls.Load())
}

func TestSubjectIDRejectionReasons(t *testing.T) {
	a := newTestApp(t, "")

	cases := []struct {
		name    string
		subject any
		drop    bool
		reason  string
	}{
		{name: "absent", drop: true, reason: "missing-field"},
		{name: "null", subject: nil, reason: "missing-field"},
		{name: "blank text", subject: "  ", reason: "missing-field"},
		{name: "zero", subject: 0, reason: "subject-id-out-of-range"},
		{name: "zero as text", subject: "0", reason: "subject-id-out-of-range"},
		{name: "not a number", subject: "abc", reason: "subject-id-out-of-range"},
		{name: "fractional", subject: 120.5, reason: "subject-id-out-of-range"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := issueBody(120)
			if tc.drop {
				delete(body, "subjectId")
			} else {
				body["subjectId"] = tc.subject
			}

			w := post(t, a.Handler, "/badges", body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "validation_error", resp["error"])
			assert.Equal(t, tc.reason, resp["reason"])
		})
	}

	assert.Equal(t, http.StatusNotFound, get(a.Handler, "/badges/subjects/120").Code)
}
