package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// TestContext holds state between test steps
type TestContext struct {
	BaseURL          string
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
	LastBadgeID      string

	harness *harness
}

// NewTestContext creates a new test context. Without BASE_URL the server runs
// in-process with fresh in-memory state for every scenario.
func NewTestContext() (*TestContext, error) {
	tc := &TestContext{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		tc.BaseURL = strings.TrimRight(baseURL, "/")
		return tc, nil
	}
	h, err := startHarness()
	if err != nil {
		return nil, err
	}
	tc.harness = h
	tc.BaseURL = h.URL()
	return tc, nil
}

// Close stops the in-process server, if any.
func (tc *TestContext) Close() {
	if tc.harness != nil {
		tc.harness.Close()
	}
}

// POST makes a POST request and stores the response
func (tc *TestContext) POST(path string, body interface{}) error {
	resp, raw, err := tc.post(path, body)
	if err != nil {
		return err
	}
	tc.LastResponse = resp
	tc.LastResponseBody = raw
	return nil
}

// post makes a POST request without touching the stored response, so it is
// safe to call from concurrent goroutines.
func (tc *TestContext) post(path string, body interface{}) (*http.Response, []byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return tc.do(req)
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string, headers map[string]string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.BaseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, raw, err := tc.do(req)
	if err != nil {
		return err
	}
	tc.LastResponse = resp
	tc.LastResponseBody = raw
	return nil
}

func (tc *TestContext) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp, raw, nil
}

// GetResponseField extracts a field from the JSON response
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	value, ok := data[field]
	if !ok {
		return nil, fmt.Errorf("field %s not found in response", field)
	}

	return value, nil
}

// ResponseContains checks if the response body contains a field or text
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}

	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}

	return false
}

// Getter methods for step package interfaces

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}

func (tc *TestContext) GetLastBadgeID() string {
	return tc.LastBadgeID
}

func (tc *TestContext) SetLastBadgeID(id string) {
	tc.LastBadgeID = id
}

// PostConcurrently sends every body to path at once and returns the statuses.
func (tc *TestContext) PostConcurrently(path string, bodies []interface{}) ([]int, error) {
	type result struct {
		status int
		err    error
	}
	results := make(chan result, len(bodies))
	for _, body := range bodies {
		go func(body interface{}) {
			resp, _, err := tc.post(path, body)
			if err != nil {
				results <- result{err: err}
				return
			}
			results <- result{status: resp.StatusCode}
		}(body)
	}

	statuses := make([]int, 0, len(bodies))
	for range bodies {
		r := <-results
		if r.err != nil {
			return nil, r.err
		}
		statuses = append(statuses, r.status)
	}
	return statuses, nil
}

// LinkedInShares reports shares received by the stub for a member id. ok is
// false when the server is external and there is no stub to inspect.
func (tc *TestContext) LinkedInShares(memberID string) (n int, ok bool) {
	if tc.harness == nil {
		return 0, false
	}
	return tc.harness.linkedIn.sharesFor("urn:li:person:" + memberID), true
}

// SetLinkedInFailing makes the stub answer 500. ok is false for external servers.
func (tc *TestContext) SetLinkedInFailing(failing bool) bool {
	if tc.harness == nil {
		return false
	}
	tc.harness.linkedIn.failing.Store(failing)
	return true
}

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}
