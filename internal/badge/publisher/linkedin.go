// Package publisher shares issued badges on LinkedIn. Sharing is best-effort:
// nothing here can undo or fail an issuance.
package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"badgeworks/internal/badge/models"
	"badgeworks/pkg/platform/circuit"
	"badgeworks/pkg/platform/sentinel"
)

const (
	// DefaultAPIURL is LinkedIn's share endpoint.
	DefaultAPIURL = "https://api.linkedin.com/v2/shares"

	shareTitle      = "Digital Badge Earned"
	visibilityKey   = "com.linkedin.ugc.MemberNetworkVisibility"
	visibilityValue = "PUBLIC"
	maxErrorBody    = 512
)

// Publisher posts one share.
type Publisher interface {
	Publish(ctx context.Context, share models.Share) (models.Confirmation, error)
}

// ErrInvalidShare means the share lacks a token, member id, or badge URLs.
var ErrInvalidShare = errors.New("publisher: incomplete share")

// RejectedError is returned when LinkedIn answers with a non-2xx status.
type RejectedError struct {
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("linkedin rejected share: status %d", e.StatusCode)
}

// Config configures the LinkedIn client.
type Config struct {
	APIURL string
	// BadgeBaseURL, when set, makes the shared link <base>/badge/<id> instead
	// of the document URL.
	BadgeBaseURL string
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Timeout      time.Duration
}

// LinkedIn publishes shares over HTTP with bounded retries and a circuit
// breaker shared by all callers.
type LinkedIn struct {
	cfg     Config
	client  *retryablehttp.Client
	breaker *circuit.Breaker
	logger  *slog.Logger
}

// Option configures the LinkedIn client.
type Option func(*LinkedIn)

// WithBreaker replaces the default circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(l *LinkedIn) {
		if b != nil {
			l.breaker = b
		}
	}
}

// WithLogger configures a logger for the client.
func WithLogger(logger *slog.Logger) Option {
	return func(l *LinkedIn) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithHTTPClient sets the underlying transport client (tests).
func WithHTTPClient(c *http.Client) Option {
	return func(l *LinkedIn) {
		if c != nil {
			l.client.HTTPClient = c
		}
	}
}

// NewLinkedIn constructs a LinkedIn publisher.
func NewLinkedIn(cfg Config, opts ...Option) *LinkedIn {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.RetryWaitMin <= 0 {
		cfg.RetryWaitMin = 500 * time.Millisecond
	}
	if cfg.RetryWaitMax < cfg.RetryWaitMin {
		cfg.RetryWaitMax = 4 * cfg.RetryWaitMin
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	client := retryablehttp.NewClient()
	client.RetryMax = max(cfg.Retries, 0)
	client.RetryWaitMin = cfg.RetryWaitMin
	client.RetryWaitMax = cfg.RetryWaitMax
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil
	// Return the last response instead of a generic "giving up" error so the
	// status code reaches the caller.
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	l := &LinkedIn{
		cfg:     cfg,
		client:  client,
		breaker: circuit.New("linkedin"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type sharePayload struct {
	Content    shareContent      `json:"content"`
	Owner      string            `json:"owner"`
	Visibility map[string]string `json:"visibility"`
}

type shareContent struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	SubmittedURL      string `json:"submittedUrl"`
	SubmittedImageURL string `json:"submittedImageUrl"`
}

type shareResponse struct {
	ID       string `json:"id"`
	Activity string `json:"activity"`
}

// Publish posts the share. Caller errors (4xx) do not count against the
// breaker; provider and transport failures do.
func (l *LinkedIn) Publish(ctx context.Context, share models.Share) (models.Confirmation, error) {
	if err := checkShare(share); err != nil {
		return models.Confirmation{}, err
	}
	if !l.breaker.Allow() {
		return models.Confirmation{}, sentinel.ErrCircuitOpen
	}

	body, err := json.Marshal(l.payload(share))
	if err != nil {
		return models.Confirmation{}, fmt.Errorf("marshal share: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, l.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return models.Confirmation{}, fmt.Errorf("build share request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+share.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := l.client.Do(req)
	if err != nil {
		l.recordFailure(ctx, err)
		return models.Confirmation{}, fmt.Errorf("post share: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rejected := &RejectedError{StatusCode: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			l.recordFailure(ctx, rejected)
		}
		return models.Confirmation{}, rejected
	}

	if change := l.breaker.RecordSuccess(); change.Closed {
		l.logger.InfoContext(ctx, "circuit breaker closed", "circuit", l.breaker.Name())
	}

	conf := models.Confirmation{StatusCode: resp.StatusCode, ShareID: resp.Header.Get("X-RestLi-Id")}
	var parsed shareResponse
	if len(raw) > 0 && json.Unmarshal(raw, &parsed) == nil {
		if parsed.ID != "" {
			conf.ShareID = parsed.ID
		} else if conf.ShareID == "" {
			conf.ShareID = parsed.Activity
		}
	}
	return conf, nil
}

func (l *LinkedIn) payload(share models.Share) sharePayload {
	link := share.DocumentURL
	if l.cfg.BadgeBaseURL != "" {
		link = strings.TrimRight(l.cfg.BadgeBaseURL, "/") + "/badge/" + share.BadgeID.String()
	}
	desc := "I have completed the training and earned a badge with ID: " + share.BadgeID.String()
	if share.KeyDescription != "" {
		desc = fmt.Sprintf("I have completed %s and earned a badge with ID: %s", share.KeyDescription, share.BadgeID)
	}
	return sharePayload{
		Content: shareContent{
			Title:             shareTitle,
			Description:       desc,
			SubmittedURL:      link,
			SubmittedImageURL: share.ImageURL,
		},
		Owner:      "urn:li:person:" + share.MemberID,
		Visibility: map[string]string{visibilityKey: visibilityValue},
	}
}

func (l *LinkedIn) recordFailure(ctx context.Context, err error) {
	if change := l.breaker.RecordFailure(); change.Opened {
		l.logger.ErrorContext(ctx, "circuit breaker opened",
			"circuit", l.breaker.Name(),
			"error", err,
		)
	}
}

func checkShare(share models.Share) error {
	switch {
	case share.BadgeID.IsNil():
		return fmt.Errorf("%w: badge id", ErrInvalidShare)
	case strings.TrimSpace(share.AccessToken) == "":
		return fmt.Errorf("%w: access token", ErrInvalidShare)
	case strings.TrimSpace(share.MemberID) == "":
		return fmt.Errorf("%w: member id", ErrInvalidShare)
	case share.ImageURL == "" || share.DocumentURL == "":
		return fmt.Errorf("%w: badge urls", ErrInvalidShare)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
