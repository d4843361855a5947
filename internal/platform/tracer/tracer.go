// Package tracer provides a small tracing abstraction so the issuance
// pipeline can emit spans without depending on OpenTelemetry APIs directly.
//
// Implementations:
//   - NoopTracer: for tests and when tracing is disabled
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, marking it failed when err is non-nil.
	// End must be called exactly once, typically via defer.
	End(err error)

	SetAttributes(attrs ...Attribute)

	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	// Start creates a span; the returned context carries it to child operations.
	//
	//   ctx, span := t.Start(ctx, tracer.SpanIssue, tracer.Int64(tracer.AttrSubjectID, 120))
	//   defer func() { span.End(err) }()
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

func Float64(key string, value float64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// HashEmail returns a short SHA-256 digest of the normalized address so
// traces for one person correlate without carrying the address itself.
func HashEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:8])
}

// Span names used by the issuance pipeline.
const (
	SpanIssue     = "badge.issue"
	SpanRender    = "badge.render"
	SpanUpload    = "badge.upload"
	SpanRecord    = "badge.record"
	SpanShare     = "badge.share"
	SpanPreCheck  = "badge.precheck"
	SpanFindBadge = "badge.find"
)

// Attribute keys used by the issuance pipeline.
const (
	AttrSubjectID   = "badge.subject_id"
	AttrKeyCode     = "badge.key_code"
	AttrBadgeID     = "badge.id"
	AttrEmailHash   = "badge.email_hash"
	AttrOutcome     = "badge.outcome"
	AttrContentType = "artifact.content_type"
	AttrBytes       = "artifact.bytes"
	AttrReason      = "badge.reject_reason"
)

// Event names used by the issuance pipeline.
const (
	EventShareQueued = "share.queued"
	EventRejected    = "badge.rejected"
)
