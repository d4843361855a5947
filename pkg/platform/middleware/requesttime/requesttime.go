// Package requesttime pins a single "now" per request so the badge image,
// the document, and the ledger row all carry the same issue timestamp.
package requesttime

import (
	"context"
	"net/http"
	"time"
)

type contextKeyRequestTime struct{}

// Middleware captures the current time at the start of the request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Now returns the request-scoped time, falling back to the wall clock for
// contexts that did not pass through Middleware (CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyRequestTime{}).(time.Time); ok {
		return t
	}
	return normalize(time.Now())
}

// WithTime injects a specific time into a context.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, contextKeyRequestTime{}, normalize(t))
}

// normalize drops sub-microsecond precision and location so the value
// survives a round trip through a TIMESTAMPTZ column unchanged.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
