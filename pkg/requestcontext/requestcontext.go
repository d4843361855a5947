// Package requestcontext stores request-scoped metadata (request id, client
// address) on a context.Context so handlers, services, and loggers share it.
package requestcontext

import "context"

type contextKeyRequestID struct{}
type contextKeyClientIP struct{}

// WithRequestID returns a copy of ctx carrying the request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID{}, requestID)
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyRequestID{}).(string); ok {
		return v
	}
	return ""
}

// WithClientIP returns a copy of ctx carrying the client address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyClientIP{}, ip)
}

// ClientIP returns the client address stored in ctx, or "".
func ClientIP(ctx context.Context) string {
	if v, ok := ctx.Value(contextKeyClientIP{}).(string); ok {
		return v
	}
	return ""
}
