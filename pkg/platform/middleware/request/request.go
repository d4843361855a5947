package request

import (
	"log/slog"
	"mime"
	"net"
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"badgeworks/pkg/platform/privacy"
	"badgeworks/pkg/requestcontext"
)

// MaxRequestIDLength bounds client-supplied X-Request-ID values.
const MaxRequestIDLength = 128

// validRequestID matches alphanumeric characters, dashes, underscores, and periods.
var validRequestID = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// Recovery recovers from panics and returns a 500 error, preventing server crashes.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					ctx := r.Context()
					logger.ErrorContext(ctx, "panic recovered",
						"error", err,
						"stack", string(debug.Stack()),
						"path", r.URL.Path,
						"method", r.Method,
						"request_id", requestcontext.RequestID(ctx),
					)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestID adds a request ID to the context and response headers.
// A valid client-provided X-Request-ID is reused; anything else is replaced
// with a generated UUID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if !isValidRequestID(requestID) {
			requestID = uuid.New().String()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func isValidRequestID(id string) bool {
	if id == "" || len(id) > MaxRequestIDLength {
		return false
	}
	return validRequestID.MatchString(id)
}

// ClientIP records the direct peer address on the context. Forwarded headers
// are ignored; the service is expected to sit behind a load balancer that
// terminates them.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			ip = host
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithClientIP(r.Context(), ip)))
	})
}

// Logger logs HTTP requests with method, path, status code, duration, and request ID.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			ctx := r.Context()
			// Skip noisy probes unless they fail.
			if isProbe(r.URL.Path) && wrapped.statusCode < http.StatusInternalServerError {
				return
			}

			logger.InfoContext(ctx, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", requestcontext.RequestID(ctx),
				"remote_addr_prefix", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
				"client", clientSummary(r.UserAgent()),
			)
		})
	}
}

// clientSummary reduces a User-Agent to "Browser on OS". The raw header is
// never logged.
func clientSummary(userAgent string) string {
	if userAgent == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}
	browser, _ := ua.Browser()
	os := ua.OS()
	if ua.Mobile() && ua.Platform() != "" {
		os = ua.Platform()
	}
	switch {
	case browser == "" && os == "":
		return "unknown"
	case os == "":
		return browser
	case browser == "":
		return "unknown on " + os
	}
	return browser + " on " + os
}

func isProbe(path string) bool {
	switch path {
	case "/health", "/health/live", "/health/ready", "/metrics":
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Timeout wraps the handler with a timeout.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, timeout, "Request Timeout")
	}
}

// BodyLimit caps request bodies with http.MaxBytesReader. Apply before any
// JSON decoding.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeJSON rejects POST/PUT/PATCH requests whose Content-Type is set
// to something other than application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" {
				if mediaType, _, err := mime.ParseMediaType(ct); err != nil || mediaType != "application/json" {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnsupportedMediaType)
					_, _ = w.Write([]byte(`{"error":"invalid_content_type","error_description":"Content-Type must be application/json"}`)) //nolint:errcheck // headers already sent
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Latency observes request duration per route pattern.
func Latency(m *Metrics, route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			if m != nil {
				m.ObserveRequest(route(r), r.Method, wrapped.statusCode, time.Since(start).Seconds())
			}
		})
	}
}
