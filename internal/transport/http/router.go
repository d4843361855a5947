// Package httptransport assembles the public HTTP surface.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"badgeworks/internal/badge/handler"
	"badgeworks/internal/platform/health"
	"badgeworks/pkg/platform/middleware/request"
	"badgeworks/pkg/platform/middleware/requesttime"
)

// MaxBodyBytes caps badge request bodies.
const MaxBodyBytes = 64 << 10

// RouterConfig carries the mounted handlers and HTTP-level settings.
type RouterConfig struct {
	Badges         *handler.Handler
	Health         *health.Handler
	Gatherer       prometheus.Gatherer
	HTTPMetrics    *request.Metrics
	RequestTimeout time.Duration
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.ClientIP)
	r.Use(request.Logger(logger))
	r.Use(request.Latency(cfg.HTTPMetrics, routePattern))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(request.Timeout(cfg.RequestTimeout))
		}
		r.Use(request.BodyLimit(MaxBodyBytes))
		r.Use(request.ContentTypeJSON)
		r.Use(requesttime.Middleware)
		cfg.Badges.Register(r)
	})

	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
