// Copyright 2026 The Sitegen Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/skaild/sitegen/internal/audit"
	"github.com/skaild/sitegen/internal/imagegen"
	"github.com/skaild/sitegen/internal/observability/logger"
	"github.com/skaild/sitegen/internal/render"
	"github.com/skaild/sitegen/internal/resolver"
	"github.com/skaild/sitegen/internal/site"
)

// SiteService is the part of site.Service the handlers use
type SiteService interface {
	Load(ctx context.Context, key string) (*site.Config, error)
	Generate(ctx context.Context, key string, force bool) (*site.GenerationResult, error)
	ResetContent(ctx context.Context, key, actorID string) error
}

// ImageGenerator produces a single image URL for a prompt
type ImageGenerator interface {
	Generate(ctx context.Context, req imagegen.Request) (string, error)
}

const requestTimeout = 60 * time.Second

// Options tune the transport
type Options struct {
	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that sets them.
	TrustProxy        bool
	// GenerationTimeout bounds a synchronous generation pass started from
	// the admin API.
	GenerationTimeout time.Duration
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	sites       SiteService
	resolver    *resolver.Resolver
	renderer    *render.Renderer
	images      ImageGenerator
	auditLogger audit.Logger
	adminSecret []byte
	opts        Options
}

// NewHandler creates a new HTTP handler. images may be nil, in which case
// the image endpoint answers 503.
func NewHandler(
	sites SiteService,
	res *resolver.Resolver,
	renderer *render.Renderer,
	images ImageGenerator,
	auditLogger audit.Logger,
	adminSecret string,
	opts Options,
) *Handler {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 10 * time.Minute
	}
	return &Handler{
		sites:       sites,
		resolver:    res,
		renderer:    renderer,
		images:      images,
		auditLogger: auditLogger,
		adminSecret: []byte(adminSecret),
		opts:        opts,
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if h.opts.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(RateLimitMiddleware(rateLimiter))
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/health", h.HealthCheck)

		// Tenant surface, keyed by the request host
		r.Group(func(r chi.Router) {
			r.Use(SiteMiddleware(h.resolver))
			r.Get("/", h.ServeSite)
			r.Get("/api/v1/site", h.GetSiteConfig)
		})

		// Admin surface
		r.Group(func(r chi.Router) {
			r.Use(h.AdminMiddleware)
			r.Get("/api/v1/sites/{domain}", h.GetSite)
			r.Delete("/api/v1/sites/{domain}/content", h.ResetContent)
		})
	})

	// Admin generation runs one text call and several image calls in a row
	r.Group(func(r chi.Router) {
		r.Use(h.AdminMiddleware)
		r.Use(LongRunningMiddleware(h.opts.GenerationTimeout + requestTimeout))
		r.Post("/api/v1/sites/{domain}/generate", h.GenerateContent)
		r.Post("/api/generate-image", h.GenerateImage)
	})

	return r
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "sitegen",
	})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", logger.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
