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
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/skaild/sitegen/internal/observability/logger"
	"github.com/skaild/sitegen/internal/render"
	"github.com/skaild/sitegen/internal/site"
)

// ServeSite renders the landing page of the site behind the request host
func (h *Handler) ServeSite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := GetLookupKey(ctx)

	cfg, err := h.sites.Load(ctx, key)
	if err != nil {
		status := http.StatusInternalServerError
		page := render.ErrorPage{RequestID: middleware.GetReqID(ctx)}
		if errors.Is(err, site.ErrSiteNotFound) {
			status = http.StatusNotFound
			page.NotFound = true
			page.Host = GetHost(ctx)
			slog.InfoContext(ctx, "no site for host", logger.Host(page.Host), logger.LookupKey(key))
		} else {
			slog.ErrorContext(ctx, "failed to load site", logger.LookupKey(key), logger.Error(err))
		}
		h.writeErrorPage(w, r, status, page)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, cfg); err != nil {
		slog.ErrorContext(ctx, "failed to render site", logger.LookupKey(key), logger.Error(err))
		h.writeErrorPage(w, r, http.StatusInternalServerError, render.ErrorPage{RequestID: middleware.GetReqID(ctx)})
	}
}

func (h *Handler) writeErrorPage(w http.ResponseWriter, r *http.Request, status int, page render.ErrorPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.renderer.RenderError(w, page); err != nil {
		slog.ErrorContext(r.Context(), "failed to render error page", logger.Error(err))
	}
}

// GetSiteConfig returns the normalized config of the request host as JSON
func (h *Handler) GetSiteConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := GetLookupKey(ctx)

	cfg, err := h.sites.Load(ctx, key)
	if err != nil {
		h.respondSiteError(w, r, key, err)
		return
	}

	respondJSON(w, http.StatusOK, cfg)
}

func (h *Handler) respondSiteError(w http.ResponseWriter, r *http.Request, key string, err error) {
	if errors.Is(err, site.ErrSiteNotFound) {
		respondError(w, http.StatusNotFound, "site not found")
		return
	}
	slog.ErrorContext(r.Context(), "site request failed", logger.LookupKey(key), logger.Error(err))
	respondError(w, http.StatusInternalServerError, "failed to load site configuration")
}
