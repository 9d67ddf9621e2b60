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
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/skaild/sitegen/internal/audit"
	"github.com/skaild/sitegen/internal/content"
	"github.com/skaild/sitegen/internal/imagegen"
	"github.com/skaild/sitegen/internal/observability/logger"
	"github.com/skaild/sitegen/internal/site"
)

const maxRequestBody = 64 << 10

func domainParam(r *http.Request) string {
	return strings.ToLower(strings.TrimSpace(chi.URLParam(r, "domain")))
}

// GetSite returns the normalized config of any domain
func (h *Handler) GetSite(w http.ResponseWriter, r *http.Request) {
	domain := domainParam(r)
	cfg, err := h.sites.Load(r.Context(), domain)
	if err != nil {
		h.respondSiteError(w, r, domain, err)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// GenerationResponse is the result of a synchronous generation pass
type GenerationResponse struct {
	Domain        string                `json:"domain"`
	Skipped       bool                  `json:"skipped"`
	Fallback      bool                  `json:"fallback"`
	Persisted     bool                  `json:"persisted"`
	ImageFailures int                   `json:"imageFailures"`
	Content       *site.Content         `json:"content,omitempty"`
	Images        []site.GeneratedImage `json:"images,omitempty"`
}

// GenerateContent runs a generation pass for a domain. ?force=true
// regenerates complete content.
func (h *Handler) GenerateContent(w http.ResponseWriter, r *http.Request) {
	domain := domainParam(r)
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))

	// The pass outlives the client connection
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.opts.GenerationTimeout)
	defer cancel()

	res, err := h.sites.Generate(ctx, domain, force)
	switch {
	case err == nil:
	case errors.Is(err, site.ErrSiteNotFound):
		respondError(w, http.StatusNotFound, "site not found")
		return
	case errors.Is(err, content.ErrInProgress):
		respondError(w, http.StatusConflict, "generation already in progress")
		return
	case errors.Is(err, site.ErrNoGenerator):
		respondError(w, http.StatusServiceUnavailable, "content generation is not configured")
		return
	default:
		slog.ErrorContext(ctx, "generation failed", logger.Domain(domain), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "generation failed")
		return
	}

	respondJSON(w, http.StatusOK, GenerationResponse{
		Domain:        domain,
		Skipped:       res.Skipped,
		Fallback:      res.Fallback,
		Persisted:     res.Persisted,
		ImageFailures: res.ImageFailures,
		Content:       res.Content,
		Images:        res.Images,
	})
}

// ResetContent clears the generated content of a domain
func (h *Handler) ResetContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	domain := domainParam(r)

	if err := h.sites.ResetContent(ctx, domain, GetSubject(ctx)); err != nil {
		h.respondSiteError(w, r, domain, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GenerateImageRequest is the body of POST /api/generate-image
type GenerateImageRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspectRatio"`
}

// GenerateImageResponse is the success body of POST /api/generate-image
type GenerateImageResponse struct {
	ImageURL string `json:"imageUrl"`
	Success  bool   `json:"success"`
}

// GenerateImage generates one image for an arbitrary prompt
func (h *Handler) GenerateImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.images == nil {
		respondError(w, http.StatusServiceUnavailable, "image generation is not configured")
		return
	}

	var req GenerateImageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		respondError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	ratio, err := imagegen.ParseAspectRatio(req.AspectRatio)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	url, err := h.images.Generate(ctx, imagegen.Request{Prompt: req.Prompt, AspectRatio: ratio})
	if err != nil {
		slog.ErrorContext(ctx, "image generation failed",
			logger.AspectRatio(string(ratio)),
			logger.Error(err),
		)
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to generate image",
			"details": err.Error(),
		})
		return
	}

	h.auditLogger.Log(ctx, audit.Event{
		Type:      audit.TypeImageGenerated,
		ActorID:   GetSubject(ctx),
		Resource:  "image",
		IPAddress: getClientIP(r),
		UserAgent: r.UserAgent(),
		Metadata:  map[string]any{"aspect_ratio": string(ratio), "url": url},
	})

	respondJSON(w, http.StatusOK, GenerateImageResponse{ImageURL: url, Success: true})
}
