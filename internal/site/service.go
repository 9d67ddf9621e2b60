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

package site

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/skaild/sitegen/internal/audit"
	"github.com/skaild/sitegen/internal/cache"
	"github.com/skaild/sitegen/internal/observability/logger"
	"github.com/skaild/sitegen/internal/observability/metrics"
)

const loadTimeout = 10 * time.Second

// Options tune the Config Loader
type Options struct {
	// Development substitutes DefaultConfig for unknown lookup keys
	Development bool
	// AutoGenerate triggers background generation for incomplete content
	AutoGenerate bool
	CacheTTL     time.Duration
}

// Service provides site loading and content lifecycle operations
type Service struct {
	repo        Repository
	cache       cache.Cache
	generator   Generator
	auditLogger audit.Logger
	instruments *metrics.Instruments
	opts        Options
	group       singleflight.Group
}

// NewService creates a new site service. generator and instruments may be
// nil.
func NewService(repo Repository, c cache.Cache, generator Generator, auditLogger audit.Logger, instruments *metrics.Instruments, opts Options) *Service {
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	return &Service{
		repo:        repo,
		cache:       c,
		generator:   generator,
		auditLogger: auditLogger,
		instruments: instruments,
		opts:        opts,
	}
}

// Load returns the display-ready config for a lookup key. Unknown keys
// yield DefaultConfig in development and ErrSiteNotFound in production.
// Incomplete content triggers a background generation pass; the returned
// config is whatever is stored right now.
func (s *Service) Load(ctx context.Context, key string) (*Config, error) {
	if cfg, ok := s.cached(ctx, key); ok {
		slog.DebugContext(ctx, "site config loaded", logger.LookupKey(key), logger.CacheHit(true))
		s.instruments.SiteLoad(ctx, "cache")
		return cfg, nil
	}

	// Callers waiting on the same key share one load; it must outlive the
	// request that started it.
	v, err, _ := s.group.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.load(loadCtx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Config), nil
}

func (s *Service) load(ctx context.Context, key string) (*Config, error) {
	st, err := s.repo.GetByDomain(ctx, key)
	if errors.Is(err, ErrSiteNotFound) {
		if s.opts.Development {
			slog.WarnContext(ctx, "site not found, serving default config",
				logger.LookupKey(key), logger.Component("site"))
			s.instruments.SiteLoad(ctx, "default")
			return DefaultConfig(key), nil
		}
		s.instruments.SiteLoad(ctx, "error")
		return nil, err
	}
	if err != nil {
		s.instruments.SiteLoad(ctx, "error")
		return nil, fmt.Errorf("failed to load site %s: %w", key, err)
	}

	cfg := Normalize(st)

	// Stored before triggering so a finished pass always overwrites it
	s.store(ctx, key, cfg)
	s.instruments.SiteLoad(ctx, "store")

	if s.opts.AutoGenerate && s.generator != nil && st.NeedsContent() {
		if s.generator.Trigger(st) {
			slog.InfoContext(ctx, "content generation triggered",
				logger.LookupKey(key), logger.SiteID(st.ID), logger.Component("site"))
		}
	}
	return cfg, nil
}

func (s *Service) cached(ctx context.Context, key string) (*Config, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, cache.Key(key))
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			slog.WarnContext(ctx, "cache read failed", logger.LookupKey(key), logger.Error(err))
		}
		return nil, false
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		slog.WarnContext(ctx, "discarding corrupt cache entry", logger.LookupKey(key), logger.Error(err))
		_ = s.cache.Delete(ctx, cache.Key(key))
		return nil, false
	}
	return &cfg, true
}

func (s *Service) store(ctx context.Context, key string, cfg *Config) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		slog.WarnContext(ctx, "failed to encode config for cache", logger.LookupKey(key), logger.Error(err))
		return
	}
	if err := s.cache.Set(ctx, cache.Key(key), data, s.opts.CacheTTL); err != nil {
		slog.WarnContext(ctx, "cache write failed", logger.LookupKey(key), logger.Error(err))
	}
}

// Invalidate drops the cached config of a lookup key
func (s *Service) Invalidate(ctx context.Context, key string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, cache.Key(key))
}

// Get returns the stored site without normalization
func (s *Service) Get(ctx context.Context, key string) (*Site, error) {
	return s.repo.GetByDomain(ctx, key)
}

// List lists sites with pagination
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Site, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

// Generate runs a synchronous generation pass for a lookup key. force
// regenerates even when the content is complete.
func (s *Service) Generate(ctx context.Context, key string, force bool) (*GenerationResult, error) {
	if s.generator == nil {
		return nil, ErrNoGenerator
	}
	st, err := s.repo.GetByDomain(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.generator.Generate(ctx, st, force)
}

// ResetContent clears a site's content so the next load generates it again
func (s *Service) ResetContent(ctx context.Context, key, actorID string) error {
	if err := s.repo.ResetContent(ctx, key); err != nil {
		return err
	}
	if err := s.Invalidate(ctx, key); err != nil {
		slog.WarnContext(ctx, "failed to invalidate cache after reset", logger.LookupKey(key), logger.Error(err))
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeContentReset,
		Domain:   key,
		ActorID:  actorID,
		Resource: "content",
	})
	return nil
}

// CreateParams describes a new site
type CreateParams struct {
	Domain  string
	Profile Profile
	Theme   Theme
}

// Create onboards a new site with an empty content block
func (s *Service) Create(ctx context.Context, p CreateParams, actorID string) (*Site, error) {
	domain := strings.ToLower(strings.TrimSpace(p.Domain))
	if domain == "" || strings.ContainsAny(domain, " /:") {
		return nil, ErrInvalidDomain
	}
	if strings.TrimSpace(p.Profile.Name) == "" {
		return nil, ErrMissingBusiness
	}

	if _, err := s.repo.GetByDomain(ctx, domain); err == nil {
		return nil, ErrSiteExists
	} else if !errors.Is(err, ErrSiteNotFound) {
		return nil, fmt.Errorf("failed to check domain: %w", err)
	}

	siteID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate site id: %w", err)
	}
	profileID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate profile id: %w", err)
	}

	profile := p.Profile
	profile.ID = profileID.String()
	if profile.BusinessType == "" {
		profile.BusinessType = DefaultBusinessType
	}

	now := time.Now().UTC()
	st := &Site{
		ID:        siteID.String(),
		Domain:    domain,
		Profile:   profile,
		Theme:     p.Theme,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to create site: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeSiteCreated,
		SiteID:   st.ID,
		Domain:   st.Domain,
		ActorID:  actorID,
		Resource: "site",
		Metadata: map[string]any{"business_type": profile.BusinessType},
	})
	return st, nil
}
