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

// Package app wires the storage, cache and generation components shared by
// the server and the sitectl CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/skaild/sitegen/internal/audit"
	"github.com/skaild/sitegen/internal/cache"
	"github.com/skaild/sitegen/internal/config"
	"github.com/skaild/sitegen/internal/content"
	"github.com/skaild/sitegen/internal/fal"
	"github.com/skaild/sitegen/internal/imagegen"
	"github.com/skaild/sitegen/internal/llm"
	"github.com/skaild/sitegen/internal/observability/logger"
	"github.com/skaild/sitegen/internal/observability/metrics"
	"github.com/skaild/sitegen/internal/observability/tracing"
	"github.com/skaild/sitegen/internal/site"
	"github.com/skaild/sitegen/internal/store/postgres"
)

// App holds the wired components
type App struct {
	Config      *config.Config
	DB          *postgres.DB
	Repo        *postgres.SiteRepository
	Cache       cache.Cache
	Locker      cache.Locker
	Text        llm.Provider
	Images      *imagegen.Client // nil without a fal key
	Generator   *content.Generator
	Sites       *site.Service
	Audit       audit.Logger
	Instruments *metrics.Instruments

	closers []func()
}

// DatabaseConfig maps the database section onto the store config
func DatabaseConfig(cfg *config.Config) postgres.Config {
	return postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}
}

// New connects the database and cache and builds the generation pipeline.
// instruments may be nil.
func New(ctx context.Context, cfg *config.Config, instruments *metrics.Instruments) (*App, error) {
	a := &App{
		Config:      cfg,
		Audit:       audit.NewSlogLogger(),
		Instruments: instruments,
	}

	db, err := postgres.New(ctx, DatabaseConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)
	a.Repo = postgres.NewSiteRepository(db)

	if err := a.initCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.initGeneration()

	a.Sites = site.NewService(a.Repo, a.Cache, a.Generator, a.Audit, instruments, site.Options{
		Development:  !cfg.IsProduction(),
		AutoGenerate: cfg.AI.AutoGenerate,
		CacheTTL:     cfg.Cache.TTL,
	})
	return a, nil
}

func (a *App) initCache(ctx context.Context) error {
	switch a.Config.Cache.Driver {
	case config.CacheRedis:
		client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     a.Config.Cache.RedisAddr,
			Password: a.Config.Cache.RedisPassword,
			DB:       a.Config.Cache.RedisDB,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		a.Cache = cache.NewRedis(client)
		a.Locker = cache.NewRedisLocker(client)
		slog.Info("using redis cache", logger.Component("cache"), logger.String("addr", a.Config.Cache.RedisAddr))
	default:
		mem := cache.NewMemory(a.Config.Cache.MaxEntries, time.Minute)
		a.closers = append(a.closers, mem.Close)
		if err := a.Instruments.ObserveCacheEntries(mem.Len); err != nil {
			slog.Warn("cache size gauge unavailable", logger.Component("cache"), logger.Error(err))
		}
		a.Cache = mem
		a.Locker = cache.NewMemoryLocker()
		slog.Info("using in-memory cache", logger.Component("cache"))
	}
	return nil
}

func (a *App) initGeneration() {
	ai := a.Config.AI

	var queue *fal.Client
	if ai.FalAPIKey != "" {
		queue = fal.NewClient(fal.Config{
			APIKey:       ai.FalAPIKey,
			QueueURL:     ai.FalQueueURL,
			PollInterval: ai.ImagePollInterval,
			HTTPClient:   tracing.NewHTTPClient(30 * time.Second),
		})
	} else {
		slog.Warn("fal api key not configured, image generation disabled", logger.Component("app"))
	}

	opts := llm.Options{
		Provider:     ai.TextProvider,
		Model:        ai.TextModel,
		OpenAIAPIKey: ai.OpenAIAPIKey,
		HTTPClient:   tracing.NewHTTPClient(2 * time.Minute),
		RPM:          ai.TextRPM,
	}
	if queue != nil {
		opts.Queue = queue
	}
	text, err := llm.NewProvider(opts)
	switch {
	case errors.Is(err, llm.ErrDisabled):
		slog.Warn("text generation disabled, fallback content will be used", logger.Component("app"))
	case err != nil:
		slog.Warn("text provider unavailable, fallback content will be used",
			logger.Provider(ai.TextProvider), logger.Error(err))
	default:
		a.Text = text
	}

	var images content.ImageGenerator
	if queue != nil {
		a.Images = imagegen.NewClient(queue, imagegen.Config{
			App:     ai.ImageApp,
			Timeout: ai.ImageTimeout,
			RPS:     ai.ImageRPS,
		})
		images = a.Images
	}

	a.Generator = content.NewGenerator(a.Text, images, a.Repo, a.Cache, a.Locker, a.Audit, a.Instruments, content.Options{
		Timeout:  ai.GenerationTimeout,
		CacheTTL: a.Config.Cache.TTL,
	})
}

// Close releases connections in reverse order
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
