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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skaild/sitegen/internal/app"
	"github.com/skaild/sitegen/internal/config"
	"github.com/skaild/sitegen/internal/observability/logger"
	"github.com/skaild/sitegen/internal/observability/metrics"
	"github.com/skaild/sitegen/internal/observability/tracing"
	"github.com/skaild/sitegen/internal/render"
	"github.com/skaild/sitegen/internal/resolver"
	"github.com/skaild/sitegen/internal/store/postgres"
	transportHTTP "github.com/skaild/sitegen/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting sitegen",
		logger.String("environment", cfg.App.Environment),
		logger.String("base_domain", cfg.App.BaseDomain),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	} else {
		defer tracer.Shutdown(context.Background())
	}

	// Initialize meter
	var instruments *metrics.Instruments
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	} else if instruments, err = metrics.NewInstruments(meter); err != nil {
		slog.Error("failed to register instruments", logger.Error(err))
	}

	// Storage, cache and generation pipeline
	a, err := app.New(ctx, cfg, instruments)
	if err != nil {
		slog.Error("failed to initialize application", logger.Error(err))
		os.Exit(1)
	}
	defer a.Close()
	slog.Info("connected to database")

	if cfg.Database.AutoMigrate {
		if err := a.DB.MigrateUp(ctx); err != nil {
			slog.Error("migration failed", logger.Error(err))
			os.Exit(1)
		}
	}

	renderer, err := render.New(render.Options{Pretty: cfg.Render.Pretty})
	if err != nil {
		slog.Error("failed to parse templates", logger.Error(err))
		os.Exit(1)
	}

	res := resolver.New(resolver.Config{
		BaseDomain:      cfg.App.BaseDomain,
		FallbackKey:     cfg.App.FallbackDomain,
		PreviewSuffixes: cfg.App.PreviewSuffixes,
	})

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer rateLimiter.Close()

	var images transportHTTP.ImageGenerator
	if a.Images != nil {
		images = a.Images
	}
	if cfg.Security.AdminJWTSecret == "" {
		slog.Warn("admin_jwt_secret not set, admin API disabled")
	}

	handler := transportHTTP.NewHandler(a.Sites, res, renderer, images, a.Audit, cfg.Security.AdminJWTSecret,
		transportHTTP.Options{
			TrustProxy:        cfg.Server.TrustProxy,
			GenerationTimeout: cfg.AI.GenerationTimeout,
		})
	router := transportHTTP.NewRouter(handler, rateLimiter)

	// Change feed keeps the cache in step with direct database edits
	watcher := postgres.NewWatcher(a.DB, a.Sites)
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("change watcher stopped", logger.Error(err))
		}
	}()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"),
			logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}
	if err := a.Generator.Wait(shutdownCtx); err != nil {
		slog.Warn("background generation still running at shutdown", logger.Error(err))
	}

	slog.Info("server stopped")
}
