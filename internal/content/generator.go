// Package content fills in missing marketing copy and imagery for a site
// using the text and image generation providers.
package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skaild/sitegen/internal/audit"
	"github.com/skaild/sitegen/internal/cache"
	"github.com/skaild/sitegen/internal/imagegen"
	"github.com/skaild/sitegen/internal/llm"
	"github.com/skaild/sitegen/internal/observability/logger"
	"github.com/skaild/sitegen/internal/observability/metrics"
	"github.com/skaild/sitegen/internal/site"
)

// FeaturePlaceholder replaces a feature image that failed to generate
const FeaturePlaceholder = "https://placehold.co/400x400?text=Feature+Image"

// ErrInProgress is returned when a pass for the same site is already running
var ErrInProgress = errors.New("content generation already in progress")

// ImageGenerator produces one image URL per request
type ImageGenerator interface {
	Generate(ctx context.Context, req imagegen.Request) (string, error)
}

// Options tune the generator
type Options struct {
	// Timeout bounds a background pass
	Timeout time.Duration
	// CacheTTL applies to configs mirrored into the cache after a pass
	CacheTTL time.Duration
	// LockTTL bounds how long a crashed holder can block a site
	LockTTL time.Duration
}

// Generator implements site.Generator
type Generator struct {
	text        llm.Provider
	images      ImageGenerator
	repo        site.Repository
	cache       cache.Cache
	locker      cache.Locker
	auditLogger audit.Logger
	instruments *metrics.Instruments
	tracer      trace.Tracer
	opts        Options
	wg          sync.WaitGroup
}

// NewGenerator creates a generator. text and images may be nil, in which
// case copy falls back to static content and images are skipped.
func NewGenerator(text llm.Provider, images ImageGenerator, repo site.Repository, c cache.Cache, locker cache.Locker, auditLogger audit.Logger, instruments *metrics.Instruments, opts Options) *Generator {
	if locker == nil {
		locker = cache.NewMemoryLocker()
	}
	if auditLogger == nil {
		auditLogger = audit.Nop{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = opts.Timeout + time.Minute
	}
	return &Generator{
		text:        text,
		images:      images,
		repo:        repo,
		cache:       c,
		locker:      locker,
		auditLogger: auditLogger,
		instruments: instruments,
		tracer:      otel.Tracer("github.com/skaild/sitegen/internal/content"),
		opts:        opts,
	}
}

func lockKey(s *site.Site) string {
	return "generate:" + s.Domain
}

// Trigger starts a background pass when s needs content and no other pass
// holds its lock. The pass runs detached from any request.
func (g *Generator) Trigger(s *site.Site) bool {
	if !s.NeedsContent() {
		return false
	}

	lockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	unlock, ok, err := g.locker.TryLock(lockCtx, lockKey(s), g.opts.LockTTL)
	cancel()
	if err != nil {
		slog.Warn("failed to acquire generation lock", logger.Domain(s.Domain), logger.Error(err))
		return false
	}
	if !ok {
		return false
	}

	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer unlock()

		ctx, cancel := context.WithTimeout(context.Background(), g.opts.Timeout)
		defer cancel()

		if _, err := g.run(ctx, s); err != nil {
			slog.ErrorContext(ctx, "background content generation failed",
				logger.Domain(s.Domain), logger.SiteID(s.ID), logger.Error(err))
		}
	}()
	return true
}

// Generate runs a pass synchronously. Without force a site with complete
// content is skipped.
func (g *Generator) Generate(ctx context.Context, s *site.Site, force bool) (*site.GenerationResult, error) {
	if !force && !s.NeedsContent() {
		slog.InfoContext(ctx, "content already present, skipping generation",
			logger.Domain(s.Domain), logger.SiteID(s.ID))
		return &site.GenerationResult{Content: s.Content, Skipped: true}, nil
	}

	unlock, ok, err := g.locker.TryLock(ctx, lockKey(s), g.opts.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire generation lock: %w", err)
	}
	if !ok {
		return nil, ErrInProgress
	}
	defer unlock()

	return g.run(ctx, s)
}

// Wait blocks until background passes finish or ctx ends
func (g *Generator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Generator) run(ctx context.Context, s *site.Site) (*site.GenerationResult, error) {
	ctx, span := g.tracer.Start(ctx, "content.Generate", trace.WithAttributes(
		attribute.String("site.domain", s.Domain),
		attribute.String("site.business_type", s.Profile.BusinessType),
	))
	defer span.End()

	start := time.Now()
	businessType := s.Profile.BusinessType
	if businessType == "" {
		businessType = site.DefaultBusinessType
	}

	slog.InfoContext(ctx, "content generation started",
		logger.Domain(s.Domain), logger.SiteID(s.ID), logger.BusinessType(businessType))

	content, err := g.writeCopy(ctx, s.Profile.Name, businessType)
	if err != nil {
		slog.WarnContext(ctx, "text generation failed, using fallback content",
			logger.Domain(s.Domain), logger.Error(err))
		span.RecordError(err)

		content = FallbackContent(s.Profile.Name, businessType)
		// A failed forced pass keeps serving the stored copy
		if s.NeedsContent() {
			g.mirror(ctx, s, content, false)
		}
		g.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeContentFallback,
			SiteID:   s.ID,
			Domain:   s.Domain,
			Resource: "content",
			Metadata: map[string]any{"business_type": businessType, "reason": err.Error()},
		})
		g.instruments.Generation(ctx, "fallback", time.Since(start))
		return &site.GenerationResult{Content: content, Fallback: true}, nil
	}

	images, failures := g.illustrate(ctx, s, content, businessType)

	if err := g.repo.SaveContent(ctx, s.ID, content, images); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		g.instruments.Generation(ctx, "error", time.Since(start))
		return nil, fmt.Errorf("failed to persist content for %s: %w", s.Domain, err)
	}
	g.mirror(ctx, s, content, true)

	elapsed := time.Since(start)
	g.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeContentGenerated,
		SiteID:   s.ID,
		Domain:   s.Domain,
		Resource: "content",
		Metadata: map[string]any{
			"services":       len(content.Services),
			"features":       len(content.Features),
			"images":         len(images),
			"image_failures": failures,
		},
	})
	g.instruments.Generation(ctx, "generated", elapsed)

	slog.InfoContext(ctx, "content generation finished",
		logger.Domain(s.Domain), logger.SiteID(s.ID),
		slog.Int("images", len(images)), slog.Int("image_failures", failures),
		slog.Duration("elapsed", elapsed))

	return &site.GenerationResult{
		Content:       content,
		Images:        images,
		Persisted:     true,
		ImageFailures: failures,
	}, nil
}

func (g *Generator) writeCopy(ctx context.Context, name, businessType string) (*site.Content, error) {
	if g.text == nil {
		return nil, llm.ErrDisabled
	}

	resp, err := g.text.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt},
			{Role: llm.RoleUser, Content: CopyPrompt(name, businessType)},
		},
		Temperature: 0.7,
		JSONMode:    true,
	})
	if err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "copy generated",
		logger.Provider(g.text.Name()), logger.Model(resp.Model), slog.Int("output_tokens", resp.OutputTokens))
	return ParseCopy(resp.Content)
}

// illustrate generates service images then feature images, one at a time.
// A failed image never stops the remaining ones.
func (g *Generator) illustrate(ctx context.Context, s *site.Site, content *site.Content, businessType string) ([]site.GeneratedImage, int) {
	if g.images == nil {
		return nil, 0
	}

	var images []site.GeneratedImage
	failures := 0

	for i := range content.Services {
		svc := &content.Services[i]
		prompt := ServiceImagePrompt(*svc, businessType)
		url, err := g.image(ctx, prompt, imagegen.Landscape)
		if err != nil {
			failures++
			g.imageFailed(ctx, s, site.KindService, svc.Title, err)
			continue
		}
		svc.ImageURL = url
		images = append(images, newImage(s.ID, site.KindService, svc.Title, prompt, imagegen.Landscape, url))
	}

	for i := range content.Features {
		feat := &content.Features[i]
		if feat.Title == "" {
			slog.WarnContext(ctx, "skipping feature without title", logger.Domain(s.Domain))
			continue
		}
		prompt := FeatureImagePrompt(*feat, businessType)
		url, err := g.image(ctx, prompt, imagegen.Square)
		if err != nil {
			failures++
			g.imageFailed(ctx, s, site.KindFeature, feat.Title, err)
			feat.ImageURL = FeaturePlaceholder
			continue
		}
		feat.ImageURL = url
		images = append(images, newImage(s.ID, site.KindFeature, feat.Title, prompt, imagegen.Square, url))
	}

	return images, failures
}

func (g *Generator) image(ctx context.Context, prompt string, aspect imagegen.AspectRatio) (string, error) {
	ctx, span := g.tracer.Start(ctx, "content.Image", trace.WithAttributes(
		attribute.String("image.aspect_ratio", string(aspect)),
	))
	defer span.End()

	url, err := g.images.Generate(ctx, imagegen.Request{Prompt: prompt, AspectRatio: aspect})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "image failed")
		return "", err
	}
	slog.DebugContext(ctx, "image generated", logger.AspectRatio(string(aspect)), logger.ImageURL(url))
	return url, nil
}

func (g *Generator) imageFailed(ctx context.Context, s *site.Site, kind, title string, err error) {
	slog.WarnContext(ctx, "image generation failed",
		logger.Domain(s.Domain), logger.ItemTitle(title), slog.String("kind", kind), logger.Error(err))
	g.instruments.ImageFailure(ctx, kind)
	g.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeImageFailed,
		SiteID:   s.ID,
		Domain:   s.Domain,
		Resource: kind,
		Metadata: map[string]any{"title": title, "error": err.Error()},
	})
}

func newImage(siteID, kind, subject, prompt string, aspect imagegen.AspectRatio, url string) site.GeneratedImage {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return site.GeneratedImage{
		ID:          id.String(),
		SiteID:      siteID,
		Kind:        kind,
		Subject:     subject,
		Prompt:      prompt,
		AspectRatio: string(aspect),
		URL:         url,
		CreatedAt:   time.Now().UTC(),
	}
}

// mirror writes the config the next load would build into the cache so
// readers see new content before the store round trip.
func (g *Generator) mirror(ctx context.Context, s *site.Site, content *site.Content, persisted bool) {
	if g.cache == nil {
		return
	}
	updated := *s
	updated.Content = content
	updated.Services = content.Services
	updated.Features = content.Features
	updated.ContentGenerated = persisted || s.ContentGenerated

	data, err := json.Marshal(site.Normalize(&updated))
	if err != nil {
		slog.WarnContext(ctx, "failed to encode generated config", logger.Domain(s.Domain), logger.Error(err))
		return
	}
	if err := g.cache.Set(ctx, cache.Key(s.Domain), data, g.opts.CacheTTL); err != nil {
		slog.WarnContext(ctx, "failed to cache generated config", logger.Domain(s.Domain), logger.Error(err))
	}
}

var _ site.Generator = (*Generator)(nil)
