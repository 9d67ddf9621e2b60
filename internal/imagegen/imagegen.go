// Package imagegen generates illustration images for site content through
// the fal flux-pro app.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultApp is the fal app used for images
const DefaultApp = "fal-ai/flux-pro/v1.1-ultra"

// AspectRatio of a generated image
type AspectRatio string

// Supported aspect ratios
const (
	Square    AspectRatio = "1:1"
	Landscape AspectRatio = "4:3"
	Wide      AspectRatio = "16:9"
	Portrait  AspectRatio = "3:4"
	Tall      AspectRatio = "9:16"
)

var (
	ErrInvalidAspectRatio = errors.New("invalid aspect ratio")
	ErrNoImage            = errors.New("no image url in response")
	ErrEmptyPrompt        = errors.New("prompt is required")
)

// ParseAspectRatio validates s. An empty string is the default 1:1.
func ParseAspectRatio(s string) (AspectRatio, error) {
	switch a := AspectRatio(strings.TrimSpace(s)); a {
	case "":
		return Square, nil
	case Square, Landscape, Wide, Portrait, Tall:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAspectRatio, s)
	}
}

// Request describes one image
type Request struct {
	Prompt      string
	AspectRatio AspectRatio
}

// Subscriber runs a fal queue request to completion
type Subscriber interface {
	Subscribe(ctx context.Context, app string, input any, out any) error
}

// Config holds client settings
type Config struct {
	App string
	// Timeout bounds one generation including queue time
	Timeout time.Duration
	// RPS bounds outbound calls per second; zero disables the limit
	RPS float64
}

// Client generates images
type Client struct {
	queue   Subscriber
	app     string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewClient creates an image client on a fal queue
func NewClient(queue Subscriber, cfg Config) *Client {
	if cfg.App == "" {
		cfg.App = DefaultApp
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RPS), 1)
	}
	return &Client{
		queue:   queue,
		app:     cfg.App,
		timeout: cfg.Timeout,
		limiter: limiter,
	}
}

type input struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	NumImages   int    `json:"num_images"`
}

type output struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Generate returns the URL of one generated image
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", ErrEmptyPrompt
	}
	aspect, err := ParseAspectRatio(string(req.AspectRatio))
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("image rate limit: %w", err)
	}

	var out output
	err = c.queue.Subscribe(ctx, c.app, input{
		Prompt:      req.Prompt,
		AspectRatio: string(aspect),
		NumImages:   1,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("failed to generate image: %w", err)
	}

	if len(out.Images) == 0 || out.Images[0].URL == "" {
		return "", ErrNoImage
	}
	return out.Images[0].URL, nil
}
