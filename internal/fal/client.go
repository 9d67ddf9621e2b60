// Package fal is a small client for the fal.ai queue API: a request is
// submitted, its status polled until it completes, and the result fetched.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/skaild/sitegen/internal/observability/logger"
)

// DefaultQueueURL is the public queue endpoint
const DefaultQueueURL = "https://queue.fal.run"

// Queue statuses
const (
	StatusInQueue    = "IN_QUEUE"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// ErrNoAPIKey is returned when the client has no credentials
var ErrNoAPIKey = errors.New("fal api key is not configured")

// APIError is a non-2xx answer from the queue API
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fal api error: status %d: %s", e.StatusCode, e.Body)
}

// Config holds client settings
type Config struct {
	APIKey       string
	QueueURL     string
	PollInterval time.Duration
	HTTPClient   *http.Client
}

// Client talks to the fal queue API
type Client struct {
	apiKey       string
	queueURL     string
	pollInterval time.Duration
	http         *http.Client
}

// NewClient creates a queue client
func NewClient(cfg Config) *Client {
	if cfg.QueueURL == "" {
		cfg.QueueURL = DefaultQueueURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:       cfg.APIKey,
		queueURL:     strings.TrimRight(cfg.QueueURL, "/"),
		pollInterval: cfg.PollInterval,
		http:         cfg.HTTPClient,
	}
}

// queued is the submit answer
type queued struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type status struct {
	Status string `json:"status"`
}

// Subscribe submits input to app, waits for completion and decodes the
// result into out. The wait is bounded only by ctx.
func (c *Client) Subscribe(ctx context.Context, app string, input any, out any) error {
	if c.apiKey == "" {
		return ErrNoAPIKey
	}

	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to encode fal input: %w", err)
	}

	var q queued
	if err := c.do(ctx, http.MethodPost, c.queueURL+"/"+strings.TrimLeft(app, "/"), body, &q); err != nil {
		return fmt.Errorf("failed to submit to %s: %w", app, err)
	}
	if q.StatusURL == "" || q.ResponseURL == "" {
		return fmt.Errorf("fal submit for %s returned no queue urls", app)
	}

	slog.DebugContext(ctx, "fal request queued",
		slog.String("app", app), slog.String("request_id", q.RequestID), logger.Component("fal"))

	if err := c.wait(ctx, q.StatusURL); err != nil {
		return fmt.Errorf("fal request %s: %w", q.RequestID, err)
	}

	if err := c.do(ctx, http.MethodGet, q.ResponseURL, nil, out); err != nil {
		return fmt.Errorf("failed to fetch fal result %s: %w", q.RequestID, err)
	}
	return nil
}

// wait polls the status URL at a constant interval until the request
// completes. API errors stop the loop; transport errors are retried.
func (c *Client) wait(ctx context.Context, statusURL string) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(c.pollInterval), ctx)

	return backoff.Retry(func() error {
		var st status
		err := c.do(ctx, http.MethodGet, statusURL, nil, &st)
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		switch st.Status {
		case StatusCompleted:
			return nil
		case StatusInQueue, StatusInProgress:
			return fmt.Errorf("request %s", strings.ToLower(st.Status))
		default:
			return backoff.Permanent(fmt.Errorf("unexpected queue status %q", st.Status))
		}
	}, b)
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
