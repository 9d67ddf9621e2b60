package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDisabled is returned by NewProvider for the "none" provider
var ErrDisabled = errors.New("text generation is disabled")

// Options select and configure a provider
type Options struct {
	// Provider is "openai", "fal" or "none"
	Provider     string
	Model        string
	OpenAIAPIKey string
	OpenAIURL    string
	// Queue is required by the fal provider
	Queue      Subscriber
	HTTPClient *http.Client
	// RPM bounds requests per minute; zero disables the limit
	RPM int
}

// NewProvider creates a provider from opts, wrapped in a rate limiter.
func NewProvider(opts Options) (Provider, error) {
	var p Provider
	switch opts.Provider {
	case "openai":
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai api key is not configured")
		}
		p = NewOpenAIProvider(opts.OpenAIAPIKey, opts.Model, opts.OpenAIURL, opts.HTTPClient)
	case "fal":
		if opts.Queue == nil {
			return nil, fmt.Errorf("fal provider requires a queue client")
		}
		p = NewFalProvider(opts.Queue, opts.Model)
	case "none", "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", opts.Provider)
	}
	return NewRateLimitedProvider(p, opts.RPM), nil
}
