package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/skaild/sitegen/internal/fal"
)

// FalTextApp is the fal app routing prompts to hosted chat models
const FalTextApp = "fal-ai/any-llm"

// ErrNoOutput is returned when the fal app answers without text
var ErrNoOutput = errors.New("no output in response")

// Subscriber runs a fal queue request to completion
type Subscriber interface {
	Subscribe(ctx context.Context, app string, input any, out any) error
}

// FalProvider implements Provider on the fal any-llm app. The app takes a
// single prompt and system prompt, so multi-turn history is flattened.
type FalProvider struct {
	queue Subscriber
	model string
}

// NewFalProvider creates a provider using model, e.g. "openai/gpt-4o"
func NewFalProvider(queue Subscriber, model string) *FalProvider {
	if model == "" {
		model = "openai/gpt-4o"
	}
	return &FalProvider{queue: queue, model: model}
}

func (p *FalProvider) Name() string {
	return "fal"
}

type falTextInput struct {
	Model        string `json:"model"`
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}

type falTextOutput struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

func (p *FalProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	var out falTextOutput
	err := p.queue.Subscribe(ctx, FalTextApp, falTextInput{
		Model:        model,
		Prompt:       req.Prompt(),
		SystemPrompt: req.System(),
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("fal text error: %s", out.Error)
	}
	if out.Output == "" {
		return nil, ErrNoOutput
	}

	return &CompletionResponse{
		Content:      out.Output,
		Model:        model,
		FinishReason: "stop",
	}, nil
}

var _ Subscriber = (*fal.Client)(nil)
