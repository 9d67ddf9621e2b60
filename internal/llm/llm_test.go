package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider is a test provider that records calls and returns canned responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

type fakeSubscriber struct {
	app    string
	input  any
	output string
	err    error
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, app string, input any, out any) error {
	f.app = app
	f.input = input
	if f.err != nil {
		return f.err
	}
	return json.Unmarshal([]byte(f.output), out)
}

func TestCompletionRequest_SystemAndPrompt(t *testing.T) {
	req := CompletionRequest{Messages: []Message{
		{Role: RoleSystem, Content: "be terse"},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleSystem, Content: "json only"},
		{Role: RoleAssistant, Content: "ignored"},
	}}

	assert.Equal(t, "be terse\n\njson only", req.System())
	assert.Equal(t, "hello", req.Prompt())
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"model": "gpt-4o",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "{\"ok\":true}"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", "openai/gpt-4o", srv.URL, srv.Client())
	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
		JSONMode: true,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "gpt-4o", got["model"], "vendor prefix is stripped")
	format, ok := got["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_object", format["type"])
}

func TestOpenAIProvider_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", "gpt-4o", srv.URL, nil)
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestFalProvider_Complete(t *testing.T) {
	sub := &fakeSubscriber{output: `{"output":"generated"}`}
	p := NewFalProvider(sub, "")

	resp, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{
		{Role: RoleSystem, Content: "system"},
		{Role: RoleUser, Content: "prompt"},
	}})
	require.NoError(t, err)

	assert.Equal(t, "generated", resp.Content)
	assert.Equal(t, FalTextApp, sub.app)
	in, ok := sub.input.(falTextInput)
	require.True(t, ok)
	assert.Equal(t, "openai/gpt-4o", in.Model)
	assert.Equal(t, "prompt", in.Prompt)
	assert.Equal(t, "system", in.SystemPrompt)
}

func TestFalProvider_Errors(t *testing.T) {
	_, err := NewFalProvider(&fakeSubscriber{output: `{"output":""}`}, "m").Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, ErrNoOutput)

	_, err = NewFalProvider(&fakeSubscriber{output: `{"error":"model overloaded"}`}, "m").Complete(context.Background(), CompletionRequest{})
	assert.ErrorContains(t, err, "model overloaded")

	boom := errors.New("queue down")
	_, err = NewFalProvider(&fakeSubscriber{err: boom}, "m").Complete(context.Background(), CompletionRequest{})
	assert.ErrorIs(t, err, boom)
}

func TestRateLimitedProvider_HonorsContext(t *testing.T) {
	mock := &MockProvider{Response: &CompletionResponse{Content: "ok"}}
	p := NewRateLimitedProvider(mock, 1)

	_, err := p.Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Complete(ctx, CompletionRequest{})
	assert.Error(t, err, "second call must wait for the bucket and give up with the context")
	assert.Equal(t, 1, mock.CallCount())
	assert.Equal(t, "mock", p.Name())
}

func TestNewRateLimitedProvider_ZeroRPM(t *testing.T) {
	mock := &MockProvider{}
	assert.Same(t, mock, NewRateLimitedProvider(mock, 0))
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Options{Provider: "fal", Queue: &fakeSubscriber{}, RPM: 30})
	require.NoError(t, err)
	assert.Equal(t, "fal", p.Name())

	p, err = NewProvider(Options{Provider: "openai", OpenAIAPIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider(Options{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewProvider(Options{Provider: "fal"})
	assert.Error(t, err)

	_, err = NewProvider(Options{Provider: "none"})
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewProvider(Options{Provider: "anthropic"})
	assert.ErrorContains(t, err, "unsupported provider type")
}
