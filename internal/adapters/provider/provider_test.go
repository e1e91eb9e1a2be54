package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/parley-dev/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAI_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openAIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o", req.Model)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "the answer"}},
			},
		})
	}))
	defer srv.Close()

	p := NewOpenAI("test-key", "gpt-4o", Options{BaseURL: srv.URL})
	got, err := p.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "the answer", got)
}

func TestOpenAI_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   domain.ProviderErrorKind
	}{
		{http.StatusTooManyRequests, domain.ProviderErrRateLimit},
		{http.StatusUnauthorized, domain.ProviderErrAuth},
		{http.StatusForbidden, domain.ProviderErrAuth},
		{http.StatusGatewayTimeout, domain.ProviderErrTimeout},
		{http.StatusInternalServerError, domain.ProviderErrUnknown},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewOpenAI("k", "m", Options{BaseURL: srv.URL})
			_, err := p.Generate(context.Background(), "prompt")

			var perr *domain.ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.kind, perr.Kind)
			assert.Equal(t, tt.kind != domain.ProviderErrAuth, perr.Transient())
		})
	}
}

func TestAnthropic_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, anthropicMaxTokens, req.MaxTokens)

		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "claude says"}},
		})
	}))
	defer srv.Close()

	p := NewAnthropic("test-key", "claude-3-opus", Options{BaseURL: srv.URL})
	got, err := p.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "claude says", got)
}

func TestAnthropic_MaxTokensOverride(t *testing.T) {
	var gotMaxTokens int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req anthropicRequest
		json.NewDecoder(r.Body).Decode(&req)
		gotMaxTokens = req.MaxTokens
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": "ok"}},
		})
	}))
	defer srv.Close()

	p := NewAnthropic("k", "m", Options{BaseURL: srv.URL, MaxTokens: 4096})
	_, err := p.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, 4096, gotMaxTokens)
}

func TestDecodeOptions(t *testing.T) {
	opts, err := DecodeOptions(map[string]any{
		"base_url":        "http://localhost:9999",
		"max_tokens":      2048,
		"timeout_seconds": 30,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", opts.BaseURL)
	assert.Equal(t, 2048, opts.MaxTokens)
	assert.Equal(t, 30, opts.TimeoutSeconds)

	opts, err = DecodeOptions(nil)
	require.NoError(t, err)
	assert.Empty(t, opts.BaseURL)
}

func TestNew_Factory(t *testing.T) {
	p, err := New(domain.Participant{Provider: "openai-chatgpt", Model: "m", Credential: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &OpenAI{}, p)

	p, err = New(domain.Participant{Provider: "anthropic-claude", Model: "m", Credential: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, p)

	_, err = New(domain.Participant{Name: "x", Provider: "mystery-llm"}, nil)
	var cerr *domain.ConfigError
	assert.ErrorAs(t, err, &cerr)
}
