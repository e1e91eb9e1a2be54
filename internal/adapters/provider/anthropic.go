package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/parley-dev/parley/pkg/domain"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 1024
)

// Anthropic implements ports.Provider against the messages API.
type Anthropic struct {
	apiKey    string
	model     string
	baseURL   string
	maxTokens int
	client    *http.Client
}

// NewAnthropic creates an Anthropic-backed provider.
func NewAnthropic(apiKey, model string, opts Options) *Anthropic {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = anthropicMaxTokens
	}
	return &Anthropic{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: opts.timeout()},
	}
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Generate sends the prompt to the messages endpoint and returns the first
// text block of the response.
func (a *Anthropic) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(anthropicRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", classifyHTTPError("anthropic-claude", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyHTTPError("anthropic-claude", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus("anthropic-claude", resp.StatusCode, string(body))
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &domain.ProviderError{Provider: "anthropic-claude", Kind: domain.ProviderErrUnknown, Err: err}
	}
	for _, block := range parsed.Content {
		if block.Type == "" || block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", &domain.ProviderError{
		Provider: "anthropic-claude",
		Kind:     domain.ProviderErrUnknown,
		Err:      fmt.Errorf("response contains no text content"),
	}
}
