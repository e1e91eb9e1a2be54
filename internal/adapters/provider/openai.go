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

const openAIDefaultBaseURL = "https://api.openai.com/v1"

// OpenAI implements ports.Provider against the chat completions API.
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewOpenAI creates an OpenAI-backed provider.
func NewOpenAI(apiKey, model string, opts Options) *OpenAI {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &OpenAI{
		apiKey:  apiKey,
		model:   model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: opts.timeout()},
	}
}

type openAIRequest struct {
	Model    string          `json:"model"`
	Messages []openAIMessage `json:"messages"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompt as a single user message and returns the first
// choice's content.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(openAIRequest{
		Model:    o.model,
		Messages: []openAIMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", classifyHTTPError("openai-chatgpt", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyHTTPError("openai-chatgpt", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus("openai-chatgpt", resp.StatusCode, string(body))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &domain.ProviderError{Provider: "openai-chatgpt", Kind: domain.ProviderErrUnknown, Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &domain.ProviderError{
			Provider: "openai-chatgpt",
			Kind:     domain.ProviderErrUnknown,
			Err:      fmt.Errorf("response contains no choices"),
		}
	}

	return parsed.Choices[0].Message.Content, nil
}
