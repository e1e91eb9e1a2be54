// Package provider implements the supported model backends behind the
// ports.Provider capability: openai-chatgpt and anthropic-claude.
package provider

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/parley-dev/parley/internal/config"
	"github.com/parley-dev/parley/pkg/domain"
	"github.com/parley-dev/parley/pkg/ports"
)

// Options are the provider-specific settings decoded from a model's
// configuration options map.
type Options struct {
	// BaseURL overrides the vendor endpoint (used by tests and proxies).
	BaseURL string `mapstructure:"base_url"`

	// MaxTokens caps the response length where the vendor API requires it.
	MaxTokens int `mapstructure:"max_tokens"`

	// TimeoutSeconds bounds one HTTP round trip.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

const defaultTimeout = 120 * time.Second

func (o Options) timeout() time.Duration {
	if o.TimeoutSeconds > 0 {
		return time.Duration(o.TimeoutSeconds) * time.Second
	}
	return defaultTimeout
}

// DecodeOptions maps a raw options map onto Options.
func DecodeOptions(raw map[string]any) (Options, error) {
	var opts Options
	if raw == nil {
		return opts, nil
	}
	if err := mapstructure.Decode(raw, &opts); err != nil {
		return opts, fmt.Errorf("decode provider options: %w", err)
	}
	return opts, nil
}

// New returns the backend implementation for one participant.
//
// Supported providers:
//   - "openai-chatgpt"
//   - "anthropic-claude"
func New(p domain.Participant, raw map[string]any) (ports.Provider, error) {
	opts, err := DecodeOptions(raw)
	if err != nil {
		return nil, &domain.ConfigError{Field: "models", Reason: fmt.Sprintf("model %q: %v", p.Name, err)}
	}

	switch p.Provider {
	case "openai-chatgpt":
		return NewOpenAI(p.Credential, p.Model, opts), nil
	case "anthropic-claude":
		return NewAnthropic(p.Credential, p.Model, opts), nil
	default:
		return nil, &domain.ConfigError{
			Field:  "models",
			Reason: fmt.Sprintf("model %q: unsupported model provider %q", p.Name, p.Provider),
		}
	}
}

// ForConfig builds one provider per configured model, index-aligned with the
// session's participant list.
func ForConfig(cfg *config.Config) ([]ports.Provider, error) {
	providers := make([]ports.Provider, len(cfg.Models))
	for i, m := range cfg.Models {
		p, err := New(domain.Participant{
			Index:      i,
			Name:       m.Name,
			Provider:   m.Provider,
			Model:      m.Version,
			Credential: m.APIKey,
		}, m.Options)
		if err != nil {
			return nil, err
		}
		providers[i] = p
	}
	return providers, nil
}

// classifyHTTPError maps a transport-level failure to a ProviderError kind.
func classifyHTTPError(provider string, err error) *domain.ProviderError {
	kind := domain.ProviderErrUnknown
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		kind = domain.ProviderErrTimeout
	}
	return &domain.ProviderError{Provider: provider, Kind: kind, Err: err}
}

// classifyStatus maps a non-2xx vendor response to a ProviderError kind.
func classifyStatus(provider string, status int, body string) *domain.ProviderError {
	kind := domain.ProviderErrUnknown
	switch {
	case status == http.StatusTooManyRequests:
		kind = domain.ProviderErrRateLimit
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = domain.ProviderErrAuth
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = domain.ProviderErrTimeout
	}
	return &domain.ProviderError{
		Provider: provider,
		Kind:     kind,
		Err:      fmt.Errorf("unexpected status %d: %s", status, body),
	}
}
