package ports

import "context"

// Provider is the capability the controller depends on to query one model
// backend. Implementations live in adapter packages; failures are reported
// as *domain.ProviderError so the retry policy can classify them.
type Provider interface {
	// Generate produces the model's response text for the composed prompt.
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

func (f ProviderFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
