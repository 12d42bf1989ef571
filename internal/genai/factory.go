package genai

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/garyellow/tucurso-bot/internal/metrics"
)

// CreateIntentParser chains every model of every configured provider,
// providers in cfg.Providers order. A model whose client cannot be created
// is logged and skipped. Returns nil, nil when nothing is configured.
func CreateIntentParser(ctx context.Context, cfg LLMConfig, m *metrics.Metrics) (*FallbackParser, error) {
	var chain []IntentParser

	for _, provider := range cfg.ConfiguredProviders() {
		key := cfg.Accounts[provider].APIKey
		for _, model := range cfg.modelsFor(provider) {
			p, err := newIntentParser(ctx, provider, key, model)
			if err != nil {
				slog.WarnContext(ctx, "skipping intent model",
					"provider", provider,
					"model", model,
					"error", err)
				continue
			}
			chain = append(chain, p)
		}
	}

	if len(chain) == 0 {
		slog.InfoContext(ctx, "no LLM provider configured for intent parsing")
		return nil, nil //nolint:nilnil // LLM disabled
	}

	slog.InfoContext(ctx, "intent parser configured",
		"primary", chain[0].Provider(),
		"chain_size", len(chain))
	return NewFallbackParser(cfg.Retry, m, chain...), nil
}

// newIntentParser never returns a nil parser without an error, so a typed
// nil pointer cannot end up in the chain.
func newIntentParser(ctx context.Context, provider Provider, apiKey, model string) (IntentParser, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: missing API key", provider)
	}
	if provider == ProviderGemini {
		return newGeminiIntentParser(ctx, apiKey, model)
	}
	return newOpenAIIntentParser(ctx, provider, apiKey, model, "")
}

// DefaultLLMConfig returns the default chain without API keys.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Providers: slices.Clone(DefaultProviders),
		Retry:     DefaultRetryConfig(),
	}
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}
