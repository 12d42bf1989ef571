// Package genai provides LLM-backed intent parsing for messages the local
// classifier is unsure about.
//
// Gemini is reached through google.golang.org/genai; Groq and Cerebras
// through their OpenAI-compatible endpoints with openai-go. A FallbackParser
// chains every model of every configured provider: each model is retried
// with full-jitter backoff, then the chain moves to the next model and
// finally the next provider.
package genai

import (
	"context"
	"slices"
	"strings"
	"time"
)

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderGemini   Provider = "gemini"
	ProviderGroq     Provider = "groq"
	ProviderCerebras Provider = "cerebras"
)

// providerInfo is the static description of a supported provider.
type providerInfo struct {
	// baseURL of the OpenAI-compatible API. Empty for Gemini's native API.
	baseURL string
	// models is the default chain, primary first.
	models []string
}

var providers = map[Provider]providerInfo{
	ProviderGemini: {
		models: []string{"gemini-2.5-flash-lite", "gemini-2.5-flash"},
	},
	ProviderGroq: {
		baseURL: "https://api.groq.com/openai/v1/",
		models:  []string{"llama-3.3-70b-versatile", "llama-3.1-8b-instant"},
	},
	ProviderCerebras: {
		baseURL: "https://api.cerebras.ai/v1/",
		models:  []string{"llama-3.3-70b", "llama3.1-8b"},
	},
}

// DefaultProviders is the chain order used when none is configured.
var DefaultProviders = []Provider{ProviderGemini, ProviderGroq, ProviderCerebras}

// ParseProvider maps a configuration name such as "Groq" to a Provider.
func ParseProvider(name string) (Provider, bool) {
	p := Provider(strings.ToLower(strings.TrimSpace(name)))
	_, ok := providers[p]
	return p, ok
}

func (p Provider) String() string { return string(p) }

// DefaultModels returns a copy of the provider's default model chain.
func (p Provider) DefaultModels() []string {
	return slices.Clone(providers[p].models)
}

func (p Provider) openAIBaseURL() string {
	return providers[p].baseURL
}

// IntentParser maps a message to one of the intent functions.
// Implementations force function calling (ANY / required), so a successful
// Parse always names a function.
type IntentParser interface {
	Parse(ctx context.Context, text string) (*ParseResult, error)
	IsEnabled() bool
	Close() error
	// Provider labels metrics and logs.
	Provider() Provider
}

// ParseResult is the function call chosen by the model.
type ParseResult struct {
	// Intent is the dialogue intent bound to the function.
	Intent string
	// Params holds the string arguments that were present.
	Params map[string]string
	// FunctionName is the raw name returned by the model.
	FunctionName string
	Model        string
}

// Param returns the named argument or "".
func (r *ParseResult) Param(key string) string {
	if r == nil {
		return ""
	}
	return r.Params[key]
}

// RetryConfig bounds the retries of one model.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	MaxAttempts  int
	InitialDelay time.Duration
	// MaxDelay caps both the jittered backoff and accepted Retry-After hints.
	MaxDelay time.Duration
}

const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// Account holds the credentials and model chain of one provider.
type Account struct {
	APIKey string
	// Models overrides the provider's default chain when non-empty.
	Models []string
}

// LLMConfig describes the whole parser chain.
type LLMConfig struct {
	// Providers is the chain order. Providers without an API key are skipped.
	Providers []Provider
	Accounts  map[Provider]Account
	Retry     RetryConfig
	// RequestTimeout bounds one full Parse, retries and fallbacks included.
	RequestTimeout time.Duration
}

// SetAccount stores the credentials and model override for p.
func (c *LLMConfig) SetAccount(p Provider, apiKey string, models []string) {
	if c.Accounts == nil {
		c.Accounts = make(map[Provider]Account, len(providers))
	}
	c.Accounts[p] = Account{APIKey: apiKey, Models: models}
}

// ConfiguredProviders returns the providers with an API key, in chain order.
func (c *LLMConfig) ConfiguredProviders() []Provider {
	out := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if c.Accounts[p].APIKey != "" {
			out = append(out, p)
		}
	}
	return out
}

// modelsFor returns the models to chain for p.
func (c *LLMConfig) modelsFor(p Provider) []string {
	if m := c.Accounts[p].Models; len(m) > 0 {
		return m
	}
	return p.DefaultModels()
}
