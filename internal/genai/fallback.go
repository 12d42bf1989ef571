// This file contains the chained parser with retry and cross-model fallback.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/garyellow/tucurso-bot/internal/metrics"
)

// FallbackParser tries each parser in order. Every parser gets up to
// RetryConfig.MaxAttempts attempts for transient errors before the chain
// moves on. Cancellation and auth failures stop the chain.
type FallbackParser struct {
	parsers     []IntentParser
	retryConfig RetryConfig
	metrics     *metrics.Metrics
}

// NewFallbackParser chains parsers. Nil entries are dropped.
func NewFallbackParser(cfg RetryConfig, m *metrics.Metrics, parsers ...IntentParser) *FallbackParser {
	chain := make([]IntentParser, 0, len(parsers))
	for _, p := range parsers {
		if p != nil && p.IsEnabled() {
			chain = append(chain, p)
		}
	}
	return &FallbackParser{parsers: chain, retryConfig: cfg, metrics: m}
}

// Len returns the chain length.
func (f *FallbackParser) Len() int {
	if f == nil {
		return 0
	}
	return len(f.parsers)
}

// Parse returns the first successful result along the chain.
func (f *FallbackParser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	if f == nil || len(f.parsers) == 0 {
		return nil, errors.New("intent parser not configured")
	}

	var lastErr error
	for i, parser := range f.parsers {
		provider := parser.Provider()
		start := time.Now()

		var result *ParseResult
		err := WithRetry(ctx, f.retryConfig,
			func(attempt int, err error) {
				slog.DebugContext(ctx, "retrying intent parse",
					"provider", provider,
					"attempt", attempt,
					"error", err)
			},
			func() error {
				var perr error
				result, perr = parser.Parse(ctx, text)
				return perr
			})
		f.recordRequest(provider, err, time.Since(start))
		if err == nil {
			if i > 0 {
				f.recordFallback(f.parsers[0].Provider(), provider, lastErr)
			}
			return result, nil
		}
		lastErr = err

		action := ClassifyError(err)
		if action == ActionFail {
			slog.WarnContext(ctx, "intent parser chain stopped",
				"provider", provider,
				"error", err)
			return nil, err
		}
		if i < len(f.parsers)-1 {
			slog.InfoContext(ctx, "falling back to next intent parser",
				"from", provider,
				"to", f.parsers[i+1].Provider(),
				"action", action,
				"error", err)
		}
	}

	return nil, fmt.Errorf("all intent parsers failed: %w", lastErr)
}

func (f *FallbackParser) recordRequest(provider Provider, err error, d time.Duration) {
	if f.metrics != nil {
		f.metrics.RecordLLMRequest(string(provider), errorStatus(err), d.Seconds())
	}
}

func (f *FallbackParser) recordFallback(from, to Provider, cause error) {
	if f.metrics != nil {
		f.metrics.RecordLLMFallback(string(from), string(to), errorStatus(cause))
	}
}

// IsEnabled returns true if at least one parser is chained.
func (f *FallbackParser) IsEnabled() bool {
	return f.Len() > 0
}

// Provider returns the primary provider.
func (f *FallbackParser) Provider() Provider {
	if f.Len() == 0 {
		return ""
	}
	return f.parsers[0].Provider()
}

// Close closes every parser.
func (f *FallbackParser) Close() error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, p := range f.parsers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
