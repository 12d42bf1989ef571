package genai

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/garyellow/tucurso-bot/internal/metrics"
)

type mockIntentParser struct {
	provider Provider
	results  []*ParseResult
	errs     []error
	calls    atomic.Int32
	closeErr error
}

func (m *mockIntentParser) Parse(_ context.Context, _ string) (*ParseResult, error) {
	i := int(m.calls.Add(1)) - 1
	var err error
	if i < len(m.errs) {
		err = m.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(m.results) {
		return m.results[i], nil
	}
	if len(m.results) > 0 {
		return m.results[len(m.results)-1], nil
	}
	return &ParseResult{Intent: "saludar"}, nil
}

func (m *mockIntentParser) IsEnabled() bool    { return true }
func (m *mockIntentParser) Provider() Provider { return m.provider }
func (m *mockIntentParser) Close() error       { return m.closeErr }

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestFallbackParser_PrimarySucceeds(t *testing.T) {
	t.Parallel()
	primary := &mockIntentParser{provider: ProviderGemini, results: []*ParseResult{{Intent: "consultar_categorias"}}}
	secondary := &mockIntentParser{provider: ProviderGroq}

	f := NewFallbackParser(fastRetry(), nil, primary, secondary)
	res, err := f.Parse(context.Background(), "categorías")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Intent != "consultar_categorias" {
		t.Errorf("Intent = %s", res.Intent)
	}
	if secondary.calls.Load() != 0 {
		t.Error("secondary should not be called")
	}
}

func TestFallbackParser_RetriesTransient(t *testing.T) {
	t.Parallel()
	primary := &mockIntentParser{
		provider: ProviderGemini,
		errs:     []error{WrapError(errors.New("overloaded"), ProviderGemini, 503)},
		results:  []*ParseResult{nil, {Intent: "agradecer"}},
	}

	f := NewFallbackParser(fastRetry(), nil, primary)
	res, err := f.Parse(context.Background(), "gracias")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Intent != "agradecer" || primary.calls.Load() != 2 {
		t.Errorf("res=%+v calls=%d", res, primary.calls.Load())
	}
}

func TestFallbackParser_FallsBackAndRecords(t *testing.T) {
	t.Parallel()
	m := metrics.New(metrics.NewRegistry())
	primary := &mockIntentParser{
		provider: ProviderGemini,
		errs:     []error{ErrInvalidResponse},
	}
	secondary := &mockIntentParser{provider: ProviderGroq, results: []*ParseResult{{Intent: "despedir"}}}

	f := NewFallbackParser(fastRetry(), m, primary, secondary)
	res, err := f.Parse(context.Background(), "chau")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Intent != "despedir" {
		t.Errorf("Intent = %s", res.Intent)
	}
	if primary.calls.Load() != 1 {
		t.Errorf("invalid responses should not be retried, got %d calls", primary.calls.Load())
	}
	if got := testutil.ToFloat64(m.LLMFallbackTotal.WithLabelValues("gemini", "groq", "invalid_response")); got != 1 {
		t.Errorf("fallback counter = %v", got)
	}
	if got := testutil.ToFloat64(m.LLMRequestsTotal.WithLabelValues("groq", "success")); got != 1 {
		t.Errorf("groq success counter = %v", got)
	}
}

func TestFallbackParser_AuthStopsChain(t *testing.T) {
	t.Parallel()
	primary := &mockIntentParser{
		provider: ProviderGemini,
		errs:     []error{WrapError(errors.New("bad key"), ProviderGemini, 401)},
	}
	secondary := &mockIntentParser{provider: ProviderGroq}

	f := NewFallbackParser(fastRetry(), nil, primary, secondary)
	if _, err := f.Parse(context.Background(), "hola"); err == nil {
		t.Fatal("expected error")
	}
	if secondary.calls.Load() != 0 {
		t.Error("auth failure must stop the chain")
	}
}

func TestFallbackParser_AllFail(t *testing.T) {
	t.Parallel()
	fail := WrapError(errors.New("not found"), ProviderGroq, 404)
	a := &mockIntentParser{provider: ProviderGroq, errs: []error{fail}}
	b := &mockIntentParser{provider: ProviderCerebras, errs: []error{fail}}

	f := NewFallbackParser(fastRetry(), nil, a, b)
	_, err := f.Parse(context.Background(), "hola")
	if err == nil {
		t.Fatal("expected error")
	}
	var llmErr *LLMError
	if !errors.As(err, &llmErr) || llmErr.StatusCode != 404 {
		t.Errorf("last error should be wrapped, got %v", err)
	}
}

func TestFallbackParser_EmptyChain(t *testing.T) {
	t.Parallel()
	f := NewFallbackParser(fastRetry(), nil, nil)
	if f.IsEnabled() || f.Len() != 0 || f.Provider() != "" {
		t.Error("empty chain should be disabled")
	}
	if _, err := f.Parse(context.Background(), "hola"); err == nil {
		t.Error("expected error from empty chain")
	}

	var nilChain *FallbackParser
	if nilChain.Len() != 0 || nilChain.Close() != nil {
		t.Error("nil chain should be inert")
	}
}

func TestFallbackParser_CloseJoinsErrors(t *testing.T) {
	t.Parallel()
	errA := errors.New("a")
	f := NewFallbackParser(fastRetry(), nil,
		&mockIntentParser{provider: ProviderGemini, closeErr: errA},
		&mockIntentParser{provider: ProviderGroq})
	if err := f.Close(); !errors.Is(err, errA) {
		t.Errorf("Close() = %v", err)
	}
}
