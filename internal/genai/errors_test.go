package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected ErrorAction
	}{
		{"nil error", nil, ActionFail},
		{"context canceled", context.Canceled, ActionFail},
		{"context deadline exceeded", context.DeadlineExceeded, ActionRetry},
		{"wrapped deadline", fmt.Errorf("parse: %w", context.DeadlineExceeded), ActionRetry},

		{"status 429", WrapError(errors.New("rate limited"), ProviderGroq, http.StatusTooManyRequests), ActionRetry},
		{"status 500", WrapError(errors.New("boom"), ProviderGroq, http.StatusInternalServerError), ActionRetry},
		{"status 401", WrapError(errors.New("no key"), ProviderGroq, http.StatusUnauthorized), ActionFail},
		{"status 403", WrapError(errors.New("denied"), ProviderGroq, http.StatusForbidden), ActionFail},
		{"status 404 model", WrapError(errors.New("model not found"), ProviderGroq, http.StatusNotFound), ActionFallback},
		{"status 400", WrapError(errors.New("bad tool schema"), ProviderGroq, http.StatusBadRequest), ActionFallback},

		{"unknown function", &unknownFunctionError{name: "reservar"}, ActionFallback},
		{"bad param", &paramTypeError{function: FuncGetPrice, param: ParamCourseName, value: 3}, ActionFallback},
		{"invalid response", fmt.Errorf("%w: no content", ErrInvalidResponse), ActionFallback},

		{"quota message", errors.New("Quota exceeded for this project"), ActionFallback},
		{"rate limit message", errors.New("RESOURCE_EXHAUSTED"), ActionRetry},
		{"overloaded message", errors.New("model is overloaded"), ActionRetry},
		{"connection message", errors.New("dial tcp: connection refused"), ActionRetry},
		{"auth message", errors.New("invalid api key provided"), ActionFail},
		{"bad request message", errors.New("malformed request"), ActionFallback},
		{"unknown message", errors.New("something odd"), ActionRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestErrorAction_String(t *testing.T) {
	t.Parallel()
	for action, want := range map[ErrorAction]string{
		ActionRetry:     "retry",
		ActionFallback:  "fallback",
		ActionFail:      "fail",
		ErrorAction(99): "unknown",
	} {
		if got := action.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", action, got, want)
		}
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()
	if WrapError(nil, ProviderGemini, 500) != nil {
		t.Error("WrapError(nil) should be nil")
	}

	base := errors.New("upstream")
	err := WrapError(base, ProviderGemini, http.StatusServiceUnavailable)
	var llmErr *LLMError
	if !errors.As(err, &llmErr) {
		t.Fatal("expected *LLMError")
	}
	if !errors.Is(err, base) {
		t.Error("LLMError should unwrap to the base error")
	}
	if ClassifyError(err) != ActionRetry || llmErr.Provider != ProviderGemini {
		t.Errorf("unexpected LLMError %+v", llmErr)
	}
	if got := err.Error(); got != "upstream (status: 503)" {
		t.Errorf("Error() = %q", got)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers http.Header
		want    time.Duration
	}{
		{"none", http.Header{}, 0},
		{"milliseconds", http.Header{"Retry-After-Ms": {"1500"}}, 1500 * time.Millisecond},
		{"seconds", http.Header{"Retry-After": {"3"}}, 3 * time.Second},
		{"groq reset", http.Header{"X-Ratelimit-Reset-Tokens": {"7.5s"}}, 7500 * time.Millisecond},
		{"garbage", http.Header{"Retry-After": {"soon"}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ParseRetryAfter(tt.headers); got != tt.want {
				t.Errorf("ParseRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want string
	}{
		{nil, "success"},
		{context.DeadlineExceeded, "timeout"},
		{context.Canceled, "canceled"},
		{WrapError(errors.New("x"), ProviderGroq, 429), "rate_limit"},
		{WrapError(errors.New("x"), ProviderGroq, 502), "server_error"},
		{WrapError(errors.New("x"), ProviderGroq, 401), "auth_error"},
		{ErrInvalidResponse, "invalid_response"},
		{errors.New("connection reset"), "transient_error"},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
