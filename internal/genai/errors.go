package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorAction defines the action to take based on error type.
type ErrorAction int

const (
	// ActionRetry retries the same provider/model after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the next model in the chain.
	ActionFallback
	// ActionFail stops the chain.
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// ErrInvalidResponse is returned when the model answers without a usable function call.
var ErrInvalidResponse = errors.New("genai: no usable function call in response")

// LLMError wraps an error with the provider and HTTP status.
type LLMError struct {
	Err        error
	StatusCode int
	Provider   Provider
	// RetryAfter is the pause the provider asked for, or 0.
	RetryAfter time.Duration
}

func (e *LLMError) Error() string {
	if e.StatusCode > 0 {
		return e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return e.Err.Error()
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// unknownFunctionError means the model called a function we never declared.
type unknownFunctionError struct {
	name string
}

func (e *unknownFunctionError) Error() string {
	return fmt.Sprintf("genai: unknown function %q", e.name)
}

// paramTypeError means an argument was not a string.
type paramTypeError struct {
	function string
	param    string
	value    any
}

func (e *paramTypeError) Error() string {
	return fmt.Sprintf("genai: parameter %q for function %q is not a string (got %T)", e.param, e.function, e.value)
}

// ClassifyError determines the action for err:
//   - transient errors (429, 5xx, timeouts, network) are retried
//   - malformed model output, quota exhaustion and model-level 4xx fall back
//     to the next model
//   - cancellation and auth failures stop the chain
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}
	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}

	var unknownFn *unknownFunctionError
	var badParam *paramTypeError
	if errors.As(err, &unknownFn) || errors.As(err, &badParam) || errors.Is(err, ErrInvalidResponse) {
		return ActionFallback
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	errStr := strings.ToLower(err.Error())

	// Quota is checked before rate limiting: both mention 429 on some providers.
	if containsAny(errStr, "quota", "daily limit", "monthly limit", "billing") {
		return ActionFallback
	}
	if containsAny(errStr, "rate limit", "too many requests", "resource_exhausted", "429") {
		return ActionRetry
	}
	if containsAny(errStr, "unavailable", "503", "502", "500", "504",
		"internal server error", "bad gateway", "gateway timeout", "overloaded", "capacity") {
		return ActionRetry
	}
	if containsAny(errStr, "408", "409", "timeout", "deadline", "connection") {
		return ActionRetry
	}
	if containsAny(errStr, "401", "unauthorized", "unauthenticated", "invalid api key",
		"403", "forbidden", "permission denied") {
		return ActionFail
	}
	if containsAny(errStr, "400", "invalid", "bad request", "malformed",
		"404", "not found", "422", "unprocessable") {
		return ActionFallback
	}

	return ActionRetry
}

// classifyStatusCode determines action based on HTTP status code.
func classifyStatusCode(statusCode int) ErrorAction {
	switch {
	case statusCode == http.StatusTooManyRequests,
		statusCode == http.StatusRequestTimeout,
		statusCode == http.StatusConflict,
		statusCode >= 500 && statusCode < 600:
		return ActionRetry
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return ActionFail
	case statusCode >= 400 && statusCode < 500:
		// 400/404/422 are usually model-specific (unknown model, unsupported tool schema).
		return ActionFallback
	default:
		return ActionRetry
	}
}

// ParseRetryAfter parses retry hints from response headers.
// Returns 0 when no usable hint is present.
func ParseRetryAfter(headers http.Header) time.Duration {
	if msStr := headers.Get("retry-after-ms"); msStr != "" {
		if ms, err := strconv.Atoi(msStr); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	if secStr := headers.Get("retry-after"); secStr != "" {
		if sec, err := strconv.Atoi(secStr); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
		if t, err := http.ParseTime(secStr); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}
	// Groq
	if resetStr := headers.Get("x-ratelimit-reset-tokens"); resetStr != "" {
		if d, err := time.ParseDuration(resetStr); err == nil {
			return d
		}
	}
	return 0
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// WrapError wraps err with provider and status code information.
func WrapError(err error, provider Provider, statusCode int) error {
	if err == nil {
		return nil
	}
	return &LLMError{Err: err, StatusCode: statusCode, Provider: provider}
}

// wrapWithHeaders is WrapError plus the Retry-After hint from headers.
func wrapWithHeaders(err error, provider Provider, statusCode int, headers http.Header) error {
	if err == nil {
		return nil
	}
	e := &LLMError{Err: err, StatusCode: statusCode, Provider: provider}
	if headers != nil {
		e.RetryAfter = ParseRetryAfter(headers)
	}
	return e
}

func retryAfterOf(err error) time.Duration {
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		return llmErr.RetryAfter
	}
	return 0
}

// errorStatus maps err to a metric status label.
func errorStatus(err error) string {
	if err == nil {
		return "success"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var llmErr *LLMError
	if errors.As(err, &llmErr) {
		switch {
		case llmErr.StatusCode == http.StatusTooManyRequests:
			return "rate_limit"
		case llmErr.StatusCode >= 500:
			return "server_error"
		case llmErr.StatusCode == http.StatusUnauthorized || llmErr.StatusCode == http.StatusForbidden:
			return "auth_error"
		}
	}
	switch ClassifyError(err) {
	case ActionFallback:
		return "invalid_response"
	case ActionRetry:
		return "transient_error"
	default:
		return "error"
	}
}
