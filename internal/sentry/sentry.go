// Package sentry initializes the Sentry SDK and offers small capture helpers
// that prefer the request-scoped hub installed by the gin middleware.
package sentry

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/garyellow/tucurso-bot/internal/ctxutil"
)

// Config holds Sentry configuration.
type Config struct {
	// DSN enables reporting when non-empty.
	DSN string

	Environment string
	Release     string

	// SampleRate controls error sampling (0 means 100%).
	SampleRate float64

	// TracesSampleRate enables performance tracing when positive.
	TracesSampleRate float64

	Debug bool
}

// Initialize sets up the Sentry SDK. An empty DSN leaves Sentry disabled.
func Initialize(cfg Config) error {
	if cfg.DSN == "" {
		return nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		BeforeSend:       dropCanceled,
	})
}

// dropCanceled filters out client disconnects, which are not actionable.
func dropCanceled(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint != nil && hint.OriginalException != nil && errors.Is(hint.OriginalException, context.Canceled) {
		return nil
	}
	return event
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureException reports err on the hub bound to ctx, tagging the sender
// and channel when present.
func CaptureException(ctx context.Context, err error) {
	if err == nil || !IsEnabled() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if sender := ctxutil.GetSenderID(ctx); sender != "" {
			scope.SetUser(sentry.User{ID: sender})
		}
		if channel := ctxutil.GetChannel(ctx); channel != "" {
			scope.SetTag("channel", channel)
		}
		if requestID, ok := ctxutil.GetRequestID(ctx); ok {
			scope.SetTag("request_id", requestID)
		}
		hub.CaptureException(err)
	})
}

// CaptureMessage captures a message and sends it to Sentry.
func CaptureMessage(message string) {
	sentry.CaptureMessage(message)
}
