package genai

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// CalculateBackoff returns a full-jitter delay for retry number attempt
// (1-based): uniform in [0, min(max, initial<<(attempt-1))). Attempt 0 and
// below never wait.
func CalculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	if attempt <= 0 || initial <= 0 || max <= 0 {
		return 0
	}

	ceiling := max
	if shift := attempt - 1; shift < 62 {
		if d := initial << shift; d > 0 && d < max {
			ceiling = d
		}
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(ceiling)))
	if err != nil {
		return ceiling / 2
	}
	return time.Duration(n.Int64())
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WithRetry calls fn up to cfg.MaxAttempts times while it fails with a
// transient error. A Retry-After hint from the provider replaces the jittered
// backoff; a hint above cfg.MaxDelay, or a wait the context deadline cannot
// afford, ends the retries early so the caller can move to another provider.
// onRetry, when set, runs before each wait.
func WithRetry(ctx context.Context, cfg RetryConfig, onRetry func(attempt int, err error), fn func() error) error {
	attempts := max(cfg.MaxAttempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err = fn(); err == nil {
			return nil
		}
		if attempt == attempts || ClassifyError(err) != ActionRetry {
			return err
		}

		delay, ok := retryDelay(err, attempt, cfg)
		if !ok || !HasSufficientBudget(ctx, delay) {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		if serr := Sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}

// retryDelay picks the wait before the next attempt. ok is false when the
// provider asked for a longer pause than cfg allows.
func retryDelay(err error, attempt int, cfg RetryConfig) (time.Duration, bool) {
	if hint := retryAfterOf(err); hint > 0 {
		if cfg.MaxDelay > 0 && hint > cfg.MaxDelay {
			return 0, false
		}
		return hint, true
	}
	return CalculateBackoff(attempt, cfg.InitialDelay, cfg.MaxDelay), true
}

// HasSufficientBudget reports whether ctx can still wait for required.
func HasSufficientBudget(ctx context.Context, required time.Duration) bool {
	deadline, ok := ctx.Deadline()
	if !ok {
		return true
	}
	return time.Until(deadline) >= required
}
