// Package ratelimit provides the token bucket and sliding window limiters
// used to throttle relay traffic and remote NLU calls per sender.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// clock is swapped in tests.
type clock func() time.Time

// Limiter is a token bucket. Tokens accrue continuously at refillRate per
// second up to capacity; each admitted request spends one.
// It is safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64
	last       time.Time
	now        clock
}

// New returns a full bucket holding up to capacity tokens and refilling at
// refillRate tokens per second.
func New(capacity, refillRate float64) *Limiter {
	return newLimiter(capacity, refillRate, time.Now)
}

// NewPerHour returns a bucket refilling perHour tokens every hour.
func NewPerHour(capacity, perHour float64) *Limiter {
	return New(capacity, perHour/3600)
}

func newLimiter(capacity, refillRate float64, now clock) *Limiter {
	return &Limiter{
		tokens:     capacity,
		capacity:   capacity,
		refillRate: refillRate,
		last:       now(),
		now:        now,
	}
}

// advance must be called with mu held.
func (l *Limiter) advance() {
	t := l.now()
	if elapsed := t.Sub(l.last).Seconds(); elapsed > 0 {
		l.tokens = math.Min(l.capacity, l.tokens+elapsed*l.refillRate)
	}
	l.last = t
}

// Allow spends a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance()
	return l.take()
}

// take must be called with mu held and after advance.
func (l *Limiter) take() bool {
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// delay is the time until one token is available; mu held.
func (l *Limiter) delay() time.Duration {
	if l.tokens >= 1 {
		return 0
	}
	if l.refillRate <= 0 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration((1 - l.tokens) / l.refillRate * float64(time.Second))
}

// Wait blocks until a token is spent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		l.mu.Lock()
		l.advance()
		if l.take() {
			l.mu.Unlock()
			return nil
		}
		d := l.delay()
		l.mu.Unlock()

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Available returns the current token count.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance()
	return l.tokens
}

// RetryAfter returns how long until a request would be admitted.
func (l *Limiter) RetryAfter() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance()
	return l.delay()
}

// IsFull reports whether the bucket has fully recovered, which means its
// owner has been idle for at least capacity/refillRate seconds.
func (l *Limiter) IsFull() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.advance()
	return l.tokens >= l.capacity
}

// Reset refills the bucket.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = l.capacity
	l.last = l.now()
}
