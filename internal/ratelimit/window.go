package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindowCounter approximates a rolling window with two fixed windows:
// the previous window's count is weighted by how much of it still overlaps
// the rolling window ending now. Memory is constant per key.
type SlidingWindowCounter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	start  time.Time
	curr   int
	prev   int
	now    clock
}

// NewSlidingWindowCounter returns nil when limit <= 0; a nil counter admits
// everything.
func NewSlidingWindowCounter(limit int, window time.Duration) *SlidingWindowCounter {
	return newSlidingWindowCounter(limit, window, time.Now)
}

func newSlidingWindowCounter(limit int, window time.Duration, now clock) *SlidingWindowCounter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	return &SlidingWindowCounter{limit: limit, window: window, start: now(), now: now}
}

// rotate must be called with mu held.
func (c *SlidingWindowCounter) rotate() time.Time {
	t := c.now()
	elapsed := t.Sub(c.start)
	switch {
	case elapsed >= 2*c.window:
		c.prev, c.curr = 0, 0
		c.start = t
	case elapsed >= c.window:
		c.prev, c.curr = c.curr, 0
		c.start = c.start.Add(c.window)
	}
	return t
}

// estimate must be called with mu held, after rotate.
func (c *SlidingWindowCounter) estimate(t time.Time) float64 {
	into := t.Sub(c.start)
	weight := float64(c.window-into) / float64(c.window)
	if weight < 0 {
		weight = 0
	}
	return float64(c.curr) + float64(c.prev)*weight
}

// Allow records a request if the estimate is below the limit.
func (c *SlidingWindowCounter) Allow() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasRoom() {
		return false
	}
	c.curr++
	return true
}

// hasRoom must be called with mu held.
func (c *SlidingWindowCounter) hasRoom() bool {
	t := c.rotate()
	return c.estimate(t) < float64(c.limit)
}

// Remaining returns the whole requests still admissible, or -1 when disabled.
func (c *SlidingWindowCounter) Remaining() int {
	if c == nil {
		return -1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.rotate()
	left := c.limit - int(c.estimate(t)+0.999999)
	return max(left, 0)
}

// Idle reports whether nothing has been counted in the last two windows.
func (c *SlidingWindowCounter) Idle() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rotate()
	return c.curr == 0 && c.prev == 0
}

// wouldAllow reports whether Allow would succeed, without counting.
func (c *SlidingWindowCounter) wouldAllow() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasRoom()
}
