package ratelimit

import (
	"sync"
	"time"

	"github.com/garyellow/tucurso-bot/internal/metrics"
)

// Limiter names used for metrics labels.
const (
	NameUser = "user"
	NameLLM  = "llm"
)

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	// Name labels drops in metrics ("user", "llm").
	Name string

	Burst      float64 // bucket capacity
	RefillRate float64 // tokens per second

	// DailyLimit adds a rolling 24h cap when positive.
	DailyLimit int

	// CleanupPeriod controls how often idle keys are evicted. Zero disables
	// the background loop.
	CleanupPeriod time.Duration

	Metrics *metrics.Metrics
}

// KeyedLimiter holds one bucket (and optional daily counter) per key, e.g.
// per sender id. Idle keys are evicted by a background loop until Stop.
type KeyedLimiter struct {
	cfg KeyedConfig
	now clock

	mu      sync.RWMutex
	entries map[string]*keyedEntry

	stopCh   chan struct{}
	stopOnce sync.Once
}

// keyedEntry serializes the two-layer check so a request is never counted
// against the daily cap unless the bucket also admits it.
type keyedEntry struct {
	mu     sync.Mutex
	bucket *Limiter
	daily  *SlidingWindowCounter
}

// NewKeyedLimiter starts the cleanup loop when cfg.CleanupPeriod > 0.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	return newKeyedLimiter(cfg, time.Now)
}

func newKeyedLimiter(cfg KeyedConfig, now clock) *KeyedLimiter {
	kl := &KeyedLimiter{
		cfg:     cfg,
		now:     now,
		entries: make(map[string]*keyedEntry),
		stopCh:  make(chan struct{}),
	}
	if cfg.CleanupPeriod > 0 {
		go kl.cleanupLoop()
	}
	return kl
}

// Name returns the configured limiter name.
func (kl *KeyedLimiter) Name() string { return kl.cfg.Name }

// Allow admits one request for key. An empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	e := kl.entry(key)

	e.mu.Lock()
	ok := e.daily.wouldAllow() && e.bucket.Allow()
	if ok {
		e.daily.Allow()
	}
	e.mu.Unlock()

	if !ok && kl.cfg.Metrics != nil {
		kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
	}
	return ok
}

// RetryAfter estimates how long key must wait for its bucket to admit a
// request. The daily cap is not considered.
func (kl *KeyedLimiter) RetryAfter(key string) time.Duration {
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return 0
	}
	return e.bucket.RetryAfter()
}

// Available returns the tokens left for key (Burst for unseen keys).
func (kl *KeyedLimiter) Available(key string) float64 {
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.cfg.Burst
	}
	return e.bucket.Available()
}

// DailyRemaining returns the daily quota left for key, or -1 when the daily
// cap is disabled.
func (kl *KeyedLimiter) DailyRemaining(key string) int {
	if kl.cfg.DailyLimit <= 0 {
		return -1
	}
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if !ok {
		return kl.cfg.DailyLimit
	}
	return e.daily.Remaining()
}

// ActiveCount returns the number of tracked keys.
func (kl *KeyedLimiter) ActiveCount() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.entries)
}

func (kl *KeyedLimiter) entry(key string) *keyedEntry {
	kl.mu.RLock()
	e, ok := kl.entries[key]
	kl.mu.RUnlock()
	if ok {
		return e
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if e, ok = kl.entries[key]; ok {
		return e
	}
	e = &keyedEntry{
		bucket: newLimiter(kl.cfg.Burst, kl.cfg.RefillRate, kl.now),
		daily:  newSlidingWindowCounter(kl.cfg.DailyLimit, 24*time.Hour, kl.now),
	}
	kl.entries[key] = e
	return e
}

// Sweep evicts keys whose bucket is full and whose daily counter is idle,
// returning the number removed. Keys with daily usage are kept so that
// eviction never resets a cap.
func (kl *KeyedLimiter) Sweep() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	removed := 0
	for key, e := range kl.entries {
		if e.bucket.IsFull() && e.daily.Idle() {
			delete(kl.entries, key)
			removed++
		}
	}
	return removed
}

func (kl *KeyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.Sweep()
		}
	}
}

// Stop ends the cleanup loop. Safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() { close(kl.stopCh) })
}
