// Timeouts and background intervals, kept together so the HTTP server,
// the LINE adapter and the background jobs agree on their budgets.
//
// A relay request runs one engine turn: sanitize, tracker load, local NLU,
// an optional remote LLM call and a tracker save. The remote call dominates,
// so RequestProcessing leaves room for LLMRequest plus one retry.
package config

import "time"

// HTTP server timeouts
const (
	// RequestProcessing bounds a single engine turn.
	RequestProcessing = 30 * time.Second

	// HTTPRead is short since clients send small JSON payloads.
	HTTPRead = 10 * time.Second

	// HTTPWrite must exceed RequestProcessing.
	HTTPWrite = 35 * time.Second

	HTTPIdle = 120 * time.Second

	// ReadinessCheck bounds the store ping behind /readyz.
	ReadinessCheck = 3 * time.Second
)

// LINE channel timeouts
const (
	// LINEEventProcessing bounds one LINE webhook batch processed after the
	// 200 acknowledgement. Reply tokens stay valid well beyond this.
	LINEEventProcessing = 60 * time.Second

	// LINEDrain is how long shutdown waits for in-flight LINE batches.
	LINEDrain = 15 * time.Second
)

// Remote NLU timeouts
const (
	// LLMRequest is the timeout for one provider call including retries.
	LLMRequest = 12 * time.Second

	// LLMRetryInitial is the first backoff step for retryable provider errors.
	LLMRetryInitial = 500 * time.Millisecond

	// LLMRetryMax caps a single backoff step.
	LLMRetryMax = 4 * time.Second

	// BreakerOpen is how long the circuit stays open before a probe.
	BreakerOpen = 60 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 5 * time.Second

	// DatabaseConnMaxLifetime is the maximum lifetime of database connections.
	DatabaseConnMaxLifetime = time.Hour

	// RedisDial bounds the initial connection to Redis.
	RedisDial = 5 * time.Second
)

// Model bundle timeouts
const (
	// ModelLoad bounds a single bundle fetch and agent build.
	ModelLoad = 60 * time.Second

	// ModelPollDefault is how often the R2 bundle ETag is checked.
	ModelPollDefault = 5 * time.Minute

	// ModelLockTTL is the default lease for the bundle publish lock.
	ModelLockTTL = 10 * time.Minute
)

// Background job intervals
const (
	// TrackerCleanupInterval is how often idle trackers are deleted.
	TrackerCleanupInterval = 30 * time.Minute

	// TrackerCleanupInitialDelay lets the server settle before the first sweep.
	TrackerCleanupInitialDelay = 2 * time.Minute

	// TrackerTTLDefault is how long an idle conversation is remembered.
	TrackerTTLDefault = 24 * time.Hour

	// MetricsUpdateInterval is how often gauge-style metrics are refreshed.
	MetricsUpdateInterval = time.Minute

	// RateLimiterCleanupInterval is how often inactive per-sender limiters are removed.
	RateLimiterCleanupInterval = 5 * time.Minute
)

// GracefulShutdown is the total budget for ordered shutdown.
const GracefulShutdown = 30 * time.Second
