package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Server
	EnvPort            = "TUCURSO_PORT"
	EnvPlatformPort    = "PORT"
	EnvLogLevel        = "TUCURSO_LOG_LEVEL"
	EnvShutdownTimeout = "TUCURSO_SHUTDOWN_TIMEOUT"
	EnvServerName      = "TUCURSO_SERVER_NAME"
	EnvMaxMessageLen   = "TUCURSO_MAX_MESSAGE_LENGTH"

	// Data
	EnvDataDir     = "TUCURSO_DATA_DIR"
	EnvCatalogPath = "TUCURSO_CATALOG_PATH"

	// Model bundle
	EnvModelSource       = "TUCURSO_MODEL_SOURCE"
	EnvModelPath         = "TUCURSO_MODEL_PATH"
	EnvModelR2Key        = "TUCURSO_MODEL_R2_KEY"
	EnvModelPollInterval = "TUCURSO_MODEL_POLL_INTERVAL"
	EnvModelSeed         = "TUCURSO_MODEL_SEED"

	// Conversation tracker
	EnvTrackerStore = "TUCURSO_TRACKER_STORE"
	EnvTrackerTTL   = "TUCURSO_TRACKER_TTL"
	EnvRedisURL     = "TUCURSO_REDIS_URL"

	// Rate Limits
	EnvUserRateBurst  = "TUCURSO_USER_RATE_BURST"
	EnvUserRateRefill = "TUCURSO_USER_RATE_REFILL"
	EnvLLMRateBurst   = "TUCURSO_LLM_RATE_BURST"
	EnvLLMRateRefill  = "TUCURSO_LLM_RATE_REFILL"
	EnvLLMRateDaily   = "TUCURSO_LLM_RATE_DAILY"

	// LINE channel
	EnvLineChannelAccessToken = "TUCURSO_LINE_CHANNEL_ACCESS_TOKEN"
	EnvLineChannelSecret      = "TUCURSO_LINE_CHANNEL_SECRET"

	// LLM Feature
	EnvLLMEnabled           = "TUCURSO_LLM_ENABLED"
	EnvLLMProviders         = "TUCURSO_LLM_PROVIDERS"
	EnvGeminiAPIKey         = "TUCURSO_GEMINI_API_KEY"
	EnvGroqAPIKey           = "TUCURSO_GROQ_API_KEY"
	EnvCerebrasAPIKey       = "TUCURSO_CEREBRAS_API_KEY"
	EnvGeminiIntentModels   = "TUCURSO_GEMINI_INTENT_MODELS"
	EnvGroqIntentModels     = "TUCURSO_GROQ_INTENT_MODELS"
	EnvCerebrasIntentModels = "TUCURSO_CEREBRAS_INTENT_MODELS"
	EnvBreakerMaxFailures   = "TUCURSO_LLM_BREAKER_MAX_FAILURES"
	EnvBreakerOpenTimeout   = "TUCURSO_LLM_BREAKER_OPEN_TIMEOUT"

	// R2 Feature
	EnvR2Enabled         = "TUCURSO_R2_ENABLED"
	EnvR2AccountID       = "TUCURSO_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "TUCURSO_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "TUCURSO_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "TUCURSO_R2_BUCKET_NAME"
	EnvR2Endpoint        = "TUCURSO_R2_ENDPOINT"
	EnvR2LockKey         = "TUCURSO_R2_LOCK_KEY"
	EnvR2LockTTL         = "TUCURSO_R2_LOCK_TTL"

	// Sentry Feature
	EnvSentryEnabled          = "TUCURSO_SENTRY_ENABLED"
	EnvSentryDSN              = "TUCURSO_SENTRY_DSN"
	EnvSentryEnvironment      = "TUCURSO_SENTRY_ENVIRONMENT"
	EnvSentryRelease          = "TUCURSO_SENTRY_RELEASE"
	EnvSentrySampleRate       = "TUCURSO_SENTRY_SAMPLE_RATE"
	EnvSentryTracesSampleRate = "TUCURSO_SENTRY_TRACES_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackToken    = "TUCURSO_BETTERSTACK_TOKEN"
	EnvBetterStackEndpoint = "TUCURSO_BETTERSTACK_ENDPOINT"

	// Metrics Auth Feature
	EnvMetricsAuthEnabled = "TUCURSO_METRICS_AUTH_ENABLED"
	EnvMetricsUsername    = "TUCURSO_METRICS_USERNAME"
	EnvMetricsPassword    = "TUCURSO_METRICS_PASSWORD"
)
