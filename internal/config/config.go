// Package config provides application configuration management.
// It loads settings from environment variables (optionally seeded from a
// .env file) and applies defaults for the relay, the dialogue engine, the
// conversation store and the optional LINE, LLM, R2 and Sentry features.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Model bundle sources.
const (
	ModelSourceEmbedded = "embedded"
	ModelSourceFile     = "file"
	ModelSourceR2       = "r2"
)

// Tracker store backends.
const (
	TrackerStoreMemory = "memory"
	TrackerStoreSQLite = "sqlite"
	TrackerStoreRedis  = "redis"
)

// LLM providers.
const (
	ProviderGemini   = "gemini"
	ProviderGroq     = "groq"
	ProviderCerebras = "cerebras"
)

// DefaultPort matches the port the dialogue server historically listened on.
const DefaultPort = "5005"

// MaxMessageLength caps user text before it reaches the engine.
const MaxMessageLength = 2000

// Config holds all application configuration
type Config struct {
	// Server
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration
	ServerName      string
	MaxMessageLen   int

	// Data
	DataDir     string
	CatalogPath string // optional YAML/JSON catalog replacing the built-in one

	// Model bundle
	ModelSource       string
	ModelPath         string
	ModelR2Key        string
	ModelPollInterval time.Duration
	ModelSeed         int64 // 0 = time-seeded template choice

	// Conversation tracker
	TrackerStore string
	TrackerTTL   time.Duration
	RedisURL     string

	// Rate limits (token bucket)
	UserRateBurst  float64
	UserRateRefill float64 // tokens per second
	LLMRateBurst   float64
	LLMRateRefill  float64 // tokens per hour
	LLMRateDaily   int     // 0 = no daily cap

	// LINE channel (optional)
	LineChannelToken  string
	LineChannelSecret string

	// LLM (optional)
	LLMEnabled           bool
	LLMProviders         []string
	GeminiAPIKey         string
	GroqAPIKey           string
	CerebrasAPIKey       string
	GeminiIntentModels   []string
	GroqIntentModels     []string
	CerebrasIntentModels []string
	BreakerMaxFailures   int
	BreakerOpenTimeout   time.Duration

	// R2 (optional)
	R2Enabled         bool
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2Endpoint        string
	R2LockKey         string
	R2LockTTL         time.Duration

	// Sentry (optional)
	SentryEnabled          bool
	SentryDSN              string
	SentryEnvironment      string
	SentryRelease          string
	SentrySampleRate       float64
	SentryTracesSampleRate float64

	// Better Stack (optional)
	BetterStackToken    string
	BetterStackEndpoint string

	// Metrics auth (optional)
	MetricsAuthEnabled bool
	MetricsUsername    string
	MetricsPassword    string
}

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv(EnvPort, getEnv(EnvPlatformPort, DefaultPort)),
		LogLevel:        getEnv(EnvLogLevel, "info"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, GracefulShutdown),
		ServerName:      getEnv(EnvServerName, ""),
		MaxMessageLen:   getIntEnv(EnvMaxMessageLen, MaxMessageLength),

		DataDir:     getEnv(EnvDataDir, getDefaultDataDir()),
		CatalogPath: getEnv(EnvCatalogPath, ""),

		ModelSource:       strings.ToLower(getEnv(EnvModelSource, ModelSourceEmbedded)),
		ModelPath:         getEnv(EnvModelPath, ""),
		ModelR2Key:        getEnv(EnvModelR2Key, "models/bundle.yml.zst"),
		ModelPollInterval: getDurationEnv(EnvModelPollInterval, ModelPollDefault),
		ModelSeed:         getInt64Env(EnvModelSeed, 0),

		TrackerStore: strings.ToLower(getEnv(EnvTrackerStore, TrackerStoreMemory)),
		TrackerTTL:   getDurationEnv(EnvTrackerTTL, TrackerTTLDefault),
		RedisURL:     getEnv(EnvRedisURL, "redis://localhost:6379/0"),

		UserRateBurst:  getFloatEnv(EnvUserRateBurst, 10),
		UserRateRefill: getFloatEnv(EnvUserRateRefill, 0.5), // 1 per 2s
		LLMRateBurst:   getFloatEnv(EnvLLMRateBurst, 30),
		LLMRateRefill:  getFloatEnv(EnvLLMRateRefill, 20),
		LLMRateDaily:   getIntEnv(EnvLLMRateDaily, 100),

		LineChannelToken:  getEnv(EnvLineChannelAccessToken, ""),
		LineChannelSecret: getEnv(EnvLineChannelSecret, ""),

		LLMEnabled:           getBoolEnv(EnvLLMEnabled, false),
		LLMProviders:         getListEnv(EnvLLMProviders, []string{ProviderGemini, ProviderGroq, ProviderCerebras}),
		GeminiAPIKey:         getEnv(EnvGeminiAPIKey, ""),
		GroqAPIKey:           getEnv(EnvGroqAPIKey, ""),
		CerebrasAPIKey:       getEnv(EnvCerebrasAPIKey, ""),
		GeminiIntentModels:   getListEnv(EnvGeminiIntentModels, nil),
		GroqIntentModels:     getListEnv(EnvGroqIntentModels, nil),
		CerebrasIntentModels: getListEnv(EnvCerebrasIntentModels, nil),
		BreakerMaxFailures:   getIntEnv(EnvBreakerMaxFailures, 5),
		BreakerOpenTimeout:   getDurationEnv(EnvBreakerOpenTimeout, BreakerOpen),

		R2Enabled:         getBoolEnv(EnvR2Enabled, false),
		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),
		R2Endpoint:        getEnv(EnvR2Endpoint, ""),
		R2LockKey:         getEnv(EnvR2LockKey, "models/bundle.lock"),
		R2LockTTL:         getDurationEnv(EnvR2LockTTL, ModelLockTTL),

		SentryEnabled:          getBoolEnv(EnvSentryEnabled, false),
		SentryDSN:              getEnv(EnvSentryDSN, ""),
		SentryEnvironment:      getEnv(EnvSentryEnvironment, "production"),
		SentryRelease:          getEnv(EnvSentryRelease, ""),
		SentrySampleRate:       getFloatEnv(EnvSentrySampleRate, 1.0),
		SentryTracesSampleRate: getFloatEnv(EnvSentryTracesSampleRate, 0.0),

		BetterStackToken:    getEnv(EnvBetterStackToken, ""),
		BetterStackEndpoint: getEnv(EnvBetterStackEndpoint, ""),

		MetricsAuthEnabled: getBoolEnv(EnvMetricsAuthEnabled, false),
		MetricsUsername:    getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword:    getEnv(EnvMetricsPassword, ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and feature prerequisites.
func (c *Config) Validate() error {
	var errs []error

	if c.Port == "" {
		errs = append(errs, errors.New("TUCURSO_PORT is required"))
	} else if p, err := strconv.Atoi(c.Port); err != nil || p <= 0 || p > 65535 {
		errs = append(errs, fmt.Errorf("TUCURSO_PORT must be a valid port, got %q", c.Port))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("TUCURSO_SHUTDOWN_TIMEOUT must be positive, got %v", c.ShutdownTimeout))
	}
	if c.MaxMessageLen <= 0 {
		errs = append(errs, fmt.Errorf("TUCURSO_MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLen))
	}

	switch c.ModelSource {
	case ModelSourceEmbedded:
	case ModelSourceFile:
		if c.ModelPath == "" {
			errs = append(errs, errors.New("TUCURSO_MODEL_PATH is required when TUCURSO_MODEL_SOURCE=file"))
		}
	case ModelSourceR2:
		if !c.R2Enabled {
			errs = append(errs, errors.New("TUCURSO_MODEL_SOURCE=r2 requires TUCURSO_R2_ENABLED=true"))
		}
		if c.ModelR2Key == "" {
			errs = append(errs, errors.New("TUCURSO_MODEL_R2_KEY is required when TUCURSO_MODEL_SOURCE=r2"))
		}
		if c.ModelPollInterval < 0 {
			errs = append(errs, fmt.Errorf("TUCURSO_MODEL_POLL_INTERVAL cannot be negative, got %v", c.ModelPollInterval))
		}
	default:
		errs = append(errs, fmt.Errorf("TUCURSO_MODEL_SOURCE must be one of embedded, file, r2, got %q", c.ModelSource))
	}

	switch c.TrackerStore {
	case TrackerStoreMemory, TrackerStoreSQLite:
	case TrackerStoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("TUCURSO_REDIS_URL is required when TUCURSO_TRACKER_STORE=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("TUCURSO_TRACKER_STORE must be one of memory, sqlite, redis, got %q", c.TrackerStore))
	}
	if c.TrackerTTL <= 0 {
		errs = append(errs, fmt.Errorf("TUCURSO_TRACKER_TTL must be positive, got %v", c.TrackerTTL))
	}
	if c.TrackerStore == TrackerStoreSQLite && c.DataDir == "" {
		errs = append(errs, errors.New("TUCURSO_DATA_DIR is required when TUCURSO_TRACKER_STORE=sqlite"))
	}

	if c.UserRateBurst <= 0 || c.UserRateRefill <= 0 {
		errs = append(errs, errors.New("user rate limit burst and refill must be positive"))
	}
	if c.LLMRateBurst <= 0 || c.LLMRateRefill <= 0 {
		errs = append(errs, errors.New("LLM rate limit burst and refill must be positive"))
	}
	if c.LLMRateDaily < 0 {
		errs = append(errs, fmt.Errorf("TUCURSO_LLM_RATE_DAILY cannot be negative, got %d", c.LLMRateDaily))
	}

	if (c.LineChannelToken == "") != (c.LineChannelSecret == "") {
		errs = append(errs, errors.New("TUCURSO_LINE_CHANNEL_ACCESS_TOKEN and TUCURSO_LINE_CHANNEL_SECRET must be set together"))
	}

	if c.LLMEnabled {
		if !c.HasLLMProvider() {
			errs = append(errs, errors.New("TUCURSO_LLM_ENABLED requires at least one provider API key"))
		}
		for _, p := range c.LLMProviders {
			if !slices.Contains([]string{ProviderGemini, ProviderGroq, ProviderCerebras}, p) {
				errs = append(errs, fmt.Errorf("unknown LLM provider %q", p))
			}
		}
		if c.BreakerMaxFailures <= 0 {
			errs = append(errs, fmt.Errorf("TUCURSO_LLM_BREAKER_MAX_FAILURES must be positive, got %d", c.BreakerMaxFailures))
		}
	}

	if c.R2Enabled {
		if c.R2AccountID == "" && c.R2Endpoint == "" {
			errs = append(errs, errors.New("TUCURSO_R2_ACCOUNT_ID or TUCURSO_R2_ENDPOINT is required when R2 is enabled"))
		}
		if c.R2AccessKeyID == "" || c.R2SecretAccessKey == "" {
			errs = append(errs, errors.New("R2 credentials are required when R2 is enabled"))
		}
		if c.R2BucketName == "" {
			errs = append(errs, errors.New("TUCURSO_R2_BUCKET_NAME is required when R2 is enabled"))
		}
	}

	if c.SentryEnabled && c.SentryDSN == "" {
		errs = append(errs, errors.New("TUCURSO_SENTRY_DSN is required when Sentry is enabled"))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 || c.SentryTracesSampleRate < 0 || c.SentryTracesSampleRate > 1 {
		errs = append(errs, errors.New("sentry sample rates must be between 0 and 1"))
	}

	if c.MetricsAuthEnabled && c.MetricsPassword == "" {
		errs = append(errs, errors.New("TUCURSO_METRICS_PASSWORD is required when metrics auth is enabled"))
	}

	return errors.Join(errs...)
}

// LINEEnabled reports whether the LINE channel adapter should be mounted.
func (c *Config) LINEEnabled() bool {
	return c.LineChannelToken != "" && c.LineChannelSecret != ""
}

// HasLLMProvider returns true if at least one LLM provider is configured.
func (c *Config) HasLLMProvider() bool {
	return c.GeminiAPIKey != "" || c.GroqAPIKey != "" || c.CerebrasAPIKey != ""
}

// SQLitePath returns the full path to the tracker database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "trackers.db")
}

// R2EndpointURL returns the explicit endpoint or the account-derived one.
func (c *Config) R2EndpointURL() string {
	if c.R2Endpoint != "" {
		return c.R2Endpoint
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.R2AccountID)
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return v
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return v
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return v
		}
	}
	return defaultValue
}

// getListEnv splits a comma-separated value, dropping empty items.
func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	var out []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}
