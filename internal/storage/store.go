package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ErrInvalidSender is returned for an empty sender id.
var ErrInvalidSender = errors.New("storage: sender id is required")

// Store persists trackers. Get never returns nil: an unknown sender gets a
// fresh tracker.
type Store interface {
	Get(ctx context.Context, senderID string) (*Tracker, error)
	Save(ctx context.Context, t *Tracker) error
	Delete(ctx context.Context, senderID string) error
	// DeleteExpired removes trackers idle for longer than ttl.
	DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
	Backend() string
}

// Options selects and configures a backend.
type Options struct {
	Backend    string
	SQLitePath string
	RedisURL   string
	// TTL is applied natively by backends that support key expiry.
	TTL time.Duration
}

// Open builds the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemoryStore(), nil
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.SQLitePath)
	case BackendRedis:
		return NewRedisStore(ctx, opts.RedisURL, opts.TTL)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", opts.Backend)
	}
}
