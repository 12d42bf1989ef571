package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql

	"github.com/garyellow/tucurso-bot/internal/config"
)

const memoryDSN = ":memory:"

const trackerSchema = `
CREATE TABLE IF NOT EXISTS trackers (
	sender_id     TEXT PRIMARY KEY,
	category      TEXT NOT NULL DEFAULT '',
	course_name   TEXT NOT NULL DEFAULT '',
	latest_intent TEXT NOT NULL DEFAULT '',
	latest_action TEXT NOT NULL DEFAULT '',
	turns         INTEGER NOT NULL DEFAULT 0,
	updated_at    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trackers_updated_at ON trackers(updated_at);
`

// SQLiteStore persists trackers in a single SQLite file (WAL mode).
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// NewSQLiteStore opens (creating if needed) the database at path.
// ":memory:" gives a private in-memory database, used by tests.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("storage: sqlite path is required")
	}
	if path != memoryDSN {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == memoryDSN {
		// Every connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(4)
		conn.SetMaxIdleConns(2)
	}
	conn.SetConnMaxLifetime(config.DatabaseConnMaxLifetime)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", config.DatabaseBusyTimeout.Milliseconds()),
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := conn.ExecContext(ctx, p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}
	if _, err := conn.ExecContext(ctx, trackerSchema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{conn: conn, path: path}, nil
}

func (s *SQLiteStore) Backend() string { return BackendSQLite }

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Get(ctx context.Context, senderID string) (*Tracker, error) {
	if senderID == "" {
		return nil, ErrInvalidSender
	}
	const query = `SELECT category, course_name, latest_intent, latest_action, turns, updated_at
		FROM trackers WHERE sender_id = ?`

	t := NewTracker(senderID)
	var updated int64
	err := s.conn.QueryRowContext(ctx, query, senderID).Scan(
		&t.Slots.Category, &t.Slots.CourseName, &t.LatestIntent, &t.LatestAction, &t.Turns, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tracker: %w", err)
	}
	t.UpdatedAt = time.UnixMilli(updated)
	return t, nil
}

func (s *SQLiteStore) Save(ctx context.Context, t *Tracker) error {
	if t == nil || t.SenderID == "" {
		return ErrInvalidSender
	}
	t.stamp()
	const query = `
		INSERT INTO trackers (sender_id, category, course_name, latest_intent, latest_action, turns, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sender_id) DO UPDATE SET
			category = excluded.category,
			course_name = excluded.course_name,
			latest_intent = excluded.latest_intent,
			latest_action = excluded.latest_action,
			turns = excluded.turns,
			updated_at = excluded.updated_at
	`
	start := time.Now()
	_, err := s.conn.ExecContext(ctx, query, t.SenderID, t.Slots.Category, t.Slots.CourseName,
		t.LatestIntent, t.LatestAction, t.Turns, t.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to save tracker: %w", err)
	}
	if d := time.Since(start); d > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "SaveTracker",
			"duration_ms", d.Milliseconds())
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, senderID string) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM trackers WHERE sender_id = ?`, senderID); err != nil {
		return fmt.Errorf("failed to delete tracker: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context, ttl time.Duration) (int64, error) {
	cutoff := time.Now().Add(-ttl).UnixMilli()
	res, err := s.conn.ExecContext(ctx, `DELETE FROM trackers WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired trackers: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM trackers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count trackers: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
