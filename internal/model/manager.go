package model

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/garyellow/tucurso-bot/internal/config"
	"github.com/garyellow/tucurso-bot/internal/dialogue"
	domerrors "github.com/garyellow/tucurso-bot/internal/errors"
	"github.com/garyellow/tucurso-bot/internal/warmup"
)

// Load statuses recorded in metrics.
const (
	statusSuccess   = "success"
	statusError     = "error"
	statusUnchanged = "unchanged"
)

// Manager owns the active agent. Requests read it lock-free; loads replace
// it atomically, so in-flight turns finish on the agent they started with.
type Manager struct {
	source    Source
	deps      Deps
	readiness *warmup.ReadinessState
	timeout   time.Duration

	agent atomic.Pointer[dialogue.Agent]
	group singleflight.Group

	mu   sync.RWMutex
	etag string
}

// NewManager creates a manager reading bundles from source. readiness may
// be nil.
func NewManager(source Source, deps Deps, readiness *warmup.ReadinessState) *Manager {
	return &Manager{
		source:    source,
		deps:      deps,
		readiness: readiness,
		timeout:   config.ModelLoad,
	}
}

// Source returns the bundle source.
func (m *Manager) Source() Source {
	return m.source
}

// Agent returns the active agent, or nil before the first successful load.
func (m *Manager) Agent() *dialogue.Agent {
	return m.agent.Load()
}

// Loaded reports whether an agent is active.
func (m *Manager) Loaded() bool {
	return m.agent.Load() != nil
}

// Version returns the active model version, or "".
func (m *Manager) Version() string {
	if a := m.agent.Load(); a != nil {
		return a.Version()
	}
	return ""
}

// ETag returns the revision of the active bundle when the source has one.
func (m *Manager) ETag() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.etag
}

// HandleText delegates to the active agent.
func (m *Manager) HandleText(ctx context.Context, senderID, text string) ([]dialogue.Reply, error) {
	a := m.agent.Load()
	if a == nil {
		return nil, domerrors.ErrEngineNotLoaded
	}
	return a.HandleText(ctx, senderID, text)
}

// Load fetches the bundle and swaps in a new agent. Concurrent calls share
// one load. An unchanged bundle is not rebuilt. On failure the previous
// agent keeps serving.
func (m *Manager) Load(ctx context.Context) error {
	_, err, shared := m.group.Do("load", func() (any, error) {
		return nil, m.load(ctx)
	})
	if shared && m.deps.Metrics != nil {
		m.deps.Metrics.RecordSingleflightDedup("model")
	}
	return err
}

func (m *Manager) load(ctx context.Context) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	etag := ""
	if m.Loaded() {
		etag = m.ETag()
	}

	fetched, err := m.source.Fetch(ctx, etag)
	if errors.Is(err, ErrNotModified) {
		m.record(statusUnchanged, start)
		return nil
	}
	if err != nil {
		return m.fail(err, start)
	}

	bundle, err := ParseBundle(fetched.Data, fetched.Ext)
	if err != nil {
		return m.fail(err, start)
	}
	agent, err := Build(bundle, m.deps)
	if err != nil {
		return m.fail(err, start)
	}

	previous := m.agent.Swap(agent)
	m.mu.Lock()
	m.etag = fetched.ETag
	m.mu.Unlock()

	m.record(statusSuccess, start)
	if m.deps.Metrics != nil {
		m.deps.Metrics.SetModelInfo(len(bundle.Intents), m.deps.Catalog.Len())
	}
	if m.readiness != nil {
		m.readiness.MarkReady(bundle.Version)
	}

	attrs := []any{
		"source", m.source.Name(),
		"ref", m.source.Ref(),
		"version", bundle.Version,
		"intents", len(bundle.Intents),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if fetched.ETag != "" {
		attrs = append(attrs, "etag", fetched.ETag)
	}
	if previous != nil {
		attrs = append(attrs, "previous_version", previous.Version())
		slog.InfoContext(ctx, "Model reloaded", attrs...)
	} else {
		slog.InfoContext(ctx, "Model loaded", attrs...)
	}
	return nil
}

func (m *Manager) fail(err error, start time.Time) error {
	err = domerrors.NewModelError(m.source.Name(), m.source.Ref(), err)
	m.record(statusError, start)
	if m.readiness != nil {
		m.readiness.MarkFailed(err)
	}
	return err
}

func (m *Manager) record(status string, start time.Time) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.RecordModelLoad(m.source.Name(), status, time.Since(start).Seconds())
	}
}

// Poll reloads the bundle every interval until ctx is done. Failed reloads
// are logged and the current agent keeps serving.
func (m *Manager) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "Model polling started",
		"source", m.source.Name(),
		"ref", m.source.Ref(),
		"interval", interval)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Model polling stopped")
			return
		case <-ticker.C:
			if err := m.Load(ctx); err != nil && ctx.Err() == nil {
				slog.WarnContext(ctx, "Model poll failed", "error", err)
			}
		}
	}
}
